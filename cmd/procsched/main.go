// Command procsched drives a batch of external executables listed in a
// manifest file under a First-Come-First-Served or Round-Robin scheduling
// policy (spec.md §1).
package main

import (
	"os"

	"github.com/tjper/procsched/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
