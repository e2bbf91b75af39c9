// Package cli defines the procsched CLI: argument parsing and dispatch to
// the FCFS or Round-Robin scheduling policy, adapted from the teacher's
// internal/jobworker/cli.Run/help (flag parsing, subcommand dispatch, a
// detailed usage block built with strings.Builder) for this spec's two
// subcommands instead of the teacher's serve/reexec pair.
package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/tjper/procsched/internal/log"
	"github.com/tjper/procsched/internal/validator"
)

var logger = log.New(os.Stdout, "cli")

const (
	// ecSuccess indicates the scheduler ran to completion.
	ecSuccess = 0
	// ecBadArguments indicates a CLI usage mismatch (spec.md §7 BadArguments).
	ecBadArguments = 1
)

const (
	policyFCFS = "FCFS"
	policyRR   = "RR"
)

// Run is the entrypoint of the procsched CLI (spec.md §6):
//
//	procsched FCFS <manifest-file>
//	procsched RR <quantum-ms> <manifest-file>
func Run(args []string) int {
	if len(args) < 1 {
		return help("Too few arguments.")
	}

	switch policy := args[0]; policy {
	case policyFCFS:
		return runFCFSCommand(args[1:])
	case policyRR:
		return runRRCommand(args[1:])
	default:
		return help(fmt.Sprintf("Unrecognized policy %q.", policy))
	}
}

func runFCFSCommand(args []string) int {
	v := validator.New()
	v.Assert(len(args) == 1, "FCFS requires exactly one argument: <manifest-file>")
	if err := v.Err(); err != nil {
		return help(err.Error())
	}

	manifestFile := args[0]
	if err := runFCFS(manifestFile); err != nil {
		logger.Errorf("FCFS run: %s", err)
		return ecBadArguments
	}
	return ecSuccess
}

func runRRCommand(args []string) int {
	v := validator.New()
	v.Assert(len(args) == 2, "RR requires exactly two arguments: <quantum-ms> <manifest-file>")
	if err := v.Err(); err != nil {
		return help(err.Error())
	}

	quantumMS, err := strconv.Atoi(args[0])
	v2 := validator.New()
	v2.AssertFunc(func() bool { return err == nil }, "quantum must be an integer")
	v2.AssertFunc(func() bool { return quantumMS > 0 }, "quantum must be a positive integer")
	if err := v2.Err(); err != nil {
		return help(err.Error())
	}

	manifestFile := args[1]
	if err := runRR(quantumMS, manifestFile); err != nil {
		logger.Errorf("RR run: %s", err)
		return ecBadArguments
	}
	return ecSuccess
}

// help outputs a general overview of the procsched executable to the user
// and returns the BadArguments exit code.
func help(text string) int {
	var b strings.Builder
	if text != "" {
		b.WriteString(fmt.Sprintf("\nNotice: %s\n", text))
	}

	b.WriteString(
		`
procsched drives a batch of external executables listed in a manifest file
under a First-Come-First-Served or Round-Robin scheduling policy.

Usage:
  procsched FCFS <manifest-file>
  procsched RR <quantum-ms> <manifest-file>

Arguments:
  manifest-file   path to a text file listing one executable path per line
  quantum-ms      positive integer milliseconds of CPU time per RR slice
`)
	fmt.Fprint(os.Stdout, b.String())
	return ecBadArguments
}
