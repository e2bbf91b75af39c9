package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/tjper/procsched/internal/manifest"
	"github.com/tjper/procsched/internal/report"
	"github.com/tjper/procsched/internal/scheduler"
)

// runFCFS loads manifestFile and drives its workloads under the
// First-Come-First-Served policy (spec.md §4.4).
func runFCFS(manifestFile string) error {
	eng, reporter, err := newRun(manifestFile)
	if err != nil {
		return err
	}
	defer reporter.Close()

	shim, err := scheduler.NewSignalShim(eng.Router)
	if err != nil {
		return err
	}
	defer shim.Stop()

	return eng.RunFCFS(context.Background())
}

// runRR loads manifestFile and drives its workloads under the Round-Robin
// policy with the given quantum, in milliseconds (spec.md §4.5).
func runRR(quantumMS int, manifestFile string) error {
	eng, reporter, err := newRun(manifestFile)
	if err != nil {
		return err
	}
	defer reporter.Close()

	shim, err := scheduler.NewSignalShim(eng.Router)
	if err != nil {
		return err
	}
	defer shim.Stop()

	return eng.RunRoundRobin(context.Background(), time.Duration(quantumMS)*time.Millisecond)
}

// newRun loads manifestFile's descriptors into a fresh Engine and wires up
// a Reporter persisting completion reports under a unique run id.
func newRun(manifestFile string) (*scheduler.Engine, *report.Reporter, error) {
	reporter := report.New(os.Stdout, uuid.New().String())
	eng := scheduler.NewEngine(reporter)

	descriptors, err := manifest.LoadDescriptors(manifestFile, eng.Clock)
	if err != nil {
		return nil, nil, fmt.Errorf("load manifest: %w", err)
	}
	for _, d := range descriptors {
		eng.Enqueue(d)
	}
	return eng, reporter, nil
}
