// Package manifest loads a scheduler's input file: one executable path per
// line, as original_source/scheduler/scheduler_io.c's loadProcessesFromFile
// does, reimplemented with bufio.Scanner and path.Base instead of
// fgets/strrchr.
package manifest

import (
	"bufio"
	"fmt"
	"os"
	"path"

	ierrors "github.com/tjper/procsched/internal/errors"
	"github.com/tjper/procsched/internal/scheduler"
)

// ErrOpenFailed indicates the manifest file could not be opened for
// reading (spec.md §7).
var ErrOpenFailed = fmt.Errorf("manifest: open failed")

// Entry is one parsed manifest line, ready to become a Process Descriptor.
type Entry struct {
	ExecutableName string
	Route          string
}

// Load reads filename, one executable route per line. Per spec.md §9 Design
// Notes, blank lines are skipped rather than producing a descriptor with an
// empty route that is guaranteed to fail SpawnFailed.
func Load(filename string) ([]Entry, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrOpenFailed, filename, err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		entries = append(entries, Entry{
			ExecutableName: path.Base(line),
			Route:          line,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, ierrors.Wrap(err)
	}
	return entries, nil
}

// LoadDescriptors reads filename and allocates a fresh scheduler.Descriptor
// for each non-blank line, with EntryTime captured via clock at load time
// (spec.md §4.7).
func LoadDescriptors(filename string, clock scheduler.Clock) ([]*scheduler.Descriptor, error) {
	entries, err := Load(filename)
	if err != nil {
		return nil, err
	}

	descriptors := make([]*scheduler.Descriptor, 0, len(entries))
	for _, e := range entries {
		descriptors = append(descriptors, scheduler.NewDescriptor(e.ExecutableName, e.Route, clock.Now()))
	}
	return descriptors, nil
}
