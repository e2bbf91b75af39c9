// Package report formats per-workload completion lines the way the
// scheduler's source (original_source/scheduler/scheduler_io.c) prints them,
// and additionally persists a copy of each report to a per-run log file,
// adapting the teacher's internal/jobworker/output path-naming convention
// from a per-job file to a per-run completion history (SPEC_FULL.md).
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	ierrors "github.com/tjper/procsched/internal/errors"
	"github.com/tjper/procsched/internal/log"
)

var logger = log.New(os.Stdout, "report")

// KilledExitCode is reported in place of a real OS exit code when a
// workload is force-terminated for exhausting its Round-Robin CPU budget.
// spec.md §9 flags the source's reuse of exit code 0 for this case as
// ambiguous and recommends distinguishing it; -1 can never be returned by a
// real process exit (the spec.md §4.6 exit code is a low-order byte of an
// OS status, always in [0, 255]).
const KilledExitCode = -1

// Root is the default directory completion reports are additionally
// persisted to, mirroring internal/jobworker/output.Root in the teacher.
const Root = "/var/log/procsched"

// Completion carries the fields of one finished workload needed to render
// a completion report (spec.md §4.6).
type Completion struct {
	ChildID        int
	ExitCode       int
	Killed         bool
	ExecutableName string
	Route          string
	EntryTime      time.Time
	FinishTime     time.Time
}

// Elapsed is FinishTime - EntryTime, per spec.md §4.6: "measured against
// entry_time, not against the first spawn time; thus queueing delay is
// included in time to execute".
func (c Completion) Elapsed() time.Duration {
	return c.FinishTime.Sub(c.EntryTime)
}

// Format renders the bordered completion block required by spec.md §6.
func Format(c Completion) string {
	code := c.ExitCode
	codeText := fmt.Sprintf("%d", code)
	if c.Killed {
		codeText = fmt.Sprintf("%d (killed: budget exhausted)", KilledExitCode)
	}

	const border = "-----------------------------------------------------"
	return fmt.Sprintf(
		"%s\nProcess %d finished with code: %s\nExecutable: %s\nRoute: %s\nTime to execute: %.6f\n%s\n",
		border,
		c.ChildID,
		codeText,
		c.ExecutableName,
		c.Route,
		c.Elapsed().Seconds(),
		border,
	)
}

// Reporter writes completion reports to stdout and appends a copy to a
// per-run persisted log file.
type Reporter struct {
	out     io.Writer
	logPath string
	logFile *os.File
}

// New creates a Reporter that writes to out and persists a copy of each
// report under Root, named after runID.
func New(out io.Writer, runID string) *Reporter {
	return newWithRoot(out, runID, Root)
}

// newWithRoot is New with an overridable root, so tests can exercise
// persistence without writing under Root itself.
func newWithRoot(out io.Writer, runID, root string) *Reporter {
	return &Reporter{
		out:     out,
		logPath: filepath.Join(root, runID+".log"),
	}
}

// Report writes c's formatted completion block to stdout and appends it to
// the persisted log file. A failure to persist is logged and does not
// propagate: per SPEC_FULL.md, the persisted log is an ambient reporting
// convenience, not part of the scheduler's control-flow contract.
func (r *Reporter) Report(c Completion) {
	text := Format(c)
	fmt.Fprint(r.out, text)

	if err := r.appendPersisted(text); err != nil {
		logger.Warnf("persist completion report: %s", err)
	}
}

func (r *Reporter) appendPersisted(text string) error {
	if r.logFile == nil {
		if err := os.MkdirAll(filepath.Dir(r.logPath), 0o755); err != nil {
			return ierrors.Wrap(err)
		}
		f, err := os.OpenFile(r.logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return ierrors.Wrap(err)
		}
		r.logFile = f
	}
	_, err := io.WriteString(r.logFile, text)
	return ierrors.Wrap(err)
}

// Close releases the persisted log file, if one was opened.
func (r *Reporter) Close() error {
	if r.logFile == nil {
		return nil
	}
	return r.logFile.Close()
}

// Enqueued renders the "Enqueued process" line spec.md §6 requires when a
// descriptor is first loaded into the ready queue.
func Enqueued(executableName string) string {
	return fmt.Sprintf("Enqueued process: %s\n", executableName)
}

// Started renders the RR "Started process" line (spec.md §6).
func Started(executableName string, childID int) string {
	return fmt.Sprintf("Started process: %s (PID: %d)\n", executableName, childID)
}

// Resuming renders the RR "Resuming process" line (spec.md §6).
func Resuming(executableName string, childID int) string {
	return fmt.Sprintf("Resuming process: %s (PID: %d)\n", executableName, childID)
}

// Pausing renders the RR "Pausing process" line (spec.md §6).
func Pausing(executableName string, childID int) string {
	return fmt.Sprintf("Pausing process: %s (PID: %d)\n", executableName, childID)
}
