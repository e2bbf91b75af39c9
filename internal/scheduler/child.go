package scheduler

import (
	"os"
	"os/exec"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// ErrSpawnFailed indicates the fork/exec primitive failed while launching a
// workload (spec.md §7).
var ErrSpawnFailed = errors.New("child: spawn failed")

// Controller spawns, suspends, resumes, terminates, and reaps workload
// child processes (spec.md §4.2). Exit-status decoding is adapted from the
// teacher's internal/jobworker/reexec.exitCode; signal delivery is grounded
// on original_source/scheduler/scheduler_io.c's kill(pid, SIG...) calls,
// issued here via golang.org/x/sys/unix instead of raw C signal numbers.
type Controller struct{}

// NewController creates a Controller.
func NewController() *Controller {
	return &Controller{}
}

// Spawn forks a child process that execs the executable at d.Route, passing
// d.ExecutableName as argument zero and no further arguments. On success,
// d.ChildID is set to the OS process id and d.Status becomes Running. On
// failure, d.Status is left unchanged and ErrSpawnFailed is returned,
// wrapped with the underlying OS error.
func (c *Controller) Spawn(d *Descriptor) error {
	cmd := exec.Command(d.Route)
	cmd.Args = []string{d.ExecutableName}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return errors.Wrapf(ErrSpawnFailed, "route %q: %s", d.Route, err)
	}

	d.ChildID = cmd.Process.Pid
	d.Status = Running
	// Detach the OS-level resources from the *exec.Cmd's own Wait plumbing;
	// this controller reaps directly with unix.Wait4 so the descriptor is
	// not tied to a goroutine holding cmd.Wait's internal state.
	if err := cmd.Process.Release(); err != nil {
		return errors.Wrapf(ErrSpawnFailed, "release process handle: %s", err)
	}
	return nil
}

// Suspend sends SIGSTOP to d's child. It requires d.Status == Running and
// sets d.Status = Stopped. Suspend is idempotent with respect to repeated
// stops: sending SIGSTOP to an already-stopped process is a no-op at the OS
// level.
func (c *Controller) Suspend(d *Descriptor) error {
	if err := unix.Kill(d.ChildID, unix.SIGSTOP); err != nil {
		return errors.Wrapf(err, "suspend child %d", d.ChildID)
	}
	d.Status = Stopped
	return nil
}

// Resume sends SIGCONT to d's child. It requires d.Status to be Stopped or
// BlockedOnIO and sets d.Status = Running.
func (c *Controller) Resume(d *Descriptor) error {
	if err := unix.Kill(d.ChildID, unix.SIGCONT); err != nil {
		return errors.Wrapf(err, "resume child %d", d.ChildID)
	}
	d.Status = Running
	return nil
}

// Kill sends SIGKILL to d's child and blocks until it is reaped. It sets
// d.Status = Exited and d.Killed = true; d.ExitCode is left at its last
// observed value (the spec's Design Notes recommend distinguishing a
// scheduler-initiated kill from a natural exit code, see report.KilledExitCode).
func (c *Controller) Kill(d *Descriptor) error {
	if err := unix.Kill(d.ChildID, unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
		return errors.Wrapf(err, "kill child %d", d.ChildID)
	}

	var ws unix.WaitStatus
	for {
		_, err := unix.Wait4(d.ChildID, &ws, 0, nil)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil && !errors.Is(err, unix.ECHILD) {
			return errors.Wrapf(err, "wait for killed child %d", d.ChildID)
		}
		break
	}

	d.Status = Exited
	d.Killed = true
	return nil
}

// TryReap performs a non-blocking reap of d's child. If the child is still
// alive, ok is false. If the child has exited, ok is true, d.Status becomes
// Exited, and d.ExitCode records the low-order byte of the OS exit status
// (spec.md §4.6).
func (c *Controller) TryReap(d *Descriptor) (ok bool, err error) {
	var ws unix.WaitStatus
	pid, err := unix.Wait4(d.ChildID, &ws, unix.WNOHANG, nil)
	if errors.Is(err, unix.EINTR) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "reap child %d", d.ChildID)
	}
	if pid == 0 {
		return false, nil
	}

	d.Status = Exited
	d.ExitCode = exitCode(ws)
	return true, nil
}

// exitCode extracts the low-order exit-status byte from a wait status,
// mirroring WEXITSTATUS in original_source/scheduler/scheduler_io.c and the
// *exec.ExitError unwrapping in the teacher's
// internal/jobworker/reexec.exitCode. A process that terminated on a signal
// (rather than calling exit) is reported with code 128+signal, following
// the shell convention used when no other exit code is available.
func exitCode(ws unix.WaitStatus) int {
	if ws.Exited() {
		return ws.ExitStatus()
	}
	if ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return -1
}
