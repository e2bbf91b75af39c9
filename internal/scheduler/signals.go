package scheduler

import (
	"os"
	"os/signal"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Enter/leave I/O signals. These are the "one specific user-defined
// signal"/"a different user-defined signal, accompanied by the sender's
// process identifier" spec.md §6's Workload Contract calls for. SIGUSR1/
// SIGUSR2 are the pair original_source/scheduler/scheduler_io.c uses, kept
// so workloads written against the original C scheduler continue to work
// unmodified.
const (
	sigEnterIO = unix.SIGUSR1
	sigLeaveIO = unix.SIGUSR2
)

// SignalShim is the "small signal-catching shim" spec.md §9 Design Notes
// calls for, converting OS signals into Router events in place of the
// source's sigaction-registered C handlers
// (original_source/scheduler/scheduler_io.c's sigchld_handler/
// sigUsr1_handler/sigUsr2_handler).
//
// SIGCHLD and SIGUSR1 (enter I/O, always sent by the currently focused
// child) are delivered through the standard library's os/signal channel.
// SIGUSR2 (leave I/O) must identify *which* blocked workload finished,
// which requires the sending pid — information os/signal's channel-based
// API does not expose. The shim instead reads SIGUSR2 via a signalfd
// (golang.org/x/sys/unix.Signalfd), which reports the sender's pid in its
// Signalfd_siginfo, the same low-level unix primitive the teacher's
// internal/device and internal/jobworker/cgroup packages reach for.
type SignalShim struct {
	router *Router

	osSignals chan os.Signal
	sigfd     int
	done      chan struct{}
}

// NewSignalShim registers for SIGCHLD, SIGUSR1, and SIGUSR2 and starts
// translating them into events on router. Call Stop to unregister.
func NewSignalShim(router *Router) (*SignalShim, error) {
	var set unix.Sigset_t
	set.Val[0] |= 1 << (uint(sigLeaveIO) - 1)
	// Block SIGUSR2 on this thread so it is queued for signalfd rather than
	// delivered as a traditional signal. Go's runtime multiplexes goroutines
	// across OS threads, so this is a best-effort mask applied per-thread by
	// the runtime's own signal forwarding machinery, not a process-wide
	// guarantee; it matches the masking original_source/scheduler/
	// scheduler_io.c performs with sigaction's sa_mask before installing the
	// SIGUSR2 handler.
	if err := unix.PthreadSigmask(unix.SIG_BLOCK, &set, nil); err != nil {
		return nil, err
	}

	fd, err := unix.Signalfd(-1, &set, unix.SFD_CLOEXEC)
	if err != nil {
		return nil, err
	}

	s := &SignalShim{
		router:    router,
		osSignals: make(chan os.Signal, 16),
		sigfd:     fd,
		done:      make(chan struct{}),
	}
	signal.Notify(s.osSignals, unix.SIGCHLD, sigEnterIO)

	go s.runOSSignals()
	go s.runLeaveIO()
	return s, nil
}

func (s *SignalShim) runOSSignals() {
	for {
		select {
		case <-s.done:
			return
		case sig := <-s.osSignals:
			switch sig {
			case sigEnterIO:
				// EnterIO is always sent by whichever child currently holds
				// the focus slot, so Router.applyEnterIO resolves the
				// descriptor from the focus slot itself rather than from a
				// ChildID carried on the event (event.go). Pre-resolving it
				// here via Focus()/store.Get would read Router.focus/
				// hasFocus concurrently with the policy loop's unsynchronized
				// SetFocus/ClearFocus writes — exactly the data race spec.md
				// §5 rules out.
				s.router.Submit(Event{Kind: EnterIO})
			default:
				// SIGCHLD only indicates *some* child state changed; the
				// policy loops discover which one via non-blocking reap and
				// submit ChildExited themselves once they have an exit
				// status. Wake any blocked waiter so loops re-check promptly.
				s.router.notifier.Broadcast()
			}
		}
	}
}

func (s *SignalShim) runLeaveIO() {
	const infoSize = int(unsafe.Sizeof(unix.SignalfdSiginfo{}))
	buf := make([]byte, infoSize)
	for {
		select {
		case <-s.done:
			return
		default:
		}

		n, err := unix.Read(s.sigfd, buf)
		if err != nil || n != infoSize {
			continue
		}
		info := (*unix.SignalfdSiginfo)(unsafe.Pointer(&buf[0]))
		s.router.Submit(Event{Kind: LeaveIO, ChildID: int(info.Pid)})
	}
}

// Stop unregisters the shim's signal handlers and closes the signalfd.
func (s *SignalShim) Stop() {
	signal.Stop(s.osSignals)
	close(s.done)
	unix.Close(s.sigfd)
}
