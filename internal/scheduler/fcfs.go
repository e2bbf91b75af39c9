package scheduler

import (
	"context"
	"fmt"
	"os"

	"github.com/tjper/procsched/internal/report"
)

// Reporter is the subset of report.Reporter the policy loops depend on,
// kept as an interface so tests can substitute a recording stub.
type Reporter interface {
	Report(c report.Completion)
}

// Engine bundles the shared scheduler state a policy loop operates over:
// the descriptor store, ready/I/O queues, event router, child controller,
// clock, and reporter. Both FCFS and Round-Robin are built from the same
// Engine, differing only in their control loop (spec.md §2).
type Engine struct {
	Store      *Store
	Ready      *Queue
	IO         *Queue
	Router     *Router
	Controller *Controller
	Clock      Clock
	Reporter   Reporter
}

// NewEngine wires together a fresh Engine's components.
func NewEngine(reporter Reporter) *Engine {
	store := NewStore()
	ready := NewQueue()
	io := NewQueue()
	notifier := NewNotifier()
	clock := NewClock()
	router := NewRouter(store, ready, io, notifier, clock)

	return &Engine{
		Store:      store,
		Ready:      ready,
		IO:         io,
		Router:     router,
		Controller: NewController(),
		Clock:      clock,
		Reporter:   reporter,
	}
}

// Enqueue adds d to the Engine's ready queue and allocates it a Handle.
// Logs the "Enqueued process" line required by spec.md §6.
func (e *Engine) Enqueue(d *Descriptor) Handle {
	h := e.Store.Add(d)
	d.Location = InReady
	e.Ready.Enqueue(h)
	fmt.Fprint(os.Stdout, enqueuedLine(d.ExecutableName))
	return h
}

func enqueuedLine(name string) string {
	return "Enqueued process: " + name + "\n"
}

// complete finalizes d: reports it and destroys its Store record. Per
// spec.md §3, a descriptor is destroyed only after status is Exited and the
// reporter has consumed it.
func (e *Engine) complete(h Handle, d *Descriptor) {
	e.Reporter.Report(report.Completion{
		ChildID:        d.ChildID,
		ExitCode:       d.ExitCode,
		Killed:         d.Killed,
		ExecutableName: d.ExecutableName,
		Route:          d.Route,
		EntryTime:      d.EntryTime,
		FinishTime:     d.FinishTime,
	})
	d.Location = Nowhere
	e.Store.Delete(h)
}

// RunFCFS runs the First-Come-First-Served policy loop (spec.md §4.4): each
// workload runs to completion (or is relocated to the I/O queue) before the
// next head of the ready queue is dequeued. FCFS never issues Suspend.
func (e *Engine) RunFCFS(ctx context.Context) error {
	for {
		e.Router.Drain()

		if e.Ready.IsEmpty() {
			if e.IO.IsEmpty() {
				return nil
			}
			// All descriptors are either BlockedOnIO or have exited; wait for
			// a LeaveIO event before proceeding, per spec.md §4.4.
			if err := e.Router.notifier.Wait(ctx); err != nil {
				return err
			}
			continue
		}

		h, err := e.Ready.Dequeue()
		if err != nil {
			return err
		}
		d, ok := e.Store.Get(h)
		if !ok {
			continue
		}

		d.Location = InFocus
		e.Router.SetFocus(h)

		if d.Status == Stopped {
			if err := e.Controller.Resume(d); err != nil {
				return err
			}
		} else {
			if err := e.Controller.Spawn(d); err != nil {
				logger.Errorf("spawn %s: %s", d.ExecutableName, err)
				e.Router.ClearFocus()
				continue
			}
		}

		if err := e.waitForFocusCleared(ctx, d); err != nil {
			return err
		}

		if d.Status == Exited {
			e.complete(h, d)
		}
	}
}

// waitForFocusCleared blocks until the focus slot is cleared by either
// ChildExited or EnterIO (spec.md §4.4). It calls TryReap each time it
// wakes, so the main loop itself reaps natural exits; between calls it
// blocks in an unbounded Notifier.Wait, so it wakes only on a Broadcast
// (a submitted event or SignalShim's SIGCHLD handling).
func (e *Engine) waitForFocusCleared(ctx context.Context, d *Descriptor) error {
	for {
		e.Router.Drain()
		if _, has := e.Router.Focus(); !has {
			return nil
		}

		ok, err := e.Controller.TryReap(d)
		if err != nil {
			return err
		}
		if ok {
			e.Router.Submit(Event{Kind: ChildExited, ChildID: d.ChildID})
			e.Router.Drain()
			return nil
		}

		if err := e.Router.notifier.Wait(ctx); err != nil {
			return err
		}
	}
}
