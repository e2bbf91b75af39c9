package scheduler

import (
	"os"

	"github.com/tjper/procsched/internal/log"
)

var logger = log.New(os.Stdout, "scheduler")

// EventKind discriminates the three asynchronous event sources a running
// scheduler reacts to (spec.md §4.3).
type EventKind int

const (
	// ChildExited indicates the child with ChildID terminated.
	ChildExited EventKind = iota
	// EnterIO indicates the running child requested to enter I/O.
	EnterIO
	// LeaveIO indicates a previously blocked child's I/O completed.
	LeaveIO
)

// Event is a single asynchronous notification submitted to the Router. For
// ChildExited, ChildID is the reaped pid. For LeaveIO, ChildID is the
// sender's pid, read off the signalfd in signals.go. EnterIO carries no
// ChildID: it is always sent by whichever child currently holds the focus
// slot, and applyEnterIO resolves that descriptor from the focus slot
// itself rather than trust a value resolved outside the Router's owning
// goroutine.
type Event struct {
	Kind    EventKind
	ChildID int
}

// Router serialises the effect of asynchronous ChildExited/EnterIO/LeaveIO
// events on queue state with respect to the scheduler's main loop. Per
// spec.md §9 Design Notes, it replaces the source's process-wide focus
// pointer and signal handlers mutating queues directly with a single owning
// goroutine draining a typed channel — the "small signal-catching shim"
// that converts OS signals into channel messages lives in signals.go.
type Router struct {
	events chan Event

	store    *Store
	ready    *Queue
	io       *Queue
	notifier *Notifier
	clock    Clock

	// focus is the single-element register holding the descriptor handle
	// currently running, per spec.md §3's "focus slot" invariant.
	focus    Handle
	hasFocus bool
}

// NewRouter creates a Router operating over the given ready/I/O queues and
// descriptor store.
func NewRouter(store *Store, ready, io *Queue, notifier *Notifier, clock Clock) *Router {
	return &Router{
		events:   make(chan Event, 16),
		store:    store,
		ready:    ready,
		io:       io,
		notifier: notifier,
		clock:    clock,
	}
}

// SetFocus records h as the descriptor currently running. It must be called
// by the main loop immediately before spawn/resume, per spec.md §5's
// ordering guarantee that spawn/resume strictly precedes the quantum timer.
func (r *Router) SetFocus(h Handle) {
	r.focus = h
	r.hasFocus = true
}

// ClearFocus empties the focus slot. Called by the main loop once it has
// observed the slot cleared by an event handler, or directly when a policy
// loop moves its own focus descriptor without going through an event (RR's
// normal quantum-expiry path).
func (r *Router) ClearFocus() {
	r.hasFocus = false
	r.focus = Handle{}
}

// Focus returns the current focus handle and whether the slot is occupied.
func (r *Router) Focus() (Handle, bool) {
	return r.focus, r.hasFocus
}

// Submit enqueues an event for the Router to process. It is safe to call
// from a signal-handling goroutine; Submit never blocks the caller for long
// since the channel is buffered, matching spec.md §5's requirement that
// signal-handler effects be cheap and safe.
//
// Submit also wakes anyone blocked in Notifier.Wait. A policy loop parked
// there is waiting to re-check queue state; without this it would not learn
// a new event is queued until some unrelated Broadcast happened to occur,
// since Drain only runs apply's Broadcast once the event is processed, and
// nothing processes it while the loop is asleep.
func (r *Router) Submit(e Event) {
	r.events <- e
	r.notifier.Broadcast()
}

// Drain processes every event currently queued, without blocking. Policy
// loops call this at each yield point (spec.md §5).
func (r *Router) Drain() {
	for {
		select {
		case e := <-r.events:
			r.apply(e)
		default:
			return
		}
	}
}

// apply mutates queue/focus-slot state for a single event. This is the
// Go-idiomatic replacement for the source's sigchld_handler/
// sigUsr1_handler/sigUsr2_handler (original_source/scheduler/scheduler_io.c).
func (r *Router) apply(e Event) {
	switch e.Kind {
	case ChildExited:
		r.applyChildExited(e)
	case EnterIO:
		r.applyEnterIO(e)
	case LeaveIO:
		r.applyLeaveIO(e)
	}
}

func (r *Router) applyChildExited(e Event) {
	h, ok := r.focus, r.hasFocus
	if !ok {
		logger.Warnf("ChildExited for %d with no focus descriptor", e.ChildID)
		return
	}
	d, ok := r.store.Get(h)
	if !ok || d.ChildID != e.ChildID {
		logger.Warnf("ChildExited id %d does not match focus descriptor", e.ChildID)
		return
	}

	d.FinishTime = r.clock.Now()
	d.Status = Exited
	r.ClearFocus()
	r.notifier.Broadcast()
}

func (r *Router) applyEnterIO(_ Event) {
	h, ok := r.focus, r.hasFocus
	if !ok {
		logger.Warnf("EnterIO with no focus descriptor")
		return
	}
	d, ok := r.store.Get(h)
	if !ok {
		logger.Warnf("EnterIO focus handle missing from store")
		return
	}

	d.Status = BlockedOnIO
	d.Location = InIO
	r.io.Enqueue(h)
	r.ClearFocus()
	r.notifier.Broadcast()
}

func (r *Router) applyLeaveIO(e Event) {
	h, ok := r.io.FindByChildID(r.store, e.ChildID)
	if !ok {
		// Per spec.md §9 Open Questions, an unknown LeaveIO identifier is
		// logged and ignored rather than fatal.
		logger.Warnf("LeaveIO for unknown child id %d", e.ChildID)
		return
	}
	r.io.Remove(h)

	d, _ := r.store.Get(h)
	d.Status = Stopped
	d.Location = InReady
	r.ready.Enqueue(h)
	r.notifier.Broadcast()
}
