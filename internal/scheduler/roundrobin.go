package scheduler

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/tjper/procsched/internal/report"
)

// quantumTick is the granularity at which the RR quantum timer polls
// TryReap, matching the 1ms ticks original_source/scheduler/scheduler_io.c
// uses in its nanosleep-based busy wait.
const quantumTick = time.Millisecond

// keepAlivePoll bounds how long the RR loop waits for a LeaveIO event when
// the ready queue is empty but the I/O queue is not (spec.md §4.5 "Tie-break").
const keepAlivePoll = 50 * time.Millisecond

// RunRoundRobin runs the Round-Robin policy loop (spec.md §4.5): each
// descriptor at the head of the ready queue is spawned or resumed, granted
// quantum milliseconds of wall-clock time (polled at 1ms granularity),
// then either completes, is preempted into the I/O queue by an EnterIO
// event, or is suspended and re-enqueued (or killed, if its remaining
// budget is exhausted).
func (e *Engine) RunRoundRobin(ctx context.Context, quantum time.Duration) error {
	quantumMS := int(quantum.Milliseconds())

	for {
		e.Router.Drain()

		if e.Ready.IsEmpty() {
			if e.IO.IsEmpty() {
				return nil
			}
			waitCtx, cancel := context.WithTimeout(ctx, keepAlivePoll)
			err := e.Router.notifier.Wait(waitCtx)
			cancel()
			if err != nil && ctx.Err() != nil {
				return ctx.Err()
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

		if d.ChildID == unsetChildID {
			if err := e.Controller.Spawn(d); err != nil {
				logger.Errorf("spawn %s: %s", d.ExecutableName, err)
				e.Router.ClearFocus()
				continue
			}
			fmt.Fprint(os.Stdout, report.Started(d.ExecutableName, d.ChildID))
		} else {
			if err := e.Controller.Resume(d); err != nil {
				return err
			}
			fmt.Fprint(os.Stdout, report.Resuming(d.ExecutableName, d.ChildID))
		}

		finished, err := e.runQuantum(ctx, d, quantum)
		if err != nil {
			return err
		}
		if finished {
			e.complete(h, d)
			continue
		}

		// EnterIO moved this descriptor to the I/O queue during the quantum;
		// the driver proceeds to the next ready descriptor without
		// suspending it itself (spec.md §4.5 outcome 3).
		if _, has := e.Router.Focus(); !has {
			continue
		}

		e.preempt(h, d, quantumMS)
	}
}

// runQuantum grants d up to quantum of wall-clock time, polling TryReap at
// quantumTick granularity. It returns finished=true if d exited naturally
// during the quantum.
func (e *Engine) runQuantum(ctx context.Context, d *Descriptor, quantum time.Duration) (finished bool, err error) {
	start := e.Clock.Now()

	for {
		e.Router.Drain()
		if _, has := e.Router.Focus(); !has {
			return false, nil
		}

		ok, err := e.Controller.TryReap(d)
		if err != nil {
			return false, err
		}
		if ok {
			e.Router.Submit(Event{Kind: ChildExited, ChildID: d.ChildID})
			e.Router.Drain()
			return true, nil
		}

		if e.Clock.Since(start) >= quantum {
			return false, nil
		}

		e.Clock.Sleep(quantumTick, ctx.Done())
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
	}
}

// preempt suspends d at the end of an unfinished quantum, decrements its
// remaining budget, and either re-enqueues it at the rear of the ready
// queue or force-terminates it if its budget is exhausted (spec.md §4.5
// outcome 2).
func (e *Engine) preempt(h Handle, d *Descriptor, quantumMS int) {
	if err := e.Controller.Suspend(d); err != nil {
		logger.Errorf("suspend %s: %s", d.ExecutableName, err)
	}
	fmt.Fprint(os.Stdout, report.Pausing(d.ExecutableName, d.ChildID))
	e.Router.ClearFocus()

	d.RemainingBudget -= quantumMS
	if d.RemainingBudget > 0 {
		d.Location = InReady
		e.Ready.Enqueue(h)
		return
	}

	if err := e.Controller.Kill(d); err != nil {
		logger.Errorf("kill budget-exhausted %s: %s", d.ExecutableName, err)
	}
	d.FinishTime = e.Clock.Now()
	e.complete(h, d)
}
