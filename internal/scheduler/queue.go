package scheduler

import "errors"

// ErrEmptyQueue indicates Dequeue was called on a Queue with no elements.
// The spec treats this as a programming-error invariant violation rather
// than a recoverable runtime condition.
var ErrEmptyQueue = errors.New("queue: empty")

// Queue is a FIFO of descriptor handles. Two independent instances exist in
// a running scheduler: the ready queue and the I/O queue. Ordering is strict
// insertion order; nothing in the scheduler touches a Queue concurrently
// with itself, so no internal locking is required (see spec.md §5).
type Queue struct {
	handles []Handle
}

// NewQueue creates an empty Queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Enqueue appends h to the rear of the queue.
func (q *Queue) Enqueue(h Handle) {
	q.handles = append(q.handles, h)
}

// Dequeue removes and returns the handle at the front of the queue. It
// returns ErrEmptyQueue if the queue has no elements.
func (q *Queue) Dequeue() (Handle, error) {
	if len(q.handles) == 0 {
		return Handle{}, ErrEmptyQueue
	}
	h := q.handles[0]
	q.handles = q.handles[1:]
	return h, nil
}

// IsEmpty reports whether the queue has no elements.
func (q *Queue) IsEmpty() bool {
	return len(q.handles) == 0
}

// Len reports the number of elements currently queued.
func (q *Queue) Len() int {
	return len(q.handles)
}

// FindByChildID scans the queue front-to-rear for a handle whose descriptor
// has the given child (OS) id. It is used only by the LeaveIO event
// handler, per spec.md §4.1/§4.3.
func (q *Queue) FindByChildID(store *Store, childID int) (Handle, bool) {
	for _, h := range q.handles {
		d, ok := store.Get(h)
		if ok && d.ChildID == childID {
			return h, true
		}
	}
	return Handle{}, false
}

// Remove deletes the first occurrence of h from the queue, preserving the
// order of the remaining elements. It is used by the LeaveIO event handler
// to pull a descriptor out of the I/O queue (spec.md §4.3), which need not
// be at the front.
func (q *Queue) Remove(h Handle) bool {
	for i, cur := range q.handles {
		if cur == h {
			q.handles = append(q.handles[:i], q.handles[i+1:]...)
			return true
		}
	}
	return false
}
