package scheduler

import (
	"errors"
	"testing"
)

func TestQueueEnqueueDequeue(t *testing.T) {
	q := NewQueue()
	if !q.IsEmpty() {
		t.Fatalf("expected new queue to be empty")
	}

	store := NewStore()
	h1 := store.Add(NewDescriptor("a", "/bin/a", fixedNow()))
	h2 := store.Add(NewDescriptor("b", "/bin/b", fixedNow()))

	q.Enqueue(h1)
	q.Enqueue(h2)
	if q.Len() != 2 {
		t.Fatalf("expected len 2, got %d", q.Len())
	}

	got, err := q.Dequeue()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != h1 {
		t.Fatalf("expected FIFO order: first dequeue should be h1")
	}

	got, err = q.Dequeue()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != h2 {
		t.Fatalf("expected FIFO order: second dequeue should be h2")
	}

	if !q.IsEmpty() {
		t.Fatalf("expected queue to be empty after draining")
	}
}

func TestQueueDequeueEmpty(t *testing.T) {
	q := NewQueue()
	if _, err := q.Dequeue(); !errors.Is(err, ErrEmptyQueue) {
		t.Fatalf("expected ErrEmptyQueue, got %v", err)
	}
}

func TestQueueFindByChildID(t *testing.T) {
	store := NewStore()
	d1 := NewDescriptor("a", "/bin/a", fixedNow())
	d1.ChildID = 111
	d2 := NewDescriptor("b", "/bin/b", fixedNow())
	d2.ChildID = 222

	h1 := store.Add(d1)
	h2 := store.Add(d2)

	q := NewQueue()
	q.Enqueue(h1)
	q.Enqueue(h2)

	got, ok := q.FindByChildID(store, 222)
	if !ok {
		t.Fatalf("expected to find child id 222")
	}
	if got != h2 {
		t.Fatalf("expected h2, got different handle")
	}

	if _, ok := q.FindByChildID(store, 333); ok {
		t.Fatalf("expected not to find unknown child id")
	}
}

func TestQueueRemove(t *testing.T) {
	store := NewStore()
	h1 := store.Add(NewDescriptor("a", "/bin/a", fixedNow()))
	h2 := store.Add(NewDescriptor("b", "/bin/b", fixedNow()))
	h3 := store.Add(NewDescriptor("c", "/bin/c", fixedNow()))

	q := NewQueue()
	q.Enqueue(h1)
	q.Enqueue(h2)
	q.Enqueue(h3)

	if !q.Remove(h2) {
		t.Fatalf("expected to remove h2")
	}
	if q.Len() != 2 {
		t.Fatalf("expected len 2 after removal, got %d", q.Len())
	}

	got, _ := q.Dequeue()
	if got != h1 {
		t.Fatalf("expected remaining order to start with h1")
	}
	got, _ = q.Dequeue()
	if got != h3 {
		t.Fatalf("expected remaining order to end with h3")
	}

	if q.Remove(h2) {
		t.Fatalf("expected second removal of h2 to fail")
	}
}
