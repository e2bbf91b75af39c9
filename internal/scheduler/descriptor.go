package scheduler

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultRemainingBudget is the CPU time, in milliseconds, a descriptor is
// owed under Round-Robin before it is force-terminated (spec.md §3).
const DefaultRemainingBudget = 5000

// Status is a Process Descriptor's lifecycle state (spec.md §3).
type Status int

const (
	// New indicates the descriptor has never been spawned.
	New Status = iota
	// Running indicates a live child process is under the scheduler's
	// ownership.
	Running
	// Stopped indicates the child has been suspended and may be resumed.
	Stopped
	// BlockedOnIO indicates the workload requested I/O and is waiting in the
	// I/O queue.
	BlockedOnIO
	// Exited is terminal.
	Exited
)

func (s Status) String() string {
	switch s {
	case New:
		return "NEW"
	case Running:
		return "RUNNING"
	case Stopped:
		return "STOPPED"
	case BlockedOnIO:
		return "BLOCKED_ON_IO"
	case Exited:
		return "EXITED"
	default:
		return "UNKNOWN"
	}
}

// Location tags where a descriptor currently lives: at most one of the
// ready queue, the I/O queue, or the focus slot, per spec.md §3's
// ownership invariant. Replaces the original C source's "pointer in both a
// queue and a raw global" idiom per spec.md §9 Design Notes.
type Location int

const (
	// Nowhere indicates the descriptor has not yet been enqueued, or has
	// exited and been reaped by the reporter.
	Nowhere Location = iota
	InReady
	InIO
	InFocus
)

func (l Location) String() string {
	switch l {
	case InReady:
		return "ready"
	case InIO:
		return "io"
	case InFocus:
		return "focus"
	default:
		return "nowhere"
	}
}

// unsetChildID is the sentinel ChildID value before first spawn.
const unsetChildID = -1

// Handle is a stable identifier for a Descriptor held in a Store. Handles,
// not raw pointers, are what queues and the focus slot hold, per spec.md
// §9's "stable descriptor identifiers... plus where-is bookkeeping"
// guidance.
type Handle struct {
	id uuid.UUID
}

// Descriptor is the scheduler's bookkeeping record for one workload
// (spec.md §3).
type Descriptor struct {
	ExecutableName string
	Route          string
	ChildID        int
	Status         Status
	EntryTime      time.Time
	FinishTime     time.Time
	RemainingBudget int
	ExitCode        int
	Killed          bool
	Location        Location
}

// NewDescriptor creates a Descriptor for a workload first seen at entryTime.
func NewDescriptor(executableName, route string, entryTime time.Time) *Descriptor {
	return &Descriptor{
		ExecutableName:  executableName,
		Route:           route,
		ChildID:         unsetChildID,
		Status:          New,
		EntryTime:       entryTime,
		RemainingBudget: DefaultRemainingBudget,
	}
}

// Store owns Descriptor records, addressed by Handle. A descriptor is
// exclusively owned by whichever queue (or the focus slot) currently holds
// its handle; the Store itself only arbitrates lookup and lifetime
// (spec.md §3 "Ownership and lifecycle").
type Store struct {
	mutex       sync.Mutex
	descriptors map[Handle]*Descriptor
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{descriptors: make(map[Handle]*Descriptor)}
}

// Add allocates a fresh Handle for d and records it in the Store.
func (s *Store) Add(d *Descriptor) Handle {
	h := Handle{id: uuid.New()}
	s.mutex.Lock()
	s.descriptors[h] = d
	s.mutex.Unlock()
	return h
}

// Get retrieves the Descriptor for h. ok is false if h is unknown (e.g. it
// has already been destroyed by the reporter).
func (s *Store) Get(h Handle) (*Descriptor, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	d, ok := s.descriptors[h]
	return d, ok
}

// Delete destroys the Descriptor record for h. Per spec.md §3, this must
// only be called once a descriptor's status is Exited and the reporter has
// consumed it.
func (s *Store) Delete(h Handle) {
	s.mutex.Lock()
	delete(s.descriptors, h)
	s.mutex.Unlock()
}
