// Package txn implements the VFS transaction store (spec L5): a
// process-wide table mapping a monotone transaction id to its status.
package txn

import "sync"

// ID identifies one outstanding (or recently finished) delegate request.
// Ids are issued from a single monotone counter and are never reused.
type ID uint64

// NoRepeat is the sentinel passed to a delegate's Request* method when the
// call is a fresh request rather than a repeat of an earlier transaction.
// Store.Next never returns it, since the counter is pre-incremented.
const NoRepeat ID = 0

// Status is the lifecycle state of a transaction.
type Status int

const (
	// Waiting means the transaction was dispatched and the delegate has
	// not yet completed it.
	Waiting Status = iota
	// Repeat means a synchronous delegate could not make progress (e.g. a
	// pipe read against an empty buffer in blocking mode); the waiter
	// must restart the same handler, reusing this transaction's id.
	Repeat
	// Finished means the handler may now run finish_transaction.
	Finished
)

func (s Status) String() string {
	switch s {
	case Waiting:
		return "waiting"
	case Repeat:
		return "repeat"
	case Finished:
		return "finished"
	default:
		return "unknown"
	}
}

// Store is the transaction table described in spec §4.4. It is safe for
// concurrent use by multiple requesting tasks and by delegate completion
// callbacks running on other goroutines (mirroring a user-task delegate's
// reply arriving on a different kernel thread).
type Store struct {
	mu     sync.Mutex
	nextID ID
	status map[ID]Status
}

// NewStore creates an empty transaction store.
func NewStore() *Store {
	return &Store{
		status: make(map[ID]Status),
	}
}

// Next allocates a fresh transaction id. It does not register a status;
// callers call SetStatus once the initial status is known.
func (s *Store) Next() ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	return s.nextID
}

// SetStatus installs or overwrites the status of a transaction.
func (s *Store) SetStatus(id ID, status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status[id] = status
}

// GetStatus returns the current status of a transaction. A transaction id
// with no recorded status reports Waiting, which keeps callers from ever
// observing an undefined status (spec §8 invariant 3: "a subsequent
// get_status(t) is defined, never panics").
func (s *Store) GetStatus(id ID) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.status[id]
	if !ok {
		return Waiting
	}
	return st
}

// Remove deletes a transaction's status entry. Called by the waiter once a
// handler has observed Finished and run its finish step (or when a waiter
// is torn down by cancellation).
func (s *Store) Remove(id ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.status, id)
}
