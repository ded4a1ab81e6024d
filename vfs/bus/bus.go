// Package bus models the one contract this VFS core needs from the
// inter-task message bus: sending a typed message to a registered task's
// queue and learning whether it was accepted, dropped for being full, or
// failed outright (spec §1: "the inter-task message bus is out of scope;
// only its send-status contract is consumed").
package bus

import (
	"sync"

	"github.com/kestrel-os/vfscore/vfs/txn"
)

// SendStatus is what Bus.Send reports.
type SendStatus int

const (
	SendSuccessful SendStatus = iota
	// SendQueueFull means the destination task's queue had no room; the
	// caller (the user-task delegate) reports this up as its operation's
	// Busy status (spec §4.3.3).
	SendQueueFull
	// SendFailed means no task is registered under the given id at all.
	SendFailed
)

// Message is one request forwarded to a registered task: which
// transaction it belongs to, which delegate operation it names, and an
// opaque payload the receiving task knows how to interpret (e.g. a
// vfs.Contextual[usertask.DiscoveryRequest] carrying the request's
// parameters).
type Message struct {
	TxnID   txn.ID
	Op      string
	Payload any
}

// Bus is a fixed-capacity mailbox per registered task id, grounded on
// original_source/.../fs_delegate_tasked.hpp's bounded message queue per
// user task.
type Bus struct {
	mu     sync.Mutex
	queues map[uint64]chan Message
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{queues: make(map[uint64]chan Message)}
}

// Register creates (or replaces) taskID's inbox with the given capacity
// and returns the receiving end for the task to range over.
func (b *Bus) Register(taskID uint64, capacity int) <-chan Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Message, capacity)
	b.queues[taskID] = ch
	return ch
}

// Unregister removes taskID's inbox, matching a delegate task process
// exiting.
func (b *Bus) Unregister(taskID uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.queues, taskID)
}

// Send enqueues msg onto taskID's inbox without blocking.
func (b *Bus) Send(taskID uint64, msg Message) SendStatus {
	b.mu.Lock()
	ch, ok := b.queues[taskID]
	b.mu.Unlock()
	if !ok {
		return SendFailed
	}
	select {
	case ch <- msg:
		return SendSuccessful
	default:
		return SendQueueFull
	}
}
