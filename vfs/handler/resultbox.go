package handler

import (
	"sync"

	"github.com/kestrel-os/vfscore/vfs/txn"
)

// ResultBox is the small piece every delegate needs regardless of which
// operation it implements: spec §4.3's "finish_* methods ... copy results
// from the delegate-private side into the handler struct" requires
// somewhere to stash a transaction's result between Request and Finish.
// A synchronous delegate fills it in immediately; an asynchronous one
// fills it in from whatever goroutine its reply arrives on.
type ResultBox[T any] struct {
	mu sync.Mutex
	m  map[txn.ID]T
}

// NewResultBox creates an empty box.
func NewResultBox[T any]() *ResultBox[T] {
	return &ResultBox[T]{m: make(map[txn.ID]T)}
}

// Put stores v under id, overwriting any previous value.
func (b *ResultBox[T]) Put(id txn.ID, v T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.m[id] = v
}

// Take removes and returns the value stored under id, or zero if none was
// ever put there (e.g. a handler cancelled before the delegate replied).
func (b *ResultBox[T]) Take(id txn.ID) (v T, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok = b.m[id]
	if ok {
		delete(b.m, id)
	}
	return v, ok
}
