package vfs

// SpaceID names an address space (a process's page directory, in the
// original). Buffers and transaction-storage pages that cross a delegate
// boundary are tagged with the space they belong to so a later access from
// the wrong space is caught instead of silently corrupting memory.
type SpaceID uint64

// Contextual wraps a value that is only meaningful while the current
// address space matches the one it was bound to, mirroring
// original_source's memory/contextual.hpp g_contextual<T>. Unlike the
// original it is not copy-assignable state carrying a mutable pointer;
// it is an immutable value, which is the idiomatic Go shape for "tagged
// value, panic on misuse".
type Contextual[T any] struct {
	value T
	space SpaceID
	bound bool
}

// NewContextual binds value to space: Get will panic if later called with
// a different space.
func NewContextual[T any](value T, space SpaceID) Contextual[T] {
	return Contextual[T]{value: value, space: space, bound: true}
}

// Unbound wraps a value with no owning address space; Get always
// succeeds, matching the original's default constructor (space == 0 means
// "no check").
func Unbound[T any](value T) Contextual[T] {
	return Contextual[T]{value: value}
}

// Get returns the wrapped value, panicking if current does not match the
// space it was bound to.
func (c Contextual[T]) Get(current SpaceID) T {
	if c.bound && current != c.space {
		panic("vfs: contextual value accessed from outside its owning address space")
	}
	return c.value
}

// Space reports the address space a bound Contextual belongs to, and
// whether it is bound at all.
func (c Contextual[T]) Space() (SpaceID, bool) {
	return c.space, c.bound
}
