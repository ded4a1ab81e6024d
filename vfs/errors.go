package vfs

import "errors"

// Internal plumbing errors: these never cross a syscall boundary (§10.1 —
// user-facing outcomes flow through each operation's own Status enum
// instead). No function in this package returns them: the facade reports
// an unknown file descriptor or node through the call's InvalidFd status.
var (
	ErrUnknownProcess     = errors.New("vfs: unknown process")
	ErrUnknownFd          = errors.New("vfs: unknown file descriptor")
	ErrUnknownNode        = errors.New("vfs: unknown node id")
	ErrNotDirectory       = errors.New("vfs: node is not a directory")
	ErrNoDelegate         = errors.New("vfs: node has no resolvable delegate")
	ErrTransactionUnknown = errors.New("vfs: unknown transaction id")
)
