package vfs

import (
	"github.com/kestrel-os/vfscore/vfs/fdtable"
	"github.com/kestrel-os/vfscore/vfs/sched"
	"github.com/kestrel-os/vfscore/vfs/txn"
)

// Delegate implements the six request/finish operation pairs spec §4.3
// assigns to a node's backing driver. It is the Go interface equivalent of
// original_source/.../fs_delegate.hpp's abstract base class, per spec §9's
// "polymorphic delegates ... map onto a Go interface" note.
//
// Every Request* method allocates (or reuses, on repeat) a transaction id
// from the shared txn.Store and returns it; the corresponding Finish*
// method is called once that transaction's status reaches txn.Finished.
// A synchronous delegate (Ramdisk, Pipe) can set txn.Finished before
// Request even returns; an asynchronous one (the user-task delegate) sets
// it later from a reply arriving on another goroutine.
type Delegate interface {
	RequestDiscovery(task *sched.Task, parent *Node, childName string, repeat txn.ID) txn.ID
	FinishDiscovery(task *sched.Task, id txn.ID) DiscoveryResult

	RequestOpen(task *sched.Task, node *Node, filename string, flags fdtable.OpenFlags, repeat txn.ID) txn.ID
	FinishOpen(task *sched.Task, id txn.ID) OpenResult

	RequestClose(task *sched.Task, node *Node, fd *fdtable.Descriptor, repeat txn.ID) txn.ID
	FinishClose(task *sched.Task, id txn.ID) CloseResult

	RequestRead(task *sched.Task, node *Node, fd *fdtable.Descriptor, buf []byte, repeat txn.ID) txn.ID
	FinishRead(task *sched.Task, id txn.ID) ReadResult

	RequestWrite(task *sched.Task, node *Node, fd *fdtable.Descriptor, buf []byte, repeat txn.ID) txn.ID
	FinishWrite(task *sched.Task, id txn.ID) WriteResult

	RequestGetLength(task *sched.Task, node *Node, repeat txn.ID) txn.ID
	FinishGetLength(task *sched.Task, id txn.ID) GetLengthResult

	RequestDirectoryRefresh(task *sched.Task, node *Node, repeat txn.ID) txn.ID
	FinishDirectoryRefresh(task *sched.Task, id txn.ID) DirectoryRefreshResult
}

// DiscoveryStatus is the outcome of a discovery transaction.
type DiscoveryStatus int

const (
	DiscoverySuccessful DiscoveryStatus = iota
	DiscoveryNotFound
	DiscoveryError
	DiscoveryBusy
)

// DiscoveryResult is what FinishDiscovery reports.
type DiscoveryResult struct {
	Status DiscoveryStatus
	Node   *Node // valid when Status == DiscoverySuccessful
}

// OpenStatus is the outcome of an open transaction.
type OpenStatus int

const (
	OpenSuccessful OpenStatus = iota
	OpenNotFound
	OpenError
	// OpenBusy is reported when a user-task delegate's message queue was
	// full at dispatch time (spec §4.3.3, §8 scenario S7).
	OpenBusy
)

// OpenResult is what FinishOpen reports. Node is set only when the open
// call itself resolved (or created) the target node — e.g. an O_CREAT
// open of a previously-missing file, where discovery stopped at the
// parent and only the delegate's open step knows the new node's identity.
// A nil Node means the caller should keep using the node it already had.
type OpenResult struct {
	Status OpenStatus
	Node   *Node
}

// CloseStatus is the outcome of a close transaction.
type CloseStatus int

const (
	CloseSuccessful CloseStatus = iota
	CloseError
	CloseBusy
)

// CloseResult is what FinishClose reports.
type CloseResult struct {
	Status CloseStatus
}

// ReadStatus is the outcome of a read transaction.
type ReadStatus int

const (
	ReadSuccessful ReadStatus = iota
	ReadError
	// ReadAgain means a non-blocking read found nothing to read yet.
	ReadAgain
	ReadBusy
)

// ReadResult is what FinishRead reports.
type ReadResult struct {
	Status ReadStatus
	N      int64
}

// WriteStatus is the outcome of a write transaction.
type WriteStatus int

const (
	WriteSuccessful WriteStatus = iota
	WriteError
	// WriteAgain means a non-blocking write found no room yet.
	WriteAgain
	WriteBusy
)

// WriteResult is what FinishWrite reports.
type WriteResult struct {
	Status WriteStatus
	N      int64
}

// GetLengthStatus is the outcome of a get-length transaction.
type GetLengthStatus int

const (
	LengthSuccessful GetLengthStatus = iota
	LengthError
	LengthBusy
)

// GetLengthResult is what FinishGetLength reports.
type GetLengthResult struct {
	Status GetLengthStatus
	Length int64
}

// DirectoryRefreshStatus is the outcome of a directory-refresh
// transaction.
type DirectoryRefreshStatus int

const (
	DirectoryRefreshSuccessful DirectoryRefreshStatus = iota
	DirectoryRefreshError
	DirectoryRefreshBusy
)

// DirectoryRefreshResult is what FinishDirectoryRefresh reports.
type DirectoryRefreshResult struct {
	Status DirectoryRefreshStatus
}
