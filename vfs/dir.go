package vfs

import (
	"github.com/kestrel-os/vfscore/vfs/handler"
	"github.com/kestrel-os/vfscore/vfs/sched"
	"github.com/kestrel-os/vfscore/vfs/txn"
)

// ReadDirectoryStatus mirrors g_fs_read_directory_status.
type ReadDirectoryStatus int

const (
	ReadDirectorySuccessful ReadDirectoryStatus = iota
	ReadDirectoryEOD
	ReadDirectoryError
)

// DirectoryEntry is one entry returned by a directory read.
type DirectoryEntry struct {
	NodeID uint64
	Name   string
	Type   NodeType
}

// ReadDirectoryResult is what a directory read reports.
type ReadDirectoryResult struct {
	Status ReadDirectoryStatus
	Entry  DirectoryEntry
}

// DirectoryRefreshHandler asks a folder's delegate to populate virtual
// children for its backing entries, then chains into the ReadDirectoryHandler
// that triggered the refresh. Grounded on
// original_source/.../fs_transaction_handler_directory_refresh.cpp.
//
// Per spec §4.3.4 and the Open Question resolution recorded in DESIGN.md,
// refresh is addition-only: entries that vanished from the backing store
// are never pruned from folder's children.
type DirectoryRefreshHandler struct {
	folder *Node
	next   handler.Handler

	Status DirectoryRefreshStatus
}

// NewDirectoryRefreshHandler builds a refresh handler for folder that
// chains into next once the refresh completes.
func NewDirectoryRefreshHandler(folder *Node, next handler.Handler) *DirectoryRefreshHandler {
	return &DirectoryRefreshHandler{folder: folder, next: next}
}

func (h *DirectoryRefreshHandler) PrepareRepeat(txn.ID) {}
func (h *DirectoryRefreshHandler) WantsRepeat() bool    { return false }

func (h *DirectoryRefreshHandler) Start(task *sched.Task) handler.StartResult {
	delegate := h.folder.Delegate()
	if delegate == nil {
		return handler.StartResult{Status: handler.StartFailed}
	}
	id := delegate.RequestDirectoryRefresh(task, h.folder, txn.NoRepeat)
	return handler.StartResult{Status: handler.StartWithWaiter, Transaction: id}
}

func (h *DirectoryRefreshHandler) Finish(task *sched.Task, id txn.ID) handler.FinishResult {
	delegate := h.folder.Delegate()
	if delegate != nil {
		res := delegate.FinishDirectoryRefresh(task, id)
		h.Status = res.Status
		if res.Status == DirectoryRefreshSuccessful {
			// TODO: entries removed from the backing store since the last
			// refresh are never pruned here (addition-only, per spec).
			h.folder.ContentsValid = true
		}
	} else {
		h.Status = DirectoryRefreshError
	}

	if h.next != nil {
		return handler.FinishResult{Outcome: handler.Continue, Next: h.next}
	}
	return handler.FinishResult{Outcome: handler.Done}
}

// ReadDirectoryHandler reads the single entry at position once folder's
// contents are known valid (either already, or because a
// DirectoryRefreshHandler just ran). Grounded on
// fs_transaction_handler_read_directory.cpp.
type ReadDirectoryHandler struct {
	folder   *Node
	position int

	causingRefresh *DirectoryRefreshHandler
	onDone         func(res ReadDirectoryResult)
}

// NewReadDirectoryHandler builds a handler that reads folder's entry at
// position. causingRefresh, if non-nil, is consulted to short-circuit
// with an error if the refresh that preceded this read failed.
func NewReadDirectoryHandler(folder *Node, position int, causingRefresh *DirectoryRefreshHandler, onDone func(res ReadDirectoryResult)) *ReadDirectoryHandler {
	return &ReadDirectoryHandler{folder: folder, position: position, causingRefresh: causingRefresh, onDone: onDone}
}

func (h *ReadDirectoryHandler) PrepareRepeat(txn.ID) {}
func (h *ReadDirectoryHandler) WantsRepeat() bool    { return false }

func (h *ReadDirectoryHandler) Start(task *sched.Task) handler.StartResult {
	return handler.StartResult{Status: handler.StartImmediateFinish}
}

func (h *ReadDirectoryHandler) Finish(task *sched.Task, id txn.ID) handler.FinishResult {
	if h.causingRefresh != nil && h.causingRefresh.Status != DirectoryRefreshSuccessful {
		h.onDone(ReadDirectoryResult{Status: ReadDirectoryError})
		return handler.FinishResult{Outcome: handler.Done}
	}

	item := h.folder.ChildAt(h.position)
	if item == nil {
		h.onDone(ReadDirectoryResult{Status: ReadDirectoryEOD})
		return handler.FinishResult{Outcome: handler.Done}
	}

	h.onDone(ReadDirectoryResult{
		Status: ReadDirectorySuccessful,
		Entry:  DirectoryEntry{NodeID: item.ID, Name: item.Name, Type: item.Type},
	})
	return handler.FinishResult{Outcome: handler.Done}
}
