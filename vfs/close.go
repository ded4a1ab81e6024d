package vfs

import (
	"github.com/kestrel-os/vfscore/vfs/fdtable"
	"github.com/kestrel-os/vfscore/vfs/handler"
	"github.com/kestrel-os/vfscore/vfs/sched"
	"github.com/kestrel-os/vfscore/vfs/txn"
)

// CloseHandler drives a delegate's close operation. Grounded on
// original_source/.../fs_transaction_handler_close.cpp.
type CloseHandler struct {
	node *Node
	fd   *fdtable.Descriptor

	onDone   func(res CloseResult)
	repeatID txn.ID
}

// NewCloseHandler creates a handler that closes fd against node.
func NewCloseHandler(node *Node, fd *fdtable.Descriptor, onDone func(res CloseResult)) *CloseHandler {
	return &CloseHandler{node: node, fd: fd, onDone: onDone}
}

func (h *CloseHandler) PrepareRepeat(id txn.ID) { h.repeatID = id }
func (h *CloseHandler) WantsRepeat() bool       { return h.repeatID != txn.NoRepeat }

func (h *CloseHandler) Start(task *sched.Task) handler.StartResult {
	delegate := h.node.Delegate()
	if delegate == nil {
		return handler.StartResult{Status: handler.StartFailed}
	}
	id := delegate.RequestClose(task, h.node, h.fd, h.repeatID)
	h.repeatID = txn.NoRepeat
	return handler.StartResult{Status: handler.StartWithWaiter, Transaction: id}
}

func (h *CloseHandler) Finish(task *sched.Task, id txn.ID) handler.FinishResult {
	delegate := h.node.Delegate()
	var res CloseResult
	if delegate != nil {
		res = delegate.FinishClose(task, id)
	} else {
		res = CloseResult{Status: CloseError}
	}
	if h.onDone != nil {
		h.onDone(res)
	}
	return handler.FinishResult{Outcome: handler.Done}
}
