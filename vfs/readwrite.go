package vfs

import (
	"github.com/kestrel-os/vfscore/vfs/fdtable"
	"github.com/kestrel-os/vfscore/vfs/handler"
	"github.com/kestrel-os/vfscore/vfs/sched"
	"github.com/kestrel-os/vfscore/vfs/txn"
)

// ReadHandler drives a delegate's read operation, grounded on
// original_source/.../fs_transaction_handler_read.cpp. Unlike the
// original, the buffer is an ordinary Go []byte rather than a raw pointer
// bound through Contextual — vfs.go passes the caller's slice straight
// through, and only a delegate that forwards it to another task (the
// user-task delegate) wraps it in a Contextual.
type ReadHandler struct {
	node *Node
	fd   *fdtable.Descriptor
	buf  []byte

	onDone   func(res ReadResult)
	repeatID txn.ID
}

// NewReadHandler creates a handler that reads into buf.
func NewReadHandler(node *Node, fd *fdtable.Descriptor, buf []byte, onDone func(res ReadResult)) *ReadHandler {
	return &ReadHandler{node: node, fd: fd, buf: buf, onDone: onDone}
}

func (h *ReadHandler) PrepareRepeat(id txn.ID) { h.repeatID = id }
func (h *ReadHandler) WantsRepeat() bool       { return h.repeatID != txn.NoRepeat }

func (h *ReadHandler) Start(task *sched.Task) handler.StartResult {
	delegate := h.node.Delegate()
	if delegate == nil {
		return handler.StartResult{Status: handler.StartFailed}
	}
	id := delegate.RequestRead(task, h.node, h.fd, h.buf, h.repeatID)
	h.repeatID = txn.NoRepeat
	return handler.StartResult{Status: handler.StartWithWaiter, Transaction: id}
}

func (h *ReadHandler) Finish(task *sched.Task, id txn.ID) handler.FinishResult {
	delegate := h.node.Delegate()
	var res ReadResult
	if delegate != nil {
		res = delegate.FinishRead(task, id)
	} else {
		res = ReadResult{Status: ReadError}
	}
	if h.onDone != nil {
		h.onDone(res)
	}
	return handler.FinishResult{Outcome: handler.Done}
}

// WriteHandler drives a delegate's write operation, grounded on
// original_source/.../fs_transaction_handler_write.cpp.
type WriteHandler struct {
	node *Node
	fd   *fdtable.Descriptor
	buf  []byte

	onDone   func(res WriteResult)
	repeatID txn.ID
}

// NewWriteHandler creates a handler that writes buf.
func NewWriteHandler(node *Node, fd *fdtable.Descriptor, buf []byte, onDone func(res WriteResult)) *WriteHandler {
	return &WriteHandler{node: node, fd: fd, buf: buf, onDone: onDone}
}

func (h *WriteHandler) PrepareRepeat(id txn.ID) { h.repeatID = id }
func (h *WriteHandler) WantsRepeat() bool       { return h.repeatID != txn.NoRepeat }

func (h *WriteHandler) Start(task *sched.Task) handler.StartResult {
	delegate := h.node.Delegate()
	if delegate == nil {
		return handler.StartResult{Status: handler.StartFailed}
	}
	id := delegate.RequestWrite(task, h.node, h.fd, h.buf, h.repeatID)
	h.repeatID = txn.NoRepeat
	return handler.StartResult{Status: handler.StartWithWaiter, Transaction: id}
}

func (h *WriteHandler) Finish(task *sched.Task, id txn.ID) handler.FinishResult {
	delegate := h.node.Delegate()
	var res WriteResult
	if delegate != nil {
		res = delegate.FinishWrite(task, id)
	} else {
		res = WriteResult{Status: WriteError}
	}
	if h.onDone != nil {
		h.onDone(res)
	}
	return handler.FinishResult{Outcome: handler.Done}
}
