package vfs

import (
	"github.com/kestrel-os/vfscore/vfs/handler"
	"github.com/kestrel-os/vfscore/vfs/sched"
	"github.com/kestrel-os/vfscore/vfs/txn"
)

// getLengthHandler is the shared base of GetLengthDefaultHandler and
// SeekHandler: both request a node's length from its delegate and then
// each does its own afterwork with the result, matching
// original_source/.../fs_transaction_handler_get_length.cpp +
// get_length_default.hpp / get_length_seek.hpp.
type getLengthHandler struct {
	node   *Node
	Status GetLengthStatus
	Length int64

	afterwork func(task *sched.Task) handler.FinishResult
}

func (h *getLengthHandler) PrepareRepeat(txn.ID) {}
func (h *getLengthHandler) WantsRepeat() bool    { return false }

func (h *getLengthHandler) Start(task *sched.Task) handler.StartResult {
	delegate := h.node.Delegate()
	if delegate == nil {
		return handler.StartResult{Status: handler.StartFailed}
	}
	id := delegate.RequestGetLength(task, h.node, txn.NoRepeat)
	return handler.StartResult{Status: handler.StartWithWaiter, Transaction: id}
}

func (h *getLengthHandler) Finish(task *sched.Task, id txn.ID) handler.FinishResult {
	delegate := h.node.Delegate()
	if delegate != nil {
		res := delegate.FinishGetLength(task, id)
		h.Status = res.Status
		h.Length = res.Length
	} else {
		h.Status = LengthError
	}
	if h.afterwork != nil {
		return h.afterwork(task)
	}
	return handler.FinishResult{Outcome: handler.Done}
}

// NewGetLengthDefaultHandler builds a handler for a plain length() query,
// grounded on fs_transaction_handler_get_length_default.hpp.
func NewGetLengthDefaultHandler(node *Node, onDone func(res GetLengthResult)) handler.Handler {
	h := &getLengthHandler{node: node}
	h.afterwork = func(task *sched.Task) handler.FinishResult {
		if h.Status == LengthSuccessful {
			onDone(GetLengthResult{Status: LengthSuccessful, Length: h.Length})
		} else {
			onDone(GetLengthResult{Status: h.Status, Length: -1})
		}
		return handler.FinishResult{Outcome: handler.Done}
	}
	return h
}

// SeekMode selects how Seek's amount is interpreted, mirroring
// G_FS_SEEK_SET/CUR/END.
type SeekMode int

const (
	SeekSet SeekMode = iota
	SeekCur
	SeekEnd
)

// SeekResult is the outcome of a seek (a get-length query followed by
// clamping the descriptor's offset into range).
type SeekResult struct {
	Status GetLengthStatus
	Offset int64
}

// NewSeekHandler builds a handler that resolves node's length and then
// computes a new descriptor offset from mode/amount, clamped to
// [0, length], matching fs_transaction_handler_get_length_seek.hpp
// exactly (including its "clamp past EOF down to EOF" behavior).
func NewSeekHandler(node *Node, currentOffset int64, mode SeekMode, amount int64, onDone func(res SeekResult)) handler.Handler {
	h := &getLengthHandler{node: node}
	h.afterwork = func(task *sched.Task) handler.FinishResult {
		if h.Status != LengthSuccessful {
			onDone(SeekResult{Status: h.Status, Offset: -1})
			return handler.FinishResult{Outcome: handler.Done}
		}

		offset := currentOffset
		switch mode {
		case SeekCur:
			offset += amount
		case SeekSet:
			offset = amount
		case SeekEnd:
			offset = h.Length - amount
		}
		if offset > h.Length {
			offset = h.Length
		}
		if offset < 0 {
			offset = 0
		}
		onDone(SeekResult{Status: LengthSuccessful, Offset: offset})
		return handler.FinishResult{Outcome: handler.Done}
	}
	return h
}
