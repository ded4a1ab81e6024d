package vfs

import (
	"github.com/kestrel-os/vfscore/vfs/fdtable"
	"github.com/kestrel-os/vfscore/vfs/handler"
	"github.com/kestrel-os/vfscore/vfs/sched"
	"github.com/kestrel-os/vfscore/vfs/txn"
)

// OpenHandler drives a delegate's open operation once discovery has
// resolved (or failed to resolve) the target path. Grounded on
// original_source/.../fs_transaction_handler_open.cpp; the file-descriptor
// mapping step that the original does inline in finish_transaction is done
// by the onDone callback the caller (vfs.go) supplies instead, since that
// caller owns the fdtable.Manager.
type OpenHandler struct {
	node           *Node
	discoveryState DiscoveryStatus
	createName     string
	flags          fdtable.OpenFlags

	Status OpenResult
	onDone func(node *Node, res OpenResult)

	repeatID txn.ID
}

// NewOpenHandler creates a handler that opens node. discoveryState
// distinguishes "node already existed" (DiscoverySuccessful) from
// "only its parent existed" (DiscoveryNotFound, e.g. an O_CREAT open of a
// missing file) the way the original threads discovery_status through;
// createName is the leaf component discovery failed to find, needed by the
// delegate to name the entry it creates in the DiscoveryNotFound case, and
// ignored otherwise. onDone also receives node so the caller can map a
// descriptor onto it without having to re-derive which node the handler
// resolved.
func NewOpenHandler(node *Node, discoveryState DiscoveryStatus, createName string, flags fdtable.OpenFlags, onDone func(node *Node, res OpenResult)) *OpenHandler {
	return &OpenHandler{node: node, discoveryState: discoveryState, createName: createName, flags: flags, onDone: onDone}
}

func (h *OpenHandler) PrepareRepeat(id txn.ID) { h.repeatID = id }
func (h *OpenHandler) WantsRepeat() bool       { return h.repeatID != txn.NoRepeat }

func (h *OpenHandler) Start(task *sched.Task) handler.StartResult {
	delegate := h.node.Delegate()
	if delegate == nil {
		return handler.StartResult{Status: handler.StartFailed}
	}
	filename := h.node.Name
	if h.discoveryState == DiscoveryNotFound {
		filename = h.createName
	}
	id := delegate.RequestOpen(task, h.node, filename, h.flags, h.repeatID)
	h.repeatID = txn.NoRepeat
	return handler.StartResult{Status: handler.StartWithWaiter, Transaction: id}
}

func (h *OpenHandler) Finish(task *sched.Task, id txn.ID) handler.FinishResult {
	delegate := h.node.Delegate()
	var res OpenResult
	if delegate != nil {
		res = delegate.FinishOpen(task, id)
	} else {
		res = OpenResult{Status: OpenError}
	}
	h.Status = res
	node := h.node
	if res.Node != nil {
		node = res.Node
	}
	if h.onDone != nil {
		h.onDone(node, res)
	}
	return handler.FinishResult{Outcome: handler.Done}
}
