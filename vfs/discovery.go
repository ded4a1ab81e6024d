package vfs

import (
	"github.com/kestrel-os/vfscore/vfs/fdtable"
	"github.com/kestrel-os/vfscore/vfs/handler"
	"github.com/kestrel-os/vfscore/vfs/sched"
	"github.com/kestrel-os/vfscore/vfs/txn"
)

// DiscoveryHandler resolves an absolute path one undiscovered component at
// a time, asking each parent's delegate to manufacture the next node,
// until the whole path resolves or discovery fails. Grounded on
// original_source/.../fs_transaction_handler_discovery.cpp.
//
// Callers build one of the Discovery*Handler constructors below rather
// than this type directly; AfterFinish plays the role of the original's
// pure-virtual after_finish_transaction, called once the whole path is
// resolved (or failed) to translate the discovery outcome into a
// syscall-specific result.
type DiscoveryHandler struct {
	graph          *Graph
	followSymlinks bool

	AbsolutePath string
	Status       DiscoveryStatus
	Node         *Node
	LastParent   *Node

	allDiscovered  bool
	repeatID       txn.ID
	activeDelegate Delegate
	lastRequested  string

	// AfterFinish runs once allDiscovered is true; it returns the final
	// outcome for the whole chained operation (typically Done, or
	// Continue with e.g. an OpenHandler).
	AfterFinish func(task *sched.Task) handler.FinishResult
}

// NewDiscoveryHandler creates a handler that will resolve absolutePath.
func NewDiscoveryHandler(graph *Graph, absolutePath string, followSymlinks bool) *DiscoveryHandler {
	return &DiscoveryHandler{graph: graph, AbsolutePath: absolutePath, followSymlinks: followSymlinks}
}

func (h *DiscoveryHandler) PrepareRepeat(id txn.ID) { h.repeatID = id }
func (h *DiscoveryHandler) WantsRepeat() bool       { return h.repeatID != txn.NoRepeat }

// Start implements handler.Handler.
func (h *DiscoveryHandler) Start(task *sched.Task) handler.StartResult {
	parent, child, lastName := h.graph.FindExisting(h.AbsolutePath)
	if child != nil {
		h.Status = DiscoverySuccessful
		h.Node = child
		h.allDiscovered = true
		return handler.StartResult{Status: handler.StartImmediateFinish}
	}

	delegate := parent.Delegate()
	if delegate == nil {
		h.Status = DiscoveryError
		h.allDiscovered = true
		return handler.StartResult{Status: handler.StartFailed}
	}

	h.LastParent = parent
	h.activeDelegate = delegate
	h.lastRequested = lastName
	id := delegate.RequestDiscovery(task, parent, lastName, h.repeatID)
	h.repeatID = txn.NoRepeat
	return handler.StartResult{Status: handler.StartWithWaiter, Transaction: id}
}

// Finish implements handler.Handler. It never re-issues a delegate request
// itself — that would duplicate the Start the engine is about to make
// anyway (spec §4.4's single Start/Finish step per transaction) — it only
// records the just-finished component's outcome and, if more of the path
// remains to discover, asks to be started again via Continue.
func (h *DiscoveryHandler) Finish(task *sched.Task, id txn.ID) handler.FinishResult {
	if !h.allDiscovered {
		if h.activeDelegate != nil {
			result := h.activeDelegate.FinishDiscovery(task, id)
			h.Status = result.Status
			h.Node = result.Node
		}

		if h.Status == DiscoverySuccessful {
			return handler.FinishResult{Outcome: handler.Continue, Next: h}
		}
		h.allDiscovered = true
	}

	if h.AfterFinish != nil {
		return h.AfterFinish(task)
	}
	return handler.FinishResult{Outcome: handler.Done}
}

// NewDiscoverySetCwdHandler builds a DiscoveryHandler whose AfterFinish
// sets the process's working directory, grounded on
// fs_transaction_handler_discovery_set_cwd.hpp.
func NewDiscoverySetCwdHandler(graph *Graph, absolutePath string, onResolved func(node *Node, status DiscoveryStatus)) *DiscoveryHandler {
	h := NewDiscoveryHandler(graph, absolutePath, true)
	h.AfterFinish = func(task *sched.Task) handler.FinishResult {
		onResolved(h.Node, h.Status)
		return handler.FinishResult{Outcome: handler.Done}
	}
	return h
}

// NewDiscoveryOpenDirectoryHandler builds a DiscoveryHandler whose
// AfterFinish reports the resolved node for an opendir() call, grounded on
// fs_transaction_handler_discovery_open_directory.hpp.
func NewDiscoveryOpenDirectoryHandler(graph *Graph, absolutePath string, onResolved func(node *Node, status DiscoveryStatus)) *DiscoveryHandler {
	h := NewDiscoveryHandler(graph, absolutePath, true)
	h.AfterFinish = func(task *sched.Task) handler.FinishResult {
		onResolved(h.Node, h.Status)
		return handler.FinishResult{Outcome: handler.Done}
	}
	return h
}

// NewDiscoveryOpenHandler builds a DiscoveryHandler that chains into an
// OpenHandler once the path resolves (or the parent it stopped at, for
// O_CREAT-style opens of a not-yet-existing file), grounded on
// fs_transaction_handler_discovery_open.hpp.
func NewDiscoveryOpenHandler(graph *Graph, absolutePath string, flags fdtable.OpenFlags, onOpenFinished func(node *Node, res OpenResult)) *DiscoveryHandler {
	h := NewDiscoveryHandler(graph, absolutePath, true)
	h.AfterFinish = func(task *sched.Task) handler.FinishResult {
		switch h.Status {
		case DiscoverySuccessful, DiscoveryNotFound:
			var node *Node
			if h.Status == DiscoveryNotFound {
				node = h.LastParent
			} else {
				node = h.Node
			}
			open := NewOpenHandler(node, h.Status, h.lastRequested, flags, onOpenFinished)
			return handler.FinishResult{Outcome: handler.Continue, Next: open}
		default:
			onOpenFinished(nil, OpenResult{Status: OpenError})
			return handler.FinishResult{Outcome: handler.Done}
		}
	}
	return h
}

// NewDiscoveryGetLengthHandler builds a DiscoveryHandler that chains into
// a GetLengthDefaultHandler once the path resolves, grounded on
// fs_transaction_handler_discovery_get_length.hpp.
func NewDiscoveryGetLengthHandler(graph *Graph, absolutePath string, onLength func(res GetLengthResult)) *DiscoveryHandler {
	h := NewDiscoveryHandler(graph, absolutePath, true)
	h.AfterFinish = func(task *sched.Task) handler.FinishResult {
		if h.Status != DiscoverySuccessful {
			onLength(GetLengthResult{Status: LengthError, Length: -1})
			return handler.FinishResult{Outcome: handler.Done}
		}
		length := NewGetLengthDefaultHandler(h.Node, onLength)
		return handler.FinishResult{Outcome: handler.Continue, Next: length}
	}
	return h
}
