// Package mount implements the /mount singleton's delegate (spec §4.3.4):
// its only real job is accepting new mountpoint registrations, attaching
// a caller-supplied delegate to each one.
package mount

import (
	"errors"

	"github.com/kestrel-os/vfscore/vfs"
	"github.com/kestrel-os/vfscore/vfs/fdtable"
	"github.com/kestrel-os/vfscore/vfs/handler"
	"github.com/kestrel-os/vfscore/vfs/sched"
	"github.com/kestrel-os/vfscore/vfs/txn"
)

// errNameTaken is returned by CreateDelegate when name already names a
// mountpoint.
var errNameTaken = errors.New("mount: name already registered")

// Factory builds the delegate a freshly registered mountpoint should use,
// given the registering task's id and the physical id it reported. Kept
// as an injected function rather than a direct dependency on
// vfs/delegate/usertask so this package never needs to import a sibling
// delegate package.
type Factory func(taskID uint64, physID int64) vfs.Delegate

// Delegate implements vfs.MountDelegate. Grounded on spec §4.3.4 directly
// (no original_source counterpart beyond filesystem.cpp's mountpoint
// creation helper); the singleton-under-/mount shape follows
// fuse/nodefs/fsconnector.go's Mount() (create a Node, attach a delegate,
// attach to parent).
type Delegate struct {
	graph   *vfs.Graph
	node    *vfs.Node
	store   *txn.Store
	factory Factory

	discoveryResults *handler.ResultBox[vfs.DiscoveryResult]
}

// New creates the /mount delegate. node is the singleton /mount node this
// delegate will be attached to; factory builds the delegate each newly
// registered mountpoint gets.
func New(graph *vfs.Graph, node *vfs.Node, store *txn.Store, factory Factory) *Delegate {
	return &Delegate{
		graph:   graph,
		node:    node,
		store:   store,
		factory: factory,

		discoveryResults: handler.NewResultBox[vfs.DiscoveryResult](),
	}
}

func (d *Delegate) allocID(repeat txn.ID) txn.ID {
	if repeat != txn.NoRepeat {
		return repeat
	}
	return d.store.Next()
}

func (d *Delegate) finishedID(repeat txn.ID) txn.ID {
	id := d.allocID(repeat)
	d.store.SetStatus(id, txn.Finished)
	return id
}

// RequestDiscovery implements vfs.Delegate: every mountpoint is already a
// live child of /mount the moment CreateDelegate attaches it, so
// discovery is a plain lookup with no backing store to consult.
func (d *Delegate) RequestDiscovery(task *sched.Task, parent *vfs.Node, childName string, repeat txn.ID) txn.ID {
	id := d.allocID(repeat)
	if child := d.node.FindChild(childName); child != nil {
		d.discoveryResults.Put(id, vfs.DiscoveryResult{Status: vfs.DiscoverySuccessful, Node: child})
	} else {
		d.discoveryResults.Put(id, vfs.DiscoveryResult{Status: vfs.DiscoveryNotFound})
	}
	d.store.SetStatus(id, txn.Finished)
	return id
}

// FinishDiscovery implements vfs.Delegate.
func (d *Delegate) FinishDiscovery(task *sched.Task, id txn.ID) vfs.DiscoveryResult {
	res, _ := d.discoveryResults.Take(id)
	return res
}

// RequestOpen implements vfs.Delegate: /mount and its mountpoint entries
// are never opened as ordinary files, only traversed as directories.
func (d *Delegate) RequestOpen(task *sched.Task, node *vfs.Node, filename string, flags fdtable.OpenFlags, repeat txn.ID) txn.ID {
	return d.finishedID(repeat)
}

// FinishOpen implements vfs.Delegate.
func (d *Delegate) FinishOpen(task *sched.Task, id txn.ID) vfs.OpenResult {
	return vfs.OpenResult{Status: vfs.OpenError}
}

// RequestClose implements vfs.Delegate.
func (d *Delegate) RequestClose(task *sched.Task, node *vfs.Node, fd *fdtable.Descriptor, repeat txn.ID) txn.ID {
	return d.finishedID(repeat)
}

// FinishClose implements vfs.Delegate.
func (d *Delegate) FinishClose(task *sched.Task, id txn.ID) vfs.CloseResult {
	return vfs.CloseResult{Status: vfs.CloseSuccessful}
}

// RequestRead implements vfs.Delegate.
func (d *Delegate) RequestRead(task *sched.Task, node *vfs.Node, fd *fdtable.Descriptor, buf []byte, repeat txn.ID) txn.ID {
	return d.finishedID(repeat)
}

// FinishRead implements vfs.Delegate.
func (d *Delegate) FinishRead(task *sched.Task, id txn.ID) vfs.ReadResult {
	return vfs.ReadResult{Status: vfs.ReadError}
}

// RequestWrite implements vfs.Delegate.
func (d *Delegate) RequestWrite(task *sched.Task, node *vfs.Node, fd *fdtable.Descriptor, buf []byte, repeat txn.ID) txn.ID {
	return d.finishedID(repeat)
}

// FinishWrite implements vfs.Delegate.
func (d *Delegate) FinishWrite(task *sched.Task, id txn.ID) vfs.WriteResult {
	return vfs.WriteResult{Status: vfs.WriteError}
}

// RequestGetLength implements vfs.Delegate.
func (d *Delegate) RequestGetLength(task *sched.Task, node *vfs.Node, repeat txn.ID) txn.ID {
	return d.finishedID(repeat)
}

// FinishGetLength implements vfs.Delegate.
func (d *Delegate) FinishGetLength(task *sched.Task, id txn.ID) vfs.GetLengthResult {
	return vfs.GetLengthResult{Status: vfs.LengthError, Length: -1}
}

// RequestDirectoryRefresh implements vfs.Delegate: /mount's children are
// never lazily discovered, only ever attached directly by CreateDelegate,
// so refreshing is always a trivial success.
func (d *Delegate) RequestDirectoryRefresh(task *sched.Task, node *vfs.Node, repeat txn.ID) txn.ID {
	return d.finishedID(repeat)
}

// FinishDirectoryRefresh implements vfs.Delegate.
func (d *Delegate) FinishDirectoryRefresh(task *sched.Task, id txn.ID) vfs.DirectoryRefreshResult {
	return vfs.DirectoryRefreshResult{Status: vfs.DirectoryRefreshSuccessful}
}

// CreateDelegate implements vfs.MountDelegate.
func (d *Delegate) CreateDelegate(task *sched.Task, taskID uint64, name string, physID int64) (*vfs.Node, error) {
	if d.node.FindChild(name) != nil {
		return nil, errNameTaken
	}
	child := d.graph.CreateNode()
	child.Type = vfs.NodeMountpoint
	child.Name = name
	child.PhysID = physID
	child.SetDelegate(d.factory(taskID, physID))
	d.node.AddChild(child)
	return child, nil
}
