// Package pipedelegate implements the delegate bound to anonymous pipe
// nodes (spec §4.3.2/§4.3.3): reads and writes against a fixed-capacity
// ring buffer, with blocking ends reported as txn.Repeat (driving the
// scheduler to retry) and non-blocking ends reported as Again.
package pipedelegate

import (
	"github.com/kestrel-os/vfscore/vfs"
	"github.com/kestrel-os/vfscore/vfs/fdtable"
	"github.com/kestrel-os/vfscore/vfs/handler"
	"github.com/kestrel-os/vfscore/vfs/pipe"
	"github.com/kestrel-os/vfscore/vfs/sched"
	"github.com/kestrel-os/vfscore/vfs/txn"
)

// Delegate is the pipe-node delegate, grounded on
// original_source/.../pipes.cpp's read/write handlers (same fixed-capacity
// ring, same blocking/non-blocking status split) layered over vfs/pipe,
// this repository's own port of that ring buffer.
type Delegate struct {
	pipes *pipe.Store
	store *txn.Store

	closeResults  *handler.ResultBox[vfs.CloseResult]
	readResults   *handler.ResultBox[vfs.ReadResult]
	writeResults  *handler.ResultBox[vfs.WriteResult]
	lengthResults *handler.ResultBox[vfs.GetLengthResult]
}

// New creates a pipe delegate over pipes, sharing store with the rest of
// the VFS instance it will be attached to.
func New(pipes *pipe.Store, store *txn.Store) *Delegate {
	return &Delegate{
		pipes: pipes,
		store: store,

		closeResults:  handler.NewResultBox[vfs.CloseResult](),
		readResults:   handler.NewResultBox[vfs.ReadResult](),
		writeResults:  handler.NewResultBox[vfs.WriteResult](),
		lengthResults: handler.NewResultBox[vfs.GetLengthResult](),
	}
}

func (d *Delegate) allocID(repeat txn.ID) txn.ID {
	if repeat != txn.NoRepeat {
		return repeat
	}
	return d.store.Next()
}

// RequestDiscovery implements vfs.Delegate. Pipe nodes are never reached
// by path lookup — they're created directly by vfs.VFS.Pipe and attached
// to a descriptor, never to a parent folder — so discovery through a pipe
// node always fails.
func (d *Delegate) RequestDiscovery(task *sched.Task, parent *vfs.Node, childName string, repeat txn.ID) txn.ID {
	id := d.allocID(repeat)
	d.store.SetStatus(id, txn.Finished)
	return id
}

// FinishDiscovery implements vfs.Delegate.
func (d *Delegate) FinishDiscovery(task *sched.Task, id txn.ID) vfs.DiscoveryResult {
	return vfs.DiscoveryResult{Status: vfs.DiscoveryError}
}

// RequestOpen implements vfs.Delegate. A pipe node is already materialized
// by the time anything opens it (vfs.VFS.Pipe maps descriptors onto it
// directly), so open is always trivially successful.
func (d *Delegate) RequestOpen(task *sched.Task, node *vfs.Node, filename string, flags fdtable.OpenFlags, repeat txn.ID) txn.ID {
	id := d.allocID(repeat)
	d.store.SetStatus(id, txn.Finished)
	return id
}

// FinishOpen implements vfs.Delegate.
func (d *Delegate) FinishOpen(task *sched.Task, id txn.ID) vfs.OpenResult {
	return vfs.OpenResult{Status: vfs.OpenSuccessful}
}

// RequestClose implements vfs.Delegate: drops this process's reference to
// the pipe, freeing its buffer once the last reference is gone.
func (d *Delegate) RequestClose(task *sched.Task, node *vfs.Node, fd *fdtable.Descriptor, repeat txn.ID) txn.ID {
	id := d.allocID(repeat)
	d.pipes.RemoveReference(pipe.ID(node.PhysID), task.ProcessID)
	d.closeResults.Put(id, vfs.CloseResult{Status: vfs.CloseSuccessful})
	d.store.SetStatus(id, txn.Finished)
	return id
}

// FinishClose implements vfs.Delegate.
func (d *Delegate) FinishClose(task *sched.Task, id txn.ID) vfs.CloseResult {
	res, _ := d.closeResults.Take(id)
	return res
}

// RequestRead implements vfs.Delegate. An empty blocking pipe reports
// txn.Repeat so the scheduler retries the same transaction id until data
// arrives or the waiting task is cancelled (spec §4.3.2); an empty
// non-blocking pipe finishes immediately with ReadAgain.
func (d *Delegate) RequestRead(task *sched.Task, node *vfs.Node, fd *fdtable.Descriptor, buf []byte, repeat txn.ID) txn.ID {
	id := d.allocID(repeat)
	p := d.pipes.Get(pipe.ID(node.PhysID))
	if p == nil {
		d.readResults.Put(id, vfs.ReadResult{Status: vfs.ReadError})
		d.store.SetStatus(id, txn.Finished)
		return id
	}

	if p.Readable() == 0 {
		if d.pipes.SoleReferenceRemaining(pipe.ID(node.PhysID)) {
			// The write end is gone and nothing is left buffered: report
			// end-of-file rather than blocking or repeating forever.
			d.readResults.Put(id, vfs.ReadResult{Status: vfs.ReadSuccessful, N: 0})
			d.store.SetStatus(id, txn.Finished)
			return id
		}
		if p.Blocking() {
			d.store.SetStatus(id, txn.Repeat)
			return id
		}
		d.readResults.Put(id, vfs.ReadResult{Status: vfs.ReadAgain})
		d.store.SetStatus(id, txn.Finished)
		return id
	}

	n := p.Read(buf)
	d.readResults.Put(id, vfs.ReadResult{Status: vfs.ReadSuccessful, N: int64(n)})
	d.store.SetStatus(id, txn.Finished)
	return id
}

// FinishRead implements vfs.Delegate.
func (d *Delegate) FinishRead(task *sched.Task, id txn.ID) vfs.ReadResult {
	res, _ := d.readResults.Take(id)
	return res
}

// RequestWrite implements vfs.Delegate, symmetric with RequestRead: a full
// blocking pipe repeats until room frees up, a full non-blocking one
// reports WriteAgain.
func (d *Delegate) RequestWrite(task *sched.Task, node *vfs.Node, fd *fdtable.Descriptor, buf []byte, repeat txn.ID) txn.ID {
	id := d.allocID(repeat)
	p := d.pipes.Get(pipe.ID(node.PhysID))
	if p == nil {
		d.writeResults.Put(id, vfs.WriteResult{Status: vfs.WriteError})
		d.store.SetStatus(id, txn.Finished)
		return id
	}

	if p.Writable() == 0 {
		if p.Blocking() {
			d.store.SetStatus(id, txn.Repeat)
			return id
		}
		d.writeResults.Put(id, vfs.WriteResult{Status: vfs.WriteAgain})
		d.store.SetStatus(id, txn.Finished)
		return id
	}

	n := p.Write(buf)
	d.writeResults.Put(id, vfs.WriteResult{Status: vfs.WriteSuccessful, N: int64(n)})
	d.store.SetStatus(id, txn.Finished)
	return id
}

// FinishWrite implements vfs.Delegate.
func (d *Delegate) FinishWrite(task *sched.Task, id txn.ID) vfs.WriteResult {
	res, _ := d.writeResults.Take(id)
	return res
}

// RequestGetLength implements vfs.Delegate: reports the bytes currently
// buffered and available to read, the closest pipe analog to a file's
// length.
func (d *Delegate) RequestGetLength(task *sched.Task, node *vfs.Node, repeat txn.ID) txn.ID {
	id := d.allocID(repeat)
	p := d.pipes.Get(pipe.ID(node.PhysID))
	if p == nil {
		d.lengthResults.Put(id, vfs.GetLengthResult{Status: vfs.LengthError, Length: -1})
	} else {
		d.lengthResults.Put(id, vfs.GetLengthResult{Status: vfs.LengthSuccessful, Length: int64(p.Readable())})
	}
	d.store.SetStatus(id, txn.Finished)
	return id
}

// FinishGetLength implements vfs.Delegate.
func (d *Delegate) FinishGetLength(task *sched.Task, id txn.ID) vfs.GetLengthResult {
	res, _ := d.lengthResults.Take(id)
	return res
}

// RequestDirectoryRefresh implements vfs.Delegate. A pipe is never a
// folder, so refreshing one always fails.
func (d *Delegate) RequestDirectoryRefresh(task *sched.Task, node *vfs.Node, repeat txn.ID) txn.ID {
	id := d.allocID(repeat)
	d.store.SetStatus(id, txn.Finished)
	return id
}

// FinishDirectoryRefresh implements vfs.Delegate.
func (d *Delegate) FinishDirectoryRefresh(task *sched.Task, id txn.ID) vfs.DirectoryRefreshResult {
	return vfs.DirectoryRefreshResult{Status: vfs.DirectoryRefreshError}
}
