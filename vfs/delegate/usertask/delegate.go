// Package usertask implements the asynchronous delegate spec §4.3.3
// describes: every request is forwarded as a message to a registered
// user-space task rather than completed inline, and the task reports
// completion later (possibly from a different goroutine) by calling the
// matching Complete* method, which stores the result and itself marks the
// transaction txn.Finished.
package usertask

import (
	"github.com/kestrel-os/vfscore/vfs"
	"github.com/kestrel-os/vfscore/vfs/bus"
	"github.com/kestrel-os/vfscore/vfs/fdtable"
	"github.com/kestrel-os/vfscore/vfs/handler"
	"github.com/kestrel-os/vfscore/vfs/sched"
	"github.com/kestrel-os/vfscore/vfs/txn"
)

// Operation names the delegate method a Message carries, used by the
// consuming task to dispatch on bus.Message.Op.
const (
	OpDiscovery        = "discovery"
	OpOpen             = "open"
	OpClose            = "close"
	OpRead             = "read"
	OpWrite            = "write"
	OpGetLength        = "get_length"
	OpDirectoryRefresh = "directory_refresh"
)

// DiscoveryRequest is the payload of an OpDiscovery message.
type DiscoveryRequest struct {
	ParentID  uint64
	ChildName string
}

// OpenRequest is the payload of an OpOpen message.
type OpenRequest struct {
	NodeID   uint64
	Filename string
	Flags    fdtable.OpenFlags
}

// CloseRequest is the payload of an OpClose message.
type CloseRequest struct {
	NodeID uint64
	Fd     fdtable.Descriptor
}

// ReadRequest is the payload of an OpRead message. Buf is handed over
// directly (this is a single-process simulation of crossing an address
// space, not a real copy) — the consuming task writes its result straight
// into it before replying, the same way the original writes through a
// pointer mapped into the delegate task's address space.
type ReadRequest struct {
	NodeID uint64
	Offset int64
	Buf    []byte
}

// WriteRequest is the payload of an OpWrite message.
type WriteRequest struct {
	NodeID uint64
	Offset int64
	Buf    []byte
}

// GetLengthRequest is the payload of an OpGetLength message.
type GetLengthRequest struct {
	NodeID uint64
}

// DirectoryRefreshRequest is the payload of an OpDirectoryRefresh message.
type DirectoryRefreshRequest struct {
	NodeID uint64
}

// Delegate forwards every operation to a bus.Bus inbox registered under
// TaskID, grounded on original_source/.../fs_delegate_tasked.hpp's
// send-to-task-queue dispatch. Each request's payload is wrapped in a
// vfs.Contextual bound to the task's own address space (Space), matching
// the original's "transaction storage page" mapped into the delegate
// task's memory — a reply built from the wrong space panics instead of
// silently reading garbage.
type Delegate struct {
	store *txn.Store
	bus   *bus.Bus

	TaskID uint64
	Space  vfs.SpaceID

	discoveryResults *handler.ResultBox[vfs.DiscoveryResult]
	openResults      *handler.ResultBox[vfs.OpenResult]
	closeResults     *handler.ResultBox[vfs.CloseResult]
	readResults      *handler.ResultBox[vfs.ReadResult]
	writeResults     *handler.ResultBox[vfs.WriteResult]
	lengthResults    *handler.ResultBox[vfs.GetLengthResult]
	refreshResults   *handler.ResultBox[vfs.DirectoryRefreshResult]
}

// New registers taskID's inbox on bus (capacity messages deep) and
// returns a delegate that forwards every operation to it.
func New(store *txn.Store, b *bus.Bus, taskID uint64, space vfs.SpaceID, capacity int) (*Delegate, <-chan bus.Message) {
	inbox := b.Register(taskID, capacity)
	d := &Delegate{
		store:  store,
		bus:    b,
		TaskID: taskID,
		Space:  space,

		discoveryResults: handler.NewResultBox[vfs.DiscoveryResult](),
		openResults:      handler.NewResultBox[vfs.OpenResult](),
		closeResults:     handler.NewResultBox[vfs.CloseResult](),
		readResults:      handler.NewResultBox[vfs.ReadResult](),
		writeResults:     handler.NewResultBox[vfs.WriteResult](),
		lengthResults:    handler.NewResultBox[vfs.GetLengthResult](),
		refreshResults:   handler.NewResultBox[vfs.DirectoryRefreshResult](),
	}
	return d, inbox
}

func (d *Delegate) allocID(repeat txn.ID) txn.ID {
	if repeat != txn.NoRepeat {
		return repeat
	}
	return d.store.Next()
}

// dispatch sends msg to the task's inbox and reports whether the caller
// should now wait (message accepted) or the transaction already has its
// terminal result (send failed or queue full).
func (d *Delegate) dispatch(id txn.ID, op string, payload any) bus.SendStatus {
	status := d.bus.Send(d.TaskID, bus.Message{TxnID: id, Op: op, Payload: payload})
	if status == bus.SendSuccessful {
		d.store.SetStatus(id, txn.Waiting)
	}
	return status
}

// RequestDiscovery implements vfs.Delegate.
func (d *Delegate) RequestDiscovery(task *sched.Task, parent *vfs.Node, childName string, repeat txn.ID) txn.ID {
	id := d.allocID(repeat)
	payload := vfs.NewContextual(DiscoveryRequest{ParentID: parent.ID, ChildName: childName}, d.Space)
	switch d.dispatch(id, OpDiscovery, payload) {
	case bus.SendQueueFull:
		d.discoveryResults.Put(id, vfs.DiscoveryResult{Status: vfs.DiscoveryBusy})
		d.store.SetStatus(id, txn.Finished)
	case bus.SendFailed:
		d.discoveryResults.Put(id, vfs.DiscoveryResult{Status: vfs.DiscoveryError})
		d.store.SetStatus(id, txn.Finished)
	}
	return id
}

// FinishDiscovery implements vfs.Delegate.
func (d *Delegate) FinishDiscovery(task *sched.Task, id txn.ID) vfs.DiscoveryResult {
	res, _ := d.discoveryResults.Take(id)
	return res
}

// CompleteDiscovery is called by the task consuming this delegate's inbox
// once it has handled an OpDiscovery message, unwrapping page with this
// delegate's own Space (panicking if the task used the wrong one).
func (d *Delegate) CompleteDiscovery(id txn.ID, page vfs.Contextual[vfs.DiscoveryResult]) {
	d.discoveryResults.Put(id, page.Get(d.Space))
	d.store.SetStatus(id, txn.Finished)
}

// RequestOpen implements vfs.Delegate.
func (d *Delegate) RequestOpen(task *sched.Task, node *vfs.Node, filename string, flags fdtable.OpenFlags, repeat txn.ID) txn.ID {
	id := d.allocID(repeat)
	payload := vfs.NewContextual(OpenRequest{NodeID: node.ID, Filename: filename, Flags: flags}, d.Space)
	switch d.dispatch(id, OpOpen, payload) {
	case bus.SendQueueFull:
		d.openResults.Put(id, vfs.OpenResult{Status: vfs.OpenBusy})
		d.store.SetStatus(id, txn.Finished)
	case bus.SendFailed:
		d.openResults.Put(id, vfs.OpenResult{Status: vfs.OpenError})
		d.store.SetStatus(id, txn.Finished)
	}
	return id
}

// FinishOpen implements vfs.Delegate.
func (d *Delegate) FinishOpen(task *sched.Task, id txn.ID) vfs.OpenResult {
	res, _ := d.openResults.Take(id)
	return res
}

// CompleteOpen is the task-side reply to an OpOpen message.
func (d *Delegate) CompleteOpen(id txn.ID, page vfs.Contextual[vfs.OpenResult]) {
	d.openResults.Put(id, page.Get(d.Space))
	d.store.SetStatus(id, txn.Finished)
}

// RequestClose implements vfs.Delegate.
func (d *Delegate) RequestClose(task *sched.Task, node *vfs.Node, fd *fdtable.Descriptor, repeat txn.ID) txn.ID {
	id := d.allocID(repeat)
	payload := vfs.NewContextual(CloseRequest{NodeID: node.ID, Fd: *fd}, d.Space)
	switch d.dispatch(id, OpClose, payload) {
	case bus.SendQueueFull:
		d.closeResults.Put(id, vfs.CloseResult{Status: vfs.CloseBusy})
		d.store.SetStatus(id, txn.Finished)
	case bus.SendFailed:
		d.closeResults.Put(id, vfs.CloseResult{Status: vfs.CloseError})
		d.store.SetStatus(id, txn.Finished)
	}
	return id
}

// FinishClose implements vfs.Delegate.
func (d *Delegate) FinishClose(task *sched.Task, id txn.ID) vfs.CloseResult {
	res, _ := d.closeResults.Take(id)
	return res
}

// CompleteClose is the task-side reply to an OpClose message.
func (d *Delegate) CompleteClose(id txn.ID, page vfs.Contextual[vfs.CloseResult]) {
	d.closeResults.Put(id, page.Get(d.Space))
	d.store.SetStatus(id, txn.Finished)
}

// RequestRead implements vfs.Delegate.
func (d *Delegate) RequestRead(task *sched.Task, node *vfs.Node, fd *fdtable.Descriptor, buf []byte, repeat txn.ID) txn.ID {
	id := d.allocID(repeat)
	payload := vfs.NewContextual(ReadRequest{NodeID: node.ID, Offset: fd.Offset, Buf: buf}, d.Space)
	switch d.dispatch(id, OpRead, payload) {
	case bus.SendQueueFull:
		d.readResults.Put(id, vfs.ReadResult{Status: vfs.ReadBusy})
		d.store.SetStatus(id, txn.Finished)
	case bus.SendFailed:
		d.readResults.Put(id, vfs.ReadResult{Status: vfs.ReadError})
		d.store.SetStatus(id, txn.Finished)
	}
	return id
}

// FinishRead implements vfs.Delegate.
func (d *Delegate) FinishRead(task *sched.Task, id txn.ID) vfs.ReadResult {
	res, _ := d.readResults.Take(id)
	return res
}

// CompleteRead is the task-side reply to an OpRead message, called once
// the task has written its result directly into the ReadRequest's Buf.
func (d *Delegate) CompleteRead(id txn.ID, page vfs.Contextual[vfs.ReadResult]) {
	d.readResults.Put(id, page.Get(d.Space))
	d.store.SetStatus(id, txn.Finished)
}

// RequestWrite implements vfs.Delegate.
func (d *Delegate) RequestWrite(task *sched.Task, node *vfs.Node, fd *fdtable.Descriptor, buf []byte, repeat txn.ID) txn.ID {
	id := d.allocID(repeat)
	payload := vfs.NewContextual(WriteRequest{NodeID: node.ID, Offset: fd.Offset, Buf: buf}, d.Space)
	switch d.dispatch(id, OpWrite, payload) {
	case bus.SendQueueFull:
		d.writeResults.Put(id, vfs.WriteResult{Status: vfs.WriteBusy})
		d.store.SetStatus(id, txn.Finished)
	case bus.SendFailed:
		d.writeResults.Put(id, vfs.WriteResult{Status: vfs.WriteError})
		d.store.SetStatus(id, txn.Finished)
	}
	return id
}

// FinishWrite implements vfs.Delegate.
func (d *Delegate) FinishWrite(task *sched.Task, id txn.ID) vfs.WriteResult {
	res, _ := d.writeResults.Take(id)
	return res
}

// CompleteWrite is the task-side reply to an OpWrite message.
func (d *Delegate) CompleteWrite(id txn.ID, page vfs.Contextual[vfs.WriteResult]) {
	d.writeResults.Put(id, page.Get(d.Space))
	d.store.SetStatus(id, txn.Finished)
}

// RequestGetLength implements vfs.Delegate.
func (d *Delegate) RequestGetLength(task *sched.Task, node *vfs.Node, repeat txn.ID) txn.ID {
	id := d.allocID(repeat)
	payload := vfs.NewContextual(GetLengthRequest{NodeID: node.ID}, d.Space)
	switch d.dispatch(id, OpGetLength, payload) {
	case bus.SendQueueFull:
		d.lengthResults.Put(id, vfs.GetLengthResult{Status: vfs.LengthBusy, Length: -1})
		d.store.SetStatus(id, txn.Finished)
	case bus.SendFailed:
		d.lengthResults.Put(id, vfs.GetLengthResult{Status: vfs.LengthError, Length: -1})
		d.store.SetStatus(id, txn.Finished)
	}
	return id
}

// FinishGetLength implements vfs.Delegate.
func (d *Delegate) FinishGetLength(task *sched.Task, id txn.ID) vfs.GetLengthResult {
	res, _ := d.lengthResults.Take(id)
	return res
}

// CompleteGetLength is the task-side reply to an OpGetLength message.
func (d *Delegate) CompleteGetLength(id txn.ID, page vfs.Contextual[vfs.GetLengthResult]) {
	d.lengthResults.Put(id, page.Get(d.Space))
	d.store.SetStatus(id, txn.Finished)
}

// RequestDirectoryRefresh implements vfs.Delegate.
func (d *Delegate) RequestDirectoryRefresh(task *sched.Task, node *vfs.Node, repeat txn.ID) txn.ID {
	id := d.allocID(repeat)
	payload := vfs.NewContextual(DirectoryRefreshRequest{NodeID: node.ID}, d.Space)
	switch d.dispatch(id, OpDirectoryRefresh, payload) {
	case bus.SendQueueFull:
		d.refreshResults.Put(id, vfs.DirectoryRefreshResult{Status: vfs.DirectoryRefreshBusy})
		d.store.SetStatus(id, txn.Finished)
	case bus.SendFailed:
		d.refreshResults.Put(id, vfs.DirectoryRefreshResult{Status: vfs.DirectoryRefreshError})
		d.store.SetStatus(id, txn.Finished)
	}
	return id
}

// FinishDirectoryRefresh implements vfs.Delegate.
func (d *Delegate) FinishDirectoryRefresh(task *sched.Task, id txn.ID) vfs.DirectoryRefreshResult {
	res, _ := d.refreshResults.Take(id)
	return res
}

// CompleteDirectoryRefresh is the task-side reply to an
// OpDirectoryRefresh message. Unlike ramdisk's own refresh, materializing
// any newly-seen children into the graph is the task's job (it owns the
// corresponding vfs.Graph reference) before it calls this.
func (d *Delegate) CompleteDirectoryRefresh(id txn.ID, page vfs.Contextual[vfs.DirectoryRefreshResult]) {
	d.refreshResults.Put(id, page.Get(d.Space))
	d.store.SetStatus(id, txn.Finished)
}
