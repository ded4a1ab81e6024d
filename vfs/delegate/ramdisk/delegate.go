package ramdisk

import (
	"github.com/kestrel-os/vfscore/vfs"
	"github.com/kestrel-os/vfscore/vfs/fdtable"
	"github.com/kestrel-os/vfscore/vfs/handler"
	"github.com/kestrel-os/vfscore/vfs/sched"
	"github.com/kestrel-os/vfscore/vfs/txn"
)

// defaultGrowthFactor is the buffer growth multiplier
// fs_delegate_ramdisk.cpp hardcodes for every realloc-on-write.
const defaultGrowthFactor = 1.2

// Delegate is the synchronous ramdisk delegate (spec §4.3.1): every
// Request* method completes its transaction before returning, grounded
// directly on original_source/.../fs_delegate_ramdisk.cpp. It materializes
// vfs.Node values lazily as discovery walks into archive entries it
// hasn't seen from the graph side yet, keeping the archive's own id space
// (int64, dense) separate from the graph's monotone node ids.
type Delegate struct {
	graph   *vfs.Graph
	archive *Archive
	growth  float64
	store   *txn.Store

	discoveryResults *handler.ResultBox[vfs.DiscoveryResult]
	openResults      *handler.ResultBox[vfs.OpenResult]
	closeResults     *handler.ResultBox[vfs.CloseResult]
	readResults      *handler.ResultBox[vfs.ReadResult]
	writeResults     *handler.ResultBox[vfs.WriteResult]
	lengthResults    *handler.ResultBox[vfs.GetLengthResult]
	refreshResults   *handler.ResultBox[vfs.DirectoryRefreshResult]
}

// New creates a ramdisk delegate backed by a fresh, empty archive. graph
// is the node graph this delegate will materialize discovered entries
// into; store is the shared transaction store every handler polls; growth
// is the buffer growth multiplier applied on write (pass
// vfs.Options.RamdiskGrowthFactor, or defaultGrowthFactor if zero).
func New(graph *vfs.Graph, store *txn.Store, growth float64) *Delegate {
	if growth <= 1 {
		growth = defaultGrowthFactor
	}
	return &Delegate{
		graph:   graph,
		archive: NewArchive(),
		growth:  growth,
		store:   store,

		discoveryResults: handler.NewResultBox[vfs.DiscoveryResult](),
		openResults:      handler.NewResultBox[vfs.OpenResult](),
		closeResults:     handler.NewResultBox[vfs.CloseResult](),
		readResults:      handler.NewResultBox[vfs.ReadResult](),
		writeResults:     handler.NewResultBox[vfs.WriteResult](),
		lengthResults:    handler.NewResultBox[vfs.GetLengthResult](),
		refreshResults:   handler.NewResultBox[vfs.DirectoryRefreshResult](),
	}
}

// Archive exposes the backing store so a caller can Seed it before
// mounting the delegate.
func (d *Delegate) Archive() *Archive { return d.archive }

// allocID reuses repeat when this is a restarted transaction, or mints a
// fresh one otherwise; every ramdisk transaction finishes before its
// Request call returns, so "repeat" only ever happens if a caller
// deliberately restarts a handler (it never will, since this delegate
// never reports txn.Repeat).
func (d *Delegate) allocID(repeat txn.ID) txn.ID {
	if repeat != txn.NoRepeat {
		return repeat
	}
	return d.store.Next()
}

// physIDOf resolves the archive id a graph node corresponds to: a
// Root/Mountpoint node stands for the archive's own root folder, matching
// fs_delegate_ramdisk.cpp's "parent is the mount root" special case; any
// other node carries its archive id directly in PhysID.
func (d *Delegate) physIDOf(n *vfs.Node) int64 {
	if n.Type == vfs.NodeRoot || n.Type == vfs.NodeMountpoint {
		return d.archive.Root()
	}
	return n.PhysID
}

func entryNodeType(t EntryType) vfs.NodeType {
	if t == EntryFolder {
		return vfs.NodeFolder
	}
	return vfs.NodeFile
}

// entryIsFile reports whether id names a file entry, matching
// fs_delegate_ramdisk.cpp:311-313's "open only succeeds on a plain file"
// guard for entries discovery stopped one level short of.
func entryIsFile(a *Archive, id int64) bool {
	typ, ok := a.Type(id)
	return ok && typ == EntryFile
}

// materialize returns the graph node for parent's archive child named
// name, creating and attaching it on first sight.
func (d *Delegate) materialize(parent *vfs.Node, childID int64, name string) *vfs.Node {
	if existing := parent.FindChild(name); existing != nil {
		return existing
	}
	typ, _ := d.archive.Type(childID)
	n := d.graph.CreateNode()
	n.Type = entryNodeType(typ)
	n.Name = name
	n.PhysID = childID
	parent.AddChild(n)
	return n
}

// RequestDiscovery implements vfs.Delegate.
func (d *Delegate) RequestDiscovery(task *sched.Task, parent *vfs.Node, childName string, repeat txn.ID) txn.ID {
	id := d.allocID(repeat)
	parentPhys := d.physIDOf(parent)

	childID, ok := d.archive.FindChild(parentPhys, childName)
	if !ok {
		d.discoveryResults.Put(id, vfs.DiscoveryResult{Status: vfs.DiscoveryNotFound})
	} else {
		node := d.materialize(parent, childID, childName)
		d.discoveryResults.Put(id, vfs.DiscoveryResult{Status: vfs.DiscoverySuccessful, Node: node})
	}

	d.store.SetStatus(id, txn.Finished)
	return id
}

// FinishDiscovery implements vfs.Delegate.
func (d *Delegate) FinishDiscovery(task *sched.Task, id txn.ID) vfs.DiscoveryResult {
	res, _ := d.discoveryResults.Take(id)
	return res
}

// RequestOpen implements vfs.Delegate. discoveryState isn't passed
// directly, but node/filename carry the same distinction OpenHandler
// observed: node already resolved to a file means the archive entry
// already exists (node.PhysID is valid); an unresolved leaf means node is
// the parent and filename is the child to create if FlagCreate is set.
func (d *Delegate) RequestOpen(task *sched.Task, node *vfs.Node, filename string, flags fdtable.OpenFlags, repeat txn.ID) txn.ID {
	id := d.allocID(repeat)

	childID, existingChild := d.archive.FindChild(d.physIDOf(node), filename)
	switch {
	case node.Type == vfs.NodeFile:
		// node is already the resolved target (DiscoverySuccessful case).
		if flags&fdtable.FlagTruncate != 0 {
			d.archive.Truncate(node.PhysID)
		}
		d.openResults.Put(id, vfs.OpenResult{Status: vfs.OpenSuccessful})

	case node.Type == vfs.NodeFolder || node.Type == vfs.NodePipe:
		// Folders and pipes are never directly openable through this delegate.
		d.openResults.Put(id, vfs.OpenResult{Status: vfs.OpenError})

	case existingChild && entryIsFile(d.archive, childID):
		// Discovery stopped one level early but the entry exists after all.
		child := d.materialize(node, childID, filename)
		if flags&fdtable.FlagTruncate != 0 {
			d.archive.Truncate(childID)
		}
		d.openResults.Put(id, vfs.OpenResult{Status: vfs.OpenSuccessful, Node: child})

	case existingChild:
		// The existing entry is a folder: open on it still fails.
		d.openResults.Put(id, vfs.OpenResult{Status: vfs.OpenError})

	case flags&fdtable.FlagCreate != 0:
		newID, ok := d.archive.CreateChild(d.physIDOf(node), filename)
		if !ok {
			d.openResults.Put(id, vfs.OpenResult{Status: vfs.OpenError})
		} else {
			child := d.materialize(node, newID, filename)
			d.openResults.Put(id, vfs.OpenResult{Status: vfs.OpenSuccessful, Node: child})
		}

	default:
		d.openResults.Put(id, vfs.OpenResult{Status: vfs.OpenNotFound})
	}

	d.store.SetStatus(id, txn.Finished)
	return id
}

// FinishOpen implements vfs.Delegate.
func (d *Delegate) FinishOpen(task *sched.Task, id txn.ID) vfs.OpenResult {
	res, _ := d.openResults.Take(id)
	return res
}

// RequestClose implements vfs.Delegate. The ramdisk keeps no open-file
// state of its own, so closing is always a trivial success.
func (d *Delegate) RequestClose(task *sched.Task, node *vfs.Node, fd *fdtable.Descriptor, repeat txn.ID) txn.ID {
	id := d.allocID(repeat)
	d.closeResults.Put(id, vfs.CloseResult{Status: vfs.CloseSuccessful})
	d.store.SetStatus(id, txn.Finished)
	return id
}

// FinishClose implements vfs.Delegate.
func (d *Delegate) FinishClose(task *sched.Task, id txn.ID) vfs.CloseResult {
	res, _ := d.closeResults.Take(id)
	return res
}

// RequestRead implements vfs.Delegate.
func (d *Delegate) RequestRead(task *sched.Task, node *vfs.Node, fd *fdtable.Descriptor, buf []byte, repeat txn.ID) txn.ID {
	id := d.allocID(repeat)
	n, ok := d.archive.Read(node.PhysID, fd.Offset, buf)
	if !ok {
		d.readResults.Put(id, vfs.ReadResult{Status: vfs.ReadError})
	} else {
		d.readResults.Put(id, vfs.ReadResult{Status: vfs.ReadSuccessful, N: n})
	}
	d.store.SetStatus(id, txn.Finished)
	return id
}

// FinishRead implements vfs.Delegate.
func (d *Delegate) FinishRead(task *sched.Task, id txn.ID) vfs.ReadResult {
	res, _ := d.readResults.Take(id)
	return res
}

// RequestWrite implements vfs.Delegate. An Append-flagged descriptor always
// writes at the entry's current end, matching
// fs_delegate_ramdisk.cpp:180-182's offset reset ahead of the write.
func (d *Delegate) RequestWrite(task *sched.Task, node *vfs.Node, fd *fdtable.Descriptor, buf []byte, repeat txn.ID) txn.ID {
	id := d.allocID(repeat)
	if fd.Flags&fdtable.FlagAppend != 0 {
		if length, ok := d.archive.Length(node.PhysID); ok {
			fd.Offset = length
		}
	}
	n, ok := d.archive.Write(node.PhysID, fd.Offset, buf, d.growth)
	if !ok {
		d.writeResults.Put(id, vfs.WriteResult{Status: vfs.WriteError})
	} else {
		d.writeResults.Put(id, vfs.WriteResult{Status: vfs.WriteSuccessful, N: n})
	}
	d.store.SetStatus(id, txn.Finished)
	return id
}

// FinishWrite implements vfs.Delegate.
func (d *Delegate) FinishWrite(task *sched.Task, id txn.ID) vfs.WriteResult {
	res, _ := d.writeResults.Take(id)
	return res
}

// RequestGetLength implements vfs.Delegate.
func (d *Delegate) RequestGetLength(task *sched.Task, node *vfs.Node, repeat txn.ID) txn.ID {
	id := d.allocID(repeat)
	length, ok := d.archive.Length(node.PhysID)
	if !ok {
		d.lengthResults.Put(id, vfs.GetLengthResult{Status: vfs.LengthError, Length: -1})
	} else {
		d.lengthResults.Put(id, vfs.GetLengthResult{Status: vfs.LengthSuccessful, Length: length})
	}
	d.store.SetStatus(id, txn.Finished)
	return id
}

// FinishGetLength implements vfs.Delegate.
func (d *Delegate) FinishGetLength(task *sched.Task, id txn.ID) vfs.GetLengthResult {
	res, _ := d.lengthResults.Take(id)
	return res
}

// RequestDirectoryRefresh implements vfs.Delegate. It walks every archive
// child of node's folder and materializes any the graph hasn't seen yet,
// matching fs_delegate_ramdisk.cpp's refresh loop of reconstructing each
// child's path and deduplicating against already-known nodes via
// find_existing.
func (d *Delegate) RequestDirectoryRefresh(task *sched.Task, node *vfs.Node, repeat txn.ID) txn.ID {
	id := d.allocID(repeat)
	parentPhys := d.physIDOf(node)

	for position := 0; ; position++ {
		childID, ok := d.archive.ChildAt(parentPhys, position)
		if !ok {
			break
		}
		name, ok := d.archive.Name(childID)
		if !ok {
			continue
		}
		d.materialize(node, childID, name)
	}

	d.refreshResults.Put(id, vfs.DirectoryRefreshResult{Status: vfs.DirectoryRefreshSuccessful})
	d.store.SetStatus(id, txn.Finished)
	return id
}

// FinishDirectoryRefresh implements vfs.Delegate.
func (d *Delegate) FinishDirectoryRefresh(task *sched.Task, id txn.ID) vfs.DirectoryRefreshResult {
	res, _ := d.refreshResults.Take(id)
	return res
}
