// Package vfs implements the virtual filesystem core: the node graph, the
// delegate dispatch contract, and the VFS facade that exposes spec §6's
// syscall surface over them. Grounded on fuse/nodefs's split between a
// connector (graph + path resolution) and a FileSystemConnector-style
// facade that owns every collaborating store.
package vfs

import (
	"fmt"
	"sync"

	"github.com/kestrel-os/vfscore/vfs/fdtable"
	"github.com/kestrel-os/vfscore/vfs/handler"
	"github.com/kestrel-os/vfscore/vfs/pipe"
	"github.com/kestrel-os/vfscore/vfs/sched"
	"github.com/kestrel-os/vfscore/vfs/txn"
)

// VFS wires together every L1-L5 collaborator (§2) and exposes the
// syscall-shaped operations of §6. It owns no delegates itself beyond the
// fallback pipe delegate (anonymous pipe nodes have no parent to resolve
// one lexically through) — the root and /mount delegates are attached by
// the caller via Graph().Root().SetDelegate and MountNode().SetDelegate.
type VFS struct {
	graph *Graph
	txns  *txn.Store
	fds   *fdtable.Manager
	pipes *pipe.Store
	sch   sched.Scheduler
	opts  Options

	pipeDelegate Delegate

	mu  sync.Mutex
	cwd map[uint64]string
}

// New creates a VFS with an empty graph (root plus a /mount mountpoint
// node) and fresh stores. sch drives every suspended handler to
// completion; pass a *sched.Loop for a working in-process scheduler.
func New(sch sched.Scheduler, opts Options) *VFS {
	g := NewGraph(opts.MaxPathLen)
	mount := g.CreateNode()
	mount.Type = NodeMountpoint
	mount.Name = "mount"
	g.Root().AddChild(mount)

	return &VFS{
		graph: g,
		txns:  txn.NewStore(),
		fds:   fdtable.NewManager(),
		pipes: pipe.NewStore(),
		sch:   sch,
		opts:  opts,
		cwd:   make(map[uint64]string),
	}
}

// Graph exposes the underlying node graph for delegate wiring and tests.
func (v *VFS) Graph() *Graph { return v.graph }

// TxnStore exposes the shared transaction store a delegate construction
// needs to allocate and finish its own transactions (spec §4.3's "every
// delegate shares the one transaction table").
func (v *VFS) TxnStore() *txn.Store { return v.txns }

// Pipes exposes the shared pipe store so a pipe delegate can be
// constructed against the very store vfs.VFS.Pipe itself allocates from.
func (v *VFS) Pipes() *pipe.Store { return v.pipes }

// NodeForFd resolves the graph node backing pid's fd, or nil if the
// descriptor doesn't exist. Exposed for callers that need a node's
// PhysID directly — e.g. looking up the pipe.ID behind a pipe fd to flip
// its blocking mode — without reaching into fdtable.Manager themselves.
func (v *VFS) NodeForFd(pid uint64, fd fdtable.Fd) *Node {
	desc := v.fds.Get(pid, fd)
	if desc == nil {
		return nil
	}
	return v.graph.GetNodeByID(desc.NodeID)
}

// MountNode returns the singleton /mount node (spec §4.3.4).
func (v *VFS) MountNode() *Node {
	return v.graph.Root().FindChild("mount")
}

// SetPipeDelegate installs the delegate newly created pipe nodes are bound
// to. Pipe nodes are parentless, so they cannot resolve a delegate
// lexically the way every other node does.
func (v *VFS) SetPipeDelegate(d Delegate) { v.pipeDelegate = d }

func isDirType(t NodeType) bool {
	return t == NodeFolder || t == NodeRoot || t == NodeMountpoint
}

func (v *VFS) absolutePath(pid uint64, path string) (string, error) {
	return v.graph.ConcatAsAbsolute(v.GetWorkingDirectory(pid), path)
}

// GetWorkingDirectory returns pid's current working directory, "/" if it
// has never set one.
func (v *VFS) GetWorkingDirectory(pid uint64) string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if p, ok := v.cwd[pid]; ok {
		return p
	}
	return "/"
}

// SetWorkingDirectory resolves path and, if it names a directory-like
// node, makes it pid's working directory.
func (v *VFS) SetWorkingDirectory(task *sched.Task, path string, onDone func(status SetCwdStatus)) {
	abs, err := v.absolutePath(task.ProcessID, path)
	if err != nil {
		onDone(SetCwdError)
		return
	}
	h := NewDiscoverySetCwdHandler(v.graph, abs, func(node *Node, status DiscoveryStatus) {
		switch status {
		case DiscoverySuccessful:
			if !isDirType(node.Type) {
				onDone(SetCwdNotAFolder)
				return
			}
			v.mu.Lock()
			v.cwd[task.ProcessID] = v.graph.GetRealPath(node)
			v.mu.Unlock()
			onDone(SetCwdSuccessful)
		case DiscoveryNotFound:
			onDone(SetCwdNotFound)
		default:
			onDone(SetCwdError)
		}
	})
	handler.Drive(task, v.sch, v.txns, h)
}

// Open resolves path relative to task's process and opens it, mapping a
// fresh descriptor on success.
func (v *VFS) Open(task *sched.Task, path string, flags fdtable.OpenFlags, onDone func(fd fdtable.Fd, status OpenCallStatus)) {
	abs, err := v.absolutePath(task.ProcessID, path)
	if err != nil {
		onDone(-1, OpenCallError)
		return
	}
	h := NewDiscoveryOpenHandler(v.graph, abs, flags, func(node *Node, res OpenResult) {
		switch res.Status {
		case OpenSuccessful:
			fd := v.fds.Map(task.ProcessID, node.ID, flags)
			if node.Type == NodePipe {
				v.pipes.AddReference(pipe.ID(node.PhysID), task.ProcessID)
			}
			onDone(fd, OpenCallSuccessful)
		case OpenNotFound:
			onDone(-1, OpenCallNotFound)
		case OpenBusy:
			onDone(-1, OpenCallBusy)
		default:
			onDone(-1, OpenCallError)
		}
	})
	handler.Drive(task, v.sch, v.txns, h)
}

// Close closes fd, running it through its node's delegate before
// releasing the descriptor.
func (v *VFS) Close(task *sched.Task, pid uint64, fd fdtable.Fd, onDone func(status CloseCallStatus)) {
	desc := v.fds.Get(pid, fd)
	if desc == nil {
		onDone(CloseCallInvalidFd)
		return
	}
	node := v.graph.GetNodeByID(desc.NodeID)
	if node == nil {
		onDone(CloseCallInvalidFd)
		return
	}
	h := NewCloseHandler(node, desc, func(res CloseResult) {
		switch res.Status {
		case CloseSuccessful:
			v.fds.Unmap(pid, fd)
			onDone(CloseCallSuccessful)
		case CloseBusy:
			onDone(CloseCallBusy)
		default:
			onDone(CloseCallError)
		}
	})
	handler.Drive(task, v.sch, v.txns, h)
}

// Read reads from fd into buf, advancing its offset by the number of
// bytes actually read.
func (v *VFS) Read(task *sched.Task, fd fdtable.Fd, buf []byte, onDone func(n int64, status ReadCallStatus)) {
	pid := task.ProcessID
	desc := v.fds.Get(pid, fd)
	if desc == nil {
		onDone(0, ReadCallInvalidFd)
		return
	}
	node := v.graph.GetNodeByID(desc.NodeID)
	if node == nil {
		onDone(0, ReadCallInvalidFd)
		return
	}
	h := NewReadHandler(node, desc, buf, func(res ReadResult) {
		switch res.Status {
		case ReadSuccessful:
			v.fds.SetOffset(pid, fd, desc.Offset+res.N)
			onDone(res.N, ReadCallSuccessful)
		case ReadAgain:
			onDone(0, ReadCallAgain)
		case ReadBusy:
			onDone(0, ReadCallBusy)
		default:
			onDone(0, ReadCallError)
		}
	})
	handler.Drive(task, v.sch, v.txns, h)
}

// Write writes buf to fd, advancing its offset by the number of bytes
// actually written.
func (v *VFS) Write(task *sched.Task, fd fdtable.Fd, buf []byte, onDone func(n int64, status WriteCallStatus)) {
	pid := task.ProcessID
	desc := v.fds.Get(pid, fd)
	if desc == nil {
		onDone(0, WriteCallInvalidFd)
		return
	}
	node := v.graph.GetNodeByID(desc.NodeID)
	if node == nil {
		onDone(0, WriteCallInvalidFd)
		return
	}
	h := NewWriteHandler(node, desc, buf, func(res WriteResult) {
		switch res.Status {
		case WriteSuccessful:
			v.fds.SetOffset(pid, fd, desc.Offset+res.N)
			onDone(res.N, WriteCallSuccessful)
		case WriteAgain:
			onDone(0, WriteCallAgain)
		case WriteBusy:
			onDone(0, WriteCallBusy)
		default:
			onDone(0, WriteCallError)
		}
	})
	handler.Drive(task, v.sch, v.txns, h)
}

// Seek recomputes fd's offset from mode/amount against the node's current
// length, clamped to [0, length], and persists the new offset.
func (v *VFS) Seek(task *sched.Task, fd fdtable.Fd, mode SeekMode, amount int64, onDone func(offset int64, status SeekCallStatus)) {
	pid := task.ProcessID
	desc := v.fds.Get(pid, fd)
	if desc == nil {
		onDone(-1, SeekCallInvalidFd)
		return
	}
	node := v.graph.GetNodeByID(desc.NodeID)
	if node == nil {
		onDone(-1, SeekCallInvalidFd)
		return
	}
	h := NewSeekHandler(node, desc.Offset, mode, amount, func(res SeekResult) {
		if res.Status != LengthSuccessful {
			onDone(-1, SeekCallError)
			return
		}
		v.fds.SetOffset(pid, fd, res.Offset)
		onDone(res.Offset, SeekCallSuccessful)
	})
	handler.Drive(task, v.sch, v.txns, h)
}

// Tell reports fd's current offset without touching its node's delegate.
func (v *VFS) Tell(pid uint64, fd fdtable.Fd) (int64, SeekCallStatus) {
	desc := v.fds.Get(pid, fd)
	if desc == nil {
		return -1, SeekCallInvalidFd
	}
	return desc.Offset, SeekCallSuccessful
}

// LengthByFd reports the length of the node fd refers to.
func (v *VFS) LengthByFd(task *sched.Task, fd fdtable.Fd, onDone func(length int64, status LengthCallStatus)) {
	desc := v.fds.Get(task.ProcessID, fd)
	if desc == nil {
		onDone(-1, LengthCallInvalidFd)
		return
	}
	node := v.graph.GetNodeByID(desc.NodeID)
	if node == nil {
		onDone(-1, LengthCallInvalidFd)
		return
	}
	h := NewGetLengthDefaultHandler(node, func(res GetLengthResult) {
		if res.Status != LengthSuccessful {
			onDone(-1, LengthCallError)
			return
		}
		onDone(res.Length, LengthCallSuccessful)
	})
	handler.Drive(task, v.sch, v.txns, h)
}

// LengthByPath resolves path and reports the length of the node it names.
func (v *VFS) LengthByPath(task *sched.Task, path string, onDone func(length int64, status LengthCallStatus)) {
	abs, err := v.absolutePath(task.ProcessID, path)
	if err != nil {
		onDone(-1, LengthCallError)
		return
	}
	h := NewDiscoveryGetLengthHandler(v.graph, abs, func(res GetLengthResult) {
		if res.Status != LengthSuccessful {
			onDone(-1, LengthCallNotFound)
			return
		}
		onDone(res.Length, LengthCallSuccessful)
	})
	handler.Drive(task, v.sch, v.txns, h)
}

// OpenDirectory resolves path to a directory-like node and returns its id
// for subsequent ReadDirectory calls.
func (v *VFS) OpenDirectory(task *sched.Task, path string, onDone func(nodeID uint64, status OpenDirectoryStatus)) {
	abs, err := v.absolutePath(task.ProcessID, path)
	if err != nil {
		onDone(0, OpenDirectoryError)
		return
	}
	h := NewDiscoveryOpenDirectoryHandler(v.graph, abs, func(node *Node, status DiscoveryStatus) {
		switch status {
		case DiscoverySuccessful:
			if !isDirType(node.Type) {
				onDone(0, OpenDirectoryNotAFolder)
				return
			}
			onDone(node.ID, OpenDirectorySuccessful)
		case DiscoveryNotFound:
			onDone(0, OpenDirectoryNotFound)
		default:
			onDone(0, OpenDirectoryError)
		}
	})
	handler.Drive(task, v.sch, v.txns, h)
}

// ReadDirectory reads the entry at position under the folder nodeID
// names, refreshing its children from the backing delegate first if they
// are not already known valid (spec §4.3.4/§4.5).
func (v *VFS) ReadDirectory(task *sched.Task, nodeID uint64, position int, onDone func(res ReadDirectoryResult, status ReadDirectoryCallStatus)) {
	folder := v.graph.GetNodeByID(nodeID)
	if folder == nil {
		onDone(ReadDirectoryResult{}, ReadDirectoryCallError)
		return
	}

	deliver := func(res ReadDirectoryResult) {
		switch res.Status {
		case ReadDirectorySuccessful:
			onDone(res, ReadDirectoryCallSuccessful)
		case ReadDirectoryEOD:
			onDone(res, ReadDirectoryCallEndOfDirectory)
		default:
			onDone(res, ReadDirectoryCallError)
		}
	}

	if folder.ContentsValid {
		handler.Drive(task, v.sch, v.txns, NewReadDirectoryHandler(folder, position, nil, deliver))
		return
	}

	read := NewReadDirectoryHandler(folder, position, nil, deliver)
	refresh := NewDirectoryRefreshHandler(folder, read)
	read.causingRefresh = refresh
	handler.Drive(task, v.sch, v.txns, refresh)
}

// Pipe creates a new pipe and maps its write and read ends into pid's
// descriptor table.
func (v *VFS) Pipe(pid uint64) (writeFd, readFd fdtable.Fd, status PipeCallStatus) {
	if v.pipeDelegate == nil {
		return -1, -1, PipeCallError
	}
	id := v.pipes.Create()
	node := v.graph.CreateNode()
	node.Type = NodePipe
	node.Name = fmt.Sprintf("pipe:%d", id)
	node.PhysID = int64(id)
	node.SetDelegate(v.pipeDelegate)

	writeFd = v.fds.Map(pid, node.ID, 0)
	readFd = v.fds.Map(pid, node.ID, 0)
	v.pipes.AddReference(id, pid)
	v.pipes.AddReference(id, pid)
	return writeFd, readFd, PipeCallSuccessful
}

// CloneFd duplicates srcFd (owned by srcPid) into targetPid, at an
// explicit targetFd if hasTargetFd is true (closing whatever targetFd
// already pointed at first) or at a freshly allocated fd otherwise.
func (v *VFS) CloneFd(task *sched.Task, srcPid uint64, srcFd fdtable.Fd, targetPid uint64, targetFd fdtable.Fd, hasTargetFd bool, onDone func(fd fdtable.Fd, status CloneFdCallStatus)) {
	src := v.fds.Get(srcPid, srcFd)
	if src == nil {
		onDone(-1, CloneFdCallInvalidFd)
		return
	}

	install := func() {
		var newFd fdtable.Fd
		if hasTargetFd {
			v.fds.MapAt(targetPid, targetFd, src.NodeID, src.Flags)
			newFd = targetFd
		} else {
			newFd = v.fds.Map(targetPid, src.NodeID, src.Flags)
		}
		v.fds.SetOffset(targetPid, newFd, src.Offset)
		if node := v.graph.GetNodeByID(src.NodeID); node != nil && node.Type == NodePipe {
			v.pipes.AddReference(pipe.ID(node.PhysID), targetPid)
		}
		onDone(newFd, CloneFdCallSuccessful)
	}

	if hasTargetFd && v.fds.Get(targetPid, targetFd) != nil {
		v.Close(task, targetPid, targetFd, func(CloseCallStatus) { install() })
		return
	}
	install()
}

// Stat and Fstat are reserved (spec §9 Open Question; resolution recorded
// in DESIGN.md): the original never implements them beyond a constant
// failure return, so neither does this core.
func (v *VFS) Stat(path string) StatStatus {
	return StatusNotImplemented
}

func (v *VFS) Fstat(pid uint64, fd fdtable.Fd) StatStatus {
	return StatusNotImplemented
}

// RegisterAsDelegate asks the /mount singleton to create a new mountpoint
// named name, bound to a delegate serving taskID.
func (v *VFS) RegisterAsDelegate(task *sched.Task, taskID uint64, name string, physID int64) (mountpointNodeID uint64, status RegisterDelegateStatus) {
	md, ok := v.MountNode().Delegate().(MountDelegate)
	if !ok {
		return 0, RegisterDelegateError
	}
	created, err := md.CreateDelegate(task, taskID, name, physID)
	if err != nil {
		return 0, RegisterDelegateError
	}
	return created.ID, RegisterDelegateSuccessful
}

// SetTransactionStatus is the syscall a user-task delegate's driver calls
// to report that a transaction it owns has reached a terminal status.
func (v *VFS) SetTransactionStatus(id txn.ID, status txn.Status) {
	v.txns.SetStatus(id, status)
}

// CreateNode creates (or, if a same-named child already exists, updates
// the physical id of) a node under parentID. Grounded on filesystem.cpp's
// create-or-update primitive (SPEC_FULL.md §12.4).
func (v *VFS) CreateNode(parentID uint64, name string, typ NodeType, physID int64) (createdID uint64, status CreateNodeStatus) {
	parent := v.graph.GetNodeByID(parentID)
	if parent == nil {
		return 0, NodeFailedNoParent
	}
	if existing := parent.FindChild(name); existing != nil {
		existing.PhysID = physID
		return existing.ID, NodeUpdated
	}
	child := v.graph.CreateNode()
	child.Type = typ
	child.Name = name
	child.PhysID = physID
	parent.AddChild(child)
	return child.ID, NodeCreated
}

// CloseProcess runs every open descriptor of task's process through its
// normal close path, then frees the table and the process's working
// directory entry (spec §4.2 "on process close").
func (v *VFS) CloseProcess(task *sched.Task, onDone func()) {
	pid := task.ProcessID
	descs := v.fds.Descriptors(pid)
	if len(descs) == 0 {
		v.fds.UnmapAll(pid)
		v.clearCwd(pid)
		onDone()
		return
	}

	remaining := len(descs)
	for _, d := range descs {
		fd := d.Fd
		v.Close(task, pid, fd, func(CloseCallStatus) {
			remaining--
			if remaining == 0 {
				v.fds.UnmapAll(pid)
				v.clearCwd(pid)
				onDone()
			}
		})
	}
}

// ForkProcess duplicates srcPid's whole descriptor table and working
// directory into dstPid, adding a pipe reference for dstPid wherever a
// cloned descriptor points at a pipe (spec §4.2 "on process fork").
func (v *VFS) ForkProcess(srcPid, dstPid uint64) {
	v.fds.CloneProcess(srcPid, dstPid)
	for _, d := range v.fds.Descriptors(dstPid) {
		if node := v.graph.GetNodeByID(d.NodeID); node != nil && node.Type == NodePipe {
			v.pipes.AddReference(pipe.ID(node.PhysID), dstPid)
		}
	}
	v.mu.Lock()
	if cwd, ok := v.cwd[srcPid]; ok {
		v.cwd[dstPid] = cwd
	}
	v.mu.Unlock()
}

func (v *VFS) clearCwd(pid uint64) {
	v.mu.Lock()
	delete(v.cwd, pid)
	v.mu.Unlock()
}
