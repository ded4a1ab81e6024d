// Package fdtable implements the per-process file descriptor table (spec
// §4.2): a map from a small integer fd to the node it refers to, an
// independent read/write offset, and the flags it was opened with.
package fdtable

import "sync"

// Fd is a process-local file descriptor.
type Fd int32

// firstFd mirrors the original kernel's reservation of 0/1/2 for
// stdin/stdout/stderr even though this core never wires those up itself;
// keeping the same starting value keeps fd numbers comparable to the
// original system's traces.
const firstFd Fd = 3

// OpenFlags mirrors the subset of open(2)-style flags this core cares
// about: spec §4.2 only ever inspects "was this opened for append/truncate"
// style bits, never the full POSIX set.
type OpenFlags int32

// The individual bits a delegate's RequestOpen/RequestWrite may need to
// branch on. Values are arbitrary (this core never crosses a real open(2)
// boundary) but the bit positions are disjoint so flags compose with |.
const (
	FlagCreate   OpenFlags = 1 << iota // create the target if it doesn't exist
	FlagTruncate                       // truncate an existing target to zero length
	FlagAppend                         // writes start at the current end of file
)

// Descriptor is one entry of a process's descriptor table.
type Descriptor struct {
	Fd     Fd
	NodeID uint64
	Offset int64
	Flags  OpenFlags
}

// cloneInto copies the mutable fields of a descriptor into a fresh one
// bound to a new fd, matching fs_descriptors.hpp's clone_into (used when a
// process forks and its whole table is duplicated, or when dup()-like
// CloneFd is requested).
func (d *Descriptor) cloneInto(newFd Fd) *Descriptor {
	return &Descriptor{
		Fd:     newFd,
		NodeID: d.NodeID,
		Offset: d.Offset,
		Flags:  d.Flags,
	}
}

// Table is one process's descriptor table.
type Table struct {
	mu          sync.RWMutex
	nextFd      Fd
	descriptors map[Fd]*Descriptor
}

func newTable() *Table {
	return &Table{
		nextFd:      firstFd,
		descriptors: make(map[Fd]*Descriptor),
	}
}

// Manager owns one Table per process, keyed by pid.
type Manager struct {
	mu     sync.Mutex
	tables map[uint64]*Table
}

// NewManager creates an empty table-of-tables.
func NewManager() *Manager {
	return &Manager{tables: make(map[uint64]*Table)}
}

func (m *Manager) tableFor(pid uint64) *Table {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[pid]
	if !ok {
		t = newTable()
		m.tables[pid] = t
	}
	return t
}

// Map installs a new descriptor for the given process pointing at nodeID,
// allocating the next free fd, and returns it. It mirrors
// g_file_descriptors::map's "create_descriptor with override_fd = -1" path.
func (m *Manager) Map(pid uint64, nodeID uint64, flags OpenFlags) Fd {
	t := m.tableFor(pid)
	t.mu.Lock()
	defer t.mu.Unlock()
	fd := t.nextFd
	t.nextFd++
	t.descriptors[fd] = &Descriptor{Fd: fd, NodeID: nodeID, Flags: flags}
	return fd
}

// Unmap removes one descriptor from a process's table. Unmapping an
// unknown fd is a no-op, matching the original's tolerant unmap.
func (m *Manager) Unmap(pid uint64, fd Fd) {
	t := m.tableFor(pid)
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.descriptors, fd)
}

// UnmapAll drops every descriptor belonging to a process, used when a
// process exits (g_file_descriptors::unmap_all).
func (m *Manager) UnmapAll(pid uint64) {
	m.mu.Lock()
	delete(m.tables, pid)
	m.mu.Unlock()
}

// Get returns the descriptor for pid/fd, or nil if it doesn't exist.
func (m *Manager) Get(pid uint64, fd Fd) *Descriptor {
	t := m.tableFor(pid)
	t.mu.RLock()
	defer t.mu.RUnlock()
	d, ok := t.descriptors[fd]
	if !ok {
		return nil
	}
	cp := *d
	return &cp
}

// SetOffset updates the stored offset for a descriptor, used by Seek/Read/
// Write to persist the new file position between syscalls.
func (m *Manager) SetOffset(pid uint64, fd Fd, offset int64) bool {
	t := m.tableFor(pid)
	t.mu.Lock()
	defer t.mu.Unlock()
	d, ok := t.descriptors[fd]
	if !ok {
		return false
	}
	d.Offset = offset
	return true
}

// Descriptors returns a snapshot of every descriptor currently open in
// pid's table, used by process-close (to drive each one through its
// delegate) and by fork (to duplicate pipe references).
func (m *Manager) Descriptors(pid uint64) []Descriptor {
	t := m.tableFor(pid)
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Descriptor, 0, len(t.descriptors))
	for _, d := range t.descriptors {
		out = append(out, *d)
	}
	return out
}

// MapAt installs a descriptor at an explicit fd value rather than the next
// free one, matching g_file_descriptors::map's override_fd path (used by
// clonefd's caller-supplied target fd). nextFd is advanced past fd so a
// later plain Map never collides with it.
func (m *Manager) MapAt(pid uint64, fd Fd, nodeID uint64, flags OpenFlags) {
	t := m.tableFor(pid)
	t.mu.Lock()
	defer t.mu.Unlock()
	t.descriptors[fd] = &Descriptor{Fd: fd, NodeID: nodeID, Flags: flags}
	if fd >= t.nextFd {
		t.nextFd = fd + 1
	}
}

// Clone duplicates one descriptor under a fresh fd in the same process's
// table (dup()-style CloneFd, spec §4.2's "cloning" note).
func (m *Manager) Clone(pid uint64, fd Fd) (Fd, bool) {
	t := m.tableFor(pid)
	t.mu.Lock()
	defer t.mu.Unlock()
	src, ok := t.descriptors[fd]
	if !ok {
		return 0, false
	}
	newFd := t.nextFd
	t.nextFd++
	t.descriptors[newFd] = src.cloneInto(newFd)
	return newFd, true
}

// CloneProcess duplicates every descriptor of srcPid into dstPid under the
// identical fd numbers, matching a fork()'s whole-table copy.
func (m *Manager) CloneProcess(srcPid, dstPid uint64) {
	src := m.tableFor(srcPid)
	src.mu.RLock()
	defer src.mu.RUnlock()

	dst := m.tableFor(dstPid)
	dst.mu.Lock()
	defer dst.mu.Unlock()
	dst.nextFd = src.nextFd
	for fd, d := range src.descriptors {
		dst.descriptors[fd] = d.cloneInto(fd)
	}
}
