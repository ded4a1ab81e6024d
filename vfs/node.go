package vfs

import "sync"

// NodeType classifies a Node the way the original's g_fs_node_type does.
type NodeType int

const (
	NodeRoot NodeType = iota
	NodeMountpoint
	NodeFolder
	NodeFile
	NodePipe
)

func (t NodeType) String() string {
	switch t {
	case NodeRoot:
		return "root"
	case NodeMountpoint:
		return "mountpoint"
	case NodeFolder:
		return "folder"
	case NodeFile:
		return "file"
	case NodePipe:
		return "pipe"
	default:
		return "unknown"
	}
}

// Node is one entry of the VFS tree (spec §4.1): grounded on
// fuse/nodefs/inode.go's Inode (children map, parent back-link, a
// per-node lock guarding the children set) and on
// original_source/.../fs_node.hpp for the domain fields (PhysID,
// ContentsValid, lexical Delegate resolution).
type Node struct {
	mu sync.RWMutex

	ID           uint64
	Type         NodeType
	Name         string
	Parent       *Node
	childOrder   []*Node
	childByName  map[string]*Node

	// PhysID is the delegate-assigned physical identifier for this node
	// (e.g. a ramdisk file id, or a pipe id) — opaque to the graph
	// itself, only meaningful to the owning delegate.
	PhysID int64

	// ContentsValid is true once a directory's children are known to be
	// a complete, up-to-date reflection of its delegate's backing store
	// (spec §4.3.4's directory-refresh machinery).
	ContentsValid bool

	// Blocking is a per-node blocking flag. No delegate in this
	// repository reads it: a pipe's blocking mode is the one held by its
	// pipe.Pipe (Pipe.SetBlocking).
	Blocking bool

	delegate Delegate
}

func newNode(id uint64) *Node {
	return &Node{ID: id, childByName: make(map[string]*Node)}
}

// SetDelegate attaches the delegate responsible for this node's
// operations. A node with no delegate of its own resolves lexically
// through its nearest ancestor that has one (spec §4.1 "lexical delegate
// resolution").
func (n *Node) SetDelegate(d Delegate) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.delegate = d
}

// Delegate resolves the operative delegate for this node by walking up to
// the nearest ancestor (including itself) that has one set.
func (n *Node) Delegate() Delegate {
	for cur := n; cur != nil; cur = cur.Parent {
		cur.mu.RLock()
		d := cur.delegate
		cur.mu.RUnlock()
		if d != nil {
			return d
		}
	}
	return nil
}

// AddChild attaches child under n, indexed by its Name. Insertion order is
// preserved so directory listings are stable across refreshes, matching
// the original's singly-linked children list.
func (n *Node) AddChild(child *Node) {
	n.mu.Lock()
	defer n.mu.Unlock()
	child.Parent = n
	if _, exists := n.childByName[child.Name]; !exists {
		n.childOrder = append(n.childOrder, child)
	}
	n.childByName[child.Name] = child
}

// RemoveChild detaches the named child, if present.
func (n *Node) RemoveChild(name string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.childByName[name]; !ok {
		return
	}
	delete(n.childByName, name)
	for i, c := range n.childOrder {
		if c.Name == name {
			n.childOrder = append(n.childOrder[:i], n.childOrder[i+1:]...)
			break
		}
	}
}

// FindChild looks up an immediate child by name.
func (n *Node) FindChild(name string) *Node {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.childByName[name]
}

// Children returns a snapshot slice of this node's children in insertion
// order.
func (n *Node) Children() []*Node {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]*Node, len(n.childOrder))
	copy(out, n.childOrder)
	return out
}

// ChildAt returns the child at the given zero-based position in insertion
// order, used by directory iteration (spec §4.3.4), or nil past the end.
func (n *Node) ChildAt(position int) *Node {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if position < 0 || position >= len(n.childOrder) {
		return nil
	}
	return n.childOrder[position]
}
