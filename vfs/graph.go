package vfs

import (
	"fmt"
	"strings"
	"sync"
)

// Graph owns every Node and the monotone id counter that names them,
// grounded on original_source/.../filesystem.cpp's node map plus
// fuse/nodefs/fsconnector.go's Node(parent, fullPath) path walker for the
// lexical-resolution idiom.
type Graph struct {
	mu     sync.RWMutex
	nextID uint64
	nodes  map[uint64]*Node
	root   *Node

	maxPathLen int
}

// NewGraph creates a graph containing only its root node (type NodeRoot,
// id 0).
func NewGraph(maxPathLen int) *Graph {
	g := &Graph{
		nodes:      make(map[uint64]*Node),
		maxPathLen: maxPathLen,
	}
	g.root = g.CreateNode()
	g.root.Type = NodeRoot
	return g
}

// Root returns the graph's root node.
func (g *Graph) Root() *Node {
	return g.root
}

// CreateNode allocates a fresh node with the next monotone id and
// registers it in the graph, matching g_filesystem::create_node.
func (g *Graph) CreateNode() *Node {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.nextID
	g.nextID++
	n := newNode(id)
	g.nodes[id] = n
	return n
}

// GetNodeByID looks up a node by its id, or returns nil.
func (g *Graph) GetNodeByID(id uint64) *Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodes[id]
}

// FindExisting walks absolutePath component by component starting at the
// root, following ".." and "." specially, exactly as
// g_filesystem::find_existing does. It returns the deepest parent reached,
// the child found there (nil if the full path could not be resolved), and
// the name of that last path component (needed by the caller to ask a
// delegate to discover it).
func (g *Graph) FindExisting(absolutePath string) (parent, child *Node, lastName string) {
	child = g.root
	trimmed := strings.Trim(absolutePath, "/")
	var parts []string
	if trimmed != "" {
		parts = strings.Split(trimmed, "/")
	}

	for _, part := range parts {
		parent = child
		lastName = part

		switch part {
		case "..":
			if parent.Parent != nil {
				child = parent.Parent
			}
		case ".":
			// stay
		default:
			child = parent.FindChild(part)
			if child == nil {
				return parent, nil, lastName
			}
		}
	}

	return parent, child, lastName
}

// GetRealPath reconstructs the absolute path of node by walking parent
// links up to the root, matching
// g_filesystem::get_real_path_to_node.
func (g *Graph) GetRealPath(node *Node) string {
	var segments []string
	for cur := node; cur != nil && cur.Type != NodeRoot; cur = cur.Parent {
		if cur.Name == "" {
			break
		}
		segments = append(segments, cur.Name)
	}
	if len(segments) == 0 {
		return "/"
	}
	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}
	return "/" + strings.Join(segments, "/")
}

// ConcatAsAbsolute resolves "in" against relativeBase the way
// g_filesystem::concat_as_absolute_path does: an absolute "in" is
// returned unchanged, a relative one is appended to relativeBase.
func (g *Graph) ConcatAsAbsolute(relativeBase, in string) (string, error) {
	if in == "" {
		return "", nil
	}
	var out string
	if strings.HasPrefix(in, "/") {
		out = in
	} else {
		out = relativeBase + "/" + in
	}
	if g.maxPathLen > 0 && len(out) > g.maxPathLen {
		return "", fmt.Errorf("vfs: path exceeds maximum length of %d bytes", g.maxPathLen)
	}
	return out, nil
}
