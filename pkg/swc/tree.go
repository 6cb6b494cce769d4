package swc

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// Tree collects traced branches. Node ids are assigned sequentially from 2
// in trace order; id 1 is reserved for the soma, which is only added when
// the tree is finalized.
type Tree struct {
	nodes  []*Node
	byID   map[int]*Node
	nextID int
	index  *Index
}

// NewTree creates an empty tree.
func NewTree() *Tree {
	return &Tree{
		byID:   make(map[int]*Node),
		nextID: firstNodeID,
		index:  NewIndex(),
	}
}

// Len returns the number of traced nodes (the soma excluded).
func (t *Tree) Len() int { return len(t.nodes) }

// Empty reports whether no branch has been added yet.
func (t *Tree) Empty() bool { return len(t.nodes) == 0 }

// Nodes returns the traced nodes in id order. The slice must not be modified.
func (t *Tree) Nodes() []*Node { return t.nodes }

// Node returns the node with the given id.
func (t *Tree) Node(id int) (*Node, bool) {
	n, ok := t.byID[id]
	return n, ok
}

// AppendBranch adds a path as a chain of nodes. path[0] is the branch tip;
// each node's parent is the next node along the path and the last node gets
// conn. radii holds one radius per node. It returns the ids of the new nodes.
func (t *Tree) AppendBranch(path []r3.Vec, radii []float64, conn Parent) ([]int, error) {
	if len(path) == 0 {
		return nil, fmt.Errorf("swc: empty branch")
	}
	if len(radii) != len(path) {
		return nil, fmt.Errorf("swc: %d radii for %d nodes", len(radii), len(path))
	}
	if conn.Kind == ParentRoot {
		return nil, fmt.Errorf("swc: a branch cannot be a root")
	}
	if conn.Connected() && conn.ID != SomaID {
		target, ok := t.byID[conn.ID]
		if !ok {
			return nil, fmt.Errorf("swc: connection target %d does not exist", conn.ID)
		}
		target.Type = TypeFork
	}

	ids := make([]int, len(path))
	start := t.nextID
	for i, p := range path {
		n := &Node{
			ID:     start + i,
			Type:   TypeBasal,
			Pos:    p,
			Radius: radii[i],
			Parent: ConnectedTo(start + i + 1),
		}
		if i == 0 {
			n.Type = TypeTip
		}
		if i == len(path)-1 {
			n.Parent = conn
		}
		t.add(n)
		ids[i] = n.ID
	}
	t.nextID = start + len(path)
	return ids, nil
}

func (t *Tree) add(n *Node) {
	t.nodes = append(t.nodes, n)
	t.byID[n.ID] = n
	t.index.Insert(n)
}

// Match finds the nearest node covering p, for connecting a branch that
// runs into already traced territory.
func (t *Tree) Match(p r3.Vec, radius float64) (int, bool) {
	return t.index.Match(p, radius)
}

// children counts, per node id, the connected children present in the tree.
func (t *Tree) children() map[int]int {
	counts := make(map[int]int, len(t.nodes))
	for _, n := range t.nodes {
		if n.Parent.Connected() {
			counts[n.Parent.ID]++
		}
	}
	return counts
}

// remove drops the given ids and rebuilds the spatial index.
func (t *Tree) remove(ids map[int]bool) {
	kept := t.nodes[:0]
	for _, n := range t.nodes {
		if ids[n.ID] {
			delete(t.byID, n.ID)
			continue
		}
		kept = append(kept, n)
	}
	t.nodes = kept
	t.index = newIndexFromNodes(t.nodes)
}

// isAncestor reports whether id lies on the parent chain starting at from.
func (t *Tree) isAncestor(id, from int) bool {
	seen := make(map[int]bool)
	for cur := from; ; {
		if cur == id {
			return true
		}
		if seen[cur] {
			return false
		}
		seen[cur] = true
		n, ok := t.byID[cur]
		if !ok || !n.Parent.Connected() {
			return false
		}
		cur = n.Parent.ID
	}
}
