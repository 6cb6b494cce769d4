// Package swc assembles traced branches into a tree and reads and writes
// the 7-column SWC connectivity format (id, type, x, y, z, radius, parent).
package swc

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// SWC node type codes.
const (
	TypeSoma     = 1
	TypeBasal    = 3
	TypeFork     = 5
	TypeTip      = 6
	TypeArtifact = 200
)

// SomaID is reserved for the root node.
const SomaID = 1

// firstNodeID is the id given to the first traced node.
const firstNodeID = 2

// ParentKind distinguishes the states a node's parent link can be in.
type ParentKind int

const (
	// ParentRoot marks the tree root (the soma).
	ParentRoot ParentKind = iota

	// ParentPending marks a branch end that has not been connected yet.
	ParentPending

	// ParentConnected marks a resolved link to another node.
	ParentConnected
)

// String implements fmt.Stringer
func (k ParentKind) String() string {
	switch k {
	case ParentRoot:
		return "root"
	case ParentPending:
		return "pending"
	case ParentConnected:
		return "connected"
	default:
		return fmt.Sprintf("ParentKind(%d)", int(k))
	}
}

// Parent is a node's link toward the root. ID is only meaningful when Kind
// is ParentConnected.
type Parent struct {
	Kind ParentKind
	ID   int
}

// Root returns the parent state of the tree root.
func Root() Parent { return Parent{Kind: ParentRoot} }

// Pending returns the parent state of an unresolved branch end.
func Pending() Parent { return Parent{Kind: ParentPending} }

// ConnectedTo returns a resolved parent link.
func ConnectedTo(id int) Parent { return Parent{Kind: ParentConnected, ID: id} }

// Connected reports whether the link is resolved.
func (p Parent) Connected() bool { return p.Kind == ParentConnected }

// SWC returns the parent column value: the parent id, or -1 when the node
// has no parent.
func (p Parent) SWC() int {
	if p.Kind == ParentConnected {
		return p.ID
	}
	return -1
}

// Node is one traced sample.
type Node struct {
	ID     int
	Type   int
	Pos    r3.Vec
	Radius float64
	Parent Parent
}

// Record is one finalized SWC row.
type Record struct {
	ID     int
	Type   int
	X      float64
	Y      float64
	Z      float64
	Radius float64
	Parent int
}

// Pos returns the record position as a vector.
func (r Record) Pos() r3.Vec {
	return r3.Vec{X: r.X, Y: r.Y, Z: r.Z}
}
