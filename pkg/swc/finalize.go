package swc

import (
	"sort"

	"gonum.org/v1/gonum/spatial/r3"
)

// Finalize attaches the soma as the root and renumbers the tree so that
// every parent precedes its children. The soma is the first record with id
// 1 and parent -1. Its subtree follows in depth-first order, then each
// unconnected subtree (artifact roots), also with parent -1. Siblings are
// visited in trace order. The tree itself is not modified.
//
// Rows therefore do not come out in the order branches were appended, and
// their ids differ from the trace-time ids in Node.ID: a traced branch is
// stored tip first with each node pointing at the next, so keeping append
// order would give children smaller ids than their parents. Consumers
// that need to relate rows to trace-time nodes must match on coordinates.
func (t *Tree) Finalize(soma r3.Vec, somaRadius float64) []Record {
	kids := make(map[int][]*Node, len(t.nodes))
	var roots []*Node
	for _, n := range t.nodes {
		if n.Parent.Connected() {
			if _, ok := t.byID[n.Parent.ID]; ok || n.Parent.ID == SomaID {
				kids[n.Parent.ID] = append(kids[n.Parent.ID], n)
				continue
			}
		}
		roots = append(roots, n)
	}
	for _, list := range kids {
		sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	}

	records := make([]Record, 0, len(t.nodes)+1)
	records = append(records, Record{
		ID:     SomaID,
		Type:   TypeSoma,
		X:      soma.X,
		Y:      soma.Y,
		Z:      soma.Z,
		Radius: somaRadius,
		Parent: -1,
	})

	next := firstNodeID

	type frame struct {
		node   *Node
		parent int
	}
	walk := func(start []frame) {
		stack := make([]frame, 0, len(start))
		for i := len(start) - 1; i >= 0; i-- {
			stack = append(stack, start[i])
		}
		for len(stack) > 0 {
			f := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			id := next
			next++
			records = append(records, Record{
				ID:     id,
				Type:   f.node.Type,
				X:      f.node.Pos.X,
				Y:      f.node.Pos.Y,
				Z:      f.node.Pos.Z,
				Radius: f.node.Radius,
				Parent: f.parent,
			})

			children := kids[f.node.ID]
			for i := len(children) - 1; i >= 0; i-- {
				stack = append(stack, frame{node: children[i], parent: id})
			}
		}
	}

	somaKids := make([]frame, 0, len(kids[SomaID]))
	for _, n := range kids[SomaID] {
		somaKids = append(somaKids, frame{node: n, parent: SomaID})
	}
	walk(somaKids)

	for _, r := range roots {
		walk([]frame{{node: r, parent: -1}})
	}

	return records
}
