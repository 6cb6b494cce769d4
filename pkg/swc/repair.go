package swc

// DefaultRepairRadius is the matching radius used when reconnecting pending
// branch ends after tracing.
const DefaultRepairRadius = 3.0

// Repair tries to connect every pending node to a node traced after it
// (a larger id). Nodes that find no partner are retyped as artifacts and
// keep no parent. Candidates that descend from the pending node itself are
// skipped so the result stays acyclic. It returns the number of nodes
// connected and the number marked as artifacts.
func (t *Tree) Repair(radius float64) (connected, artifacts int) {
	// Walk ids downward so the index only ever holds larger ids.
	later := NewIndex()
	for i := len(t.nodes) - 1; i >= 0; i-- {
		n := t.nodes[i]
		if n.Parent.Kind == ParentPending {
			matched := false
			for _, c := range later.Candidates(n.Pos, radius) {
				if t.isAncestor(n.ID, c.ID) {
					continue
				}
				n.Parent = ConnectedTo(c.ID)
				matched = true
				break
			}
			if matched {
				connected++
			} else {
				n.Type = TypeArtifact
				artifacts++
			}
		}
		later.Insert(n)
	}
	return connected, artifacts
}
