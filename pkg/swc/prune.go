package swc

import (
	"gonum.org/v1/gonum/stat"

	"neurontrace/internal/models"
)

// Default pruning parameters.
const (
	DefaultPruneLength     = 6
	DefaultPruneConfidence = 0.5
)

// Prune removes short, poorly supported leaf branches until none remain.
// A leaf branch is the chain from a childless node toward the root, ending
// at the first node whose parent is absent from the tree or has other
// children. It is removed when it has fewer than length nodes and the mean
// foreground density supporting its nodes is below conf. It returns the
// number of nodes removed.
func (t *Tree) Prune(mask *models.Volume, length int, conf float64) int {
	removed := 0
	for {
		dump := t.shortLeaves(mask, length, conf)
		if len(dump) == 0 {
			return removed
		}
		t.remove(dump)
		removed += len(dump)
	}
}

func (t *Tree) shortLeaves(mask *models.Volume, length int, conf float64) map[int]bool {
	children := t.children()
	dump := make(map[int]bool)

	for _, leaf := range t.nodes {
		if children[leaf.ID] > 0 {
			continue
		}

		branch := []*Node{leaf}
		for cur := leaf; cur.Parent.Connected(); {
			parent, ok := t.byID[cur.Parent.ID]
			if !ok || children[parent.ID] != 1 {
				break
			}
			branch = append(branch, parent)
			cur = parent
		}

		if len(branch) >= length {
			continue
		}
		if branchConfidence(branch, mask) < conf {
			for _, n := range branch {
				dump[n.ID] = true
			}
		}
	}
	return dump
}

// branchConfidence is the mean local foreground density over the branch.
// A node's radius is the first cube size that is mostly background, so
// density is taken one voxel inside it, the largest cube that still held the
// structure. A radius 1 node is measured on its own voxel.
func branchConfidence(branch []*Node, mask *models.Volume) float64 {
	density := make([]float64, len(branch))
	for i, n := range branch {
		x, y, z := models.Voxel(n.Pos)
		r := max(int(n.Radius)-1, 0)
		density[i] = mask.LocalDensity(x, y, z, r)
	}
	return stat.Mean(density, nil)
}
