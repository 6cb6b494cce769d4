package swc

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
)

// indexPoint is a node position stored in the KD-tree
type indexPoint struct {
	pos    r3.Vec
	id     int
	radius float64
}

// Compare implements the kdtree.Comparable interface
func (p indexPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(indexPoint)
	switch d {
	case 0:
		return p.pos.X - q.pos.X
	case 1:
		return p.pos.Y - q.pos.Y
	case 2:
		return p.pos.Z - q.pos.Z
	default:
		panic("illegal dimension")
	}
}

// Dims returns the number of dimensions for the KD-tree
func (p indexPoint) Dims() int { return 3 }

// Distance returns the squared Euclidean distance between two points
func (p indexPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(indexPoint)
	dx := p.pos.X - q.pos.X
	dy := p.pos.Y - q.pos.Y
	dz := p.pos.Z - q.pos.Z
	return dx*dx + dy*dy + dz*dz
}

// indexPoints is a collection of indexPoint that satisfies kdtree.Interface
type indexPoints []indexPoint

func (p indexPoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p indexPoints) Len() int                              { return len(p) }
func (p indexPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

// Pivot implements the kdtree.Interface method
func (p indexPoints) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(pointPlane{indexPoints: p, Dim: d}, kdtree.MedianOfMedians(pointPlane{indexPoints: p, Dim: d}))
}

// pointPlane implements sort.Interface and kdtree.SortSlicer for indexPoints
type pointPlane struct {
	indexPoints
	kdtree.Dim
}

func (p pointPlane) Less(i, j int) bool {
	switch p.Dim {
	case 0:
		return p.indexPoints[i].pos.X < p.indexPoints[j].pos.X
	case 1:
		return p.indexPoints[i].pos.Y < p.indexPoints[j].pos.Y
	case 2:
		return p.indexPoints[i].pos.Z < p.indexPoints[j].pos.Z
	default:
		panic("illegal dimension")
	}
}

func (p pointPlane) Slice(start, end int) kdtree.SortSlicer {
	return pointPlane{indexPoints: p.indexPoints[start:end], Dim: p.Dim}
}

func (p pointPlane) Swap(i, j int) {
	p.indexPoints[i], p.indexPoints[j] = p.indexPoints[j], p.indexPoints[i]
}

// rebuildMin is the number of unbalanced inserts always tolerated before
// the KD-tree is rebuilt
const rebuildMin = 64

// Index is a spatial index over tree nodes used for connection matching.
// Nodes are inserted incrementally as branches are appended. Branch paths
// arrive in order along a line, which skews an incremental KD-tree, so the
// tree is rebuilt balanced once the inserts since the last build reach
// rebuildMin or the size of that build.
type Index struct {
	tree      *kdtree.Tree
	points    indexPoints
	built     int
	rebuilds  int
	maxRadius float64
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{tree: &kdtree.Tree{}}
}

// newIndexFromNodes builds a balanced index over an existing node set.
func newIndexFromNodes(nodes []*Node) *Index {
	idx := NewIndex()
	if len(nodes) == 0 {
		return idx
	}
	idx.points = make(indexPoints, 0, len(nodes))
	for _, n := range nodes {
		idx.points = append(idx.points, indexPoint{pos: n.Pos, id: n.ID, radius: n.Radius})
		idx.maxRadius = math.Max(idx.maxRadius, n.Radius)
	}
	idx.rebuild()
	return idx
}

// rebuild replaces the KD-tree with a balanced one over every stored point
func (ix *Index) rebuild() {
	// kdtree.New reorders its input
	points := make(indexPoints, len(ix.points))
	copy(points, ix.points)
	ix.tree = kdtree.New(points, false)
	ix.built = len(points)
	ix.rebuilds++
}

// Len returns the number of indexed nodes.
func (ix *Index) Len() int { return len(ix.points) }

// Insert adds a node to the index.
func (ix *Index) Insert(n *Node) {
	p := indexPoint{pos: n.Pos, id: n.ID, radius: n.Radius}
	ix.points = append(ix.points, p)
	ix.maxRadius = math.Max(ix.maxRadius, n.Radius)

	if pending := len(ix.points) - ix.built; pending >= max(rebuildMin, ix.built) {
		ix.rebuild()
		return
	}
	ix.tree.Insert(p, false)
}

// Candidate is a node that can be connected to, with its distance.
type Candidate struct {
	ID       int
	Distance float64
}

// Candidates returns the nodes that cover p, nearest first. A node covers p
// when p lies within radius of it or within the node's own radius. Ties on
// distance are broken by the smaller id.
func (ix *Index) Candidates(p r3.Vec, radius float64) []Candidate {
	if len(ix.points) == 0 {
		return nil
	}

	reach := math.Max(radius, ix.maxRadius)
	keeper := kdtree.NewDistKeeper(reach * reach)
	ix.tree.NearestSet(keeper, indexPoint{pos: p})

	var out []Candidate
	for _, item := range keeper.Heap {
		// Skip the sentinel value
		if item.Comparable == nil {
			continue
		}
		q := item.Comparable.(indexPoint)
		d := math.Sqrt(item.Dist)
		if radius > d || q.radius > d {
			out = append(out, Candidate{ID: q.id, Distance: d})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Match returns the nearest node covering p.
func (ix *Index) Match(p r3.Vec, radius float64) (int, bool) {
	c := ix.Candidates(p, radius)
	if len(c) == 0 {
		return 0, false
	}
	return c[0].ID, true
}
