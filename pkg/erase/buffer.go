// Package erase invalidates the region of a time-crossing map explained by
// an accepted branch.
package erase

import "neurontrace/internal/models"

// Buffer is a reusable scratch volume recording which voxels lie inside the
// tube around a path. It tracks the voxels it marks so Reset only touches
// those instead of the whole grid.
type Buffer struct {
	width, height, depth int

	marked []bool
	list   []int
}

// NewBuffer allocates a scratch buffer for a grid of the given extents.
func NewBuffer(width, height, depth int) *Buffer {
	return &Buffer{
		width:  width,
		height: height,
		depth:  depth,
		marked: make([]bool, width*height*depth),
	}
}

// MarkCube marks the cube of half-width r centred on (x, y, z), clipped to
// the grid.
func (b *Buffer) MarkCube(x, y, z, r int) {
	x0, x1 := models.ClampRange(x-r, x+r+1, b.width)
	y0, y1 := models.ClampRange(y-r, y+r+1, b.height)
	z0, z1 := models.ClampRange(z-r, z+r+1, b.depth)

	for i := x0; i < x1; i++ {
		for j := y0; j < y1; j++ {
			base := (i*b.height + j) * b.depth
			for k := z0; k < z1; k++ {
				idx := base + k
				if !b.marked[idx] {
					b.marked[idx] = true
					b.list = append(b.list, idx)
				}
			}
		}
	}
}

// IsMarked reports whether the voxel at flat index idx is marked.
func (b *Buffer) IsMarked(idx int) bool { return b.marked[idx] }

// Marked returns the flat indices of marked voxels in marking order. The
// slice is only valid until the next Reset.
func (b *Buffer) Marked() []int { return b.list }

// Count returns the number of marked voxels.
func (b *Buffer) Count() int { return len(b.list) }

// Reset clears every mark, keeping the allocation.
func (b *Buffer) Reset() {
	for _, idx := range b.list {
		b.marked[idx] = false
	}
	b.list = b.list[:0]
}
