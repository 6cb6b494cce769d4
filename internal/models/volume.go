// Package models holds the grid types shared by the tracing packages.
package models

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Volume represents a dense 3D scalar grid. It is used both for real-valued
// maps (the time-crossing map, gradient components) and for binary masks,
// where any value above zero counts as foreground.
type Volume struct {
	// Data is the volume data as a 1D array in x-major order:
	// idx = (x*Height + y)*Depth + z
	Data []float64

	// Width is the extent along x in voxels
	Width int

	// Height is the extent along y in voxels
	Height int

	// Depth is the extent along z in voxels
	Depth int
}

// Sentinel values written into a time-crossing map during tracing. Both are
// below every valid arrival time.
const (
	// Visited marks voxels already explained by the traced tree.
	Visited = -1.0

	// Background marks voxels outside the foreground mask.
	Background = -2.0
)

// radiusDensity is the minimum foreground fraction a cube must keep for the
// local radius estimate to keep growing.
const radiusDensity = 0.6

// NewVolume allocates a zero-filled volume with the given extents.
func NewVolume(width, height, depth int) *Volume {
	return &Volume{
		Data:   make([]float64, width*height*depth),
		Width:  width,
		Height: height,
		Depth:  depth,
	}
}

// NewVolumeFromData wraps existing data, checking that its length matches the extents.
func NewVolumeFromData(data []float64, width, height, depth int) (*Volume, error) {
	if width <= 0 || height <= 0 || depth <= 0 {
		return nil, fmt.Errorf("volume extents must be positive, got %dx%dx%d", width, height, depth)
	}
	if len(data) != width*height*depth {
		return nil, fmt.Errorf("volume data has %d voxels, extents %dx%dx%d need %d",
			len(data), width, height, depth, width*height*depth)
	}
	return &Volume{Data: data, Width: width, Height: height, Depth: depth}, nil
}

// Len returns the number of voxels.
func (v *Volume) Len() int { return len(v.Data) }

// Index returns the flat index of voxel (x, y, z). The caller must ensure the
// voxel is inside the grid.
func (v *Volume) Index(x, y, z int) int {
	return (x*v.Height+y)*v.Depth + z
}

// Coords is the inverse of Index.
func (v *Volume) Coords(idx int) (x, y, z int) {
	z = idx % v.Depth
	y = (idx / v.Depth) % v.Height
	x = idx / (v.Depth * v.Height)
	return x, y, z
}

// At returns the value at voxel (x, y, z).
func (v *Volume) At(x, y, z int) float64 {
	return v.Data[v.Index(x, y, z)]
}

// Set stores a value at voxel (x, y, z).
func (v *Volume) Set(x, y, z int, value float64) {
	v.Data[v.Index(x, y, z)] = value
}

// Contains reports whether the integer voxel lies inside the grid.
func (v *Volume) Contains(x, y, z int) bool {
	return x >= 0 && y >= 0 && z >= 0 && x < v.Width && y < v.Height && z < v.Depth
}

// InBounds reports whether a continuous position lies inside [0, n-1] on
// every axis, the domain on which the grid can be interpolated.
func (v *Volume) InBounds(p r3.Vec) bool {
	return p.X >= 0 && p.Y >= 0 && p.Z >= 0 &&
		p.X <= float64(v.Width-1) && p.Y <= float64(v.Height-1) && p.Z <= float64(v.Depth-1)
}

// SameShape reports whether two volumes have identical extents.
func (v *Volume) SameShape(o *Volume) bool {
	return o != nil && v.Width == o.Width && v.Height == o.Height && v.Depth == o.Depth
}

// Clone returns a deep copy of the volume.
func (v *Volume) Clone() *Volume {
	data := make([]float64, len(v.Data))
	copy(data, v.Data)
	return &Volume{Data: data, Width: v.Width, Height: v.Height, Depth: v.Depth}
}

// Foreground reports whether the voxel at flat index idx is foreground.
func (v *Volume) Foreground(idx int) bool {
	return v.Data[idx] > 0
}

// ForegroundAt reports whether the voxel under a continuous position is
// foreground. Positions outside the grid are background.
func (v *Volume) ForegroundAt(p r3.Vec) bool {
	x, y, z := Voxel(p)
	if !v.Contains(x, y, z) {
		return false
	}
	return v.At(x, y, z) > 0
}

// CountForeground returns the number of voxels with a value above zero.
func (v *Volume) CountForeground() int {
	n := 0
	for _, val := range v.Data {
		if val > 0 {
			n++
		}
	}
	return n
}

// ClampRange clips the half-open interval [lo, hi) to [0, n).
func ClampRange(lo, hi, n int) (int, int) {
	if lo < 0 {
		lo = 0
	}
	if hi > n {
		hi = n
	}
	return lo, hi
}

// countCube counts foreground voxels in the cube of half-width r centred on
// (x, y, z), clipped to the grid.
func (v *Volume) countCube(x, y, z, r int) int {
	x0, x1 := ClampRange(x-r, x+r+1, v.Width)
	y0, y1 := ClampRange(y-r, y+r+1, v.Height)
	z0, z1 := ClampRange(z-r, z+r+1, v.Depth)

	n := 0
	for i := x0; i < x1; i++ {
		for j := y0; j < y1; j++ {
			base := (i*v.Height + j) * v.Depth
			for k := z0; k < z1; k++ {
				if v.Data[base+k] > 0 {
					n++
				}
			}
		}
	}
	return n
}

// LocalDensity returns the foreground fraction of the cube of half-width r
// around (x, y, z). Voxels clipped by the grid border count as background.
func (v *Volume) LocalDensity(x, y, z, r int) float64 {
	side := float64(2*r + 1)
	return float64(v.countCube(x, y, z, r)) / (side * side * side)
}

// LocalRadius estimates the radius of the foreground structure around a
// voxel. The cube is grown one voxel at a time until less than 60% of it is
// foreground; the first radius that fails is returned, so the result is at
// least 1.
func (v *Volume) LocalRadius(x, y, z int) int {
	limit := v.Width
	if v.Height > limit {
		limit = v.Height
	}
	if v.Depth > limit {
		limit = v.Depth
	}

	r := 0
	for {
		r++
		if v.LocalDensity(x, y, z, r) < radiusDensity || r >= limit {
			return r
		}
	}
}

// Voxel floors a continuous position to its voxel index.
func Voxel(p r3.Vec) (x, y, z int) {
	return int(math.Floor(p.X)), int(math.Floor(p.Y)), int(math.Floor(p.Z))
}

// VoxelCenter returns the position of voxel (x, y, z) as a vector.
func VoxelCenter(x, y, z int) r3.Vec {
	return r3.Vec{X: float64(x), Y: float64(y), Z: float64(z)}
}
