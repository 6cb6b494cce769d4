// Package gradient provides continuous lookups into the gradient of a
// time-crossing map.
package gradient

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"neurontrace/internal/models"
)

// ErrOutOfBounds is returned when a lookup falls outside the sampled grid.
// Callers treat it as an integration failure, never as a value to clamp.
var ErrOutOfBounds = errors.New("gradient: position outside grid")

// Func computes the per-axis gradient volumes of a scalar map. It is the
// seam through which an external gradient collaborator can be plugged in.
type Func func(t *models.Volume) (*Field, error)

// Field holds the three gradient components of a time-crossing map.
// A Field is read-only once built and may be shared between tracers.
type Field struct {
	dx, dy, dz *models.Volume
}

// NewField wraps precomputed gradient volumes. All three must share extents.
func NewField(dx, dy, dz *models.Volume) (*Field, error) {
	if dx == nil || dy == nil || dz == nil {
		return nil, fmt.Errorf("gradient: all three component volumes are required")
	}
	if !dx.SameShape(dy) || !dx.SameShape(dz) {
		return nil, fmt.Errorf("gradient: component volumes differ in shape")
	}
	return &Field{dx: dx, dy: dy, dz: dz}, nil
}

// Bounds returns the grid the field is sampled on.
func (f *Field) Bounds() (width, height, depth int) {
	return f.dx.Width, f.dx.Height, f.dx.Depth
}

// At returns the trilinearly interpolated gradient at p.
func (f *Field) At(p r3.Vec) (r3.Vec, error) {
	if !f.dx.InBounds(p) {
		return r3.Vec{}, fmt.Errorf("%w: (%.3f, %.3f, %.3f)", ErrOutOfBounds, p.X, p.Y, p.Z)
	}
	c := newCell(f.dx, p)
	return r3.Vec{
		X: c.interpolate(f.dx),
		Y: c.interpolate(f.dy),
		Z: c.interpolate(f.dz),
	}, nil
}

// cell caches the corner indices and weights of one trilinear lookup so the
// three components reuse them.
type cell struct {
	x0, x1, y0, y1, z0, z1 int
	fx, fy, fz             float64
}

func newCell(v *models.Volume, p r3.Vec) cell {
	var c cell
	c.x0, c.x1, c.fx = corner(p.X, v.Width)
	c.y0, c.y1, c.fy = corner(p.Y, v.Height)
	c.z0, c.z1, c.fz = corner(p.Z, v.Depth)
	return c
}

// corner returns the lower and upper sample indices around coordinate u and
// the fractional offset between them. u is assumed to be in [0, n-1].
func corner(u float64, n int) (int, int, float64) {
	i0 := int(math.Floor(u))
	if i0 >= n-1 {
		i0 = n - 1
		return i0, i0, 0
	}
	return i0, i0 + 1, u - float64(i0)
}

func (c cell) interpolate(v *models.Volume) float64 {
	c00 := lerp(v.At(c.x0, c.y0, c.z0), v.At(c.x1, c.y0, c.z0), c.fx)
	c01 := lerp(v.At(c.x0, c.y0, c.z1), v.At(c.x1, c.y0, c.z1), c.fx)
	c10 := lerp(v.At(c.x0, c.y1, c.z0), v.At(c.x1, c.y1, c.z0), c.fx)
	c11 := lerp(v.At(c.x0, c.y1, c.z1), v.At(c.x1, c.y1, c.z1), c.fx)

	c0 := lerp(c00, c10, c.fy)
	c1 := lerp(c01, c11, c.fy)
	return lerp(c0, c1, c.fz)
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
