package erase

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"neurontrace/internal/models"
)

// Default parameters.
const (
	DefaultRatio           = 1.2
	DefaultLengthThreshold = 6
)

// Eraser marks the tube around accepted paths as visited in a time-crossing
// map. It owns its scratch buffer; an Eraser must not be shared between
// concurrent traces.
type Eraser struct {
	mask            *models.Volume
	buf             *Buffer
	ratio           float64
	lengthThreshold int
}

// NewEraser creates an eraser for maps shaped like mask. ratio inflates each
// node's local radius before rasterising; lengthThreshold is the node count
// a path must exceed for band-limited erasure.
func NewEraser(mask *models.Volume, ratio float64, lengthThreshold int) *Eraser {
	return &Eraser{
		mask:            mask,
		buf:             NewBuffer(mask.Width, mask.Height, mask.Depth),
		ratio:           ratio,
		lengthThreshold: lengthThreshold,
	}
}

// Buffer exposes the scratch buffer. It is empty between calls to Erase.
func (e *Eraser) Buffer() *Buffer { return e.buf }

// Mark rasterises the tube around path into the scratch buffer and returns
// the local radius of each node, never below 1.
func (e *Eraser) Mark(path []r3.Vec) []float64 {
	radii := make([]float64, len(path))
	for i, p := range path {
		x, y, z := models.Voxel(p)
		r := 1
		if e.mask.Contains(x, y, z) {
			r = e.mask.LocalRadius(x, y, z)
		}
		if r < 1 {
			r = 1
		}
		radii[i] = float64(r)

		e.buf.MarkCube(x, y, z, int(math.Ceil(float64(r)*e.ratio)))
	}
	return radii
}

// Apply writes models.Visited into tt for the marked region and resets the
// buffer. When the path is longer than the length threshold and descends in
// arrival time, only marked voxels with end < T <= start are erased;
// otherwise the whole marked region is. It returns the number of foreground
// voxels that became visited.
func (e *Eraser) Apply(tt *models.Volume, path []r3.Vec) int {
	defer e.buf.Reset()
	if len(path) == 0 {
		return 0
	}

	start := valueAt(tt, path[0])
	end := valueAt(tt, path[len(path)-1])
	banded := len(path) > e.lengthThreshold && end < start

	erased := 0
	for _, idx := range e.buf.Marked() {
		v := tt.Data[idx]
		if banded && (v <= end || v > start) {
			continue
		}
		if v != models.Visited && e.mask.Foreground(idx) {
			erased++
		}
		tt.Data[idx] = models.Visited
	}
	return erased
}

// Erase marks and applies in one call, returning the node radii and the
// number of newly visited foreground voxels.
func (e *Eraser) Erase(tt *models.Volume, path []r3.Vec) ([]float64, int) {
	radii := e.Mark(path)
	return radii, e.Apply(tt, path)
}

// valueAt reads tt under p, treating positions outside the grid as visited.
func valueAt(tt *models.Volume, p r3.Vec) float64 {
	x, y, z := models.Voxel(p)
	if !tt.Contains(x, y, z) {
		return models.Visited
	}
	return tt.At(x, y, z)
}
