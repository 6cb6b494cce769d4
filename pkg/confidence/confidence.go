// Package confidence scores traced branches by how much of their path lies
// on foreground voxels.
package confidence

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"

	"neurontrace/internal/models"
)

// Default thresholds.
const (
	DefaultOnlineThreshold  = 0.25
	DefaultForwardThreshold = 0.5
)

// Online tracks the running foreground-hit ratio of a branch while it is
// being integrated.
type Online struct {
	threshold float64
	hits      int
	steps     int
}

// NewOnline creates an online estimator that reports low confidence once the
// ratio drops below threshold.
func NewOnline(threshold float64) *Online {
	return &Online{threshold: threshold}
}

// Observe records one integration step. steps is the number of points
// already on the path before this step; the ratio is hits/(steps+1).
func (o *Online) Observe(foreground bool, steps int) float64 {
	if foreground {
		o.hits++
	}
	o.steps = steps
	return o.Value()
}

// Value returns the current ratio.
func (o *Online) Value() float64 {
	return float64(o.hits) / float64(o.steps+1)
}

// Hits returns the number of foreground steps seen so far.
func (o *Online) Hits() int { return o.hits }

// Low reports whether the ratio has fallen below the threshold.
func (o *Online) Low() bool {
	return o.Value() < o.threshold
}

// Forward computes the cumulative foreground ratio over a finished path.
// Entry i is the number of foreground points among path[0:i] divided by i+1.
func Forward(path []r3.Vec, mask *models.Volume) []float64 {
	n := len(path)
	if n == 0 {
		return nil
	}

	hits := make([]float64, n)
	for i, p := range path {
		if mask.ForegroundAt(p) {
			hits[i] = 1
		}
	}
	cum := make([]float64, n)
	floats.CumSum(cum, hits)

	conf := make([]float64, n)
	for i := 1; i < n; i++ {
		conf[i] = cum[i-1] / float64(i+1)
	}
	return conf
}

// Trailing returns the last value of a forward confidence series, or zero
// for an empty series.
func Trailing(conf []float64) float64 {
	if len(conf) == 0 {
		return 0
	}
	return conf[len(conf)-1]
}

// Accept reports whether a trailing forward confidence passes the gate. The
// comparison is strict: a branch sitting exactly on the threshold is rejected.
func Accept(trailing, threshold float64) bool {
	return trailing > threshold
}
