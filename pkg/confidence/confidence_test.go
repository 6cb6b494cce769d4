package confidence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"neurontrace/internal/models"
)

// lineMask returns a 1x1xn mask with the listed z voxels set to foreground
func lineMask(n int, fg ...int) *models.Volume {
	m := models.NewVolume(1, 1, n)
	for _, z := range fg {
		m.Set(0, 0, z, 1)
	}
	return m
}

func linePath(n int) []r3.Vec {
	path := make([]r3.Vec, n)
	for i := range path {
		path[i] = r3.Vec{Z: float64(i) + 0.5}
	}
	return path
}

func TestOnline(t *testing.T) {
	o := NewOnline(DefaultOnlineThreshold)

	assert.InDelta(t, 0.5, o.Observe(true, 1), 1e-12)
	assert.InDelta(t, 1.0/3, o.Observe(false, 2), 1e-12)
	assert.InDelta(t, 0.25, o.Observe(false, 3), 1e-12)
	assert.False(t, o.Low(), "ratio equal to the threshold is not low")

	o.Observe(false, 4)
	assert.True(t, o.Low())
	assert.Equal(t, 1, o.Hits())
}

func TestForward(t *testing.T) {
	path := linePath(4)
	conf := Forward(path, lineMask(4, 0, 1, 2, 3))
	require.Len(t, conf, 4)

	// Entry i counts hits among the first i points over i+1
	assert.InDeltaSlice(t, []float64{0, 0.5, 2.0 / 3, 0.75}, conf, 1e-12)
	assert.Nil(t, Forward(nil, lineMask(1)))
	assert.Zero(t, Trailing(nil))
}

func TestAcceptBoundary(t *testing.T) {
	path := linePath(4)

	// Two hits among the first three points over four: exactly 0.5
	boundary := Trailing(Forward(path, lineMask(4, 0, 1)))
	require.InDelta(t, 0.5, boundary, 1e-12)
	assert.False(t, Accept(boundary, DefaultForwardThreshold), "boundary value must be rejected")

	above := Trailing(Forward(path, lineMask(4, 0, 1, 2)))
	assert.True(t, Accept(above, DefaultForwardThreshold))

	// A single-point path has no confidence
	assert.False(t, Accept(Trailing(Forward(linePath(1), lineMask(1, 0))), DefaultForwardThreshold))
}
