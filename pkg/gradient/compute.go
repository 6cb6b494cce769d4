package gradient

import (
	"fmt"

	"neurontrace/internal/models"
)

// Compute derives the gradient field of t with second-order central
// differences in the interior and first-order one-sided differences on the
// border. Axes of extent 1 have a zero gradient.
func Compute(t *models.Volume) (*Field, error) {
	if t == nil || t.Len() == 0 {
		return nil, fmt.Errorf("gradient: empty volume")
	}

	dx := models.NewVolume(t.Width, t.Height, t.Depth)
	dy := models.NewVolume(t.Width, t.Height, t.Depth)
	dz := models.NewVolume(t.Width, t.Height, t.Depth)

	for x := 0; x < t.Width; x++ {
		for y := 0; y < t.Height; y++ {
			for z := 0; z < t.Depth; z++ {
				idx := t.Index(x, y, z)
				dx.Data[idx] = diff(x, t.Width, func(i int) float64 { return t.At(i, y, z) })
				dy.Data[idx] = diff(y, t.Height, func(j int) float64 { return t.At(x, j, z) })
				dz.Data[idx] = diff(z, t.Depth, func(k int) float64 { return t.At(x, y, k) })
			}
		}
	}

	return NewField(dx, dy, dz)
}

// diff is the finite difference at position i along an axis of extent n,
// reading samples through at.
func diff(i, n int, at func(int) float64) float64 {
	switch {
	case n < 2:
		return 0
	case i == 0:
		return at(1) - at(0)
	case i == n-1:
		return at(n-1) - at(n-2)
	default:
		return (at(i+1) - at(i-1)) / 2
	}
}
