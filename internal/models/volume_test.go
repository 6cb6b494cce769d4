package models

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

// TestIndexRoundTrip verifies that Coords inverts Index in x-major order
func TestIndexRoundTrip(t *testing.T) {
	v := NewVolume(4, 3, 2)
	prev := -1
	for x := 0; x < v.Width; x++ {
		for y := 0; y < v.Height; y++ {
			for z := 0; z < v.Depth; z++ {
				idx := v.Index(x, y, z)
				if idx != prev+1 {
					t.Fatalf("Index(%d, %d, %d) = %d, expected %d", x, y, z, idx, prev+1)
				}
				prev = idx

				gx, gy, gz := v.Coords(idx)
				if gx != x || gy != y || gz != z {
					t.Errorf("Coords(%d) = (%d, %d, %d), expected (%d, %d, %d)", idx, gx, gy, gz, x, y, z)
				}
			}
		}
	}
}

// TestNewVolumeFromData verifies extent validation
func TestNewVolumeFromData(t *testing.T) {
	if _, err := NewVolumeFromData(make([]float64, 24), 4, 3, 2); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if _, err := NewVolumeFromData(make([]float64, 23), 4, 3, 2); err == nil {
		t.Error("Expected error for wrong data length")
	}
	if _, err := NewVolumeFromData(nil, 0, 3, 2); err == nil {
		t.Error("Expected error for zero extent")
	}
}

// TestBounds verifies the discrete and continuous bounds checks
func TestBounds(t *testing.T) {
	v := NewVolume(4, 3, 2)

	if !v.Contains(3, 2, 1) || v.Contains(4, 0, 0) || v.Contains(0, -1, 0) {
		t.Error("Contains disagrees with the extents")
	}

	tests := []struct {
		p    r3.Vec
		want bool
	}{
		{r3.Vec{}, true},
		{r3.Vec{X: 3, Y: 2, Z: 1}, true},
		{r3.Vec{X: 2.5, Y: 1.5, Z: 0.5}, true},
		{r3.Vec{X: 3.01, Y: 1, Z: 1}, false},
		{r3.Vec{X: -0.01}, false},
	}
	for _, tt := range tests {
		if got := v.InBounds(tt.p); got != tt.want {
			t.Errorf("InBounds(%v) = %v, expected %v", tt.p, got, tt.want)
		}
	}
}

// TestForeground verifies mask queries on continuous positions
func TestForeground(t *testing.T) {
	v := NewVolume(3, 3, 3)
	v.Set(1, 1, 1, 1)
	v.Set(2, 2, 2, -1)

	if !v.ForegroundAt(r3.Vec{X: 1.9, Y: 1.2, Z: 1}) {
		t.Error("Expected foreground inside voxel (1, 1, 1)")
	}
	if v.ForegroundAt(r3.Vec{X: 2, Y: 2, Z: 2}) {
		t.Error("Negative values are background")
	}
	if v.ForegroundAt(r3.Vec{X: -0.5}) {
		t.Error("Positions outside the grid are background")
	}
	if n := v.CountForeground(); n != 1 {
		t.Errorf("Expected 1 foreground voxel, got %d", n)
	}
}

// TestClone verifies that a clone does not share data
func TestClone(t *testing.T) {
	v := NewVolume(2, 2, 2)
	c := v.Clone()
	c.Set(1, 1, 1, 5)
	if v.At(1, 1, 1) != 0 {
		t.Error("Clone shares data with the original")
	}
	if !v.SameShape(c) || v.SameShape(NewVolume(2, 2, 3)) || v.SameShape(nil) {
		t.Error("SameShape disagrees with the extents")
	}
}

// TestLocalDensity verifies border clipping of the density cube
func TestLocalDensity(t *testing.T) {
	v := NewVolume(3, 3, 3)
	for i := range v.Data {
		v.Data[i] = 1
	}

	if d := v.LocalDensity(1, 1, 1, 1); d != 1 {
		t.Errorf("Expected full density at the centre, got %f", d)
	}
	// Clipped voxels count as background: 8 of 27
	if d := v.LocalDensity(0, 0, 0, 1); math.Abs(d-8.0/27.0) > 1e-12 {
		t.Errorf("Expected 8/27 at the corner, got %f", d)
	}
}

// TestLocalRadius verifies the radius estimate of a solid tube
func TestLocalRadius(t *testing.T) {
	v := NewVolume(20, 9, 9)
	for x := 0; x < 20; x++ {
		for y := 3; y <= 5; y++ {
			for z := 3; z <= 5; z++ {
				v.Set(x, y, z, 1)
			}
		}
	}

	// r=1 is solid, r=2 holds 45 of 125
	if r := v.LocalRadius(10, 4, 4); r != 2 {
		t.Errorf("Expected radius 2 on the axis, got %d", r)
	}
	// r=1 already holds only 12 of 27
	if r := v.LocalRadius(10, 3, 3); r != 1 {
		t.Errorf("Expected radius 1 on the edge, got %d", r)
	}
	if r := NewVolume(5, 5, 5).LocalRadius(2, 2, 2); r != 1 {
		t.Errorf("Expected radius 1 in background, got %d", r)
	}
}

// TestVoxel verifies flooring of continuous positions
func TestVoxel(t *testing.T) {
	x, y, z := Voxel(r3.Vec{X: 1.99, Y: 0, Z: -0.5})
	if x != 1 || y != 0 || z != -1 {
		t.Errorf("Voxel = (%d, %d, %d), expected (1, 0, -1)", x, y, z)
	}
	if p := VoxelCenter(1, 2, 3); p != (r3.Vec{X: 1, Y: 2, Z: 3}) {
		t.Errorf("VoxelCenter = %v", p)
	}
}

// TestClampRange verifies interval clipping
func TestClampRange(t *testing.T) {
	lo, hi := ClampRange(-2, 7, 5)
	if lo != 0 || hi != 5 {
		t.Errorf("ClampRange(-2, 7, 5) = (%d, %d)", lo, hi)
	}
	lo, hi = ClampRange(1, 3, 5)
	if lo != 1 || hi != 3 {
		t.Errorf("ClampRange(1, 3, 5) = (%d, %d)", lo, hi)
	}
}
