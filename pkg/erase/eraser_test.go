package erase

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"neurontrace/internal/models"
)

// createRamp returns a 20x5x5 map whose value equals x, and a mask holding
// a single foreground line along x at y=2, z=2
func createRamp() (*models.Volume, *models.Volume) {
	tt := models.NewVolume(20, 5, 5)
	mask := models.NewVolume(20, 5, 5)
	for x := 0; x < 20; x++ {
		for y := 0; y < 5; y++ {
			for z := 0; z < 5; z++ {
				tt.Set(x, y, z, float64(x))
			}
		}
		mask.Set(x, 2, 2, 1)
	}
	return tt, mask
}

// createLinePath walks x from `from` to `to` inclusive on the mask line
func createLinePath(from, to int) []r3.Vec {
	var path []r3.Vec
	step := 1
	if to < from {
		step = -1
	}
	for x := from; ; x += step {
		path = append(path, r3.Vec{X: float64(x) + 0.5, Y: 2.5, Z: 2.5})
		if x == to {
			break
		}
	}
	return path
}

// visitedColumns returns, per x, how many voxels of that slab are visited
func visitedColumns(tt *models.Volume) []int {
	cols := make([]int, tt.Width)
	for x := 0; x < tt.Width; x++ {
		for y := 0; y < tt.Height; y++ {
			for z := 0; z < tt.Depth; z++ {
				if tt.At(x, y, z) == models.Visited {
					cols[x]++
				}
			}
		}
	}
	return cols
}

// TestEraseNonMonotonic verifies that an ascending path erases the whole tube
func TestEraseNonMonotonic(t *testing.T) {
	tt, mask := createRamp()
	e := NewEraser(mask, DefaultRatio, DefaultLengthThreshold)

	path := createLinePath(2, 9)
	radii := e.Mark(path)
	for i, r := range radii {
		if r != 1 {
			t.Errorf("Expected radius 1 at node %d, got %f", i, r)
		}
	}

	// ceil(1 * 1.2) = 2, so the tube spans x in [0, 11] and the full y/z extent
	marked := e.Buffer().Count()
	if marked != 12*5*5 {
		t.Fatalf("Expected 300 marked voxels, got %d", marked)
	}

	erased := e.Apply(tt, path)
	if erased != 12 {
		t.Errorf("Expected 12 foreground voxels erased, got %d", erased)
	}

	cols := visitedColumns(tt)
	for x, n := range cols {
		want := 0
		if x <= 11 {
			want = 25
		}
		if n != want {
			t.Errorf("Slab x=%d: expected %d visited voxels, got %d", x, want, n)
		}
	}

	if e.Buffer().Count() != 0 {
		t.Error("Expected the scratch buffer to be reset after Apply")
	}
}

// TestEraseBanded verifies that a long descending path only erases its band
func TestEraseBanded(t *testing.T) {
	tt, mask := createRamp()
	e := NewEraser(mask, DefaultRatio, DefaultLengthThreshold)

	// 8 nodes from T=12 down to T=5
	path := createLinePath(12, 5)
	_, erased := e.Erase(tt, path)

	// Band is (5, 12]
	if erased != 7 {
		t.Errorf("Expected 7 foreground voxels erased, got %d", erased)
	}
	cols := visitedColumns(tt)
	for x, n := range cols {
		want := 0
		if x > 5 && x <= 12 {
			want = 25
		}
		if n != want {
			t.Errorf("Slab x=%d: expected %d visited voxels, got %d", x, want, n)
		}
	}
}

// TestEraseShortPath verifies that short paths ignore the band
func TestEraseShortPath(t *testing.T) {
	tt, mask := createRamp()
	e := NewEraser(mask, DefaultRatio, DefaultLengthThreshold)

	path := createLinePath(10, 5) // 6 nodes, not above the threshold
	_, erased := e.Erase(tt, path)
	if erased != 10 {
		t.Errorf("Expected 10 foreground voxels erased, got %d", erased)
	}
	cols := visitedColumns(tt)
	if cols[3] != 25 || cols[12] != 25 || cols[2] != 0 || cols[13] != 0 {
		t.Errorf("Unexpected erase extent: %v", cols)
	}
}

// TestEraseTwiceCountsOnce verifies that already visited voxels are not recounted
func TestEraseTwiceCountsOnce(t *testing.T) {
	tt, mask := createRamp()
	e := NewEraser(mask, DefaultRatio, DefaultLengthThreshold)

	path := createLinePath(2, 4)
	_, first := e.Erase(tt, path)
	_, second := e.Erase(tt, path)
	if first == 0 {
		t.Fatal("Expected the first erase to cover foreground")
	}
	if second != 0 {
		t.Errorf("Expected no newly covered voxels on repeat, got %d", second)
	}
}

// TestBufferReset verifies marks are cleared without reallocation
func TestBufferReset(t *testing.T) {
	b := NewBuffer(4, 4, 4)
	b.MarkCube(0, 0, 0, 1)
	if b.Count() != 8 {
		t.Fatalf("Expected 8 marked voxels in a clipped corner cube, got %d", b.Count())
	}
	b.MarkCube(0, 0, 0, 1)
	if b.Count() != 8 {
		t.Errorf("Expected re-marking to be idempotent, got %d", b.Count())
	}
	b.Reset()
	if b.Count() != 0 || b.IsMarked(0) {
		t.Error("Expected an empty buffer after Reset")
	}
}
