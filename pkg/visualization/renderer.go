// Package visualization draws traced branches as a 2D projection of the
// volume along one axis.
package visualization

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Renderer collects accepted branches and connection points during a trace
// and saves them as a projected plot. It is safe for concurrent use.
type Renderer struct {
	mu sync.Mutex

	// axis is the projection axis: x, y or z
	axis string

	soma       r3.Vec
	somaRadius float64

	branches    []plotter.XYs
	connections plotter.XYs
	short       plotter.XYs
}

// NewRenderer creates a renderer projecting along axis.
func NewRenderer(axis string, soma r3.Vec, somaRadius float64) (*Renderer, error) {
	switch axis {
	case "x", "X", "y", "Y", "z", "Z":
	default:
		return nil, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}
	return &Renderer{
		axis:       axis,
		soma:       soma,
		somaRadius: somaRadius,
	}, nil
}

// project drops the coordinate along the projection axis
func (r *Renderer) project(p r3.Vec) plotter.XY {
	switch r.axis {
	case "x", "X":
		// YZ plane
		return plotter.XY{X: p.Z, Y: p.Y}
	case "y", "Y":
		// XZ plane
		return plotter.XY{X: p.X, Y: p.Z}
	default:
		// XY plane
		return plotter.XY{X: p.X, Y: p.Y}
	}
}

func (r *Renderer) labels() (string, string) {
	switch r.axis {
	case "x", "X":
		return "Z (voxels)", "Y (voxels)"
	case "y", "Y":
		return "X (voxels)", "Z (voxels)"
	default:
		return "X (voxels)", "Y (voxels)"
	}
}

// Branch records an accepted branch.
func (r *Renderer) Branch(_ int, path []r3.Vec) {
	if len(path) == 0 {
		return
	}
	pts := make(plotter.XYs, len(path))
	for i, p := range path {
		pts[i] = r.project(p)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.branches = append(r.branches, pts)
}

// Connection records where a branch joined the tree.
func (r *Renderer) Connection(at r3.Vec, short bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if short {
		r.short = append(r.short, r.project(at))
		return
	}
	r.connections = append(r.connections, r.project(at))
}

// BranchCount returns the number of branches recorded.
func (r *Renderer) BranchCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.branches)
}

// ConnectionCount returns the number of connection points recorded,
// including short ones.
func (r *Renderer) ConnectionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.connections) + len(r.short)
}

// Plot builds the projection plot from everything recorded so far.
func (r *Renderer) Plot() (*plot.Plot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Traced branches (%d) projected along %s, coloured by length", len(r.branches), r.axis)
	p.X.Label.Text, p.Y.Label.Text = r.labels()

	colors, err := branchColors(r.branches)
	if err != nil {
		return nil, err
	}
	for i, pts := range r.branches {
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("branch %d: %w", i+1, err)
		}
		line.Color = colors[i]
		line.Width = vg.Points(1)
		p.Add(line)
	}

	if err := addScatter(p, r.connections, "connection", color.RGBA{R: 220, A: 255}, draw.CircleGlyph{}); err != nil {
		return nil, err
	}
	if err := addScatter(p, r.short, "short connection", color.RGBA{B: 220, A: 255}, draw.CrossGlyph{}); err != nil {
		return nil, err
	}

	soma, err := plotter.NewScatter(plotter.XYs{r.project(r.soma)})
	if err != nil {
		return nil, err
	}
	soma.GlyphStyle.Shape = draw.CircleGlyph{}
	soma.GlyphStyle.Color = color.Black
	soma.GlyphStyle.Radius = vg.Points(2 + r.somaRadius)
	p.Add(soma)
	p.Legend.Add("soma", soma)

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	return p, nil
}

func addScatter(p *plot.Plot, pts plotter.XYs, label string, c color.Color, shape draw.GlyphDrawer) error {
	if len(pts) == 0 {
		return nil
	}
	s, err := plotter.NewScatter(pts)
	if err != nil {
		return fmt.Errorf("%s points: %w", label, err)
	}
	s.GlyphStyle.Shape = shape
	s.GlyphStyle.Color = c
	s.GlyphStyle.Radius = vg.Points(2)
	p.Add(s)
	p.Legend.Add(label, s)
	return nil
}

// Save writes the projection to filename. The format follows the file
// extension (png, svg, pdf, ...).
func (r *Renderer) Save(filename string) error {
	p, err := r.Plot()
	if err != nil {
		return err
	}

	// Create output directory if it doesn't exist
	if dir := filepath.Dir(filename); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output dir: %w", err)
		}
	}

	if err := p.Save(8*vg.Inch, 8*vg.Inch, filename); err != nil {
		return fmt.Errorf("save projection: %w", err)
	}
	return nil
}

// branchColors maps each branch's node count onto a blue to red scale, so
// short branches read cool and long ones warm
func branchColors(branches []plotter.XYs) ([]color.Color, error) {
	if len(branches) == 0 {
		return nil, nil
	}

	lo, hi := len(branches[0]), len(branches[0])
	for _, b := range branches[1:] {
		lo = min(lo, len(b))
		hi = max(hi, len(b))
	}
	if hi == lo {
		hi = lo + 1
	}

	cmap := moreland.SmoothBlueRed()
	cmap.SetMax(float64(hi))
	cmap.SetMin(float64(lo))

	colors := make([]color.Color, len(branches))
	for i, b := range branches {
		c, err := cmap.At(float64(len(b)))
		if err != nil {
			return nil, fmt.Errorf("branch %d color: %w", i+1, err)
		}
		colors[i] = c
	}
	return colors, nil
}
