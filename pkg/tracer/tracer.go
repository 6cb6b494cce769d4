// Package tracer reconstructs a tree skeleton from a geodesic time-crossing
// map by repeatedly backtracking from the furthest unexplained foreground
// voxel toward the soma.
//
// The process follows these steps until the requested coverage is reached:
// 1. Pick the foreground voxel with the largest remaining arrival time
// 2. Integrate a path against the gradient of the map with RK4
// 3. Score the path by its foreground confidence and accept or reject it
// 4. Append an accepted path to the tree and erase the region it explains
//
// The tree is then repaired, pruned and rooted at the soma.
package tracer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"

	"neurontrace/internal/models"
	"neurontrace/pkg/config"
	"neurontrace/pkg/erase"
	"neurontrace/pkg/gradient"
	"neurontrace/pkg/integrator"
	"neurontrace/pkg/swc"
)

// Input validation errors.
var (
	ErrEmptyForeground = errors.New("tracer: foreground mask is empty")
	ErrShapeMismatch   = errors.New("tracer: volume shapes differ")
	ErrInvalidSoma     = errors.New("tracer: invalid soma")
	ErrInvalidTimeMap  = errors.New("tracer: invalid time-crossing map")
)

// Termination reasons reported in Stats.
const (
	ReasonCoverage  = "coverage"
	ReasonExhausted = "exhausted"
)

// ProgressCallback is called after every iteration with the current coverage
type ProgressCallback func(coverage float64, iteration int)

// Renderer receives accepted branches as they are committed. It has no
// influence on the traced result.
type Renderer interface {
	// Branch is called once per accepted branch with its path
	Branch(index int, path []r3.Vec)

	// Connection is called where a branch joins the existing tree; short
	// reports whether the branch is below the length threshold
	Connection(at r3.Vec, short bool)
}

// Params holds the inputs of a trace.
type Params struct {
	// TimeMap is the geodesic time-crossing map seeded at the soma. It is
	// copied, never modified.
	TimeMap *models.Volume

	// Mask is the binary foreground segmentation; values above zero are foreground
	Mask *models.Volume

	// Soma is the seed location of the time-crossing map, in voxel coordinates
	Soma r3.Vec

	// SomaRadius is the radius of the soma in voxels
	SomaRadius float64

	// Field is a precomputed gradient of TimeMap. When nil, Gradient is used.
	Field *gradient.Field

	// Gradient computes the field when Field is nil; defaults to gradient.Compute
	Gradient gradient.Func

	// Config holds the tracer parameters; the zero value means defaults
	Config config.Tracing

	// Renderer optionally receives accepted branches
	Renderer Renderer

	// Logger receives structured progress records; nil discards them
	Logger *slog.Logger

	// Progress is called after every iteration when set
	Progress ProgressCallback
}

// Stats summarizes a trace run
type Stats struct {
	Iterations int
	Accepted   int
	Rejected   int

	// Absorbed counts seeds whose first step reached the soma
	Absorbed int

	// Coverage is the final fraction of foreground voxels explained
	Coverage float64

	// Reason is ReasonCoverage or ReasonExhausted
	Reason string

	Repaired  int
	Artifacts int
	Pruned    int

	// Nodes is the number of records including the soma
	Nodes int

	MeanBranchLength float64
	MeanRadius       float64
}

// Result is a finalized tree with run statistics
type Result struct {
	Records []swc.Record
	Stats   Stats
}

// Tracer runs one trace. It exclusively owns the working copy of the map,
// the erase buffer and the tree; a Tracer is not safe for concurrent use.
type Tracer struct {
	params *Params
	cfg    config.Tracing
	log    *slog.Logger

	field  *gradient.Field
	rk     *integrator.RK4
	eraser *erase.Eraser
	tree   *swc.Tree

	// tt is the working time-crossing map, mutated by erasure
	tt *models.Volume

	// excluded marks voxels of rejected branches, never reseeded
	excluded []bool

	foreground int
	covered    int
	maxSteps   int
	traced     bool
}

// New validates the inputs and prepares a tracer.
func New(params *Params) (*Tracer, error) {
	if params == nil || params.TimeMap == nil || params.Mask == nil {
		return nil, fmt.Errorf("%w: time map and mask are required", ErrInvalidTimeMap)
	}
	if !params.TimeMap.SameShape(params.Mask) {
		return nil, fmt.Errorf("%w: time map %dx%dx%d, mask %dx%dx%d", ErrShapeMismatch,
			params.TimeMap.Width, params.TimeMap.Height, params.TimeMap.Depth,
			params.Mask.Width, params.Mask.Height, params.Mask.Depth)
	}
	if params.SomaRadius <= 0 || math.IsNaN(params.SomaRadius) || math.IsInf(params.SomaRadius, 0) {
		return nil, fmt.Errorf("%w: radius must be positive, got %g", ErrInvalidSoma, params.SomaRadius)
	}
	if !finite(params.Soma) {
		return nil, fmt.Errorf("%w: centre %v is not finite", ErrInvalidSoma, params.Soma)
	}

	cfg := params.Config
	if cfg == (config.Tracing{}) {
		cfg = config.DefaultTracing()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := params.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	t := &Tracer{
		params: params,
		cfg:    cfg,
		log:    logger,
	}

	// Precondition: there must be foreground to cover
	t.foreground = params.Mask.CountForeground()
	if t.foreground == 0 {
		return nil, ErrEmptyForeground
	}

	// Working copy with background forced below every valid value
	t.tt = params.TimeMap.Clone()
	for i, v := range t.tt.Data {
		if !params.Mask.Foreground(i) {
			t.tt.Data[i] = models.Background
			continue
		}
		if v < 0 || math.IsNaN(v) {
			x, y, z := t.tt.Coords(i)
			return nil, fmt.Errorf("%w: foreground voxel (%d, %d, %d) has value %g", ErrInvalidTimeMap, x, y, z, v)
		}
	}

	field := params.Field
	if field == nil {
		grad := params.Gradient
		if grad == nil {
			grad = gradient.Compute
		}
		var err error
		if field, err = grad(params.TimeMap); err != nil {
			return nil, fmt.Errorf("failed to compute gradient: %w", err)
		}
	}
	if w, h, d := field.Bounds(); w != t.tt.Width || h != t.tt.Height || d != t.tt.Depth {
		return nil, fmt.Errorf("%w: gradient field %dx%dx%d", ErrShapeMismatch, w, h, d)
	}
	t.field = field

	t.rk = integrator.NewRK4(field, cfg.StepSize)
	t.eraser = erase.NewEraser(params.Mask, cfg.EraseRatio, cfg.LengthThreshold)
	t.tree = swc.NewTree()
	t.excluded = make([]bool, t.tt.Len())

	t.maxSteps = cfg.MaxSteps
	if t.maxSteps == 0 {
		t.maxSteps = t.tt.Len()
	}

	return t, nil
}

// Trace runs the whole tracing pipeline with the given parameters.
func Trace(ctx context.Context, params *Params) (*Result, error) {
	t, err := New(params)
	if err != nil {
		return nil, err
	}
	return t.Trace(ctx)
}

// Coverage returns the fraction of foreground voxels explained so far.
func (t *Tracer) Coverage() float64 {
	return float64(t.covered) / float64(t.foreground)
}

// Trace runs the coverage loop and returns the finalized tree. The context
// is checked between iterations only, so a cancelled trace never leaves a
// branch half-applied. A Tracer can only trace once.
func (t *Tracer) Trace(ctx context.Context) (*Result, error) {
	if t.traced {
		return nil, fmt.Errorf("tracer: already traced")
	}
	t.traced = true

	cfg := t.cfg
	stats := Stats{Reason: ReasonCoverage}
	var lengths []float64

	t.log.Info("tracing started",
		"extent", fmt.Sprintf("%dx%dx%d", t.tt.Width, t.tt.Height, t.tt.Depth),
		"foreground", t.foreground,
		"target", cfg.Coverage)

	for t.Coverage() < cfg.Coverage {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		seed, ok := t.nextSeed()
		if !ok {
			stats.Reason = ReasonExhausted
			break
		}
		stats.Iterations++

		b := t.backtrack(seed)
		if b.maxGap > cfg.Gap {
			t.log.Debug("branch crossed a long background gap", "iteration", stats.Iterations, "gap", b.maxGap)
		}

		if b.state == reachedSoma && len(b.path) == 1 {
			// The seed is one step from the soma and is explained by it
			_, erased := t.eraser.Erase(t.tt, b.path)
			t.covered += erased
			stats.Absorbed++
			t.log.Debug("seed absorbed by soma",
				"iteration", stats.Iterations,
				"erased", erased,
				"coverage", t.Coverage())
			t.report(stats.Iterations)
			continue
		}

		if !b.accepted {
			stats.Rejected++
			t.exclude(b.path)
			t.log.Debug("branch rejected",
				"iteration", stats.Iterations,
				"state", b.state.String(),
				"nodes", len(b.path),
				"online", b.online,
				"forward", b.forward)
			t.report(stats.Iterations)
			continue
		}

		radii, erased := t.eraser.Erase(t.tt, b.path)
		t.covered += erased
		if _, err := t.tree.AppendBranch(b.path, radii, b.conn); err != nil {
			return nil, fmt.Errorf("failed to append branch %d: %w", stats.Iterations, err)
		}
		stats.Accepted++
		lengths = append(lengths, float64(len(b.path)))
		if t.params.Renderer != nil {
			t.params.Renderer.Branch(stats.Accepted, b.path)
		}

		t.log.Debug("branch accepted",
			"iteration", stats.Iterations,
			"state", b.state.String(),
			"nodes", len(b.path),
			"parent", b.conn.SWC(),
			"forward", b.forward,
			"erased", erased,
			"coverage", t.Coverage())
		t.report(stats.Iterations)
	}

	stats.Coverage = t.Coverage()
	t.log.Info("coverage loop finished",
		"reason", stats.Reason,
		"iterations", stats.Iterations,
		"accepted", stats.Accepted,
		"rejected", stats.Rejected,
		"absorbed", stats.Absorbed,
		"coverage", stats.Coverage)

	stats.Repaired, stats.Artifacts = t.tree.Repair(cfg.RepairRadius)
	stats.Pruned = t.tree.Prune(t.params.Mask, cfg.LengthThreshold, cfg.PruneConfidence)
	records := t.tree.Finalize(t.params.Soma, t.params.SomaRadius)

	stats.Nodes = len(records)
	if len(lengths) > 0 {
		stats.MeanBranchLength = stat.Mean(lengths, nil)
	}
	radii := make([]float64, len(records))
	for i, r := range records {
		radii[i] = r.Radius
	}
	stats.MeanRadius = stat.Mean(radii, nil)

	t.log.Info("tree finalized",
		"nodes", stats.Nodes,
		"repaired", stats.Repaired,
		"artifacts", stats.Artifacts,
		"pruned", stats.Pruned)

	return &Result{Records: records, Stats: stats}, nil
}

// nextSeed returns the foreground voxel with the largest remaining arrival
// time. Ties resolve to the first voxel in x-major scan order, which is
// lexicographic (x, y, z) order.
func (t *Tracer) nextSeed() (r3.Vec, bool) {
	best := models.Visited
	bestIdx := -1
	for i, v := range t.tt.Data {
		if v > best && !t.excluded[i] && t.params.Mask.Foreground(i) {
			best = v
			bestIdx = i
		}
	}
	if bestIdx < 0 {
		return r3.Vec{}, false
	}
	x, y, z := t.tt.Coords(bestIdx)
	return models.VoxelCenter(x, y, z), true
}

// exclude removes the voxels of a rejected path from future seeding.
func (t *Tracer) exclude(path []r3.Vec) {
	for _, p := range path {
		x, y, z := models.Voxel(p)
		if t.tt.Contains(x, y, z) {
			t.excluded[t.tt.Index(x, y, z)] = true
		}
	}
}

func (t *Tracer) report(iteration int) {
	if t.params.Progress != nil {
		t.params.Progress(t.Coverage(), iteration)
	}
}

func finite(p r3.Vec) bool {
	for _, v := range []float64{p.X, p.Y, p.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
