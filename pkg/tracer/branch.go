package tracer

import (
	"gonum.org/v1/gonum/spatial/r3"

	"neurontrace/internal/models"
	"neurontrace/pkg/confidence"
	"neurontrace/pkg/swc"
)

// branchState is the termination state of one backtracking iteration
type branchState int

const (
	integrating branchState = iota
	reachedSoma
	reachedTree
	outOfBounds
	staleLoop
	lowConfidence
	integrationFailure
)

func (s branchState) String() string {
	switch s {
	case integrating:
		return "integrating"
	case reachedSoma:
		return "reached-soma"
	case reachedTree:
		return "reached-tree"
	case outOfBounds:
		return "out-of-bounds"
	case staleLoop:
		return "stale-loop"
	case lowConfidence:
		return "low-confidence"
	case integrationFailure:
		return "integration-failure"
	default:
		return "unknown"
	}
}

// branch is the outcome of backtracking from one seed
type branch struct {
	path     []r3.Vec
	conn     swc.Parent
	state    branchState
	online   float64
	forward  float64
	maxGap   int
	accepted bool
}

// backtrack integrates from seed toward the soma until a terminal state is
// reached, then scores the path. Terminal points are not appended, except
// the extrapolated point after an integration failure when it lies inside
// the grid.
func (t *Tracer) backtrack(seed r3.Vec) branch {
	cfg := t.cfg
	b := branch{
		path:  []r3.Vec{seed},
		conn:  swc.Pending(),
		state: integrating,
	}

	online := confidence.NewOnline(cfg.OnlineConfidence)
	src := seed
	var velocity r3.Vec
	moved := false
	reached := false
	stepsAfterReach := 0
	gap := 0

	for b.state == integrating {
		end, err := t.rk.Step(src)
		if err != nil {
			b.state = integrationFailure
			if moved {
				if p := r3.Add(src, velocity); t.tt.InBounds(p) {
					b.path = append(b.path, p)
				}
			}
			break
		}
		velocity = r3.Sub(end, src)
		moved = true

		if r3.Norm(r3.Sub(t.params.Soma, end)) < cfg.SomaRatio*t.params.SomaRadius {
			b.state = reachedSoma
			b.conn = swc.ConnectedTo(swc.SomaID)
			break
		}

		if !t.tt.InBounds(end) {
			b.state = outOfBounds
			break
		}

		fg := t.params.Mask.ForegroundAt(end)
		if fg {
			gap = 0
		} else {
			gap++
			if gap > b.maxGap {
				b.maxGap = gap
			}
		}
		online.Observe(fg, len(b.path))

		x, y, z := models.Voxel(end)
		if t.tt.At(x, y, z) == models.Visited {
			reached = true
		}
		if reached {
			if t.tree.Empty() {
				b.state = reachedTree
				break
			}
			stepsAfterReach++
			radius := float64(t.params.Mask.LocalRadius(x, y, z))
			if id, ok := t.tree.Match(end, radius); ok {
				b.conn = swc.ConnectedTo(id)
				b.state = reachedTree
				if t.params.Renderer != nil {
					t.params.Renderer.Connection(end, len(b.path) < cfg.LengthThreshold)
				}
				break
			}
			if stepsAfterReach >= cfg.ReachSteps {
				b.state = reachedTree
				break
			}
		}

		if n := len(b.path); n > cfg.StaleWindow && r3.Norm(r3.Sub(b.path[n-cfg.StaleWindow], end)) < 1 {
			b.state = staleLoop
			break
		}
		if len(b.path) >= t.maxSteps {
			b.state = staleLoop
			break
		}

		if online.Low() {
			b.state = lowConfidence
			break
		}

		b.path = append(b.path, end)
		src = end
	}

	b.online = online.Value()
	b.forward = confidence.Trailing(confidence.Forward(b.path, t.params.Mask))
	b.accepted = b.state != lowConfidence && confidence.Accept(b.forward, cfg.ForwardConfidence)
	return b
}
