package game

import (
	"math"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/katamari/collection"
	"github.com/pthm-cable/katamari/components"
	"github.com/pthm-cable/katamari/input"
	"github.com/pthm-cable/katamari/items"
	"github.com/pthm-cable/katamari/level"
)

const (
	retargetSteps = 30
	// Fraction of the boundary past which an idle autopilot heads home.
	homeFraction = 0.5
)

// Autopilot steers the ball toward the nearest collectible item. It stands
// in for a player in headless runs and the tuner.
type Autopilot struct {
	reg      *items.Registry
	ball     level.Ball
	rules    collection.Rules
	director *level.Director

	heading  r3.Vec
	target   uint64
	lastDist float64
	blocked  map[uint64]bool
	steps    int
}

// NewAutopilot creates an autopilot heading down -z.
func NewAutopilot(reg *items.Registry, ball level.Ball, rules collection.Rules, director *level.Director) *Autopilot {
	return &Autopilot{
		reg:      reg,
		ball:     ball,
		rules:    rules,
		director: director,
		heading:  r3.Vec{Z: -1},
		blocked:  make(map[uint64]bool),
	}
}

// Snapshot holds forward with the camera basis turned toward the target.
func (a *Autopilot) Snapshot() input.Context {
	pos := a.ball.Position()
	if a.steps%retargetSteps == 0 || !a.targetPos(&r3.Vec{}) {
		a.retarget(pos)
	}
	a.steps++

	var goal r3.Vec
	switch {
	case a.targetPos(&goal):
		a.steer(r3.Sub(goal, pos))
	case math.Hypot(pos.X, pos.Z) > homeFraction*a.director.State().Boundary:
		a.steer(r3.Scale(-1, pos))
	}

	return input.Context{
		Keys: input.KeyForward,
		Basis: input.Basis{
			Forward: a.heading,
			Right:   r3.Vec{X: -a.heading.Z, Z: a.heading.X},
		},
	}
}

func (a *Autopilot) steer(v r3.Vec) {
	v.Y = 0
	if n := r3.Norm(v); n > 1e-9 {
		a.heading = r3.Scale(1/n, v)
	}
}

// targetPos reports the current target's position if it is still loose.
func (a *Autopilot) targetPos(out *r3.Vec) bool {
	if a.target == 0 {
		return false
	}
	e, ok := a.reg.ByID(a.target)
	if !ok {
		return false
	}
	item, pos, _, _ := a.reg.Get(e)
	if !item.State.Loose() {
		return false
	}
	*out = pos.Vec()
	return true
}

// retarget picks the nearest loose collectible item of the live level.
// A target that got no closer since the last pick is skipped from then on.
func (a *Autopilot) retarget(from r3.Vec) {
	R := a.ball.Radius()
	gen := a.director.Generation()

	var goal r3.Vec
	if a.targetPos(&goal) {
		if math.Hypot(goal.X-from.X, goal.Z-from.Z) > 0.99*a.lastDist {
			a.blocked[a.target] = true
		}
	}

	best := math.Inf(1)
	a.target = 0
	a.reg.Each(func(_ ecs.Entity, item *components.Item, pos *components.Position) {
		if item.Generation != gen || !item.State.Loose() || a.blocked[item.ID] {
			return
		}
		if !a.rules.Collectible(R, item.Radius) {
			return
		}
		dx, dz := pos.X-from.X, pos.Z-from.Z
		if d := dx*dx + dz*dz; d < best {
			best = d
			a.target = item.ID
		}
	})
	if a.target != 0 {
		a.lastDist = math.Sqrt(best)
	}
}
