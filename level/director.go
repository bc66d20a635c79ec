package level

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/katamari/config"
	"github.com/pthm-cable/katamari/event"
	"github.com/pthm-cable/katamari/items"
)

// Phase is the director's state.
type Phase uint8

const (
	PhasePlaying Phase = iota
	PhaseCompleting
	PhaseTransitioning
	PhaseWon
)

func (p Phase) String() string {
	switch p {
	case PhasePlaying:
		return "playing"
	case PhaseCompleting:
		return "completing"
	case PhaseTransitioning:
		return "transitioning"
	case PhaseWon:
		return "won"
	}
	return fmt.Sprintf("phase(%d)", uint8(p))
}

// Ball is the director's view of the katamari. The ball outlives levels;
// the director never owns it.
type Ball interface {
	Radius() float64
	Position() r3.Vec
}

// seedStride separates per-level random streams.
const seedStride = 7919

// LevelRand returns the random stream a run with seed uses to plan level
// index. Layout tools use it to reproduce a run's levels.
func LevelRand(seed int64, index int) *rand.Rand {
	return rand.New(rand.NewSource(seed + int64(index)*seedStride))
}

// transition is an in-flight level change. Items are spawned into a
// staging generation and only replace the live one on commit.
type transition struct {
	gen    uint32
	next   State
	plan   Plan
	cursor int
	rng    *rand.Rand
}

// Director owns the level state and the item registry contents.
type Director struct {
	cfg    *config.Config
	gen    Generator
	reg    *items.Registry
	ball   Ball
	events *event.Queue
	logger *slog.Logger
	seed   int64

	state   State
	phase   Phase
	live    uint32 // Generation of the items in play
	nextGen uint32

	tween   *gween.Tween
	staging *transition
	retryIn float64
	skipped int
}

// NewDirector creates a director. Call Start to build level 1.
func NewDirector(cfg *config.Config, gen Generator, reg *items.Registry, ball Ball, events *event.Queue, seed int64) *Director {
	return &Director{
		cfg:    cfg,
		gen:    gen,
		reg:    reg,
		ball:   ball,
		events: events,
		logger: slog.Default(),
		seed:   seed,
	}
}

// SetLogger replaces the default logger.
func (d *Director) SetLogger(l *slog.Logger) { d.logger = l }

// State returns the committed level state.
func (d *Director) State() State { return d.state }

// Phase returns the current phase.
func (d *Director) Phase() Phase { return d.phase }

// Generation returns the generation of the live items.
func (d *Director) Generation() uint32 { return d.live }

// InputEnabled reports whether steering should reach the ball.
func (d *Director) InputEnabled() bool {
	return d.phase == PhasePlaying || d.phase == PhaseWon
}

// Pending reports whether a transition is staged.
func (d *Director) Pending() bool { return d.staging != nil }

// Start builds and spawns level 1 in one go.
func (d *Director) Start() error {
	st := Initial(d.cfg)
	t, err := d.stage(st)
	if err != nil {
		return err
	}
	for t.cursor < len(t.plan.Items) {
		if err := d.spawnNext(t); err != nil {
			d.reg.DisposeGeneration(t.gen)
			return err
		}
	}
	d.staging = t
	d.commit()
	return nil
}

// Evaluate advances the machine by one step of dt seconds.
func (d *Director) Evaluate(dt float64) {
	switch d.phase {
	case PhasePlaying:
		if d.retryIn > 0 {
			d.retryIn -= dt
			if d.retryIn <= 0 {
				d.retryIn = 0
				d.begin()
			}
			return
		}
		if d.ball.Radius() < d.state.Target {
			return
		}
		if max := d.cfg.Level.MaxLevel; max > 0 && d.state.Index >= max {
			d.phase = PhaseWon
			d.logger.Info("game_won", "level", d.state.Index, "radius", d.ball.Radius())
			d.events.Push(event.Event{Kind: event.KindGameWon, Level: d.state.Index, Theme: d.state.Theme, Target: d.state.Target})
			return
		}
		d.complete()

	case PhaseCompleting:
		if _, done := d.tween.Update(float32(dt)); done {
			d.begin()
		}

	case PhaseTransitioning:
		d.advance()
	}
}

// complete enters Completing and announces the level.
func (d *Director) complete() {
	d.phase = PhaseCompleting
	newTarget := d.state.Target * d.cfg.Level.ProgressionMultiplier
	d.tween = gween.New(0, 1, float32(d.cfg.Level.CompletionDelay), ease.Linear)
	d.logger.Info("level_complete", "level", d.state.Index, "theme", d.state.Theme, "new_target", newTarget)
	d.events.Push(event.Event{
		Kind:   event.KindLevelComplete,
		Level:  d.state.Index,
		Theme:  d.state.Theme,
		Target: newTarget,
	})
}

// RequestTransition starts a transition to the level after the committed
// one. A transition already in flight is aborted first and its staged
// items disposed.
func (d *Director) RequestTransition() {
	if d.phase == PhaseWon {
		return
	}
	d.begin()
}

// begin aborts any staged transition and stages the next level.
func (d *Director) begin() {
	d.retryIn = 0
	d.abort()
	next := Next(d.cfg, d.state)
	t, err := d.stage(next)
	if err != nil {
		d.fail(err)
		return
	}
	d.staging = t
	d.phase = PhaseTransitioning
	d.events.Push(event.Event{Kind: event.KindLoading, Show: true, Text: fmt.Sprintf("Level %d: %s", next.Index, next.Theme)})
	d.advance()
}

func (d *Director) stage(next State) (*transition, error) {
	rng := LevelRand(d.seed, next.Index)
	plan, err := d.gen.PlanLevel(next, rng)
	if err != nil {
		return nil, fmt.Errorf("planning level %d: %w", next.Index, err)
	}
	d.nextGen++
	return &transition{gen: d.nextGen, next: next, plan: plan, rng: rng}, nil
}

// advance spawns the next batch of the staged plan and commits when done.
func (d *Director) advance() {
	t := d.staging
	if t == nil {
		d.phase = PhasePlaying
		return
	}
	batch := d.cfg.Level.SpawnBatch
	if batch <= 0 {
		batch = len(t.plan.Items)
	}
	for i := 0; i < batch && t.cursor < len(t.plan.Items); i++ {
		if err := d.spawnNext(t); err != nil {
			d.fail(err)
			return
		}
	}
	if t.cursor >= len(t.plan.Items) {
		d.commit()
	}
}

// spawnNext places the item at the cursor, re-sampling its position while
// it is too close to the ball.
func (d *Director) spawnNext(t *transition) error {
	it := t.plan.Items[t.cursor]
	t.cursor++

	pos, ok := d.place(it, t)
	if !ok {
		d.skipped++
		return nil
	}
	_, err := d.reg.Spawn(t.gen, items.Spawn{
		Archetype: it.Archetype,
		Pos:       pos,
		Radius:    it.Radius,
		Mass:      it.Mass,
		Color:     it.Color,
	})
	if err != nil {
		return fmt.Errorf("spawning %s: %w", it.Archetype, err)
	}
	return nil
}

func (d *Director) place(it PlannedItem, t *transition) (r3.Vec, bool) {
	ballPos := d.ball.Position()
	clearance := d.cfg.Level.ClearanceFactor*d.ball.Radius() + it.Radius
	pos := it.Pos
	limit := t.next.Boundary - it.Radius
	for attempt := 0; attempt < d.cfg.Level.SpawnAttempts; attempt++ {
		dx, dz := pos.X-ballPos.X, pos.Z-ballPos.Z
		if dx*dx+dz*dz >= clearance*clearance {
			return pos, true
		}
		pos.X, pos.Z = DiskPoint(t.rng, limit)
	}
	return pos, false
}

// commit swaps the staged generation in and the old one out.
func (d *Director) commit() {
	t := d.staging
	d.staging = nil
	old := d.live
	disposed := 0
	if old != 0 {
		disposed = d.reg.DisposeGeneration(old)
	}
	d.live = t.gen
	d.state = t.next
	d.phase = PhasePlaying
	d.tween = nil

	count := d.reg.CountGeneration(t.gen)
	d.logger.Info("level_start",
		"level", d.state.Index,
		"theme", d.state.Theme,
		"target", d.state.Target,
		"boundary", d.state.Boundary,
		"items", count,
		"disposed", disposed,
		"skipped", d.skipped,
	)
	d.skipped = 0
	d.events.Push(event.Event{Kind: event.KindLoading, Show: false})
	d.events.Push(event.Event{
		Kind:   event.KindLevelStart,
		Level:  d.state.Index,
		Theme:  d.state.Theme,
		Target: d.state.Target,
		Items:  count,
	})
}

// abort drops a staged transition and its spawned items.
func (d *Director) abort() {
	if d.staging == nil {
		return
	}
	n := d.reg.DisposeGeneration(d.staging.gen)
	d.logger.Info("transition_aborted", "level", d.staging.next.Index, "disposed", n)
	d.staging = nil
}

// fail abandons the transition, keeps the current level and schedules a retry.
func (d *Director) fail(err error) {
	d.abort()
	d.phase = PhasePlaying
	d.tween = nil
	d.retryIn = d.cfg.Level.RetryDelay
	if d.retryIn <= 0 {
		d.retryIn = d.cfg.Clock.StepDuration
	}
	d.logger.Warn("transition_failed", "level", d.state.Index+1, "error", err)
	d.events.Push(event.Event{Kind: event.KindLoading, Show: false})
	d.events.Warn("level %d could not be built, retrying: %v", d.state.Index+1, err)
}

// Dispose releases every item, staged or live.
func (d *Director) Dispose() {
	d.abort()
	d.reg.DisposeAll()
}
