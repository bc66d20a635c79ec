// Package game wires the katamari core together and runs the per-frame
// pipeline: clock, input, attraction, physics, contacts, growth and level
// progression, then pushes results to the UI, audio and frame collaborators.
package game

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/pthm-cable/katamari/clock"
	"github.com/pthm-cable/katamari/collection"
	"github.com/pthm-cable/katamari/config"
	"github.com/pthm-cable/katamari/event"
	"github.com/pthm-cable/katamari/input"
	"github.com/pthm-cable/katamari/items"
	"github.com/pthm-cable/katamari/katamari"
	"github.com/pthm-cable/katamari/level"
	"github.com/pthm-cable/katamari/physics"
	"github.com/pthm-cable/katamari/scene"
	"github.com/pthm-cable/katamari/telemetry"
)

// ErrDisposed is returned by Tick once the core has been disposed.
var ErrDisposed = errors.New("game: core disposed")

// Options holds runtime options that are not part of the config file.
type Options struct {
	Seed           int64
	Logger         *slog.Logger // nil means slog.Default()
	LogStats       bool         // Log window stats and perf via the logger
	StatsWindowSec float64      // 0 means cfg.Telemetry.StatsWindow
	OutputDir      string       // CSV logs, config and tape; empty disables output
	SnapshotDir    string       // JSON snapshots on bookmarks; empty disables
	Autopilot      bool         // Steer automatically when no input provider is given
	RecordInput    bool         // Record every sampled context to a tape
}

// Core owns every core component and drives them once per frame.
// Not safe for concurrent use.
type Core struct {
	cfg    *config.Config
	opts   Options
	logger *slog.Logger

	clock    *clock.Clock
	agg      *input.Aggregator
	events   *event.Queue
	phys     physics.World
	graph    scene.Graph
	reg      *items.Registry
	ball     *katamari.Katamari
	resolver *collection.Resolver
	director *level.Director

	in     input.Provider
	tape   *input.Tape
	ui     UI
	audio  Audio
	frames FrameSink

	powerUps map[string]bool
	contacts []physics.Contact

	// Telemetry
	collector *telemetry.Collector
	perf      *telemetry.PerfCollector
	bookmarks *telemetry.BookmarkDetector
	output    *telemetry.OutputManager

	tick        int64
	simTime     float64
	dispatching bool
	disposed    bool
}

// New builds a core and spawns level 1. Configuration problems are
// returned wrapping config.ErrInvalid.
func New(cfg *config.Config, c Collaborators, opts Options) (*Core, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	statsWindow := opts.StatsWindowSec
	if statsWindow <= 0 {
		statsWindow = cfg.Telemetry.StatsWindow
	}

	g := &Core{
		cfg:       cfg,
		opts:      opts,
		logger:    logger,
		clock:     clock.New(cfg.Clock),
		agg:       input.NewAggregator(cfg.Input),
		events:    event.NewQueue(),
		phys:      c.Physics,
		graph:     c.Graph,
		in:        c.Input,
		ui:        c.UI,
		audio:     c.Audio,
		frames:    c.Frames,
		powerUps:  make(map[string]bool),
		contacts:  make([]physics.Contact, 0, 64),
		collector: telemetry.NewCollector(statsWindow, cfg.Clock.StepDuration),
		perf:      telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
		bookmarks: telemetry.NewBookmarkDetector(10),
	}
	if g.phys == nil {
		g.phys = physics.NewEngine(cfg.Physics)
	}
	if g.graph == nil {
		g.graph = scene.New()
	}
	if g.ui == nil {
		g.ui = nopUI{}
	}
	if g.audio == nil {
		g.audio = nopAudio{}
	}
	if g.frames == nil {
		g.frames = nopFrames{}
	}
	gen := c.Generator
	if gen == nil {
		gen = level.NewThemedGenerator(cfg)
	}

	ball, err := katamari.New(cfg, g.phys, g.graph, g.events)
	if err != nil {
		return nil, fmt.Errorf("creating katamari: %w", err)
	}
	ball.SetLogger(logger)
	g.ball = ball

	g.reg = items.NewRegistry(g.phys, g.graph)
	g.resolver = collection.NewResolver(cfg.Collection, ball, g.reg, g.phys, g.graph, g.events)
	g.resolver.SetLogger(logger)
	ball.SetResolver(g.resolver)

	g.director = level.NewDirector(cfg, gen, g.reg, ball, g.events, opts.Seed)
	g.director.SetLogger(logger)
	g.resolver.SetLiveGeneration(g.director.Generation)

	if g.in == nil {
		if opts.Autopilot {
			g.in = NewAutopilot(g.reg, ball, g.resolver.Rules(), g.director)
		} else {
			g.in = idleInput{}
		}
	}
	if opts.RecordInput {
		g.tape = input.NewTape(nil)
		g.in = &input.Recorder{Provider: g.in, Tape: g.tape}
	}

	if g.output, err = telemetry.NewOutputManager(opts.OutputDir); err != nil {
		g.release()
		return nil, err
	}
	if err := g.output.WriteConfig(cfg); err != nil {
		logger.Warn("config_snapshot_failed", "error", err)
	}

	if err := g.director.Start(); err != nil {
		g.release()
		return nil, fmt.Errorf("building level 1: %w", err)
	}
	g.dispatch()

	logger.Info("core_started",
		"seed", opts.Seed,
		"radius", ball.Radius(),
		"level", g.director.State().Index,
		"theme", g.director.State().Theme,
		"items", g.reg.Len(),
	)
	return g, nil
}

// Tick runs one frame at wall-clock time now (seconds). It returns
// ErrDisposed after Dispose, including when Dispose is called from a
// collaborator during the tick.
func (g *Core) Tick(now float64) error {
	if g.disposed {
		return ErrDisposed
	}
	steps := g.clock.Tick(now)

	g.perf.StartFrame()
	for i := 0; i < steps.Count; i++ {
		if err := g.step(); err != nil {
			return err
		}
	}
	err := g.present(steps.Alpha)
	g.perf.EndFrame(steps.Count)
	return err
}

// Step advances exactly one fixed step, bypassing the wall clock.
// Headless runs and tests use it for deterministic stepping.
func (g *Core) Step() error {
	if g.disposed {
		return ErrDisposed
	}
	g.perf.StartFrame()
	err := g.step()
	if err == nil {
		err = g.present(0)
	}
	g.perf.EndFrame(1)
	return err
}

// RequestTransition skips to the next level, aborting one in flight.
func (g *Core) RequestTransition() {
	if g.disposed {
		return
	}
	g.director.RequestTransition()
	g.dispatch()
}

// SetPowerUp flips a named power-up and pushes the active set to the UI.
func (g *Core) SetPowerUp(name string, active bool) {
	if g.powerUps[name] == active {
		return
	}
	if active {
		g.powerUps[name] = true
	} else {
		delete(g.powerUps, name)
	}
	set := make(map[string]bool, len(g.powerUps))
	for k, v := range g.powerUps {
		set[k] = v
	}
	g.ui.OnPowerUp(set)
}

// Dispose releases every item, the ball and the output files. It is safe
// to call more than once and from a collaborator callback.
func (g *Core) Dispose() {
	if g.disposed {
		return
	}
	g.disposed = true
	g.release()
	g.logger.Info("core_disposed", "tick", g.tick)
}

func (g *Core) release() {
	if g.director != nil {
		g.director.Dispose()
	}
	g.ball.Dispose()
	if g.tape != nil {
		if err := g.output.WriteTape(g.tape); err != nil {
			g.logger.Warn("tape_write_failed", "error", err)
		}
	}
	if err := g.output.Close(); err != nil {
		g.logger.Warn("output_close_failed", "error", err)
	}
}

// Accessors

func (g *Core) Config() *config.Config         { return g.cfg }
func (g *Core) Katamari() *katamari.Katamari   { return g.ball }
func (g *Core) Registry() *items.Registry      { return g.reg }
func (g *Core) Director() *level.Director      { return g.director }
func (g *Core) Resolver() *collection.Resolver { return g.resolver }
func (g *Core) Physics() physics.World         { return g.phys }
func (g *Core) Graph() scene.Graph             { return g.graph }
func (g *Core) Tape() *input.Tape              { return g.tape }
func (g *Core) Ticks() int64                   { return g.tick }
func (g *Core) SimTime() float64               { return g.simTime }
func (g *Core) Disposed() bool                 { return g.disposed }

// SetInput replaces the input provider.
func (g *Core) SetInput(p input.Provider) {
	if g.tape != nil {
		p = &input.Recorder{Provider: p, Tape: g.tape}
	}
	g.in = p
}

// Summary describes the run so far.
func (g *Core) Summary() Summary {
	st := g.director.State()
	return Summary{
		Level:   st.Index,
		Theme:   st.Theme,
		Radius:  g.ball.Radius(),
		Items:   g.ball.Items(),
		Ticks:   g.tick,
		SimTime: g.simTime,
	}
}
