package game

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/katamari/config"
	"github.com/pthm-cable/katamari/input"
	"github.com/pthm-cable/katamari/level"
	"github.com/pthm-cable/katamari/physics"
	"github.com/pthm-cable/katamari/scene"
)

// recordingUI keeps every push it receives.
type recordingUI struct {
	huds      []HUD
	powerUps  []map[string]bool
	loading   []bool
	messages  []string
	completes []LevelSummary
	won       []Summary

	// onHUD runs after a HUD push is recorded.
	onHUD func()
}

func (u *recordingUI) OnHUD(h HUD) {
	u.huds = append(u.huds, h)
	if u.onHUD != nil {
		u.onHUD()
	}
}
func (u *recordingUI) OnPowerUp(active map[string]bool) { u.powerUps = append(u.powerUps, active) }
func (u *recordingUI) OnLoading(show bool, _ string)    { u.loading = append(u.loading, show) }
func (u *recordingUI) OnLevelComplete(s LevelSummary)   { u.completes = append(u.completes, s) }
func (u *recordingUI) OnGameWon(s Summary)              { u.won = append(u.won, s) }
func (u *recordingUI) OnMessage(show bool, text string) {
	if show {
		u.messages = append(u.messages, text)
	}
}

type recordingAudio struct {
	collects int
	rolls    int
	surface  string
}

func (a *recordingAudio) OnCollect(_, _ float64) { a.collects++ }
func (a *recordingAudio) OnRoll(_ float64, surface string) {
	a.rolls++
	a.surface = surface
}

// holdKeys always reports the same keys with the default camera basis.
type holdKeys input.Keys

func (h holdKeys) Snapshot() input.Context {
	return input.Context{Keys: input.Keys(h), Basis: input.DefaultBasis()}
}

type nanTouch struct{}

func (nanTouch) Snapshot() input.Context {
	return input.Context{
		Touch: input.Touch{Active: true, X: math.NaN()},
		Basis: input.DefaultBasis(),
	}
}

type fixture struct {
	core  *Core
	phys  *physics.Engine
	graph *scene.Scene
	ui    *recordingUI
	audio *recordingAudio
}

func newFixture(t *testing.T, mutate func(*config.Config), in input.Provider, opts Options) *fixture {
	t.Helper()
	cfg := config.MustDefault()
	if mutate != nil {
		mutate(cfg)
	}
	f := &fixture{
		phys:  physics.NewEngine(cfg.Physics),
		graph: scene.New(),
		ui:    &recordingUI{},
		audio: &recordingAudio{},
	}
	core, err := New(cfg, Collaborators{
		Physics: f.phys,
		Graph:   f.graph,
		Input:   in,
		UI:      f.ui,
		Audio:   f.audio,
	}, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f.core = core
	t.Cleanup(core.Dispose)
	return f
}

func (f *fixture) steps(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := f.core.Step(); err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
	}
}

// stepUntil steps until cond holds and returns the number of steps taken.
func (f *fixture) stepUntil(t *testing.T, budget int, what string, cond func() bool) int {
	t.Helper()
	for i := 1; i <= budget; i++ {
		if err := f.core.Step(); err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
		if cond() {
			return i
		}
	}
	t.Fatalf("%s not reached in %d steps", what, budget)
	return 0
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := config.MustDefault()
	cfg.Katamari.InitialRadius = -1
	_, err := New(cfg, Collaborators{}, Options{})
	if !errors.Is(err, config.ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
}

func TestNewStartsLevelOne(t *testing.T) {
	f := newFixture(t, nil, nil, Options{Seed: 1})
	st := f.core.Director().State()
	if st.Index != 1 || st.Theme != "earth" || st.Target != 10 {
		t.Fatalf("state = %+v, want level 1 earth target 10", st)
	}
	if f.core.Registry().Len() == 0 {
		t.Fatal("level 1 spawned no items")
	}
	if !reflect.DeepEqual(f.ui.loading, []bool{false}) {
		t.Errorf("loading pushes = %v, want a single hide", f.ui.loading)
	}
	if len(f.ui.messages) != 1 || !strings.HasPrefix(f.ui.messages[0], "Level 1: earth") {
		t.Errorf("messages = %q", f.ui.messages)
	}
}

func TestStepPushesHUDAndAudio(t *testing.T) {
	f := newFixture(t, nil, nil, Options{})
	f.steps(t, 3)

	if len(f.ui.huds) != 3 {
		t.Fatalf("HUD pushes = %d, want 3", len(f.ui.huds))
	}
	h := f.ui.huds[2]
	if h.Radius != 2 || h.Target != 10 || h.Items != 0 {
		t.Errorf("HUD = %+v", h)
	}
	if f.audio.rolls != 3 || f.audio.surface != "earth" {
		t.Errorf("rolls = %d surface = %q", f.audio.rolls, f.audio.surface)
	}
	if f.core.Ticks() != 3 {
		t.Errorf("Ticks = %d, want 3", f.core.Ticks())
	}
}

func TestTickRunsFixedSteps(t *testing.T) {
	f := newFixture(t, nil, nil, Options{})
	step := f.core.Config().Clock.StepDuration

	if err := f.core.Tick(10); err != nil {
		t.Fatal(err)
	}
	if f.core.Ticks() != 0 {
		t.Fatalf("first tick ran %d steps", f.core.Ticks())
	}
	if err := f.core.Tick(10 + 2*step); err != nil {
		t.Fatal(err)
	}
	if f.core.Ticks() != 2 {
		t.Errorf("Ticks = %d, want 2", f.core.Ticks())
	}
	if len(f.ui.huds) != 2 {
		t.Errorf("HUD pushes = %d, want one per frame", len(f.ui.huds))
	}
}

func TestForwardInputRollsBall(t *testing.T) {
	f := newFixture(t, nil, holdKeys(input.KeyForward), Options{})
	f.steps(t, 60)

	ball := f.core.Katamari()
	if !ball.Moving() || ball.Speed() <= 0 {
		t.Fatalf("moving=%v speed=%v under forward input", ball.Moving(), ball.Speed())
	}
	if h := f.ui.huds[len(f.ui.huds)-1]; h.Speed != ball.Speed() {
		t.Errorf("HUD speed = %v, want %v", h.Speed, ball.Speed())
	}
}

func TestNonFiniteInputWarns(t *testing.T) {
	f := newFixture(t, nil, nanTouch{}, Options{})
	f.steps(t, 1)

	found := false
	for _, m := range f.ui.messages {
		if strings.HasPrefix(m, "input ignored") {
			found = true
		}
	}
	if !found {
		t.Errorf("no input warning in %q", f.ui.messages)
	}
	if f.core.Katamari().Moving() {
		t.Error("corrupt sample moved the ball")
	}
}

func TestLevelCompletionAndTransition(t *testing.T) {
	f := newFixture(t, nil, holdKeys(input.KeyForward), Options{Seed: 7})
	ball := f.core.Katamari()
	dir := f.core.Director()

	// One big item pushes R* past the level target.
	ball.CollectItem(20, f.core.Config().Collection.ContributionFactor)
	target := ball.Target()

	f.stepUntil(t, 3000, "completing", func() bool { return dir.Phase() == level.PhaseCompleting })
	if len(f.ui.completes) != 1 {
		t.Fatalf("level complete pushes = %d", len(f.ui.completes))
	}
	got := f.ui.completes[0]
	if got.Level != 1 || got.Theme != "earth" || got.NewTarget != 20 {
		t.Errorf("summary = %+v, want level 1 earth new target 20", got)
	}

	f.steps(t, 1)
	if ball.Moving() {
		t.Error("input applied while completing")
	}

	f.stepUntil(t, 600, "level 2", func() bool {
		return dir.Phase() == level.PhasePlaying && dir.State().Index == 2
	})
	st := dir.State()
	if st.Theme != "urban" || st.Target != 20 {
		t.Errorf("level 2 = %+v", st)
	}
	// Growing into nearby items may collect a few more.
	if ball.Items() < 1 || ball.Target() < target {
		t.Errorf("ball lost state across levels: items=%d target=%v", ball.Items(), ball.Target())
	}
	if n := f.core.Registry().CountGeneration(dir.Generation()); n != f.core.Registry().Len() {
		t.Errorf("old level items remain: live=%d total=%d", n, f.core.Registry().Len())
	}
}

func TestRequestTransitionSkipsLevel(t *testing.T) {
	f := newFixture(t, nil, nil, Options{Seed: 3})
	f.core.RequestTransition()
	f.stepUntil(t, 60, "level 2", func() bool { return f.core.Director().State().Index == 2 })
	if f.core.Director().Phase() != level.PhasePlaying {
		t.Errorf("phase = %v", f.core.Director().Phase())
	}
	if !reflect.DeepEqual(f.ui.loading, []bool{false, true, false}) {
		t.Errorf("loading pushes = %v", f.ui.loading)
	}
}

func TestMaxLevelWins(t *testing.T) {
	f := newFixture(t, func(c *config.Config) { c.Level.MaxLevel = 1 }, nil, Options{})
	f.core.Katamari().CollectItem(20, 0.8)

	f.stepUntil(t, 3000, "won", func() bool { return f.core.Director().Phase() == level.PhaseWon })
	if len(f.ui.won) != 1 {
		t.Fatalf("game won pushes = %d", len(f.ui.won))
	}
	if s := f.ui.won[0]; s.Level != 1 || s.Items < 1 {
		t.Errorf("summary = %+v", s)
	}

	// The ball keeps running after the win.
	f.core.SetInput(holdKeys(input.KeyForward))
	f.steps(t, 10)
	if !f.core.Katamari().Moving() {
		t.Error("input disabled after winning")
	}
}

func TestDisposeFromCollaboratorAbortsTick(t *testing.T) {
	f := newFixture(t, nil, nil, Options{})
	f.ui.onHUD = f.core.Dispose

	if err := f.core.Step(); !errors.Is(err, ErrDisposed) {
		t.Fatalf("Step = %v, want ErrDisposed", err)
	}
	if err := f.core.Tick(1); !errors.Is(err, ErrDisposed) {
		t.Errorf("Tick after dispose = %v", err)
	}
	ticks := f.core.Ticks()
	f.core.Step()
	if f.core.Ticks() != ticks {
		t.Error("disposed core kept stepping")
	}
}

func TestDisposedKatamariIsFatal(t *testing.T) {
	f := newFixture(t, nil, nil, Options{})
	f.core.Katamari().Dispose()

	if err := f.core.Step(); !errors.Is(err, ErrDisposed) {
		t.Fatalf("Step = %v, want ErrDisposed", err)
	}
	if !f.core.Disposed() {
		t.Error("core not disposed after losing the katamari")
	}
}

func TestDisposeReleasesEverything(t *testing.T) {
	f := newFixture(t, nil, nil, Options{Autopilot: true})
	f.steps(t, 5)
	f.core.Dispose()
	f.core.Dispose()

	if f.core.Registry().Len() != 0 || f.phys.BodyCount() != 0 || f.graph.Len() != 0 {
		t.Errorf("leak: items=%d bodies=%d nodes=%d",
			f.core.Registry().Len(), f.phys.BodyCount(), f.graph.Len())
	}
}

func TestAutopilotCollects(t *testing.T) {
	f := newFixture(t, nil, nil, Options{Seed: 11, Autopilot: true})
	f.stepUntil(t, 3600, "first collect", func() bool { return f.core.Katamari().Items() > 0 })

	if f.audio.collects == 0 {
		t.Error("collect never reached audio")
	}
	if f.core.Katamari().Target() <= 2 {
		t.Errorf("target = %v, want growth", f.core.Katamari().Target())
	}
}

type trace struct {
	radius []float64
	items  []int
}

func run(t *testing.T, opts Options, in input.Provider, steps int) (trace, *fixture) {
	t.Helper()
	f := newFixture(t, nil, in, opts)
	var tr trace
	for i := 0; i < steps; i++ {
		if err := f.core.Step(); err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
		tr.radius = append(tr.radius, f.core.Katamari().Radius())
		tr.items = append(tr.items, f.core.Katamari().Items())
	}
	return tr, f
}

func TestReplayReproducesRun(t *testing.T) {
	const steps = 600
	first, rec := run(t, Options{Seed: 5, Autopilot: true, RecordInput: true}, nil, steps)
	if rec.core.Tape().Len() != steps {
		t.Fatalf("tape has %d frames, want %d", rec.core.Tape().Len(), steps)
	}

	tape := rec.core.Tape()
	tape.Rewind()
	replay, _ := run(t, Options{Seed: 5}, tape, steps)

	if !reflect.DeepEqual(first, replay) {
		t.Error("replay with the same seed and tape diverged")
	}
}

func TestSeedControlsLayout(t *testing.T) {
	positions := func(seed int64) []r3.Vec {
		f := newFixture(t, nil, nil, Options{Seed: seed})
		var out []r3.Vec
		for _, it := range f.core.Snapshot().Items {
			out = append(out, r3.Vec{X: it.X, Y: it.Y, Z: it.Z})
		}
		return out
	}
	a, b, c := positions(9), positions(9), positions(10)
	if !reflect.DeepEqual(a, b) {
		t.Error("same seed produced different layouts")
	}
	if reflect.DeepEqual(a, c) {
		t.Error("different seeds produced the same layout")
	}
}

func TestSetPowerUp(t *testing.T) {
	f := newFixture(t, nil, nil, Options{})
	f.core.SetPowerUp("magnet", true)
	f.core.SetPowerUp("magnet", true)
	f.core.SetPowerUp("speed", true)
	f.core.SetPowerUp("magnet", false)

	want := []map[string]bool{
		{"magnet": true},
		{"magnet": true, "speed": true},
		{"speed": true},
	}
	if !reflect.DeepEqual(f.ui.powerUps, want) {
		t.Errorf("pushes = %v, want %v", f.ui.powerUps, want)
	}
}

func TestSnapshot(t *testing.T) {
	f := newFixture(t, nil, nil, Options{Seed: 2})
	f.steps(t, 2)
	snap := f.core.Snapshot()
	if snap.Seed != 2 || snap.Tick != 2 || snap.Phase != "playing" {
		t.Errorf("header = %+v", snap)
	}
	if len(snap.Items) != f.core.Registry().Len() {
		t.Errorf("items = %d, want %d", len(snap.Items), f.core.Registry().Len())
	}
	if snap.Level.Index != 1 || snap.Katamari.Radius != 2 {
		t.Errorf("level=%d radius=%v", snap.Level.Index, snap.Katamari.Radius)
	}
}

func TestOutputFiles(t *testing.T) {
	dir := t.TempDir()
	f := newFixture(t, nil, nil, Options{
		OutputDir:      dir,
		StatsWindowSec: 0.25,
		Autopilot:      true,
		RecordInput:    true,
	})
	f.steps(t, 60)
	f.core.Dispose()

	for _, name := range []string{"config.yaml", "telemetry.csv", "perf.csv", "input_tape.csv"} {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			t.Errorf("%s: %v", name, err)
			continue
		}
		if info.Size() == 0 {
			t.Errorf("%s is empty", name)
		}
	}
}
