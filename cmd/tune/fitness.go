package main

import (
	"io"
	"log/slog"
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/katamari/config"
	"github.com/pthm-cable/katamari/game"
)

// levelTracker records level completion times pushed by the core.
type levelTracker struct {
	simTime   func() float64
	completed []float64 // Sim seconds at each completion
	won       bool
}

func (t *levelTracker) OnHUD(game.HUD)            {}
func (t *levelTracker) OnPowerUp(map[string]bool) {}
func (t *levelTracker) OnLoading(bool, string)    {}
func (t *levelTracker) OnMessage(bool, string)    {}
func (t *levelTracker) OnGameWon(game.Summary)    { t.won = true }
func (t *levelTracker) OnLevelComplete(game.LevelSummary) {
	t.completed = append(t.completed, t.simTime())
}

// FitnessEvaluator runs headless autopilot games and computes fitness.
type FitnessEvaluator struct {
	params     *ParamVector
	maxTicks   int
	seeds      []int64
	baseConfig *config.Config
	levelSec   float64 // Desired seconds per level

	mu          sync.Mutex
	lastLevels  float64 // mean levels completed in the most recent Evaluate call
	lastPaceErr float64
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxTicks int, seeds []int64, baseCfg *config.Config, levelSec float64) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:     params,
		maxTicks:   maxTicks,
		seeds:      seeds,
		baseConfig: baseCfg,
		levelSec:   levelSec,
	}
}

// LastStats returns mean levels completed and mean pacing error from the
// most recent evaluation.
func (fe *FitnessEvaluator) LastStats() (levels, paceErr float64) {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastLevels, fe.lastPaceErr
}

// runResult holds the results from a single run.
type runResult struct {
	completed []float64
	progress  float64 // R / target of the level in play at the end
	failed    bool
}

// Evaluate computes fitness for a parameter vector (lower = better).
// Seeds run in parallel; the mean score is penalised by its spread so
// a config that only works on one layout loses to a consistent one.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	results := make([]*runResult, len(fe.seeds))
	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			results[idx] = fe.runGame(x, s)
		}(i, seed)
	}
	wg.Wait()

	scores := make([]float64, len(results))
	var levels, paceErr float64
	for i, r := range results {
		scores[i] = fe.score(r)
		levels += float64(len(r.completed))
		paceErr += fe.paceError(r.completed)
	}
	mean, std := stat.MeanStdDev(scores, nil)
	if len(scores) < 2 {
		std = 0
	}

	n := float64(len(results))
	fe.mu.Lock()
	fe.lastLevels = levels / n
	fe.lastPaceErr = paceErr / n
	fe.mu.Unlock()

	return -(mean - 0.5*std)
}

// runGame plays one seed with the autopilot until maxTicks or a win.
func (fe *FitnessEvaluator) runGame(x []float64, seed int64) *runResult {
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)

	tracker := &levelTracker{}
	g, err := game.New(cfg, game.Collaborators{UI: tracker}, game.Options{
		Seed:      seed,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Autopilot: true,
	})
	if err != nil {
		return &runResult{failed: true}
	}
	defer g.Dispose()
	tracker.simTime = g.SimTime

	for i := 0; i < fe.maxTicks && !tracker.won; i++ {
		if err := g.Step(); err != nil {
			return &runResult{failed: true, completed: tracker.completed}
		}
	}

	result := &runResult{completed: tracker.completed}
	if target := g.Director().State().Target; target > 0 {
		result.progress = math.Min(1, g.Katamari().Radius()/target)
	}
	return result
}

// copyConfig returns a copy of the base config that parameters can be
// applied to without touching the shared base.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg := *fe.baseConfig
	cfg.Themes = append([]config.ThemeConfig(nil), fe.baseConfig.Themes...)
	return &cfg
}

// score rates a run in [0, levels+1]: one point per completed level
// scaled by how close the pacing is to levelSec, plus partial progress on
// the level in play.
func (fe *FitnessEvaluator) score(r *runResult) float64 {
	if r.failed {
		return 0
	}
	pace := math.Exp(-fe.paceError(r.completed))
	return float64(len(r.completed))*pace + r.progress
}

// paceError is the mean squared log ratio of level durations to levelSec.
func (fe *FitnessEvaluator) paceError(completed []float64) float64 {
	if len(completed) == 0 || fe.levelSec <= 0 {
		return 0
	}
	var sum, prev float64
	for _, t := range completed {
		d := math.Max(t-prev, 1e-3)
		logErr := math.Log(d / fe.levelSec)
		sum += logErr * logErr
		prev = t
	}
	return sum / float64(len(completed))
}
