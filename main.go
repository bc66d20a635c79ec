package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/katamari/app"
	"github.com/pthm-cable/katamari/config"
	"github.com/pthm-cable/katamari/game"
	"github.com/pthm-cable/katamari/input"
	"github.com/pthm-cable/katamari/level"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run without graphics (steers with the autopilot or a tape)")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	statsWindow := flag.Float64("stats-window", 0, "Stats window size in seconds (0 = use config)")
	snapshotDir := flag.String("snapshot-dir", "", "Directory for snapshot files")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N steps (0 = unlimited)")
	maxLevel := flag.Int("max-level", -1, "Win after this level (0 = endless, -1 = use config)")
	autopilot := flag.Bool("autopilot", false, "Steer automatically")
	record := flag.Bool("record-input", false, "Record input to input_tape.csv in the output dir")
	replay := flag.String("replay", "", "Replay an input tape CSV (headless only)")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *maxLevel >= 0 {
		cfg.Level.MaxLevel = *maxLevel
	}

	// Set up seed
	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	opts := game.Options{
		Seed:           rngSeed,
		Logger:         logger,
		LogStats:       *logStats,
		StatsWindowSec: *statsWindow,
		SnapshotDir:    *snapshotDir,
		OutputDir:      *outputDir,
		Autopilot:      *autopilot,
		RecordInput:    *record,
	}

	if *headless {
		os.Exit(runHeadless(cfg, opts, *replay, *maxTicks))
	}

	// Graphical mode
	rl.SetConfigFlags(rl.FlagWindowResizable | rl.FlagMsaa4xHint)
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "Katamari")
	defer rl.CloseWindow()

	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	a, err := app.New(cfg, opts)
	if err != nil {
		slog.Error("failed to start", "error", err)
		return
	}
	defer a.Unload()

	for !rl.WindowShouldClose() && !a.Done() {
		a.Update()
		a.Draw()

		if *maxTicks > 0 && int(a.Core().Ticks()) >= *maxTicks {
			break
		}
	}
}

// runHeadless steps the core without a window and returns the exit code.
func runHeadless(cfg *config.Config, opts game.Options, replay string, maxTicks int) int {
	var in input.Provider
	if replay != "" {
		f, err := os.Open(replay)
		if err != nil {
			slog.Error("failed to open tape", "error", err)
			return 1
		}
		tape, err := input.ReadTapeCSV(f)
		f.Close()
		if err != nil {
			slog.Error("failed to read tape", "error", err)
			return 1
		}
		in = tape
		if maxTicks <= 0 {
			maxTicks = tape.Len()
		}
	} else {
		opts.Autopilot = true
	}

	g, err := game.New(cfg, game.Collaborators{Input: in}, opts)
	if err != nil {
		slog.Error("failed to start", "error", err)
		return 1
	}
	defer g.Dispose()

	slog.Info("starting headless run",
		"seed", opts.Seed,
		"max_ticks", maxTicks,
		"replay", replay,
	)

	for maxTicks <= 0 || int(g.Ticks()) < maxTicks {
		if err := g.Step(); err != nil {
			slog.Error("step failed", "tick", g.Ticks(), "error", err)
			return 1
		}
		if g.Director().Phase() == level.PhaseWon {
			break
		}
	}

	s := g.Summary()
	slog.Info("headless run finished",
		"tick", s.Ticks,
		"level", s.Level,
		"theme", s.Theme,
		"radius", s.Radius,
		"items", s.Items,
	)
	return 0
}
