package game

import (
	"github.com/pthm-cable/katamari/input"
	"github.com/pthm-cable/katamari/level"
	"github.com/pthm-cable/katamari/physics"
	"github.com/pthm-cable/katamari/scene"
)

// HUD is the per-frame heads-up display payload.
type HUD struct {
	Radius float64
	Speed  float64
	Items  int
	Target float64
	FPS    float64
}

// LevelSummary describes a completed level.
type LevelSummary struct {
	Level     int
	Theme     string
	NewTarget float64
}

// Summary describes a finished run.
type Summary struct {
	Level   int
	Theme   string
	Radius  float64
	Items   int
	Ticks   int64
	SimTime float64
}

// UI receives pushed display updates. Calls are synchronous and must
// return promptly.
type UI interface {
	OnHUD(h HUD)
	OnPowerUp(active map[string]bool)
	OnLoading(show bool, message string)
	OnMessage(show bool, text string)
	OnLevelComplete(s LevelSummary)
	OnGameWon(s Summary)
}

// Audio receives pushed sound cues.
type Audio interface {
	OnCollect(itemSize, contactSpeed float64)
	OnRoll(speed float64, surface string)
}

// FrameSink is told once per frame that simulation state is ready to draw.
// alpha is the fraction of a step left in the clock carry.
type FrameSink interface {
	OnFrame(alpha float64)
}

// Collaborators are the contracts the core drives. Nil fields get the
// built-in implementation (physics.Engine, scene.Scene, the themed
// generator) or a no-op.
type Collaborators struct {
	Physics   physics.World
	Graph     scene.Graph
	Generator level.Generator
	Input     input.Provider
	UI        UI
	Audio     Audio
	Frames    FrameSink
}

type nopUI struct{}

func (nopUI) OnHUD(HUD)                    {}
func (nopUI) OnPowerUp(map[string]bool)    {}
func (nopUI) OnLoading(bool, string)       {}
func (nopUI) OnMessage(bool, string)       {}
func (nopUI) OnLevelComplete(LevelSummary) {}
func (nopUI) OnGameWon(Summary)            {}

type nopAudio struct{}

func (nopAudio) OnCollect(float64, float64) {}
func (nopAudio) OnRoll(float64, string)     {}

type nopFrames struct{}

func (nopFrames) OnFrame(float64) {}

type idleInput struct{}

func (idleInput) Snapshot() input.Context { return input.Context{Basis: input.DefaultBasis()} }
