package ui

import (
	"log/slog"
	"math"
)

// Cues stands in for the audio collaborator. It logs collect cues, smooths
// the roll speed into a rumble level for the HUD and forwards collects to
// an optional effect hook.
type Cues struct {
	logger *slog.Logger

	// OnCollectFn, if set, runs for every collect cue.
	OnCollectFn func(itemSize, contactSpeed float64)

	collects int
	rumble   float64
	surface  string
	maxSpeed float64
}

// NewCues creates cues that reach full rumble at maxSpeed.
func NewCues(logger *slog.Logger, maxSpeed float64) *Cues {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cues{logger: logger, maxSpeed: maxSpeed}
}

// OnCollect implements game.Audio.
func (c *Cues) OnCollect(itemSize, contactSpeed float64) {
	c.collects++
	c.logger.Debug("cue_collect", "size", itemSize, "speed", contactSpeed, "surface", c.surface)
	if c.OnCollectFn != nil {
		c.OnCollectFn(itemSize, contactSpeed)
	}
}

// OnRoll implements game.Audio.
func (c *Cues) OnRoll(speed float64, surface string) {
	target := 0.0
	if c.maxSpeed > 0 {
		target = math.Min(1, speed/c.maxSpeed)
	}
	c.rumble += (target - c.rumble) * 0.2
	if surface != c.surface {
		c.logger.Debug("cue_surface", "surface", surface)
		c.surface = surface
	}
}

// Rumble returns the smoothed roll level in [0, 1].
func (c *Cues) Rumble() float64 { return c.rumble }

// Collects returns the number of collect cues received.
func (c *Cues) Collects() int { return c.collects }
