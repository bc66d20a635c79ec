// Package clock converts wall-clock time into fixed physics steps.
package clock

import (
	"math"

	"github.com/pthm-cable/katamari/config"
)

// Steps is the result of a single Tick.
type Steps struct {
	Count int     // Physics steps to run this frame
	Alpha float64 // Leftover fraction of a step in [0,1), for render interpolation
}

// stepEpsilon absorbs rounding when wall deltas are exact multiples of the step.
const stepEpsilon = 1e-9

// Clock is a fixed-timestep accumulator. It is not safe for concurrent use.
type Clock struct {
	step       float64
	maxSteps   int
	pauseAfter float64
	smoothing  float64

	last    float64
	carry   float64
	started bool

	frameDT float64 // Smoothed frame delta
	ticks   int64
}

// New creates a clock from the clock config section.
func New(cfg config.ClockConfig) *Clock {
	return &Clock{
		step:       cfg.StepDuration,
		maxSteps:   cfg.MaxSteps,
		pauseAfter: cfg.PauseAfter,
		smoothing:  cfg.FPSSmoothing,
	}
}

// Tick advances the clock to now (seconds on any monotonic timeline).
// The first call only records the start time.
func (c *Clock) Tick(now float64) Steps {
	if math.IsNaN(now) || math.IsInf(now, 0) {
		return Steps{Alpha: c.alpha()}
	}
	if !c.started {
		c.started = true
		c.last = now
		return Steps{}
	}

	delta := now - c.last
	c.last = now
	if delta < 0 {
		delta = 0
	}
	c.ticks++

	// Long frames are a pause (tab hidden, debugger): drop the backlog.
	if delta > c.pauseAfter {
		c.carry = 0
		return Steps{}
	}

	c.observe(delta)
	c.carry += delta

	n := int(math.Floor(c.carry/c.step + stepEpsilon))
	if n > c.maxSteps {
		n = c.maxSteps
		c.carry -= float64(n) * c.step
		if c.carry >= c.step {
			// Clamp the runaway backlog to just under one step
			c.carry = math.Nextafter(c.step, 0)
		}
	} else {
		c.carry -= float64(n) * c.step
	}
	if c.carry < 0 {
		c.carry = 0
	}

	return Steps{Count: n, Alpha: c.alpha()}
}

// Step returns the fixed step duration in seconds.
func (c *Clock) Step() float64 {
	return c.step
}

// FPS returns the smoothed frames-per-second estimate, 0 until measured.
func (c *Clock) FPS() float64 {
	if c.frameDT <= 0 {
		return 0
	}
	return 1 / c.frameDT
}

// Reset forgets the last timestamp and any carried time.
func (c *Clock) Reset() {
	c.started = false
	c.carry = 0
}

func (c *Clock) observe(delta float64) {
	if delta <= 0 {
		return
	}
	if c.frameDT == 0 {
		c.frameDT = delta
		return
	}
	c.frameDT += (delta - c.frameDT) * c.smoothing
}

func (c *Clock) alpha() float64 {
	a := c.carry / c.step
	if a >= 1 {
		a = math.Nextafter(1, 0)
	}
	return a
}
