package telemetry

import "math"

// Sample is the per-tick state the collector needs at flush time.
type Sample struct {
	Level     int
	Theme     string
	Target    float64
	Radius    float64
	Items     int
	LiveItems int
}

// Collector accumulates events within time windows and produces WindowStats.
type Collector struct {
	windowDurationSec   float64
	windowDurationTicks int64
	dt                  float64

	// Current window tracking
	windowStartTick   int64
	windowStartRadius float64

	// Event counters for current window
	collected int
	bounced   int
	dangling  int
	warnings  int
	sizes     []float64
	speeds    []float64
}

// NewCollector creates a new stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds
// dt: seconds per tick (used for tick-to-time conversion)
func NewCollector(windowDurationSec, dt float64) *Collector {
	ticksPerWindow := int64(math.Round(windowDurationSec / dt))
	if ticksPerWindow < 1 {
		ticksPerWindow = 1
	}

	return &Collector{
		windowDurationSec:   windowDurationSec,
		windowDurationTicks: ticksPerWindow,
		dt:                  dt,
		windowStartRadius:   -1,
	}
}

// RecordCollect records a collected item of radius size.
func (c *Collector) RecordCollect(size float64, dangling bool) {
	c.collected++
	c.sizes = append(c.sizes, size)
	if dangling {
		c.dangling++
	}
}

// RecordBounce records a contact with an item too big to collect.
func (c *Collector) RecordBounce() {
	c.bounced++
}

// RecordWarning records a surfaced warning.
func (c *Collector) RecordWarning() {
	c.warnings++
}

// RecordTick records the ball speed for one tick.
func (c *Collector) RecordTick(speed, radius float64) {
	if c.windowStartRadius < 0 {
		c.windowStartRadius = radius
	}
	c.speeds = append(c.speeds, speed)
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int64) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Flush produces a WindowStats and resets counters for the next window.
func (c *Collector) Flush(currentTick int64, s Sample) WindowStats {
	elapsed := float64(currentTick-c.windowStartTick) * c.dt
	var rate float64
	if elapsed > 0 {
		rate = float64(c.collected) / elapsed
	}
	var progress float64
	if s.Target > 0 {
		progress = s.Radius / s.Target
	}
	startRadius := c.windowStartRadius
	if startRadius < 0 {
		startRadius = s.Radius
	}

	sizeMean, p10, p50, p90 := ComputeSizeStats(c.sizes)
	speedMean, speedStd, speedMax := ComputeSpeedStats(c.speeds)

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * c.dt,

		Level:  s.Level,
		Theme:  s.Theme,
		Target: s.Target,

		Radius:     s.Radius,
		Items:      s.Items,
		LiveItems:  s.LiveItems,
		Progress:   progress,
		RadiusGain: s.Radius - startRadius,

		Collected:   c.collected,
		Bounced:     c.bounced,
		Dangling:    c.dangling,
		Warnings:    c.warnings,
		CollectRate: rate,

		SizeMean: sizeMean,
		SizeP10:  p10,
		SizeP50:  p50,
		SizeP90:  p90,

		SpeedMean: speedMean,
		SpeedStd:  speedStd,
		SpeedMax:  speedMax,
	}

	// Reset for next window
	c.windowStartTick = currentTick
	c.windowStartRadius = s.Radius
	c.collected = 0
	c.bounced = 0
	c.dangling = 0
	c.warnings = 0
	c.sizes = c.sizes[:0]
	c.speeds = c.speeds[:0]

	return stats
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int64 {
	return c.windowDurationTicks
}
