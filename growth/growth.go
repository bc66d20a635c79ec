// Package growth implements the volume-based growth curve and the
// per-update radius interpolation.
package growth

import (
	"math"

	"github.com/pthm-cable/katamari/config"
)

// Curve converts collected item sizes into target radius increments.
type Curve struct {
	difficultyRate float64
	minDifficulty  float64
	ratioMult      float64
	reduction      float64

	rate float64 // Fraction of the gap closed per update
	snap float64
}

// New builds a curve from the growth and katamari config sections.
func New(g config.GrowthConfig, k config.KatamariConfig) Curve {
	return Curve{
		difficultyRate: g.DifficultyScaleRate,
		minDifficulty:  g.MinDifficultyScale,
		ratioMult:      g.SizeRatioMultiplier,
		reduction:      g.GrowthRateReduction,
		rate:           k.GrowthRate,
		snap:           k.SnapEpsilon,
	}
}

// DifficultyScale is max(min, 1 - R*rate).
func (c Curve) DifficultyScale(radius float64) float64 {
	return math.Max(c.minDifficulty, 1-radius*c.difficultyRate)
}

// DeltaVolume returns the volume an item of radius s adds to a ball of radius R.
func (c Curve) DeltaVolume(radius, s, contribution float64) float64 {
	if radius <= 0 || s <= 0 || contribution <= 0 {
		return 0
	}
	contrib := math.Min(1, (s/radius)*c.ratioMult)
	return s * s * s * contribution * c.DifficultyScale(radius) * contrib * c.reduction
}

// Next returns the new target radius after collecting an item of radius s.
// The increment is computed from the current radius; it is added to the
// current target volume so that several collections before the ball has
// caught up all count. The result always exceeds target, and the volume
// added (result³ - target³) never exceeds s³; measured against radius³ it
// also includes growth still pending from earlier collections.
func (c Curve) Next(radius, target, s, contribution float64) float64 {
	if target < radius {
		target = radius
	}
	dv := c.DeltaVolume(radius, s, contribution)
	return math.Cbrt(target*target*target + dv)
}

// Step moves radius toward target by the configured rate, snapping once
// the remaining gap is below the snap epsilon.
func (c Curve) Step(radius, target float64) float64 {
	next := radius + (target-radius)*c.rate
	if math.Abs(target-next) < c.snap {
		return target
	}
	return next
}
