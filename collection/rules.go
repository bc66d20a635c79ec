// Package collection decides what happens when the katamari touches items:
// collection, bounce, attraction and attachment.
package collection

import (
	"math"

	"github.com/pthm-cable/katamari/config"
)

// Rules holds the size gate and attraction range curves.
type Rules struct {
	baseThreshold float64
	progressive   float64
	maxThreshold  float64
	minRange      float64
	rangeGrowth   float64
	maxRange      float64
}

// NewRules builds rules from the collection config section.
func NewRules(cfg config.CollectionConfig) Rules {
	return Rules{
		baseThreshold: cfg.BaseThreshold,
		progressive:   cfg.ProgressiveScaling,
		maxThreshold:  cfg.MaxThreshold,
		minRange:      cfg.MinRangeFactor,
		rangeGrowth:   cfg.RangeGrowth,
		maxRange:      cfg.MaxRangeFactor,
	}
}

// Threshold is tau(R) = min(max, base + R*progressive).
func (r Rules) Threshold(radius float64) float64 {
	return math.Min(r.maxThreshold, r.baseThreshold+radius*r.progressive)
}

// Collectible reports whether a ball of radius R can absorb an item of radius s.
func (r Rules) Collectible(radius, s float64) bool {
	return radius >= s*r.Threshold(radius)
}

// MaxCollectible is the largest item radius collectible at R.
func (r Rules) MaxCollectible(radius float64) float64 {
	return radius / r.Threshold(radius)
}

// RangeFactor is f(R) = clamp(min + R*growth, min, max).
func (r Rules) RangeFactor(radius float64) float64 {
	f := r.minRange + radius*r.rangeGrowth
	return math.Max(r.minRange, math.Min(r.maxRange, f))
}

// Range is the attraction radius R*f(R) around the ball centre.
func (r Rules) Range(radius float64) float64 {
	return radius * r.RangeFactor(radius)
}
