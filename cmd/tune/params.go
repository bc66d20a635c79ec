package main

import (
	"github.com/pthm-cable/katamari/config"
)

// ParamSpec defines a single tunable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all tunable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of tunable parameters.
// Defaults are read from base so a tuned config can be refined further.
func NewParamVector(base *config.Config) *ParamVector {
	pv := &ParamVector{
		Specs: []ParamSpec{
			// Movement
			{Name: "base_accel", Path: "movement.base_accel", Min: 5, Max: 60},
			{Name: "accel_radius_factor", Path: "movement.accel_radius_factor", Min: 0, Max: 5},
			{Name: "torque_multiplier", Path: "movement.torque_multiplier", Min: 2, Max: 60},
			{Name: "active_linear_damping", Path: "movement.active_linear_damping", Min: 0, Max: 1},
			// Collection
			{Name: "attraction_force", Path: "collection.attraction_force", Min: 0, Max: 0.5},
			{Name: "bounce_factor", Path: "collection.bounce_factor", Min: 5, Max: 60},
			{Name: "contribution_factor", Path: "collection.contribution_factor", Min: 0.1, Max: 1.5},
			// Growth
			{Name: "growth_rate", Path: "katamari.growth_rate", Min: 0.01, Max: 0.5},
			{Name: "difficulty_scale_rate", Path: "growth.difficulty_scale_rate", Min: 0, Max: 0.5},
			{Name: "size_ratio_multiplier", Path: "growth.size_ratio_multiplier", Min: 0.1, Max: 3},
		},
	}
	for i, v := range pv.ExtractFromConfig(base) {
		pv.Specs[i].Default = v
	}
	return pv
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values, clamped into bounds.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return pv.Clamp(v)
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		val := v[i]
		if val < spec.Min {
			val = spec.Min
		}
		if val > spec.Max {
			val = spec.Max
		}
		clamped[i] = val
	}
	return clamped
}

// ApplyToConfig applies parameter values to a Config struct.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	clamped := pv.Clamp(values)

	// Order must match Specs order
	i := 0
	next := func() float64 {
		v := clamped[i]
		i++
		return v
	}

	cfg.Movement.BaseAccel = next()
	cfg.Movement.AccelRadiusFactor = next()
	cfg.Movement.TorqueMultiplier = next()
	cfg.Movement.ActiveLinear = next()
	if cfg.Movement.MaxAccel < cfg.Movement.BaseAccel {
		cfg.Movement.MaxAccel = cfg.Movement.BaseAccel
	}

	cfg.Collection.AttractionForce = next()
	cfg.Collection.BounceFactor = next()
	cfg.Collection.ContributionFactor = next()

	cfg.Katamari.GrowthRate = next()
	cfg.Growth.DifficultyScaleRate = next()
	cfg.Growth.SizeRatioMultiplier = next()
}

// ExtractFromConfig reads parameter values from a Config struct.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	return []float64{
		cfg.Movement.BaseAccel,
		cfg.Movement.AccelRadiusFactor,
		cfg.Movement.TorqueMultiplier,
		cfg.Movement.ActiveLinear,
		cfg.Collection.AttractionForce,
		cfg.Collection.BounceFactor,
		cfg.Collection.ContributionFactor,
		cfg.Katamari.GrowthRate,
		cfg.Growth.DifficultyScaleRate,
		cfg.Growth.SizeRatioMultiplier,
	}
}
