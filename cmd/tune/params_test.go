package main

import (
	"math"
	"testing"

	"github.com/pthm-cable/katamari/config"
)

func TestParamVectorRoundTrip(t *testing.T) {
	cfg := config.MustDefault()
	pv := NewParamVector(cfg)

	def := pv.DefaultVector()
	back := pv.Denormalize(pv.Normalize(def))
	for i := range def {
		if math.Abs(back[i]-def[i]) > 1e-9 {
			t.Errorf("%s: %v -> %v", pv.Specs[i].Name, def[i], back[i])
		}
	}
}

func TestDefaultsWithinBounds(t *testing.T) {
	pv := NewParamVector(config.MustDefault())
	for _, spec := range pv.Specs {
		if spec.Default < spec.Min || spec.Default > spec.Max {
			t.Errorf("%s default %v outside [%v, %v]", spec.Name, spec.Default, spec.Min, spec.Max)
		}
	}
}

func TestApplyToConfigClampsAndValidates(t *testing.T) {
	cfg := config.MustDefault()
	pv := NewParamVector(cfg)

	values := make([]float64, pv.Dim())
	for i := range values {
		values[i] = 1e6
	}
	pv.ApplyToConfig(cfg, values)

	got := pv.ExtractFromConfig(cfg)
	for i, spec := range pv.Specs {
		if got[i] != spec.Max {
			t.Errorf("%s = %v, want clamp to %v", spec.Name, got[i], spec.Max)
		}
	}
	if cfg.Movement.MaxAccel < cfg.Movement.BaseAccel {
		t.Errorf("max accel %v below base %v", cfg.Movement.MaxAccel, cfg.Movement.BaseAccel)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("clamped config invalid: %v", err)
	}
}

func TestPaceError(t *testing.T) {
	fe := &FitnessEvaluator{levelSec: 60}
	if e := fe.paceError([]float64{60, 120}); e > 1e-12 {
		t.Errorf("on-pace error = %v, want 0", e)
	}
	if fe.paceError([]float64{30}) <= 0 {
		t.Error("fast level has no pace error")
	}
	if fe.paceError(nil) != 0 {
		t.Error("no levels should have zero pace error")
	}
}

func TestEvaluateDefaults(t *testing.T) {
	if testing.Short() {
		t.Skip("runs headless games")
	}
	cfg := config.MustDefault()
	pv := NewParamVector(cfg)
	fe := NewFitnessEvaluator(pv, 120, []int64{1, 2}, cfg, 60)

	f := fe.Evaluate(pv.DefaultVector())
	if math.IsNaN(f) || f > 0 {
		t.Errorf("fitness = %v, want finite and <= 0", f)
	}
}
