package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultsMatchCoreConstants(t *testing.T) {
	cfg := MustDefault()

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"step_duration", cfg.Clock.StepDuration, 1.0 / 60.0},
		{"base_threshold", cfg.Collection.BaseThreshold, 0.9},
		{"progressive_scaling", cfg.Collection.ProgressiveScaling, 0.02},
		{"max_threshold", cfg.Collection.MaxThreshold, 1.3},
		{"min_range_factor", cfg.Collection.MinRangeFactor, 1.2},
		{"range_growth", cfg.Collection.RangeGrowth, 0.1},
		{"max_range_factor", cfg.Collection.MaxRangeFactor, 3.0},
		{"attachment_scale", cfg.Collection.AttachmentScale, 0.85},
		{"min_compression", cfg.Collection.MinCompression, 0.6},
		{"compression_rate", cfg.Collection.CompressionRate, 0.008},
		{"contribution_factor", cfg.Collection.ContributionFactor, 0.8},
		{"difficulty_scale_rate", cfg.Growth.DifficultyScaleRate, 0.02},
		{"min_difficulty_scale", cfg.Growth.MinDifficultyScale, 0.1},
		{"size_ratio_multiplier", cfg.Growth.SizeRatioMultiplier, 2.0},
		{"growth_rate_reduction", cfg.Growth.GrowthRateReduction, 0.3},
		{"progression_multiplier", cfg.Level.ProgressionMultiplier, 2.0},
		{"initial_target", cfg.Level.InitialTarget, 10.0},
		{"snap_epsilon", cfg.Katamari.SnapEpsilon, 0.01},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if math.Abs(tt.got-tt.want) > 1e-12 {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}

	if cfg.Clock.MaxSteps != 3 {
		t.Errorf("max_steps = %d, want 3", cfg.Clock.MaxSteps)
	}
	if cfg.Collection.OrbitalSpeedRange != [2]float64{0.2, 0.7} {
		t.Errorf("orbital_speed_range = %v", cfg.Collection.OrbitalSpeedRange)
	}
	if cfg.Derived.StepsPerSecond != 60 {
		t.Errorf("steps per second = %d, want 60", cfg.Derived.StepsPerSecond)
	}

	names := []string{"earth", "urban", "space"}
	if len(cfg.Themes) != len(names) {
		t.Fatalf("got %d themes, want %d", len(cfg.Themes), len(names))
	}
	for i, n := range names {
		if cfg.Themes[i].Name != n {
			t.Errorf("theme %d = %q, want %q", i, cfg.Themes[i].Name, n)
		}
		if cfg.Derived.ThemeIndex[n] != i {
			t.Errorf("theme index of %q = %d, want %d", n, cfg.Derived.ThemeIndex[n], i)
		}
	}
}

func TestDefaultsValidate(t *testing.T) {
	if err := MustDefault().Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero initial radius", func(c *Config) { c.Katamari.InitialRadius = 0 }},
		{"negative initial radius", func(c *Config) { c.Katamari.InitialRadius = -1 }},
		{"zero step", func(c *Config) { c.Clock.StepDuration = 0 }},
		{"threshold inverted", func(c *Config) { c.Collection.MaxThreshold = 0.5 }},
		{"compression above one", func(c *Config) { c.Collection.MinCompression = 1.2 }},
		{"multiplier not growing", func(c *Config) { c.Level.ProgressionMultiplier = 1 }},
		{"no themes", func(c *Config) { c.Themes = nil }},
		{"empty archetypes", func(c *Config) { c.Themes[0].Archetypes = nil }},
		{"bad archetype size", func(c *Config) { c.Themes[1].Archetypes[0].MaxSize = 0 }},
		{"nan gravity", func(c *Config) { c.Physics.Gravity = math.NaN() }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := MustDefault()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestLoadMergesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "override.yaml")
	data := []byte("katamari:\n  initial_radius: 3.5\nlevel:\n  max_level: 4\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Katamari.InitialRadius != 3.5 {
		t.Errorf("initial_radius = %v, want 3.5", cfg.Katamari.InitialRadius)
	}
	if cfg.Level.MaxLevel != 4 {
		t.Errorf("max_level = %d, want 4", cfg.Level.MaxLevel)
	}
	// Untouched values keep their defaults
	if cfg.Collection.BaseThreshold != 0.9 {
		t.Errorf("base_threshold = %v, want 0.9", cfg.Collection.BaseThreshold)
	}
}

func TestLoadInvalidOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("katamari:\n  initial_radius: -2\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg := MustDefault()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Level.InitialTarget != cfg.Level.InitialTarget || len(loaded.Themes) != len(cfg.Themes) {
		t.Errorf("round trip changed config")
	}
}

func TestThemeWraps(t *testing.T) {
	cfg := MustDefault()
	if got := cfg.Theme(3).Name; got != "earth" {
		t.Errorf("Theme(3) = %q, want earth", got)
	}
	if got := cfg.Theme(-1).Name; got != "space" {
		t.Errorf("Theme(-1) = %q, want space", got)
	}
}
