// Package config provides configuration loading and validation for the core.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config holds all core configuration parameters.
// A loaded Config is treated as immutable and handed to constructors.
type Config struct {
	Clock      ClockConfig      `yaml:"clock"`
	Physics    PhysicsConfig    `yaml:"physics"`
	Katamari   KatamariConfig   `yaml:"katamari"`
	Movement   MovementConfig   `yaml:"movement"`
	Collection CollectionConfig `yaml:"collection"`
	Growth     GrowthConfig     `yaml:"growth"`
	Level      LevelConfig      `yaml:"level"`
	Input      InputConfig      `yaml:"input"`
	Themes     []ThemeConfig    `yaml:"themes"`
	Screen     ScreenConfig     `yaml:"screen"`
	Camera     CameraConfig     `yaml:"camera"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ClockConfig holds fixed-timestep parameters.
type ClockConfig struct {
	StepDuration float64 `yaml:"step_duration"` // Seconds per physics step
	MaxSteps     int     `yaml:"max_steps"`     // Steps emitted per Tick at most
	PauseAfter   float64 `yaml:"pause_after"`   // Wall deltas above this reset the carry
	FPSSmoothing float64 `yaml:"fps_smoothing"` // EMA factor for the FPS estimate
}

// PhysicsConfig holds rigid-body world parameters.
type PhysicsConfig struct {
	Gravity         float64 `yaml:"gravity"`          // Downward acceleration (m/s^2)
	GridCellSize    float64 `yaml:"grid_cell_size"`   // Broad-phase cell size
	RollingFriction float64 `yaml:"rolling_friction"` // Blend of linear velocity toward the rolling constraint per step
	ItemDamping     float64 `yaml:"item_damping"`     // Linear damping for item bodies
	Restitution     float64 `yaml:"restitution"`      // Ground bounce
	ImpactSpeed     float64 `yaml:"impact_speed"`     // Minimum downward speed that reports a ground contact
	MaxAngularSpeed float64 `yaml:"max_angular_speed"`
}

// KatamariConfig holds ball parameters.
type KatamariConfig struct {
	InitialRadius float64 `yaml:"initial_radius"`
	Density       float64 `yaml:"density"`     // mass = density * R^3
	GrowthRate    float64 `yaml:"growth_rate"` // Fraction of (R* - R) applied per update
	SnapEpsilon   float64 `yaml:"snap_epsilon"`
	MinRadius     float64 `yaml:"min_radius"` // Radii below this are rejected as sub-epsilon
	StartHeight   float64 `yaml:"start_height"`
}

// MovementConfig holds torque and damping parameters.
type MovementConfig struct {
	BaseAccel         float64 `yaml:"base_accel"`
	AccelRadiusFactor float64 `yaml:"accel_radius_factor"`
	MaxAccel          float64 `yaml:"max_accel"`
	TorqueMultiplier  float64 `yaml:"torque_multiplier"`
	ActiveLinear      float64 `yaml:"active_linear_damping"`
	ActiveAngular     float64 `yaml:"active_angular_damping"`
	IdleLinear        float64 `yaml:"idle_linear_damping"`
	IdleAngular       float64 `yaml:"idle_angular_damping"`
}

// CollectionConfig holds collection, attraction and attachment parameters.
type CollectionConfig struct {
	BaseThreshold         float64    `yaml:"base_threshold"`
	ProgressiveScaling    float64    `yaml:"progressive_scaling"`
	MaxThreshold          float64    `yaml:"max_threshold"`
	MinRangeFactor        float64    `yaml:"min_range_factor"`
	RangeGrowth           float64    `yaml:"range_growth"`
	MaxRangeFactor        float64    `yaml:"max_range_factor"`
	AttractionForce       float64    `yaml:"attraction_force"`
	BounceFactor          float64    `yaml:"bounce_factor"`
	ContributionFactor    float64    `yaml:"contribution_factor"`
	AttachmentScale       float64    `yaml:"attachment_scale"`
	MinCompression        float64    `yaml:"min_compression"`
	CompressionRate       float64    `yaml:"compression_rate"` // Per update
	OrbitalSpeedRange     [2]float64 `yaml:"orbital_speed_range"`
	SurfaceDistanceFactor float64    `yaml:"surface_distance_factor"`
}

// GrowthConfig holds the growth curve parameters.
type GrowthConfig struct {
	DifficultyScaleRate float64 `yaml:"difficulty_scale_rate"`
	MinDifficultyScale  float64 `yaml:"min_difficulty_scale"`
	SizeRatioMultiplier float64 `yaml:"size_ratio_multiplier"`
	GrowthRateReduction float64 `yaml:"growth_rate_reduction"`
}

// LevelConfig holds level progression parameters.
type LevelConfig struct {
	InitialTarget         float64 `yaml:"initial_target"`
	ProgressionMultiplier float64 `yaml:"progression_multiplier"`
	BaseBoundary          float64 `yaml:"base_boundary"`
	BoundaryFactor        float64 `yaml:"boundary_factor"` // Boundary >= target * this
	MaxLevel              int     `yaml:"max_level"`       // 0 = endless
	CompletionDelay       float64 `yaml:"completion_delay"`
	RetryDelay            float64 `yaml:"retry_delay"`
	SpawnBatch            int     `yaml:"spawn_batch"` // 0 = spawn a whole plan in one step
	SpawnAttempts         int     `yaml:"spawn_attempts"`
	MaxItems              int     `yaml:"max_items"`        // Cap on items per level plan
	ClearanceFactor       float64 `yaml:"clearance_factor"` // Spawn at least this * R from the ball
}

// InputConfig holds input fusion parameters.
type InputConfig struct {
	TouchSensitivity float64 `yaml:"touch_sensitivity"` // Per pixel of drag
	TiltDeadZone     float64 `yaml:"tilt_dead_zone"`    // Degrees
	MaxTilt          float64 `yaml:"max_tilt"`          // Degrees
}

// ThemeConfig describes one entry of the theme rotation.
type ThemeConfig struct {
	Name       string            `yaml:"name"`
	Background string            `yaml:"background"`
	Fog        string            `yaml:"fog"`
	Ground     string            `yaml:"ground"`
	Density    float64           `yaml:"density"` // Items per 100 square units of play area
	Archetypes []ArchetypeConfig `yaml:"archetypes"`
}

// ArchetypeConfig defines one kind of item a theme can spawn.
// Sizes are fractions of the level target radius.
type ArchetypeConfig struct {
	Name    string  `yaml:"name"`
	Weight  float64 `yaml:"weight"`
	MinSize float64 `yaml:"min_size"`
	MaxSize float64 `yaml:"max_size"`
	Density float64 `yaml:"density"` // mass = density * s^3
	Color   string  `yaml:"color"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// CameraConfig holds follow camera parameters.
type CameraConfig struct {
	Distance  float64 `yaml:"distance"`   // Multiples of the ball radius
	Height    float64 `yaml:"height"`     // Multiples of the ball radius
	FollowLag float64 `yaml:"follow_lag"` // Seconds to close ~63% of the gap
	YawSpeed  float64 `yaml:"yaw_speed"`  // Radians per second
	FOV       float64 `yaml:"fov"`        // Degrees
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"`
	PerfCollectorWindow int     `yaml:"perf_collector_window"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	StepsPerSecond int            // 1 / Clock.StepDuration
	ThemeIndex     map[string]int // name -> index in the rotation
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()

	return cfg, nil
}

// Default returns the embedded defaults.
func Default() (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}
	cfg.computeDerived()
	return cfg, nil
}

// MustDefault is like Default but panics on error.
func MustDefault() *Config {
	cfg, err := Default()
	if err != nil {
		panic(fmt.Sprintf("config: failed to load defaults: %v", err))
	}
	return cfg
}

// Validate checks the configuration for values the core cannot run with.
func (c *Config) Validate() error {
	checks := []struct {
		name string
		ok   bool
	}{
		{"clock.step_duration > 0", c.Clock.StepDuration > 0},
		{"clock.max_steps >= 1", c.Clock.MaxSteps >= 1},
		{"clock.pause_after > step_duration", c.Clock.PauseAfter > c.Clock.StepDuration},
		{"physics.grid_cell_size > 0", c.Physics.GridCellSize > 0},
		{"katamari.initial_radius > 0", c.Katamari.InitialRadius > 0},
		{"katamari.initial_radius >= min_radius", c.Katamari.InitialRadius >= c.Katamari.MinRadius},
		{"katamari.density > 0", c.Katamari.Density > 0},
		{"katamari.growth_rate in (0,1]", c.Katamari.GrowthRate > 0 && c.Katamari.GrowthRate <= 1},
		{"katamari.snap_epsilon > 0", c.Katamari.SnapEpsilon > 0},
		{"movement.max_accel >= base_accel", c.Movement.MaxAccel >= c.Movement.BaseAccel},
		{"collection.base_threshold > 0", c.Collection.BaseThreshold > 0},
		{"collection.max_threshold >= base_threshold", c.Collection.MaxThreshold >= c.Collection.BaseThreshold},
		{"collection.max_range_factor >= min_range_factor", c.Collection.MaxRangeFactor >= c.Collection.MinRangeFactor},
		{"collection.min_compression in (0,1)", c.Collection.MinCompression > 0 && c.Collection.MinCompression < 1},
		{"collection.attachment_scale in [min_compression,1)", c.Collection.AttachmentScale >= c.Collection.MinCompression && c.Collection.AttachmentScale < 1},
		{"collection.orbital_speed_range ordered", c.Collection.OrbitalSpeedRange[0] <= c.Collection.OrbitalSpeedRange[1]},
		{"collection.contribution_factor > 0", c.Collection.ContributionFactor > 0},
		{"growth.min_difficulty_scale in (0,1]", c.Growth.MinDifficultyScale > 0 && c.Growth.MinDifficultyScale <= 1},
		{"growth.growth_rate_reduction > 0", c.Growth.GrowthRateReduction > 0},
		{"level.initial_target > katamari.initial_radius", c.Level.InitialTarget > c.Katamari.InitialRadius},
		{"level.progression_multiplier > 1", c.Level.ProgressionMultiplier > 1},
		{"level.base_boundary > 0", c.Level.BaseBoundary > 0},
		{"level.boundary_factor >= 1", c.Level.BoundaryFactor >= 1},
		{"level.max_level >= 0", c.Level.MaxLevel >= 0},
		{"level.spawn_batch >= 0", c.Level.SpawnBatch >= 0},
		{"level.spawn_attempts >= 1", c.Level.SpawnAttempts >= 1},
		{"level.max_items >= 1", c.Level.MaxItems >= 1},
		{"input.max_tilt > tilt_dead_zone", c.Input.MaxTilt > c.Input.TiltDeadZone},
		{"themes not empty", len(c.Themes) > 0},
	}
	for _, chk := range checks {
		if !chk.ok {
			return fmt.Errorf("%w: %s", ErrInvalid, chk.name)
		}
	}

	for _, th := range c.Themes {
		if th.Name == "" {
			return fmt.Errorf("%w: theme without name", ErrInvalid)
		}
		if len(th.Archetypes) == 0 {
			return fmt.Errorf("%w: theme %q has no archetypes", ErrInvalid, th.Name)
		}
		for _, a := range th.Archetypes {
			if a.MinSize <= 0 || a.MaxSize < a.MinSize || a.Weight < 0 || a.Density <= 0 {
				return fmt.Errorf("%w: theme %q archetype %q", ErrInvalid, th.Name, a.Name)
			}
		}
	}

	if !finite(c.Physics.Gravity, c.Movement.TorqueMultiplier, c.Collection.AttractionForce) {
		return fmt.Errorf("%w: non-finite constant", ErrInvalid)
	}

	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	if c.Clock.StepDuration > 0 {
		c.Derived.StepsPerSecond = int(math.Round(1 / c.Clock.StepDuration))
	}
	c.Derived.ThemeIndex = make(map[string]int, len(c.Themes))
	for i, th := range c.Themes {
		c.Derived.ThemeIndex[th.Name] = i
	}
}

// Theme returns the theme at the given rotation index (wrapped).
func (c *Config) Theme(index int) ThemeConfig {
	n := len(c.Themes)
	return c.Themes[((index%n)+n)%n]
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
