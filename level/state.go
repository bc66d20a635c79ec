// Package level runs level progression: the Playing / Completing /
// Transitioning machine, themed world generation and staged respawns.
package level

import (
	"math"

	"github.com/pthm-cable/katamari/config"
)

// PlanEntry summarizes one archetype of a level's item plan.
// Sizes are absolute radii.
type PlanEntry struct {
	Archetype string  `json:"archetype"`
	Weight    float64 `json:"weight"`
	MinSize   float64 `json:"min_size"`
	MaxSize   float64 `json:"max_size"`
	Color     string  `json:"color"`
}

// State is one level's immutable description. A transition replaces it
// as a whole.
type State struct {
	Index      int         `json:"index"`
	ThemeIndex int         `json:"theme_index"`
	Theme      string      `json:"theme"`
	Target     float64     `json:"target"`
	Boundary   float64     `json:"boundary"`
	Density    float64     `json:"density"`
	Plan       []PlanEntry `json:"plan"`
	Palette    []string    `json:"palette"`
	Fog        string      `json:"fog"`
	Background string      `json:"background"`
	Ground     string      `json:"ground"`
}

// Initial builds the state for level 1.
func Initial(cfg *config.Config) State {
	return build(cfg, 1, 0, cfg.Level.InitialTarget)
}

// Next builds the state following prev: target times the progression
// multiplier, next theme in the rotation.
func Next(cfg *config.Config, prev State) State {
	themeIdx := (prev.ThemeIndex + 1) % len(cfg.Themes)
	return build(cfg, prev.Index+1, themeIdx, prev.Target*cfg.Level.ProgressionMultiplier)
}

// Boundary is the half-extent of the play area for a target radius.
func Boundary(cfg config.LevelConfig, target float64) float64 {
	return math.Max(cfg.BaseBoundary, target*cfg.BoundaryFactor)
}

func build(cfg *config.Config, index, themeIdx int, target float64) State {
	th := cfg.Theme(themeIdx)
	s := State{
		Index:      index,
		ThemeIndex: themeIdx,
		Theme:      th.Name,
		Target:     target,
		Boundary:   Boundary(cfg.Level, target),
		Density:    th.Density,
		Fog:        th.Fog,
		Background: th.Background,
		Ground:     th.Ground,
	}
	for _, a := range th.Archetypes {
		s.Plan = append(s.Plan, PlanEntry{
			Archetype: a.Name,
			Weight:    a.Weight,
			MinSize:   a.MinSize * target,
			MaxSize:   a.MaxSize * target,
			Color:     a.Color,
		})
		s.Palette = append(s.Palette, a.Color)
	}
	return s
}
