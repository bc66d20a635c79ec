// Level layout preview tool - top-down view of generated levels with sliders.
//
// Usage: go run ./cmd/levelpreview [-config path]
package main

import (
	"flag"
	"fmt"
	"image/color"
	"log"
	"math"
	"sort"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/katamari/collection"
	"github.com/pthm-cable/katamari/config"
	"github.com/pthm-cable/katamari/level"
)

const (
	windowWidth  = 1000
	windowHeight = 720
	previewSize  = 640
	panelWidth   = windowWidth - previewSize - 30
)

// PreviewParams holds the generator inputs under edit.
type PreviewParams struct {
	Seed       int64
	Level      int
	NoiseScale float32
	Clustering float32
}

func defaultParams() PreviewParams {
	return PreviewParams{Seed: 1, Level: 1, NoiseScale: 4, Clustering: 0.8}
}

func main() {
	configPath := flag.String("config", "", "Config YAML file (empty = use defaults)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	rl.InitWindow(windowWidth, windowHeight, "Level Layout Preview")
	defer rl.CloseWindow()
	rl.SetTargetFPS(30)

	params := defaultParams()
	gen := level.NewThemedGenerator(cfg)

	var (
		st      level.State
		plan    level.Plan
		planErr error
	)
	needsRegen := true

	for !rl.WindowShouldClose() {
		if needsRegen {
			gen.NoiseScale = float64(params.NoiseScale)
			gen.Clustering = float64(params.Clustering)
			st = stateAt(cfg, params.Level)
			plan, planErr = gen.PlanLevel(st, level.LevelRand(params.Seed, st.Index))
			needsRegen = false
		}

		rl.BeginDrawing()
		rl.ClearBackground(rl.RayWhite)

		drawPlan(st, plan)
		rl.DrawRectangleLines(10, 10, previewSize, previewSize, rl.DarkGray)

		statsY := int32(previewSize + 20)
		if planErr != nil {
			rl.DrawText(planErr.Error(), 15, statsY, 16, rl.Red)
		} else {
			rl.DrawText(fmt.Sprintf("Level %d  Theme: %s  Target: %.1f  Boundary: %.1f  Items: %d",
				st.Index, st.Theme, st.Target, st.Boundary, len(plan.Items)), 15, statsY, 16, rl.DarkGray)
			rl.DrawText(fmt.Sprintf("Collectible now: %d", collectibleAtStart(cfg, st, plan)), 15, statsY+20, 16, rl.DarkGray)
		}

		// Control panel
		panelX := float32(previewSize + 20)
		panelY := float32(10)

		rl.DrawText("Level Generator", int32(panelX), int32(panelY), 20, rl.DarkGray)
		panelY += 35

		maxLevel := float32(12)
		if cfg.Level.MaxLevel > 0 {
			maxLevel = float32(cfg.Level.MaxLevel)
		}
		rl.DrawText("Level", int32(panelX), int32(panelY), 14, rl.Gray)
		panelY += 18
		newLevel := gui.SliderBar(
			rl.Rectangle{X: panelX, Y: panelY, Width: float32(panelWidth - 80), Height: 20},
			"1", fmt.Sprintf("%.0f", maxLevel),
			float32(params.Level), 1, maxLevel,
		)
		rl.DrawText(fmt.Sprintf("%d", params.Level), int32(panelX+float32(panelWidth-70)), int32(panelY+2), 16, rl.DarkGray)
		if int(newLevel) != params.Level {
			params.Level = int(newLevel)
			needsRegen = true
		}
		panelY += 35

		rl.DrawText("Seed", int32(panelX), int32(panelY), 14, rl.Gray)
		panelY += 18
		newSeed := gui.SliderBar(
			rl.Rectangle{X: panelX, Y: panelY, Width: float32(panelWidth - 80), Height: 20},
			"0", "99999",
			float32(params.Seed), 0, 99999,
		)
		rl.DrawText(fmt.Sprintf("%d", params.Seed), int32(panelX+float32(panelWidth-70)), int32(panelY+2), 16, rl.DarkGray)
		if int64(newSeed) != params.Seed {
			params.Seed = int64(newSeed)
			needsRegen = true
		}
		panelY += 35

		rl.DrawText("Noise scale (features across map)", int32(panelX), int32(panelY), 14, rl.Gray)
		panelY += 18
		newScale := gui.SliderBar(
			rl.Rectangle{X: panelX, Y: panelY, Width: float32(panelWidth - 80), Height: 20},
			"0.5", "12",
			params.NoiseScale, 0.5, 12,
		)
		rl.DrawText(fmt.Sprintf("%.1f", params.NoiseScale), int32(panelX+float32(panelWidth-70)), int32(panelY+2), 16, rl.DarkGray)
		if newScale != params.NoiseScale {
			params.NoiseScale = newScale
			needsRegen = true
		}
		panelY += 35

		rl.DrawText("Clustering (noise bias on archetypes)", int32(panelX), int32(panelY), 14, rl.Gray)
		panelY += 18
		newClustering := gui.SliderBar(
			rl.Rectangle{X: panelX, Y: panelY, Width: float32(panelWidth - 80), Height: 20},
			"0", "1",
			params.Clustering, 0, 1,
		)
		rl.DrawText(fmt.Sprintf("%.2f", params.Clustering), int32(panelX+float32(panelWidth-70)), int32(panelY+2), 16, rl.DarkGray)
		if newClustering != params.Clustering {
			params.Clustering = newClustering
			needsRegen = true
		}
		panelY += 45

		if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: 120, Height: 30}, "Random Seed") {
			params.Seed = int64(rl.GetRandomValue(0, 99999))
			needsRegen = true
		}
		if gui.Button(rl.Rectangle{X: panelX + 130, Y: panelY, Width: 120, Height: 30}, "Reset All") {
			params = defaultParams()
			needsRegen = true
		}
		panelY += 55

		rl.DrawText("Archetypes:", int32(panelX), int32(panelY), 16, rl.DarkGray)
		panelY += 25
		for _, row := range archetypeCounts(plan) {
			rl.DrawRectangle(int32(panelX), int32(panelY+2), 10, 10, toRL(row.color))
			rl.DrawText(fmt.Sprintf("%-10s %4d  r %.2f-%.2f", row.name, row.count, row.minR, row.maxR),
				int32(panelX+16), int32(panelY), 14, rl.Gray)
			panelY += 18
		}

		rl.DrawText("Press C to copy the seed and level", int32(panelX), int32(windowHeight-30), 12, rl.LightGray)
		if rl.IsKeyPressed(rl.KeyC) {
			rl.SetClipboardText(fmt.Sprintf("--seed %d  # level %d (%s)", params.Seed, st.Index, st.Theme))
		}

		rl.EndDrawing()
	}
}

// stateAt walks the progression from level 1 to index.
func stateAt(cfg *config.Config, index int) level.State {
	st := level.Initial(cfg)
	for st.Index < index {
		st = level.Next(cfg, st)
	}
	return st
}

// drawPlan draws the boundary square and every item as a filled circle.
func drawPlan(st level.State, plan level.Plan) {
	rl.DrawRectangle(10, 10, previewSize, previewSize, toRL(level.ParseColor(st.Ground)))
	if st.Boundary <= 0 {
		return
	}
	scale := float32(previewSize) / float32(2*st.Boundary)
	center := rl.Vector2{X: 10 + previewSize/2, Y: 10 + previewSize/2}

	for _, it := range plan.Items {
		p := rl.Vector2{
			X: center.X + float32(it.Pos.X)*scale,
			Y: center.Y + float32(it.Pos.Z)*scale,
		}
		r := float32(math.Max(1, it.Radius*float64(scale)))
		rl.DrawCircleV(p, r, toRL(it.Color))
	}

	// Target radius, to scale
	rl.DrawCircleLines(int32(center.X), int32(center.Y), float32(st.Target)*scale, rl.Magenta)
}

type archetypeRow struct {
	name       string
	count      int
	minR, maxR float64
	color      color.RGBA
}

func archetypeCounts(plan level.Plan) []archetypeRow {
	rows := make(map[string]*archetypeRow)
	for _, it := range plan.Items {
		row, ok := rows[it.Archetype]
		if !ok {
			row = &archetypeRow{name: it.Archetype, minR: it.Radius, maxR: it.Radius, color: it.Color}
			rows[it.Archetype] = row
		}
		row.count++
		row.minR = math.Min(row.minR, it.Radius)
		row.maxR = math.Max(row.maxR, it.Radius)
	}
	out := make([]archetypeRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].count > out[j].count })
	return out
}

// collectibleAtStart counts items a ball entering the level (at the
// previous level's target) could pick up straight away.
func collectibleAtStart(cfg *config.Config, st level.State, plan level.Plan) int {
	r := cfg.Katamari.InitialRadius
	if st.Index > 1 {
		r = st.Target / cfg.Level.ProgressionMultiplier
	}
	rules := collection.NewRules(cfg.Collection)
	n := 0
	for _, it := range plan.Items {
		if rules.Collectible(r, it.Radius) {
			n++
		}
	}
	return n
}

func toRL(c color.RGBA) rl.Color {
	return rl.Color{R: c.R, G: c.G, B: c.B, A: c.A}
}
