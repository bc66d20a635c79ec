package ui

import (
	"fmt"
	"sort"
	"strings"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"

	"github.com/pthm-cable/katamari/game"
)

const (
	messageSeconds = 3.0
	bannerSeconds  = 2.5
)

// fader is a text that fades out over a tween.
type fader struct {
	text  string
	tween *gween.Tween
	alpha float32
}

func (f *fader) show(text string, seconds float32, fn ease.TweenFunc) {
	f.text = text
	f.tween = gween.New(1, 0, seconds, fn)
	f.alpha = 1
}

func (f *fader) hide() {
	f.text = ""
	f.tween = nil
	f.alpha = 0
}

func (f *fader) update(dt float32) {
	if f.tween == nil {
		return
	}
	var done bool
	f.alpha, done = f.tween.Update(dt)
	if done {
		f.hide()
	}
}

// HUD renders the heads-up display. It receives the core's UI pushes.
type HUD struct {
	renderer *Renderer

	data     game.HUD
	powerUps []string

	loading     bool
	loadingText string
	message     fader
	banner      fader
	won         *game.Summary
}

// NewHUD creates a new HUD renderer.
func NewHUD() *HUD {
	return &HUD{renderer: NewRenderer()}
}

// OnHUD stores the latest stats.
func (h *HUD) OnHUD(data game.HUD) { h.data = data }

// OnPowerUp stores the active power-up names.
func (h *HUD) OnPowerUp(active map[string]bool) {
	h.powerUps = h.powerUps[:0]
	for name, on := range active {
		if on {
			h.powerUps = append(h.powerUps, name)
		}
	}
	sort.Strings(h.powerUps)
}

// OnLoading shows or hides the loading overlay.
func (h *HUD) OnLoading(show bool, text string) {
	h.loading = show
	h.loadingText = text
}

// OnMessage shows a fading message, or hides the current one.
func (h *HUD) OnMessage(show bool, text string) {
	if !show {
		h.message.hide()
		return
	}
	h.message.show(text, messageSeconds, ease.InQuad)
}

// OnLevelComplete shows the level complete banner.
func (h *HUD) OnLevelComplete(s game.LevelSummary) {
	h.banner.show(fmt.Sprintf("Level %d complete! Next target %.0f", s.Level, s.NewTarget), bannerSeconds, ease.InOutQuad)
}

// OnGameWon shows the end screen. The ball keeps rolling behind it.
func (h *HUD) OnGameWon(s game.Summary) {
	h.won = &s
}

// Update advances the fades.
func (h *HUD) Update(dt float32) {
	h.message.update(dt)
	h.banner.update(dt)
}

// Draw renders the HUD.
func (h *HUD) Draw(screenW, screenH int32, rumble float64) {
	r := h.renderer
	t := r.Theme
	x, y := t.Padding, t.Padding
	width := int32(320)

	r.DrawPanel(x-4, y-4, width, t.LineHeight*6+t.Padding)
	y = r.DrawProgress(x, y, "Size", h.data.Radius, h.data.Target, width-8)
	y = r.DrawLabelValue(x, y, "Items", fmt.Sprintf("%d", h.data.Items))
	y = r.DrawLabelValue(x, y, "Speed", fmt.Sprintf("%.1f", h.data.Speed))
	y = r.DrawProgress(x, y, "Rumble", rumble, 1, width-8)
	y = r.DrawLabelValue(x, y, "FPS", fmt.Sprintf("%.0f", h.data.FPS))
	if len(h.powerUps) > 0 {
		r.DrawLabelValue(x, y, "Power", strings.Join(h.powerUps, ", "))
	}

	if h.message.text != "" {
		r.DrawCentered(h.message.text, screenW, screenH-60, t.HeaderFontSize, t.ValueColor, h.message.alpha)
	}
	if h.banner.text != "" {
		r.DrawCentered(h.banner.text, screenW, screenH/3, t.BannerFontSize, t.Banner, h.banner.alpha)
	}

	if h.loading {
		rl.DrawRectangle(0, 0, screenW, screenH, rl.Fade(rl.Black, 0.6))
		r.DrawCentered(h.loadingText, screenW, screenH/2, t.BannerFontSize, t.ValueColor, 1)
	}

	if h.won != nil {
		h.drawWon(screenW, screenH)
	}
}

func (h *HUD) drawWon(screenW, screenH int32) {
	r := h.renderer
	t := r.Theme
	s := h.won
	r.DrawCentered("You win!", screenW, screenH/4, t.BannerFontSize, t.Banner, 1)
	lines := []string{
		fmt.Sprintf("Reached level %d (%s)", s.Level, s.Theme),
		fmt.Sprintf("Final size %.1f with %d items", s.Radius, s.Items),
		fmt.Sprintf("Time %.0fs", s.SimTime),
	}
	y := screenH/4 + t.BannerFontSize + t.Padding
	for _, line := range lines {
		r.DrawCentered(line, screenW, y, t.HeaderFontSize, t.ValueColor, 1)
		y += t.LineHeight + 4
	}
}

// DrawControls renders the control legend at the bottom of the screen.
func (h *HUD) DrawControls(screenWidth, screenHeight int32, controls string) {
	rl.DrawText(controls, 10, screenHeight-25, 14, rl.Gray)
}
