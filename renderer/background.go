package renderer

import (
	"image/color"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// BackgroundRenderer clears the frame to the level sky and draws a fog band
// at the horizon.
type BackgroundRenderer struct {
	screenW, screenH int32
	sky, fog         color.RGBA
}

// NewBackgroundRenderer creates a new background renderer.
func NewBackgroundRenderer(screenW, screenH int32) *BackgroundRenderer {
	return &BackgroundRenderer{
		screenW: screenW,
		screenH: screenH,
		sky:     color.RGBA{R: 135, G: 206, B: 235, A: 255},
		fog:     color.RGBA{R: 200, G: 230, B: 255, A: 255},
	}
}

// SetTheme switches the sky and fog colours.
func (b *BackgroundRenderer) SetTheme(sky, fog color.RGBA) {
	b.sky = sky
	b.fog = fog
}

// Resize updates the screen dimensions.
func (b *BackgroundRenderer) Resize(screenW, screenH int32) {
	b.screenW = screenW
	b.screenH = screenH
}

// Draw clears the frame. Must be called before BeginMode3D.
func (b *BackgroundRenderer) Draw() {
	rl.ClearBackground(rgba(b.sky))
	// Fade from sky into fog over the lower half of the screen
	top := rgba(b.sky)
	bottom := rgba(b.fog)
	rl.DrawRectangleGradientV(0, b.screenH/2, b.screenW, b.screenH/2, top, bottom)
}
