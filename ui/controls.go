package ui

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/katamari/camera"
	"github.com/pthm-cable/katamari/input"
)

// Controls reads keyboard, mouse drag and touch from raylib and reports
// them as input snapshots with the camera's steering basis.
type Controls struct {
	cam   *camera.Camera
	touch input.Touch
}

// NewControls creates a provider bound to cam.
func NewControls(cam *camera.Camera) *Controls {
	return &Controls{cam: cam}
}

// Poll tracks the drag gesture. Call once per frame before the core ticks.
func (c *Controls) Poll() {
	x, y, down := pointer()
	switch {
	case down && !c.touch.Active:
		c.touch = input.Touch{Active: true, OriginX: x, OriginY: y, X: x, Y: y}
	case down:
		c.touch.X, c.touch.Y = x, y
	default:
		c.touch = input.Touch{}
	}
}

// pointer returns the first touch point, or the mouse while the left
// button is held.
func pointer() (x, y float64, down bool) {
	if rl.GetTouchPointCount() > 0 {
		p := rl.GetTouchPosition(0)
		return float64(p.X), float64(p.Y), true
	}
	if rl.IsMouseButtonDown(rl.MouseLeftButton) {
		p := rl.GetMousePosition()
		return float64(p.X), float64(p.Y), true
	}
	return 0, 0, false
}

// Snapshot implements input.Provider.
func (c *Controls) Snapshot() input.Context {
	var keys input.Keys
	if rl.IsKeyDown(rl.KeyW) || rl.IsKeyDown(rl.KeyUp) {
		keys |= input.KeyForward
	}
	if rl.IsKeyDown(rl.KeyS) || rl.IsKeyDown(rl.KeyDown) {
		keys |= input.KeyBack
	}
	if rl.IsKeyDown(rl.KeyA) || rl.IsKeyDown(rl.KeyLeft) {
		keys |= input.KeyLeft
	}
	if rl.IsKeyDown(rl.KeyD) || rl.IsKeyDown(rl.KeyRight) {
		keys |= input.KeyRight
	}
	return input.Context{
		Keys:  keys,
		Touch: c.touch,
		// Desktop builds have no orientation sensor
		Orientation: input.Orientation{},
		Basis:       c.cam.Basis(),
	}
}

// PanelActions are the buttons pressed on the control panel this frame.
type PanelActions struct {
	SkipLevel bool
	Restart   bool
}

// ControlsPanel renders the right-side control panel.
type ControlsPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
	visible  bool

	AutoCamera bool
	Autopilot  bool
}

// NewControlsPanel creates a new controls panel.
func NewControlsPanel(x, y, width int32) *ControlsPanel {
	return &ControlsPanel{
		renderer:   NewRenderer(),
		x:          x,
		y:          y,
		width:      width,
		AutoCamera: true,
	}
}

// SetPosition updates the panel position.
func (c *ControlsPanel) SetPosition(x, y int32) {
	c.x = x
	c.y = y
}

// Toggle switches panel visibility.
func (c *ControlsPanel) Toggle() bool {
	c.visible = !c.visible
	return c.visible
}

// IsVisible returns whether the panel is shown.
func (c *ControlsPanel) IsVisible() bool {
	return c.visible
}

// Draw renders the panel and returns the actions clicked.
func (c *ControlsPanel) Draw(cam *camera.Camera, level int, theme string) PanelActions {
	var act PanelActions
	if !c.visible {
		return act
	}

	r := c.renderer
	pad := float32(r.Theme.Padding)
	x, y := float32(c.x)+pad, float32(c.y)+pad
	w := float32(c.width) - 2*pad

	r.DrawPanel(c.x, c.y, c.width, 230)
	r.DrawSectionHeader(int32(x), int32(y), fmt.Sprintf("Level %d: %s", level, theme))
	y += 28

	act.SkipLevel = gui.Button(rl.Rectangle{X: x, Y: y, Width: w/2 - 4, Height: 28}, "Skip level")
	act.Restart = gui.Button(rl.Rectangle{X: x + w/2 + 4, Y: y, Width: w/2 - 4, Height: 28}, "Restart")
	y += 38

	c.AutoCamera = gui.CheckBox(rl.Rectangle{X: x, Y: y, Width: 18, Height: 18}, "Auto camera", c.AutoCamera)
	y += 26
	c.Autopilot = gui.CheckBox(rl.Rectangle{X: x, Y: y, Width: 18, Height: 18}, "Autopilot", c.Autopilot)
	y += 30

	zoom := gui.SliderBar(
		rl.Rectangle{X: x + 50, Y: y, Width: w - 100, Height: 18},
		"Zoom", fmt.Sprintf("%.2f", cam.Zoom),
		float32(cam.Zoom), float32(cam.MinZoom), float32(cam.MaxZoom),
	)
	cam.SetZoom(float64(zoom))
	y += 28

	yaw := gui.SliderBar(
		rl.Rectangle{X: x + 50, Y: y, Width: w - 100, Height: 18},
		"Yaw", fmt.Sprintf("%.2f", cam.Yaw),
		float32(cam.Yaw), -3.14159, 3.14159,
	)
	if !c.AutoCamera {
		cam.Yaw = float64(yaw)
	}
	return act
}
