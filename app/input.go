package app

import rl "github.com/gen2brain/raylib-go/raylib"

// handleInput processes window, pause and camera keys.
func (a *App) handleInput(dt float64) {
	a.handleResize()

	// Fullscreen toggle
	if rl.IsKeyPressed(rl.KeyF11) {
		rl.ToggleFullscreen()
	}

	if rl.IsKeyPressed(rl.KeySpace) {
		a.paused = !a.paused
	}
	if rl.IsKeyPressed(rl.KeyTab) {
		a.panel.Toggle()
	}
	if rl.IsKeyPressed(rl.KeyN) {
		a.core.RequestTransition()
	}

	a.handleCameraInput(dt)
}

// handleResize checks for window resize and propagates new dimensions.
func (a *App) handleResize() {
	if !rl.IsWindowResized() {
		return
	}
	w := int32(rl.GetScreenWidth())
	h := int32(rl.GetScreenHeight())
	if w == a.screenWidth && h == a.screenHeight {
		return
	}
	a.screenWidth = w
	a.screenHeight = h

	a.cam.Resize(float64(w), float64(h))
	a.background.Resize(w, h)
	a.panel.SetPosition(w-290, 10)
}

// handleCameraInput processes camera turn/zoom controls.
func (a *App) handleCameraInput(dt float64) {
	if rl.IsKeyDown(rl.KeyQ) {
		a.cam.Turn(-1, dt)
	}
	if rl.IsKeyDown(rl.KeyE) {
		a.cam.Turn(1, dt)
	}

	// Zoom controls: mouse wheel or +/- keys
	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		a.cam.ZoomBy(1 - float64(wheel)*0.1)
	}
	if rl.IsKeyPressed(rl.KeyEqual) || rl.IsKeyPressed(rl.KeyKpAdd) {
		a.cam.ZoomBy(0.8)
	}
	if rl.IsKeyPressed(rl.KeyMinus) || rl.IsKeyPressed(rl.KeyKpSubtract) {
		a.cam.ZoomBy(1.25)
	}

	// Home key to reset camera
	if rl.IsKeyPressed(rl.KeyHome) {
		a.cam.Reset()
	}
}
