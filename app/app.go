// Package app runs the core in a raylib window: camera, renderers, HUD and
// the control panel.
package app

import (
	"errors"
	"fmt"
	"image/color"
	"log/slog"

	rl "github.com/gen2brain/raylib-go/raylib"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/katamari/camera"
	"github.com/pthm-cable/katamari/config"
	"github.com/pthm-cable/katamari/game"
	"github.com/pthm-cable/katamari/level"
	"github.com/pthm-cable/katamari/renderer"
	"github.com/pthm-cable/katamari/scene"
	"github.com/pthm-cable/katamari/ui"
)

const controlsLegend = "WASD/arrows: roll  drag: steer  Q/E: turn  wheel: zoom  Tab: panel  N: skip  Space: pause"

// App owns one core and everything that draws it.
type App struct {
	cfg    *config.Config
	opts   game.Options
	logger *slog.Logger

	core  *game.Core
	graph *scene.Scene

	cam        *camera.Camera
	controls   *ui.Controls
	panel      *ui.ControlsPanel
	hud        *ui.HUD
	cues       *ui.Cues
	scene      *renderer.SceneRenderer
	ground     *renderer.GroundRenderer
	background *renderer.BackgroundRenderer
	particles  *renderer.ParticleRenderer

	screenWidth, screenHeight int32

	level     int
	autopilot bool
	paused    bool
	done      bool
}

// New creates the app and its first core. The raylib window must exist.
func New(cfg *config.Config, opts game.Options) (*App, error) {
	a := &App{
		cfg:          cfg,
		opts:         opts,
		logger:       opts.Logger,
		screenWidth:  int32(rl.GetScreenWidth()),
		screenHeight: int32(rl.GetScreenHeight()),
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	a.cam = camera.New(cfg.Camera, float64(a.screenWidth), float64(a.screenHeight))
	a.controls = ui.NewControls(a.cam)
	a.panel = ui.NewControlsPanel(a.screenWidth-290, 10, 280)
	a.panel.Autopilot = opts.Autopilot
	a.scene = renderer.NewSceneRenderer()
	a.ground = renderer.NewGroundRenderer(opts.Seed)
	a.background = renderer.NewBackgroundRenderer(a.screenWidth, a.screenHeight)
	a.particles = renderer.NewParticleRenderer(opts.Seed)

	if err := a.build(); err != nil {
		return nil, err
	}
	return a, nil
}

// build creates a fresh core on a fresh scene.
func (a *App) build() error {
	a.graph = scene.New()
	a.hud = ui.NewHUD()
	a.cues = ui.NewCues(a.logger, a.cfg.Movement.MaxAccel)
	a.cues.OnCollectFn = a.burst

	core, err := game.New(a.cfg, game.Collaborators{
		Graph:  a.graph,
		Input:  a.controls,
		UI:     a.hud,
		Audio:  a.cues,
		Frames: a.scene,
	}, a.opts)
	if err != nil {
		return fmt.Errorf("creating core: %w", err)
	}
	a.core = core
	a.level = 0
	a.autopilot = false
	a.cam.Reset()
	a.syncInput()
	a.syncLevel()
	return nil
}

// burst spawns collect particles at the ball in the level's item colours.
func (a *App) burst(size, _ float64) {
	ball := a.core.Katamari()
	st := a.core.Director().State()
	c := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	if len(st.Palette) > 0 {
		c = level.ParseColor(st.Palette[a.cues.Collects()%len(st.Palette)])
	}
	top := r3.Add(ball.Position(), r3.Vec{Y: ball.Radius()})
	a.particles.Burst(top, size, c, 12)
}

// Core returns the running core.
func (a *App) Core() *game.Core { return a.core }

// Done reports whether the core was disposed.
func (a *App) Done() bool { return a.done }

// Update handles input and advances the core to the current wall time.
func (a *App) Update() {
	dt := float64(rl.GetFrameTime())
	a.handleInput(dt)
	if a.done {
		return
	}

	a.controls.Poll()
	if !a.paused {
		if err := a.core.Tick(rl.GetTime()); err != nil {
			if errors.Is(err, game.ErrDisposed) {
				a.done = true
				return
			}
			a.logger.Error("tick failed", "error", err)
		}
		a.particles.Update(dt)
	}
	a.hud.Update(float32(dt))
	a.syncLevel()
	a.followBall(dt)
}

// syncInput switches between the player and the autopilot.
func (a *App) syncInput() {
	if a.panel.Autopilot == a.autopilot {
		return
	}
	a.autopilot = a.panel.Autopilot
	if a.autopilot {
		c := a.core
		a.core.SetInput(game.NewAutopilot(c.Registry(), c.Katamari(), c.Resolver().Rules(), c.Director()))
		return
	}
	a.core.SetInput(a.controls)
}

// syncLevel re-themes the ground and sky when a new level starts.
func (a *App) syncLevel() {
	st := a.core.Director().State()
	if st.Index == a.level {
		return
	}
	a.level = st.Index
	a.ground.SetLevel(st.Boundary, level.ParseColor(st.Ground))
	a.background.SetTheme(level.ParseColor(st.Background), level.ParseColor(st.Fog))
}

func (a *App) followBall(dt float64) {
	ball := a.core.Katamari()
	a.cam.Follow(ball.Position(), ball.Radius(), dt)
	if !a.panel.AutoCamera || ball.Speed() < 0.5 {
		return
	}
	if v, ok := a.core.Physics().Velocity(ball.Body()); ok {
		a.cam.AlignTo(v, dt)
	}
}

// Draw renders the frame.
func (a *App) Draw() {
	rl.BeginDrawing()
	a.background.Draw()

	rl.BeginMode3D(renderer.Camera3D(a.cam))
	viewRadius := a.cam.Radius * a.cfg.Camera.Distance * a.cam.Zoom * 8
	a.ground.Draw(a.cam.Target, viewRadius)
	a.scene.Draw(a.graph, a.cam)
	a.particles.Draw()
	rl.EndMode3D()

	a.hud.Draw(a.screenWidth, a.screenHeight, a.cues.Rumble())
	st := a.core.Director().State()
	act := a.panel.Draw(a.cam, st.Index, st.Theme)
	a.hud.DrawControls(a.screenWidth, a.screenHeight, controlsLegend)
	if a.paused {
		rl.DrawText("PAUSED", a.screenWidth/2-40, 20, 20, rl.Yellow)
	}
	rl.EndDrawing()

	switch {
	case act.Restart:
		a.restart()
	case act.SkipLevel:
		a.core.RequestTransition()
	}
	a.syncInput()
}

// restart disposes the running core and starts over at level 1.
func (a *App) restart() {
	a.core.Dispose()
	if err := a.build(); err != nil {
		a.logger.Error("restart failed", "error", err)
		a.done = true
	}
}

// Unload disposes the core.
func (a *App) Unload() {
	if a.core != nil {
		a.core.Dispose()
	}
}
