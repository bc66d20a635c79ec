// Package camera provides the 3D follow camera. It trails the ball, turns
// with the player and supplies the steering basis to input providers.
package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/katamari/config"
	"github.com/pthm-cable/katamari/input"
)

const (
	nearPlane = 0.1
	farPlane  = 2000
)

var up = r3.Vec{Y: 1}

// Camera follows a target sphere from behind and above.
type Camera struct {
	cfg config.CameraConfig

	// Target is the smoothed point the camera looks at
	Target r3.Vec
	// Radius is the smoothed radius of the followed sphere
	Radius float64

	// Yaw around +y in radians; 0 looks down -z
	Yaw float64

	// Zoom scales the follow distance (1.0 = configured distance)
	Zoom float64

	// Viewport dimensions (screen size)
	ViewportW, ViewportH float64

	// Zoom constraints
	MinZoom, MaxZoom float64

	snapped bool
}

// New creates a camera looking down -z at the origin.
func New(cfg config.CameraConfig, viewportW, viewportH float64) *Camera {
	return &Camera{
		cfg:       cfg,
		Radius:    1,
		Zoom:      1.0,
		ViewportW: viewportW,
		ViewportH: viewportH,
		MinZoom:   0.5,
		MaxZoom:   3.0,
	}
}

// Follow moves the camera toward target with the configured lag.
// The first call snaps.
func (c *Camera) Follow(target r3.Vec, radius, dt float64) {
	if !c.snapped || c.cfg.FollowLag <= 0 {
		c.Target = target
		c.Radius = radius
		c.snapped = true
		return
	}
	k := 1 - math.Exp(-dt/c.cfg.FollowLag)
	c.Target = r3.Add(c.Target, r3.Scale(k, r3.Sub(target, c.Target)))
	c.Radius += (radius - c.Radius) * k
}

// Turn yaws the camera; dir is -1..1, positive turns right.
func (c *Camera) Turn(dir, dt float64) {
	c.Yaw = wrapAngle(c.Yaw - dir*c.cfg.YawSpeed*dt)
}

// AlignTo swings the camera behind heading at no more than the yaw speed.
// Headings without a horizontal component are ignored.
func (c *Camera) AlignTo(heading r3.Vec, dt float64) {
	if math.Hypot(heading.X, heading.Z) < 1e-6 {
		return
	}
	want := math.Atan2(-heading.X, -heading.Z)
	diff := wrapAngle(want - c.Yaw)
	maxStep := c.cfg.YawSpeed * dt
	c.Yaw = wrapAngle(c.Yaw + clamp(diff, -maxStep, maxStep))
}

// FOV returns the vertical field of view in degrees.
func (c *Camera) FOV() float64 { return c.cfg.FOV }

// Forward returns the view direction projected onto the ground.
func (c *Camera) Forward() r3.Vec {
	return r3.Vec{X: -math.Sin(c.Yaw), Z: -math.Cos(c.Yaw)}
}

// Right returns the ground-plane axis to the right of Forward.
func (c *Camera) Right() r3.Vec {
	return r3.Vec{X: math.Cos(c.Yaw), Z: -math.Sin(c.Yaw)}
}

// Basis returns the steering basis for input providers.
func (c *Camera) Basis() input.Basis {
	return input.Basis{Forward: c.Forward(), Right: c.Right()}
}

// Eye returns the camera position: behind the target along -Forward and
// above it, both in multiples of the followed radius.
func (c *Camera) Eye() r3.Vec {
	scale := c.Radius * c.Zoom
	back := r3.Scale(-c.cfg.Distance*scale, c.Forward())
	return r3.Add(c.Target, r3.Add(back, r3.Scale(c.cfg.Height*scale, up)))
}

// View returns the view matrix.
func (c *Camera) View() mgl64.Mat4 {
	eye, target := c.Eye(), c.Target
	return mgl64.LookAtV(
		mgl64.Vec3{eye.X, eye.Y, eye.Z},
		mgl64.Vec3{target.X, target.Y, target.Z},
		mgl64.Vec3{0, 1, 0},
	)
}

// Projection returns the perspective matrix for the current viewport.
func (c *Camera) Projection() mgl64.Mat4 {
	aspect := 1.0
	if c.ViewportH > 0 {
		aspect = c.ViewportW / c.ViewportH
	}
	return mgl64.Perspective(mgl64.DegToRad(c.cfg.FOV), aspect, nearPlane, farPlane*c.Zoom)
}

// WorldToScreen projects p to screen pixels. ok is false for points behind
// the camera.
func (c *Camera) WorldToScreen(p r3.Vec) (sx, sy float64, ok bool) {
	clip := c.Projection().Mul4(c.View()).Mul4x1(mgl64.Vec4{p.X, p.Y, p.Z, 1})
	if clip.W() <= 0 {
		return 0, 0, false
	}
	nx, ny := clip.X()/clip.W(), clip.Y()/clip.W()
	sx = (nx + 1) / 2 * c.ViewportW
	sy = (1 - ny) / 2 * c.ViewportH
	return sx, sy, true
}

// IsVisible returns true if a sphere at p with the given radius could be
// on screen (conservative check for culling).
func (c *Camera) IsVisible(p r3.Vec, radius float64) bool {
	eye := c.Eye()
	view := r3.Unit(r3.Sub(c.Target, eye))
	depth := r3.Dot(r3.Sub(p, eye), view)
	if depth+radius <= nearPlane {
		return false
	}
	if depth <= radius {
		// The sphere straddles the camera plane
		return true
	}
	sx, sy, ok := c.WorldToScreen(p)
	if !ok {
		return false
	}
	// Projected radius in pixels, padded for the sphere's extent
	focal := c.ViewportH / 2 / math.Tan(mgl64.DegToRad(c.cfg.FOV)/2)
	m := radius / depth * focal * 1.5
	return sx >= -m && sx <= c.ViewportW+m && sy >= -m && sy <= c.ViewportH+m
}

// Resize updates viewport dimensions.
func (c *Camera) Resize(viewportW, viewportH float64) {
	c.ViewportW = viewportW
	c.ViewportH = viewportH
}

// SetZoom sets the zoom level, clamped to min/max.
func (c *Camera) SetZoom(zoom float64) {
	c.Zoom = clamp(zoom, c.MinZoom, c.MaxZoom)
}

// ZoomBy multiplies the current zoom by the given factor.
func (c *Camera) ZoomBy(factor float64) {
	c.SetZoom(c.Zoom * factor)
}

// Reset returns the camera to the default heading and zoom. The next
// Follow snaps.
func (c *Camera) Reset() {
	c.Yaw = 0
	c.Zoom = 1.0
	c.snapped = false
}

// wrapAngle maps a to (-pi, pi].
func wrapAngle(a float64) float64 {
	a = math.Mod(a+math.Pi, 2*math.Pi)
	if a <= 0 {
		a += 2 * math.Pi
	}
	return a - math.Pi
}

// clamp restricts a value to a range.
func clamp(x, min, max float64) float64 {
	if x < min {
		return min
	}
	if x > max {
		return max
	}
	return x
}
