// Package renderer draws the scene graph, the ground and effects with raylib.
package renderer

import (
	"image/color"

	rl "github.com/gen2brain/raylib-go/raylib"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/katamari/camera"
	"github.com/pthm-cable/katamari/scene"
)

// Spheres smaller than this many pixels on screen use the coarse mesh.
const lodPixels = 24

// SceneRenderer draws every sphere node of a scene graph.
type SceneRenderer struct {
	alpha  float64
	frames int64

	drawn  int
	culled int
}

// NewSceneRenderer creates a new scene renderer.
func NewSceneRenderer() *SceneRenderer {
	return &SceneRenderer{}
}

// OnFrame records the interpolation factor of the frame the core just
// finished.
func (r *SceneRenderer) OnFrame(alpha float64) {
	r.alpha = alpha
	r.frames++
}

// Alpha returns the last interpolation factor.
func (r *SceneRenderer) Alpha() float64 { return r.alpha }

// Frames returns the number of frames presented.
func (r *SceneRenderer) Frames() int64 { return r.frames }

// Stats returns how many spheres the last Draw drew and culled.
func (r *SceneRenderer) Stats() (drawn, culled int) { return r.drawn, r.culled }

// Draw renders the graph. Must be called between BeginMode3D and EndMode3D.
func (r *SceneRenderer) Draw(graph *scene.Scene, cam *camera.Camera) {
	r.drawn, r.culled = 0, 0
	graph.Walk(func(n *scene.Node, w scene.WorldTransform) {
		if n.Kind != scene.KindSphere {
			return
		}
		radius := n.Radius * w.Scale
		pos := r3.Vec{X: w.Pos.X(), Y: w.Pos.Y(), Z: w.Pos.Z()}
		if !cam.IsVisible(pos, radius) {
			r.culled++
			return
		}
		rings, slices := int32(8), int32(12)
		if pixelRadius(cam, pos, radius) > lodPixels {
			rings, slices = 16, 24
		}
		rl.DrawSphereEx(vec3(pos), float32(radius), rings, slices, rgba(n.Color))
		r.drawn++
	})
}

// pixelRadius estimates the on-screen radius of a sphere.
func pixelRadius(cam *camera.Camera, pos r3.Vec, radius float64) float64 {
	cx, cy, ok := cam.WorldToScreen(pos)
	if !ok {
		return 0
	}
	ex, ey, ok := cam.WorldToScreen(r3.Add(pos, r3.Scale(radius, cam.Right())))
	if !ok {
		return 0
	}
	return r3.Norm(r3.Vec{X: ex - cx, Y: ey - cy})
}

// Camera3D converts the follow camera to a raylib camera.
func Camera3D(cam *camera.Camera) rl.Camera3D {
	return rl.Camera3D{
		Position:   vec3(cam.Eye()),
		Target:     vec3(cam.Target),
		Up:         rl.NewVector3(0, 1, 0),
		Fovy:       float32(cam.FOV()),
		Projection: rl.CameraPerspective,
	}
}

func vec3(v r3.Vec) rl.Vector3 {
	return rl.NewVector3(float32(v.X), float32(v.Y), float32(v.Z))
}

func rgba(c color.RGBA) rl.Color {
	return rl.Color{R: c.R, G: c.G, B: c.B, A: c.A}
}
