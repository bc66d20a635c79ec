package renderer

import (
	"image/color"
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/ojrac/opensimplex-go"
	"gonum.org/v1/gonum/spatial/r3"
)

const groundTiles = 40 // Tiles across the play area

// GroundRenderer draws the level floor as noise-shaded tiles and a fence
// along the map boundary.
type GroundRenderer struct {
	noise    opensimplex.Noise
	boundary float64
	tile     float64
	base     color.RGBA
}

// NewGroundRenderer creates a ground renderer with a seeded noise field.
func NewGroundRenderer(seed int64) *GroundRenderer {
	return &GroundRenderer{
		noise:    opensimplex.New(seed),
		boundary: 1,
		tile:     1,
		base:     color.RGBA{R: 80, G: 140, B: 60, A: 255},
	}
}

// SetLevel resizes the floor to a new boundary and ground colour.
func (r *GroundRenderer) SetLevel(boundary float64, ground color.RGBA) {
	if boundary <= 0 {
		return
	}
	r.boundary = boundary
	r.tile = 2 * boundary / groundTiles
	r.base = ground
}

// Boundary returns the current map half-extent.
func (r *GroundRenderer) Boundary() float64 { return r.boundary }

// TileColor shades the ground colour at (x, z) by up to +-15%.
func (r *GroundRenderer) TileColor(x, z float64) color.RGBA {
	freq := 4 / r.boundary
	n := r.noise.Eval2(x*freq, z*freq)
	// Fine detail on top of the broad patches
	n = 0.75*n + 0.25*r.noise.Eval2(x*freq*4+100, z*freq*4+100)
	f := 1 + 0.15*n
	return color.RGBA{
		R: shade(r.base.R, f),
		G: shade(r.base.G, f),
		B: shade(r.base.B, f),
		A: 255,
	}
}

// Draw renders the tiles within viewRadius of focus and the fence.
// Must be called between BeginMode3D and EndMode3D.
func (r *GroundRenderer) Draw(focus r3.Vec, viewRadius float64) {
	b := r.boundary
	minX := math.Max(-b, focus.X-viewRadius)
	maxX := math.Min(b, focus.X+viewRadius)
	minZ := math.Max(-b, focus.Z-viewRadius)
	maxZ := math.Min(b, focus.Z+viewRadius)

	// Snap to the tile lattice anchored at -b
	x0 := -b + math.Floor((minX+b)/r.tile)*r.tile
	z0 := -b + math.Floor((minZ+b)/r.tile)*r.tile
	size := rl.NewVector2(float32(r.tile), float32(r.tile))
	for x := x0; x < maxX; x += r.tile {
		for z := z0; z < maxZ; z += r.tile {
			cx, cz := x+r.tile/2, z+r.tile/2
			rl.DrawPlane(rl.NewVector3(float32(cx), 0, float32(cz)), size, rgba(r.TileColor(cx, cz)))
		}
	}

	r.drawFence()
}

func (r *GroundRenderer) drawFence() {
	b := float32(r.boundary)
	h := float32(math.Max(0.5, r.boundary/40))
	fence := rl.Color{R: shade(r.base.R, 0.5), G: shade(r.base.G, 0.5), B: shade(r.base.B, 0.5), A: 255}
	corners := []rl.Vector3{
		rl.NewVector3(-b, h, -b),
		rl.NewVector3(b, h, -b),
		rl.NewVector3(b, h, b),
		rl.NewVector3(-b, h, b),
	}
	for i, c := range corners {
		next := corners[(i+1)%len(corners)]
		rl.DrawLine3D(c, next, fence)
		rl.DrawLine3D(rl.NewVector3(c.X, 0, c.Z), c, fence)
	}
}

// shade scales a channel by f, clamped to a byte.
func shade(c uint8, f float64) uint8 {
	v := float64(c) * f
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
