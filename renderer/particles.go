package renderer

import (
	"image/color"
	"math"
	"math/rand"

	rl "github.com/gen2brain/raylib-go/raylib"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	particleGravity = 9.8
	maxParticles    = 2048
)

// Particle is one short-lived effect sprite.
type Particle struct {
	Pos, Vel r3.Vec
	Life     float64 // Seconds left
	MaxLife  float64
	Size     float64
	Color    color.RGBA
}

// ParticleRenderer spawns, integrates and draws collect bursts.
type ParticleRenderer struct {
	particles []Particle
	rng       *rand.Rand
}

// NewParticleRenderer creates a new particle renderer.
func NewParticleRenderer(seed int64) *ParticleRenderer {
	return &ParticleRenderer{rng: rand.New(rand.NewSource(seed))}
}

// Burst emits n particles from at, scaled to an item of radius size.
// Emission stops at the pool cap.
func (r *ParticleRenderer) Burst(at r3.Vec, size float64, c color.RGBA, n int) {
	for i := 0; i < n && len(r.particles) < maxParticles; i++ {
		// Upper hemisphere
		theta := r.rng.Float64() * 2 * math.Pi
		phi := r.rng.Float64() * math.Pi / 2
		dir := r3.Vec{
			X: math.Cos(theta) * math.Cos(phi),
			Y: math.Sin(phi),
			Z: math.Sin(theta) * math.Cos(phi),
		}
		speed := (1 + r.rng.Float64()) * math.Max(1, size*3)
		life := 0.4 + 0.4*r.rng.Float64()
		r.particles = append(r.particles, Particle{
			Pos:     at,
			Vel:     r3.Scale(speed, dir),
			Life:    life,
			MaxLife: life,
			Size:    math.Max(0.05, size*0.2),
			Color:   c,
		})
	}
}

// Update integrates particles and drops the expired ones.
func (r *ParticleRenderer) Update(dt float64) {
	live := r.particles[:0]
	for _, p := range r.particles {
		p.Life -= dt
		if p.Life <= 0 {
			continue
		}
		p.Vel.Y -= particleGravity * dt
		p.Pos = r3.Add(p.Pos, r3.Scale(dt, p.Vel))
		if p.Pos.Y < 0 {
			p.Pos.Y = 0
			p.Vel.Y = 0
		}
		live = append(live, p)
	}
	r.particles = live
}

// Len returns the number of live particles.
func (r *ParticleRenderer) Len() int { return len(r.particles) }

// Particles returns the live particles. Callers must not modify them.
func (r *ParticleRenderer) Particles() []Particle { return r.particles }

// Draw renders all particles. Must be called between BeginMode3D and EndMode3D.
func (r *ParticleRenderer) Draw() {
	for i := range r.particles {
		p := &r.particles[i]

		// Fade and shrink with age
		lifeRatio := p.Life / p.MaxLife
		c := rgba(p.Color)
		c.A = uint8(lifeRatio * 220)
		size := math.Max(0.02, p.Size*lifeRatio)
		rl.DrawCube(vec3(p.Pos), float32(size), float32(size), float32(size), c)
	}
}
