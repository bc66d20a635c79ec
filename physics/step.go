package physics

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// contactSlop is the distance above the ground still treated as touching.
const contactSlop = 1e-3

// Step integrates all bodies by dt, resolves the ground plane, rebuilds the
// broad phase and queues sphere/item and ground impact contacts.
func (e *Engine) Step(dt float64) {
	if dt <= 0 || math.IsNaN(dt) {
		return
	}
	e.compact()

	g := e.cfg.Gravity
	for _, b := range e.bodies {
		switch b.kind {
		case KindSphere:
			e.integrateSphere(b, dt, g)
		case KindItem:
			e.integrateItem(b, dt, g)
		}
	}

	e.grid.Clear()
	for _, b := range e.bodies {
		if b.kind == KindItem {
			e.grid.Insert(b.id, b.pos)
		}
	}

	for _, b := range e.bodies {
		if b.kind == KindSphere {
			e.collectContacts(b)
		}
	}
}

func (e *Engine) integrateSphere(b *body, dt, g float64) {
	// Torque -> angular velocity
	if b.inertia > 0 {
		b.angVel = r3.Add(b.angVel, r3.Scale(dt/b.inertia, b.torque))
	}
	b.torque = r3.Vec{}

	b.vel.Y -= g * dt
	grounded := b.pos.Y-b.radius <= contactSlop
	if grounded {
		e.rollingFriction(b)
	}

	b.vel = r3.Scale(math.Pow(1-b.linDamp, dt), b.vel)
	b.angVel = r3.Scale(math.Pow(1-b.angDamp, dt), b.angVel)
	if w := r3.Norm(b.angVel); e.cfg.MaxAngularSpeed > 0 && w > e.cfg.MaxAngularSpeed {
		b.angVel = r3.Scale(e.cfg.MaxAngularSpeed/w, b.angVel)
	}

	b.pos = r3.Add(b.pos, r3.Scale(dt, b.vel))
	e.resolveGround(b, true)
}

// rollingFriction applies a friction impulse at the contact point that
// removes a fraction of the slip between the surface and the ground.
func (e *Engine) rollingFriction(b *body) {
	// Contact point velocity: v + w x (-r up)
	slip := r3.Sub(b.vel, r3.Scale(b.radius, r3.Cross(b.angVel, Up)))
	slip.Y = 0
	if r3.Norm2(slip) == 0 {
		return
	}
	// Impulse that zeroes slip for a solid sphere is -slip * m / 3.5
	j := r3.Scale(-e.cfg.RollingFriction*b.mass/(1+b.mass*b.radius*b.radius/b.inertia), slip)
	b.vel = r3.Add(b.vel, r3.Scale(1/b.mass, j))
	// dw = (r x J) / I with r = -radius * up
	r := r3.Scale(-b.radius, Up)
	b.angVel = r3.Add(b.angVel, r3.Scale(1/b.inertia, r3.Cross(r, j)))
}

func (e *Engine) integrateItem(b *body, dt, g float64) {
	if b.asleep {
		return
	}
	b.vel.Y -= g * dt
	b.vel = r3.Scale(math.Pow(1-b.linDamp, dt), b.vel)
	b.pos = r3.Add(b.pos, r3.Scale(dt, b.vel))
	e.resolveGround(b, false)

	if b.pos.Y-b.radius <= contactSlop && r3.Norm2(b.vel) < restSpeed*restSpeed {
		b.vel = r3.Vec{}
		b.asleep = true
	}
}

func (e *Engine) resolveGround(b *body, report bool) {
	if b.pos.Y >= b.radius {
		return
	}
	b.pos.Y = b.radius
	if b.vel.Y >= 0 {
		return
	}
	impact := -b.vel.Y
	if report && impact >= e.cfg.ImpactSpeed {
		e.contacts = append(e.contacts, Contact{
			A:      b.id,
			B:      groundID,
			Normal: r3.Vec{Y: -1},
			Speed:  impact,
		})
	}
	b.vel.Y = impact * e.cfg.Restitution
	if b.vel.Y < e.cfg.ImpactSpeed*0.5 {
		b.vel.Y = 0
	}
}

func (e *Engine) collectContacts(s *body) {
	reach := s.radius + e.maxItemRadius
	e.candidates = e.grid.QueryInto(e.candidates[:0], s.pos.X, s.pos.Z, reach)
	for _, id := range e.candidates {
		it := e.bodies[e.index[id]]
		d := r3.Sub(it.pos, s.pos)
		dist := r3.Norm(d)
		overlap := s.radius + it.radius - dist
		if overlap <= 0 {
			continue
		}
		n := Up
		if dist > 1e-9 {
			n = r3.Scale(1/dist, d)
		}
		closing := r3.Dot(r3.Sub(s.vel, it.vel), n)
		if closing < 0 {
			closing = 0
		}
		e.contacts = append(e.contacts, Contact{
			A:       s.id,
			B:       it.id,
			Normal:  n,
			Overlap: overlap,
			Speed:   closing,
		})
	}
}

func validShape(radius, mass float64) bool {
	return radius > 0 && mass > 0 && !math.IsInf(radius, 0) && !math.IsInf(mass, 0)
}

func finiteVec(v r3.Vec) bool {
	for _, c := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

func clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v >= 1 {
		return 0.999
	}
	return v
}
