package physics

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/katamari/config"
)

// groundID is the fixed handle of the ground plane.
const groundID BodyID = 1

// restSpeed is the speed below which a grounded item goes to sleep.
const restSpeed = 0.01

type body struct {
	id      BodyID
	kind    Kind
	pos     r3.Vec
	vel     r3.Vec
	angVel  r3.Vec
	torque  r3.Vec
	radius  float64
	mass    float64
	inertia float64 // Solid sphere: 0.4 m r^2
	linDamp float64
	angDamp float64
	asleep  bool
}

// Engine is the reference World: spheres and item bodies over a ground plane,
// with a uniform grid broad phase for sphere/item contacts.
type Engine struct {
	cfg config.PhysicsConfig

	bodies []*body // Bodies in creation order (ground excluded), nil when removed
	index  map[BodyID]int
	dead   int
	nextID BodyID

	grid          *SpatialGrid
	maxItemRadius float64
	candidates    []BodyID
	contacts      []Contact

	// MaxBodies caps live bodies; 0 means unlimited.
	MaxBodies int
}

// NewEngine creates an empty engine.
func NewEngine(cfg config.PhysicsConfig) *Engine {
	return &Engine{
		cfg:    cfg,
		index:  make(map[BodyID]int, 1024),
		nextID: groundID + 1,
		grid:   NewSpatialGrid(cfg.GridCellSize),
	}
}

// Ground returns the ground marker body.
func (e *Engine) Ground() BodyID { return groundID }

// BodyCount returns the number of live bodies, ground excluded.
func (e *Engine) BodyCount() int { return len(e.bodies) - e.dead }

// CreateSphere adds a dynamic rolling sphere.
func (e *Engine) CreateSphere(pos r3.Vec, radius, mass float64) (BodyID, error) {
	return e.create(KindSphere, pos, radius, mass)
}

// CreateStaticItem adds an item body. Items rest until an impulse wakes them.
func (e *Engine) CreateStaticItem(pos r3.Vec, radius, mass float64) (BodyID, error) {
	id, err := e.create(KindItem, pos, radius, mass)
	if err != nil {
		return 0, err
	}
	b := e.bodies[e.index[id]]
	b.asleep = true
	b.linDamp = e.cfg.ItemDamping
	if radius > e.maxItemRadius {
		e.maxItemRadius = radius
	}
	e.grid.Insert(id, pos)
	return id, nil
}

func (e *Engine) create(kind Kind, pos r3.Vec, radius, mass float64) (BodyID, error) {
	if !validShape(radius, mass) || !finiteVec(pos) {
		return 0, fmt.Errorf("%w: radius=%v mass=%v", ErrInvalidBody, radius, mass)
	}
	if e.MaxBodies > 0 && e.BodyCount() >= e.MaxBodies {
		return 0, ErrCapacity
	}

	b := &body{
		id:      e.nextID,
		kind:    kind,
		pos:     pos,
		radius:  radius,
		mass:    mass,
		inertia: 0.4 * mass * radius * radius,
	}
	e.nextID++
	e.index[b.id] = len(e.bodies)
	e.bodies = append(e.bodies, b)
	return b.id, nil
}

// RemoveBody deletes a body. Contacts already queued for it are kept.
func (e *Engine) RemoveBody(id BodyID) error {
	i, ok := e.index[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownBody, id)
	}
	// Tombstone; Step compacts in order so iteration stays stable for replays
	e.bodies[i] = nil
	delete(e.index, id)
	e.dead++
	return nil
}

func (e *Engine) compact() {
	if e.dead == 0 {
		return
	}
	n := 0
	for _, b := range e.bodies {
		if b == nil {
			continue
		}
		e.bodies[n] = b
		e.index[b.id] = n
		n++
	}
	clear(e.bodies[n:])
	e.bodies = e.bodies[:n]
	e.dead = 0
}

func (e *Engine) get(id BodyID) (*body, error) {
	i, ok := e.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownBody, id)
	}
	return e.bodies[i], nil
}

// ApplyTorque accumulates torque for the next step. Items ignore torque.
func (e *Engine) ApplyTorque(id BodyID, torque r3.Vec) error {
	b, err := e.get(id)
	if err != nil {
		return err
	}
	if b.kind == KindSphere && finiteVec(torque) {
		b.torque = r3.Add(b.torque, torque)
	}
	return nil
}

// ApplyImpulse changes velocity immediately by impulse/mass.
func (e *Engine) ApplyImpulse(id BodyID, impulse r3.Vec) error {
	b, err := e.get(id)
	if err != nil {
		return err
	}
	if !finiteVec(impulse) {
		return nil
	}
	b.vel = r3.Add(b.vel, r3.Scale(1/b.mass, impulse))
	b.asleep = false
	return nil
}

// SetDamping sets per-second linear and angular damping fractions in [0,1).
func (e *Engine) SetDamping(id BodyID, linear, angular float64) error {
	b, err := e.get(id)
	if err != nil {
		return err
	}
	b.linDamp = clamp01(linear)
	b.angDamp = clamp01(angular)
	return nil
}

// SetPosition teleports a body.
func (e *Engine) SetPosition(id BodyID, pos r3.Vec) error {
	b, err := e.get(id)
	if err != nil {
		return err
	}
	if !finiteVec(pos) {
		return fmt.Errorf("%w: non-finite position", ErrInvalidBody)
	}
	b.pos = pos
	return nil
}

// ResizeSphere changes radius and mass, keeping the bottom on the ground.
func (e *Engine) ResizeSphere(id BodyID, radius, mass float64) error {
	b, err := e.get(id)
	if err != nil {
		return err
	}
	if !validShape(radius, mass) {
		return fmt.Errorf("%w: radius=%v mass=%v", ErrInvalidBody, radius, mass)
	}
	if b.pos.Y-b.radius <= contactSlop {
		b.pos.Y = radius
	}
	b.radius = radius
	b.mass = mass
	b.inertia = 0.4 * mass * radius * radius
	return nil
}

// Position returns a body's centre.
func (e *Engine) Position(id BodyID) (r3.Vec, bool) {
	if id == groundID {
		return r3.Vec{}, true
	}
	b, err := e.get(id)
	if err != nil {
		return r3.Vec{}, false
	}
	return b.pos, true
}

// Velocity returns a body's linear velocity.
func (e *Engine) Velocity(id BodyID) (r3.Vec, bool) {
	b, err := e.get(id)
	if err != nil {
		return r3.Vec{}, false
	}
	return b.vel, true
}

// AngularVelocity returns a body's angular velocity.
func (e *Engine) AngularVelocity(id BodyID) (r3.Vec, bool) {
	b, err := e.get(id)
	if err != nil {
		return r3.Vec{}, false
	}
	return b.angVel, true
}

// Mass returns a body's mass.
func (e *Engine) Mass(id BodyID) (float64, bool) {
	b, err := e.get(id)
	if err != nil {
		return 0, false
	}
	return b.mass, true
}

// Kind reports the kind of a live body.
func (e *Engine) Kind(id BodyID) (Kind, bool) {
	if id == groundID {
		return KindGround, true
	}
	b, err := e.get(id)
	if err != nil {
		return 0, false
	}
	return b.kind, true
}

// Radius returns a body's radius.
func (e *Engine) Radius(id BodyID) (float64, bool) {
	b, err := e.get(id)
	if err != nil {
		return 0, false
	}
	return b.radius, true
}

// DrainContacts appends queued contacts to dst and clears the queue.
func (e *Engine) DrainContacts(dst []Contact) []Contact {
	dst = append(dst, e.contacts...)
	e.contacts = e.contacts[:0]
	return dst
}

// QuerySphere appends item bodies whose centre is within radius of center.
func (e *Engine) QuerySphere(dst []BodyID, center r3.Vec, radius float64) []BodyID {
	e.candidates = e.grid.QueryInto(e.candidates[:0], center.X, center.Z, radius)
	r2 := radius * radius
	for _, id := range e.candidates {
		i, ok := e.index[id]
		if !ok {
			continue
		}
		if r3.Norm2(r3.Sub(e.bodies[i].pos, center)) <= r2 {
			dst = append(dst, id)
		}
	}
	return dst
}
