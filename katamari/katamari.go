// Package katamari implements the player ball: movement torque, growth
// integration, the boundary clamp and the ledger of attached items.
package katamari

import (
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/katamari/collection"
	"github.com/pthm-cable/katamari/components"
	"github.com/pthm-cable/katamari/config"
	"github.com/pthm-cable/katamari/event"
	"github.com/pthm-cable/katamari/growth"
	"github.com/pthm-cable/katamari/input"
	"github.com/pthm-cable/katamari/physics"
	"github.com/pthm-cable/katamari/scene"
)

// ErrDisposed is returned by operations on a disposed katamari.
var ErrDisposed = errors.New("katamari: disposed")

// ContactHandler resolves contacts on the katamari's behalf.
type ContactHandler interface {
	HandleContacts(contacts []physics.Contact)
}

// Katamari is the rolling ball. It owns its physics body, its scene group
// (with the ball sphere and every attached visual beneath it) and the
// attached records.
type Katamari struct {
	kcfg config.KatamariConfig
	mcfg config.MovementConfig

	phys     physics.World
	graph    scene.Graph
	curve    growth.Curve
	attacher *collection.Attacher
	resolver ContactHandler
	events   *event.Queue
	logger   *slog.Logger

	body   physics.BodyID
	group  scene.NodeID
	sphere scene.NodeID

	radius     float64
	target     float64
	baseRadius float64 // Radius of the unscaled group
	items      int
	moving     bool
	accel      float64
	pos        r3.Vec
	orient     mgl64.Quat
	attached   []components.AttachedRecord

	disposed bool
}

// New creates the ball at the origin resting on the ground.
func New(cfg *config.Config, phys physics.World, graph scene.Graph, events *event.Queue) (*Katamari, error) {
	k := cfg.Katamari
	if !(k.InitialRadius > 0) || math.IsInf(k.InitialRadius, 0) {
		return nil, fmt.Errorf("%w: katamari initial radius %v", config.ErrInvalid, k.InitialRadius)
	}
	if !(k.Density > 0) {
		return nil, fmt.Errorf("%w: katamari density %v", config.ErrInvalid, k.Density)
	}

	kat := &Katamari{
		kcfg:       k,
		mcfg:       cfg.Movement,
		phys:       phys,
		graph:      graph,
		curve:      growth.New(cfg.Growth, k),
		attacher:   collection.NewAttacher(cfg.Collection),
		events:     events,
		logger:     slog.Default(),
		radius:     k.InitialRadius,
		target:     k.InitialRadius,
		baseRadius: k.InitialRadius,
		orient:     mgl64.QuatIdent(),
		pos:        r3.Vec{Y: math.Max(k.StartHeight, k.InitialRadius)},
	}

	var err error
	kat.body, err = phys.CreateSphere(kat.pos, kat.radius, kat.mass(kat.radius))
	if err != nil {
		return nil, fmt.Errorf("creating katamari body: %w", err)
	}
	if kat.group, err = graph.CreateGroup(); err != nil {
		phys.RemoveBody(kat.body)
		return nil, fmt.Errorf("creating katamari group: %w", err)
	}
	if kat.sphere, err = graph.CreateSphere(kat.baseRadius); err != nil {
		graph.Dispose(kat.group)
		phys.RemoveBody(kat.body)
		return nil, fmt.Errorf("creating katamari visual: %w", err)
	}
	graph.SetParent(kat.sphere, kat.group)
	graph.SetColor(kat.sphere, color.RGBA{R: 230, G: 90, B: 150, A: 255})

	kat.applyDamping(false)
	kat.syncVisual()
	return kat, nil
}

// SetLogger replaces the default logger.
func (k *Katamari) SetLogger(l *slog.Logger) { k.logger = l }

// SetResolver installs the contact handler. Contacts are dropped until set.
func (k *Katamari) SetResolver(r ContactHandler) { k.resolver = r }

// Radius returns the current radius R.
func (k *Katamari) Radius() float64 { return k.radius }

// Target returns the growth target radius R*.
func (k *Katamari) Target() float64 { return k.target }

// Items returns the number of items collected.
func (k *Katamari) Items() int { return k.items }

// Moving reports whether the last input applied torque.
func (k *Katamari) Moving() bool { return k.moving }

// Acceleration returns the acceleration scalar of the last input.
func (k *Katamari) Acceleration() float64 { return k.accel }

// Body returns the physics handle.
func (k *Katamari) Body() physics.BodyID { return k.body }

// Group returns the scene group attached items are parented to.
func (k *Katamari) Group() scene.NodeID { return k.group }

// Orientation returns the ball's rotation.
func (k *Katamari) Orientation() mgl64.Quat { return k.orient }

// Position returns the last synced centre.
func (k *Katamari) Position() r3.Vec { return k.pos }

// Attached returns the attached records. Callers must not modify them.
func (k *Katamari) Attached() []components.AttachedRecord { return k.attached }

// Disposed reports whether Dispose has been called.
func (k *Katamari) Disposed() bool { return k.disposed }

// Mass returns the physics mass for the current radius.
func (k *Katamari) Mass() float64 { return k.mass(k.radius) }

// Speed returns the ball's linear speed.
func (k *Katamari) Speed() float64 {
	v, ok := k.phys.Velocity(k.body)
	if !ok {
		return 0
	}
	return r3.Norm(v)
}

func (k *Katamari) mass(r float64) float64 {
	return k.kcfg.Density * r * r * r
}

// ApplyInput applies rolling torque for an active frame, or idle damping
// for an inactive one.
func (k *Katamari) ApplyInput(f input.Frame, dt float64) {
	if k.disposed {
		return
	}
	if !f.Active() {
		k.moving = false
		k.accel = 0
		k.applyDamping(false)
		return
	}

	a := math.Min(k.mcfg.BaseAccel+k.radius*k.mcfg.AccelRadiusFactor, k.mcfg.MaxAccel)
	// Rolling along dir means spinning about up x dir
	axis := r3.Cross(physics.Up, f.Direction)
	if n := r3.Norm(axis); n > 1e-12 {
		mag := a * k.Mass() * k.mcfg.TorqueMultiplier * dt * f.Magnitude
		k.phys.ApplyTorque(k.body, r3.Scale(mag/n, axis))
	}
	k.moving = true
	k.accel = a
	k.applyDamping(true)
}

func (k *Katamari) applyDamping(active bool) {
	if active {
		k.phys.SetDamping(k.body, k.mcfg.ActiveLinear, k.mcfg.ActiveAngular)
		return
	}
	k.phys.SetDamping(k.body, k.mcfg.IdleLinear, k.mcfg.IdleAngular)
}

// CollectItem grows the target radius for an item of radius s and counts it.
func (k *Katamari) CollectItem(s, contribution float64) {
	if k.disposed {
		return
	}
	next := k.curve.Next(k.radius, k.target, s, contribution)
	if !finite(next) {
		k.warn("katamari_bad_target", "target", next)
		return
	}
	k.target = next
	k.items++
}

// AddAttached appends an attachment record to the ledger.
func (k *Katamari) AddAttached(rec components.AttachedRecord) {
	k.attached = append(k.attached, rec)
}

// HandleContacts forwards contacts to the resolver.
func (k *Katamari) HandleContacts(contacts []physics.Contact) {
	if k.disposed || k.resolver == nil {
		return
	}
	k.resolver.HandleContacts(contacts)
}

// Update integrates R toward R*, clamps the ball inside the map, and
// advances every attached record.
func (k *Katamari) Update(dt, boundary float64) error {
	if k.disposed {
		return ErrDisposed
	}

	next := k.curve.Step(k.radius, k.target)
	switch {
	case !finite(next) || next < k.kcfg.MinRadius:
		k.warn("katamari_bad_radius", "radius", next)
	case next != k.radius:
		if err := k.phys.ResizeSphere(k.body, next, k.mass(next)); err != nil {
			k.warn("katamari_resize_failed", "radius", next, "error", err)
		} else {
			k.radius = next
		}
	}

	k.clamp(boundary)
	k.integrateOrientation(dt)

	for i := range k.attached {
		k.attacher.Advance(&k.attached[i], dt)
	}
	k.syncVisual()
	return nil
}

// clamp keeps |x| and |z| within boundary - R and kills outward velocity.
func (k *Katamari) clamp(boundary float64) {
	pos, ok := k.phys.Position(k.body)
	if !ok || !finite(pos.X, pos.Y, pos.Z) {
		k.warn("katamari_bad_position")
		k.phys.SetPosition(k.body, k.pos)
		return
	}
	limit := math.Max(0, boundary-k.radius)
	vel, _ := k.phys.Velocity(k.body)

	var kill r3.Vec
	clamped := false
	if pos.X > limit || pos.X < -limit {
		pos.X = math.Copysign(limit, pos.X)
		if vel.X*pos.X > 0 {
			kill.X = -vel.X
		}
		clamped = true
	}
	if pos.Z > limit || pos.Z < -limit {
		pos.Z = math.Copysign(limit, pos.Z)
		if vel.Z*pos.Z > 0 {
			kill.Z = -vel.Z
		}
		clamped = true
	}
	if clamped {
		k.phys.SetPosition(k.body, pos)
		if kill != (r3.Vec{}) {
			k.phys.ApplyImpulse(k.body, r3.Scale(k.Mass(), kill))
		}
	}
	k.pos = pos
}

func (k *Katamari) integrateOrientation(dt float64) {
	w, ok := k.phys.AngularVelocity(k.body)
	if !ok {
		return
	}
	speed := r3.Norm(w)
	if speed < 1e-9 || !finite(speed) {
		return
	}
	axis := mgl64.Vec3{w.X / speed, w.Y / speed, w.Z / speed}
	k.orient = mgl64.QuatRotate(speed*dt, axis).Mul(k.orient).Normalize()
}

// syncVisual pushes the ball and attached item transforms to the graph.
func (k *Katamari) syncVisual() {
	groupScale := k.radius / k.baseRadius
	k.graph.SetTransform(k.group, mgl64.Vec3{k.pos.X, k.pos.Y, k.pos.Z}, k.orient, groupScale)
	for i := range k.attached {
		rec := &k.attached[i]
		if rec.Visual == 0 {
			continue
		}
		local := k.attacher.LocalPosition(rec, k.baseRadius)
		// World scale of the item equals its compressed scale
		k.graph.SetTransform(rec.Visual, local, mgl64.QuatIdent(), rec.Scale/groupScale)
	}
}

// Dispose releases the body and the visual group with every attached
// visual. Safe to call more than once.
func (k *Katamari) Dispose() {
	if k.disposed {
		return
	}
	k.disposed = true
	if err := k.phys.RemoveBody(k.body); err != nil {
		k.logger.Warn("katamari_body_release_failed", "error", err)
	}
	if err := k.graph.Dispose(k.group); err != nil {
		k.logger.Warn("katamari_group_release_failed", "error", err)
	}
	for i := range k.attached {
		k.attached[i].Visual = 0
	}
}

func (k *Katamari) warn(msg string, args ...any) {
	k.logger.Warn(msg, args...)
	if k.events != nil {
		k.events.Warn("%s", msg)
	}
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
