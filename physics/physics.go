// Package physics defines the rigid-body collaborator the core drives and a
// small reference engine implementing it.
//
// The core only sees the World interface. Bodies are addressed by opaque
// BodyID handles; the engine owns the body records.
package physics

import (
	"errors"

	"gonum.org/v1/gonum/spatial/r3"
)

// BodyID is an opaque body handle. The zero value is never a live body.
type BodyID uint32

// Kind classifies a body.
type Kind uint8

const (
	KindGround Kind = iota // Infinite plane at y = 0
	KindSphere             // Fully dynamic rolling sphere
	KindItem               // Item body: moves under impulses, never rotates
)

var (
	// ErrUnknownBody is returned for handles that are not live.
	ErrUnknownBody = errors.New("physics: unknown body")
	// ErrInvalidBody is returned for non-positive or non-finite shape parameters.
	ErrInvalidBody = errors.New("physics: invalid body parameters")
	// ErrCapacity is returned when the world cannot hold more bodies.
	ErrCapacity = errors.New("physics: body capacity exhausted")
)

// Up is the world up axis.
var Up = r3.Vec{Y: 1}

// Contact is reported once per overlapping pair per step.
// Normal points from A to B.
type Contact struct {
	A, B    BodyID
	Normal  r3.Vec
	Overlap float64
	Speed   float64 // Closing speed along Normal, >= 0
}

// World is the contract the core needs from a physics backend.
type World interface {
	CreateSphere(pos r3.Vec, radius, mass float64) (BodyID, error)
	CreateStaticItem(pos r3.Vec, radius, mass float64) (BodyID, error)
	RemoveBody(id BodyID) error

	ApplyTorque(id BodyID, torque r3.Vec) error
	ApplyImpulse(id BodyID, impulse r3.Vec) error
	SetDamping(id BodyID, linear, angular float64) error
	SetPosition(id BodyID, pos r3.Vec) error
	ResizeSphere(id BodyID, radius, mass float64) error

	Position(id BodyID) (r3.Vec, bool)
	Velocity(id BodyID) (r3.Vec, bool)
	AngularVelocity(id BodyID) (r3.Vec, bool)
	Mass(id BodyID) (float64, bool)

	// Step integrates the world by dt seconds and queues contacts.
	Step(dt float64)
	// DrainContacts appends queued contacts to dst and clears the queue.
	DrainContacts(dst []Contact) []Contact
	// QuerySphere appends item bodies whose centre lies within radius of
	// center to dst. It uses the broad phase, not a scan of all bodies.
	QuerySphere(dst []BodyID, center r3.Vec, radius float64) []BodyID

	// Ground returns the ground marker body.
	Ground() BodyID
	// Kind reports the kind of a live body.
	Kind(id BodyID) (Kind, bool)
	// BodyCount returns the number of live bodies, ground excluded.
	BodyCount() int
}
