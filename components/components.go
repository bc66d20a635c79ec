// Package components defines ECS components for items and the records the
// katamari keeps for attached items.
package components

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/katamari/physics"
	"github.com/pthm-cable/katamari/scene"
)

// ItemState is an item's position in its lifecycle.
// Transitions only move forward: Free -> (Attracting) -> Collected -> Attached -> Disposed,
// except Attracting may fall back to Free when the ball moves away.
type ItemState uint8

const (
	ItemFree ItemState = iota
	ItemAttracting
	ItemCollected
	ItemAttached
	ItemDisposed
)

func (s ItemState) String() string {
	switch s {
	case ItemFree:
		return "free"
	case ItemAttracting:
		return "attracting"
	case ItemCollected:
		return "collected"
	case ItemAttached:
		return "attached"
	case ItemDisposed:
		return "disposed"
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// Loose reports whether the item is still in the world and can be contacted.
func (s ItemState) Loose() bool {
	return s == ItemFree || s == ItemAttracting
}

// Item holds item identity and size.
type Item struct {
	ID         uint64
	Archetype  string
	Radius     float64 // s
	Mass       float64
	State      ItemState
	Generation uint32 // Level generation the item was spawned into
}

// Position represents an item's world position.
type Position struct {
	X, Y, Z float64
}

// Vec returns the position as a vector.
func (p Position) Vec() r3.Vec {
	return r3.Vec{X: p.X, Y: p.Y, Z: p.Z}
}

// Body links an entity to its physics body.
type Body struct {
	ID physics.BodyID
}

// Visual links an entity to its scene node.
type Visual struct {
	ID scene.NodeID
}

// AttachedRecord is an item stuck to the katamari.
// Offset is a unit vector in the ball's local frame and never changes once set.
type AttachedRecord struct {
	ItemID    uint64       `json:"item_id"`
	Archetype string       `json:"archetype"`
	Radius    float64      `json:"radius"`
	Visual    scene.NodeID `json:"-"`
	Offset    r3.Vec       `json:"offset"`
	Angle     float64      `json:"angle"`
	Speed     float64      `json:"speed"`
	Scale     float64      `json:"scale"`
	Dangling  bool         `json:"dangling,omitempty"` // Counted but has no visual
}
