package katamari

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/katamari/components"
)

// State is the serializable view of the ball. Physics and visual handles
// are excluded.
type State struct {
	Radius       float64                     `json:"radius"`
	Target       float64                     `json:"target"`
	Items        int                         `json:"items"`
	Moving       bool                        `json:"moving"`
	Acceleration float64                     `json:"acceleration"`
	Position     r3.Vec                      `json:"position"`
	Orientation  [4]float64                  `json:"orientation"` // w, x, y, z
	Attached     []components.AttachedRecord `json:"attached"`
}

// State captures the current ball state.
func (k *Katamari) State() State {
	att := make([]components.AttachedRecord, len(k.attached))
	copy(att, k.attached)
	for i := range att {
		att[i].Visual = 0
	}
	return State{
		Radius:       k.radius,
		Target:       k.target,
		Items:        k.items,
		Moving:       k.moving,
		Acceleration: k.accel,
		Position:     k.pos,
		Orientation:  [4]float64{k.orient.W, k.orient.V.X(), k.orient.V.Y(), k.orient.V.Z()},
		Attached:     att,
	}
}
