// Package input fuses keyboard, touch drag and device orientation into a
// single world-space steering frame.
package input

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/katamari/config"
)

// ErrNonFinite reports a sample carrying NaN or infinite values.
var ErrNonFinite = errors.New("input: non-finite sample")

// Keys is a bit set of held steering keys.
type Keys uint8

const (
	KeyForward Keys = 1 << iota
	KeyBack
	KeyLeft
	KeyRight
)

// Has reports whether k is held.
func (k Keys) Has(key Keys) bool { return k&key != 0 }

// Touch is a drag gesture in screen pixels.
type Touch struct {
	Active           bool
	OriginX, OriginY float64
	X, Y             float64
}

// Orientation is a device orientation sample in degrees.
// Beta is the front/back tilt, Gamma the left/right tilt.
type Orientation struct {
	Beta, Gamma float64
	Permitted   bool // The provider was granted access
	Enabled     bool // The player turned tilt steering on
}

// Basis is the camera's forward and right axes projected onto the xz plane.
type Basis struct {
	Forward r3.Vec
	Right   r3.Vec
}

// DefaultBasis looks down -z with +x to the right.
func DefaultBasis() Basis {
	return Basis{Forward: r3.Vec{Z: -1}, Right: r3.Vec{X: 1}}
}

// Context is everything a provider reports for one sample.
type Context struct {
	Keys        Keys
	Touch       Touch
	Orientation Orientation
	Basis       Basis
}

// Provider supplies input snapshots on demand.
type Provider interface {
	Snapshot() Context
}

// Source tags which device produced a frame.
type Source uint8

const (
	SourceNone Source = iota
	SourceKeyboard
	SourceTouch
	SourceOrientation
)

func (s Source) String() string {
	switch s {
	case SourceKeyboard:
		return "keyboard"
	case SourceTouch:
		return "touch"
	case SourceOrientation:
		return "orientation"
	}
	return "none"
}

// Frame is one normalized steering sample.
// Direction is a unit vector on the xz plane, or zero when Magnitude is 0.
type Frame struct {
	Direction r3.Vec
	Magnitude float64
	Source    Source
}

// Active reports whether the frame steers.
func (f Frame) Active() bool { return f.Magnitude > 0 }

// Aggregator turns contexts into frames. It remembers the last valid frame
// to stand in for corrupt samples.
type Aggregator struct {
	sensitivity float64
	deadZone    float64
	maxTilt     float64

	last Frame
}

// NewAggregator creates an aggregator from the input config section.
func NewAggregator(cfg config.InputConfig) *Aggregator {
	return &Aggregator{
		sensitivity: cfg.TouchSensitivity,
		deadZone:    cfg.TiltDeadZone,
		maxTilt:     cfg.MaxTilt,
	}
}

// Sample fuses ctx into a frame. Sources are tried keyboard, touch, then
// orientation; the first one producing a non-zero vector wins. A non-finite
// sample returns the last valid frame together with ErrNonFinite.
func (a *Aggregator) Sample(ctx Context) (Frame, error) {
	if !finiteContext(ctx) {
		return a.last, ErrNonFinite
	}

	x, y, src := a.local(ctx)
	f := Frame{Source: src}
	if src != SourceNone {
		world := r3.Add(r3.Scale(x, flat(ctx.Basis.Right)), r3.Scale(y, flat(ctx.Basis.Forward)))
		if n := r3.Norm(world); n > 1e-12 {
			f.Direction = r3.Scale(1/n, world)
			f.Magnitude = math.Min(1, math.Hypot(x, y))
		} else {
			f.Source = SourceNone
		}
	}
	a.last = f
	return f, nil
}

// local returns the steering vector in camera space (x right, y forward).
func (a *Aggregator) local(ctx Context) (x, y float64, src Source) {
	if x, y := keyboard(ctx.Keys); x != 0 || y != 0 {
		return x, y, SourceKeyboard
	}
	if t := ctx.Touch; t.Active {
		x := (t.X - t.OriginX) * a.sensitivity
		y := -(t.Y - t.OriginY) * a.sensitivity // Screen y grows downward
		if x != 0 || y != 0 {
			x, y = clampUnit(x, y)
			return x, y, SourceTouch
		}
	}
	if o := ctx.Orientation; o.Permitted && o.Enabled {
		x := a.tilt(o.Gamma)
		y := a.tilt(o.Beta)
		if x != 0 || y != 0 {
			x, y = clampUnit(x, y)
			return x, y, SourceOrientation
		}
	}
	return 0, 0, SourceNone
}

func (a *Aggregator) tilt(deg float64) float64 {
	if math.Abs(deg) < a.deadZone {
		return 0
	}
	return deg / a.maxTilt
}

func keyboard(k Keys) (x, y float64) {
	if k.Has(KeyForward) {
		y++
	}
	if k.Has(KeyBack) {
		y--
	}
	if k.Has(KeyRight) {
		x++
	}
	if k.Has(KeyLeft) {
		x--
	}
	if x != 0 && y != 0 {
		x, y = x/math.Sqrt2, y/math.Sqrt2
	}
	return x, y
}

func clampUnit(x, y float64) (float64, float64) {
	if n := math.Hypot(x, y); n > 1 {
		return x / n, y / n
	}
	return x, y
}

// flat projects v onto the xz plane and normalizes it.
func flat(v r3.Vec) r3.Vec {
	v.Y = 0
	n := r3.Norm(v)
	if n < 1e-12 {
		return r3.Vec{}
	}
	return r3.Scale(1/n, v)
}

func finiteContext(ctx Context) bool {
	vals := [...]float64{
		ctx.Touch.OriginX, ctx.Touch.OriginY, ctx.Touch.X, ctx.Touch.Y,
		ctx.Orientation.Beta, ctx.Orientation.Gamma,
		ctx.Basis.Forward.X, ctx.Basis.Forward.Y, ctx.Basis.Forward.Z,
		ctx.Basis.Right.X, ctx.Basis.Right.Y, ctx.Basis.Right.Z,
	}
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
