package collection

import (
	"encoding/binary"
	"hash/fnv"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/katamari/components"
	"github.com/pthm-cable/katamari/config"
)

// Attacher places collected items on the ball surface and animates them.
type Attacher struct {
	initialScale   float64
	minCompression float64
	rate           float64
	speedLo        float64
	speedHi        float64
	surface        float64
}

// NewAttacher creates an attacher from the collection config section.
func NewAttacher(cfg config.CollectionConfig) *Attacher {
	return &Attacher{
		initialScale:   cfg.AttachmentScale,
		minCompression: cfg.MinCompression,
		rate:           cfg.CompressionRate,
		speedLo:        cfg.OrbitalSpeedRange[0],
		speedHi:        cfg.OrbitalSpeedRange[1],
		surface:        cfg.SurfaceDistanceFactor,
	}
}

// Record builds the attachment record for an item touching the ball.
// normal is the world direction from the ball centre to the item (may be
// zero), toItem the item centre relative to the ball, and orient the ball's
// current orientation.
func (a *Attacher) Record(item components.Item, normal, toItem r3.Vec, orient mgl64.Quat) components.AttachedRecord {
	dir := normal
	if r3.Norm2(dir) < 1e-12 {
		dir = toItem
	}
	if r3.Norm2(dir) < 1e-12 {
		dir = r3.Vec{Y: 1}
	}
	dir = r3.Unit(dir)

	// Into the ball frame
	local := orient.Conjugate().Rotate(mgl64.Vec3{dir.X, dir.Y, dir.Z})
	offset := r3.Unit(r3.Vec{X: local.X(), Y: local.Y(), Z: local.Z()})

	speedU, angleU := hashUnit(item.ID)
	return components.AttachedRecord{
		ItemID:    item.ID,
		Archetype: item.Archetype,
		Radius:    item.Radius,
		Offset:    offset,
		Angle:     angleU * 2 * math.Pi,
		Speed:     a.speedLo + speedU*(a.speedHi-a.speedLo),
		Scale:     a.initialScale,
	}
}

// Advance compresses a record by one update and advances its orbit.
func (a *Attacher) Advance(rec *components.AttachedRecord, dt float64) {
	rec.Scale = math.Max(a.minCompression, rec.Scale-a.rate)
	rec.Angle = math.Mod(rec.Angle+rec.Speed*dt, 2*math.Pi)
}

// LocalPosition is the record's position in the ball group's frame for a
// group whose unscaled sphere has radius base: the surface point plus an
// orbital perturbation of base*surfaceDistanceFactor (R*factor once the
// group scale R/base is applied).
func (a *Attacher) LocalPosition(rec *components.AttachedRecord, base float64) mgl64.Vec3 {
	t1, t2 := tangents(rec.Offset)
	c, s := math.Cos(rec.Angle), math.Sin(rec.Angle)
	perturb := r3.Add(r3.Scale(c, t1), r3.Scale(s, t2))
	p := r3.Add(r3.Scale(base, rec.Offset), r3.Scale(base*a.surface, perturb))
	return mgl64.Vec3{p.X, p.Y, p.Z}
}

// tangents returns two unit vectors orthogonal to n and to each other.
func tangents(n r3.Vec) (r3.Vec, r3.Vec) {
	ref := r3.Vec{Y: 1}
	if math.Abs(n.Y) > 0.9 {
		ref = r3.Vec{X: 1}
	}
	t1 := r3.Unit(r3.Cross(ref, n))
	t2 := r3.Cross(n, t1)
	return t1, t2
}

// hashUnit derives two stable values in [0,1) from an item id.
func hashUnit(id uint64) (float64, float64) {
	h := fnv.New64a()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], id)
	h.Write(buf[:])
	sum := h.Sum64()
	return float64(sum>>32) / (1 << 32), float64(sum&0xffffffff) / (1 << 32)
}
