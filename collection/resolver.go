package collection

import (
	"log/slog"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/katamari/components"
	"github.com/pthm-cable/katamari/config"
	"github.com/pthm-cable/katamari/event"
	"github.com/pthm-cable/katamari/items"
	"github.com/pthm-cable/katamari/physics"
	"github.com/pthm-cable/katamari/scene"
)

// Ball is what the resolver needs from the katamari.
type Ball interface {
	Radius() float64
	Body() physics.BodyID
	Group() scene.NodeID
	Orientation() mgl64.Quat
	CollectItem(s, contribution float64)
	AddAttached(rec components.AttachedRecord)
}

// Stats counts resolver outcomes since creation.
type Stats struct {
	Collected int
	Attached  int
	Dangling  int
	Bounced   int
	Ignored   int
}

type pending struct {
	entity  ecs.Entity
	id      uint64
	size    float64
	normal  r3.Vec
	overlap float64
	speed   float64
}

// Resolver applies attraction and resolves ball/item contacts.
type Resolver struct {
	rules    Rules
	cfg      config.CollectionConfig
	ball     Ball
	items    *items.Registry
	phys     physics.World
	graph    scene.Graph
	attacher *Attacher
	events   *event.Queue
	logger   *slog.Logger

	warned map[physics.BodyID]bool
	stats  Stats
	live   func() uint32

	near       []physics.BodyID
	attracting []ecs.Entity
	nextAttr   []ecs.Entity
	pending    []pending
	seen       map[physics.BodyID]int
}

// NewResolver wires a resolver to the ball, the item registry and the
// physics and scene collaborators.
func NewResolver(cfg config.CollectionConfig, ball Ball, reg *items.Registry, phys physics.World, graph scene.Graph, events *event.Queue) *Resolver {
	return &Resolver{
		rules:    NewRules(cfg),
		cfg:      cfg,
		ball:     ball,
		items:    reg,
		phys:     phys,
		graph:    graph,
		attacher: NewAttacher(cfg),
		events:   events,
		logger:   slog.Default(),
		warned:   make(map[physics.BodyID]bool),
		seen:     make(map[physics.BodyID]int),
	}
}

// SetLogger replaces the default logger.
func (r *Resolver) SetLogger(l *slog.Logger) { r.logger = l }

// SetLiveGeneration limits attraction and collection to items of the
// generation live reports. Items staged for a level not yet committed are
// left alone. A nil live accepts every generation.
func (r *Resolver) SetLiveGeneration(live func() uint32) { r.live = live }

func (r *Resolver) staged(item *components.Item) bool {
	return r.live != nil && item.Generation != r.live()
}

// Rules returns the size and range rules in use.
func (r *Resolver) Rules() Rules { return r.rules }

// Attacher returns the attachment animator.
func (r *Resolver) Attacher() *Attacher { return r.attacher }

// Stats returns outcome counters.
func (r *Resolver) Stats() Stats { return r.stats }

// ScanAttraction pulls collectible loose items within range toward the
// ball. Candidates come from the physics broad phase. Items that leave
// range or stop being collectible drop back to Free.
func (r *Resolver) ScanAttraction() {
	R := r.ball.Radius()
	center, ok := r.phys.Position(r.ball.Body())
	if !ok {
		return
	}
	rng := r.rules.Range(R)

	r.nextAttr = r.nextAttr[:0]
	r.near = r.phys.QuerySphere(r.near[:0], center, rng)
	for _, body := range r.near {
		e, ok := r.items.ByBody(body)
		if !ok {
			continue
		}
		item, pos, _, _ := r.items.Get(e)
		if !item.State.Loose() || r.staged(item) || !r.rules.Collectible(R, item.Radius) {
			continue
		}
		toBall := r3.Sub(center, pos.Vec())
		d := r3.Norm(toBall)
		if d < 1e-9 {
			continue
		}
		mag := (1 - d/rng) * r.cfg.AttractionForce * item.Mass
		if mag <= 0 {
			continue
		}
		r.phys.ApplyImpulse(body, r3.Scale(mag/d, toBall))
		item.State = components.ItemAttracting
		r.nextAttr = append(r.nextAttr, e)
	}

	// Release items that were pulled last step but not this one
	for _, e := range r.attracting {
		if containsEntity(r.nextAttr, e) {
			continue
		}
		if item := r.items.Item(e); item != nil && item.State == components.ItemAttracting {
			item.State = components.ItemFree
		}
	}
	r.attracting, r.nextAttr = r.nextAttr, r.attracting
}

// HandleContacts resolves one physics step's worth of contacts. Contacts
// are resolved smallest item first, all against the radius the ball had at
// the start of the step.
func (r *Resolver) HandleContacts(contacts []physics.Contact) {
	if len(contacts) == 0 {
		return
	}
	R := r.ball.Radius()
	ballBody := r.ball.Body()
	ground := r.phys.Ground()

	r.pending = r.pending[:0]
	clear(r.seen)
	for _, c := range contacts {
		other, normal := c.B, c.Normal
		switch {
		case c.A == ballBody:
		case c.B == ballBody:
			other, normal = c.A, r3.Scale(-1, c.Normal)
		default:
			continue
		}
		if other == ground {
			continue
		}

		e, ok := r.items.ByBody(other)
		if !ok {
			r.warnUnknown(other)
			continue
		}
		item := r.items.Item(e)
		if item == nil || !item.State.Loose() || r.staged(item) {
			r.stats.Ignored++
			continue
		}

		if i, dup := r.seen[other]; dup {
			if c.Overlap > r.pending[i].overlap {
				r.pending[i].overlap = c.Overlap
				r.pending[i].normal = normal
			}
			continue
		}
		r.seen[other] = len(r.pending)
		r.pending = append(r.pending, pending{
			entity:  e,
			id:      item.ID,
			size:    item.Radius,
			normal:  normal,
			overlap: c.Overlap,
			speed:   c.Speed,
		})
	}

	sort.SliceStable(r.pending, func(i, j int) bool {
		if r.pending[i].size != r.pending[j].size {
			return r.pending[i].size < r.pending[j].size
		}
		return r.pending[i].id < r.pending[j].id
	})

	for i := range r.pending {
		p := &r.pending[i]
		if !r.rules.Collectible(R, p.size) {
			r.bounce(p, R)
			continue
		}
		r.collect(p)
	}
}

func (r *Resolver) bounce(p *pending, R float64) {
	mass, ok := r.phys.Mass(r.ball.Body())
	if !ok {
		return
	}
	mag := r.cfg.BounceFactor * p.overlap * (p.size / R) * mass
	// Away from the item: opposite of the ball->item normal
	r.phys.ApplyImpulse(r.ball.Body(), r3.Scale(-mag, p.normal))
	r.stats.Bounced++
	r.events.Push(event.Event{Kind: event.KindBounce, ItemID: p.id, Size: p.size, Speed: p.speed})
}

func (r *Resolver) collect(p *pending) {
	item, pos, _, _ := r.items.Get(p.entity)
	toItem := pos.Vec()
	if center, ok := r.phys.Position(r.ball.Body()); ok {
		toItem = r3.Sub(toItem, center)
	}

	if err := r.items.MarkCollected(p.entity); err != nil {
		// State was checked above; a failure here is a body release error
		r.logger.Warn("item_body_release_failed", "item", item.ID, "error", err)
	}
	r.ball.CollectItem(p.size, r.cfg.ContributionFactor)
	r.stats.Collected++

	rec := r.attacher.Record(*item, p.normal, toItem, r.ball.Orientation())
	r.attach(p.entity, &rec)
	r.ball.AddAttached(rec)

	r.events.Push(event.Event{
		Kind:     event.KindCollect,
		ItemID:   p.id,
		Size:     p.size,
		Speed:    p.speed,
		Dangling: rec.Dangling,
	})
}

// attach hands the item's visual to the ball group. A visual the graph
// refuses is released and the record is left dangling.
func (r *Resolver) attach(e ecs.Entity, rec *components.AttachedRecord) {
	_, node, err := r.items.Detach(e)
	if err == nil {
		err = r.graph.SetParent(node, r.ball.Group())
		if err != nil && node != 0 {
			r.graph.Dispose(node)
		}
	}
	if err != nil {
		rec.Dangling = true
		rec.Visual = 0
		r.stats.Dangling++
		r.logger.Warn("attach_failed", "item", rec.ItemID, "error", err)
		r.events.Warn("item %d attached without visual: %v", rec.ItemID, err)
	} else {
		rec.Visual = node
	}
	r.stats.Attached++
}

func (r *Resolver) warnUnknown(body physics.BodyID) {
	if r.warned[body] {
		return
	}
	r.warned[body] = true
	r.logger.Warn("contact_unknown_body", "body", body)
	r.events.Warn("contact with unregistered body %d ignored", body)
}

func containsEntity(list []ecs.Entity, e ecs.Entity) bool {
	for _, x := range list {
		if x == e {
			return true
		}
	}
	return false
}
