// Package items owns every loose item in the world. Items are ark ECS
// entities carrying their identity, position, physics body and visual.
package items

import (
	"errors"
	"fmt"
	"image/color"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/katamari/components"
	"github.com/pthm-cable/katamari/physics"
	"github.com/pthm-cable/katamari/scene"
)

// ErrUnknownItem is returned for items that are not in the registry.
var ErrUnknownItem = errors.New("items: unknown item")

// Spawn describes one item to create.
type Spawn struct {
	Archetype string
	Pos       r3.Vec
	Radius    float64
	Mass      float64
	Color     color.RGBA
}

// Registry is the arena of item entities.
type Registry struct {
	world *ecs.World
	phys  physics.World
	graph scene.Graph

	mapper *ecs.Map4[components.Item, components.Position, components.Body, components.Visual]
	filter *ecs.Filter4[components.Item, components.Position, components.Body, components.Visual]
	itemMap *ecs.Map1[components.Item]
	posMap  *ecs.Map1[components.Position]

	byBody map[physics.BodyID]ecs.Entity
	byID   map[uint64]ecs.Entity
	nextID uint64

	removeBuf []ecs.Entity
}

// NewRegistry creates an empty registry over the given collaborators.
func NewRegistry(phys physics.World, graph scene.Graph) *Registry {
	world := ecs.NewWorld()
	return &Registry{
		world:   world,
		phys:    phys,
		graph:   graph,
		mapper:  ecs.NewMap4[components.Item, components.Position, components.Body, components.Visual](world),
		filter:  ecs.NewFilter4[components.Item, components.Position, components.Body, components.Visual](world),
		itemMap: ecs.NewMap1[components.Item](world),
		posMap:  ecs.NewMap1[components.Position](world),
		byBody:  make(map[physics.BodyID]ecs.Entity, 1024),
		byID:    make(map[uint64]ecs.Entity, 1024),
		nextID:  1,
	}
}

// Spawn creates the body, visual and entity for one item in generation gen.
// On failure everything acquired so far is released.
func (r *Registry) Spawn(gen uint32, sp Spawn) (uint64, error) {
	body, err := r.phys.CreateStaticItem(sp.Pos, sp.Radius, sp.Mass)
	if err != nil {
		return 0, fmt.Errorf("creating item body: %w", err)
	}
	visual, err := r.graph.CreateSphere(sp.Radius)
	if err != nil {
		r.phys.RemoveBody(body)
		return 0, fmt.Errorf("creating item visual: %w", err)
	}
	pos := mgl64.Vec3{sp.Pos.X, sp.Pos.Y, sp.Pos.Z}
	if err := r.graph.SetTransform(visual, pos, mgl64.QuatIdent(), 1); err != nil {
		r.graph.Dispose(visual)
		r.phys.RemoveBody(body)
		return 0, fmt.Errorf("placing item visual: %w", err)
	}
	r.graph.SetColor(visual, sp.Color)

	id := r.nextID
	r.nextID++
	item := components.Item{
		ID:         id,
		Archetype:  sp.Archetype,
		Radius:     sp.Radius,
		Mass:       sp.Mass,
		State:      components.ItemFree,
		Generation: gen,
	}
	p := components.Position{X: sp.Pos.X, Y: sp.Pos.Y, Z: sp.Pos.Z}
	b := components.Body{ID: body}
	v := components.Visual{ID: visual}
	e := r.mapper.NewEntity(&item, &p, &b, &v)

	r.byBody[body] = e
	r.byID[id] = e
	return id, nil
}

// Len returns the number of items in the registry.
func (r *Registry) Len() int {
	return len(r.byID)
}

// ByBody resolves a physics body to its item entity.
func (r *Registry) ByBody(body physics.BodyID) (ecs.Entity, bool) {
	e, ok := r.byBody[body]
	return e, ok
}

// ByID resolves an item id to its entity.
func (r *Registry) ByID(id uint64) (ecs.Entity, bool) {
	e, ok := r.byID[id]
	return e, ok
}

// Item returns the item component of a live entity.
func (r *Registry) Item(e ecs.Entity) *components.Item {
	if !r.world.Alive(e) {
		return nil
	}
	return r.itemMap.Get(e)
}

// Get returns all components of a live entity.
func (r *Registry) Get(e ecs.Entity) (*components.Item, *components.Position, *components.Body, *components.Visual) {
	return r.mapper.Get(e)
}

// MarkCollected moves an item to Collected and releases its physics body.
// The visual stays with the entity until Detach.
func (r *Registry) MarkCollected(e ecs.Entity) error {
	if !r.world.Alive(e) {
		return ErrUnknownItem
	}
	item, _, body, _ := r.mapper.Get(e)
	if !item.State.Loose() {
		return fmt.Errorf("items: item %d is %s", item.ID, item.State)
	}
	item.State = components.ItemCollected
	if body.ID != 0 {
		delete(r.byBody, body.ID)
		err := r.phys.RemoveBody(body.ID)
		body.ID = 0
		if err != nil {
			return fmt.Errorf("releasing item body: %w", err)
		}
	}
	return nil
}

// Detach removes a collected item from the registry and hands its visual
// to the caller, who now owns it.
func (r *Registry) Detach(e ecs.Entity) (components.Item, scene.NodeID, error) {
	if !r.world.Alive(e) {
		return components.Item{}, 0, ErrUnknownItem
	}
	item, _, body, visual := r.mapper.Get(e)
	if item.State != components.ItemCollected {
		return components.Item{}, 0, fmt.Errorf("items: detach of %s item %d", item.State, item.ID)
	}
	out := *item
	out.State = components.ItemAttached
	node := visual.ID
	if body.ID != 0 {
		delete(r.byBody, body.ID)
		r.phys.RemoveBody(body.ID)
	}
	delete(r.byID, item.ID)
	r.world.RemoveEntity(e)
	return out, node, nil
}

// DisposeGeneration releases every item spawned into gen and returns how
// many were removed.
func (r *Registry) DisposeGeneration(gen uint32) int {
	return r.dispose(func(it *components.Item) bool { return it.Generation == gen })
}

// DisposeAll releases every item.
func (r *Registry) DisposeAll() int {
	return r.dispose(func(*components.Item) bool { return true })
}

func (r *Registry) dispose(match func(*components.Item) bool) int {
	// Collect first: the world is locked while the query runs
	r.removeBuf = r.removeBuf[:0]
	query := r.filter.Query()
	for query.Next() {
		item, _, _, _ := query.Get()
		if match(item) {
			r.removeBuf = append(r.removeBuf, query.Entity())
		}
	}

	for _, e := range r.removeBuf {
		item, _, body, visual := r.mapper.Get(e)
		item.State = components.ItemDisposed
		if body.ID != 0 {
			delete(r.byBody, body.ID)
			r.phys.RemoveBody(body.ID)
		}
		if visual.ID != 0 {
			r.graph.Dispose(visual.ID)
		}
		delete(r.byID, item.ID)
		r.world.RemoveEntity(e)
	}
	return len(r.removeBuf)
}

// CountGeneration returns how many items belong to gen.
func (r *Registry) CountGeneration(gen uint32) int {
	n := 0
	query := r.filter.Query()
	for query.Next() {
		item, _, _, _ := query.Get()
		if item.Generation == gen {
			n++
		}
	}
	return n
}

// Sync copies physics positions of loose items into their components and
// visuals. Collected items are skipped; their body is gone.
func (r *Registry) Sync() {
	query := r.filter.Query()
	for query.Next() {
		item, pos, body, visual := query.Get()
		if !item.State.Loose() || body.ID == 0 {
			continue
		}
		p, ok := r.phys.Position(body.ID)
		if !ok {
			continue
		}
		if p.X == pos.X && p.Y == pos.Y && p.Z == pos.Z {
			continue
		}
		pos.X, pos.Y, pos.Z = p.X, p.Y, p.Z
		r.graph.SetTransform(visual.ID, mgl64.Vec3{p.X, p.Y, p.Z}, mgl64.QuatIdent(), 1)
	}
}

// Each calls fn for every item, in a stable order.
func (r *Registry) Each(fn func(e ecs.Entity, item *components.Item, pos *components.Position)) {
	query := r.filter.Query()
	for query.Next() {
		item, pos, _, _ := query.Get()
		fn(query.Entity(), item, pos)
	}
}
