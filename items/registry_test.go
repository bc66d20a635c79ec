package items

import (
	"errors"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/katamari/components"
	"github.com/pthm-cable/katamari/config"
	"github.com/pthm-cable/katamari/physics"
	"github.com/pthm-cable/katamari/scene"
)

func newTestRegistry() (*Registry, *physics.Engine, *scene.Scene) {
	phys := physics.NewEngine(config.MustDefault().Physics)
	graph := scene.New()
	return NewRegistry(phys, graph), phys, graph
}

func spawnAt(t *testing.T, r *Registry, gen uint32, x float64) uint64 {
	t.Helper()
	id, err := r.Spawn(gen, Spawn{Archetype: "pebble", Pos: r3.Vec{X: x, Y: 0.5}, Radius: 0.5, Mass: 1})
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	return id
}

func TestSpawnAcquiresBodyAndVisual(t *testing.T) {
	r, phys, graph := newTestRegistry()
	id := spawnAt(t, r, 1, 3)

	if r.Len() != 1 || phys.BodyCount() != 1 || graph.Len() != 1 {
		t.Fatalf("len=%d bodies=%d nodes=%d, want 1/1/1", r.Len(), phys.BodyCount(), graph.Len())
	}
	e, ok := r.ByID(id)
	if !ok {
		t.Fatal("ByID failed")
	}
	item, pos, body, _ := r.Get(e)
	if item.State != components.ItemFree || pos.X != 3 {
		t.Errorf("item = %+v pos = %+v", item, pos)
	}
	if got, ok := r.ByBody(body.ID); !ok || got != e {
		t.Error("ByBody does not resolve the item body")
	}
}

func TestSpawnReleasesOnVisualFailure(t *testing.T) {
	r, phys, graph := newTestRegistry()
	graph.MaxNodes = 1
	spawnAt(t, r, 1, 0)

	_, err := r.Spawn(1, Spawn{Pos: r3.Vec{X: 5, Y: 0.5}, Radius: 0.5, Mass: 1})
	if !errors.Is(err, scene.ErrCapacity) {
		t.Fatalf("expected scene.ErrCapacity, got %v", err)
	}
	if phys.BodyCount() != 1 {
		t.Errorf("body leaked: BodyCount = %d, want 1", phys.BodyCount())
	}
}

func TestCollectThenDetach(t *testing.T) {
	r, phys, graph := newTestRegistry()
	id := spawnAt(t, r, 1, 0)
	e, _ := r.ByID(id)
	_, _, body, _ := r.Get(e)
	bodyID := body.ID

	if err := r.MarkCollected(e); err != nil {
		t.Fatalf("MarkCollected: %v", err)
	}
	if phys.BodyCount() != 0 {
		t.Error("body not released on collect")
	}
	if _, ok := r.ByBody(bodyID); ok {
		t.Error("collected item still resolvable by body")
	}
	if err := r.MarkCollected(e); err == nil {
		t.Error("second MarkCollected should fail")
	}

	item, node, err := r.Detach(e)
	if err != nil {
		t.Fatalf("Detach: %v", err)
	}
	if item.State != components.ItemAttached || item.ID != id {
		t.Errorf("detached item = %+v", item)
	}
	if _, ok := graph.Node(node); !ok {
		t.Error("visual must survive detach; the caller owns it now")
	}
	if r.Len() != 0 {
		t.Errorf("Len = %d after detach", r.Len())
	}
}

func TestDetachRequiresCollected(t *testing.T) {
	r, _, _ := newTestRegistry()
	e, _ := r.ByID(spawnAt(t, r, 1, 0))
	if _, _, err := r.Detach(e); err == nil {
		t.Error("Detach of a free item should fail")
	}
}

func TestDisposeGeneration(t *testing.T) {
	r, phys, graph := newTestRegistry()
	for i := 0; i < 5; i++ {
		spawnAt(t, r, 1, float64(i*2))
	}
	for i := 0; i < 3; i++ {
		spawnAt(t, r, 2, float64(i*2))
	}

	if n := r.DisposeGeneration(1); n != 5 {
		t.Errorf("disposed %d, want 5", n)
	}
	if r.CountGeneration(1) != 0 || r.CountGeneration(2) != 3 {
		t.Errorf("gen counts = %d/%d, want 0/3", r.CountGeneration(1), r.CountGeneration(2))
	}
	if phys.BodyCount() != 3 || graph.Len() != 3 {
		t.Errorf("bodies=%d nodes=%d, want 3/3", phys.BodyCount(), graph.Len())
	}

	r.DisposeAll()
	if r.Len() != 0 || phys.BodyCount() != 0 || graph.Len() != 0 {
		t.Errorf("leak after DisposeAll: len=%d bodies=%d nodes=%d", r.Len(), phys.BodyCount(), graph.Len())
	}
}

func TestSyncFollowsPhysics(t *testing.T) {
	r, phys, graph := newTestRegistry()
	e, _ := r.ByID(spawnAt(t, r, 1, 0))
	_, _, body, visual := r.Get(e)

	phys.ApplyImpulse(body.ID, r3.Vec{X: 3})
	phys.Step(1.0 / 60.0)
	r.Sync()

	_, pos, _, _ := r.Get(e)
	if pos.X <= 0 {
		t.Errorf("position not synced: %+v", pos)
	}
	w, _ := graph.World(visual.ID)
	if w.Pos.X() != pos.X {
		t.Errorf("visual x = %v, want %v", w.Pos.X(), pos.X)
	}
}
