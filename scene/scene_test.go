package scene

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestDisposeRemovesSubtree(t *testing.T) {
	s := New()
	group, _ := s.CreateGroup()
	a, _ := s.CreateSphere(1)
	b, _ := s.CreateSphere(1)
	other, _ := s.CreateSphere(1)
	if err := s.SetParent(a, group); err != nil {
		t.Fatal(err)
	}
	if err := s.SetParent(b, a); err != nil {
		t.Fatal(err)
	}

	if err := s.Dispose(group); err != nil {
		t.Fatalf("Dispose: %v", err)
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
	if _, ok := s.Node(other); !ok {
		t.Error("unrelated node was disposed")
	}
	if err := s.Dispose(a); !errors.Is(err, ErrUnknownNode) {
		t.Errorf("expected ErrUnknownNode, got %v", err)
	}
}

func TestSetParentRejectsCycle(t *testing.T) {
	s := New()
	a, _ := s.CreateGroup()
	b, _ := s.CreateGroup()
	s.SetParent(b, a)
	if err := s.SetParent(a, b); !errors.Is(err, ErrCycle) {
		t.Errorf("expected ErrCycle, got %v", err)
	}
	if err := s.SetParent(a, a); !errors.Is(err, ErrCycle) {
		t.Errorf("self parent: expected ErrCycle, got %v", err)
	}
}

func TestWorldComposesParents(t *testing.T) {
	s := New()
	group, _ := s.CreateGroup()
	child, _ := s.CreateSphere(0.5)
	s.SetParent(child, group)

	// Group at (10,0,0), rotated 90 deg about Y, scaled x2
	rot := mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 1, 0})
	s.SetTransform(group, mgl64.Vec3{10, 0, 0}, rot, 2)
	s.SetTransform(child, mgl64.Vec3{1, 0, 0}, mgl64.QuatIdent(), 0.5)

	w, ok := s.World(child)
	if !ok {
		t.Fatal("World returned !ok")
	}
	// Local +x rotated 90 deg about Y is -z, times scale 2
	want := mgl64.Vec3{10, 0, -2}
	if !w.Pos.ApproxEqualThreshold(want, 1e-9) {
		t.Errorf("world pos = %v, want %v", w.Pos, want)
	}
	if math.Abs(w.Scale-1) > 1e-12 {
		t.Errorf("world scale = %v, want 1", w.Scale)
	}

	m := w.Matrix()
	origin := m.Mul4x1(mgl64.Vec4{0, 0, 0, 1}).Vec3()
	if !origin.ApproxEqualThreshold(want, 1e-9) {
		t.Errorf("matrix origin = %v, want %v", origin, want)
	}
}

func TestWalkVisitsSpheresOnly(t *testing.T) {
	s := New()
	group, _ := s.CreateGroup()
	a, _ := s.CreateSphere(1)
	b, _ := s.CreateSphere(1)
	s.SetParent(b, group)

	var seen []NodeID
	s.Walk(func(n *Node, _ WorldTransform) { seen = append(seen, n.ID) })
	// The group was created first, so its child comes before the later root
	if len(seen) != 2 || seen[0] != b || seen[1] != a {
		t.Errorf("walk order = %v, want [%d %d]", seen, b, a)
	}
}

func TestCapacity(t *testing.T) {
	s := New()
	s.MaxNodes = 1
	if _, err := s.CreateGroup(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateSphere(1); !errors.Is(err, ErrCapacity) {
		t.Errorf("expected ErrCapacity, got %v", err)
	}
}
