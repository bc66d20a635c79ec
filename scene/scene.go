// Package scene defines the renderer collaborator contract and an arena
// scene graph implementing it. Renderers walk the graph; the core only
// creates, parents, transforms and disposes nodes by handle.
package scene

import (
	"errors"
	"fmt"
	"image/color"

	"github.com/go-gl/mathgl/mgl64"
)

// NodeID is an opaque node handle. Zero means "no node" (the root).
type NodeID uint32

// NodeKind distinguishes groups from drawable spheres.
type NodeKind uint8

const (
	KindGroup NodeKind = iota
	KindSphere
)

var (
	ErrUnknownNode = errors.New("scene: unknown node")
	ErrCycle       = errors.New("scene: parent would create a cycle")
	ErrCapacity    = errors.New("scene: node capacity exhausted")
)

// Graph is the renderer contract used by the core.
type Graph interface {
	CreateGroup() (NodeID, error)
	CreateSphere(radius float64) (NodeID, error)
	// SetParent attaches node under parent; parent 0 detaches to the root.
	// The local transform is kept as is.
	SetParent(node, parent NodeID) error
	SetTransform(node NodeID, pos mgl64.Vec3, rot mgl64.Quat, scale float64) error
	SetColor(node NodeID, c color.RGBA) error
	// Dispose releases node and its whole subtree.
	Dispose(node NodeID) error
}

// Node is one entry of the scene arena.
type Node struct {
	ID       NodeID
	Kind     NodeKind
	Radius   float64
	Color    color.RGBA
	Parent   NodeID
	Children []NodeID

	Pos   mgl64.Vec3
	Rot   mgl64.Quat
	Scale float64
}

// Scene is the arena Graph. Not safe for concurrent use.
type Scene struct {
	nodes  map[NodeID]*Node
	roots  []NodeID
	nextID NodeID

	// MaxNodes caps live nodes; 0 means unlimited.
	MaxNodes int
}

// New creates an empty scene.
func New() *Scene {
	return &Scene{
		nodes:  make(map[NodeID]*Node, 1024),
		nextID: 1,
	}
}

// Len returns the number of live nodes.
func (s *Scene) Len() int { return len(s.nodes) }

// Node returns a live node for inspection. Callers must not mutate it.
func (s *Scene) Node(id NodeID) (*Node, bool) {
	n, ok := s.nodes[id]
	return n, ok
}

func (s *Scene) create(kind NodeKind, radius float64) (NodeID, error) {
	if s.MaxNodes > 0 && len(s.nodes) >= s.MaxNodes {
		return 0, ErrCapacity
	}
	n := &Node{
		ID:     s.nextID,
		Kind:   kind,
		Radius: radius,
		Color:  color.RGBA{R: 255, G: 255, B: 255, A: 255},
		Rot:    mgl64.QuatIdent(),
		Scale:  1,
	}
	s.nextID++
	s.nodes[n.ID] = n
	s.roots = append(s.roots, n.ID)
	return n.ID, nil
}

// CreateGroup adds an empty transform group at the root.
func (s *Scene) CreateGroup() (NodeID, error) {
	return s.create(KindGroup, 0)
}

// CreateSphere adds a sphere of the given base radius at the root.
func (s *Scene) CreateSphere(radius float64) (NodeID, error) {
	if radius <= 0 {
		return 0, fmt.Errorf("scene: sphere radius %v must be positive", radius)
	}
	return s.create(KindSphere, radius)
}

// SetParent re-parents node. Parent 0 moves it to the root.
func (s *Scene) SetParent(node, parent NodeID) error {
	n, ok := s.nodes[node]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownNode, node)
	}
	if parent != 0 {
		if _, ok := s.nodes[parent]; !ok {
			return fmt.Errorf("%w: parent %d", ErrUnknownNode, parent)
		}
		for p := parent; p != 0; p = s.nodes[p].Parent {
			if p == node {
				return ErrCycle
			}
		}
	}
	if n.Parent == parent {
		return nil
	}

	s.unlink(n)
	n.Parent = parent
	if parent == 0 {
		s.roots = append(s.roots, node)
	} else {
		p := s.nodes[parent]
		p.Children = append(p.Children, node)
	}
	return nil
}

// SetTransform sets a node's local transform.
func (s *Scene) SetTransform(node NodeID, pos mgl64.Vec3, rot mgl64.Quat, scale float64) error {
	n, ok := s.nodes[node]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownNode, node)
	}
	n.Pos = pos
	n.Rot = rot
	n.Scale = scale
	return nil
}

// SetColor sets a node's color.
func (s *Scene) SetColor(node NodeID, c color.RGBA) error {
	n, ok := s.nodes[node]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownNode, node)
	}
	n.Color = c
	return nil
}

// Dispose removes node and all its descendants.
func (s *Scene) Dispose(node NodeID) error {
	n, ok := s.nodes[node]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownNode, node)
	}
	s.unlink(n)
	s.disposeTree(n)
	return nil
}

func (s *Scene) disposeTree(n *Node) {
	for _, c := range n.Children {
		if child, ok := s.nodes[c]; ok {
			s.disposeTree(child)
		}
	}
	delete(s.nodes, n.ID)
}

// unlink detaches n from its parent's child list (or the root list).
func (s *Scene) unlink(n *Node) {
	list := &s.roots
	if n.Parent != 0 {
		if p, ok := s.nodes[n.Parent]; ok {
			list = &p.Children
		}
	}
	for i, id := range *list {
		if id == n.ID {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return
		}
	}
}
