package scene

import (
	"github.com/go-gl/mathgl/mgl64"
)

// WorldTransform is a node transform resolved through all of its parents.
type WorldTransform struct {
	Pos   mgl64.Vec3
	Rot   mgl64.Quat
	Scale float64
}

// Matrix returns T * R * S.
func (w WorldTransform) Matrix() mgl64.Mat4 {
	return mgl64.Translate3D(w.Pos.X(), w.Pos.Y(), w.Pos.Z()).
		Mul4(w.Rot.Mat4()).
		Mul4(mgl64.Scale3D(w.Scale, w.Scale, w.Scale))
}

// World resolves a node's world transform.
func (s *Scene) World(id NodeID) (WorldTransform, bool) {
	n, ok := s.nodes[id]
	if !ok {
		return WorldTransform{}, false
	}
	local := WorldTransform{Pos: n.Pos, Rot: n.Rot, Scale: n.Scale}
	if n.Parent == 0 {
		return local, true
	}
	parent, ok := s.World(n.Parent)
	if !ok {
		return local, true
	}
	return compose(parent, local), true
}

func compose(parent, local WorldTransform) WorldTransform {
	return WorldTransform{
		Pos:   parent.Pos.Add(parent.Rot.Rotate(local.Pos.Mul(parent.Scale))),
		Rot:   parent.Rot.Mul(local.Rot).Normalize(),
		Scale: parent.Scale * local.Scale,
	}
}

// Walk visits every sphere with its world transform, parents before
// children, roots in creation order.
func (s *Scene) Walk(fn func(n *Node, w WorldTransform)) {
	ident := WorldTransform{Rot: mgl64.QuatIdent(), Scale: 1}
	for _, id := range s.roots {
		if n, ok := s.nodes[id]; ok {
			s.walk(n, ident, fn)
		}
	}
}

func (s *Scene) walk(n *Node, parent WorldTransform, fn func(*Node, WorldTransform)) {
	w := compose(parent, WorldTransform{Pos: n.Pos, Rot: n.Rot, Scale: n.Scale})
	if n.Kind == KindSphere {
		fn(n, w)
	}
	for _, c := range n.Children {
		if child, ok := s.nodes[c]; ok {
			s.walk(child, w, fn)
		}
	}
}
