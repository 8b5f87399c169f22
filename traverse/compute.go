// Copyright 2024 The Forge Authors. All rights reserved.

package traverse

import (
	"github.com/nvpipeline/forge/core"
	"github.com/nvpipeline/forge/material"
	"github.com/nvpipeline/forge/scene"
)

// ComputeTraverser walks a scene graph emitting ComputeDraws. It is
// GraphicsTraverser's leaf-emission procedure without the
// push-constant and dynamic-state stacks; dispatch pipelines carry no
// dynamic state.
type ComputeTraverser struct {
	materials *material.Manager

	generalPredicate MaskPredicate
	typePredicate    MaskPredicate

	matStack []matEntry
}

// NewComputeTraverser creates a traverser resolving material instances
// through materials.
func NewComputeTraverser(materials *material.Manager) (*ComputeTraverser, error) {
	if materials == nil {
		return nil, newTraverseErr(core.InvalidState, "materials manager must not be nil")
	}
	return &ComputeTraverser{
		materials:        materials,
		generalPredicate: alwaysVisit,
		typePredicate:    alwaysVisit,
	}, nil
}

// SetGeneralMaskPredicate installs the predicate consulted against
// every node's general mask. A nil predicate resets it to always
// Visit.
func (t *ComputeTraverser) SetGeneralMaskPredicate(p MaskPredicate) {
	if p == nil {
		p = alwaysVisit
	}
	t.generalPredicate = p
}

// SetTypeMaskPredicate installs the predicate consulted against the
// type mask of nodes this traverser supports. A nil predicate resets
// it to always Visit.
func (t *ComputeTraverser) SetTypeMaskPredicate(p MaskPredicate) {
	if p == nil {
		p = alwaysVisit
	}
	t.typePredicate = p
}

func computeSupports(k scene.PayloadKind) bool {
	switch k {
	case scene.KindComputeMaterial, scene.KindComputeDispatch:
		return true
	}
	return false
}

// Traverse clears rd and performs a fresh depth-first walk of graph,
// emitting one ComputeDraw per ComputeDispatch leaf whose material and
// descriptor coverage resolves completely. Push constants are not
// resolved; emitted draws carry no push-constant ranges.
func (t *ComputeTraverser) Traverse(graph *scene.SceneGraph, rd *ComputeRenderData) {
	rd.Clear()
	t.matStack = t.matStack[:0]
	t.walk(graph.Root(), rd)
}

func (t *ComputeTraverser) walk(n *scene.Node, rd *ComputeRenderData) {
	generalAction := t.generalPredicate(n.GeneralMask())
	typeAction := Skip
	if computeSupports(n.Kind()) {
		typeAction = t.typePredicate(n.TypeMask())
	}
	visit, descend := conjunction(generalAction, typeAction)

	popMat := false
	if visit {
		switch n.Kind() {
		case scene.KindComputeMaterial:
			if id, ok := n.MaterialInstance(); ok {
				if inst, err := t.materials.Instance(id); err == nil {
					if mat, err := t.materials.Material(inst.Material()); err == nil {
						t.matStack = append(t.matStack, matEntry{instance: inst, material: mat})
						popMat = true
					}
				}
			}
		case scene.KindComputeDispatch:
			t.emit(n, rd)
		}
	}

	if descend {
		for _, c := range n.Children() {
			t.walk(c, rd)
		}
	}

	if popMat {
		t.matStack = t.matStack[:len(t.matStack)-1]
	}
}

func (t *ComputeTraverser) emit(n *scene.Node, rd *ComputeRenderData) {
	if len(t.matStack) == 0 {
		return
	}
	active := t.matStack[len(t.matStack)-1].material

	descOffset, ok := t.resolveDescriptors(active, rd)
	if !ok {
		return
	}
	extent, _ := n.Dispatch()
	rd.Draws = append(rd.Draws, ComputeDraw{
		Extent:     extent,
		Material:   active,
		DescOffset: descOffset,
	})
}

func (t *ComputeTraverser) resolveDescriptors(active *material.Material, rd *ComputeRenderData) (offset int, ok bool) {
	offset = len(rd.Descriptors)
	n := active.SetCount()
	for i := 0; i < n; i++ {
		rd.Descriptors = append(rd.Descriptors, nil)
	}
	missing := n
	for i := len(t.matStack) - 1; i >= 0 && missing > 0; i-- {
		e := t.matStack[i]
		si := e.instance.SetIndex()
		if si < 0 || si >= n || rd.Descriptors[offset+si] != nil {
			continue
		}
		compatible := e.material == active
		if !compatible {
			compatible = active.CompatPrefix(e.material) > si
		}
		if compatible {
			rd.Descriptors[offset+si] = e.instance
			missing--
		}
	}
	if missing > 0 {
		rd.Descriptors = rd.Descriptors[:offset]
		return 0, false
	}
	return offset, true
}
