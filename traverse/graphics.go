// Copyright 2024 The Forge Authors. All rights reserved.

package traverse

import (
	"github.com/nvpipeline/forge/core"
	"github.com/nvpipeline/forge/driver"
	"github.com/nvpipeline/forge/material"
	"github.com/nvpipeline/forge/scene"
)

// matEntry is what the material stack records for a visited
// GraphicsMaterial/ComputeMaterial/RayTracingMaterial node.
type matEntry struct {
	instance *material.Instance
	material *material.Material
}

// pcEntry is what the push-constant stack records for a visited
// GraphicsPushConstant node: the bytes staged at push time, the
// shader stages they target, the declared range index they fill, and
// the material active when the node was pushed (used for the
// compatibility test at emission time).
type pcEntry struct {
	data       []byte
	stages     driver.ShaderStage
	rangeIndex int
	material   *material.Material
}

// stateEntry is what the dynamic-state stack records for a visited
// GraphicsDynamicState node. The node's states are appended into the
// owning RenderData's DynamicStates exactly once, when the node is
// pushed; every leaf beneath it references those same entries by
// index, so a state shared by many draws appears once in
// DynamicStates however many DynamicStateReferences point to it.
type stateEntry struct {
	kinds   []driver.DynamicStateKind
	indices []int
}

// GraphicsTraverser walks a scene graph emitting GraphicsDraws. The
// walk is recursive: pushing a stack entry on entering a node and
// popping it on leaving keeps every stack's top exactly the nearest
// ancestor providing that resource, with no separate depth-based
// pruning pass required.
type GraphicsTraverser struct {
	materials *material.Manager

	generalPredicate MaskPredicate
	typePredicate    MaskPredicate

	matStack   []matEntry
	pcStack    []pcEntry
	stateStack []stateEntry
}

// NewGraphicsTraverser creates a traverser resolving material
// instances through materials.
func NewGraphicsTraverser(materials *material.Manager) (*GraphicsTraverser, error) {
	if materials == nil {
		return nil, newTraverseErr(core.InvalidState, "materials manager must not be nil")
	}
	return &GraphicsTraverser{
		materials:        materials,
		generalPredicate: alwaysVisit,
		typePredicate:    alwaysVisit,
	}, nil
}

// SetGeneralMaskPredicate installs the predicate consulted against
// every node's general mask. A nil predicate resets it to always
// Visit.
func (t *GraphicsTraverser) SetGeneralMaskPredicate(p MaskPredicate) {
	if p == nil {
		p = alwaysVisit
	}
	t.generalPredicate = p
}

// SetTypeMaskPredicate installs the predicate consulted against the
// type mask of nodes this traverser supports. A nil predicate resets
// it to always Visit.
func (t *GraphicsTraverser) SetTypeMaskPredicate(p MaskPredicate) {
	if p == nil {
		p = alwaysVisit
	}
	t.typePredicate = p
}

func graphicsSupports(k scene.PayloadKind) bool {
	switch k {
	case scene.KindGraphicsMaterial, scene.KindGraphicsPushConstant, scene.KindGraphicsDynamicState, scene.KindMesh:
		return true
	}
	return false
}

// Traverse clears rd and performs a fresh depth-first walk of graph,
// emitting one GraphicsDraw per Mesh leaf whose material, descriptor
// and (if declared) push-constant and dynamic-state coverage all
// resolve completely.
func (t *GraphicsTraverser) Traverse(graph *scene.SceneGraph, rd *GraphicsRenderData) {
	rd.Clear()
	t.matStack = t.matStack[:0]
	t.pcStack = t.pcStack[:0]
	t.stateStack = t.stateStack[:0]
	t.walk(graph.Root(), rd)
}

func (t *GraphicsTraverser) walk(n *scene.Node, rd *GraphicsRenderData) {
	generalAction := t.generalPredicate(n.GeneralMask())
	typeAction := Skip
	if graphicsSupports(n.Kind()) {
		typeAction = t.typePredicate(n.TypeMask())
	}
	visit, descend := conjunction(generalAction, typeAction)

	popMat, popPC, popState := false, false, false
	if visit {
		switch n.Kind() {
		case scene.KindGraphicsMaterial:
			if id, ok := n.MaterialInstance(); ok {
				if inst, err := t.materials.Instance(id); err == nil {
					if mat, err := t.materials.Material(inst.Material()); err == nil {
						t.matStack = append(t.matStack, matEntry{instance: inst, material: mat})
						popMat = true
					}
				}
			}
		case scene.KindGraphicsPushConstant:
			data, stages, rangeIndex, ok := n.PushConstant()
			if ok {
				var active *material.Material
				if len(t.matStack) > 0 {
					active = t.matStack[len(t.matStack)-1].material
				}
				t.pcStack = append(t.pcStack, pcEntry{data: data, stages: stages, rangeIndex: rangeIndex, material: active})
				popPC = true
			}
		case scene.KindGraphicsDynamicState:
			if states, ok := n.DynamicStates(); ok {
				e := stateEntry{kinds: make([]driver.DynamicStateKind, len(states)), indices: make([]int, len(states))}
				for i, s := range states {
					e.kinds[i] = s.Kind
					e.indices[i] = len(rd.DynamicStates)
					rd.DynamicStates = append(rd.DynamicStates, s)
				}
				t.stateStack = append(t.stateStack, e)
				popState = true
			}
		case scene.KindMesh:
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
	if popPC {
		t.pcStack = t.pcStack[:len(t.pcStack)-1]
	}
	if popState {
		t.stateStack = t.stateStack[:len(t.stateStack)-1]
	}
}

// emit implements the leaf-emission procedure of §4.2: resolve
// descriptors, then push-constant ranges, then dynamic states, from
// nearest ancestor outward; rewind and skip the leaf if any required
// slot cannot be filled.
func (t *GraphicsTraverser) emit(n *scene.Node, rd *GraphicsRenderData) {
	if len(t.matStack) == 0 {
		return
	}
	active := t.matStack[len(t.matStack)-1].material

	descOffset, ok := t.resolveDescriptors(active, rd)
	if !ok {
		return
	}
	pcDataOffset := len(rd.PushConstantData)
	pcOffset, ok := t.resolvePushConstants(active, rd)
	if !ok {
		rd.Descriptors = rd.Descriptors[:descOffset]
		return
	}
	stateOffset, ok := t.resolveDynamicStates(active, rd)
	if !ok {
		rd.PushConstantData = rd.PushConstantData[:pcDataOffset]
		rd.PushConstantRanges = rd.PushConstantRanges[:pcOffset]
		rd.Descriptors = rd.Descriptors[:descOffset]
		return
	}

	groups, _ := n.Mesh()
	rd.Draws = append(rd.Draws, GraphicsDraw{
		Groups:      groups,
		Material:    active,
		DescOffset:  descOffset,
		PCOffset:    pcOffset,
		StateOffset: stateOffset,
	})
}

func (t *GraphicsTraverser) resolveDescriptors(active *material.Material, rd *GraphicsRenderData) (offset int, ok bool) {
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
		if compatible && active.PushConstantCompatible(e.material) {
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

func (t *GraphicsTraverser) resolvePushConstants(active *material.Material, rd *GraphicsRenderData) (offset int, ok bool) {
	offset = len(rd.PushConstantRanges)
	dataOffset := len(rd.PushConstantData)
	n := active.PushConstantRangeCount()
	for i := 0; i < n; i++ {
		rd.PushConstantRanges = append(rd.PushConstantRanges, PushConstantRange{DataOffset: noDataOffset})
	}
	missing := n
	for i := len(t.pcStack) - 1; i >= 0 && missing > 0; i-- {
		e := t.pcStack[i]
		if e.rangeIndex < 0 || e.rangeIndex >= n || rd.PushConstantRanges[offset+e.rangeIndex].DataOffset != noDataOffset {
			continue
		}
		if e.material != active && (e.material == nil || !active.PushConstantCompatible(e.material)) {
			continue
		}
		dataOff := len(rd.PushConstantData)
		rd.PushConstantData = append(rd.PushConstantData, e.data...)
		rd.PushConstantRanges[offset+e.rangeIndex] = PushConstantRange{
			DataOffset: dataOff,
			Size:       len(e.data),
			Stages:     uint32(e.stages),
		}
		missing--
	}
	if missing > 0 {
		rd.PushConstantRanges = rd.PushConstantRanges[:offset]
		rd.PushConstantData = rd.PushConstantData[:dataOffset]
		return 0, false
	}
	return offset, true
}

func (t *GraphicsTraverser) resolveDynamicStates(active *material.Material, rd *GraphicsRenderData) (offset int, ok bool) {
	offset = len(rd.DynamicStateReferences)
	n := active.DynamicStateCount()
	for i := 0; i < n; i++ {
		rd.DynamicStateReferences = append(rd.DynamicStateReferences, noDataOffset)
	}
	missing := n
	for i := len(t.stateStack) - 1; i >= 0 && missing > 0; i-- {
		e := t.stateStack[i]
		for j, k := range e.kinds {
			slot := dynStateSlot(active, k)
			if slot < 0 || rd.DynamicStateReferences[offset+slot] != noDataOffset {
				continue
			}
			rd.DynamicStateReferences[offset+slot] = e.indices[j]
			missing--
			if missing == 0 {
				break
			}
		}
	}
	if missing > 0 {
		rd.DynamicStateReferences = rd.DynamicStateReferences[:offset]
		return 0, false
	}
	return offset, true
}

func dynStateSlot(m *material.Material, kind driver.DynamicStateKind) int {
	for i := 0; i < m.DynamicStateCount(); i++ {
		if m.DynamicStateKind(i) == kind {
			return i
		}
	}
	return -1
}
