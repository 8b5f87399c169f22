// Copyright 2024 The Forge Authors. All rights reserved.

// Package scene implements the retained-mode scene graph: a tree of
// typed nodes describing per-draw GPU state (materials, push
// constants, dynamic pipeline state, meshes, dispatches, trace-rays
// calls), queried polymorphically by traversers through a dual
// general/type bitmask and a closed payload variant.
package scene

import (
	"sync/atomic"

	"github.com/nvpipeline/forge/core"
	"github.com/nvpipeline/forge/driver"
	"github.com/nvpipeline/forge/material"
)

// NodeID uniquely identifies a Node for the lifetime of the process.
type NodeID uint64

var nextNodeID uint64

func newNodeID() NodeID { return NodeID(atomic.AddUint64(&nextNodeID, 1)) }

// ChildAction selects what happens to a removed node's own children.
type ChildAction int

const (
	// Remove deletes the node's children along with it.
	Remove ChildAction = iota
	// Extract hands the subtree to the caller. It is a distinct
	// primitive from Remove and is rejected by Node.Remove.
	Extract
	// Prepend re-parents the children to the front of the removed
	// node's former parent's child list.
	Prepend
	// Insert re-parents the children at the removed node's former
	// index.
	Insert
	// Append re-parents the children to the end of the removed
	// node's former parent's child list.
	Append
)

// Node is a single element of a SceneGraph. A node has at most one
// parent and an ordered list of owned children; it carries a general
// mask and a type mask consulted by traverser predicates, and exactly
// one payload drawn from the kind it was created with.
type Node struct {
	id       NodeID
	graph    *SceneGraph
	parent   *Node
	children []*Node

	generalMask uint64
	typeMask    uint64

	kind    PayloadKind
	payload payload
}

// ID returns the node's process-unique identifier.
func (n *Node) ID() NodeID { return n.id }

// Parent returns the node's parent, or nil for the root.
func (n *Node) Parent() *Node { return n.parent }

// Children returns the node's ordered children. The returned slice
// must not be mutated by the caller.
func (n *Node) Children() []*Node { return n.children }

// Kind returns the payload variant this node was created with.
func (n *Node) Kind() PayloadKind { return n.kind }

// GeneralMask returns the node's general-purpose filter mask.
func (n *Node) GeneralMask() uint64 { return n.generalMask }

// SetGeneralMask sets the node's general-purpose filter mask.
func (n *Node) SetGeneralMask(m uint64) { n.generalMask = m }

// TypeMask returns the node's type-specific filter mask.
func (n *Node) TypeMask() uint64 { return n.typeMask }

// SetTypeMask sets the node's type-specific filter mask.
func (n *Node) SetTypeMask(m uint64) { n.typeMask = m }

// Supports reports whether the node carries a payload of the given
// kind.
func (n *Node) Supports(kind PayloadKind) bool { return n.kind == kind }

// AddChild appends child as the node's last child, reparenting it
// away from any prior parent.
func (n *Node) AddChild(child *Node) *Node {
	n.adopt(child, len(n.children))
	return child
}

// InsertChild inserts child at the given index among the node's
// children, reparenting it away from any prior parent. An index past
// the end of the current child list behaves like AddChild.
func (n *Node) InsertChild(child *Node, index int) *Node {
	if index > len(n.children) || index < 0 {
		index = len(n.children)
	}
	n.adopt(child, index)
	return child
}

// adopt detaches child from its current parent (if any) and splices
// it into n.children at index.
func (n *Node) adopt(child *Node, index int) {
	if child.parent != nil {
		child.detach()
	}
	child.parent = n
	n.children = append(n.children, nil)
	copy(n.children[index+1:], n.children[index:])
	n.children[index] = child
}

// detach removes n from its parent's child list without applying any
// ChildAction; it is the shared first step of Remove.
func (n *Node) detach() (idx int) {
	p := n.parent
	idx = -1
	for i, c := range p.children {
		if c == n {
			idx = i
			break
		}
	}
	p.children = append(p.children[:idx], p.children[idx+1:]...)
	n.parent = nil
	return idx
}

// Remove detaches the node from its parent and applies action to its
// own children. It fails if called on the root node, or with Extract
// (a distinct caller-owns-the-subtree primitive Remove does not
// support).
func (n *Node) Remove(action ChildAction) error {
	if n.parent == nil {
		return newSceneErr(core.InvalidState, "cannot remove the root node")
	}
	if action == Extract {
		return newSceneErr(core.InvalidState, "Extract is not a valid action for Remove")
	}
	parent := n.parent
	idx := n.detach()
	children := n.children
	n.children = nil

	switch action {
	case Remove:
		for _, c := range children {
			c.destroy()
		}
	case Prepend:
		reparentAt(parent, children, 0)
	case Insert:
		reparentAt(parent, children, idx)
	case Append:
		for _, c := range children {
			c.parent = parent
		}
		parent.children = append(parent.children, children...)
	}
	n.destroy()
	return nil
}

// reparentAt splices children into parent.children at index,
// shared by the Prepend (index 0) and Insert (the removed node's
// former index) ChildActions.
func reparentAt(parent *Node, children []*Node, index int) {
	if len(children) == 0 {
		return
	}
	out := make([]*Node, 0, len(parent.children)+len(children))
	out = append(out, parent.children[:index]...)
	out = append(out, children...)
	out = append(out, parent.children[index:]...)
	for _, c := range children {
		c.parent = parent
	}
	parent.children = out
}

// ClearChildren recursively destroys every descendant of n, leaving
// it childless.
func (n *Node) ClearChildren() {
	for _, c := range n.children {
		c.destroy()
	}
	n.children = nil
}

// destroy recursively removes n and its subtree from the owning
// graph's id index.
func (n *Node) destroy() {
	for _, c := range n.children {
		c.destroy()
	}
	delete(n.graph.nodes, n.id)
	n.graph = nil
	n.children = nil
	n.parent = nil
}

// ForEach calls f for every descendant of n, ancestors before
// descendants, in declared child order. The graph must not be
// mutated until ForEach returns.
func (n *Node) ForEach(f func(*Node)) {
	for _, c := range n.children {
		f(c)
		c.ForEach(f)
	}
}

// --- typed payload setters/getters ---

var errWrongKind = func(n *Node, want PayloadKind) error {
	return newSceneErr(core.IncompatibleArgument,
		"node of kind "+n.kind.String()+" does not support "+want.String())
}

// SetMaterialInstance sets the bound material instance of a
// GraphicsMaterial, ComputeMaterial or RayTracingMaterial node.
func (n *Node) SetMaterialInstance(id material.InstanceID) error {
	switch n.kind {
	case KindGraphicsMaterial:
		n.payload = graphicsMaterialPayload{instance: id}
	case KindComputeMaterial:
		n.payload = computeMaterialPayload{instance: id}
	case KindRayTracingMaterial:
		n.payload = rtMaterialPayload{instance: id}
	default:
		return errWrongKind(n, KindGraphicsMaterial)
	}
	return nil
}

// MaterialInstance returns the node's bound material instance.
func (n *Node) MaterialInstance() (material.InstanceID, bool) {
	switch p := n.payload.(type) {
	case graphicsMaterialPayload:
		return p.instance, true
	case computeMaterialPayload:
		return p.instance, true
	case rtMaterialPayload:
		return p.instance, true
	}
	return 0, false
}

// SetPushConstant sets the staged push-constant bytes, shader stages
// and declared range index of a GraphicsPushConstant node.
func (n *Node) SetPushConstant(data []byte, stages driver.ShaderStage, rangeIndex int) error {
	if n.kind != KindGraphicsPushConstant {
		return errWrongKind(n, KindGraphicsPushConstant)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	n.payload = pushConstantPayload{data: cp, stages: stages, rangeIndex: rangeIndex}
	return nil
}

// PushConstant returns the node's staged bytes, stages and range
// index.
func (n *Node) PushConstant() (data []byte, stages driver.ShaderStage, rangeIndex int, ok bool) {
	p, ok := n.payload.(pushConstantPayload)
	if !ok {
		return nil, 0, 0, false
	}
	return p.data, p.stages, p.rangeIndex, true
}

// SetDynamicStates sets the dynamic-state values of a
// GraphicsDynamicState node.
func (n *Node) SetDynamicStates(states []DynamicState) error {
	if n.kind != KindGraphicsDynamicState {
		return errWrongKind(n, KindGraphicsDynamicState)
	}
	cp := make([]DynamicState, len(states))
	copy(cp, states)
	n.payload = dynamicStatePayload{states: cp}
	return nil
}

// DynamicStates returns the node's dynamic-state values.
func (n *Node) DynamicStates() ([]DynamicState, bool) {
	p, ok := n.payload.(dynamicStatePayload)
	if !ok {
		return nil, false
	}
	return p.states, true
}

// SetMesh sets the draw groups of a Mesh node.
func (n *Node) SetMesh(groups []DrawGroup) error {
	if n.kind != KindMesh {
		return errWrongKind(n, KindMesh)
	}
	cp := make([]DrawGroup, len(groups))
	copy(cp, groups)
	n.payload = meshPayload{groups: cp}
	return nil
}

// Mesh returns the node's draw groups.
func (n *Node) Mesh() ([]DrawGroup, bool) {
	p, ok := n.payload.(meshPayload)
	if !ok {
		return nil, false
	}
	return p.groups, true
}

// SetDispatch sets the workgroup extent of a ComputeDispatch node.
func (n *Node) SetDispatch(extent DispatchExtent) error {
	if n.kind != KindComputeDispatch {
		return errWrongKind(n, KindComputeDispatch)
	}
	n.payload = dispatchPayload{extent: extent}
	return nil
}

// Dispatch returns the node's workgroup extent.
func (n *Node) Dispatch() (DispatchExtent, bool) {
	p, ok := n.payload.(dispatchPayload)
	if !ok {
		return DispatchExtent{}, false
	}
	return p.extent, true
}

// SetTraceRays sets the SBT regions and launch dimensions of a
// RayTracingDispatch node.
func (n *Node) SetTraceRays(extent TraceRaysExtent) error {
	if n.kind != KindRayTracingDispatch {
		return errWrongKind(n, KindRayTracingDispatch)
	}
	n.payload = traceRaysPayload{extent: extent}
	return nil
}

// TraceRays returns the node's SBT regions and launch dimensions.
func (n *Node) TraceRays() (TraceRaysExtent, bool) {
	p, ok := n.payload.(traceRaysPayload)
	if !ok {
		return TraceRaysExtent{}, false
	}
	return p.extent, true
}
