// Copyright 2024 The Forge Authors. All rights reserved.

package traverse

import (
	"github.com/nvpipeline/forge/material"
	"github.com/nvpipeline/forge/scene"
)

// noDataOffset marks a push-constant range or dynamic-state slot that
// traversal has reserved but not yet (or never) filled.
const noDataOffset = -1

// PushConstantRange is the resolved location of one push-constant
// range's bytes within the owning RenderData's flat PushConstantData,
// plus the shader stages that consume it.
type PushConstantRange struct {
	DataOffset int
	Size       int
	Stages     uint32
}

// GraphicsDraw is one graphics leaf's flattened render state.
type GraphicsDraw struct {
	Groups      []scene.DrawGroup
	Material    *material.Material
	DescOffset  int
	PCOffset    int
	StateOffset int
}

// GraphicsRenderData is the flat output of a GraphicsTraverser walk.
// After a successful traversal, for every Draw d,
// Descriptors[d.DescOffset:d.DescOffset+d.Material.SetCount()] is
// fully populated, and analogously for push-constant ranges and
// dynamic-state references; a draw for which any of these would be
// incomplete is not emitted at all.
type GraphicsRenderData struct {
	Draws                  []GraphicsDraw
	Descriptors            []*material.Instance
	PushConstantRanges     []PushConstantRange
	PushConstantData       []byte
	DynamicStates          []scene.DynamicState
	DynamicStateReferences []int // index into DynamicStates, or -1
}

// Clear empties every flat vector without releasing their backing
// arrays, so repeated per-frame traversal does not churn allocations.
func (r *GraphicsRenderData) Clear() {
	r.Draws = r.Draws[:0]
	r.Descriptors = r.Descriptors[:0]
	r.PushConstantRanges = r.PushConstantRanges[:0]
	r.PushConstantData = r.PushConstantData[:0]
	r.DynamicStates = r.DynamicStates[:0]
	r.DynamicStateReferences = r.DynamicStateReferences[:0]
}

// ComputeDraw is one compute leaf's flattened render state.
type ComputeDraw struct {
	Extent     scene.DispatchExtent
	Material   *material.Material
	DescOffset int
	PCOffset   int
}

// ComputeRenderData is the flat output of a ComputeTraverser walk.
// PushConstantRanges and PushConstantData stay empty until a
// ComputePushConstant node kind exists to stage them; the fields are
// present now so ComputeDraw.PCOffset is meaningful once one does.
type ComputeRenderData struct {
	Draws              []ComputeDraw
	Descriptors        []*material.Instance
	PushConstantRanges []PushConstantRange
	PushConstantData   []byte
}

// Clear empties every flat vector without releasing backing arrays.
func (r *ComputeRenderData) Clear() {
	r.Draws = r.Draws[:0]
	r.Descriptors = r.Descriptors[:0]
	r.PushConstantRanges = r.PushConstantRanges[:0]
	r.PushConstantData = r.PushConstantData[:0]
}

// RayTracingDraw is one ray-tracing leaf's flattened render state.
type RayTracingDraw struct {
	Extent     scene.TraceRaysExtent
	Material   *material.Material
	DescOffset int
	PCOffset   int
}

// RayTracingRenderData is the flat output of a RayTracingTraverser
// walk. PushConstantRanges and PushConstantData stay empty for the
// same reason as ComputeRenderData's.
type RayTracingRenderData struct {
	Draws              []RayTracingDraw
	Descriptors        []*material.Instance
	PushConstantRanges []PushConstantRange
	PushConstantData   []byte
}

// Clear empties every flat vector without releasing backing arrays.
func (r *RayTracingRenderData) Clear() {
	r.Draws = r.Draws[:0]
	r.Descriptors = r.Descriptors[:0]
	r.PushConstantRanges = r.PushConstantRanges[:0]
	r.PushConstantData = r.PushConstantData[:0]
}
