// Copyright 2024 The Forge Authors. All rights reserved.

package scene

import (
	"github.com/nvpipeline/forge/driver"
	"github.com/nvpipeline/forge/material"
)

// PayloadKind identifies the closed set of node variants a Node may
// carry. It is fixed at node creation and never changes.
type PayloadKind int

const (
	KindEmpty PayloadKind = iota
	KindGraphicsMaterial
	KindGraphicsPushConstant
	KindGraphicsDynamicState
	KindComputeMaterial
	KindComputeDispatch
	KindRayTracingMaterial
	KindRayTracingDispatch
	KindMesh
)

func (k PayloadKind) String() string {
	switch k {
	case KindEmpty:
		return "Empty"
	case KindGraphicsMaterial:
		return "GraphicsMaterial"
	case KindGraphicsPushConstant:
		return "GraphicsPushConstant"
	case KindGraphicsDynamicState:
		return "GraphicsDynamicState"
	case KindComputeMaterial:
		return "ComputeMaterial"
	case KindComputeDispatch:
		return "ComputeDispatch"
	case KindRayTracingMaterial:
		return "RayTracingMaterial"
	case KindRayTracingDispatch:
		return "RayTracingDispatch"
	case KindMesh:
		return "Mesh"
	}
	return "invalid"
}

// DrawGroup is one indexed-draw call contributed by a Mesh node.
type DrawGroup struct {
	IndexCount    int
	InstanceCount int
	FirstIndex    int
	VertexOffset  int
	FirstInstance int
}

// DispatchExtent is the workgroup count of a compute dispatch.
type DispatchExtent struct{ X, Y, Z int }

// SBTRegion addresses a contiguous range of a shader binding table
// buffer for one ray-tracing shader group class.
type SBTRegion struct {
	Buffer driver.Buffer
	Offset int64
	Stride int64
	Size   int64
}

// TraceRaysExtent bundles a ray-tracing dispatch's four SBT regions
// with its launch dimensions.
type TraceRaysExtent struct {
	RayGen   SBTRegion
	Miss     SBTRegion
	Hit      SBTRegion
	Callable SBTRegion
	Width    int
	Height   int
	Depth    int
}

// DynamicState is one piece of pipeline state supplied at record
// time. Value holds the backend-specific payload for Kind (e.g. a
// viewport rectangle, a cull-mode enum); the traverser only clones
// and forwards it, never interprets it.
type DynamicState struct {
	Kind  driver.DynamicStateKind
	Value any
}

// payload is the sealed set of per-kind node data. Each concrete
// payload type below implements it, giving Node a type-safe variant
// in place of the class hierarchy a polymorphic node API suggests.
type payload interface{ kind() PayloadKind }

type emptyPayload struct{}

func (emptyPayload) kind() PayloadKind { return KindEmpty }

// graphicsMaterialPayload, computeMaterialPayload and
// rtMaterialPayload are distinct types (not one shared materialPayload)
// so that Supports by PayloadKind, or a type switch on the payload,
// cannot confuse a graphics material node for a compute one.
type graphicsMaterialPayload struct{ instance material.InstanceID }

func (graphicsMaterialPayload) kind() PayloadKind { return KindGraphicsMaterial }

type computeMaterialPayload struct{ instance material.InstanceID }

func (computeMaterialPayload) kind() PayloadKind { return KindComputeMaterial }

type rtMaterialPayload struct{ instance material.InstanceID }

func (rtMaterialPayload) kind() PayloadKind { return KindRayTracingMaterial }

// pushConstantPayload holds the raw bytes staged for one material
// push-constant range, plus the stages that consume it and the index
// of the range (within the active material's declared ranges) it
// fills.
type pushConstantPayload struct {
	data       []byte
	stages     driver.ShaderStage
	rangeIndex int
}

func (pushConstantPayload) kind() PayloadKind { return KindGraphicsPushConstant }

type dynamicStatePayload struct{ states []DynamicState }

func (dynamicStatePayload) kind() PayloadKind { return KindGraphicsDynamicState }

type meshPayload struct{ groups []DrawGroup }

func (meshPayload) kind() PayloadKind { return KindMesh }

type dispatchPayload struct{ extent DispatchExtent }

func (dispatchPayload) kind() PayloadKind { return KindComputeDispatch }

type traceRaysPayload struct{ extent TraceRaysExtent }

func (traceRaysPayload) kind() PayloadKind { return KindRayTracingDispatch }
