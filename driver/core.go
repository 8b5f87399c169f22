// Copyright 2024 The Forge Authors. All rights reserved.

// Package driver defines the explicit, Vulkan-class interfaces that the
// rendering core is layered over: queue families, command buffers,
// pipeline barriers, timeline semaphores, descriptor sets and
// acceleration structures. Concrete implementations (device/buffer/image
// handle creation, descriptor-set packing, window glue) live outside the
// core's scope; driver/vk provides a reference backend.
package driver

import "time"

// QueueFamily identifies a group of GPU queues with identical
// capability. Resource ownership is tracked at this granularity.
type QueueFamily int

// Queue is a handle to a GPU queue within a QueueFamily.
type Queue interface {
	// Family returns the QueueFamily that owns this Queue.
	Family() QueueFamily
}

// Destroyer is the interface wrapping the Destroy method, for types
// that hold GPU resources not managed by the Go garbage collector.
type Destroyer interface {
	Destroy()
}

// Fence is a CPU-waitable, GPU-signaled synchronization primitive.
type Fence interface {
	Destroyer

	// Wait blocks until the fence is signaled or timeout elapses.
	Wait(timeout time.Duration) error

	// Reset unsignals the fence. It must not be called while the
	// fence is in use by a pending submission.
	Reset() error
}

// Semaphore is a GPU-side synchronization primitive. A Semaphore
// created through Device.CreateTimelineSemaphore carries a
// monotonically increasing u64 payload usable for both CPU and GPU
// waits; one created through Device.CreateSemaphore is a legacy
// binary semaphore, usable only for GPU-side queue operations
// (Acquire/Present).
type Semaphore interface {
	Destroyer

	// Timeline reports whether this is a timeline semaphore.
	Timeline() bool

	// Value returns the current payload of a timeline semaphore.
	// It panics if Timeline() is false.
	Value() (uint64, error)
}

// CmdLevel is the level of a command buffer.
type CmdLevel int

const (
	LevelPrimary CmdLevel = iota
	LevelSecondary
)

// CmdPool allocates command buffers for a single QueueFamily.
type CmdPool interface {
	Destroyer

	Family() QueueFamily
}

// MemoryBarrier synchronizes buffer or buffer-range memory accesses,
// optionally transferring queue-family ownership.
type MemoryBarrier struct {
	SyncBefore   Sync
	SyncAfter    Sync
	AccessBefore Access
	AccessAfter  Access

	Buffer Buffer
	Offset int64
	Size   int64

	// Transfer selects an explicit ownership transfer to DstFamily;
	// SrcFamily and DstFamily are ignored when it is false. When
	// Transfer is false, or the destination family already owns the
	// resource, no transfer occurs and the barrier is a same-family
	// execution/memory barrier.
	SrcFamily QueueFamily
	DstFamily QueueFamily
	Transfer  bool
}

// ImageBarrier synchronizes image memory accesses for a single
// (mip-level, array-layer) range, with an optional layout transition
// and queue-family ownership transfer.
type ImageBarrier struct {
	SyncBefore   Sync
	SyncAfter    Sync
	AccessBefore Access
	AccessAfter  Access

	LayoutBefore Layout
	LayoutAfter  Layout

	Image  Image
	Level  int
	Levels int
	Layer  int
	Layers int

	SrcFamily QueueFamily
	DstFamily QueueFamily
	Transfer  bool
}

// BufferCopy describes a buffer-to-buffer copy.
type BufferCopy struct {
	Src    Buffer
	SrcOff int64
	Dst    Buffer
	DstOff int64
	Size   int64
}

// BufferImageCopy describes a copy between a buffer and an image.
type BufferImageCopy struct {
	Buf    Buffer
	BufOff int64
	Stride [2]int64
	Img    Image
	ImgOff Off3D
	Layer  int
	Level  int
	Size   Dim3D
	Layers int
}

// CmdBuffer is the interface for recording GPU commands.
// Recording is bracketed by Begin/End; PipelineBarrier and the Copy*
// methods may be called between them in any order.
type CmdBuffer interface {
	Destroyer

	Family() QueueFamily
	IsRecording() bool

	Begin() error
	End() error
	Reset() error

	PipelineBarrier(mem []MemoryBarrier, img []ImageBarrier)
	CopyBuffer(c BufferCopy)
	CopyBufferToImage(c BufferImageCopy)
	CopyImageToBuffer(c BufferImageCopy)

	// SetPipeline, SetViewport, SetScissor, BindDescriptors,
	// PushConstants, Draw, Dispatch and TraceRays are recorded by
	// the render task (§4.6); their exact shapes are an external,
	// out-of-scope concern. CmdBuffer exposes only what the
	// transfer manager needs.
}

// Buffer is a linear range of GPU-accessible memory.
type Buffer interface {
	Destroyer

	Size() int64
	QueueFamily() QueueFamily

	// Bytes returns the host-mapped view of the buffer. It panics
	// if the buffer was not created with host-visible storage.
	Bytes() []byte
}

// Off3D is a 3D offset.
type Off3D struct{ X, Y, Z int }

// Dim3D is a 3D extent.
type Dim3D struct{ Width, Height, Depth int }

// Image is a GPU-accessible image resource. Ownership is tracked per
// (mip-level, array-layer) tile, since a cross-family barrier may
// transfer only part of an image's subresources.
type Image interface {
	Destroyer

	Levels() int
	Layers() int

	QueueFamilyOf(level, layer int) QueueFamily
}

// BufferOwnerSetter is implemented by Buffer types that allow the
// transfer manager to record a completed ownership transfer, per
// spec §5: "the only operations that mutate that field are
// Transaction::commit".
type BufferOwnerSetter interface {
	SetQueueFamily(QueueFamily)
}

// ImageOwnerSetter is the Image analogue of BufferOwnerSetter,
// tracked per (mip-level, array-layer) tile.
type ImageOwnerSetter interface {
	SetQueueFamilyOf(level, layer int, family QueueFamily)
}

// Sampling describes a sampler's filtering and addressing modes.
type Sampling struct {
	MagFilter, MinFilter int
	AddressU, AddressV   int
}

// ShaderModule is a compiled shader binary loaded by the device.
type ShaderModule interface {
	Destroyer
}

// DescriptorSetLayout is the typed schema of a descriptor set.
// Equal returns whether two layouts describe the same set of
// bindings, used by Material.CompatPrefix (§3).
type DescriptorSetLayout interface {
	Equal(DescriptorSetLayout) bool
}

// PushConstantRange describes one push-constant range.
type PushConstantRange struct {
	Offset int
	Size   int
	Stages ShaderStage
}

// ShaderStage is a bitmask of shader stages.
type ShaderStage int

const (
	StageVertex ShaderStage = 1 << iota
	StageFragment
	StageCompute
	StageRayGen
	StageClosestHit
	StageMiss
	StageAnyHit
	StageIntersection
)

// DynamicStateKind identifies a piece of pipeline state supplied at
// record time instead of baked into the pipeline.
type DynamicStateKind int

const (
	DynViewport DynamicStateKind = iota
	DynScissor
	DynCullMode
	DynDepthBias
	DynBlendConstants
	dynStateCount
)

// NumDynamicStateKinds is the number of defined DynamicStateKind
// values.
func NumDynamicStateKinds() int { return int(dynStateCount) }

// PipelineKind selects which of Device.CreatePipeline's settings
// variant applies.
type PipelineKind int

const (
	PipelineGraphics PipelineKind = iota
	PipelineCompute
	PipelineRayTracing
)

// GraphicsSettings parametrizes a graphics pipeline.
type GraphicsSettings struct {
	Shaders       []ShaderModule
	SetLayouts    []DescriptorSetLayout
	PushConstants []PushConstantRange
	DynamicStates []DynamicStateKind
}

// ComputeSettings parametrizes a compute pipeline.
type ComputeSettings struct {
	Shader        ShaderModule
	SetLayouts    []DescriptorSetLayout
	PushConstants []PushConstantRange
}

// RayTracingSettings parametrizes a ray-tracing pipeline.
type RayTracingSettings struct {
	Shaders       []ShaderModule
	SetLayouts    []DescriptorSetLayout
	PushConstants []PushConstantRange
	MaxRecursion  int
}

// Pipeline is an opaque, backend-created pipeline object.
type Pipeline interface {
	Destroyer

	Kind() PipelineKind
}

// Usage is a bitmask of buffer/image usage flags.
type Usage int

const (
	UVertexData Usage = 1 << iota
	UIndexData
	UUniformData
	UStorageData
	UCopySrc
	UCopyDst
	UShaderSample
	URenderTarget
	UAccelStructBuild
	UAccelStructStorage
	UShaderBindingTable
)

// SemWait pairs a Semaphore with the timeline value to wait for (or,
// for binary semaphores, 0).
type SemWait struct {
	Sem   Semaphore
	Value uint64
	Stage Sync
}

// SemSignal pairs a Semaphore with the timeline value it will hold
// once signaled (or, for binary semaphores, 0).
type SemSignal struct {
	Sem   Semaphore
	Value uint64
	Stage Sync
}

// SubmitInfo is a single queue submission as used by
// Device.QueueSubmit2 (the sync2-style batched submit, grounded on
// VkQueueSubmit2/VkSemaphoreSubmitInfo).
type SubmitInfo struct {
	CmdBuffers []CmdBuffer
	Waits      []SemWait
	Signals    []SemSignal
	Fence      Fence
}

// Device is the main interface to an underlying driver
// implementation. It is used to create every other driver type and
// to submit command buffers for execution.
type Device interface {
	QueueFamilies() []QueueFamily
	Queues(family QueueFamily) (Queue, error)

	CreateBuffer(size int64, visible bool, usg Usage) (Buffer, error)
	CreateImage(levels, layers int, usg Usage) (Image, error)
	CreateSampler(s *Sampling) (Sampler, error)
	CreateShaderModule(code []byte) (ShaderModule, error)
	CreateDescriptorSetLayout(bindings []DescriptorBinding) (DescriptorSetLayout, error)
	CreateDescriptorPool(layout DescriptorSetLayout, n int) (DescriptorPool, error)
	CreatePipeline(kind PipelineKind, settings any) (Pipeline, error)

	CreateCmdPool(family QueueFamily) (CmdPool, error)
	CreateCmdBuffer(pool CmdPool, level CmdLevel) (CmdBuffer, error)

	CreateFence(signaled bool) (Fence, error)
	CreateSemaphore() (Semaphore, error)
	CreateTimelineSemaphore(initial uint64) (Semaphore, error)

	// WaitSemaphores performs a CPU-side wait for every (handles[i],
	// values[i]) pair to reach its timeline value, or for the
	// timeout to elapse.
	WaitSemaphores(handles []Semaphore, values []uint64, timeout time.Duration) error

	// QueueSubmit2 submits a batch of SubmitInfo to queue.
	QueueSubmit2(queue Queue, submits []SubmitInfo) error
}

// Sampler is an opaque, backend-created sampler object.
type Sampler interface {
	Destroyer
}

// DescriptorType identifies the kind of resource a descriptor
// binding refers to.
type DescriptorType int

const (
	DBuffer DescriptorType = iota
	DImage
	DConstant
	DTexture
	DSampler
	DAccelStruct
)

// DescriptorBinding describes one binding within a descriptor set
// layout.
type DescriptorBinding struct {
	Nr     int
	Type   DescriptorType
	Len    int
	Stages ShaderStage
}

// Descriptor is an opaque, backend-specific reference to a bound
// resource (storage image, sampler, acceleration structure, uniform
// buffer range, ...).
type Descriptor interface{}

// DescriptorPool allocates descriptor sets from a
// DescriptorSetLayout.
type DescriptorPool interface {
	Destroyer

	// Alloc allocates n descriptor sets.
	Alloc(n int) ([]DescriptorSet, error)
}

// DescriptorSet is a GPU-side binding of resources to shader slots.
type DescriptorSet interface {
	// Write updates the resources bound at the given binding
	// numbers.
	Write(binds []int, descs []Descriptor)
}

// Swapchain presents rendered images to a surface.
type Swapchain interface {
	Destroyer

	// AcquireNextImage acquires the next image for rendering,
	// signaling sem (and, if non-nil, fence) when it is ready.
	// recreateNeeded is true when the swapchain is out of date and
	// must be recreated before the returned index is usable.
	AcquireNextImage(sem Semaphore, fence Fence) (index int, recreateNeeded bool, err error)

	// Present queues the image at index for presentation after
	// every semaphore in wait is signaled.
	Present(queue Queue, index int, wait []Semaphore) (recreateNeeded bool, err error)
}
