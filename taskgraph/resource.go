// Copyright 2024 The Forge Authors. All rights reserved.

package taskgraph

// Resource dereferences a per-frame value through a FrameContext's
// FrameIndex, replacing the source's virtual ITaskResource<T>/
// ITaskResourceList<T> hierarchy with a couple of small generics, per
// the task-resource design note: no virtual dispatch is required to
// pick the right frame's handle.
type Resource[T any] interface {
	Get(fc *FrameContext) T
}

// Single wraps one value per frame slot, e.g. a command buffer or
// fence indexed by frame_index.
type Single[T any] struct {
	Values []T
}

// NewSingle builds a Single sized to n frame slots, each starting at
// the zero value of T.
func NewSingle[T any](n uint32) Single[T] { return Single[T]{Values: make([]T, n)} }

// Get returns the value at fc.FrameIndex.
func (s Single[T]) Get(fc *FrameContext) T { return s.Values[fc.FrameIndex] }

// Set assigns the value at fc.FrameIndex.
func (s Single[T]) Set(fc *FrameContext, v T) { s.Values[fc.FrameIndex] = v }

// List wraps a variable-length slice of values per frame slot, e.g.
// the set of wait semaphores a Submit task gathers for frame_index.
type List[T any] struct {
	Values [][]T
}

// NewList builds a List sized to n frame slots, each starting empty.
func NewList[T any](n uint32) List[T] { return List[T]{Values: make([][]T, n)} }

// Get returns the slice at fc.FrameIndex.
func (l List[T]) Get(fc *FrameContext) []T { return l.Values[fc.FrameIndex] }

// Set assigns the slice at fc.FrameIndex.
func (l List[T]) Set(fc *FrameContext, v []T) { l.Values[fc.FrameIndex] = v }

// Function wraps a closure that computes a per-frame value on demand,
// for cases where the value depends on state not known until
// execution time (e.g. image_index, only valid once Acquire has run).
type Function[T any] struct {
	Fn func(fc *FrameContext) T
}

// Get invokes the closure with fc.
func (f Function[T]) Get(fc *FrameContext) T { return f.Fn(fc) }
