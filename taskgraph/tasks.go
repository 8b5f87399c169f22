// Copyright 2024 The Forge Authors. All rights reserved.

package taskgraph

import (
	"github.com/nvpipeline/forge/core"
	"github.com/nvpipeline/forge/driver"
	"github.com/nvpipeline/forge/material"
)

// TraverseTask clears a RenderData and runs a traverser over a scene
// graph. The traverser and render-data types vary (graphics, compute,
// ray tracing), so the call itself is supplied as a closure rather
// than named fields — the task graph only needs to sequence it.
type TraverseTask struct {
	Fn func()
}

func (t *TraverseTask) Execute(*FrameContext) error {
	t.Fn()
	return nil
}

// FenceOp selects which operations a FenceTask performs; the two are
// combinable with bitwise OR since a frame typically waits then
// resets the same fence before reuse.
type FenceOp uint8

const (
	FenceWait FenceOp = 1 << iota
	FenceReset
)

// FenceTask performs a CPU-side wait and/or reset on the per-frame
// fence. It is one of the graph's sanctioned blocking points.
type FenceTask struct {
	Fence Resource[driver.Fence]
	Op    FenceOp
}

func (t *FenceTask) Execute(fc *FrameContext) error {
	f := t.Fence.Get(fc)
	if t.Op&FenceWait != 0 {
		if err := f.Wait(-1); err != nil {
			return wrapTaskgraphErr(core.DeviceError, "fence wait failed", err)
		}
	}
	if t.Op&FenceReset != 0 {
		if err := f.Reset(); err != nil {
			return wrapTaskgraphErr(core.DeviceError, "fence reset failed", err)
		}
	}
	return nil
}

// AcquireTask acquires the next swapchain image, signaling a
// per-frame semaphore, and writes the result into the FrameContext's
// ImageIndex. If the swapchain reports it needs recreation, OnRecreate
// runs instead of failing the frame outright.
type AcquireTask struct {
	Swapchain    driver.Swapchain
	AvailableSem Resource[driver.Semaphore]
	OnRecreate   func() error
}

func (t *AcquireTask) Execute(fc *FrameContext) error {
	idx, recreate, err := t.Swapchain.AcquireNextImage(t.AvailableSem.Get(fc), nil)
	if err != nil {
		return wrapTaskgraphErr(core.DeviceError, "acquire failed", err)
	}
	if recreate {
		if t.OnRecreate != nil {
			return t.OnRecreate()
		}
		return nil
	}
	fc.ImageIndex = uint32(idx)
	return nil
}

// UpdateMaterialDataTask repacks dirty uniform bytes for the current
// frame's slot in a material manager.
type UpdateMaterialDataTask struct {
	Manager *material.Manager
}

func (t *UpdateMaterialDataTask) Execute(fc *FrameContext) error {
	t.Manager.UpdateUniformBuffers(int(fc.FrameIndex))
	return nil
}

// RenderTask records one frame's command buffer: reset, ensure
// pipelines exist, begin rendering, bind state and record draws per
// the resolved RenderData, end recording. The exact recording calls
// sit on driver types beyond what driver.CmdBuffer exposes (pipeline
// binding, push constants, draw/dispatch/trace-rays are an
// out-of-scope wrapper concern), so the recording itself is supplied
// as a closure.
type RenderTask struct {
	Fn func(fc *FrameContext) error
}

func (t *RenderTask) Execute(fc *FrameContext) error {
	return t.Fn(fc)
}

// SemWaitSpec resolves one Submit/Present wait entry per frame.
type SemWaitSpec struct {
	Sem   Resource[driver.Semaphore]
	Value Resource[uint64]
	Stage driver.Sync
}

// SemSignalSpec resolves one Submit signal entry per frame.
type SemSignalSpec struct {
	Sem   Resource[driver.Semaphore]
	Value Resource[uint64]
	Stage driver.Sync
}

// SubmitTask submits one frame's command buffer with its wait/signal
// semaphores and signals the per-frame fence.
type SubmitTask struct {
	Dev     driver.Device
	Queue   driver.Queue
	Cmd     Resource[driver.CmdBuffer]
	Waits   []SemWaitSpec
	Signals []SemSignalSpec
	Fence   Resource[driver.Fence]
}

func (t *SubmitTask) Execute(fc *FrameContext) error {
	waits := make([]driver.SemWait, len(t.Waits))
	for i, w := range t.Waits {
		waits[i] = driver.SemWait{Sem: w.Sem.Get(fc), Value: w.Value.Get(fc), Stage: w.Stage}
	}
	signals := make([]driver.SemSignal, len(t.Signals))
	for i, s := range t.Signals {
		signals[i] = driver.SemSignal{Sem: s.Sem.Get(fc), Value: s.Value.Get(fc), Stage: s.Stage}
	}
	info := driver.SubmitInfo{
		CmdBuffers: []driver.CmdBuffer{t.Cmd.Get(fc)},
		Waits:      waits,
		Signals:    signals,
	}
	if t.Fence != nil {
		info.Fence = t.Fence.Get(fc)
	}
	if err := t.Dev.QueueSubmit2(t.Queue, []driver.SubmitInfo{info}); err != nil {
		return wrapTaskgraphErr(core.DeviceError, "submit failed", err)
	}
	return nil
}

// PresentTask queues the acquired image for presentation once every
// wait semaphore is signaled.
type PresentTask struct {
	Swapchain  driver.Swapchain
	Queue      driver.Queue
	Waits      []Resource[driver.Semaphore]
	OnRecreate func() error
}

func (t *PresentTask) Execute(fc *FrameContext) error {
	waits := make([]driver.Semaphore, len(t.Waits))
	for i, w := range t.Waits {
		waits[i] = w.Get(fc)
	}
	recreate, err := t.Swapchain.Present(t.Queue, int(fc.ImageIndex), waits)
	if err != nil {
		return wrapTaskgraphErr(core.DeviceError, "present failed", err)
	}
	if recreate && t.OnRecreate != nil {
		return t.OnRecreate()
	}
	return nil
}
