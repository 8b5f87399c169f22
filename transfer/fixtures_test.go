// Copyright 2024 The Forge Authors. All rights reserved.

package transfer

import (
	"sync"
	"time"

	"github.com/nvpipeline/forge/driver"
)

// fakeBuffer is a host-backed driver.Buffer whose CopyBuffer commands
// execute synchronously, standing in for a real device's deferred
// execution so tests can assert on final contents without a GPU.
type fakeBuffer struct {
	data   []byte
	family driver.QueueFamily
}

func (b *fakeBuffer) Destroy()                               {}
func (b *fakeBuffer) Size() int64                             { return int64(len(b.data)) }
func (b *fakeBuffer) QueueFamily() driver.QueueFamily         { return b.family }
func (b *fakeBuffer) SetQueueFamily(f driver.QueueFamily)     { b.family = f }
func (b *fakeBuffer) Bytes() []byte                           { return b.data }

type fakeImage struct {
	levels, layers int
	families       map[[2]int]driver.QueueFamily
}

func newFakeImage(levels, layers int) *fakeImage {
	return &fakeImage{levels: levels, layers: layers, families: map[[2]int]driver.QueueFamily{}}
}

func (i *fakeImage) Destroy()        {}
func (i *fakeImage) Levels() int     { return i.levels }
func (i *fakeImage) Layers() int     { return i.layers }
func (i *fakeImage) QueueFamilyOf(level, layer int) driver.QueueFamily {
	return i.families[[2]int{level, layer}]
}
func (i *fakeImage) SetQueueFamilyOf(level, layer int, f driver.QueueFamily) {
	i.families[[2]int{level, layer}] = f
}

type fakeCmdPool struct{ family driver.QueueFamily }

func (p *fakeCmdPool) Destroy()                    {}
func (p *fakeCmdPool) Family() driver.QueueFamily { return p.family }

type fakeCmdBuffer struct {
	family    driver.QueueFamily
	recording bool
}

func (c *fakeCmdBuffer) Destroy()                    {}
func (c *fakeCmdBuffer) Family() driver.QueueFamily { return c.family }
func (c *fakeCmdBuffer) IsRecording() bool          { return c.recording }
func (c *fakeCmdBuffer) Begin() error               { c.recording = true; return nil }
func (c *fakeCmdBuffer) End() error                 { c.recording = false; return nil }
func (c *fakeCmdBuffer) Reset() error               { return nil }
func (c *fakeCmdBuffer) PipelineBarrier([]driver.MemoryBarrier, []driver.ImageBarrier) {}
func (c *fakeCmdBuffer) CopyBuffer(cp driver.BufferCopy) {
	src := cp.Src.(*fakeBuffer).data[cp.SrcOff : cp.SrcOff+cp.Size]
	dst := cp.Dst.(*fakeBuffer).data[cp.DstOff : cp.DstOff+cp.Size]
	copy(dst, src)
}
func (c *fakeCmdBuffer) CopyBufferToImage(driver.BufferImageCopy) {}
func (c *fakeCmdBuffer) CopyImageToBuffer(driver.BufferImageCopy) {}

type fakeQueue struct{ family driver.QueueFamily }

func (q *fakeQueue) Family() driver.QueueFamily { return q.family }

type fakeSemaphore struct {
	mu       sync.Mutex
	value    uint64
	timeline bool
}

func (s *fakeSemaphore) Destroy()       {}
func (s *fakeSemaphore) Timeline() bool { return s.timeline }
func (s *fakeSemaphore) Value() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, nil
}

type fakeDevice struct{}

func (d *fakeDevice) QueueFamilies() []driver.QueueFamily { return nil }
func (d *fakeDevice) Queues(f driver.QueueFamily) (driver.Queue, error) {
	return &fakeQueue{family: f}, nil
}
func (d *fakeDevice) CreateBuffer(size int64, visible bool, u driver.Usage) (driver.Buffer, error) {
	return &fakeBuffer{data: make([]byte, size)}, nil
}
func (d *fakeDevice) CreateImage(levels, layers int, u driver.Usage) (driver.Image, error) {
	return newFakeImage(levels, layers), nil
}
func (d *fakeDevice) CreateSampler(*driver.Sampling) (driver.Sampler, error)                 { return nil, nil }
func (d *fakeDevice) CreateShaderModule([]byte) (driver.ShaderModule, error)                 { return nil, nil }
func (d *fakeDevice) CreateDescriptorSetLayout([]driver.DescriptorBinding) (driver.DescriptorSetLayout, error) {
	return nil, nil
}
func (d *fakeDevice) CreateDescriptorPool(driver.DescriptorSetLayout, int) (driver.DescriptorPool, error) {
	return nil, nil
}
func (d *fakeDevice) CreatePipeline(driver.PipelineKind, any) (driver.Pipeline, error) {
	return nil, nil
}
func (d *fakeDevice) CreateCmdPool(f driver.QueueFamily) (driver.CmdPool, error) {
	return &fakeCmdPool{family: f}, nil
}
func (d *fakeDevice) CreateCmdBuffer(pool driver.CmdPool, level driver.CmdLevel) (driver.CmdBuffer, error) {
	return &fakeCmdBuffer{family: pool.Family()}, nil
}
func (d *fakeDevice) CreateFence(bool) (driver.Fence, error) { return nil, nil }
func (d *fakeDevice) CreateSemaphore() (driver.Semaphore, error) {
	return &fakeSemaphore{}, nil
}
func (d *fakeDevice) CreateTimelineSemaphore(initial uint64) (driver.Semaphore, error) {
	return &fakeSemaphore{value: initial, timeline: true}, nil
}
func (d *fakeDevice) WaitSemaphores(handles []driver.Semaphore, values []uint64, timeout time.Duration) error {
	for i, h := range handles {
		s := h.(*fakeSemaphore)
		s.mu.Lock()
		_ = values[i]
		s.mu.Unlock()
	}
	return nil
}
func (d *fakeDevice) QueueSubmit2(q driver.Queue, submits []driver.SubmitInfo) error {
	for _, s := range submits {
		for _, cb := range s.CmdBuffers {
			_ = cb
		}
		for _, sig := range s.Signals {
			sem := sig.Sem.(*fakeSemaphore)
			sem.mu.Lock()
			sem.value = sig.Value
			sem.mu.Unlock()
		}
	}
	return nil
}
