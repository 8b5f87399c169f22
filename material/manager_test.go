// Copyright 2024 The Forge Authors. All rights reserved.

package material

import (
	"testing"
	"time"

	"github.com/nvpipeline/forge/driver"
)

// fakeLayout implements driver.DescriptorSetLayout for tests, equal
// by a simple tag rather than by inspecting binding descriptions.
type fakeLayout struct{ tag int }

func (f *fakeLayout) Equal(o driver.DescriptorSetLayout) bool {
	other, ok := o.(*fakeLayout)
	return ok && other.tag == f.tag
}

type fakeBuffer struct {
	size int64
	data []byte
}

func (b *fakeBuffer) Destroy()                            {}
func (b *fakeBuffer) Size() int64                          { return b.size }
func (b *fakeBuffer) QueueFamily() driver.QueueFamily      { return 0 }
func (b *fakeBuffer) SetQueueFamily(driver.QueueFamily)    {}
func (b *fakeBuffer) Bytes() []byte                        { return b.data }

type fakePool struct{ n int }

func (p *fakePool) Destroy() {}
func (p *fakePool) Alloc(n int) ([]driver.DescriptorSet, error) {
	sets := make([]driver.DescriptorSet, n)
	for i := range sets {
		sets[i] = &fakeSet{}
	}
	return sets, nil
}

type fakeSet struct{ written [][]int }

func (s *fakeSet) Write(binds []int, descs []driver.Descriptor) { s.written = append(s.written, binds) }

type fakeDevice struct{ pools int }

func (d *fakeDevice) QueueFamilies() []driver.QueueFamily        { return []driver.QueueFamily{0} }
func (d *fakeDevice) Queues(driver.QueueFamily) (driver.Queue, error) { return nil, nil }
func (d *fakeDevice) CreateBuffer(size int64, visible bool, u driver.Usage) (driver.Buffer, error) {
	return &fakeBuffer{size: size, data: make([]byte, size)}, nil
}
func (d *fakeDevice) CreateImage(int, int, driver.Usage) (driver.Image, error) { return nil, nil }
func (d *fakeDevice) CreateSampler(*driver.Sampling) (driver.Sampler, error)   { return nil, nil }
func (d *fakeDevice) CreateShaderModule([]byte) (driver.ShaderModule, error)  { return nil, nil }
func (d *fakeDevice) CreateDescriptorSetLayout([]driver.DescriptorBinding) (driver.DescriptorSetLayout, error) {
	return nil, nil
}
func (d *fakeDevice) CreateDescriptorPool(driver.DescriptorSetLayout, int) (driver.DescriptorPool, error) {
	d.pools++
	return &fakePool{}, nil
}
func (d *fakeDevice) CreatePipeline(driver.PipelineKind, any) (driver.Pipeline, error) {
	return &fakePipeline{}, nil
}
func (d *fakeDevice) CreateCmdPool(driver.QueueFamily) (driver.CmdPool, error)       { return nil, nil }
func (d *fakeDevice) CreateCmdBuffer(driver.CmdPool, driver.CmdLevel) (driver.CmdBuffer, error) {
	return nil, nil
}
func (d *fakeDevice) CreateFence(bool) (driver.Fence, error)              { return nil, nil }
func (d *fakeDevice) CreateSemaphore() (driver.Semaphore, error)          { return nil, nil }
func (d *fakeDevice) CreateTimelineSemaphore(uint64) (driver.Semaphore, error) { return nil, nil }
func (d *fakeDevice) WaitSemaphores([]driver.Semaphore, []uint64, time.Duration) error {
	return nil
}
func (d *fakeDevice) QueueSubmit2(driver.Queue, []driver.SubmitInfo) error { return nil }

type fakePipeline struct{ destroyed bool }

func (p *fakePipeline) Destroy()                  { p.destroyed = true }
func (p *fakePipeline) Kind() driver.PipelineKind { return driver.PipelineGraphics }

func newMaterial(t *testing.T, dev driver.Device) (*Manager, MaterialID) {
	t.Helper()
	m, err := NewManager(Graphics, dev, 2, 0)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	id, err := m.AddMaterial(Settings{SetLayouts: []driver.DescriptorSetLayout{&fakeLayout{tag: 1}}})
	if err != nil {
		t.Fatalf("AddMaterial: %v", err)
	}
	return m, id
}

func TestAddMaterialRoundTrip(t *testing.T) {
	m, id := newMaterial(t, &fakeDevice{})
	mat, err := m.Material(id)
	if err != nil {
		t.Fatalf("Material: %v", err)
	}
	if mat.ID() != id || mat.SetCount() != 1 {
		t.Fatalf("material: have id=%v setCount=%d want id=%v setCount=1", mat.ID(), mat.SetCount(), id)
	}
}

func TestDestroyMaterialRejectsForeignID(t *testing.T) {
	m, _ := newMaterial(t, &fakeDevice{})
	if err := m.DestroyMaterial(MaterialID(999)); err == nil {
		t.Fatalf("DestroyMaterial on unknown id: got nil error")
	}
}

func TestCompatPrefix(t *testing.T) {
	a := &Material{setLayouts: []driver.DescriptorSetLayout{&fakeLayout{1}, &fakeLayout{2}}}
	b := &Material{setLayouts: []driver.DescriptorSetLayout{&fakeLayout{1}, &fakeLayout{3}}}
	if p := a.CompatPrefix(b); p != 1 {
		t.Fatalf("CompatPrefix: have %d want 1", p)
	}
}

func TestPipelineUniqueness(t *testing.T) {
	dev := &fakeDevice{}
	m, id := newMaterial(t, dev)
	mat, _ := m.Material(id)
	p1, err := m.pipelines.Ensure(mat)
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	p2, err := m.pipelines.Ensure(mat)
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if p1 != p2 {
		t.Fatalf("Ensure returned distinct handles across calls")
	}
	m.pipelines.Destroy(id)
	if m.pipelines.Len() != 0 {
		t.Fatalf("Destroy did not clear the cache entry")
	}
}

func TestAddInstanceWritesEachDescriptorSetOnce(t *testing.T) {
	dev := &fakeDevice{}
	m, id := newMaterial(t, dev)
	instID, err := m.AddInstance(id, InstanceBindings{SetIndex: 0, BindNrs: []int{0}, Descriptors: []driver.Descriptor{"x"}})
	if err != nil {
		t.Fatalf("AddInstance: %v", err)
	}
	inst, err := m.Instance(instID)
	if err != nil {
		t.Fatalf("Instance: %v", err)
	}
	for f := 0; f < 2; f++ {
		set := inst.DescriptorSet(f).(*fakeSet)
		if len(set.written) != 1 {
			t.Fatalf("frame %d: descriptor set written %d times, want 1", f, len(set.written))
		}
	}
}
