// Copyright 2024 The Forge Authors. All rights reserved.

package material

import (
	"sync"

	"github.com/nvpipeline/forge/core"
	"github.com/nvpipeline/forge/driver"
)

// Manager owns the Material and Instance arenas for one material
// Kind (Graphics, Compute or RayTracing), its pipeline cache, and the
// pooled uniform buffers backing every instance's CPU-side bytes. A
// SceneGraph references materials and instances only by id, so the
// Manager is the sole owner capable of mutating or destroying them.
type Manager struct {
	kind      Kind
	dev       driver.Device
	maxFrames int

	mu        sync.Mutex
	materials dataMap[MaterialID, Material]
	instances dataMap[InstanceID, Instance]

	pipelines *PipelineCache

	uniformBufs []driver.Buffer
	uniformCap  int64
	uniformNext int64
}

// NewManager creates a Manager for the given Kind, backed by dev.
// maxFrames is the number of in-flight frames (N in §4.4); uniformCap
// bounds how many bytes of per-instance uniform data the manager's
// pooled uniform buffers can hold, per frame.
func NewManager(kind Kind, dev driver.Device, maxFrames int, uniformCap int64) (*Manager, error) {
	if maxFrames > 64 {
		return nil, newMatErr(core.IncompatibleArgument, "maxFrames exceeds the 64-frame dirty-bit limit")
	}
	m := &Manager{
		kind:       kind,
		dev:        dev,
		maxFrames:  maxFrames,
		pipelines:  NewPipelineCache(dev),
		uniformCap: uniformCap,
	}
	if kind == Graphics && uniformCap > 0 {
		m.uniformBufs = make([]driver.Buffer, maxFrames)
		for f := 0; f < maxFrames; f++ {
			b, err := dev.CreateBuffer(uniformCap, true, driver.UUniformData)
			if err != nil {
				return nil, wrapMatErr(core.DeviceError, "failed to create uniform buffer", err)
			}
			m.uniformBufs[f] = b
		}
	}
	return m, nil
}

// AddMaterial creates a Material from settings and returns its id.
func (m *Manager) AddMaterial(s Settings) (MaterialID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.materials.insert(Material{
		kind:       m.kind,
		shaders:    s.Shaders,
		setLayouts: s.SetLayouts,
		pcRanges:   s.PushConstants,
		dynStates:  s.DynamicStates,
	})
	mat, _ := m.materials.get(id)
	mat.id = id
	return id, nil
}

// Material returns the material for id, if it belongs to this
// manager.
func (m *Manager) Material(id MaterialID) (*Material, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mat, ok := m.materials.get(id)
	if !ok {
		return nil, newMatErr(core.IncompatibleArgument, "material does not belong to this manager")
	}
	return mat, nil
}

// DestroyMaterial destroys the pipeline cached for id (if any) and
// removes the material from the manager. Instances referencing it are
// not destroyed; resolving them afterwards is the caller's error to
// avoid.
func (m *Manager) DestroyMaterial(id MaterialID) error {
	m.mu.Lock()
	ok := m.materials.remove(id)
	m.mu.Unlock()
	if !ok {
		return newMatErr(core.IncompatibleArgument, "material does not belong to this manager")
	}
	m.pipelines.Destroy(id)
	return nil
}

// EnsurePipeline returns the cached (or newly built) pipeline for a
// material this manager owns.
func (m *Manager) EnsurePipeline(id MaterialID) (driver.Pipeline, error) {
	mat, err := m.Material(id)
	if err != nil {
		return nil, err
	}
	return m.pipelines.Ensure(mat)
}

// InstanceBindings describes the resources an instance binds at
// creation, one Descriptor per binding number declared in the
// material's descriptor-set layout for SetIndex.
type InstanceBindings struct {
	SetIndex    int
	BindNrs     []int
	Descriptors []driver.Descriptor
	UniformSize int64
}

// AddInstance installs a Material-backed Instance: allocates a
// descriptor pool sized for N = max_frames_in_flight copies of the
// bindings' single declared set index, allocates N descriptor sets
// from it, and writes the declared resources into each of them once.
func (m *Manager) AddInstance(matID MaterialID, b InstanceBindings) (InstanceID, error) {
	mat, err := m.Material(matID)
	if err != nil {
		return 0, err
	}
	if b.SetIndex < 0 || b.SetIndex >= mat.SetCount() {
		return 0, newMatErr(core.IncompatibleArgument, "set index out of range for material")
	}

	pool, err := m.dev.CreateDescriptorPool(mat.setLayouts[b.SetIndex], m.maxFrames)
	if err != nil {
		return 0, wrapMatErr(core.DeviceError, "failed to create descriptor pool", err)
	}
	sets, err := pool.Alloc(m.maxFrames)
	if err != nil {
		pool.Destroy()
		return 0, wrapMatErr(core.DeviceError, "failed to allocate descriptor sets", err)
	}
	for _, s := range sets {
		s.Write(b.BindNrs, b.Descriptors)
	}

	inst := Instance{
		matID:    matID,
		setIndex: b.SetIndex,
		pool:     pool,
		sets:     sets,
	}
	if b.UniformSize > 0 {
		off, err := m.allocUniform(b.UniformSize)
		if err != nil {
			pool.Destroy()
			return 0, err
		}
		inst.uniformOff = off
		inst.uniformSize = b.UniformSize
		inst.uniform = make([]byte, b.UniformSize)
		inst.dirtyFrames = m.maxFrames
	}

	m.mu.Lock()
	id := m.instances.insert(inst)
	stored, _ := m.instances.get(id)
	stored.id = id
	stored.manager = m
	m.mu.Unlock()
	return id, nil
}

// allocUniform bump-allocates uniformSize bytes, identically laid out
// in every per-frame uniform buffer.
func (m *Manager) allocUniform(size int64) (int64, error) {
	if m.uniformNext+size > m.uniformCap {
		return 0, newMatErr(core.ResourceExhausted, "uniform buffer pool exhausted")
	}
	off := m.uniformNext
	m.uniformNext += size
	return off, nil
}

// Instance returns the instance for id, if it belongs to this
// manager.
func (m *Manager) Instance(id InstanceID) (*Instance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inst, ok := m.instances.get(id)
	if !ok {
		return nil, newMatErr(core.IncompatibleArgument, "instance does not belong to this manager")
	}
	return inst, nil
}

// DestroyInstance releases id's descriptor pool and removes it from
// the manager.
func (m *Manager) DestroyInstance(id InstanceID) error {
	m.mu.Lock()
	inst, ok := m.instances.get(id)
	if !ok {
		m.mu.Unlock()
		return newMatErr(core.IncompatibleArgument, "instance does not belong to this manager")
	}
	pool := inst.pool
	m.instances.remove(id)
	m.mu.Unlock()
	pool.Destroy()
	return nil
}

// BindDescriptors retrieves each instance's frame-th descriptor set,
// ready for the render task to bind in a single call. Recording the
// bind itself needs the pipeline layout and first-set index, which
// belong to the out-of-scope render task, not the manager.
func (m *Manager) BindDescriptors(instances []*Instance, frame int) []driver.DescriptorSet {
	sets := make([]driver.DescriptorSet, len(instances))
	for i, inst := range instances {
		sets[i] = inst.DescriptorSet(frame)
	}
	return sets
}

// UpdateUniformBuffers repacks the CPU-side bytes of every instance
// dirty at frame into the frame-th pooled uniform buffer, then clears
// the dirty flag for that frame.
func (m *Manager) UpdateUniformBuffers(frame int) {
	if m.kind != Graphics || len(m.uniformBufs) == 0 {
		return
	}
	buf := m.uniformBufs[frame].Bytes()
	m.mu.Lock()
	defer m.mu.Unlock()
	bit := uint64(1) << uint(frame)
	for _, inst := range m.instances.data {
		if inst == nil || inst.dirty&bit == 0 {
			continue
		}
		copy(buf[inst.uniformOff:inst.uniformOff+inst.uniformSize], inst.uniform)
		inst.dirty &^= bit
	}
}
