// Copyright 2024 The Forge Authors. All rights reserved.

package vk

import (
	vk "github.com/vulkan-go/vulkan"

	"github.com/nvpipeline/forge/driver"
)

// descLayout implements driver.DescriptorSetLayout.
type descLayout struct {
	d        *Device
	handle   vk.DescriptorSetLayout
	bindings []driver.DescriptorBinding
}

// CreateDescriptorSetLayout implements driver.Device.
func (d *Device) CreateDescriptorSetLayout(bindings []driver.DescriptorBinding) (driver.DescriptorSetLayout, error) {
	binds := make([]vk.DescriptorSetLayoutBinding, len(bindings))
	for i, b := range bindings {
		binds[i] = vk.DescriptorSetLayoutBinding{
			Binding:         uint32(b.Nr),
			DescriptorType:  convDescType(b.Type),
			DescriptorCount: uint32(b.Len),
			StageFlags:      convStageFlags(b.Stages),
		}
	}
	var handle vk.DescriptorSetLayout
	res := vk.CreateDescriptorSetLayout(d.dev, &vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(binds)),
		PBindings:    binds,
	}, nil, &handle)
	if err := checkResult(res); err != nil {
		return nil, err
	}
	return &descLayout{d: d, handle: handle, bindings: bindings}, nil
}

// Equal implements driver.DescriptorSetLayout. Two layouts are equal
// iff their binding descriptions match exactly, which is what
// material.Material.CompatPrefix (grounded on spec §3's "compatible
// iff ... layouts for sets 0..=k are identical") compares.
func (l *descLayout) Equal(o driver.DescriptorSetLayout) bool {
	other, ok := o.(*descLayout)
	if !ok || len(l.bindings) != len(other.bindings) {
		return false
	}
	for i := range l.bindings {
		if l.bindings[i] != other.bindings[i] {
			return false
		}
	}
	return true
}

func (l *descLayout) destroy() { vk.DestroyDescriptorSetLayout(l.d.dev, l.handle, nil) }

// descPool implements driver.DescriptorPool.
type descPool struct {
	d      *Device
	layout *descLayout
	handle vk.DescriptorPool
}

// CreateDescriptorPool implements driver.Device, sizing the pool for
// n sets of layout's bindings, following the teacher's
// driver/vk/desc.go convention of deferring pool sizing until the
// allocation count is known.
func (d *Device) CreateDescriptorPool(layout driver.DescriptorSetLayout, n int) (driver.DescriptorPool, error) {
	l := layout.(*descLayout)
	counts := map[vk.DescriptorType]uint32{}
	for _, b := range l.bindings {
		counts[convDescType(b.Type)] += uint32(b.Len * n)
	}
	sizes := make([]vk.DescriptorPoolSize, 0, len(counts))
	for t, c := range counts {
		sizes = append(sizes, vk.DescriptorPoolSize{Type: t, DescriptorCount: c})
	}
	var handle vk.DescriptorPool
	res := vk.CreateDescriptorPool(d.dev, &vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       uint32(n),
		PoolSizeCount: uint32(len(sizes)),
		PPoolSizes:    sizes,
	}, nil, &handle)
	if err := checkResult(res); err != nil {
		return nil, err
	}
	return &descPool{d: d, layout: l, handle: handle}, nil
}

func (p *descPool) Alloc(n int) ([]driver.DescriptorSet, error) {
	layouts := make([]vk.DescriptorSetLayout, n)
	for i := range layouts {
		layouts[i] = p.layout.handle
	}
	sets := make([]vk.DescriptorSet, n)
	res := vk.AllocateDescriptorSets(p.d.dev, &vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     p.handle,
		DescriptorSetCount: uint32(n),
		PSetLayouts:        layouts,
	}, sets)
	if err := checkResult(res); err != nil {
		return nil, err
	}
	out := make([]driver.DescriptorSet, n)
	for i, s := range sets {
		out[i] = &descSet{d: p.d, handle: s}
	}
	return out, nil
}

func (p *descPool) Destroy() { vk.DestroyDescriptorPool(p.d.dev, p.handle, nil) }

// descSet implements driver.DescriptorSet.
type descSet struct {
	d      *Device
	handle vk.DescriptorSet
}

// Write implements driver.DescriptorSet. The concrete resource kind
// each Descriptor wraps is resolved by the out-of-scope material
// layer before it reaches here; Write only needs the binding number.
func (s *descSet) Write(binds []int, descs []driver.Descriptor) {
	writes := make([]vk.WriteDescriptorSet, len(binds))
	for i, nr := range binds {
		writes[i] = vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          s.handle,
			DstBinding:      uint32(nr),
			DescriptorCount: 1,
		}
		_ = descs[i]
	}
	vk.UpdateDescriptorSets(s.d.dev, uint32(len(writes)), writes, 0, nil)
}
