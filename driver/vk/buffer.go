// Copyright 2024 The Forge Authors. All rights reserved.

package vk

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"

	"github.com/nvpipeline/forge/driver"
)

// buffer implements driver.Buffer and driver.BufferOwnerSetter.
type buffer struct {
	d      *Device
	handle vk.Buffer
	mem    vk.DeviceMemory
	size   int64
	bytes  []byte
	family driver.QueueFamily
}

// CreateBuffer implements driver.Device.
func (d *Device) CreateBuffer(size int64, visible bool, usg driver.Usage) (driver.Buffer, error) {
	var handle vk.Buffer
	res := vk.CreateBuffer(d.dev, &vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       convUsage(usg),
		SharingMode: vk.SharingModeExclusive,
	}, nil, &handle)
	if err := checkResult(res); err != nil {
		return nil, err
	}

	var req vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.dev, handle, &req)
	req.Deref()

	flags := vk.MemoryPropertyDeviceLocalBit
	if visible {
		flags = vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit
	}
	idx, err := d.memoryType(req.MemoryTypeBits, flags)
	if err != nil {
		vk.DestroyBuffer(d.dev, handle, nil)
		return nil, err
	}

	var mem vk.DeviceMemory
	res = vk.AllocateMemory(d.dev, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Size,
		MemoryTypeIndex: idx,
	}, nil, &mem)
	if err := checkResult(res); err != nil {
		vk.DestroyBuffer(d.dev, handle, nil)
		return nil, err
	}
	vk.BindBufferMemory(d.dev, handle, mem, 0)

	b := &buffer{d: d, handle: handle, mem: mem, size: size}
	if visible {
		var p unsafe.Pointer
		vk.MapMemory(d.dev, mem, 0, vk.DeviceSize(size), 0, &p)
		b.bytes = unsafe.Slice((*byte)(p), size)
	}
	return b, nil
}

func (d *Device) memoryType(bits uint32, flags vk.MemoryPropertyFlagBits) (uint32, error) {
	var props vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(d.phys, &props)
	props.Deref()
	for i := uint32(0); i < props.MemoryTypeCount; i++ {
		props.MemoryTypes[i].Deref()
		if bits&(1<<i) == 0 {
			continue
		}
		if props.MemoryTypes[i].PropertyFlags&vk.MemoryPropertyFlags(flags) == vk.MemoryPropertyFlags(flags) {
			return i, nil
		}
	}
	return 0, errDevice
}

func (b *buffer) Size() int64                         { return b.size }
func (b *buffer) QueueFamily() driver.QueueFamily      { return b.family }
func (b *buffer) SetQueueFamily(f driver.QueueFamily)  { b.family = f }
func (b *buffer) Bytes() []byte {
	if b.bytes == nil {
		panic("vk: buffer is not host-visible")
	}
	return b.bytes
}

func (b *buffer) Destroy() {
	if b.bytes != nil {
		vk.UnmapMemory(b.d.dev, b.mem)
	}
	vk.DestroyBuffer(b.d.dev, b.handle, nil)
	vk.FreeMemory(b.d.dev, b.mem, nil)
	*b = buffer{}
}
