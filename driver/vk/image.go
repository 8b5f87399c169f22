// Copyright 2024 The Forge Authors. All rights reserved.

package vk

import (
	vk "github.com/vulkan-go/vulkan"

	"github.com/nvpipeline/forge/driver"
)

// image implements driver.Image and driver.ImageOwnerSetter.
// Ownership is tracked per (level, layer) tile since a transfer may
// hand off only part of an image's subresources between queue
// families (spec §4.5/§5).
type image struct {
	d       *Device
	handle  vk.Image
	mem     vk.DeviceMemory
	levels  int
	layers  int
	family  []driver.QueueFamily // levels*layers, row-major by level
}

// CreateImage implements driver.Device.
func (d *Device) CreateImage(levels, layers int, usg driver.Usage) (driver.Image, error) {
	var vusg vk.ImageUsageFlagBits
	if usg&driver.UCopySrc != 0 {
		vusg |= vk.ImageUsageTransferSrcBit
	}
	if usg&driver.UCopyDst != 0 {
		vusg |= vk.ImageUsageTransferDstBit
	}
	if usg&driver.UShaderSample != 0 {
		vusg |= vk.ImageUsageSampledBit
	}
	if usg&driver.URenderTarget != 0 {
		vusg |= vk.ImageUsageColorAttachmentBit
	}

	var handle vk.Image
	res := vk.CreateImage(d.dev, &vk.ImageCreateInfo{
		SType:       vk.StructureTypeImageCreateInfo,
		ImageType:   vk.ImageType2d,
		MipLevels:   uint32(levels),
		ArrayLayers: uint32(layers),
		Samples:     vk.SampleCount1Bit,
		Tiling:      vk.ImageTilingOptimal,
		Usage:       vk.ImageUsageFlags(vusg),
		SharingMode: vk.SharingModeExclusive,
	}, nil, &handle)
	if err := checkResult(res); err != nil {
		return nil, err
	}

	var req vk.MemoryRequirements
	vk.GetImageMemoryRequirements(d.dev, handle, &req)
	req.Deref()
	idx, err := d.memoryType(req.MemoryTypeBits, vk.MemoryPropertyDeviceLocalBit)
	if err != nil {
		vk.DestroyImage(d.dev, handle, nil)
		return nil, err
	}
	var mem vk.DeviceMemory
	res = vk.AllocateMemory(d.dev, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Size,
		MemoryTypeIndex: idx,
	}, nil, &mem)
	if err := checkResult(res); err != nil {
		vk.DestroyImage(d.dev, handle, nil)
		return nil, err
	}
	vk.BindImageMemory(d.dev, handle, mem, 0)

	return &image{
		d:      d,
		handle: handle,
		mem:    mem,
		levels: levels,
		layers: layers,
		family: make([]driver.QueueFamily, levels*layers),
	}, nil
}

func (i *image) Levels() int { return i.levels }
func (i *image) Layers() int { return i.layers }

func (i *image) tile(level, layer int) int { return level*i.layers + layer }

func (i *image) QueueFamilyOf(level, layer int) driver.QueueFamily {
	return i.family[i.tile(level, layer)]
}

func (i *image) SetQueueFamilyOf(level, layer int, f driver.QueueFamily) {
	i.family[i.tile(level, layer)] = f
}

func (i *image) Destroy() {
	vk.DestroyImage(i.d.dev, i.handle, nil)
	vk.FreeMemory(i.d.dev, i.mem, nil)
	*i = image{}
}
