// Copyright 2024 The Forge Authors. All rights reserved.

package vk

import (
	vk "github.com/vulkan-go/vulkan"

	"github.com/nvpipeline/forge/driver"
)

// sampler implements driver.Sampler.
type sampler struct {
	d      *Device
	handle vk.Sampler
}

// CreateSampler implements driver.Device. Addressing modes beyond
// repeat are out of the scope this package covers; it only needs to
// exist so material.Instance has something concrete to bind.
func (d *Device) CreateSampler(s *driver.Sampling) (driver.Sampler, error) {
	filter := func(f int) vk.Filter {
		if f == 0 {
			return vk.FilterNearest
		}
		return vk.FilterLinear
	}
	var handle vk.Sampler
	res := vk.CreateSampler(d.dev, &vk.SamplerCreateInfo{
		SType:     vk.StructureTypeSamplerCreateInfo,
		MagFilter: filter(s.MagFilter),
		MinFilter: filter(s.MinFilter),
	}, nil, &handle)
	if err := checkResult(res); err != nil {
		return nil, err
	}
	return &sampler{d: d, handle: handle}, nil
}

func (s *sampler) Destroy() { vk.DestroySampler(s.d.dev, s.handle, nil) }
