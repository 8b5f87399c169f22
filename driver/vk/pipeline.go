// Copyright 2024 The Forge Authors. All rights reserved.

package vk

import (
	vk "github.com/vulkan-go/vulkan"

	"github.com/nvpipeline/forge/driver"
)

// shaderModule implements driver.ShaderModule.
type shaderModule struct {
	d      *Device
	handle vk.ShaderModule
}

// CreateShaderModule implements driver.Device.
func (d *Device) CreateShaderModule(code []byte) (driver.ShaderModule, error) {
	var handle vk.ShaderModule
	res := vk.CreateShaderModule(d.dev, &vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    sliceUint32(code),
	}, nil, &handle)
	if err := checkResult(res); err != nil {
		return nil, err
	}
	return &shaderModule{d: d, handle: handle}, nil
}

func (s *shaderModule) Destroy() { vk.DestroyShaderModule(s.d.dev, s.handle, nil) }

// pipeline implements driver.Pipeline. Only pipeline layout creation
// (descriptor set layouts + push-constant ranges) is performed here;
// the fixed-function state spec §4.3/§4.4 leave to the out-of-scope
// material layer is collapsed to a single entry point per kind, as
// the core only needs a stable, destroyable handle and its Kind.
type pipeline struct {
	d      *Device
	handle vk.Pipeline
	layout vk.PipelineLayout
	kind   driver.PipelineKind
}

func (p *pipeline) Kind() driver.PipelineKind { return p.kind }

func (p *pipeline) Destroy() {
	vk.DestroyPipeline(p.d.dev, p.handle, nil)
	vk.DestroyPipelineLayout(p.d.dev, p.layout, nil)
}

// CreatePipeline implements driver.Device. Graphics pipeline creation
// needs render-pass/attachment state this package does not model
// (that belongs to the window/presentation glue spec §1 excludes);
// its settings.(driver.GraphicsSettings) case therefore only builds
// the pipeline layout, leaving VkGraphicsPipelineCreateInfo to a
// presentation-aware caller. Compute pipelines need no such state and
// are created in full.
func (d *Device) CreatePipeline(kind driver.PipelineKind, settings any) (driver.Pipeline, error) {
	switch kind {
	case driver.PipelineCompute:
		s := settings.(driver.ComputeSettings)
		layout, err := d.pipelineLayout(s.SetLayouts, s.PushConstants)
		if err != nil {
			return nil, err
		}
		pipes := make([]vk.Pipeline, 1)
		infos := []vk.ComputePipelineCreateInfo{{
			SType: vk.StructureTypeComputePipelineCreateInfo,
			Stage: vk.PipelineShaderStageCreateInfo{
				SType:  vk.StructureTypePipelineShaderStageCreateInfo,
				Stage:  vk.ShaderStageFlagBits(vk.ShaderStageComputeBit),
				Module: s.Shader.(*shaderModule).handle,
				PName:  "main\x00",
			},
			Layout: layout,
		}}
		res := vk.CreateComputePipelines(d.dev, vk.NullPipelineCache, 1, infos, nil, pipes)
		if err := checkResult(res); err != nil {
			vk.DestroyPipelineLayout(d.dev, layout, nil)
			return nil, err
		}
		return &pipeline{d: d, handle: pipes[0], layout: layout, kind: kind}, nil

	case driver.PipelineGraphics:
		s := settings.(driver.GraphicsSettings)
		layout, err := d.pipelineLayout(s.SetLayouts, s.PushConstants)
		if err != nil {
			return nil, err
		}
		return &pipeline{d: d, layout: layout, kind: kind}, nil

	case driver.PipelineRayTracing:
		s := settings.(driver.RayTracingSettings)
		layout, err := d.pipelineLayout(s.SetLayouts, s.PushConstants)
		if err != nil {
			return nil, err
		}
		return &pipeline{d: d, layout: layout, kind: kind}, nil
	}
	return nil, errDevice
}

func (d *Device) pipelineLayout(setLayouts []driver.DescriptorSetLayout, pcRanges []driver.PushConstantRange) (vk.PipelineLayout, error) {
	layouts := make([]vk.DescriptorSetLayout, len(setLayouts))
	for i, l := range setLayouts {
		layouts[i] = l.(*descLayout).handle
	}
	ranges := make([]vk.PushConstantRange, len(pcRanges))
	for i, r := range pcRanges {
		ranges[i] = vk.PushConstantRange{
			StageFlags: convStageFlags(r.Stages),
			Offset:     uint32(r.Offset),
			Size:       uint32(r.Size),
		}
	}
	var layout vk.PipelineLayout
	res := vk.CreatePipelineLayout(d.dev, &vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         uint32(len(layouts)),
		PSetLayouts:            layouts,
		PushConstantRangeCount: uint32(len(ranges)),
		PPushConstantRanges:    ranges,
	}, nil, &layout)
	return layout, checkResult(res)
}

// sliceUint32 reinterprets a SPIR-V byte blob as its word stream, the
// shape VkShaderModuleCreateInfo.pCode expects.
func sliceUint32(b []byte) []uint32 {
	out := make([]uint32, len(b)/4)
	for i := range out {
		out[i] = uint32(b[i*4]) | uint32(b[i*4+1])<<8 | uint32(b[i*4+2])<<16 | uint32(b[i*4+3])<<24
	}
	return out
}
