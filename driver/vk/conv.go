// Copyright 2024 The Forge Authors. All rights reserved.

package vk

import (
	vk "github.com/vulkan-go/vulkan"

	"github.com/nvpipeline/forge/driver"
)

func convStage(s driver.Sync) vk.PipelineStageFlagBits2 {
	if s == driver.SAll {
		return vk.PipelineStageFlagBits2(vk.PipelineStageAllCommandsBit)
	}
	var f vk.PipelineStageFlagBits2
	if s&driver.SVertexInput != 0 {
		f |= vk.PipelineStageFlagBits2(vk.PipelineStageVertexInputBit)
	}
	if s&driver.SVertexShading != 0 {
		f |= vk.PipelineStageFlagBits2(vk.PipelineStageVertexShaderBit)
	}
	if s&driver.SFragmentShading != 0 {
		f |= vk.PipelineStageFlagBits2(vk.PipelineStageFragmentShaderBit)
	}
	if s&driver.SComputeShading != 0 {
		f |= vk.PipelineStageFlagBits2(vk.PipelineStageComputeShaderBit)
	}
	if s&driver.SRayTracingShading != 0 {
		f |= vk.PipelineStageFlagBits2(vk.PipelineStageRayTracingShaderBitNv)
	}
	if s&driver.SColorOutput != 0 {
		f |= vk.PipelineStageFlagBits2(vk.PipelineStageColorAttachmentOutputBit)
	}
	if s&driver.SDSOutput != 0 {
		f |= vk.PipelineStageFlagBits2(vk.PipelineStageEarlyFragmentTestsBit | vk.PipelineStageLateFragmentTestsBit)
	}
	if s&driver.SResolve != 0 {
		f |= vk.PipelineStageFlagBits2(vk.PipelineStageColorAttachmentOutputBit)
	}
	if s&driver.SCopy != 0 {
		f |= vk.PipelineStageFlagBits2(vk.PipelineStageTransferBit)
	}
	return f
}

func convAccess(a driver.Access) vk.AccessFlagBits2 {
	var f vk.AccessFlagBits2
	if a&driver.AVertexBufRead != 0 {
		f |= vk.AccessFlagBits2(vk.AccessVertexAttributeReadBit)
	}
	if a&driver.AIndexBufRead != 0 {
		f |= vk.AccessFlagBits2(vk.AccessIndexReadBit)
	}
	if a&driver.AColorRead != 0 {
		f |= vk.AccessFlagBits2(vk.AccessColorAttachmentReadBit)
	}
	if a&driver.AColorWrite != 0 {
		f |= vk.AccessFlagBits2(vk.AccessColorAttachmentWriteBit)
	}
	if a&driver.ADSRead != 0 {
		f |= vk.AccessFlagBits2(vk.AccessDepthStencilAttachmentReadBit)
	}
	if a&driver.ADSWrite != 0 {
		f |= vk.AccessFlagBits2(vk.AccessDepthStencilAttachmentWriteBit)
	}
	if a&driver.ACopyRead != 0 {
		f |= vk.AccessFlagBits2(vk.AccessTransferReadBit)
	}
	if a&driver.ACopyWrite != 0 {
		f |= vk.AccessFlagBits2(vk.AccessTransferWriteBit)
	}
	if a&driver.AShaderRead != 0 {
		f |= vk.AccessFlagBits2(vk.AccessShaderReadBit)
	}
	if a&driver.AShaderWrite != 0 {
		f |= vk.AccessFlagBits2(vk.AccessShaderWriteBit)
	}
	if a&driver.AAccelStructRead != 0 {
		f |= vk.AccessFlagBits2(vk.AccessAccelerationStructureReadBitNv)
	}
	if a&driver.AAccelStructWrite != 0 {
		f |= vk.AccessFlagBits2(vk.AccessAccelerationStructureWriteBitNv)
	}
	return f
}

func convLayout(l driver.Layout) vk.ImageLayout {
	switch l {
	case driver.LUndefined:
		return vk.ImageLayoutUndefined
	case driver.LCommon:
		return vk.ImageLayoutGeneral
	case driver.LColorTarget:
		return vk.ImageLayoutColorAttachmentOptimal
	case driver.LDSTarget:
		return vk.ImageLayoutDepthStencilAttachmentOptimal
	case driver.LDSRead:
		return vk.ImageLayoutDepthStencilReadOnlyOptimal
	case driver.LResolveSrc, driver.LCopySrc:
		return vk.ImageLayoutTransferSrcOptimal
	case driver.LResolveDst, driver.LCopyDst:
		return vk.ImageLayoutTransferDstOptimal
	case driver.LShaderRead:
		return vk.ImageLayoutShaderReadOnlyOptimal
	case driver.LPresent:
		return vk.ImageLayoutPresentSrc
	default:
		return vk.ImageLayoutUndefined
	}
}

func convUsage(u driver.Usage) vk.BufferUsageFlags {
	var f vk.BufferUsageFlagBits
	if u&driver.UVertexData != 0 {
		f |= vk.BufferUsageVertexBufferBit
	}
	if u&driver.UIndexData != 0 {
		f |= vk.BufferUsageIndexBufferBit
	}
	if u&driver.UUniformData != 0 {
		f |= vk.BufferUsageUniformBufferBit
	}
	if u&driver.UStorageData != 0 {
		f |= vk.BufferUsageStorageBufferBit
	}
	if u&driver.UCopySrc != 0 {
		f |= vk.BufferUsageTransferSrcBit
	}
	if u&driver.UCopyDst != 0 {
		f |= vk.BufferUsageTransferDstBit
	}
	if u&driver.UAccelStructBuild != 0 {
		f |= vk.BufferUsageFlagBits(vk.BufferUsageShaderDeviceAddressBit)
	}
	if u&driver.UShaderBindingTable != 0 {
		f |= vk.BufferUsageFlagBits(vk.BufferUsageShaderDeviceAddressBit)
	}
	return vk.BufferUsageFlags(f)
}

func convStageFlags(s driver.ShaderStage) vk.ShaderStageFlags {
	var f vk.ShaderStageFlagBits
	if s&driver.StageVertex != 0 {
		f |= vk.ShaderStageVertexBit
	}
	if s&driver.StageFragment != 0 {
		f |= vk.ShaderStageFragmentBit
	}
	if s&driver.StageCompute != 0 {
		f |= vk.ShaderStageComputeBit
	}
	if s&driver.StageRayGen != 0 {
		f |= vk.ShaderStageRaygenBitNv
	}
	if s&driver.StageClosestHit != 0 {
		f |= vk.ShaderStageClosestHitBitNv
	}
	if s&driver.StageMiss != 0 {
		f |= vk.ShaderStageMissBitNv
	}
	if s&driver.StageAnyHit != 0 {
		f |= vk.ShaderStageAnyHitBitNv
	}
	if s&driver.StageIntersection != 0 {
		f |= vk.ShaderStageIntersectionBitNv
	}
	return vk.ShaderStageFlags(f)
}

func convDescType(t driver.DescriptorType) vk.DescriptorType {
	switch t {
	case driver.DBuffer:
		return vk.DescriptorTypeStorageBuffer
	case driver.DImage:
		return vk.DescriptorTypeStorageImage
	case driver.DConstant:
		return vk.DescriptorTypeUniformBuffer
	case driver.DTexture:
		return vk.DescriptorTypeSampledImage
	case driver.DSampler:
		return vk.DescriptorTypeSampler
	case driver.DAccelStruct:
		return vk.DescriptorTypeAccelerationStructureNv
	default:
		return vk.DescriptorTypeStorageBuffer
	}
}
