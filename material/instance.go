// Copyright 2024 The Forge Authors. All rights reserved.

package material

import (
	"github.com/nvpipeline/forge/driver"
)

// Instance binds concrete resources to one descriptor-set index of a
// Material. It references its material by id rather than by pointer,
// per the manager-owned-arena rearchitecture: the set-once
// material/manager back-pointers the class hierarchy relied on become
// an insertion into dataMap that cannot later be rewritten.
type Instance struct {
	id       InstanceID
	matID    MaterialID
	manager  *Manager
	setIndex int

	pool driver.DescriptorPool
	sets []driver.DescriptorSet // one per frame in flight

	uniformOff  int64
	uniformSize int64
	uniform     []byte
	dirty       uint64 // one bit per frame in flight; maxFrames is capped at 64
	dirtyFrames int
}

// ID returns the instance's stable identifier.
func (i *Instance) ID() InstanceID { return i.id }

// Material returns the id of the material this instance was created
// against.
func (i *Instance) Material() MaterialID { return i.matID }

// SetIndex returns the descriptor-set index this instance's bound
// resources fill.
func (i *Instance) SetIndex() int { return i.setIndex }

// DescriptorSet returns the instance's descriptor set for the given
// frame index, one of the N copies the descriptor manager allocated
// when the instance was added.
func (i *Instance) DescriptorSet(frame int) driver.DescriptorSet { return i.sets[frame] }

// SetUniformData replaces the instance's CPU-side uniform bytes and
// marks every frame slot dirty, so the next UpdateUniformBuffers call
// for each frame repacks it into the pooled uniform buffer.
func (i *Instance) SetUniformData(data []byte) {
	if len(data) > len(i.uniform) {
		data = data[:len(i.uniform)]
	}
	copy(i.uniform, data)
	i.dirty = uint64(1)<<uint(i.dirtyFrames) - 1
}
