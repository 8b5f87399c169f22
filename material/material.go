// Copyright 2024 The Forge Authors. All rights reserved.

package material

import "github.com/nvpipeline/forge/driver"

// Kind selects which of the three material variants a Material is.
type Kind int

const (
	Graphics Kind = iota
	Compute
	RayTracing
)

// Material is immutable after creation: its shader references,
// descriptor-set layouts (ordered by set index), push-constant ranges
// and, for Graphics, enabled dynamic-state kinds never change once a
// Manager hands back its id. The id doubles as the pipeline-cache
// key.
type Material struct {
	id         MaterialID
	kind       Kind
	shaders    []driver.ShaderModule
	setLayouts []driver.DescriptorSetLayout
	pcRanges   []driver.PushConstantRange
	dynStates  []driver.DynamicStateKind
}

// ID returns the material's stable identifier.
func (m *Material) ID() MaterialID { return m.id }

// Kind returns which variant this material is.
func (m *Material) Kind() Kind { return m.kind }

// Shaders returns the material's shader modules.
func (m *Material) Shaders() []driver.ShaderModule { return m.shaders }

// SetLayouts returns the material's descriptor-set layouts, ordered
// by set index.
func (m *Material) SetLayouts() []driver.DescriptorSetLayout { return m.setLayouts }

// SetCount returns the number of descriptor sets the material
// declares.
func (m *Material) SetCount() int { return len(m.setLayouts) }

// PushConstantRanges returns the material's push-constant ranges.
func (m *Material) PushConstantRanges() []driver.PushConstantRange { return m.pcRanges }

// PushConstantRangeCount returns the number of push-constant ranges
// the material declares.
func (m *Material) PushConstantRangeCount() int { return len(m.pcRanges) }

// DynamicStateCount returns the number of dynamic-state kinds the
// material enables. It is always 0 for Compute and RayTracing
// materials.
func (m *Material) DynamicStateCount() int { return len(m.dynStates) }

// DynamicStateKind returns the i-th enabled dynamic-state kind.
func (m *Material) DynamicStateKind(i int) driver.DynamicStateKind { return m.dynStates[i] }

// CompatPrefix returns the length of the matching descriptor-set
// layout prefix between m and other: the number of leading set
// indices at which both materials declare an identical layout.
func (m *Material) CompatPrefix(other *Material) int {
	n := len(m.setLayouts)
	if on := len(other.setLayouts); on < n {
		n = on
	}
	i := 0
	for ; i < n; i++ {
		if !m.setLayouts[i].Equal(other.setLayouts[i]) {
			break
		}
	}
	return i
}

// PushConstantCompatible reports whether m and other declare
// identical push-constant ranges. Graphics leaf emission additionally
// requires this before letting an ancestor material's push-constant
// node fill the active material's ranges.
func (m *Material) PushConstantCompatible(other *Material) bool {
	if len(m.pcRanges) != len(other.pcRanges) {
		return false
	}
	for i := range m.pcRanges {
		if m.pcRanges[i] != other.pcRanges[i] {
			return false
		}
	}
	return true
}

// Settings is the shader/layout/push-constant/dynamic-state
// description passed to Manager.AddMaterial.
type Settings struct {
	Shaders       []driver.ShaderModule
	SetLayouts    []driver.DescriptorSetLayout
	PushConstants []driver.PushConstantRange
	DynamicStates []driver.DynamicStateKind
}
