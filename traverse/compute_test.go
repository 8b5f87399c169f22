// Copyright 2024 The Forge Authors. All rights reserved.

package traverse

import (
	"testing"

	"github.com/nvpipeline/forge/driver"
	"github.com/nvpipeline/forge/material"
	"github.com/nvpipeline/forge/scene"
)

func TestComputeTraverseEmitsOneDrawPerDispatch(t *testing.T) {
	dev := &fakeDevice{}
	m, err := material.NewManager(material.Compute, dev, 1, 0)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	matID, err := m.AddMaterial(material.Settings{
		SetLayouts: []driver.DescriptorSetLayout{&fakeLayout{tag: 0}},
	})
	if err != nil {
		t.Fatalf("AddMaterial: %v", err)
	}
	inst, err := m.AddInstance(matID, material.InstanceBindings{SetIndex: 0})
	if err != nil {
		t.Fatalf("AddInstance: %v", err)
	}

	g := scene.New()
	mn := g.CreateNode(scene.KindComputeMaterial)
	if err := mn.SetMaterialInstance(inst); err != nil {
		t.Fatalf("SetMaterialInstance: %v", err)
	}
	g.Root().AddChild(mn)
	for i := 0; i < 2; i++ {
		d := g.CreateNode(scene.KindComputeDispatch)
		if err := d.SetDispatch(scene.DispatchExtent{X: 4, Y: 4, Z: 1}); err != nil {
			t.Fatalf("SetDispatch: %v", err)
		}
		mn.AddChild(d)
	}

	tr, err := NewComputeTraverser(m)
	if err != nil {
		t.Fatalf("NewComputeTraverser: %v", err)
	}
	var rd ComputeRenderData
	tr.Traverse(g, &rd)

	if len(rd.Draws) != 2 {
		t.Fatalf("Draws: have %d want 2", len(rd.Draws))
	}
	if len(rd.Descriptors) != 2 {
		t.Fatalf("Descriptors: have %d want 2", len(rd.Descriptors))
	}
	for _, d := range rd.Draws {
		if rd.Descriptors[d.DescOffset] == nil {
			t.Fatalf("descriptor at offset %d unresolved", d.DescOffset)
		}
	}
}

func TestComputeTraverseSkipsDispatchWithoutMaterial(t *testing.T) {
	dev := &fakeDevice{}
	m, err := material.NewManager(material.Compute, dev, 1, 0)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	g := scene.New()
	d := g.CreateNode(scene.KindComputeDispatch)
	if err := d.SetDispatch(scene.DispatchExtent{X: 1, Y: 1, Z: 1}); err != nil {
		t.Fatalf("SetDispatch: %v", err)
	}
	g.Root().AddChild(d)

	tr, err := NewComputeTraverser(m)
	if err != nil {
		t.Fatalf("NewComputeTraverser: %v", err)
	}
	var rd ComputeRenderData
	tr.Traverse(g, &rd)

	if len(rd.Draws) != 0 {
		t.Fatalf("Draws: have %d want 0, a dispatch with no ancestor material must not emit", len(rd.Draws))
	}
}

// A dispatch whose active material shares a descriptor-set prefix
// with an ancestor, but declares incompatible push-constant ranges,
// must still emit: the push-constant compatibility rule is a
// Graphics-only requirement (material.Material.PushConstantCompatible),
// not a condition on descriptor resolution for Compute.
func TestComputeTraverseFillsDescriptorDespitePushConstantMismatch(t *testing.T) {
	dev := &fakeDevice{}
	m, err := material.NewManager(material.Compute, dev, 1, 0)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	ancestorID, err := m.AddMaterial(material.Settings{
		SetLayouts:    []driver.DescriptorSetLayout{&fakeLayout{tag: 0}},
		PushConstants: []driver.PushConstantRange{{Offset: 0, Size: 4}},
	})
	if err != nil {
		t.Fatalf("AddMaterial(ancestor): %v", err)
	}
	ancestorInst, err := m.AddInstance(ancestorID, material.InstanceBindings{SetIndex: 0})
	if err != nil {
		t.Fatalf("AddInstance(ancestor): %v", err)
	}
	activeID, err := m.AddMaterial(material.Settings{
		SetLayouts:    []driver.DescriptorSetLayout{&fakeLayout{tag: 0}, &fakeLayout{tag: 1}},
		PushConstants: []driver.PushConstantRange{{Offset: 0, Size: 16}},
	})
	if err != nil {
		t.Fatalf("AddMaterial(active): %v", err)
	}
	activeInst, err := m.AddInstance(activeID, material.InstanceBindings{SetIndex: 1})
	if err != nil {
		t.Fatalf("AddInstance(active): %v", err)
	}

	g := scene.New()
	ancestorNode := g.CreateNode(scene.KindComputeMaterial)
	if err := ancestorNode.SetMaterialInstance(ancestorInst); err != nil {
		t.Fatalf("SetMaterialInstance(ancestor): %v", err)
	}
	g.Root().AddChild(ancestorNode)
	activeNode := g.CreateNode(scene.KindComputeMaterial)
	if err := activeNode.SetMaterialInstance(activeInst); err != nil {
		t.Fatalf("SetMaterialInstance(active): %v", err)
	}
	ancestorNode.AddChild(activeNode)
	d := g.CreateNode(scene.KindComputeDispatch)
	if err := d.SetDispatch(scene.DispatchExtent{X: 1, Y: 1, Z: 1}); err != nil {
		t.Fatalf("SetDispatch: %v", err)
	}
	activeNode.AddChild(d)

	tr, err := NewComputeTraverser(m)
	if err != nil {
		t.Fatalf("NewComputeTraverser: %v", err)
	}
	var rd ComputeRenderData
	tr.Traverse(g, &rd)

	if len(rd.Draws) != 1 {
		t.Fatalf("Draws: have %d want 1, a compatible descriptor prefix must fill set 0 regardless of push-constant layout", len(rd.Draws))
	}
	if rd.Descriptors[rd.Draws[0].DescOffset] == nil {
		t.Fatalf("set 0 descriptor unresolved despite compatible layout prefix")
	}
}

func TestNewComputeTraverserRejectsNilMaterials(t *testing.T) {
	if _, err := NewComputeTraverser(nil); err == nil {
		t.Fatalf("NewComputeTraverser(nil): want error, have nil")
	}
}
