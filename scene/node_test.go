// Copyright 2024 The Forge Authors. All rights reserved.

package scene

import "testing"

func childIDs(n *Node) []NodeID {
	ids := make([]NodeID, len(n.Children()))
	for i, c := range n.Children() {
		ids[i] = c.ID()
	}
	return ids
}

func idsEqual(t *testing.T, have, want []NodeID) {
	t.Helper()
	if len(have) != len(want) {
		t.Fatalf("child ids\nhave %v\nwant %v", have, want)
	}
	for i := range have {
		if have[i] != want[i] {
			t.Fatalf("child ids\nhave %v\nwant %v", have, want)
		}
	}
}

// TestChildAction mirrors the scene-graph mutation scenario: a root
// with five children, a grandchild added under the third, then a
// sequence of removals under each ChildAction.
func TestChildAction(t *testing.T) {
	g := New()
	root := g.Root()
	c := make([]*Node, 5)
	for i := range c {
		c[i] = g.CreateNode(KindEmpty)
		root.AddChild(c[i])
	}
	gc := g.CreateNode(KindEmpty)
	c[2].AddChild(gc)

	want := []NodeID{c[0].ID(), c[1].ID(), c[2].ID(), c[3].ID(), c[4].ID()}
	idsEqual(t, childIDs(root), want)

	if err := c[2].Remove(Insert); err != nil {
		t.Fatalf("c[2].Remove(Insert): %v", err)
	}
	idsEqual(t, childIDs(root), []NodeID{c[0].ID(), c[1].ID(), gc.ID(), c[3].ID(), c[4].ID()})

	if err := c[0].Remove(Append); err != nil {
		t.Fatalf("c[0].Remove(Append): %v", err)
	}
	idsEqual(t, childIDs(root), []NodeID{c[1].ID(), gc.ID(), c[3].ID(), c[4].ID()})

	if err := c[1].Remove(Prepend); err != nil {
		t.Fatalf("c[1].Remove(Prepend): %v", err)
	}
	idsEqual(t, childIDs(root), []NodeID{gc.ID(), c[3].ID(), c[4].ID()})
}

func TestRemoveRootFails(t *testing.T) {
	g := New()
	if err := g.Root().Remove(Remove); err == nil {
		t.Fatalf("Remove on root: got nil error, want InvalidState")
	}
}

func TestRemoveExtractRejected(t *testing.T) {
	g := New()
	child := g.CreateNode(KindEmpty)
	g.Root().AddChild(child)
	if err := child.Remove(Extract); err == nil {
		t.Fatalf("Remove(Extract): got nil error, want InvalidState")
	}
}

func TestRemoveDeletesSubtree(t *testing.T) {
	g := New()
	a := g.CreateNode(KindEmpty)
	b := g.CreateNode(KindEmpty)
	g.Root().AddChild(a)
	a.AddChild(b)
	before := g.Len()
	if err := a.Remove(Remove); err != nil {
		t.Fatalf("a.Remove(Remove): %v", err)
	}
	if _, ok := g.Lookup(a.ID()); ok {
		t.Fatalf("a still present in graph after Remove")
	}
	if _, ok := g.Lookup(b.ID()); ok {
		t.Fatalf("b still present in graph after Remove(Remove) of its parent")
	}
	if g.Len() != before-2 {
		t.Fatalf("graph.Len() after Remove: have %d want %d", g.Len(), before-2)
	}
}

func TestInsertChildAtIndex(t *testing.T) {
	g := New()
	root := g.Root()
	a := g.CreateNode(KindEmpty)
	c := g.CreateNode(KindEmpty)
	b := g.CreateNode(KindEmpty)
	root.AddChild(a)
	root.AddChild(c)
	root.InsertChild(b, 1)
	idsEqual(t, childIDs(root), []NodeID{a.ID(), b.ID(), c.ID()})
}

func TestReparentDetachesFromPriorParent(t *testing.T) {
	g := New()
	p1 := g.CreateNode(KindEmpty)
	p2 := g.CreateNode(KindEmpty)
	g.Root().AddChild(p1)
	g.Root().AddChild(p2)
	child := g.CreateNode(KindEmpty)
	p1.AddChild(child)
	p2.AddChild(child)
	if len(p1.Children()) != 0 {
		t.Fatalf("p1 still holds reparented child: %v", childIDs(p1))
	}
	idsEqual(t, childIDs(p2), []NodeID{child.ID()})
}

func TestForEachVisitsAncestorsFirst(t *testing.T) {
	g := New()
	root := g.Root()
	a := g.CreateNode(KindEmpty)
	b := g.CreateNode(KindEmpty)
	root.AddChild(a)
	a.AddChild(b)

	var order []NodeID
	root.ForEach(func(n *Node) { order = append(order, n.ID()) })
	idsEqual(t, order, []NodeID{a.ID(), b.ID()})
}

func TestMasks(t *testing.T) {
	g := New()
	n := g.CreateNode(KindEmpty)
	n.SetGeneralMask(0xF0)
	n.SetTypeMask(0x0F)
	if n.GeneralMask() != 0xF0 || n.TypeMask() != 0x0F {
		t.Fatalf("masks: have (%#x,%#x) want (0xf0,0x0f)", n.GeneralMask(), n.TypeMask())
	}
}

func TestTypedPayloadRejectsWrongKind(t *testing.T) {
	g := New()
	n := g.CreateNode(KindEmpty)
	if err := n.SetMesh(nil); err == nil {
		t.Fatalf("SetMesh on Empty node: got nil error")
	}
	if !n.Supports(KindEmpty) || n.Supports(KindMesh) {
		t.Fatalf("Supports: have Empty=%v Mesh=%v want true,false", n.Supports(KindEmpty), n.Supports(KindMesh))
	}
}

func TestMeshPayloadRoundTrip(t *testing.T) {
	g := New()
	n := g.CreateNode(KindMesh)
	groups := []DrawGroup{{IndexCount: 36, InstanceCount: 1}}
	if err := n.SetMesh(groups); err != nil {
		t.Fatalf("SetMesh: %v", err)
	}
	got, ok := n.Mesh()
	if !ok || len(got) != 1 || got[0].IndexCount != 36 {
		t.Fatalf("Mesh: have %v,%v want %v,true", got, ok, groups)
	}
}

func TestDispatchPayloadRoundTrip(t *testing.T) {
	g := New()
	n := g.CreateNode(KindComputeDispatch)
	want := DispatchExtent{X: 8, Y: 8, Z: 1}
	if err := n.SetDispatch(want); err != nil {
		t.Fatalf("SetDispatch: %v", err)
	}
	got, ok := n.Dispatch()
	if !ok || got != want {
		t.Fatalf("Dispatch: have %v,%v want %v,true", got, ok, want)
	}
}
