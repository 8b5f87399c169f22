// Copyright 2024 The Forge Authors. All rights reserved.

// Package traverse linearizes a scene graph into flat, GPU-ready
// render data: a depth-first walk that propagates the nearest
// ancestor's material, push constants and dynamic state down to each
// leaf, emitting one Draw per leaf whose required resources are fully
// resolved.
package traverse

// Action is the outcome of a mask predicate, controlling whether a
// node is processed and whether its subtree is visited.
type Action int

const (
	// Visit processes the node and descends into its children.
	Visit Action = iota
	// Terminate ignores the node and its entire subtree.
	Terminate
	// IgnoreChildren processes the node but does not descend.
	IgnoreChildren
	// Skip does not process the node but still descends.
	Skip
)

func (a Action) bits() (visit, descend bool) {
	switch a {
	case Visit:
		return true, true
	case Terminate:
		return false, false
	case IgnoreChildren:
		return true, false
	case Skip:
		return false, true
	}
	return true, true
}

// MaskPredicate classifies a node from one of its two masks.
type MaskPredicate func(mask uint64) Action

func alwaysVisit(uint64) Action { return Visit }

// conjunction implements §4.2's rule: visit = general_visit ∧
// type_visit, descend = general_descend ∧ type_descend.
func conjunction(general, typ Action) (visit, descend bool) {
	gv, gd := general.bits()
	tv, td := typ.bits()
	return gv && tv, gd && td
}
