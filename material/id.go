// Copyright 2024 The Forge Authors. All rights reserved.

// Package material implements polymorphic GPU materials, their
// per-instance bound resources, a lazy pipeline cache keyed by
// material identity, and a descriptor-set allocator driven off a
// material's declared layout.
//
// Materials and instances are addressed by handle rather than
// pointer: a Manager owns both arenas, and an Instance carries a
// MaterialID rather than a raw reference to its Material. This
// replaces the set-once back-pointer pattern with an arena insertion
// that cannot be rewritten once made.
package material

// MaterialID addresses a Material owned by a Manager. The zero value
// never refers to a live material.
type MaterialID int

// InstanceID addresses an Instance owned by a Manager. The
// zero value never refers to a live instance.
type InstanceID int
