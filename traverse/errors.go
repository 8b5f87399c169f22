// Copyright 2024 The Forge Authors. All rights reserved.

package traverse

import "github.com/nvpipeline/forge/core"

const traversePrefix = "traverse: "

// newTraverseErr builds a *core.Error tagged with the traverse
// package's prefix.
func newTraverseErr(kind core.Kind, reason string) error {
	return core.New(kind, traversePrefix, reason)
}
