// Copyright 2024 The Forge Authors. All rights reserved.

package material

import "github.com/nvpipeline/forge/core"

const matPrefix = "material: "

// newMatErr builds a *core.Error tagged with the material package's
// prefix.
func newMatErr(kind core.Kind, reason string) error {
	return core.New(kind, matPrefix, reason)
}

// wrapMatErr is newMatErr for a failure that wraps an underlying
// driver error.
func wrapMatErr(kind core.Kind, reason string, err error) error {
	return core.Wrap(kind, matPrefix, reason, err)
}
