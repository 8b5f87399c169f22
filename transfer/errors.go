// Copyright 2024 The Forge Authors. All rights reserved.

package transfer

import "github.com/nvpipeline/forge/core"

const transferPrefix = "transfer: "

// newTransferErr builds a *core.Error tagged with the transfer
// package's prefix.
func newTransferErr(kind core.Kind, reason string) error {
	return core.New(kind, transferPrefix, reason)
}

// wrapTransferErr is newTransferErr for a failure that wraps an
// underlying driver error.
func wrapTransferErr(kind core.Kind, reason string, err error) error {
	return core.Wrap(kind, transferPrefix, reason, err)
}
