// Copyright 2024 The Forge Authors. All rights reserved.

package taskgraph

import "github.com/nvpipeline/forge/core"

const taskgraphPrefix = "taskgraph: "

// newTaskgraphErr builds a *core.Error tagged with the taskgraph
// package's prefix.
func newTaskgraphErr(kind core.Kind, reason string) error {
	return core.New(kind, taskgraphPrefix, reason)
}

// wrapTaskgraphErr is newTaskgraphErr for a failure that wraps an
// underlying driver error.
func wrapTaskgraphErr(kind core.Kind, reason string, err error) error {
	return core.Wrap(kind, taskgraphPrefix, reason, err)
}
