// Copyright 2024 The Forge Authors. All rights reserved.

package scene

import "github.com/nvpipeline/forge/core"

const scenePrefix = "scene: "

// newSceneErr builds a *core.Error tagged with the scene package's
// prefix.
func newSceneErr(kind core.Kind, reason string) error {
	return core.New(kind, scenePrefix, reason)
}
