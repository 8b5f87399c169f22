// Copyright 2024 The Forge Authors. All rights reserved.

//go:build linux || windows

package ctxt

import (
	_ "github.com/nvpipeline/forge/driver/vk"
)

func init() {
	if err := loadDriver("vulkan"); err != nil {
		if err = loadDriver(""); err != nil {
			panic(err)
		}
	}
}
