// Copyright 2024 The Forge Authors. All rights reserved.

package vk

import "unsafe"

// unsafePointer adapts a typed pNext extension struct to the
// unsafe.Pointer shape vulkan-go's generated bindings expect.
func unsafePointer[T any](p *T) unsafe.Pointer { return unsafe.Pointer(p) }
