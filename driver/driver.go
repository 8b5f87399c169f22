// Copyright 2024 The Forge Authors. All rights reserved.

// Package driver is the boundary between the rendering core (scene,
// traverse, material, transfer, taskgraph) and a concrete GPU
// backend. A backend package (driver/vk, say) registers one Driver
// implementation from its own init function; internal/ctxt selects
// among the registered set by name and hands the resulting Device to
// the core.
package driver

import (
	"errors"
	"log"
	"sync"
)

// Driver opens and closes one underlying GPU backend.
type Driver interface {
	// Open initializes the backend and returns its Device. Once Open
	// has succeeded, further calls with the same receiver must return
	// the same Device without reinitializing anything. Open is not
	// safe to call from multiple goroutines concurrently.
	Open() (Device, error)

	// Name identifies the backend (e.g. "vulkan"). It must be safe to
	// call before Open, and must never trigger initialization as a
	// side effect.
	Name() string

	// Close tears the backend down. Closing a Driver that was never
	// opened has no effect. Close is not safe to call concurrently
	// with Open or with another Close on the same receiver.
	Close()
}

// Sentinel errors a Driver's Open method returns to classify why
// initialization failed.
var (
	// ErrNotInstalled means a platform library the backend links
	// against at runtime (a loader, an ICD) is missing.
	ErrNotInstalled = errors.New("driver: missing required library")

	// ErrNoDevice means enumeration found no device meeting the
	// backend's minimum requirements.
	ErrNoDevice = errors.New("driver: no suitable device found")

	// ErrNoHostMemory means a host allocation needed during
	// initialization failed.
	ErrNoHostMemory = errors.New("driver: out of host memory")

	// ErrNoDeviceMemory means a device allocation needed during
	// initialization failed.
	ErrNoDeviceMemory = errors.New("driver: out of device memory")

	// ErrFatal means the backend is in a state it cannot recover
	// from without a full teardown. A caller observing it from any
	// Device method must destroy every GPU resource it created and
	// call the Driver's Close; Open may be called again afterward to
	// start over.
	ErrFatal = errors.New("driver: fatal error")
)

// registry holds the set of Drivers backend packages have registered.
// It exists as its own type, rather than bare package vars, so the
// mutex travels with the slice it guards.
type registry struct {
	mu      sync.Mutex
	drivers []Driver
}

var reg = registry{drivers: make([]Driver, 0, 1)}

// Drivers returns a snapshot of the currently registered Drivers, in
// registration order. Only backends a program actually imports
// (directly, or through a blank import for their registration side
// effect) appear here.
func Drivers() []Driver {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	out := make([]Driver, len(reg.drivers))
	copy(out, reg.drivers)
	return out
}

// Register adds drv to the registry, replacing any existing entry
// whose Name matches. Backend packages are expected to call Register
// exactly once, from init.
func Register(drv Driver) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	for i, d := range reg.drivers {
		if d.Name() == drv.Name() {
			reg.drivers[i] = drv
			log.Printf("[!] driver '%s' replaced", drv.Name())
			return
		}
	}
	reg.drivers = append(reg.drivers, drv)
	log.Printf("driver '%s' registered", drv.Name())
}
