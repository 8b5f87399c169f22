// Copyright 2024 The Forge Authors. All rights reserved.

package material

import (
	"sync"

	"github.com/nvpipeline/forge/driver"
)

// PipelineCache lazily builds and de-duplicates GPU pipelines keyed
// by material identity. A single mutex guards the map; pipeline
// construction itself (a driver round-trip) happens while the lock is
// held, mirroring the source's coarse single-lock design rather than
// double-checked locking, since pipeline creation is expected to be
// rare relative to lookups.
type PipelineCache struct {
	dev driver.Device
	mu  sync.Mutex
	m   map[MaterialID]driver.Pipeline
}

// NewPipelineCache creates an empty cache backed by dev.
func NewPipelineCache(dev driver.Device) *PipelineCache {
	return &PipelineCache{dev: dev, m: make(map[MaterialID]driver.Pipeline)}
}

// Ensure returns the pipeline for mat, creating it on first use.
// Repeated calls for the same material id return the identical
// handle.
func (c *PipelineCache) Ensure(mat *Material) (driver.Pipeline, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.m[mat.id]; ok {
		return p, nil
	}
	p, err := c.create(mat)
	if err != nil {
		return nil, err
	}
	c.m[mat.id] = p
	return p, nil
}

// Destroy removes and destroys the pipeline cached for id, if any.
// Subsequent Ensure calls for the same material id rebuild it.
func (c *PipelineCache) Destroy(id MaterialID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.m[id]; ok {
		p.Destroy()
		delete(c.m, id)
	}
}

// Len reports the number of live pipelines, for tests and metrics.
func (c *PipelineCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}

func (c *PipelineCache) create(mat *Material) (driver.Pipeline, error) {
	switch mat.kind {
	case Graphics:
		return c.dev.CreatePipeline(driver.PipelineGraphics, driver.GraphicsSettings{
			Shaders:       mat.shaders,
			SetLayouts:    mat.setLayouts,
			PushConstants: mat.pcRanges,
			DynamicStates: mat.dynStates,
		})
	case Compute:
		return c.dev.CreatePipeline(driver.PipelineCompute, driver.ComputeSettings{
			Shader:        mat.shaders[0],
			SetLayouts:    mat.setLayouts,
			PushConstants: mat.pcRanges,
		})
	default:
		return c.dev.CreatePipeline(driver.PipelineRayTracing, driver.RayTracingSettings{
			Shaders:       mat.shaders,
			SetLayouts:    mat.setLayouts,
			PushConstants: mat.pcRanges,
		})
	}
}
