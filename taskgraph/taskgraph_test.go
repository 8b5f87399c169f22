// Copyright 2024 The Forge Authors. All rights reserved.

package taskgraph

import (
	"errors"
	"testing"
	"time"

	"github.com/nvpipeline/forge/driver"
)

type recordTask struct {
	name string
	log  *[]string
}

func (t *recordTask) Execute(*FrameContext) error {
	*t.log = append(*t.log, t.name)
	return nil
}

func TestExecuteFrameRunsInTopologicalOrder(t *testing.T) {
	g := New(2)
	var log []string

	a := g.AddTask(&recordTask{"a", &log})
	b := g.AddTask(&recordTask{"b", &log})
	c := g.AddTask(&recordTask{"c", &log})
	b.DependsOn(a)
	c.DependsOn(a, b)

	if err := g.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if err := g.ExecuteFrame(); err != nil {
		t.Fatalf("ExecuteFrame: %v", err)
	}

	if len(log) != 3 || log[0] != "a" || log[2] != "c" {
		t.Fatalf("order: have %v, want a before b and c, c last", log)
	}
}

func TestFinalizeDetectsCycle(t *testing.T) {
	g := New(1)
	a := g.AddTask(&recordTask{"a", &[]string{}})
	b := g.AddTask(&recordTask{"b", &[]string{}})
	a.DependsOn(b)
	b.DependsOn(a)

	if err := g.Finalize(); err == nil {
		t.Fatal("Finalize: want error for cyclic graph")
	}
}

func TestFinalizeOnlyOnce(t *testing.T) {
	g := New(1)
	g.AddTask(&recordTask{"a", &[]string{}})
	if err := g.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if err := g.Finalize(); err == nil {
		t.Fatal("Finalize: want error on second call")
	}
}

func TestExecuteFrameBeforeFinalizeFails(t *testing.T) {
	g := New(1)
	g.AddTask(&recordTask{"a", &[]string{}})
	if err := g.ExecuteFrame(); err == nil {
		t.Fatal("ExecuteFrame: want error before finalize")
	}
}

// fakeFence implements driver.Fence; Reset clears inFlight, modeling
// the per-frame fence a Submit task signals and the following
// iteration's Fence task waits on before reusing the same slot.
type fakeFence struct{ inFlight bool }

func (f *fakeFence) Destroy()                        {}
func (f *fakeFence) Wait(time.Duration) error        { return nil }
func (f *fakeFence) Reset() error                    { f.inFlight = false; return nil }

// TestFrameRingNoOverlap covers property 7: across many executions of
// a Fence(Wait|Reset)->Render chain with max_frames ring slots, a
// frame never finds its command-buffer slot still marked in flight by
// an earlier frame using the same slot.
func TestFrameRingNoOverlap(t *testing.T) {
	const maxFrames = 3
	fences := make([]*fakeFence, maxFrames)
	fenceSlots := NewSingle[driver.Fence](maxFrames)
	for i := range fences {
		fences[i] = &fakeFence{}
		fenceSlots.Values[i] = fences[i]
	}
	cmdInUse := make([]bool, maxFrames)

	g := New(maxFrames)
	var recordErr error

	fenceTask := g.AddTask(&FenceTask{Fence: fenceSlots, Op: FenceWait | FenceReset})
	renderTask := g.AddTask(&RenderTask{Fn: func(fc *FrameContext) error {
		if cmdInUse[fc.FrameIndex] || fences[fc.FrameIndex].inFlight {
			recordErr = errors.New("command buffer slot already in use")
			return recordErr
		}
		cmdInUse[fc.FrameIndex] = true
		fences[fc.FrameIndex].inFlight = true
		cmdInUse[fc.FrameIndex] = false
		return nil
	}})
	renderTask.DependsOn(fenceTask)

	if err := g.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	for i := 0; i < maxFrames*4; i++ {
		if err := g.ExecuteFrame(); err != nil {
			t.Fatalf("ExecuteFrame(%d): %v", i, err)
		}
		g.AdvanceFrame()
	}
	if recordErr != nil {
		t.Fatalf("overlap detected: %v", recordErr)
	}
}
