// Copyright 2024 The Forge Authors. All rights reserved.

// Package taskgraph implements the per-frame dependency DAG that
// drives a frame from scene traversal through present: a fixed set of
// Tasks wired into a graph once at setup time, executed sequentially
// in precomputed topological order once per frame.
package taskgraph

import (
	"github.com/nvpipeline/forge/core"
)

// FrameContext carries the two ambient counters every frame-indexed
// Task reads through: FrameIndex cycles over [0,MaxFrames) and names
// which ring slot's command buffer/fence/semaphores this execution
// uses; ImageIndex is written by an Acquire task and read by Render
// and Present.
type FrameContext struct {
	FrameIndex uint32
	ImageIndex uint32
}

// Task is one node's unit of work. Execute must run to completion
// without suspending; the only sanctioned blocking points are inside
// FenceTask.Wait, AcquireTask, PresentTask and transfer.Transaction
// waits performed by a caller-supplied closure.
type Task interface {
	Execute(fc *FrameContext) error
}

// TaskNode wires a Task into the graph with its dependency edges.
// wait is reset to waitCount before every execution pass; nothing
// currently reads wait at runtime since execution follows the
// precomputed topological order. Finalize's cycle check works from
// waitCount and does not read wait.
type TaskNode struct {
	task      Task
	waitCount uint32
	wait      uint32
	notify    []*TaskNode
	deps      []*TaskNode
}

// DependsOn records that n must run after each of others. It is only
// valid before Finalize.
func (n *TaskNode) DependsOn(others ...*TaskNode) {
	n.deps = append(n.deps, others...)
	for _, o := range others {
		o.notify = append(o.notify, n)
	}
}

// TaskGraph is a DAG of TaskNodes executed once per frame in
// topological order, plus the frame/image index counters the task
// resource wrappers dereference through.
type TaskGraph struct {
	nodes     []*TaskNode
	order     []*TaskNode
	finalized bool

	maxFrames uint32
	frame     FrameContext
}

// New creates a TaskGraph cycling frame_index over [0,maxFrames).
func New(maxFrames uint32) *TaskGraph {
	return &TaskGraph{maxFrames: maxFrames}
}

// AddTask inserts task as a new node with no edges yet and returns
// the node so the caller can call DependsOn on it. It is only valid
// before Finalize.
func (g *TaskGraph) AddTask(task Task) *TaskNode {
	n := &TaskNode{task: task}
	g.nodes = append(g.nodes, n)
	return n
}

// Finalize computes each node's wait_count from its incoming-edge
// count, validates the graph is acyclic, and precomputes the
// topological execution order. It is legal at most once.
func (g *TaskGraph) Finalize() error {
	if g.finalized {
		return newTaskgraphErr(core.InvalidState, "graph already finalized")
	}
	for _, n := range g.nodes {
		n.waitCount = uint32(len(n.deps))
	}

	remaining := make(map[*TaskNode]uint32, len(g.nodes))
	var ready []*TaskNode
	for _, n := range g.nodes {
		remaining[n] = n.waitCount
		if n.waitCount == 0 {
			ready = append(ready, n)
		}
	}

	order := make([]*TaskNode, 0, len(g.nodes))
	for len(ready) > 0 {
		n := ready[0]
		ready = ready[1:]
		order = append(order, n)
		for _, m := range n.notify {
			remaining[m]--
			if remaining[m] == 0 {
				ready = append(ready, m)
			}
		}
	}
	if len(order) != len(g.nodes) {
		return newTaskgraphErr(core.InvalidState, "task graph has a cycle")
	}

	g.order = order
	g.finalized = true
	return nil
}

// ExecuteFrame resets every node's wait counter, then runs each task
// in the precomputed topological order to completion before starting
// the next. No task suspends the driving goroutine except at the
// blocking points documented on Task.
func (g *TaskGraph) ExecuteFrame() error {
	if !g.finalized {
		return newTaskgraphErr(core.InvalidState, "execute_frame called before finalize")
	}
	for _, n := range g.order {
		n.wait = n.waitCount
	}
	for _, n := range g.order {
		if err := n.task.Execute(&g.frame); err != nil {
			return err
		}
	}
	return nil
}

// AdvanceFrame increments frame_index modulo max_frames. It does not
// touch image_index, which the next frame's Acquire task overwrites.
func (g *TaskGraph) AdvanceFrame() {
	g.frame.FrameIndex = (g.frame.FrameIndex + 1) % g.maxFrames
}

// FrameIndex reports the current frame_index.
func (g *TaskGraph) FrameIndex() uint32 { return g.frame.FrameIndex }

// MaxFrames reports the graph's frame-ring size.
func (g *TaskGraph) MaxFrames() uint32 { return g.maxFrames }
