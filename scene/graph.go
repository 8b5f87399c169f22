// Copyright 2024 The Forge Authors. All rights reserved.

package scene

// SceneGraph owns a root node and transitively every descendant
// reachable from it. It is not intrinsically thread-safe: a single
// graph must be traversed by at most one traverser at a time, and
// must not be mutated while a traversal is in progress.
type SceneGraph struct {
	root  *Node
	nodes map[NodeID]*Node
}

// New creates a SceneGraph with an empty Empty-kind root.
func New() *SceneGraph {
	g := &SceneGraph{nodes: make(map[NodeID]*Node)}
	g.root = g.newNode(KindEmpty)
	return g
}

// Root returns the graph's root node.
func (g *SceneGraph) Root() *Node { return g.root }

// CreateNode creates a detached node of the given kind, owned by g.
// It must be attached to the graph via AddChild/InsertChild before
// ForEach or a traverser will see it.
func (g *SceneGraph) CreateNode(kind PayloadKind) *Node { return g.newNode(kind) }

// Lookup returns the node with the given id, if it is currently part
// of the graph.
func (g *SceneGraph) Lookup(id NodeID) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Len returns the number of nodes currently owned by the graph,
// including the root.
func (g *SceneGraph) Len() int { return len(g.nodes) }

func (g *SceneGraph) newNode(kind PayloadKind) *Node {
	n := &Node{
		id:      newNodeID(),
		graph:   g,
		kind:    kind,
		payload: emptyPayload{},
	}
	g.nodes[n.id] = n
	return n
}
