// Package graph implements the directed relationship structure between
// memories. A Graph is a plain value: flat node and edge slices that
// serialise directly to graph.json. Mutators never modify the receiver; they
// return a new graph for the caller to persist.
package graph

import (
	"errors"
	"fmt"
)

var (
	ErrNodeNotFound = errors.New("node not found")
	ErrSelfLoop     = errors.New("self loop rejected")
)

// DefaultEdgeLabel is used when a relation label is not given.
const DefaultEdgeLabel = "related_to"

// Node is one linked memory: id plus its memory type.
type Node struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// Edge is a directed, labelled relation between two nodes.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label"`
}

// Graph is the serialisable node/edge structure. Invariant: every edge's
// endpoints exist in Nodes; a node may have zero edges.
type Graph struct {
	Version int    `json:"version"`
	Nodes   []Node `json:"nodes"`
	Edges   []Edge `json:"edges"`
}

// CurrentVersion is written on save for forward compatibility.
const CurrentVersion = 1

// New returns an empty graph.
func New() *Graph {
	return &Graph{Version: CurrentVersion}
}

func (g *Graph) clone() *Graph {
	out := &Graph{Version: CurrentVersion}
	out.Nodes = append([]Node(nil), g.Nodes...)
	out.Edges = append([]Edge(nil), g.Edges...)
	return out
}

// HasNode reports whether id exists.
func (g *Graph) HasNode(id string) bool {
	return g.GetNode(id) != nil
}

// GetNode returns the node for id, or nil.
func (g *Graph) GetNode(id string) *Node {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return &g.Nodes[i]
		}
	}
	return nil
}

// AllNodes returns the nodes filtered by type; an empty filter returns all
// nodes.
func (g *Graph) AllNodes(typeFilter string) []Node {
	if typeFilter == "" {
		return append([]Node(nil), g.Nodes...)
	}
	out := make([]Node, 0)
	for _, n := range g.Nodes {
		if n.Type == typeFilter {
			out = append(out, n)
		}
	}
	return out
}

// AddNode inserts a node, or replaces an existing node with the same id,
// updating its type. Idempotent.
func (g *Graph) AddNode(n Node) *Graph {
	out := g.clone()
	for i := range out.Nodes {
		if out.Nodes[i].ID == n.ID {
			out.Nodes[i] = n
			return out
		}
	}
	out.Nodes = append(out.Nodes, n)
	return out
}

// RemoveNode deletes the node and every edge touching it.
func (g *Graph) RemoveNode(id string) *Graph {
	out := &Graph{Version: CurrentVersion}
	for _, n := range g.Nodes {
		if n.ID != id {
			out.Nodes = append(out.Nodes, n)
		}
	}
	for _, e := range g.Edges {
		if e.Source != id && e.Target != id {
			out.Edges = append(out.Edges, e)
		}
	}
	return out
}

// AddEdge adds a directed, labelled edge. Both endpoints must exist and
// source must differ from target. Adding the exact same (source, target,
// label) triple again is silently idempotent; the same pair with a different
// label is a distinct edge.
func (g *Graph) AddEdge(source, target, label string) (*Graph, error) {
	if source == target {
		return nil, fmt.Errorf("%w: %s", ErrSelfLoop, source)
	}
	if !g.HasNode(source) {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, source)
	}
	if !g.HasNode(target) {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, target)
	}
	if label == "" {
		label = DefaultEdgeLabel
	}
	if g.HasEdge(source, target, label) {
		return g.clone(), nil
	}
	out := g.clone()
	out.Edges = append(out.Edges, Edge{Source: source, Target: target, Label: label})
	return out, nil
}

// RemoveEdge removes edges from source to target. With an empty label every
// matching edge goes; otherwise only the labelled one.
func (g *Graph) RemoveEdge(source, target, label string) *Graph {
	out := &Graph{Version: CurrentVersion}
	out.Nodes = append([]Node(nil), g.Nodes...)
	for _, e := range g.Edges {
		if e.Source == source && e.Target == target && (label == "" || e.Label == label) {
			continue
		}
		out.Edges = append(out.Edges, e)
	}
	return out
}

// HasEdge reports whether the exact labelled edge exists. An empty label
// matches any label between the pair.
func (g *Graph) HasEdge(source, target, label string) bool {
	for _, e := range g.Edges {
		if e.Source == source && e.Target == target && (label == "" || e.Label == label) {
			return true
		}
	}
	return false
}

// Connected reports whether the pair is linked in either direction, under any
// label.
func (g *Graph) Connected(a, b string) bool {
	return g.HasEdge(a, b, "") || g.HasEdge(b, a, "")
}

// InboundEdges returns edges whose target is id.
func (g *Graph) InboundEdges(id string) []Edge {
	out := make([]Edge, 0)
	for _, e := range g.Edges {
		if e.Target == id {
			out = append(out, e)
		}
	}
	return out
}

// OutboundEdges returns edges whose source is id.
func (g *Graph) OutboundEdges(id string) []Edge {
	out := make([]Edge, 0)
	for _, e := range g.Edges {
		if e.Source == id {
			out = append(out, e)
		}
	}
	return out
}

// Degree is the total number of edges touching id.
func (g *Graph) Degree(id string) int {
	count := 0
	for _, e := range g.Edges {
		if e.Source == id || e.Target == id {
			count++
		}
	}
	return count
}
