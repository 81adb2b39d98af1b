package graph

import (
	"reflect"
	"sort"
	"testing"
)

// chain builds a -> b -> c -> d with a side branch a -> x.
func chain(t *testing.T) *Graph {
	t.Helper()
	g := testGraph(t, "a", "b", "c", "d", "x")
	g = mustEdge(t, g, "a", "b", "")
	g = mustEdge(t, g, "b", "c", "")
	g = mustEdge(t, g, "c", "d", "")
	g = mustEdge(t, g, "a", "x", "")
	return g
}

func TestBFS(t *testing.T) {
	t.Run("order and depths", func(t *testing.T) {
		g := chain(t)
		result := g.BFS("a", -1)
		if got := result.Visited; !reflect.DeepEqual(got, []string{"a", "b", "x", "c", "d"}) {
			t.Fatalf("visited = %v", got)
		}
		if result.Depths["d"] != 3 || result.Depths["x"] != 1 {
			t.Fatalf("depths = %v", result.Depths)
		}
	})

	t.Run("depth bound is inclusive", func(t *testing.T) {
		g := chain(t)
		result := g.BFS("a", 1)
		if got := result.Visited; !reflect.DeepEqual(got, []string{"a", "b", "x"}) {
			t.Fatalf("visited = %v", got)
		}
	})

	t.Run("depth zero is just the start", func(t *testing.T) {
		g := chain(t)
		if got := g.BFS("a", 0).Visited; !reflect.DeepEqual(got, []string{"a"}) {
			t.Fatalf("visited = %v", got)
		}
	})

	t.Run("missing start is empty", func(t *testing.T) {
		g := chain(t)
		if got := g.BFS("ghost", -1).Visited; len(got) != 0 {
			t.Fatalf("visited = %v", got)
		}
	})

	t.Run("cycle terminates", func(t *testing.T) {
		g := testGraph(t, "a", "b")
		g = mustEdge(t, g, "a", "b", "")
		g = mustEdge(t, g, "b", "a", "")
		result := g.BFS("a", -1)
		if len(result.Visited) != 2 {
			t.Fatalf("visited = %v", result.Visited)
		}
	})
}

func TestDFS(t *testing.T) {
	g := chain(t)
	result := g.DFS("a", -1)
	if got := result.Visited; !reflect.DeepEqual(got, []string{"a", "b", "c", "d", "x"}) {
		t.Fatalf("visited = %v", got)
	}
	if result.Depths["d"] != 3 {
		t.Fatalf("depths = %v", result.Depths)
	}
}

func TestReachableAndPredecessors(t *testing.T) {
	g := chain(t)
	if got := g.Reachable("b"); !reflect.DeepEqual(got, []string{"b", "c", "d"}) {
		t.Fatalf("Reachable(b) = %v", got)
	}
	preds := g.Predecessors("c")
	sort.Strings(preds)
	if !reflect.DeepEqual(preds, []string{"a", "b", "c"}) {
		t.Fatalf("Predecessors(c) = %v", preds)
	}
}

func TestShortestPath(t *testing.T) {
	t.Run("linear", func(t *testing.T) {
		g := chain(t)
		if got := g.ShortestPath("a", "d"); !reflect.DeepEqual(got, []string{"a", "b", "c", "d"}) {
			t.Fatalf("path = %v", got)
		}
	})

	t.Run("prefers fewer hops", func(t *testing.T) {
		g := chain(t)
		g = mustEdge(t, g, "a", "c", "")
		if got := g.ShortestPath("a", "d"); !reflect.DeepEqual(got, []string{"a", "c", "d"}) {
			t.Fatalf("path = %v", got)
		}
	})

	t.Run("same node", func(t *testing.T) {
		g := chain(t)
		if got := g.ShortestPath("a", "a"); !reflect.DeepEqual(got, []string{"a"}) {
			t.Fatalf("path = %v", got)
		}
	})

	t.Run("disconnected is nil", func(t *testing.T) {
		g := chain(t)
		if got := g.ShortestPath("x", "d"); got != nil {
			t.Fatalf("path = %v, want nil", got)
		}
	})

	t.Run("missing node is nil", func(t *testing.T) {
		g := chain(t)
		if got := g.ShortestPath("a", "ghost"); got != nil {
			t.Fatalf("path = %v, want nil", got)
		}
	})
}

func TestSubgraph(t *testing.T) {
	g := chain(t)
	sub := g.Subgraph("a", 1)
	if len(sub.Nodes) != 3 {
		t.Fatalf("expected 3 nodes, got %d", len(sub.Nodes))
	}
	if sub.HasEdge("b", "c", "") {
		t.Fatal("edge outside frontier leaked into subgraph")
	}
	if !sub.HasEdge("a", "b", "") || !sub.HasEdge("a", "x", "") {
		t.Fatal("frontier edges missing")
	}
}

func TestConnectedComponents(t *testing.T) {
	g := testGraph(t, "a", "b", "c", "d", "lone")
	g = mustEdge(t, g, "a", "b", "")
	g = mustEdge(t, g, "d", "c", "")

	components := g.ConnectedComponents()
	if len(components) != 3 {
		t.Fatalf("expected 3 components, got %d: %v", len(components), components)
	}

	sizes := make([]int, 0, len(components))
	for _, c := range components {
		sizes = append(sizes, len(c))
	}
	sort.Ints(sizes)
	if !reflect.DeepEqual(sizes, []int{1, 2, 2}) {
		t.Fatalf("component sizes = %v", sizes)
	}
}

func TestCalculateImpact(t *testing.T) {
	g := testGraph(t, "hub", "solo", "shared", "other")
	g = mustEdge(t, g, "hub", "solo", "")
	g = mustEdge(t, g, "hub", "shared", "")
	g = mustEdge(t, g, "other", "shared", "")
	g = mustEdge(t, g, "other", "hub", "")

	impact := g.CalculateImpact("hub")
	if impact.BrokenEdges != 3 {
		t.Fatalf("broken edges = %d, want 3", impact.BrokenEdges)
	}
	if !reflect.DeepEqual(impact.OrphanedNodes, []string{"solo"}) {
		t.Fatalf("orphaned = %v, want [solo]", impact.OrphanedNodes)
	}
}
