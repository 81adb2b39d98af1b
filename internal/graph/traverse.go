package graph

// TraversalResult is the ordered visit list plus the depth each node was
// first discovered at.
type TraversalResult struct {
	Visited []string       `json:"visited"`
	Depths  map[string]int `json:"depths"`
}

// Impact describes what breaks if a node is removed.
type Impact struct {
	OrphanedNodes []string `json:"orphaned_nodes"`
	BrokenEdges   int      `json:"broken_edges"`
}

// direction selects which edges a walk follows.
type direction int

const (
	outbound direction = iota
	inbound
)

func (g *Graph) neighbors(id string, dir direction) []string {
	out := make([]string, 0)
	for _, e := range g.Edges {
		switch dir {
		case outbound:
			if e.Source == id {
				out = append(out, e.Target)
			}
		case inbound:
			if e.Target == id {
				out = append(out, e.Source)
			}
		}
	}
	return out
}

// BFS walks breadth-first over outbound edges from start. maxDepth is an
// inclusive bound; a negative value means unbounded. The seen set guarantees
// each node is visited once regardless of cycles.
func (g *Graph) BFS(start string, maxDepth int) TraversalResult {
	return g.bfs(start, maxDepth, outbound)
}

func (g *Graph) bfs(start string, maxDepth int, dir direction) TraversalResult {
	result := TraversalResult{Visited: []string{}, Depths: map[string]int{}}
	if !g.HasNode(start) {
		return result
	}

	type item struct {
		id    string
		depth int
	}
	queue := []item{{start, 0}}
	seen := map[string]bool{start: true}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		result.Visited = append(result.Visited, cur.id)
		result.Depths[cur.id] = cur.depth

		if maxDepth >= 0 && cur.depth >= maxDepth {
			continue
		}
		for _, next := range g.neighbors(cur.id, dir) {
			if seen[next] {
				continue
			}
			seen[next] = true
			queue = append(queue, item{next, cur.depth + 1})
		}
	}
	return result
}

// DFS walks depth-first (preorder) over outbound edges from start, with the
// same depth bound and cycle handling as BFS.
func (g *Graph) DFS(start string, maxDepth int) TraversalResult {
	result := TraversalResult{Visited: []string{}, Depths: map[string]int{}}
	if !g.HasNode(start) {
		return result
	}

	seen := map[string]bool{}
	var walk func(id string, depth int)
	walk = func(id string, depth int) {
		if seen[id] {
			return
		}
		seen[id] = true
		result.Visited = append(result.Visited, id)
		result.Depths[id] = depth

		if maxDepth >= 0 && depth >= maxDepth {
			return
		}
		for _, next := range g.neighbors(id, outbound) {
			walk(next, depth+1)
		}
	}
	walk(start, 0)
	return result
}

// Reachable returns every node reachable from start over outbound edges,
// start included.
func (g *Graph) Reachable(start string) []string {
	return g.bfs(start, -1, outbound).Visited
}

// Predecessors returns every node that can reach start over inbound edges,
// start included.
func (g *Graph) Predecessors(start string) []string {
	return g.bfs(start, -1, inbound).Visited
}

// ShortestPath returns the first BFS-discovered unweighted path from a to b,
// ties broken by edge iteration order, or nil if disconnected. a == b
// short-circuits to [a].
func (g *Graph) ShortestPath(a, b string) []string {
	if !g.HasNode(a) || !g.HasNode(b) {
		return nil
	}
	if a == b {
		return []string{a}
	}

	parent := map[string]string{}
	seen := map[string]bool{a: true}
	queue := []string{a}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range g.neighbors(cur, outbound) {
			if seen[next] {
				continue
			}
			seen[next] = true
			parent[next] = cur
			if next == b {
				path := []string{b}
				for node := b; node != a; {
					node = parent[node]
					path = append([]string{node}, path...)
				}
				return path
			}
			queue = append(queue, next)
		}
	}
	return nil
}

// Subgraph returns the graph restricted to the BFS frontier of start at the
// given inclusive depth.
func (g *Graph) Subgraph(start string, depth int) *Graph {
	keep := map[string]bool{}
	for _, id := range g.BFS(start, depth).Visited {
		keep[id] = true
	}

	out := New()
	for _, n := range g.Nodes {
		if keep[n.ID] {
			out.Nodes = append(out.Nodes, n)
		}
	}
	for _, e := range g.Edges {
		if keep[e.Source] && keep[e.Target] {
			out.Edges = append(out.Edges, e)
		}
	}
	return out
}

// ConnectedComponents partitions nodes into undirected components. The
// adjacency map is built in one pass over the edges so the whole computation
// is O(n+e), not O(n*e).
func (g *Graph) ConnectedComponents() [][]string {
	adjacency := make(map[string][]string, len(g.Nodes))
	for _, e := range g.Edges {
		adjacency[e.Source] = append(adjacency[e.Source], e.Target)
		adjacency[e.Target] = append(adjacency[e.Target], e.Source)
	}

	components := make([][]string, 0)
	seen := make(map[string]bool, len(g.Nodes))

	for _, n := range g.Nodes {
		if seen[n.ID] {
			continue
		}
		component := []string{}
		queue := []string{n.ID}
		seen[n.ID] = true
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			component = append(component, cur)
			for _, next := range adjacency[cur] {
				if !seen[next] {
					seen[next] = true
					queue = append(queue, next)
				}
			}
		}
		components = append(components, component)
	}
	return components
}

// CalculateImpact reports the removal impact of id: direct successors whose
// only inbound edges come from id (orphaned), and the count of edges touching
// id (broken). Only direct successors are considered; nodes that would lose
// reachability further down a chain are not counted.
func (g *Graph) CalculateImpact(id string) Impact {
	impact := Impact{OrphanedNodes: []string{}, BrokenEdges: g.Degree(id)}

	seen := map[string]bool{}
	for _, e := range g.OutboundEdges(id) {
		candidate := e.Target
		if seen[candidate] {
			continue
		}
		seen[candidate] = true

		alternative := false
		for _, in := range g.InboundEdges(candidate) {
			if in.Source != id {
				alternative = true
				break
			}
		}
		if !alternative {
			impact.OrphanedNodes = append(impact.OrphanedNodes, candidate)
		}
	}
	return impact
}
