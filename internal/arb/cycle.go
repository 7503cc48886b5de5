package arb

// dfsState tracks the three-color DFS state of a node during HasCycle.
type dfsState int

const (
	dfsUnvisited dfsState = iota
	dfsOnStack
	dfsDone
)

// HasCycle runs a classic three-color DFS over the graph and returns the
// first cycle found, if any. O(V + E).
func HasCycle(g *Graph) (Path, bool) {
	n := g.NumNodes()
	state := make([]dfsState, n)
	edgeTo := make([]EdgeHandle, n)
	for i := range edgeTo {
		edgeTo[i] = invalidHandle
	}

	var result Path

	var visit func(u NodeHandle) bool
	visit = func(u NodeHandle) bool {
		state[u] = dfsOnStack
		for _, e := range g.EdgesFrom(u) {
			_, v, _ := g.EdgeEndpoints(e)
			switch state[v] {
			case dfsOnStack:
				result = reconstructCycle(g, edgeTo, u, v, e)
				return true
			case dfsUnvisited:
				edgeTo[v] = e
				if visit(v) {
					return true
				}
			}
		}
		state[u] = dfsDone
		return false
	}

	for start := 0; start < n; start++ {
		if state[start] == dfsUnvisited {
			if visit(NodeHandle(start)) {
				return result, true
			}
		}
	}
	return Path{}, false
}

// reconstructCycle walks backward from u via the edgeTo predecessor map until
// it reaches v (the node closing edge re-enters), then builds a Path rooted
// at v out of the collected edges plus the closing edge.
func reconstructCycle(g *Graph, edgeTo []EdgeHandle, u, v NodeHandle, closing EdgeHandle) Path {
	var edges []EdgeHandle
	cur := u
	for cur != v {
		e := edgeTo[cur]
		edges = append(edges, e)
		from, _, ok := g.EdgeEndpoints(e)
		if !ok {
			panic("arb: reconstructCycle: missing predecessor edge")
		}
		cur = from
	}
	for i, j := 0, len(edges)-1; i < j; i, j = i+1, j-1 {
		edges[i], edges[j] = edges[j], edges[i]
	}

	edges = append(edges, closing)

	p := NewPath(v)
	for _, e := range edges {
		p.AddToPath(g, e)
	}
	return p
}
