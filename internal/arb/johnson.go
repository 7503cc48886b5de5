package arb

// FindCycles enumerates all elementary (simple) directed cycles in the graph
// using Johnson's algorithm. Worst-case time is O((V+E)(C+1)) where C is the
// number of simple cycles; memory O(V+E). Rotations of the same elementary
// cycle are not deduplicated: each appears once, rooted at the lowest-index
// start vertex that discovers it.
func FindCycles(g *Graph) []Path {
	n := g.NumNodes()
	js := &johnson{
		g:            g,
		blocked:      make([]bool, n),
		blockedEdges: make([][]NodeHandle, n),
		circuited:    make([]bool, n),
	}

	for s := 0; s < n; s++ {
		if js.circuited[s] {
			continue
		}
		for i := range js.blocked {
			js.blocked[i] = false
			js.blockedEdges[i] = nil
		}
		js.circuit(NodeHandle(s), NodeHandle(s))
		js.circuited[s] = true
	}
	return js.cycles
}

// johnson holds the block/unblock bookkeeping Johnson's algorithm needs
// across one outer-loop root.
type johnson struct {
	g *Graph

	blocked      []bool
	blockedEdges [][]NodeHandle // the "B-list": blockedEdges[v] must be unblocked when v unblocks
	circuited    []bool         // permanent mark: v has already served as a search root

	stackEdges []EdgeHandle // current candidate cycle path, root s to current v
	cycles     []Path
}

// circuit searches for elementary cycles through v back to root s. Returns
// true if at least one cycle through v was found.
func (js *johnson) circuit(v, s NodeHandle) bool {
	found := false
	closed := false
	js.blocked[v] = true

	for _, e := range js.g.EdgesFrom(v) {
		_, w, _ := js.g.EdgeEndpoints(e)
		if js.circuited[w] {
			continue
		}

		if w == s {
			// Close the cycle via the minimum-weight parallel edge v->s, per
			// the deliberate refinement over picking arbitrarily. Parallel
			// v->s edges all close the same cycle, so it is emitted once.
			if closed {
				continue
			}
			closed = true
			if closing, ok := js.g.FindEdge(v, s); ok {
				js.stackEdges = append(js.stackEdges, closing)
				js.cycles = append(js.cycles, materializeCycle(js.g, s, js.stackEdges))
				js.stackEdges = js.stackEdges[:len(js.stackEdges)-1]
			}
			found = true
		} else if !js.blocked[w] {
			js.stackEdges = append(js.stackEdges, e)
			if js.circuit(w, s) {
				found = true
			}
			js.stackEdges = js.stackEdges[:len(js.stackEdges)-1]
		}
	}

	if found {
		js.unblock(v)
	} else {
		for _, e := range js.g.EdgesFrom(v) {
			_, w, _ := js.g.EdgeEndpoints(e)
			if js.circuited[w] {
				continue
			}
			js.blockedEdges[w] = appendUniqueNode(js.blockedEdges[w], v)
		}
	}
	return found
}

// unblock clears v's block and recursively unblocks every node in v's
// B-list that is still blocked.
func (js *johnson) unblock(v NodeHandle) {
	js.blocked[v] = false
	list := js.blockedEdges[v]
	js.blockedEdges[v] = nil
	for _, w := range list {
		if js.blocked[w] {
			js.unblock(w)
		}
	}
}

func materializeCycle(g *Graph, s NodeHandle, edges []EdgeHandle) Path {
	p := NewPath(s)
	for _, e := range edges {
		p.AddToPath(g, e)
	}
	return p
}

func appendUniqueNode(list []NodeHandle, v NodeHandle) []NodeHandle {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
