package arb

import (
	"math"
	"sort"
)

// NegativeCycleQuick runs a queue-based Bellman-Ford (SPFA) from each node in
// index order and returns the first negative cycle found. Detection happens
// by periodically materializing the shortest-path tree implied by the
// current predecessor map and running HasCycle on it: an SPT cycle is
// necessarily negative, since it means a relaxation chain beat the acyclic
// bound Bellman-Ford would otherwise guarantee.
func NegativeCycleQuick(g *Graph) (Path, bool) {
	for s := 0; s < g.NumNodes(); s++ {
		paths, found := spfaScan(g, NodeHandle(s), func(edgeTo []EdgeHandle) ([]Path, bool) {
			if p, ok := checkSPTSingle(g, edgeTo); ok {
				return []Path{p}, true
			}
			return nil, false
		})
		if found {
			return paths[0], true
		}
	}
	return Path{}, false
}

// AllNegativeCycles0 enumerates every elementary cycle via FindCycles,
// filters to negative weight, and sorts ascending (most negative first).
// Rotations of the same elementary cycle discovered from different start
// vertices are not deduplicated.
func AllNegativeCycles0(g *Graph) []Path {
	cycles := FindCycles(g)
	var neg []Path
	for _, c := range cycles {
		if c.Weight() < 0 {
			neg = append(neg, c)
		}
	}
	sort.Slice(neg, func(i, j int) bool { return totalCmp(neg[i].Weight(), neg[j].Weight()) < 0 })
	return neg
}

// AllNegativeCycles1 runs the SPFA of NegativeCycleQuick from every node but,
// on detection, enumerates all elementary cycles in the SPT (via FindCycles)
// rather than returning the first one HasCycle finds. The SPT is sparse
// relative to the full graph, so Johnson's enumeration is cheap there.
// Results are filtered to negative weight, sorted ascending, and deduped by
// bitwise-equal weight.
func AllNegativeCycles1(g *Graph) []Path {
	var all []Path
	for s := 0; s < g.NumNodes(); s++ {
		paths, _ := spfaScan(g, NodeHandle(s), func(edgeTo []EdgeHandle) ([]Path, bool) {
			sptCycles := checkSPTAll(g, edgeTo)
			if len(sptCycles) > 0 {
				return sptCycles, true
			}
			return nil, false
		})
		all = append(all, paths...)
	}

	var neg []Path
	for _, p := range all {
		if p.Weight() < 0 {
			neg = append(neg, p)
		}
	}
	sort.Slice(neg, func(i, j int) bool { return totalCmp(neg[i].Weight(), neg[j].Weight()) < 0 })

	out := neg[:0:0]
	for i, p := range neg {
		if i == 0 || !p.Equal(neg[i-1]) {
			out = append(out, p)
		}
	}
	return out
}

// spfaScan runs queue-based Bellman-Ford from source. Every time the
// relaxation counter is a nonzero multiple of |V|, checkpoint is invoked
// with the current predecessor-edge map; if it reports stop=true, spfaScan
// returns its paths immediately. If the queue empties first, spfaScan
// returns (nil, false).
func spfaScan(g *Graph, source NodeHandle, checkpoint func(edgeTo []EdgeHandle) ([]Path, bool)) ([]Path, bool) {
	n := g.NumNodes()
	dist := make([]float64, n)
	for i := range dist {
		dist[i] = math.Inf(1)
	}
	dist[source] = 0

	edgeTo := make([]EdgeHandle, n)
	for i := range edgeTo {
		edgeTo[i] = invalidHandle
	}

	onQueue := make([]bool, n)
	queue := []NodeHandle{source}
	onQueue[source] = true
	relaxCounter := 0

	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		onQueue[u] = false

		for _, e := range g.EdgesFrom(u) {
			_, v, _ := g.EdgeEndpoints(e)
			w := g.EdgeWeight(e)
			if dist[u]+w >= dist[v] {
				continue
			}

			dist[v] = dist[u] + w
			edgeTo[v] = e
			relaxCounter++
			if !onQueue[v] {
				queue = append(queue, v)
				onQueue[v] = true
			}

			if n > 0 && relaxCounter%n == 0 {
				if paths, stop := checkpoint(edgeTo); stop {
					return paths, true
				}
			}
		}
	}
	return nil, false
}

// buildSPT materializes the shortest-path tree implied by edgeTo as a fresh
// Graph over the same node handles, and returns a translation table from the
// SPT's own edge handles back to the original graph's edge handles.
func buildSPT(g *Graph, edgeTo []EdgeHandle) (*Graph, []EdgeHandle) {
	spt := NewGraph()
	for i := 0; i < g.NumNodes(); i++ {
		spt.AddNode()
	}

	var sptToOrig []EdgeHandle
	for v, e := range edgeTo {
		if e == invalidHandle {
			continue
		}
		from, _, _ := g.EdgeEndpoints(e)
		spt.AddEdge(from, NodeHandle(v), g.EdgeWeight(e))
		sptToOrig = append(sptToOrig, e)
	}
	return spt, sptToOrig
}

func checkSPTSingle(g *Graph, edgeTo []EdgeHandle) (Path, bool) {
	spt, sptToOrig := buildSPT(g, edgeTo)
	cycle, found := HasCycle(spt)
	if !found {
		return Path{}, false
	}
	return translatePath(g, cycle, sptToOrig), true
}

func checkSPTAll(g *Graph, edgeTo []EdgeHandle) []Path {
	spt, sptToOrig := buildSPT(g, edgeTo)
	cycles := FindCycles(spt)
	out := make([]Path, len(cycles))
	for i, c := range cycles {
		out[i] = translatePath(g, c, sptToOrig)
	}
	return out
}

// translatePath rebuilds a path discovered over an SPT into one over the
// original graph, mapping each SPT edge handle back to its source edge.
func translatePath(g *Graph, p Path, sptToOrig []EdgeHandle) Path {
	nodes := p.Nodes()
	out := NewPath(nodes[0])
	for _, eh := range p.Edges() {
		out.AddToPath(g, sptToOrig[eh])
	}
	return out
}
