package arb

import (
	"math"
	"sync"
)

// DecoratedPath is a Path with its node handles and edge handles resolved
// back to their external string identifiers and stored DecoratedEdge
// values, ready to hand to a caller outside the core.
type DecoratedPath struct {
	Nodes  []string
	Edges  []DecoratedEdge
	Weight float64
}

// pairKey scopes the edge-identity index to one ordered node pair, per the
// design note that identity must be stable across pair refreshes even
// though ContentHash excludes endpoints.
type pairKey struct {
	from, to NodeHandle
}

// ArbitrageService is the façade over a Graph: node-id interning, edge-hash
// deduplication, the extremal-edge upsert policy, and scan entrypoints. The
// core itself is single-threaded by design (spec.md §5); ArbitrageService
// serializes access with a mutex so external callers (the IPC server, the
// adaptor's feed goroutine) never need their own locking.
type ArbitrageService struct {
	mu sync.Mutex

	graph *Graph

	nodeByID map[string]NodeHandle
	idByNode map[NodeHandle]string

	edgeHashIndex map[pairKey]map[[32]byte]EdgeHandle
	decorated     map[EdgeHandle]DecoratedEdge
}

// NewArbitrageService returns an empty service.
func NewArbitrageService() *ArbitrageService {
	return &ArbitrageService{
		graph:         NewGraph(),
		nodeByID:      make(map[string]NodeHandle),
		idByNode:      make(map[NodeHandle]string),
		edgeHashIndex: make(map[pairKey]map[[32]byte]EdgeHandle),
		decorated:     make(map[EdgeHandle]DecoratedEdge),
	}
}

// UpsertPath interns n0/n1 and applies the extremal-edge upsert policy for
// edge. It returns true iff the graph was structurally or semantically
// changed. A duplicate edge identity (same ContentHash already known at this
// ordered pair) returns false even if the candidate's weight differs — edge
// identity is metadata-only, and a weight refresh must come through a
// distinct identity.
func (s *ArbitrageService) UpsertPath(n0, n1 string, edge DecoratedEdge) (bool, error) {
	if n0 == n1 {
		return false, ErrSelfLoop
	}
	if math.IsNaN(edge.Weight) || math.IsInf(edge.Weight, 0) {
		return false, ErrNonFiniteWeight
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	hash := edge.ContentHash()
	from := s.intern(n0)
	to := s.intern(n1)
	pair := pairKey{from: from, to: to}

	idx := s.edgeHashIndex[pair]
	if idx == nil {
		idx = make(map[[32]byte]EdgeHandle)
		s.edgeHashIndex[pair] = idx
	}
	if _, known := idx[hash]; known {
		return false, nil
	}

	existing := s.graph.EdgesBetween(from, to)
	switch len(existing) {
	case 0, 1:
		eh := s.graph.AddEdge(from, to, edge.Weight)
		idx[hash] = eh
		s.decorated[eh] = edge
		return true, nil
	default:
		lo, hi := existing[0], existing[1]
		if s.graph.EdgeWeight(hi) < s.graph.EdgeWeight(lo) {
			lo, hi = hi, lo
		}
		switch {
		case edge.Weight < s.graph.EdgeWeight(lo):
			s.replaceEdge(pair, lo, hash, edge)
			return true, nil
		case edge.Weight > s.graph.EdgeWeight(hi):
			s.replaceEdge(pair, hi, hash, edge)
			return true, nil
		default:
			return false, nil
		}
	}
}

// replaceEdge performs the in-place extremal replacement: the edge handle is
// reused (weight mutated via the stable handle, never removed and re-added),
// and the hash index is updated to drop the old identity and record the new
// one.
func (s *ArbitrageService) replaceEdge(pair pairKey, handle EdgeHandle, newHash [32]byte, edge DecoratedEdge) {
	old := s.decorated[handle]
	delete(s.edgeHashIndex[pair], old.ContentHash())

	s.graph.SetWeight(handle, edge.Weight)
	s.decorated[handle] = edge
	s.edgeHashIndex[pair][newHash] = handle
}

func (s *ArbitrageService) intern(id string) NodeHandle {
	if h, ok := s.nodeByID[id]; ok {
		return h
	}
	h := s.graph.AddNode()
	s.nodeByID[id] = h
	s.idByNode[h] = id
	return h
}

// ScanArbitragesQuick returns either an empty slice or a single path, the
// first negative cycle NegativeCycleQuick finds.
func (s *ArbitrageService) ScanArbitragesQuick() []DecoratedPath {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, found := NegativeCycleQuick(s.graph)
	if !found {
		return nil
	}
	return []DecoratedPath{s.decoratePath(p)}
}

// ScanArbitrages returns every negative elementary cycle, sorted ascending
// by weight, undeduplicated across rotations.
func (s *ArbitrageService) ScanArbitrages() []DecoratedPath {
	s.mu.Lock()
	defer s.mu.Unlock()

	cycles := AllNegativeCycles0(s.graph)
	out := make([]DecoratedPath, len(cycles))
	for i, c := range cycles {
		out[i] = s.decoratePath(c)
	}
	return out
}

// ScanArbitragesSparse is the SPT-enumeration variant (§4.4.5): cheaper on
// large graphs since Johnson's algorithm only ever runs over the sparse
// shortest-path tree rather than the full graph, at the cost of a weaker,
// weight-only dedup.
func (s *ArbitrageService) ScanArbitragesSparse() []DecoratedPath {
	s.mu.Lock()
	defer s.mu.Unlock()

	cycles := AllNegativeCycles1(s.graph)
	out := make([]DecoratedPath, len(cycles))
	for i, c := range cycles {
		out[i] = s.decoratePath(c)
	}
	return out
}

// NodeCount returns the number of interned nodes.
func (s *ArbitrageService) NodeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.NumNodes()
}

// EdgeCount returns the number of stored edges.
func (s *ArbitrageService) EdgeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.NumEdges()
}

// decoratePath resolves a Path's node and edge handles back to external
// identifiers and DecoratedEdge values. Both lookups must succeed by
// invariant; failure indicates a bug in the core, not a recoverable error.
func (s *ArbitrageService) decoratePath(p Path) DecoratedPath {
	nodes := p.Nodes()
	out := DecoratedPath{
		Nodes:  make([]string, len(nodes)),
		Edges:  make([]DecoratedEdge, len(p.Edges())),
		Weight: p.Weight(),
	}
	for i, n := range nodes {
		id, ok := s.idByNode[n]
		if !ok {
			panic("arb: decoratePath: missing node identifier for handle")
		}
		out.Nodes[i] = id
	}
	for i, e := range p.Edges() {
		de, ok := s.decorated[e]
		if !ok {
			panic("arb: decoratePath: missing decorated edge for handle")
		}
		out.Edges[i] = de
	}
	return out
}
