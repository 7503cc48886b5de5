package arb

import (
	"fmt"
	"testing"
)

func newTestEdge(pool string, weight float64) DecoratedEdge {
	return DecoratedEdge{Weight: weight, ProtocolType: ProtocolUniswapV2, NodeType: NodeTypeEVM, PoolAddress: pool}
}

func TestUpsertPath_RejectsSelfLoop(t *testing.T) {
	s := NewArbitrageService()
	if _, err := s.UpsertPath("a", "a", newTestEdge("p", 1)); err != ErrSelfLoop {
		t.Fatalf("expected ErrSelfLoop, got %v", err)
	}
	if s.NodeCount() != 0 {
		t.Fatal("rejected upsert must not mutate the graph")
	}
}

func TestUpsertPath_RejectsNonFiniteWeight(t *testing.T) {
	s := NewArbitrageService()
	if _, err := s.UpsertPath("a", "b", newTestEdge("p", nan())); err != ErrNonFiniteWeight {
		t.Fatalf("expected ErrNonFiniteWeight, got %v", err)
	}
}

func nan() float64 {
	var zero float64
	return zero / zero
}

// TestUpsertPath_E4_ExtremalEdges exercises the five-upsert fixture from E4:
// weights {0.95, 1.05, 1.00, 1.10, 0.90} on pair (a,b), distinct pools. Only
// the extremes (0.90, 1.10) survive; 1.00 is rejected as interior.
func TestUpsertPath_E4_ExtremalEdges(t *testing.T) {
	s := NewArbitrageService()
	weights := []float64{0.95, 1.05, 1.00, 1.10, 0.90}
	wantChanged := []bool{true, true, false, true, true}

	for i, w := range weights {
		changed, err := s.UpsertPath("a", "b", newTestEdge(fmt.Sprintf("pool-%d", i), w))
		if err != nil {
			t.Fatalf("upsert %d: unexpected error %v", i, err)
		}
		if changed != wantChanged[i] {
			t.Fatalf("upsert %d (weight %v): expected changed=%v, got %v", i, w, wantChanged[i], changed)
		}
	}

	from, to := s.nodeByID["a"], s.nodeByID["b"]
	edges := s.graph.EdgesBetween(from, to)
	if len(edges) != 2 {
		t.Fatalf("expected exactly 2 surviving edges, got %d", len(edges))
	}

	got := map[float64]bool{s.graph.EdgeWeight(edges[0]): true, s.graph.EdgeWeight(edges[1]): true}
	for _, want := range []float64{0.90, 1.10} {
		if !got[want] {
			t.Fatalf("expected surviving weight %v, got weights %v", want, got)
		}
	}
}

// TestUpsertPath_E6_IdentityIndependentOfWeight is E6: two upserts sharing
// (protocol, node_type, pool) but different weight — the second is rejected
// and the stored weight is the first one's.
func TestUpsertPath_E6_IdentityIndependentOfWeight(t *testing.T) {
	s := NewArbitrageService()
	changed1, err := s.UpsertPath("a", "b", newTestEdge("shared-pool", 1.0))
	if err != nil || !changed1 {
		t.Fatalf("first upsert: changed=%v err=%v", changed1, err)
	}
	changed2, err := s.UpsertPath("a", "b", newTestEdge("shared-pool", 2.0))
	if err != nil {
		t.Fatalf("second upsert: unexpected error %v", err)
	}
	if changed2 {
		t.Fatal("second upsert with identical identity must return false")
	}

	from, to := s.nodeByID["a"], s.nodeByID["b"]
	edges := s.graph.EdgesBetween(from, to)
	if len(edges) != 1 || s.graph.EdgeWeight(edges[0]) != 1.0 {
		t.Fatalf("expected the first weight (1.0) to remain, got %v edges", edges)
	}
}

func TestUpsertPath_IdempotentOnExactRepeat(t *testing.T) {
	s := NewArbitrageService()
	edge := newTestEdge("p", 0.5)
	first, err := s.UpsertPath("a", "b", edge)
	if err != nil || !first {
		t.Fatalf("first upsert: changed=%v err=%v", first, err)
	}
	second, err := s.UpsertPath("a", "b", edge)
	if err != nil || second {
		t.Fatalf("repeat upsert must return false, got changed=%v err=%v", second, err)
	}
	if s.EdgeCount() != 1 {
		t.Fatalf("expected 1 edge, got %d", s.EdgeCount())
	}
}

// TestUpsertPath_OrderIndependence checks that the final extremal-edge set
// for a pair is the same regardless of the arrival order of the proposals.
func TestUpsertPath_OrderIndependence(t *testing.T) {
	weights := []float64{0.95, 1.05, 1.00, 1.10, 0.90}
	orders := [][]int{
		{0, 1, 2, 3, 4},
		{4, 3, 2, 1, 0},
		{2, 0, 4, 1, 3},
	}

	var finalSets [][]float64
	for _, order := range orders {
		s := NewArbitrageService()
		for _, i := range order {
			if _, err := s.UpsertPath("a", "b", newTestEdge(fmt.Sprintf("pool-%d", i), weights[i])); err != nil {
				t.Fatalf("upsert: %v", err)
			}
		}
		from, to := s.nodeByID["a"], s.nodeByID["b"]
		var ws []float64
		for _, e := range s.graph.EdgesBetween(from, to) {
			ws = append(ws, s.graph.EdgeWeight(e))
		}
		finalSets = append(finalSets, ws)
	}

	for i := 1; i < len(finalSets); i++ {
		if !sameFloatSet(finalSets[0], finalSets[i]) {
			t.Fatalf("order dependence detected: %v vs %v", finalSets[0], finalSets[i])
		}
	}
}

func sameFloatSet(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	count := map[float64]int{}
	for _, v := range a {
		count[v]++
	}
	for _, v := range b {
		count[v]--
	}
	for _, c := range count {
		if c != 0 {
			return false
		}
	}
	return true
}

func TestScan_BoundaryEmptyGraph(t *testing.T) {
	s := NewArbitrageService()
	if paths := s.ScanArbitragesQuick(); len(paths) != 0 {
		t.Fatalf("expected empty quick scan, got %d", len(paths))
	}
	if paths := s.ScanArbitrages(); len(paths) != 0 {
		t.Fatalf("expected empty full scan, got %d", len(paths))
	}
}

func TestScan_BoundarySingleEdgeNoCycle(t *testing.T) {
	s := NewArbitrageService()
	if _, err := s.UpsertPath("a", "b", newTestEdge("p", -1.0)); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if paths := s.ScanArbitragesQuick(); len(paths) != 0 {
		t.Fatalf("a single edge cannot be a cycle, got %d paths", len(paths))
	}
	if paths := s.ScanArbitrages(); len(paths) != 0 {
		t.Fatalf("a single edge cannot be a cycle, got %d paths", len(paths))
	}
}

// TestScan_BoundaryTwoNodeNegativeCycle: w(a,b) + w(b,a) < 0 yields exactly
// one 2-edge cycle from the quick scan.
func TestScan_BoundaryTwoNodeNegativeCycle(t *testing.T) {
	s := NewArbitrageService()
	if _, err := s.UpsertPath("a", "b", newTestEdge("p1", 0.4)); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := s.UpsertPath("b", "a", newTestEdge("p2", -0.9)); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	paths := s.ScanArbitragesQuick()
	if len(paths) != 1 {
		t.Fatalf("expected exactly 1 cycle, got %d", len(paths))
	}
	if len(paths[0].Edges) != 2 {
		t.Fatalf("expected a 2-edge cycle, got %d edges", len(paths[0].Edges))
	}
	if paths[0].Weight >= 0 {
		t.Fatalf("expected negative weight, got %v", paths[0].Weight)
	}
}

func TestDecoratePath_ResolvesNodesAndEdges(t *testing.T) {
	s := NewArbitrageService()
	if _, err := s.UpsertPath("usdc", "weth", newTestEdge("pool-a", 0.6)); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := s.UpsertPath("weth", "usdc", newTestEdge("pool-b", -0.9)); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	paths := s.ScanArbitragesQuick()
	if len(paths) != 1 {
		t.Fatalf("expected 1 path, got %d", len(paths))
	}
	p := paths[0]
	if len(p.Nodes) != 3 {
		t.Fatalf("expected 3 node ids, got %d", len(p.Nodes))
	}
	for _, id := range p.Nodes {
		if id != "usdc" && id != "weth" {
			t.Fatalf("unexpected node id %q", id)
		}
	}
	for _, e := range p.Edges {
		if e.PoolAddress != "pool-a" && e.PoolAddress != "pool-b" {
			t.Fatalf("unexpected pool address %q", e.PoolAddress)
		}
	}
}
