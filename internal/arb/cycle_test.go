package arb

import "testing"

func TestHasCycle_EmptyGraph(t *testing.T) {
	g := NewGraph()
	if _, found := HasCycle(g); found {
		t.Fatal("empty graph must not report a cycle")
	}
}

func TestHasCycle_SingleEdgeNoCycle(t *testing.T) {
	g := NewGraph()
	a := g.AddNode()
	b := g.AddNode()
	g.AddEdge(a, b, -1)

	if _, found := HasCycle(g); found {
		t.Fatal("a single edge cannot form a cycle")
	}
}

func TestHasCycle_TwoNodeCycle(t *testing.T) {
	g := NewGraph()
	a := g.AddNode()
	b := g.AddNode()
	g.AddEdge(a, b, 1)
	g.AddEdge(b, a, 1)

	p, found := HasCycle(g)
	if !found {
		t.Fatal("expected a cycle")
	}
	if p.Length() != 2 {
		t.Fatalf("expected a 2-edge cycle, got %d edges", p.Length())
	}
}

// TestFindCycles_E3_OverlappingCycles is E3: 5 nodes, edges
// (0,1),(1,2),(2,3),(3,4),(4,1),(2,4), all weight 1. Exactly 2 elementary
// cycles, none negative.
func TestFindCycles_E3_OverlappingCycles(t *testing.T) {
	g := NewGraph()
	nodes := make([]NodeHandle, 5)
	for i := range nodes {
		nodes[i] = g.AddNode()
	}
	type e struct{ from, to int }
	for _, edge := range []e{{0, 1}, {1, 2}, {2, 3}, {3, 4}, {4, 1}, {2, 4}} {
		g.AddEdge(nodes[edge.from], nodes[edge.to], 1)
	}

	if _, found := HasCycle(g); !found {
		t.Fatal("expected has_cycle = true")
	}

	cycles := FindCycles(g)
	if len(cycles) != 2 {
		t.Fatalf("expected exactly 2 elementary cycles, got %d", len(cycles))
	}

	neg := AllNegativeCycles0(g)
	if len(neg) != 0 {
		t.Fatalf("expected no negative cycles, got %d", len(neg))
	}
}

// buildEightNodeGraph wires up the 8-node fixture shared by E1/E2, returning
// the Graph and its node handles indexed 0..7.
func buildEightNodeGraph(t *testing.T, edges [][3]float64) (*Graph, []NodeHandle) {
	t.Helper()
	g := NewGraph()
	nodes := make([]NodeHandle, 8)
	for i := range nodes {
		nodes[i] = g.AddNode()
	}
	for _, e := range edges {
		from, to, w := int(e[0]), int(e[1]), e[2]
		g.AddEdge(nodes[from], nodes[to], w)
	}
	return g, nodes
}

// TestScan_E1_PositiveDAG is E1: an 8-node DAG with no cycle at all.
func TestScan_E1_PositiveDAG(t *testing.T) {
	edges := [][3]float64{
		{5, 4, .35}, {4, 7, .37}, {5, 7, .28}, {5, 1, .32}, {4, 0, .38},
		{0, 2, .26}, {3, 7, .39}, {1, 3, .29}, {7, 2, .34}, {6, 2, .40},
		{3, 6, .52}, {6, 0, .58}, {6, 4, .93},
	}
	g, _ := buildEightNodeGraph(t, edges)

	if _, found := HasCycle(g); found {
		t.Fatal("expected has_cycle = false for E1")
	}
	if _, found := NegativeCycleQuick(g); found {
		t.Fatal("expected scan_arbitrages_quick to find nothing for E1")
	}
	if cycles := FindCycles(g); len(cycles) != 0 {
		t.Fatalf("expected find_cycles empty for E1, got %d", len(cycles))
	}
}

// TestScan_E2_TwoCycleNegative is E2: the same 8 nodes with a different edge
// set that introduces exactly two negative cycles.
func TestScan_E2_TwoCycleNegative(t *testing.T) {
	edges := [][3]float64{
		{4, 5, .35}, {5, 4, -.66}, {4, 7, .37}, {5, 7, .28}, {7, 5, .28},
		{5, 1, .32}, {0, 4, .38}, {0, 2, .26}, {7, 3, .39}, {1, 3, .29},
		{2, 7, .34}, {6, 2, .40}, {3, 6, .52}, {6, 0, .58}, {6, 4, .93},
	}
	g, _ := buildEightNodeGraph(t, edges)

	p, found := NegativeCycleQuick(g)
	if !found {
		t.Fatal("expected scan_arbitrages_quick to find a cycle for E2")
	}
	if len(p.Nodes()) != 3 || p.Length() != 2 {
		t.Fatalf("expected a 3-node, 2-edge cycle, got %d nodes / %d edges", len(p.Nodes()), p.Length())
	}
	if p.Weight() >= 0 {
		t.Fatalf("expected negative weight, got %v", p.Weight())
	}

	neg0 := AllNegativeCycles0(g)
	if len(neg0) != 2 {
		t.Fatalf("expected exactly 2 negative cycles from get_all_negative_cycles_0, got %d", len(neg0))
	}
	neg1 := AllNegativeCycles1(g)
	if len(neg1) != 2 {
		t.Fatalf("expected exactly 2 negative cycles from get_all_negative_cycles_1, got %d", len(neg1))
	}
}
