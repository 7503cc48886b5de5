package arb

import "testing"

func TestPath_AddToPath(t *testing.T) {
	g := NewGraph()
	a := g.AddNode()
	b := g.AddNode()
	ab := g.AddEdge(a, b, 0.5)

	p := NewPath(a)
	p.AddToPath(g, ab)

	if p.Length() != 1 {
		t.Fatalf("expected length 1, got %d", p.Length())
	}
	if p.Weight() != 0.5 {
		t.Fatalf("expected weight 0.5, got %v", p.Weight())
	}
	if p.Tail() != b {
		t.Fatalf("expected tail %d, got %d", b, p.Tail())
	}
}

// TestPath_ExtensionAssertion is E5: extending a path with an edge that does
// not start at the path's current tail must panic.
func TestPath_ExtensionAssertion(t *testing.T) {
	g := NewGraph()
	a := g.AddNode()
	b := g.AddNode()
	c := g.AddNode()
	d := g.AddNode()
	ab := g.AddEdge(a, b, 1)
	cd := g.AddEdge(c, d, 1)

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic extending a path with a non-contiguous edge")
		}
	}()

	p := NewPath(a)
	p.AddToPath(g, ab)
	p.AddToPath(g, cd) // should panic: cd.from (c) != p.Tail() (b)
}

func TestPath_BitwiseWeightEquality(t *testing.T) {
	g := NewGraph()
	a := g.AddNode()
	b := g.AddNode()
	e1 := g.AddEdge(a, b, 1.0)
	e2 := g.AddEdge(a, b, 1.0)

	p1 := NewPath(a)
	p1.AddToPath(g, e1)
	p2 := NewPath(a)
	p2.AddToPath(g, e2)

	if !p1.Equal(p2) {
		t.Fatal("paths with bitwise-identical weight must compare equal")
	}
}
