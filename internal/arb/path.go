package arb

import "math"

// Path is an ordered walk over node handles with a parallel sequence of the
// edge handles used to traverse them, plus the accumulated weight. Every
// added edge must start at the path's current tail node.
type Path struct {
	weight float64
	nodes  []NodeHandle
	edges  []EdgeHandle
}

// NewPath returns an empty path rooted at source, weight zero.
func NewPath(source NodeHandle) Path {
	return Path{nodes: []NodeHandle{source}}
}

// Tail returns the path's current terminal node.
func (p Path) Tail() NodeHandle {
	return p.nodes[len(p.nodes)-1]
}

// AddToPath extends the path by one edge. It panics if edge does not start
// at the path's current tail — this indicates a bug in the caller, not a
// recoverable condition (spec: "assertion — indicates a bug, abort").
func (p *Path) AddToPath(g *Graph, edge EdgeHandle) {
	from, to, ok := g.EdgeEndpoints(edge)
	if !ok {
		panic("arb: AddToPath: unknown edge handle")
	}
	if from != p.Tail() {
		panic("arb: AddToPath: edge does not start at path tail")
	}

	p.weight += g.EdgeWeight(edge)
	p.edges = append(p.edges, edge)
	p.nodes = append(p.nodes, to)
}

// Nodes returns a copy of the path's node sequence.
func (p Path) Nodes() []NodeHandle {
	out := make([]NodeHandle, len(p.nodes))
	copy(out, p.nodes)
	return out
}

// Edges returns a copy of the path's edge sequence.
func (p Path) Edges() []EdgeHandle {
	out := make([]EdgeHandle, len(p.edges))
	copy(out, p.edges)
	return out
}

// Length returns the number of edges in the path.
func (p Path) Length() int {
	return len(p.edges)
}

// Weight returns the path's accumulated weight.
func (p Path) Weight() float64 {
	return p.weight
}

// Equal reports bitwise equality of weight — the same NaN payload compares
// equal to itself, but not to a numerically equal weight with different
// bits. Deliberate, see Path's cycle-dedup contract.
func (p Path) Equal(o Path) bool {
	return math.Float64bits(p.weight) == math.Float64bits(o.weight)
}

// Less imposes path ordering by weight alone, using a total order so NaN
// sorts deterministically.
func (p Path) Less(o Path) bool {
	return totalCmp(p.weight, o.weight) < 0
}

// comparePaths is the three-way form of Less: negative, zero or positive as
// a's weight sorts before, equal to, or after b's under the total order.
func comparePaths(a, b Path) int {
	return totalCmp(a.weight, b.weight)
}
