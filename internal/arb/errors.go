package arb

import "errors"

// ErrSelfLoop is returned by UpsertPath when n0 == n1: the core rejects
// self-loops outright rather than storing a degenerate edge.
var ErrSelfLoop = errors.New("arb: upsert rejected: n0 and n1 are the same node")

// ErrNonFiniteWeight is returned by UpsertPath when the candidate edge's
// weight is NaN or infinite.
var ErrNonFiniteWeight = errors.New("arb: upsert rejected: edge weight is not finite")
