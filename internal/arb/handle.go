// Package arb implements the in-memory arbitrage graph store and the cycle
// detection engine that operates on it.
package arb

// NodeHandle is a stable reference to a node. Handles are never invalidated
// by graph mutation; they are plain indices into the graph's node slot.
type NodeHandle int

// EdgeHandle is a stable reference to an edge. Weight mutation never
// invalidates an EdgeHandle; only the (unsupported) removal of an edge
// would.
type EdgeHandle int

const invalidHandle = -1
