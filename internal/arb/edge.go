package arb

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"
)

// Protocol and node type enums, matching the conventions adaptors use when
// constructing DecoratedEdge values.
const (
	ProtocolUniswapV2 = 1

	NodeTypeEVM    = 1
	NodeTypeSolana = 2
)

// DecoratedEdge is the edge value type the core stores. Identity is derived
// from ProtocolType, NodeType and PoolAddress only — never from Weight or
// endpoints, see ContentHash.
type DecoratedEdge struct {
	Weight       float64
	ProtocolType int
	NodeType     int
	PoolAddress  string
	Data         string
}

// ContentHash returns the edge's 256-bit content identity: a collision
// resistant hash over (ProtocolType, NodeType, PoolAddress), independent of
// weight and endpoints. Two edges with the same ContentHash are considered
// the same edge regardless of refreshed weight; ArbitrageService scopes its
// identity index per ordered node pair, so the same ContentHash in the two
// directions of a pool names two distinct edges.
//
// Integer fields are serialized native-endian fixed-width, matching the
// source engine's BLAKE3-based identity; blake2b-256 is used here since no
// BLAKE3 binding is available, but both are 256-bit collision-resistant
// hashes of the same design lineage.
func (e DecoratedEdge) ContentHash() [32]byte {
	var buf [16]byte
	binary.NativeEndian.PutUint64(buf[0:8], uint64(e.ProtocolType))
	binary.NativeEndian.PutUint64(buf[8:16], uint64(e.NodeType))

	h, err := blake2b.New256(nil)
	if err != nil {
		// blake2b.New256 only fails for an oversized key; nil key never does.
		panic(err)
	}
	h.Write(buf[:])
	h.Write([]byte(e.PoolAddress))

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
