package arb

import "testing"

func TestContentHash_IndependentOfWeightAndDirection(t *testing.T) {
	a := DecoratedEdge{Weight: 1.23, ProtocolType: ProtocolUniswapV2, NodeType: NodeTypeEVM, PoolAddress: "0xpool"}
	b := DecoratedEdge{Weight: -9.99, ProtocolType: ProtocolUniswapV2, NodeType: NodeTypeEVM, PoolAddress: "0xpool"}

	if a.ContentHash() != b.ContentHash() {
		t.Fatal("ContentHash must not depend on weight")
	}
}

func TestContentHash_DiffersByTriple(t *testing.T) {
	base := DecoratedEdge{ProtocolType: ProtocolUniswapV2, NodeType: NodeTypeEVM, PoolAddress: "0xpool"}

	byProtocol := base
	byProtocol.ProtocolType = 2
	byNodeType := base
	byNodeType.NodeType = NodeTypeSolana
	byPool := base
	byPool.PoolAddress = "0xother"

	hashes := map[[32]byte]bool{base.ContentHash(): true}
	for _, e := range []DecoratedEdge{byProtocol, byNodeType, byPool} {
		if hashes[e.ContentHash()] {
			t.Fatalf("expected distinct hash for %+v", e)
		}
		hashes[e.ContentHash()] = true
	}
}
