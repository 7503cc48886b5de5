package uniswapv2

import (
	"math/big"
	"testing"
)

func bigReserve(v int64) *big.Int { return big.NewInt(v) }

func TestCalculateMaxInput_PositiveForHealthyReserves(t *testing.T) {
	legs := []leg{
		{reserveIn: bigReserve(1_000_000_000), reserveOut: bigReserve(1_000_000_000)},
		{reserveIn: bigReserve(1_000_000_000), reserveOut: bigReserve(1_000_000_000)},
	}
	maxInput := calculateMaxInput(legs)
	if maxInput == nil || maxInput.Sign() <= 0 {
		t.Fatalf("expected positive max input, got %v", maxInput)
	}
}

func TestCalculateMaxInput_EmptyLegs(t *testing.T) {
	if got := calculateMaxInput(nil); got != nil {
		t.Fatalf("expected nil for empty legs, got %v", got)
	}
}

func TestSimulateSwaps_ChainsThroughLegs(t *testing.T) {
	legs := []leg{
		{reserveIn: bigReserve(1_000_000_000), reserveOut: bigReserve(1_000_000_000)},
		{reserveIn: bigReserve(1_000_000_000), reserveOut: bigReserve(1_000_000_000)},
	}
	amounts, out := simulateSwaps(legs, big.NewInt(1_000_000))
	if out == nil || out.Sign() <= 0 {
		t.Fatalf("expected positive output, got %v", out)
	}
	if len(amounts) != len(legs)+1 {
		t.Fatalf("expected %d amounts, got %d", len(legs)+1, len(amounts))
	}
	// Two legs, each taking a 0.3% fee, must leave less than the input.
	if out.Cmp(big.NewInt(1_000_000)) >= 0 {
		t.Fatalf("expected fee-eroded output below input, got %s", out)
	}
}

func TestSimulateSwaps_DegenerateLegFails(t *testing.T) {
	legs := []leg{{reserveIn: bigReserve(0), reserveOut: bigReserve(0)}}
	_, out := simulateSwaps(legs, big.NewInt(1000))
	if out != nil {
		t.Fatalf("expected nil output for degenerate leg, got %s", out)
	}
}

func TestRatio(t *testing.T) {
	r := ratio(big.NewInt(110), big.NewInt(100))
	if r < 1.09 || r > 1.11 {
		t.Fatalf("expected ~1.1, got %f", r)
	}
}
