package uniswapv2

import (
	"math"
	"math/big"
)

// unitIn is the unit-scale input amount spec.md §4.6 names for the rate
// computation: in = 10^18.
var unitIn = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

const (
	// maxWeight/minWeight clamp -ln(rate) away from +/-Inf when a reserve is
	// degenerate, so UpsertPath's finite-weight validation never rejects a
	// live quote outright. Grounded on internal/graph/weight.go's clamp.
	maxWeight = 230.0
	minWeight = -230.0
)

// swapOutput computes the constant-product output amount for amountIn
// against (reserveIn, reserveOut), honoring Uniswap-V2's fixed 0.3% fee:
// out = (in*997*Rout) / (Rin*1000 + in*997), per spec.md §4.6 step 2.
// It returns nil when either reserve is zero or negative.
func swapOutput(amountIn, reserveIn, reserveOut *big.Int) *big.Int {
	if reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return nil
	}
	amountInWithFee := new(big.Int).Mul(amountIn, big.NewInt(FeeNumerator))

	numerator := new(big.Int).Mul(amountInWithFee, reserveOut)

	denominator := new(big.Int).Mul(reserveIn, big.NewInt(FeeDenominator))
	denominator.Add(denominator, amountInWithFee)

	if denominator.Sign() <= 0 {
		return nil
	}
	return new(big.Int).Div(numerator, denominator)
}

// DirectionalRate returns the effective out-per-in exchange rate for a unit
// input against (reserveIn, reserveOut), or ok=false if the reserves are
// degenerate (zero or negative).
func DirectionalRate(reserveIn, reserveOut *big.Int) (rate float64, ok bool) {
	if reserveIn == nil || reserveOut == nil || reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return 0, false
	}

	out := swapOutput(unitIn, reserveIn, reserveOut)
	if out == nil || out.Sign() <= 0 {
		return 0, false
	}

	r := new(big.Float).Quo(new(big.Float).SetInt(out), new(big.Float).SetInt(unitIn))
	f, _ := r.Float64()
	if f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// RateToWeight applies the multiplicative-to-additive transform spec.md §9
// calls out as the fix the adaptor must apply: w = -ln(r). The result is
// clamped to [minWeight, maxWeight] so a near-zero or enormous rate never
// produces a non-finite weight.
func RateToWeight(rate float64) float64 {
	w := -math.Log(rate)
	switch {
	case math.IsNaN(w):
		return maxWeight
	case w > maxWeight:
		return maxWeight
	case w < minWeight:
		return minWeight
	default:
		return w
	}
}
