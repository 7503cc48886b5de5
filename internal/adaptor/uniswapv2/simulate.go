package uniswapv2

import (
	"context"
	"fmt"
	"math/big"

	"arbengine/internal/adaptor"
	"arbengine/internal/arb"
)

// SimulationResult is an informational sizing estimate for one detected
// cycle: how much of the starting asset a trader could push through it and
// what it would return. It is not trade execution (spec.md's Non-goals
// exclude executing trades); it only estimates, grounded on the teacher's
// internal/detector/simulator.go rewritten against arb.DecoratedPath instead
// of the teacher's Cycle/graph.Edge.
type SimulationResult struct {
	MaxInputWei        *big.Int
	EstimatedOutputWei *big.Int
	EstimatedProfitWei *big.Int
	ProfitFactor       float64
	IsProfitable       bool
}

// notProfitable is returned whenever the cycle cannot be sized at all,
// rather than nil, so callers can branch on IsProfitable uniformly.
var notProfitable = &SimulationResult{IsProfitable: false}

// SimulateCycle estimates the maximum input a path can absorb and the
// resulting profit, by re-fetching each pool's current reserves and walking
// the constant-product swap formula edge by edge.
func (c *Client) SimulateCycle(ctx context.Context, path arb.DecoratedPath, minProfitFactor float64) (*SimulationResult, error) {
	if len(path.Edges) < 2 {
		return notProfitable, nil
	}

	legs, err := c.resolveLegs(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("resolving pool reserves: %w", err)
	}

	maxInput := calculateMaxInput(legs)
	if maxInput == nil || maxInput.Sign() <= 0 {
		return notProfitable, nil
	}

	_, output := simulateSwaps(legs, maxInput)
	if output == nil || output.Sign() <= 0 {
		return notProfitable, nil
	}

	profit := new(big.Int).Sub(output, maxInput)
	profitFactor := ratio(output, maxInput)

	return &SimulationResult{
		MaxInputWei:        maxInput,
		EstimatedOutputWei: output,
		EstimatedProfitWei: profit,
		ProfitFactor:       profitFactor,
		IsProfitable:       profitFactor >= minProfitFactor,
	}, nil
}

// leg is one hop's reserves, oriented (reserveIn, reserveOut) for the
// direction the path actually traverses.
type leg struct {
	reserveIn, reserveOut *big.Int
}

// resolveLegs fetches current reserves for every edge in path and orients
// them using the edge's Data field ("0->1" or "1->0"), which records which
// pool token the path enters on. A live-feed-sourced edge's PoolAddress may
// carry a poolAddressKey update discriminator (feed.go), so the on-chain
// address is recovered via basePoolAddress before dialing the pool.
func (c *Client) resolveLegs(ctx context.Context, path arb.DecoratedPath) ([]leg, error) {
	legs := make([]leg, len(path.Edges))
	for i, e := range path.Edges {
		addr := basePoolAddress(e.PoolAddress)
		r0, r1, err := c.FetchReserves(ctx, adaptor.PoolRef{Address: addr})
		if err != nil {
			return nil, fmt.Errorf("pool %s: %w", addr, err)
		}
		if e.Data == "1->0" {
			legs[i] = leg{reserveIn: r1, reserveOut: r0}
		} else {
			legs[i] = leg{reserveIn: r0, reserveOut: r1}
		}
	}
	return legs, nil
}

// calculateMaxInput starts from 1% of the first leg's input reserve, then
// walks the cycle scaling the input down whenever a hop's output would
// exceed 10% of that hop's output reserve (excessive slippage), restarting
// the walk each time it scales down.
func calculateMaxInput(legs []leg) *big.Int {
	if len(legs) == 0 {
		return nil
	}

	maxInput := new(big.Int).Div(legs[0].reserveIn, big.NewInt(100))

	for attempt := 0; attempt < len(legs)+1; attempt++ {
		current := new(big.Int).Set(maxInput)
		scaled := false

		for _, l := range legs {
			out := swapOutput(current, l.reserveIn, l.reserveOut)
			if out == nil || out.Sign() <= 0 {
				maxInput.Div(maxInput, big.NewInt(2))
				scaled = true
				break
			}

			maxOut := new(big.Int).Div(l.reserveOut, big.NewInt(10))
			if out.Cmp(maxOut) > 0 {
				scale := new(big.Float).Quo(new(big.Float).SetInt(maxOut), new(big.Float).SetInt(out))
				scaledInput := new(big.Float).Mul(new(big.Float).SetInt(maxInput), scale)
				scaledInput.Int(maxInput)
				scaled = true
				break
			}

			current = out
		}

		if !scaled {
			break
		}
		if maxInput.Sign() <= 0 {
			return nil
		}
	}

	return maxInput
}

// simulateSwaps walks legs with a concrete input amount and returns the
// amount at every hop plus the final output.
func simulateSwaps(legs []leg, inputAmount *big.Int) ([]*big.Int, *big.Int) {
	amounts := make([]*big.Int, len(legs)+1)
	amounts[0] = new(big.Int).Set(inputAmount)

	current := new(big.Int).Set(inputAmount)
	for i, l := range legs {
		out := swapOutput(current, l.reserveIn, l.reserveOut)
		if out == nil || out.Sign() <= 0 {
			return nil, nil
		}
		amounts[i+1] = out
		current = out
	}
	return amounts, current
}

func ratio(a, b *big.Int) float64 {
	f := new(big.Float).Quo(new(big.Float).SetInt(a), new(big.Float).SetInt(b))
	v, _ := f.Float64()
	return v
}

// SimulateCycle is also exposed as a free function for callers that only
// have a PoolSource, not a concrete *Client.
func SimulateCycle(ctx context.Context, src adaptor.PoolSource, path arb.DecoratedPath, minProfitFactor float64) (*SimulationResult, error) {
	c, ok := src.(*Client)
	if !ok {
		return nil, fmt.Errorf("uniswapv2.SimulateCycle: source is not a *uniswapv2.Client")
	}
	return c.SimulateCycle(ctx, path, minProfitFactor)
}
