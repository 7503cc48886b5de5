// Package adaptor defines the contract external DEX adaptors must satisfy to
// feed an internal/arb.ArbitrageService, per spec.md §4.6. The core itself
// never imports a concrete adaptor; it only consumes UpsertPath calls.
package adaptor

import (
	"context"
	"math/big"
)

// PoolRef identifies one on-chain pool the adaptor has discovered.
type PoolRef struct {
	Address string
	Token0  string
	Token1  string
}

// PoolSource discovers pools among a set of monitored assets and reports
// their reserves, per spec.md §4.6 steps 1-2. A concrete implementation
// (e.g. internal/adaptor/uniswapv2) computes directional rates from the
// reserves it returns and drives ArbitrageService.UpsertPath; PoolSource
// itself never calls UpsertPath.
type PoolSource interface {
	// Name identifies the protocol this source speaks, e.g. "uniswap-v2".
	Name() string

	// DiscoverPools enumerates every pool among the monitored assets, via a
	// factory registry query or equivalent.
	DiscoverPools(ctx context.Context) ([]PoolRef, error)

	// FetchReserves returns the current reserves for one pool, in the same
	// token0/token1 order DiscoverPools reported.
	FetchReserves(ctx context.Context, pool PoolRef) (reserve0, reserve1 *big.Int, err error)
}
