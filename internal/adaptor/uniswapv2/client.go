// Package uniswapv2 is a concrete internal/adaptor.PoolSource for
// Uniswap-V2-shaped pools: a factory contract enumerating pair addresses,
// and pairs exposing getReserves/token0/token1, with the fixed 0.3% constant
// product fee.
package uniswapv2

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"arbengine/internal/adaptor"
	"arbengine/internal/chain"
)

// Factory ABI: only the functions the adaptor needs.
const factoryABIJSON = `[
	{
		"inputs": [],
		"name": "allPairsLength",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"name": "allPairs",
		"outputs": [{"internalType": "address", "name": "", "type": "address"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

// Pair ABI: only the functions the adaptor needs.
const pairABIJSON = `[
	{
		"inputs": [],
		"name": "getReserves",
		"outputs": [
			{"internalType": "uint112", "name": "_reserve0", "type": "uint112"},
			{"internalType": "uint112", "name": "_reserve1", "type": "uint112"},
			{"internalType": "uint32", "name": "_blockTimestampLast", "type": "uint32"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "token0",
		"outputs": [{"internalType": "address", "name": "", "type": "address"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "token1",
		"outputs": [{"internalType": "address", "name": "", "type": "address"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

const (
	// multicallBatchSize bounds how many contract calls ride in one
	// Multicall3 aggregate3 round trip.
	multicallBatchSize = 100

	// FeeNumerator/FeeDenominator are Uniswap-V2's fixed 0.3% swap fee,
	// applied as out = (in*997*Rout) / (Rin*1000 + in*997).
	FeeNumerator   = 997
	FeeDenominator = 1000
)

// Client is a uniswapv2 adaptor.PoolSource backed by a rate-limited RPC
// client, grounded on the teacher's pkg/dex/aerodrome/client.go multicall
// batching shape.
type Client struct {
	chain   *chain.Client
	factory common.Address
}

// NewClient returns a Client that discovers pools from the given
// Uniswap-V2-style factory address.
func NewClient(c *chain.Client, factoryAddress string) *Client {
	return &Client{
		chain:   c,
		factory: common.HexToAddress(factoryAddress),
	}
}

// Name identifies this adaptor's protocol.
func (c *Client) Name() string { return "uniswap-v2" }

// DiscoverPools enumerates every pair the factory has created.
func (c *Client) DiscoverPools(ctx context.Context) ([]adaptor.PoolRef, error) {
	count, err := c.pairsLength(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching pair count: %w", err)
	}

	addresses, err := c.fetchPairAddresses(ctx, count)
	if err != nil {
		return nil, fmt.Errorf("fetching pair addresses: %w", err)
	}

	return c.fetchPairTokens(ctx, addresses)
}

// FetchReserves returns the current reserves for one pair, in the
// token0/token1 order DiscoverPools reported.
func (c *Client) FetchReserves(ctx context.Context, pool adaptor.PoolRef) (*big.Int, *big.Int, error) {
	data, err := pairABI.Pack("getReserves")
	if err != nil {
		return nil, nil, fmt.Errorf("packing getReserves: %w", err)
	}

	result, err := c.chain.CallContract(ctx, common.HexToAddress(pool.Address), data)
	if err != nil {
		return nil, nil, err
	}

	var reserves struct {
		Reserve0           *big.Int
		Reserve1           *big.Int
		BlockTimestampLast *big.Int
	}
	if err := pairABI.UnpackIntoInterface(&reserves, "getReserves", result); err != nil {
		return nil, nil, fmt.Errorf("unpacking getReserves: %w", err)
	}

	return reserves.Reserve0, reserves.Reserve1, nil
}

func (c *Client) pairsLength(ctx context.Context) (uint64, error) {
	data, err := factoryABI.Pack("allPairsLength")
	if err != nil {
		return 0, fmt.Errorf("packing allPairsLength: %w", err)
	}

	result, err := c.chain.CallContract(ctx, c.factory, data)
	if err != nil {
		return 0, err
	}

	var length *big.Int
	if err := factoryABI.UnpackIntoInterface(&length, "allPairsLength", result); err != nil {
		return 0, fmt.Errorf("unpacking allPairsLength: %w", err)
	}
	return length.Uint64(), nil
}

func (c *Client) fetchPairAddresses(ctx context.Context, count uint64) ([]common.Address, error) {
	addresses := make([]common.Address, 0, count)

	for start := uint64(0); start < count; start += multicallBatchSize {
		end := start + multicallBatchSize
		if end > count {
			end = count
		}

		calls := make([]chain.Call3, end-start)
		for i := start; i < end; i++ {
			data, err := factoryABI.Pack("allPairs", new(big.Int).SetUint64(i))
			if err != nil {
				return nil, fmt.Errorf("packing allPairs call: %w", err)
			}
			calls[i-start] = chain.Call3{Target: c.factory, CallData: data}
		}

		results, err := c.chain.BatchCallContract(ctx, calls)
		if err != nil {
			return nil, fmt.Errorf("batch call at index %d: %w", start, err)
		}

		for _, r := range results {
			if !r.Success || len(r.Data) == 0 {
				continue
			}
			var addr common.Address
			if err := factoryABI.UnpackIntoInterface(&addr, "allPairs", r.Data); err != nil {
				continue
			}
			addresses = append(addresses, addr)
		}
	}

	return addresses, nil
}

func (c *Client) fetchPairTokens(ctx context.Context, addresses []common.Address) ([]adaptor.PoolRef, error) {
	token0Data, err := pairABI.Pack("token0")
	if err != nil {
		return nil, fmt.Errorf("packing token0: %w", err)
	}
	token1Data, err := pairABI.Pack("token1")
	if err != nil {
		return nil, fmt.Errorf("packing token1: %w", err)
	}

	const callsPerPair = 2
	poolsPerBatch := multicallBatchSize / callsPerPair
	if poolsPerBatch < 1 {
		poolsPerBatch = 1
	}

	var pools []adaptor.PoolRef
	for start := 0; start < len(addresses); start += poolsPerBatch {
		end := start + poolsPerBatch
		if end > len(addresses) {
			end = len(addresses)
		}
		batch := addresses[start:end]

		calls := make([]chain.Call3, 0, len(batch)*callsPerPair)
		for _, addr := range batch {
			calls = append(calls,
				chain.Call3{Target: addr, CallData: token0Data},
				chain.Call3{Target: addr, CallData: token1Data},
			)
		}

		results, err := c.chain.BatchCallContract(ctx, calls)
		if err != nil {
			return nil, fmt.Errorf("batch call failed: %w", err)
		}

		for i, addr := range batch {
			base := i * callsPerPair
			if base+1 >= len(results) {
				continue
			}
			t0Result, t1Result := results[base], results[base+1]
			if !t0Result.Success || !t1Result.Success {
				continue
			}

			var token0, token1 common.Address
			if err := pairABI.UnpackIntoInterface(&token0, "token0", t0Result.Data); err != nil {
				continue
			}
			if err := pairABI.UnpackIntoInterface(&token1, "token1", t1Result.Data); err != nil {
				continue
			}

			pools = append(pools, adaptor.PoolRef{
				Address: strings.ToLower(addr.Hex()),
				Token0:  strings.ToLower(token0.Hex()),
				Token1:  strings.ToLower(token1.Hex()),
			})
		}
	}

	return pools, nil
}
