// Package chain provides a thin, rate-limited wrapper around an Ethereum
// JSON-RPC client for the pieces of the stack that need on-chain reads:
// the adaptor's pool discovery and reserve reads.
package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Client wraps an ethclient.Client with a simple request-rate ceiling, so a
// misbehaving adaptor loop cannot hammer the upstream RPC provider.
type Client struct {
	eth         *ethclient.Client
	rateLimiter *time.Ticker
}

// NewClient dials rpcURL and returns a rate-limited wrapper around it.
func NewClient(rpcURL string, requestsPerSecond int) (*Client, error) {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 10
	}
	eth, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial chain RPC: %w", err)
	}

	interval := time.Second / time.Duration(requestsPerSecond)
	return &Client{
		eth:         eth,
		rateLimiter: time.NewTicker(interval),
	}, nil
}

// Close releases the underlying RPC connection and rate limiter.
func (c *Client) Close() {
	c.eth.Close()
	c.rateLimiter.Stop()
}

func (c *Client) rateLimit(ctx context.Context) error {
	select {
	case <-c.rateLimiter.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CallContract performs an eth_call against to with data, at the latest
// block.
func (c *Client) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	if err := c.rateLimit(ctx); err != nil {
		return nil, err
	}
	result, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("contract call to %s failed: %w", to, err)
	}
	return result, nil
}

// BlockNumber returns the current chain head height.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	if err := c.rateLimit(ctx); err != nil {
		return 0, err
	}
	return c.eth.BlockNumber(ctx)
}

// FilterLogs retrieves logs matching query.
func (c *Client) FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	if err := c.rateLimit(ctx); err != nil {
		return nil, err
	}
	return c.eth.FilterLogs(ctx, query)
}

// SubscribeFilterLogs subscribes to new logs matching query over the
// client's websocket transport, if the dialed endpoint supports it.
func (c *Client) SubscribeFilterLogs(ctx context.Context, query ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	return c.eth.SubscribeFilterLogs(ctx, query, ch)
}

// ChainID returns the chain's EIP-155 chain id.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	return c.eth.ChainID(ctx)
}

// Call3 mirrors Multicall3's aggregate3 input tuple.
type Call3 struct {
	Target       common.Address
	AllowFailure bool
	CallData     []byte
}

// CallResult mirrors one element of Multicall3's aggregate3 output.
type CallResult struct {
	Success bool
	Data    []byte
}

// multicall3Address is the same on every EVM chain that has it deployed.
var multicall3Address = common.HexToAddress("0xcA11bde05977b3631167028862bE2a173976CA11")

const multicall3ABIJSON = `[
	{
		"inputs": [
			{
				"components": [
					{"internalType": "address", "name": "target", "type": "address"},
					{"internalType": "bool", "name": "allowFailure", "type": "bool"},
					{"internalType": "bytes", "name": "callData", "type": "bytes"}
				],
				"internalType": "struct Multicall3.Call3[]",
				"name": "calls",
				"type": "tuple[]"
			}
		],
		"name": "aggregate3",
		"outputs": [
			{
				"components": [
					{"internalType": "bool", "name": "success", "type": "bool"},
					{"internalType": "bytes", "name": "returnData", "type": "bytes"}
				],
				"internalType": "struct Multicall3.Result[]",
				"name": "returnData",
				"type": "tuple[]"
			}
		],
		"stateMutability": "payable",
		"type": "function"
	}
]`

var multicall3ABI abi.ABI

func init() {
	var err error
	multicall3ABI, err = abi.JSON(strings.NewReader(multicall3ABIJSON))
	if err != nil {
		panic("chain: failed to parse Multicall3 ABI: " + err.Error())
	}
}

// BatchCallContract executes many contract calls in a single RPC round trip
// via Multicall3, used by the adaptor during pool discovery to fetch pair
// addresses and pair tokens for many pools at once.
func (c *Client) BatchCallContract(ctx context.Context, calls []Call3) ([]CallResult, error) {
	if len(calls) == 0 {
		return nil, nil
	}

	data, err := multicall3ABI.Pack("aggregate3", calls)
	if err != nil {
		return nil, fmt.Errorf("pack aggregate3: %w", err)
	}

	if err := c.rateLimit(ctx); err != nil {
		return nil, err
	}
	raw, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &multicall3Address, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("multicall failed: %w", err)
	}

	var unpacked []struct {
		Success    bool
		ReturnData []byte
	}
	if err := multicall3ABI.UnpackIntoInterface(&unpacked, "aggregate3", raw); err != nil {
		return nil, fmt.Errorf("unpack aggregate3 result: %w", err)
	}

	results := make([]CallResult, len(unpacked))
	for i, r := range unpacked {
		results[i] = CallResult{Success: r.Success, Data: r.ReturnData}
	}
	return results, nil
}
