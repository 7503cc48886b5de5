package uniswapv2

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"arbengine/internal/adaptor"
	"arbengine/internal/arb"
	"arbengine/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024 * 1024

	// SyncEventSignature is the Sync(uint112,uint112) event every
	// Uniswap-V2-style pair emits on every reserve update.
	SyncEventSignature = "Sync(uint112,uint112)"
)

var syncEventTopic = crypto.Keccak256Hash([]byte(SyncEventSignature))

// syncArgs unpacks the non-indexed (reserve0, reserve1) payload of a Sync
// event log.
var syncArgs = func() abi.Arguments {
	uint112Type, _ := abi.NewType("uint112", "", nil)
	return abi.Arguments{
		{Type: uint112Type, Name: "reserve0"},
		{Type: uint112Type, Name: "reserve1"},
	}
}()

// LiveFeed subscribes to Sync events for a set of pools over a JSON-RPC
// websocket and drives ArbitrageService.UpsertPath on every update.
// Grounded on the teacher's internal/ingestion/{websocket,decoder}.go,
// condensed to the single event this adaptor's contract needs instead of
// the teacher's generic multi-event, multi-chain pipeline.
type LiveFeed struct {
	wsURL        string
	protocolType int
	svc          *arb.ArbitrageService
	metrics      *metrics.Metrics

	poolByAddress map[string]adaptor.PoolRef // lowercased pool address -> ref

	mu        sync.Mutex
	conn      *websocket.Conn
	requestID atomic.Int64
	connected atomic.Bool

	// updateSeq discriminates successive Sync updates for the same pool and
	// direction so each one proposes a distinct ContentHash, see
	// poolAddressKey.
	updateSeq atomic.Uint64
}

// poolAddressKeySep separates an on-chain pool address from the update
// discriminator poolAddressKey embeds into DecoratedEdge.PoolAddress.
const poolAddressKeySep = "@"

// poolAddressKey embeds a monotonically increasing discriminator into a pool
// address so a live reserve update proposes a ContentHash distinct from the
// pool's previous one (ContentHash covers only protocol/node-type/pool
// address, edge.go, not weight). Without this, every Sync event for the same
// pool and direction collides with the first-seen identity and UpsertPath
// rejects it as a duplicate before the extremal policy ever sees the new
// weight (spec.md §4.5/§9: a weight refresh needs "a new edge instance with
// a different identity").
func poolAddressKey(address string, seq uint64) string {
	return fmt.Sprintf("%s%s%d", address, poolAddressKeySep, seq)
}

// basePoolAddress recovers the on-chain address from a PoolAddress that may
// carry a poolAddressKey discriminator, for callers (e.g. simulate.go) that
// need to dial the pool itself rather than identify an edge.
func basePoolAddress(key string) string {
	if i := strings.LastIndex(key, poolAddressKeySep); i >= 0 {
		return key[:i]
	}
	return key
}

// NewLiveFeed returns a LiveFeed that will subscribe to Sync events for
// pools, driving updates into svc.
func NewLiveFeed(wsURL string, protocolType int, pools []adaptor.PoolRef, svc *arb.ArbitrageService, m *metrics.Metrics) *LiveFeed {
	byAddr := make(map[string]adaptor.PoolRef, len(pools))
	for _, p := range pools {
		byAddr[strings.ToLower(p.Address)] = p
	}
	return &LiveFeed{
		wsURL:         wsURL,
		protocolType:  protocolType,
		svc:           svc,
		metrics:       m,
		poolByAddress: byAddr,
	}
}

// Run connects, subscribes to Sync logs for the tracked pools, and processes
// notifications until ctx is cancelled or the connection fails
// unrecoverably. Grounded on cmd/watcher's errgroup.Go-driven service loop
// shape — the caller is expected to retry Run on a reconnect delay.
func (f *LiveFeed) Run(ctx context.Context) error {
	if err := f.connect(ctx); err != nil {
		return fmt.Errorf("connecting to %s: %w", f.wsURL, err)
	}
	defer f.close()

	addresses := make([]string, 0, len(f.poolByAddress))
	for addr := range f.poolByAddress {
		addresses = append(addresses, addr)
	}
	if err := f.subscribe(addresses); err != nil {
		return fmt.Errorf("subscribing to sync events: %w", err)
	}

	go f.pingLoop(ctx)

	return f.readLoop(ctx)
}

func (f *LiveFeed) connect(ctx context.Context) error {
	dialer := websocket.DefaultDialer
	conn, _, err := dialer.DialContext(ctx, f.wsURL, nil)
	if err != nil {
		return err
	}
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	f.mu.Lock()
	f.conn = conn
	f.mu.Unlock()
	f.connected.Store(true)
	if f.metrics != nil {
		f.metrics.SetWebSocketConnected(true)
	}

	log.Info().Str("url", f.wsURL).Msg("uniswapv2 feed connected")
	return nil
}

func (f *LiveFeed) close() {
	f.mu.Lock()
	conn := f.conn
	f.mu.Unlock()
	f.connected.Store(false)
	if f.metrics != nil {
		f.metrics.SetWebSocketConnected(false)
	}
	if conn != nil {
		conn.Close()
	}
}

func (f *LiveFeed) subscribe(addresses []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.requestID.Add(1)
	filter := map[string]interface{}{
		"address": addresses,
		"topics":  []interface{}{syncEventTopic.Hex()},
	}
	req := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  "eth_subscribe",
		"params":  []interface{}{"logs", filter},
	}

	f.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return f.conn.WriteJSON(req)
}

func (f *LiveFeed) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.mu.Lock()
			conn := f.conn
			f.mu.Unlock()
			if conn == nil {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Warn().Err(err).Msg("uniswapv2 feed ping failed")
			}
		}
	}
}

// rpcLog mirrors the subset of an eth_subscribe logs notification this feed
// needs.
type rpcLog struct {
	Address     string   `json:"address"`
	Topics      []string `json:"topics"`
	Data        string   `json:"data"`
	BlockNumber string   `json:"blockNumber"`
}

func (f *LiveFeed) readLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		f.mu.Lock()
		conn := f.conn
		f.mu.Unlock()
		if conn == nil {
			return fmt.Errorf("connection closed")
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("reading message: %w", err)
		}

		var msg struct {
			Method string `json:"method"`
			Params struct {
				Result rpcLog `json:"result"`
			} `json:"params"`
		}
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Warn().Err(err).Msg("uniswapv2 feed: malformed message")
			continue
		}
		if msg.Method != "eth_subscription" {
			continue
		}

		if err := f.handleLog(msg.Params.Result); err != nil {
			log.Warn().Err(err).Str("pool", msg.Params.Result.Address).Msg("uniswapv2 feed: dropping Sync event")
		}
	}
}

func (f *LiveFeed) handleLog(l rpcLog) error {
	if len(l.Topics) == 0 || common.HexToHash(l.Topics[0]) != syncEventTopic {
		return nil
	}

	pool, ok := f.poolByAddress[strings.ToLower(l.Address)]
	if !ok {
		return fmt.Errorf("sync event for untracked pool %s", l.Address)
	}

	data := common.FromHex(l.Data)
	values, err := syncArgs.Unpack(data)
	if err != nil {
		return fmt.Errorf("unpacking sync data: %w", err)
	}
	reserve0, ok0 := values[0].(*big.Int)
	reserve1, ok1 := values[1].(*big.Int)
	if !ok0 || !ok1 {
		return fmt.Errorf("unexpected sync data types")
	}

	rate01, ok := DirectionalRate(reserve0, reserve1)
	if !ok {
		return fmt.Errorf("degenerate reserves")
	}
	rate10, ok := DirectionalRate(reserve1, reserve0)
	if !ok {
		return fmt.Errorf("degenerate reserves")
	}

	start := time.Now()
	seq := f.updateSeq.Add(1)
	addrKey := poolAddressKey(pool.Address, seq)
	changed01, err01 := f.svc.UpsertPath(pool.Token0, pool.Token1, arb.DecoratedEdge{
		Weight:       RateToWeight(rate01),
		ProtocolType: f.protocolType,
		NodeType:     arb.NodeTypeEVM,
		PoolAddress:  addrKey,
		Data:         "0->1",
	})
	changed10, err10 := f.svc.UpsertPath(pool.Token1, pool.Token0, arb.DecoratedEdge{
		Weight:       RateToWeight(rate10),
		ProtocolType: f.protocolType,
		NodeType:     arb.NodeTypeEVM,
		PoolAddress:  addrKey,
		Data:         "1->0",
	})
	if f.metrics != nil {
		outcome := "replaced"
		if err01 != nil || err10 != nil || (!changed01 && !changed10) {
			outcome = "rejected"
		}
		f.metrics.RecordUpsert(outcome, time.Since(start))
		if block, perr := parseHexUint64(l.BlockNumber); perr == nil {
			f.metrics.SetLastBlockSeen(block)
		}
	}
	if err01 != nil {
		return err01
	}
	return err10
}

func parseHexUint64(s string) (uint64, error) {
	s = strings.TrimPrefix(s, "0x")
	var v uint64
	_, err := fmt.Sscanf(s, "%x", &v)
	return v, err
}
