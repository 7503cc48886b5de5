package uniswapv2

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"arbengine/internal/adaptor"
	"arbengine/internal/arb"
	"arbengine/internal/metrics"
)

// Feed drives one uniswapv2.Client's pool discovery and one-shot initial
// reserve fetch into an ArbitrageService, applying the rate-to-weight transform before every
// UpsertPath call (spec.md §9's resolved open question: never store raw
// rates as weights).
//
// Folded in from the teacher's internal/curator package: the factory
// enumeration half of Bootstrap survives here; the continuous TVL
// ranking/reevaluation loop does not, since spec.md §4.6 only asks the
// adaptor to discover pools among monitored assets, not to keep re-curating
// the top N by value.
type Feed struct {
	client       *Client
	protocolType int
	assets       map[string]struct{} // lowercased, empty means "no filter"
	metrics      *metrics.Metrics

	pools []adaptor.PoolRef
}

// NewFeed returns a Feed restricted to pools whose both tokens are in
// startAssets (case-insensitive). An empty startAssets disables filtering
// and tracks every pool the factory has created.
func NewFeed(client *Client, protocolType int, startAssets []string, m *metrics.Metrics) *Feed {
	assets := make(map[string]struct{}, len(startAssets))
	for _, a := range startAssets {
		assets[strings.ToLower(a)] = struct{}{}
	}
	return &Feed{client: client, protocolType: protocolType, assets: assets, metrics: m}
}

// Bootstrap discovers pools, fetches their current reserves, and upserts
// both directional edges for each into svc. It returns the set of pools it
// is now tracking, for the live feed to subscribe to.
func (f *Feed) Bootstrap(ctx context.Context, svc *arb.ArbitrageService) ([]adaptor.PoolRef, error) {
	start := time.Now()

	all, err := f.client.DiscoverPools(ctx)
	if err != nil {
		return nil, fmt.Errorf("discovering pools: %w", err)
	}

	var tracked []adaptor.PoolRef
	for _, p := range all {
		if !f.inUniverse(p) {
			continue
		}
		tracked = append(tracked, p)

		r0, r1, err := f.client.FetchReserves(ctx, p)
		if err != nil {
			log.Warn().Str("pool", p.Address).Err(err).Msg("skipping pool: reserve fetch failed")
			continue
		}
		if err := f.upsertBothDirections(svc, p, r0, r1); err != nil {
			log.Warn().Str("pool", p.Address).Err(err).Msg("skipping pool: upsert failed")
		}
	}

	f.pools = tracked
	if f.metrics != nil {
		f.metrics.RecordBootstrapLatency(time.Since(start))
		f.metrics.SetPoolsTracked(len(tracked))
	}

	log.Info().
		Int("discovered", len(all)).
		Int("tracked", len(tracked)).
		Dur("elapsed", time.Since(start)).
		Msg("uniswapv2 bootstrap complete")

	return tracked, nil
}

// Pools returns the pools the most recent Bootstrap call decided to track.
func (f *Feed) Pools() []adaptor.PoolRef {
	return f.pools
}

func (f *Feed) inUniverse(p adaptor.PoolRef) bool {
	if len(f.assets) == 0 {
		return true
	}
	_, ok0 := f.assets[p.Token0]
	_, ok1 := f.assets[p.Token1]
	return ok0 && ok1
}

// upsertBothDirections computes the directional rates for reserves (r0, r1)
// of pool p and upserts the two -ln(rate) edges spec.md §4.6 step 4 calls
// for, one per direction. Both share the same ContentHash (identity excludes
// direction, spec.md §4.2); that's fine because the identity index is scoped
// per ordered node pair (spec.md §9's resolved open question), so the two
// directions never collide.
func (f *Feed) upsertBothDirections(svc *arb.ArbitrageService, p adaptor.PoolRef, r0, r1 *big.Int) error {
	rate01, ok := DirectionalRate(r0, r1)
	if !ok {
		return fmt.Errorf("degenerate reserves for %s", p.Address)
	}
	rate10, ok := DirectionalRate(r1, r0)
	if !ok {
		return fmt.Errorf("degenerate reserves for %s", p.Address)
	}

	edge01 := arb.DecoratedEdge{
		Weight:       RateToWeight(rate01),
		ProtocolType: f.protocolType,
		NodeType:     arb.NodeTypeEVM,
		PoolAddress:  p.Address,
		Data:         "0->1",
	}
	edge10 := arb.DecoratedEdge{
		Weight:       RateToWeight(rate10),
		ProtocolType: f.protocolType,
		NodeType:     arb.NodeTypeEVM,
		PoolAddress:  p.Address,
		Data:         "1->0",
	}

	if _, err := svc.UpsertPath(p.Token0, p.Token1, edge01); err != nil {
		return err
	}
	if _, err := svc.UpsertPath(p.Token1, p.Token0, edge10); err != nil {
		return err
	}
	return nil
}
