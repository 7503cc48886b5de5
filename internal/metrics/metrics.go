package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Metrics holds all Prometheus metrics for the arbitrage detection engine.
type Metrics struct {
	// Upsert metrics (internal/arb.ArbitrageService.UpsertPath)
	UpsertsAccepted *prometheus.CounterVec // by outcome: added, replaced, rejected
	UpsertLatency   prometheus.Histogram

	// Graph metrics
	GraphNodes prometheus.Gauge
	GraphEdges prometheus.Gauge

	// Scan metrics
	ScanLatency  *prometheus.HistogramVec // by kind: quick, full, sparse
	CyclesFound  *prometheus.CounterVec   // by kind
	ScanRequests prometheus.Counter

	// Adaptor feed metrics
	PoolsTracked    prometheus.Gauge
	WebSocketStatus prometheus.Gauge
	LastBlockSeen   prometheus.Gauge
	BootstrapLatency prometheus.Histogram

	// IPC front-end metrics
	IPCRequests *prometheus.CounterVec // by op, status

	server *http.Server
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	m := &Metrics{
		UpsertsAccepted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arb_upserts_total",
				Help: "Total UpsertPath calls by outcome (added, replaced, rejected)",
			},
			[]string{"outcome"},
		),
		UpsertLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "arb_upsert_latency_seconds",
				Help:    "Latency of a single UpsertPath call",
				Buckets: prometheus.ExponentialBuckets(0.00001, 2, 15), // 10us to ~164ms
			},
		),
		GraphNodes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "arb_graph_nodes",
				Help: "Current number of interned nodes (assets) in the graph",
			},
		),
		GraphEdges: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "arb_graph_edges",
				Help: "Current number of directed edges (pool directions) in the graph",
			},
		),
		ScanLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "arb_scan_latency_seconds",
				Help:    "Time to run a scan, by kind (quick, full, sparse)",
				Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16), // 0.1ms to ~3.3s
			},
			[]string{"kind"},
		),
		CyclesFound: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arb_cycles_found_total",
				Help: "Total number of negative cycles found, by scan kind",
			},
			[]string{"kind"},
		),
		ScanRequests: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "arb_scan_requests_total",
				Help: "Total number of scan requests handled",
			},
		),
		PoolsTracked: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "arb_pools_tracked",
				Help: "Number of pools currently being tracked by the adaptor feed",
			},
		),
		WebSocketStatus: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "arb_websocket_connected",
				Help: "Adaptor feed WebSocket connection status (1=connected, 0=disconnected)",
			},
		),
		LastBlockSeen: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "arb_last_block_seen",
				Help: "Last block number seen from a Sync event",
			},
		),
		BootstrapLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "arb_bootstrap_latency_seconds",
				Help:    "Time to bootstrap pool discovery and initial reserves",
				Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1s to ~8.5 minutes
			},
		),
		IPCRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arb_ipc_requests_total",
				Help: "Total IPC requests handled, by operation and status",
			},
			[]string{"op", "status"},
		),
	}

	prometheus.MustRegister(
		m.UpsertsAccepted,
		m.UpsertLatency,
		m.GraphNodes,
		m.GraphEdges,
		m.ScanLatency,
		m.CyclesFound,
		m.ScanRequests,
		m.PoolsTracked,
		m.WebSocketStatus,
		m.LastBlockSeen,
		m.BootstrapLatency,
		m.IPCRequests,
	)

	return m
}

// StartServer starts the HTTP server for Prometheus metrics.
func (m *Metrics) StartServer(port int, path string) error {
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	m.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		log.Info().Int("port", port).Str("path", path).Msg("starting metrics server")
		if err := m.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server error")
		}
	}()

	return nil
}

// Shutdown gracefully stops the metrics server.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m.server != nil {
		return m.server.Shutdown(ctx)
	}
	return nil
}

// RecordUpsert records the outcome of one UpsertPath call and its latency.
func (m *Metrics) RecordUpsert(outcome string, d time.Duration) {
	m.UpsertsAccepted.WithLabelValues(outcome).Inc()
	m.UpsertLatency.Observe(d.Seconds())
}

// RecordGraphStats updates the graph node and edge gauges.
func (m *Metrics) RecordGraphStats(nodes, edges int) {
	m.GraphNodes.Set(float64(nodes))
	m.GraphEdges.Set(float64(edges))
}

// RecordScan records a scan's latency and number of cycles found, by kind
// ("quick", "full", "sparse").
func (m *Metrics) RecordScan(kind string, d time.Duration, cyclesFound int) {
	m.ScanRequests.Inc()
	m.ScanLatency.WithLabelValues(kind).Observe(d.Seconds())
	m.CyclesFound.WithLabelValues(kind).Add(float64(cyclesFound))
}

// SetPoolsTracked sets the current number of tracked pools.
func (m *Metrics) SetPoolsTracked(count int) {
	m.PoolsTracked.Set(float64(count))
}

// SetWebSocketConnected sets the adaptor feed's WebSocket connection status.
func (m *Metrics) SetWebSocketConnected(connected bool) {
	if connected {
		m.WebSocketStatus.Set(1)
	} else {
		m.WebSocketStatus.Set(0)
	}
}

// SetLastBlockSeen sets the last block number seen from a Sync event.
func (m *Metrics) SetLastBlockSeen(block uint64) {
	m.LastBlockSeen.Set(float64(block))
}

// RecordBootstrapLatency records the pool-discovery bootstrap duration.
func (m *Metrics) RecordBootstrapLatency(d time.Duration) {
	m.BootstrapLatency.Observe(d.Seconds())
}

// RecordIPCRequest records one IPC request's operation and status
// ("ok" or "error").
func (m *Metrics) RecordIPCRequest(op, status string) {
	m.IPCRequests.WithLabelValues(op, status).Inc()
}
