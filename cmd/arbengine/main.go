// Command arbengine runs the arbitrage detection engine: a DEX adaptor feeds
// DecoratedEdge updates into an in-memory ArbitrageService, which an IPC
// front end exposes to external scan requests. Shape grounded on the
// teacher's cmd/watcher/main.go.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"arbengine/internal/adaptor"
	"arbengine/internal/adaptor/uniswapv2"
	"arbengine/internal/arb"
	"arbengine/internal/chain"
	"arbengine/internal/config"
	"arbengine/internal/ipcserver"
	"arbengine/internal/metrics"
	"arbengine/internal/persistence"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment variables")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogging(cfg.Logging)
	log.Info().Msg("Starting arbengine - DEX arbitrage detection engine")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	if err := run(ctx, cfg); err != nil && err != context.Canceled {
		log.Fatal().Err(err).Msg("Application error")
	}

	log.Info().Msg("arbengine shutdown complete")
}

func run(ctx context.Context, cfg *config.Config) error {
	m := metrics.New()
	if cfg.Metrics.Enabled {
		if err := m.StartServer(cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			m.Shutdown(shutdownCtx)
		}()
		log.Info().Int("port", cfg.Metrics.Port).Msg("Metrics server started")
	}

	store, err := persistence.NewStore(cfg.Persistence.SQLitePath)
	if err != nil {
		return err
	}
	defer store.Close()
	log.Info().Str("path", cfg.Persistence.SQLitePath).Msg("SQLite initialized")

	rpcClient, err := chain.NewClient(cfg.Chain.RPCURL, cfg.Chain.RequestsPerSecond)
	if err != nil {
		return err
	}
	defer rpcClient.Close()
	log.Info().Msg("RPC client connected")

	svc := arb.NewArbitrageService()

	dexClient := uniswapv2.NewClient(rpcClient, cfg.Adaptor.FactoryAddress)
	feed := uniswapv2.NewFeed(dexClient, cfg.Adaptor.ProtocolType, cfg.Adaptor.StartAssets, m)

	log.Info().Msg("Starting bootstrap...")
	bootstrapCtx, bootstrapCancel := context.WithTimeout(ctx, 10*time.Minute)
	pools, err := feed.Bootstrap(bootstrapCtx, svc)
	bootstrapCancel()
	if err != nil {
		return err
	}

	m.RecordGraphStats(svc.NodeCount(), svc.EdgeCount())
	log.Info().
		Int("nodes", svc.NodeCount()).
		Int("edges", svc.EdgeCount()).
		Int("pools", len(pools)).
		Msg("Graph initialized")

	ipc, err := ipcserver.New(cfg.IPC.Endpoint, svc, m)
	if err != nil {
		return err
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Msg("Starting ipc server...")
		return ipc.Serve(gCtx)
	})

	g.Go(func() error {
		log.Info().Msg("Starting live feed...")
		runLiveFeedWithReconnect(gCtx, cfg, pools, svc, m)
		return nil
	})

	g.Go(func() error {
		return runScanLoop(gCtx, svc, store, m)
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		return err
	}

	return nil
}

// runLiveFeedWithReconnect restarts the websocket feed after a delay whenever
// Run returns, with or without an error, matching spec.md §7's "Adaptor RPC failure:
// adaptor retries or skips; never propagated into the core" policy. It only
// returns when ctx is cancelled.
func runLiveFeedWithReconnect(ctx context.Context, cfg *config.Config, pools []adaptor.PoolRef, svc *arb.ArbitrageService, m *metrics.Metrics) {
	live := uniswapv2.NewLiveFeed(cfg.Chain.WSURL, cfg.Adaptor.ProtocolType, pools, svc, m)
	for {
		if ctx.Err() != nil {
			return
		}
		if err := live.Run(ctx); err != nil {
			log.Warn().Err(err).Msg("live feed disconnected, reconnecting")
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(cfg.Adaptor.ReconnectDelay):
		}
	}
}

// runScanLoop periodically runs the cheap quick scan and appends any
// opportunity found to the persistence log, independent of the IPC front
// end — so an arbitrage hit is recorded even if no external caller happens
// to be polling at that moment.
func runScanLoop(ctx context.Context, svc *arb.ArbitrageService, store *persistence.Store, m *metrics.Metrics) error {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			start := time.Now()
			paths := svc.ScanArbitragesQuick()
			if m != nil {
				m.RecordScan("quick", time.Since(start), len(paths))
				m.RecordGraphStats(svc.NodeCount(), svc.EdgeCount())
			}
			for _, p := range paths {
				log.Info().
					Strs("nodes", p.Nodes).
					Float64("weight", p.Weight).
					Msg("arbitrage opportunity detected")
				if err := store.LogOpportunity(ctx, "quick", p, 0); err != nil {
					log.Warn().Err(err).Msg("failed to log opportunity")
				}
			}
		}
	}
}

func setupLogging(cfg config.LoggingConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "json" {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	}
}
