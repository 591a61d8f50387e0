package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/serted/cryptocluster/internal/aggregate"
	"github.com/serted/cryptocluster/internal/cache/redis"
	"github.com/serted/cryptocluster/internal/config"
	"github.com/serted/cryptocluster/internal/domain"
	"github.com/serted/cryptocluster/internal/history"
	"github.com/serted/cryptocluster/internal/platform/binance"
	"github.com/serted/cryptocluster/internal/store"
	"github.com/serted/cryptocluster/internal/store/postgres"
)

// Dependencies bundles everything the application needs to serve
// subscriptions. It is constructed by Wire and torn down by the returned
// cleanup function.
type Dependencies struct {
	Store      *store.CandleStore
	Loader     *history.Loader
	Aggregator *aggregate.Aggregator

	Market  domain.MarketData
	Streams domain.TradeStreamer
	Cache   domain.CandleCache   // nil when Redis is disabled
	Archive domain.CandleArchive // nil when Postgres is disabled
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{
		Store:   store.New(),
		Market:  binance.NewClient(cfg.Binance.BaseURL),
		Streams: binance.NewTradeStream(cfg.Binance.StreamURL, logger),
	}

	// --- Redis write-through cache ---
	if cfg.Redis.Enabled {
		rdb, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = rdb.Close() })
		deps.Cache = redis.NewCandleCache(rdb, cfg.Redis.TTL.Duration)
	}

	// --- PostgreSQL candle archive ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}
		deps.Archive = postgres.NewCandleStore(pgClient.Pool())
	}

	deps.Loader = history.NewLoader(deps.Market, deps.Store, deps.Archive, history.Config{
		KlineLimit: cfg.History.KlineLimit,
		TradeLimit: cfg.History.TradeLimit,
		Levels:     cfg.Cluster.Levels,
		RefreshTTL: cfg.History.RefreshTTL.Duration,
	}, logger)
	deps.Aggregator = aggregate.New(deps.Store, cfg.Cluster.Levels, logger)

	return deps, cleanup, nil
}
