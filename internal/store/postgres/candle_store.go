package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/serted/cryptocluster/internal/domain"
)

// CandleStore implements domain.CandleArchive using PostgreSQL. Candles are
// keyed (symbol, interval, open_time); re-writes of a live bucket update the
// existing row.
type CandleStore struct {
	pool *pgxpool.Pool
}

// NewCandleStore creates a CandleStore backed by the given connection pool.
func NewCandleStore(pool *pgxpool.Pool) *CandleStore {
	return &CandleStore{pool: pool}
}

const upsertCandleSQL = `
	INSERT INTO candles (
		symbol, interval, open_time,
		open, high, low, close,
		volume, buy_volume, sell_volume, delta, clusters
	) VALUES (
		$1, $2, $3,
		$4, $5, $6, $7,
		$8, $9, $10, $11, $12
	) ON CONFLICT (symbol, interval, open_time) DO UPDATE SET
		open = EXCLUDED.open,
		high = EXCLUDED.high,
		low = EXCLUDED.low,
		close = EXCLUDED.close,
		volume = EXCLUDED.volume,
		buy_volume = EXCLUDED.buy_volume,
		sell_volume = EXCLUDED.sell_volume,
		delta = EXCLUDED.delta,
		clusters = EXCLUDED.clusters`

func candleArgs(symbol, interval string, c domain.Candle) ([]any, error) {
	clusters, err := json.Marshal(c.Clusters)
	if err != nil {
		return nil, fmt.Errorf("marshal clusters: %w", err)
	}
	return []any{
		symbol, interval, time.Unix(c.Time, 0).UTC(),
		c.Open, c.High, c.Low, c.Close,
		c.Volume, c.BuyVolume, c.SellVolume, c.Delta, clusters,
	}, nil
}

// UpsertCandle writes a single candle, replacing any prior row for its
// bucket.
func (s *CandleStore) UpsertCandle(ctx context.Context, symbol, interval string, c domain.Candle) error {
	args, err := candleArgs(symbol, interval, c)
	if err != nil {
		return fmt.Errorf("postgres: upsert candle %s/%d: %w", symbol, c.Time, err)
	}
	if _, err := s.pool.Exec(ctx, upsertCandleSQL, args...); err != nil {
		return fmt.Errorf("postgres: upsert candle %s/%d: %w", symbol, c.Time, err)
	}
	return nil
}

// InsertBatch upserts multiple candles efficiently using pgx Batch.
func (s *CandleStore) InsertBatch(ctx context.Context, symbol, interval string, candles []domain.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, c := range candles {
		args, err := candleArgs(symbol, interval, c)
		if err != nil {
			return fmt.Errorf("postgres: batch candle %s/%d: %w", symbol, c.Time, err)
		}
		batch.Queue(upsertCandleSQL, args...)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range candles {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: insert candle batch item %d: %w", i, err)
		}
	}
	return nil
}

// Compile-time interface check.
var _ domain.CandleArchive = (*CandleStore)(nil)
