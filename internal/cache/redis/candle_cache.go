package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/serted/cryptocluster/internal/domain"
)

// DefaultTTL matches the one-hour expiry of live candle writes.
const DefaultTTL = time.Hour

// CandleCache implements domain.CandleCache. Each candle is stored as JSON
// at "candle:{symbol}:{bucket}" with a TTL, so live updates to the same
// bucket overwrite in place and stale buckets age out on their own.
type CandleCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewCandleCache creates a CandleCache backed by the given Client. A
// non-positive ttl falls back to DefaultTTL.
func NewCandleCache(c *Client, ttl time.Duration) *CandleCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CandleCache{rdb: c.Underlying(), ttl: ttl}
}

func candleKey(symbol string, bucket int64) string {
	return "candle:" + symbol + ":" + strconv.FormatInt(bucket, 10)
}

// SetCandle writes the candle's JSON form under its bucket key.
func (cc *CandleCache) SetCandle(ctx context.Context, symbol string, c domain.Candle) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("redis: marshal candle %s/%d: %w", symbol, c.Time, err)
	}
	if err := cc.rdb.Set(ctx, candleKey(symbol, c.Time), data, cc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set candle %s/%d: %w", symbol, c.Time, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.CandleCache = (*CandleCache)(nil)
