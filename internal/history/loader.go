// Package history backfills candle series from the exchange REST API.
package history

import (
	"context"
	"log/slog"
	"time"

	"github.com/serted/cryptocluster/internal/cluster"
	"github.com/serted/cryptocluster/internal/domain"
	"github.com/serted/cryptocluster/internal/store"
)

const (
	// DefaultKlineLimit is how many historical bars one refresh fetches.
	DefaultKlineLimit = 1000

	// DefaultTradeLimit is the recent-trades window joined onto the bars.
	// Far smaller than the kline window, so older bars get a zero volume
	// split.
	DefaultTradeLimit = 500

	// DefaultRefreshTTL is the staleness gate: a key refreshed more
	// recently than this is served from the store without refetching.
	DefaultRefreshTTL = 5 * time.Minute
)

// Config tunes a Loader. Zero fields fall back to the defaults above.
type Config struct {
	KlineLimit int
	TradeLimit int
	Levels     int
	RefreshTTL time.Duration
}

// Loader fetches historical bars and recent trades, joins them into enriched
// candles, and populates the shared store under the staleness gate.
type Loader struct {
	market  domain.MarketData
	store   *store.CandleStore
	archive domain.CandleArchive // optional
	logger  *slog.Logger

	klineLimit int
	tradeLimit int
	levels     int
	refreshTTL time.Duration

	now func() time.Time
}

// NewLoader creates a Loader. archive may be nil, in which case refreshed
// candles are not persisted.
func NewLoader(market domain.MarketData, st *store.CandleStore, archive domain.CandleArchive, cfg Config, logger *slog.Logger) *Loader {
	if cfg.KlineLimit <= 0 {
		cfg.KlineLimit = DefaultKlineLimit
	}
	if cfg.TradeLimit <= 0 {
		cfg.TradeLimit = DefaultTradeLimit
	}
	if cfg.Levels <= 0 {
		cfg.Levels = cluster.DefaultLevels
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	return &Loader{
		market:     market,
		store:      st,
		archive:    archive,
		logger:     logger.With(slog.String("component", "history")),
		klineLimit: cfg.KlineLimit,
		tradeLimit: cfg.TradeLimit,
		levels:     cfg.Levels,
		refreshTTL: cfg.RefreshTTL,
		now:        time.Now,
	}
}

// Load returns the candle series for the key. If the store already holds a
// non-empty series refreshed within the TTL, that series is returned
// unchanged; otherwise the venue is queried and the store replaced. On any
// fetch failure the store is left untouched and a *domain.FetchError is
// returned.
func (l *Loader) Load(ctx context.Context, symbol, interval string) ([]domain.Candle, error) {
	width, ok := domain.IntervalWidth(interval)
	if !ok {
		return nil, domain.ErrUnknownInterval
	}

	if last, populated := l.store.LastRefresh(symbol, interval); populated && l.now().Sub(last) < l.refreshTTL {
		l.logger.Debug("serving cached series",
			slog.String("symbol", symbol),
			slog.String("interval", interval),
		)
		return l.store.Snapshot(symbol, interval), nil
	}

	l.logger.Info("refreshing historical series",
		slog.String("symbol", symbol),
		slog.String("interval", interval),
		slog.Int("kline_limit", l.klineLimit),
	)

	klines, err := l.market.Klines(ctx, symbol, interval, l.klineLimit)
	if err != nil {
		return nil, &domain.FetchError{Symbol: symbol, Interval: interval, Err: err}
	}
	trades, err := l.market.RecentTrades(ctx, symbol, l.tradeLimit)
	if err != nil {
		return nil, &domain.FetchError{Symbol: symbol, Interval: interval, Err: err}
	}

	l.store.Replace(symbol, interval, l.join(klines, trades, width))

	// Snapshot rather than the joined slice itself: Replace keeps that slice
	// as the series' backing array, and live aggregation mutates it in place
	// under the store lock. Callers get a detached copy.
	candles := l.store.Snapshot(symbol, interval)

	if l.archive != nil {
		if err := l.archive.InsertBatch(ctx, symbol, interval, candles); err != nil {
			l.logger.Warn("candle archive write failed",
				slog.String("symbol", symbol),
				slog.String("interval", interval),
				slog.String("error", err.Error()),
			)
		}
	}

	return candles, nil
}

type sideVolume struct {
	buy  float64
	sell float64
}

// join buckets recent-trade notional volume by truncated timestamp and folds
// it onto the fetched bars, deriving delta and the cluster profile per bar.
func (l *Loader) join(klines []domain.Kline, trades []domain.RecentTrade, width int64) []domain.Candle {
	volumes := make(map[int64]sideVolume, len(trades))
	for _, t := range trades {
		bucket := domain.Bucket(t.Time, width)
		v := volumes[bucket]
		notional := t.Price * t.Quantity
		if t.IsBuyerMaker {
			v.sell += notional
		} else {
			v.buy += notional
		}
		volumes[bucket] = v
	}

	candles := make([]domain.Candle, 0, len(klines))
	for _, k := range klines {
		v := volumes[k.OpenTime]
		candles = append(candles, domain.Candle{
			Time:       k.OpenTime,
			Open:       k.Open,
			High:       k.High,
			Low:        k.Low,
			Close:      k.Close,
			Volume:     k.Volume,
			BuyVolume:  v.buy,
			SellVolume: v.sell,
			Delta:      v.buy - v.sell,
			Clusters:   cluster.Calculate(k.Low, k.High, v.buy, v.sell, l.levels),
		})
	}
	return candles
}
