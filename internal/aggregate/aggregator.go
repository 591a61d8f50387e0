// Package aggregate turns the live trade feed into rolling candle updates.
package aggregate

import (
	"log/slog"

	"github.com/serted/cryptocluster/internal/cluster"
	"github.com/serted/cryptocluster/internal/domain"
	"github.com/serted/cryptocluster/internal/store"
)

// Aggregator folds trade events into the shared candle store one at a time.
// Each Apply runs under the store's per-key lock, so concurrent sessions on
// the same symbol never observe a half-applied trade.
type Aggregator struct {
	store  *store.CandleStore
	levels int
	logger *slog.Logger
}

// New creates an Aggregator writing into the given store. levels is the
// cluster profile resolution.
func New(st *store.CandleStore, levels int, logger *slog.Logger) *Aggregator {
	if levels <= 0 {
		levels = cluster.DefaultLevels
	}
	return &Aggregator{
		store:  st,
		levels: levels,
		logger: logger.With(slog.String("component", "aggregator")),
	}
}

// Apply routes one trade event into its (symbol, interval, bucket) candle,
// creating the candle on the bucket's first trade and mutating it otherwise,
// and returns the resulting candle. Malformed events yield
// domain.ErrMalformedTrade and leave the store untouched.
func (a *Aggregator) Apply(symbol, interval string, ev domain.TradeEvent) (domain.Candle, error) {
	if err := ev.Validate(); err != nil {
		return domain.Candle{}, err
	}
	width, ok := domain.IntervalWidth(interval)
	if !ok {
		return domain.Candle{}, domain.ErrUnknownInterval
	}
	bucket := domain.Bucket(ev.Time, width)

	var out domain.Candle
	a.store.Update(symbol, interval, func(s *store.Series) {
		c, found := s.Find(bucket)
		if !found {
			out = seedCandle(bucket, ev)
			s.Append(out)
			return
		}

		if ev.Price > c.High {
			c.High = ev.Price
		}
		if ev.Price < c.Low {
			c.Low = ev.Price
		}
		c.Close = ev.Price
		c.Volume += ev.Quantity
		if ev.IsBuyerMaker {
			c.SellVolume += ev.Quantity
		} else {
			c.BuyVolume += ev.Quantity
		}
		c.Delta = c.BuyVolume - c.SellVolume
		c.Clusters = cluster.Calculate(c.Low, c.High, c.BuyVolume, c.SellVolume, a.levels)
		out = *c
	})
	return out, nil
}

// seedCandle builds a fresh candle from the first trade of a bucket. Delta
// and clusters stay zero until the second trade arrives.
func seedCandle(bucket int64, ev domain.TradeEvent) domain.Candle {
	c := domain.Candle{
		Time:   bucket,
		Open:   ev.Price,
		High:   ev.Price,
		Low:    ev.Price,
		Close:  ev.Price,
		Volume: ev.Quantity,
	}
	if ev.IsBuyerMaker {
		c.SellVolume = ev.Quantity
	} else {
		c.BuyVolume = ev.Quantity
	}
	return c
}
