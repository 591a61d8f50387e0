package domain

import "context"

// Kline is one raw historical bar as returned by the market-data venue,
// before trade volumes and clusters are joined onto it.
type Kline struct {
	OpenTime int64 // bucket start, seconds
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
}

// RecentTrade is one aggregated trade from the venue's recent-trades window.
type RecentTrade struct {
	Time         int64 // seconds
	Price        float64
	Quantity     float64
	IsBuyerMaker bool
}

// MarketData is the read-only port to the upstream exchange REST API.
type MarketData interface {
	// Klines fetches up to limit historical bars for the symbol/interval,
	// oldest first.
	Klines(ctx context.Context, symbol, interval string, limit int) ([]Kline, error)

	// RecentTrades fetches up to limit recent aggregated trades for the
	// symbol, oldest first.
	RecentTrades(ctx context.Context, symbol string, limit int) ([]RecentTrade, error)
}

// TradeStreamer opens live trade subscriptions. The returned channel is
// closed when the upstream feed disconnects or ctx is cancelled; cancelling
// ctx releases the underlying subscription.
type TradeStreamer interface {
	SubscribeTrades(ctx context.Context, symbol string) (<-chan TradeEvent, error)
}

// CandleCache is the write-through cache for live candle updates. Writes are
// best-effort; failures are logged by callers and never affect in-memory
// state.
type CandleCache interface {
	SetCandle(ctx context.Context, symbol string, c Candle) error
}

// CandleArchive persists candles durably. Like the cache it is written
// fire-and-forget from the live path.
type CandleArchive interface {
	UpsertCandle(ctx context.Context, symbol, interval string, c Candle) error
	InsertBatch(ctx context.Context, symbol, interval string, candles []Candle) error
}
