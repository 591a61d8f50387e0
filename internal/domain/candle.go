package domain

// Cluster is one price level inside a candle's volume profile. Levels are
// ordered by ascending price; volume fields are an equal split of the
// candle's aggregate buy/sell volumes across all levels.
type Cluster struct {
	Price      float64 `json:"price"`
	Volume     float64 `json:"volume"`
	BuyVolume  float64 `json:"buyVolume"`
	SellVolume float64 `json:"sellVolume"`
	Delta      float64 `json:"delta"`
	Aggression float64 `json:"aggression"`
}

// Candle is an OHLC summary of one time bucket, enriched with the buy/sell
// volume split and the derived cluster profile. Time is the bucket start in
// whole seconds and is always a multiple of the bucket width.
type Candle struct {
	Time       int64     `json:"time"`
	Open       float64   `json:"open"`
	High       float64   `json:"high"`
	Low        float64   `json:"low"`
	Close      float64   `json:"close"`
	Volume     float64   `json:"volume"`
	BuyVolume  float64   `json:"buyVolume"`
	SellVolume float64   `json:"sellVolume"`
	Delta      float64   `json:"delta"`
	Clusters   []Cluster `json:"clusters"`
}

// TradeEvent is a single trade from the live feed. IsBuyerMaker true means
// the aggressor was the seller, so the quantity routes to sell volume.
type TradeEvent struct {
	Time         int64   `json:"time"`
	Price        float64 `json:"price"`
	Quantity     float64 `json:"quantity"`
	IsBuyerMaker bool    `json:"isBuyerMaker"`
}

// Validate reports whether the event carries usable fields. Events failing
// validation are dropped by the aggregation loop.
func (e TradeEvent) Validate() error {
	if e.Time <= 0 {
		return ErrMalformedTrade
	}
	if e.Price <= 0 || e.Quantity <= 0 {
		return ErrMalformedTrade
	}
	return nil
}

// intervalWidths maps the supported kline intervals to their bucket width in
// seconds. WebSocket sessions always aggregate on "1m"; the REST snapshot
// endpoint accepts any supported interval.
var intervalWidths = map[string]int64{
	"1m":  60,
	"5m":  300,
	"15m": 900,
	"1h":  3600,
}

// IntervalWidth returns the bucket width in seconds for a supported interval.
func IntervalWidth(interval string) (int64, bool) {
	w, ok := intervalWidths[interval]
	return w, ok
}

// Intervals returns the supported interval names in ascending width order.
func Intervals() []string {
	return []string{"1m", "5m", "15m", "1h"}
}

// Bucket truncates a timestamp in seconds down to the start of its bucket.
func Bucket(ts, width int64) int64 {
	if width <= 0 {
		return ts
	}
	return ts - ts%width
}
