package binance

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/serted/cryptocluster/internal/domain"
)

// klineRow is one /api/v3/klines entry: a heterogeneous JSON array of
// [openTime, open, high, low, close, volume, closeTime, ...] where prices
// and volumes are decimal strings.
type klineRow []json.RawMessage

// ToDomainKline parses the row into a domain.Kline, converting the
// millisecond open time to whole seconds.
func (r klineRow) ToDomainKline() (domain.Kline, error) {
	if len(r) < 6 {
		return domain.Kline{}, fmt.Errorf("kline row has %d fields, want at least 6", len(r))
	}

	var openTimeMs int64
	if err := json.Unmarshal(r[0], &openTimeMs); err != nil {
		return domain.Kline{}, fmt.Errorf("parse open time: %w", err)
	}

	vals := make([]float64, 5)
	for i := 1; i <= 5; i++ {
		var s string
		if err := json.Unmarshal(r[i], &s); err != nil {
			return domain.Kline{}, fmt.Errorf("parse kline field %d: %w", i, err)
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return domain.Kline{}, fmt.Errorf("parse kline field %d: %w", i, err)
		}
		vals[i-1] = f
	}

	return domain.Kline{
		OpenTime: openTimeMs / 1000,
		Open:     vals[0],
		High:     vals[1],
		Low:      vals[2],
		Close:    vals[3],
		Volume:   vals[4],
	}, nil
}

// AggTrade is one /api/v3/aggTrades entry.
type AggTrade struct {
	Price        string `json:"p"`
	Quantity     string `json:"q"`
	Time         int64  `json:"T"` // milliseconds
	IsBuyerMaker bool   `json:"m"`
}

// ToDomainTrade converts the wire trade to the domain representation.
func (t AggTrade) ToDomainTrade() (domain.RecentTrade, error) {
	price, err := strconv.ParseFloat(t.Price, 64)
	if err != nil {
		return domain.RecentTrade{}, fmt.Errorf("parse trade price: %w", err)
	}
	qty, err := strconv.ParseFloat(t.Quantity, 64)
	if err != nil {
		return domain.RecentTrade{}, fmt.Errorf("parse trade quantity: %w", err)
	}
	return domain.RecentTrade{
		Time:         t.Time / 1000,
		Price:        price,
		Quantity:     qty,
		IsBuyerMaker: t.IsBuyerMaker,
	}, nil
}

// StreamTrade is one message from the {symbol}@trade WebSocket stream.
type StreamTrade struct {
	EventType    string `json:"e"`
	Symbol       string `json:"s"`
	Price        string `json:"p"`
	Quantity     string `json:"q"`
	TradeTime    int64  `json:"T"` // milliseconds
	IsBuyerMaker bool   `json:"m"`
}

// ToDomainEvent converts the stream message to a domain trade event.
func (t StreamTrade) ToDomainEvent() (domain.TradeEvent, error) {
	price, err := strconv.ParseFloat(t.Price, 64)
	if err != nil {
		return domain.TradeEvent{}, fmt.Errorf("parse stream price: %w", err)
	}
	qty, err := strconv.ParseFloat(t.Quantity, 64)
	if err != nil {
		return domain.TradeEvent{}, fmt.Errorf("parse stream quantity: %w", err)
	}
	return domain.TradeEvent{
		Time:         t.TradeTime / 1000,
		Price:        price,
		Quantity:     qty,
		IsBuyerMaker: t.IsBuyerMaker,
	}, nil
}
