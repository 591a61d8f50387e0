package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/serted/cryptocluster/internal/domain"
	"github.com/serted/cryptocluster/internal/history"
	"github.com/serted/cryptocluster/internal/store"
)

type stubMarket struct {
	klines []domain.Kline
	err    error
}

func (s *stubMarket) Klines(ctx context.Context, symbol, interval string, limit int) ([]domain.Kline, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.klines, nil
}

func (s *stubMarket) RecentTrades(ctx context.Context, symbol string, limit int) ([]domain.RecentTrade, error) {
	return nil, s.err
}

func newCandleHandler(market domain.MarketData) *CandleHandler {
	loader := history.NewLoader(market, store.New(), nil, history.Config{}, slog.Default())
	return NewCandleHandler(loader, slog.Default())
}

func serveCandles(h *CandleHandler, target string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/candles/{symbol}", h.GetCandles)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestGetCandles(t *testing.T) {
	h := newCandleHandler(&stubMarket{
		klines: []domain.Kline{
			{OpenTime: 0, Open: 100, High: 101, Low: 99, Close: 100, Volume: 5},
			{OpenTime: 60, Open: 100, High: 102, Low: 100, Close: 102, Volume: 7},
		},
	})

	rec := serveCandles(h, "/api/candles/btcusdt")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Symbol   string          `json:"symbol"`
		Interval string          `json:"interval"`
		Candles  []domain.Candle `json:"candles"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Symbol != "BTCUSDT" {
		t.Errorf("symbol = %q, want BTCUSDT (upper-cased)", body.Symbol)
	}
	if body.Interval != "1m" {
		t.Errorf("interval = %q, want default 1m", body.Interval)
	}
	if len(body.Candles) != 2 {
		t.Errorf("got %d candles, want 2", len(body.Candles))
	}
}

func TestGetCandlesLimit(t *testing.T) {
	h := newCandleHandler(&stubMarket{
		klines: []domain.Kline{
			{OpenTime: 0, Open: 1, High: 1, Low: 1, Close: 1},
			{OpenTime: 60, Open: 2, High: 2, Low: 2, Close: 2},
			{OpenTime: 120, Open: 3, High: 3, Low: 3, Close: 3},
		},
	})

	rec := serveCandles(h, "/api/candles/BTCUSDT?limit=2")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Candles []domain.Candle `json:"candles"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Candles) != 2 {
		t.Fatalf("got %d candles, want 2", len(body.Candles))
	}
	// The tail of the series is kept.
	if body.Candles[0].Time != 60 || body.Candles[1].Time != 120 {
		t.Errorf("candle times = %d/%d, want 60/120", body.Candles[0].Time, body.Candles[1].Time)
	}
}

func TestGetCandlesUnknownInterval(t *testing.T) {
	h := newCandleHandler(&stubMarket{})

	rec := serveCandles(h, "/api/candles/BTCUSDT?interval=2m")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestGetCandlesUpstreamFailure(t *testing.T) {
	h := newCandleHandler(&stubMarket{err: errors.New("venue down")})

	rec := serveCandles(h, "/api/candles/BTCUSDT")
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["error"] == "" {
		t.Error("error body is empty")
	}
}

func TestGetSymbols(t *testing.T) {
	h := newCandleHandler(&stubMarket{})

	rec := httptest.NewRecorder()
	h.GetSymbols(rec, httptest.NewRequest(http.MethodGet, "/api/symbols", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Intervals []string `json:"intervals"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Intervals) != 4 {
		t.Errorf("got %d intervals, want 4", len(body.Intervals))
	}
}

func TestHealthCheck(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthHandler().HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
}
