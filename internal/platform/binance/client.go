// Package binance implements the market-data ports against the Binance spot
// REST and WebSocket APIs.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/serted/cryptocluster/internal/domain"
)

// DefaultBaseURL is the Binance spot REST API root.
const DefaultBaseURL = "https://api.binance.com"

// Client is the REST client for historical klines and recent trades.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a REST client. baseURL falls back to DefaultBaseURL when
// empty.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Klines fetches up to limit historical bars for symbol/interval, oldest
// first.
func (c *Client) Klines(ctx context.Context, symbol, interval string, limit int) ([]domain.Kline, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", interval)
	q.Set("limit", strconv.Itoa(limit))

	body, err := c.get(ctx, "/api/v3/klines", q)
	if err != nil {
		return nil, fmt.Errorf("binance: get klines %s: %w", symbol, err)
	}

	var rows []klineRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("binance: decode klines %s: %w", symbol, err)
	}

	klines := make([]domain.Kline, 0, len(rows))
	for i, row := range rows {
		k, err := row.ToDomainKline()
		if err != nil {
			return nil, fmt.Errorf("binance: kline %d for %s: %w", i, symbol, err)
		}
		klines = append(klines, k)
	}
	return klines, nil
}

// RecentTrades fetches up to limit recent aggregated trades for symbol,
// oldest first.
func (c *Client) RecentTrades(ctx context.Context, symbol string, limit int) ([]domain.RecentTrade, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("limit", strconv.Itoa(limit))

	body, err := c.get(ctx, "/api/v3/aggTrades", q)
	if err != nil {
		return nil, fmt.Errorf("binance: get agg trades %s: %w", symbol, err)
	}

	var raw []AggTrade
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("binance: decode agg trades %s: %w", symbol, err)
	}

	trades := make([]domain.RecentTrade, 0, len(raw))
	for i, t := range raw {
		rt, err := t.ToDomainTrade()
		if err != nil {
			return nil, fmt.Errorf("binance: agg trade %d for %s: %w", i, symbol, err)
		}
		trades = append(trades, rt)
	}
	return trades, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(body, 256))
	}
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return string(b)
}

// Compile-time interface check.
var _ domain.MarketData = (*Client)(nil)
