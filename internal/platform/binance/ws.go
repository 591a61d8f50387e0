package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/serted/cryptocluster/internal/domain"
)

const (
	// DefaultStreamURL is the Binance spot WebSocket stream root.
	DefaultStreamURL = "wss://stream.binance.com:9443"

	// handshakeTimeout bounds the WebSocket dial.
	handshakeTimeout = 15 * time.Second

	// readWait is the maximum silence tolerated on the stream before the
	// read fails. Binance pings roughly every 3 minutes.
	readWait = 5 * time.Minute

	// eventBufferSize is the per-subscription channel buffer for decoded
	// trade events.
	eventBufferSize = 256
)

// TradeStream opens per-symbol trade subscriptions on the Binance stream
// endpoint. Each subscription holds its own connection; closing the caller's
// context releases it.
type TradeStream struct {
	streamURL string
	logger    *slog.Logger
}

// NewTradeStream creates a TradeStream. streamURL falls back to
// DefaultStreamURL when empty.
func NewTradeStream(streamURL string, logger *slog.Logger) *TradeStream {
	if streamURL == "" {
		streamURL = DefaultStreamURL
	}
	return &TradeStream{
		streamURL: streamURL,
		logger:    logger.With(slog.String("component", "binance_trade_stream")),
	}
}

// SubscribeTrades connects to {symbol}@trade and returns a channel of
// decoded events. The channel is closed when the connection drops or ctx is
// cancelled. Unparseable frames are logged and skipped.
func (s *TradeStream) SubscribeTrades(ctx context.Context, symbol string) (<-chan domain.TradeEvent, error) {
	endpoint := fmt.Sprintf("%s/ws/%s@trade", s.streamURL, strings.ToLower(symbol))

	dialer := websocket.Dialer{
		HandshakeTimeout: handshakeTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("binance: dial trade stream %s: %w", symbol, err)
	}

	conn.SetReadDeadline(time.Now().Add(readWait))
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(readWait))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(10*time.Second))
	})

	events := make(chan domain.TradeEvent, eventBufferSize)

	// Unblock the read loop when the caller goes away.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	go s.readLoop(ctx, conn, symbol, events)

	s.logger.Info("trade stream subscribed", slog.String("symbol", symbol))
	return events, nil
}

func (s *TradeStream) readLoop(ctx context.Context, conn *websocket.Conn, symbol string, events chan<- domain.TradeEvent) {
	defer close(events)
	defer conn.Close()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				s.logger.Warn("trade stream read failed",
					slog.String("symbol", symbol),
					slog.String("error", err.Error()),
				)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(readWait))

		var raw StreamTrade
		if err := json.Unmarshal(message, &raw); err != nil {
			s.logger.Warn("dropping unparseable stream frame",
				slog.String("symbol", symbol),
				slog.String("error", err.Error()),
			)
			continue
		}
		if raw.EventType != "trade" {
			continue
		}

		ev, err := raw.ToDomainEvent()
		if err != nil {
			s.logger.Warn("dropping malformed trade",
				slog.String("symbol", symbol),
				slog.String("error", err.Error()),
			)
			continue
		}

		select {
		case events <- ev:
		case <-ctx.Done():
			return
		}
	}
}

// Compile-time interface check.
var _ domain.TradeStreamer = (*TradeStream)(nil)
