// Package ws serves the subscriber-facing WebSocket endpoint. Each
// connection gets its own session goroutine that streams a historical
// snapshot followed by live candle updates.
package ws

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/serted/cryptocluster/internal/aggregate"
	"github.com/serted/cryptocluster/internal/domain"
	"github.com/serted/cryptocluster/internal/history"
)

const (
	// liveInterval is the bucket used for live aggregation. Sessions
	// always stream 1-minute candles.
	liveInterval = "1m"

	// writeWait is the maximum time to wait for a write to complete.
	writeWait = 10 * time.Second

	// pingPeriod sends keepalive pings to the subscriber at this interval.
	pingPeriod = 54 * time.Second

	// persistTimeout bounds each detached cache/archive write.
	persistTimeout = 5 * time.Second

	// persistQueueSize bounds pending cache/archive writes per session.
	// Writes beyond it are dropped rather than stacking goroutines behind a
	// slow sink; later updates to the same bucket supersede them anyway.
	persistQueueSize = 64

	// maxMessageSize limits inbound frames; subscribers only ever send
	// control traffic.
	maxMessageSize = 1024
)

// upgrader configures the WebSocket upgrade parameters.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// CORS policy is enforced by middleware on the REST surface;
		// the stream itself is open.
		return true
	},
}

// message is the envelope for every frame pushed to a subscriber.
type message struct {
	Type    string `json:"type"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// Manager owns the set of active subscriber sessions and the dependencies
// they share. Cache and archive may be nil; the persist path skips them.
type Manager struct {
	loader  *history.Loader
	agg     *aggregate.Aggregator
	streams domain.TradeStreamer
	cache   domain.CandleCache
	archive domain.CandleArchive
	logger  *slog.Logger

	mu       sync.Mutex
	base     context.Context
	sessions map[*session]struct{}
}

// NewManager creates a session manager.
func NewManager(loader *history.Loader, agg *aggregate.Aggregator, streams domain.TradeStreamer, cache domain.CandleCache, archive domain.CandleArchive, logger *slog.Logger) *Manager {
	return &Manager{
		loader:   loader,
		agg:      agg,
		streams:  streams,
		cache:    cache,
		archive:  archive,
		logger:   logger.With(slog.String("component", "ws")),
		sessions: make(map[*session]struct{}),
	}
}

// Run parks until ctx is cancelled, then tears down every active session.
// Sessions opened while Run is active inherit ctx, so process shutdown
// cancels their pending awaits.
func (m *Manager) Run(ctx context.Context) error {
	m.mu.Lock()
	m.base = ctx
	m.mu.Unlock()

	<-ctx.Done()

	m.mu.Lock()
	for s := range m.sessions {
		s.cancel()
	}
	m.mu.Unlock()
	return ctx.Err()
}

// HandleWS upgrades the request and runs a subscriber session for the
// symbol in the path. It blocks until the session ends.
// GET /ws/{symbol}
func (m *Manager) HandleWS(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))
	if symbol == "" {
		http.Error(w, "symbol is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.logger.Error("ws upgrade failed", slog.String("error", err.Error()))
		return
	}

	m.mu.Lock()
	base := m.base
	m.mu.Unlock()
	if base == nil {
		base = context.Background()
	}
	ctx, cancel := context.WithCancel(base)

	s := &session{
		id:     uuid.NewString(),
		symbol: symbol,
		conn:   conn,
		cancel: cancel,
	}
	s.logger = m.logger.With(
		slog.String("session", s.id[:8]),
		slog.String("symbol", symbol),
	)

	m.add(s)
	defer m.remove(s)

	s.run(ctx, m)
}

func (m *Manager) add(s *session) {
	m.mu.Lock()
	m.sessions[s] = struct{}{}
	n := len(m.sessions)
	m.mu.Unlock()
	m.logger.Info("session opened",
		slog.String("symbol", s.symbol),
		slog.Int("active_sessions", n),
	)
}

func (m *Manager) remove(s *session) {
	m.mu.Lock()
	delete(m.sessions, s)
	n := len(m.sessions)
	m.mu.Unlock()
	m.logger.Info("session closed",
		slog.String("symbol", s.symbol),
		slog.Int("active_sessions", n),
	)
}

// ActiveSessions returns the number of currently connected subscribers.
func (m *Manager) ActiveSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// session is one subscriber connection.
type session struct {
	id     string
	symbol string
	conn   *websocket.Conn
	cancel context.CancelFunc
	logger *slog.Logger

	writeMu sync.Mutex
}

// run drives the session lifecycle: snapshot, live loop, teardown. The
// deferred cancel releases the trade subscription and any pending awaits.
func (s *session) run(ctx context.Context, m *Manager) {
	defer s.cancel()
	defer s.conn.Close()

	// Drain inbound frames so close frames and pongs are processed; any
	// read error means the subscriber went away.
	s.conn.SetReadLimit(maxMessageSize)
	go func() {
		for {
			if _, _, err := s.conn.ReadMessage(); err != nil {
				s.cancel()
				return
			}
		}
	}()

	if err := s.write(message{
		Type: "connection_status",
		Data: map[string]any{"connected": true, "symbol": s.symbol},
	}); err != nil {
		return
	}

	candles, err := m.loader.Load(ctx, s.symbol, liveInterval)
	if err != nil {
		s.logger.Error("historical load failed", slog.String("error", err.Error()))
		_ = s.write(message{Type: "error", Message: "failed to load historical data"})
		return
	}
	if err := s.write(message{Type: "historical", Data: candles}); err != nil {
		return
	}
	s.logger.Info("historical snapshot sent", slog.Int("candles", len(candles)))

	events, err := m.streams.SubscribeTrades(ctx, s.symbol)
	if err != nil {
		s.logger.Error("trade subscription failed", slog.String("error", err.Error()))
		_ = s.write(message{Type: "error", Message: "failed to subscribe to trade feed"})
		return
	}

	persistCh := make(chan domain.Candle, persistQueueSize)
	go s.persistLoop(ctx, m, persistCh)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			if err := s.ping(); err != nil {
				return
			}

		case ev, ok := <-events:
			if !ok {
				s.logger.Warn("trade feed closed")
				return
			}
			candle, err := m.agg.Apply(s.symbol, liveInterval, ev)
			if err != nil {
				if errors.Is(err, domain.ErrMalformedTrade) {
					s.logger.Warn("dropping malformed trade event")
					continue
				}
				s.logger.Error("aggregation failed", slog.String("error", err.Error()))
				continue
			}
			if err := s.write(message{Type: "update", Data: candle}); err != nil {
				return
			}
			s.enqueuePersist(persistCh, candle)
		}
	}
}

// enqueuePersist hands the candle to the persist worker without blocking the
// update loop. A full queue drops the write.
func (s *session) enqueuePersist(ch chan<- domain.Candle, c domain.Candle) {
	select {
	case ch <- c:
	default:
		s.logger.Warn("persist queue full, dropping candle write")
	}
}

// persistLoop is the session's single persistence worker. It drains queued
// candles until the session context is cancelled.
func (s *session) persistLoop(ctx context.Context, m *Manager, ch <-chan domain.Candle) {
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-ch:
			s.persist(m, c)
		}
	}
}

// persist writes the candle through to the cache and archive on its own
// timeout context. Failures are logged and never reach the subscriber.
func (s *session) persist(m *Manager, c domain.Candle) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if m.cache != nil {
		if err := m.cache.SetCandle(ctx, s.symbol, c); err != nil {
			s.logger.Warn("cache write failed", slog.String("error", err.Error()))
		}
	}
	if m.archive != nil {
		if err := m.archive.UpsertCandle(ctx, s.symbol, liveInterval, c); err != nil {
			s.logger.Warn("archive write failed", slog.String("error", err.Error()))
		}
	}
}

func (s *session) write(msg message) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(msg)
}

func (s *session) ping() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.PingMessage, nil)
}
