package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/serted/cryptocluster/internal/domain"
	"github.com/serted/cryptocluster/internal/history"
)

// CandleHandler serves REST snapshots of enriched candle series.
type CandleHandler struct {
	loader *history.Loader
	logger *slog.Logger
}

// NewCandleHandler creates a CandleHandler backed by the historical loader.
func NewCandleHandler(loader *history.Loader, logger *slog.Logger) *CandleHandler {
	return &CandleHandler{
		loader: loader,
		logger: logger.With(slog.String("handler", "candles")),
	}
}

// GetCandles returns the candle series for a symbol, going through the
// loader's staleness gate.
// GET /api/candles/{symbol}?interval=1m&limit=200
func (h *CandleHandler) GetCandles(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	interval := r.URL.Query().Get("interval")
	if interval == "" {
		interval = "1m"
	}

	candles, err := h.loader.Load(r.Context(), symbol, interval)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownInterval) {
			writeError(w, http.StatusBadRequest, "unsupported interval")
			return
		}
		h.logger.ErrorContext(r.Context(), "historical load failed",
			slog.String("symbol", symbol),
			slog.String("interval", interval),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "failed to load candle data")
		return
	}

	limit := queryInt(r, "limit", len(candles))
	if limit < len(candles) {
		candles = candles[len(candles)-limit:]
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"symbol":   symbol,
		"interval": interval,
		"candles":  candles,
	})
}

// GetSymbols lists the supported intervals. Symbols are pass-through to the
// venue, so only the interval table is authoritative here.
// GET /api/symbols
func (h *CandleHandler) GetSymbols(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"intervals": domain.Intervals(),
	})
}
