package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/papertrade/internal/api"
	"github.com/aristath/papertrade/internal/domain"
	"github.com/aristath/papertrade/internal/events"
	"github.com/aristath/papertrade/internal/modules/symbols"
	"github.com/aristath/papertrade/internal/quotes"
)

// maxStreamSymbols caps how many symbols one stream may watch
const maxStreamSymbols = 50

// heartbeatInterval keeps idle streams alive through proxies
const heartbeatInterval = 15 * time.Second

// SymbolGetter resolves a ticker to its catalog entry
type SymbolGetter interface {
	Get(ticker string) (*symbols.Symbol, error)
}

// PriceStreamHandler streams live price updates over Server-Sent Events.
// One bus subscription fans out to every connected client; each connection
// filters on its own symbol set.
type PriceStreamHandler struct {
	quotes   *quotes.Service
	symbols  SymbolGetter
	registry *quotes.InterestRegistry
	log      zerolog.Logger

	mu    sync.RWMutex
	conns map[*streamConn]struct{}
}

// streamConn is one client connection's delivery buffer
type streamConn struct {
	symbols map[string]bool
	ch      chan *events.Event
}

// NewPriceStreamHandler creates the stream handler and subscribes it to
// price updates
func NewPriceStreamHandler(
	quoteService *quotes.Service,
	symbolService SymbolGetter,
	registry *quotes.InterestRegistry,
	bus *events.Bus,
	log zerolog.Logger,
) *PriceStreamHandler {
	h := &PriceStreamHandler{
		quotes:   quoteService,
		symbols:  symbolService,
		registry: registry,
		log:      log.With().Str("component", "price_stream").Logger(),
		conns:    make(map[*streamConn]struct{}),
	}
	bus.Subscribe(events.PriceUpdated, h.fanOut)
	return h
}

// fanOut delivers a price event to every connection watching its symbol.
// Sends never block; a slow client loses ticks, not the stream.
func (h *PriceStreamHandler) fanOut(e *events.Event) {
	symbol, _ := e.Data["symbol"].(string)
	if symbol == "" {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for conn := range h.conns {
		if !conn.symbols[symbol] {
			continue
		}
		select {
		case conn.ch <- e:
		default:
			h.log.Debug().Str("symbol", symbol).Msg("Stream buffer full, dropping tick")
		}
	}
}

// ServeHTTP handles GET /api/stream/prices?symbols=AAPL,MSFT
func (h *PriceStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requested := parseStreamSymbols(r.URL.Query().Get("symbols"))
	if len(requested) == 0 {
		api.WriteBadRequest(w, "symbols query parameter is required")
		return
	}
	if len(requested) > maxStreamSymbols {
		api.WriteBadRequest(w, fmt.Sprintf("at most %d symbols per stream", maxStreamSymbols))
		return
	}

	// Validate against the catalog. Rejected symbols become error events on
	// the stream; the request only fails when nothing remains.
	var accepted []string
	rejected := make(map[string]string)
	for _, ticker := range requested {
		symbol, err := h.symbols.Get(ticker)
		if errors.Is(err, domain.ErrSymbolNotFound) {
			rejected[ticker] = "unknown symbol"
			continue
		}
		if err != nil {
			rejected[ticker] = "symbol lookup failed"
			h.log.Warn().Err(err).Str("symbol", ticker).Msg("Symbol lookup failed")
			continue
		}
		if !symbol.Enabled {
			rejected[ticker] = "symbol disabled"
			continue
		}
		accepted = append(accepted, symbol.Ticker)
	}
	if len(accepted) == 0 {
		api.WriteBadRequest(w, "no valid symbols requested")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	conn := &streamConn{
		symbols: make(map[string]bool, len(accepted)),
		ch:      make(chan *events.Event, 100),
	}
	for _, symbol := range accepted {
		conn.symbols[symbol] = true
	}

	h.addConn(conn)
	h.registry.Add(accepted)
	defer func() {
		h.registry.Remove(accepted)
		h.removeConn(conn)
	}()

	h.log.Info().Strs("symbols", accepted).Msg("Price stream connected")

	for ticker, reason := range rejected {
		if err := writeSSE(w, flusher, "error", map[string]string{"symbol": ticker, "error": reason}); err != nil {
			return
		}
	}

	// Connect-time snapshot so clients render prices before the first tick
	for _, symbol := range accepted {
		quote, err := h.quotes.GetQuote(r.Context(), symbol)
		if err != nil {
			if werr := writeSSE(w, flusher, "error", map[string]string{"symbol": symbol, "error": "quote unavailable"}); werr != nil {
				return
			}
			continue
		}
		if err := writeSSE(w, flusher, "price", quotePayload(quote)); err != nil {
			return
		}
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	done := r.Context().Done()
	for {
		select {
		case <-done:
			h.log.Debug().Msg("Price stream disconnected")
			return

		case event := <-conn.ch:
			if err := writeSSE(w, flusher, "price", event.Data); err != nil {
				h.log.Debug().Err(err).Msg("Price stream write failed")
				return
			}

		case <-heartbeat.C:
			payload := map[string]string{"timestamp": time.Now().UTC().Format(time.RFC3339)}
			if err := writeSSE(w, flusher, "heartbeat", payload); err != nil {
				h.log.Debug().Err(err).Msg("Price stream write failed")
				return
			}
		}
	}
}

func (h *PriceStreamHandler) addConn(conn *streamConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = struct{}{}
}

func (h *PriceStreamHandler) removeConn(conn *streamConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, conn)
}

// ConnectionCount returns how many stream clients are connected
func (h *PriceStreamHandler) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// parseStreamSymbols splits, trims, uppercases and deduplicates the symbols
// query parameter
func parseStreamSymbols(raw string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, part := range strings.Split(raw, ",") {
		ticker := strings.ToUpper(strings.TrimSpace(part))
		if ticker == "" || seen[ticker] {
			continue
		}
		seen[ticker] = true
		out = append(out, ticker)
	}
	return out
}

// quotePayload mirrors the PRICE_UPDATED event data shape so snapshot and
// live events are interchangeable on the wire
func quotePayload(q *domain.Quote) map[string]interface{} {
	return map[string]interface{}{
		"symbol":         q.Symbol,
		"price":          q.Price,
		"change":         q.Change,
		"change_percent": q.ChangePercent,
		"high":           q.High,
		"low":            q.Low,
		"timestamp":      q.Timestamp,
	}
}

// writeSSE writes one named Server-Sent Event and flushes it
func writeSSE(w http.ResponseWriter, flusher http.Flusher, name string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	flusher.Flush()
	return nil
}
