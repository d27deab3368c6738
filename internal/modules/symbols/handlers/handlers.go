// Package handlers provides HTTP handlers for the symbol catalog.
package handlers

import (
	"context"
	"net/http"

	"github.com/aristath/papertrade/internal/api"
	"github.com/aristath/papertrade/internal/domain"
	"github.com/aristath/papertrade/internal/modules/symbols"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// QuoteGetter returns current quotes. Satisfied by the quote service.
type QuoteGetter interface {
	GetQuote(ctx context.Context, symbol string) (*domain.Quote, error)
}

// SymbolHandlers contains HTTP handlers for the symbols API
type SymbolHandlers struct {
	service   *symbols.Service
	importer  *symbols.ImportService
	analytics *symbols.AnalyticsService
	history   symbols.HistoryProvider
	quotes    QuoteGetter
	log       zerolog.Logger
}

// NewSymbolHandlers creates a new symbol handlers instance
func NewSymbolHandlers(
	service *symbols.Service,
	importer *symbols.ImportService,
	analytics *symbols.AnalyticsService,
	history symbols.HistoryProvider,
	quotes QuoteGetter,
	log zerolog.Logger,
) *SymbolHandlers {
	return &SymbolHandlers{
		service:   service,
		importer:  importer,
		analytics: analytics,
		history:   history,
		quotes:    quotes,
		log:       log.With().Str("handler", "symbols").Logger(),
	}
}

// HandleList returns the enabled (tradable) catalog
func (h *SymbolHandlers) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListEnabled()
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, list)
}

// HandleListAll returns every symbol including disabled ones (admin only)
func (h *SymbolHandlers) HandleListAll(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListAll()
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, list)
}

// HandleGet returns one symbol
func (h *SymbolHandlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	symbol, err := h.service.Get(chi.URLParam(r, "ticker"))
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, symbol)
}

// HandleQuote returns the current quote for a known symbol
func (h *SymbolHandlers) HandleQuote(w http.ResponseWriter, r *http.Request) {
	symbol, err := h.service.Get(chi.URLParam(r, "ticker"))
	if err != nil {
		api.WriteError(w, err)
		return
	}

	quote, err := h.quotes.GetQuote(r.Context(), symbol.Ticker)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, quote)
}

// HandleHistory returns daily candles for a known symbol
func (h *SymbolHandlers) HandleHistory(w http.ResponseWriter, r *http.Request) {
	symbol, err := h.service.Get(chi.URLParam(r, "ticker"))
	if err != nil {
		api.WriteError(w, err)
		return
	}

	rng := r.URL.Query().Get("range")
	if rng == "" {
		rng = "3mo"
	}

	candles, err := h.history.GetDailyHistory(r.Context(), symbol.Ticker, rng)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, candles)
}

// HandleAnalytics returns indicator and return statistics for a known symbol
func (h *SymbolHandlers) HandleAnalytics(w http.ResponseWriter, r *http.Request) {
	symbol, err := h.service.Get(chi.URLParam(r, "ticker"))
	if err != nil {
		api.WriteError(w, err)
		return
	}

	rng := r.URL.Query().Get("range")
	if rng == "" {
		rng = "3mo"
	}

	analytics, err := h.analytics.Analyze(r.Context(), symbol.Ticker, rng)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, analytics)
}

// HandleImport starts a background catalog import (admin only). Answers 409
// while a run is already in flight.
func (h *SymbolHandlers) HandleImport(w http.ResponseWriter, r *http.Request) {
	// The import outlives this request, so it must not inherit its context
	if err := h.importer.Start(context.WithoutCancel(r.Context())); err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusAccepted, h.importer.Progress())
}

// HandleImportStatus returns a snapshot of the current or last import run
// (admin only)
func (h *SymbolHandlers) HandleImportStatus(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, h.importer.Progress())
}

type setEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

// HandleSetEnabled enables or disables a symbol for trading (admin only).
// Disabling a symbol that open positions or history reference answers 409.
func (h *SymbolHandlers) HandleSetEnabled(w http.ResponseWriter, r *http.Request) {
	var req setEnabledRequest
	if err := api.Decode(r, &req); err != nil {
		api.WriteBadRequest(w, err.Error())
		return
	}

	symbol, err := h.service.SetEnabled(chi.URLParam(r, "ticker"), req.Enabled)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, symbol)
}
