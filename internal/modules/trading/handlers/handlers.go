// Package handlers provides HTTP handlers for trading.
package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/aristath/papertrade/internal/api"
	"github.com/aristath/papertrade/internal/modules/auth"
	"github.com/aristath/papertrade/internal/modules/trading"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// TradingHandlers contains HTTP handlers for the trading API
type TradingHandlers struct {
	service *trading.Service
	log     zerolog.Logger
}

// NewTradingHandlers creates a new trading handlers instance
func NewTradingHandlers(service *trading.Service, log zerolog.Logger) *TradingHandlers {
	return &TradingHandlers{
		service: service,
		log:     log.With().Str("handler", "trading").Logger(),
	}
}

type orderRequest struct {
	Ticker        string           `json:"ticker"`
	Shares        decimal.Decimal  `json:"shares"`
	ExpectedPrice *decimal.Decimal `json:"expected_price"`
}

// HandleBuy executes a buy order for the authenticated user
func (h *TradingHandlers) HandleBuy(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := api.Decode(r, &req); err != nil {
		api.WriteBadRequest(w, err.Error())
		return
	}
	if strings.TrimSpace(req.Ticker) == "" {
		api.WriteBadRequest(w, "ticker is required")
		return
	}

	txn, err := h.service.ExecuteBuy(r.Context(), auth.UserIDFromContext(r.Context()),
		req.Ticker, req.Shares, req.ExpectedPrice)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, txn)
}

// HandleSell executes a sell order for the authenticated user
func (h *TradingHandlers) HandleSell(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := api.Decode(r, &req); err != nil {
		api.WriteBadRequest(w, err.Error())
		return
	}
	if strings.TrimSpace(req.Ticker) == "" {
		api.WriteBadRequest(w, "ticker is required")
		return
	}

	txn, err := h.service.ExecuteSell(r.Context(), auth.UserIDFromContext(r.Context()),
		req.Ticker, req.Shares, req.ExpectedPrice)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, txn)
}

// HandleHistory returns the authenticated user's transaction history
func (h *TradingHandlers) HandleHistory(w http.ResponseWriter, r *http.Request) {
	h.writeHistory(w, r, auth.UserIDFromContext(r.Context()))
}

// HandleHistoryFor returns any user's transaction history (admin only)
func (h *TradingHandlers) HandleHistoryFor(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
	if err != nil {
		api.WriteBadRequest(w, "invalid user id")
		return
	}
	h.writeHistory(w, r, userID)
}

func (h *TradingHandlers) writeHistory(w http.ResponseWriter, r *http.Request, userID int64) {
	filter, ok := parseFilter(w, r)
	if !ok {
		return
	}

	transactions, err := h.service.History(userID, filter)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	if transactions == nil {
		transactions = []trading.Transaction{}
	}
	api.WriteJSON(w, http.StatusOK, transactions)
}

// parseFilter reads the ticker/side/limit query parameters. On invalid input
// it writes a 400 and returns ok=false.
func parseFilter(w http.ResponseWriter, r *http.Request) (trading.ListFilter, bool) {
	filter := trading.ListFilter{
		Ticker: r.URL.Query().Get("ticker"),
	}

	if side := strings.ToUpper(r.URL.Query().Get("side")); side != "" {
		if side != trading.SideBuy && side != trading.SideSell {
			api.WriteBadRequest(w, "side must be BUY or SELL")
			return filter, false
		}
		filter.Side = side
	}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			api.WriteBadRequest(w, "limit must be a positive integer")
			return filter, false
		}
		filter.Limit = limit
	}

	return filter, true
}
