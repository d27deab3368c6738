// Package handlers provides HTTP handlers for wallets.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/aristath/papertrade/internal/api"
	"github.com/aristath/papertrade/internal/modules/auth"
	"github.com/aristath/papertrade/internal/modules/wallet"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// WalletHandlers contains HTTP handlers for the wallet API
type WalletHandlers struct {
	service *wallet.Service
	log     zerolog.Logger
}

// NewWalletHandlers creates a new wallet handlers instance
func NewWalletHandlers(service *wallet.Service, log zerolog.Logger) *WalletHandlers {
	return &WalletHandlers{
		service: service,
		log:     log.With().Str("handler", "wallet").Logger(),
	}
}

// HandleMe returns the authenticated user's wallet
func (h *WalletHandlers) HandleMe(w http.ResponseWriter, r *http.Request) {
	wlt, err := h.service.Get(auth.UserIDFromContext(r.Context()))
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, wlt)
}

// HandleGet returns any user's wallet (admin only)
func (h *WalletHandlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
	if err != nil {
		api.WriteBadRequest(w, "invalid user id")
		return
	}

	wlt, err := h.service.Get(userID)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, wlt)
}

type adjustRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// HandleAdjust applies a cash adjustment to a user's wallet (admin only).
// Negative amounts withdraw; the balance can never go below zero.
func (h *WalletHandlers) HandleAdjust(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
	if err != nil {
		api.WriteBadRequest(w, "invalid user id")
		return
	}

	var req adjustRequest
	if err := api.Decode(r, &req); err != nil {
		api.WriteBadRequest(w, err.Error())
		return
	}
	if req.Amount.IsZero() {
		api.WriteBadRequest(w, "amount must be non-zero")
		return
	}

	wlt, err := h.service.Adjust(userID, req.Amount)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, wlt)
}
