// Package handlers provides HTTP handlers for portfolios.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/aristath/papertrade/internal/api"
	"github.com/aristath/papertrade/internal/modules/auth"
	"github.com/aristath/papertrade/internal/modules/portfolio"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// PortfolioHandlers contains HTTP handlers for the portfolio API
type PortfolioHandlers struct {
	service *portfolio.Service
	log     zerolog.Logger
}

// NewPortfolioHandlers creates a new portfolio handlers instance
func NewPortfolioHandlers(service *portfolio.Service, log zerolog.Logger) *PortfolioHandlers {
	return &PortfolioHandlers{
		service: service,
		log:     log.With().Str("handler", "portfolio").Logger(),
	}
}

// HandleMe returns the authenticated user's positions with current valuation
func (h *PortfolioHandlers) HandleMe(w http.ResponseWriter, r *http.Request) {
	positions, err := h.service.ListForUser(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, positions)
}

// HandleMySummary returns portfolio totals and per-position weights for the
// authenticated user
func (h *PortfolioHandlers) HandleMySummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summarize(r.Context(), auth.UserIDFromContext(r.Context()))
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, summary)
}

// HandleGet returns any user's positions (admin only)
func (h *PortfolioHandlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
	if err != nil {
		api.WriteBadRequest(w, "invalid user id")
		return
	}

	positions, err := h.service.ListForUser(r.Context(), userID)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, positions)
}
