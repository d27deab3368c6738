package handlers

import (
	"github.com/aristath/papertrade/internal/modules/auth"
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all portfolio routes behind the auth middleware
func (h *PortfolioHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/portfolios", func(r chi.Router) {
		r.Get("/me", h.HandleMe)
		r.Get("/me/summary", h.HandleMySummary)
		r.With(auth.RequireAdmin).Get("/{userId}", h.HandleGet)
	})
}
