package handlers

import (
	"github.com/aristath/papertrade/internal/modules/auth"
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all trading routes behind the auth middleware
func (h *TradingHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/trading", func(r chi.Router) {
		r.Post("/buy", h.HandleBuy)
		r.Post("/sell", h.HandleSell)
		r.Get("/transactions", h.HandleHistory)
		r.With(auth.RequireAdmin).Get("/transactions/{userId}", h.HandleHistoryFor)
	})
}
