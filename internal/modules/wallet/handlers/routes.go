package handlers

import (
	"github.com/aristath/papertrade/internal/modules/auth"
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all wallet routes behind the auth middleware
func (h *WalletHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/wallets", func(r chi.Router) {
		r.Get("/me", h.HandleMe)
		r.With(auth.RequireAdmin).Get("/{userId}", h.HandleGet)
		r.With(auth.RequireAdmin).Post("/{userId}/adjust", h.HandleAdjust)
	})
}
