package handlers

import (
	"github.com/aristath/papertrade/internal/modules/auth"
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all user routes. The router is expected to be
// mounted behind the auth middleware.
func (h *UserHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.With(auth.RequireAdmin).Get("/", h.HandleList)
		r.Get("/me", h.HandleMe)
		r.Patch("/me", h.HandleUpdateMe)
		r.Get("/me/mystery", h.HandleGetMystery)
		r.Post("/me/mystery", h.HandleClaimMystery)
		r.Get("/{id}", h.HandleGet)
		r.With(auth.RequireAdmin).Delete("/{id}", h.HandleDelete)
	})
}
