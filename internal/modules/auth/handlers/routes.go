package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all auth routes. These are the only API routes
// that skip the auth middleware.
func (h *AuthHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.HandleRegister)
		r.Post("/login", h.HandleLogin)
		r.Post("/refresh", h.HandleRefresh)
		r.Post("/logout", h.HandleLogout)
	})
}
