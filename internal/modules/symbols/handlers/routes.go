package handlers

import (
	"github.com/aristath/papertrade/internal/modules/auth"
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all symbol routes behind the auth middleware
func (h *SymbolHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/symbols", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.With(auth.RequireAdmin).Get("/all", h.HandleListAll)
		r.With(auth.RequireAdmin).Post("/import", h.HandleImport)
		r.With(auth.RequireAdmin).Get("/import/status", h.HandleImportStatus)
		r.Get("/{ticker}", h.HandleGet)
		r.Get("/{ticker}/quote", h.HandleQuote)
		r.Get("/{ticker}/history", h.HandleHistory)
		r.Get("/{ticker}/analytics", h.HandleAnalytics)
		r.With(auth.RequireAdmin).Put("/{ticker}/enabled", h.HandleSetEnabled)
	})
}
