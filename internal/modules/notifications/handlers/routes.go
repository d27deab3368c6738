package handlers

import (
	"github.com/aristath/papertrade/internal/modules/auth"
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all notification routes behind the auth middleware
func (h *NotificationHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/notifications", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Get("/unread-count", h.HandleUnreadCount)
		r.With(auth.RequireAdmin).Post("/", h.HandleSend)
		r.Post("/{id}/read", h.HandleMarkRead)
		r.Post("/read-all", h.HandleMarkAllRead)
		r.Delete("/{id}", h.HandleDelete)
	})
}
