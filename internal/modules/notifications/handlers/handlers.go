// Package handlers provides HTTP handlers for notifications.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/aristath/papertrade/internal/api"
	"github.com/aristath/papertrade/internal/modules/auth"
	"github.com/aristath/papertrade/internal/modules/notifications"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// NotificationHandlers contains HTTP handlers for the notification API
type NotificationHandlers struct {
	service *notifications.Service
	log     zerolog.Logger
}

// NewNotificationHandlers creates a new notification handlers instance
func NewNotificationHandlers(service *notifications.Service, log zerolog.Logger) *NotificationHandlers {
	return &NotificationHandlers{
		service: service,
		log:     log.With().Str("handler", "notifications").Logger(),
	}
}

// HandleList returns the authenticated user's notifications, newest first.
// ?unread=true narrows the list to unread messages.
func (h *NotificationHandlers) HandleList(w http.ResponseWriter, r *http.Request) {
	unreadOnly := r.URL.Query().Get("unread") == "true"

	list, err := h.service.ListForUser(auth.UserIDFromContext(r.Context()), unreadOnly)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	if list == nil {
		list = []notifications.Notification{}
	}
	api.WriteJSON(w, http.StatusOK, list)
}

// HandleUnreadCount returns how many unread notifications the user has
func (h *NotificationHandlers) HandleUnreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.UnreadCount(auth.UserIDFromContext(r.Context()))
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]int{"unread": count})
}

type sendRequest struct {
	ReceiverID int64  `json:"receiver_id"`
	Subject    string `json:"subject"`
	Body       string `json:"body"`
}

// HandleSend writes a notification to another user's inbox (admin only)
func (h *NotificationHandlers) HandleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := api.Decode(r, &req); err != nil {
		api.WriteBadRequest(w, err.Error())
		return
	}

	senderID := auth.UserIDFromContext(r.Context())
	n, err := h.service.Send(&senderID, req.ReceiverID, req.Subject, req.Body)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, n)
}

// HandleMarkRead marks one of the user's notifications as read
func (h *NotificationHandlers) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		api.WriteBadRequest(w, "invalid notification id")
		return
	}

	if err := h.service.MarkRead(auth.UserIDFromContext(r.Context()), id); err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]bool{"read": true})
}

// HandleMarkAllRead marks every unread notification of the user as read
func (h *NotificationHandlers) HandleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.MarkAllRead(auth.UserIDFromContext(r.Context()))
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]int64{"marked": count})
}

// HandleDelete removes a notification. The receiver can delete their own;
// admins can delete any.
func (h *NotificationHandlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		api.WriteBadRequest(w, "invalid notification id")
		return
	}

	claims, ok := auth.ClaimsFromContext(r.Context())
	isAdmin := ok && claims.IsAdmin()

	if err := h.service.Delete(auth.UserIDFromContext(r.Context()), isAdmin, id); err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
