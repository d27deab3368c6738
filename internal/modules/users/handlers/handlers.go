// Package handlers provides HTTP handlers for user management.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/aristath/papertrade/internal/api"
	"github.com/aristath/papertrade/internal/domain"
	"github.com/aristath/papertrade/internal/modules/auth"
	"github.com/aristath/papertrade/internal/modules/users"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// UserHandlers contains HTTP handlers for the users API
type UserHandlers struct {
	service *users.Service
	log     zerolog.Logger
}

// NewUserHandlers creates a new user handlers instance
func NewUserHandlers(service *users.Service, log zerolog.Logger) *UserHandlers {
	return &UserHandlers{
		service: service,
		log:     log.With().Str("handler", "users").Logger(),
	}
}

// HandleList returns all users (admin only)
func (h *UserHandlers) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List()
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, list)
}

// HandleMe returns the authenticated user
func (h *UserHandlers) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetByID(auth.UserIDFromContext(r.Context()))
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, user)
}

// HandleGet returns a user by id. Users may read themselves; reading anyone
// else requires the ADMIN role.
func (h *UserHandlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		api.WriteBadRequest(w, "invalid user id")
		return
	}

	claims, _ := auth.ClaimsFromContext(r.Context())
	if auth.UserIDFromContext(r.Context()) != id && (claims == nil || !claims.IsAdmin()) {
		api.WriteError(w, domain.ErrForbidden)
		return
	}

	user, err := h.service.GetByID(id)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, user)
}

type updateEmailRequest struct {
	Email string `json:"email"`
}

// HandleUpdateMe updates the authenticated user's email
func (h *UserHandlers) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	var req updateEmailRequest
	if err := api.Decode(r, &req); err != nil {
		api.WriteBadRequest(w, err.Error())
		return
	}

	userID := auth.UserIDFromContext(r.Context())
	if err := h.service.UpdateEmail(userID, req.Email); err != nil {
		api.WriteError(w, err)
		return
	}

	user, err := h.service.GetByID(userID)
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, user)
}

// HandleDelete removes a user and everything it owns (admin only)
func (h *UserHandlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		api.WriteBadRequest(w, "invalid user id")
		return
	}

	if err := h.service.Delete(id); err != nil {
		api.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleGetMystery returns the caller's mystery page, 404 until claimed
func (h *UserHandlers) HandleGetMystery(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.GetMystery(auth.UserIDFromContext(r.Context()))
	if err != nil {
		api.WriteError(w, err)
		return
	}
	if page == nil {
		api.WriteError(w, domain.ErrMysteryPageNotFound)
		return
	}
	api.WriteJSON(w, http.StatusOK, page)
}

// HandleClaimMystery claims the caller's mystery page. Claiming again
// returns the already-claimed page.
func (h *UserHandlers) HandleClaimMystery(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.ClaimMystery(auth.UserIDFromContext(r.Context()))
	if err != nil {
		api.WriteError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, page)
}
