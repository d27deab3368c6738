// Package handlers provides HTTP handlers for authentication.
package handlers

import (
	"net/http"

	"github.com/aristath/papertrade/internal/api"
	"github.com/aristath/papertrade/internal/modules/auth"
	"github.com/rs/zerolog"
)

// AuthHandlers contains HTTP handlers for the auth API
type AuthHandlers struct {
	service *auth.Service
	log     zerolog.Logger
}

// NewAuthHandlers creates a new auth handlers instance
func NewAuthHandlers(service *auth.Service, log zerolog.Logger) *AuthHandlers {
	return &AuthHandlers{
		service: service,
		log:     log.With().Str("handler", "auth").Logger(),
	}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// HandleRegister creates a new account
func (h *AuthHandlers) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := api.Decode(r, &req); err != nil {
		api.WriteBadRequest(w, err.Error())
		return
	}

	user, err := h.service.Register(req.Username, req.Email, req.Password)
	if err != nil {
		api.WriteError(w, err)
		return
	}

	api.WriteJSON(w, http.StatusCreated, user)
}

// HandleLogin checks credentials and returns a token pair
func (h *AuthHandlers) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := api.Decode(r, &req); err != nil {
		api.WriteBadRequest(w, err.Error())
		return
	}

	pair, user, err := h.service.Login(req.Username, req.Password)
	if err != nil {
		api.WriteError(w, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"user":   user,
		"tokens": pair,
	})
}

// HandleRefresh rotates a refresh token
func (h *AuthHandlers) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := api.Decode(r, &req); err != nil {
		api.WriteBadRequest(w, err.Error())
		return
	}

	pair, err := h.service.Refresh(req.RefreshToken)
	if err != nil {
		api.WriteError(w, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, pair)
}

// HandleLogout revokes a refresh token. Always answers 204; revoking an
// unknown token is not an error.
func (h *AuthHandlers) HandleLogout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := api.Decode(r, &req); err != nil {
		api.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.service.Logout(req.RefreshToken); err != nil {
		api.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
