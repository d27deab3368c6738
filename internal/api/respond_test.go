package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aristath/papertrade/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	testCases := []struct {
		name   string
		err    error
		status int
	}{
		{"user not found", domain.ErrUserNotFound, http.StatusNotFound},
		{"symbol not found wrapped", fmt.Errorf("lookup: %w", domain.ErrSymbolNotFound), http.StatusNotFound},
		{"insufficient funds", domain.ErrInsufficientFunds, http.StatusBadRequest},
		{"insufficient shares", domain.ErrInsufficientShares, http.StatusBadRequest},
		{"duplicate username", domain.ErrDuplicateUsername, http.StatusConflict},
		{"symbol in use", domain.ErrSymbolInUse, http.StatusConflict},
		{"import running", domain.ErrImportRunning, http.StatusConflict},
		{"price moved", domain.ErrPriceMoved, http.StatusConflict},
		{"invalid credentials", domain.ErrInvalidCredentials, http.StatusUnauthorized},
		{"invalid token", domain.ErrInvalidToken, http.StatusUnauthorized},
		{"forbidden", domain.ErrForbidden, http.StatusForbidden},
		{"rate limited", domain.ErrRateLimited, http.StatusTooManyRequests},
		{"price unavailable", domain.ErrPriceUnavailable, http.StatusServiceUnavailable},
		{"unknown error", fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.status, StatusFor(tc.err))
		})
	}
}

func TestWriteError_HidesInternalDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, fmt.Errorf("pragma wal_checkpoint failed on /var/data/core.db"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal server error")
	assert.NotContains(t, rec.Body.String(), "core.db")
}

func TestWriteError_DomainMessagePassedThrough(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, domain.ErrInsufficientFunds)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "insufficient funds")
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestDecode_RejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"known":1,"mystery":2}`))

	var dst struct {
		Known int `json:"known"`
	}
	err := Decode(req, &dst)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid request body")
}

func TestDecode_ValidBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"known":7}`))

	var dst struct {
		Known int `json:"known"`
	}
	require.NoError(t, Decode(req, &dst))
	assert.Equal(t, 7, dst.Known)
}
