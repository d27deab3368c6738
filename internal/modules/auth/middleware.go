package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/aristath/papertrade/internal/api"
	"github.com/aristath/papertrade/internal/domain"
	"github.com/rs/zerolog"
)

type contextKey string

const claimsContextKey contextKey = "auth_claims"

// ClaimsFromContext returns the verified claims placed by Middleware
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*Claims)
	return claims, ok
}

// UserIDFromContext returns the authenticated user's id, or 0 when absent
func UserIDFromContext(ctx context.Context) int64 {
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return 0
	}
	id, err := claims.UserID()
	if err != nil {
		return 0
	}
	return id
}

// Middleware verifies the Authorization bearer token and loads its claims
// into the request context. Requests without a valid token get 401.
func Middleware(tokenManager *TokenManager, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				api.WriteError(w, domain.ErrInvalidToken)
				return
			}

			claims, err := tokenManager.Verify(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				log.Debug().Err(err).Msg("Rejected access token")
				api.WriteError(w, domain.ErrInvalidToken)
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin gates a route to users carrying the ADMIN role. Must run
// after Middleware.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			api.WriteError(w, domain.ErrInvalidToken)
			return
		}
		if !claims.IsAdmin() {
			api.WriteError(w, domain.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
