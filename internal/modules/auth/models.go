// Package auth implements credential checks, JWT access tokens and the
// refresh token rotation state machine.
package auth

import "time"

// RefreshToken is an opaque, persisted token tied to one login session.
// Its lifecycle is {active} -> {revoked} or {expired}, both terminal.
type RefreshToken struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Revoked   bool      `json:"revoked"`
	CreatedAt time.Time `json:"created_at"`
}

// Usable reports whether the token can still be redeemed at the given time
func (t *RefreshToken) Usable(now time.Time) bool {
	return !t.Revoked && now.Before(t.ExpiresAt)
}

// TokenPair is what login and refresh hand back to the client
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"` // Access token lifetime in seconds
}
