package auth

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// execer is satisfied by *sql.DB and *sql.Tx
type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

// TokenRepository handles refresh token database operations
type TokenRepository struct {
	coreDB *sql.DB
	log    zerolog.Logger
}

// NewTokenRepository creates a new refresh token repository
func NewTokenRepository(coreDB *sql.DB, log zerolog.Logger) *TokenRepository {
	return &TokenRepository{
		coreDB: coreDB,
		log:    log.With().Str("repo", "tokens").Logger(),
	}
}

// Create persists a refresh token and sets its ID
func (r *TokenRepository) Create(token *RefreshToken) error {
	return r.create(r.coreDB, token)
}

// CreateTx persists a refresh token inside an existing transaction
func (r *TokenRepository) CreateTx(tx *sql.Tx, token *RefreshToken) error {
	return r.create(tx, token)
}

func (r *TokenRepository) create(q execer, token *RefreshToken) error {
	result, err := q.Exec(`
		INSERT INTO refresh_tokens (user_id, token, expires_at, revoked, created_at)
		VALUES (?, ?, ?, 0, ?)
	`, token.UserID, token.Token, token.ExpiresAt.Unix(), token.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to create refresh token: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get refresh token id: %w", err)
	}
	token.ID = id

	return nil
}

// GetByToken retrieves a refresh token by its opaque string.
// Returns (nil, nil) when unknown.
func (r *TokenRepository) GetByToken(tokenString string) (*RefreshToken, error) {
	var token RefreshToken
	var expiresAt, createdAt int64
	var revoked int

	err := r.coreDB.QueryRow(`
		SELECT id, user_id, token, expires_at, revoked, created_at
		FROM refresh_tokens WHERE token = ?
	`, tokenString).Scan(&token.ID, &token.UserID, &token.Token, &expiresAt, &revoked, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}

	token.ExpiresAt = time.Unix(expiresAt, 0)
	token.Revoked = revoked != 0
	token.CreatedAt = time.Unix(createdAt, 0)
	return &token, nil
}

// Revoke marks a token revoked. Revoking an unknown token is a no-op so
// logout stays idempotent.
func (r *TokenRepository) Revoke(tokenString string) error {
	return r.revoke(r.coreDB, tokenString)
}

// RevokeTx marks a token revoked inside an existing transaction
func (r *TokenRepository) RevokeTx(tx *sql.Tx, tokenString string) error {
	return r.revoke(tx, tokenString)
}

func (r *TokenRepository) revoke(q execer, tokenString string) error {
	_, err := q.Exec("UPDATE refresh_tokens SET revoked = 1 WHERE token = ?", tokenString)
	if err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

// RevokeAllForUser revokes every active token a user holds
func (r *TokenRepository) RevokeAllForUser(userID int64) error {
	_, err := r.coreDB.Exec("UPDATE refresh_tokens SET revoked = 1 WHERE user_id = ? AND revoked = 0", userID)
	if err != nil {
		return fmt.Errorf("failed to revoke user tokens: %w", err)
	}
	return nil
}

// DeleteExpired removes tokens that expired before the cutoff, plus revoked
// tokens created before it. Revoked rows can never become usable again, so
// reaping them here keeps the logout path a cheap flag update.
func (r *TokenRepository) DeleteExpired(before time.Time) (int64, error) {
	result, err := r.coreDB.Exec(`
		DELETE FROM refresh_tokens
		WHERE expires_at < ? OR (revoked = 1 AND created_at < ?)
	`, before.Unix(), before.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired tokens: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired tokens: %w", err)
	}
	return deleted, nil
}
