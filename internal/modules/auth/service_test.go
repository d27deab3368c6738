package auth

import (
	"database/sql"
	"testing"
	"time"

	"github.com/aristath/papertrade/internal/domain"
	"github.com/aristath/papertrade/internal/modules/users"
	"github.com/aristath/papertrade/internal/modules/wallet"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAuthDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			roles TEXT NOT NULL DEFAULT 'USER',
			is_fake INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		);
		CREATE TABLE wallets (
			user_id INTEGER PRIMARY KEY,
			balance TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);
		CREATE TABLE refresh_tokens (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			token TEXT NOT NULL UNIQUE,
			expires_at INTEGER NOT NULL,
			revoked INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		);
	`)
	require.NoError(t, err)

	return db
}

func setupAuthService(t *testing.T) (*Service, *sql.DB) {
	t.Helper()

	db := setupAuthDB(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)

	userRepo := users.NewRepository(db, log)
	walletRepo := wallet.NewRepository(db, log)
	tokenRepo := NewTokenRepository(db, log)
	tokenManager := NewTokenManager("test-secret", 15*time.Minute)

	service := NewService(db, userRepo, walletRepo, tokenRepo, tokenManager, nil,
		decimal.NewFromInt(10000), 7*24*time.Hour, log)
	return service, db
}

func TestRegisterCreatesUserAndWallet(t *testing.T) {
	service, db := setupAuthService(t)

	user, err := service.Register("alice", "alice@example.com", "password123")
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, []string{users.RoleUser}, user.Roles)
	assert.NotEqual(t, "password123", user.PasswordHash)

	var balance string
	require.NoError(t, db.QueryRow("SELECT balance FROM wallets WHERE user_id = ?", user.ID).Scan(&balance))
	assert.Equal(t, "10000.00", balance)
}

func TestRegisterValidation(t *testing.T) {
	service, _ := setupAuthService(t)

	testCases := []struct {
		name     string
		username string
		email    string
		password string
	}{
		{"short username", "ab", "a@example.com", "password123"},
		{"bad email", "alice", "not-an-email", "password123"},
		{"short password", "alice", "a@example.com", "short"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.Register(tc.username, tc.email, tc.password)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestRegisterDuplicates(t *testing.T) {
	service, db := setupAuthService(t)

	_, err := service.Register("alice", "alice@example.com", "password123")
	require.NoError(t, err)

	_, err = service.Register("alice", "other@example.com", "password123")
	assert.ErrorIs(t, err, domain.ErrDuplicateUsername)

	_, err = service.Register("bob", "alice@example.com", "password123")
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)

	// Failed registrations must not leave orphan wallets behind
	var wallets int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM wallets").Scan(&wallets))
	assert.Equal(t, 1, wallets)
}

func TestLogin(t *testing.T) {
	service, _ := setupAuthService(t)

	_, err := service.Register("alice", "alice@example.com", "password123")
	require.NoError(t, err)

	pair, user, err := service.Login("alice", "password123")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, "Bearer", pair.TokenType)

	// Unknown users and wrong passwords are indistinguishable
	_, _, err = service.Login("alice", "wrong-password")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, _, err = service.Login("nobody", "password123")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestRefreshRotatesToken(t *testing.T) {
	service, _ := setupAuthService(t)

	_, err := service.Register("alice", "alice@example.com", "password123")
	require.NoError(t, err)
	pair, _, err := service.Login("alice", "password123")
	require.NoError(t, err)

	rotated, err := service.Refresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, rotated.RefreshToken, "rotation must issue a new token string")

	// The presented token is revoked by rotation and cannot be replayed
	_, err = service.Refresh(pair.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestRefreshReuseRevokesAllSessions(t *testing.T) {
	service, _ := setupAuthService(t)

	_, err := service.Register("alice", "alice@example.com", "password123")
	require.NoError(t, err)
	pair, _, err := service.Login("alice", "password123")
	require.NoError(t, err)

	rotated, err := service.Refresh(pair.RefreshToken)
	require.NoError(t, err)

	// Replaying the revoked token kills the rotated one too
	_, err = service.Refresh(pair.RefreshToken)
	require.ErrorIs(t, err, domain.ErrInvalidToken)

	_, err = service.Refresh(rotated.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestRefreshRejectsExpiredToken(t *testing.T) {
	service, db := setupAuthService(t)

	_, err := service.Register("alice", "alice@example.com", "password123")
	require.NoError(t, err)
	pair, _, err := service.Login("alice", "password123")
	require.NoError(t, err)

	_, err = db.Exec("UPDATE refresh_tokens SET expires_at = ?", time.Now().Add(-time.Hour).Unix())
	require.NoError(t, err)

	_, err = service.Refresh(pair.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestRefreshUnknownToken(t *testing.T) {
	service, _ := setupAuthService(t)

	_, err := service.Refresh("never-issued")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestLogoutIsIdempotent(t *testing.T) {
	service, _ := setupAuthService(t)

	_, err := service.Register("alice", "alice@example.com", "password123")
	require.NoError(t, err)
	pair, _, err := service.Login("alice", "password123")
	require.NoError(t, err)

	require.NoError(t, service.Logout(pair.RefreshToken))
	require.NoError(t, service.Logout(pair.RefreshToken))
	require.NoError(t, service.Logout("never-issued"))

	_, err = service.Refresh(pair.RefreshToken)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestDeleteExpiredTokens(t *testing.T) {
	service, db := setupAuthService(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)
	tokenRepo := NewTokenRepository(db, log)

	_, err := service.Register("alice", "alice@example.com", "password123")
	require.NoError(t, err)
	_, _, err = service.Login("alice", "password123")
	require.NoError(t, err)
	pair, _, err := service.Login("alice", "password123")
	require.NoError(t, err)
	_, _, err = service.Login("alice", "password123")
	require.NoError(t, err)

	// Age the first token past expiry
	_, err = db.Exec(`
		UPDATE refresh_tokens SET expires_at = ?
		WHERE id = (SELECT MIN(id) FROM refresh_tokens)
	`, time.Now().Add(-time.Hour).Unix())
	require.NoError(t, err)

	// Revoke the second and backdate its creation past the cutoff
	require.NoError(t, service.Logout(pair.RefreshToken))
	_, err = db.Exec("UPDATE refresh_tokens SET created_at = ? WHERE token = ?",
		time.Now().Add(-time.Hour).Unix(), pair.RefreshToken)
	require.NoError(t, err)

	deleted, err := tokenRepo.DeleteExpired(time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	var remaining int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM refresh_tokens").Scan(&remaining))
	assert.Equal(t, 1, remaining)
}
