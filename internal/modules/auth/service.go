package auth

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/papertrade/internal/database"
	"github.com/aristath/papertrade/internal/domain"
	"github.com/aristath/papertrade/internal/events"
	"github.com/aristath/papertrade/internal/modules/users"
	"github.com/aristath/papertrade/internal/modules/wallet"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Service implements registration, login and the refresh token lifecycle
type Service struct {
	coreDB          *sql.DB
	users           *users.Repository
	wallets         *wallet.Repository
	tokens          *TokenRepository
	tokenManager    *TokenManager
	eventManager    *events.Manager
	startingBalance decimal.Decimal
	refreshTTL      time.Duration
	log             zerolog.Logger
}

// NewService creates a new auth service
func NewService(
	coreDB *sql.DB,
	userRepo *users.Repository,
	walletRepo *wallet.Repository,
	tokenRepo *TokenRepository,
	tokenManager *TokenManager,
	eventManager *events.Manager,
	startingBalance decimal.Decimal,
	refreshTTL time.Duration,
	log zerolog.Logger,
) *Service {
	return &Service{
		coreDB:          coreDB,
		users:           userRepo,
		wallets:         walletRepo,
		tokens:          tokenRepo,
		tokenManager:    tokenManager,
		eventManager:    eventManager,
		startingBalance: startingBalance,
		refreshTTL:      refreshTTL,
		log:             log.With().Str("service", "auth").Logger(),
	}
}

// Register creates a user with the USER role and a wallet seeded at the
// starting balance, atomically. Emits USER_REGISTERED on success.
func (s *Service) Register(username, email, password string) (*users.User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	if len(username) < 3 {
		return nil, fmt.Errorf("%w: username must be at least 3 characters", domain.ErrValidation)
	}
	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: invalid email address", domain.ErrValidation)
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", domain.ErrValidation)
	}

	hash, err := users.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &users.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Roles:        []string{users.RoleUser},
		CreatedAt:    time.Now(),
	}

	err = database.WithTransaction(s.coreDB, func(tx *sql.Tx) error {
		if err := s.users.CreateTx(tx, user); err != nil {
			return err
		}
		return s.wallets.CreateTx(tx, user.ID, s.startingBalance)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Int64("user_id", user.ID).Str("username", user.Username).Msg("User registered")

	if s.eventManager != nil {
		s.eventManager.EmitTyped(events.UserRegistered, "auth", &events.UserRegisteredData{
			UserID:   user.ID,
			Username: user.Username,
		})
	}

	return user, nil
}

// Login checks credentials and issues a fresh token pair. Unknown username
// and wrong password are indistinguishable to the caller.
func (s *Service) Login(username, password string) (*TokenPair, *users.User, error) {
	user, err := s.users.GetByUsername(strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, nil, domain.ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if !users.CheckPassword(user.PasswordHash, password) {
		return nil, nil, domain.ErrInvalidCredentials
	}

	pair, err := s.issuePair(user)
	if err != nil {
		return nil, nil, err
	}

	s.log.Info().Int64("user_id", user.ID).Msg("User logged in")
	return pair, user, nil
}

// Refresh rotates a refresh token: the presented token is always revoked
// and a brand-new token string with a full TTL window is issued. A token
// that is unknown, already revoked, or expired is rejected.
func (s *Service) Refresh(tokenString string) (*TokenPair, error) {
	token, err := s.tokens.GetByToken(tokenString)
	if err != nil {
		return nil, err
	}
	if token == nil {
		s.log.Warn().Msg("Refresh rejected: unknown token")
		return nil, domain.ErrInvalidToken
	}

	now := time.Now()
	if token.Revoked {
		// A revoked token being replayed means the token string leaked
		// somewhere. Kill the whole session family.
		s.log.Warn().Int64("user_id", token.UserID).Msg("Refresh rejected: revoked token reused, revoking all sessions")
		if err := s.tokens.RevokeAllForUser(token.UserID); err != nil {
			s.log.Error().Err(err).Int64("user_id", token.UserID).Msg("Failed to revoke user sessions")
		}
		return nil, domain.ErrInvalidToken
	}
	if !now.Before(token.ExpiresAt) {
		s.log.Debug().Int64("user_id", token.UserID).Msg("Refresh rejected: expired token")
		return nil, domain.ErrInvalidToken
	}

	user, err := s.users.GetByID(token.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidToken
		}
		return nil, err
	}

	next := &RefreshToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: now.Add(s.refreshTTL),
		CreatedAt: now,
	}

	err = database.WithTransaction(s.coreDB, func(tx *sql.Tx) error {
		if err := s.tokens.RevokeTx(tx, tokenString); err != nil {
			return err
		}
		return s.tokens.CreateTx(tx, next)
	})
	if err != nil {
		return nil, err
	}

	access, err := s.tokenManager.Sign(user)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: next.Token,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.tokenManager.TTL().Seconds()),
	}, nil
}

// Logout revokes a refresh token. Unknown tokens are ignored so logout is
// idempotent.
func (s *Service) Logout(tokenString string) error {
	return s.tokens.Revoke(tokenString)
}

// issuePair signs an access token and persists a new refresh token
func (s *Service) issuePair(user *users.User) (*TokenPair, error) {
	access, err := s.tokenManager.Sign(user)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	now := time.Now()
	refresh := &RefreshToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: now.Add(s.refreshTTL),
		CreatedAt: now,
	}
	if err := s.tokens.Create(refresh); err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh.Token,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.tokenManager.TTL().Seconds()),
	}, nil
}
