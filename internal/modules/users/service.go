package users

import (
	"fmt"
	"strings"
	"time"

	"github.com/aristath/papertrade/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// bcryptCost matches what the rest of the auth flow uses
const bcryptCost = 10

// WalletCreator seeds a wallet for a new user. Satisfied by the wallet
// service; declared here to avoid a module cycle.
type WalletCreator interface {
	Create(userID int64, balance decimal.Decimal) error
}

// Service provides user management operations
type Service struct {
	repo        *Repository
	mysteryRepo *MysteryRepository
	wallets     WalletCreator
	log         zerolog.Logger
}

// NewService creates a new user service
func NewService(repo *Repository, mysteryRepo *MysteryRepository, wallets WalletCreator, log zerolog.Logger) *Service {
	return &Service{
		repo:        repo,
		mysteryRepo: mysteryRepo,
		wallets:     wallets,
		log:         log.With().Str("service", "users").Logger(),
	}
}

// GetByID returns a user by id
func (s *Service) GetByID(id int64) (*User, error) {
	return s.repo.GetByID(id)
}

// GetByUsername returns a user by username
func (s *Service) GetByUsername(username string) (*User, error) {
	return s.repo.GetByUsername(username)
}

// List returns all users
func (s *Service) List() ([]User, error) {
	return s.repo.List()
}

// UpdateEmail changes a user's email address
func (s *Service) UpdateEmail(id int64, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return fmt.Errorf("%w: invalid email address", domain.ErrValidation)
	}
	return s.repo.UpdateEmail(id, email)
}

// Delete removes a user and everything owned by it
func (s *Service) Delete(id int64) error {
	return s.repo.Delete(id)
}

// EnsureAdmin creates the admin account on first startup. Existing admins
// are left untouched so password changes are not clobbered.
func (s *Service) EnsureAdmin(username, email, password string) error {
	if username == "" || password == "" {
		s.log.Debug().Msg("Admin credentials not configured, skipping admin seed")
		return nil
	}

	existing, err := s.repo.GetByUsername(username)
	if err == nil && existing != nil {
		return nil
	}

	hash, err := HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin := &User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Roles:        []string{RoleUser, RoleAdmin},
		CreatedAt:    time.Now(),
	}
	if err := s.repo.Create(admin); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	if s.wallets != nil {
		if err := s.wallets.Create(admin.ID, decimal.Zero); err != nil {
			return fmt.Errorf("failed to create admin wallet: %w", err)
		}
	}

	s.log.Info().Str("username", username).Msg("Admin user created")
	return nil
}

// SeedFakeUsers tops the pool of fake traders up to the requested count.
// Fake users get random passwords nobody knows and wallets at the given
// starting balance.
func (s *Service) SeedFakeUsers(count int, startingBalance decimal.Decimal) error {
	if count <= 0 {
		return nil
	}

	existing, err := s.repo.CountFake()
	if err != nil {
		return err
	}

	created := 0
	for i := existing + 1; i <= count; i++ {
		hash, err := HashPassword(uuid.NewString())
		if err != nil {
			return fmt.Errorf("failed to hash fake user password: %w", err)
		}

		user := &User{
			Username:     fmt.Sprintf("bot_%02d", i),
			Email:        fmt.Sprintf("bot_%02d@papertrade.local", i),
			PasswordHash: hash,
			Roles:        []string{RoleUser},
			IsFake:       true,
			CreatedAt:    time.Now(),
		}
		if err := s.repo.Create(user); err != nil {
			return fmt.Errorf("failed to create fake user: %w", err)
		}

		if s.wallets != nil {
			if err := s.wallets.Create(user.ID, startingBalance); err != nil {
				return fmt.Errorf("failed to create fake user wallet: %w", err)
			}
		}
		created++
	}

	if created > 0 {
		s.log.Info().Int("created", created).Int("total", count).Msg("Fake users seeded")
	}
	return nil
}

// GetMystery returns the user's claimed mystery page, or (nil, nil)
func (s *Service) GetMystery(userID int64) (*MysteryPage, error) {
	return s.mysteryRepo.GetByUserID(userID)
}

// mysteryMessages are handed out on claim, keyed off the generated code
var mysteryMessages = []string{
	"You found the hidden page. The market rewards the curious.",
	"Buy low, sell high, claim mystery pages.",
	"This page intentionally left mysterious.",
	"No financial advice here, only glory.",
}

// ClaimMystery claims the user's mystery page. Claiming twice returns the
// page from the first claim.
func (s *Service) ClaimMystery(userID int64) (*MysteryPage, error) {
	existing, err := s.mysteryRepo.GetByUserID(userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	code := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	page := &MysteryPage{
		UserID:    userID,
		Code:      code,
		Message:   mysteryMessages[int(code[0])%len(mysteryMessages)],
		ClaimedAt: time.Now(),
	}
	if err := s.mysteryRepo.Create(page); err != nil {
		return nil, err
	}

	s.log.Info().Int64("user_id", userID).Str("code", code).Msg("Mystery page claimed")
	return page, nil
}

// HashPassword hashes a password with bcrypt. Input is truncated to 72
// bytes, the bcrypt maximum.
func HashPassword(password string) (string, error) {
	b := []byte(password)
	if len(b) > 72 {
		b = b[:72]
	}
	hash, err := bcrypt.GenerateFromPassword(b, bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares a password with its stored bcrypt hash
func CheckPassword(hash, password string) bool {
	b := []byte(password)
	if len(b) > 72 {
		b = b[:72]
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), b) == nil
}
