package wallet

import (
	"database/sql"

	"github.com/aristath/papertrade/internal/database"
	"github.com/aristath/papertrade/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Service provides wallet operations
type Service struct {
	coreDB *sql.DB
	repo   *Repository
	log    zerolog.Logger
}

// NewService creates a new wallet service
func NewService(coreDB *sql.DB, repo *Repository, log zerolog.Logger) *Service {
	return &Service{
		coreDB: coreDB,
		repo:   repo,
		log:    log.With().Str("service", "wallet").Logger(),
	}
}

// Create seeds a wallet with an opening balance
func (s *Service) Create(userID int64, balance decimal.Decimal) error {
	return s.repo.Create(userID, balance)
}

// Get returns a user's wallet
func (s *Service) Get(userID int64) (*Wallet, error) {
	return s.repo.GetByUserID(userID)
}

// Adjust applies an admin cash adjustment. The delta may be negative; a
// resulting balance below zero rejects the whole adjustment and writes
// nothing.
func (s *Service) Adjust(userID int64, delta decimal.Decimal) (*Wallet, error) {
	var adjusted *Wallet

	err := database.WithTransaction(s.coreDB, func(tx *sql.Tx) error {
		wallet, err := s.repo.GetTx(tx, userID)
		if err != nil {
			return err
		}

		newBalance := wallet.Balance.Add(delta).Round(2)
		if newBalance.IsNegative() {
			return domain.ErrInsufficientFunds
		}

		if err := s.repo.UpdateBalanceTx(tx, userID, newBalance); err != nil {
			return err
		}

		wallet.Balance = newBalance
		adjusted = wallet
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("user_id", userID).
		Str("delta", delta.StringFixed(2)).
		Str("balance", adjusted.Balance.StringFixed(2)).
		Msg("Wallet adjusted")
	return adjusted, nil
}
