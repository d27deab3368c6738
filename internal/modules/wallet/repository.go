// Package wallet manages user cash balances.
package wallet

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/papertrade/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Wallet holds a user's cash balance. Balances are stored as decimal text
// so no float rounding ever touches money.
type Wallet struct {
	UserID    int64           `json:"user_id"`
	Balance   decimal.Decimal `json:"balance"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// execer is satisfied by *sql.DB and *sql.Tx
type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

// querier is satisfied by *sql.DB and *sql.Tx
type querier interface {
	QueryRow(query string, args ...interface{}) *sql.Row
}

// Repository handles wallet database operations
type Repository struct {
	coreDB *sql.DB
	log    zerolog.Logger
}

// NewRepository creates a new wallet repository
func NewRepository(coreDB *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		coreDB: coreDB,
		log:    log.With().Str("repo", "wallet").Logger(),
	}
}

// Create inserts a wallet with the given opening balance
func (r *Repository) Create(userID int64, balance decimal.Decimal) error {
	return r.create(r.coreDB, userID, balance)
}

// CreateTx inserts a wallet inside an existing transaction
func (r *Repository) CreateTx(tx *sql.Tx, userID int64, balance decimal.Decimal) error {
	return r.create(tx, userID, balance)
}

func (r *Repository) create(q execer, userID int64, balance decimal.Decimal) error {
	_, err := q.Exec(`
		INSERT INTO wallets (user_id, balance, updated_at)
		VALUES (?, ?, ?)
	`, userID, balance.StringFixed(2), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to create wallet: %w", err)
	}
	return nil
}

// GetByUserID retrieves a user's wallet
func (r *Repository) GetByUserID(userID int64) (*Wallet, error) {
	return r.get(r.coreDB, userID)
}

// GetTx retrieves a user's wallet inside an existing transaction. Trade
// execution reads the balance through the same transaction that debits it.
func (r *Repository) GetTx(tx *sql.Tx, userID int64) (*Wallet, error) {
	return r.get(tx, userID)
}

func (r *Repository) get(q querier, userID int64) (*Wallet, error) {
	var wallet Wallet
	var balance string
	var updatedAt int64

	err := q.QueryRow(`
		SELECT user_id, balance, updated_at FROM wallets WHERE user_id = ?
	`, userID).Scan(&wallet.UserID, &balance, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrWalletNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	parsed, err := decimal.NewFromString(balance)
	if err != nil {
		return nil, fmt.Errorf("failed to parse wallet balance %q: %w", balance, err)
	}
	wallet.Balance = parsed
	wallet.UpdatedAt = time.Unix(updatedAt, 0)
	return &wallet, nil
}

// UpdateBalance writes a new balance
func (r *Repository) UpdateBalance(userID int64, balance decimal.Decimal) error {
	return r.updateBalance(r.coreDB, userID, balance)
}

// UpdateBalanceTx writes a new balance inside an existing transaction
func (r *Repository) UpdateBalanceTx(tx *sql.Tx, userID int64, balance decimal.Decimal) error {
	return r.updateBalance(tx, userID, balance)
}

func (r *Repository) updateBalance(q execer, userID int64, balance decimal.Decimal) error {
	result, err := q.Exec(`
		UPDATE wallets SET balance = ?, updated_at = ? WHERE user_id = ?
	`, balance.StringFixed(2), time.Now().Unix(), userID)
	if err != nil {
		return fmt.Errorf("failed to update wallet balance: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update wallet balance: %w", err)
	}
	if affected == 0 {
		return domain.ErrWalletNotFound
	}
	return nil
}
