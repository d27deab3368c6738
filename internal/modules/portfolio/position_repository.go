// Package portfolio tracks per-user holdings and their valuation.
package portfolio

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Position is one holding: how many shares of a ticker a user owns and the
// weighted-average price paid for them. A row exists iff shares > 0.
type Position struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"user_id"`
	Ticker    string          `json:"ticker"`
	Shares    decimal.Decimal `json:"shares"`
	AvgCost   decimal.Decimal `json:"avg_cost"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// positionColumns is the list of columns for the portfolios table.
// Column order must match the scan helpers.
const positionColumns = `id, user_id, ticker, shares, avg_cost, updated_at`

// querier is satisfied by *sql.DB and *sql.Tx
type querier interface {
	QueryRow(query string, args ...interface{}) *sql.Row
}

// PositionRepository handles position database operations
type PositionRepository struct {
	coreDB *sql.DB
	log    zerolog.Logger
}

// NewPositionRepository creates a new position repository
func NewPositionRepository(coreDB *sql.DB, log zerolog.Logger) *PositionRepository {
	return &PositionRepository{
		coreDB: coreDB,
		log:    log.With().Str("repo", "positions").Logger(),
	}
}

// GetByUserAndTicker returns a user's position in a ticker, or (nil, nil)
// when nothing is held
func (r *PositionRepository) GetByUserAndTicker(userID int64, ticker string) (*Position, error) {
	return r.get(r.coreDB, userID, ticker)
}

// GetTx is GetByUserAndTicker inside an existing transaction
func (r *PositionRepository) GetTx(tx *sql.Tx, userID int64, ticker string) (*Position, error) {
	return r.get(tx, userID, ticker)
}

func (r *PositionRepository) get(q querier, userID int64, ticker string) (*Position, error) {
	row := q.QueryRow(
		"SELECT "+positionColumns+" FROM portfolios WHERE user_id = ? AND ticker = ?",
		userID, normalizeTicker(ticker),
	)

	position, err := scanPosition(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return position, nil
}

// ListByUser returns all of a user's positions ordered by ticker
func (r *PositionRepository) ListByUser(userID int64) ([]Position, error) {
	rows, err := r.coreDB.Query(
		"SELECT "+positionColumns+" FROM portfolios WHERE user_id = ? ORDER BY ticker ASC",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}
	defer rows.Close()

	var positions []Position
	for rows.Next() {
		var position Position
		var shares, avgCost string
		var updatedAt int64

		if err := rows.Scan(&position.ID, &position.UserID, &position.Ticker,
			&shares, &avgCost, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		if position.Shares, err = decimal.NewFromString(shares); err != nil {
			return nil, fmt.Errorf("failed to parse shares %q: %w", shares, err)
		}
		if position.AvgCost, err = decimal.NewFromString(avgCost); err != nil {
			return nil, fmt.Errorf("failed to parse avg cost %q: %w", avgCost, err)
		}
		position.UpdatedAt = time.Unix(updatedAt, 0)
		positions = append(positions, position)
	}
	return positions, rows.Err()
}

// UpsertTx writes a position's shares and average cost inside a trade
// transaction
func (r *PositionRepository) UpsertTx(tx *sql.Tx, userID int64, ticker string, shares, avgCost decimal.Decimal) error {
	_, err := tx.Exec(`
		INSERT INTO portfolios (user_id, ticker, shares, avg_cost, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, ticker) DO UPDATE SET
			shares = excluded.shares,
			avg_cost = excluded.avg_cost,
			updated_at = excluded.updated_at
	`, userID, normalizeTicker(ticker), shares.StringFixed(4), avgCost.StringFixed(4), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert position: %w", err)
	}
	return nil
}

// DeleteTx removes a position row inside a trade transaction. Selling down
// to zero shares deletes the row instead of leaving it empty.
func (r *PositionRepository) DeleteTx(tx *sql.Tx, userID int64, ticker string) error {
	_, err := tx.Exec(
		"DELETE FROM portfolios WHERE user_id = ? AND ticker = ?",
		userID, normalizeTicker(ticker),
	)
	if err != nil {
		return fmt.Errorf("failed to delete position: %w", err)
	}
	return nil
}

// ExistsForTicker reports whether any user holds the ticker
func (r *PositionRepository) ExistsForTicker(ticker string) (bool, error) {
	var count int
	err := r.coreDB.QueryRow(
		"SELECT COUNT(*) FROM portfolios WHERE ticker = ?",
		normalizeTicker(ticker),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check ticker usage: %w", err)
	}
	return count > 0, nil
}

func scanPosition(row *sql.Row) (*Position, error) {
	var position Position
	var shares, avgCost string
	var updatedAt int64

	err := row.Scan(&position.ID, &position.UserID, &position.Ticker, &shares, &avgCost, &updatedAt)
	if err != nil {
		return nil, err
	}

	if position.Shares, err = decimal.NewFromString(shares); err != nil {
		return nil, fmt.Errorf("failed to parse shares %q: %w", shares, err)
	}
	if position.AvgCost, err = decimal.NewFromString(avgCost); err != nil {
		return nil, fmt.Errorf("failed to parse avg cost %q: %w", avgCost, err)
	}
	position.UpdatedAt = time.Unix(updatedAt, 0)
	return &position, nil
}

func normalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}
