package trading

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// transactionColumns is the list of columns for the transactions table.
// Column order must match the scan helpers.
const transactionColumns = `id, user_id, ticker, side, shares, price, amount, realized_pl, order_id, executed_at`

// defaultHistoryLimit caps history queries when the caller does not ask
// for a specific page size
const defaultHistoryLimit = 100

// TransactionRepository handles transaction database operations
type TransactionRepository struct {
	coreDB *sql.DB
	log    zerolog.Logger
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(coreDB *sql.DB, log zerolog.Logger) *TransactionRepository {
	return &TransactionRepository{
		coreDB: coreDB,
		log:    log.With().Str("repo", "transactions").Logger(),
	}
}

// CreateTx inserts a transaction inside a trade transaction and fills in
// its generated ID
func (r *TransactionRepository) CreateTx(tx *sql.Tx, txn *Transaction) error {
	var realizedPL sql.NullString
	if txn.RealizedPL != nil {
		realizedPL = sql.NullString{String: txn.RealizedPL.StringFixed(2), Valid: true}
	}

	result, err := tx.Exec(`
		INSERT INTO transactions
			(user_id, ticker, side, shares, price, amount, realized_pl, order_id, executed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		txn.UserID,
		normalizeTicker(txn.Ticker),
		txn.Side,
		txn.Shares.StringFixed(4),
		txn.Price.StringFixed(2),
		txn.Amount.StringFixed(2),
		realizedPL,
		txn.OrderID,
		txn.ExecutedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	txn.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get transaction id: %w", err)
	}
	return nil
}

// ListByUser returns a user's transaction history, most recent first
func (r *TransactionRepository) ListByUser(userID int64, filter ListFilter) ([]Transaction, error) {
	query := "SELECT " + transactionColumns + " FROM transactions WHERE user_id = ?"
	args := []interface{}{userID}

	if filter.Ticker != "" {
		query += " AND ticker = ?"
		args = append(args, normalizeTicker(filter.Ticker))
	}
	if filter.Side != "" {
		query += " AND side = ?"
		args = append(args, strings.ToUpper(filter.Side))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	query += " ORDER BY executed_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.coreDB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

// ListForFIFOTx returns every transaction for a (user, ticker) pair in
// execution order, oldest first, inside an existing trade transaction.
// Sell profit computation replays this history to find the open lots.
func (r *TransactionRepository) ListForFIFOTx(tx *sql.Tx, userID int64, ticker string) ([]Transaction, error) {
	rows, err := tx.Query(
		"SELECT "+transactionColumns+" FROM transactions WHERE user_id = ? AND ticker = ? ORDER BY executed_at ASC, id ASC",
		userID, normalizeTicker(ticker),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions for fifo: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

// ExistsForTicker reports whether any transaction references the ticker
func (r *TransactionRepository) ExistsForTicker(ticker string) (bool, error) {
	var exists int
	err := r.coreDB.QueryRow(
		"SELECT 1 FROM transactions WHERE ticker = ? LIMIT 1",
		normalizeTicker(ticker),
	).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check ticker usage: %w", err)
	}
	return true, nil
}

// CountSince counts transactions executed at or after the cutoff
func (r *TransactionRepository) CountSince(cutoff time.Time) (int, error) {
	var count int
	err := r.coreDB.QueryRow(
		"SELECT COUNT(*) FROM transactions WHERE executed_at >= ?",
		cutoff.Unix(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}

func collectTransactions(rows *sql.Rows) ([]Transaction, error) {
	var transactions []Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return transactions, nil
}

func scanTransaction(rows *sql.Rows) (Transaction, error) {
	var txn Transaction
	var shares, price, amount string
	var realizedPL sql.NullString
	var executedAt int64

	err := rows.Scan(&txn.ID, &txn.UserID, &txn.Ticker, &txn.Side,
		&shares, &price, &amount, &realizedPL, &txn.OrderID, &executedAt)
	if err != nil {
		return txn, err
	}

	if txn.Shares, err = decimal.NewFromString(shares); err != nil {
		return txn, fmt.Errorf("failed to parse shares %q: %w", shares, err)
	}
	if txn.Price, err = decimal.NewFromString(price); err != nil {
		return txn, fmt.Errorf("failed to parse price %q: %w", price, err)
	}
	if txn.Amount, err = decimal.NewFromString(amount); err != nil {
		return txn, fmt.Errorf("failed to parse amount %q: %w", amount, err)
	}
	if realizedPL.Valid {
		pl, err := decimal.NewFromString(realizedPL.String)
		if err != nil {
			return txn, fmt.Errorf("failed to parse realized pl %q: %w", realizedPL.String, err)
		}
		txn.RealizedPL = &pl
	}
	txn.ExecutedAt = time.Unix(executedAt, 0)
	return txn, nil
}

func normalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}
