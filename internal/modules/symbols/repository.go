package symbols

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/papertrade/internal/domain"
	"github.com/rs/zerolog"
)

// symbolColumns is the list of columns for the symbols table.
// Column order must match the scan helpers.
const symbolColumns = `id, ticker, name, exchange, currency, enabled, updated_at`

// Repository handles symbol catalog database operations
type Repository struct {
	marketDB *sql.DB
	log      zerolog.Logger
}

// NewRepository creates a new symbol repository
func NewRepository(marketDB *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		marketDB: marketDB,
		log:      log.With().Str("repo", "symbols").Logger(),
	}
}

// Upsert inserts a symbol or refreshes its metadata. New symbols come in
// enabled; re-imports never flip an admin's enabled/disabled choice.
func (r *Repository) Upsert(symbol *Symbol) error {
	ticker := normalizeTicker(symbol.Ticker)
	if ticker == "" {
		return fmt.Errorf("%w: empty ticker", domain.ErrValidation)
	}

	_, err := r.marketDB.Exec(`
		INSERT INTO symbols (ticker, name, exchange, currency, enabled, updated_at)
		VALUES (?, ?, ?, ?, 1, ?)
		ON CONFLICT(ticker) DO UPDATE SET
			name = excluded.name,
			exchange = excluded.exchange,
			currency = excluded.currency,
			updated_at = excluded.updated_at
	`, ticker, symbol.Name, symbol.Exchange, symbol.Currency, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert symbol %s: %w", ticker, err)
	}
	return nil
}

// GetByTicker retrieves a symbol by ticker
func (r *Repository) GetByTicker(ticker string) (*Symbol, error) {
	row := r.marketDB.QueryRow(
		"SELECT "+symbolColumns+" FROM symbols WHERE ticker = ?",
		normalizeTicker(ticker),
	)

	var symbol Symbol
	var enabled int
	var updatedAt int64

	err := row.Scan(&symbol.ID, &symbol.Ticker, &symbol.Name, &symbol.Exchange,
		&symbol.Currency, &enabled, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSymbolNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get symbol: %w", err)
	}

	symbol.Enabled = enabled != 0
	symbol.UpdatedAt = time.Unix(updatedAt, 0)
	return &symbol, nil
}

// List returns the catalog, optionally restricted to enabled symbols
func (r *Repository) List(enabledOnly bool) ([]Symbol, error) {
	query := "SELECT " + symbolColumns + " FROM symbols"
	if enabledOnly {
		query += " WHERE enabled = 1"
	}
	query += " ORDER BY ticker ASC"

	rows, err := r.marketDB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list symbols: %w", err)
	}
	defer rows.Close()

	var symbols []Symbol
	for rows.Next() {
		var symbol Symbol
		var enabled int
		var updatedAt int64

		if err := rows.Scan(&symbol.ID, &symbol.Ticker, &symbol.Name, &symbol.Exchange,
			&symbol.Currency, &enabled, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbol.Enabled = enabled != 0
		symbol.UpdatedAt = time.Unix(updatedAt, 0)
		symbols = append(symbols, symbol)
	}
	return symbols, rows.Err()
}

// SetEnabled flips a symbol's trading flag
func (r *Repository) SetEnabled(ticker string, enabled bool) error {
	value := 0
	if enabled {
		value = 1
	}

	result, err := r.marketDB.Exec(
		"UPDATE symbols SET enabled = ?, updated_at = ? WHERE ticker = ?",
		value, time.Now().Unix(), normalizeTicker(ticker),
	)
	if err != nil {
		return fmt.Errorf("failed to set symbol enabled: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to set symbol enabled: %w", err)
	}
	if affected == 0 {
		return domain.ErrSymbolNotFound
	}
	return nil
}

// Count returns the catalog size
func (r *Repository) Count() (int, error) {
	var count int
	if err := r.marketDB.QueryRow("SELECT COUNT(*) FROM symbols").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count symbols: %w", err)
	}
	return count, nil
}

func normalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}
