// Package quotes provides cached market quotes: a persistent msgpack cache,
// a cache-first quote service, the refcounted interest registry behind the
// SSE stream, and the background poll loop.
package quotes

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/papertrade/internal/domain"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// Cache persists quotes in the cache database as msgpack blobs. Entries older
// than the TTL are treated as misses by Get; Last ignores age so callers can
// diff against the previous value.
type Cache struct {
	db  *sql.DB
	ttl time.Duration
	log zerolog.Logger
}

// NewCache creates a quote cache with the given freshness TTL
func NewCache(db *sql.DB, ttl time.Duration, log zerolog.Logger) *Cache {
	return &Cache{
		db:  db,
		ttl: ttl,
		log: log.With().Str("component", "quote_cache").Logger(),
	}
}

// Get returns the cached quote for a symbol if it is still fresh.
// Returns (nil, nil) on miss or stale entry.
func (c *Cache) Get(symbol string) (*domain.Quote, error) {
	quote, updatedAt, err := c.lookup(symbol)
	if err != nil || quote == nil {
		return nil, err
	}

	if time.Since(time.Unix(updatedAt, 0)) > c.ttl {
		return nil, nil
	}

	return quote, nil
}

// Last returns the most recent cached quote regardless of age.
// Returns (nil, nil) when the symbol was never cached.
func (c *Cache) Last(symbol string) (*domain.Quote, error) {
	quote, _, err := c.lookup(symbol)
	return quote, err
}

// Put stores a quote, replacing any previous entry for the symbol
func (c *Cache) Put(quote *domain.Quote) error {
	payload, err := msgpack.Marshal(quote)
	if err != nil {
		return fmt.Errorf("failed to encode quote for %s: %w", quote.Symbol, err)
	}

	_, err = c.db.Exec(`
		INSERT INTO quotes (symbol, payload, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at
	`, quote.Symbol, payload, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to store quote for %s: %w", quote.Symbol, err)
	}

	return nil
}

func (c *Cache) lookup(symbol string) (*domain.Quote, int64, error) {
	var payload []byte
	var updatedAt int64

	err := c.db.QueryRow("SELECT payload, updated_at FROM quotes WHERE symbol = ?", symbol).
		Scan(&payload, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read cached quote for %s: %w", symbol, err)
	}

	var quote domain.Quote
	if err := msgpack.Unmarshal(payload, &quote); err != nil {
		// A corrupt cache entry is not fatal; treat as miss and overwrite later
		c.log.Warn().Err(err).Str("symbol", symbol).Msg("Discarding undecodable cache entry")
		return nil, 0, nil
	}

	return &quote, updatedAt, nil
}
