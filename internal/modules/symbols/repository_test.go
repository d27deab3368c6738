package symbols

import (
	"database/sql"
	"testing"

	"github.com/aristath/papertrade/internal/domain"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSymbolsDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE symbols (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ticker TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL DEFAULT '',
			exchange TEXT NOT NULL DEFAULT '',
			currency TEXT NOT NULL DEFAULT '',
			enabled INTEGER NOT NULL DEFAULT 1,
			updated_at INTEGER NOT NULL
		)
	`)
	require.NoError(t, err)

	return db
}

func newSymbolsRepo(t *testing.T) *Repository {
	t.Helper()
	return NewRepository(setupSymbolsDB(t), zerolog.New(nil).Level(zerolog.Disabled))
}

func TestUpsertAndGet(t *testing.T) {
	repo := newSymbolsRepo(t)

	require.NoError(t, repo.Upsert(&Symbol{
		Ticker: "aapl", Name: "Apple Inc.", Exchange: "NasdaqGS", Currency: "USD",
	}))

	// Lookup normalizes case and whitespace
	got, err := repo.GetByTicker("  aapl ")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", got.Ticker)
	assert.Equal(t, "Apple Inc.", got.Name)
	assert.True(t, got.Enabled, "new symbols come in enabled")
}

func TestUpsertPreservesEnabledFlag(t *testing.T) {
	repo := newSymbolsRepo(t)

	require.NoError(t, repo.Upsert(&Symbol{Ticker: "AAPL", Name: "Apple Inc."}))
	require.NoError(t, repo.SetEnabled("AAPL", false))

	// Re-import refreshes metadata without re-enabling
	require.NoError(t, repo.Upsert(&Symbol{Ticker: "AAPL", Name: "Apple Inc. (new)"}))

	got, err := repo.GetByTicker("AAPL")
	require.NoError(t, err)
	assert.Equal(t, "Apple Inc. (new)", got.Name)
	assert.False(t, got.Enabled)
}

func TestUpsertRejectsEmptyTicker(t *testing.T) {
	repo := newSymbolsRepo(t)
	assert.ErrorIs(t, repo.Upsert(&Symbol{Ticker: "  "}), domain.ErrValidation)
}

func TestGetUnknownTicker(t *testing.T) {
	repo := newSymbolsRepo(t)
	_, err := repo.GetByTicker("NOPE")
	assert.ErrorIs(t, err, domain.ErrSymbolNotFound)
}

func TestListFiltersDisabled(t *testing.T) {
	repo := newSymbolsRepo(t)

	require.NoError(t, repo.Upsert(&Symbol{Ticker: "AAPL"}))
	require.NoError(t, repo.Upsert(&Symbol{Ticker: "MSFT"}))
	require.NoError(t, repo.SetEnabled("MSFT", false))

	enabled, err := repo.List(true)
	require.NoError(t, err)
	require.Len(t, enabled, 1)
	assert.Equal(t, "AAPL", enabled[0].Ticker)

	all, err := repo.List(false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	count, err := repo.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestSetEnabledUnknownTicker(t *testing.T) {
	repo := newSymbolsRepo(t)
	assert.ErrorIs(t, repo.SetEnabled("NOPE", true), domain.ErrSymbolNotFound)
}
