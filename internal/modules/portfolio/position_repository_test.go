package portfolio

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupPositionRepo(t *testing.T) (*PositionRepository, *sql.DB) {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE portfolios (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id    INTEGER NOT NULL,
			ticker     TEXT NOT NULL,
			shares     TEXT NOT NULL,
			avg_cost   TEXT NOT NULL,
			updated_at INTEGER NOT NULL,
			UNIQUE (user_id, ticker)
		)
	`)
	require.NoError(t, err)

	return NewPositionRepository(db, zerolog.New(nil).Level(zerolog.Disabled)), db
}

func mustUpsert(t *testing.T, db *sql.DB, repo *PositionRepository, userID int64, ticker, shares, avgCost string) {
	t.Helper()

	tx, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, repo.UpsertTx(tx, userID, ticker,
		decimal.RequireFromString(shares), decimal.RequireFromString(avgCost)))
	require.NoError(t, tx.Commit())
}

func TestUpsertAndGet(t *testing.T) {
	repo, db := setupPositionRepo(t)

	mustUpsert(t, db, repo, 1, "AAPL", "10", "150.00")

	position, err := repo.GetByUserAndTicker(1, "AAPL")
	require.NoError(t, err)
	require.NotNil(t, position)
	assert.Equal(t, "AAPL", position.Ticker)
	assert.Equal(t, "10.0000", position.Shares.StringFixed(4))
	assert.Equal(t, "150.0000", position.AvgCost.StringFixed(4))
}

func TestGetNormalizesTicker(t *testing.T) {
	repo, db := setupPositionRepo(t)

	mustUpsert(t, db, repo, 1, "AAPL", "10", "150.00")

	position, err := repo.GetByUserAndTicker(1, "  aapl ")
	require.NoError(t, err)
	require.NotNil(t, position)
	assert.Equal(t, "AAPL", position.Ticker)
}

func TestGetMissingPositionReturnsNil(t *testing.T) {
	repo, _ := setupPositionRepo(t)

	position, err := repo.GetByUserAndTicker(1, "MSFT")
	require.NoError(t, err)
	assert.Nil(t, position)
}

func TestUpsertReplacesExisting(t *testing.T) {
	repo, db := setupPositionRepo(t)

	mustUpsert(t, db, repo, 1, "AAPL", "10", "100.00")
	mustUpsert(t, db, repo, 1, "AAPL", "20", "150.00")

	position, err := repo.GetByUserAndTicker(1, "AAPL")
	require.NoError(t, err)
	require.NotNil(t, position)
	assert.Equal(t, "20.0000", position.Shares.StringFixed(4))
	assert.Equal(t, "150.0000", position.AvgCost.StringFixed(4))

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM portfolios").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestListByUserOrderedByTicker(t *testing.T) {
	repo, db := setupPositionRepo(t)

	mustUpsert(t, db, repo, 1, "MSFT", "5", "300.00")
	mustUpsert(t, db, repo, 1, "AAPL", "10", "150.00")
	mustUpsert(t, db, repo, 2, "TSLA", "1", "200.00")

	positions, err := repo.ListByUser(1)
	require.NoError(t, err)
	require.Len(t, positions, 2)
	assert.Equal(t, "AAPL", positions[0].Ticker)
	assert.Equal(t, "MSFT", positions[1].Ticker)
}

func TestDeleteRemovesRow(t *testing.T) {
	repo, db := setupPositionRepo(t)

	mustUpsert(t, db, repo, 1, "AAPL", "10", "150.00")

	tx, err := db.Begin()
	require.NoError(t, err)
	require.NoError(t, repo.DeleteTx(tx, 1, "AAPL"))
	require.NoError(t, tx.Commit())

	position, err := repo.GetByUserAndTicker(1, "AAPL")
	require.NoError(t, err)
	assert.Nil(t, position)
}

func TestExistsForTicker(t *testing.T) {
	repo, db := setupPositionRepo(t)

	mustUpsert(t, db, repo, 1, "AAPL", "10", "150.00")

	held, err := repo.ExistsForTicker("aapl")
	require.NoError(t, err)
	assert.True(t, held)

	held, err = repo.ExistsForTicker("MSFT")
	require.NoError(t, err)
	assert.False(t, held)
}
