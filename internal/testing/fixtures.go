package testing

import (
	"testing"
	"time"

	"github.com/aristath/papertrade/internal/database"
)

// SeedUser inserts a user into a migrated core database and returns its id.
// The password hash is a placeholder; seed through the users service when a
// test needs to log in.
func SeedUser(t *testing.T, db *database.DB, username string, fake bool) int64 {
	t.Helper()

	result, err := db.Exec(`
		INSERT INTO users (username, email, password_hash, roles, is_fake, created_at)
		VALUES (?, ?, 'test-hash', 'USER', ?, ?)
	`, username, username+"@example.com", fake, time.Now().Unix())
	if err != nil {
		t.Fatalf("Failed to seed user %s: %v", username, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		t.Fatalf("Failed to get seeded user id: %v", err)
	}
	return id
}

// SeedWallet gives a user a wallet holding the given balance
func SeedWallet(t *testing.T, db *database.DB, userID int64, balance string) {
	t.Helper()

	_, err := db.Exec(
		"INSERT INTO wallets (user_id, balance, updated_at) VALUES (?, ?, ?)",
		userID, balance, time.Now().Unix(),
	)
	if err != nil {
		t.Fatalf("Failed to seed wallet for user %d: %v", userID, err)
	}
}

// SeedPosition gives a user a holding
func SeedPosition(t *testing.T, db *database.DB, userID int64, ticker, shares, avgCost string) {
	t.Helper()

	_, err := db.Exec(
		"INSERT INTO portfolios (user_id, ticker, shares, avg_cost, updated_at) VALUES (?, ?, ?, ?, ?)",
		userID, ticker, shares, avgCost, time.Now().Unix(),
	)
	if err != nil {
		t.Fatalf("Failed to seed position %s for user %d: %v", ticker, userID, err)
	}
}
