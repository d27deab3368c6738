// Package testing provides shared test helpers for the papertrade project.
package testing

import (
	"fmt"
	"os"
	"testing"

	"github.com/aristath/papertrade/internal/database"
)

// NewTestDB creates a temporary file-backed database with the real schema
// for the given name. Profiles match production: "core" runs the ledger
// profile, "market" the standard one, "cache" the cache one. Unknown names
// get a standard profile and no schema. The cleanup function closes the
// database and removes the file; it is idempotent.
func NewTestDB(t *testing.T, name string) (*database.DB, func()) {
	t.Helper()

	tmpFile, err := os.CreateTemp("", fmt.Sprintf("papertrade_test_%s_*.db", name))
	if err != nil {
		t.Fatalf("Failed to create temporary database file: %v", err)
	}
	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()

	var profile database.DatabaseProfile
	switch name {
	case "core":
		profile = database.ProfileLedger
	case "cache":
		profile = database.ProfileCache
	default:
		profile = database.ProfileStandard
	}

	db, err := database.New(database.Config{
		Path:    tmpPath,
		Profile: profile,
		Name:    name,
	})
	if err != nil {
		_ = os.Remove(tmpPath)
		t.Fatalf("Failed to create test database %s: %v", name, err)
	}

	if err := db.Migrate(); err != nil {
		_ = db.Close()
		_ = os.Remove(tmpPath)
		t.Fatalf("Failed to migrate test database %s: %v", name, err)
	}

	closed := false
	cleanup := func() {
		if closed {
			return
		}
		closed = true
		_ = db.Close()
		_ = os.Remove(tmpPath)
		_ = os.Remove(tmpPath + "-wal")
		_ = os.Remove(tmpPath + "-shm")
	}

	return db, cleanup
}
