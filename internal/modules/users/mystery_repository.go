package users

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// MysteryRepository handles mystery page database operations
type MysteryRepository struct {
	coreDB *sql.DB
	log    zerolog.Logger
}

// NewMysteryRepository creates a new mystery page repository
func NewMysteryRepository(coreDB *sql.DB, log zerolog.Logger) *MysteryRepository {
	return &MysteryRepository{
		coreDB: coreDB,
		log:    log.With().Str("repo", "mystery").Logger(),
	}
}

// GetByUserID returns the user's mystery page, or (nil, nil) when unclaimed
func (r *MysteryRepository) GetByUserID(userID int64) (*MysteryPage, error) {
	var page MysteryPage
	var claimedAt int64

	err := r.coreDB.QueryRow(`
		SELECT id, user_id, code, message, claimed_at FROM mystery_pages WHERE user_id = ?
	`, userID).Scan(&page.ID, &page.UserID, &page.Code, &page.Message, &claimedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get mystery page: %w", err)
	}

	page.ClaimedAt = time.Unix(claimedAt, 0)
	return &page, nil
}

// Create inserts a mystery page and sets its ID
func (r *MysteryRepository) Create(page *MysteryPage) error {
	result, err := r.coreDB.Exec(`
		INSERT INTO mystery_pages (user_id, code, message, claimed_at)
		VALUES (?, ?, ?, ?)
	`, page.UserID, page.Code, page.Message, page.ClaimedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to create mystery page: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get mystery page id: %w", err)
	}
	page.ID = id

	return nil
}
