package notifications

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/papertrade/internal/domain"
)

// notificationColumns is the list of columns for the notifications table.
// Column order must match the scan helpers.
const notificationColumns = `id, sender_id, receiver_id, subject, body, is_read, created_at`

// Repository handles notification database operations
type Repository struct {
	coreDB *sql.DB
	log    zerolog.Logger
}

// NewRepository creates a new notification repository
func NewRepository(coreDB *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		coreDB: coreDB,
		log:    log.With().Str("repo", "notifications").Logger(),
	}
}

// Create inserts a notification and fills in its generated ID
func (r *Repository) Create(n *Notification) error {
	var senderID sql.NullInt64
	if n.SenderID != nil {
		senderID = sql.NullInt64{Int64: *n.SenderID, Valid: true}
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	result, err := r.coreDB.Exec(`
		INSERT INTO notifications (sender_id, receiver_id, subject, body, is_read, created_at)
		VALUES (?, ?, ?, ?, 0, ?)
	`, senderID, n.ReceiverID, n.Subject, n.Body, n.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	n.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get notification id: %w", err)
	}
	return nil
}

// GetByID returns a notification by ID
func (r *Repository) GetByID(id int64) (*Notification, error) {
	row := r.coreDB.QueryRow(
		"SELECT "+notificationColumns+" FROM notifications WHERE id = ?", id)

	n, err := scanNotification(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotificationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return n, nil
}

// ListByReceiver returns a user's notifications, newest first
func (r *Repository) ListByReceiver(receiverID int64, unreadOnly bool) ([]Notification, error) {
	query := "SELECT " + notificationColumns + " FROM notifications WHERE receiver_id = ?"
	if unreadOnly {
		query += " AND is_read = 0"
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := r.coreDB.Query(query, receiverID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []Notification
	for rows.Next() {
		var n Notification
		var senderID sql.NullInt64
		var isRead int
		var createdAt int64

		if err := rows.Scan(&n.ID, &senderID, &n.ReceiverID, &n.Subject, &n.Body,
			&isRead, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		if senderID.Valid {
			n.SenderID = &senderID.Int64
		}
		n.Read = isRead != 0
		n.CreatedAt = time.Unix(createdAt, 0)
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// MarkRead marks one of a user's notifications as read. The receiver scope
// keeps users from touching other inboxes.
func (r *Repository) MarkRead(id, receiverID int64) error {
	result, err := r.coreDB.Exec(
		"UPDATE notifications SET is_read = 1 WHERE id = ? AND receiver_id = ?",
		id, receiverID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotificationNotFound
	}
	return nil
}

// MarkAllRead marks every unread notification of a user as read and returns
// how many changed
func (r *Repository) MarkAllRead(receiverID int64) (int64, error) {
	result, err := r.coreDB.Exec(
		"UPDATE notifications SET is_read = 1 WHERE receiver_id = ? AND is_read = 0",
		receiverID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return result.RowsAffected()
}

// UnreadCount returns how many unread notifications a user has
func (r *Repository) UnreadCount(receiverID int64) (int, error) {
	var count int
	err := r.coreDB.QueryRow(
		"SELECT COUNT(*) FROM notifications WHERE receiver_id = ? AND is_read = 0",
		receiverID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// Delete removes a notification
func (r *Repository) Delete(id int64) error {
	result, err := r.coreDB.Exec("DELETE FROM notifications WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotificationNotFound
	}
	return nil
}

// DeleteAllForUser removes every notification addressed to a user
func (r *Repository) DeleteAllForUser(receiverID int64) error {
	_, err := r.coreDB.Exec("DELETE FROM notifications WHERE receiver_id = ?", receiverID)
	if err != nil {
		return fmt.Errorf("failed to delete notifications: %w", err)
	}
	return nil
}

func scanNotification(row *sql.Row) (*Notification, error) {
	var n Notification
	var senderID sql.NullInt64
	var isRead int
	var createdAt int64

	err := row.Scan(&n.ID, &senderID, &n.ReceiverID, &n.Subject, &n.Body, &isRead, &createdAt)
	if err != nil {
		return nil, err
	}

	if senderID.Valid {
		n.SenderID = &senderID.Int64
	}
	n.Read = isRead != 0
	n.CreatedAt = time.Unix(createdAt, 0)
	return &n, nil
}
