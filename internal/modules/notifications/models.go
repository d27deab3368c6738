// Package notifications stores and serves per-user messages: system events
// (welcome, trade confirmations) and admin announcements.
package notifications

import "time"

// Notification is one message in a user's inbox. A nil SenderID marks a
// system-generated message.
type Notification struct {
	ID         int64     `json:"id"`
	SenderID   *int64    `json:"sender_id"`
	ReceiverID int64     `json:"receiver_id"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	Read       bool      `json:"read"`
	CreatedAt  time.Time `json:"created_at"`
}
