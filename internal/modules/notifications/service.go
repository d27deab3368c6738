package notifications

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/aristath/papertrade/internal/domain"
)

// Service provides notification operations
type Service struct {
	repo *Repository
	log  zerolog.Logger
}

// NewService creates a new notification service
func NewService(repo *Repository, log zerolog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With().Str("service", "notifications").Logger(),
	}
}

// Send delivers a message to a user's inbox. A nil senderID marks a system
// message.
func (s *Service) Send(senderID *int64, receiverID int64, subject, body string) (*Notification, error) {
	subject = strings.TrimSpace(subject)
	body = strings.TrimSpace(body)
	if subject == "" {
		return nil, fmt.Errorf("%w: subject is required", domain.ErrValidation)
	}
	if body == "" {
		return nil, fmt.Errorf("%w: body is required", domain.ErrValidation)
	}

	n := &Notification{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Subject:    subject,
		Body:       body,
	}
	if err := s.repo.Create(n); err != nil {
		return nil, err
	}
	return n, nil
}

// ListForUser returns a user's notifications, newest first
func (s *Service) ListForUser(receiverID int64, unreadOnly bool) ([]Notification, error) {
	return s.repo.ListByReceiver(receiverID, unreadOnly)
}

// UnreadCount returns how many unread notifications a user has
func (s *Service) UnreadCount(receiverID int64) (int, error) {
	return s.repo.UnreadCount(receiverID)
}

// MarkRead marks one of a user's notifications as read
func (s *Service) MarkRead(receiverID, id int64) error {
	return s.repo.MarkRead(id, receiverID)
}

// MarkAllRead marks all of a user's notifications as read and returns how
// many changed
func (s *Service) MarkAllRead(receiverID int64) (int64, error) {
	return s.repo.MarkAllRead(receiverID)
}

// Delete removes a notification. Only the receiver or an admin may delete.
func (s *Service) Delete(requesterID int64, isAdmin bool, id int64) error {
	n, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if n.ReceiverID != requesterID && !isAdmin {
		return domain.ErrForbidden
	}
	return s.repo.Delete(id)
}
