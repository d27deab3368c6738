// Package users manages user accounts, roles and the mystery page easter egg.
package users

import (
	"strings"
	"time"

	"github.com/aristath/papertrade/internal/utils"
)

// Role names stored on a user. Roles are persisted comma-joined in a single
// column, e.g. "USER,ADMIN".
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// User represents a registered account
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Roles        []string  `json:"roles"`
	IsFake       bool      `json:"is_fake"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsAdmin reports whether the user carries the ADMIN role
func (u *User) IsAdmin() bool {
	for _, role := range u.Roles {
		if role == RoleAdmin {
			return true
		}
	}
	return false
}

// MysteryPage is a hidden page a user can claim once. It stays a 404 until
// claimed; claiming again returns the same page.
type MysteryPage struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	ClaimedAt time.Time `json:"claimed_at"`
}

// joinRoles serializes roles for storage
func joinRoles(roles []string) string {
	return strings.Join(roles, ",")
}

// splitRoles parses the stored role column. A user always gets a non-nil
// slice so the JSON field renders as [] rather than null.
func splitRoles(raw string) []string {
	roles := utils.ParseCSV(raw)
	if roles == nil {
		return []string{}
	}
	return roles
}
