package users

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/papertrade/internal/domain"
	"github.com/rs/zerolog"
)

// userColumns is the list of columns for the users table.
// Column order must match scanUser.
const userColumns = `id, username, email, password_hash, roles, is_fake, created_at`

// execer is satisfied by *sql.DB and *sql.Tx so writes can join a caller's
// transaction
type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

// Repository handles user database operations
type Repository struct {
	coreDB *sql.DB
	log    zerolog.Logger
}

// NewRepository creates a new user repository
func NewRepository(coreDB *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		coreDB: coreDB,
		log:    log.With().Str("repo", "users").Logger(),
	}
}

// Create inserts a new user and sets its ID. Duplicate usernames and emails
// map to typed errors so handlers can answer 409.
func (r *Repository) Create(user *User) error {
	return r.create(r.coreDB, user)
}

// CreateTx inserts a new user inside an existing transaction
func (r *Repository) CreateTx(tx *sql.Tx, user *User) error {
	return r.create(tx, user)
}

func (r *Repository) create(q execer, user *User) error {
	result, err := q.Exec(`
		INSERT INTO users (username, email, password_hash, roles, is_fake, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		user.Username,
		user.Email,
		user.PasswordHash,
		joinRoles(user.Roles),
		boolToInt(user.IsFake),
		user.CreatedAt.Unix(),
	)
	if err != nil {
		if translated := translateConstraintErr(err); translated != nil {
			return translated
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get user id: %w", err)
	}
	user.ID = id

	return nil
}

// GetByID retrieves a user by id
func (r *Repository) GetByID(id int64) (*User, error) {
	row := r.coreDB.QueryRow("SELECT "+userColumns+" FROM users WHERE id = ?", id)
	return r.scanUser(row)
}

// GetByUsername retrieves a user by username
func (r *Repository) GetByUsername(username string) (*User, error) {
	row := r.coreDB.QueryRow("SELECT "+userColumns+" FROM users WHERE username = ?", username)
	return r.scanUser(row)
}

// GetByEmail retrieves a user by email
func (r *Repository) GetByEmail(email string) (*User, error) {
	row := r.coreDB.QueryRow("SELECT "+userColumns+" FROM users WHERE email = ?", email)
	return r.scanUser(row)
}

// List returns all users ordered by creation time
func (r *Repository) List() ([]User, error) {
	rows, err := r.coreDB.Query("SELECT " + userColumns + " FROM users ORDER BY created_at ASC, id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		user, err := scanUserFromRows(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

// UpdateEmail changes a user's email address
func (r *Repository) UpdateEmail(id int64, email string) error {
	result, err := r.coreDB.Exec("UPDATE users SET email = ? WHERE id = ?", email, id)
	if err != nil {
		if translated := translateConstraintErr(err); translated != nil {
			return translated
		}
		return fmt.Errorf("failed to update user email: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update user email: %w", err)
	}
	if affected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// Delete removes a user. Wallet, positions, transactions, tokens and
// notifications go with it via foreign key cascades.
func (r *Repository) Delete(id int64) error {
	result, err := r.coreDB.Exec("DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if affected == 0 {
		return domain.ErrUserNotFound
	}

	r.log.Info().Int64("user_id", id).Msg("User deleted")
	return nil
}

// CountFake returns the number of fake users
func (r *Repository) CountFake() (int, error) {
	var count int
	err := r.coreDB.QueryRow("SELECT COUNT(*) FROM users WHERE is_fake = 1").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count fake users: %w", err)
	}
	return count, nil
}

// ListFake returns all fake users
func (r *Repository) ListFake() ([]User, error) {
	rows, err := r.coreDB.Query("SELECT " + userColumns + " FROM users WHERE is_fake = 1 ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to list fake users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		user, err := scanUserFromRows(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

func (r *Repository) scanUser(row *sql.Row) (*User, error) {
	var user User
	var roles string
	var isFake int
	var createdAt int64

	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &roles, &isFake, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	user.Roles = splitRoles(roles)
	user.IsFake = isFake != 0
	user.CreatedAt = time.Unix(createdAt, 0)
	return &user, nil
}

func scanUserFromRows(rows *sql.Rows) (*User, error) {
	var user User
	var roles string
	var isFake int
	var createdAt int64

	err := rows.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &roles, &isFake, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	user.Roles = splitRoles(roles)
	user.IsFake = isFake != 0
	user.CreatedAt = time.Unix(createdAt, 0)
	return &user, nil
}

// translateConstraintErr maps UNIQUE violations on username/email to the
// typed duplicate errors. String matching keeps it driver-agnostic.
func translateConstraintErr(err error) error {
	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint") {
		return nil
	}
	switch {
	case strings.Contains(msg, "users.username"):
		return domain.ErrDuplicateUsername
	case strings.Contains(msg, "users.email"):
		return domain.ErrDuplicateEmail
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
