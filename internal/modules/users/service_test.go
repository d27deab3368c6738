package users

import (
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/aristath/papertrade/internal/domain"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupUsersDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			roles TEXT NOT NULL DEFAULT 'USER',
			is_fake INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		);
		CREATE TABLE mystery_pages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL UNIQUE,
			code TEXT NOT NULL,
			message TEXT NOT NULL,
			claimed_at INTEGER NOT NULL
		);
	`)
	require.NoError(t, err)

	return db
}

// fakeWalletCreator records wallet seeds
type fakeWalletCreator struct {
	created map[int64]decimal.Decimal
}

func (f *fakeWalletCreator) Create(userID int64, balance decimal.Decimal) error {
	if f.created == nil {
		f.created = make(map[int64]decimal.Decimal)
	}
	f.created[userID] = balance
	return nil
}

func setupUserService(t *testing.T) (*Service, *Repository, *fakeWalletCreator) {
	t.Helper()

	db := setupUsersDB(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)
	repo := NewRepository(db, log)
	mysteryRepo := NewMysteryRepository(db, log)
	wallets := &fakeWalletCreator{}
	return NewService(repo, mysteryRepo, wallets, log), repo, wallets
}

func TestRepositoryRoundtrip(t *testing.T) {
	_, repo, _ := setupUserService(t)

	user := &User{
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "$2a$10$fakehash",
		Roles:        []string{RoleUser, RoleAdmin},
		CreatedAt:    time.Now(),
	}
	require.NoError(t, repo.Create(user))
	require.NotZero(t, user.ID)

	got, err := repo.GetByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, []string{RoleUser, RoleAdmin}, got.Roles)
	assert.True(t, got.IsAdmin())
	assert.False(t, got.IsFake)

	byName, err := repo.GetByUsername("alice")
	require.NoError(t, err)
	assert.Equal(t, got.ID, byName.ID)

	byEmail, err := repo.GetByEmail("alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, got.ID, byEmail.ID)
}

func TestRepositoryNotFound(t *testing.T) {
	_, repo, _ := setupUserService(t)

	_, err := repo.GetByID(99)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	assert.ErrorIs(t, repo.Delete(99), domain.ErrUserNotFound)
	assert.ErrorIs(t, repo.UpdateEmail(99, "x@example.com"), domain.ErrUserNotFound)
}

func TestRepositoryDuplicates(t *testing.T) {
	_, repo, _ := setupUserService(t)

	require.NoError(t, repo.Create(&User{
		Username: "alice", Email: "alice@example.com", PasswordHash: "h",
		Roles: []string{RoleUser}, CreatedAt: time.Now(),
	}))

	err := repo.Create(&User{
		Username: "alice", Email: "other@example.com", PasswordHash: "h",
		Roles: []string{RoleUser}, CreatedAt: time.Now(),
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateUsername)

	err = repo.Create(&User{
		Username: "bob", Email: "alice@example.com", PasswordHash: "h",
		Roles: []string{RoleUser}, CreatedAt: time.Now(),
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)
}

func TestUserJSONNeverLeaksHash(t *testing.T) {
	user := &User{
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "$2a$10$secret",
		Roles:        []string{RoleUser},
	}

	body, err := json.Marshal(user)
	require.NoError(t, err)
	assert.NotContains(t, string(body), "$2a$", "password hash must never serialize")
}

func TestEnsureAdmin(t *testing.T) {
	service, repo, wallets := setupUserService(t)

	require.NoError(t, service.EnsureAdmin("root", "root@example.com", "supersecret"))

	admin, err := repo.GetByUsername("root")
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin())
	assert.True(t, CheckPassword(admin.PasswordHash, "supersecret"))
	assert.Contains(t, wallets.created, admin.ID)

	// Second startup leaves the existing admin alone
	require.NoError(t, service.EnsureAdmin("root", "root@example.com", "changed"))
	again, err := repo.GetByUsername("root")
	require.NoError(t, err)
	assert.Equal(t, admin.PasswordHash, again.PasswordHash)
}

func TestEnsureAdminSkipsWhenUnconfigured(t *testing.T) {
	service, repo, _ := setupUserService(t)

	require.NoError(t, service.EnsureAdmin("", "", ""))

	list, err := repo.List()
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSeedFakeUsers(t *testing.T) {
	service, repo, wallets := setupUserService(t)
	balance := decimal.NewFromInt(10000)

	require.NoError(t, service.SeedFakeUsers(3, balance))

	count, err := repo.CountFake()
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Len(t, wallets.created, 3)

	fakes, err := repo.ListFake()
	require.NoError(t, err)
	for _, fake := range fakes {
		assert.True(t, fake.IsFake)
	}

	// Re-seeding tops up, never duplicates
	require.NoError(t, service.SeedFakeUsers(3, balance))
	count, err = repo.CountFake()
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	require.NoError(t, service.SeedFakeUsers(5, balance))
	count, err = repo.CountFake()
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestClaimMystery(t *testing.T) {
	service, repo, _ := setupUserService(t)

	user := &User{Username: "alice", Email: "a@example.com", PasswordHash: "h",
		Roles: []string{RoleUser}, CreatedAt: time.Now()}
	require.NoError(t, repo.Create(user))

	// Unclaimed pages do not exist
	page, err := service.GetMystery(user.ID)
	require.NoError(t, err)
	assert.Nil(t, page)

	claimed, err := service.ClaimMystery(user.ID)
	require.NoError(t, err)
	assert.Len(t, claimed.Code, 8)
	assert.NotEmpty(t, claimed.Message)

	// Claiming again returns the same page
	again, err := service.ClaimMystery(user.ID)
	require.NoError(t, err)
	assert.Equal(t, claimed.ID, again.ID)
	assert.Equal(t, claimed.Code, again.Code)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("password123")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "password123"))
	assert.False(t, CheckPassword(hash, "wrong"))

	// Over-long passwords truncate at the bcrypt limit instead of failing
	long := make([]byte, 100)
	for i := range long {
		long[i] = 'a'
	}
	hash, err = HashPassword(string(long))
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, string(long)))
}
