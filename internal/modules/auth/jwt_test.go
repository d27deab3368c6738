package auth

import (
	"testing"
	"time"

	"github.com/aristath/papertrade/internal/domain"
	"github.com/aristath/papertrade/internal/modules/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndVerify(t *testing.T) {
	manager := NewTokenManager("test-secret", 15*time.Minute)
	user := &users.User{ID: 42, Username: "alice", Roles: []string{users.RoleUser, users.RoleAdmin}}

	token, err := manager.Sign(user)
	require.NoError(t, err)

	claims, err := manager.Verify(token)
	require.NoError(t, err)

	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, "alice", claims.Username)
	assert.True(t, claims.IsAdmin())
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	manager := NewTokenManager("test-secret", 15*time.Minute)
	other := NewTokenManager("different-secret", 15*time.Minute)

	token, err := manager.Sign(&users.User{ID: 1, Username: "alice", Roles: []string{users.RoleUser}})
	require.NoError(t, err)

	_, err = other.Verify(token)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	manager := NewTokenManager("test-secret", -time.Minute)

	token, err := manager.Sign(&users.User{ID: 1, Username: "alice", Roles: []string{users.RoleUser}})
	require.NoError(t, err)

	_, err = manager.Verify(token)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	manager := NewTokenManager("test-secret", 15*time.Minute)

	_, err := manager.Verify("not.a.jwt")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestClaimsIsAdmin(t *testing.T) {
	claims := &Claims{Roles: []string{users.RoleUser}}
	assert.False(t, claims.IsAdmin())

	claims.Roles = append(claims.Roles, users.RoleAdmin)
	assert.True(t, claims.IsAdmin())
}
