package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	m, err := NewTokenMaker("test-secret", time.Hour, "shop")
	require.NoError(t, err)

	tok, issued, err := m.IssueToken(7, "a@b.c", "alice", RoleSeller)
	require.NoError(t, err)
	require.NotEmpty(t, tok)

	c, err := m.VerifyToken(tok)
	require.NoError(t, err)
	require.Equal(t, int64(7), c.UserID)
	require.Equal(t, "a@b.c", c.Email)
	require.Equal(t, "alice", c.Username)
	require.Equal(t, RoleSeller, c.Role)
	require.Equal(t, issued.ExpiresAt.Unix(), c.ExpiresAt.Unix())
}

func TestVerifyTokenRejectsForeignSecret(t *testing.T) {
	a, _ := NewTokenMaker("secret-a", time.Hour, "shop")
	b, _ := NewTokenMaker("secret-b", time.Hour, "shop")

	tok, _, err := a.IssueToken(1, "x@y.z", "x", RoleBuyer)
	require.NoError(t, err)

	_, err = b.VerifyToken(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyTokenRejectsExpired(t *testing.T) {
	m, _ := NewTokenMaker("secret", time.Nanosecond, "shop")
	tok, _, err := m.IssueToken(1, "x@y.z", "x", RoleBuyer)
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond)

	_, err = m.VerifyToken(tok)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewTokenMakerRequiresSecret(t *testing.T) {
	_, err := NewTokenMaker("", time.Hour, "shop")
	require.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	h, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, VerifyPassword("correct horse", h))
	assert.False(t, VerifyPassword("wrong horse", h))

	_, err = HashPassword("short")
	require.ErrorIs(t, err, ErrWeakPassword)
}

func TestRolePredicates(t *testing.T) {
	assert.True(t, CanManageProduct(RoleAdmin, false))
	assert.True(t, CanManageProduct(RoleSeller, true))
	assert.False(t, CanManageProduct(RoleSeller, false))
	assert.False(t, CanManageProduct(RoleBuyer, true))

	assert.True(t, CanSetOrderStatus(RoleAdmin))
	assert.False(t, CanSetOrderStatus(RoleSeller))

	assert.True(t, CanCancelOrder(RoleBuyer, true))
	assert.False(t, CanCancelOrder(RoleSeller, false))
	assert.True(t, CanCancelOrder(RoleAdmin, false))

	assert.False(t, CanSelfRegister(RoleAdmin))
	assert.True(t, CanSelfRegister(RoleBuyer))
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" Admin ")
	require.NoError(t, err)
	require.Equal(t, RoleAdmin, r)

	_, err = ParseRole("root")
	require.Error(t, err)
}
