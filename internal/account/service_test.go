package account

import (
	"context"
	"testing"
	"time"

	"github.com/ariefcatur/go-shop-orders/internal/auth"
	"github.com/ariefcatur/go-shop-orders/internal/memory"
	"github.com/ariefcatur/go-shop-orders/internal/orders"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) *Service {
	t.Helper()
	tm, err := auth.NewTokenMaker("test-secret", time.Hour, "shop")
	require.NoError(t, err)
	return New(memory.NewStore(), tm)
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, Registration{Email: " Alice@Shop.test ", Username: "alice", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, "alice@shop.test", u.Email)
	assert.Equal(t, auth.RoleBuyer, u.Role)
	assert.NotEqual(t, "correct horse", u.PasswordHash)

	sess, err := svc.Login(ctx, "alice@shop.test", "correct horse")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)

	claims, err := svc.Tokens.VerifyToken(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
	assert.Equal(t, "alice", claims.Username)

	_, err = svc.Login(ctx, "alice@shop.test", "wrong password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "bob@shop.test", "correct horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterRejections(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, Registration{Email: "a@shop.test", Username: "a", Password: "long enough", Role: "admin"})
	assert.ErrorIs(t, err, orders.ErrForbidden)
	_, err = svc.Register(ctx, Registration{Email: "not-an-email", Username: "a", Password: "long enough"})
	assert.ErrorIs(t, err, ErrInvalidEmail)
	_, err = svc.Register(ctx, Registration{Email: "a@shop.test", Username: " ", Password: "long enough"})
	assert.ErrorIs(t, err, ErrInvalidUsername)
	_, err = svc.Register(ctx, Registration{Email: "a@shop.test", Username: "a", Password: "short"})
	assert.ErrorIs(t, err, auth.ErrWeakPassword)

	_, err = svc.Register(ctx, Registration{Email: "a@shop.test", Username: "a", Password: "long enough", Role: "seller"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, Registration{Email: "A@shop.test", Username: "b", Password: "long enough"})
	assert.ErrorIs(t, err, orders.ErrEmailTaken)
}
