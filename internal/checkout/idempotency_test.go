package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memIdem struct {
	mu   sync.Mutex
	keys map[string]int64
	down bool
}

func (m *memIdem) k(userID int64, key string) string { return fmt.Sprintf("%d:%s", userID, key) }

func (m *memIdem) Claim(_ context.Context, userID int64, key string) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return 0, false, errors.New("connection refused")
	}
	if id, ok := m.keys[m.k(userID, key)]; ok {
		return id, false, nil
	}
	m.keys[m.k(userID, key)] = 0
	return 0, true, nil
}

func (m *memIdem) Complete(_ context.Context, userID int64, key string, orderID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[m.k(userID, key)] = orderID
	return nil
}

func (m *memIdem) Abandon(_ context.Context, userID int64, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, m.k(userID, key))
	return nil
}

func TestCheckoutOnceReplaysFirstOrder(t *testing.T) {
	f := newFixture(t)
	f.svc.Idem = &memIdem{keys: map[string]int64{}}
	p := f.product("A", "10", 5)
	f.putInCart(buyer.UserID, p.ID, 1)
	ctx := context.Background()

	first, replayed, err := f.svc.CheckoutOnce(ctx, buyer.UserID, "k1")
	require.NoError(t, err)
	assert.False(t, replayed)

	second, replayed, err := f.svc.CheckoutOnce(ctx, buyer.UserID, "k1")
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, f.allOrders(), 1)
	assert.Equal(t, 4, f.stock(p.ID))
}

func TestCheckoutOnceFailureReleasesKey(t *testing.T) {
	f := newFixture(t)
	idem := &memIdem{keys: map[string]int64{}}
	f.svc.Idem = idem
	ctx := context.Background()

	_, _, err := f.svc.CheckoutOnce(ctx, buyer.UserID, "k1")
	require.Error(t, err)
	assert.Empty(t, idem.keys)

	p := f.product("A", "10", 5)
	f.putInCart(buyer.UserID, p.ID, 1)
	_, replayed, err := f.svc.CheckoutOnce(ctx, buyer.UserID, "k1")
	require.NoError(t, err)
	assert.False(t, replayed)
}

func TestCheckoutOnceInProgress(t *testing.T) {
	f := newFixture(t)
	f.svc.Idem = &memIdem{keys: map[string]int64{"1:k1": 0}}

	_, _, err := f.svc.CheckoutOnce(context.Background(), buyer.UserID, "k1")
	assert.ErrorIs(t, err, ErrCheckoutInProgress)
}

func TestCheckoutOnceDegradesWhenKeyStoreDown(t *testing.T) {
	f := newFixture(t)
	f.svc.Idem = &memIdem{keys: map[string]int64{}, down: true}
	p := f.product("A", "10", 5)
	f.putInCart(buyer.UserID, p.ID, 1)

	_, replayed, err := f.svc.CheckoutOnce(context.Background(), buyer.UserID, "k1")
	require.NoError(t, err)
	assert.False(t, replayed)
}
