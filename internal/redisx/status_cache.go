package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"github.com/ariefcatur/go-shop-orders/internal/orders"
	"github.com/redis/go-redis/v9"
)

// StatusCache implements orders.StatusCache on top of Redis.
type StatusCache struct {
	RDB *redis.Client
}

var _ orders.StatusCache = (*StatusCache)(nil)

func (c *StatusCache) PutStatus(ctx context.Context, s orders.CachedStatus) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return c.RDB.Set(ctx, orderStatusKey(s.OrderID), b, TTLStatusCache).Err()
}

func (c *StatusCache) GetStatus(ctx context.Context, orderID int64) (orders.CachedStatus, bool, error) {
	b, err := c.RDB.Get(ctx, orderStatusKey(orderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return orders.CachedStatus{}, false, nil
	}
	if err != nil {
		return orders.CachedStatus{}, false, err
	}
	var s orders.CachedStatus
	if err := json.Unmarshal(b, &s); err != nil {
		// unreadable entry: treat as a miss, the next write replaces it
		return orders.CachedStatus{}, false, nil
	}
	return s, true, nil
}
