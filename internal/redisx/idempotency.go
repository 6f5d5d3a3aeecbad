package redisx

import (
	"context"
	"errors"
	"github.com/redis/go-redis/v9"
	"strconv"
)

const claimedMarker = "0"

// CheckoutKeys stores Idempotency-Key -> order id for checkout requests.
type CheckoutKeys struct {
	RDB *redis.Client
}

func (k *CheckoutKeys) Claim(ctx context.Context, userID int64, key string) (int64, bool, error) {
	rk := idemCheckoutKey(userID, key)
	ok, err := k.RDB.SetNX(ctx, rk, claimedMarker, TTLIdempotency).Result()
	if err != nil {
		return 0, false, err
	}
	if ok {
		return 0, true, nil
	}
	v, err := k.RDB.Get(ctx, rk).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET; the caller may simply retry
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false, err
	}
	return id, false, nil
}

func (k *CheckoutKeys) Complete(ctx context.Context, userID int64, key string, orderID int64) error {
	return k.RDB.Set(ctx, idemCheckoutKey(userID, key), strconv.FormatInt(orderID, 10), TTLIdempotency).Err()
}

func (k *CheckoutKeys) Abandon(ctx context.Context, userID int64, key string) error {
	return k.RDB.Del(ctx, idemCheckoutKey(userID, key)).Err()
}
