package checkout

import (
	"context"
	"errors"
	"github.com/ariefcatur/go-shop-orders/internal/auth"
	"github.com/ariefcatur/go-shop-orders/internal/logging"
	"github.com/ariefcatur/go-shop-orders/internal/orders"
	"go.uber.org/zap"
)

var ErrCheckoutInProgress = errors.New("checkout with this idempotency key is in progress")

// Idempotency remembers which order a client-supplied key produced.
type Idempotency interface {
	// Claim reserves key for userID. When the key was already claimed it
	// returns claimed=false and the order id recorded for it (zero while the
	// first request is still running).
	Claim(ctx context.Context, userID int64, key string) (orderID int64, claimed bool, err error)
	Complete(ctx context.Context, userID int64, key string, orderID int64) error
	Abandon(ctx context.Context, userID int64, key string) error
}

// CheckoutOnce is CreateFromCart guarded by an idempotency key. A repeated key
// returns the order of the first request and replayed=true. Without a key, or
// when the key store is unavailable, it behaves like CreateFromCart.
func (s *Service) CheckoutOnce(ctx context.Context, userID int64, key string) (d orders.OrderDetail, replayed bool, err error) {
	if key == "" || s.Idem == nil {
		d, err = s.CreateFromCart(ctx, userID)
		return d, false, err
	}
	log := logging.FromContext(ctx)

	orderID, claimed, err := s.Idem.Claim(ctx, userID, key)
	if err != nil {
		log.Warn("idempotency_claim_failed", zap.Int64("user_id", userID), zap.Error(err))
		d, err = s.CreateFromCart(ctx, userID)
		return d, false, err
	}
	if !claimed {
		if orderID == 0 {
			return orders.OrderDetail{}, false, ErrCheckoutInProgress
		}
		d, err = s.Get(ctx, auth.Actor{UserID: userID, Role: auth.RoleBuyer}, orderID)
		return d, true, err
	}

	d, err = s.CreateFromCart(ctx, userID)
	if err != nil {
		if aerr := s.Idem.Abandon(ctx, userID, key); aerr != nil {
			log.Warn("idempotency_abandon_failed", zap.Int64("user_id", userID), zap.Error(aerr))
		}
		return orders.OrderDetail{}, false, err
	}
	if cerr := s.Idem.Complete(ctx, userID, key, d.ID); cerr != nil {
		log.Warn("idempotency_complete_failed", zap.Int64("order_id", d.ID), zap.Error(cerr))
	}
	return d, false, nil
}
