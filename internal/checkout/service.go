// Package checkout is the order ledger: it turns carts into orders and owns
// every order status change outside payment reconciliation.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"github.com/ariefcatur/go-shop-orders/internal/auth"
	"github.com/ariefcatur/go-shop-orders/internal/inventory"
	"github.com/ariefcatur/go-shop-orders/internal/logging"
	"github.com/ariefcatur/go-shop-orders/internal/metrics"
	"github.com/ariefcatur/go-shop-orders/internal/orders"
	"github.com/ariefcatur/go-shop-orders/internal/pricing"
	"go.uber.org/zap"
)

type Service struct {
	Store   orders.Store
	Ledger  inventory.Ledger
	Events  orders.Publisher
	Cache   orders.StatusCache
	Idem    Idempotency
	Metrics *metrics.Metrics
}

func New(store orders.Store, events orders.Publisher, cache orders.StatusCache, m *metrics.Metrics) *Service {
	if events == nil {
		events = orders.NopPublisher{}
	}
	if cache == nil {
		cache = orders.NopStatusCache{}
	}
	return &Service{Store: store, Events: events, Cache: cache, Metrics: m}
}

// CreateFromCart prices the user's cart, reserves stock for every line, writes
// the order with its items and empties the cart in one transaction. Any
// failure leaves orders, stock and cart exactly as they were.
func (s *Service) CreateFromCart(ctx context.Context, userID int64) (orders.OrderDetail, error) {
	var out orders.OrderDetail
	err := s.Store.InTx(ctx, func(ctx context.Context, tx orders.Tx) error {
		items, err := tx.ListCartItems(ctx, userID, true)
		if err != nil {
			return fmt.Errorf("list cart: %w", err)
		}
		if len(items) == 0 {
			return orders.ErrCartEmpty
		}
		snap, err := pricing.Capture(ctx, tx, items)
		if err != nil {
			return err
		}
		lines := snap.OrderItems()
		if err := s.Ledger.ReserveAll(ctx, tx, lines); err != nil {
			return err
		}

		o := orders.Order{UserID: userID, TotalPrice: snap.Total, Status: orders.StatusPending}
		if err := tx.InsertOrder(ctx, &o); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		if err := tx.InsertOrderItems(ctx, o.ID, lines); err != nil {
			return fmt.Errorf("insert order items: %w", err)
		}
		if err := checkBalanced(ctx, tx, o, lines); err != nil {
			return err
		}
		if err := tx.ClearCart(ctx, userID); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}
		out = orders.OrderDetail{Order: o, Items: lines}
		return nil
	})
	s.Metrics.Checkout(outcome(err))
	if err != nil {
		return orders.OrderDetail{}, err
	}

	s.orderCreated(ctx, out)
	return out, nil
}

// checkBalanced rereads the stored items; an order whose lines do not add up to
// its total is never committed.
func checkBalanced(ctx context.Context, tx orders.OrderTx, o orders.Order, lines []orders.OrderItem) error {
	if !pricing.Balanced(lines, o.TotalPrice) {
		return fmt.Errorf("%w: order %d", orders.ErrUnbalancedOrder, o.ID)
	}
	sum, err := tx.SumOrderItems(ctx, o.ID)
	if err != nil {
		return fmt.Errorf("sum order items: %w", err)
	}
	if !sum.Equal(o.TotalPrice) {
		return fmt.Errorf("%w: order %d items sum to %s, total %s", orders.ErrUnbalancedOrder, o.ID, sum, o.TotalPrice)
	}
	return nil
}

// UpdateStatus is the privileged, explicit status set. Only allow-listed
// targets reachable from the current status are accepted; cancellation goes
// through Cancel so reserved stock is returned.
func (s *Service) UpdateStatus(ctx context.Context, actor auth.Actor, orderID int64, to orders.Status) (orders.Order, error) {
	if !auth.CanSetOrderStatus(actor.Role) {
		return orders.Order{}, orders.ErrForbidden
	}
	if !orders.AdminSettable(to) {
		return orders.Order{}, fmt.Errorf("%w: %s cannot be set explicitly", orders.ErrInvalidTransition, to)
	}
	if to == orders.StatusCancelled {
		return s.Cancel(ctx, orderID, actor)
	}

	var before, after orders.Order
	err := s.Store.InTx(ctx, func(ctx context.Context, tx orders.Tx) error {
		o, err := tx.GetOrder(ctx, orderID, true)
		if err != nil {
			return err
		}
		if !orders.CanTransition(o.Status, to) {
			return fmt.Errorf("%w: %s -> %s", orders.ErrInvalidTransition, o.Status, to)
		}
		before = o
		after, err = tx.SetOrderStatus(ctx, orderID, to)
		return err
	})
	if err != nil {
		return orders.Order{}, err
	}
	s.statusChanged(ctx, before.Status, after, "admin")
	return after, nil
}

// Cancel moves a pending order to cancelled and releases its reserved stock.
func (s *Service) Cancel(ctx context.Context, orderID int64, actor auth.Actor) (orders.Order, error) {
	var before, after orders.Order
	err := s.Store.InTx(ctx, func(ctx context.Context, tx orders.Tx) error {
		o, err := tx.GetOrder(ctx, orderID, true)
		if err != nil {
			return err
		}
		if !auth.CanCancelOrder(actor.Role, actor.Owns(o.UserID)) {
			return orders.ErrNotOwner
		}
		if o.Status != orders.StatusPending {
			return fmt.Errorf("%w: order %d is %s", orders.ErrNotPending, o.ID, o.Status)
		}
		items, err := tx.ListOrderItems(ctx, o.ID)
		if err != nil {
			return err
		}
		if err := s.Ledger.ReleaseAll(ctx, tx, items); err != nil {
			return err
		}
		before = o
		after, err = tx.SetOrderStatus(ctx, o.ID, orders.StatusCancelled)
		return err
	})
	if err != nil {
		return orders.Order{}, err
	}
	reason := "cancelled_by_owner"
	if !actor.Owns(after.UserID) {
		reason = "cancelled_by_admin"
	}
	s.statusChanged(ctx, before.Status, after, reason)
	return after, nil
}

// Get returns the order with its items and payment. Orders of other users are
// reported as not found unless the actor is an admin.
func (s *Service) Get(ctx context.Context, actor auth.Actor, orderID int64) (orders.OrderDetail, error) {
	var out orders.OrderDetail
	err := s.Store.InTx(ctx, func(ctx context.Context, tx orders.Tx) error {
		o, err := tx.GetOrder(ctx, orderID, false)
		if err != nil {
			return err
		}
		if !auth.CanViewOrder(actor.Role, actor.Owns(o.UserID)) {
			return orders.ErrOrderNotFound
		}
		items, err := tx.ListOrderItems(ctx, o.ID)
		if err != nil {
			return err
		}
		out = orders.OrderDetail{Order: o, Items: items}
		p, err := tx.GetPaymentByExternalID(ctx, orders.ExternalRef(o.ID), false)
		switch {
		case err == nil:
			out.Payment = &p
		case !errors.Is(err, orders.ErrPaymentNotFound):
			return err
		}
		return nil
	})
	return out, err
}

// List returns the actor's orders; admins get every order.
func (s *Service) List(ctx context.Context, actor auth.Actor) ([]orders.Order, error) {
	userID := actor.UserID
	if auth.CanListAllOrders(actor.Role) {
		userID = 0
	}
	var out []orders.Order
	err := s.Store.InTx(ctx, func(ctx context.Context, tx orders.Tx) error {
		var err error
		out, err = tx.ListOrders(ctx, userID)
		return err
	})
	return out, err
}

// Status answers status polls from the cache, falling back to the store.
func (s *Service) Status(ctx context.Context, actor auth.Actor, orderID int64) (orders.CachedStatus, error) {
	cs, ok, err := s.Cache.GetStatus(ctx, orderID)
	if err != nil {
		logging.FromContext(ctx).Warn("status_cache_get_failed", zap.Int64("order_id", orderID), zap.Error(err))
	}
	if !ok || err != nil {
		var o orders.Order
		err := s.Store.InTx(ctx, func(ctx context.Context, tx orders.Tx) error {
			var err error
			o, err = tx.GetOrder(ctx, orderID, false)
			return err
		})
		if err != nil {
			return orders.CachedStatus{}, err
		}
		cs = o.CachedStatus()
		s.putStatus(ctx, o)
	}
	if !auth.CanViewOrder(actor.Role, actor.Owns(cs.UserID)) {
		return orders.CachedStatus{}, orders.ErrOrderNotFound
	}
	return cs, nil
}

// ---- post-commit, best effort ----

func (s *Service) orderCreated(ctx context.Context, d orders.OrderDetail) {
	log := logging.FromContext(ctx)
	items := make([]orders.ItemPrice, 0, len(d.Items))
	for _, it := range d.Items {
		items = append(items, orders.ItemPrice{
			ProductID: it.ProductID, Qty: it.Quantity, UnitPrice: it.UnitPrice, Subtotal: it.Subtotal,
		})
	}
	payload := orders.OrderCreatedPayload{OrderID: d.ID, UserID: d.UserID, Items: items, TotalPrice: d.TotalPrice}
	if err := s.Events.Publish(ctx, orders.TopicOrderCreated, orders.PartitionKey(d.ID), orders.EventOrderCreated, payload); err != nil {
		log.Warn("publish_order_created_failed", zap.Int64("order_id", d.ID), zap.Error(err))
	}
	s.putStatus(ctx, d.Order)
	log.Info("checkout_completed",
		zap.Int64("order_id", d.ID),
		zap.Int64("user_id", d.UserID),
		zap.String("total_price", d.TotalPrice.String()),
		zap.Int("lines", len(d.Items)),
	)
}

func (s *Service) statusChanged(ctx context.Context, from orders.Status, o orders.Order, reason string) {
	log := logging.FromContext(ctx)
	s.Metrics.OrderTransition(string(from), string(o.Status))
	payload := orders.OrderStatusChangedPayload{OrderID: o.ID, UserID: o.UserID, From: from, To: o.Status, Reason: reason}
	if err := s.Events.Publish(ctx, orders.TopicOrderStatusChanged, orders.PartitionKey(o.ID), orders.EventOrderStatusChanged, payload); err != nil {
		log.Warn("publish_status_changed_failed", zap.Int64("order_id", o.ID), zap.Error(err))
	}
	s.putStatus(ctx, o)
	log.Info("order_status_changed",
		zap.Int64("order_id", o.ID),
		zap.String("from", string(from)),
		zap.String("to", string(o.Status)),
		zap.String("reason", reason),
	)
}

func (s *Service) putStatus(ctx context.Context, o orders.Order) {
	if err := s.Cache.PutStatus(ctx, o.CachedStatus()); err != nil {
		logging.FromContext(ctx).Warn("status_cache_put_failed", zap.Int64("order_id", o.ID), zap.Error(err))
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, orders.ErrCartEmpty):
		return "cart_empty"
	case errors.Is(err, orders.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, orders.ErrProductInactive):
		return "product_inactive"
	case errors.Is(err, orders.ErrProductNotFound):
		return "product_not_found"
	default:
		return "error"
	}
}
