// Package reconcile applies asynchronous payment notifications from the
// gateway to payments and orders. Notifications arrive at least once and
// possibly out of order; applying one twice has the effect of applying it once.
package reconcile

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"github.com/ariefcatur/go-shop-orders/internal/logging"
	"github.com/ariefcatur/go-shop-orders/internal/metrics"
	"github.com/ariefcatur/go-shop-orders/internal/orders"
	"go.uber.org/zap"
	"strings"
	"time"
)

var ErrUnauthorized = errors.New("invalid callback token")

// Notification is the invoice callback payload.
type Notification struct {
	InvoiceID      string `json:"id"`
	ExternalID     string `json:"external_id"`
	Status         string `json:"status"`
	Amount         int64  `json:"amount"`
	PaidAmount     int64  `json:"paid_amount"`
	PaymentChannel string `json:"payment_channel"`
	PaymentMethod  string `json:"payment_method"`
}

type Result struct {
	OrderID     int64
	UserID      int64
	Payment     orders.Payment
	OrderStatus orders.Status
	// Applied is false when the notification was acknowledged but ignored
	// because it would move an already paid payment backwards.
	Applied bool
	// Transitioned reports whether the order status changed.
	Transitioned bool
	From         orders.Status
}

type Reconciler struct {
	Store   orders.Store
	Events  orders.Publisher
	Cache   orders.StatusCache
	Metrics *metrics.Metrics

	token []byte
	now   func() time.Time
}

// New builds a reconciler. An empty token disables authentication; callers
// must only allow that when explicitly configured to.
func New(store orders.Store, token string, events orders.Publisher, cache orders.StatusCache, m *metrics.Metrics) *Reconciler {
	if events == nil {
		events = orders.NopPublisher{}
	}
	if cache == nil {
		cache = orders.NopStatusCache{}
	}
	return &Reconciler{
		Store:   store,
		Events:  events,
		Cache:   cache,
		Metrics: m,
		token:   []byte(token),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Authenticate compares the presented callback token in constant time.
func (r *Reconciler) Authenticate(presented string) error {
	if len(r.token) == 0 {
		return nil
	}
	if subtle.ConstantTimeCompare([]byte(presented), r.token) != 1 {
		return ErrUnauthorized
	}
	return nil
}

// ParseReference extracts the order id from an ORDER-<id> external reference.
func ParseReference(externalID string) (int64, error) {
	return orders.ParseExternalRef(externalID)
}

// MapStatus is total: every gateway status yields a payment status and
// anything unrecognised counts as failed.
func MapStatus(gatewayStatus string) orders.PaymentStatus {
	switch strings.ToUpper(strings.TrimSpace(gatewayStatus)) {
	case "PAID", "SETTLED":
		return orders.PaymentPaid
	case "PENDING":
		return orders.PaymentPending
	case "EXPIRED":
		return orders.PaymentExpired
	default:
		return orders.PaymentFailed
	}
}

// Handle authenticates and reconciles one delivery.
func (r *Reconciler) Handle(ctx context.Context, token string, n Notification) (Result, error) {
	if err := r.Authenticate(token); err != nil {
		r.Metrics.Webhook(string(MapStatus(n.Status)), "unauthorized")
		return Result{}, err
	}
	return r.Reconcile(ctx, n)
}

// Reconcile upserts the payment of the referenced order and moves the order
// along the state machine, both in one transaction. A malformed reference is
// rejected before the store is touched.
func (r *Reconciler) Reconcile(ctx context.Context, n Notification) (Result, error) {
	mapped := MapStatus(n.Status)
	orderID, err := ParseReference(n.ExternalID)
	if err != nil {
		r.Metrics.Webhook(string(mapped), "malformed")
		return Result{}, err
	}

	ref := orders.ExternalRef(orderID)

	var res Result
	err = r.Store.InTx(ctx, func(ctx context.Context, tx orders.Tx) error {
		res = Result{OrderID: orderID}
		o, err := tx.GetOrder(ctx, orderID, true)
		if err != nil {
			return err
		}
		res.UserID = o.UserID
		res.From = o.Status
		res.OrderStatus = o.Status

		p, err := tx.GetPaymentByExternalID(ctx, ref, true)
		found := err == nil
		if err != nil && !errors.Is(err, orders.ErrPaymentNotFound) {
			return fmt.Errorf("load payment: %w", err)
		}
		if found && p.Status.IsPaid() && !mapped.IsPaid() {
			res.Payment = p
			return nil
		}

		if n.InvoiceID != "" {
			p.InvoiceID = n.InvoiceID
		}
		p.Amount = n.Amount
		p.PaidAmount = n.PaidAmount
		p.Method = n.PaymentMethod
		p.Channel = n.PaymentChannel
		p.Status = mapped
		p.GatewayStatus = n.Status
		if mapped.IsPaid() && p.PaidAt == nil {
			at := r.now()
			p.PaidAt = &at
		}
		if found {
			err = tx.UpdatePayment(ctx, &p)
		} else {
			p.OrderID = o.ID
			p.ExternalID = ref
			err = tx.InsertPayment(ctx, &p)
		}
		if err != nil {
			return fmt.Errorf("save payment: %w", err)
		}
		res.Payment = p
		res.Applied = true

		target := mapped.OrderStatus()
		if target == o.Status || !orders.CanTransition(o.Status, target) {
			return nil
		}
		o, err = tx.SetOrderStatus(ctx, o.ID, target)
		if err != nil {
			return err
		}
		res.OrderStatus = o.Status
		res.Transitioned = true
		return nil
	})
	if err != nil {
		r.Metrics.Webhook(string(mapped), failureOutcome(err))
		return Result{}, err
	}

	r.afterCommit(ctx, n, res)
	return res, nil
}

func (r *Reconciler) afterCommit(ctx context.Context, n Notification, res Result) {
	log := logging.FromContext(ctx)
	outcome := "applied"
	if !res.Applied {
		outcome = "stale"
	}
	r.Metrics.Webhook(string(MapStatus(n.Status)), outcome)

	key := orders.PartitionKey(res.OrderID)
	payload := orders.PaymentReconciledPayload{
		OrderID:       res.OrderID,
		UserID:        res.UserID,
		PaymentID:     res.Payment.ID,
		ExternalID:    n.ExternalID,
		PaymentStatus: res.Payment.Status,
		OrderStatus:   res.OrderStatus,
		PaidAmount:    res.Payment.PaidAmount,
		Applied:       res.Applied,
	}
	if err := r.Events.Publish(ctx, orders.TopicPaymentReconciled, key, orders.EventPaymentReconciled, payload); err != nil {
		log.Warn("publish_payment_reconciled_failed", zap.Int64("order_id", res.OrderID), zap.Error(err))
	}

	if res.Transitioned {
		r.Metrics.OrderTransition(string(res.From), string(res.OrderStatus))
		changed := orders.OrderStatusChangedPayload{OrderID: res.OrderID, UserID: res.UserID, From: res.From, To: res.OrderStatus, Reason: "webhook"}
		if err := r.Events.Publish(ctx, orders.TopicOrderStatusChanged, key, orders.EventOrderStatusChanged, changed); err != nil {
			log.Warn("publish_status_changed_failed", zap.Int64("order_id", res.OrderID), zap.Error(err))
		}
		if err := r.Cache.PutStatus(ctx, orders.CachedStatus{OrderID: res.OrderID, UserID: res.UserID, Status: res.OrderStatus, UpdatedAt: r.now()}); err != nil {
			log.Warn("status_cache_put_failed", zap.Int64("order_id", res.OrderID), zap.Error(err))
		}
	}

	log.Info("webhook_reconciled",
		zap.Int64("order_id", res.OrderID),
		zap.String("external_id", n.ExternalID),
		zap.String("invoice_id", n.InvoiceID),
		zap.String("gateway_status", n.Status),
		zap.String("payment_status", string(res.Payment.Status)),
		zap.String("order_status", string(res.OrderStatus)),
		zap.Bool("applied", res.Applied),
	)
}

func failureOutcome(err error) string {
	switch {
	case errors.Is(err, orders.ErrOrderNotFound):
		return "order_not_found"
	default:
		return "error"
	}
}
