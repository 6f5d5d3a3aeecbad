// Package notify turns committed domain events into customer notifications.
package notify

import (
	"context"
	"fmt"
	kafkax "github.com/ariefcatur/go-shop-orders/internal/kafka"
	"github.com/ariefcatur/go-shop-orders/internal/orders"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Topics the notifier subscribes to.
var Topics = []string{
	orders.TopicOrderCreated,
	orders.TopicOrderStatusChanged,
	orders.TopicPaymentReconciled,
}

type Deduper interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Mark(ctx context.Context, eventID string) error
}

type Notification struct {
	EventID string
	Kind    string
	OrderID int64
	UserID  int64
	Message string
}

type Sender interface {
	Send(ctx context.Context, n Notification) error
}

// LogSender writes notifications to the structured log.
type LogSender struct {
	Log *zap.Logger
}

func (s LogSender) Send(_ context.Context, n Notification) error {
	s.Log.Info("customer_notification",
		zap.String("event_id", n.EventID),
		zap.String("kind", n.Kind),
		zap.Int64("order_id", n.OrderID),
		zap.Int64("user_id", n.UserID),
		zap.String("message", n.Message),
	)
	return nil
}

type Service struct {
	Dedup  Deduper
	Sender Sender
	Log    *zap.Logger
}

// Handle dipasang sebagai handler consumer. An event is marked as seen only
// after its notification went out, so a failed send is retried on redelivery.
func (s *Service) Handle(ctx context.Context, m kafkago.Message) error {
	// 1) decode envelope
	env, err := kafkax.DecodeEnvelope(m.Value)
	if err != nil {
		// pesan rusak tidak akan pernah sukses; commit & lanjut
		s.Log.Warn("notify_skip_undecodable", zap.String("topic", m.Topic), zap.Int64("offset", m.Offset), zap.Error(err))
		return nil
	}

	// 2) dedup via Redis (pakai event_id)
	seen, err := s.Dedup.Seen(ctx, env.EventID)
	if err != nil {
		return fmt.Errorf("dedup lookup: %w", err)
	}
	if seen {
		return nil
	}

	// 3) decode payload
	n, ok, err := build(env)
	if err != nil {
		s.Log.Warn("notify_skip_bad_payload", zap.String("event_id", env.EventID), zap.Error(err))
		return nil
	}
	if ok {
		if err := s.Sender.Send(ctx, n); err != nil {
			return fmt.Errorf("send notification: %w", err)
		}
	}
	if err := s.Dedup.Mark(ctx, env.EventID); err != nil {
		s.Log.Warn("dedup_mark_failed", zap.String("event_id", env.EventID), zap.Error(err))
	}
	return nil
}

func build(env orders.Envelope) (Notification, bool, error) {
	n := Notification{EventID: env.EventID, Kind: env.EventType}
	switch env.EventType {
	case orders.EventOrderCreated:
		p, err := kafkax.UnwrapPayload[orders.OrderCreatedPayload](env.Payload)
		if err != nil {
			return n, false, err
		}
		n.OrderID, n.UserID = p.OrderID, p.UserID
		n.Message = fmt.Sprintf("Order #%d placed, total %s. Waiting for payment.", p.OrderID, p.TotalPrice.StringFixed(2))
	case orders.EventOrderStatusChanged:
		p, err := kafkax.UnwrapPayload[orders.OrderStatusChangedPayload](env.Payload)
		if err != nil {
			return n, false, err
		}
		n.OrderID, n.UserID = p.OrderID, p.UserID
		n.Message = fmt.Sprintf("Order #%d is now %s.", p.OrderID, p.To)
	case orders.EventPaymentReconciled:
		p, err := kafkax.UnwrapPayload[orders.PaymentReconciledPayload](env.Payload)
		if err != nil {
			return n, false, err
		}
		if !p.Applied {
			return n, false, nil
		}
		n.OrderID, n.UserID = p.OrderID, p.UserID
		if p.PaymentStatus.IsPaid() {
			n.Message = fmt.Sprintf("Payment of %d received for order #%d.", p.PaidAmount, p.OrderID)
		} else {
			n.Message = fmt.Sprintf("Payment for order #%d is %s.", p.OrderID, p.PaymentStatus)
		}
	default:
		return n, false, nil
	}
	return n, true, nil
}
