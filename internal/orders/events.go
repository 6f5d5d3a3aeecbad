package orders

import (
	"context"
	"encoding/json"
	"github.com/shopspring/decimal"
	"time"
)

const (
	EventOrderCreated       = "OrderCreated"
	EventOrderStatusChanged = "OrderStatusChanged"
	EventPaymentReconciled  = "PaymentReconciled"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

// ---- Payload per event ----

type ItemPrice struct {
	ProductID int64           `json:"product_id"`
	Qty       int             `json:"qty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type OrderCreatedPayload struct {
	OrderID    int64           `json:"order_id"`
	UserID     int64           `json:"user_id"`
	Items      []ItemPrice     `json:"items"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

type OrderStatusChangedPayload struct {
	OrderID int64  `json:"order_id"`
	UserID  int64  `json:"user_id"`
	From    Status `json:"from"`
	To      Status `json:"to"`
	Reason  string `json:"reason,omitempty"` // cancelled_by_owner, admin, webhook
}

type PaymentReconciledPayload struct {
	OrderID       int64         `json:"order_id"`
	UserID        int64         `json:"user_id"`
	PaymentID     int64         `json:"payment_id"`
	ExternalID    string        `json:"external_id"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	OrderStatus   Status        `json:"order_status"`
	PaidAmount    int64         `json:"paid_amount"`
	Applied       bool          `json:"applied"`
}

// Publisher emits a domain event after the owning transaction committed.
// Implementations must not block on the broker.
type Publisher interface {
	Publish(ctx context.Context, topic string, key string, eventType string, payload any) error
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, string, string, any) error { return nil }
