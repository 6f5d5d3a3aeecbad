package orders

import (
	"fmt"
	"strings"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusPaid       Status = "paid"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
	StatusExpired    Status = "expired"
	StatusFailed     Status = "failed"
)

var validNext = map[Status]map[Status]bool{
	StatusPending:    {StatusPaid: true, StatusCancelled: true, StatusExpired: true, StatusFailed: true},
	StatusPaid:       {StatusProcessing: true, StatusExpired: true, StatusFailed: true},
	StatusProcessing: {StatusShipped: true},
	StatusShipped:    {StatusDelivered: true},
	StatusDelivered:  {},
	StatusCancelled:  {},
	// a late settlement may still arrive for an invoice the order gave up on
	StatusExpired: {StatusPaid: true},
	StatusFailed:  {StatusPaid: true},
}

// adminSettable is the allow-list for explicit, privileged status changes.
var adminSettable = map[Status]bool{
	StatusProcessing: true,
	StatusShipped:    true,
	StatusDelivered:  true,
	StatusCancelled:  true,
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

func AdminSettable(s Status) bool {
	return adminSettable[s]
}

func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := validNext[st]; !ok {
		return "", fmt.Errorf("%w: order status %q", ErrUnknownStatus, s)
	}
	return st, nil
}

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentSettled PaymentStatus = "settled"
	PaymentExpired PaymentStatus = "expired"
	PaymentFailed  PaymentStatus = "failed"
)

func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch ps := PaymentStatus(strings.ToLower(strings.TrimSpace(s))); ps {
	case PaymentPending, PaymentPaid, PaymentSettled, PaymentExpired, PaymentFailed:
		return ps, nil
	default:
		return "", fmt.Errorf("%w: payment status %q", ErrUnknownStatus, s)
	}
}

func (p PaymentStatus) IsPaid() bool {
	return p == PaymentPaid || p == PaymentSettled
}

// OrderStatus is the order status a payment in this state drives the order to.
func (p PaymentStatus) OrderStatus() Status {
	switch p {
	case PaymentPaid, PaymentSettled:
		return StatusPaid
	case PaymentExpired:
		return StatusExpired
	case PaymentPending:
		return StatusPending
	default:
		return StatusFailed
	}
}
