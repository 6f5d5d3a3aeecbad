package redisx

import (
	"fmt"
	"time"
)

const (
	// Cache status order: order_status:{order_id} -> {"order_id":..,"user_id":..,"status":"..","updated_at":".."}
	KeyOrderStatus = "order_status:%d"

	// Idempotency checkout: idem:checkout:{user_id}:{key} -> order_id ("0" selama masih diproses)
	KeyIdemCheckout = "idem:checkout:%d:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLStatusCache = 5 * time.Minute
	TTLIdempotency = 24 * time.Hour
	TTLDedup       = 48 * time.Hour
)

func orderStatusKey(orderID int64) string { return fmt.Sprintf(KeyOrderStatus, orderID) }

func idemCheckoutKey(userID int64, key string) string {
	return fmt.Sprintf(KeyIdemCheckout, userID, key)
}

func dedupKey(service, eventID string) string { return fmt.Sprintf(KeyDedup, service, eventID) }
