package orders

import "strconv"

const (
	TopicOrderCreated       = "shop.order.created"
	TopicOrderStatusChanged = "shop.order.status_changed"
	TopicPaymentReconciled  = "shop.payment.reconciled"
)

// Partition key = order id, so every event of one order keeps its ordering.
func PartitionKey(orderID int64) string { return strconv.FormatInt(orderID, 10) }
