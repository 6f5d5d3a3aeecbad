package orders

import (
	"github.com/ariefcatur/go-shop-orders/internal/auth"
	"github.com/shopspring/decimal"
	"time"
)

type Product struct {
	ID        int64
	SellerID  int64
	Name      string
	Price     decimal.Decimal
	Stock     int
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type User struct {
	ID           int64
	Email        string
	Username     string
	PasswordHash string
	Role         auth.Role
	CreatedAt    time.Time
}

// CartItem is a pre-checkout line. At most one row exists per (cart, product).
type CartItem struct {
	ID        int64
	CartID    int64
	UserID    int64
	ProductID int64
	Quantity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Order.TotalPrice is frozen at checkout; later writes only touch Status and UpdatedAt.
type Order struct {
	ID         int64
	UserID     int64
	TotalPrice decimal.Decimal
	Status     Status // lihat status.go
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// OrderItem carries the price snapshot taken at checkout.
type OrderItem struct {
	ID          int64
	OrderID     int64
	ProductID   int64
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	Subtotal    decimal.Decimal
}

// Payment is unique per ExternalID and is written only by the webhook reconciler.
type Payment struct {
	ID            int64
	OrderID       int64
	ExternalID    string
	InvoiceID     string
	Amount        int64
	PaidAmount    int64
	Method        string
	Channel       string
	Status        PaymentStatus
	GatewayStatus string
	PaidAt        *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// OrderDetail is an order with its lines and, when one exists, its payment.
type OrderDetail struct {
	Order
	Items   []OrderItem
	Payment *Payment
}
