package orders

import (
	"context"
	"github.com/shopspring/decimal"
)

// Store runs units of work against the backing store. Every read and write made
// through the Tx inside fn commits together, or not at all when fn returns an error.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

type Tx interface {
	ProductTx
	UserTx
	CartTx
	OrderTx
	PaymentTx
}

type ProductTx interface {
	CreateProduct(ctx context.Context, p *Product) error
	// GetProduct returns ErrProductNotFound when absent.
	GetProduct(ctx context.Context, id int64) (Product, error)
	ListProducts(ctx context.Context) ([]Product, error)
	UpdateProduct(ctx context.Context, p *Product) error
	// LockProducts row-locks the given products for the rest of the transaction.
	// Missing ids are simply absent from the result.
	LockProducts(ctx context.Context, ids []int64) (map[int64]Product, error)
	// DecrementStock subtracts qty only when the product is active and has at
	// least qty in stock. It reports whether the row was changed.
	DecrementStock(ctx context.Context, id int64, qty int) (bool, error)
	IncrementStock(ctx context.Context, id int64, qty int) error
}

type UserTx interface {
	// CreateUser returns ErrEmailTaken when the email is already registered.
	CreateUser(ctx context.Context, u *User) error
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUser(ctx context.Context, id int64) (User, error)
}

type CartTx interface {
	// EnsureCart returns the user's cart id, creating the cart if absent.
	EnsureCart(ctx context.Context, userID int64) (int64, error)
	// ListCartItems locks the rows when forUpdate is set.
	ListCartItems(ctx context.Context, userID int64, forUpdate bool) ([]CartItem, error)
	GetCartItem(ctx context.Context, id int64) (CartItem, error)
	FindCartItem(ctx context.Context, cartID, productID int64) (CartItem, bool, error)
	// InsertCartItem adds to the quantity of an existing line for the same
	// product instead of failing.
	InsertCartItem(ctx context.Context, it *CartItem) error
	SetCartItemQuantity(ctx context.Context, id int64, qty int) (CartItem, error)
	DeleteCartItem(ctx context.Context, id int64) (bool, error)
	ClearCart(ctx context.Context, userID int64) error
}

type OrderTx interface {
	InsertOrder(ctx context.Context, o *Order) error
	InsertOrderItems(ctx context.Context, orderID int64, items []OrderItem) error
	// GetOrder returns ErrOrderNotFound when absent and locks the row when forUpdate is set.
	GetOrder(ctx context.Context, id int64, forUpdate bool) (Order, error)
	ListOrderItems(ctx context.Context, orderID int64) ([]OrderItem, error)
	// ListOrders returns all orders when userID is zero.
	ListOrders(ctx context.Context, userID int64) ([]Order, error)
	SetOrderStatus(ctx context.Context, id int64, status Status) (Order, error)
	// SumOrderItems adds up the stored subtotals; checkout compares it with the total.
	SumOrderItems(ctx context.Context, orderID int64) (decimal.Decimal, error)
}

type PaymentTx interface {
	// GetPaymentByExternalID returns ErrPaymentNotFound when absent.
	GetPaymentByExternalID(ctx context.Context, externalID string, forUpdate bool) (Payment, error)
	InsertPayment(ctx context.Context, p *Payment) error
	UpdatePayment(ctx context.Context, p *Payment) error
}
