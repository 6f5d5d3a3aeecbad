package orders

import (
	"errors"
	"fmt"
)

// MaxLineQuantity caps the quantity of a single cart line, merged or not.
const MaxLineQuantity = 10000

var (
	ErrQuantityTooLarge  = fmt.Errorf("quantity must not exceed %d", MaxLineQuantity)
	ErrProductNotFound   = errors.New("product not found")
	ErrProductInactive   = errors.New("product is not active")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("quantity must be greater than zero")
	ErrCartEmpty         = errors.New("cart is empty")
	ErrCartItemNotFound  = errors.New("cart item not found")
	ErrOrderNotFound     = errors.New("order not found")
	ErrPaymentNotFound   = errors.New("payment not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrEmailTaken        = errors.New("email already registered")
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrNotOwner          = errors.New("order does not belong to user")
	ErrNotPending        = errors.New("order is not pending")
	ErrUnknownStatus     = errors.New("unknown status")
	ErrForbidden         = errors.New("forbidden")
	ErrUnbalancedOrder   = errors.New("order items do not add up to the order total")
)

// StockError reports which product could not cover the requested quantity.
type StockError struct {
	ProductID   int64
	ProductName string
	Requested   int
	Available   int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", e.ProductName, e.Requested, e.Available)
}

func (e *StockError) Is(target error) bool { return target == ErrInsufficientStock }
