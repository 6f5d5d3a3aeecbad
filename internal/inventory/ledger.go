// Package inventory owns product stock. Every mutation runs inside the
// caller's transaction so the stock change commits with the caller's writes.
package inventory

import (
	"context"
	"fmt"
	"github.com/ariefcatur/go-shop-orders/internal/orders"
)

type Ledger struct{}

// Reserve decrements stock by qty. The check and the decrement are one
// conditional update, so two transactions racing for the last unit cannot
// both succeed and stock never goes negative.
func (Ledger) Reserve(ctx context.Context, tx orders.ProductTx, productID int64, qty int) error {
	if qty <= 0 {
		return orders.ErrInvalidQuantity
	}
	ok, err := tx.DecrementStock(ctx, productID, qty)
	if err != nil {
		return fmt.Errorf("reserve product %d: %w", productID, err)
	}
	if ok {
		return nil
	}

	// explain why the conditional update did not apply
	p, err := tx.GetProduct(ctx, productID)
	if err != nil {
		return err
	}
	if !p.Active {
		return fmt.Errorf("%s: %w", p.Name, orders.ErrProductInactive)
	}
	return &orders.StockError{ProductID: p.ID, ProductName: p.Name, Requested: qty, Available: p.Stock}
}

// ReserveAll reserves every line or fails on the first one that cannot be
// covered; the caller's transaction then discards the earlier decrements.
func (l Ledger) ReserveAll(ctx context.Context, tx orders.ProductTx, items []orders.OrderItem) error {
	for _, it := range items {
		if err := l.Reserve(ctx, tx, it.ProductID, it.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// Release gives previously reserved stock back. Only compensating paths use it.
func (Ledger) Release(ctx context.Context, tx orders.ProductTx, productID int64, qty int) error {
	if qty <= 0 {
		return orders.ErrInvalidQuantity
	}
	if err := tx.IncrementStock(ctx, productID, qty); err != nil {
		return fmt.Errorf("release product %d: %w", productID, err)
	}
	return nil
}

func (l Ledger) ReleaseAll(ctx context.Context, tx orders.ProductTx, items []orders.OrderItem) error {
	for _, it := range items {
		if err := l.Release(ctx, tx, it.ProductID, it.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// Restock adds new units received from a seller.
func (l Ledger) Restock(ctx context.Context, tx orders.ProductTx, productID int64, qty int) (orders.Product, error) {
	if err := l.Release(ctx, tx, productID, qty); err != nil {
		return orders.Product{}, err
	}
	return tx.GetProduct(ctx, productID)
}
