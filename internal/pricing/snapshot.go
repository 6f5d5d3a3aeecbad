// Package pricing freezes a cart into priced order lines at checkout time.
package pricing

import (
	"context"
	"fmt"
	"github.com/ariefcatur/go-shop-orders/internal/orders"
	"github.com/shopspring/decimal"
	"sort"
	"time"
)

type Line struct {
	ProductID   int64
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	Subtotal    decimal.Decimal
}

type Snapshot struct {
	Lines      []Line
	Total      decimal.Decimal
	CapturedAt time.Time
}

// Capture locks every product referenced by the cart and prices the cart
// against that single, consistent read.
func Capture(ctx context.Context, tx orders.ProductTx, items []orders.CartItem) (Snapshot, error) {
	if len(items) == 0 {
		return Snapshot{}, orders.ErrCartEmpty
	}
	products, err := tx.LockProducts(ctx, ProductIDs(items))
	if err != nil {
		return Snapshot{}, fmt.Errorf("lock products: %w", err)
	}
	return Take(items, products)
}

// Take prices every cart line. It is all-or-nothing: one unavailable line
// fails the whole snapshot.
func Take(items []orders.CartItem, products map[int64]orders.Product) (Snapshot, error) {
	if len(items) == 0 {
		return Snapshot{}, orders.ErrCartEmpty
	}
	snap := Snapshot{
		Lines:      make([]Line, 0, len(items)),
		Total:      decimal.Zero,
		CapturedAt: time.Now().UTC(),
	}
	for _, it := range items {
		if it.Quantity <= 0 {
			return Snapshot{}, fmt.Errorf("product %d: %w", it.ProductID, orders.ErrInvalidQuantity)
		}
		p, ok := products[it.ProductID]
		if !ok {
			return Snapshot{}, fmt.Errorf("product %d: %w", it.ProductID, orders.ErrProductNotFound)
		}
		if !p.Active {
			return Snapshot{}, fmt.Errorf("%s: %w", p.Name, orders.ErrProductInactive)
		}
		if p.Stock < it.Quantity {
			return Snapshot{}, &orders.StockError{
				ProductID: p.ID, ProductName: p.Name, Requested: it.Quantity, Available: p.Stock,
			}
		}
		sub := p.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
		snap.Lines = append(snap.Lines, Line{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    it.Quantity,
			UnitPrice:   p.Price,
			Subtotal:    sub,
		})
		snap.Total = snap.Total.Add(sub)
	}
	return snap, nil
}

func (s Snapshot) OrderItems() []orders.OrderItem {
	out := make([]orders.OrderItem, 0, len(s.Lines))
	for _, l := range s.Lines {
		out = append(out, orders.OrderItem{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Subtotal:    l.Subtotal,
		})
	}
	return out
}

// Balanced reports whether the line subtotals add up to total exactly.
func Balanced(items []orders.OrderItem, total decimal.Decimal) bool {
	sum := decimal.Zero
	for _, it := range items {
		if !it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))).Equal(it.Subtotal) {
			return false
		}
		sum = sum.Add(it.Subtotal)
	}
	return sum.Equal(total)
}

// ProductIDs returns the distinct product ids of the cart in ascending order,
// which is also the lock order used by every checkout.
func ProductIDs(items []orders.CartItem) []int64 {
	seen := make(map[int64]struct{}, len(items))
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it.ProductID]; ok {
			continue
		}
		seen[it.ProductID] = struct{}{}
		ids = append(ids, it.ProductID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
