// Package cart keeps the pre-checkout basket of each user. Adding to the cart
// only checks availability; stock is reserved at checkout.
package cart

import (
	"context"
	"fmt"
	"github.com/ariefcatur/go-shop-orders/internal/orders"
)

type Service struct {
	Store orders.Store
}

func New(store orders.Store) *Service {
	return &Service{Store: store}
}

// AddItem puts qty units of a product in the user's cart. An existing line for
// the same product is merged and the combined quantity is validated again.
func (s *Service) AddItem(ctx context.Context, userID, productID int64, qty int) (orders.CartItem, error) {
	if err := checkQty(qty); err != nil {
		return orders.CartItem{}, err
	}
	var out orders.CartItem
	err := s.Store.InTx(ctx, func(ctx context.Context, tx orders.Tx) error {
		cartID, err := tx.EnsureCart(ctx, userID)
		if err != nil {
			return fmt.Errorf("ensure cart: %w", err)
		}
		existing, found, err := tx.FindCartItem(ctx, cartID, productID)
		if err != nil {
			return err
		}
		want := qty
		if found {
			if existing.Quantity > orders.MaxLineQuantity-qty {
				return orders.ErrQuantityTooLarge
			}
			want += existing.Quantity
		}
		if err := available(ctx, tx, productID, want); err != nil {
			return err
		}
		if found {
			out, err = tx.SetCartItemQuantity(ctx, existing.ID, want)
			return err
		}
		out = orders.CartItem{CartID: cartID, ProductID: productID, Quantity: want}
		return tx.InsertCartItem(ctx, &out)
	})
	return out, err
}

// UpdateQty sets the quantity of a line; qty <= 0 removes it, in which case
// the returned bool is true.
func (s *Service) UpdateQty(ctx context.Context, userID, itemID int64, qty int) (orders.CartItem, bool, error) {
	if qty <= 0 {
		return orders.CartItem{}, true, s.RemoveItem(ctx, userID, itemID)
	}
	if qty > orders.MaxLineQuantity {
		return orders.CartItem{}, false, orders.ErrQuantityTooLarge
	}
	var out orders.CartItem
	err := s.Store.InTx(ctx, func(ctx context.Context, tx orders.Tx) error {
		it, err := ownedItem(ctx, tx, userID, itemID)
		if err != nil {
			return err
		}
		if err := available(ctx, tx, it.ProductID, qty); err != nil {
			return err
		}
		out, err = tx.SetCartItemQuantity(ctx, it.ID, qty)
		return err
	})
	return out, false, err
}

func (s *Service) RemoveItem(ctx context.Context, userID, itemID int64) error {
	return s.Store.InTx(ctx, func(ctx context.Context, tx orders.Tx) error {
		it, err := ownedItem(ctx, tx, userID, itemID)
		if err != nil {
			return err
		}
		ok, err := tx.DeleteCartItem(ctx, it.ID)
		if err != nil {
			return err
		}
		if !ok {
			return orders.ErrCartItemNotFound
		}
		return nil
	})
}

func (s *Service) Clear(ctx context.Context, userID int64) error {
	return s.Store.InTx(ctx, func(ctx context.Context, tx orders.Tx) error {
		return tx.ClearCart(ctx, userID)
	})
}

func (s *Service) List(ctx context.Context, userID int64) ([]orders.CartItem, error) {
	var out []orders.CartItem
	err := s.Store.InTx(ctx, func(ctx context.Context, tx orders.Tx) error {
		if _, err := tx.EnsureCart(ctx, userID); err != nil {
			return err
		}
		items, err := tx.ListCartItems(ctx, userID, false)
		out = items
		return err
	})
	return out, err
}

func checkQty(qty int) error {
	switch {
	case qty <= 0:
		return orders.ErrInvalidQuantity
	case qty > orders.MaxLineQuantity:
		return orders.ErrQuantityTooLarge
	}
	return nil
}

// Count summarizes the cart for badges: distinct lines and total units.
type Count struct {
	Lines int
	Units int
}

func (s *Service) Count(ctx context.Context, userID int64) (Count, error) {
	var c Count
	err := s.Store.InTx(ctx, func(ctx context.Context, tx orders.Tx) error {
		items, err := tx.ListCartItems(ctx, userID, false)
		if err != nil {
			return err
		}
		c.Lines = len(items)
		for _, it := range items {
			c.Units += it.Quantity
		}
		return nil
	})
	return c, err
}

// items of another user are reported as not found
func ownedItem(ctx context.Context, tx orders.CartTx, userID, itemID int64) (orders.CartItem, error) {
	it, err := tx.GetCartItem(ctx, itemID)
	if err != nil {
		return orders.CartItem{}, err
	}
	if it.UserID != userID {
		return orders.CartItem{}, orders.ErrCartItemNotFound
	}
	return it, nil
}

func available(ctx context.Context, tx orders.ProductTx, productID int64, qty int) error {
	p, err := tx.GetProduct(ctx, productID)
	if err != nil {
		return err
	}
	if !p.Active {
		return fmt.Errorf("%s: %w", p.Name, orders.ErrProductInactive)
	}
	if p.Stock < qty {
		return &orders.StockError{ProductID: p.ID, ProductName: p.Name, Requested: qty, Available: p.Stock}
	}
	return nil
}
