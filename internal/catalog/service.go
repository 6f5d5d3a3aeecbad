// Package catalog is the small product surface the shop needs: listing,
// seller-owned edits and restocking. Stock changes go through the inventory
// ledger; price edits never touch existing orders.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"github.com/ariefcatur/go-shop-orders/internal/auth"
	"github.com/ariefcatur/go-shop-orders/internal/inventory"
	"github.com/ariefcatur/go-shop-orders/internal/orders"
	"github.com/shopspring/decimal"
	"strings"
)

var (
	ErrInvalidName  = errors.New("product name is required")
	ErrInvalidPrice = errors.New("price must be greater than zero")
	ErrInvalidStock = errors.New("stock must not be negative")
)

type Service struct {
	Store  orders.Store
	Ledger inventory.Ledger
}

func New(store orders.Store) *Service {
	return &Service{Store: store}
}

type NewProduct struct {
	Name  string
	Price decimal.Decimal
	Stock int
}

// Patch changes only the fields that are set.
type Patch struct {
	Name   *string
	Price  *decimal.Decimal
	Active *bool
}

// List returns active products; includeInactive adds the rest.
func (s *Service) List(ctx context.Context, includeInactive bool) ([]orders.Product, error) {
	var out []orders.Product
	err := s.Store.InTx(ctx, func(ctx context.Context, tx orders.Tx) error {
		all, err := tx.ListProducts(ctx)
		if err != nil {
			return err
		}
		out = make([]orders.Product, 0, len(all))
		for _, p := range all {
			if p.Active || includeInactive {
				out = append(out, p)
			}
		}
		return nil
	})
	return out, err
}

func (s *Service) Get(ctx context.Context, id int64) (orders.Product, error) {
	var p orders.Product
	err := s.Store.InTx(ctx, func(ctx context.Context, tx orders.Tx) error {
		var err error
		p, err = tx.GetProduct(ctx, id)
		return err
	})
	return p, err
}

func (s *Service) Create(ctx context.Context, actor auth.Actor, in NewProduct) (orders.Product, error) {
	if !auth.CanCreateProduct(actor.Role) {
		return orders.Product{}, orders.ErrForbidden
	}
	name := strings.TrimSpace(in.Name)
	switch {
	case name == "":
		return orders.Product{}, ErrInvalidName
	case !in.Price.IsPositive():
		return orders.Product{}, ErrInvalidPrice
	case in.Stock < 0:
		return orders.Product{}, ErrInvalidStock
	}
	p := orders.Product{SellerID: actor.UserID, Name: name, Price: in.Price, Stock: in.Stock, Active: true}
	err := s.Store.InTx(ctx, func(ctx context.Context, tx orders.Tx) error {
		return tx.CreateProduct(ctx, &p)
	})
	if err != nil {
		return orders.Product{}, fmt.Errorf("create product: %w", err)
	}
	return p, nil
}

func (s *Service) Update(ctx context.Context, actor auth.Actor, id int64, patch Patch) (orders.Product, error) {
	var out orders.Product
	err := s.Store.InTx(ctx, func(ctx context.Context, tx orders.Tx) error {
		p, err := s.manageable(ctx, tx, actor, id)
		if err != nil {
			return err
		}
		if patch.Name != nil {
			name := strings.TrimSpace(*patch.Name)
			if name == "" {
				return ErrInvalidName
			}
			p.Name = name
		}
		if patch.Price != nil {
			if !patch.Price.IsPositive() {
				return ErrInvalidPrice
			}
			p.Price = *patch.Price
		}
		if patch.Active != nil {
			p.Active = *patch.Active
		}
		if err := tx.UpdateProduct(ctx, &p); err != nil {
			return err
		}
		out = p
		return nil
	})
	return out, err
}

func (s *Service) Restock(ctx context.Context, actor auth.Actor, id int64, qty int) (orders.Product, error) {
	var out orders.Product
	err := s.Store.InTx(ctx, func(ctx context.Context, tx orders.Tx) error {
		if _, err := s.manageable(ctx, tx, actor, id); err != nil {
			return err
		}
		var err error
		out, err = s.Ledger.Restock(ctx, tx, id, qty)
		return err
	})
	return out, err
}

func (s *Service) manageable(ctx context.Context, tx orders.ProductTx, actor auth.Actor, id int64) (orders.Product, error) {
	p, err := tx.GetProduct(ctx, id)
	if err != nil {
		return orders.Product{}, err
	}
	if !auth.CanManageProduct(actor.Role, actor.Owns(p.SellerID)) {
		return orders.Product{}, orders.ErrForbidden
	}
	return p, nil
}
