// Package payment asks the gateway for invoices on behalf of orders. The
// invoice call runs outside any store transaction: a gateway failure leaves
// the order pending and the client may retry.
package payment

import (
	"context"
	"errors"
	"fmt"
	"github.com/ariefcatur/go-shop-orders/internal/auth"
	"github.com/ariefcatur/go-shop-orders/internal/gateway"
	"github.com/ariefcatur/go-shop-orders/internal/logging"
	"github.com/ariefcatur/go-shop-orders/internal/orders"
	"go.uber.org/zap"
)

var ErrNoItems = errors.New("order has no items")

type Gateway interface {
	CreateInvoice(ctx context.Context, req gateway.InvoiceRequest) (gateway.Invoice, error)
	GetInvoice(ctx context.Context, id string) (gateway.Invoice, error)
	ExpireInvoice(ctx context.Context, id string) (gateway.Invoice, error)
}

type Service struct {
	Store   orders.Store
	Gateway Gateway
}

func New(store orders.Store, gw Gateway) *Service {
	return &Service{Store: store, Gateway: gw}
}

// Payer identifies who the invoice is addressed to.
type Payer struct {
	UserID   int64
	Email    string
	Username string
}

// CreateForOrder opens an invoice for a pending order of the payer.
func (s *Service) CreateForOrder(ctx context.Context, payer Payer, orderID int64) (gateway.Invoice, error) {
	var (
		o     orders.Order
		items []orders.OrderItem
	)
	err := s.Store.InTx(ctx, func(ctx context.Context, tx orders.Tx) error {
		var err error
		o, err = tx.GetOrder(ctx, orderID, false)
		if err != nil {
			return err
		}
		if o.UserID != payer.UserID {
			return orders.ErrNotOwner
		}
		if o.Status != orders.StatusPending {
			return fmt.Errorf("%w: order %d is %s", orders.ErrNotPending, o.ID, o.Status)
		}
		items, err = tx.ListOrderItems(ctx, o.ID)
		return err
	})
	if err != nil {
		return gateway.Invoice{}, err
	}
	if len(items) == 0 {
		return gateway.Invoice{}, ErrNoItems
	}

	amount := o.TotalPrice.Round(0).IntPart()
	if amount <= 0 {
		return gateway.Invoice{}, fmt.Errorf("%w: order %d totals %s", gateway.ErrInvalidAmount, o.ID, o.TotalPrice)
	}
	req := gateway.InvoiceRequest{
		ExternalID:  orders.ExternalRef(o.ID),
		Amount:      amount,
		PayerEmail:  payer.Email,
		Description: fmt.Sprintf("Payment for Order #%d", o.ID),
		Customer:    gateway.Customer{GivenNames: payer.Username, Email: payer.Email},
		Items:       invoiceItems(items),
	}
	inv, err := s.Gateway.CreateInvoice(ctx, req)
	if err != nil {
		logging.FromContext(ctx).Warn("invoice_create_failed", zap.Int64("order_id", o.ID), zap.Error(err))
		return gateway.Invoice{}, fmt.Errorf("failed to create invoice: %w", err)
	}
	logging.FromContext(ctx).Info("invoice_created",
		zap.Int64("order_id", o.ID),
		zap.String("invoice_id", inv.ID),
		zap.Int64("amount", amount),
	)
	return inv, nil
}

func (s *Service) GetInvoice(ctx context.Context, actor auth.Actor, id string) (gateway.Invoice, error) {
	if !auth.CanManageInvoices(actor.Role) {
		return gateway.Invoice{}, orders.ErrForbidden
	}
	inv, err := s.Gateway.GetInvoice(ctx, id)
	if err != nil {
		return gateway.Invoice{}, fmt.Errorf("failed to fetch invoice: %w", err)
	}
	return inv, nil
}

func (s *Service) ExpireInvoice(ctx context.Context, actor auth.Actor, id string) (gateway.Invoice, error) {
	if !auth.CanManageInvoices(actor.Role) {
		return gateway.Invoice{}, orders.ErrForbidden
	}
	inv, err := s.Gateway.ExpireInvoice(ctx, id)
	if err != nil {
		return gateway.Invoice{}, fmt.Errorf("failed to expire invoice: %w", err)
	}
	logging.FromContext(ctx).Info("invoice_expired", zap.String("invoice_id", inv.ID), zap.Int64("by", actor.UserID))
	return inv, nil
}

func invoiceItems(items []orders.OrderItem) []gateway.Item {
	out := make([]gateway.Item, 0, len(items))
	for _, it := range items {
		name := it.ProductName
		if name == "" {
			name = fmt.Sprintf("Product ID %d", it.ProductID)
		}
		out = append(out, gateway.Item{
			Name:     name,
			Quantity: it.Quantity,
			Price:    it.UnitPrice.Round(0).IntPart(),
		})
	}
	return out
}
