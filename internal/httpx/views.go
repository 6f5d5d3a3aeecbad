package httpx

import (
	"github.com/ariefcatur/go-shop-orders/internal/auth"
	"github.com/ariefcatur/go-shop-orders/internal/orders"
	"github.com/shopspring/decimal"
	"time"
)

// JSON shapes of the domain types. Money is rendered as a decimal string.

type productView struct {
	ID        int64           `json:"id"`
	SellerID  int64           `json:"seller_id,omitempty"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
	Active    bool            `json:"active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func viewProduct(p orders.Product) productView {
	return productView{
		ID: p.ID, SellerID: p.SellerID, Name: p.Name, Price: p.Price, Stock: p.Stock,
		Active: p.Active, CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt,
	}
}

type userView struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Role      auth.Role `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func viewUser(u orders.User) userView {
	return userView{ID: u.ID, Email: u.Email, Username: u.Username, Role: u.Role, CreatedAt: u.CreatedAt}
}

type cartItemView struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"product_id"`
	Quantity  int       `json:"quantity"`
	UpdatedAt time.Time `json:"updated_at"`
}

func viewCartItem(it orders.CartItem) cartItemView {
	return cartItemView{ID: it.ID, ProductID: it.ProductID, Quantity: it.Quantity, UpdatedAt: it.UpdatedAt}
}

func viewCartItems(items []orders.CartItem) []cartItemView {
	out := make([]cartItemView, 0, len(items))
	for _, it := range items {
		out = append(out, viewCartItem(it))
	}
	return out
}

type orderItemView struct {
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type paymentView struct {
	ID            int64                `json:"id"`
	ExternalID    string               `json:"external_id"`
	InvoiceID     string               `json:"invoice_id"`
	Amount        int64                `json:"amount"`
	PaidAmount    int64                `json:"paid_amount"`
	Method        string               `json:"method"`
	Channel       string               `json:"channel"`
	Status        orders.PaymentStatus `json:"status"`
	GatewayStatus string               `json:"gateway_status"`
	PaidAt        *time.Time           `json:"paid_at,omitempty"`
}

type orderView struct {
	ID         int64           `json:"id"`
	UserID     int64           `json:"user_id"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Status     orders.Status   `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	Items      []orderItemView `json:"items,omitempty"`
	Payment    *paymentView    `json:"payment,omitempty"`
}

func viewOrder(o orders.Order) orderView {
	return orderView{
		ID: o.ID, UserID: o.UserID, TotalPrice: o.TotalPrice, Status: o.Status,
		CreatedAt: o.CreatedAt, UpdatedAt: o.UpdatedAt,
	}
}

func viewOrderDetail(d orders.OrderDetail) orderView {
	v := viewOrder(d.Order)
	v.Items = make([]orderItemView, 0, len(d.Items))
	for _, it := range d.Items {
		v.Items = append(v.Items, orderItemView{
			ProductID: it.ProductID, ProductName: it.ProductName, Quantity: it.Quantity,
			UnitPrice: it.UnitPrice, Subtotal: it.Subtotal,
		})
	}
	if p := d.Payment; p != nil {
		v.Payment = &paymentView{
			ID: p.ID, ExternalID: p.ExternalID, InvoiceID: p.InvoiceID, Amount: p.Amount,
			PaidAmount: p.PaidAmount, Method: p.Method, Channel: p.Channel, Status: p.Status,
			GatewayStatus: p.GatewayStatus, PaidAt: p.PaidAt,
		}
	}
	return v
}
