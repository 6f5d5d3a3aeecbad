// Package memory is an in-process orders.Store. A transaction holds a
// store-wide write lock and works on a private copy that replaces the live
// state only when fn succeeds, so failed units of work leave no trace.
package memory

import (
	"context"
	"errors"
	"github.com/ariefcatur/go-shop-orders/internal/orders"
	"github.com/shopspring/decimal"
	"sort"
	"strings"
	"sync"
	"time"
)

type Store struct {
	mu        sync.Mutex
	st        *state
	commitErr error
}

func NewStore() *Store {
	return &Store{st: newState()}
}

var _ orders.Store = (*Store)(nil)

// FailCommits makes every following commit fail with err (nil restores normal behaviour).
func (s *Store) FailCommits(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commitErr = err
}

// InTx must not be nested: fn runs while the store lock is held.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx orders.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.st.clone()
	if err := fn(ctx, &tx{st: work}); err != nil {
		return err
	}
	if s.commitErr != nil {
		return s.commitErr
	}
	s.st = work
	return nil
}

type state struct {
	seq        map[string]int64
	products   map[int64]orders.Product
	users      map[int64]orders.User
	carts      map[int64]int64 // user id -> cart id
	cartItems  map[int64]orders.CartItem
	orders     map[int64]orders.Order
	orderItems map[int64][]orders.OrderItem
	payments   map[int64]orders.Payment
}

func newState() *state {
	return &state{
		seq:        map[string]int64{},
		products:   map[int64]orders.Product{},
		users:      map[int64]orders.User{},
		carts:      map[int64]int64{},
		cartItems:  map[int64]orders.CartItem{},
		orders:     map[int64]orders.Order{},
		orderItems: map[int64][]orders.OrderItem{},
		payments:   map[int64]orders.Payment{},
	}
}

func (s *state) next(kind string) int64 {
	s.seq[kind]++
	return s.seq[kind]
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.seq {
		c.seq[k] = v
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.carts {
		c.carts[k] = v
	}
	for k, v := range s.cartItems {
		c.cartItems[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.orderItems {
		c.orderItems[k] = append([]orders.OrderItem(nil), v...)
	}
	for k, v := range s.payments {
		c.payments[k] = copyPayment(v)
	}
	return c
}

func copyPayment(p orders.Payment) orders.Payment {
	if p.PaidAt != nil {
		t := *p.PaidAt
		p.PaidAt = &t
	}
	return p
}

func now() time.Time { return time.Now().UTC() }

type tx struct{ st *state }

// ---- products ----

func (t *tx) CreateProduct(_ context.Context, p *orders.Product) error {
	if p.Stock < 0 {
		return errors.New("stock must not be negative")
	}
	p.ID = t.st.next("product")
	p.CreatedAt = now()
	p.UpdatedAt = p.CreatedAt
	t.st.products[p.ID] = *p
	return nil
}

func (t *tx) GetProduct(_ context.Context, id int64) (orders.Product, error) {
	p, ok := t.st.products[id]
	if !ok {
		return orders.Product{}, orders.ErrProductNotFound
	}
	return p, nil
}

func (t *tx) ListProducts(context.Context) ([]orders.Product, error) {
	out := make([]orders.Product, 0, len(t.st.products))
	for _, p := range t.st.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *tx) UpdateProduct(_ context.Context, p *orders.Product) error {
	cur, ok := t.st.products[p.ID]
	if !ok {
		return orders.ErrProductNotFound
	}
	// stock is owned by the inventory ledger
	cur.Name = p.Name
	cur.Price = p.Price
	cur.Active = p.Active
	cur.UpdatedAt = now()
	t.st.products[p.ID] = cur
	*p = cur
	return nil
}

func (t *tx) LockProducts(_ context.Context, ids []int64) (map[int64]orders.Product, error) {
	out := make(map[int64]orders.Product, len(ids))
	for _, id := range ids {
		if p, ok := t.st.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (t *tx) DecrementStock(_ context.Context, id int64, qty int) (bool, error) {
	p, ok := t.st.products[id]
	if !ok || !p.Active || p.Stock < qty {
		return false, nil
	}
	p.Stock -= qty
	p.UpdatedAt = now()
	t.st.products[id] = p
	return true, nil
}

func (t *tx) IncrementStock(_ context.Context, id int64, qty int) error {
	p, ok := t.st.products[id]
	if !ok {
		return orders.ErrProductNotFound
	}
	p.Stock += qty
	p.UpdatedAt = now()
	t.st.products[id] = p
	return nil
}

// ---- users ----

func (t *tx) CreateUser(_ context.Context, u *orders.User) error {
	for _, x := range t.st.users {
		if strings.EqualFold(x.Email, u.Email) {
			return orders.ErrEmailTaken
		}
	}
	u.ID = t.st.next("user")
	u.CreatedAt = now()
	t.st.users[u.ID] = *u
	return nil
}

func (t *tx) GetUserByEmail(_ context.Context, email string) (orders.User, error) {
	for _, u := range t.st.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return orders.User{}, orders.ErrUserNotFound
}

func (t *tx) GetUser(_ context.Context, id int64) (orders.User, error) {
	u, ok := t.st.users[id]
	if !ok {
		return orders.User{}, orders.ErrUserNotFound
	}
	return u, nil
}

// ---- carts ----

func (t *tx) EnsureCart(_ context.Context, userID int64) (int64, error) {
	if id, ok := t.st.carts[userID]; ok {
		return id, nil
	}
	id := t.st.next("cart")
	t.st.carts[userID] = id
	return id, nil
}

func (t *tx) ListCartItems(_ context.Context, userID int64, _ bool) ([]orders.CartItem, error) {
	out := []orders.CartItem{}
	for _, it := range t.st.cartItems {
		if it.UserID == userID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *tx) GetCartItem(_ context.Context, id int64) (orders.CartItem, error) {
	it, ok := t.st.cartItems[id]
	if !ok {
		return orders.CartItem{}, orders.ErrCartItemNotFound
	}
	return it, nil
}

func (t *tx) FindCartItem(_ context.Context, cartID, productID int64) (orders.CartItem, bool, error) {
	for _, it := range t.st.cartItems {
		if it.CartID == cartID && it.ProductID == productID {
			return it, true, nil
		}
	}
	return orders.CartItem{}, false, nil
}

func (t *tx) InsertCartItem(_ context.Context, it *orders.CartItem) error {
	for id, x := range t.st.cartItems {
		if x.CartID == it.CartID && x.ProductID == it.ProductID {
			x.Quantity = min(x.Quantity+it.Quantity, orders.MaxLineQuantity)
			x.UpdatedAt = now()
			t.st.cartItems[id] = x
			*it = x
			return nil
		}
	}
	userID := int64(0)
	for u, c := range t.st.carts {
		if c == it.CartID {
			userID = u
		}
	}
	it.ID = t.st.next("cart_item")
	it.UserID = userID
	it.CreatedAt = now()
	it.UpdatedAt = it.CreatedAt
	t.st.cartItems[it.ID] = *it
	return nil
}

func (t *tx) SetCartItemQuantity(_ context.Context, id int64, qty int) (orders.CartItem, error) {
	it, ok := t.st.cartItems[id]
	if !ok {
		return orders.CartItem{}, orders.ErrCartItemNotFound
	}
	it.Quantity = qty
	it.UpdatedAt = now()
	t.st.cartItems[id] = it
	return it, nil
}

func (t *tx) DeleteCartItem(_ context.Context, id int64) (bool, error) {
	if _, ok := t.st.cartItems[id]; !ok {
		return false, nil
	}
	delete(t.st.cartItems, id)
	return true, nil
}

func (t *tx) ClearCart(_ context.Context, userID int64) error {
	for id, it := range t.st.cartItems {
		if it.UserID == userID {
			delete(t.st.cartItems, id)
		}
	}
	return nil
}

// ---- orders ----

func (t *tx) InsertOrder(_ context.Context, o *orders.Order) error {
	o.ID = t.st.next("order")
	o.CreatedAt = now()
	o.UpdatedAt = o.CreatedAt
	t.st.orders[o.ID] = *o
	return nil
}

func (t *tx) InsertOrderItems(_ context.Context, orderID int64, items []orders.OrderItem) error {
	if _, ok := t.st.orders[orderID]; !ok {
		return orders.ErrOrderNotFound
	}
	for i := range items {
		items[i].ID = t.st.next("order_item")
		items[i].OrderID = orderID
	}
	t.st.orderItems[orderID] = append(t.st.orderItems[orderID], items...)
	return nil
}

func (t *tx) GetOrder(_ context.Context, id int64, _ bool) (orders.Order, error) {
	o, ok := t.st.orders[id]
	if !ok {
		return orders.Order{}, orders.ErrOrderNotFound
	}
	return o, nil
}

func (t *tx) ListOrderItems(_ context.Context, orderID int64) ([]orders.OrderItem, error) {
	return append([]orders.OrderItem{}, t.st.orderItems[orderID]...), nil
}

func (t *tx) ListOrders(_ context.Context, userID int64) ([]orders.Order, error) {
	out := []orders.Order{}
	for _, o := range t.st.orders {
		if userID == 0 || o.UserID == userID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *tx) SetOrderStatus(_ context.Context, id int64, status orders.Status) (orders.Order, error) {
	o, ok := t.st.orders[id]
	if !ok {
		return orders.Order{}, orders.ErrOrderNotFound
	}
	o.Status = status
	o.UpdatedAt = now()
	t.st.orders[id] = o
	return o, nil
}

func (t *tx) SumOrderItems(_ context.Context, orderID int64) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, it := range t.st.orderItems[orderID] {
		sum = sum.Add(it.Subtotal)
	}
	return sum, nil
}

// ---- payments ----

func (t *tx) GetPaymentByExternalID(_ context.Context, externalID string, _ bool) (orders.Payment, error) {
	for _, p := range t.st.payments {
		if p.ExternalID == externalID {
			return copyPayment(p), nil
		}
	}
	return orders.Payment{}, orders.ErrPaymentNotFound
}

func (t *tx) InsertPayment(_ context.Context, p *orders.Payment) error {
	for _, x := range t.st.payments {
		if x.ExternalID == p.ExternalID {
			return errors.New("duplicate payment external_id")
		}
	}
	p.ID = t.st.next("payment")
	p.CreatedAt = now()
	p.UpdatedAt = p.CreatedAt
	t.st.payments[p.ID] = copyPayment(*p)
	return nil
}

func (t *tx) UpdatePayment(_ context.Context, p *orders.Payment) error {
	if _, ok := t.st.payments[p.ID]; !ok {
		return orders.ErrPaymentNotFound
	}
	p.UpdatedAt = now()
	t.st.payments[p.ID] = copyPayment(*p)
	return nil
}
