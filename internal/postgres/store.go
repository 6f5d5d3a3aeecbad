package postgres

import (
	"context"
	"errors"
	"fmt"
	"github.com/ariefcatur/go-shop-orders/internal/auth"
	"github.com/ariefcatur/go-shop-orders/internal/orders"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"time"
)

// Store implements orders.Store with one pgx transaction per unit of work.
type Store struct{ DB *pgxpool.Pool }

var _ orders.Store = (*Store)(nil)

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx orders.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &pgTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type pgTx struct{ tx pgx.Tx }

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// numeric columns are read as text so no precision is lost on the way to decimal
func parseDecimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse numeric %q: %w", s, err)
	}
	return d, nil
}

// ---- products ----

const productCols = `id, COALESCE(seller_id, 0), name, price::text, stock, active, created_at, updated_at`

func scanProduct(row pgx.Row) (orders.Product, error) {
	var (
		p     orders.Product
		price string
	)
	if err := row.Scan(&p.ID, &p.SellerID, &p.Name, &price, &p.Stock, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return orders.Product{}, err
	}
	var err error
	p.Price, err = parseDecimal(price)
	return p, err
}

func (t *pgTx) CreateProduct(ctx context.Context, p *orders.Product) error {
	row := t.tx.QueryRow(ctx, `
		INSERT INTO products(seller_id, name, price, stock, active)
		VALUES (NULLIF($1::bigint, 0), $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`,
		p.SellerID, p.Name, p.Price.String(), p.Stock, p.Active)
	return row.Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func (t *pgTx) GetProduct(ctx context.Context, id int64) (orders.Product, error) {
	p, err := scanProduct(t.tx.QueryRow(ctx, `SELECT `+productCols+` FROM products WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.Product{}, orders.ErrProductNotFound
	}
	return p, err
}

func (t *pgTx) ListProducts(ctx context.Context) ([]orders.Product, error) {
	return t.queryProducts(ctx, `SELECT `+productCols+` FROM products ORDER BY id`)
}

func (t *pgTx) UpdateProduct(ctx context.Context, p *orders.Product) error {
	row := t.tx.QueryRow(ctx, `
		UPDATE products SET name=$2, price=$3, active=$4, updated_at=now()
		WHERE id=$1
		RETURNING `+productCols,
		p.ID, p.Name, p.Price.String(), p.Active)
	got, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.ErrProductNotFound
	}
	if err != nil {
		return err
	}
	*p = got
	return nil
}

func (t *pgTx) LockProducts(ctx context.Context, ids []int64) (map[int64]orders.Product, error) {
	// ORDER BY id keeps the lock order identical across transactions
	ps, err := t.queryProducts(ctx, `SELECT `+productCols+` FROM products WHERE id = ANY($1) ORDER BY id FOR UPDATE`, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]orders.Product, len(ps))
	for _, p := range ps {
		out[p.ID] = p
	}
	return out, nil
}

func (t *pgTx) queryProducts(ctx context.Context, sql string, args ...any) ([]orders.Product, error) {
	rows, err := t.tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []orders.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (t *pgTx) DecrementStock(ctx context.Context, id int64, qty int) (bool, error) {
	tag, err := t.tx.Exec(ctx, `
		UPDATE products SET stock = stock - $2, updated_at = now()
		WHERE id = $1 AND active AND stock >= $2`, id, qty)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (t *pgTx) IncrementStock(ctx context.Context, id int64, qty int) error {
	tag, err := t.tx.Exec(ctx, `UPDATE products SET stock = stock + $2, updated_at = now() WHERE id = $1`, id, qty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return orders.ErrProductNotFound
	}
	return nil
}

// ---- users ----

const userCols = `id, email, username, password_hash, role, created_at`

func scanUser(row pgx.Row) (orders.User, error) {
	var (
		u    orders.User
		role string
	)
	if err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &role, &u.CreatedAt); err != nil {
		return orders.User{}, err
	}
	u.Role = auth.Role(role)
	return u, nil
}

func (t *pgTx) CreateUser(ctx context.Context, u *orders.User) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO users(email, username, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		u.Email, u.Username, u.PasswordHash, string(u.Role)).Scan(&u.ID, &u.CreatedAt)
	if isUniqueViolation(err) {
		return orders.ErrEmailTaken
	}
	return err
}

func (t *pgTx) GetUserByEmail(ctx context.Context, email string) (orders.User, error) {
	u, err := scanUser(t.tx.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE lower(email) = lower($1)`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.User{}, orders.ErrUserNotFound
	}
	return u, err
}

func (t *pgTx) GetUser(ctx context.Context, id int64) (orders.User, error) {
	u, err := scanUser(t.tx.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.User{}, orders.ErrUserNotFound
	}
	return u, err
}

// ---- carts ----

const cartItemCols = `ci.id, ci.cart_id, c.user_id, ci.product_id, ci.quantity, ci.created_at, ci.updated_at`

func scanCartItem(row pgx.Row) (orders.CartItem, error) {
	var it orders.CartItem
	err := row.Scan(&it.ID, &it.CartID, &it.UserID, &it.ProductID, &it.Quantity, &it.CreatedAt, &it.UpdatedAt)
	return it, err
}

func (t *pgTx) EnsureCart(ctx context.Context, userID int64) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `
		INSERT INTO carts(user_id) VALUES ($1)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING id`, userID).Scan(&id)
	return id, err
}

func (t *pgTx) ListCartItems(ctx context.Context, userID int64, forUpdate bool) ([]orders.CartItem, error) {
	sql := `SELECT ` + cartItemCols + ` FROM cart_items ci JOIN carts c ON c.id = ci.cart_id
		WHERE c.user_id = $1 ORDER BY ci.id`
	if forUpdate {
		sql += ` FOR UPDATE OF ci`
	}
	rows, err := t.tx.Query(ctx, sql, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []orders.CartItem{}
	for rows.Next() {
		it, err := scanCartItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (t *pgTx) GetCartItem(ctx context.Context, id int64) (orders.CartItem, error) {
	it, err := scanCartItem(t.tx.QueryRow(ctx, `SELECT `+cartItemCols+`
		FROM cart_items ci JOIN carts c ON c.id = ci.cart_id WHERE ci.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.CartItem{}, orders.ErrCartItemNotFound
	}
	return it, err
}

func (t *pgTx) FindCartItem(ctx context.Context, cartID, productID int64) (orders.CartItem, bool, error) {
	it, err := scanCartItem(t.tx.QueryRow(ctx, `SELECT `+cartItemCols+`
		FROM cart_items ci JOIN carts c ON c.id = ci.cart_id
		WHERE ci.cart_id = $1 AND ci.product_id = $2
		FOR UPDATE OF ci`, cartID, productID))
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.CartItem{}, false, nil
	}
	if err != nil {
		return orders.CartItem{}, false, err
	}
	return it, true, nil
}

// InsertCartItem merges into an existing line for the same product, so a
// concurrent add that lost the race on FindCartItem still lands in one row.
func (t *pgTx) InsertCartItem(ctx context.Context, it *orders.CartItem) error {
	return t.tx.QueryRow(ctx, `
		WITH ins AS (
			INSERT INTO cart_items(cart_id, product_id, quantity) VALUES ($1, $2, $3)
			ON CONFLICT (cart_id, product_id) DO UPDATE
				SET quantity = LEAST(cart_items.quantity + EXCLUDED.quantity, $4), updated_at = now()
			RETURNING id, cart_id, quantity, created_at, updated_at
		)
		SELECT ins.id, c.user_id, ins.quantity, ins.created_at, ins.updated_at FROM ins JOIN carts c ON c.id = ins.cart_id`,
		it.CartID, it.ProductID, it.Quantity, orders.MaxLineQuantity).Scan(&it.ID, &it.UserID, &it.Quantity, &it.CreatedAt, &it.UpdatedAt)
}

func (t *pgTx) SetCartItemQuantity(ctx context.Context, id int64, qty int) (orders.CartItem, error) {
	it, err := scanCartItem(t.tx.QueryRow(ctx, `
		WITH upd AS (
			UPDATE cart_items SET quantity = $2, updated_at = now() WHERE id = $1
			RETURNING id, cart_id, product_id, quantity, created_at, updated_at
		)
		SELECT ci.id, ci.cart_id, c.user_id, ci.product_id, ci.quantity, ci.created_at, ci.updated_at
		FROM upd ci JOIN carts c ON c.id = ci.cart_id`, id, qty))
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.CartItem{}, orders.ErrCartItemNotFound
	}
	return it, err
}

func (t *pgTx) DeleteCartItem(ctx context.Context, id int64) (bool, error) {
	tag, err := t.tx.Exec(ctx, `DELETE FROM cart_items WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (t *pgTx) ClearCart(ctx context.Context, userID int64) error {
	_, err := t.tx.Exec(ctx, `
		DELETE FROM cart_items WHERE cart_id IN (SELECT id FROM carts WHERE user_id = $1)`, userID)
	return err
}

// ---- orders ----

const orderCols = `id, user_id, total_price::text, status, created_at, updated_at`

func scanOrder(row pgx.Row) (orders.Order, error) {
	var (
		o             orders.Order
		total, status string
	)
	if err := row.Scan(&o.ID, &o.UserID, &total, &status, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return orders.Order{}, err
	}
	o.Status = orders.Status(status)
	var err error
	o.TotalPrice, err = parseDecimal(total)
	return o, err
}

func (t *pgTx) InsertOrder(ctx context.Context, o *orders.Order) error {
	return t.tx.QueryRow(ctx, `
		INSERT INTO orders(user_id, total_price, status) VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`,
		o.UserID, o.TotalPrice.String(), string(o.Status)).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
}

func (t *pgTx) InsertOrderItems(ctx context.Context, orderID int64, items []orders.OrderItem) error {
	batch := &pgx.Batch{}
	for _, it := range items {
		batch.Queue(`
			INSERT INTO order_items(order_id, product_id, product_name, quantity, unit_price, subtotal)
			VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
			orderID, it.ProductID, it.ProductName, it.Quantity, it.UnitPrice.String(), it.Subtotal.String())
	}
	br := t.tx.SendBatch(ctx, batch)
	defer br.Close()
	for i := range items {
		if err := br.QueryRow().Scan(&items[i].ID); err != nil {
			return fmt.Errorf("order item %d: %w", i, err)
		}
		items[i].OrderID = orderID
	}
	return br.Close()
}

func (t *pgTx) GetOrder(ctx context.Context, id int64, forUpdate bool) (orders.Order, error) {
	sql := `SELECT ` + orderCols + ` FROM orders WHERE id = $1`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	o, err := scanOrder(t.tx.QueryRow(ctx, sql, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.Order{}, orders.ErrOrderNotFound
	}
	return o, err
}

func (t *pgTx) ListOrderItems(ctx context.Context, orderID int64) ([]orders.OrderItem, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id, order_id, product_id, product_name, quantity, unit_price::text, subtotal::text
		FROM order_items WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []orders.OrderItem{}
	for rows.Next() {
		var (
			it        orders.OrderItem
			unit, sub string
		)
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity, &unit, &sub); err != nil {
			return nil, err
		}
		if it.UnitPrice, err = parseDecimal(unit); err != nil {
			return nil, err
		}
		if it.Subtotal, err = parseDecimal(sub); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (t *pgTx) ListOrders(ctx context.Context, userID int64) ([]orders.Order, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+orderCols+` FROM orders
		WHERE ($1::bigint = 0 OR user_id = $1::bigint) ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []orders.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (t *pgTx) SetOrderStatus(ctx context.Context, id int64, status orders.Status) (orders.Order, error) {
	o, err := scanOrder(t.tx.QueryRow(ctx, `
		UPDATE orders SET status = $2, updated_at = now() WHERE id = $1
		RETURNING `+orderCols, id, string(status)))
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.Order{}, orders.ErrOrderNotFound
	}
	return o, err
}

func (t *pgTx) SumOrderItems(ctx context.Context, orderID int64) (decimal.Decimal, error) {
	var s string
	if err := t.tx.QueryRow(ctx, `SELECT COALESCE(SUM(subtotal), 0)::text FROM order_items WHERE order_id = $1`, orderID).Scan(&s); err != nil {
		return decimal.Zero, err
	}
	return parseDecimal(s)
}

// ---- payments ----

const paymentCols = `id, order_id, external_id, invoice_id, amount, paid_amount, method, channel,
	status, gateway_status, paid_at, created_at, updated_at`

func (t *pgTx) GetPaymentByExternalID(ctx context.Context, externalID string, forUpdate bool) (orders.Payment, error) {
	sql := `SELECT ` + paymentCols + ` FROM payments WHERE external_id = $1`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	var (
		p      orders.Payment
		status string
		paidAt *time.Time
	)
	err := t.tx.QueryRow(ctx, sql, externalID).Scan(&p.ID, &p.OrderID, &p.ExternalID, &p.InvoiceID,
		&p.Amount, &p.PaidAmount, &p.Method, &p.Channel, &status, &p.GatewayStatus, &paidAt, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.Payment{}, orders.ErrPaymentNotFound
	}
	if err != nil {
		return orders.Payment{}, err
	}
	p.Status = orders.PaymentStatus(status)
	p.PaidAt = paidAt
	return p, nil
}

func (t *pgTx) InsertPayment(ctx context.Context, p *orders.Payment) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO payments(order_id, external_id, invoice_id, amount, paid_amount, method, channel, status, gateway_status, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`,
		p.OrderID, p.ExternalID, p.InvoiceID, p.Amount, p.PaidAmount, p.Method, p.Channel,
		string(p.Status), p.GatewayStatus, p.PaidAt).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("payment %s already exists: %w", p.ExternalID, err)
	}
	return err
}

func (t *pgTx) UpdatePayment(ctx context.Context, p *orders.Payment) error {
	err := t.tx.QueryRow(ctx, `
		UPDATE payments SET invoice_id=$2, amount=$3, paid_amount=$4, method=$5, channel=$6,
			status=$7, gateway_status=$8, paid_at=$9, updated_at=now()
		WHERE id=$1
		RETURNING updated_at`,
		p.ID, p.InvoiceID, p.Amount, p.PaidAmount, p.Method, p.Channel,
		string(p.Status), p.GatewayStatus, p.PaidAt).Scan(&p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.ErrPaymentNotFound
	}
	return err
}
