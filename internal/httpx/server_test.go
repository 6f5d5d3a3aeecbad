package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ariefcatur/go-shop-orders/internal/account"
	"github.com/ariefcatur/go-shop-orders/internal/auth"
	"github.com/ariefcatur/go-shop-orders/internal/cart"
	"github.com/ariefcatur/go-shop-orders/internal/catalog"
	"github.com/ariefcatur/go-shop-orders/internal/checkout"
	"github.com/ariefcatur/go-shop-orders/internal/config"
	"github.com/ariefcatur/go-shop-orders/internal/gateway"
	"github.com/ariefcatur/go-shop-orders/internal/memory"
	"github.com/ariefcatur/go-shop-orders/internal/metrics"
	"github.com/ariefcatur/go-shop-orders/internal/orders"
	"github.com/ariefcatur/go-shop-orders/internal/payment"
	"github.com/ariefcatur/go-shop-orders/internal/reconcile"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const callbackToken = "cb-secret"

type fakeGateway struct {
	mu       sync.Mutex
	requests []gateway.InvoiceRequest
}

func (g *fakeGateway) CreateInvoice(_ context.Context, req gateway.InvoiceRequest) (gateway.Invoice, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	id := fmt.Sprintf("inv-%d", len(g.requests))
	return gateway.Invoice{ID: id, ExternalID: req.ExternalID, Amount: req.Amount, Status: "PENDING", InvoiceURL: "https://pay.test/" + id}, nil
}

func (g *fakeGateway) GetInvoice(_ context.Context, id string) (gateway.Invoice, error) {
	if id == "missing" {
		return gateway.Invoice{}, &gateway.Error{Op: "get_invoice", StatusCode: http.StatusNotFound, Err: gateway.ErrNotFound}
	}
	return gateway.Invoice{ID: id, Status: "PENDING"}, nil
}

func (g *fakeGateway) ExpireInvoice(_ context.Context, id string) (gateway.Invoice, error) {
	return gateway.Invoice{ID: id, Status: "EXPIRED"}, nil
}

type testServer struct {
	t      *testing.T
	srv    *Server
	store  *memory.Store
	tokens *auth.TokenMaker
	gw     *fakeGateway
	mux    *chi.Mux
}

func setupServer(t *testing.T) *testServer {
	t.Helper()
	store := memory.NewStore()
	tokens, err := auth.NewTokenMaker("test-secret", time.Hour, "shop-api")
	require.NoError(t, err)
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	gw := &fakeGateway{}

	s := &Server{
		Tokens:   tokens,
		Accounts: account.New(store, tokens),
		Catalog:  catalog.New(store),
		Carts:    cart.New(store),
		Checkout: checkout.New(store, nil, nil, m),
		Payments: payment.New(store, gw),
		Webhooks: reconcile.New(store, callbackToken, nil, nil, m),
		Gateway: config.Gateway{
			SecretKey:          "xnd_development_test",
			APIURL:             "https://api.xendit.co",
			WebhookToken:       callbackToken,
			SuccessRedirectURL: "http://localhost:3000/payment/success",
			FailureRedirectURL: "http://localhost:3000/payment/failed",
		},
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}
	return &testServer{t: t, srv: s, store: store, tokens: tokens, gw: gw, mux: NewRouter(s)}
}

func (ts *testServer) do(method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	ts.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(ts.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	ts.mux.ServeHTTP(w, req)
	return w
}

// signup registers through the API and returns a bearer token.
func (ts *testServer) signup(email, role string) string {
	ts.t.Helper()
	w := ts.do(http.MethodPost, "/auth/register", "", map[string]string{
		"email": email, "username": email, "password": "correct-horse", "role": role,
	})
	require.Equal(ts.t, http.StatusCreated, w.Code, w.Body.String())

	w = ts.do(http.MethodPost, "/auth/login", "", map[string]string{"email": email, "password": "correct-horse"})
	require.Equal(ts.t, http.StatusOK, w.Code, w.Body.String())
	var resp loginResp
	decode(ts.t, w, &resp)
	require.NotEmpty(ts.t, resp.Token)
	return resp.Token
}

// admin cannot self-register, so it is written straight into the store.
func (ts *testServer) admin() string {
	ts.t.Helper()
	u := orders.User{Email: "root@shop.test", Username: "root", PasswordHash: "x", Role: auth.RoleAdmin}
	require.NoError(ts.t, ts.store.InTx(context.Background(), func(ctx context.Context, tx orders.Tx) error {
		return tx.CreateUser(ctx, &u)
	}))
	tok, _, err := ts.tokens.IssueToken(u.ID, u.Email, u.Username, u.Role)
	require.NoError(ts.t, err)
	return tok
}

func (ts *testServer) product(sellerToken, name, price string, stock int) productView {
	ts.t.Helper()
	w := ts.do(http.MethodPost, "/products", sellerToken, map[string]any{"name": name, "price": price, "stock": stock})
	require.Equal(ts.t, http.StatusCreated, w.Code, w.Body.String())
	var p productView
	decode(ts.t, w, &p)
	return p
}

func (ts *testServer) checkout(buyerToken string, productID int64, qty int) orderView {
	ts.t.Helper()
	w := ts.do(http.MethodPost, "/cart/items", buyerToken, map[string]any{"product_id": productID, "quantity": qty})
	require.Equal(ts.t, http.StatusCreated, w.Code, w.Body.String())
	w = ts.do(http.MethodPost, "/orders", buyerToken, nil)
	require.Equal(ts.t, http.StatusCreated, w.Code, w.Body.String())
	var o orderView
	decode(ts.t, w, &o)
	return o
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestHealthz(t *testing.T) {
	ts := setupServer(t)
	w := ts.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestCheckoutInvoiceAndWebhookFlow(t *testing.T) {
	ts := setupServer(t)
	seller := ts.signup("seller@shop.test", "seller")
	buyer := ts.signup("buyer@shop.test", "")
	p := ts.product(seller, "Kopi Gayo", "100.00", 10)

	o := ts.checkout(buyer, p.ID, 2)
	assert.Equal(t, orders.StatusPending, o.Status)
	assert.True(t, decimal.RequireFromString("200").Equal(o.TotalPrice))
	require.Len(t, o.Items, 1)
	assert.Equal(t, "Kopi Gayo", o.Items[0].ProductName)

	w := ts.do(http.MethodGet, "/cart", buyer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var c cartResp
	decode(t, w, &c)
	assert.Empty(t, c.Items)

	w = ts.do(http.MethodGet, fmt.Sprintf("/products/%d", p.ID), "", nil)
	var after productView
	decode(t, w, &after)
	assert.Equal(t, 8, after.Stock)

	w = ts.do(http.MethodPost, fmt.Sprintf("/orders/%d/invoice", o.ID), buyer, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.Len(t, ts.gw.requests, 1)
	assert.Equal(t, int64(200), ts.gw.requests[0].Amount)
	assert.Equal(t, orders.ExternalRef(o.ID), ts.gw.requests[0].ExternalID)
	assert.Equal(t, "buyer@shop.test", ts.gw.requests[0].PayerEmail)

	note := map[string]any{
		"id": "inv-1", "external_id": orders.ExternalRef(o.ID), "status": "PAID",
		"amount": 200, "paid_amount": 200, "payment_channel": "BCA", "payment_method": "BANK_TRANSFER",
	}
	for i := 0; i < 2; i++ {
		w = ts.do(http.MethodPost, "/webhooks/payment", "", note, callbackTokenHeader, callbackToken)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var resp webhookResp
		decode(t, w, &resp)
		assert.True(t, resp.Success)
		require.NotNil(t, resp.Data)
		assert.Equal(t, orders.PaymentPaid, resp.Data.PaymentStatus)
		assert.Equal(t, orders.StatusPaid, resp.Data.OrderStatus)
	}

	w = ts.do(http.MethodGet, fmt.Sprintf("/orders/%d/status", o.ID), buyer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var st orders.CachedStatus
	decode(t, w, &st)
	assert.Equal(t, orders.StatusPaid, st.Status)

	w = ts.do(http.MethodGet, fmt.Sprintf("/orders/%d", o.ID), buyer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var detail orderView
	decode(t, w, &detail)
	require.NotNil(t, detail.Payment)
	assert.Equal(t, int64(200), detail.Payment.PaidAmount)
	assert.NotNil(t, detail.Payment.PaidAt)

	w = ts.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `shop_checkout_total{outcome="ok"} 1`)
}

func TestWebhookRejections(t *testing.T) {
	ts := setupServer(t)

	tests := []struct {
		name   string
		token  string
		extID  string
		status int
	}{
		{"bad token", "nope", "ORDER-1", http.StatusUnauthorized},
		{"malformed reference", callbackToken, "INVALID-42", http.StatusBadRequest},
		{"unknown order", callbackToken, "ORDER-999", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(http.MethodPost, "/webhooks/payment", "", map[string]any{
				"id": "inv-x", "external_id": tt.extID, "status": "PAID", "paid_amount": 10,
			}, callbackTokenHeader, tt.token)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			var resp webhookResp
			decode(t, w, &resp)
			assert.False(t, resp.Success)
			assert.NotEmpty(t, resp.Message)
		})
	}
}

func TestAuthRequired(t *testing.T) {
	ts := setupServer(t)

	w := ts.do(http.MethodGet, "/cart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(http.MethodGet, "/cart", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(http.MethodPost, "/auth/login", "", map[string]string{"email": "ghost@shop.test", "password": "whatever1"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCartRejectsOversell(t *testing.T) {
	ts := setupServer(t)
	seller := ts.signup("seller@shop.test", "seller")
	buyer := ts.signup("buyer@shop.test", "buyer")
	p := ts.product(seller, "Last one", "5.50", 1)

	w := ts.do(http.MethodPost, "/cart/items", buyer, map[string]any{"product_id": p.ID, "quantity": 2})
	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	var body errorBody
	decode(t, w, &body)
	require.NotNil(t, body.Stock)
	assert.Equal(t, 2, body.Stock.Requested)
	assert.Equal(t, 1, body.Stock.Available)

	w = ts.do(http.MethodPost, "/cart/items", buyer, map[string]any{"product_id": p.ID, "quantity": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodPost, "/orders", buyer, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "empty cart")
}

func TestCartUpdateToZeroRemovesLine(t *testing.T) {
	ts := setupServer(t)
	seller := ts.signup("seller@shop.test", "seller")
	buyer := ts.signup("buyer@shop.test", "buyer")
	p := ts.product(seller, "Teh", "3", 5)

	w := ts.do(http.MethodPost, "/cart/items", buyer, map[string]any{"product_id": p.ID, "quantity": 1})
	require.Equal(t, http.StatusCreated, w.Code)
	var it cartItemView
	decode(t, w, &it)

	w = ts.do(http.MethodPatch, fmt.Sprintf("/cart/items/%d", it.ID), buyer, map[string]any{"quantity": 4})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &it)
	assert.Equal(t, 4, it.Quantity)

	w = ts.do(http.MethodPatch, fmt.Sprintf("/cart/items/%d", it.ID), buyer, map[string]any{"quantity": 0})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = ts.do(http.MethodGet, "/cart", buyer, nil)
	var c cartResp
	decode(t, w, &c)
	assert.Empty(t, c.Items)
}

func TestOrderAccessAndStatus(t *testing.T) {
	ts := setupServer(t)
	seller := ts.signup("seller@shop.test", "seller")
	buyer := ts.signup("buyer@shop.test", "buyer")
	other := ts.signup("other@shop.test", "buyer")
	admin := ts.admin()
	p := ts.product(seller, "Gula", "12.5", 4)
	o := ts.checkout(buyer, p.ID, 1)

	w := ts.do(http.MethodGet, fmt.Sprintf("/orders/%d", o.ID), other, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(http.MethodPatch, fmt.Sprintf("/orders/%d/status", o.ID), buyer, map[string]string{"status": "processing"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(http.MethodPatch, fmt.Sprintf("/orders/%d/status", o.ID), admin, map[string]string{"status": "bogus"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodPatch, fmt.Sprintf("/orders/%d/status", o.ID), admin, map[string]string{"status": "processing"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var got orderView
	decode(t, w, &got)
	assert.Equal(t, orders.StatusProcessing, got.Status)

	w = ts.do(http.MethodPost, fmt.Sprintf("/orders/%d/cancel", o.ID), buyer, nil)
	assert.Equal(t, http.StatusConflict, w.Code, "only pending orders can be cancelled")

	w = ts.do(http.MethodGet, "/orders", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var all []orderView
	decode(t, w, &all)
	assert.Len(t, all, 1)

	w = ts.do(http.MethodGet, "/orders", other, nil)
	decode(t, w, &all)
	assert.Empty(t, all)
}

func TestCancelReleasesStock(t *testing.T) {
	ts := setupServer(t)
	seller := ts.signup("seller@shop.test", "seller")
	buyer := ts.signup("buyer@shop.test", "buyer")
	p := ts.product(seller, "Beras", "60000", 3)
	o := ts.checkout(buyer, p.ID, 3)

	w := ts.do(http.MethodPost, fmt.Sprintf("/orders/%d/cancel", o.ID), buyer, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(http.MethodGet, fmt.Sprintf("/products/%d", p.ID), "", nil)
	var after productView
	decode(t, w, &after)
	assert.Equal(t, 3, after.Stock)
}

func TestProductManagement(t *testing.T) {
	ts := setupServer(t)
	seller := ts.signup("seller@shop.test", "seller")
	rival := ts.signup("rival@shop.test", "seller")
	buyer := ts.signup("buyer@shop.test", "buyer")
	p := ts.product(seller, "Sambal", "15", 2)

	w := ts.do(http.MethodPost, "/products", buyer, map[string]any{"name": "x", "price": "1", "stock": 1})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(http.MethodPatch, fmt.Sprintf("/products/%d", p.ID), rival, map[string]any{"price": "1"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(http.MethodPost, fmt.Sprintf("/products/%d/restock", p.ID), seller, map[string]any{"quantity": 5})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var got productView
	decode(t, w, &got)
	assert.Equal(t, 7, got.Stock)

	w = ts.do(http.MethodPatch, fmt.Sprintf("/products/%d", p.ID), seller, map[string]any{"active": false})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var list []productView
	decode(t, ts.do(http.MethodGet, "/products", buyer, nil), &list)
	assert.Empty(t, list)
	decode(t, ts.do(http.MethodGet, "/products?include_inactive=true", buyer, nil), &list)
	assert.Empty(t, list, "buyers never see inactive products")
	decode(t, ts.do(http.MethodGet, "/products?include_inactive=true", seller, nil), &list)
	assert.Len(t, list, 1)

	w = ts.do(http.MethodGet, "/products/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInvoiceAdminRoutes(t *testing.T) {
	ts := setupServer(t)
	buyer := ts.signup("buyer@shop.test", "buyer")
	admin := ts.admin()

	w := ts.do(http.MethodGet, "/invoices/inv-9", buyer, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(http.MethodGet, "/invoices/missing", admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(http.MethodPost, "/invoices/inv-9/expire", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var inv gateway.Invoice
	decode(t, w, &inv)
	assert.Equal(t, "EXPIRED", inv.Status)
}

func TestRegisterValidation(t *testing.T) {
	ts := setupServer(t)
	ts.signup("dup@shop.test", "buyer")

	tests := []struct {
		name string
		body map[string]string
		code int
	}{
		{"duplicate email", map[string]string{"email": "DUP@shop.test", "username": "d", "password": "correct-horse"}, http.StatusConflict},
		{"weak password", map[string]string{"email": "a@shop.test", "username": "a", "password": "short"}, http.StatusBadRequest},
		{"bad email", map[string]string{"email": "nope", "username": "a", "password": "correct-horse"}, http.StatusBadRequest},
		{"admin self-signup", map[string]string{"email": "b@shop.test", "username": "b", "password": "correct-horse", "role": "admin"}, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(http.MethodPost, "/auth/register", "", tt.body)
			assert.Equal(t, tt.code, w.Code, w.Body.String())
		})
	}

	w := ts.do(http.MethodPost, "/auth/register", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRequestValidation(t *testing.T) {
	ts := setupServer(t)
	seller := ts.signup("seller@shop.test", "seller")
	buyer := ts.signup("buyer@shop.test", "buyer")
	p := ts.product(seller, "Garam", "2", 5)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		want   string
	}{
		{"quantity above line cap", http.MethodPost, "/cart/items", buyer,
			map[string]any{"product_id": p.ID, "quantity": orders.MaxLineQuantity + 1}, "quantity must be at most 10000"},
		{"missing product", http.MethodPost, "/cart/items", buyer,
			map[string]any{"quantity": 1}, "product_id must be greater than 0"},
		{"unknown role", http.MethodPost, "/auth/register", "",
			map[string]string{"email": "c@shop.test", "username": "c", "password": "correct-horse", "role": "king"}, "role must be one of"},
		{"bad email", http.MethodPost, "/auth/register", "",
			map[string]string{"email": "nope", "username": "c", "password": "correct-horse"}, "email must be a valid email"},
		{"blank product name", http.MethodPost, "/products", seller,
			map[string]any{"price": "1", "stock": 1}, "name is required"},
		{"negative restock", http.MethodPost, fmt.Sprintf("/products/%d/restock", p.ID), seller,
			map[string]any{"quantity": -3}, "quantity must be greater than 0"},
		{"missing status", http.MethodPatch, "/orders/1/status", seller,
			map[string]any{}, "status is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(tt.method, tt.path, tt.token, tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			var body errorBody
			decode(t, w, &body)
			assert.Contains(t, body.Error, tt.want)
		})
	}
}

func TestCartCount(t *testing.T) {
	ts := setupServer(t)
	seller := ts.signup("seller@shop.test", "seller")
	buyer := ts.signup("buyer@shop.test", "buyer")
	a := ts.product(seller, "A", "1", 10)
	b := ts.product(seller, "B", "1", 10)

	for _, add := range []struct {
		id  int64
		qty int
	}{{a.ID, 2}, {b.ID, 1}, {a.ID, 3}} {
		w := ts.do(http.MethodPost, "/cart/items", buyer, map[string]any{"product_id": add.id, "quantity": add.qty})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w := ts.do(http.MethodGet, "/cart/count", buyer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var c cartCountResp
	decode(t, w, &c)
	assert.Equal(t, cartCountResp{Lines: 2, Units: 6}, c)

	w = ts.do(http.MethodGet, "/cart/count", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGatewayAndWebhookStatus(t *testing.T) {
	ts := setupServer(t)

	var gs gatewayStatus
	w := ts.do(http.MethodGet, "/status/gateway", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &gs)
	assert.Equal(t, "inactive", gs.Status, "the test token is too short")
	assert.Equal(t, "development", gs.Mode)
	assert.True(t, gs.Configured)
	assert.Contains(t, gs.Problem, "webhook token")

	ts.srv.Gateway.WebhookToken = strings.Repeat("k", 32)
	gs = gatewayStatus{}
	decode(t, ts.do(http.MethodGet, "/status/gateway", "", nil), &gs)
	assert.Equal(t, "active", gs.Status)
	assert.Empty(t, gs.Problem)

	var ws webhookStatus
	decode(t, ts.do(http.MethodGet, "/status/webhook", "", nil), &ws)
	assert.Equal(t, "/webhooks/payment", ws.Endpoint)
	assert.True(t, ws.Verified)
	assert.Equal(t, "ready", ws.Status)

	ts.srv.Gateway.WebhookToken = ""
	decode(t, ts.do(http.MethodGet, "/status/webhook", "", nil), &ws)
	assert.False(t, ws.Verified)
	assert.Equal(t, "unverified", ws.Status)
}

func TestSystemStatus(t *testing.T) {
	ts := setupServer(t)
	up := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name   string
		deps   map[string]Dependency
		code   int
		status string
	}{
		{"all up", map[string]Dependency{"database": {Check: up}, "redis": {Check: up, Optional: true}}, http.StatusOK, "ok"},
		{"optional down", map[string]Dependency{"database": {Check: up}, "redis": {Check: down, Optional: true}}, http.StatusOK, "degraded"},
		{"required down", map[string]Dependency{"database": {Check: down}, "redis": {Check: down, Optional: true}}, http.StatusServiceUnavailable, "unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts.srv.Dependencies = tt.deps
			w := ts.do(http.MethodGet, "/status", "", nil)
			require.Equal(t, tt.code, w.Code, w.Body.String())
			var st systemStatus
			decode(t, w, &st)
			assert.Equal(t, tt.status, st.Status)
			assert.Len(t, st.Dependencies, 2)
			assert.Equal(t, "/webhooks/payment", st.Webhook.Endpoint)
		})
	}

	ts.srv.Dependencies = map[string]Dependency{"database": {Check: down}}
	var st systemStatus
	decode(t, ts.do(http.MethodGet, "/status", "", nil), &st)
	assert.Equal(t, "down", st.Dependencies["database"].Status)
	assert.Equal(t, "connection refused", st.Dependencies["database"].Error)
}

func TestPanicIsRecovered(t *testing.T) {
	ts := setupServer(t)
	ts.mux.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("kaboom") })

	w := ts.do(http.MethodGet, "/boom", "", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body errorBody
	decode(t, w, &body)
	assert.Equal(t, "internal error", body.Error)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("wrap: %w", orders.ErrInvalidQuantity), http.StatusBadRequest},
		{&orders.StockError{ProductID: 1}, http.StatusConflict},
		{orders.ErrNotPending, http.StatusConflict},
		{checkout.ErrCheckoutInProgress, http.StatusConflict},
		{orders.ErrNotOwner, http.StatusForbidden},
		{orders.ErrOrderNotFound, http.StatusNotFound},
		{&gateway.Error{Op: "create_invoice", StatusCode: http.StatusNotFound}, http.StatusNotFound},
		{&gateway.Error{Op: "create_invoice", StatusCode: http.StatusServiceUnavailable}, http.StatusBadGateway},
		{reconcile.ErrUnauthorized, http.StatusUnauthorized},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, statusFor(tt.err), tt.err.Error())
	}
}
