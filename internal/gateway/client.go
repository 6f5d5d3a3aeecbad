// Package gateway talks to the hosted invoice API of the payment provider.
// It keeps no local state; every failure is returned as an *Error carrying the
// upstream status and body.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/ariefcatur/go-shop-orders/internal/config"
	"github.com/ariefcatur/go-shop-orders/internal/metrics"
	"io"
	"net/http"
	"net/url"
	"time"
)

var (
	ErrGateway       = errors.New("payment gateway error")
	ErrNotFound      = errors.New("invoice not found")
	ErrInvalidAmount = errors.New("invoice amount must be greater than zero")
)

const maxErrorBody = 4 << 10

// Error is returned for transport failures, non-2xx answers and responses
// that cannot be decoded.
type Error struct {
	Op         string
	StatusCode int // 0 when no response was received
	Body       string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("gateway %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("gateway %s: status %d: %s", e.Op, e.StatusCode, e.Body)
	default:
		return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	return target == ErrGateway || (target == ErrNotFound && e.StatusCode == http.StatusNotFound)
}

type Customer struct {
	GivenNames   string `json:"given_names"`
	Email        string `json:"email"`
	MobileNumber string `json:"mobile_number,omitempty"`
}

type Item struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Price    int64  `json:"price"`
	Category string `json:"category,omitempty"`
}

type InvoiceRequest struct {
	ExternalID  string
	Amount      int64 // whole currency units
	PayerEmail  string
	Description string
	Customer    Customer
	Items       []Item
	Duration    time.Duration // zero uses the configured default
}

type Invoice struct {
	ID          string `json:"id"`
	ExternalID  string `json:"external_id"`
	InvoiceURL  string `json:"invoice_url"`
	Status      string `json:"status"`
	ExpiryDate  string `json:"expiry_date"`
	Amount      int64  `json:"amount"`
	PaidAmount  int64  `json:"paid_amount"`
	Description string `json:"description"`
}

type createInvoiceBody struct {
	ExternalID         string   `json:"external_id"`
	Amount             int64    `json:"amount"`
	PayerEmail         string   `json:"payer_email"`
	Description        string   `json:"description"`
	Customer           Customer `json:"customer"`
	Items              []Item   `json:"items"`
	InvoiceDuration    int64    `json:"invoice_duration"`
	SuccessRedirectURL string   `json:"success_redirect_url,omitempty"`
	FailureRedirectURL string   `json:"failure_redirect_url,omitempty"`
}

type Client struct {
	cfg     config.Gateway
	http    *http.Client
	metrics *metrics.Metrics
}

func New(cfg config.Gateway, m *metrics.Metrics) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: timeout}, metrics: m}
}

func (c *Client) CreateInvoice(ctx context.Context, req InvoiceRequest) (Invoice, error) {
	if req.Amount <= 0 {
		return Invoice{}, fmt.Errorf("%w: %d", ErrInvalidAmount, req.Amount)
	}
	d := req.Duration
	if d <= 0 {
		d = c.cfg.InvoiceDuration
	}
	if d <= 0 {
		d = 24 * time.Hour
	}
	items := req.Items
	if items == nil {
		items = []Item{}
	}
	body := createInvoiceBody{
		ExternalID:         req.ExternalID,
		Amount:             req.Amount,
		PayerEmail:         req.PayerEmail,
		Description:        req.Description,
		Customer:           req.Customer,
		Items:              items,
		InvoiceDuration:    int64(d / time.Second),
		SuccessRedirectURL: c.cfg.SuccessRedirectURL,
		FailureRedirectURL: c.cfg.FailureRedirectURL,
	}
	return c.do(ctx, "create_invoice", http.MethodPost, "/v2/invoices", body)
}

func (c *Client) GetInvoice(ctx context.Context, id string) (Invoice, error) {
	if id == "" {
		return Invoice{}, ErrNotFound
	}
	return c.do(ctx, "get_invoice", http.MethodGet, "/v2/invoices/"+url.PathEscape(id), nil)
}

func (c *Client) ExpireInvoice(ctx context.Context, id string) (Invoice, error) {
	if id == "" {
		return Invoice{}, ErrNotFound
	}
	return c.do(ctx, "expire_invoice", http.MethodPost, "/v2/invoices/"+url.PathEscape(id)+"/expire!", nil)
}

func (c *Client) do(ctx context.Context, op, method, path string, in any) (inv Invoice, err error) {
	start := time.Now()
	defer func() {
		res := "ok"
		if err != nil {
			res = "error"
		}
		c.metrics.GatewayRequest(op, res, time.Since(start))
	}()

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return Invoice{}, &Error{Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.APIURL+path, body)
	if err != nil {
		return Invoice{}, &Error{Op: op, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Authorization", c.cfg.BasicAuth())
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Invoice{}, &Error{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return Invoice{}, &Error{Op: op, StatusCode: resp.StatusCode, Body: string(b)}
	}
	if err := json.NewDecoder(resp.Body).Decode(&inv); err != nil {
		return Invoice{}, &Error{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	if inv.ID == "" {
		return Invoice{}, &Error{Op: op, StatusCode: resp.StatusCode, Err: errors.New("response has no invoice id")}
	}
	return inv, nil
}
