package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"github.com/ariefcatur/go-shop-orders/internal/account"
	"github.com/ariefcatur/go-shop-orders/internal/auth"
	"github.com/ariefcatur/go-shop-orders/internal/catalog"
	"github.com/ariefcatur/go-shop-orders/internal/checkout"
	"github.com/ariefcatur/go-shop-orders/internal/gateway"
	"github.com/ariefcatur/go-shop-orders/internal/logging"
	"github.com/ariefcatur/go-shop-orders/internal/orders"
	"github.com/ariefcatur/go-shop-orders/internal/payment"
	"github.com/ariefcatur/go-shop-orders/internal/reconcile"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"net/http"
	"strconv"
)

const maxBody = 1 << 20

var (
	errInvalidJSON = errors.New("invalid json")
	errInvalidID   = errors.New("invalid id")
)

type errorBody struct {
	Error string      `json:"error"`
	Stock *stockError `json:"stock,omitempty"`
}

type stockError struct {
	ProductID int64  `json:"product_id"`
	Product   string `json:"product"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to a status code. Details of unexpected errors stay in
// the log; callers only see them for client and upstream failures.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		logging.FromContext(r.Context()).Error("request_failed", zap.Error(err))
		writeJSON(w, code, errorBody{Error: "internal error"})
		return
	}
	if code == http.StatusBadGateway {
		logging.FromContext(r.Context()).Warn("upstream_failed", zap.Error(err))
	}
	body := errorBody{Error: err.Error()}
	var se *orders.StockError
	if errors.As(err, &se) {
		body.Stock = &stockError{ProductID: se.ProductID, Product: se.ProductName, Requested: se.Requested, Available: se.Available}
	}
	writeJSON(w, code, body)
}

func statusFor(err error) int {
	switch {
	case is(err, errInvalidJSON, errInvalidID, errInvalidInput,
		orders.ErrInvalidQuantity, orders.ErrQuantityTooLarge, orders.ErrCartEmpty, orders.ErrMalformedReference, orders.ErrUnknownStatus,
		catalog.ErrInvalidName, catalog.ErrInvalidPrice, catalog.ErrInvalidStock,
		account.ErrInvalidEmail, account.ErrInvalidUsername, auth.ErrWeakPassword,
		payment.ErrNoItems, gateway.ErrInvalidAmount):
		return http.StatusBadRequest
	case is(err, reconcile.ErrUnauthorized, account.ErrInvalidCredentials, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case is(err, orders.ErrForbidden, orders.ErrNotOwner):
		return http.StatusForbidden
	case is(err, orders.ErrProductNotFound, orders.ErrCartItemNotFound, orders.ErrOrderNotFound,
		orders.ErrPaymentNotFound, orders.ErrUserNotFound, gateway.ErrNotFound):
		return http.StatusNotFound
	case is(err, orders.ErrInsufficientStock, orders.ErrProductInactive, orders.ErrNotPending,
		orders.ErrInvalidTransition, orders.ErrEmailTaken, checkout.ErrCheckoutInProgress):
		return http.StatusConflict
	case is(err, gateway.ErrGateway):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func is(err error, targets ...error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// decodeJSON reads the body into v and runs its validate tags.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errInvalidJSON, err)
	}
	return checkStruct(v)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}

// claims and actor are only called behind requireAuth.
func claims(r *http.Request) *auth.Claims { return auth.ClaimsFrom(r.Context()) }

func actor(r *http.Request) auth.Actor { return claims(r).Actor() }
