package httpx

import (
	"github.com/ariefcatur/go-shop-orders/internal/account"
	"github.com/ariefcatur/go-shop-orders/internal/auth"
	"github.com/ariefcatur/go-shop-orders/internal/cart"
	"github.com/ariefcatur/go-shop-orders/internal/catalog"
	"github.com/ariefcatur/go-shop-orders/internal/checkout"
	"github.com/ariefcatur/go-shop-orders/internal/config"
	"github.com/ariefcatur/go-shop-orders/internal/payment"
	"github.com/ariefcatur/go-shop-orders/internal/reconcile"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"net/http"
	"time"
)

// Server holds everything the handlers need. Metrics and Dependencies are optional.
type Server struct {
	Log          *zap.Logger
	Tokens       *auth.TokenMaker
	Accounts     *account.Service
	Catalog      *catalog.Service
	Carts        *cart.Service
	Checkout     *checkout.Service
	Payments     *payment.Service
	Webhooks     *reconcile.Reconciler
	Gateway      config.Gateway
	Dependencies map[string]Dependency
	Metrics      http.Handler
	Timeout      time.Duration
}

func NewRouter(s *Server) *chi.Mux {
	if s.Log == nil {
		s.Log = zap.NewNop()
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, s.identify, s.requestLogger)
	r.Use(middleware.Timeout(timeout))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if s.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.Metrics)
	}

	r.Post("/auth/register", s.register)
	r.Post("/auth/login", s.login)
	r.Get("/products", s.listProducts)
	r.Get("/products/{id}", s.getProduct)
	r.Post(webhookPath, s.paymentWebhook)

	r.Route("/status", func(r chi.Router) {
		r.Get("/", s.getSystemStatus)
		r.Get("/gateway", s.getGatewayStatus)
		r.Get("/webhook", s.getWebhookStatus)
	})

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)

		r.Post("/products", s.createProduct)
		r.Patch("/products/{id}", s.updateProduct)
		r.Post("/products/{id}/restock", s.restockProduct)

		r.Get("/cart", s.getCart)
		r.Get("/cart/count", s.cartCount)
		r.Delete("/cart", s.clearCart)
		r.Post("/cart/items", s.addCartItem)
		r.Patch("/cart/items/{id}", s.updateCartItem)
		r.Delete("/cart/items/{id}", s.removeCartItem)

		r.Post("/orders", s.createOrder)
		r.Get("/orders", s.listOrders)
		r.Get("/orders/{id}", s.getOrder)
		r.Get("/orders/{id}/status", s.getOrderStatus)
		r.Patch("/orders/{id}/status", s.updateOrderStatus)
		r.Post("/orders/{id}/cancel", s.cancelOrder)
		r.Post("/orders/{id}/invoice", s.createInvoice)

		r.Get("/invoices/{id}", s.getInvoice)
		r.Post("/invoices/{id}/expire", s.expireInvoice)
	})
	return r
}
