package httpx

import (
	"github.com/ariefcatur/go-shop-orders/internal/logging"
	"github.com/ariefcatur/go-shop-orders/internal/orders"
	"github.com/ariefcatur/go-shop-orders/internal/reconcile"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"net/http"
)

const callbackTokenHeader = "x-callback-token"

type webhookResp struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Data    *webhookData `json:"data,omitempty"`
}

type webhookData struct {
	PaymentID     int64                `json:"payment_id"`
	PaymentStatus orders.PaymentStatus `json:"payment_status"`
	OrderStatus   orders.Status        `json:"order_status"`
	Applied       bool                 `json:"applied"`
}

func (s *Server) getInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := s.Payments.GetInvoice(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (s *Server) expireInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := s.Payments.ExpireInvoice(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

// paymentWebhook answers with a non-2xx status whenever the notification was
// not durably applied, so the gateway redelivers it.
func (s *Server) paymentWebhook(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var n reconcile.Notification
	if err := decodeJSON(w, r, &n); err != nil {
		s.webhookFailed(w, r, err)
		return
	}
	res, err := s.Webhooks.Handle(r.Context(), r.Header.Get(callbackTokenHeader), n)
	if err != nil {
		s.webhookFailed(w, r, err)
		return
	}

	msg := "Webhook processed successfully"
	if !res.Applied {
		msg = "Webhook acknowledged; payment already settled"
		log.Info("webhook_ignored_stale",
			zap.String("external_id", n.ExternalID),
			zap.String("status", n.Status),
		)
	}
	writeJSON(w, http.StatusOK, webhookResp{
		Success: true,
		Message: msg,
		Data: &webhookData{
			PaymentID:     res.Payment.ID,
			PaymentStatus: res.Payment.Status,
			OrderStatus:   res.OrderStatus,
			Applied:       res.Applied,
		},
	})
}

func (s *Server) webhookFailed(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		logging.FromContext(r.Context()).Error("webhook_failed", zap.Error(err))
		msg = "internal error"
	} else {
		logging.FromContext(r.Context()).Warn("webhook_rejected", zap.Int("status", code), zap.Error(err))
	}
	writeJSON(w, code, webhookResp{Success: false, Message: msg})
}
