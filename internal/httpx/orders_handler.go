package httpx

import (
	"github.com/ariefcatur/go-shop-orders/internal/orders"
	"github.com/ariefcatur/go-shop-orders/internal/payment"
	"net/http"
)

type createOrderResp struct {
	orderView
	Idempotent bool `json:"idempotent"`
}

type updateStatusReq struct {
	Status string `json:"status" validate:"required"`
}

// createOrder checks out the caller's cart. A repeated Idempotency-Key returns
// the first order with 200 instead of creating another one.
func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get("Idempotency-Key")
	d, replayed, err := s.Checkout.CheckoutOnce(r.Context(), actor(r).UserID, key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	code := http.StatusCreated
	if replayed {
		code = http.StatusOK
	}
	writeJSON(w, code, createOrderResp{orderView: viewOrderDetail(d), Idempotent: replayed})
}

func (s *Server) listOrders(w http.ResponseWriter, r *http.Request) {
	list, err := s.Checkout.List(r.Context(), actor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]orderView, 0, len(list))
	for _, o := range list {
		out = append(out, viewOrder(o))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	d, err := s.Checkout.Get(r.Context(), actor(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOrderDetail(d))
}

// getOrderStatus is the cheap polling endpoint; it answers from the status
// cache when it can.
func (s *Server) getOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	st, err := s.Checkout.Status(r.Context(), actor(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req updateStatusReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	to, err := orders.ParseStatus(req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	o, err := s.Checkout.UpdateStatus(r.Context(), actor(r), id, to)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOrder(o))
}

func (s *Server) cancelOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	o, err := s.Checkout.Cancel(r.Context(), id, actor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOrder(o))
}

func (s *Server) createInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c := claims(r)
	inv, err := s.Payments.CreateForOrder(r.Context(), payment.Payer{UserID: c.UserID, Email: c.Email, Username: c.Username}, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}
