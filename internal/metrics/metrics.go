// Package metrics holds the Prometheus collectors of the shop. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"time"
)

const namespace = "shop"

type Metrics struct {
	checkout    *prometheus.CounterVec
	transitions *prometheus.CounterVec
	webhook     *prometheus.CounterVec
	gatewayReqs *prometheus.CounterVec
	gatewayDur  *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		checkout: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "checkout_total",
			Help: "Checkout attempts by outcome.",
		}, []string{"outcome"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "order_transitions_total",
			Help: "Committed order status transitions.",
		}, []string{"from", "to"}),
		webhook: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "webhook_notifications_total",
			Help: "Payment notifications by gateway status and outcome.",
		}, []string{"gateway_status", "outcome"}),
		gatewayReqs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "gateway_requests_total",
			Help: "Outbound payment gateway calls.",
		}, []string{"op", "outcome"}),
		gatewayDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "gateway_request_duration_seconds",
			Help:    "Latency of outbound payment gateway calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
	}
	reg.MustRegister(m.checkout, m.transitions, m.webhook, m.gatewayReqs, m.gatewayDur)
	return m
}

func (m *Metrics) Checkout(outcome string) {
	if m == nil {
		return
	}
	m.checkout.WithLabelValues(outcome).Inc()
}

func (m *Metrics) OrderTransition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) Webhook(gatewayStatus, outcome string) {
	if m == nil {
		return
	}
	m.webhook.WithLabelValues(gatewayStatus, outcome).Inc()
}

func (m *Metrics) GatewayRequest(op, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.gatewayReqs.WithLabelValues(op, outcome).Inc()
	m.gatewayDur.WithLabelValues(op).Observe(d.Seconds())
}
