package httpx

import (
	"context"
	"net/http"
	"sort"
	"time"
)

const (
	webhookPath  = "/webhooks/payment"
	checkTimeout = 2 * time.Second
)

// Dependency is probed by /status. A failing optional dependency degrades the
// answer; a failing required one makes it a 503.
type Dependency struct {
	Check    func(ctx context.Context) error
	Optional bool
}

type gatewayStatus struct {
	Service    string `json:"service"`
	Status     string `json:"status"`
	Mode       string `json:"mode"`
	APIURL     string `json:"api_url"`
	Configured bool   `json:"configured"`
	Problem    string `json:"problem,omitempty"`
}

type webhookStatus struct {
	Service  string   `json:"service"`
	Status   string   `json:"status"`
	Endpoint string   `json:"endpoint"`
	Methods  []string `json:"methods"`
	Ready    bool     `json:"ready"`
	Verified bool     `json:"verified"`
}

type dependencyStatus struct {
	Status   string `json:"status"`
	Optional bool   `json:"optional"`
	Error    string `json:"error,omitempty"`
}

type systemStatus struct {
	Status       string                      `json:"status"`
	Timestamp    time.Time                   `json:"timestamp"`
	Gateway      gatewayStatus               `json:"gateway"`
	Webhook      webhookStatus               `json:"webhook"`
	Dependencies map[string]dependencyStatus `json:"dependencies"`
}

func (s *Server) gatewayState() gatewayStatus {
	g := s.Gateway
	st := gatewayStatus{
		Service:    "xendit",
		Status:     "inactive",
		Mode:       g.Mode(),
		APIURL:     g.APIURL,
		Configured: g.SecretKey != "",
	}
	if err := g.Check(); err != nil {
		st.Problem = err.Error()
	}
	if g.Active() {
		st.Status = "active"
	}
	return st
}

func (s *Server) webhookState() webhookStatus {
	verified := s.Gateway.WebhookToken != ""
	st := webhookStatus{
		Service:  "webhook",
		Status:   "ready",
		Endpoint: webhookPath,
		Methods:  []string{http.MethodPost},
		Ready:    true,
		Verified: verified,
	}
	if !verified {
		st.Status = "unverified"
	}
	return st
}

func (s *Server) getGatewayStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.gatewayState())
}

func (s *Server) getWebhookStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.webhookState())
}

func (s *Server) getSystemStatus(w http.ResponseWriter, r *http.Request) {
	out := systemStatus{
		Status:       "ok",
		Timestamp:    time.Now().UTC(),
		Gateway:      s.gatewayState(),
		Webhook:      s.webhookState(),
		Dependencies: make(map[string]dependencyStatus, len(s.Dependencies)),
	}
	names := make([]string, 0, len(s.Dependencies))
	for name := range s.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)

	code := http.StatusOK
	for _, name := range names {
		dep := s.Dependencies[name]
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		err := dep.Check(ctx)
		cancel()
		if err == nil {
			out.Dependencies[name] = dependencyStatus{Status: "up", Optional: dep.Optional}
			continue
		}
		out.Dependencies[name] = dependencyStatus{Status: "down", Optional: dep.Optional, Error: err.Error()}
		if dep.Optional {
			if out.Status == "ok" {
				out.Status = "degraded"
			}
			continue
		}
		out.Status = "unavailable"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, out)
}
