// Package api exposes the scheduler's operations as a JSON admin API, plus
// the usual health/readiness/metrics endpoints, following the teacher's
// plain net/http handler style (one *http.ServeMux, one handler per route,
// encoding/json request and response bodies) rather than the gRPC+mTLS
// surface the teacher uses for its own service mesh — nothing in this
// design calls for a custom wire protocol (see the design notes on
// external interfaces).
package api

import (
	"net/http"
	"time"

	"github.com/cuemby/dispatch/pkg/metrics"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadyResponse represents the readiness check response
type ReadyResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
	Message   string            `json:"message,omitempty"`
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy", Timestamp: time.Now()})
}

func (s *Server) readyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	checks := map[string]string{"scheduler": "ok"}
	status := "ready"
	statusCode := http.StatusOK

	// A scheduler that cannot answer GetNodeInfo within two seconds is not
	// ready to serve traffic.
	done := make(chan struct{})
	go func() {
		s.sched.GetNodeInfo()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		checks["scheduler"] = "not responding"
		status = "not ready"
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, statusCode, ReadyResponse{Status: status, Timestamp: time.Now(), Checks: checks})
}

func (s *Server) liveHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

func metricsHandlerFunc() http.Handler {
	return metrics.Handler()
}
