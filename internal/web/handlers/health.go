package handlers

import "net/http"

// Health serves liveness probes.
type Health struct{}

// NewHealth creates the health handler.
func NewHealth() *Health {
	return &Health{}
}

// Check responds 200 while the process is up.
// GET /healthz
func (h *Health) Check(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
