package handler

import (
	"net/http"

	"github.com/hikari-ai/chat-assistant/internal/gateway"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	gateway *gateway.Gateway
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(gw *gateway.Gateway) *HealthHandler {
	return &HealthHandler{
		gateway: gw,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.gateway == nil || !h.gateway.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "completion provider not configured",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
