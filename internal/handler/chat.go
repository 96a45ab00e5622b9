// Package handler provides HTTP handlers for the API.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/hikari-ai/chat-assistant/internal/gateway"
	"github.com/hikari-ai/chat-assistant/internal/middleware"
	"github.com/hikari-ai/chat-assistant/internal/model"
	"github.com/hikari-ai/chat-assistant/pkg/logger"
)

// ChatHandler handles the completion relay endpoint.
type ChatHandler struct {
	gateway *gateway.Gateway
	logger  *logger.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(gw *gateway.Gateway, log *logger.Logger) *ChatHandler {
	return &ChatHandler{
		gateway: gw,
		logger:  log,
	}
}

// Complete handles POST /api/chat
func (h *ChatHandler) Complete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req model.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateTurns(req.Messages); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reply, err := h.gateway.Complete(ctx, req.Messages)
	if err != nil {
		if errors.Is(err, gateway.ErrMissingCredential) {
			h.logger.Error("completion rejected: no provider credential")
			writeError(w, http.StatusUnauthorized, "completion provider credential is not configured")
			return
		}
		h.logger.Error("completion failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to get response from completion provider")
		return
	}

	writeJSON(w, http.StatusOK, model.ChatResponse{Message: reply})
}
