package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"

	"github.com/hikari-ai/chat-assistant/internal/gateway"
	"github.com/hikari-ai/chat-assistant/internal/handler"
	"github.com/hikari-ai/chat-assistant/internal/llm"
	"github.com/hikari-ai/chat-assistant/internal/model"
	"github.com/hikari-ai/chat-assistant/pkg/logger"
)

type fakeLLM struct {
	reply string
	err   error
}

func (f *fakeLLM) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &llm.CompletionResponse{Content: f.reply, Model: req.Model}, nil
}

func (f *fakeLLM) Name() string     { return "fake" }
func (f *fakeLLM) Models() []string { return nil }

func newHandler(client llm.Client) *handler.ChatHandler {
	gw := gateway.New(client, gateway.Config{
		Model:       "test-model",
		MaxTokens:   1000,
		Temperature: 0.7,
	}, logger.NewNop())
	return handler.NewChatHandler(gw, logger.NewNop())
}

func post(t *testing.T, h *handler.ChatHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Complete(rec, req)
	return rec
}

func TestCompleteSuccess(t *testing.T) {
	h := newHandler(&fakeLLM{reply: "the answer"})

	rec := post(t, h, `{"messages":[{"role":"user","content":"the question"}]}`)
	gt.V(t, rec.Code).Equal(http.StatusOK)

	var resp model.ChatResponse
	gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	gt.V(t, resp.Message).Equal("the answer")
}

func TestCompleteMissingCredential(t *testing.T) {
	h := newHandler(nil)

	rec := post(t, h, `{"messages":[{"role":"user","content":"hi"}]}`)
	gt.V(t, rec.Code).Equal(http.StatusUnauthorized)

	var resp model.ErrorResponse
	gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	gt.S(t, resp.Error).Contains("credential")
}

func TestCompleteUpstreamFailure(t *testing.T) {
	h := newHandler(&fakeLLM{err: goerr.New("network down")})

	rec := post(t, h, `{"messages":[{"role":"user","content":"hi"}]}`)
	gt.V(t, rec.Code).Equal(http.StatusInternalServerError)

	var resp model.ErrorResponse
	gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	gt.S(t, resp.Error).Contains("failed to get response")
}

func TestCompleteRejectsBadRequests(t *testing.T) {
	h := newHandler(&fakeLLM{reply: "x"})

	gt.V(t, post(t, h, `not json`).Code).Equal(http.StatusBadRequest)
	gt.V(t, post(t, h, `{"messages":[]}`).Code).Equal(http.StatusBadRequest)
	gt.V(t, post(t, h, `{"messages":[{"role":"wizard","content":"hi"}]}`).Code).Equal(http.StatusBadRequest)
	gt.V(t, post(t, h, `{"messages":[{"role":"user","content":""}]}`).Code).Equal(http.StatusBadRequest)
}
