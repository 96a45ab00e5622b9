// Package apiclient calls the chat-assistant completion endpoint.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/hikari-ai/chat-assistant/internal/model"
)

// Client is an HTTP client for the completion relay. It satisfies
// store.Completer.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the API at baseURL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// Complete posts the turn sequence to /api/chat and returns the assistant
// reply text.
func (c *Client) Complete(ctx context.Context, turns []model.Turn) (string, error) {
	body, err := json.Marshal(model.ChatRequest{Messages: turns})
	if err != nil {
		return "", goerr.Wrap(err, "failed to marshal chat request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", goerr.Wrap(err, "failed to build chat request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", goerr.Wrap(err, "chat request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp model.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error != "" {
			return "", goerr.New(errResp.Error, goerr.V("status", resp.StatusCode))
		}
		return "", goerr.New("chat request rejected", goerr.V("status", resp.StatusCode))
	}

	var chatResp model.ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", goerr.Wrap(err, "failed to decode chat response")
	}

	return chatResp.Message, nil
}
