// Package gateway relays conversation turns to the configured completion
// provider. The gateway holds no conversation state: every call carries the
// full prior sequence and yields exactly one assistant turn.
package gateway

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"go.uber.org/zap"

	"github.com/hikari-ai/chat-assistant/internal/llm"
	"github.com/hikari-ai/chat-assistant/internal/model"
	"github.com/hikari-ai/chat-assistant/pkg/logger"
	"github.com/hikari-ai/chat-assistant/pkg/metrics"
)

// ErrMissingCredential indicates no provider credential is configured.
// This is a deployment fault, not a transient one, and is never retried.
var ErrMissingCredential = goerr.New("completion provider credential is not configured")

// Config fixes the deployment parameters attached to every upstream call.
type Config struct {
	Model        string
	SystemPrompt string
	MaxTokens    int
	Temperature  float64
}

// Gateway is a stateless relay between chat clients and the completion provider.
type Gateway struct {
	client llm.Client
	cfg    Config
	logger *logger.Logger
}

// New creates a gateway. A nil client is allowed; every Complete call will
// then fail with ErrMissingCredential.
func New(client llm.Client, cfg Config, log *logger.Logger) *Gateway {
	return &Gateway{
		client: client,
		cfg:    cfg,
		logger: log,
	}
}

// Ready reports whether a provider credential is configured.
func (g *Gateway) Ready() bool {
	return g.client != nil
}

// Complete forwards the turn sequence to the provider and returns the
// assistant's reply text. The deployment's fixed model identifier and, when
// configured, a leading system preamble are attached before forwarding.
// A single upstream attempt is made; there is no retry.
func (g *Gateway) Complete(ctx context.Context, turns []model.Turn) (string, error) {
	if g.client == nil {
		return "", ErrMissingCredential
	}

	messages := make([]llm.ChatMessage, 0, len(turns)+1)
	if g.cfg.SystemPrompt != "" {
		messages = append(messages, llm.ChatMessage{
			Role:    string(model.RoleSystem),
			Content: g.cfg.SystemPrompt,
		})
	}
	for _, turn := range turns {
		messages = append(messages, llm.ChatMessage{
			Role:    string(turn.Role),
			Content: turn.Content,
		})
	}

	resp, err := g.client.Complete(ctx, &llm.CompletionRequest{
		Model:       g.cfg.Model,
		Messages:    messages,
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
	})
	if err != nil {
		metrics.RecordCompletion(g.cfg.Model, "error", 0, 0, 0)
		return "", goerr.Wrap(err, "upstream completion failed",
			goerr.V("provider", g.client.Name()),
			goerr.V("model", g.cfg.Model))
	}

	g.logger.Debug("completion succeeded",
		zap.String("provider", g.client.Name()),
		zap.String("model", resp.Model),
		zap.Int("tokens_in", resp.TokensIn),
		zap.Int("tokens_out", resp.TokensOut),
		zap.Int64("latency_ms", resp.LatencyMs),
	)
	metrics.RecordCompletion(resp.Model, "success", float64(resp.LatencyMs)/1000.0, resp.TokensIn, resp.TokensOut)

	return resp.Content, nil
}
