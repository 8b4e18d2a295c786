// Package assistant produces chat completions from an Ollama server.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"
)

// Roles accepted in a conversation.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrEmptyReply is returned when the model produced no content.
var ErrEmptyReply = errors.New("assistant returned an empty reply")

// Turn is one message of a conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// OllamaClient completes conversations with a single Ollama model.
type OllamaClient struct {
	api     *api.Client
	model   string
	retries int
	logger  *zap.Logger
}

// NewOllamaClient creates a client for baseURL. timeout bounds each HTTP call.
func NewOllamaClient(baseURL, model string, timeout time.Duration, logger *zap.Logger) (*OllamaClient, error) {
	u, err := url.ParseRequestURI(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama base url: %w", err)
	}
	if model == "" {
		return nil, fmt.Errorf("ollama model is required")
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OllamaClient{
		api:     api.NewClient(u, &http.Client{Timeout: timeout}),
		model:   model,
		retries: 1,
		logger:  logger,
	}, nil
}

// Complete sends the conversation and returns the assistant's reply.
func (c *OllamaClient) Complete(ctx context.Context, turns []Turn) (string, error) {
	msgs := make([]api.Message, len(turns))
	for i, t := range turns {
		msgs[i] = api.Message{Role: t.Role, Content: t.Content}
	}
	stream := false

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		var reply strings.Builder
		start := time.Now()
		err := c.api.Chat(ctx, &api.ChatRequest{
			Model:    c.model,
			Messages: msgs,
			Stream:   &stream,
		}, func(resp api.ChatResponse) error {
			reply.WriteString(resp.Message.Content)
			return nil
		})
		if err == nil {
			c.logger.Debug("assistant reply",
				zap.String("model", c.model),
				zap.Duration("latency", time.Since(start)),
			)
			out := strings.TrimSpace(reply.String())
			if out == "" {
				return "", ErrEmptyReply
			}
			return out, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return "", fmt.Errorf("assistant chat failed: %w", lastErr)
}
