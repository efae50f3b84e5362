// Package openai is the chat backend for OpenAI-compatible endpoints,
// DeepSeek included.
package openai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"xau-signal-bot/internal/interfaces"
	"xau-signal-bot/internal/trace"
	"xau-signal-bot/internal/types"
)

type Params struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

type Client struct {
	p      Params
	client *goopenai.Client
}

var _ interfaces.Completer = (*Client)(nil)

func New(p Params) *Client {
	cfg := goopenai.DefaultConfig(p.APIKey)
	if p.BaseURL != "" {
		cfg.BaseURL = p.BaseURL
	}
	if p.Timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: p.Timeout}
	}
	return &Client{p: p, client: goopenai.NewClientWithConfig(cfg)}
}

// Complete requests one JSON-mode chat completion.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	ctx, span := trace.StartSpan(ctx, "openai.ChatCompletion")
	defer span.End()

	if c.p.APIKey == "" {
		return "", fmt.Errorf("%w: missing API key", types.ErrRequestFailed)
	}

	// go-openai omits a zero temperature; the smallest float32 is sent instead.
	temperature := c.p.Temperature
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}

	resp, err := c.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: c.p.Model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: system},
			{Role: goopenai.ChatMessageRoleUser, Content: user},
		},
		Temperature: temperature,
		MaxTokens:   c.p.MaxTokens,
		ResponseFormat: &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		var apiErr *goopenai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("%w: %s http %d: %s", types.ErrRequestFailed, c.p.Model, apiErr.HTTPStatusCode, apiErr.Message)
		}
		return "", fmt.Errorf("%w: %s: %w", types.ErrRequestFailed, c.p.Model, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: %s returned no choices", types.ErrRequestFailed, c.p.Model)
	}
	return resp.Choices[0].Message.Content, nil
}
