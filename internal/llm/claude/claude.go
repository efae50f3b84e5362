// Package claude is the chat backend for the Anthropic Messages API.
package claude

import (
	"context"
	"fmt"
	"strings"
	"time"

	"xau-signal-bot/internal/api"
	"xau-signal-bot/internal/interfaces"
	"xau-signal-bot/internal/trace"
	"xau-signal-bot/internal/types"
)

const (
	DefaultBaseURL   = "https://api.anthropic.com"
	anthropicVersion = "2023-06-01"
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
	p   Params
	api *api.Client
}

var _ interfaces.Completer = (*Client)(nil)

func New(p Params) *Client {
	if p.BaseURL == "" {
		p.BaseURL = DefaultBaseURL
	}
	if p.MaxTokens <= 0 {
		p.MaxTokens = 1024
	}
	opts := []api.ClientOption{
		api.WithBaseURL(strings.TrimRight(p.BaseURL, "/")),
		api.WithHeader("x-api-key", p.APIKey),
		api.WithHeader("anthropic-version", anthropicVersion),
		api.WithLogging(true),
	}
	if p.Timeout > 0 {
		opts = append(opts, api.WithTimeout(p.Timeout))
	}
	return &Client{p: p, api: api.NewClient(opts...)}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	System      string    `json:"system,omitempty"`
	Messages    []message `json:"messages"`
	Temperature float32   `json:"temperature"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// Complete sends one user turn and returns the concatenated text blocks.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	ctx, span := trace.StartSpan(ctx, "claude.Messages")
	defer span.End()

	if c.p.APIKey == "" {
		return "", fmt.Errorf("%w: missing API key", types.ErrRequestFailed)
	}

	resp, err := c.api.POST(ctx, "/v1/messages", messagesRequest{
		Model:       c.p.Model,
		MaxTokens:   c.p.MaxTokens,
		System:      system,
		Messages:    []message{{Role: "user", Content: user}},
		Temperature: c.p.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", types.ErrRequestFailed, c.p.Model, err)
	}

	var out messagesResponse
	if err := resp.ParseJSON(&out); err != nil {
		return "", fmt.Errorf("%w: %s: %w", types.ErrRequestFailed, c.p.Model, err)
	}

	var b strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("%w: %s returned no text (stop_reason=%s)", types.ErrRequestFailed, c.p.Model, out.StopReason)
	}
	return b.String(), nil
}
