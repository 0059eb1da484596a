// Package openai adapts the OpenAI chat completions API to the analysis
// model interface.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"intake/internal/domain"
	"intake/internal/infra"
)

// ErrMissingAPIKey is returned by Generate when no key was configured.
var ErrMissingAPIKey = errors.New("openai api key is not configured")

const (
	defaultModel   = infra.DefaultOpenAIModel
	defaultTimeout = 60 * time.Second
)

type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

type Client struct {
	client *goopenai.Client
	model  string
	hasKey bool
}

func NewClient(opts Options) *Client {
	apiKey := strings.TrimSpace(opts.APIKey)
	cfg := goopenai.DefaultConfig(apiKey)
	if base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"); base != "" {
		cfg.BaseURL = base
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	cfg.HTTPClient = httpClient

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}
	return &Client{
		client: goopenai.NewClientWithConfig(cfg),
		model:  model,
		hasKey: apiKey != "",
	}
}

func (c *Client) Name() string {
	return "openai"
}

// Model returns the configured chat model identifier.
func (c *Client) Model() string {
	return c.model
}

// Generate sends a single user message. An image is passed as a data URL
// image part after the text part.
func (c *Client) Generate(ctx context.Context, req domain.ModelRequest) (string, error) {
	if !c.hasKey {
		return "", ErrMissingAPIKey
	}

	parts := []goopenai.ChatMessagePart{{
		Type: goopenai.ChatMessagePartTypeText,
		Text: req.Prompt,
	}}
	if req.Image != nil {
		parts = append(parts, goopenai.ChatMessagePart{
			Type: goopenai.ChatMessagePartTypeImageURL,
			ImageURL: &goopenai.ChatMessageImageURL{
				URL:    fmt.Sprintf("data:%s;base64,%s", req.Image.MimeType, req.Image.Data),
				Detail: goopenai.ImageURLDetailAuto,
			},
		})
	}

	resp, err := c.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: c.model,
		Messages: []goopenai.ChatCompletionMessage{{
			Role:         goopenai.ChatMessageRoleUser,
			MultiContent: parts,
		}},
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("openai returned empty content")
	}
	return text, nil
}
