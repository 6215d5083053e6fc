package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"tashkeelcards/internal/config"
	"tashkeelcards/internal/ports"
)

const defaultAnthropicModel = "claude-3-5-haiku-latest"

// AnthropicClient implements ports.TextGenerator on the Messages API.
type AnthropicClient struct {
	client       anthropic.Client
	model        string
	systemPrompt string
	maxTokens    int64
	temperature  float64
}

var _ ports.TextGenerator = (*AnthropicClient)(nil)

// NewAnthropicClient builds a client from configuration. httpClient may be nil.
func NewAnthropicClient(cfg config.LLMConfig, httpClient *http.Client) *AnthropicClient {
	model := cfg.Model
	if model == "" {
		model = defaultAnthropicModel
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}

	return &AnthropicClient{
		client:       anthropic.NewClient(opts...),
		model:        model,
		systemPrompt: cfg.SystemPrompt,
		maxTokens:    int64(cfg.MaxTokens),
		temperature:  cfg.Temperature,
	}
}

// Model returns the Claude model name.
func (c *AnthropicClient) Model() string { return c.model }

// Generate sends the prompt as a single user turn and joins the text blocks
// of the reply.
func (c *AnthropicClient) Generate(ctx context.Context, prompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   c.maxTokens,
		Temperature: anthropic.Float(c.temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if c.systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: c.systemPrompt}}
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", classify(ctx, "anthropic", apiErr.StatusCode, err)
		}
		return "", classify(ctx, "anthropic", 0, err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("anthropic: no text in reply from %s", c.model)
	}
	return strings.TrimSpace(b.String()), nil
}
