package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"tashkeelcards/internal/config"
	"tashkeelcards/internal/ports"
)

const (
	defaultOpenAIBaseURL = "https://api.groq.com/openai/v1"
	defaultOpenAIModel   = "mistral-saba-24b"
)

// OpenAIClient implements ports.TextGenerator for any OpenAI-compatible chat
// completions endpoint (Groq by default).
type OpenAIClient struct {
	client       openai.Client
	model        string
	systemPrompt string
	maxTokens    int64
	temperature  float64
}

var _ ports.TextGenerator = (*OpenAIClient)(nil)

// NewOpenAIClient builds a client from configuration. httpClient may be nil.
func NewOpenAIClient(cfg config.LLMConfig, httpClient *http.Client) *OpenAIClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}

	return &OpenAIClient{
		client:       openai.NewClient(opts...),
		model:        model,
		systemPrompt: cfg.SystemPrompt,
		maxTokens:    int64(cfg.MaxTokens),
		temperature:  cfg.Temperature,
	}
}

// Model returns the chat model name.
func (c *OpenAIClient) Model() string { return c.model }

// Generate sends the prompt as a user message after the system prompt.
func (c *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(c.systemPrompt),
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(c.temperature),
	}
	if c.maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(c.maxTokens)
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", classify(ctx, "openai", apiErr.StatusCode, err)
		}
		return "", classify(ctx, "openai", 0, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: empty choices for model %s", c.model)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
