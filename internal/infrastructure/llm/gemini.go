package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"tashkeelcards/internal/config"
	"tashkeelcards/internal/ports"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiClient implements ports.TextGenerator on the Gemini API.
type GeminiClient struct {
	client       *genai.Client
	model        string
	systemPrompt string
	maxTokens    int32
	temperature  float32
}

var _ ports.TextGenerator = (*GeminiClient)(nil)

// NewGeminiClient builds a client from configuration. httpClient may be nil.
func NewGeminiClient(ctx context.Context, cfg config.LLMConfig, httpClient *http.Client) (*GeminiClient, error) {
	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		timeout := cfg.Timeout
		cc.HTTPOptions.Timeout = &timeout
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini: new client: %w", err)
	}

	return &GeminiClient{
		client:       client,
		model:        model,
		systemPrompt: cfg.SystemPrompt,
		maxTokens:    int32(cfg.MaxTokens),
		temperature:  float32(cfg.Temperature),
	}, nil
}

// Model returns the Gemini model name.
func (c *GeminiClient) Model() string { return c.model }

// Generate sends the prompt with the system instruction attached.
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	gc := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(c.temperature),
	}
	if c.systemPrompt != "" {
		gc.SystemInstruction = genai.NewContentFromText(c.systemPrompt, genai.RoleUser)
	}
	if c.maxTokens > 0 {
		gc.MaxOutputTokens = c.maxTokens
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), gc)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return "", classify(ctx, "gemini", apiErr.Code, err)
		}
		return "", classify(ctx, "gemini", 0, err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini: empty response for model %s", c.model)
	}
	return strings.TrimSpace(text), nil
}
