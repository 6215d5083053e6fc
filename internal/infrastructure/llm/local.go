package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tashkeelcards/internal/config"
	"tashkeelcards/internal/ports"
)

const defaultLocalModel = "Qwen/Qwen2.5-72B-Instruct-AWQ"

// LocalClient talks to a self-hosted text-generation-inference server.
type LocalClient struct {
	endpoint     string
	apiKey       string
	model        string
	systemPrompt string
	maxTokens    int
	temperature  float64
	http         *http.Client
}

var _ ports.TextGenerator = (*LocalClient)(nil)

// NewLocalClient creates a reusable HTTP client from configuration.
func NewLocalClient(cfg config.LLMConfig) *LocalClient {
	model := cfg.Model
	if model == "" {
		model = defaultLocalModel
	}
	return &LocalClient{
		endpoint:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		model:        model,
		systemPrompt: cfg.SystemPrompt,
		maxTokens:    cfg.MaxTokens,
		temperature:  cfg.Temperature,
		http:         &http.Client{Timeout: cfg.Timeout},
	}
}

// Model returns the served model name.
func (c *LocalClient) Model() string { return c.model }

type generateRequest struct {
	Inputs     string             `json:"inputs"`
	Parameters generateParameters `json:"parameters"`
}

type generateParameters struct {
	MaxNewTokens   int      `json:"max_new_tokens"`
	Temperature    *float64 `json:"temperature,omitempty"`
	DoSample       bool     `json:"do_sample"`
	ReturnFullText bool     `json:"return_full_text"`
}

type generateResponse struct {
	GeneratedText string `json:"generated_text"`
}

// Generate frames the prompt in the chat template and posts it to /generate.
func (c *LocalClient) Generate(ctx context.Context, prompt string) (string, error) {
	params := generateParameters{MaxNewTokens: c.maxTokens}
	if c.temperature > 0 {
		t := c.temperature
		params.Temperature = &t
		params.DoSample = true
	}

	var resp generateResponse
	status, err := c.post(ctx, "/generate", generateRequest{
		Inputs:     chatML(c.systemPrompt, prompt),
		Parameters: params,
	}, &resp)
	if err != nil {
		return "", classify(ctx, "local", status, err)
	}
	return strings.TrimSpace(resp.GeneratedText), nil
}

func chatML(system, user string) string {
	var b strings.Builder
	b.WriteString("<|im_start|>system\n")
	b.WriteString(system)
	b.WriteString("<|im_end|>\n<|im_start|>user\n")
	b.WriteString(user)
	b.WriteString("<|im_end|>\n<|im_start|>assistant\n")
	return b.String()
}

func (c *LocalClient) post(ctx context.Context, path string, payload any, v any) (int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return resp.StatusCode, fmt.Errorf("unexpected status %s after %s: %s",
			resp.Status, time.Since(start).Round(time.Millisecond), strings.TrimSpace(string(detail)))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return resp.StatusCode, nil
}
