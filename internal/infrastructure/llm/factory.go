package llm

import (
	"context"
	"fmt"

	"tashkeelcards/internal/config"
	"tashkeelcards/internal/ports"
)

// New selects the backend named by cfg.Backend.
func New(ctx context.Context, cfg config.LLMConfig) (ports.TextGenerator, error) {
	switch cfg.Backend {
	case config.BackendLocal:
		return NewLocalClient(cfg), nil
	case config.BackendOpenAI:
		return NewOpenAIClient(cfg, nil), nil
	case config.BackendGemini:
		return NewGeminiClient(ctx, cfg, nil)
	case config.BackendAnthropic:
		return NewAnthropicClient(cfg, nil), nil
	default:
		return nil, fmt.Errorf("llm: unknown backend %q", cfg.Backend)
	}
}
