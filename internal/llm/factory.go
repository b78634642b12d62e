package llm

import (
	"context"
	"fmt"
	"log/slog"
)

// NewProvider creates a Provider from configuration. The returned chain is
// caller → retry → throttle → timeout → logging → base, so every attempt is
// paced, individually bounded and recorded.
func NewProvider(ctx context.Context, cfg Config, sink EventSink, logger *slog.Logger) (Provider, error) {
	var base Provider
	var err error

	switch cfg.Provider {
	case "groq":
		base, err = NewGroqProvider(cfg.Groq)
	case "anthropic":
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case "openai":
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case "gemini":
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case "openrouter":
		base, err = NewOpenRouterProvider(cfg.OpenRouter)
	case "mock":
		base = NewMockProvider()
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	return Wrap(base, cfg, cfg.Provider, sink, logger), nil
}

// Wrap applies the standard middleware chain to base.
func Wrap(base Provider, cfg Config, name string, sink EventSink, logger *slog.Logger) Provider {
	p := WithLogging(base, name, sink, logger)
	p = WithTimeout(p, cfg.Timeout)
	p = WithThrottle(p, cfg.MinInterval)
	return WithRetry(p, cfg.Retry)
}
