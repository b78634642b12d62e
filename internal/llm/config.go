package llm

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix is prepended to every variable ConfigFromEnv reads.
const EnvPrefix = "TUTOR_LLM_"

// Config holds all model provider configuration.
type Config struct {
	// Provider is one of "groq", "anthropic", "openai", "gemini",
	// "openrouter" or "mock".
	Provider string `env:"PROVIDER" envDefault:"groq"`

	Groq       GroqConfig       `envPrefix:"GROQ_"`
	Anthropic  AnthropicConfig  `envPrefix:"ANTHROPIC_"`
	OpenAI     OpenAIConfig     `envPrefix:"OPENAI_"`
	Gemini     GeminiConfig     `envPrefix:"GEMINI_"`
	OpenRouter OpenRouterConfig `envPrefix:"OPENROUTER_"`
	Retry      RetryConfig      `envPrefix:"RETRY_"`

	// Timeout bounds a single provider call, per attempt.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"30s"`

	// MinInterval is the minimum spacing between any two outbound calls.
	MinInterval time.Duration `env:"MIN_INTERVAL" envDefault:"3.8s"`

	MaxTokens   int     `env:"MAX_TOKENS" envDefault:"2048"`
	Temperature float64 `env:"TEMPERATURE" envDefault:"0"`
}

// GroqConfig holds Groq-specific configuration.
type GroqConfig struct {
	APIKey  string `env:"API_KEY"`
	Model   string `env:"MODEL" envDefault:"llama-3.3-70b-versatile"`
	BaseURL string `env:"BASE_URL"`
}

// AnthropicConfig holds Anthropic-specific configuration.
type AnthropicConfig struct {
	APIKey string `env:"API_KEY"`
	Model  string `env:"MODEL" envDefault:"claude-haiku"`
}

// OpenAIConfig holds OpenAI-specific configuration.
type OpenAIConfig struct {
	APIKey  string `env:"API_KEY"`
	Model   string `env:"MODEL" envDefault:"gpt-4o-mini"`
	BaseURL string `env:"BASE_URL"`
}

// GeminiConfig holds Gemini-specific configuration.
type GeminiConfig struct {
	APIKey string `env:"API_KEY"`
	Model  string `env:"MODEL" envDefault:"gemini-flash"`
}

// OpenRouterConfig holds OpenRouter-specific configuration.
type OpenRouterConfig struct {
	APIKey  string `env:"API_KEY"`
	Model   string `env:"MODEL" envDefault:"google/gemini-2.0-flash-exp"`
	BaseURL string `env:"BASE_URL"`
}

// DefaultConfig returns the configuration described by the envDefault tags.
func DefaultConfig() Config {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: map[string]string{}}); err != nil {
		panic(fmt.Sprintf("llm: invalid envDefault tag: %v", err))
	}
	return cfg
}

// ConfigFromEnv builds a Config from TUTOR_LLM_* variables, falling back to
// defaults for unset values.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse llm config: %w", err)
	}
	return cfg, nil
}

// DiscoverConfig fills in an API key from the vendors' standard variables
// when the configured provider has none. Keys are probed in the order Groq,
// Gemini, OpenAI, Anthropic, OpenRouter; the first one found selects the
// provider. It reports whether a usable key was found.
func DiscoverConfig(cfg Config) (Config, bool) {
	if cfg.Provider == "mock" || cfg.hasKey() {
		return cfg, true
	}
	if k := os.Getenv("GROQ_API_KEY"); k != "" {
		cfg.Provider, cfg.Groq.APIKey = "groq", k
		return cfg, true
	}
	if k := os.Getenv("GEMINI_API_KEY"); k != "" {
		cfg.Provider, cfg.Gemini.APIKey = "gemini", k
		return cfg, true
	}
	if k := os.Getenv("OPENAI_API_KEY"); k != "" {
		cfg.Provider, cfg.OpenAI.APIKey = "openai", k
		return cfg, true
	}
	if k := os.Getenv("ANTHROPIC_API_KEY"); k != "" {
		cfg.Provider, cfg.Anthropic.APIKey = "anthropic", k
		return cfg, true
	}
	if k := os.Getenv("OPENROUTER_API_KEY"); k != "" {
		cfg.Provider, cfg.OpenRouter.APIKey = "openrouter", k
		return cfg, true
	}
	return cfg, false
}

func (c Config) hasKey() bool {
	switch c.Provider {
	case "groq":
		return c.Groq.APIKey != ""
	case "anthropic":
		return c.Anthropic.APIKey != ""
	case "openai":
		return c.OpenAI.APIKey != ""
	case "gemini":
		return c.Gemini.APIKey != ""
	case "openrouter":
		return c.OpenRouter.APIKey != ""
	}
	return false
}

// Validate checks that the selected provider has its required API key set.
func (c Config) Validate() error {
	switch c.Provider {
	case "mock":
		return nil
	case "groq", "anthropic", "openai", "gemini", "openrouter":
		if !c.hasKey() {
			return fmt.Errorf("%s%s_API_KEY is required for the %s provider", EnvPrefix, strings.ToUpper(c.Provider), c.Provider)
		}
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max tokens must be positive")
	}
	return nil
}
