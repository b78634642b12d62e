package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func TestMockProvider_ReturnsCanedResponses(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Content: json.RawMessage(`{"a":1}`), Usage: Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}},
		MockResponse{Content: json.RawMessage(`{"b":2}`)},
	)

	resp1, err := mock.Generate(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "first"}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp1.Content) != `{"a":1}` {
		t.Fatalf("expected {\"a\":1}, got %s", resp1.Content)
	}
	if resp1.Usage.InputTokens != 10 {
		t.Fatalf("expected 10 input tokens, got %d", resp1.Usage.InputTokens)
	}
	if resp1.StopReason != "end" {
		t.Fatalf("expected stop reason 'end', got %q", resp1.StopReason)
	}

	resp2, err := mock.Generate(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "second"}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp2.Content) != `{"b":2}` {
		t.Fatalf("expected {\"b\":2}, got %s", resp2.Content)
	}
}

func TestMockProvider_EmptyQueueReturnsError(t *testing.T) {
	mock := NewMockProvider()
	_, err := mock.Generate(context.Background(), Request{})
	if err == nil {
		t.Fatal("expected error from empty queue")
	}
	var unavail *ErrProviderUnavailable
	if !errors.As(err, &unavail) {
		t.Fatalf("expected ErrProviderUnavailable, got: %T", err)
	}
}

func TestMockProvider_RecordsCalls(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Content: json.RawMessage(`{}`)},
	)

	req := Request{
		System:   "sys",
		Messages: []Message{{Role: RoleUser, Content: "hello"}},
	}
	_, _ = mock.Generate(context.Background(), req)

	if mock.CallCount() != 1 {
		t.Fatalf("expected 1 call, got %d", mock.CallCount())
	}
	if mock.Calls[0].System != "sys" {
		t.Fatalf("expected system 'sys', got %q", mock.Calls[0].System)
	}
}

func TestMockProvider_RecordsPurposesAndHonoursCancel(t *testing.T) {
	mock := NewMockProvider(MockResponse{Content: json.RawMessage(`{}`)})

	ctx, cancel := context.WithCancel(WithPurpose(context.Background(), "grading"))
	cancel()
	if _, err := mock.Generate(ctx, Request{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if mock.Pending() != 1 {
		t.Fatalf("cancelled call consumed a reply")
	}

	if _, err := mock.Generate(WithPurpose(context.Background(), "lesson"), Request{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := mock.Purposes()
	if len(got) != 2 || got[0] != "grading" || got[1] != "lesson" {
		t.Fatalf("purposes = %v", got)
	}
}

func TestMockProvider_ReturnsConfiguredError(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Err: &ErrRateLimit{RetryAfter: 0}},
	)

	_, err := mock.Generate(context.Background(), Request{})
	if err == nil {
		t.Fatal("expected error")
	}
	var rl *ErrRateLimit
	if !errors.As(err, &rl) {
		t.Fatalf("expected ErrRateLimit, got: %T", err)
	}
}

func TestMockProvider_ModelID(t *testing.T) {
	mock := NewMockProvider()
	if mock.ModelID() != "mock" {
		t.Fatalf("expected 'mock', got %q", mock.ModelID())
	}
}

func TestPurposeContext(t *testing.T) {
	ctx := context.Background()
	if p := PurposeFrom(ctx); p != "unknown" {
		t.Fatalf("expected 'unknown', got %q", p)
	}

	ctx = WithPurpose(ctx, "question_generation")
	if p := PurposeFrom(ctx); p != "question_generation" {
		t.Fatalf("expected 'question-gen', got %q", p)
	}
}

func TestResponseText(t *testing.T) {
	r := &Response{Content: json.RawMessage(`"plain reply"`)}
	if r.Text() != "plain reply" {
		t.Fatalf("expected unwrapped text, got %q", r.Text())
	}
	r = &Response{Content: json.RawMessage(`{"a":1}`)}
	if r.Text() != `{"a":1}` {
		t.Fatalf("expected raw object, got %q", r.Text())
	}
}

func TestThreadContext(t *testing.T) {
	ctx := context.Background()
	if id := ThreadIDFrom(ctx); id != "" {
		t.Fatalf("expected empty thread, got %q", id)
	}
	ctx = WithThreadID(ctx, "alice_0f3c")
	if id := ThreadIDFrom(ctx); id != "alice_0f3c" {
		t.Fatalf("expected thread, got %q", id)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Provider != "groq" {
		t.Fatalf("expected groq, got %q", cfg.Provider)
	}
	if cfg.MaxTokens != 2048 {
		t.Fatalf("expected 2048 max tokens, got %d", cfg.MaxTokens)
	}
	if cfg.MinInterval.Milliseconds() != 3800 {
		t.Fatalf("expected 3.8s interval, got %s", cfg.MinInterval)
	}
	if cfg.Retry.MaxAttempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", cfg.Retry.MaxAttempts)
	}
	if cfg.Groq.Model != "llama-3.3-70b-versatile" {
		t.Fatalf("unexpected groq model %q", cfg.Groq.Model)
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("TUTOR_LLM_PROVIDER", "anthropic")
	t.Setenv("TUTOR_LLM_ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("TUTOR_LLM_RETRY_MAX_ATTEMPTS", "5")

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Provider != "anthropic" || cfg.Anthropic.APIKey != "sk-test" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Retry.MaxAttempts != 5 {
		t.Fatalf("expected 5 attempts, got %d", cfg.Retry.MaxAttempts)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestDiscoverConfig(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "sk-openai")
	t.Setenv("ANTHROPIC_API_KEY", "sk-anthropic")
	t.Setenv("OPENROUTER_API_KEY", "")

	cfg, ok := DiscoverConfig(DefaultConfig())
	if !ok {
		t.Fatal("expected a key to be discovered")
	}
	if cfg.Provider != "openai" || cfg.OpenAI.APIKey != "sk-openai" {
		t.Fatalf("expected openai to win, got %q", cfg.Provider)
	}

	explicit := DefaultConfig()
	explicit.Groq.APIKey = "gsk-explicit"
	cfg, ok = DiscoverConfig(explicit)
	if !ok || cfg.Provider != "groq" {
		t.Fatalf("explicit key should be kept, got %q", cfg.Provider)
	}
}

func TestConfig_Validate(t *testing.T) {
	withKey := func(mut func(*Config)) Config {
		cfg := DefaultConfig()
		mut(&cfg)
		return cfg
	}

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"groq without key", withKey(func(c *Config) {}), true},
		{"groq with key", withKey(func(c *Config) { c.Groq.APIKey = "gsk" }), false},
		{"anthropic without key", withKey(func(c *Config) { c.Provider = "anthropic" }), true},
		{"anthropic with key", withKey(func(c *Config) { c.Provider = "anthropic"; c.Anthropic.APIKey = "sk" }), false},
		{"openrouter with key", withKey(func(c *Config) { c.Provider = "openrouter"; c.OpenRouter.APIKey = "sk" }), false},
		{"mock needs no key", Config{Provider: "mock"}, false},
		{"zero max tokens", withKey(func(c *Config) { c.Groq.APIKey = "gsk"; c.MaxTokens = 0 }), true},
		{"unknown provider", Config{Provider: "unknown"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
