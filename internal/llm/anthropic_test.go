package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

func newTestAnthropicProvider(t *testing.T, handler http.HandlerFunc) *AnthropicProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := anthropic.NewClient(
		option.WithAPIKey("test-key"),
		option.WithBaseURL(server.URL),
		option.WithMaxRetries(0),
	)
	return &AnthropicProvider{client: &client, model: "claude-haiku-4-5-20251001"}
}

func anthropicReply(text, stop string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":          "msg_test",
			"type":        "message",
			"role":        "assistant",
			"content":     []map[string]any{{"type": "text", "text": text}},
			"model":       "claude-haiku-4-5-20251001",
			"stop_reason": stop,
			"usage":       map[string]any{"input_tokens": 50, "output_tokens": 30},
		})
	}
}

func anthropicError(status int, kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{
			"type":  "error",
			"error": map[string]any{"type": kind, "message": kind},
		})
	}
}

func TestAnthropicProvider_HappyPath(t *testing.T) {
	p := newTestAnthropicProvider(t, anthropicReply(`{"hint":"Factor the quadratic first."}`, "end_turn"))
	resp, err := p.Generate(context.Background(), Request{
		System:    "You are a mathematics tutor.",
		Messages:  []Message{{Role: RoleUser, Content: "Give a hint."}},
		Schema:    &Schema{Name: "hint", Definition: map[string]any{"type": "object", "required": []any{"hint"}}},
		MaxTokens: 256,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Usage.InputTokens != 50 || resp.Usage.TotalTokens != 80 {
		t.Fatalf("unexpected usage: %+v", resp.Usage)
	}
	if resp.StopReason != "end" {
		t.Fatalf("expected stop reason 'end', got %q", resp.StopReason)
	}
}

func TestAnthropicProvider_PlainTextIsWrapped(t *testing.T) {
	p := newTestAnthropicProvider(t, anthropicReply("Sure! {\"a\":1}", "end_turn"))
	resp, err := p.Generate(context.Background(), Request{
		Messages:  []Message{{Role: RoleUser, Content: "test"}},
		MaxTokens: 100,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text() != "Sure! {\"a\":1}" {
		t.Fatalf("unexpected text %q", resp.Text())
	}
}

func TestAnthropicProvider_MaxTokens(t *testing.T) {
	p := newTestAnthropicProvider(t, anthropicReply(`{"plan":[`, "max_tokens"))
	_, err := p.Generate(context.Background(), Request{
		Messages:  []Message{{Role: RoleUser, Content: "test"}},
		MaxTokens: 10,
	})
	var maxTok *ErrMaxTokensExceeded
	if !errors.As(err, &maxTok) {
		t.Fatalf("expected ErrMaxTokensExceeded, got: %T (%v)", err, err)
	}
}

func TestAnthropicProvider_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(error) bool
	}{
		{"rate limit", http.StatusTooManyRequests, func(err error) bool { var e *ErrRateLimit; return errors.As(err, &e) }},
		{"server error", http.StatusInternalServerError, func(err error) bool { var e *ErrProviderUnavailable; return errors.As(err, &e) }},
		{"bad key", http.StatusUnauthorized, func(err error) bool { var e *ErrRequestRejected; return errors.As(err, &e) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestAnthropicProvider(t, anthropicError(tt.status, "error"))
			_, err := p.Generate(context.Background(), Request{
				Messages:  []Message{{Role: RoleUser, Content: "test"}},
				MaxTokens: 100,
			})
			if err == nil || !tt.check(err) {
				t.Fatalf("unexpected error: %T (%v)", err, err)
			}
		})
	}
}

func TestAnthropicModelMapping(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"claude-sonnet", "claude-sonnet-4-20250514"},
		{"claude-haiku", "claude-haiku-4-5-20251001"},
		{"claude-sonnet-4-5", "claude-sonnet-4-5"},
	}
	for _, tt := range tests {
		if got := resolveModel(tt.input, anthropicModels); got != tt.expected {
			t.Errorf("resolveModel(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
