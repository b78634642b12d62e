package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func fastRetry() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		InitialWait: time.Millisecond,
		MaxWait:     5 * time.Millisecond,
		Multiplier:  2,
	}
}

var remediationJSON = json.RawMessage(`{"allow_advance":false,"escalate":false}`)

func down() MockResponse {
	return MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("503 overloaded")}}
}

func TestRetryProvider(t *testing.T) {
	tests := []struct {
		name      string
		script    []MockResponse
		wantErr   bool
		wantCalls int
	}{
		{
			name:      "first attempt",
			script:    []MockResponse{{Content: remediationJSON}},
			wantCalls: 1,
		},
		{
			name:      "unavailable then ok",
			script:    []MockResponse{down(), {Content: remediationJSON}},
			wantCalls: 2,
		},
		{
			name: "rate limit honours retry-after",
			script: []MockResponse{
				{Err: &ErrRateLimit{RetryAfter: time.Millisecond, Err: errors.New("429")}},
				{Content: remediationJSON},
			},
			wantCalls: 2,
		},
		{
			name:      "gives up after max attempts",
			script:    []MockResponse{down(), down(), down(), {Content: remediationJSON}},
			wantErr:   true,
			wantCalls: 3,
		},
		{
			name: "invalid response retried once",
			script: []MockResponse{
				{Err: &ErrInvalidResponse{Content: json.RawMessage(`plan:`), Err: errors.New("no json")}},
				{Err: &ErrInvalidResponse{Content: json.RawMessage(`plan:`), Err: errors.New("no json")}},
				{Content: remediationJSON},
			},
			wantErr:   true,
			wantCalls: 2,
		},
		{
			name:      "max tokens not retried",
			script:    []MockResponse{{Err: &ErrMaxTokensExceeded{Content: json.RawMessage(`{"plan":[`)}}},
			wantErr:   true,
			wantCalls: 1,
		},
		{
			name: "rejected not retried",
			script: []MockResponse{
				{Err: &ErrRequestRejected{StatusCode: 401, Err: errors.New("bad key")}},
				{Content: remediationJSON},
			},
			wantErr:   true,
			wantCalls: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewMockProvider(tt.script...)
			p := WithRetry(mock, fastRetry())

			resp, err := p.Generate(context.Background(), Request{})
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
			} else {
				if err != nil {
					t.Fatalf("Generate: %v", err)
				}
				if string(resp.Content) != string(remediationJSON) {
					t.Fatalf("content = %s", resp.Content)
				}
			}
			if got := mock.CallCount(); got != tt.wantCalls {
				t.Fatalf("calls = %d, want %d", got, tt.wantCalls)
			}
			if p.ModelID() != "mock" {
				t.Fatalf("ModelID = %q", p.ModelID())
			}
		})
	}
}

func TestRetryProvider_KeepsErrorType(t *testing.T) {
	p := WithRetry(NewMockProvider(MockResponse{Err: &ErrMaxTokensExceeded{}}), fastRetry())
	_, err := p.Generate(context.Background(), Request{})
	var maxTok *ErrMaxTokensExceeded
	if !errors.As(err, &maxTok) {
		t.Fatalf("err = %T, want *ErrMaxTokensExceeded", err)
	}
}

func TestRetryProvider_CancelledContext(t *testing.T) {
	mock := NewMockProvider(down(), down(), MockResponse{Content: remediationJSON})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := WithRetry(mock, fastRetry()).Generate(ctx, Request{}); err == nil {
		t.Fatal("expected an error from a cancelled context")
	}
}

func TestRetry_Generic(t *testing.T) {
	calls := 0
	v, err := Retry(context.Background(), fastRetry(), func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", &ErrProviderUnavailable{}
		}
		return "context", nil
	})
	if err != nil || v != "context" || calls != 3 {
		t.Fatalf("got %q, %v after %d calls", v, err, calls)
	}

	calls = 0
	_, err = Retry(context.Background(), fastRetry(), func(context.Context) (string, error) {
		calls++
		return "", errors.New("schema mismatch")
	})
	if err == nil || calls != 1 {
		t.Fatalf("permanent error: calls = %d, err = %v", calls, err)
	}
}

func TestBackoff_CappedAndJittered(t *testing.T) {
	cfg := RetryConfig{InitialWait: 10 * time.Millisecond, MaxWait: 40 * time.Millisecond, Multiplier: 2}
	for attempt := range 6 {
		d := backoff(cfg, attempt, errors.New("x"))
		if d > 48*time.Millisecond {
			t.Fatalf("attempt %d: wait %v exceeds cap plus jitter", attempt, d)
		}
	}
	if d := backoff(cfg, 0, &ErrRateLimit{RetryAfter: 7 * time.Second}); d != 7*time.Second {
		t.Fatalf("retry-after wait = %v", d)
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limit", &ErrRateLimit{}, true},
		{"unavailable", &ErrProviderUnavailable{}, true},
		{"wrapped unavailable", errors.Join(errors.New("grading"), &ErrProviderUnavailable{}), true},
		{"deadline", context.DeadlineExceeded, true},
		{"canceled", context.Canceled, false},
		{"rejected", &ErrRequestRejected{StatusCode: 400}, false},
		{"invalid", &ErrInvalidResponse{}, false},
		{"max tokens", &ErrMaxTokensExceeded{}, false},
		{"plain", errors.New("x"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Fatalf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
