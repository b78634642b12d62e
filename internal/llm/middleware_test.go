package llm

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Pavansyamala/agenticAItutor/internal/store"
)

type memorySink struct {
	mu     sync.Mutex
	events []store.LLMRequestEvent
	err    error
}

func (m *memorySink) AppendLLMRequest(_ context.Context, ev store.LLMRequestEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return m.err
}

func TestLoggingProvider_RecordsEvents(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Content: json.RawMessage(`{"ok":true}`), Usage: Usage{InputTokens: 7, OutputTokens: 3}},
		MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("down")}},
	)
	sink := &memorySink{}
	p := WithLogging(mock, "mock", sink, nil)

	ctx := WithThreadID(WithPurpose(context.Background(), "lesson"), "bob_1")
	if _, err := p.Generate(ctx, Request{System: "sys", Messages: []Message{{Role: RoleUser, Content: "hi"}}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := p.Generate(ctx, Request{}); err == nil {
		t.Fatal("expected error")
	}

	if len(sink.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(sink.events))
	}
	ok := sink.events[0]
	if !ok.Success || ok.Purpose != "lesson" || ok.ThreadID != "bob_1" || ok.InputTokens != 7 {
		t.Fatalf("unexpected success event: %+v", ok)
	}
	if ok.RequestBody == "" || ok.ResponseBody != `{"ok":true}` {
		t.Fatalf("expected bodies to be captured: %+v", ok)
	}
	failed := sink.events[1]
	if failed.Success || failed.ErrorMessage == "" {
		t.Fatalf("unexpected failure event: %+v", failed)
	}
}

func TestLoggingProvider_SinkErrorDoesNotFailCall(t *testing.T) {
	mock := NewMockProvider(MockResponse{Content: json.RawMessage(`{}`)})
	p := WithLogging(mock, "mock", &memorySink{err: errors.New("disk full")}, nil)
	if _, err := p.Generate(context.Background(), Request{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestThrottleProvider_SpacesCalls(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Content: json.RawMessage(`{}`)},
		MockResponse{Content: json.RawMessage(`{}`)},
	)
	p := WithThrottle(mock, 50*time.Millisecond)

	start := time.Now()
	for range 2 {
		if _, err := p.Generate(context.Background(), Request{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Fatalf("expected calls to be spaced, took %s", elapsed)
	}
}

func TestThrottleProvider_HonorsCancellation(t *testing.T) {
	mock := NewMockProvider(MockResponse{Content: json.RawMessage(`{}`)})
	p := WithThrottle(mock, time.Hour)

	if _, err := p.Generate(context.Background(), Request{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := p.Generate(ctx, Request{}); err == nil {
		t.Fatal("expected the second call to give up")
	}
}

type slowProvider struct{}

func (slowProvider) Generate(ctx context.Context, _ Request) (*Response, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (slowProvider) ModelID() string { return "slow" }

func TestTimeoutProvider(t *testing.T) {
	p := WithTimeout(slowProvider{}, 10*time.Millisecond)
	_, err := p.Generate(context.Background(), Request{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if WithTimeout(slowProvider{}, 0).ModelID() != "slow" {
		t.Fatal("zero timeout should return the provider unchanged")
	}
}

func TestWrap_MockChain(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinInterval = 0
	cfg.Retry = fastRetry()
	mock := NewMockProvider(
		MockResponse{Err: &ErrRateLimit{RetryAfter: time.Millisecond}},
		MockResponse{Content: json.RawMessage(`{"ok":true}`)},
	)
	sink := &memorySink{}
	p := Wrap(mock, cfg, "mock", sink, nil)

	if _, err := p.Generate(context.Background(), Request{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sink.events) != 2 {
		t.Fatalf("expected every attempt to be logged, got %d", len(sink.events))
	}
}
