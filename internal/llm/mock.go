package llm

import (
	"context"
	"encoding/json"
	"sync"
)

// MockResponse is one scripted reply.
type MockResponse struct {
	Content json.RawMessage
	Usage   Usage
	Err     error
}

// MockJSON scripts a reply whose content is v encoded as JSON.
func MockJSON(v any) MockResponse {
	b, err := json.Marshal(v)
	if err != nil {
		return MockResponse{Err: err}
	}
	return MockResponse{Content: b}
}

// MockProvider replays scripted replies in order. Every request is kept in
// Calls along with the purpose it was tagged with. Once the script runs out,
// Generate fails with ErrProviderUnavailable, which the agents treat like an
// unreachable model.
type MockProvider struct {
	mu       sync.Mutex
	script   []MockResponse
	Calls    []Request
	purposes []string
}

// NewMockProvider creates a MockProvider that replays script.
func NewMockProvider(script ...MockResponse) *MockProvider {
	return &MockProvider{script: script}
}

// Generate implements Provider. A cancelled context fails without consuming
// a reply.
func (m *MockProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, req)
	m.purposes = append(m.purposes, PurposeFrom(ctx))
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reply, ok := m.next()
	if !ok {
		return nil, &ErrProviderUnavailable{}
	}
	if reply.Err != nil {
		return nil, reply.Err
	}
	return &Response{Content: reply.Content, Usage: reply.Usage, Model: "mock", StopReason: "end"}, nil
}

func (m *MockProvider) next() (MockResponse, bool) {
	if len(m.script) == 0 {
		return MockResponse{}, false
	}
	r := m.script[0]
	m.script = m.script[1:]
	return r, true
}

func (m *MockProvider) ModelID() string { return "mock" }

// AddResponse appends to the script.
func (m *MockProvider) AddResponse(resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, resp)
}

// Pending returns how many scripted replies are left.
func (m *MockProvider) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.script)
}

// CallCount returns the number of Generate calls made.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// Purposes returns the purpose label of every call, in call order.
func (m *MockProvider) Purposes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.purposes...)
}
