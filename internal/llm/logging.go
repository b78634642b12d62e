package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Pavansyamala/agenticAItutor/internal/store"
)

// EventSink persists one record per model call.
type EventSink interface {
	AppendLLMRequest(ctx context.Context, ev store.LLMRequestEvent) error
}

// LoggingProvider is a decorator that records every call as an event and a
// structured log line.
type LoggingProvider struct {
	inner    Provider
	provider string
	sink     EventSink
	logger   *slog.Logger
}

// WithLogging wraps p with event logging. sink may be nil, in which case
// calls are only logged.
func WithLogging(p Provider, providerName string, sink EventSink, logger *slog.Logger) Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingProvider{inner: p, provider: providerName, sink: sink, logger: logger}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	purpose := PurposeFrom(ctx)

	resp, err := l.inner.Generate(ctx, req)

	ev := store.LLMRequestEvent{
		ThreadID:    ThreadIDFrom(ctx),
		Provider:    l.provider,
		Model:       l.inner.ModelID(),
		Purpose:     purpose,
		LatencyMs:   time.Since(start).Milliseconds(),
		Success:     err == nil,
		RequestBody: serializeRequest(req),
	}
	if resp != nil {
		ev.InputTokens = resp.Usage.InputTokens
		ev.OutputTokens = resp.Usage.OutputTokens
		if resp.Model != "" {
			ev.Model = resp.Model
		}
		ev.ResponseBody = string(resp.Content)
	}
	if err != nil {
		ev.ErrorMessage = err.Error()
		l.logger.Warn("llm call failed", "provider", l.provider, "model", ev.Model,
			"purpose", purpose, "latency_ms", ev.LatencyMs, "error", err)
	} else {
		l.logger.Debug("llm call", "provider", l.provider, "model", ev.Model, "purpose", purpose,
			"latency_ms", ev.LatencyMs, "input_tokens", ev.InputTokens, "output_tokens", ev.OutputTokens)
	}

	// A failed write never fails the call.
	if l.sink != nil {
		if logErr := l.sink.AppendLLMRequest(context.WithoutCancel(ctx), ev); logErr != nil {
			l.logger.Warn("failed to record llm request event", "error", logErr)
		}
	}

	return resp, err
}

func (l *LoggingProvider) ModelID() string {
	return l.inner.ModelID()
}

// serializeRequest builds a readable representation of the request.
func serializeRequest(req Request) string {
	var b strings.Builder
	if req.System != "" {
		b.WriteString("[system]\n")
		b.WriteString(req.System)
		b.WriteString("\n\n")
	}
	for _, m := range req.Messages {
		fmt.Fprintf(&b, "[%s]\n%s\n\n", m.Role, m.Content)
	}
	if req.Schema != nil {
		if def, err := json.Marshal(req.Schema.Definition); err == nil {
			fmt.Fprintf(&b, "[schema: %s]\n%s\n", req.Schema.Name, def)
		}
	}
	return b.String()
}
