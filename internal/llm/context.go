package llm

import "context"

type contextKey string

const (
	purposeKey contextKey = "llm_purpose"
	threadKey  contextKey = "llm_thread"
)

// WithPurpose attaches a purpose label ("lesson", "grading", ...) to the
// context for event logging.
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey, purpose)
}

// PurposeFrom extracts the purpose label from the context.
func PurposeFrom(ctx context.Context) string {
	if v, ok := ctx.Value(purposeKey).(string); ok {
		return v
	}
	return "unknown"
}

// WithThreadID tags model calls made under ctx with a session thread.
func WithThreadID(ctx context.Context, threadID string) context.Context {
	return context.WithValue(ctx, threadKey, threadID)
}

// ThreadIDFrom returns the session thread attached to ctx, if any.
func ThreadIDFrom(ctx context.Context) string {
	v, _ := ctx.Value(threadKey).(string)
	return v
}
