package llm

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// DefaultMinInterval is the minimum spacing between outbound model calls.
const DefaultMinInterval = 3800 * time.Millisecond

// ThrottleProvider spaces calls so that no two start closer than the
// configured interval, across every goroutine sharing it.
type ThrottleProvider struct {
	inner   Provider
	limiter *rate.Limiter
}

// WithThrottle wraps p with a process-wide pacing limiter. A non-positive
// interval disables pacing.
func WithThrottle(p Provider, interval time.Duration) Provider {
	if interval <= 0 {
		return p
	}
	return &ThrottleProvider{inner: p, limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

func (t *ThrottleProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return t.inner.Generate(ctx, req)
}

func (t *ThrottleProvider) ModelID() string {
	return t.inner.ModelID()
}
