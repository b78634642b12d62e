package llm

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// RetryConfig configures retry behavior for transient failures.
type RetryConfig struct {
	MaxAttempts int           `env:"MAX_ATTEMPTS" envDefault:"3"`
	InitialWait time.Duration `env:"INITIAL_WAIT" envDefault:"1s"`
	MaxWait     time.Duration `env:"MAX_WAIT" envDefault:"10s"`
	Multiplier  float64       `env:"MULTIPLIER" envDefault:"2"`
}

// RetryProvider is a decorator that retries transient errors with
// exponential backoff and jitter.
type RetryProvider struct {
	inner  Provider
	config RetryConfig
}

// WithRetry wraps a Provider with retry logic.
func WithRetry(p Provider, cfg RetryConfig) Provider {
	return &RetryProvider{inner: p, config: cfg}
}

func (r *RetryProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	return Retry(ctx, r.config, func(ctx context.Context) (*Response, error) {
		return r.inner.Generate(ctx, req)
	})
}

func (r *RetryProvider) ModelID() string {
	return r.inner.ModelID()
}

// Retry calls fn until it succeeds, returns a non-transient error, or
// cfg.MaxAttempts is reached. An invalid response is retried once.
func Retry[T any](ctx context.Context, cfg RetryConfig, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error
	invalidRetried := false
	attempts := max(cfg.MaxAttempts, 1)

	for attempt := range attempts {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if ctx.Err() != nil || !shouldRetry(err, &invalidRetried) {
			return zero, err
		}
		if attempt == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(backoff(cfg, attempt, err)):
		}
	}

	return zero, lastErr
}

func shouldRetry(err error, invalidRetried *bool) bool {
	var invResp *ErrInvalidResponse
	if errors.As(err, &invResp) {
		if *invalidRetried {
			return false
		}
		*invalidRetried = true
		return true
	}
	return IsTransient(err)
}

// backoff computes the wait before the next attempt.
func backoff(cfg RetryConfig, attempt int, err error) time.Duration {
	var rl *ErrRateLimit
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		return rl.RetryAfter
	}

	mult := cfg.Multiplier
	if mult < 1 {
		mult = 1
	}
	wait := float64(cfg.InitialWait) * math.Pow(mult, float64(attempt))
	if cfg.MaxWait > 0 && wait > float64(cfg.MaxWait) {
		wait = float64(cfg.MaxWait)
	}

	// ±20% jitter.
	wait += wait * 0.2 * (2*rand.Float64() - 1)
	if wait < 0 {
		wait = 0
	}
	return time.Duration(wait)
}
