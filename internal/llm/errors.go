package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrRateLimit indicates the provider returned 429.
type ErrRateLimit struct {
	RetryAfter time.Duration
	Err        error
}

func (e *ErrRateLimit) Error() string {
	return fmt.Sprintf("rate limited (retry after %s): %v", e.RetryAfter, e.Err)
}

func (e *ErrRateLimit) Unwrap() error { return e.Err }

// ErrInvalidResponse indicates the model returned content that is not JSON
// or does not match the requested schema.
type ErrInvalidResponse struct {
	Content json.RawMessage
	Err     error
}

func (e *ErrInvalidResponse) Error() string {
	return fmt.Sprintf("invalid LLM response: %v", e.Err)
}

func (e *ErrInvalidResponse) Unwrap() error { return e.Err }

// ErrProviderUnavailable indicates the provider is down or unreachable.
type ErrProviderUnavailable struct {
	Err error
}

func (e *ErrProviderUnavailable) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("LLM provider unavailable: %v", e.Err)
	}
	return "LLM provider unavailable"
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Err }

// ErrRequestRejected indicates a 4xx response other than 429: bad key,
// unknown model, malformed request. Retrying will not help.
type ErrRequestRejected struct {
	StatusCode int
	Err        error
}

func (e *ErrRequestRejected) Error() string {
	return fmt.Sprintf("LLM request rejected (HTTP %d): %v", e.StatusCode, e.Err)
}

func (e *ErrRequestRejected) Unwrap() error { return e.Err }

// ErrMaxTokensExceeded indicates the response was cut off at MaxTokens.
type ErrMaxTokensExceeded struct {
	Content json.RawMessage
}

func (e *ErrMaxTokensExceeded) Error() string {
	return "LLM response truncated: max tokens exceeded"
}

// classifyStatus maps an HTTP status from any provider SDK to a typed error.
func classifyStatus(status int, err error) error {
	switch {
	case status == http.StatusTooManyRequests:
		return &ErrRateLimit{Err: err}
	case status == http.StatusRequestTimeout:
		return &ErrProviderUnavailable{Err: err}
	case status >= 400 && status < 500:
		return &ErrRequestRejected{StatusCode: status, Err: err}
	default:
		return &ErrProviderUnavailable{Err: err}
	}
}

// IsTransient reports whether err is worth retrying: rate limits, outages,
// timeouts and network failures. Cancellation, rejected requests, truncated
// output and malformed replies are not.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var (
		rejected *ErrRequestRejected
		maxTok   *ErrMaxTokensExceeded
		invalid  *ErrInvalidResponse
	)
	if errors.As(err, &rejected) || errors.As(err, &maxTok) || errors.As(err, &invalid) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var (
		rl      *ErrRateLimit
		unavail *ErrProviderUnavailable
	)
	if errors.As(err, &rl) || errors.As(err, &unavail) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr)
}
