package grading

import (
	"fmt"
	"time"
)

// Config controls how marks are awarded.
type Config struct {
	// PartialCredit is the fraction of max marks awarded when the symbolic
	// checker parses both sides and finds them different. At 0 the fallback
	// grader decides those answers.
	PartialCredit float64 `env:"PARTIAL_CREDIT" envDefault:"0"`

	// MisconceptionRatio is the score fraction below which a question adds a
	// weakness tag.
	MisconceptionRatio float64 `env:"MISCONCEPTION_RATIO" envDefault:"0.6"`

	DefaultMaxMarks float64 `env:"DEFAULT_MAX_MARKS" envDefault:"10"`

	// MethodCredit is the share of marks the fallback grader is told to give
	// when the method is right but the final answer is wrong.
	MethodCredit float64 `env:"METHOD_CREDIT" envDefault:"0.7"`

	// SymbolicTimeout bounds a single symbolic check. A check that runs out
	// of time counts as unparsed and the fallback grader decides.
	SymbolicTimeout time.Duration `env:"SYMBOLIC_TIMEOUT" envDefault:"3s"`

	// FallbackTimeout bounds a single fallback grading call.
	FallbackTimeout time.Duration `env:"FALLBACK_TIMEOUT" envDefault:"20s"`

	MaxTokens   int     `env:"MAX_TOKENS" envDefault:"512"`
	Temperature float64 `env:"TEMPERATURE" envDefault:"0"`
}

// DefaultConfig returns the standard grading configuration.
func DefaultConfig() Config {
	return Config{
		PartialCredit:      0,
		MisconceptionRatio: 0.6,
		DefaultMaxMarks:    DefaultMaxMarks,
		MethodCredit:       0.7,
		SymbolicTimeout:    3 * time.Second,
		FallbackTimeout:    20 * time.Second,
		MaxTokens:          512,
	}
}

// Validate checks that every ratio lies in [0, 1].
func (c Config) Validate() error {
	if c.PartialCredit < 0 || c.PartialCredit > 1 {
		return fmt.Errorf("partial credit %.2f outside [0, 1]", c.PartialCredit)
	}
	if c.MisconceptionRatio < 0 || c.MisconceptionRatio > 1 {
		return fmt.Errorf("misconception ratio %.2f outside [0, 1]", c.MisconceptionRatio)
	}
	if c.MethodCredit < 0 || c.MethodCredit > 1 {
		return fmt.Errorf("method credit %.2f outside [0, 1]", c.MethodCredit)
	}
	if c.DefaultMaxMarks <= 0 {
		return fmt.Errorf("default max marks must be positive")
	}
	return nil
}
