// Package problemgen generates the evaluation questions of a tutoring cycle.
package problemgen

import (
	"context"

	"github.com/Pavansyamala/agenticAItutor/internal/grading"
)

// Generator produces evaluation questions.
type Generator interface {
	// Generate returns the questions for input. Every returned question has
	// passed the configured validators. The result is never empty unless
	// an error is returned.
	Generate(ctx context.Context, input Input) ([]grading.Question, error)
}
