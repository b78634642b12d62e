package problemgen

import (
	"fmt"

	"github.com/Pavansyamala/agenticAItutor/internal/grading"
)

// Validator checks a generated question for correctness.
// Implementations should be stateless and safe for concurrent use.
type Validator interface {
	// Name returns a short identifier for this validator (for error messages
	// and logging), e.g. "structural", "dedup", "math-check".
	Name() string

	// Validate checks the question and returns nil if it passes.
	Validate(q *grading.Question, input Input) *ValidationError
}

// ValidationError describes why a question failed validation.
type ValidationError struct {
	Validator  string // Name of the validator that failed
	QuestionID string
	Message    string // Human-readable description of the failure
}

func (e *ValidationError) Error() string {
	if e.QuestionID == "" {
		return fmt.Sprintf("validator %q: %s", e.Validator, e.Message)
	}
	return fmt.Sprintf("validator %q: question %s: %s", e.Validator, e.QuestionID, e.Message)
}
