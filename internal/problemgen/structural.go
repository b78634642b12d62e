package problemgen

import (
	"strings"

	"github.com/Pavansyamala/agenticAItutor/internal/grading"
)

// StructuralValidator checks that required fields are present, within
// length limits, and have valid enum values.
type StructuralValidator struct{}

func (v *StructuralValidator) Name() string { return "structural" }

func (v *StructuralValidator) Validate(q *grading.Question, _ Input) *ValidationError {
	fail := func(msg string) *ValidationError {
		return &ValidationError{Validator: v.Name(), QuestionID: q.ID, Message: msg}
	}
	if strings.TrimSpace(q.ID) == "" {
		return fail("qid is empty")
	}
	if q.Type == "" {
		return fail("type is empty")
	}
	if !q.Type.IsValid() {
		return fail("unknown type " + string(q.Type))
	}
	if strings.TrimSpace(q.Prompt) == "" {
		return fail("prompt is empty")
	}
	if len(q.Prompt) > 2000 {
		return fail("prompt exceeds 2000 characters")
	}
	if strings.TrimSpace(q.ExpectedSolution) == "" {
		return fail("expected_solution is empty")
	}
	if len(q.ExpectedSolution) > 2000 {
		return fail("expected_solution exceeds 2000 characters")
	}
	for _, p := range q.Rubric.Parts {
		if p.Marks < 0 {
			return fail("rubric part " + p.Name + " has negative marks")
		}
	}
	if q.Rubric.FullMarks < 0 {
		return fail("rubric full_marks is negative")
	}
	return nil
}
