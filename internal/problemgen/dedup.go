package problemgen

import (
	"fmt"
	"strings"

	"github.com/Pavansyamala/agenticAItutor/internal/grading"
)

// buildDedup formats prior questions for the prompt, respecting the max limit.
// Returns "None" if there are no prior questions.
func buildDedup(priorQuestions []string, max int) string {
	if len(priorQuestions) == 0 {
		return "None"
	}

	// Keep only the most recent N questions.
	if max > 0 && len(priorQuestions) > max {
		priorQuestions = priorQuestions[len(priorQuestions)-max:]
	}

	var b strings.Builder
	for i, q := range priorQuestions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, q)
	}
	return strings.TrimRight(b.String(), "\n")
}

// DedupValidator rejects questions whose prompt repeats a prior one.
type DedupValidator struct{}

func (v *DedupValidator) Name() string { return "dedup" }

func (v *DedupValidator) Validate(q *grading.Question, input Input) *ValidationError {
	key := promptKey(q.Prompt)
	for _, p := range input.PriorQuestions {
		if promptKey(p) == key {
			return &ValidationError{
				Validator:  v.Name(),
				QuestionID: q.ID,
				Message:    "prompt repeats a prior question",
			}
		}
	}
	return nil
}

// promptKey lowercases s and collapses whitespace.
func promptKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
