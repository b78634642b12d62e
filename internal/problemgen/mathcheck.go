package problemgen

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Pavansyamala/agenticAItutor/internal/grading"
	"github.com/Pavansyamala/agenticAItutor/internal/symbolic"
)

// MathCheckValidator recomputes the expected solution of plain arithmetic
// prompts ("Evaluate 3/4 + 1/8") with the symbolic checker. Prompts it cannot
// interpret pass through silently.
type MathCheckValidator struct{}

func (v *MathCheckValidator) Name() string { return "math-check" }

func (v *MathCheckValidator) Validate(q *grading.Question, _ Input) *ValidationError {
	if !grading.Eligible(*q) || grading.IsMatrixLike(q.ExpectedSolution) {
		return nil
	}
	expr, ok := arithmeticExpr(q.Prompt)
	if !ok {
		return nil
	}
	res := symbolic.VerifyEquality(q.ExpectedSolution, expr)
	if res.Parsed && !res.Correct {
		return &ValidationError{
			Validator:  v.Name(),
			QuestionID: q.ID,
			Message:    fmt.Sprintf("computed %q but expected_solution claims %q", expr, q.ExpectedSolution),
		}
	}
	return nil
}

var (
	// arithmeticPromptRe matches a prompt that is a single instruction
	// followed by a purely numeric expression.
	arithmeticPromptRe = regexp.MustCompile(`(?i)^\s*(?:compute|evaluate|calculate|simplify|what is)\s*:?\s*([0-9+\-*/×÷^()., ]+?)\s*[?.]?\s*$`)

	operatorRe = regexp.MustCompile(`\d\s*[+\-*/×÷^]\s*[\d(]`)
)

// arithmeticExpr extracts the expression from an arithmetic prompt.
func arithmeticExpr(prompt string) (string, bool) {
	m := arithmeticPromptRe.FindStringSubmatch(prompt)
	if m == nil {
		return "", false
	}
	expr := strings.TrimSpace(m[1])
	if strings.Contains(expr, ",") || !operatorRe.MatchString(expr) {
		return "", false
	}
	expr = strings.NewReplacer("×", "*", "÷", "/").Replace(expr)
	return expr, true
}
