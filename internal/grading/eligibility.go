package grading

import "strings"

// matrixVocabulary marks an expected solution as matrix-valued.
var matrixVocabulary = []string{"[[", "matrix", "eigen", `\begin{`}

// Eligible reports whether q should go through the symbolic checker: it must
// be procedural or application, carry an expected solution, and that solution
// must not contain a "?" placeholder.
func Eligible(q Question) bool {
	if q.Type != TypeProcedural && q.Type != TypeApplication {
		return false
	}
	expected := strings.TrimSpace(q.ExpectedSolution)
	return expected != "" && !strings.Contains(expected, "?")
}

// IsMatrixLike reports whether expected should be compared as a matrix.
func IsMatrixLike(expected string) bool {
	lower := strings.ToLower(expected)
	for _, v := range matrixVocabulary {
		if strings.Contains(lower, v) {
			return true
		}
	}
	return false
}
