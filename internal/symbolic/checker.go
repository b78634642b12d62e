// Package symbolic decides whether a student's mathematical answer is
// equivalent to the expected solution. Expressions are parsed from plain
// notation or LaTeX and reduced to exact rational functions, so equivalence is
// exact rather than numeric.
package symbolic

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// MaxInputLength caps the size of an expression the checker will parse.
const MaxInputLength = 4000

// Result is the outcome of a single verification.
type Result struct {
	// Correct is true only when both sides parsed and are equivalent.
	Correct bool

	// Parsed reports whether both sides could be interpreted. A false value
	// tells the grader to fall back to another grading path.
	Parsed bool

	Feedback string
}

// Checker verifies symbolic answers. The zero value is ready to use.
type Checker struct {
	logger *slog.Logger
}

// New returns a Checker that logs parse failures to logger.
func New(logger *slog.Logger) *Checker {
	return &Checker{logger: logger}
}

var defaultChecker = &Checker{}

// VerifyEquality checks two scalar expressions with the default checker.
func VerifyEquality(student, expected string) Result {
	return defaultChecker.VerifyEquality(student, expected)
}

// VerifyMatrix checks two matrices with the default checker.
func VerifyMatrix(student, expected string) Result {
	return defaultChecker.VerifyMatrix(student, expected)
}

func (c *Checker) log() *slog.Logger {
	if c == nil || c.logger == nil {
		return slog.Default()
	}
	return c.logger
}

// VerifyEquality reports whether student and expected denote the same
// expression. Either side may be an equation: "x = rhs" with a bare variable
// on the left compares rhs, any other equation compares lhs - rhs. When both
// sides are general equations they match if one is a constant multiple of the
// other.
func (c *Checker) VerifyEquality(student, expected string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = c.recovered("symbolic", r, parseFailure())
		}
	}()

	s, sEq, err := c.parseSide(student)
	if err != nil {
		c.log().Debug("symbolic parse failed", "side", "student", "error", err)
		return parseFailure()
	}
	e, eEq, err := c.parseSide(expected)
	if err != nil {
		c.log().Debug("symbolic parse failed", "side", "expected", "error", err)
		return parseFailure()
	}

	equal := s.sub(e).isZero()
	if !equal && sEq && eEq {
		equal = s.proportional(e)
	}
	if equal {
		return Result{Correct: true, Parsed: true, Feedback: "Perfect! Your expression is mathematically equivalent."}
	}
	return Result{Parsed: true, Feedback: fmt.Sprintf("Not equivalent. Expected form: %s", strings.TrimSpace(expected))}
}

// VerifySolution reports whether every value in student (comma separated, or
// written as "x = v") satisfies equation when substituted for variable.
func (c *Checker) VerifySolution(student, equation, variable string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = c.recovered("symbolic", r, parseFailure())
		}
	}()
	if variable == "" {
		variable = "x"
	}
	values := splitSolutions(student, variable)
	if len(values) == 0 {
		return parseFailure()
	}
	lhs, rhs, isEq := splitEquation(equation)
	for _, v := range values {
		val, err := (&converter{}).parseExpr(v)
		if err != nil {
			return parseFailure()
		}
		conv := &converter{bindings: map[string]*ratfunc{variable: val}}
		l, err := conv.parseExpr(lhs)
		if err != nil {
			return parseFailure()
		}
		diff := l
		if isEq {
			r, err := conv.parseExpr(rhs)
			if err != nil {
				return parseFailure()
			}
			diff = l.sub(r)
		}
		if !diff.isZero() {
			return Result{Parsed: true, Feedback: fmt.Sprintf("Incorrect. %s = %s does not satisfy %s", variable, v, equation)}
		}
	}
	return Result{Correct: true, Parsed: true, Feedback: "Solution is correct!"}
}

// parseSide parses one answer, reporting whether it was a general equation.
func (c *Checker) parseSide(s string) (*ratfunc, bool, error) {
	if len(s) > MaxInputLength {
		return nil, false, fmt.Errorf("expression exceeds %d characters", MaxInputLength)
	}
	conv := &converter{}
	lhs, rhs, isEq := splitEquation(s)
	if !isEq {
		v, err := conv.parseExpr(s)
		return v, false, err
	}
	if isBareVariable(lhs) {
		v, err := conv.parseExpr(rhs)
		return v, false, err
	}
	l, err := conv.parseExpr(lhs)
	if err != nil {
		return nil, false, err
	}
	r, err := conv.parseExpr(rhs)
	if err != nil {
		return nil, false, err
	}
	return l.sub(r), true, nil
}

// recovered turns a panic from the parser or the polynomial arithmetic into
// a parse failure.
func (c *Checker) recovered(kind string, r any, failure Result) Result {
	if err, ok := r.(error); ok && errors.Is(err, errTooComplex) {
		c.log().Debug(kind+" check abandoned", "error", err)
		return Result{Feedback: "Expression is too large to compare symbolically."}
	}
	c.log().Warn(kind+" check panicked", "panic", r)
	return failure
}

func parseFailure() Result {
	return Result{Feedback: "Could not parse your symbolic answer. Check syntax and LaTeX format."}
}

// splitEquation splits s on a single "=" that is not part of "==", "<=",
// ">=" or "!=".
func splitEquation(s string) (lhs, rhs string, ok bool) {
	for i := 0; i < len(s); i++ {
		if s[i] != '=' {
			continue
		}
		if i+1 < len(s) && s[i+1] == '=' {
			return s, "", false
		}
		if i > 0 && strings.ContainsRune("=<>!", rune(s[i-1])) {
			return s, "", false
		}
		if strings.Count(s, "=") != 1 {
			return s, "", false
		}
		return s[:i], s[i+1:], true
	}
	return s, "", false
}

func isBareVariable(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || !isIdentStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isIdentPart(s[i]) {
			return false
		}
	}
	return !knownFunctions[s]
}

func splitSolutions(s, variable string) []string {
	s = strings.NewReplacer(" or ", ",", ";", ",").Replace(s)
	var out []string
	for _, part := range splitTopLevel(s, ',') {
		part = strings.TrimSpace(part)
		if lhs, rhs, ok := splitEquation(part); ok && strings.TrimSpace(lhs) == variable {
			part = strings.TrimSpace(rhs)
		}
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// splitTopLevel splits s on sep outside of any (), [] or {} nesting.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case sep:
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}
