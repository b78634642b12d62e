package symbolic

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestVerifyEquality(t *testing.T) {
	tests := []struct {
		name     string
		student  string
		expected string
		correct  bool
		parsed   bool
	}{
		{"expanded square", "x^2 + 2*x + 1", "(x+1)^2", true, true},
		{"python power", "x**2 - 1", "(x-1)*(x+1)", true, true},
		{"implicit multiplication", "2x", "x*2", true, true},
		{"implicit before paren", "2(x+1)", "2*x + 2", true, true},
		{"latex fraction", `\frac{1}{2}x`, "x/2", true, true},
		{"latex delimiters", `$\frac{x^{2}-1}{x-1}$`, "x+1", true, true},
		{"latex cdot", `3 \cdot y`, "3*y", true, true},
		{"decimal vs fraction", "0.5", "1/2", true, true},
		{"surd simplification", `\sqrt{8}`, "2*sqrt(2)", true, true},
		{"surd squared", "sqrt(2)^2", "2", true, true},
		{"imaginary unit", "I^2", "-1", true, true},
		{"half power", "x^(1/2)", "sqrt(x)", true, true},
		{"function argument order", "sin(x+1)", "sin(1+x)", true, true},
		{"assignment form", "x = 3", "3", true, true},
		{"proportional equations", "2x - 6 = 0", "x - 3 = 0", true, true},
		{"different", "x+1", "x+2", false, true},
		{"empty student", "", "x", false, false},
		{"dollar noise", "$$$", "x", false, false},
		{"unbalanced", "((x+1", "x+1", false, false},
		{"division by zero", "x/0", "x", false, false},
		{"huge exponent", "x^1000", "x", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := VerifyEquality(tt.student, tt.expected)
			assert.Equal(t, tt.correct, res.Correct, "feedback: %s", res.Feedback)
			assert.Equal(t, tt.parsed, res.Parsed, "feedback: %s", res.Feedback)
			assert.NotEmpty(t, res.Feedback)
		})
	}
}

func TestVerifyEquality_NotEquivalentFeedbackNamesExpected(t *testing.T) {
	res := VerifyEquality("x+1", "x+2")
	assert.False(t, res.Correct)
	assert.True(t, strings.Contains(res.Feedback, "x+2"))
}

func TestVerifyEquality_OversizedInput(t *testing.T) {
	big := strings.Repeat("x+", MaxInputLength) + "1"
	res := VerifyEquality(big, "x")
	assert.False(t, res.Correct)
	assert.False(t, res.Parsed)
}

func TestVerifyEquality_ExpansionIsBounded(t *testing.T) {
	for _, student := range []string{
		"(a+b+c+d)^64",
		"((a+b+c)^8)^8",
		"((12345^64)^64)^64",
	} {
		t.Run(student, func(t *testing.T) {
			done := make(chan Result, 1)
			go func() { done <- VerifyEquality(student, "1") }()
			select {
			case res := <-done:
				assert.False(t, res.Correct)
				assert.False(t, res.Parsed)
				assert.NotEmpty(t, res.Feedback)
			case <-time.After(10 * time.Second):
				t.Fatalf("VerifyEquality(%q) did not return", student)
			}
		})
	}

	res := VerifyEquality("(a+b)^6", "a^6 + 6*a^5*b + 15*a^4*b^2 + 20*a^3*b^3 + 15*a^2*b^4 + 6*a*b^5 + b^6")
	assert.True(t, res.Correct, "small expansions still compare")
}

func TestVerifyMatrix(t *testing.T) {
	tests := []struct {
		name     string
		student  string
		expected string
		correct  bool
		parsed   bool
	}{
		{"nested lists", "[[1,2],[3,4]]", "[[1, 2], [3, 4]]", true, true},
		{"matrix wrapper", "Matrix([[1,2],[3,4]])", "[[1,2],[3,4]]", true, true},
		{"rows on lines", "[1, 2]\n[3, 4]", "[[1,2],[3,4]]", true, true},
		{"semicolon rows", "1 2; 3 4", "[[1,2],[3,4]]", true, true},
		{"latex bmatrix", `\begin{bmatrix} 1 & 2 \\ 3 & 4 \end{bmatrix}`, "[[1,2],[3,4]]", true, true},
		{"symbolic entries", "[[1/2, x],[0, 1]]", "[[0.5, x],[0, 1]]", true, true},
		{"column vector", "[1, 2, 3]", "[[1],[2],[3]]", true, true},
		{"wrong entry", "[[1,2],[3,5]]", "[[1,2],[3,4]]", false, true},
		{"shape mismatch", "[[1,2],[3,4]]", "[[1,2,3],[4,5,6]]", false, true},
		{"ragged", "[[1,2],[3]]", "[[1,2],[3,4]]", false, false},
		{"empty", "", "[[1]]", false, false},
		{"not a matrix", "x+1", "[[1]]", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := VerifyMatrix(tt.student, tt.expected)
			assert.Equal(t, tt.correct, res.Correct, "feedback: %s", res.Feedback)
			assert.Equal(t, tt.parsed, res.Parsed, "feedback: %s", res.Feedback)
		})
	}
}

func TestVerifySolution(t *testing.T) {
	c := New(nil)

	res := c.VerifySolution("2, 3", "x^2 - 5x + 6 = 0", "x")
	assert.True(t, res.Correct, res.Feedback)

	res = c.VerifySolution("x = 4", "x^2 - 5x + 6 = 0", "x")
	assert.False(t, res.Correct)
	assert.True(t, res.Parsed)

	res = c.VerifySolution("", "x = 1", "x")
	assert.False(t, res.Parsed)
}
