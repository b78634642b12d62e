package grading

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/Pavansyamala/agenticAItutor/internal/llm"
)

// FallbackRequest asks a fallback grader to score one answer.
type FallbackRequest struct {
	Question Question
	Answer   string
	Max      float64
}

// FallbackResult is a fallback grader's verdict. Score is in [0, Max].
type FallbackResult struct {
	Score    float64
	Feedback string
	Grader   string
}

// Fallback grades answers the symbolic checker could not settle.
type Fallback interface {
	Grade(ctx context.Context, req FallbackRequest) (*FallbackResult, error)
}

// Chain tries each fallback in order and returns the first success.
type Chain []Fallback

// Grade implements Fallback.
func (c Chain) Grade(ctx context.Context, req FallbackRequest) (*FallbackResult, error) {
	var errs []error
	for _, f := range c {
		if f == nil {
			continue
		}
		res, err := f.Grade(ctx, req)
		if err == nil && res != nil {
			return res, nil
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil, errors.New("no fallback grader available")
	}
	return nil, errors.Join(errs...)
}

// fallbackSchema is the JSON shape the grading model must return.
var fallbackSchema = &llm.Schema{
	Name:        "answer-grade",
	Description: "Marks awarded for a single student answer",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"score": map[string]any{
				"type":        "number",
				"description": "Marks awarded, between 0 and max",
			},
			"max": map[string]any{
				"type":        "number",
				"description": "Maximum marks for the question",
			},
			"feedback": map[string]any{
				"type":        "string",
				"description": "One or two sentences explaining the marks",
			},
		},
		"required":             []any{"score", "max", "feedback"},
		"additionalProperties": false,
	},
}

const fallbackSystemPrompt = `You are a strict but fair mathematics examiner grading a single answer.

Rules:
- Grade the student's answer against the expected solution and rubric.
- Award full marks only when the final answer and the reasoning are both correct.
- Method correct but final answer wrong: %d-%d%% of the marks.
- Partially correct working: 30-50%% of the marks.
- Only the relevant concepts identified: 10-20%% of the marks.
- Blank or irrelevant answers: 0.
- Never exceed the maximum marks.
- Return ONLY a JSON object with "score", "max" and "feedback".`

// LLMGrader grades answers with a language model.
type LLMGrader struct {
	provider llm.Provider
	cfg      Config
}

// NewLLMGrader creates a model-backed fallback grader.
func NewLLMGrader(provider llm.Provider, cfg Config) *LLMGrader {
	return &LLMGrader{provider: provider, cfg: cfg}
}

// Grade implements Fallback.
func (g *LLMGrader) Grade(ctx context.Context, req FallbackRequest) (*FallbackResult, error) {
	if g.provider == nil {
		return nil, errors.New("llm grader: no provider")
	}
	if g.cfg.FallbackTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.FallbackTimeout)
		defer cancel()
	}
	ctx = llm.WithPurpose(ctx, "grading")

	hi := int(math.Round(g.cfg.MethodCredit * 100))
	lo := max(hi-20, 0)
	var out struct {
		Score    float64 `json:"score"`
		Max      float64 `json:"max"`
		Feedback string  `json:"feedback"`
	}
	_, err := llm.GenerateJSON(ctx, g.provider, llm.Request{
		System: fmt.Sprintf(fallbackSystemPrompt, lo, hi),
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildGradingMessage(req)},
		},
		Schema:      fallbackSchema,
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("llm grader: %w", err)
	}

	score := out.Score
	if out.Max > 0 && out.Max != req.Max {
		score = score / out.Max * req.Max
	}
	return &FallbackResult{
		Score:    clamp(score, 0, req.Max),
		Feedback: strings.TrimSpace(out.Feedback),
		Grader:   "llm",
	}, nil
}

func buildGradingMessage(req FallbackRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question type: %s\n", req.Question.Type)
	fmt.Fprintf(&b, "Question: %s\n", req.Question.Prompt)
	fmt.Fprintf(&b, "Expected solution: %s\n", req.Question.ExpectedSolution)
	if len(req.Question.Rubric.Parts) > 0 {
		b.WriteString("Rubric:\n")
		for _, p := range req.Question.Rubric.Parts {
			fmt.Fprintf(&b, "- %s: %g marks\n", p.Name, p.Marks)
		}
	}
	fmt.Fprintf(&b, "Maximum marks: %g\n\n", req.Max)
	answer := strings.TrimSpace(req.Answer)
	if answer == "" {
		answer = "(no answer)"
	}
	fmt.Fprintf(&b, "Student answer:\n%s\n", answer)
	return b.String()
}

// HeuristicGrader scores by key-term overlap with the expected solution. It
// never fails and is used when no model is reachable.
type HeuristicGrader struct{}

// Grade implements Fallback.
func (HeuristicGrader) Grade(_ context.Context, req FallbackRequest) (*FallbackResult, error) {
	answer := normalizeText(req.Answer)
	if answer == "" {
		return &FallbackResult{Score: 0, Feedback: "No answer provided.", Grader: "heuristic"}, nil
	}
	expected := normalizeText(req.Question.ExpectedSolution)
	if expected == "" {
		return &FallbackResult{Score: 0, Feedback: "No reference solution to compare against.", Grader: "heuristic"}, nil
	}
	if strings.Contains(answer, expected) {
		return &FallbackResult{Score: req.Max, Feedback: "Answer matches the reference solution.", Grader: "heuristic"}, nil
	}

	terms := keyTerms(expected)
	if len(terms) == 0 {
		return &FallbackResult{Score: 0, Feedback: "Answer does not match the reference solution.", Grader: "heuristic"}, nil
	}
	have := make(map[string]bool)
	for _, w := range strings.Fields(answer) {
		have[w] = true
	}
	hits := 0
	for _, t := range terms {
		if have[t] {
			hits++
		}
	}
	score := math.Round(req.Max*float64(hits)/float64(len(terms))*100) / 100
	return &FallbackResult{
		Score:    clamp(score, 0, req.Max),
		Feedback: fmt.Sprintf("Matched %d of %d key terms from the reference solution.", hits, len(terms)),
		Grader:   "heuristic",
	}, nil
}

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "that": true, "this": true,
	"with": true, "are": true, "is": true, "of": true, "to": true, "a": true,
	"an": true, "in": true, "on": true, "by": true, "be": true, "it": true,
	"as": true, "so": true, "we": true, "its": true, "from": true,
}

// keyTerms returns the distinct non-trivial words of s in order.
func keyTerms(s string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, w := range strings.Fields(s) {
		if len(w) < 2 || stopWords[w] || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

// normalizeText lowercases s and replaces punctuation other than math
// operators with spaces.
func normalizeText(s string) string {
	s = strings.ToLower(s)
	s = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			return r
		case strings.ContainsRune("+-*/^=().", r):
			return r
		default:
			return ' '
		}
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
