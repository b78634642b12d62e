// Package grading scores a student's answers to an evaluation. Eligible
// questions go through the symbolic checker first; anything it cannot settle
// is handed to a fallback grader.
package grading

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"github.com/Pavansyamala/agenticAItutor/internal/symbolic"
)

// SymbolicChecker is the subset of the symbolic checker the aggregator uses.
type SymbolicChecker interface {
	VerifyEquality(student, expected string) symbolic.Result
	VerifyMatrix(student, expected string) symbolic.Result
}

// Aggregator grades whole evaluations.
type Aggregator struct {
	checker  SymbolicChecker
	fallback Fallback
	cfg      Config
	logger   *slog.Logger
}

// NewAggregator creates an Aggregator. A nil checker uses the package-level
// symbolic checker; a nil fallback awards zero marks to anything the checker
// does not accept.
func NewAggregator(checker SymbolicChecker, fallback Fallback, cfg Config, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	if checker == nil {
		checker = symbolic.New(logger)
	}
	return &Aggregator{checker: checker, fallback: fallback, cfg: cfg, logger: logger}
}

// Grade scores every question. It never fails: a question whose grading goes
// wrong earns zero marks and the rest are still graded.
func (a *Aggregator) Grade(ctx context.Context, questions []Question, answers []Answer) Summary {
	byID := make(map[string]string, len(answers))
	for _, ans := range answers {
		byID[ans.QuestionID] = ans.Text
	}

	summary := Summary{
		PerQuestion:    make(map[string]Outcome, len(questions)),
		Misconceptions: []string{},
		Order:          []string{},
	}
	seenTag := make(map[string]bool)
	var obtained, possible float64

	for _, q := range questions {
		if q.ID == "" {
			a.logger.Warn("skipping question without id", "prompt", truncate(q.Prompt, 60))
			continue
		}
		if _, dup := summary.PerQuestion[q.ID]; dup {
			a.logger.Warn("skipping duplicate question id", "qid", q.ID)
			continue
		}
		answer, ok := byID[q.ID]
		if !ok {
			a.logger.Warn("no answer for question", "qid", q.ID)
		}

		out := a.gradeOne(ctx, q, answer)
		summary.PerQuestion[q.ID] = out
		summary.Order = append(summary.Order, q.ID)
		obtained += out.Obtained
		possible += out.Max

		if out.Obtained < a.cfg.MisconceptionRatio*out.Max {
			tag := "Weakness in " + weaknessLabel(q)
			if !seenTag[tag] {
				seenTag[tag] = true
				summary.Misconceptions = append(summary.Misconceptions, tag)
			}
		}
	}

	if possible > 0 {
		summary.OverallScore = round(clamp(obtained/possible, 0, 1), 3)
	}
	return summary
}

func (a *Aggregator) gradeOne(ctx context.Context, q Question, answer string) (out Outcome) {
	maxMarks := q.Rubric.MaxOr(a.cfg.DefaultMaxMarks)
	out = Outcome{QuestionID: q.ID, Max: maxMarks, Grader: "none"}

	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("grading panicked", "qid", q.ID, "panic", r)
			out.Obtained = 0
			out.Grader = "none"
			out.Feedback = "Grading failed for this question."
		}
	}()

	var marks float64
	parsed := false
	if Eligible(q) {
		res := a.check(ctx, q, answer)
		out.SymbolicChecked = true
		out.SymbolicCorrect = res.Correct
		out.Feedback = "[Symbolic] " + res.Feedback
		if res.Parsed {
			parsed = true
			out.Grader = "symbolic"
			if res.Correct {
				marks = maxMarks
			} else {
				marks = a.cfg.PartialCredit * maxMarks
			}
		}
	}

	if !parsed || marks == 0 {
		if fb := a.runFallback(ctx, q, answer, maxMarks); fb != nil {
			marks = fb.Score
			out.Grader = fb.Grader
			out.Feedback = joinFeedback(out.Feedback, "["+graderLabel(fb.Grader)+"] "+fb.Feedback)
		} else if !parsed {
			out.Feedback = joinFeedback(out.Feedback, "Grading unavailable for this question.")
		}
	}

	out.Obtained = round(clamp(marks, 0, maxMarks), 2)
	return out
}

// check runs the symbolic checker under SymbolicTimeout. A check that panics
// or runs out of time reports an unparsed result.
func (a *Aggregator) check(ctx context.Context, q Question, answer string) symbolic.Result {
	if a.cfg.SymbolicTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.SymbolicTimeout)
		defer cancel()
	}

	done := make(chan symbolic.Result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				a.logger.Error("symbolic check panicked", "qid", q.ID, "panic", r)
				done <- symbolic.Result{Feedback: "Symbolic check failed."}
			}
		}()
		if IsMatrixLike(q.ExpectedSolution) {
			done <- a.checker.VerifyMatrix(answer, q.ExpectedSolution)
			return
		}
		done <- a.checker.VerifyEquality(answer, q.ExpectedSolution)
	}()

	select {
	case res := <-done:
		return res
	case <-ctx.Done():
		a.logger.Warn("symbolic check abandoned", "qid", q.ID, "error", ctx.Err())
		return symbolic.Result{Feedback: "Symbolic check timed out."}
	}
}

func (a *Aggregator) runFallback(ctx context.Context, q Question, answer string, maxMarks float64) *FallbackResult {
	if a.fallback == nil {
		return nil
	}
	res, err := a.fallback.Grade(ctx, FallbackRequest{Question: q, Answer: answer, Max: maxMarks})
	if err != nil {
		a.logger.Warn("fallback grading failed", "qid", q.ID, "error", err)
		return nil
	}
	return res
}

func weaknessLabel(q Question) string {
	if c := strings.TrimSpace(q.Concept); c != "" {
		return c
	}
	if q.Type != "" {
		return string(q.Type)
	}
	return "general"
}

func graderLabel(name string) string {
	switch name {
	case "llm":
		return "LLM Graded"
	case "heuristic":
		return "Heuristic"
	default:
		return name
	}
}

func joinFeedback(a, b string) string {
	if a == "" {
		return b
	}
	return a + " " + b
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
