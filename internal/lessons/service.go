// Package lessons plans the teaching stage of a tutoring cycle and answers
// hint requests.
package lessons

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Pavansyamala/agenticAItutor/internal/llm"
)

// DefaultTargetMastery is used when the input leaves it unset.
const DefaultTargetMastery = 0.8

// Service plans lessons with a language model and falls back to a canned
// plan when the model is unavailable.
type Service struct {
	provider   llm.Provider
	compressor *Compressor
	cfg        Config
	logger     *slog.Logger
}

// NewService creates a lesson service. A nil provider always yields the
// canned plan.
func NewService(provider llm.Provider, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{provider: provider, cfg: cfg, logger: logger}
	if provider != nil {
		s.compressor = NewCompressor(provider, DefaultCompressorConfig())
	}
	return s
}

type lessonOutput struct {
	Plan            []Step         `json:"plan"`
	ExpectedMetrics map[string]any `json:"expected_metrics"`
	Metadata        map[string]any `json:"metadata"`
}

// Teach plans a lesson. It never fails: any model problem yields the canned
// plan with Fallback set.
func (s *Service) Teach(ctx context.Context, in Input) Lesson {
	if in.TargetMastery <= 0 {
		in.TargetMastery = DefaultTargetMastery
	}
	if s.provider == nil {
		return FallbackLesson(in)
	}

	lesson, err := s.generate(ctx, in)
	if err != nil {
		s.logger.Warn("lesson generation failed, using canned plan",
			"topic", in.Topic, "student", in.StudentID, "error", err)
		return FallbackLesson(in)
	}
	return *lesson
}

func (s *Service) generate(ctx context.Context, in Input) (*Lesson, error) {
	misconceptions := s.misconceptionContext(ctx, in.Misconceptions)
	ctx = llm.WithPurpose(ctx, "lesson")

	req := llm.Request{
		System: lessonSystemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildLessonUserMessage(in, misconceptions, s.cfg.MaxLessonMinutes)},
		},
		Schema:      LessonSchema,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	}

	var out lessonOutput
	if _, err := llm.GenerateJSON(ctx, s.provider, req, &out); err != nil {
		return nil, fmt.Errorf("lesson generation: %w", err)
	}

	plan := make([]Step, 0, len(out.Plan))
	for _, st := range out.Plan {
		st.Step = strings.TrimSpace(st.Step)
		st.Content = strings.TrimSpace(st.Content)
		if st.Step == "" && st.Content == "" {
			continue
		}
		if st.DurationMin <= 0 {
			st.DurationMin = 5
		}
		plan = append(plan, st)
	}
	if len(plan) == 0 {
		return nil, fmt.Errorf("lesson generation: empty plan")
	}

	if out.ExpectedMetrics == nil {
		out.ExpectedMetrics = map[string]any{}
	}
	if out.Metadata == nil {
		out.Metadata = map[string]any{}
	}
	return &Lesson{
		Topic:           in.Topic,
		Plan:            plan,
		ExpectedMetrics: out.ExpectedMetrics,
		Metadata:        out.Metadata,
	}, nil
}

// misconceptionContext renders the misconception list for the prompt,
// compressing it when it is too long.
func (s *Service) misconceptionContext(ctx context.Context, items []string) string {
	joined := joinMisconceptions(items)
	if s.cfg.SummaryThreshold <= 0 || len(joined) <= s.cfg.SummaryThreshold || s.compressor == nil {
		return joined
	}
	summary, err := s.compressor.Summarize(ctx, items)
	if err != nil {
		s.logger.Warn("misconception compression failed, truncating", "error", err)
		return truncateList(items, s.cfg.SummaryThreshold)
	}
	return summary
}

type hintOutput struct {
	Hint string `json:"hint"`
}

// Hint returns a short hint for question. It never fails.
func (s *Service) Hint(ctx context.Context, question string) string {
	if s.provider == nil || strings.TrimSpace(question) == "" {
		return FallbackHint
	}
	ctx = llm.WithPurpose(ctx, "hint")

	var out hintOutput
	_, err := llm.GenerateJSON(ctx, s.provider, llm.Request{
		System:      hintSystemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: "Question: " + question}},
		Schema:      HintSchema,
		MaxTokens:   256,
		Temperature: s.cfg.Temperature,
	}, &out)
	if err != nil || strings.TrimSpace(out.Hint) == "" {
		s.logger.Warn("hint generation failed, using canned hint", "error", err)
		return FallbackHint
	}
	return strings.TrimSpace(out.Hint)
}
