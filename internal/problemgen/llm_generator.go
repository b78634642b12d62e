package problemgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Pavansyamala/agenticAItutor/internal/grading"
	"github.com/Pavansyamala/agenticAItutor/internal/llm"
)

// ErrNoUsableQuestions is returned internally when every generated item was
// dropped.
var ErrNoUsableQuestions = errors.New("no usable questions generated")

// LLMGenerator implements Generator using the LLM provider.
type LLMGenerator struct {
	provider llm.Provider
	config   Config
	logger   *slog.Logger
}

// New creates a new LLMGenerator with the given provider and config. A nil
// provider always yields the canned question set.
func New(provider llm.Provider, cfg Config, logger *slog.Logger) *LLMGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Validators == nil {
		cfg.Validators = DefaultValidators()
	}
	return &LLMGenerator{provider: provider, config: cfg, logger: logger}
}

// questionOutput is one raw item of the LLM response before validation.
type questionOutput struct {
	QID              string          `json:"qid"`
	Type             string          `json:"type"`
	Prompt           string          `json:"prompt"`
	ExpectedSolution string          `json:"expected_solution"`
	Concept          string          `json:"concept"`
	Rubric           json.RawMessage `json:"rubric"`
}

type questionsOutput struct {
	Questions []json.RawMessage `json:"questions"`
}

// Generate produces the evaluation for input. Any generation failure yields
// the canned question set; only a cancelled context returns an error.
func (g *LLMGenerator) Generate(ctx context.Context, input Input) ([]grading.Question, error) {
	if g.provider == nil {
		return CannedQuestions(input), nil
	}
	qs, err := g.generate(ctx, input)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		g.logger.Warn("question generation failed, using canned set",
			"topic", input.Topic, "error", err)
		return CannedQuestions(input), nil
	}
	return qs, nil
}

func (g *LLMGenerator) generate(ctx context.Context, input Input) ([]grading.Question, error) {
	ctx = llm.WithPurpose(ctx, "question-gen")

	req := llm.Request{
		System: systemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildUserMessage(input, g.config)},
		},
		Schema:      QuestionSchema,
		MaxTokens:   g.config.MaxTokens,
		Temperature: g.config.Temperature,
	}

	var raw questionsOutput
	if _, err := llm.GenerateJSON(ctx, g.provider, req, &raw); err != nil {
		return nil, fmt.Errorf("LLM generation failed: %w", err)
	}

	seen := make(map[string]bool, len(raw.Questions))
	out := make([]grading.Question, 0, len(raw.Questions))
	for i, item := range raw.Questions {
		q, err := decodeQuestion(item)
		if err != nil {
			g.logger.Warn("dropped malformed question item", "index", i, "error", err)
			continue
		}
		if seen[q.ID] {
			g.logger.Warn("dropped duplicate question id", "qid", q.ID)
			continue
		}
		if verr := g.validate(&q, input); verr != nil {
			g.logger.Warn("dropped question", "qid", q.ID, "error", verr)
			continue
		}
		seen[q.ID] = true
		out = append(out, q)
	}
	if len(out) == 0 {
		return nil, ErrNoUsableQuestions
	}
	return out, nil
}

func (g *LLMGenerator) validate(q *grading.Question, input Input) *ValidationError {
	for _, v := range g.config.Validators {
		if verr := v.Validate(q, input); verr != nil {
			return verr
		}
	}
	return nil
}

// decodeQuestion converts one raw item. A missing or malformed rubric is an
// error; non-object items are rejected by the unmarshal.
func decodeQuestion(item json.RawMessage) (grading.Question, error) {
	var raw questionOutput
	if err := json.Unmarshal(item, &raw); err != nil {
		return grading.Question{}, fmt.Errorf("not a question object: %w", err)
	}
	rubric := strings.TrimSpace(string(raw.Rubric))
	if rubric == "" || rubric == "null" {
		return grading.Question{}, fmt.Errorf("question %q has no rubric", raw.QID)
	}
	var r grading.Rubric
	if err := json.Unmarshal(raw.Rubric, &r); err != nil {
		return grading.Question{}, fmt.Errorf("question %q rubric: %w", raw.QID, err)
	}
	return grading.Question{
		ID:               strings.TrimSpace(raw.QID),
		Type:             grading.QuestionType(strings.ToLower(strings.TrimSpace(raw.Type))),
		Prompt:           strings.TrimSpace(raw.Prompt),
		ExpectedSolution: strings.TrimSpace(raw.ExpectedSolution),
		Concept:          strings.TrimSpace(raw.Concept),
		Rubric:           r,
	}, nil
}
