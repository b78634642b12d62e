package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Pavansyamala/agenticAItutor/internal/llm"
)

// FallbackNote accompanies the fixed remediation plan.
const FallbackNote = "Student shows weakness in the topic; recommend human review if no improvement after remediation."

// FallbackPlan returns the fixed plan used whenever no usable plan can be
// generated.
func FallbackPlan() *RemediationPlan {
	return &RemediationPlan{
		Action: ActionRemedial,
		Steps: []string{
			"Revise the core definition and relationships for the topic (read a focused summary).",
			"Work through 3 targeted practice problems with step annotations.",
			"Attempt a multi-representation exercise (algebraic + geometric) and check intermediate steps.",
		},
		RecommendedMode: "revision",
	}
}

// PlanRequest is the context a planner gets for a student who may not
// advance.
type PlanRequest struct {
	Input        Input
	Policy       Policy
	RiskScore    float64
	Consecutive  int
	Escalate     bool
	RecentScores []float64
}

// PlanResult is a proposed plan with a note for the teacher.
type PlanResult struct {
	Plan  RemediationPlan
	Notes string
}

// Planner proposes remediation plans.
type Planner interface {
	Plan(ctx context.Context, req PlanRequest) (*PlanResult, error)
}

// RemediationSchema is the JSON shape the remediation model must return.
var RemediationSchema = &llm.Schema{
	Name:        "remediation-plan",
	Description: "Advancement decision and remediation plan for a student",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"allow_advance": map[string]any{"type": "boolean"},
			"remediation_plan": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"action": map[string]any{
						"type": "string",
						"enum": []any{"remedial", "practice", "review", "accelerate"},
					},
					"steps": map[string]any{
						"type":     "array",
						"items":    map[string]any{"type": "string"},
						"minItems": 2,
					},
					"recommended_tutor_mode": map[string]any{
						"type": "string",
						"enum": []any{"teaching", "practice", "revision", "doubt"},
					},
				},
				"required":             []any{"action", "steps", "recommended_tutor_mode"},
				"additionalProperties": false,
			},
			"escalate": map[string]any{"type": "boolean"},
			"notes_for_teacher": map[string]any{
				"type":        "string",
				"description": "One to three sentence summary for the teacher",
			},
		},
		"required":             []any{"allow_advance", "remediation_plan", "escalate", "notes_for_teacher"},
		"additionalProperties": false,
	},
}

const plannerSystemPrompt = `You are the progress monitor of an adaptive mathematics tutor.
You receive a student's evaluation summary, profile snapshot and the advancement policy.
The student has NOT met the policy for advancing. Propose a short remediation plan.

Rules:
- action is one of "remedial", "practice", "review".
- Use "practice" when the concepts are understood but execution is shaky.
- Use "remedial" when misconceptions show the concept itself is not understood.
- Give 2 to 4 concrete steps that target the listed misconceptions.
- recommended_tutor_mode is one of "teaching", "practice", "revision", "doubt".
- notes_for_teacher is a 1 to 3 sentence summary.
- Return ONLY the JSON object.`

// LLMPlanner asks a language model for remediation plans.
type LLMPlanner struct {
	provider    llm.Provider
	maxTokens   int
	temperature float64
}

// NewLLMPlanner creates a model-backed planner.
func NewLLMPlanner(provider llm.Provider, maxTokens int, temperature float64) *LLMPlanner {
	if maxTokens <= 0 {
		maxTokens = 768
	}
	return &LLMPlanner{provider: provider, maxTokens: maxTokens, temperature: temperature}
}

type plannerOutput struct {
	AllowAdvance bool             `json:"allow_advance"`
	Plan         *RemediationPlan `json:"remediation_plan"`
	Escalate     bool             `json:"escalate"`
	Notes        string           `json:"notes_for_teacher"`
}

// Plan implements Planner.
func (p *LLMPlanner) Plan(ctx context.Context, req PlanRequest) (*PlanResult, error) {
	if p.provider == nil {
		return nil, errors.New("remediation planner: no provider")
	}
	ctx = llm.WithPurpose(ctx, "remediation")

	payload, err := json.Marshal(plannerPayload(req))
	if err != nil {
		return nil, fmt.Errorf("encode remediation payload: %w", err)
	}

	var out plannerOutput
	if _, err := llm.GenerateJSON(ctx, p.provider, llm.Request{
		System:      plannerSystemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: string(payload)}},
		Schema:      RemediationSchema,
		MaxTokens:   p.maxTokens,
		Temperature: p.temperature,
	}, &out); err != nil {
		return nil, fmt.Errorf("remediation planner: %w", err)
	}
	if out.Plan == nil {
		return nil, errors.New("remediation planner: no plan in response")
	}

	plan := *out.Plan
	plan.Action = Action(strings.ToLower(strings.TrimSpace(string(plan.Action))))
	plan.Steps = cleanSteps(plan.Steps)
	if plan.RecommendedMode == "" {
		plan.RecommendedMode = defaultMode(plan.Action)
	}
	return &PlanResult{Plan: plan, Notes: strings.TrimSpace(out.Notes)}, nil
}

func plannerPayload(req PlanRequest) map[string]any {
	in := req.Input
	perQuestion := make(map[string]any, len(in.Summary.PerQuestion))
	for id, o := range in.Summary.PerQuestion {
		perQuestion[id] = map[string]any{
			"obtained": o.Obtained,
			"possible": o.Max,
			"feedback": o.Feedback,
		}
	}
	return map[string]any{
		"student_id": in.StudentID,
		"topic":      in.Topic,
		"profile_snapshot": map[string]any{
			"mastery_map":   in.Mastery,
			"recent_scores": req.RecentScores,
		},
		"eval_summary": map[string]any{
			"overall_score":  in.Summary.OverallScore,
			"per_question":   perQuestion,
			"misconceptions": in.Summary.Misconceptions,
			"confidence_gap": in.ConfidenceGap,
		},
		"policy":     req.Policy,
		"risk_score": req.RiskScore,
	}
}

func cleanSteps(steps []string) []string {
	out := steps[:0]
	for _, s := range steps {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func defaultMode(a Action) string {
	if a == ActionPractice {
		return "practice"
	}
	return "revision"
}
