package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pavansyamala/agenticAItutor/internal/grading"
	"github.com/Pavansyamala/agenticAItutor/internal/llm"
)

func summary(score float64, tags ...string) grading.Summary {
	return grading.Summary{OverallScore: score, Misconceptions: tags, PerQuestion: map[string]grading.Outcome{}}
}

type stubPlanner struct {
	res   *PlanResult
	err   error
	delay time.Duration
	calls int
}

func (s *stubPlanner) Plan(ctx context.Context, _ PlanRequest) (*PlanResult, error) {
	s.calls++
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return s.res, s.err
}

func TestPolicyValidate(t *testing.T) {
	require.NoError(t, DefaultPolicy().Validate())

	bad := []Policy{
		{MasteryThreshold: 0, ConsecRequired: 2, EscalateThreshold: 0.4},
		{MasteryThreshold: 1.2, ConsecRequired: 2, EscalateThreshold: 0.4},
		{MasteryThreshold: 0.8, ConsecRequired: 0, EscalateThreshold: 0.4},
		{MasteryThreshold: 0.8, ConsecRequired: 2, EscalateThreshold: 1},
	}
	for _, p := range bad {
		assert.Error(t, p.Validate(), "%+v", p)
	}
}

func TestDecide_ConsecutiveMasteryAdvances(t *testing.T) {
	planner := &stubPlanner{}
	g := NewGate(DefaultConfig(), planner, nil)

	d := g.Decide(context.Background(), Input{
		StudentID: "s1",
		Topic:     "algebra",
		Summary:   summary(0.82),
		History:   []float64{0.9, 0.85},
	})
	assert.True(t, d.AllowAdvance)
	assert.Nil(t, d.Remediation)
	assert.Equal(t, 3, d.ConsecutiveMastery)
	assert.False(t, d.Escalate)
	assert.Equal(t, StateDecidedAdvance, d.State())
	assert.Equal(t, ActionNone, d.Action())
	assert.Equal(t, 0, planner.calls)
}

func TestDecide_SingleHighScoreIsNotEnough(t *testing.T) {
	g := NewGate(DefaultConfig(), nil, nil)
	d := g.Decide(context.Background(), Input{Summary: summary(0.95), History: []float64{0.5}})
	assert.False(t, d.AllowAdvance)
	require.NotNil(t, d.Remediation)
	assert.GreaterOrEqual(t, len(d.Remediation.Steps), 2)
	assert.Equal(t, "fallback", d.PlanSource)
}

func TestDecide_LowScoreEscalatesRegardlessOfRisk(t *testing.T) {
	g := NewGate(DefaultConfig(), nil, nil)
	d := g.Decide(context.Background(), Input{Summary: summary(0.3)})
	assert.True(t, d.Escalate)
	assert.Less(t, d.RiskScore, RiskEscalation)
	assert.Equal(t, StateDecidedEscalate, d.State())
}

func TestDecide_HighRiskEscalates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Policy.EscalateThreshold = 0
	g := NewGate(cfg, nil, nil)
	d := g.Decide(context.Background(), Input{
		Summary:       summary(0),
		History:       []float64{1, 1, 1, 1},
		ConfidenceGap: 1,
	})
	assert.Greater(t, d.RiskScore, RiskEscalation)
	assert.True(t, d.Escalate)
}

func TestDecide_FallbackPlanOnPlannerError(t *testing.T) {
	planner := &stubPlanner{err: errors.New("provider down")}
	g := NewGate(DefaultConfig(), planner, nil)

	d := g.Decide(context.Background(), Input{Summary: summary(0.5)})
	assert.Equal(t, 1, planner.calls)
	assert.Equal(t, FallbackPlan(), d.Remediation)
	assert.Equal(t, FallbackNote, d.Notes)
	assert.Equal(t, ActionRemedial, d.Action())
	assert.Equal(t, "revision", d.Remediation.RecommendedMode)
	assert.Equal(t, StateDecidedRemediate, d.State())
}

func TestDecide_UnusablePlansFallBack(t *testing.T) {
	unusable := []RemediationPlan{
		{Action: ActionPractice, Steps: []string{"only one"}},
		{Action: ActionAccelerate, Steps: []string{"a", "b"}},
		{Action: ActionNone, Steps: []string{"a", "b"}},
		{Action: "dance", Steps: []string{"a", "b"}},
		{Action: ActionRemedial, Steps: []string{"a", ""}},
	}
	for _, plan := range unusable {
		g := NewGate(DefaultConfig(), &stubPlanner{res: &PlanResult{Plan: plan}}, nil)
		d := g.Decide(context.Background(), Input{Summary: summary(0.5)})
		assert.Equal(t, "fallback", d.PlanSource, "plan %+v", plan)
		assert.Len(t, d.Remediation.Steps, 3)
	}
}

func TestDecide_PlannerTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PlannerTimeout = 20 * time.Millisecond
	planner := &stubPlanner{
		res:   &PlanResult{Plan: RemediationPlan{Action: ActionPractice, Steps: []string{"a", "b"}}},
		delay: 500 * time.Millisecond,
	}
	g := NewGate(cfg, planner, nil)

	start := time.Now()
	d := g.Decide(context.Background(), Input{Summary: summary(0.5)})
	assert.Less(t, time.Since(start), 400*time.Millisecond)
	assert.Equal(t, "fallback", d.PlanSource)
}

func TestDecide_LLMPlanner(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockJSON(map[string]any{
		"allow_advance": true,
		"remediation_plan": map[string]any{
			"action":                 "Practice",
			"steps":                  []string{"Solve 3 factoring drills", "  ", "Check each root by substitution"},
			"recommended_tutor_mode": "",
		},
		"escalate":          false,
		"notes_for_teacher": "Execution errors in factoring.",
	}))
	g := NewGate(DefaultConfig(), NewLLMPlanner(mock, 0, 0), nil)

	d := g.Decide(context.Background(), Input{
		StudentID: "s1",
		Topic:     "quadratics",
		Summary:   summary(0.6, "Weakness in factoring"),
	})
	assert.False(t, d.AllowAdvance, "model cannot override the policy")
	require.NotNil(t, d.Remediation)
	assert.Equal(t, ActionPractice, d.Remediation.Action)
	assert.Equal(t, []string{"Solve 3 factoring drills", "Check each root by substitution"}, d.Remediation.Steps)
	assert.Equal(t, "practice", d.Remediation.RecommendedMode)
	assert.Equal(t, "Execution errors in factoring.", d.Notes)
	assert.Equal(t, "llm", d.PlanSource)

	require.Equal(t, 1, mock.CallCount())
	assert.Contains(t, mock.Calls[0].Messages[0].Content, "Weakness in factoring")
}

func TestDecide_LLMPlannerGarbageFallsBack(t *testing.T) {
	mock := llm.NewMockProvider(llm.MockResponse{Content: []byte(`"I think the student should practice."`)})
	g := NewGate(DefaultConfig(), NewLLMPlanner(mock, 0, 0), nil)
	d := g.Decide(context.Background(), Input{Summary: summary(0.5)})
	assert.Equal(t, "fallback", d.PlanSource)
}

func TestDecisionInvariants(t *testing.T) {
	g := NewGate(DefaultConfig(), nil, nil)
	scores := []float64{0, 0.1, 0.39, 0.4, 0.6, 0.79, 0.8, 0.9, 1}
	for _, h := range [][]float64{nil, {0.9}, {0.2, 0.9, 0.95}} {
		for _, s := range scores {
			d := g.Decide(context.Background(), Input{Summary: summary(s), History: h})
			if d.AllowAdvance {
				assert.Nil(t, d.Remediation)
			} else {
				require.NotNil(t, d.Remediation)
				assert.GreaterOrEqual(t, len(d.Remediation.Steps), 2)
			}
		}
	}
}

func TestDecisionMap(t *testing.T) {
	d := Decision{Remediation: FallbackPlan(), Notes: "n", PlanSource: "fallback"}
	m := d.Map()
	assert.Equal(t, false, m["allow_advance"])
	plan := m["remediation_plan"].(map[string]any)
	assert.Equal(t, "remedial", plan["action"])
	assert.Len(t, plan["steps"], 3)
	assert.Equal(t, string(StateDecidedRemediate), m["state"])

	var nilDecision *Decision
	assert.Equal(t, StateAwaitingEvaluation, nilDecision.State())
}
