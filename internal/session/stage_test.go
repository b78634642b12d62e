package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pavansyamala/agenticAItutor/internal/grading"
	"github.com/Pavansyamala/agenticAItutor/internal/monitor"
)

func remediate(action monitor.Action) *monitor.Decision {
	return &monitor.Decision{Remediation: &monitor.RemediationPlan{
		Action: action,
		Steps:  []string{"one", "two"},
	}}
}

func TestNextStage(t *testing.T) {
	tests := []struct {
		name    string
		current Stage
		d       *monitor.Decision
		want    Stage
	}{
		{"teach", StageTeach, nil, StageGenerate},
		{"generate", StageGenerate, nil, StageGrade},
		{"grade", StageGrade, nil, StageDecide},
		{"advance", StageDecide, &monitor.Decision{AllowAdvance: true}, StageDone},
		{"advance with escalate", StageDecide, &monitor.Decision{AllowAdvance: true, Escalate: true}, StageDone},
		{"remedial", StageDecide, remediate(monitor.ActionRemedial), StageTeach},
		{"review", StageDecide, remediate(monitor.ActionReview), StageTeach},
		{"revision", StageDecide, remediate(monitor.ActionRevision), StageTeach},
		{"practice", StageDecide, remediate(monitor.ActionPractice), StageGenerate},
		{"accelerate", StageDecide, remediate(monitor.ActionAccelerate), StageDone},
		{"no plan", StageDecide, &monitor.Decision{}, StageTeach},
		{"no decision", StageDecide, nil, StageTeach},
		{"done", StageDone, nil, StageDone},
		{"unknown", Stage("bogus"), nil, StageDone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextStage(tt.current, tt.d))
		})
	}
}

func TestAdvanceStreak(t *testing.T) {
	assert.Equal(t, 0, advanceStreak(3, &monitor.Decision{AllowAdvance: true}))
	assert.Equal(t, 4, advanceStreak(3, remediate(monitor.ActionPractice)))
	assert.Equal(t, 0, advanceStreak(3, nil))
}

func TestOverCeiling(t *testing.T) {
	cfg := DefaultConfig()
	d := remediate(monitor.ActionRemedial)

	assert.False(t, overCeiling(cfg, 4, 4, d))
	assert.True(t, overCeiling(cfg, 5, 5, d))
	assert.False(t, overCeiling(cfg, 5, 5, &monitor.Decision{AllowAdvance: true}))
	assert.True(t, overCeiling(cfg, 1, cfg.MaxCycles, d), "cycle cap")

	cfg.RemediationCeiling = 0
	cfg.MaxCycles = 0
	assert.False(t, overCeiling(cfg, 100, 100, d))
}

func TestForceStop(t *testing.T) {
	d := forceStop(monitor.Decision{
		Remediation: &monitor.RemediationPlan{
			Action:          monitor.ActionPractice,
			Steps:           []string{"Do five more problems."},
			RecommendedMode: "practice",
		},
		RiskScore: 0.4,
	})
	require.NotNil(t, d.Remediation)
	assert.False(t, d.AllowAdvance)
	assert.True(t, d.Escalate)
	assert.Equal(t, LoopSafetyNote, d.Notes)
	assert.Equal(t, monitor.ActionRemedial, d.Remediation.Action)
	assert.Equal(t, []string{LoopSafetyStep, "Do five more problems."}, d.Remediation.Steps)
	assert.Equal(t, "practice", d.Remediation.RecommendedMode)
	assert.Equal(t, 0.4, d.RiskScore)

	bare := forceStop(monitor.Decision{})
	assert.Equal(t, LoopSafetyStep, bare.Remediation.Steps[0])
	assert.GreaterOrEqual(t, len(bare.Remediation.Steps), 2)
	assert.Equal(t, "revision", bare.Remediation.RecommendedMode)
	assert.Equal(t, monitor.StateDecidedEscalate, bare.State())
}

func TestCheckpointRoundTrip(t *testing.T) {
	st := newState(Request{StudentID: "s1", Topic: "limits", ThreadID: "s1_abc", ConfidenceGap: 0.2})
	st.Stage = StageGrade
	st.Cycle = 2
	st.RemediationStreak = 2
	st.Questions = []grading.Question{{ID: "Q1", Type: grading.TypeProcedural, Prompt: "p", ExpectedSolution: "1"}}
	st.PriorQuestions = []string{"p"}

	cp, err := st.checkpoint()
	require.NoError(t, err)
	assert.Equal(t, "grade", cp.Stage)
	assert.Equal(t, 2, cp.Cycle)

	back, err := stateFromCheckpoint(cp)
	require.NoError(t, err)
	assert.Equal(t, st, back)

	cp.Stage = "wandering"
	_, err = stateFromCheckpoint(cp)
	assert.Error(t, err)
}

func TestStaticAnswers(t *testing.T) {
	src := StaticAnswers{ByID: map[string]string{"Q1": "42"}, Default: "idk"}
	got, err := src.Answers(context.Background(), AnswerRequest{Questions: []grading.Question{{ID: "Q1"}, {ID: "Q2"}}})
	require.NoError(t, err)
	assert.Equal(t, []grading.Answer{{QuestionID: "Q1", Text: "42"}, {QuestionID: "Q2", Text: "idk"}}, got)
}

func TestRequestValidate(t *testing.T) {
	assert.NoError(t, Request{StudentID: "s", Topic: "t"}.validate())
	assert.ErrorIs(t, Request{Topic: "t"}.validate(), ErrInvalidRequest)
	assert.ErrorIs(t, Request{StudentID: "s", Topic: " "}.validate(), ErrInvalidRequest)
	assert.ErrorIs(t, Request{StudentID: "s", Topic: "t", ConfidenceGap: 1.5}.validate(), ErrInvalidRequest)
}

func TestNewThreadID(t *testing.T) {
	id := NewThreadID("alice")
	assert.Regexp(t, `^alice_[0-9a-f]{32}$`, id)
	assert.NotEqual(t, id, NewThreadID("alice"))
}
