package monitor

import (
	"github.com/Pavansyamala/agenticAItutor/internal/grading"
	"github.com/Pavansyamala/agenticAItutor/internal/mastery"
)

// Action is what the student should do next when not advancing.
type Action string

const (
	ActionNone       Action = "none"
	ActionRemedial   Action = "remedial"
	ActionPractice   Action = "practice"
	ActionReview     Action = "review"
	ActionAccelerate Action = "accelerate"
	// ActionRevision is a tutor mode some planners return as an action. It
	// routes like remedial.
	ActionRevision Action = "revision"
)

// Remediation reports whether a routes the student back into remediation.
func (a Action) Remediation() bool {
	switch a {
	case ActionRemedial, ActionPractice, ActionReview, ActionRevision:
		return true
	}
	return false
}

// RemediationPlan is a concrete plan for a student who may not advance.
type RemediationPlan struct {
	Action          Action   `json:"action"`
	Steps           []string `json:"steps"`
	RecommendedMode string   `json:"recommended_tutor_mode"`
}

// Usable reports whether the plan can be handed to a student: a remediation
// action and at least two non-empty steps.
func (p *RemediationPlan) Usable() bool {
	if p == nil || !p.Action.Remediation() {
		return false
	}
	n := 0
	for _, s := range p.Steps {
		if s != "" {
			n++
		}
	}
	return n >= 2
}

// Decision is the gate's verdict for one evaluation. AllowAdvance and a
// non-nil Remediation never occur together.
type Decision struct {
	AllowAdvance       bool             `json:"allow_advance"`
	Remediation        *RemediationPlan `json:"remediation_plan"`
	Escalate           bool             `json:"escalate"`
	Notes              string           `json:"notes"`
	RiskScore          float64          `json:"risk_score"`
	ConsecutiveMastery int              `json:"consecutive_mastery"`
	// PlanSource is "llm" or "fallback" when a plan is attached.
	PlanSource string `json:"plan_source,omitempty"`
}

// Action returns the remediation action, or ActionNone when advancing or
// when no plan is attached.
func (d *Decision) Action() Action {
	if d == nil || d.AllowAdvance || d.Remediation == nil {
		return ActionNone
	}
	return d.Remediation.Action
}

// Map renders the decision as a JSON-compatible map for audit payloads.
func (d *Decision) Map() map[string]any {
	m := map[string]any{
		"allow_advance":       d.AllowAdvance,
		"remediation_plan":    nil,
		"escalate":            d.Escalate,
		"notes":               d.Notes,
		"risk_score":          d.RiskScore,
		"consecutive_mastery": d.ConsecutiveMastery,
		"state":               string(d.State()),
	}
	if d.Remediation != nil {
		steps := make([]any, len(d.Remediation.Steps))
		for i, s := range d.Remediation.Steps {
			steps[i] = s
		}
		m["remediation_plan"] = map[string]any{
			"action":                 string(d.Remediation.Action),
			"steps":                  steps,
			"recommended_tutor_mode": d.Remediation.RecommendedMode,
		}
		m["plan_source"] = d.PlanSource
	}
	return m
}

// GateState is where an evaluation stands in the gate.
type GateState string

const (
	StateAwaitingEvaluation GateState = "awaiting_evaluation"
	StateDecidedAdvance     GateState = "decided_advance"
	StateDecidedRemediate   GateState = "decided_remediate"
	StateDecidedEscalate    GateState = "decided_escalate"
)

// State reports the gate state the decision represents. Escalation wins
// over the advance or remediate outcome.
func (d *Decision) State() GateState {
	switch {
	case d == nil:
		return StateAwaitingEvaluation
	case d.Escalate:
		return StateDecidedEscalate
	case d.AllowAdvance:
		return StateDecidedAdvance
	default:
		return StateDecidedRemediate
	}
}

// Input is everything the gate needs to decide.
type Input struct {
	StudentID string
	Topic     string
	Summary   grading.Summary
	// History holds prior overall scores for the topic, oldest first,
	// excluding the current evaluation.
	History       []float64
	ConfidenceGap float64
	Mastery       mastery.Map
}
