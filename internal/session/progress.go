package session

import (
	"github.com/Pavansyamala/agenticAItutor/internal/monitor"
)

// LoopSafetyStep is prepended to the remediation plan of a forced stop.
const LoopSafetyStep = "Please schedule human intervention."

// LoopSafetyNote replaces the decision notes of a forced stop.
const LoopSafetyNote = "Multiple remediation cycles detected; escalate to human."

// advanceStreak updates the consecutive remediation count after a decision.
func advanceStreak(streak int, d *monitor.Decision) int {
	if d == nil || d.AllowAdvance {
		return 0
	}
	return streak + 1
}

// overCeiling reports whether the thread must stop: the streak passed the
// remediation ceiling or the thread used up its cycles without advancing.
func overCeiling(cfg Config, streak, cycle int, d *monitor.Decision) bool {
	if d == nil || d.AllowAdvance {
		return false
	}
	if cfg.RemediationCeiling > 0 && streak > cfg.RemediationCeiling {
		return true
	}
	return cfg.MaxCycles > 0 && cycle >= cfg.MaxCycles
}

// forceStop turns d into the loop-safety decision. The gate's plan is kept
// behind the intervention step so the plan still has at least two steps.
func forceStop(d monitor.Decision) monitor.Decision {
	plan := &monitor.RemediationPlan{
		Action:          monitor.ActionRemedial,
		Steps:           []string{LoopSafetyStep},
		RecommendedMode: "revision",
	}
	if d.Remediation != nil {
		plan.Steps = append(plan.Steps, d.Remediation.Steps...)
		if d.Remediation.RecommendedMode != "" {
			plan.RecommendedMode = d.Remediation.RecommendedMode
		}
	}
	if len(plan.Steps) < 2 {
		plan.Steps = append(plan.Steps, monitor.FallbackPlan().Steps...)
	}
	d.AllowAdvance = false
	d.Remediation = plan
	d.Escalate = true
	d.Notes = LoopSafetyNote
	return d
}
