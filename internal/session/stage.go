package session

import "github.com/Pavansyamala/agenticAItutor/internal/monitor"

// Stage is a step of the tutoring pipeline.
type Stage string

const (
	StageTeach    Stage = "teach"
	StageGenerate Stage = "generate"
	StageGrade    Stage = "grade"
	StageDecide   Stage = "decide"
	StageDone     Stage = "done"
)

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	switch s {
	case StageTeach, StageGenerate, StageGrade, StageDecide, StageDone:
		return true
	}
	return false
}

// NextStage returns the stage that follows current. Only the decide stage
// looks at d.
func NextStage(current Stage, d *monitor.Decision) Stage {
	switch current {
	case StageTeach:
		return StageGenerate
	case StageGenerate:
		return StageGrade
	case StageGrade:
		return StageDecide
	case StageDecide:
		return route(d)
	default:
		return StageDone
	}
}

// route maps a gate decision to the next stage. Advancing (or an accelerate
// action) ends the thread; practice re-tests without a new lesson; every
// other outcome re-teaches.
func route(d *monitor.Decision) Stage {
	if d == nil {
		return StageTeach
	}
	if d.AllowAdvance {
		return StageDone
	}
	if d.Remediation == nil {
		return StageTeach
	}
	switch d.Remediation.Action {
	case monitor.ActionAccelerate:
		return StageDone
	case monitor.ActionPractice:
		return StageGenerate
	default:
		return StageTeach
	}
}
