package session

import (
	"github.com/Pavansyamala/agenticAItutor/internal/grading"
	"github.com/Pavansyamala/agenticAItutor/internal/lessons"
	"github.com/Pavansyamala/agenticAItutor/internal/monitor"
)

// CycleReport summarizes one completed cycle.
type CycleReport struct {
	Cycle       int              `json:"cycle"`
	Score       float64          `json:"score"`
	RiskScore   float64          `json:"risk_score"`
	Decision    monitor.Decision `json:"decision"`
	PrevMastery float64          `json:"prev_mastery"`
	Mastery     float64          `json:"mastery"`
	ForcedStop  bool             `json:"forced_stop"`
}

// Result is what a finished Run or Resume reports.
type Result struct {
	ThreadID  string `json:"thread_id"`
	StudentID string `json:"student_id"`
	Topic     string `json:"topic"`

	// ReadyToAdvance is true when the last decision allowed advancing.
	ReadyToAdvance bool `json:"ready_to_advance"`
	// ForcedStop is true when the loop-safety ceiling ended the thread.
	ForcedStop bool `json:"forced_stop"`

	Decision monitor.Decision `json:"decision"`
	Summary  grading.Summary  `json:"summary"`
	Lesson   *lessons.Lesson  `json:"lesson,omitempty"`

	Mastery     float64       `json:"mastery"`
	PrevMastery float64       `json:"prev_mastery"`
	Cycles      []CycleReport `json:"cycles"`
}

// Escalated reports whether the thread ended flagged for human review.
func (r *Result) Escalated() bool {
	return r.Decision.Escalate
}

func (s *State) result() *Result {
	r := &Result{
		ThreadID:    s.ThreadID,
		StudentID:   s.StudentID,
		Topic:       s.Topic,
		ForcedStop:  s.ForcedStop,
		Lesson:      s.Lesson,
		Mastery:     s.Mastery,
		PrevMastery: s.PrevMastery,
		Cycles:      append([]CycleReport(nil), s.Cycles...),
	}
	if s.Decision != nil {
		r.Decision = *s.Decision
		r.ReadyToAdvance = s.Decision.AllowAdvance
	}
	if s.Summary != nil {
		r.Summary = *s.Summary
	}
	return r
}
