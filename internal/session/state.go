package session

import (
	"encoding/json"
	"fmt"

	"github.com/Pavansyamala/agenticAItutor/internal/grading"
	"github.com/Pavansyamala/agenticAItutor/internal/lessons"
	"github.com/Pavansyamala/agenticAItutor/internal/monitor"
	"github.com/Pavansyamala/agenticAItutor/internal/store"
)

// State is the working state of one thread. It is owned by a single Run or
// Resume call and saved as a checkpoint after every stage.
type State struct {
	StudentID     string  `json:"student_id"`
	Topic         string  `json:"topic"`
	ThreadID      string  `json:"thread_id"`
	ConfidenceGap float64 `json:"confidence_gap"`

	Stage             Stage `json:"stage"`
	Cycle             int   `json:"cycle"`
	RemediationStreak int   `json:"remediation_streak"`
	ForcedStop        bool  `json:"forced_stop"`

	Lesson    *lessons.Lesson    `json:"lesson,omitempty"`
	Questions []grading.Question `json:"questions,omitempty"`
	Answers   []grading.Answer   `json:"answers,omitempty"`
	Summary   *grading.Summary   `json:"summary,omitempty"`
	Decision  *monitor.Decision  `json:"decision,omitempty"`

	// PriorQuestions holds every prompt asked in this thread.
	PriorQuestions []string `json:"prior_questions,omitempty"`

	// Mastery is the topic mastery after the last committed cycle.
	Mastery     float64 `json:"mastery"`
	PrevMastery float64 `json:"prev_mastery"`

	Cycles []CycleReport `json:"cycles,omitempty"`
}

func newState(req Request) *State {
	return &State{
		StudentID:     req.StudentID,
		Topic:         req.Topic,
		ThreadID:      req.ThreadID,
		ConfidenceGap: req.ConfidenceGap,
		Stage:         StageTeach,
	}
}

// advance moves s to the stage after the current one. A forced stop ends
// the thread.
func (s *State) advance() {
	if s.ForcedStop {
		s.Stage = StageDone
		return
	}
	s.Stage = NextStage(s.Stage, s.Decision)
}

// checkpoint renders s for the checkpoint store.
func (s *State) checkpoint() (*store.Checkpoint, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return &store.Checkpoint{
		ThreadID:          s.ThreadID,
		StudentID:         s.StudentID,
		Topic:             s.Topic,
		Stage:             string(s.Stage),
		Cycle:             s.Cycle,
		RemediationStreak: s.RemediationStreak,
		State:             raw,
	}, nil
}

// stateFromCheckpoint restores a thread. The checkpoint columns win over the
// encoded state.
func stateFromCheckpoint(cp *store.Checkpoint) (*State, error) {
	st := &State{}
	if len(cp.State) > 0 {
		if err := json.Unmarshal(cp.State, st); err != nil {
			return nil, fmt.Errorf("decode checkpoint %s: %w", cp.ThreadID, err)
		}
	}
	st.ThreadID = cp.ThreadID
	st.StudentID = cp.StudentID
	st.Topic = cp.Topic
	st.Stage = Stage(cp.Stage)
	st.Cycle = cp.Cycle
	st.RemediationStreak = cp.RemediationStreak
	if !st.Stage.Valid() {
		return nil, fmt.Errorf("checkpoint %s: unknown stage %q", cp.ThreadID, cp.Stage)
	}
	return st, nil
}
