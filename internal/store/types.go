package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Pavansyamala/agenticAItutor/internal/mastery"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	StudentID string
	ThreadID  string
	Topic     string
	Kind      string    // event type or audit kind
	Limit     int       // max results (0 = unlimited)
	After     int64     // sequence > After
	From      time.Time // created_at >= From
}

// Profile is a student's long-lived record.
type Profile struct {
	StudentID      string
	Name           string
	OverallScore   float64
	RiskScore      float64
	Misconceptions []string
	Mastery        mastery.Map
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// HistoryEvent is one entry of a student's learning history.
type HistoryEvent struct {
	Sequence  int64
	StudentID string
	ThreadID  string
	Topic     string
	EventType string
	// Score is set for eval_completed events.
	Score     *float64
	Payload   map[string]any
	CreatedAt time.Time
}

// AuditRecord is an immutable record of a decision the system made.
type AuditRecord struct {
	ID        string
	Sequence  int64
	StudentID string
	ThreadID  string
	Topic     string
	Kind      string
	Payload   map[string]any
	CreatedAt time.Time
}

// Evaluation is a graded set of questions and answers.
type Evaluation struct {
	ID           string
	StudentID    string
	ThreadID     string
	Topic        string
	Questions    json.RawMessage
	Answers      json.RawMessage
	Grading      json.RawMessage
	OverallScore float64
	CreatedAt    time.Time
}

// Checkpoint is the resumable state of a session thread.
type Checkpoint struct {
	ThreadID          string
	StudentID         string
	Topic             string
	Stage             string
	Cycle             int
	RemediationStreak int
	State             json.RawMessage
	UpdatedAt         time.Time
}

// CycleRecord is everything one teach-generate-grade-decide cycle writes.
type CycleRecord struct {
	StudentID      string
	ThreadID       string
	Topic          string
	Score          float64
	RiskScore      float64
	Misconceptions []string
	// Decision is stored as the audit payload of kind "monitor_decision".
	Decision map[string]any
	// LoopSafety, when set, is stored as a "loop_safety_stop" audit record.
	LoopSafety map[string]any
	Evaluation *Evaluation
	// Checkpoint, when set, is called with the cycle's result just before
	// commit. The checkpoint it returns is saved in the same transaction, so
	// a resumed thread never replays a committed cycle.
	Checkpoint func(*CycleResult) (*Checkpoint, error)
}

// CycleResult reports what CommitCycle wrote.
type CycleResult struct {
	PrevMastery  float64
	Mastery      float64
	EvaluationID string
	AuditID      string
}

// LLMRequestEvent is one recorded model call.
type LLMRequestEvent struct {
	ID           int64
	Sequence     int64
	ThreadID     string
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
	CreatedAt    time.Time
}

// LLMUsage aggregates model calls for one model and purpose.
type LLMUsage struct {
	Model        string
	Purpose      string
	Calls        int
	Failures     int
	InputTokens  int64
	OutputTokens int64
	AvgLatencyMs float64
}

// ProfileRepo reads and writes student profiles and mastery.
type ProfileRepo interface {
	// Get returns the profile, or nil if the student is unknown.
	Get(ctx context.Context, studentID string) (*Profile, error)
	Create(ctx context.Context, p *Profile) error
	// Ensure returns the profile, creating an empty one when missing.
	Ensure(ctx context.Context, studentID string) (*Profile, error)
	List(ctx context.Context) ([]Profile, error)
	// UpdateMastery applies score to topic and returns the new value.
	UpdateMastery(ctx context.Context, studentID, topic string, score float64) (float64, error)
	MasteryMap(ctx context.Context, studentID string) (mastery.Map, error)
	// RecentScores returns up to n eval_completed scores for the topic,
	// oldest first.
	RecentScores(ctx context.Context, studentID, topic string, n int) ([]float64, error)
}

// HistoryRepo appends and queries learning history.
type HistoryRepo interface {
	Append(ctx context.Context, ev *HistoryEvent) error
	Query(ctx context.Context, opts QueryOpts) ([]HistoryEvent, error)
}

// AuditRepo appends and queries the audit log.
type AuditRepo interface {
	Write(ctx context.Context, rec *AuditRecord) error
	Query(ctx context.Context, opts QueryOpts) ([]AuditRecord, error)
}

// CycleRepo commits a whole cycle in one transaction.
type CycleRepo interface {
	CommitCycle(ctx context.Context, rec CycleRecord) (*CycleResult, error)
	Evaluations(ctx context.Context, studentID, topic string, limit int) ([]Evaluation, error)
}

// CheckpointRepo saves and restores session threads.
type CheckpointRepo interface {
	Save(ctx context.Context, cp *Checkpoint) error
	// Load returns the checkpoint, or nil if none exists.
	Load(ctx context.Context, threadID string) (*Checkpoint, error)
	Delete(ctx context.Context, threadID string) error
}

// EventRepo records and reports model calls.
type EventRepo interface {
	AppendLLMRequest(ctx context.Context, ev LLMRequestEvent) error
	QueryLLMRequests(ctx context.Context, opts QueryOpts) ([]LLMRequestEvent, error)
	GetLLMRequest(ctx context.Context, id int64) (*LLMRequestEvent, error)
	LLMUsage(ctx context.Context) ([]LLMUsage, error)
}
