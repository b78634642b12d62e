// Package session drives a tutoring thread: teach, generate questions,
// collect and grade answers, then let the mastery gate decide whether the
// student advances, practices or is taught again. State is checkpointed
// after every stage so a thread can be resumed.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Pavansyamala/agenticAItutor/internal/grading"
	"github.com/Pavansyamala/agenticAItutor/internal/lessons"
	"github.com/Pavansyamala/agenticAItutor/internal/llm"
	"github.com/Pavansyamala/agenticAItutor/internal/monitor"
	"github.com/Pavansyamala/agenticAItutor/internal/problemgen"
	"github.com/Pavansyamala/agenticAItutor/internal/retrieval"
	"github.com/Pavansyamala/agenticAItutor/internal/store"
	"github.com/Pavansyamala/agenticAItutor/internal/telemetry"
)

var (
	// ErrThreadBusy is returned when another call is already driving the
	// thread.
	ErrThreadBusy = errors.New("thread is already running")

	// ErrInvalidRequest is returned for requests missing a student or topic.
	ErrInvalidRequest = errors.New("invalid session request")

	// ErrUnknownThread is returned by Resume when no checkpoint exists.
	ErrUnknownThread = errors.New("unknown thread")
)

// Request starts a thread.
type Request struct {
	StudentID string
	Topic     string
	// ThreadID is generated when empty.
	ThreadID string
	// ConfidenceGap is the student's self-reported confidence minus their
	// measured performance, in [-1, 1].
	ConfidenceGap float64
}

func (r Request) validate() error {
	if strings.TrimSpace(r.StudentID) == "" {
		return fmt.Errorf("%w: student id is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(r.Topic) == "" {
		return fmt.Errorf("%w: topic is required", ErrInvalidRequest)
	}
	if r.ConfidenceGap < -1 || r.ConfidenceGap > 1 {
		return fmt.Errorf("%w: confidence gap %.2f outside [-1, 1]", ErrInvalidRequest, r.ConfidenceGap)
	}
	return nil
}

// NewThreadID returns a fresh thread id for the student.
func NewThreadID(studentID string) string {
	return studentID + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Teacher produces a lesson. It never fails.
type Teacher interface {
	Teach(ctx context.Context, in lessons.Input) lessons.Lesson
}

// Grader scores a set of answers. It never fails.
type Grader interface {
	Grade(ctx context.Context, questions []grading.Question, answers []grading.Answer) grading.Summary
}

// Decider is the mastery gate.
type Decider interface {
	Decide(ctx context.Context, in monitor.Input) monitor.Decision
}

// Agents bundles the services a thread calls.
type Agents struct {
	Teacher   Teacher
	Generator problemgen.Generator
	Grader    Grader
	Gate      Decider
	// Context supplies retrieved background material. Nil means none.
	Context retrieval.Service
}

// Repos bundles the persistence a thread needs.
type Repos struct {
	Profiles    store.ProfileRepo
	History     store.HistoryRepo
	Audit       store.AuditRepo
	Cycles      store.CycleRepo
	Checkpoints store.CheckpointRepo
}

// ReposFrom takes every repository from s.
func ReposFrom(s *store.Store) Repos {
	return Repos{
		Profiles:    s.ProfileRepo(),
		History:     s.HistoryRepo(),
		Audit:       s.AuditRepo(),
		Cycles:      s.CycleRepo(),
		Checkpoints: s.CheckpointRepo(),
	}
}

// Coordinator runs threads. It is safe for concurrent use; a given thread
// is driven by at most one call at a time.
type Coordinator struct {
	repos   Repos
	agents  Agents
	answers AnswerSource
	cfg     Config
	logger  *slog.Logger
	tracer  trace.Tracer

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(repos Repos, agents Agents, answers AnswerSource, cfg Config, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	if agents.Context == nil {
		agents.Context = retrieval.Noop{}
	}
	return &Coordinator{
		repos:    repos,
		agents:   agents,
		answers:  answers,
		cfg:      cfg,
		logger:   logger,
		tracer:   telemetry.Tracer(),
		inflight: make(map[string]struct{}),
	}
}

func (c *Coordinator) acquire(threadID string) (func(), error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inflight[threadID]; busy {
		return nil, fmt.Errorf("%w: %s", ErrThreadBusy, threadID)
	}
	c.inflight[threadID] = struct{}{}
	return func() {
		c.mu.Lock()
		delete(c.inflight, threadID)
		c.mu.Unlock()
	}, nil
}

// Run starts a new thread and drives it until the gate lets the student
// advance or the loop-safety ceiling stops it.
func (c *Coordinator) Run(ctx context.Context, req Request) (*Result, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if req.ThreadID == "" {
		req.ThreadID = NewThreadID(req.StudentID)
	}
	release, err := c.acquire(req.ThreadID)
	if err != nil {
		return nil, err
	}
	defer release()

	if _, err := c.repos.Profiles.Ensure(ctx, req.StudentID); err != nil {
		return nil, fmt.Errorf("ensure profile: %w", err)
	}
	if err := c.repos.History.Append(ctx, &store.HistoryEvent{
		StudentID: req.StudentID,
		ThreadID:  req.ThreadID,
		Topic:     req.Topic,
		EventType: store.EventSessionStarted,
		Payload:   map[string]any{"topic": req.Topic},
	}); err != nil {
		return nil, fmt.Errorf("record session start: %w", err)
	}

	st := newState(req)
	if err := c.save(ctx, st); err != nil {
		return nil, err
	}
	c.logger.Info("session started", "student", req.StudentID, "topic", req.Topic, "thread", req.ThreadID)
	return c.drive(ctx, st)
}

// Resume continues a thread from its last checkpoint. A finished thread
// returns its final result without running anything.
func (c *Coordinator) Resume(ctx context.Context, threadID string) (*Result, error) {
	release, err := c.acquire(threadID)
	if err != nil {
		return nil, err
	}
	defer release()

	cp, err := c.repos.Checkpoints.Load(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	if cp == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownThread, threadID)
	}
	st, err := stateFromCheckpoint(cp)
	if err != nil {
		return nil, err
	}
	if st.Stage == StageDone {
		return st.result(), nil
	}
	c.logger.Info("session resumed", "thread", threadID, "stage", st.Stage, "cycle", st.Cycle)
	return c.drive(ctx, st)
}

func (c *Coordinator) drive(ctx context.Context, st *State) (*Result, error) {
	ctx = llm.WithThreadID(ctx, st.ThreadID)

	for st.Stage != StageDone {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var err error
		switch st.Stage {
		case StageTeach:
			err = c.teach(ctx, st)
		case StageGenerate:
			err = c.generate(ctx, st)
		case StageGrade:
			err = c.grade(ctx, st)
		case StageDecide:
			// decide advances the stage and checkpoints inside the cycle commit.
			if err := c.decide(ctx, st); err != nil {
				return nil, fmt.Errorf("%s stage: %w", StageDecide, err)
			}
			continue
		default:
			err = fmt.Errorf("unknown stage %q", st.Stage)
		}
		if err != nil {
			return nil, fmt.Errorf("%s stage: %w", st.Stage, err)
		}

		st.advance()
		if err := c.save(ctx, st); err != nil {
			return nil, err
		}
	}

	c.logger.Info("session finished",
		"thread", st.ThreadID,
		"cycles", st.Cycle,
		"advanced", st.Decision != nil && st.Decision.AllowAdvance,
		"forced_stop", st.ForcedStop,
	)
	return st.result(), nil
}

func (c *Coordinator) save(ctx context.Context, st *State) error {
	cp, err := st.checkpoint()
	if err != nil {
		return err
	}
	if err := c.repos.Checkpoints.Save(ctx, cp); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

func (c *Coordinator) teach(ctx context.Context, st *State) error {
	ctx, span := c.startSpan(ctx, "tutor.teach", st)
	defer span.End()

	in := lessons.Input{
		StudentID:     st.StudentID,
		Topic:         st.Topic,
		TargetMastery: c.cfg.TargetMastery,
		Context:       c.agents.Context.Context(ctx, "explain "+st.Topic+" with examples and common misconceptions"),
	}
	p, err := c.repos.Profiles.Get(ctx, st.StudentID)
	if err != nil {
		return fail(span, fmt.Errorf("load profile: %w", err))
	}
	if p != nil {
		in.Mastery = p.Mastery
		in.Misconceptions = p.Misconceptions
	}
	if st.Decision != nil && st.Decision.Remediation != nil {
		in.RemediationSteps = st.Decision.Remediation.Steps
		in.Mode = st.Decision.Remediation.RecommendedMode
	}

	lesson := c.agents.Teacher.Teach(ctx, in)
	st.Lesson = &lesson

	return c.record(ctx, span, st, store.EventLessonDelivered, map[string]any{
		"topic":    st.Topic,
		"steps":    len(lesson.Plan),
		"fallback": lesson.Fallback,
	})
}

func (c *Coordinator) generate(ctx context.Context, st *State) error {
	ctx, span := c.startSpan(ctx, "tutor.generate", st)
	defer span.End()

	in := problemgen.Input{
		Topic:          st.Topic,
		Context:        c.agents.Context.Context(ctx, st.Topic),
		PriorQuestions: st.PriorQuestions,
	}
	p, err := c.repos.Profiles.Get(ctx, st.StudentID)
	if err != nil {
		return fail(span, fmt.Errorf("load profile: %w", err))
	}
	if p != nil {
		in.Misconceptions = p.Misconceptions
	}

	questions, err := c.agents.Generator.Generate(ctx, in)
	if err != nil {
		return fail(span, fmt.Errorf("generate questions: %w", err))
	}
	st.Questions = questions
	st.Answers = nil
	st.Summary = nil

	types := make(map[string]bool)
	for _, q := range questions {
		st.PriorQuestions = append(st.PriorQuestions, q.Prompt)
		types[string(q.Type)] = true
	}
	distinct := make([]string, 0, len(types))
	for t := range types {
		distinct = append(distinct, t)
	}
	sort.Strings(distinct)

	return c.record(ctx, span, st, store.EventQuestionsGenerated, map[string]any{
		"count": len(questions),
		"types": distinct,
	})
}

func (c *Coordinator) grade(ctx context.Context, st *State) error {
	ctx, span := c.startSpan(ctx, "tutor.grade", st)
	defer span.End()

	answers, err := c.answers.Answers(ctx, AnswerRequest{
		StudentID: st.StudentID,
		ThreadID:  st.ThreadID,
		Topic:     st.Topic,
		Cycle:     st.Cycle + 1,
		Lesson:    st.Lesson,
		Questions: st.Questions,
	})
	if err != nil {
		return fail(span, fmt.Errorf("collect answers: %w", err))
	}
	st.Answers = answers

	summary := c.agents.Grader.Grade(ctx, st.Questions, answers)
	st.Summary = &summary
	span.SetAttributes(attribute.Float64("tutor.score", summary.OverallScore))

	return c.record(ctx, span, st, store.EventAnswersGraded, map[string]any{
		"overall_score":   summary.OverallScore,
		"questions_count": len(st.Questions),
		"symbolic_used":   summary.SymbolicUsed(),
	})
}

func (c *Coordinator) decide(ctx context.Context, st *State) error {
	ctx, span := c.startSpan(ctx, "tutor.decide", st)
	defer span.End()

	if st.Summary == nil {
		return fail(span, errors.New("no graded summary to decide on"))
	}
	history, err := c.repos.Profiles.RecentScores(ctx, st.StudentID, st.Topic, monitor.RiskWindow-1)
	if err != nil {
		return fail(span, fmt.Errorf("load recent scores: %w", err))
	}
	m, err := c.repos.Profiles.MasteryMap(ctx, st.StudentID)
	if err != nil {
		return fail(span, fmt.Errorf("load mastery: %w", err))
	}

	d := c.agents.Gate.Decide(ctx, monitor.Input{
		StudentID:     st.StudentID,
		Topic:         st.Topic,
		Summary:       *st.Summary,
		History:       history,
		ConfidenceGap: st.ConfidenceGap,
		Mastery:       m,
	})

	cycle := st.Cycle + 1
	streak := advanceStreak(st.RemediationStreak, &d)
	forced := overCeiling(c.cfg, streak, cycle, &d)
	if forced {
		d = forceStop(d)
		c.logger.Warn("loop safety stop",
			"thread", st.ThreadID,
			"cycle", cycle,
			"remediation_streak", streak,
		)
	}

	eval, err := st.evaluation()
	if err != nil {
		return fail(span, err)
	}
	rec := store.CycleRecord{
		StudentID:      st.StudentID,
		ThreadID:       st.ThreadID,
		Topic:          st.Topic,
		Score:          st.Summary.OverallScore,
		RiskScore:      d.RiskScore,
		Misconceptions: st.Summary.Misconceptions,
		Decision:       d.Map(),
		Evaluation:     eval,
	}
	if forced {
		rec.LoopSafety = map[string]any{
			"cycle":              cycle,
			"remediation_streak": streak,
			"ceiling":            c.cfg.RemediationCeiling,
			"notes":              d.Notes,
		}
	}
	rec.Checkpoint = func(res *store.CycleResult) (*store.Checkpoint, error) {
		st.Cycle = cycle
		st.RemediationStreak = streak
		st.ForcedStop = forced
		st.Decision = &d
		st.PrevMastery = res.PrevMastery
		st.Mastery = res.Mastery
		st.Cycles = append(st.Cycles, CycleReport{
			Cycle:       cycle,
			Score:       st.Summary.OverallScore,
			RiskScore:   d.RiskScore,
			Decision:    d,
			PrevMastery: res.PrevMastery,
			Mastery:     res.Mastery,
			ForcedStop:  forced,
		})
		st.advance()
		return st.checkpoint()
	}
	res, err := c.repos.Cycles.CommitCycle(ctx, rec)
	if err != nil {
		return fail(span, fmt.Errorf("commit cycle: %w", err))
	}
	if st.Cycle != cycle {
		return fail(span, errors.New("cycle committed without its checkpoint"))
	}

	span.SetAttributes(
		attribute.String("tutor.decision", string(d.State())),
		attribute.Float64("tutor.risk", d.RiskScore),
	)
	c.logger.Info("cycle decided",
		"thread", st.ThreadID,
		"cycle", cycle,
		"score", st.Summary.OverallScore,
		"state", d.State(),
		"action", d.Action(),
		"mastery", res.Mastery,
	)
	return nil
}

// evaluation encodes the current cycle for the evaluation record.
func (s *State) evaluation() (*store.Evaluation, error) {
	questions, err := json.Marshal(s.Questions)
	if err != nil {
		return nil, fmt.Errorf("encode questions: %w", err)
	}
	answers, err := json.Marshal(s.Answers)
	if err != nil {
		return nil, fmt.Errorf("encode answers: %w", err)
	}
	summary, err := json.Marshal(s.Summary)
	if err != nil {
		return nil, fmt.Errorf("encode grading: %w", err)
	}
	return &store.Evaluation{
		Questions:    questions,
		Answers:      answers,
		Grading:      summary,
		OverallScore: s.Summary.OverallScore,
	}, nil
}

func (c *Coordinator) record(ctx context.Context, span trace.Span, st *State, eventType string, payload map[string]any) error {
	err := c.repos.History.Append(ctx, &store.HistoryEvent{
		StudentID: st.StudentID,
		ThreadID:  st.ThreadID,
		Topic:     st.Topic,
		EventType: eventType,
		Payload:   payload,
	})
	if err != nil {
		return fail(span, fmt.Errorf("record %s: %w", eventType, err))
	}
	return nil
}

func (c *Coordinator) startSpan(ctx context.Context, name string, st *State) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("tutor.student_id", st.StudentID),
		attribute.String("tutor.topic", st.Topic),
		attribute.String("tutor.thread_id", st.ThreadID),
		attribute.Int("tutor.cycle", st.Cycle),
	))
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
