package store

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

var testDBCounter atomic.Int64

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:tutor_test_%d?mode=memory&cache=shared", testDBCounter.Add(1))
	s, err := Open(dsn)
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenClose(t *testing.T) {
	s := openTestStore(t)
	if s.DB() == nil {
		t.Fatal("expected non-nil database handle")
	}
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		// WAL mode falls back to "memory" for in-memory databases,
		// so journal_mode is tested with a file-based DB below.
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
		{"busy_timeout", "5000"},
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestFileDatabaseUsesWAL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tutor.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	var mode string
	if err := s.DB().QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("PRAGMA journal_mode: %v", err)
	}
	if !strings.EqualFold(mode, "wal") {
		t.Errorf("journal_mode = %q, want wal", mode)
	}
}

func TestWithPragmas(t *testing.T) {
	got := withPragmas("tutor.db")
	if !strings.HasPrefix(got, "tutor.db?_pragma=foreign_keys(1)&") {
		t.Errorf("withPragmas(plain) = %q", got)
	}
	got = withPragmas("file:x?mode=memory")
	if !strings.HasPrefix(got, "file:x?mode=memory&_pragma=") {
		t.Errorf("withPragmas(query) = %q", got)
	}
}

func TestProfileGetMissingReturnsNil(t *testing.T) {
	s := openTestStore(t)
	p, err := s.ProfileRepo().Get(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p != nil {
		t.Fatalf("expected nil profile, got %+v", p)
	}
}

func TestProfileCreateAndEnsure(t *testing.T) {
	s := openTestStore(t)
	repo := s.ProfileRepo()
	ctx := context.Background()

	err := repo.Create(ctx, &Profile{
		StudentID:      "alice",
		Name:           "Alice",
		Misconceptions: []string{"Weakness in fractions"},
		Mastery:        map[string]float64{"fractions": 0.4},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	p, err := repo.Ensure(ctx, "alice")
	if err != nil {
		t.Fatalf("ensure existing: %v", err)
	}
	if p.Name != "Alice" {
		t.Errorf("Name = %q, want Alice (ensure must not overwrite)", p.Name)
	}
	if got := p.Mastery.Get("fractions"); got != 0.4 {
		t.Errorf("mastery = %v, want 0.4", got)
	}
	if len(p.Misconceptions) != 1 || p.Misconceptions[0] != "Weakness in fractions" {
		t.Errorf("misconceptions = %v", p.Misconceptions)
	}

	p, err = repo.Ensure(ctx, "bob")
	if err != nil {
		t.Fatalf("ensure new: %v", err)
	}
	if p == nil || p.StudentID != "bob" || len(p.Mastery) != 0 {
		t.Fatalf("unexpected new profile %+v", p)
	}

	all, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 || all[0].StudentID != "alice" || all[1].StudentID != "bob" {
		t.Errorf("list = %+v", all)
	}

	if err := repo.Create(ctx, &Profile{StudentID: "alice"}); err == nil {
		t.Error("expected duplicate create to fail")
	}
}

func TestUpdateMasteryMonotone(t *testing.T) {
	s := openTestStore(t)
	repo := s.ProfileRepo()
	ctx := context.Background()

	v, err := repo.UpdateMastery(ctx, "alice", "algebra", 1.0)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if v != 0.4 {
		t.Fatalf("first update = %v, want 0.4", v)
	}

	v, err = repo.UpdateMastery(ctx, "alice", "algebra", 0.0)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if v != 0.4 {
		t.Errorf("low score lowered mastery to %v", v)
	}

	v, err = repo.UpdateMastery(ctx, "alice", "algebra", 1.0)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if v != 0.64 {
		t.Errorf("third update = %v, want 0.64", v)
	}

	m, err := repo.MasteryMap(ctx, "alice")
	if err != nil {
		t.Fatalf("mastery map: %v", err)
	}
	if m.Get("algebra") != 0.64 {
		t.Errorf("stored mastery = %v", m.Get("algebra"))
	}
}

func TestHistoryAppendAndQuery(t *testing.T) {
	s := openTestStore(t)
	repo := s.HistoryRepo()
	ctx := context.Background()

	for _, typ := range []string{EventSessionStarted, EventLessonDelivered, EventQuestionsGenerated} {
		err := repo.Append(ctx, &HistoryEvent{
			StudentID: "alice",
			ThreadID:  "alice_t1",
			Topic:     "algebra",
			EventType: typ,
			Payload:   map[string]any{"stage": typ},
		})
		if err != nil {
			t.Fatalf("append %s: %v", typ, err)
		}
	}
	if err := repo.Append(ctx, &HistoryEvent{StudentID: "bob", EventType: EventSessionStarted}); err != nil {
		t.Fatalf("append bob: %v", err)
	}
	if err := repo.Append(ctx, &HistoryEvent{StudentID: "bob"}); err == nil {
		t.Error("expected error for missing event type")
	}

	events, err := repo.Query(ctx, QueryOpts{StudentID: "alice"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	for i := 1; i < len(events); i++ {
		if events[i].Sequence <= events[i-1].Sequence {
			t.Errorf("sequences not increasing: %d then %d", events[i-1].Sequence, events[i].Sequence)
		}
	}
	if events[1].Payload["stage"] != EventLessonDelivered {
		t.Errorf("payload = %v", events[1].Payload)
	}

	filtered, err := repo.Query(ctx, QueryOpts{StudentID: "alice", Kind: EventLessonDelivered})
	if err != nil {
		t.Fatalf("query kind: %v", err)
	}
	if len(filtered) != 1 {
		t.Errorf("kind filter returned %d events", len(filtered))
	}

	after, err := repo.Query(ctx, QueryOpts{StudentID: "alice", After: events[0].Sequence, Limit: 1})
	if err != nil {
		t.Fatalf("query after: %v", err)
	}
	if len(after) != 1 || after[0].Sequence != events[1].Sequence {
		t.Errorf("after/limit = %+v", after)
	}
}

func TestAuditWriteAndQuery(t *testing.T) {
	s := openTestStore(t)
	repo := s.AuditRepo()
	ctx := context.Background()

	rec := &AuditRecord{
		StudentID: "alice",
		ThreadID:  "alice_t1",
		Topic:     "algebra",
		Kind:      AuditLoopSafetyStop,
		Payload:   map[string]any{"streak": 5},
	}
	if err := repo.Write(ctx, rec); err != nil {
		t.Fatalf("write: %v", err)
	}
	if rec.ID == "" || rec.Sequence == 0 {
		t.Fatalf("write did not assign id/sequence: %+v", rec)
	}

	got, err := repo.Query(ctx, QueryOpts{StudentID: "alice", Kind: AuditLoopSafetyStop})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 1 || got[0].ID != rec.ID {
		t.Fatalf("query = %+v", got)
	}
	if got[0].Payload["streak"] != float64(5) {
		t.Errorf("payload = %v", got[0].Payload)
	}
}

func TestCommitCycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	cycles := s.CycleRepo()

	res, err := cycles.CommitCycle(ctx, CycleRecord{
		StudentID:      "alice",
		ThreadID:       "alice_t1",
		Topic:          "algebra",
		Score:          0.5,
		RiskScore:      0.3,
		Misconceptions: []string{"Weakness in factoring", "Weakness in factoring"},
		Decision:       map[string]any{"allow_advance": false},
		Evaluation: &Evaluation{
			Questions:    json.RawMessage(`[{"qid":"q1"}]`),
			Answers:      json.RawMessage(`[{"qid":"q1","answer":"x"}]`),
			Grading:      json.RawMessage(`{"q1":{"obtained":5}}`),
			OverallScore: 0.5,
		},
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if res.PrevMastery != 0 || res.Mastery != 0.2 {
		t.Errorf("mastery %v -> %v, want 0 -> 0.2", res.PrevMastery, res.Mastery)
	}
	if res.EvaluationID == "" || res.AuditID == "" {
		t.Errorf("missing ids: %+v", res)
	}

	_, err = cycles.CommitCycle(ctx, CycleRecord{
		StudentID:      "alice",
		ThreadID:       "alice_t1",
		Topic:          "algebra",
		Score:          0.9,
		RiskScore:      0.1,
		Misconceptions: []string{"Weakness in graphing"},
		LoopSafety:     map[string]any{"cycle": 2},
	})
	if err != nil {
		t.Fatalf("second commit: %v", err)
	}

	p, err := s.ProfileRepo().Get(ctx, "alice")
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if p.OverallScore != 0.9 || p.RiskScore != 0.1 {
		t.Errorf("profile score/risk = %v/%v", p.OverallScore, p.RiskScore)
	}
	want := []string{"Weakness in factoring", "Weakness in graphing"}
	if strings.Join(p.Misconceptions, "|") != strings.Join(want, "|") {
		t.Errorf("misconceptions = %v, want %v", p.Misconceptions, want)
	}
	if got := p.Mastery.Get("algebra"); got != 0.48 {
		t.Errorf("mastery = %v, want 0.48", got)
	}

	scores, err := s.ProfileRepo().RecentScores(ctx, "alice", "algebra", 5)
	if err != nil {
		t.Fatalf("recent scores: %v", err)
	}
	if len(scores) != 2 || scores[0] != 0.5 || scores[1] != 0.9 {
		t.Errorf("recent scores = %v, want [0.5 0.9]", scores)
	}
	one, _ := s.ProfileRepo().RecentScores(ctx, "alice", "algebra", 1)
	if len(one) != 1 || one[0] != 0.9 {
		t.Errorf("recent scores n=1 = %v", one)
	}

	audits, err := s.AuditRepo().Query(ctx, QueryOpts{StudentID: "alice", Kind: AuditMonitorDecision})
	if err != nil {
		t.Fatalf("query audit: %v", err)
	}
	if len(audits) != 2 {
		t.Errorf("got %d monitor_decision records, want 2", len(audits))
	}
	stops, err := s.AuditRepo().Query(ctx, QueryOpts{StudentID: "alice", Kind: AuditLoopSafetyStop})
	if err != nil {
		t.Fatalf("query loop safety: %v", err)
	}
	if len(stops) != 1 {
		t.Errorf("got %d loop_safety_stop records, want 1", len(stops))
	}

	evals, err := cycles.Evaluations(ctx, "alice", "algebra", 0)
	if err != nil {
		t.Fatalf("evaluations: %v", err)
	}
	if len(evals) != 1 || evals[0].ID != res.EvaluationID {
		t.Fatalf("evaluations = %+v", evals)
	}
	if string(evals[0].Grading) != `{"q1":{"obtained":5}}` {
		t.Errorf("grading = %s", evals[0].Grading)
	}
}

func TestCommitCycleIsAtomic(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// A duplicate evaluation id fails the last insert of the cycle.
	first := CycleRecord{
		StudentID:  "alice",
		Topic:      "algebra",
		Score:      1.0,
		Evaluation: &Evaluation{ID: "eval-1"},
	}
	if _, err := s.CycleRepo().CommitCycle(ctx, first); err != nil {
		t.Fatalf("first commit: %v", err)
	}

	historyBefore, _ := s.HistoryRepo().Query(ctx, QueryOpts{StudentID: "alice"})
	if _, err := s.CycleRepo().CommitCycle(ctx, first); err == nil {
		t.Fatal("expected duplicate evaluation id to fail")
	}

	m, err := s.ProfileRepo().MasteryMap(ctx, "alice")
	if err != nil {
		t.Fatalf("mastery map: %v", err)
	}
	if got := m.Get("algebra"); got != 0.4 {
		t.Errorf("mastery = %v after rolled-back cycle, want 0.4", got)
	}
	historyAfter, _ := s.HistoryRepo().Query(ctx, QueryOpts{StudentID: "alice"})
	if len(historyAfter) != len(historyBefore) {
		t.Errorf("history grew from %d to %d despite rollback", len(historyBefore), len(historyAfter))
	}
	audits, _ := s.AuditRepo().Query(ctx, QueryOpts{StudentID: "alice"})
	if len(audits) != 1 {
		t.Errorf("got %d audit records, want 1", len(audits))
	}
}

func TestCommitCycleSavesCheckpointInTransaction(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	res, err := s.CycleRepo().CommitCycle(ctx, CycleRecord{
		StudentID: "alice",
		ThreadID:  "alice_t1",
		Topic:     "algebra",
		Score:     1.0,
		Checkpoint: func(res *CycleResult) (*Checkpoint, error) {
			return &Checkpoint{
				ThreadID:  "alice_t1",
				StudentID: "alice",
				Topic:     "algebra",
				Stage:     "teach",
				Cycle:     1,
				State:     json.RawMessage(fmt.Sprintf(`{"mastery":%v}`, res.Mastery)),
			}, nil
		},
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	cp, err := s.CheckpointRepo().Load(ctx, "alice_t1")
	if err != nil || cp == nil {
		t.Fatalf("load checkpoint: %v, %v", cp, err)
	}
	if cp.Stage != "teach" || cp.Cycle != 1 {
		t.Errorf("checkpoint = %+v", cp)
	}
	if string(cp.State) != fmt.Sprintf(`{"mastery":%v}`, res.Mastery) {
		t.Errorf("state = %s", cp.State)
	}

	_, err = s.CycleRepo().CommitCycle(ctx, CycleRecord{
		StudentID: "alice",
		ThreadID:  "alice_t1",
		Topic:     "algebra",
		Score:     1.0,
		Checkpoint: func(*CycleResult) (*Checkpoint, error) {
			return &Checkpoint{}, nil
		},
	})
	if err == nil {
		t.Fatal("expected a checkpoint without thread id to fail the cycle")
	}
	history, _ := s.HistoryRepo().Query(ctx, QueryOpts{ThreadID: "alice_t1", Kind: EventEvalCompleted})
	if len(history) != 1 {
		t.Errorf("got %d eval_completed events, want 1 after the rolled-back cycle", len(history))
	}
	cp, _ = s.CheckpointRepo().Load(ctx, "alice_t1")
	if cp == nil || cp.Cycle != 1 {
		t.Errorf("checkpoint changed by a rolled-back cycle: %+v", cp)
	}
}

func TestConcurrentCommitAndAppendDoNotDeadlock(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	done := make(chan struct{})
	errs := make(chan error, 64)
	go func() {
		defer close(done)
		var wg sync.WaitGroup
		for i := range 8 {
			student := fmt.Sprintf("s%d", i)
			wg.Add(1)
			go func() {
				defer wg.Done()
				for range 10 {
					if i%2 == 0 {
						_, err := s.CycleRepo().CommitCycle(ctx, CycleRecord{StudentID: student, Topic: "algebra", Score: 0.5})
						if err != nil {
							errs <- err
							return
						}
						continue
					}
					if err := s.HistoryRepo().Append(ctx, &HistoryEvent{StudentID: student, EventType: EventLessonDelivered}); err != nil {
						errs <- err
						return
					}
					if err := s.EventRepo().AppendLLMRequest(ctx, LLMRequestEvent{Provider: "mock", Model: "mock", Purpose: "lesson", Success: true}); err != nil {
						errs <- err
						return
					}
				}
			}()
		}
		wg.Wait()
	}()

	select {
	case <-done:
	case <-time.After(20 * time.Second):
		t.Fatal("concurrent CommitCycle and Append did not finish")
	}
	close(errs)
	for err := range errs {
		t.Errorf("concurrent write: %v", err)
	}

	history, err := s.HistoryRepo().Query(ctx, QueryOpts{})
	if err != nil {
		t.Fatalf("query history: %v", err)
	}
	seen := make(map[int64]bool)
	for _, ev := range history {
		if seen[ev.Sequence] {
			t.Fatalf("sequence %d handed out twice", ev.Sequence)
		}
		seen[ev.Sequence] = true
	}
	if len(history) != 80 {
		t.Errorf("got %d history events, want 80", len(history))
	}
}

func TestCommitCycleRequiresStudentAndTopic(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.CycleRepo().CommitCycle(context.Background(), CycleRecord{Topic: "algebra"}); err == nil {
		t.Error("expected error without student id")
	}
}

func TestCheckpointSaveLoadDelete(t *testing.T) {
	s := openTestStore(t)
	repo := s.CheckpointRepo()
	ctx := context.Background()

	cp, err := repo.Load(ctx, "t1")
	if err != nil || cp != nil {
		t.Fatalf("load missing = %+v, %v", cp, err)
	}

	err = repo.Save(ctx, &Checkpoint{ThreadID: "t1", StudentID: "alice", Topic: "algebra", Stage: "teach", State: json.RawMessage(`{"a":1}`)})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	err = repo.Save(ctx, &Checkpoint{ThreadID: "t1", StudentID: "alice", Topic: "algebra", Stage: "grade", Cycle: 2, RemediationStreak: 1})
	if err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	cp, err = repo.Load(ctx, "t1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cp.Stage != "grade" || cp.Cycle != 2 || cp.RemediationStreak != 1 {
		t.Errorf("checkpoint = %+v", cp)
	}
	if string(cp.State) != "{}" {
		t.Errorf("state = %s, want {}", cp.State)
	}

	if err := repo.Delete(ctx, "t1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if cp, _ := repo.Load(ctx, "t1"); cp != nil {
		t.Error("checkpoint still present after delete")
	}
}

func TestLLMEvents(t *testing.T) {
	s := openTestStore(t)
	repo := s.EventRepo()
	ctx := context.Background()

	events := []LLMRequestEvent{
		{Provider: "groq", Model: "llama", Purpose: "grading", InputTokens: 100, OutputTokens: 20, LatencyMs: 300, Success: true},
		{Provider: "groq", Model: "llama", Purpose: "grading", InputTokens: 50, OutputTokens: 10, LatencyMs: 100, Success: false, ErrorMessage: "rate limited"},
		{Provider: "groq", Model: "llama", Purpose: "lesson", ThreadID: "t1", InputTokens: 10, OutputTokens: 5, LatencyMs: 50, Success: true},
	}
	for _, ev := range events {
		if err := repo.AppendLLMRequest(ctx, ev); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	all, err := repo.QueryLLMRequests(ctx, QueryOpts{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(all) != 3 || all[0].Purpose != "lesson" {
		t.Fatalf("expected newest first, got %+v", all)
	}

	grading, err := repo.QueryLLMRequests(ctx, QueryOpts{Kind: "grading"})
	if err != nil {
		t.Fatalf("query purpose: %v", err)
	}
	if len(grading) != 2 {
		t.Errorf("purpose filter returned %d", len(grading))
	}

	got, err := repo.GetLLMRequest(ctx, all[2].ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.InputTokens != 100 || !got.Success {
		t.Errorf("get = %+v", got)
	}
	if _, err := repo.GetLLMRequest(ctx, 9999); !IsNotFound(err) {
		t.Errorf("missing event error = %v", err)
	}

	usage, err := repo.LLMUsage(ctx)
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	if len(usage) != 2 {
		t.Fatalf("usage rows = %d, want 2", len(usage))
	}
	u := usage[0]
	if u.Purpose != "grading" || u.Calls != 2 || u.Failures != 1 || u.InputTokens != 150 || u.AvgLatencyMs != 200 {
		t.Errorf("grading usage = %+v", u)
	}
}

func TestSequenceSharedAcrossTables(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	h := &HistoryEvent{StudentID: "alice", EventType: EventSessionStarted, CreatedAt: time.Now()}
	if err := s.HistoryRepo().Append(ctx, h); err != nil {
		t.Fatalf("append: %v", err)
	}
	a := &AuditRecord{StudentID: "alice", Kind: AuditMonitorDecision}
	if err := s.AuditRepo().Write(ctx, a); err != nil {
		t.Fatalf("write: %v", err)
	}
	if a.Sequence != h.Sequence+1 {
		t.Errorf("audit sequence %d, want %d", a.Sequence, h.Sequence+1)
	}
}

func TestDefaultDBPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TUTOR_DB", "")
	t.Setenv("XDG_DATA_HOME", dir)

	got, err := DefaultDBPath()
	if err != nil {
		t.Fatalf("DefaultDBPath: %v", err)
	}
	want := filepath.Join(dir, "agentic-tutor", "tutor.db")
	if got != want {
		t.Errorf("DefaultDBPath = %q, want %q", got, want)
	}

	override := filepath.Join(dir, "custom", "x.db")
	t.Setenv("TUTOR_DB", override)
	got, err = DefaultDBPath()
	if err != nil {
		t.Fatalf("DefaultDBPath override: %v", err)
	}
	if got != override {
		t.Errorf("DefaultDBPath = %q, want %q", got, override)
	}
}
