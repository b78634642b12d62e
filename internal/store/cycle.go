package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

// cycleRepo implements CycleRepo.
type cycleRepo struct {
	db  *sql.DB
	seq *sequenceCounter
}

var evaluationColumns = []string{
	"eval_id", "student_id", "thread_id", "topic", "questions", "student_answers", "grading", "overall_score", "created_at",
}

// CommitCycle writes the mastery update, the eval_completed history event,
// the monitor_decision audit record, the profile risk and misconceptions,
// the evaluation record and, when requested, the thread checkpoint. Either
// all of them land or none do.
func (r *cycleRepo) CommitCycle(ctx context.Context, rec CycleRecord) (*CycleResult, error) {
	if rec.StudentID == "" || rec.Topic == "" {
		return nil, errors.New("commit cycle: student id and topic are required")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := ensureProfile(ctx, tx, rec.StudentID); err != nil {
		return nil, err
	}

	prev, next, err := applyMastery(ctx, tx, rec.StudentID, rec.Topic, rec.Score)
	if err != nil {
		return nil, err
	}

	score := rec.Score
	if err := appendHistory(ctx, tx, r.seq, &HistoryEvent{
		StudentID: rec.StudentID,
		ThreadID:  rec.ThreadID,
		Topic:     rec.Topic,
		EventType: EventEvalCompleted,
		Score:     &score,
		Payload:   map[string]any{"score": rec.Score, "topic": rec.Topic},
	}); err != nil {
		return nil, err
	}

	audit := &AuditRecord{
		StudentID: rec.StudentID,
		ThreadID:  rec.ThreadID,
		Topic:     rec.Topic,
		Kind:      AuditMonitorDecision,
		Payload:   rec.Decision,
	}
	if err := writeAudit(ctx, tx, r.seq, audit); err != nil {
		return nil, err
	}
	if rec.LoopSafety != nil {
		if err := writeAudit(ctx, tx, r.seq, &AuditRecord{
			StudentID: rec.StudentID,
			ThreadID:  rec.ThreadID,
			Topic:     rec.Topic,
			Kind:      AuditLoopSafetyStop,
			Payload:   rec.LoopSafety,
		}); err != nil {
			return nil, err
		}
	}

	if err := updateProfileAfterCycle(ctx, tx, rec); err != nil {
		return nil, err
	}

	res := &CycleResult{PrevMastery: prev, Mastery: next, AuditID: audit.ID}
	if rec.Evaluation != nil {
		ev := *rec.Evaluation
		ev.StudentID, ev.ThreadID, ev.Topic = rec.StudentID, rec.ThreadID, rec.Topic
		if err := insertEvaluation(ctx, tx, &ev); err != nil {
			return nil, err
		}
		res.EvaluationID = ev.ID
	}

	if rec.Checkpoint != nil {
		cp, err := rec.Checkpoint(res)
		if err != nil {
			return nil, fmt.Errorf("build checkpoint: %w", err)
		}
		if err := saveCheckpoint(ctx, tx, cp); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit cycle: %w", err)
	}
	return res, nil
}

func (r *cycleRepo) Evaluations(ctx context.Context, studentID, topic string, limit int) ([]Evaluation, error) {
	preds := []*entsql.Predicate{entsql.EQ("student_id", studentID)}
	if topic != "" {
		preds = append(preds, entsql.EQ("topic", topic))
	}
	sel := builder.Select(evaluationColumns...).
		From(entsql.Table(evaluationsTable.Name)).
		Where(entsql.And(preds...)).
		OrderBy(entsql.Desc("id"))
	if limit > 0 {
		sel.Limit(limit)
	}
	query, args := sel.Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query evaluations: %w", err)
	}
	defer rows.Close()

	var out []Evaluation
	for rows.Next() {
		var (
			ev                          Evaluation
			questions, answers, grading string
		)
		if err := rows.Scan(&ev.ID, &ev.StudentID, &ev.ThreadID, &ev.Topic, &questions, &answers, &grading, &ev.OverallScore, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan evaluation: %w", err)
		}
		ev.Questions = []byte(questions)
		ev.Answers = []byte(answers)
		ev.Grading = []byte(grading)
		out = append(out, ev)
	}
	return out, rows.Err()
}

// updateProfileAfterCycle records the latest score and risk and merges the
// new misconceptions into the stored list, keeping first-seen order.
func updateProfileAfterCycle(ctx context.Context, q execQuerier, rec CycleRecord) error {
	p, err := getProfile(ctx, q, rec.StudentID)
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("profile %s vanished during cycle", rec.StudentID)
	}
	merged := mergeUnique(p.Misconceptions, rec.Misconceptions)

	query, args := builder.Update(profilesTable.Name).
		Set("overall_score", rec.Score).
		Set("risk_score", rec.RiskScore).
		Set("misconceptions", encodeStrings(merged)).
		Set("updated_at", time.Now().UTC()).
		Where(entsql.EQ("student_id", rec.StudentID)).
		Query()
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update profile %s: %w", rec.StudentID, err)
	}
	return nil
}

func insertEvaluation(ctx context.Context, q execQuerier, ev *Evaluation) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	query, args := builder.Insert(evaluationsTable.Name).
		Columns(evaluationColumns...).
		Values(ev.ID, ev.StudentID, ev.ThreadID, ev.Topic,
			rawOr(ev.Questions, "[]"), rawOr(ev.Answers, "[]"), rawOr(ev.Grading, "{}"),
			ev.OverallScore, ev.CreatedAt).
		Query()
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save evaluation: %w", err)
	}
	return nil
}

func mergeUnique(existing, add []string) []string {
	seen := make(map[string]bool, len(existing)+len(add))
	out := make([]string, 0, len(existing)+len(add))
	for _, list := range [][]string{existing, add} {
		for _, s := range list {
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
