package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// checkpointRepo implements CheckpointRepo. One row per thread.
type checkpointRepo struct {
	db *sql.DB
}

var checkpointColumns = []string{
	"thread_id", "student_id", "topic", "stage", "cycle", "remediation_streak", "state", "updated_at",
}

func (r *checkpointRepo) Save(ctx context.Context, cp *Checkpoint) error {
	return saveCheckpoint(ctx, r.db, cp)
}

func saveCheckpoint(ctx context.Context, q execQuerier, cp *Checkpoint) error {
	if cp.ThreadID == "" {
		return errors.New("save checkpoint: empty thread id")
	}
	cp.UpdatedAt = time.Now().UTC()
	query, args := builder.Insert(checkpointsTable.Name).
		Columns(checkpointColumns...).
		Values(cp.ThreadID, cp.StudentID, cp.Topic, cp.Stage, cp.Cycle, cp.RemediationStreak, rawOr(cp.State, "{}"), cp.UpdatedAt).
		OnConflict(entsql.ConflictColumns("thread_id"), entsql.ResolveWithNewValues()).
		Query()
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save checkpoint %s: %w", cp.ThreadID, err)
	}
	return nil
}

func (r *checkpointRepo) Load(ctx context.Context, threadID string) (*Checkpoint, error) {
	query, args := builder.Select(checkpointColumns...).
		From(entsql.Table(checkpointsTable.Name)).
		Where(entsql.EQ("thread_id", threadID)).
		Query()
	var (
		cp    Checkpoint
		state string
	)
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&cp.ThreadID, &cp.StudentID, &cp.Topic, &cp.Stage, &cp.Cycle, &cp.RemediationStreak, &state, &cp.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load checkpoint %s: %w", threadID, err)
	}
	cp.State = []byte(state)
	return &cp, nil
}

func (r *checkpointRepo) Delete(ctx context.Context, threadID string) error {
	query, args := builder.Delete(checkpointsTable.Name).
		Where(entsql.EQ("thread_id", threadID)).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete checkpoint %s: %w", threadID, err)
	}
	return nil
}
