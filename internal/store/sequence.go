package store

import (
	"context"
	"database/sql"
	"fmt"
)

// sequenceCounter hands out the global monotonic sequence shared by every
// event table, so history, audit and model-call rows can be ordered against
// each other. The table lives outside the ent schema because it is a single
// atomic counter row. The UPDATE ... RETURNING is a single statement, so
// no Go-side lock is taken: a lock held while waiting for the pooled
// connection would deadlock against a transaction that already owns it.
type sequenceCounter struct{}

func newSequenceCounter(ctx context.Context, db *sql.DB) (*sequenceCounter, error) {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS global_sequence (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		next_val INTEGER NOT NULL DEFAULT 1
	)`)
	if err != nil {
		return nil, fmt.Errorf("create sequence table: %w", err)
	}
	_, err = db.ExecContext(ctx, `INSERT OR IGNORE INTO global_sequence (id, next_val) VALUES (1, 1)`)
	if err != nil {
		return nil, fmt.Errorf("seed sequence: %w", err)
	}
	return &sequenceCounter{}, nil
}

// Next atomically returns the next sequence number. Inside a transaction
// the increment rolls back with it.
func (sc *sequenceCounter) Next(ctx context.Context, q execQuerier) (int64, error) {
	var seq int64
	err := q.QueryRowContext(ctx,
		`UPDATE global_sequence SET next_val = next_val + 1 WHERE id = 1 RETURNING next_val - 1`,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return seq, nil
}
