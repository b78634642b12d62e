package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// historyRepo implements HistoryRepo.
type historyRepo struct {
	db  *sql.DB
	seq *sequenceCounter
}

var historyColumns = []string{
	"sequence", "student_id", "thread_id", "topic", "event_type", "score", "payload", "created_at",
}

func (r *historyRepo) Append(ctx context.Context, ev *HistoryEvent) error {
	return appendHistory(ctx, r.db, r.seq, ev)
}

func (r *historyRepo) Query(ctx context.Context, opts QueryOpts) ([]HistoryEvent, error) {
	sel := builder.Select(historyColumns...).From(entsql.Table(historyTable.Name))
	query, args := applyFilters(sel, opts, "event_type").Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []HistoryEvent
	for rows.Next() {
		var (
			ev      HistoryEvent
			score   sql.NullFloat64
			payload string
		)
		if err := rows.Scan(&ev.Sequence, &ev.StudentID, &ev.ThreadID, &ev.Topic, &ev.EventType, &score, &payload, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history event: %w", err)
		}
		if score.Valid {
			s := score.Float64
			ev.Score = &s
		}
		ev.Payload = decodeMap(payload)
		out = append(out, ev)
	}
	return out, rows.Err()
}

func appendHistory(ctx context.Context, q execQuerier, seq *sequenceCounter, ev *HistoryEvent) error {
	if ev.StudentID == "" || ev.EventType == "" {
		return fmt.Errorf("append history: student id and event type are required")
	}
	payload, err := encodeMap(ev.Payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", ev.EventType, err)
	}
	n, err := seq.Next(ctx, q)
	if err != nil {
		return err
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	var score any
	if ev.Score != nil {
		score = *ev.Score
	}

	query, args := builder.Insert(historyTable.Name).
		Columns(historyColumns...).
		Values(n, ev.StudentID, ev.ThreadID, ev.Topic, ev.EventType, score, payload, ev.CreatedAt).
		Query()
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save %s event: %w", ev.EventType, err)
	}
	ev.Sequence = n
	return nil
}
