package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

// auditRepo implements AuditRepo. Records are append-only.
type auditRepo struct {
	db  *sql.DB
	seq *sequenceCounter
}

var auditColumns = []string{
	"sequence", "audit_id", "student_id", "thread_id", "topic", "kind", "payload", "created_at",
}

func (r *auditRepo) Write(ctx context.Context, rec *AuditRecord) error {
	return writeAudit(ctx, r.db, r.seq, rec)
}

func (r *auditRepo) Query(ctx context.Context, opts QueryOpts) ([]AuditRecord, error) {
	sel := builder.Select(auditColumns...).From(entsql.Table(auditTable.Name))
	query, args := applyFilters(sel, opts, "kind").Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit: %w", err)
	}
	defer rows.Close()

	var out []AuditRecord
	for rows.Next() {
		var (
			rec     AuditRecord
			payload string
		)
		if err := rows.Scan(&rec.Sequence, &rec.ID, &rec.StudentID, &rec.ThreadID, &rec.Topic, &rec.Kind, &payload, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		rec.Payload = decodeMap(payload)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func writeAudit(ctx context.Context, q execQuerier, seq *sequenceCounter, rec *AuditRecord) error {
	if rec.StudentID == "" || rec.Kind == "" {
		return fmt.Errorf("write audit: student id and kind are required")
	}
	payload, err := encodeMap(rec.Payload)
	if err != nil {
		return fmt.Errorf("encode audit payload: %w", err)
	}
	n, err := seq.Next(ctx, q)
	if err != nil {
		return err
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	query, args := builder.Insert(auditTable.Name).
		Columns(auditColumns...).
		Values(n, rec.ID, rec.StudentID, rec.ThreadID, rec.Topic, rec.Kind, payload, rec.CreatedAt).
		Query()
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save audit record: %w", err)
	}
	rec.Sequence = n
	return nil
}
