package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// eventRepo implements EventRepo backed by the global sequence counter.
type eventRepo struct {
	db  *sql.DB
	seq *sequenceCounter
}

var llmEventColumns = []string{
	"id", "sequence", "thread_id", "provider", "model", "purpose", "input_tokens", "output_tokens",
	"latency_ms", "success", "error_message", "request_body", "response_body", "created_at",
}

func (r *eventRepo) AppendLLMRequest(ctx context.Context, ev LLMRequestEvent) error {
	seqNum, err := r.seq.Next(ctx, r.db)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}

	query, args := builder.Insert(llmEventsTable.Name).
		Columns(llmEventColumns[1:]...).
		Values(seqNum, ev.ThreadID, ev.Provider, ev.Model, ev.Purpose, ev.InputTokens, ev.OutputTokens,
			ev.LatencyMs, ev.Success, ev.ErrorMessage, ev.RequestBody, ev.ResponseBody, ev.CreatedAt).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save LLM request event: %w", err)
	}
	return nil
}

// QueryLLMRequests returns events newest first. Kind filters on purpose.
func (r *eventRepo) QueryLLMRequests(ctx context.Context, opts QueryOpts) ([]LLMRequestEvent, error) {
	var preds []*entsql.Predicate
	if opts.ThreadID != "" {
		preds = append(preds, entsql.EQ("thread_id", opts.ThreadID))
	}
	if opts.Kind != "" {
		preds = append(preds, entsql.EQ("purpose", opts.Kind))
	}
	if opts.After > 0 {
		preds = append(preds, entsql.GT("sequence", opts.After))
	}
	if !opts.From.IsZero() {
		preds = append(preds, entsql.GTE("created_at", opts.From))
	}
	sel := builder.Select(llmEventColumns...).From(entsql.Table(llmEventsTable.Name))
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	sel.OrderBy(entsql.Desc("sequence"))
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}

	query, args := sel.Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query LLM requests: %w", err)
	}
	defer rows.Close()

	var out []LLMRequestEvent
	for rows.Next() {
		ev, err := scanLLMEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ev)
	}
	return out, rows.Err()
}

func (r *eventRepo) GetLLMRequest(ctx context.Context, id int64) (*LLMRequestEvent, error) {
	query, args := builder.Select(llmEventColumns...).
		From(entsql.Table(llmEventsTable.Name)).
		Where(entsql.EQ("id", id)).
		Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get LLM request %d: %w", id, err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("get LLM request %d: %w", id, err)
		}
		return nil, fmt.Errorf("LLM request %d: %w", id, sql.ErrNoRows)
	}
	return scanLLMEvent(rows)
}

func (r *eventRepo) LLMUsage(ctx context.Context) ([]LLMUsage, error) {
	query, args := builder.Select(
		"model",
		"purpose",
		entsql.As(entsql.Count("*"), "calls"),
		entsql.As("SUM(CASE WHEN success THEN 0 ELSE 1 END)", "failures"),
		entsql.As(entsql.Sum("input_tokens"), "input_tokens"),
		entsql.As(entsql.Sum("output_tokens"), "output_tokens"),
		entsql.As(entsql.Avg("latency_ms"), "avg_latency"),
	).
		From(entsql.Table(llmEventsTable.Name)).
		GroupBy("model", "purpose").
		OrderBy("model", "purpose").
		Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("LLM usage: %w", err)
	}
	defer rows.Close()

	var out []LLMUsage
	for rows.Next() {
		var u LLMUsage
		if err := rows.Scan(&u.Model, &u.Purpose, &u.Calls, &u.Failures, &u.InputTokens, &u.OutputTokens, &u.AvgLatencyMs); err != nil {
			return nil, fmt.Errorf("scan LLM usage: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func scanLLMEvent(rows *sql.Rows) (*LLMRequestEvent, error) {
	var ev LLMRequestEvent
	err := rows.Scan(&ev.ID, &ev.Sequence, &ev.ThreadID, &ev.Provider, &ev.Model, &ev.Purpose,
		&ev.InputTokens, &ev.OutputTokens, &ev.LatencyMs, &ev.Success, &ev.ErrorMessage,
		&ev.RequestBody, &ev.ResponseBody, &ev.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan LLM request event: %w", err)
	}
	return &ev, nil
}

// IsNotFound reports whether err means a lookup found nothing.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
