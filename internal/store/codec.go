package store

import (
	"encoding/json"

	entsql "entgo.io/ent/dialect/sql"
)

// History event types.
const (
	EventSessionStarted     = "session_started"
	EventLessonDelivered    = "lesson_delivered"
	EventQuestionsGenerated = "questions_generated"
	EventAnswersGraded      = "answers_graded"
	EventEvalCompleted      = "eval_completed"
)

// Audit record kinds.
const (
	AuditMonitorDecision = "monitor_decision"
	AuditLoopSafetyStop  = "loop_safety_stop"
)

func encodeStrings(v []string) string {
	if len(v) == 0 {
		return "[]"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func decodeStrings(raw string) []string {
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil || out == nil {
		return []string{}
	}
	return out
}

func encodeMap(m map[string]any) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeMap(raw string) map[string]any {
	m := map[string]any{}
	_ = json.Unmarshal([]byte(raw), &m)
	return m
}

func rawOr(raw json.RawMessage, def string) string {
	if len(raw) == 0 {
		return def
	}
	return string(raw)
}

// applyFilters adds the QueryOpts predicates shared by the event tables.
// kindColumn names the column Kind filters on; empty disables it.
func applyFilters(sel *entsql.Selector, opts QueryOpts, kindColumn string) *entsql.Selector {
	var preds []*entsql.Predicate
	if opts.StudentID != "" {
		preds = append(preds, entsql.EQ("student_id", opts.StudentID))
	}
	if opts.ThreadID != "" {
		preds = append(preds, entsql.EQ("thread_id", opts.ThreadID))
	}
	if opts.Topic != "" {
		preds = append(preds, entsql.EQ("topic", opts.Topic))
	}
	if opts.Kind != "" && kindColumn != "" {
		preds = append(preds, entsql.EQ(kindColumn, opts.Kind))
	}
	if opts.After > 0 {
		preds = append(preds, entsql.GT("sequence", opts.After))
	}
	if !opts.From.IsZero() {
		preds = append(preds, entsql.GTE("created_at", opts.From))
	}
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	sel.OrderBy("sequence")
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}
	return sel
}
