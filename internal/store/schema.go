package store

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// Table definitions. Every event table carries a global sequence number so
// rows from different tables can be ordered against each other.

func idColumn() *schema.Column {
	return &schema.Column{Name: "id", Type: field.TypeInt64, Increment: true}
}

func sequenceColumn() *schema.Column {
	return &schema.Column{Name: "sequence", Type: field.TypeInt64, Unique: true}
}

func createdAtColumn() *schema.Column {
	return &schema.Column{Name: "created_at", Type: field.TypeTime}
}

var profilesTable = schema.NewTable("profiles").
	AddPrimary(idColumn()).
	AddColumn(&schema.Column{Name: "student_id", Type: field.TypeString, Unique: true}).
	AddColumn(&schema.Column{Name: "name", Type: field.TypeString, Default: ""}).
	AddColumn(&schema.Column{Name: "overall_score", Type: field.TypeFloat64, Default: 0}).
	AddColumn(&schema.Column{Name: "risk_score", Type: field.TypeFloat64, Default: 0}).
	AddColumn(&schema.Column{Name: "misconceptions", Type: field.TypeString, Default: "[]"}).
	AddColumn(createdAtColumn()).
	AddColumn(&schema.Column{Name: "updated_at", Type: field.TypeTime})

var masteryTable = schema.NewTable("mastery").
	AddPrimary(idColumn()).
	AddColumn(&schema.Column{Name: "student_id", Type: field.TypeString}).
	AddColumn(&schema.Column{Name: "topic", Type: field.TypeString}).
	AddColumn(&schema.Column{Name: "value", Type: field.TypeFloat64, Default: 0}).
	AddColumn(&schema.Column{Name: "updated_at", Type: field.TypeTime}).
	AddIndex("mastery_student_topic", true, []string{"student_id", "topic"})

var historyTable = schema.NewTable("history_events").
	AddPrimary(idColumn()).
	AddColumn(sequenceColumn()).
	AddColumn(&schema.Column{Name: "student_id", Type: field.TypeString}).
	AddColumn(&schema.Column{Name: "thread_id", Type: field.TypeString, Default: ""}).
	AddColumn(&schema.Column{Name: "topic", Type: field.TypeString, Default: ""}).
	AddColumn(&schema.Column{Name: "event_type", Type: field.TypeString}).
	AddColumn(&schema.Column{Name: "score", Type: field.TypeFloat64, Nullable: true}).
	AddColumn(&schema.Column{Name: "payload", Type: field.TypeString, Default: "{}"}).
	AddColumn(createdAtColumn()).
	AddIndex("history_student_topic", false, []string{"student_id", "topic"}).
	AddIndex("history_thread", false, []string{"thread_id"})

var auditTable = schema.NewTable("audit_events").
	AddPrimary(idColumn()).
	AddColumn(sequenceColumn()).
	AddColumn(&schema.Column{Name: "audit_id", Type: field.TypeString, Unique: true}).
	AddColumn(&schema.Column{Name: "student_id", Type: field.TypeString}).
	AddColumn(&schema.Column{Name: "thread_id", Type: field.TypeString, Default: ""}).
	AddColumn(&schema.Column{Name: "topic", Type: field.TypeString, Default: ""}).
	AddColumn(&schema.Column{Name: "kind", Type: field.TypeString}).
	AddColumn(&schema.Column{Name: "payload", Type: field.TypeString, Default: "{}"}).
	AddColumn(createdAtColumn()).
	AddIndex("audit_student", false, []string{"student_id"}).
	AddIndex("audit_kind", false, []string{"kind"})

var evaluationsTable = schema.NewTable("evaluations").
	AddPrimary(idColumn()).
	AddColumn(&schema.Column{Name: "eval_id", Type: field.TypeString, Unique: true}).
	AddColumn(&schema.Column{Name: "student_id", Type: field.TypeString}).
	AddColumn(&schema.Column{Name: "thread_id", Type: field.TypeString, Default: ""}).
	AddColumn(&schema.Column{Name: "topic", Type: field.TypeString}).
	AddColumn(&schema.Column{Name: "questions", Type: field.TypeString, Default: "[]"}).
	AddColumn(&schema.Column{Name: "student_answers", Type: field.TypeString, Default: "[]"}).
	AddColumn(&schema.Column{Name: "grading", Type: field.TypeString, Default: "{}"}).
	AddColumn(&schema.Column{Name: "overall_score", Type: field.TypeFloat64, Default: 0}).
	AddColumn(createdAtColumn()).
	AddIndex("evaluations_student_topic", false, []string{"student_id", "topic"})

var llmEventsTable = schema.NewTable("llm_request_events").
	AddPrimary(idColumn()).
	AddColumn(sequenceColumn()).
	AddColumn(&schema.Column{Name: "thread_id", Type: field.TypeString, Default: ""}).
	AddColumn(&schema.Column{Name: "provider", Type: field.TypeString}).
	AddColumn(&schema.Column{Name: "model", Type: field.TypeString}).
	AddColumn(&schema.Column{Name: "purpose", Type: field.TypeString}).
	AddColumn(&schema.Column{Name: "input_tokens", Type: field.TypeInt, Default: 0}).
	AddColumn(&schema.Column{Name: "output_tokens", Type: field.TypeInt, Default: 0}).
	AddColumn(&schema.Column{Name: "latency_ms", Type: field.TypeInt64, Default: 0}).
	AddColumn(&schema.Column{Name: "success", Type: field.TypeBool}).
	AddColumn(&schema.Column{Name: "error_message", Type: field.TypeString, Default: ""}).
	AddColumn(&schema.Column{Name: "request_body", Type: field.TypeString, Default: ""}).
	AddColumn(&schema.Column{Name: "response_body", Type: field.TypeString, Default: ""}).
	AddColumn(createdAtColumn()).
	AddIndex("llm_events_purpose", false, []string{"purpose"}).
	AddIndex("llm_events_model", false, []string{"model"})

var checkpointsTable = schema.NewTable("session_checkpoints").
	AddPrimary(idColumn()).
	AddColumn(&schema.Column{Name: "thread_id", Type: field.TypeString, Unique: true}).
	AddColumn(&schema.Column{Name: "student_id", Type: field.TypeString}).
	AddColumn(&schema.Column{Name: "topic", Type: field.TypeString}).
	AddColumn(&schema.Column{Name: "stage", Type: field.TypeString}).
	AddColumn(&schema.Column{Name: "cycle", Type: field.TypeInt, Default: 0}).
	AddColumn(&schema.Column{Name: "remediation_streak", Type: field.TypeInt, Default: 0}).
	AddColumn(&schema.Column{Name: "state", Type: field.TypeString, Default: "{}"}).
	AddColumn(&schema.Column{Name: "updated_at", Type: field.TypeTime})

// Tables lists every ent-managed table.
var Tables = []*schema.Table{
	profilesTable,
	masteryTable,
	historyTable,
	auditTable,
	evaluationsTable,
	llmEventsTable,
	checkpointsTable,
}
