package store

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// Table definitions in the shape ent's migrate package expects. Full
// documents are stored as JSON; the scalar columns exist for filtering and
// ordering.
var (
	assessmentsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Unique: true},
		{Name: "subject", Type: field.TypeString},
		{Name: "status", Type: field.TypeString},
		{Name: "created_by", Type: field.TypeString, Default: ""},
		{Name: "created_at", Type: field.TypeInt64},
		{Name: "data", Type: field.TypeJSON},
	}
	assessmentsTable = &schema.Table{
		Name:       "assessments",
		Columns:    assessmentsColumns,
		PrimaryKey: []*schema.Column{assessmentsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "assessment_subject_status", Columns: []*schema.Column{assessmentsColumns[1], assessmentsColumns[2]}},
		},
	}

	sessionsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Unique: true},
		{Name: "assessment_id", Type: field.TypeString},
		{Name: "student_id", Type: field.TypeString},
		{Name: "status", Type: field.TypeString},
		{Name: "started_at", Type: field.TypeInt64},
		{Name: "version", Type: field.TypeInt64},
		{Name: "data", Type: field.TypeJSON},
	}
	sessionsTable = &schema.Table{
		Name:       "sessions",
		Columns:    sessionsColumns,
		PrimaryKey: []*schema.Column{sessionsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "session_assessment_student", Columns: []*schema.Column{sessionsColumns[1], sessionsColumns[2]}},
			{Name: "session_status", Columns: []*schema.Column{sessionsColumns[3]}},
		},
	}

	eventsColumns = []*schema.Column{
		{Name: "sequence", Type: field.TypeInt64, Unique: true},
		{Name: "id", Type: field.TypeString},
		{Name: "kind", Type: field.TypeString},
		{Name: "assessment_id", Type: field.TypeString, Default: ""},
		{Name: "session_id", Type: field.TypeString, Default: ""},
		{Name: "student_id", Type: field.TypeString, Default: ""},
		{Name: "at", Type: field.TypeInt64},
		{Name: "payload", Type: field.TypeJSON, Nullable: true},
	}
	eventsTable = &schema.Table{
		Name:       "events",
		Columns:    eventsColumns,
		PrimaryKey: []*schema.Column{eventsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "event_kind", Columns: []*schema.Column{eventsColumns[2]}},
			{Name: "event_session", Columns: []*schema.Column{eventsColumns[4]}},
		},
	}

	tables = []*schema.Table{assessmentsTable, sessionsTable, eventsTable}
)
