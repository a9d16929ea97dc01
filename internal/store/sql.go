package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"

	"github.com/abhisek/adaptiq/internal/apperr"
	"github.com/abhisek/adaptiq/internal/assessment"
	"github.com/abhisek/adaptiq/internal/session"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

var builder = entsql.Dialect(dialect.SQLite)

// SQLStore persists documents in SQLite through ent's SQL builders.
type SQLStore struct {
	db  *sql.DB
	drv *entsql.Driver
	seq *sequenceCounter
}

// Open creates a SQLStore connected to the SQLite database at dsn.
// It applies recommended pragmas and runs auto-migration.
func Open(dsn string) (*SQLStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Pragmas are per connection; a single connection keeps them in force
	// and matches SQLite's single-writer model.
	db.SetMaxOpenConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	drv := entsql.OpenDB(dialect.SQLite, db)
	migrate, err := schema.NewMigrate(drv)
	if err != nil {
		drv.Close()
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	if err := migrate.Create(context.Background(), tables...); err != nil {
		drv.Close()
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}

	seq, err := newSequenceCounter(db)
	if err != nil {
		drv.Close()
		return nil, err
	}

	return &SQLStore{db: db, drv: drv, seq: seq}, nil
}

// DB returns the underlying *sql.DB for raw queries.
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.drv.Close()
}

// applyPragmas configures SQLite for a single-process server.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

func (s *SQLStore) GetAssessment(ctx context.Context, id string) (*assessment.Assessment, error) {
	query, args := builder.Select("data").
		From(entsql.Table(assessmentsTable.Name)).
		Where(entsql.EQ("id", id)).
		Query()

	var a assessment.Assessment
	if err := s.getDocument(ctx, query, args, &a); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound(apperr.KindAssessment, id)
		}
		return nil, fmt.Errorf("get assessment: %w", err)
	}
	return &a, nil
}

func (s *SQLStore) SaveAssessment(ctx context.Context, a *assessment.Assessment) error {
	if err := checkAssessment(a); err != nil {
		return err
	}
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal assessment: %w", err)
	}
	query, args := builder.Insert(assessmentsTable.Name).
		Columns("id", "subject", "status", "created_by", "created_at", "data").
		Values(a.ID, a.Subject, string(a.Status), a.CreatedBy, a.CreatedAt.UnixNano(), string(data)).
		OnConflict(entsql.ConflictColumns("id"), entsql.ResolveWithNewValues()).
		Query()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save assessment: %w", err)
	}
	return nil
}

func (s *SQLStore) ListAssessments(ctx context.Context, f assessment.Filter) ([]*assessment.Assessment, error) {
	var preds []*entsql.Predicate
	if f.Subject != "" {
		preds = append(preds, entsql.EQ("subject", f.Subject))
	}
	if f.Status != "" {
		preds = append(preds, entsql.EQ("status", string(f.Status)))
	}
	if f.CreatedBy != "" {
		preds = append(preds, entsql.EQ("created_by", f.CreatedBy))
	}
	sel := builder.Select("data").From(entsql.Table(assessmentsTable.Name))
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	query, args := sel.OrderBy("created_at", "id").Query()

	var out []*assessment.Assessment
	err := s.eachDocument(ctx, query, args, func(raw []byte) error {
		var a assessment.Assessment
		if err := json.Unmarshal(raw, &a); err != nil {
			return err
		}
		out = append(out, &a)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list assessments: %w", err)
	}
	return out, nil
}

func (s *SQLStore) GetSession(ctx context.Context, id string) (*session.Session, error) {
	query, args := builder.Select("data").
		From(entsql.Table(sessionsTable.Name)).
		Where(entsql.EQ("id", id)).
		Query()

	var sess session.Session
	if err := s.getDocument(ctx, query, args, &sess); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound(apperr.KindSession, id)
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &sess, nil
}

// SaveSession inserts a new session or overwrites an older version of it.
func (s *SQLStore) SaveSession(ctx context.Context, sess *session.Session) (bool, error) {
	data, err := json.Marshal(sess)
	if err != nil {
		return false, fmt.Errorf("marshal session: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	insert, args := builder.Insert(sessionsTable.Name).
		Columns("id", "assessment_id", "student_id", "status", "started_at", "version", "data").
		Values(sess.ID, sess.AssessmentID, sess.StudentID, string(sess.Status), sess.StartedAt.UnixNano(), sess.Version, string(data)).
		OnConflict(entsql.ConflictColumns("id"), entsql.DoNothing()).
		Query()
	res, err := tx.ExecContext(ctx, insert, args...)
	if err != nil {
		return false, fmt.Errorf("insert session: %w", err)
	}
	written, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert session: %w", err)
	}

	if written == 0 {
		update, args := builder.Update(sessionsTable.Name).
			Set("status", string(sess.Status)).
			Set("version", sess.Version).
			Set("data", string(data)).
			Where(entsql.And(entsql.EQ("id", sess.ID), entsql.LT("version", sess.Version))).
			Query()
		res, err := tx.ExecContext(ctx, update, args...)
		if err != nil {
			return false, fmt.Errorf("update session: %w", err)
		}
		if written, err = res.RowsAffected(); err != nil {
			return false, fmt.Errorf("update session: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit session: %w", err)
	}
	return written > 0, nil
}

func (s *SQLStore) QuerySessions(ctx context.Context, f SessionFilter) ([]*session.Session, error) {
	var preds []*entsql.Predicate
	if f.AssessmentID != "" {
		preds = append(preds, entsql.EQ("assessment_id", f.AssessmentID))
	}
	if f.StudentID != "" {
		preds = append(preds, entsql.EQ("student_id", f.StudentID))
	}
	if f.Status != "" {
		preds = append(preds, entsql.EQ("status", string(f.Status)))
	}
	sel := builder.Select("data").From(entsql.Table(sessionsTable.Name))
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	query, args := sel.OrderBy("started_at", "id").Query()

	var out []*session.Session
	err := s.eachDocument(ctx, query, args, func(raw []byte) error {
		var sess session.Session
		if err := json.Unmarshal(raw, &sess); err != nil {
			return err
		}
		out = append(out, &sess)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	return out, nil
}

func (s *SQLStore) getDocument(ctx context.Context, query string, args []any, v any) error {
	var raw []byte
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&raw); err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

func (s *SQLStore) eachDocument(ctx context.Context, query string, args []any, fn func(raw []byte) error) error {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return err
		}
		if err := fn(raw); err != nil {
			return err
		}
	}
	return rows.Err()
}
