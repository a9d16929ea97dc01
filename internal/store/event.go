package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/adaptiq/internal/events"
)

// sequenceCounter hands out the global monotonic sequence number that
// orders the event log. Uses raw SQL because ent has no database-level
// atomic counter. The mutex serializes within the process; the RETURNING
// clause makes the increment atomic at the database level.
type sequenceCounter struct {
	mu sync.Mutex
	db *sql.DB
}

// newSequenceCounter creates a counter and ensures the tracking table exists.
func newSequenceCounter(db *sql.DB) (*sequenceCounter, error) {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS global_sequence (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		next_val INTEGER NOT NULL DEFAULT 1
	)`)
	if err != nil {
		return nil, fmt.Errorf("create sequence table: %w", err)
	}

	_, err = db.Exec(`INSERT OR IGNORE INTO global_sequence (id, next_val) VALUES (1, 1)`)
	if err != nil {
		return nil, fmt.Errorf("seed sequence: %w", err)
	}

	return &sequenceCounter{db: db}, nil
}

// Next atomically returns the next sequence number and increments the counter.
func (sc *sequenceCounter) Next(ctx context.Context) (int64, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	var seq int64
	err := sc.db.QueryRowContext(ctx,
		`UPDATE global_sequence SET next_val = next_val + 1 WHERE id = 1 RETURNING next_val - 1`,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return seq, nil
}

// EventQuery filters and paginates the event log.
type EventQuery struct {
	Limit     int   // max results (0 = unlimited)
	After     int64 // sequence > After
	Kind      events.Kind
	SessionID string
}

// LoggedEvent is an event read back from the log. Payload holds the raw
// JSON that was written.
type LoggedEvent struct {
	Sequence int64 `json:"sequence"`
	events.Event
	Payload json.RawMessage `json:"payload"`
}

// EventLog is an events.Sink that appends to the events table.
type EventLog struct {
	store *SQLStore
}

// EventLog returns the append-only event log backed by this store.
func (s *SQLStore) EventLog() *EventLog {
	return &EventLog{store: s}
}

func (l *EventLog) Publish(ctx context.Context, e events.Event) error {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", e.Kind, err)
	}
	seq, err := l.store.seq.Next(ctx)
	if err != nil {
		return err
	}
	query, args := builder.Insert(eventsTable.Name).
		Columns("sequence", "id", "kind", "assessment_id", "session_id", "student_id", "at", "payload").
		Values(seq, e.ID, string(e.Kind), e.AssessmentID, e.SessionID, e.StudentID, e.At.UnixNano(), string(payload)).
		Query()
	if _, err := l.store.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("append %s event: %w", e.Kind, err)
	}
	return nil
}

// Query returns logged events in sequence order.
func (l *EventLog) Query(ctx context.Context, q EventQuery) ([]LoggedEvent, error) {
	sel := builder.Select("sequence", "id", "kind", "assessment_id", "session_id", "student_id", "at", "payload").
		From(entsql.Table(eventsTable.Name)).
		Where(entsql.GT("sequence", q.After))
	if q.Kind != "" {
		sel.Where(entsql.EQ("kind", string(q.Kind)))
	}
	if q.SessionID != "" {
		sel.Where(entsql.EQ("session_id", q.SessionID))
	}
	sel.OrderBy("sequence")
	if q.Limit > 0 {
		sel.Limit(q.Limit)
	}
	query, args := sel.Query()

	rows, err := l.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []LoggedEvent
	for rows.Next() {
		var (
			ev      LoggedEvent
			kind    string
			at      int64
			payload []byte
		)
		if err := rows.Scan(&ev.Sequence, &ev.ID, &kind, &ev.AssessmentID, &ev.SessionID, &ev.StudentID, &at, &payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Kind = events.Kind(kind)
		ev.At = time.Unix(0, at).UTC()
		ev.Payload = payload
		out = append(out, ev)
	}
	return out, rows.Err()
}
