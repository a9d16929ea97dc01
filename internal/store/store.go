// Package store persists assessments, sessions and the event log.
//
// Two implementations share one contract: MemoryStore for tests and
// single-process use, and SQLStore over SQLite.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/abhisek/adaptiq/internal/assessment"
	"github.com/abhisek/adaptiq/internal/session"
)

// SessionFilter narrows QuerySessions. Zero fields match everything.
type SessionFilter struct {
	AssessmentID string
	StudentID    string
	Status       session.Status
}

func (f SessionFilter) matches(s *session.Session) bool {
	return (f.AssessmentID == "" || s.AssessmentID == f.AssessmentID) &&
		(f.StudentID == "" || s.StudentID == f.StudentID) &&
		(f.Status == "" || s.Status == f.Status)
}

// Store is the persistence collaborator of the engine.
type Store interface {
	assessment.Repository

	// GetSession returns a NotFoundError when id is unknown.
	GetSession(ctx context.Context, id string) (*session.Session, error)

	// SaveSession writes s unless the stored copy already has an equal or
	// newer Version. It reports whether the write happened.
	SaveSession(ctx context.Context, s *session.Session) (bool, error)

	// QuerySessions returns matching sessions ordered by start time.
	QuerySessions(ctx context.Context, f SessionFilter) ([]*session.Session, error)

	Close() error
}

// checkAssessment rejects assessments no store can round-trip.
func checkAssessment(a *assessment.Assessment) error {
	if !a.Difficulty.Valid() {
		return fmt.Errorf("save assessment %s: invalid difficulty %d", a.ID, int(a.Difficulty))
	}
	return nil
}

// DefaultDBPath resolves the database file path:
// $XDG_DATA_HOME/adaptiq/adaptiq.db, else ~/.local/share/adaptiq/adaptiq.db.
func DefaultDBPath() (string, error) {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "adaptiq", "adaptiq.db")
	return p, ensureDir(p)
}

// ensureDir creates the parent directory of path if it doesn't exist.
func ensureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
