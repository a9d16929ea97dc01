package store

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/abhisek/adaptiq/internal/apperr"
	"github.com/abhisek/adaptiq/internal/assessment"
	"github.com/abhisek/adaptiq/internal/session"
)

// MemoryStore keeps everything in maps. Values are cloned on the way in and
// out so callers never share memory with the store.
type MemoryStore struct {
	mu          sync.RWMutex
	assessments map[string]*assessment.Assessment
	sessions    map[string]*session.Session
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		assessments: make(map[string]*assessment.Assessment),
		sessions:    make(map[string]*session.Session),
	}
}

func (m *MemoryStore) GetAssessment(_ context.Context, id string) (*assessment.Assessment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.assessments[id]
	if !ok {
		return nil, apperr.NotFound(apperr.KindAssessment, id)
	}
	return a.Clone(), nil
}

func (m *MemoryStore) SaveAssessment(_ context.Context, a *assessment.Assessment) error {
	if err := checkAssessment(a); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assessments[a.ID] = a.Clone()
	return nil
}

func (m *MemoryStore) ListAssessments(_ context.Context, f assessment.Filter) ([]*assessment.Assessment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*assessment.Assessment
	for _, a := range m.assessments {
		if f.Subject != "" && a.Subject != f.Subject {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if f.CreatedBy != "" && a.CreatedBy != f.CreatedBy {
			continue
		}
		out = append(out, a.Clone())
	}
	slices.SortFunc(out, func(x, y *assessment.Assessment) int {
		return cmp.Or(x.CreatedAt.Compare(y.CreatedAt), cmp.Compare(x.ID, y.ID))
	})
	return out, nil
}

func (m *MemoryStore) GetSession(_ context.Context, id string) (*session.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, apperr.NotFound(apperr.KindSession, id)
	}
	return s.Clone(), nil
}

func (m *MemoryStore) SaveSession(_ context.Context, s *session.Session) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.sessions[s.ID]; ok && cur.Version >= s.Version {
		return false, nil
	}
	m.sessions[s.ID] = s.Clone()
	return true, nil
}

func (m *MemoryStore) QuerySessions(_ context.Context, f SessionFilter) ([]*session.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*session.Session
	for _, s := range m.sessions {
		if f.matches(s) {
			out = append(out, s.Clone())
		}
	}
	slices.SortFunc(out, func(x, y *session.Session) int {
		return cmp.Or(x.StartedAt.Compare(y.StartedAt), cmp.Compare(x.ID, y.ID))
	})
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }
