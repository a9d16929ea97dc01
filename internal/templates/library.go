package templates

import (
	"fmt"
	"slices"
	"strings"

	"github.com/abhisek/adaptiq/internal/apperr"
)

// Library is an immutable, subject-indexed set of templates.
type Library struct {
	templates []Template
	byID      map[string]int
	bySubject map[string][]int
}

// NewLibrary indexes tpls. Duplicate IDs are rejected; later semantic checks
// belong to Validate.
func NewLibrary(tpls []Template) (*Library, error) {
	l := &Library{
		byID:      make(map[string]int, len(tpls)),
		bySubject: make(map[string][]int),
	}
	for _, t := range tpls {
		if _, dup := l.byID[t.ID]; dup {
			return nil, apperr.Invalid("template id", "duplicate id %q", t.ID)
		}
		t.Subject = normalizeSubject(t.Subject)
		idx := len(l.templates)
		l.templates = append(l.templates, t)
		l.byID[t.ID] = idx
		l.bySubject[t.Subject] = append(l.bySubject[t.Subject], idx)
	}
	return l, nil
}

func normalizeSubject(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Len returns the number of templates.
func (l *Library) Len() int { return len(l.templates) }

// Subjects returns every subject with at least one template, sorted.
func (l *Library) Subjects() []string {
	out := make([]string, 0, len(l.bySubject))
	for s := range l.bySubject {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}

// HasSubject reports whether subject has templates.
func (l *Library) HasSubject(subject string) bool {
	return len(l.bySubject[normalizeSubject(subject)]) > 0
}

// ForSubject returns the subject's templates. The slice is a copy.
func (l *Library) ForSubject(subject string) []Template {
	idx := l.bySubject[normalizeSubject(subject)]
	out := make([]Template, 0, len(idx))
	for _, i := range idx {
		out = append(out, l.templates[i])
	}
	return out
}

// Get returns the template with the given id.
func (l *Library) Get(id string) (Template, error) {
	i, ok := l.byID[id]
	if !ok {
		return Template{}, apperr.NotFound(apperr.KindTemplate, id)
	}
	return l.templates[i], nil
}

// All returns every template in insertion order.
func (l *Library) All() []Template {
	return slices.Clone(l.templates)
}

// Merge returns a new library with other's templates layered over l's.
// A template in other replaces the one in l with the same id.
func (l *Library) Merge(other *Library) *Library {
	merged := make([]Template, 0, l.Len()+other.Len())
	for _, t := range l.templates {
		if _, replaced := other.byID[t.ID]; !replaced {
			merged = append(merged, t)
		}
	}
	merged = append(merged, other.templates...)
	out, err := NewLibrary(merged)
	if err != nil {
		// Both inputs are already free of duplicates.
		panic(fmt.Sprintf("templates: merge produced duplicate ids: %v", err))
	}
	return out
}

// Validate checks every template against reg.
func (l *Library) Validate(reg *Registry) error {
	for i := range l.templates {
		if err := l.templates[i].Validate(reg); err != nil {
			return err
		}
	}
	return nil
}
