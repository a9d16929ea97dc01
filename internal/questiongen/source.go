// Package questiongen turns templates (or an LLM) into concrete questions
// at a requested difficulty tier.
package questiongen

import (
	"context"
	"slices"
	"strings"

	"github.com/abhisek/adaptiq/internal/apperr"
	"github.com/abhisek/adaptiq/internal/question"
)

// MaxCount bounds a single generation request.
const MaxCount = 100

// Source produces questions. Every returned question has passed the
// configured validators.
type Source interface {
	Generate(ctx context.Context, req Request) ([]question.Question, error)
}

// Request describes a batch of questions to generate.
type Request struct {
	Subject string
	Tier    question.Tier
	Count   int

	// Types limits the template pool. Empty means every type.
	Types []question.Type
}

// Validate checks the request shape. Subject existence is checked by the
// source that owns the templates.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Subject) == "" {
		return apperr.Invalid("subject", "must not be empty")
	}
	if !r.Tier.Valid() {
		return apperr.Invalid("difficulty", "unknown tier %d", int(r.Tier))
	}
	if r.Count <= 0 || r.Count > MaxCount {
		return apperr.Invalid("count", "must be between 1 and %d, got %d", MaxCount, r.Count)
	}
	for _, qt := range r.Types {
		if !qt.Valid() {
			return apperr.Invalid("types", "unknown question type %q", qt)
		}
	}
	return nil
}

func (r Request) allows(qt question.Type) bool {
	return len(r.Types) == 0 || slices.Contains(r.Types, qt)
}

func unknownSubject(subject string) error {
	return &apperr.ValidationError{
		Field:   "subject",
		Message: "no templates for subject " + subject,
		Err:     apperr.ErrUnknownSubject,
	}
}
