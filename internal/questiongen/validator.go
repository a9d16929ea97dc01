package questiongen

import (
	"fmt"
	"slices"

	"github.com/abhisek/adaptiq/internal/apperr"
	"github.com/abhisek/adaptiq/internal/question"
	"github.com/abhisek/adaptiq/internal/templates"
)

// Validator checks a generated question before it is returned.
// Implementations should be stateless and safe for concurrent use.
type Validator interface {
	// Name returns a short identifier, e.g. "structural".
	Name() string

	// Validate returns nil if q passes.
	Validate(q *question.Question) *apperr.ValidationError
}

func failed(v Validator, format string, args ...any) *apperr.ValidationError {
	return &apperr.ValidationError{
		Field:   "question",
		Message: fmt.Sprintf("%s: %s", v.Name(), fmt.Sprintf(format, args...)),
	}
}

// StructuralValidator checks required fields, unresolved tokens and that
// the answer specification fits the question type.
type StructuralValidator struct{}

func (v *StructuralValidator) Name() string { return "structural" }

func (v *StructuralValidator) Validate(q *question.Question) *apperr.ValidationError {
	if q.Content == "" {
		return failed(v, "content is empty")
	}
	if !q.Type.Valid() {
		return failed(v, "unknown type %q", q.Type)
	}
	for _, s := range append([]string{q.Content, q.Explanation}, q.Hints...) {
		if tok := templates.FindUnresolved(s); tok != "" {
			verr := failed(v, "unresolved token %s", tok)
			verr.Err = apperr.ErrUnresolvedVariable
			return verr
		}
	}

	switch q.Type {
	case question.TypeMultipleChoice:
		if len(q.Options) < 2 {
			return failed(v, "multiple choice needs at least 2 options, got %d", len(q.Options))
		}
		ids := make([]string, 0, len(q.Options))
		for _, o := range q.Options {
			if slices.Contains(ids, o.ID) {
				return failed(v, "duplicate option id %q", o.ID)
			}
			ids = append(ids, o.ID)
		}
		if !slices.Contains(ids, q.CorrectAnswer) {
			return failed(v, "correct answer %q is not an option id", q.CorrectAnswer)
		}
	case question.TypeTrueFalse:
		if q.CorrectAnswer != "true" && q.CorrectAnswer != "false" {
			return failed(v, "true-false answer must be \"true\" or \"false\", got %q", q.CorrectAnswer)
		}
	case question.TypeShortAnswer:
		if q.CorrectAnswer == "" {
			return failed(v, "short answer has no correct answer")
		}
	case question.TypeFillBlank:
		if len(q.AcceptableAnswers) == 0 {
			return failed(v, "fill-blank has no acceptable answers")
		}
	case question.TypeEssay:
		if q.MinWords < 0 {
			return failed(v, "negative minimum word count")
		}
	}
	return nil
}

// ConsistencyValidator checks that points and estimated time match the tier.
type ConsistencyValidator struct{}

func (v *ConsistencyValidator) Name() string { return "consistency" }

func (v *ConsistencyValidator) Validate(q *question.Question) *apperr.ValidationError {
	points, est, err := question.Derive(q.Tier, q.Type)
	if err != nil {
		return failed(v, "%v", err)
	}
	if q.Points != points {
		return failed(v, "points %d do not match %s (%d)", q.Points, q.Tier, points)
	}
	if q.EstimatedTime != est {
		return failed(v, "estimated time %s does not match %s %s (%s)", q.EstimatedTime, q.Tier, q.Type, est)
	}
	return nil
}

// runValidators stops at the first failure.
func runValidators(vs []Validator, q *question.Question) error {
	for _, v := range vs {
		if verr := v.Validate(q); verr != nil {
			return verr
		}
	}
	return nil
}
