package question

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Type describes how the student answers a question.
type Type string

const (
	TypeMultipleChoice Type = "multiple-choice"
	TypeTrueFalse      Type = "true-false"
	TypeShortAnswer    Type = "short-answer"
	TypeEssay          Type = "essay"
	TypeFillBlank      Type = "fill-blank"
)

// AllTypes returns every supported question type.
func AllTypes() []Type {
	return []Type{TypeMultipleChoice, TypeTrueFalse, TypeShortAnswer, TypeEssay, TypeFillBlank}
}

// Valid reports whether qt is a supported question type.
func (qt Type) Valid() bool {
	return slices.Contains(AllTypes(), qt)
}

// IsChoice reports whether the type is answered by picking an option id.
func (qt Type) IsChoice() bool {
	return qt == TypeMultipleChoice || qt == TypeTrueFalse
}

// ParseType parses a question type name such as "fill-blank".
func ParseType(s string) (Type, error) {
	qt := Type(strings.ToLower(strings.TrimSpace(s)))
	if !qt.Valid() {
		return "", fmt.Errorf("unknown question type %q", s)
	}
	return qt, nil
}

// Option is a selectable answer for choice questions.
type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// FeedbackTemplates holds the static messages shown after an answer.
type FeedbackTemplates struct {
	Correct   string `json:"correct"`
	Incorrect string `json:"incorrect"`
	Partial   string `json:"partial,omitempty"`
}

// Question is a concrete, rendered question ready to be answered.
type Question struct {
	// ID is unique within the owning assessment.
	ID string `json:"id"`

	Type Type `json:"type"`

	// Content is the rendered prompt. It never contains a {variable} token.
	Content string `json:"content"`

	// Options is populated for multiple-choice and true-false questions.
	Options []Option `json:"options,omitempty"`

	// CorrectAnswer is the option id for choice types, the expected text for
	// short answers, and empty for essays.
	CorrectAnswer string `json:"correct_answer,omitempty"`

	// AcceptableAnswers lists every accepted string for fill-blank questions.
	AcceptableAnswers []string `json:"acceptable_answers,omitempty"`

	// MinWords is the essay length threshold. Zero means the evaluator default.
	MinWords int `json:"min_words,omitempty"`

	Tier          Tier          `json:"difficulty"`
	Points        int           `json:"points"`
	EstimatedTime time.Duration `json:"estimated_time"`

	Explanation string            `json:"explanation,omitempty"`
	Hints       []string          `json:"hints,omitempty"`
	Feedback    FeedbackTemplates `json:"feedback"`

	Subject    string `json:"subject,omitempty"`
	Topic      string `json:"topic,omitempty"`
	TemplateID string `json:"template_id,omitempty"`
}

// SetTier moves q to tier t and recomputes points and estimated time.
// q is left untouched when the derivation fails.
func (q *Question) SetTier(t Tier) error {
	points, est, err := Derive(t, q.Type)
	if err != nil {
		return err
	}
	q.Tier = t
	q.Points = points
	q.EstimatedTime = est
	return nil
}

// Clone returns a deep copy of q.
func (q Question) Clone() Question {
	q.Options = slices.Clone(q.Options)
	q.AcceptableAnswers = slices.Clone(q.AcceptableAnswers)
	q.Hints = slices.Clone(q.Hints)
	return q
}

// CloneAll deep-copies a question list.
func CloneAll(qs []Question) []Question {
	if qs == nil {
		return nil
	}
	out := make([]Question, len(qs))
	for i := range qs {
		out[i] = qs[i].Clone()
	}
	return out
}

// TotalPoints sums points over qs.
func TotalPoints(qs []Question) int {
	total := 0
	for i := range qs {
		total += qs[i].Points
	}
	return total
}
