// Package events defines the domain events the engine publishes and the
// sinks that receive them.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/abhisek/adaptiq/internal/adaptive"
)

// Kind names a domain event.
type Kind string

const (
	KindAssessmentCreated  Kind = "assessment.created"
	KindSessionStarted     Kind = "session.started"
	KindAnswerSubmitted    Kind = "answer.submitted"
	KindDifficultyAdjusted Kind = "difficulty.adjusted"
	KindSessionCompleted   Kind = "session.completed"
	KindSessionAbandoned   Kind = "session.abandoned"
)

// Event is one published domain event.
type Event struct {
	ID           string    `json:"id"`
	Kind         Kind      `json:"kind"`
	AssessmentID string    `json:"assessment_id,omitempty"`
	SessionID    string    `json:"session_id,omitempty"`
	StudentID    string    `json:"student_id,omitempty"`
	At           time.Time `json:"at"`
	Payload      any       `json:"payload,omitempty"`
}

// Sink receives events. Implementations must not block for long; the
// engine publishes outside of any session lock and only logs failures.
type Sink interface {
	Publish(ctx context.Context, e Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Multi fans an event out to every sink and joins their errors.
type Multi []Sink

func (m Multi) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Payloads.

type AssessmentCreated struct {
	Title     string `json:"title"`
	Subject   string `json:"subject"`
	Questions int    `json:"questions"`
	Status    string `json:"status"`
}

type SessionStarted struct {
	Questions int  `json:"questions"`
	Adaptive  bool `json:"adaptive"`
}

type AnswerSubmitted struct {
	QuestionID   string `json:"question_id"`
	Correct      bool   `json:"correct"`
	Score        int    `json:"score"`
	SessionScore int    `json:"session_score"`
}

type DifficultyAdjusted struct {
	Direction   string                `json:"direction"`
	Adjustments []adaptive.Adjustment `json:"adjustments"`
}

type SessionCompleted struct {
	Score    int     `json:"score"`
	MaxScore int     `json:"max_score"`
	Accuracy float64 `json:"accuracy"`
}

type SessionAbandoned struct {
	Reason string `json:"reason"`
	Score  int    `json:"score"`
}
