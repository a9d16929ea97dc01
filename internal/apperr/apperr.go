// Package apperr defines the error taxonomy shared by every engine component.
//
// Callers classify failures with the Is* helpers rather than comparing
// strings; each type survives fmt.Errorf("...: %w") wrapping.
package apperr

import (
	"errors"
	"fmt"
)

// Sentinels wrapped by the typed errors below.
var (
	// ErrUnknownSubject is wrapped in a ValidationError when no templates
	// exist for a requested subject.
	ErrUnknownSubject = errors.New("unknown subject")

	// ErrUnresolvedVariable is wrapped in a ValidationError when rendered
	// text still contains a {variable} token.
	ErrUnresolvedVariable = errors.New("unresolved template variable")

	// ErrClosed is returned by every engine operation after shutdown.
	ErrClosed = errors.New("engine closed")
)

// Entity kinds used in NotFoundError.
const (
	KindAssessment = "assessment"
	KindSession    = "session"
	KindQuestion   = "question"
	KindTemplate   = "template"
)

// NotFoundError indicates an assessment, session or question is absent.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// NotFound builds a NotFoundError.
func NotFound(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// InvalidStateError indicates an operation on a terminal or mismatched-state
// entity. No state is mutated when it is returned.
type InvalidStateError struct {
	Op    string // operation attempted, e.g. "submit answer"
	State string // state the entity was in
	Msg   string // optional detail
}

func (e *InvalidStateError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("cannot %s in state %q: %s", e.Op, e.State, e.Msg)
	}
	return fmt.Sprintf("cannot %s in state %q", e.Op, e.State)
}

// InvalidState builds an InvalidStateError.
func InvalidState(op, state, msg string) error {
	return &InvalidStateError{Op: op, State: state, Msg: msg}
}

// ValidationError indicates a malformed payload, unknown subject or template,
// or an unresolved template variable.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Field != "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, msg)
	}
	return "validation failed: " + msg
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Invalid builds a ValidationError for field with a formatted message.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ConflictError indicates a disallowed duplicate, e.g. a second active
// session for the same assessment and student.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return "conflict: " + e.Message
}

// Conflict builds a ConflictError with a formatted message.
func Conflict(format string, args ...any) error {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// ConfigurationError indicates a missing feedback or difficulty table entry.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return "configuration: " + e.Message
}

// Misconfigured builds a ConfigurationError with a formatted message.
func Misconfigured(format string, args ...any) error {
	return &ConfigurationError{Message: fmt.Sprintf(format, args...)}
}

func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

func IsInvalidState(err error) bool {
	var e *InvalidStateError
	return errors.As(err, &e)
}

func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

func IsConflict(err error) bool {
	var e *ConflictError
	return errors.As(err, &e)
}

func IsConfiguration(err error) bool {
	var e *ConfigurationError
	return errors.As(err, &e)
}
