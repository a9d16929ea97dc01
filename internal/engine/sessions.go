package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abhisek/adaptiq/internal/adaptive"
	"github.com/abhisek/adaptiq/internal/analytics"
	"github.com/abhisek/adaptiq/internal/apperr"
	"github.com/abhisek/adaptiq/internal/assessment"
	"github.com/abhisek/adaptiq/internal/events"
	"github.com/abhisek/adaptiq/internal/feedback"
	"github.com/abhisek/adaptiq/internal/question"
	"github.com/abhisek/adaptiq/internal/session"
	"github.com/abhisek/adaptiq/internal/store"
)

// StartOptions tune a single session.
type StartOptions struct {
	// Randomize overrides the assessment's RandomizeQuestions setting.
	Randomize *bool
}

// SubmitResult is returned by SubmitAnswer.
type SubmitResult struct {
	Response     session.Response      `json:"response"`
	Feedback     *feedback.Feedback    `json:"feedback,omitempty"`
	SessionScore int                   `json:"session_score"`
	Direction    adaptive.Direction    `json:"-"`
	ShowFeedback bool                  `json:"-"`
	Adjustments  []adaptive.Adjustment `json:"adjustments,omitempty"`
}

// StartSession snapshots the assessment's questions into a new active
// session for studentID.
func (e *Engine) StartSession(ctx context.Context, assessmentID, studentID string, opts StartOptions) (*session.Session, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	defer e.metrics.ObserveOp("start_session", time.Now())

	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		return nil, apperr.Invalid("student_id", "student id is required")
	}

	a, err := e.registry.Get(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	switch {
	case a.Status == assessment.StatusArchived:
		return nil, apperr.InvalidState("start session", string(a.Status), "assessment "+a.ID+" is archived")
	case a.Status == assessment.StatusDraft && !e.allowDraft:
		return nil, apperr.InvalidState("start session", string(a.Status), "assessment "+a.ID+" is not published")
	case len(a.Questions) == 0:
		return nil, apperr.Invalid("questions", "assessment %s has no questions", a.ID)
	}

	id := uuid.NewString()
	key := pairKey{assessmentID: a.ID, studentID: studentID}
	exclusive := !a.Settings.AllowRetakes
	if exclusive {
		if err := e.reserve(ctx, key, id); err != nil {
			return nil, err
		}
	}

	qs := question.CloneAll(a.Questions)
	randomize := a.Settings.RandomizeQuestions
	if opts.Randomize != nil {
		randomize = *opts.Randomize
	}
	if randomize {
		e.shuffle(qs)
	}

	s, err := session.New(id, a.ID, studentID, qs, e.now())
	if err != nil {
		if exclusive {
			e.release(key, id)
		}
		return nil, err
	}
	s.TimeLimit = a.Settings.TimeLimit
	s.Adaptive = a.IsAdaptive()
	s.ShowFeedback = a.Settings.ShowFeedback

	if _, err := e.store.SaveSession(ctx, s); err != nil {
		if exclusive {
			e.release(key, id)
		}
		e.logger.Error("save new session failed", zap.String("assessment_id", a.ID), zap.Error(err))
		return nil, fmt.Errorf("save session: %w", err)
	}
	out := s.Clone()
	e.sessions.putIfAbsent(&entry{s: s})

	e.metrics.SessionStarted()
	e.logger.Info("session started",
		zap.String("session_id", id),
		zap.String("assessment_id", a.ID),
		zap.String("student_id", studentID),
		zap.Int("questions", len(qs)),
		zap.Bool("adaptive", s.Adaptive))
	e.publish(ctx, events.Event{
		Kind:         events.KindSessionStarted,
		AssessmentID: a.ID,
		SessionID:    id,
		StudentID:    studentID,
		At:           out.StartedAt,
		Payload:      events.SessionStarted{Questions: len(qs), Adaptive: s.Adaptive},
	})
	return out, nil
}

// reserve claims key for sessionID, failing with a ConflictError when an
// active session already holds it in memory or in the store.
func (e *Engine) reserve(ctx context.Context, key pairKey, sessionID string) error {
	e.pairMu.Lock()
	if holder, ok := e.pairs[key]; ok {
		e.pairMu.Unlock()
		return apperr.Conflict("student %s already has active session %s for assessment %s", key.studentID, holder, key.assessmentID)
	}
	e.pairs[key] = sessionID
	e.pairMu.Unlock()

	active, err := e.store.QuerySessions(ctx, store.SessionFilter{
		AssessmentID: key.assessmentID,
		StudentID:    key.studentID,
		Status:       session.StatusActive,
	})
	if err != nil {
		e.release(key, sessionID)
		return fmt.Errorf("query active sessions: %w", err)
	}
	for _, s := range active {
		// The store may lag behind a session that just ended in memory.
		if live, ok := e.sessions.get(s.ID); ok {
			live.mu.Lock()
			terminal := live.s.Status.Terminal()
			live.mu.Unlock()
			if terminal {
				continue
			}
		}
		e.release(key, sessionID)
		return apperr.Conflict("student %s already has active session %s for assessment %s", key.studentID, s.ID, key.assessmentID)
	}
	return nil
}

func (e *Engine) release(key pairKey, sessionID string) {
	e.pairMu.Lock()
	defer e.pairMu.Unlock()
	if e.pairs[key] == sessionID {
		delete(e.pairs, key)
	}
}

// lookup returns the live entry for id, loading it from the store when it is
// not in memory. Terminal sessions loaded from the store are returned
// without being registered.
func (e *Engine) lookup(ctx context.Context, id string) (*entry, error) {
	if ent, ok := e.sessions.get(id); ok {
		return ent, nil
	}
	s, err := e.store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	ent := &entry{s: s}
	if s.Status.Terminal() {
		return ent, nil
	}
	ent, added := e.sessions.putIfAbsent(ent)
	if added {
		e.metrics.SessionRestored()
	}
	return ent, nil
}

// SubmitAnswer evaluates answer against questionID and records the
// response. Validation, state and store errors leave the session untouched.
func (e *Engine) SubmitAnswer(ctx context.Context, sessionID, questionID string, answer any, timeSpent time.Duration) (*SubmitResult, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	defer e.metrics.ObserveOp("submit_answer", time.Now())

	if timeSpent < 0 {
		return nil, apperr.Invalid("time_spent", "time spent must not be negative")
	}
	ent, err := e.lookup(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	ent.mu.Lock()
	// Work on a copy; the live session only changes once the store has it.
	s := ent.s.Clone()
	idx, err := s.CheckSubmit(questionID)
	if err != nil {
		ent.mu.Unlock()
		return nil, err
	}
	q := s.Questions[idx]

	correct, err := e.evaluator.Evaluate(&q, answer)
	if err != nil {
		ent.mu.Unlock()
		return nil, err
	}
	score := 0
	if correct {
		score = q.Points
	}

	// The question being answered counts as answered.
	dir, adjustments := adaptive.Hold, []adaptive.Adjustment(nil)
	if s.Adaptive {
		answered := s.AnsweredSet()
		answered[questionID] = true
		history := append(s.History(), correct)
		dir, adjustments, err = e.controller.Adjust(s.Questions, answered, history)
		if err != nil {
			ent.mu.Unlock()
			return nil, err
		}
	}

	now := e.now()
	resp := session.Response{
		QuestionID:  questionID,
		Answer:      answer,
		Correct:     correct,
		Score:       score,
		Tier:        q.Tier,
		TimeSpent:   timeSpent,
		SubmittedAt: now,
	}
	if err := s.Record(resp); err != nil {
		// CheckSubmit passed on the same copy.
		panic(fmt.Sprintf("engine: record after successful check: %v", err))
	}

	fb, fbErr := e.feedback.Generate(&q, answer, correct)
	if fbErr != nil {
		fb = nil
	} else {
		s.Responses[len(s.Responses)-1].Feedback = fb
	}
	s.MustBeConsistent()

	if err := e.save(ctx, s); err != nil {
		ent.mu.Unlock()
		return nil, err
	}
	ent.s = s
	snap := s.Clone()
	ent.mu.Unlock()

	if fbErr != nil {
		e.logger.Warn("feedback generation failed",
			zap.String("session_id", sessionID),
			zap.String("question_id", questionID),
			zap.Error(fbErr))
	}
	e.metrics.AnswerRecorded(correct)
	if len(adjustments) > 0 {
		e.metrics.DifficultyAdjusted(dir.String(), len(adjustments))
		e.logger.Debug("difficulty adjusted",
			zap.String("session_id", sessionID),
			zap.Stringer("direction", dir),
			zap.Int("questions", len(adjustments)))
	}

	e.publish(ctx, events.Event{
		Kind:         events.KindAnswerSubmitted,
		AssessmentID: snap.AssessmentID,
		SessionID:    snap.ID,
		StudentID:    snap.StudentID,
		At:           now,
		Payload: events.AnswerSubmitted{
			QuestionID:   questionID,
			Correct:      correct,
			Score:        score,
			SessionScore: snap.Score,
		},
	})
	if len(adjustments) > 0 {
		e.publish(ctx, events.Event{
			Kind:         events.KindDifficultyAdjusted,
			AssessmentID: snap.AssessmentID,
			SessionID:    snap.ID,
			StudentID:    snap.StudentID,
			At:           now,
			Payload:      events.DifficultyAdjusted{Direction: dir.String(), Adjustments: adjustments},
		})
	}

	return &SubmitResult{
		Response:     snap.Responses[len(snap.Responses)-1],
		Feedback:     fb,
		SessionScore: snap.Score,
		Direction:    dir,
		ShowFeedback: snap.ShowFeedback,
		Adjustments:  adjustments,
	}, nil
}

// EndSession completes an active session and computes its analytics.
func (e *Engine) EndSession(ctx context.Context, sessionID string) (*session.Session, *session.Analytics, error) {
	if err := e.checkOpen(); err != nil {
		return nil, nil, err
	}
	defer e.metrics.ObserveOp("end_session", time.Now())

	snap, ent, err := e.finish(ctx, sessionID, func(s *session.Session, now time.Time) error {
		return s.Complete(now, analytics.SummarizeSession(s, now))
	})
	if err != nil {
		return nil, nil, err
	}
	e.retire(snap, ent)

	a := snap.Analytics
	e.logger.Info("session completed",
		zap.String("session_id", snap.ID),
		zap.Int("score", a.Score),
		zap.Int("max_score", a.MaxScore),
		zap.Float64("accuracy", a.Accuracy))
	e.publish(ctx, events.Event{
		Kind:         events.KindSessionCompleted,
		AssessmentID: snap.AssessmentID,
		SessionID:    snap.ID,
		StudentID:    snap.StudentID,
		At:           *snap.EndedAt,
		Payload:      events.SessionCompleted{Score: a.Score, MaxScore: a.MaxScore, Accuracy: a.Accuracy},
	})
	return snap, snap.Analytics, nil
}

// AbandonSession forces an active session into the abandoned state,
// keeping the responses recorded so far.
func (e *Engine) AbandonSession(ctx context.Context, sessionID, reason string) (*session.Session, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	defer e.metrics.ObserveOp("abandon_session", time.Now())

	snap, ent, err := e.finish(ctx, sessionID, func(s *session.Session, now time.Time) error {
		return s.Abandon(now, reason)
	})
	if err != nil {
		return nil, err
	}
	e.retire(snap, ent)

	e.logger.Info("session abandoned",
		zap.String("session_id", snap.ID),
		zap.String("reason", reason),
		zap.Int("responses", len(snap.Responses)))
	e.publish(ctx, events.Event{
		Kind:         events.KindSessionAbandoned,
		AssessmentID: snap.AssessmentID,
		SessionID:    snap.ID,
		StudentID:    snap.StudentID,
		At:           *snap.EndedAt,
		Payload:      events.SessionAbandoned{Reason: reason, Score: snap.Score},
	})
	return snap, nil
}

// finish applies a terminal transition to a copy of the session, persists
// it and only then installs it, so a failed save leaves the session active
// and the call retryable.
func (e *Engine) finish(ctx context.Context, sessionID string, transition func(*session.Session, time.Time) error) (*session.Session, *entry, error) {
	ent, err := e.lookup(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}

	ent.mu.Lock()
	defer ent.mu.Unlock()
	next := ent.s.Clone()
	if err := transition(next, e.now()); err != nil {
		return nil, nil, err
	}
	next.MustBeConsistent()
	if err := e.save(ctx, next); err != nil {
		return nil, nil, err
	}
	ent.s = next
	return next.Clone(), ent, nil
}

// retire drops a terminal session from memory once it is persisted.
func (e *Engine) retire(snap *session.Session, ent *entry) {
	e.sessions.remove(snap.ID, ent)
	e.release(pairKey{assessmentID: snap.AssessmentID, studentID: snap.StudentID}, snap.ID)
	e.metrics.SessionEnded(string(snap.Status))
}

func (e *Engine) save(ctx context.Context, snap *session.Session) error {
	if _, err := e.store.SaveSession(ctx, snap); err != nil {
		e.logger.Error("save session failed",
			zap.String("session_id", snap.ID),
			zap.Int64("version", snap.Version),
			zap.Error(err))
		return fmt.Errorf("save session %s: %w", snap.ID, err)
	}
	return nil
}

// GetSession returns a copy of the session.
func (e *Engine) GetSession(ctx context.Context, sessionID string) (*session.Session, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	if ent, ok := e.sessions.get(sessionID); ok {
		ent.mu.Lock()
		defer ent.mu.Unlock()
		return ent.s.Clone(), nil
	}
	return e.store.GetSession(ctx, sessionID)
}

// ActiveSessions returns copies of the live active sessions.
func (e *Engine) ActiveSessions() []*session.Session {
	var out []*session.Session
	for _, ent := range e.sessions.all() {
		ent.mu.Lock()
		if ent.s.Status == session.StatusActive {
			out = append(out, ent.s.Clone())
		}
		ent.mu.Unlock()
	}
	return out
}

// Restore loads the store's active sessions into memory and returns how
// many were added.
func (e *Engine) Restore(ctx context.Context) (int, error) {
	if err := e.checkOpen(); err != nil {
		return 0, err
	}
	active, err := e.store.QuerySessions(ctx, store.SessionFilter{Status: session.StatusActive})
	if err != nil {
		return 0, fmt.Errorf("query active sessions: %w", err)
	}
	n := 0
	for _, s := range active {
		if _, added := e.sessions.putIfAbsent(&entry{s: s}); added {
			n++
			e.metrics.SessionRestored()
		}
	}
	e.logger.Info("sessions restored", zap.Int("count", n))
	return n, nil
}
