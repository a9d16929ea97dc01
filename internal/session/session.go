// Package session models one student's attempt at an assessment and the
// state transitions it may go through.
package session

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/abhisek/adaptiq/internal/apperr"
	"github.com/abhisek/adaptiq/internal/feedback"
	"github.com/abhisek/adaptiq/internal/question"
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusAbandoned Status = "abandoned"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusAbandoned
}

// Response is the recorded outcome of one submission.
type Response struct {
	QuestionID string `json:"question_id"`
	Answer     any    `json:"answer"`
	Correct    bool   `json:"correct"`

	// Score is 0 or the question's points at the time of answering.
	Score int `json:"score"`

	// Tier is the question's tier when it was answered.
	Tier question.Tier `json:"difficulty"`

	TimeSpent   time.Duration      `json:"time_spent"`
	Feedback    *feedback.Feedback `json:"feedback,omitempty"`
	SubmittedAt time.Time          `json:"submitted_at"`
}

// Analytics is the per-session summary computed when a session ends.
type Analytics struct {
	TotalQuestions int `json:"total_questions"`
	Answered       int `json:"answered"`
	Correct        int `json:"correct"`

	// Accuracy is correct/answered as a percentage.
	Accuracy float64 `json:"accuracy"`

	Score        int     `json:"score"`
	MaxScore     int     `json:"max_score"`
	ScorePercent float64 `json:"score_percent"`

	Elapsed     time.Duration `json:"elapsed"`
	AverageTime time.Duration `json:"average_time"`

	// TierDistribution counts answered questions by tier at answer time.
	TierDistribution map[question.Tier]int `json:"tier_distribution"`

	// AccuracyTrend holds the running accuracy after each response.
	AccuracyTrend []float64 `json:"accuracy_trend"`
}

// Session is one student's attempt. The Questions snapshot belongs to the
// session; only the adaptive controller changes it, and only for questions
// not yet answered.
type Session struct {
	ID           string     `json:"id"`
	AssessmentID string     `json:"assessment_id"`
	StudentID    string     `json:"student_id"`
	Status       Status     `json:"status"`
	StartedAt    time.Time  `json:"started_at"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`

	Questions []question.Question `json:"questions"`
	Responses []Response          `json:"responses"`
	Score     int                 `json:"score"`

	// TimeLimit is copied from the assessment settings. Zero means none.
	TimeLimit time.Duration `json:"time_limit"`

	// Adaptive enables the difficulty controller for this session.
	Adaptive bool `json:"adaptive"`

	// ShowFeedback is copied from the assessment settings. Feedback is
	// always recorded; this only tells callers whether to display it.
	ShowFeedback bool `json:"show_feedback"`

	Analytics     *Analytics `json:"analytics,omitempty"`
	AbandonReason string     `json:"abandon_reason,omitempty"`

	// Version increases with every mutation. Stores use it to drop stale
	// writes.
	Version int64 `json:"version"`
}

// New creates an active session over a snapshot of questions. The caller
// hands over ownership of qs.
func New(id, assessmentID, studentID string, qs []question.Question, now time.Time) (*Session, error) {
	seen := make(map[string]bool, len(qs))
	for _, q := range qs {
		if seen[q.ID] {
			return nil, apperr.Invalid("questions", "duplicate question id %q in snapshot", q.ID)
		}
		seen[q.ID] = true
	}
	return &Session{
		ID:           id,
		AssessmentID: assessmentID,
		StudentID:    studentID,
		Status:       StatusActive,
		StartedAt:    now,
		Questions:    qs,
		Responses:    []Response{},
		Version:      1,
	}, nil
}

// Question returns the snapshot index of the question with id.
func (s *Session) Question(id string) (int, error) {
	for i := range s.Questions {
		if s.Questions[i].ID == id {
			return i, nil
		}
	}
	return -1, apperr.NotFound(apperr.KindQuestion, id)
}

// Answered reports whether a response exists for questionID.
func (s *Session) Answered(questionID string) bool {
	for i := range s.Responses {
		if s.Responses[i].QuestionID == questionID {
			return true
		}
	}
	return false
}

// AnsweredSet returns the ids of every answered question.
func (s *Session) AnsweredSet() map[string]bool {
	out := make(map[string]bool, len(s.Responses))
	for i := range s.Responses {
		out[s.Responses[i].QuestionID] = true
	}
	return out
}

// History returns response correctness in submission order.
func (s *Session) History() []bool {
	out := make([]bool, len(s.Responses))
	for i := range s.Responses {
		out[i] = s.Responses[i].Correct
	}
	return out
}

// MaxScore sums the points of the current snapshot.
func (s *Session) MaxScore() int {
	return question.TotalPoints(s.Questions)
}

// Elapsed returns the time since start, or the session length when ended.
func (s *Session) Elapsed(now time.Time) time.Duration {
	if s.EndedAt != nil {
		return s.EndedAt.Sub(s.StartedAt)
	}
	return now.Sub(s.StartedAt)
}

// Expired reports whether an active session has run past its time limit.
func (s *Session) Expired(now time.Time) bool {
	return s.Status == StatusActive && s.TimeLimit > 0 && s.Elapsed(now) > s.TimeLimit
}

// CheckSubmit reports whether questionID may be answered now. It never
// mutates s.
func (s *Session) CheckSubmit(questionID string) (int, error) {
	if s.Status != StatusActive {
		return -1, apperr.InvalidState("submit answer", string(s.Status), "session "+s.ID+" is closed")
	}
	idx, err := s.Question(questionID)
	if err != nil {
		return -1, err
	}
	if s.Answered(questionID) {
		return -1, apperr.InvalidState("submit answer", string(s.Status), "question "+questionID+" already answered")
	}
	return idx, nil
}

// Record appends r and updates the running score.
func (s *Session) Record(r Response) error {
	idx, err := s.CheckSubmit(r.QuestionID)
	if err != nil {
		return err
	}
	if points := s.Questions[idx].Points; r.Score != 0 && r.Score != points {
		panic(fmt.Sprintf("session %s: response score %d for question %s worth %d", s.ID, r.Score, r.QuestionID, points))
	}
	s.Responses = append(s.Responses, r)
	s.Score += r.Score
	s.Version++
	return nil
}

// Complete moves an active session to completed.
func (s *Session) Complete(now time.Time, a *Analytics) error {
	if s.Status != StatusActive {
		return apperr.InvalidState("end session", string(s.Status), "")
	}
	s.Status = StatusCompleted
	s.EndedAt = &now
	s.Analytics = a
	s.Version++
	return nil
}

// Abandon moves an active session to abandoned, keeping its responses.
func (s *Session) Abandon(now time.Time, reason string) error {
	if s.Status != StatusActive {
		return apperr.InvalidState("abandon session", string(s.Status), "")
	}
	s.Status = StatusAbandoned
	s.EndedAt = &now
	s.AbandonReason = reason
	s.Version++
	return nil
}

// MustBeConsistent panics when the score invariants do not hold. A failure
// is a programming error, never a user error.
func (s *Session) MustBeConsistent() {
	sum := 0
	seen := make(map[string]bool, len(s.Responses))
	for _, r := range s.Responses {
		if _, err := s.Question(r.QuestionID); err != nil {
			panic(fmt.Sprintf("session %s: response for question %s outside snapshot", s.ID, r.QuestionID))
		}
		if seen[r.QuestionID] {
			panic(fmt.Sprintf("session %s: question %s answered twice", s.ID, r.QuestionID))
		}
		seen[r.QuestionID] = true
		sum += r.Score
	}
	if sum != s.Score {
		panic(fmt.Sprintf("session %s: response scores sum to %d, session score is %d", s.ID, sum, s.Score))
	}
	if maxScore := s.MaxScore(); s.Score > maxScore {
		panic(fmt.Sprintf("session %s: score %d exceeds snapshot maximum %d", s.ID, s.Score, maxScore))
	}
}

// Clone returns a deep copy safe to hand to callers.
func (s *Session) Clone() *Session {
	c := *s
	c.Questions = question.CloneAll(s.Questions)
	c.Responses = slices.Clone(s.Responses)
	if s.EndedAt != nil {
		t := *s.EndedAt
		c.EndedAt = &t
	}
	if s.Analytics != nil {
		a := *s.Analytics
		a.TierDistribution = maps.Clone(s.Analytics.TierDistribution)
		a.AccuracyTrend = slices.Clone(s.Analytics.AccuracyTrend)
		c.Analytics = &a
	}
	return &c
}
