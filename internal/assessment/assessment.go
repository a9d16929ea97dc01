// Package assessment defines reusable assessment definitions and the
// registry that creates and edits them.
package assessment

import (
	"time"

	"github.com/abhisek/adaptiq/internal/question"
)

// Kind selects fixed or adaptive difficulty.
type Kind string

const (
	KindFixed    Kind = "fixed"
	KindAdaptive Kind = "adaptive"
)

// Status is the editorial state of an assessment.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
)

// Settings control how sessions run.
type Settings struct {
	// TimeLimit is the session time limit. Zero means unlimited.
	TimeLimit          time.Duration `json:"time_limit"`
	RandomizeQuestions bool          `json:"randomize_questions"`
	AllowRetakes       bool          `json:"allow_retakes"`
	ShowFeedback       bool          `json:"show_feedback"`
	AdaptiveEnabled    bool          `json:"adaptive_enabled"`
}

// DefaultSettings returns the settings used when a spec gives none.
func DefaultSettings() Settings {
	return Settings{ShowFeedback: true, AllowRetakes: true}
}

// AnalyticsCache holds the aggregates of the most recent report.
type AnalyticsCache struct {
	TotalSessions     int           `json:"total_sessions"`
	CompletedSessions int           `json:"completed_sessions"`
	AverageScore      float64       `json:"average_score"`
	AverageCompletion time.Duration `json:"average_completion"`
	ComputedAt        time.Time     `json:"computed_at"`
}

// Assessment is a reusable definition of questions and settings.
type Assessment struct {
	ID         string              `json:"id"`
	Title      string              `json:"title"`
	Subject    string              `json:"subject"`
	Difficulty question.Tier       `json:"difficulty"`
	Kind       Kind                `json:"type"`
	Questions  []question.Question `json:"questions"`
	Settings   Settings            `json:"settings"`
	Analytics  *AnalyticsCache     `json:"analytics,omitempty"`
	Status     Status              `json:"status"`
	CreatedBy  string              `json:"created_by,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

// IsAdaptive reports whether sessions should run the difficulty controller.
func (a *Assessment) IsAdaptive() bool {
	return a.Kind == KindAdaptive || a.Settings.AdaptiveEnabled
}

// TotalPoints sums the points of every question.
func (a *Assessment) TotalPoints() int {
	return question.TotalPoints(a.Questions)
}

// Question returns the question with id, or false.
func (a *Assessment) Question(id string) (question.Question, bool) {
	for _, q := range a.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return question.Question{}, false
}

// Clone returns a deep copy. Sessions snapshot assessments through Clone so
// later edits never reach them.
func (a *Assessment) Clone() *Assessment {
	c := *a
	c.Questions = question.CloneAll(a.Questions)
	if a.Analytics != nil {
		an := *a.Analytics
		c.Analytics = &an
	}
	return &c
}
