package analytics

import (
	"fmt"
	"time"

	"github.com/abhisek/adaptiq/internal/assessment"
	"github.com/abhisek/adaptiq/internal/question"
	"github.com/abhisek/adaptiq/internal/session"
)

// Thresholds for the recommendation heuristics.
const (
	HighAccuracy     = 90.0
	LowAccuracy      = 50.0
	SlowTimeFraction = 0.9
	FastTimeFraction = 0.5
)

// Recommendation texts.
const (
	RecInsufficientData = "Insufficient data: no completed sessions yet."
	RecRaiseDifficulty  = "Average accuracy is above 90%; consider raising the difficulty."
	RecReviewMaterials  = "Average accuracy is below 50%; consider assigning review materials."
	RecNoChanges        = "Performance is within the expected range; no changes suggested."
)

// TierStat aggregates answers at one tier.
type TierStat struct {
	Attempts int     `json:"attempts"`
	Correct  int     `json:"correct"`
	Accuracy float64 `json:"accuracy"`
}

// QuestionStat aggregates answers to one question across sessions.
type QuestionStat struct {
	QuestionID  string        `json:"question_id"`
	Content     string        `json:"content"`
	Type        question.Type `json:"type"`
	Attempts    int           `json:"attempts"`
	Correct     int           `json:"correct"`
	Accuracy    float64       `json:"accuracy"`
	AverageTime time.Duration `json:"average_time"`
}

// Report is the per-assessment aggregate.
type Report struct {
	AssessmentID string    `json:"assessment_id"`
	Title        string    `json:"title"`
	GeneratedAt  time.Time `json:"generated_at"`

	TotalSessions     int `json:"total_sessions"`
	CompletedSessions int `json:"completed_sessions"`
	AbandonedSessions int `json:"abandoned_sessions"`
	ActiveSessions    int `json:"active_sessions"`

	// InsufficientData is set when no session has completed.
	InsufficientData bool `json:"insufficient_data"`

	// AverageScore is the mean score percentage of completed sessions.
	AverageScore float64 `json:"average_score"`

	// AverageAccuracy is the mean accuracy percentage of completed sessions.
	AverageAccuracy float64 `json:"average_accuracy"`

	AverageCompletion time.Duration `json:"average_completion"`
	TimeLimit         time.Duration `json:"time_limit"`

	TierAccuracy    map[question.Tier]TierStat `json:"tier_accuracy"`
	Questions       []QuestionStat             `json:"questions"`
	Recommendations []string                   `json:"recommendations"`
}

type questionAcc struct {
	attempts, correct int
	spent             time.Duration
}

// BuildReport aggregates sessions of a.
func BuildReport(a *assessment.Assessment, sessions []*session.Session, now time.Time) *Report {
	rep := &Report{
		AssessmentID:  a.ID,
		Title:         a.Title,
		GeneratedAt:   now,
		TotalSessions: len(sessions),
		TimeLimit:     a.Settings.TimeLimit,
		TierAccuracy:  make(map[question.Tier]TierStat),
	}

	perQuestion := make(map[string]*questionAcc)
	var scoreSum, accSum float64
	var completionSum time.Duration

	for _, s := range sessions {
		switch s.Status {
		case session.StatusCompleted:
			rep.CompletedSessions++
			sa := s.Analytics
			if sa == nil {
				end := now
				if s.EndedAt != nil {
					end = *s.EndedAt
				}
				sa = SummarizeSession(s, end)
			}
			scoreSum += sa.ScorePercent
			accSum += sa.Accuracy
			completionSum += s.Elapsed(now)
		case session.StatusAbandoned:
			rep.AbandonedSessions++
		default:
			rep.ActiveSessions++
		}

		for _, r := range s.Responses {
			ts := rep.TierAccuracy[r.Tier]
			ts.Attempts++
			if r.Correct {
				ts.Correct++
			}
			rep.TierAccuracy[r.Tier] = ts

			qa := perQuestion[r.QuestionID]
			if qa == nil {
				qa = &questionAcc{}
				perQuestion[r.QuestionID] = qa
			}
			qa.attempts++
			if r.Correct {
				qa.correct++
			}
			qa.spent += r.TimeSpent
		}
	}

	for tier, ts := range rep.TierAccuracy {
		ts.Accuracy = percent(ts.Correct, ts.Attempts)
		rep.TierAccuracy[tier] = ts
	}

	for _, q := range a.Questions {
		stat := QuestionStat{QuestionID: q.ID, Content: q.Content, Type: q.Type}
		if qa := perQuestion[q.ID]; qa != nil {
			stat.Attempts = qa.attempts
			stat.Correct = qa.correct
			stat.Accuracy = percent(qa.correct, qa.attempts)
			stat.AverageTime = qa.spent / time.Duration(qa.attempts)
		}
		rep.Questions = append(rep.Questions, stat)
	}

	if rep.CompletedSessions == 0 {
		rep.InsufficientData = true
		rep.Recommendations = []string{RecInsufficientData}
		return rep
	}

	n := float64(rep.CompletedSessions)
	rep.AverageScore = scoreSum / n
	rep.AverageAccuracy = accSum / n
	rep.AverageCompletion = completionSum / time.Duration(rep.CompletedSessions)
	rep.Recommendations = recommend(rep)
	return rep
}

func recommend(rep *Report) []string {
	var recs []string
	switch {
	case rep.AverageAccuracy > HighAccuracy:
		recs = append(recs, RecRaiseDifficulty)
	case rep.AverageAccuracy < LowAccuracy:
		recs = append(recs, RecReviewMaterials)
	}

	if limit := rep.TimeLimit; limit > 0 {
		avg := rep.AverageCompletion
		switch {
		case float64(avg) > SlowTimeFraction*float64(limit):
			recs = append(recs, fmt.Sprintf(
				"Average completion time (%s) exceeds 90%% of the %s time limit; consider extending it.",
				avg.Round(time.Second), limit))
		case float64(avg) < FastTimeFraction*float64(limit):
			recs = append(recs, fmt.Sprintf(
				"Average completion time (%s) is under half of the %s time limit; consider shortening it.",
				avg.Round(time.Second), limit))
		}
	}

	if len(recs) == 0 {
		recs = append(recs, RecNoChanges)
	}
	return recs
}

// Cache extracts the aggregates stored on the assessment.
func (r *Report) Cache() assessment.AnalyticsCache {
	return assessment.AnalyticsCache{
		TotalSessions:     r.TotalSessions,
		CompletedSessions: r.CompletedSessions,
		AverageScore:      r.AverageScore,
		AverageCompletion: r.AverageCompletion,
		ComputedAt:        r.GeneratedAt,
	}
}
