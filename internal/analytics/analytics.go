// Package analytics computes per-session summaries and per-assessment
// reports with heuristic recommendations.
package analytics

import (
	"time"

	"github.com/abhisek/adaptiq/internal/question"
	"github.com/abhisek/adaptiq/internal/session"
)

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

// SummarizeSession computes the analytics of s as of end.
func SummarizeSession(s *session.Session, end time.Time) *session.Analytics {
	a := &session.Analytics{
		TotalQuestions:   len(s.Questions),
		Answered:         len(s.Responses),
		Score:            s.Score,
		MaxScore:         s.MaxScore(),
		Elapsed:          end.Sub(s.StartedAt),
		TierDistribution: make(map[question.Tier]int),
		AccuracyTrend:    make([]float64, 0, len(s.Responses)),
	}

	var spent time.Duration
	for i, r := range s.Responses {
		if r.Correct {
			a.Correct++
		}
		spent += r.TimeSpent
		a.TierDistribution[r.Tier]++
		a.AccuracyTrend = append(a.AccuracyTrend, percent(a.Correct, i+1))
	}

	a.Accuracy = percent(a.Correct, a.Answered)
	a.ScorePercent = percent(a.Score, a.MaxScore)
	if a.Answered > 0 {
		// Fall back to wall-clock time when clients do not report it.
		if spent == 0 {
			spent = a.Elapsed
		}
		a.AverageTime = spent / time.Duration(a.Answered)
	}
	return a
}
