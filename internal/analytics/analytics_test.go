package analytics

import (
	"testing"
	"time"

	"github.com/abhisek/adaptiq/internal/assessment"
	"github.com/abhisek/adaptiq/internal/question"
	"github.com/abhisek/adaptiq/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func questions(t *testing.T, tiers ...question.Tier) []question.Question {
	t.Helper()
	qs := make([]question.Question, len(tiers))
	for i, tier := range tiers {
		qs[i] = question.Question{ID: string(rune('a' + i)), Type: question.TypeMultipleChoice, Content: "q"}
		require.NoError(t, qs[i].SetTier(tier))
	}
	return qs
}

// completed builds a completed session answering the first len(correct)
// questions.
func completed(t *testing.T, id string, qs []question.Question, correct []bool, took time.Duration) *session.Session {
	t.Helper()
	s, err := session.New(id, "asm", "student-"+id, question.CloneAll(qs), t0)
	require.NoError(t, err)
	for i, ok := range correct {
		score := 0
		if ok {
			score = qs[i].Points
		}
		require.NoError(t, s.Record(session.Response{
			QuestionID: qs[i].ID, Correct: ok, Score: score, Tier: qs[i].Tier, TimeSpent: 10 * time.Second,
		}))
	}
	end := t0.Add(took)
	require.NoError(t, s.Complete(end, SummarizeSession(s, end)))
	return s
}

func TestSummarizeSession_ScoresOneZeroTwo(t *testing.T) {
	qs := questions(t, question.TierBeginner, question.TierBeginner, question.TierIntermediate, question.TierExpert)
	s := completed(t, "s1", qs, []bool{true, false, true}, 2*time.Minute)
	a := s.Analytics

	assert.Equal(t, 3, a.Score)
	assert.Equal(t, 2, a.Correct)
	assert.Equal(t, 3, a.Answered)
	assert.Equal(t, 4, a.TotalQuestions)
	assert.InDelta(t, 2.0/3.0*100, a.Accuracy, 1e-9)
	assert.Equal(t, 8, a.MaxScore)
	assert.InDelta(t, 37.5, a.ScorePercent, 1e-9)
	assert.Equal(t, 2*time.Minute, a.Elapsed)
	assert.Equal(t, 10*time.Second, a.AverageTime)
	assert.Equal(t, map[question.Tier]int{question.TierBeginner: 2, question.TierIntermediate: 1}, a.TierDistribution)
	require.Len(t, a.AccuracyTrend, 3)
	assert.InDelta(t, 100, a.AccuracyTrend[0], 1e-9)
	assert.InDelta(t, 50, a.AccuracyTrend[1], 1e-9)
}

func TestSummarizeSession_NoResponses(t *testing.T) {
	s, err := session.New("s", "a", "st", questions(t, question.TierBeginner), t0)
	require.NoError(t, err)
	a := SummarizeSession(s, t0.Add(time.Minute))
	assert.Zero(t, a.Accuracy)
	assert.Zero(t, a.AverageTime)
	assert.Empty(t, a.AccuracyTrend)
}

func testAssessment(t *testing.T, limit time.Duration) *assessment.Assessment {
	return &assessment.Assessment{
		ID:        "asm",
		Title:     "Maths",
		Questions: questions(t, question.TierBeginner, question.TierIntermediate, question.TierAdvanced),
		Settings:  assessment.Settings{TimeLimit: limit},
	}
}

func TestBuildReport_InsufficientData(t *testing.T) {
	a := testAssessment(t, 0)
	active, err := session.New("s", "asm", "st", question.CloneAll(a.Questions), t0)
	require.NoError(t, err)

	rep := BuildReport(a, []*session.Session{active}, t0.Add(time.Hour))
	assert.True(t, rep.InsufficientData)
	assert.Zero(t, rep.AverageScore)
	assert.Equal(t, []string{RecInsufficientData}, rep.Recommendations)
	assert.Equal(t, 1, rep.ActiveSessions)
	assert.Len(t, rep.Questions, 3)

	empty := BuildReport(a, nil, t0)
	assert.True(t, empty.InsufficientData)
	assert.Zero(t, empty.AverageScore)
}

func TestBuildReport_Aggregates(t *testing.T) {
	a := testAssessment(t, 10*time.Minute)
	s1 := completed(t, "1", a.Questions, []bool{true, true, true}, 9*time.Minute+30*time.Second)
	s2 := completed(t, "2", a.Questions, []bool{true, true, true}, 9*time.Minute+30*time.Second)

	abandoned, err := session.New("3", "asm", "st3", question.CloneAll(a.Questions), t0)
	require.NoError(t, err)
	require.NoError(t, abandoned.Record(session.Response{QuestionID: "a", Correct: false, Tier: question.TierBeginner}))
	require.NoError(t, abandoned.Abandon(t0.Add(time.Minute), "timeout"))

	rep := BuildReport(a, []*session.Session{s1, s2, abandoned}, t0.Add(time.Hour))
	assert.False(t, rep.InsufficientData)
	assert.Equal(t, 3, rep.TotalSessions)
	assert.Equal(t, 2, rep.CompletedSessions)
	assert.Equal(t, 1, rep.AbandonedSessions)
	assert.InDelta(t, 100, rep.AverageScore, 1e-9)
	assert.Equal(t, 9*time.Minute+30*time.Second, rep.AverageCompletion)

	beginner := rep.TierAccuracy[question.TierBeginner]
	assert.Equal(t, 3, beginner.Attempts)
	assert.Equal(t, 2, beginner.Correct)
	assert.InDelta(t, 66.67, beginner.Accuracy, 0.01)
	assert.Equal(t, 3, rep.Questions[0].Attempts)
	assert.Equal(t, 2, rep.Questions[1].Attempts)

	require.Len(t, rep.Recommendations, 2)
	assert.Equal(t, RecRaiseDifficulty, rep.Recommendations[0])
	assert.Contains(t, rep.Recommendations[1], "exceeds 90%")
}

func TestBuildReport_LowAccuracyAndFastCompletion(t *testing.T) {
	a := testAssessment(t, time.Hour)
	s := completed(t, "1", a.Questions, []bool{false, false, true}, 5*time.Minute)

	rep := BuildReport(a, []*session.Session{s}, t0.Add(time.Hour))
	require.Len(t, rep.Recommendations, 2)
	assert.Equal(t, RecReviewMaterials, rep.Recommendations[0])
	assert.Contains(t, rep.Recommendations[1], "under half")

	cache := rep.Cache()
	assert.Equal(t, 1, cache.CompletedSessions)
	assert.Equal(t, rep.GeneratedAt, cache.ComputedAt)
}

func TestBuildReport_NoChanges(t *testing.T) {
	a := testAssessment(t, 0)
	s := completed(t, "1", a.Questions, []bool{true, false, true}, time.Minute)
	rep := BuildReport(a, []*session.Session{s}, t0)
	assert.Equal(t, []string{RecNoChanges}, rep.Recommendations)
}
