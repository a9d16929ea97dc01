package session

import (
	"testing"
	"time"

	"github.com/abhisek/adaptiq/internal/apperr"
	"github.com/abhisek/adaptiq/internal/question"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	qs := []question.Question{
		{ID: "q1", Type: question.TypeMultipleChoice},
		{ID: "q2", Type: question.TypeShortAnswer},
		{ID: "q3", Type: question.TypeEssay},
	}
	for i := range qs {
		require.NoError(t, qs[i].SetTier(question.TierIntermediate))
	}
	s, err := New("s1", "a1", "st1", qs, t0)
	require.NoError(t, err)
	return s
}

func TestNew_RejectsDuplicateQuestionIDs(t *testing.T) {
	_, err := New("s", "a", "st", []question.Question{{ID: "x"}, {ID: "x"}}, t0)
	assert.True(t, apperr.IsValidation(err))
}

func TestRecord_UpdatesScoreAndVersion(t *testing.T) {
	s := newTestSession(t)
	v := s.Version

	require.NoError(t, s.Record(Response{QuestionID: "q1", Correct: true, Score: 2}))
	require.NoError(t, s.Record(Response{QuestionID: "q2", Correct: false, Score: 0}))

	assert.Equal(t, 2, s.Score)
	assert.Equal(t, v+2, s.Version)
	assert.Equal(t, []bool{true, false}, s.History())
	assert.Equal(t, map[string]bool{"q1": true, "q2": true}, s.AnsweredSet())
	assert.NotPanics(t, s.MustBeConsistent)
}

func TestRecord_Rejections(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.Record(Response{QuestionID: "q1", Score: 2, Correct: true}))

	err := s.Record(Response{QuestionID: "q1", Score: 2, Correct: true})
	assert.True(t, apperr.IsInvalidState(err), "duplicate submission")

	err = s.Record(Response{QuestionID: "nope"})
	assert.True(t, apperr.IsNotFound(err))

	assert.Equal(t, 2, s.Score)
	assert.Len(t, s.Responses, 1)
}

func TestRecord_ScoreMustMatchPoints(t *testing.T) {
	s := newTestSession(t)
	assert.Panics(t, func() { _ = s.Record(Response{QuestionID: "q1", Score: 7}) })
}

func TestTransitions_AreTerminal(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.Complete(t0.Add(time.Minute), &Analytics{}))
	assert.Equal(t, StatusCompleted, s.Status)
	assert.True(t, s.Status.Terminal())

	before := s.Clone()
	assert.True(t, apperr.IsInvalidState(s.Record(Response{QuestionID: "q2"})))
	assert.True(t, apperr.IsInvalidState(s.Complete(t0, nil)))
	assert.True(t, apperr.IsInvalidState(s.Abandon(t0, "timeout")))
	assert.Equal(t, before, s)

	a := newTestSession(t)
	require.NoError(t, a.Abandon(t0.Add(time.Hour), "timeout"))
	assert.Equal(t, StatusAbandoned, a.Status)
	assert.Equal(t, "timeout", a.AbandonReason)
	assert.True(t, apperr.IsInvalidState(a.Complete(t0, nil)))
}

func TestExpired(t *testing.T) {
	s := newTestSession(t)
	assert.False(t, s.Expired(t0.Add(24*time.Hour)), "no limit")

	s.TimeLimit = 10 * time.Minute
	assert.False(t, s.Expired(t0.Add(10*time.Minute)))
	assert.True(t, s.Expired(t0.Add(11*time.Minute)))

	require.NoError(t, s.Abandon(t0.Add(11*time.Minute), "timeout"))
	assert.False(t, s.Expired(t0.Add(time.Hour)))
	assert.Equal(t, 11*time.Minute, s.Elapsed(t0.Add(time.Hour)))
}

func TestMustBeConsistent_Panics(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.Record(Response{QuestionID: "q1", Score: 2, Correct: true}))
	s.Score = 5
	assert.Panics(t, s.MustBeConsistent)

	s = newTestSession(t)
	s.Responses = append(s.Responses, Response{QuestionID: "ghost"})
	assert.Panics(t, s.MustBeConsistent)
}

func TestClone_IsDeep(t *testing.T) {
	s := newTestSession(t)
	require.NoError(t, s.Record(Response{QuestionID: "q1", Score: 2, Correct: true}))
	require.NoError(t, s.Complete(t0.Add(time.Minute), &Analytics{
		TierDistribution: map[question.Tier]int{question.TierIntermediate: 1},
		AccuracyTrend:    []float64{100},
	}))

	c := s.Clone()
	c.Questions[0].Points = 99
	c.Responses[0].Score = 99
	c.Analytics.TierDistribution[question.TierIntermediate] = 9
	c.Analytics.AccuracyTrend[0] = 0
	*c.EndedAt = t0

	assert.Equal(t, 2, s.Questions[0].Points)
	assert.Equal(t, 2, s.Responses[0].Score)
	assert.Equal(t, 1, s.Analytics.TierDistribution[question.TierIntermediate])
	assert.Equal(t, 100.0, s.Analytics.AccuracyTrend[0])
	assert.Equal(t, t0.Add(time.Minute), *s.EndedAt)
}
