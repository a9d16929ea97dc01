package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/adaptiq/internal/analytics"
	"github.com/abhisek/adaptiq/internal/apperr"
	"github.com/abhisek/adaptiq/internal/assessment"
	"github.com/abhisek/adaptiq/internal/events"
	"github.com/abhisek/adaptiq/internal/feedback"
	"github.com/abhisek/adaptiq/internal/question"
	"github.com/abhisek/adaptiq/internal/questiongen"
	"github.com/abhisek/adaptiq/internal/session"
	"github.com/abhisek/adaptiq/internal/store"
	"github.com/abhisek/adaptiq/internal/templates"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type recordingSink struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingSink) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recordingSink) kinds() []events.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Kind, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}

func (r *recordingSink) last(kind events.Kind) (events.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Kind == kind {
			return r.events[i], true
		}
	}
	return events.Event{}, false
}

type harness struct {
	engine *Engine
	store  store.Store
	sink   *recordingSink
	clock  *clock
}

func newHarness(t *testing.T, st store.Store, opts Options) *harness {
	t.Helper()
	if st == nil {
		st = store.NewMemoryStore()
	}
	cfg := questiongen.DefaultConfig()
	cfg.Seed = 7
	h := &harness{
		store: st,
		sink:  &recordingSink{},
		clock: &clock{t: time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)},
	}
	if opts.Source == nil {
		opts.Source = questiongen.New(templates.Builtin(), nil, cfg)
	}
	opts.Sink = h.sink
	opts.Clock = h.clock.Now
	if opts.Seed == 0 {
		opts.Seed = 11
	}
	h.engine = New(st, opts)
	t.Cleanup(func() { h.engine.Close() })
	return h
}

// trueFalse returns n true-false questions whose correct answer is "true".
// A zero tier inherits the assessment difficulty.
func trueFalse(n int, tier question.Tier) []assessment.QuestionSpec {
	specs := make([]assessment.QuestionSpec, n)
	for i := range specs {
		specs[i] = assessment.QuestionSpec{
			Type:          question.TypeTrueFalse,
			Content:       fmt.Sprintf("Statement %d holds.", i+1),
			CorrectAnswer: "true",
			Difficulty:    tier,
			Hints:         []string{"Think again.", "Check the definition.", "Third hint."},
			Explanation:   "It holds.",
			Feedback:      question.FeedbackTemplates{Correct: "Right.", Incorrect: "Not quite."},
		}
	}
	return specs
}

func (h *harness) create(t *testing.T, spec assessment.Spec) *assessment.Assessment {
	t.Helper()
	if spec.Subject == "" {
		spec.Subject = "mathematics"
	}
	spec.Publish = true
	a, err := h.engine.CreateAssessment(context.Background(), spec)
	require.NoError(t, err)
	return a
}

func (h *harness) start(t *testing.T, assessmentID, student string) *session.Session {
	t.Helper()
	s, err := h.engine.StartSession(context.Background(), assessmentID, student, StartOptions{})
	require.NoError(t, err)
	return s
}

func (h *harness) submit(t *testing.T, sessionID, questionID string, answer any) *SubmitResult {
	t.Helper()
	res, err := h.engine.SubmitAnswer(context.Background(), sessionID, questionID, answer, 5*time.Second)
	require.NoError(t, err)
	return res
}

func checkInvariants(t *testing.T, s *session.Session) {
	t.Helper()
	sum := 0
	for _, r := range s.Responses {
		sum += r.Score
	}
	assert.Equal(t, s.Score, sum, "response scores must sum to the session score")
	assert.LessOrEqual(t, s.Score, question.TotalPoints(s.Questions))
	for _, q := range s.Questions {
		points, _, err := question.Derive(q.Tier, q.Type)
		require.NoError(t, err)
		assert.Equal(t, points, q.Points, "question %s", q.ID)
	}
}

func TestCreateAssessment_AutoGenerateBeginner(t *testing.T) {
	h := newHarness(t, nil, Options{})
	a, err := h.engine.CreateAssessment(context.Background(), assessment.Spec{
		Subject:       "mathematics",
		AutoGenerate:  true,
		QuestionCount: 5,
		Difficulty:    question.TierBeginner,
	})
	require.NoError(t, err)

	require.Len(t, a.Questions, 5)
	for _, q := range a.Questions {
		assert.Equal(t, 1, q.Points)
		assert.Equal(t, question.TierBeginner, q.Tier)
		assert.Empty(t, templates.FindUnresolved(q.Content))
	}
	ev, ok := h.sink.last(events.KindAssessmentCreated)
	require.True(t, ok)
	assert.Equal(t, a.ID, ev.AssessmentID)
	assert.Equal(t, 5, ev.Payload.(events.AssessmentCreated).Questions)
}

func TestCreateAssessment_UnknownSubject(t *testing.T) {
	h := newHarness(t, nil, Options{})
	_, err := h.engine.CreateAssessment(context.Background(), assessment.Spec{
		Subject: "astrology", AutoGenerate: true, QuestionCount: 2,
	})
	assert.True(t, apperr.IsValidation(err))
	assert.ErrorIs(t, err, apperr.ErrUnknownSubject)
}

func TestSubmitAnswer_CorrectMultipleChoice(t *testing.T) {
	h := newHarness(t, nil, Options{})
	a := h.create(t, assessment.Spec{
		Subject:       "science",
		AutoGenerate:  true,
		QuestionCount: 3,
		QuestionTypes: []question.Type{question.TypeMultipleChoice},
		Difficulty:    question.TierAdvanced,
	})
	s := h.start(t, a.ID, "alice")

	q := s.Questions[0]
	require.Equal(t, question.TypeMultipleChoice, q.Type)
	res := h.submit(t, s.ID, q.ID, q.CorrectAnswer)

	assert.True(t, res.Response.Correct)
	assert.Equal(t, q.Points, res.Response.Score)
	assert.Equal(t, 3, res.Response.Score)
	assert.Equal(t, q.Points, res.SessionScore)
	require.NotNil(t, res.Feedback)
	assert.Equal(t, feedback.TypeCorrect, res.Feedback.Type)
	assert.Empty(t, res.Feedback.Hints)

	assert.Equal(t, []events.Kind{events.KindAssessmentCreated, events.KindSessionStarted, events.KindAnswerSubmitted}, h.sink.kinds())
}

func TestSubmitAnswer_IncorrectGetsHints(t *testing.T) {
	h := newHarness(t, nil, Options{})
	a := h.create(t, assessment.Spec{Questions: trueFalse(2, 0)})
	s := h.start(t, a.ID, "alice")

	res := h.submit(t, s.ID, s.Questions[0].ID, "false")
	assert.False(t, res.Response.Correct)
	assert.Zero(t, res.Response.Score)
	require.NotNil(t, res.Feedback)
	assert.Equal(t, feedback.TypeIncorrect, res.Feedback.Type)
	assert.Equal(t, []string{"Think again.", "Check the definition."}, res.Feedback.Hints)
	assert.Empty(t, res.Feedback.Explanation)
}

func TestAdaptive_ThreeIncorrectLowersRemaining(t *testing.T) {
	h := newHarness(t, nil, Options{})
	a := h.create(t, assessment.Spec{
		Kind:       assessment.KindAdaptive,
		Difficulty: question.TierIntermediate,
		Questions:  trueFalse(6, 0),
	})
	s := h.start(t, a.ID, "bob")
	for _, q := range s.Questions {
		require.Equal(t, question.TierIntermediate, q.Tier)
	}

	var last *SubmitResult
	for _, q := range s.Questions[:3] {
		last = h.submit(t, s.ID, q.ID, "false")
	}
	assert.Len(t, last.Adjustments, 3)

	got, err := h.engine.GetSession(context.Background(), s.ID)
	require.NoError(t, err)
	for i, q := range got.Questions {
		if i < 3 {
			assert.Equal(t, question.TierIntermediate, q.Tier, "answered question %d must keep its tier", i)
			continue
		}
		assert.Equal(t, question.TierBeginner, q.Tier)
		assert.Equal(t, 1, q.Points)
	}
	checkInvariants(t, got)

	ev, ok := h.sink.last(events.KindDifficultyAdjusted)
	require.True(t, ok)
	assert.Equal(t, "lower", ev.Payload.(events.DifficultyAdjusted).Direction)
}

func TestAdaptive_ThreeCorrectRaisesRemaining(t *testing.T) {
	h := newHarness(t, nil, Options{})
	a := h.create(t, assessment.Spec{
		Difficulty: question.TierBeginner,
		Settings:   &assessment.Settings{AdaptiveEnabled: true, AllowRetakes: true},
		Questions:  trueFalse(5, 0),
	})
	s := h.start(t, a.ID, "carol")

	before := s.Questions[3].Tier
	for _, q := range s.Questions[:3] {
		h.submit(t, s.ID, q.ID, "true")
	}
	got, err := h.engine.GetSession(context.Background(), s.ID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, got.Questions[3].Tier, before)
	assert.Equal(t, question.TierIntermediate, got.Questions[3].Tier)
	assert.Equal(t, 2, got.Questions[3].Points)
	assert.Equal(t, 3, got.Score)
	checkInvariants(t, got)
}

func TestFixedAssessmentNeverRetiers(t *testing.T) {
	h := newHarness(t, nil, Options{})
	a := h.create(t, assessment.Spec{Difficulty: question.TierAdvanced, Questions: trueFalse(4, 0)})
	s := h.start(t, a.ID, "dave")
	for _, q := range s.Questions[:3] {
		res := h.submit(t, s.ID, q.ID, "false")
		assert.Empty(t, res.Adjustments)
	}
	got, err := h.engine.GetSession(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, question.TierAdvanced, got.Questions[3].Tier)
}

func TestEndSession_Analytics(t *testing.T) {
	h := newHarness(t, nil, Options{})
	specs := trueFalse(4, question.TierBeginner)
	specs[2].Difficulty = question.TierIntermediate
	a := h.create(t, assessment.Spec{Questions: specs})
	s := h.start(t, a.ID, "erin")

	h.clock.Advance(30 * time.Second)
	h.submit(t, s.ID, s.Questions[0].ID, "true")
	h.submit(t, s.ID, s.Questions[1].ID, "false")
	h.submit(t, s.ID, s.Questions[2].ID, true)
	h.clock.Advance(30 * time.Second)

	ended, an, err := h.engine.EndSession(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StatusCompleted, ended.Status)
	require.NotNil(t, ended.EndedAt)

	assert.Equal(t, 3, an.Score)
	assert.Equal(t, 3, an.Answered)
	assert.InDelta(t, 2.0/3.0*100, an.Accuracy, 1e-9)
	assert.Equal(t, 5, an.MaxScore)
	assert.Equal(t, time.Minute, an.Elapsed)
	require.Len(t, an.AccuracyTrend, 3)

	ev, ok := h.sink.last(events.KindSessionCompleted)
	require.True(t, ok)
	assert.Equal(t, 3, ev.Payload.(events.SessionCompleted).Score)

	stored, err := h.store.GetSession(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StatusCompleted, stored.Status)
	assert.Empty(t, h.engine.ActiveSessions())
}

func TestSubmitAfterTerminalIsRejectedWithoutChange(t *testing.T) {
	for _, end := range []string{"complete", "abandon"} {
		t.Run(end, func(t *testing.T) {
			h := newHarness(t, nil, Options{})
			a := h.create(t, assessment.Spec{Questions: trueFalse(3, 0)})
			s := h.start(t, a.ID, "fay")
			h.submit(t, s.ID, s.Questions[0].ID, "true")

			var err error
			if end == "complete" {
				_, _, err = h.engine.EndSession(context.Background(), s.ID)
			} else {
				_, err = h.engine.AbandonSession(context.Background(), s.ID, "timeout")
			}
			require.NoError(t, err)

			before, err := h.engine.GetSession(context.Background(), s.ID)
			require.NoError(t, err)

			_, err = h.engine.SubmitAnswer(context.Background(), s.ID, s.Questions[1].ID, "true", time.Second)
			assert.True(t, apperr.IsInvalidState(err))

			after, err := h.engine.GetSession(context.Background(), s.ID)
			require.NoError(t, err)
			assert.Equal(t, before.Responses, after.Responses)
			assert.Equal(t, before.Score, after.Score)
			assert.Equal(t, before.Questions, after.Questions)
			assert.Equal(t, before.Version, after.Version)

			_, _, err = h.engine.EndSession(context.Background(), s.ID)
			assert.True(t, apperr.IsInvalidState(err))
			_, err = h.engine.AbandonSession(context.Background(), s.ID, "again")
			assert.True(t, apperr.IsInvalidState(err))
		})
	}
}

func TestSubmitAnswer_Rejections(t *testing.T) {
	h := newHarness(t, nil, Options{})
	a := h.create(t, assessment.Spec{Questions: trueFalse(2, 0)})
	s := h.start(t, a.ID, "gus")
	ctx := context.Background()

	_, err := h.engine.SubmitAnswer(ctx, s.ID, "nope", "true", time.Second)
	assert.True(t, apperr.IsNotFound(err))

	_, err = h.engine.SubmitAnswer(ctx, s.ID, s.Questions[0].ID, []string{"true"}, time.Second)
	assert.True(t, apperr.IsValidation(err))

	_, err = h.engine.SubmitAnswer(ctx, s.ID, s.Questions[0].ID, "true", -time.Second)
	assert.True(t, apperr.IsValidation(err))

	_, err = h.engine.SubmitAnswer(ctx, "missing", s.Questions[0].ID, "true", time.Second)
	assert.True(t, apperr.IsNotFound(err))

	got, err := h.engine.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Responses)
	assert.Equal(t, int64(1), got.Version)

	h.submit(t, s.ID, s.Questions[0].ID, "true")
	_, err = h.engine.SubmitAnswer(ctx, s.ID, s.Questions[0].ID, "false", time.Second)
	assert.True(t, apperr.IsInvalidState(err))

	got, err = h.engine.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Len(t, got.Responses, 1)
	assert.Equal(t, 1, got.Score)
}

type failingFeedback struct{}

func (failingFeedback) Generate(*question.Question, any, bool) (*feedback.Feedback, error) {
	return nil, apperr.Misconfigured("no templates")
}

func TestFeedbackFailureIsIsolated(t *testing.T) {
	h := newHarness(t, nil, Options{Feedback: failingFeedback{}})
	a := h.create(t, assessment.Spec{Questions: trueFalse(2, 0)})
	s := h.start(t, a.ID, "hal")

	res := h.submit(t, s.ID, s.Questions[0].ID, "true")
	assert.Nil(t, res.Feedback)
	assert.True(t, res.Response.Correct)
	assert.Equal(t, 1, res.SessionScore)

	got, err := h.engine.GetSession(context.Background(), s.ID)
	require.NoError(t, err)
	require.Len(t, got.Responses, 1)
	assert.Nil(t, got.Responses[0].Feedback)
}

type flakyStore struct {
	*store.MemoryStore
	fail atomic.Bool
}

func (f *flakyStore) SaveSession(ctx context.Context, s *session.Session) (bool, error) {
	if f.fail.Load() {
		return false, errors.New("disk full")
	}
	return f.MemoryStore.SaveSession(ctx, s)
}

func TestSubmitAnswer_SaveFailureIsRetryable(t *testing.T) {
	st := &flakyStore{MemoryStore: store.NewMemoryStore()}
	h := newHarness(t, st, Options{})
	a := h.create(t, assessment.Spec{Questions: trueFalse(2, 0)})
	s := h.start(t, a.ID, "ivy")
	ctx := context.Background()

	st.fail.Store(true)
	_, err := h.engine.SubmitAnswer(ctx, s.ID, s.Questions[0].ID, "true", time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	got, err := h.engine.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Responses)
	assert.Zero(t, got.Score)
	assert.NotContains(t, h.sink.kinds(), events.KindAnswerSubmitted)

	_, err = h.engine.StartSession(ctx, a.ID, "jay", StartOptions{})
	require.Error(t, err)

	st.fail.Store(false)
	res := h.submit(t, s.ID, s.Questions[0].ID, "true")
	assert.Equal(t, 1, res.SessionScore)
	h.submit(t, s.ID, s.Questions[1].ID, "true")

	stored, err := st.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Responses, 2)
	checkInvariants(t, stored)
}

func TestFinish_SaveFailureIsRetryable(t *testing.T) {
	tests := []struct {
		name   string
		finish func(*Engine, string) error
		status session.Status
	}{
		{
			name: "end",
			finish: func(e *Engine, id string) error {
				_, _, err := e.EndSession(context.Background(), id)
				return err
			},
			status: session.StatusCompleted,
		},
		{
			name: "abandon",
			finish: func(e *Engine, id string) error {
				_, err := e.AbandonSession(context.Background(), id, "timeout")
				return err
			},
			status: session.StatusAbandoned,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &flakyStore{MemoryStore: store.NewMemoryStore()}
			h := newHarness(t, st, Options{})
			a := h.create(t, assessment.Spec{
				Questions: trueFalse(2, 0),
				Settings:  &assessment.Settings{AllowRetakes: false},
			})
			s := h.start(t, a.ID, "uma")
			h.submit(t, s.ID, s.Questions[0].ID, "true")
			ctx := context.Background()

			st.fail.Store(true)
			err := tt.finish(h.engine, s.ID)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "disk full")

			got, err := h.engine.GetSession(ctx, s.ID)
			require.NoError(t, err)
			assert.Equal(t, session.StatusActive, got.Status)
			assert.Nil(t, got.EndedAt)
			assert.Len(t, h.engine.ActiveSessions(), 1)

			// A restart over the same store still sees an active session.
			other := newHarness(t, st.MemoryStore, Options{})
			_, err = other.engine.StartSession(ctx, a.ID, "uma", StartOptions{})
			assert.True(t, apperr.IsConflict(err))

			st.fail.Store(false)
			require.NoError(t, tt.finish(h.engine, s.ID))

			stored, err := st.GetSession(ctx, s.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.status, stored.Status)
			assert.Empty(t, h.engine.ActiveSessions())

			// The pair reservation is released once the save lands.
			h.start(t, a.ID, "uma")

			_, err = h.engine.SubmitAnswer(ctx, s.ID, s.Questions[1].ID, "true", time.Second)
			assert.True(t, apperr.IsInvalidState(err))

			next := newHarness(t, st.MemoryStore, Options{})
			n, err := next.engine.Restore(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, n, "only the new session is active")
		})
	}
}

func TestStartSession_States(t *testing.T) {
	h := newHarness(t, nil, Options{})
	ctx := context.Background()

	_, err := h.engine.StartSession(ctx, "missing", "kim", StartOptions{})
	assert.True(t, apperr.IsNotFound(err))

	draft, err := h.engine.CreateAssessment(ctx, assessment.Spec{Subject: "science", Questions: trueFalse(1, 0)})
	require.NoError(t, err)
	_, err = h.engine.StartSession(ctx, draft.ID, "kim", StartOptions{})
	assert.True(t, apperr.IsInvalidState(err))

	_, err = h.engine.StartSession(ctx, draft.ID, " ", StartOptions{})
	assert.True(t, apperr.IsValidation(err))

	_, err = h.engine.PublishAssessment(ctx, draft.ID)
	require.NoError(t, err)
	h.start(t, draft.ID, "kim")

	_, err = h.engine.ArchiveAssessment(ctx, draft.ID)
	require.NoError(t, err)
	_, err = h.engine.StartSession(ctx, draft.ID, "lee", StartOptions{})
	assert.True(t, apperr.IsInvalidState(err))
}

func TestStartSession_AllowDraft(t *testing.T) {
	h := newHarness(t, nil, Options{AllowDraft: true})
	draft, err := h.engine.CreateAssessment(context.Background(), assessment.Spec{Subject: "science", Questions: trueFalse(1, 0)})
	require.NoError(t, err)
	h.start(t, draft.ID, "kim")
}

func TestStartSession_RetakesDisallowed(t *testing.T) {
	h := newHarness(t, nil, Options{})
	a := h.create(t, assessment.Spec{
		Questions: trueFalse(2, 0),
		Settings:  &assessment.Settings{AllowRetakes: false, ShowFeedback: true},
	})
	ctx := context.Background()

	s := h.start(t, a.ID, "max")
	_, err := h.engine.StartSession(ctx, a.ID, "max", StartOptions{})
	assert.True(t, apperr.IsConflict(err))

	// A different student is unaffected.
	h.start(t, a.ID, "ned")

	_, _, err = h.engine.EndSession(ctx, s.ID)
	require.NoError(t, err)
	h.start(t, a.ID, "max")
}

func TestStartSession_RetakesDisallowedAcrossRestart(t *testing.T) {
	st := store.NewMemoryStore()
	h := newHarness(t, st, Options{})
	a := h.create(t, assessment.Spec{
		Questions: trueFalse(2, 0),
		Settings:  &assessment.Settings{AllowRetakes: false},
	})
	h.start(t, a.ID, "max")

	// A second engine over the same store sees the stored active session.
	other := newHarness(t, st, Options{})
	_, err := other.engine.StartSession(context.Background(), a.ID, "max", StartOptions{})
	assert.True(t, apperr.IsConflict(err))
}

func TestStartSession_RetakesAllowed(t *testing.T) {
	h := newHarness(t, nil, Options{})
	a := h.create(t, assessment.Spec{Questions: trueFalse(2, 0)})
	s1 := h.start(t, a.ID, "max")
	s2 := h.start(t, a.ID, "max")
	assert.NotEqual(t, s1.ID, s2.ID)
}

func TestSnapshotIsolation(t *testing.T) {
	h := newHarness(t, nil, Options{})
	a := h.create(t, assessment.Spec{Questions: trueFalse(2, 0)})
	s := h.start(t, a.ID, "olive")

	_, err := h.engine.AddQuestions(context.Background(), a.ID, trueFalse(3, question.TierExpert))
	require.NoError(t, err)

	got, err := h.engine.GetSession(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Len(t, got.Questions, 2)
	assert.Equal(t, s.Questions, got.Questions)
}

func TestStartSession_Randomize(t *testing.T) {
	h := newHarness(t, nil, Options{})
	a := h.create(t, assessment.Spec{Questions: trueFalse(12, 0)})

	yes, no := true, false
	ordered, err := h.engine.StartSession(context.Background(), a.ID, "pat", StartOptions{Randomize: &no})
	require.NoError(t, err)
	for i, q := range ordered.Questions {
		assert.Equal(t, a.Questions[i].ID, q.ID)
	}

	shuffled, err := h.engine.StartSession(context.Background(), a.ID, "pat", StartOptions{Randomize: &yes})
	require.NoError(t, err)
	require.Len(t, shuffled.Questions, 12)
	ids := make(map[string]bool)
	moved := false
	for i, q := range shuffled.Questions {
		ids[q.ID] = true
		if q.ID != a.Questions[i].ID {
			moved = true
		}
	}
	assert.Len(t, ids, 12)
	assert.True(t, moved, "12 questions should not survive a shuffle in order")
}

func TestGenerateAssessmentReport(t *testing.T) {
	h := newHarness(t, nil, Options{})
	ctx := context.Background()
	a := h.create(t, assessment.Spec{Questions: trueFalse(3, 0)})
	h.start(t, a.ID, "quinn")

	rep, err := h.engine.GenerateAssessmentReport(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, rep.InsufficientData)
	assert.Zero(t, rep.AverageScore)
	assert.Equal(t, []string{analytics.RecInsufficientData}, rep.Recommendations)
	assert.Equal(t, 1, rep.ActiveSessions)

	s := h.start(t, a.ID, "ray")
	for _, q := range s.Questions {
		h.submit(t, s.ID, q.ID, "true")
	}
	_, _, err = h.engine.EndSession(ctx, s.ID)
	require.NoError(t, err)

	rep, err = h.engine.GenerateAssessmentReport(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, rep.InsufficientData)
	assert.InDelta(t, 100, rep.AverageScore, 1e-9)
	assert.Equal(t, analytics.RecRaiseDifficulty, rep.Recommendations[0])

	cached, err := h.engine.GetAssessment(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, cached.Analytics)
	assert.Equal(t, 1, cached.Analytics.CompletedSessions)

	_, err = h.engine.GenerateAssessmentReport(ctx, "missing")
	assert.True(t, apperr.IsNotFound(err))
}

func TestGenerateQuestions(t *testing.T) {
	h := newHarness(t, nil, Options{})
	qs, err := h.engine.GenerateQuestions(context.Background(), questiongen.Request{
		Subject: "language", Tier: question.TierExpert, Count: 10,
	})
	require.NoError(t, err)
	require.Len(t, qs, 10)
	for _, q := range qs {
		assert.Equal(t, 4, q.Points)
		assert.Empty(t, templates.FindUnresolved(q.Content))
	}

	_, err = h.engine.GenerateQuestions(context.Background(), questiongen.Request{Subject: "history", Tier: question.TierBeginner, Count: 1})
	assert.ErrorIs(t, err, apperr.ErrUnknownSubject)
}

func TestRestore(t *testing.T) {
	st := store.NewMemoryStore()
	h := newHarness(t, st, Options{})
	a := h.create(t, assessment.Spec{Questions: trueFalse(3, 0)})
	s := h.start(t, a.ID, "sam")
	h.submit(t, s.ID, s.Questions[0].ID, "true")
	ended := h.start(t, a.ID, "tess")
	_, _, err := h.engine.EndSession(context.Background(), ended.ID)
	require.NoError(t, err)
	require.NoError(t, h.engine.Close())

	next := newHarness(t, st, Options{})
	n, err := next.engine.Restore(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	active := next.engine.ActiveSessions()
	require.Len(t, active, 1)
	assert.Equal(t, s.ID, active[0].ID)

	res := next.submit(t, s.ID, s.Questions[1].ID, "true")
	assert.Equal(t, 2, res.SessionScore)
}

func TestClose(t *testing.T) {
	h := newHarness(t, nil, Options{})
	a := h.create(t, assessment.Spec{Questions: trueFalse(1, 0)})
	s := h.start(t, a.ID, "uma")
	require.NoError(t, h.engine.Close())
	assert.ErrorIs(t, h.engine.Close(), apperr.ErrClosed)

	ctx := context.Background()
	_, err := h.engine.SubmitAnswer(ctx, s.ID, s.Questions[0].ID, "true", time.Second)
	assert.ErrorIs(t, err, apperr.ErrClosed)
	_, err = h.engine.StartSession(ctx, a.ID, "vic", StartOptions{})
	assert.ErrorIs(t, err, apperr.ErrClosed)
	_, err = h.engine.CreateAssessment(ctx, assessment.Spec{Subject: "science"})
	assert.ErrorIs(t, err, apperr.ErrClosed)
	_, err = h.engine.GenerateAssessmentReport(ctx, a.ID)
	assert.ErrorIs(t, err, apperr.ErrClosed)
}

func TestConcurrentSubmissions(t *testing.T) {
	h := newHarness(t, nil, Options{})
	a := h.create(t, assessment.Spec{
		Kind:       assessment.KindAdaptive,
		Difficulty: question.TierIntermediate,
		Questions:  trueFalse(20, 0),
	})

	const sessions = 8
	ids := make([]string, sessions)
	for i := range ids {
		ids[i] = h.start(t, a.ID, fmt.Sprintf("student-%d", i)).ID
	}

	var wg sync.WaitGroup
	var accepted, rejected atomic.Int64
	for _, sid := range ids {
		for _, q := range a.Questions {
			// Two racing submissions per question: exactly one must win.
			for attempt := 0; attempt < 2; attempt++ {
				wg.Add(1)
				go func(sid, qid string, attempt int) {
					defer wg.Done()
					answer := "true"
					if attempt == 1 {
						answer = "false"
					}
					_, err := h.engine.SubmitAnswer(context.Background(), sid, qid, answer, time.Second)
					switch {
					case err == nil:
						accepted.Add(1)
					case apperr.IsInvalidState(err):
						rejected.Add(1)
					default:
						t.Errorf("unexpected error: %v", err)
					}
				}(sid, q.ID, attempt)
			}
		}
	}
	wg.Wait()

	assert.Equal(t, int64(sessions*20), accepted.Load())
	assert.Equal(t, int64(sessions*20), rejected.Load())
	for _, sid := range ids {
		s, err := h.engine.GetSession(context.Background(), sid)
		require.NoError(t, err)
		assert.Len(t, s.Responses, 20)
		checkInvariants(t, s)
	}
}
