package assessment_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/adaptiq/internal/apperr"
	"github.com/abhisek/adaptiq/internal/assessment"
	"github.com/abhisek/adaptiq/internal/question"
	"github.com/abhisek/adaptiq/internal/questiongen"
	"github.com/abhisek/adaptiq/internal/store"
	"github.com/abhisek/adaptiq/internal/templates"
)

func newRegistry(t *testing.T) *assessment.Registry {
	t.Helper()
	cfg := questiongen.DefaultConfig()
	cfg.Seed = 21
	r := assessment.NewRegistry(store.NewMemoryStore(), questiongen.New(templates.Builtin(), nil, cfg), nil)
	now := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	r.SetClock(func() time.Time { return now })
	return r
}

func tfSpec(content, answer string) assessment.QuestionSpec {
	return assessment.QuestionSpec{
		Type:          question.TypeTrueFalse,
		Content:       content,
		CorrectAnswer: answer,
		Feedback:      question.FeedbackTemplates{Correct: "Yes.", Incorrect: "No."},
	}
}

func TestCreate_Manual(t *testing.T) {
	r := newRegistry(t)
	a, err := r.Create(context.Background(), assessment.Spec{
		Subject:    "Science",
		Difficulty: question.TierAdvanced,
		Questions: []assessment.QuestionSpec{
			tfSpec("The sun is a star.", "true"),
			{
				Type:          question.TypeFillBlank,
				Content:       "Water is made of hydrogen and ____.",
				CorrectAnswer: "oxygen",
				Difficulty:    question.TierBeginner,
				Feedback:      question.FeedbackTemplates{Correct: "Yes.", Incorrect: "No."},
			},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "Science assessment", a.Title)
	assert.Equal(t, "science", a.Subject)
	assert.Equal(t, assessment.StatusDraft, a.Status)
	assert.Equal(t, assessment.KindFixed, a.Kind)
	assert.Equal(t, assessment.DefaultSettings(), a.Settings)
	require.Len(t, a.Questions, 2)

	tf := a.Questions[0]
	assert.NotEmpty(t, tf.ID)
	assert.Equal(t, question.TierAdvanced, tf.Tier)
	assert.Equal(t, 3, tf.Points)
	assert.Equal(t, 60*time.Second, tf.EstimatedTime)
	assert.Len(t, tf.Options, 2)

	fill := a.Questions[1]
	assert.Equal(t, question.TierBeginner, fill.Tier)
	assert.Equal(t, 1, fill.Points)
	assert.Equal(t, []string{"oxygen"}, fill.AcceptableAnswers)
}

func TestCreate_AutoGenerate(t *testing.T) {
	r := newRegistry(t)
	a, err := r.Create(context.Background(), assessment.Spec{
		Subject:       "mathematics",
		Difficulty:    question.TierIntermediate,
		Kind:          assessment.KindAdaptive,
		AutoGenerate:  true,
		QuestionCount: 4,
		Publish:       true,
	})
	require.NoError(t, err)
	assert.Equal(t, assessment.StatusPublished, a.Status)
	assert.True(t, a.IsAdaptive())
	require.Len(t, a.Questions, 4)
	assert.Equal(t, 8, a.TotalPoints())
}

func TestCreate_Errors(t *testing.T) {
	tests := []struct {
		name  string
		spec  assessment.Spec
		field string
	}{
		{"no subject", assessment.Spec{}, "subject"},
		{"bad kind", assessment.Spec{Subject: "science", Kind: "random"}, "type"},
		{"auto without count", assessment.Spec{Subject: "science", AutoGenerate: true}, "question_count"},
		{"publish empty", assessment.Spec{Subject: "science", Publish: true}, "questions"},
		{"bad tier", assessment.Spec{Subject: "science", Difficulty: question.Tier(9)}, "difficulty"},
		{"unknown subject", assessment.Spec{Subject: "astrology", AutoGenerate: true, QuestionCount: 2}, "subject"},
		{"negative time limit", assessment.Spec{Subject: "science", Settings: &assessment.Settings{TimeLimit: -time.Second}}, "settings.time_limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newRegistry(t).Create(context.Background(), tt.spec)
			require.Error(t, err)
			var ve *apperr.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestCreate_InvalidManualQuestion(t *testing.T) {
	_, err := newRegistry(t).Create(context.Background(), assessment.Spec{
		Subject:   "science",
		Questions: []assessment.QuestionSpec{tfSpec("Is it?", "maybe")},
	})
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
}

func TestLifecycle(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t)
	a, err := r.Create(ctx, assessment.Spec{Subject: "language"})
	require.NoError(t, err)

	_, err = r.Publish(ctx, a.ID)
	assert.True(t, apperr.IsValidation(err), "publishing without questions")

	title := "Vocabulary check"
	a, err = r.Update(ctx, a.ID, assessment.Patch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, a.Title)

	a, err = r.AddQuestions(ctx, a.ID, []assessment.QuestionSpec{tfSpec("Big means large.", "true")})
	require.NoError(t, err)
	require.Len(t, a.Questions, 1)

	a, err = r.Publish(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, assessment.StatusPublished, a.Status)

	_, err = r.Update(ctx, a.ID, assessment.Patch{Title: &title})
	assert.True(t, apperr.IsInvalidState(err))

	a, err = r.AddQuestions(ctx, a.ID, []assessment.QuestionSpec{tfSpec("Tiny means huge.", "false")})
	require.NoError(t, err, "published assessments accept appended questions")
	assert.Len(t, a.Questions, 2)

	a, err = r.Archive(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, assessment.StatusArchived, a.Status)

	_, err = r.Archive(ctx, a.ID)
	assert.True(t, apperr.IsInvalidState(err))
	_, err = r.AddQuestions(ctx, a.ID, []assessment.QuestionSpec{tfSpec("Fast means quick.", "true")})
	assert.True(t, apperr.IsInvalidState(err))

	_, err = r.Get(ctx, "missing")
	assert.True(t, apperr.IsNotFound(err))
}

func TestUpdate_BlankTitleFallsBackToDefault(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t)
	a, err := r.Create(ctx, assessment.Spec{Subject: "science", Title: "Cells"})
	require.NoError(t, err)

	blank := "   "
	a, err = r.Update(ctx, a.ID, assessment.Patch{Title: &blank})
	require.NoError(t, err)
	assert.Equal(t, "Science assessment", a.Title)

	got, err := r.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Science assessment", got.Title)
}

func TestGet_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t)
	a, err := r.Create(ctx, assessment.Spec{
		Subject:   "science",
		Questions: []assessment.QuestionSpec{tfSpec("Ice is cold.", "true")},
	})
	require.NoError(t, err)

	a.Questions[0].Content = "mutated"
	got, err := r.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ice is cold.", got.Questions[0].Content)
}

func TestList_Filters(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t)
	q := []assessment.QuestionSpec{tfSpec("Ice is cold.", "true")}
	_, err := r.Create(ctx, assessment.Spec{Subject: "science", Questions: q, Publish: true, CreatedBy: "t1"})
	require.NoError(t, err)
	_, err = r.Create(ctx, assessment.Spec{Subject: "science", Questions: q, CreatedBy: "t2"})
	require.NoError(t, err)
	_, err = r.Create(ctx, assessment.Spec{Subject: "language", Questions: q, Publish: true, CreatedBy: "t1"})
	require.NoError(t, err)

	list, err := r.List(ctx, assessment.Filter{Subject: "science"})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = r.List(ctx, assessment.Filter{Status: assessment.StatusPublished, CreatedBy: "t1"})
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
