package feedback

import (
	"testing"

	"github.com/abhisek/adaptiq/internal/apperr"
	"github.com/abhisek/adaptiq/internal/question"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testQuestion() *question.Question {
	return &question.Question{
		ID:          "q1",
		Explanation: "2 + 2 = 4",
		Hints:       []string{"count", "use fingers", "add"},
		Feedback:    question.FeedbackTemplates{Correct: "Right!", Incorrect: "Wrong."},
	}
}

func TestGenerate_Correct(t *testing.T) {
	fb, err := NewGenerator().Generate(testQuestion(), "4", true)
	require.NoError(t, err)

	assert.Equal(t, TypeCorrect, fb.Type)
	assert.Equal(t, "Right!", fb.Message)
	assert.Equal(t, "2 + 2 = 4", fb.Explanation)
	assert.Empty(t, fb.Hints)
	assert.Contains(t, Encouragements(true), fb.Encouragement)
}

func TestGenerate_IncorrectCapsHints(t *testing.T) {
	fb, err := NewGenerator().Generate(testQuestion(), "5", false)
	require.NoError(t, err)

	assert.Equal(t, TypeIncorrect, fb.Type)
	assert.Equal(t, "Wrong.", fb.Message)
	assert.Equal(t, []string{"count", "use fingers"}, fb.Hints)
	assert.Empty(t, fb.Explanation)
	assert.Contains(t, Encouragements(false), fb.Encouragement)
}

func TestGenerate_HintsAreCopied(t *testing.T) {
	q := testQuestion()
	fb, err := NewGenerator().Generate(q, "5", false)
	require.NoError(t, err)
	fb.Hints[0] = "changed"
	assert.Equal(t, "count", q.Hints[0])
}

func TestGenerate_MissingMessage(t *testing.T) {
	q := testQuestion()
	q.Feedback.Incorrect = ""

	_, err := NewGenerator().Generate(q, "5", false)
	assert.True(t, apperr.IsConfiguration(err))

	_, err = NewGenerator().Generate(q, "4", true)
	assert.NoError(t, err)
}
