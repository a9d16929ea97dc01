package templates

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"testing"

	"github.com/abhisek/adaptiq/internal/apperr"
	"github.com/abhisek/adaptiq/internal/question"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRand() *rand.Rand {
	return rand.New(rand.NewPCG(42, 7))
}

func TestBuiltin_ValidAndCoversEveryType(t *testing.T) {
	lib := Builtin()
	require.NoError(t, lib.Validate(DefaultRegistry()))

	assert.Equal(t, []string{SubjectLanguage, SubjectMathematics, SubjectScience}, lib.Subjects())
	for _, subject := range lib.Subjects() {
		types := make(map[question.Type]bool)
		for _, tpl := range lib.ForSubject(subject) {
			types[tpl.Type] = true
		}
		for _, qt := range question.AllTypes() {
			assert.True(t, types[qt], "%s has no %s template", subject, qt)
		}
	}
}

func TestRender_NoUnresolvedTokens(t *testing.T) {
	reg := DefaultRegistry()
	r := testRand()
	for _, tpl := range Builtin().All() {
		for _, tier := range question.AllTiers() {
			for range 20 {
				out, err := tpl.Render(reg, r, tier)
				require.NoError(t, err)
				for _, s := range append([]string{out.Content, out.Explanation, out.Feedback.Correct, out.Feedback.Incorrect}, out.Hints...) {
					assert.Empty(t, FindUnresolved(s), "template %s at %s rendered %q", tpl.ID, tier, s)
				}
				if tpl.Type != question.TypeEssay {
					assert.NotEmpty(t, out.Answer.Answer, "template %s", tpl.ID)
				}
			}
		}
	}
}

func TestRender_Deterministic(t *testing.T) {
	tpl, err := Builtin().Get("math-equation-mc")
	require.NoError(t, err)

	a, err := tpl.Render(DefaultRegistry(), testRand(), question.TierAdvanced)
	require.NoError(t, err)
	b, err := tpl.Render(DefaultRegistry(), testRand(), question.TierAdvanced)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEquation_ScalesWithTier(t *testing.T) {
	r := testRand()
	tests := []struct {
		tier question.Tier
		mark string
	}{
		{question.TierBeginner, "x + "},
		{question.TierIntermediate, "x²"},
		{question.TierAdvanced, "x³"},
		{question.TierExpert, "log"},
	}
	for _, tt := range tests {
		t.Run(tt.tier.String(), func(t *testing.T) {
			v := equationValue(r, tt.tier)
			assert.Contains(t, v.Text, tt.mark)
			x, err := strconv.Atoi(v.Answer)
			require.NoError(t, err)
			assert.Positive(t, x)
			assert.NotContains(t, v.Distractors, v.Answer)
		})
	}
}

func TestArithmetic_AnswerMatchesExpression(t *testing.T) {
	r := testRand()
	for range 50 {
		v := arithmeticValue(r, question.TierBeginner)
		var a, b int
		var op string
		_, err := fmt.Sscan(v.Text, &a, &op, &b)
		require.NoError(t, err)
		want := a + b
		if op == "−" {
			want = a - b
		}
		assert.Equal(t, strconv.Itoa(want), v.Answer, v.Text)
		assert.GreaterOrEqual(t, want, 0)
	}
}

func TestPrimeClaim_AnswerIsCorrect(t *testing.T) {
	r := testRand()
	for _, tier := range question.AllTiers() {
		for range 30 {
			v := primeClaimValue(r, tier)
			n, err := strconv.Atoi(strings.Fields(v.Text)[0])
			require.NoError(t, err)
			assert.Equal(t, strconv.FormatBool(isPrime(n)), v.Answer, v.Text)
		}
	}
}

func TestSpell(t *testing.T) {
	tests := map[int]string{
		7:    "seven",
		40:   "forty",
		42:   "forty-two",
		300:  "three hundred",
		342:  "three hundred forty-two",
		1005: "one thousand five",
		9999: "nine thousand nine hundred ninety-nine",
	}
	for n, want := range tests {
		assert.Equal(t, want, spell(n))
	}
}

func TestTemplateValidate(t *testing.T) {
	reg := DefaultRegistry()
	base := Template{
		ID: "t", Subject: "mathematics", Type: question.TypeShortAnswer,
		Text:      "What is {expr}?",
		Vars:      map[string]VariableKind{"expr": KindArithmetic},
		AnswerVar: "expr",
		Feedback:  question.FeedbackTemplates{Correct: "ok", Incorrect: "no"},
	}
	require.NoError(t, base.Validate(reg))

	undeclared := base
	undeclared.Text = "What is {expr} and {y}?"
	err := undeclared.Validate(reg)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrUnresolvedVariable)

	noAnswer := base
	noAnswer.AnswerVar = ""
	assert.True(t, apperr.IsValidation(noAnswer.Validate(reg)))

	essay := noAnswer
	essay.Type = question.TypeEssay
	assert.NoError(t, essay.Validate(reg))

	answerTokenInEssay := essay
	answerTokenInEssay.Explanation = "It is {answer}."
	assert.True(t, apperr.IsValidation(answerTokenInEssay.Validate(reg)))

	unregistered := base
	assert.True(t, apperr.IsValidation(unregistered.Validate(NewRegistry())))
}

func TestLibrary_DuplicateIDs(t *testing.T) {
	tpl := Template{ID: "dup", Subject: "x"}
	_, err := NewLibrary([]Template{tpl, tpl})
	assert.True(t, apperr.IsValidation(err))
}

func TestLibrary_GetUnknown(t *testing.T) {
	_, err := Builtin().Get("nope")
	assert.True(t, apperr.IsNotFound(err))
}

func TestLoad_MergesPackOverBuiltins(t *testing.T) {
	lib, err := Load("testdata/history.json", DefaultRegistry())
	require.NoError(t, err)

	assert.True(t, lib.HasSubject("history"))
	assert.Equal(t, Builtin().Len()+1, lib.Len())

	replaced, err := lib.Get("math-prime-tf")
	require.NoError(t, err)
	assert.Equal(t, "Is it true that {claim}?", replaced.Text)
}

func TestLoadFile_Errors(t *testing.T) {
	reg := DefaultRegistry()

	_, err := LoadFile("testdata/undeclared.json", reg)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrUnresolvedVariable)

	_, err = LoadFile("testdata/badkind.json", reg)
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err), "schema rejects unknown kinds: %v", err)

	_, err = LoadFile("testdata/missing.json", reg)
	assert.Error(t, err)
}

func TestLoad_EmptyPathIsBuiltin(t *testing.T) {
	lib, err := Load("", DefaultRegistry())
	require.NoError(t, err)
	assert.Same(t, Builtin(), lib)
}
