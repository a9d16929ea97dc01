// Package evaluate decides whether a submitted answer is correct.
//
// Evaluation is pure: no I/O, no mutation of the question, and the same
// (question, answer) pair always yields the same result.
package evaluate

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/abhisek/adaptiq/internal/apperr"
	"github.com/abhisek/adaptiq/internal/question"
)

// DefaultMinEssayWords is used for essays that carry no MinWords of their own.
const DefaultMinEssayWords = 50

// Evaluator reports whether answer is correct for q. The error is non-nil
// only for a malformed answer payload.
type Evaluator interface {
	Evaluate(q *question.Question, answer any) (bool, error)
}

// Strategy evaluates one question type.
type Strategy interface {
	Evaluate(q *question.Question, answer any) (bool, error)
}

// StrategyFunc adapts a function to Strategy.
type StrategyFunc func(q *question.Question, answer any) (bool, error)

func (f StrategyFunc) Evaluate(q *question.Question, answer any) (bool, error) { return f(q, answer) }

// Rules routes by question type to a Strategy.
type Rules struct {
	strategies map[question.Type]Strategy
}

type Option func(*config)

type config struct {
	minEssayWords int
	overrides     map[question.Type]Strategy
}

// WithMinEssayWords sets the essay threshold used when a question has none.
func WithMinEssayWords(n int) Option { return func(c *config) { c.minEssayWords = n } }

// WithStrategy replaces the strategy for one question type.
func WithStrategy(qt question.Type, s Strategy) Option {
	return func(c *config) { c.overrides[qt] = s }
}

// New installs the built-in strategies.
func New(opts ...Option) *Rules {
	cfg := &config{
		minEssayWords: DefaultMinEssayWords,
		overrides:     make(map[question.Type]Strategy),
	}
	for _, o := range opts {
		o(cfg)
	}
	r := &Rules{
		strategies: map[question.Type]Strategy{
			question.TypeMultipleChoice: choiceStrategy{},
			question.TypeTrueFalse:      trueFalseStrategy{},
			question.TypeShortAnswer:    shortAnswerStrategy{},
			question.TypeFillBlank:      fillBlankStrategy{},
			question.TypeEssay:          essayStrategy{minWords: cfg.minEssayWords},
		},
	}
	for qt, s := range cfg.overrides {
		r.strategies[qt] = s
	}
	return r
}

func (r *Rules) Evaluate(q *question.Question, answer any) (bool, error) {
	s, ok := r.strategies[q.Type]
	if !ok {
		return false, apperr.Misconfigured("no evaluation strategy for question type %q", q.Type)
	}
	return s.Evaluate(q, answer)
}

// Normalize trims surrounding whitespace and lowercases s.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func malformed(q *question.Question, answer any) error {
	return apperr.Invalid("answer", "unsupported %T payload for %s question", answer, q.Type)
}

// text converts scalar payloads to their string form.
func text(answer any) (string, bool) {
	switch v := answer.(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	default:
		return "", false
	}
}

type choiceStrategy struct{}

func (choiceStrategy) Evaluate(q *question.Question, answer any) (bool, error) {
	s, ok := answer.(string)
	if !ok {
		return false, malformed(q, answer)
	}
	return s == q.CorrectAnswer, nil
}

type trueFalseStrategy struct{}

func (trueFalseStrategy) Evaluate(q *question.Question, answer any) (bool, error) {
	switch v := answer.(type) {
	case bool:
		return strconv.FormatBool(v) == q.CorrectAnswer, nil
	case string:
		return v == q.CorrectAnswer, nil
	default:
		return false, malformed(q, answer)
	}
}

type shortAnswerStrategy struct{}

func (shortAnswerStrategy) Evaluate(q *question.Question, answer any) (bool, error) {
	s, ok := text(answer)
	if !ok {
		return false, malformed(q, answer)
	}
	return Normalize(s) == Normalize(q.CorrectAnswer), nil
}

type fillBlankStrategy struct{}

func (fillBlankStrategy) Evaluate(q *question.Question, answer any) (bool, error) {
	s, ok := text(answer)
	if !ok {
		return false, malformed(q, answer)
	}
	got := Normalize(s)
	for _, accepted := range q.AcceptableAnswers {
		if got == Normalize(accepted) {
			return true, nil
		}
	}
	return false, nil
}

// essayStrategy accepts any essay of at least minWords words. It is a
// length heuristic, not content grading.
type essayStrategy struct{ minWords int }

func (e essayStrategy) Evaluate(q *question.Question, answer any) (bool, error) {
	s, ok := answer.(string)
	if !ok {
		return false, malformed(q, answer)
	}
	threshold := q.MinWords
	if threshold <= 0 {
		threshold = e.minWords
	}
	return WordCount(s) >= threshold, nil
}

// WordCount counts whitespace-separated words.
func WordCount(s string) int {
	return len(strings.Fields(s))
}
