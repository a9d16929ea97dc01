// Package feedback builds the per-answer feedback shown to a student.
package feedback

import (
	"math/rand/v2"
	"slices"

	"github.com/abhisek/adaptiq/internal/apperr"
	"github.com/abhisek/adaptiq/internal/question"
)

// MaxHints is the number of hints attached to incorrect answers.
const MaxHints = 2

// Type is the feedback outcome.
type Type string

const (
	TypeCorrect   Type = "correct"
	TypeIncorrect Type = "incorrect"
)

// Feedback is the structured response to one answer.
type Feedback struct {
	Type          Type     `json:"type"`
	Message       string   `json:"message"`
	Hints         []string `json:"hints,omitempty"`
	Explanation   string   `json:"explanation,omitempty"`
	Encouragement string   `json:"encouragement"`
}

var encouragements = map[bool][]string{
	true: {
		"Great work!",
		"Well done, keep it up!",
		"Excellent!",
		"You're on a roll!",
	},
	false: {
		"Keep going, you'll get the next one.",
		"Mistakes help you learn.",
		"Don't give up!",
		"Review the hints and try again.",
	},
}

// Encouragements returns the fixed pool for the given correctness.
func Encouragements(correct bool) []string {
	return slices.Clone(encouragements[correct])
}

// Generator produces feedback from a question's own feedback templates.
type Generator struct {
	pick func(n int) int
}

// NewGenerator returns a Generator that picks encouragements at random.
func NewGenerator() *Generator {
	return &Generator{pick: rand.IntN}
}

// Generate builds feedback for an evaluated answer. A question without the
// relevant message yields a ConfigurationError.
func (g *Generator) Generate(q *question.Question, _ any, correct bool) (*Feedback, error) {
	fb := &Feedback{Type: TypeIncorrect, Message: q.Feedback.Incorrect}
	if correct {
		fb.Type = TypeCorrect
		fb.Message = q.Feedback.Correct
	}
	if fb.Message == "" {
		return nil, apperr.Misconfigured("question %s has no %s feedback message", q.ID, fb.Type)
	}

	if correct {
		fb.Explanation = q.Explanation
	} else if len(q.Hints) > 0 {
		fb.Hints = slices.Clone(q.Hints[:min(MaxHints, len(q.Hints))])
	}

	pool := encouragements[correct]
	fb.Encouragement = pool[g.pick(len(pool))]
	return fb, nil
}
