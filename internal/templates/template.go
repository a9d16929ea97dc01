// Package templates holds the subject question templates and the typed
// variable generators that render them at a difficulty tier.
package templates

import (
	"fmt"
	"maps"
	"math/rand/v2"
	"regexp"
	"slices"
	"strings"

	"github.com/abhisek/adaptiq/internal/apperr"
	"github.com/abhisek/adaptiq/internal/question"
)

// AnswerToken is the reserved token bound to the resolved answer.
const AnswerToken = "answer"

var (
	tokenRe      = regexp.MustCompile(`\{([a-z][a-z0-9_]*)\}`)
	unresolvedRe = regexp.MustCompile(`\{[^{}\s]*\}`)
)

// Template is a question shape with {variable} placeholders.
type Template struct {
	ID      string        `json:"id"`
	Subject string        `json:"subject"`
	Topic   string        `json:"topic"`
	Type    question.Type `json:"type"`
	Text    string        `json:"text"`

	// Vars declares the kind of every token used in the template.
	Vars map[string]VariableKind `json:"vars"`

	// AnswerVar names the variable whose value carries the answer. Empty
	// only for essays.
	AnswerVar string `json:"answer_var,omitempty"`

	Explanation string                     `json:"explanation,omitempty"`
	Hints       []string                   `json:"hints,omitempty"`
	Feedback    question.FeedbackTemplates `json:"feedback"`
}

// Tokens returns the distinct tokens used across every text field of t, in
// first-seen order.
func (t *Template) Tokens() []string {
	var out []string
	seen := make(map[string]bool)
	for _, s := range t.texts() {
		for _, m := range tokenRe.FindAllStringSubmatch(s, -1) {
			if !seen[m[1]] {
				seen[m[1]] = true
				out = append(out, m[1])
			}
		}
	}
	return out
}

func (t *Template) texts() []string {
	out := []string{t.Text, t.Explanation, t.Feedback.Correct, t.Feedback.Incorrect, t.Feedback.Partial}
	return append(out, t.Hints...)
}

// Rendered is a template with every variable resolved.
type Rendered struct {
	Content     string
	Explanation string
	Hints       []string
	Feedback    question.FeedbackTemplates

	// Answer is the value of AnswerVar; zero for essays.
	Answer Value
}

// Render resolves every declared variable through reg and substitutes the
// values into the template text.
func (t *Template) Render(reg *Registry, r *rand.Rand, tier question.Tier) (Rendered, error) {
	values := make(map[string]string, len(t.Vars)+1)
	var answer Value

	// Sorted so a seeded generator draws in a stable order.
	for _, name := range slices.Sorted(maps.Keys(t.Vars)) {
		v, err := reg.Resolve(t.Vars[name], r, tier)
		if err != nil {
			return Rendered{}, fmt.Errorf("template %s: variable %s: %w", t.ID, name, err)
		}
		values[name] = v.Text
		if name == t.AnswerVar {
			answer = v
		}
	}
	if t.AnswerVar != "" {
		values[AnswerToken] = answer.Answer
	}

	sub := func(s string) string {
		return tokenRe.ReplaceAllStringFunc(s, func(tok string) string {
			if v, ok := values[tok[1:len(tok)-1]]; ok {
				return v
			}
			return tok
		})
	}

	out := Rendered{
		Content:     sub(t.Text),
		Explanation: sub(t.Explanation),
		Feedback: question.FeedbackTemplates{
			Correct:   sub(t.Feedback.Correct),
			Incorrect: sub(t.Feedback.Incorrect),
			Partial:   sub(t.Feedback.Partial),
		},
		Answer: answer,
	}
	for _, h := range t.Hints {
		out.Hints = append(out.Hints, sub(h))
	}
	return out, nil
}

// FindUnresolved returns the first {...} token left in s, or "".
func FindUnresolved(s string) string {
	return unresolvedRe.FindString(s)
}

// Validate checks that t is internally consistent against reg.
func (t *Template) Validate(reg *Registry) error {
	field := func(name string) string { return "template " + t.ID + " " + name }

	if strings.TrimSpace(t.ID) == "" {
		return apperr.Invalid("template id", "must not be empty")
	}
	if strings.TrimSpace(t.Subject) == "" {
		return apperr.Invalid(field("subject"), "must not be empty")
	}
	if !t.Type.Valid() {
		return apperr.Invalid(field("type"), "unknown question type %q", t.Type)
	}
	if strings.TrimSpace(t.Text) == "" {
		return apperr.Invalid(field("text"), "must not be empty")
	}
	for name, kind := range t.Vars {
		if name == AnswerToken {
			return apperr.Invalid(field("vars"), "%q is reserved", AnswerToken)
		}
		if !reg.Has(kind) {
			return apperr.Invalid(field("vars"), "variable %s uses unregistered kind %s", name, kind)
		}
	}
	for _, tok := range t.Tokens() {
		if tok == AnswerToken {
			if t.AnswerVar == "" {
				return apperr.Invalid(field("text"), "{answer} used without an answer variable")
			}
			continue
		}
		if _, ok := t.Vars[tok]; !ok {
			return &apperr.ValidationError{
				Field:   field("text"),
				Message: fmt.Sprintf("token {%s} is not declared", tok),
				Err:     apperr.ErrUnresolvedVariable,
			}
		}
	}
	switch {
	case t.AnswerVar == "" && t.Type != question.TypeEssay:
		return apperr.Invalid(field("answer_var"), "required for %s templates", t.Type)
	case t.AnswerVar != "":
		if _, ok := t.Vars[t.AnswerVar]; !ok {
			return apperr.Invalid(field("answer_var"), "%q is not a declared variable", t.AnswerVar)
		}
	}
	if t.Feedback.Correct == "" || t.Feedback.Incorrect == "" {
		return apperr.Invalid(field("feedback"), "correct and incorrect messages are required")
	}
	return nil
}
