package questiongen

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/abhisek/adaptiq/internal/apperr"
	"github.com/abhisek/adaptiq/internal/question"
	"github.com/abhisek/adaptiq/internal/templates"
)

var optionIDs = []string{"a", "b", "c", "d"}

// Generator renders questions from a template library.
type Generator struct {
	lib    *templates.Library
	reg    *templates.Registry
	config Config

	mu  sync.Mutex
	rnd *rand.Rand
}

// New creates a Generator. A nil registry means templates.DefaultRegistry.
func New(lib *templates.Library, reg *templates.Registry, cfg Config) *Generator {
	if reg == nil {
		reg = templates.DefaultRegistry()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &Generator{
		lib:    lib,
		reg:    reg,
		config: cfg,
		rnd:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Library returns the template library the generator draws from.
func (g *Generator) Library() *templates.Library { return g.lib }

// Generate renders req.Count questions. The question type comes from the
// template chosen for each slot.
func (g *Generator) Generate(ctx context.Context, req Request) ([]question.Question, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !g.lib.HasSubject(req.Subject) {
		return nil, unknownSubject(req.Subject)
	}

	var pool []templates.Template
	for _, tpl := range g.lib.ForSubject(req.Subject) {
		if req.allows(tpl.Type) {
			pool = append(pool, tpl)
		}
	}
	if len(pool) == 0 {
		return nil, apperr.Invalid("types", "no %s templates for types %v", req.Subject, req.Types)
	}

	// One lock per batch keeps a seeded sequence stable.
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]question.Question, 0, req.Count)
	for range req.Count {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tpl := pool[g.rnd.IntN(len(pool))]
		q, err := g.build(&tpl, req.Tier)
		if err != nil {
			return nil, err
		}
		if err := runValidators(g.config.Validators, &q); err != nil {
			return nil, fmt.Errorf("template %s: %w", tpl.ID, err)
		}
		out = append(out, q)
	}
	return out, nil
}

func (g *Generator) build(tpl *templates.Template, tier question.Tier) (question.Question, error) {
	rendered, err := tpl.Render(g.reg, g.rnd, tier)
	if err != nil {
		return question.Question{}, err
	}

	q := question.Question{
		ID:          uuid.NewString(),
		Type:        tpl.Type,
		Content:     rendered.Content,
		Explanation: rendered.Explanation,
		Hints:       rendered.Hints,
		Feedback:    rendered.Feedback,
		Subject:     tpl.Subject,
		Topic:       tpl.Topic,
		TemplateID:  tpl.ID,
	}
	if err := q.SetTier(tier); err != nil {
		return question.Question{}, err
	}

	answer := rendered.Answer
	switch q.Type {
	case question.TypeMultipleChoice:
		q.Options, q.CorrectAnswer = choiceOptions(g.rnd, answer)
	case question.TypeTrueFalse:
		q.Options = TrueFalseOptions()
		q.CorrectAnswer = answer.Answer
	case question.TypeShortAnswer:
		q.CorrectAnswer = answer.Answer
	case question.TypeFillBlank:
		q.CorrectAnswer = answer.Answer
		q.AcceptableAnswers = append([]string{answer.Answer}, answer.Accept...)
	case question.TypeEssay:
		q.MinWords = g.config.EssayMinWords[tier]
	}
	return q, nil
}

// TrueFalseOptions returns the fixed true-false option pair.
func TrueFalseOptions() []question.Option {
	return []question.Option{{ID: "true", Text: "True"}, {ID: "false", Text: "False"}}
}

// choiceOptions shuffles the answer among up to three distractors and
// returns the options with the id of the correct one.
func choiceOptions(r *rand.Rand, v templates.Value) ([]question.Option, string) {
	texts := []string{v.Answer}
	for _, d := range v.Distractors {
		if len(texts) == len(optionIDs) {
			break
		}
		if d != "" && !slices.Contains(texts, d) {
			texts = append(texts, d)
		}
	}
	r.Shuffle(len(texts), func(i, j int) { texts[i], texts[j] = texts[j], texts[i] })

	var correct string
	opts := make([]question.Option, len(texts))
	for i, text := range texts {
		opts[i] = question.Option{ID: optionIDs[i], Text: text}
		if text == v.Answer {
			correct = optionIDs[i]
		}
	}
	return opts, correct
}
