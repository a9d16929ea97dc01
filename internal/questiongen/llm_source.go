package questiongen

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/abhisek/adaptiq/internal/apperr"
	"github.com/abhisek/adaptiq/internal/llm"
	"github.com/abhisek/adaptiq/internal/question"
)

// LLMConfig controls the LLMSource.
type LLMConfig struct {
	Validators    []Validator
	MaxTokens     int
	Temperature   float64
	EssayMinWords map[question.Tier]int

	// KnownSubject, when set, rejects subjects before the provider is
	// called. Usually a template library's HasSubject.
	KnownSubject func(subject string) bool
}

// DefaultLLMConfig returns an LLMConfig with the standard validator chain.
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Validators:    DefaultValidators(),
		MaxTokens:     4096,
		Temperature:   0.7,
		EssayMinWords: DefaultConfig().EssayMinWords,
	}
}

// LLMSource asks a language model for questions. Points and time are still
// derived locally from the requested tier.
type LLMSource struct {
	provider llm.Provider
	config   LLMConfig
}

// NewLLMSource creates an LLMSource over provider.
func NewLLMSource(provider llm.Provider, cfg LLMConfig) *LLMSource {
	return &LLMSource{provider: provider, config: cfg}
}

// questionOutput is one raw question before validation.
type questionOutput struct {
	Type              string   `json:"type"`
	Content           string   `json:"content"`
	Options           []string `json:"options"`
	CorrectAnswer     string   `json:"correct_answer"`
	AcceptableAnswers []string `json:"acceptable_answers"`
	Explanation       string   `json:"explanation"`
	Hints             []string `json:"hints"`
	FeedbackCorrect   string   `json:"feedback_correct"`
	FeedbackIncorrect string   `json:"feedback_incorrect"`
}

type batchOutput struct {
	Questions []questionOutput `json:"questions"`
}

const systemPrompt = `You write assessment questions for students.
Every question must be self-contained, unambiguous and answerable without external material.
Use plain text. Never leave placeholders in curly braces.
For multiple-choice questions give exactly 4 options and set correct_answer to the text of the right option.
For true-false questions set correct_answer to "true" or "false" and leave options empty.
For fill-blank questions mark the blank with ____ and list every accepted answer in acceptable_answers.
For essay questions leave correct_answer empty.`

var tierGuidance = map[question.Tier]string{
	question.TierBeginner:     "introductory: single-step recall or computation",
	question.TierIntermediate: "two-step reasoning with familiar material",
	question.TierAdvanced:     "multi-step reasoning that combines ideas",
	question.TierExpert:       "demanding problems that need deep understanding",
}

func buildUserMessage(req Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write %d %s questions on the subject %q.\n", req.Count, req.Tier, req.Subject)
	fmt.Fprintf(&b, "Difficulty: %s.\n", tierGuidance[req.Tier])

	types := req.Types
	if len(types) == 0 {
		types = question.AllTypes()
	}
	names := make([]string, len(types))
	for i, qt := range types {
		names[i] = string(qt)
	}
	fmt.Fprintf(&b, "Allowed question types: %s.\n", strings.Join(names, ", "))
	b.WriteString("Include a short explanation, two hints and one feedback message for correct and incorrect answers.")
	return b.String()
}

// Generate requests req.Count questions in a single call.
func (s *LLMSource) Generate(ctx context.Context, req Request) ([]question.Question, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if s.config.KnownSubject != nil && !s.config.KnownSubject(req.Subject) {
		return nil, unknownSubject(req.Subject)
	}
	ctx = llm.WithPurpose(ctx, "question-gen")

	resp, err := s.provider.Generate(ctx, llm.Request{
		System:      systemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: buildUserMessage(req)}},
		Schema:      BatchSchema,
		MaxTokens:   s.config.MaxTokens,
		Temperature: s.config.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM generation failed: %w", err)
	}

	var raw batchOutput
	if err := json.Unmarshal(resp.Content, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse LLM response: %w", err)
	}
	if len(raw.Questions) < req.Count {
		return nil, apperr.Invalid("questions", "LLM returned %d questions, want %d", len(raw.Questions), req.Count)
	}

	out := make([]question.Question, 0, req.Count)
	for _, r := range raw.Questions[:req.Count] {
		q, err := s.convert(r, req)
		if err != nil {
			return nil, err
		}
		if err := runValidators(s.config.Validators, &q); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

func (s *LLMSource) convert(r questionOutput, req Request) (question.Question, error) {
	qt, err := question.ParseType(r.Type)
	if err != nil {
		return question.Question{}, apperr.Invalid("type", "%v", err)
	}
	if !req.allows(qt) {
		return question.Question{}, apperr.Invalid("type", "LLM returned disallowed type %s", qt)
	}

	q := question.Question{
		ID:          uuid.NewString(),
		Type:        qt,
		Content:     strings.TrimSpace(r.Content),
		Explanation: r.Explanation,
		Hints:       r.Hints,
		Feedback: question.FeedbackTemplates{
			Correct:   r.FeedbackCorrect,
			Incorrect: r.FeedbackIncorrect,
		},
		Subject: strings.ToLower(req.Subject),
	}
	if err := q.SetTier(req.Tier); err != nil {
		return question.Question{}, err
	}

	switch qt {
	case question.TypeMultipleChoice:
		for i, text := range r.Options {
			if i == len(optionIDs) {
				break
			}
			q.Options = append(q.Options, question.Option{ID: optionIDs[i], Text: text})
			if strings.EqualFold(strings.TrimSpace(text), strings.TrimSpace(r.CorrectAnswer)) {
				q.CorrectAnswer = optionIDs[i]
			}
		}
	case question.TypeTrueFalse:
		q.Options = TrueFalseOptions()
		q.CorrectAnswer = strings.ToLower(strings.TrimSpace(r.CorrectAnswer))
	case question.TypeShortAnswer:
		q.CorrectAnswer = strings.TrimSpace(r.CorrectAnswer)
	case question.TypeFillBlank:
		q.CorrectAnswer = strings.TrimSpace(r.CorrectAnswer)
		q.AcceptableAnswers = r.AcceptableAnswers
		if len(q.AcceptableAnswers) == 0 && q.CorrectAnswer != "" {
			q.AcceptableAnswers = []string{q.CorrectAnswer}
		}
	case question.TypeEssay:
		q.MinWords = s.config.EssayMinWords[req.Tier]
	}
	return q, nil
}
