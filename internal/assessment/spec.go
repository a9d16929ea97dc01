package assessment

import (
	"github.com/abhisek/adaptiq/internal/apperr"
	"github.com/abhisek/adaptiq/internal/question"
)

// Spec is the input to Registry.Create.
type Spec struct {
	Title      string        `json:"title" validate:"max=200"`
	Subject    string        `json:"subject" validate:"required,max=64"`
	Difficulty question.Tier `json:"difficulty"`
	Kind       Kind          `json:"type" validate:"omitempty,oneof=fixed adaptive"`

	// AutoGenerate asks the question source for QuestionCount questions.
	AutoGenerate  bool            `json:"auto_generate"`
	QuestionCount int             `json:"question_count" validate:"gte=0,lte=100"`
	QuestionTypes []question.Type `json:"question_types" validate:"dive,oneof=multiple-choice true-false short-answer essay fill-blank"`

	// Questions are authored by hand and appended after generated ones.
	Questions []QuestionSpec `json:"questions" validate:"dive"`

	Settings  *Settings `json:"settings"`
	CreatedBy string    `json:"created_by" validate:"max=128"`

	// Publish makes the assessment startable immediately.
	Publish bool `json:"publish"`
}

// QuestionSpec is a hand-authored question. Points and estimated time are
// always derived from the tier.
type QuestionSpec struct {
	Type              question.Type              `json:"type" validate:"required,oneof=multiple-choice true-false short-answer essay fill-blank"`
	Content           string                     `json:"content" validate:"required,max=2000"`
	Options           []question.Option          `json:"options"`
	CorrectAnswer     string                     `json:"correct_answer"`
	AcceptableAnswers []string                   `json:"acceptable_answers"`
	MinWords          int                        `json:"min_words" validate:"gte=0"`
	Difficulty        question.Tier              `json:"difficulty"`
	Explanation       string                     `json:"explanation"`
	Hints             []string                   `json:"hints"`
	Feedback          question.FeedbackTemplates `json:"feedback"`
	Topic             string                     `json:"topic"`
}

// Validate checks field constraints that tags cannot express.
func (s *Spec) Validate() error {
	if err := apperr.ValidateStruct(s); err != nil {
		return err
	}
	if s.Difficulty != 0 && !s.Difficulty.Valid() {
		return apperr.Invalid("difficulty", "unknown tier %d", int(s.Difficulty))
	}
	if s.AutoGenerate && s.QuestionCount < 1 {
		return apperr.Invalid("question_count", "must be between 1 and 100 when auto_generate is set")
	}
	if !s.AutoGenerate && len(s.Questions) == 0 && s.Publish {
		return apperr.Invalid("questions", "a published assessment needs at least one question")
	}
	for i := range s.Questions {
		if d := s.Questions[i].Difficulty; d != 0 && !d.Valid() {
			return apperr.Invalid("questions", "question %d: unknown tier %d", i, int(d))
		}
	}
	if s.Settings != nil && s.Settings.TimeLimit < 0 {
		return apperr.Invalid("settings.time_limit", "must not be negative")
	}
	return nil
}

func (s *Spec) tier() question.Tier {
	if s.Difficulty == 0 {
		return question.TierBeginner
	}
	return s.Difficulty
}

func (s *Spec) kind() Kind {
	if s.Kind == "" {
		return KindFixed
	}
	return s.Kind
}
