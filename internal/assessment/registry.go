package assessment

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abhisek/adaptiq/internal/apperr"
	"github.com/abhisek/adaptiq/internal/question"
	"github.com/abhisek/adaptiq/internal/questiongen"
)

// Filter narrows List results. Zero fields match everything.
type Filter struct {
	Subject   string
	Status    Status
	CreatedBy string
}

// Repository is the persistence the registry needs.
type Repository interface {
	GetAssessment(ctx context.Context, id string) (*Assessment, error)
	SaveAssessment(ctx context.Context, a *Assessment) error
	ListAssessments(ctx context.Context, f Filter) ([]*Assessment, error)
}

// Patch carries the editable fields of a draft. Nil fields are unchanged.
type Patch struct {
	Title      *string        `json:"title" validate:"omitempty,max=200"`
	Difficulty *question.Tier `json:"difficulty"`
	Settings   *Settings      `json:"settings"`
}

// Registry creates and edits assessments.
type Registry struct {
	repo   Repository
	source questiongen.Source
	logger *zap.Logger
	now    func() time.Time

	// mu serializes read-modify-write cycles on the repository.
	mu sync.Mutex
}

// NewRegistry creates a Registry. source may be nil when auto-generation is
// not needed.
func NewRegistry(repo Repository, source questiongen.Source, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		repo:   repo,
		source: source,
		logger: logger.Named("assessment"),
		now:    time.Now,
	}
}

// SetClock overrides the time source.
func (r *Registry) SetClock(now func() time.Time) { r.now = now }

// Create validates spec, generates questions when asked to and saves the
// new assessment.
func (r *Registry) Create(ctx context.Context, spec Spec) (*Assessment, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	tier := spec.tier()
	var qs []question.Question
	if spec.AutoGenerate {
		if r.source == nil {
			return nil, apperr.Misconfigured("auto-generation requested but no question source is configured")
		}
		generated, err := r.source.Generate(ctx, questiongen.Request{
			Subject: spec.Subject,
			Tier:    tier,
			Count:   spec.QuestionCount,
			Types:   spec.QuestionTypes,
		})
		if err != nil {
			return nil, fmt.Errorf("generate questions: %w", err)
		}
		qs = generated
	}
	manual, err := buildQuestions(spec.Questions, tier, spec.Subject)
	if err != nil {
		return nil, err
	}
	qs = append(qs, manual...)

	title := strings.TrimSpace(spec.Title)
	if title == "" {
		title = defaultTitle(spec.Subject)
	}
	settings := DefaultSettings()
	if spec.Settings != nil {
		settings = *spec.Settings
	}
	now := r.now()
	a := &Assessment{
		ID:         uuid.NewString(),
		Title:      title,
		Subject:    strings.ToLower(strings.TrimSpace(spec.Subject)),
		Difficulty: tier,
		Kind:       spec.kind(),
		Questions:  qs,
		Settings:   settings,
		Status:     StatusDraft,
		CreatedBy:  spec.CreatedBy,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if spec.Publish {
		a.Status = StatusPublished
	}

	if err := r.repo.SaveAssessment(ctx, a); err != nil {
		return nil, fmt.Errorf("save assessment: %w", err)
	}
	r.logger.Info("assessment created",
		zap.String("assessment_id", a.ID),
		zap.String("subject", a.Subject),
		zap.Int("questions", len(a.Questions)),
		zap.String("status", string(a.Status)))
	return a.Clone(), nil
}

func defaultTitle(subject string) string {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "Assessment"
	}
	return strings.ToUpper(subject[:1]) + subject[1:] + " assessment"
}

// buildQuestions turns hand-authored specs into questions with ids and
// derived points and time, then runs the standard validators on them.
func buildQuestions(specs []QuestionSpec, fallback question.Tier, subject string) ([]question.Question, error) {
	out := make([]question.Question, 0, len(specs))
	validators := questiongen.DefaultValidators()
	for i, s := range specs {
		tier := s.Difficulty
		if tier == 0 {
			tier = fallback
		}
		q := question.Question{
			ID:                uuid.NewString(),
			Type:              s.Type,
			Content:           strings.TrimSpace(s.Content),
			Options:           s.Options,
			CorrectAnswer:     s.CorrectAnswer,
			AcceptableAnswers: s.AcceptableAnswers,
			MinWords:          s.MinWords,
			Explanation:       s.Explanation,
			Hints:             s.Hints,
			Feedback:          s.Feedback,
			Subject:           strings.ToLower(subject),
			Topic:             s.Topic,
		}
		if q.Type == question.TypeTrueFalse && len(q.Options) == 0 {
			q.Options = questiongen.TrueFalseOptions()
		}
		if q.Type == question.TypeFillBlank && len(q.AcceptableAnswers) == 0 && q.CorrectAnswer != "" {
			q.AcceptableAnswers = []string{q.CorrectAnswer}
		}
		if err := q.SetTier(tier); err != nil {
			return nil, err
		}
		for _, v := range validators {
			if verr := v.Validate(&q); verr != nil {
				return nil, fmt.Errorf("question %d: %w", i, verr)
			}
		}
		out = append(out, q)
	}
	return out, nil
}

// Get returns a copy of the assessment with id.
func (r *Registry) Get(ctx context.Context, id string) (*Assessment, error) {
	a, err := r.repo.GetAssessment(ctx, id)
	if err != nil {
		return nil, err
	}
	return a.Clone(), nil
}

// List returns assessments matching f.
func (r *Registry) List(ctx context.Context, f Filter) ([]*Assessment, error) {
	return r.repo.ListAssessments(ctx, f)
}

// mutate loads id, applies fn and saves the result.
func (r *Registry) mutate(ctx context.Context, id string, fn func(a *Assessment) error) (*Assessment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, err := r.repo.GetAssessment(ctx, id)
	if err != nil {
		return nil, err
	}
	a = a.Clone()
	if err := fn(a); err != nil {
		return nil, err
	}
	a.UpdatedAt = r.now()
	if err := r.repo.SaveAssessment(ctx, a); err != nil {
		return nil, fmt.Errorf("save assessment: %w", err)
	}
	return a.Clone(), nil
}

// Update edits a draft.
func (r *Registry) Update(ctx context.Context, id string, p Patch) (*Assessment, error) {
	if err := apperr.ValidateStruct(p); err != nil {
		return nil, err
	}
	if p.Difficulty != nil && !p.Difficulty.Valid() {
		return nil, apperr.Invalid("difficulty", "unknown tier %d", int(*p.Difficulty))
	}
	return r.mutate(ctx, id, func(a *Assessment) error {
		if a.Status != StatusDraft {
			return apperr.InvalidState("update assessment", string(a.Status), "only drafts can be edited")
		}
		if p.Title != nil {
			a.Title = strings.TrimSpace(*p.Title)
			if a.Title == "" {
				a.Title = defaultTitle(a.Subject)
			}
		}
		if p.Difficulty != nil {
			a.Difficulty = *p.Difficulty
		}
		if p.Settings != nil {
			a.Settings = *p.Settings
		}
		return nil
	})
}

// AddQuestions appends questions to a draft or published assessment.
// Sessions already started keep their snapshot.
func (r *Registry) AddQuestions(ctx context.Context, id string, specs []QuestionSpec) (*Assessment, error) {
	for i := range specs {
		if err := apperr.ValidateStruct(specs[i]); err != nil {
			return nil, err
		}
	}
	return r.mutate(ctx, id, func(a *Assessment) error {
		if a.Status == StatusArchived {
			return apperr.InvalidState("add questions", string(a.Status), "")
		}
		qs, err := buildQuestions(specs, a.Difficulty, a.Subject)
		if err != nil {
			return err
		}
		a.Questions = append(a.Questions, qs...)
		return nil
	})
}

// Publish makes a draft startable.
func (r *Registry) Publish(ctx context.Context, id string) (*Assessment, error) {
	return r.mutate(ctx, id, func(a *Assessment) error {
		if a.Status != StatusDraft {
			return apperr.InvalidState("publish assessment", string(a.Status), "")
		}
		if len(a.Questions) == 0 {
			return apperr.Invalid("questions", "cannot publish an assessment without questions")
		}
		a.Status = StatusPublished
		return nil
	})
}

// Archive retires an assessment. No new sessions can start.
func (r *Registry) Archive(ctx context.Context, id string) (*Assessment, error) {
	return r.mutate(ctx, id, func(a *Assessment) error {
		if a.Status == StatusArchived {
			return apperr.InvalidState("archive assessment", string(a.Status), "")
		}
		a.Status = StatusArchived
		return nil
	})
}

// RecordAnalytics stores the aggregates of a freshly computed report.
func (r *Registry) RecordAnalytics(ctx context.Context, id string, c AnalyticsCache) error {
	_, err := r.mutate(ctx, id, func(a *Assessment) error {
		a.Analytics = &c
		return nil
	})
	return err
}
