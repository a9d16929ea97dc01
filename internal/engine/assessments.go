package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/abhisek/adaptiq/internal/analytics"
	"github.com/abhisek/adaptiq/internal/apperr"
	"github.com/abhisek/adaptiq/internal/assessment"
	"github.com/abhisek/adaptiq/internal/events"
	"github.com/abhisek/adaptiq/internal/question"
	"github.com/abhisek/adaptiq/internal/questiongen"
	"github.com/abhisek/adaptiq/internal/store"
)

// CreateAssessment validates spec and stores the new assessment.
func (e *Engine) CreateAssessment(ctx context.Context, spec assessment.Spec) (*assessment.Assessment, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	defer e.metrics.ObserveOp("create_assessment", time.Now())

	a, err := e.registry.Create(ctx, spec)
	if err != nil {
		return nil, err
	}
	e.publish(ctx, events.Event{
		Kind:         events.KindAssessmentCreated,
		AssessmentID: a.ID,
		At:           a.CreatedAt,
		Payload: events.AssessmentCreated{
			Title:     a.Title,
			Subject:   a.Subject,
			Questions: len(a.Questions),
			Status:    string(a.Status),
		},
	})
	return a, nil
}

// GenerateQuestions produces standalone questions from the configured
// source.
func (e *Engine) GenerateQuestions(ctx context.Context, req questiongen.Request) ([]question.Question, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	if e.source == nil {
		return nil, apperr.Misconfigured("no question source is configured")
	}
	defer e.metrics.ObserveOp("generate_questions", time.Now())
	return e.source.Generate(ctx, req)
}

func (e *Engine) GetAssessment(ctx context.Context, id string) (*assessment.Assessment, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	return e.registry.Get(ctx, id)
}

func (e *Engine) ListAssessments(ctx context.Context, f assessment.Filter) ([]*assessment.Assessment, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	return e.registry.List(ctx, f)
}

func (e *Engine) UpdateAssessment(ctx context.Context, id string, p assessment.Patch) (*assessment.Assessment, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	return e.registry.Update(ctx, id, p)
}

func (e *Engine) AddQuestions(ctx context.Context, id string, specs []assessment.QuestionSpec) (*assessment.Assessment, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	return e.registry.AddQuestions(ctx, id, specs)
}

func (e *Engine) PublishAssessment(ctx context.Context, id string) (*assessment.Assessment, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	return e.registry.Publish(ctx, id)
}

func (e *Engine) ArchiveAssessment(ctx context.Context, id string) (*assessment.Assessment, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	return e.registry.Archive(ctx, id)
}

// GenerateAssessmentReport aggregates every stored session of the
// assessment and caches the headline numbers on it.
func (e *Engine) GenerateAssessmentReport(ctx context.Context, assessmentID string) (*analytics.Report, error) {
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	defer e.metrics.ObserveOp("generate_report", time.Now())

	a, err := e.registry.Get(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	sessions, err := e.store.QuerySessions(ctx, store.SessionFilter{AssessmentID: assessmentID})
	if err != nil {
		return nil, err
	}
	rep := analytics.BuildReport(a, sessions, e.now())
	if err := e.registry.RecordAnalytics(ctx, assessmentID, rep.Cache()); err != nil {
		return nil, err
	}
	e.logger.Debug("report generated",
		zap.String("assessment_id", assessmentID),
		zap.Int("sessions", rep.TotalSessions),
		zap.Bool("insufficient_data", rep.InsufficientData))
	return rep, nil
}
