// Package engine is the session manager: it starts sessions from
// assessment snapshots, records answers through the evaluator, adaptive
// controller and feedback generator, ends sessions and builds reports.
//
// Live sessions sit in a sharded registry with one mutex per session, so
// submissions to different sessions never contend. Each mutation is saved
// under its session lock before it becomes visible; events are published
// after the lock is released.
package engine

import (
	"context"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abhisek/adaptiq/internal/adaptive"
	"github.com/abhisek/adaptiq/internal/apperr"
	"github.com/abhisek/adaptiq/internal/assessment"
	"github.com/abhisek/adaptiq/internal/evaluate"
	"github.com/abhisek/adaptiq/internal/events"
	"github.com/abhisek/adaptiq/internal/feedback"
	"github.com/abhisek/adaptiq/internal/metrics"
	"github.com/abhisek/adaptiq/internal/question"
	"github.com/abhisek/adaptiq/internal/questiongen"
	"github.com/abhisek/adaptiq/internal/store"
)

// FeedbackGenerator builds per-answer feedback.
type FeedbackGenerator interface {
	Generate(q *question.Question, answer any, correct bool) (*feedback.Feedback, error)
}

// Options configures an Engine. Zero fields get defaults.
type Options struct {
	// Source generates questions for GenerateQuestions and auto-generated
	// assessments. Nil disables both.
	Source questiongen.Source

	// Registry overrides the assessment registry built over the store.
	Registry *assessment.Registry

	Evaluator  evaluate.Evaluator
	Feedback   FeedbackGenerator
	Controller *adaptive.Controller
	Sink       events.Sink
	Logger     *zap.Logger
	Metrics    *metrics.Metrics

	// Shards is the session registry shard count.
	Shards int

	// Clock returns the current time.
	Clock func() time.Time

	// Seed makes question shuffling deterministic when non-zero.
	Seed uint64

	// AllowDraft lets sessions start on draft assessments.
	AllowDraft bool
}

// Engine runs assessment sessions.
type Engine struct {
	store      store.Store
	registry   *assessment.Registry
	source     questiongen.Source
	evaluator  evaluate.Evaluator
	feedback   FeedbackGenerator
	controller *adaptive.Controller
	sink       events.Sink
	logger     *zap.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
	allowDraft bool

	sessions *sessionRegistry

	// pairs reserves (assessment, student) while a no-retake session is
	// active.
	pairMu sync.Mutex
	pairs  map[pairKey]string

	rndMu sync.Mutex
	rnd   *rand.Rand

	closed atomic.Bool
}

type pairKey struct {
	assessmentID string
	studentID    string
}

// New creates an Engine over st.
func New(st store.Store, opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Evaluator == nil {
		opts.Evaluator = evaluate.New()
	}
	if opts.Feedback == nil {
		opts.Feedback = feedback.NewGenerator()
	}
	if opts.Controller == nil {
		opts.Controller = adaptive.New(adaptive.DefaultWindow, adaptive.DefaultPolicy())
	}
	if opts.Sink == nil {
		opts.Sink = events.Nop{}
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Registry == nil {
		opts.Registry = assessment.NewRegistry(st, opts.Source, opts.Logger)
		opts.Registry.SetClock(opts.Clock)
	}
	seed := opts.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	return &Engine{
		store:      st,
		registry:   opts.Registry,
		source:     opts.Source,
		evaluator:  opts.Evaluator,
		feedback:   opts.Feedback,
		controller: opts.Controller,
		sink:       opts.Sink,
		logger:     opts.Logger.Named("engine"),
		metrics:    opts.Metrics,
		now:        opts.Clock,
		allowDraft: opts.AllowDraft,
		sessions:   newSessionRegistry(opts.Shards),
		pairs:      make(map[pairKey]string),
		rnd:        rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Registry returns the assessment registry.
func (e *Engine) Registry() *assessment.Registry { return e.registry }

// Close stops the engine. Every later operation fails with ErrClosed.
// Sessions stay in the store; Restore picks them up on the next start.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return apperr.ErrClosed
	}
	e.logger.Info("engine closed", zap.Int("live_sessions", e.sessions.len()))
	return nil
}

func (e *Engine) checkOpen() error {
	if e.closed.Load() {
		return apperr.ErrClosed
	}
	return nil
}

// publish hands ev to the sink. Failures are logged, never returned.
func (e *Engine) publish(ctx context.Context, ev events.Event) {
	ev.ID = uuid.NewString()
	if ev.At.IsZero() {
		ev.At = e.now()
	}
	if err := e.sink.Publish(ctx, ev); err != nil {
		e.logger.Warn("publish event failed",
			zap.String("kind", string(ev.Kind)),
			zap.String("session_id", ev.SessionID),
			zap.Error(err))
	}
}

// shuffle permutes qs in place with Fisher-Yates.
func (e *Engine) shuffle(qs []question.Question) {
	e.rndMu.Lock()
	defer e.rndMu.Unlock()
	for i := len(qs) - 1; i > 0; i-- {
		j := e.rnd.IntN(i + 1)
		qs[i], qs[j] = qs[j], qs[i]
	}
}
