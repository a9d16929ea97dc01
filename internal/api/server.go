// Package api exposes the engine over HTTP with chi.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/abhisek/adaptiq/internal/engine"
	"github.com/abhisek/adaptiq/internal/metrics"
	"github.com/abhisek/adaptiq/internal/store"
)

// EventSource serves GET /v1/events. *store.EventLog implements it.
type EventSource interface {
	Query(ctx context.Context, q store.EventQuery) ([]store.LoggedEvent, error)
}

type Options struct {
	Logger  *zap.Logger
	Metrics *metrics.Metrics

	// Gatherer backs /metrics. The route is not mounted when nil.
	Gatherer prometheus.Gatherer

	// Events backs /v1/events. The route is not mounted when nil.
	Events EventSource

	// RateLimit is requests per second per client address. Zero disables
	// limiting.
	RateLimit float64
	Burst     int

	AllowedOrigins []string
	RequestTimeout time.Duration
}

// Server routes HTTP requests to an engine.
type Server struct {
	engine *engine.Engine
	opts   Options
	logger *zap.Logger
	router chi.Router
}

// New builds the router for eng.
func New(eng *engine.Engine, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	s := &Server{engine: eng, opts: opts, logger: opts.Logger.Named("http")}
	s.router = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, s.observe, middleware.Recoverer)
	if len(s.opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.opts.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
			ExposedHeaders: []string{"X-Request-Id"},
			MaxAge:         300,
		}))
	}
	if s.opts.RateLimit > 0 {
		r.Use(newClientLimiter(rate.Limit(s.opts.RateLimit), s.opts.Burst, time.Now).middleware)
	}

	r.Get("/healthz", s.healthz)
	if s.opts.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		if s.opts.RequestTimeout > 0 {
			r.Use(middleware.Timeout(s.opts.RequestTimeout))
		}

		r.Route("/assessments", func(r chi.Router) {
			r.Post("/", s.createAssessment)
			r.Get("/", s.listAssessments)
			r.Route("/{assessmentID}", func(r chi.Router) {
				r.Get("/", s.getAssessment)
				r.Patch("/", s.updateAssessment)
				r.Post("/questions", s.addQuestions)
				r.Post("/publish", s.publishAssessment)
				r.Post("/archive", s.archiveAssessment)
				r.Get("/report", s.assessmentReport)
			})
		})
		r.Post("/questions/generate", s.generateQuestions)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.startSession)
			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", s.getSession)
				r.Post("/answers", s.submitAnswer)
				r.Post("/end", s.endSession)
				r.Post("/abandon", s.abandonSession)
			})
		})

		if s.opts.Events != nil {
			r.Get("/events", s.listEvents)
		}
	})
	return r
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"active_sessions": len(s.engine.ActiveSessions()),
	})
}
