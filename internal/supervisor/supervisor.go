// Package supervisor abandons sessions that run past their time limit.
// The engine exposes the forced transition; the supervisor owns the timer.
package supervisor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/abhisek/adaptiq/internal/apperr"
	"github.com/abhisek/adaptiq/internal/session"
)

// ReasonTimeout is recorded on sessions abandoned for exceeding their limit.
const ReasonTimeout = "time limit exceeded"

// DefaultInterval is the sweep period when none is configured.
const DefaultInterval = 15 * time.Second

// Engine is the part of the engine the supervisor drives.
type Engine interface {
	ActiveSessions() []*session.Session
	AbandonSession(ctx context.Context, sessionID, reason string) (*session.Session, error)
}

// Config controls the sweep loop.
type Config struct {
	Interval time.Duration

	// Grace is added to every time limit before a session counts as expired.
	Grace time.Duration

	Clock  func() time.Time
	Logger *zap.Logger
}

// Supervisor periodically abandons expired sessions.
type Supervisor struct {
	engine Engine
	config Config
	logger *zap.Logger
}

// New creates a Supervisor over engine.
func New(engine Engine, cfg Config) *Supervisor {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Supervisor{engine: engine, config: cfg, logger: cfg.Logger.Named("supervisor")}
}

// Sweep abandons every active session whose elapsed time at now exceeds its
// time limit plus the grace period, and returns the abandoned ids.
func (s *Supervisor) Sweep(ctx context.Context, now time.Time) []string {
	var abandoned []string
	for _, sess := range s.engine.ActiveSessions() {
		if sess.TimeLimit <= 0 || sess.Elapsed(now) <= sess.TimeLimit+s.config.Grace {
			continue
		}
		if _, err := s.engine.AbandonSession(ctx, sess.ID, ReasonTimeout); err != nil {
			// Ended by the student between listing and abandoning.
			if apperr.IsInvalidState(err) {
				continue
			}
			s.logger.Warn("abandon expired session failed", zap.String("session_id", sess.ID), zap.Error(err))
			continue
		}
		abandoned = append(abandoned, sess.ID)
	}
	if len(abandoned) > 0 {
		s.logger.Info("expired sessions abandoned", zap.Int("count", len(abandoned)))
	}
	return abandoned
}

// Run sweeps on every tick until ctx is cancelled.
func (s *Supervisor) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Sweep(ctx, s.config.Clock())
		}
	}
}
