package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/adaptiq/internal/adaptive"
	"github.com/abhisek/adaptiq/internal/config"
	"github.com/abhisek/adaptiq/internal/engine"
	"github.com/abhisek/adaptiq/internal/evaluate"
	"github.com/abhisek/adaptiq/internal/events"
	"github.com/abhisek/adaptiq/internal/feedback"
	"github.com/abhisek/adaptiq/internal/llm"
	"github.com/abhisek/adaptiq/internal/logging"
	"github.com/abhisek/adaptiq/internal/metrics"
	"github.com/abhisek/adaptiq/internal/questiongen"
	"github.com/abhisek/adaptiq/internal/store"
	"github.com/abhisek/adaptiq/internal/templates"
)

// app holds what every command that touches the store needs.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	store  store.Store

	// eventLog is nil for the memory driver.
	eventLog *store.EventLog

	closers []func() error
}

// setup loads config, builds the logger and opens the store.
func setup(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, closeLog, err := logging.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	a := &app{cfg: cfg, logger: logger, closers: []func() error{closeLog}}
	if cfg.File != "" {
		logger.Debug("config loaded", zap.String("file", cfg.File))
	}
	if err := a.openStore(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// loadConfig reads --config and applies --db on top.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if db, _ := cmd.Flags().GetString("db"); db != "" {
		cfg.Store.Driver = config.DriverSQLite
		cfg.Store.DSN = db
	}
	return cfg, nil
}

func (a *app) openStore() error {
	if a.cfg.Store.Driver == config.DriverMemory {
		a.store = store.NewMemoryStore()
		a.logger.Warn("using in-memory store; nothing survives a restart")
		return nil
	}
	dsn, err := resolveDSN(a.cfg.Store.DSN)
	if err != nil {
		return fmt.Errorf("resolve database path: %w", err)
	}
	st, err := store.Open(dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	a.store = st
	a.eventLog = st.EventLog()
	a.closers = append(a.closers, st.Close)
	a.logger.Debug("store opened", zap.String("dsn", dsn))
	return nil
}

// resolveDSN returns dsn, or the default data path when it is empty. The
// parent directory of a plain file path is created.
func resolveDSN(dsn string) (string, error) {
	if dsn == "" {
		return store.DefaultDBPath()
	}
	if strings.HasPrefix(dsn, "file:") {
		return dsn, nil
	}
	return dsn, os.MkdirAll(filepath.Dir(dsn), 0o755)
}

// Close releases everything in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// buildSource builds the question source named by questions.source. The llm
// source falls back to templates when questions.fallback is set.
func buildSource(ctx context.Context, cfg *config.Config, logger *zap.Logger) (questiongen.Source, error) {
	tpl, err := templateSource(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Questions.Source != config.SourceLLM {
		return tpl, nil
	}
	provider, err := llm.NewProvider(ctx, cfg.LLM, logger)
	if err != nil {
		return nil, fmt.Errorf("llm provider: %w", err)
	}
	logger.Info("llm question source enabled",
		zap.String("provider", cfg.LLM.Provider),
		zap.String("model", provider.ModelID()),
		zap.Bool("fallback", cfg.Questions.Fallback))
	llmCfg := questiongen.DefaultLLMConfig()
	llmCfg.KnownSubject = tpl.Library().HasSubject
	src := questiongen.NewLLMSource(provider, llmCfg)
	if !cfg.Questions.Fallback {
		return src, nil
	}
	return &questiongen.Fallback{Primary: src, Secondary: tpl, Logger: logger}, nil
}

func templateSource(cfg *config.Config) (*questiongen.Generator, error) {
	reg := templates.DefaultRegistry()
	lib, err := templates.Load(cfg.Templates.Path, reg)
	if err != nil {
		return nil, err
	}
	genCfg := questiongen.DefaultConfig()
	genCfg.Seed = cfg.Engine.Seed
	return questiongen.New(lib, reg, genCfg), nil
}

func (a *app) engine(src questiongen.Source, sink events.Sink, m *metrics.Metrics) *engine.Engine {
	ec := a.cfg.Engine
	return engine.New(a.store, engine.Options{
		Source:     src,
		Evaluator:  evaluate.New(evaluate.WithMinEssayWords(ec.MinEssayWords)),
		Feedback:   feedback.NewGenerator(),
		Controller: adaptive.New(ec.AdaptiveWindow, adaptive.ThresholdPolicy{Raise: ec.RaiseThreshold, Lower: ec.LowerThreshold}),
		Sink:       sink,
		Logger:     a.logger,
		Metrics:    m,
		Shards:     ec.Shards,
		Seed:       ec.Seed,
		AllowDraft: ec.AllowDraft,
	})
}
