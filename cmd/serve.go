package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/abhisek/adaptiq/internal/api"
	"github.com/abhisek/adaptiq/internal/events"
	"github.com/abhisek/adaptiq/internal/metrics"
	"github.com/abhisek/adaptiq/internal/supervisor"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the session timeout supervisor",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides http.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := a.cfg
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.HTTP.Addr = addr
	}

	src, err := buildSource(ctx, cfg, a.logger)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	bus := events.NewBus(cfg.Engine.EventBuffer, a.logger)
	defer bus.Close()
	unsubscribe := bus.Subscribe(func(e events.Event) {
		a.logger.Debug("event",
			zap.String("kind", string(e.Kind)),
			zap.String("assessment_id", e.AssessmentID),
			zap.String("session_id", e.SessionID))
	})
	defer unsubscribe()

	sinks := events.Multi{bus}
	var eventSource api.EventSource
	if a.eventLog != nil {
		sinks = append(sinks, a.eventLog)
		eventSource = a.eventLog
	}

	eng := a.engine(src, sinks, m)
	defer eng.Close()
	if _, err := eng.Restore(ctx); err != nil {
		return fmt.Errorf("restore sessions: %w", err)
	}

	srv := &http.Server{
		Addr: cfg.HTTP.Addr,
		Handler: api.New(eng, api.Options{
			Logger:         a.logger,
			Metrics:        m,
			Gatherer:       reg,
			Events:         eventSource,
			RateLimit:      cfg.HTTP.RateLimitRPS,
			Burst:          cfg.HTTP.RateLimitBurst,
			AllowedOrigins: cfg.HTTP.AllowedOrigins,
			RequestTimeout: cfg.HTTP.RequestTimeout,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if cfg.Supervisor.Enabled {
		sup := supervisor.New(eng, supervisor.Config{
			Interval: cfg.Supervisor.Interval,
			Grace:    cfg.Supervisor.Grace,
			Logger:   a.logger,
		})
		g.Go(func() error { return sup.Run(gctx) })
	}
	return g.Wait()
}
