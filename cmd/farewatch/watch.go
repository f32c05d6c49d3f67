package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"farewatch-service/internal/domain/entity"
	"farewatch-service/internal/usecase"
	"farewatch-service/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func watchCmd(o *overrides) *cobra.Command {
	var mode string
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Collect on a fixed interval and serve /metrics and /health",
		RunE: func(cmd *cobra.Command, args []string) error {
			if mode != usecase.ModeDirect && mode != usecase.ModeMonthly {
				return fmt.Errorf("unknown mode %q", mode)
			}
			return runWatch(cmd, o, mode, interval)
		},
	}

	cmd.Flags().StringVar(&mode, "mode", usecase.ModeMonthly, "collection mode: direct or monthly")
	cmd.Flags().DurationVar(&interval, "interval", 0, "time between runs (RUN_INTERVAL)")

	return cmd
}

// runStatus is the last completed run, as served on /health
type runStatus struct {
	mu      sync.RWMutex
	mode    string
	started time.Time
	lastRun time.Time
	saved   int
	alerts  int
	lastErr string
}

func (s *runStatus) update(report *usecase.RunReport, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = ""
	if err != nil {
		s.lastErr = err.Error()
	}
	if report != nil {
		s.lastRun = report.FinishedAt
		s.saved = report.Count(entity.OutcomeSaved)
		s.alerts = report.Alerts()
	}
}

func (s *runStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	body := map[string]interface{}{
		"status": "ok",
		"mode":   s.mode,
		"uptime": time.Since(s.started).Round(time.Second).String(),
		"saved":  s.saved,
		"alerts": s.alerts,
	}
	if !s.lastRun.IsZero() {
		body["lastRun"] = s.lastRun.UTC().Format(time.RFC3339)
	}
	if s.lastErr != "" {
		body["lastError"] = s.lastErr
	}
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func newOpsServer(addr string, registry *prometheus.Registry, status *runStatus, readTimeout, writeTimeout time.Duration) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.Handle("/health", status)
	return &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}
}

// collectLoop runs the collector immediately and then on every tick.
// Runs share this goroutine, so they never overlap.
func collectLoop(ctx context.Context, collector *usecase.FareCollector, mode string, interval time.Duration, status *runStatus, log logger.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		report, err := runMode(ctx, collector, mode)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Collection run failed", "mode", mode, "error", err)
		}
		status.update(report, err)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func runWatch(cmd *cobra.Command, o *overrides, mode string, interval time.Duration) error {
	cfg, log, err := loadConfig(cmd, o)
	if err != nil {
		return err
	}
	defer log.Sync()
	if interval <= 0 {
		interval = cfg.RunInterval
	}
	if mode == usecase.ModeDirect && cfg.TravelDate == "" {
		return fmt.Errorf("direct mode needs a travel date (--date or TRAVEL_DATE)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()
	log.Info("Watching fares", "version", cfg.AppVersion, "mode", mode, "interval", interval.String())

	status := &runStatus{mode: mode, started: time.Now()}
	server := newOpsServer(":"+cfg.Port, a.registry, status, cfg.ReadTimeout, cfg.WriteTimeout)
	serveErr := make(chan error, 1)
	go func() {
		log.Info("Ops server listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	loopCtx, cancelLoop := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		collectLoop(loopCtx, a.collector, mode, interval, status, log)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("Shutdown requested")
	case runErr = <-serveErr:
		log.Error("Ops server failed", "error", runErr)
	}

	cancelLoop()
	<-done

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Ops server shutdown error", "error", err)
	}

	log.Info("Farewatch stopped")
	return runErr
}
