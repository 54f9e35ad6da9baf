// Package agent runs hostmend as a long-lived process, scheduling every
// registered check on its configured interval. The one-shot `hostmend check`
// subcommand remains the entry point for external timers; the agent is for
// hosts without one.
package agent

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/hostmend/hostmend/internal/checks"
	"github.com/hostmend/hostmend/internal/config"
)

const metricsShutdownTimeout = 5 * time.Second

// Agent schedules checks until its context is canceled.
type Agent struct {
	runtime     *checks.Runtime
	configDir   string
	metricsAddr string
}

// New returns an agent over the given check runtime. metricsAddr may be
// empty to disable the metrics listener.
func New(runtime *checks.Runtime, configDir, metricsAddr string) *Agent {
	return &Agent{runtime: runtime, configDir: configDir, metricsAddr: metricsAddr}
}

// Run blocks until ctx is canceled or a component fails fatally. Check
// errors are logged and retried next cycle; they never stop the agent.
func (a *Agent) Run(ctx context.Context) error {
	watcher, err := config.NewWatcher(a.configDir)
	if err != nil {
		log.Warn().Err(err).Msg("Config watcher unavailable, continuing without live reload")
	} else {
		if err := watcher.Start(); err == nil {
			defer watcher.Stop()
		}
	}

	if a.metricsAddr != "" {
		startMetricsServer(ctx, a.metricsAddr)
	}

	group, ctx := errgroup.WithContext(ctx)
	for _, name := range checks.Names() {
		check, _ := checks.Get(name)
		group.Go(func() error {
			a.runCheckLoop(ctx, check)
			return nil
		})
	}

	log.Info().Strs("checks", checks.Names()).Msg("Agent started")
	return group.Wait()
}

// runCheckLoop runs one check on its interval. The interval is re-read from
// a fresh config snapshot every cycle, so overrides take effect without a
// restart.
func (a *Agent) runCheckLoop(ctx context.Context, check checks.Check) {
	for {
		interval := a.runtime.Resolver.Resolve(check.Name()).
			GetDurationSeconds(config.KeyCheckInterval, 120*time.Second)
		if interval <= 0 {
			interval = 120 * time.Second
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}

		started := time.Now()
		if _, err := check.Run(ctx, a.runtime); err != nil {
			log.Error().Str("check", check.Name()).Err(err).
				Dur("elapsed", time.Since(started)).Msg("Check run failed")
			continue
		}
		log.Debug().Str("check", check.Name()).
			Dur("elapsed", time.Since(started)).Msg("Check run complete")
	}
}

func startMetricsServer(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && err != http.ErrServerClosed {
			log.Warn().Err(err).Msg("Failed to shut down metrics server cleanly")
		}
	}()

	go func() {
		log.Info().Str("addr", addr).Msg("Metrics endpoint listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn().Err(err).Msg("Metrics server stopped unexpectedly")
		}
	}()
}
