// Command hostmend is a host-level health monitoring and self-remediation
// agent. Checks detect abnormal conditions (thermal, memory, disk, load) and
// dispatch autofix actions through a coordination engine that deduplicates
// and rate-limits remediation host-wide.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/hostmend/hostmend/internal/agent"
	"github.com/hostmend/hostmend/internal/audit"
	"github.com/hostmend/hostmend/internal/autofix"
	"github.com/hostmend/hostmend/internal/checks"
	"github.com/hostmend/hostmend/internal/config"
	"github.com/hostmend/hostmend/internal/grace"
	"github.com/hostmend/hostmend/internal/handlers"
	"github.com/hostmend/hostmend/internal/logging"
	"github.com/hostmend/hostmend/internal/variant"
)

// Version information (set at build time with -ldflags)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var (
	flagConfigDir string
	flagDryRun    bool
	flagLogLevel  string
	flagLogFormat string

	osExit = os.Exit
)

var rootCmd = &cobra.Command{
	Use:     "hostmend",
	Short:   "hostmend - host health monitoring and self-remediation",
	Long:    `hostmend runs periodic host health checks and coordinates autofix remediation actions with host-wide cooldowns, enablement policy, and audit logging`,
	Version: Version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", config.DefaultConfigDir, "configuration directory")
	rootCmd.PersistentFlags().BoolVar(&flagDryRun, "dry-run", false, "report intended remediation without mutating anything")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "log format override (auto, console, json)")

	rootCmd.AddCommand(agentCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(checksCmd)
	rootCmd.AddCommand(fixCmd)
	rootCmd.AddCommand(graceCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("hostmend %s (built %s, commit %s)\n", Version, BuildTime, GitCommit)
	},
}

// runtimeEnv bundles everything a subcommand needs, plus its teardown.
type runtimeEnv struct {
	runtime    *checks.Runtime
	dispatcher *autofix.Dispatcher
	store      grace.Store
	cfg        *config.EffectiveConfig
}

func (e *runtimeEnv) Close() {
	if err := e.store.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close grace store")
	}
	if err := audit.GetLogger().Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close audit logger")
	}
}

// buildRuntime wires the engine: logging, config resolver, grace store,
// audit stream, variant registry, dispatcher.
func buildRuntime() (*runtimeEnv, error) {
	resolver := config.NewResolver(flagConfigDir)
	cfg := resolver.Resolve("")

	level := cfg.GetString(config.KeyLogLevel, "info")
	if flagLogLevel != "" {
		level = flagLogLevel
	}
	format := cfg.GetString(config.KeyLogFormat, "auto")
	if flagLogFormat != "" {
		format = flagLogFormat
	}
	logging.Init(logging.Config{Format: format, Level: level, Component: "hostmend"})

	stateDir := cfg.GetString(config.KeyStateDir, "/var/lib/hostmend")
	store, err := grace.Open(cfg.GetString(config.KeyGraceBackend, "file"), stateDir)
	if err != nil {
		return nil, fmt.Errorf("open grace store: %w", err)
	}

	if auditPath := cfg.GetString(config.KeyAuditLog, ""); auditPath != "" {
		fileLogger, err := audit.NewFileLogger(auditPath)
		if err != nil {
			log.Warn().Err(err).Str("path", auditPath).
				Msg("Audit file logger unavailable, using console only")
		} else {
			audit.SetLogger(fileLogger)
		}
	}

	variants := variant.NewRegistry()
	if err := handlers.RegisterGPUHandlers(variants); err != nil {
		store.Close()
		return nil, fmt.Errorf("register GPU handlers: %w", err)
	}

	dispatcher := &autofix.Dispatcher{
		Resolver:    resolver,
		Store:       store,
		ForceDryRun: flagDryRun,
	}

	return &runtimeEnv{
		runtime: &checks.Runtime{
			Resolver:   resolver,
			Dispatcher: dispatcher,
			Variants:   variants,
		},
		dispatcher: dispatcher,
		store:      store,
		cfg:        cfg,
	}, nil
}

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Run all checks continuously on their configured intervals",
	Run: func(cmd *cobra.Command, args []string) {
		env, err := buildRuntime()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			osExit(1)
		}
		defer env.Close()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		metricsAddr := env.cfg.GetString(config.KeyMetricsAddr, "")
		a := agent.New(env.runtime, flagConfigDir, metricsAddr)
		if err := a.Run(ctx); err != nil {
			log.Error().Err(err).Msg("Agent exited with error")
			env.Close()
			osExit(1)
		}
		log.Info().Msg("Agent stopped")
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		osExit(1)
	}
}
