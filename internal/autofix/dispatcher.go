package autofix

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hostmend/hostmend/internal/audit"
	"github.com/hostmend/hostmend/internal/config"
	"github.com/hostmend/hostmend/internal/grace"
	"github.com/hostmend/hostmend/internal/logging"
	"github.com/hostmend/hostmend/internal/metrics"
	"github.com/hostmend/hostmend/internal/utils"
)

// Request identifies one remediation attempt.
type Request struct {
	// Action is the action identity, shared host-wide for deduplication.
	Action string

	// RequestedBy names the check asking for the action. It selects the
	// component-defaults config layer and is recorded in the grace record.
	RequestedBy string

	// CooldownSeconds is the minimum quiet time between executions of Action.
	// The effective grace period adds one monitor interval on top.
	CooldownSeconds int

	// OverrideGrace skips the grace-period gate (operator escape hatch).
	// Enablement is still honored.
	OverrideGrace bool

	// Args are passed through to the handler verbatim.
	Args []string
}

// Dispatcher is the orchestration entry point every check calls into.
type Dispatcher struct {
	Resolver *config.Resolver
	Store    grace.Store

	// Retention overrides the grace-record retention ceiling. Zero means
	// grace.DefaultRetention.
	Retention time.Duration

	// ForceDryRun puts every dispatch in dry-run mode regardless of the
	// DRY_RUN config key (the --dry-run CLI flag).
	ForceDryRun bool
}

// Dispatch runs the linear decision sequence for one remediation attempt:
// resolve config, check enablement, clean up stale grace records, check the
// grace period, write the new grace record, run the handler, record the
// outcome. The returned error is non-nil only for identifier validation
// failures, which are rejected at the boundary before any side effect; every
// other condition degrades to a logged, typed Outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request, handler Handler) (Outcome, error) {
	if err := utils.ValidateIdentifier("action", req.Action); err != nil {
		return Outcome{}, err
	}
	if err := utils.ValidateIdentifier("component", req.RequestedBy); err != nil {
		return Outcome{}, err
	}

	ctx, requestID := logging.WithRequestID(ctx, "")
	logger := log.With().
		Str("requestID", requestID).
		Str("action", req.Action).
		Str("requestedBy", req.RequestedBy).
		Logger()

	logger.Info().Int("cooldownSeconds", req.CooldownSeconds).
		Strs("args", req.Args).Msg("Dispatch requested")

	// Step 1: fresh config snapshot for the requesting component.
	cfg := d.Resolver.Resolve(req.RequestedBy)
	dryRun := d.ForceDryRun || cfg.DryRun()

	// Step 2: enablement. Being disabled is not an error; the would-be action
	// is logged in full so operators can see what was suppressed.
	enablement := ComputeEnablement(cfg)
	if enabled, scope := enablement.IsEnabled(req.Action); !enabled {
		key := config.KeyAutofixEnabled
		if scope == ScopeSelective {
			key = config.KeyDisabledActions
		}
		logger.Info().
			Str("scope", string(scope)).
			Str("configKey", key).
			Strs("args", req.Args).
			Msgf("Skipped: autofix disabled (%s); set %s to re-enable", scope, key)
		return d.finish(req, dryRun, requestID, Outcome{
			Kind:      OutcomeSkippedDisabled,
			Scope:     scope,
			ConfigKey: key,
			Detail:    "would have run " + req.Action + " " + strings.Join(req.Args, " "),
		}), nil
	}

	// Step 3: opportunistic retention cleanup.
	if err := d.Store.Cleanup(d.Retention); err != nil {
		logger.Warn().Err(err).Msg("Grace store cleanup failed, continuing")
	}

	monitorInterval := cfg.GetDurationSeconds(config.KeyCheckInterval, 120*time.Second)

	// Step 4: grace-period gate.
	if !req.OverrideGrace {
		status, err := d.Store.Check(req.Action, monitorInterval)
		if err != nil {
			return Outcome{}, err
		}
		if status.InGracePeriod {
			logger.Info().
				Dur("remaining", status.Remaining).
				Str("lastRequestedBy", status.Record.RequestedBy).
				Msgf("Skipped: grace period (%ds remaining)",
					int(status.Remaining.Round(time.Second)/time.Second))
			return d.finish(req, dryRun, requestID, Outcome{
				Kind:      OutcomeSkippedGracePeriod,
				Remaining: status.Remaining,
			}), nil
		}
	} else {
		logger.Warn().Msg("Grace period override set, skipping cooldown check")
	}

	// Step 5: record the grace period before running the handler, so a slow
	// handler cannot be re-entered by another detector meanwhile. A store
	// write failure degrades to running anyway: the store rate-limits, it
	// does not gate correctness.
	cooldown := time.Duration(req.CooldownSeconds) * time.Second
	if err := d.Store.Start(req.Action, cooldown, req.RequestedBy); err != nil {
		logger.Warn().Err(err).Msg("Failed to write grace record, continuing")
	}

	// Step 6: run the handler.
	run := &Run{Config: cfg, DryRun: dryRun, RequestID: requestID}
	logger.Info().Bool("dryRun", dryRun).Msg("Executing handler")

	started := time.Now()
	result, err := handler(ctx, run, req.Args)
	elapsed := time.Since(started)

	// Step 7: classify, log, and record the outcome.
	var outcome Outcome
	switch {
	case err != nil:
		logger.Error().Err(err).Dur("elapsed", elapsed).Msg("Handler failed")
		outcome = Outcome{Kind: OutcomeExecuted, Success: false, Detail: err.Error(), Err: err}
	case dryRun:
		logger.Info().Dur("elapsed", elapsed).Str("detail", result.Detail).Msg("Dry-run reported")
		outcome = Outcome{Kind: OutcomeDryRunReported, Success: true, Detail: result.Detail}
	case result.Success:
		logger.Info().Dur("elapsed", elapsed).Str("detail", result.Detail).Msg("Handler succeeded")
		outcome = Outcome{Kind: OutcomeExecuted, Success: true, Detail: result.Detail}
	default:
		logger.Error().Dur("elapsed", elapsed).Str("detail", result.Detail).Msg("Handler reported failure")
		outcome = Outcome{Kind: OutcomeExecuted, Success: false, Detail: result.Detail}
	}
	metrics.RecordHandler(req.Action, elapsed, outcome.Kind != OutcomeExecuted || outcome.Success)

	return d.finish(req, dryRun, requestID, outcome), nil
}

// finish records metrics and the audit event for a terminal outcome.
func (d *Dispatcher) finish(req Request, dryRun bool, requestID string, outcome Outcome) Outcome {
	metrics.RecordDispatch(req.Action, string(outcome.Kind))
	audit.Record(audit.Event{
		Action:      req.Action,
		RequestedBy: req.RequestedBy,
		Outcome:     string(outcome.Kind),
		Success:     outcome.ExitCode() != ExitFailure,
		DryRun:      dryRun && outcome.Kind == OutcomeDryRunReported,
		Detail:      outcome.String(),
		RequestID:   requestID,
	})
	return outcome
}
