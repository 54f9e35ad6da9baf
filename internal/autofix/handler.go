// Package autofix is the coordination engine for remediation actions: it
// gates every action behind enablement policy and the host-wide grace-period
// store, executes handlers in dry-run or live mode, and records each outcome.
package autofix

import (
	"context"

	"github.com/hostmend/hostmend/internal/config"
)

// Run carries the per-dispatch context a handler executes under. Dry-run and
// live mode receive the identical Run; the only difference is the DryRun flag
// the handler must honor inside its own body.
type Run struct {
	// Config is the effective configuration resolved for this dispatch.
	Config *config.EffectiveConfig

	// DryRun instructs the handler to perform all detection and analysis but
	// mutate nothing, returning a description of what it would have done.
	DryRun bool

	// RequestID tags log lines for this dispatch.
	RequestID string
}

// Result is what a handler reports back.
type Result struct {
	Success bool
	Detail  string
}

// Handler is any remediation implementation. A returned error means the
// handler could not run to a decision at all; a Result with Success=false
// means it ran and the remediation failed. Handlers that block on system
// calls must enforce their own internal timeouts; the engine never aborts a
// running handler.
type Handler func(ctx context.Context, run *Run, args []string) (Result, error)
