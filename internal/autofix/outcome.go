package autofix

import (
	"fmt"
	"time"
)

// OutcomeKind enumerates the four terminal states of a dispatch.
type OutcomeKind string

const (
	OutcomeExecuted           OutcomeKind = "executed"
	OutcomeSkippedGracePeriod OutcomeKind = "skipped_grace_period"
	OutcomeSkippedDisabled    OutcomeKind = "skipped_disabled"
	OutcomeDryRunReported     OutcomeKind = "dry_run_reported"
)

// DisabledScope says which enablement gate skipped the action.
type DisabledScope string

const (
	ScopeGlobal    DisabledScope = "global"
	ScopeSelective DisabledScope = "selective"
)

// Exit codes dispatch callers surface to automation. Being disabled or
// reporting a dry run is success; a grace-period skip is distinguished so
// automation can tell "didn't need to run" from "chose not to run".
const (
	ExitSuccess     = 0
	ExitFailure     = 1
	ExitGracePeriod = 2
)

// Outcome is the single result every dispatch call produces.
type Outcome struct {
	Kind      OutcomeKind
	Success   bool          // meaningful for OutcomeExecuted
	Remaining time.Duration // set for OutcomeSkippedGracePeriod
	Scope     DisabledScope // set for OutcomeSkippedDisabled
	ConfigKey string        // the key to change to re-enable, for skip messages
	Detail    string
	Err       error // handler error, for OutcomeExecuted failures
}

// ExitCode maps the outcome to the process exit code contract.
func (o Outcome) ExitCode() int {
	switch o.Kind {
	case OutcomeSkippedGracePeriod:
		return ExitGracePeriod
	case OutcomeExecuted:
		if !o.Success {
			return ExitFailure
		}
		return ExitSuccess
	default:
		return ExitSuccess
	}
}

// String renders a human-readable one-liner for logs and CLI output.
func (o Outcome) String() string {
	switch o.Kind {
	case OutcomeExecuted:
		if o.Success {
			return fmt.Sprintf("executed: %s", o.Detail)
		}
		if o.Err != nil {
			return fmt.Sprintf("executed, failed: %v", o.Err)
		}
		return fmt.Sprintf("executed, failed: %s", o.Detail)
	case OutcomeSkippedGracePeriod:
		return fmt.Sprintf("skipped: grace period (%ds remaining)", int(o.Remaining.Round(time.Second)/time.Second))
	case OutcomeSkippedDisabled:
		return fmt.Sprintf("skipped: disabled (%s, set %s to re-enable)", o.Scope, o.ConfigKey)
	case OutcomeDryRunReported:
		return fmt.Sprintf("dry-run: %s", o.Detail)
	default:
		return string(o.Kind)
	}
}
