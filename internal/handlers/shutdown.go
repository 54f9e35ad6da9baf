package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/hostmend/hostmend/internal/autofix"
)

// ThermalShutdown powers the host off in response to a thermal crisis.
// Args optionally carry the observed temperature for the audit trail.
func ThermalShutdown(ctx context.Context, run *autofix.Run, args []string) (autofix.Result, error) {
	reason := "thermal crisis"
	if len(args) > 0 {
		reason = fmt.Sprintf("thermal crisis (%s)", strings.Join(args, " "))
	}

	if run.DryRun {
		return autofix.Result{
			Success: true,
			Detail:  "would power off host: " + reason,
		}, nil
	}

	log.Error().Str("reason", reason).Msg("Powering off host")
	if out, err := runCommand(ctx, "systemctl", "poweroff"); err != nil {
		return autofix.Result{}, fmt.Errorf("systemctl poweroff: %w (%s)", err, out)
	}
	return autofix.Result{Success: true, Detail: "host poweroff requested: " + reason}, nil
}
