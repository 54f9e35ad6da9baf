package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hostmend/hostmend/internal/autofix"
	"github.com/hostmend/hostmend/internal/handlers"
)

var (
	flagFixRequestedBy string
	flagFixCooldown    int
	flagFixOverride    bool
	flagFixVariant     string
)

func init() {
	fixCmd.Flags().StringVar(&flagFixRequestedBy, "requested-by", "manual", "component name recorded in the grace record")
	fixCmd.Flags().IntVar(&flagFixCooldown, "cooldown", 300, "cooldown in seconds before the action may re-fire")
	fixCmd.Flags().BoolVar(&flagFixOverride, "override-grace", false, "skip the grace-period check (enablement still applies)")
	fixCmd.Flags().StringVar(&flagFixVariant, "variant", "", "variant for family actions (default: configured or auto-detected)")
}

var fixCmd = &cobra.Command{
	Use:   "fix <action> [args...]",
	Short: "Dispatch one remediation action directly",
	Long: `Dispatches a named remediation through the coordination engine, exactly
as a check would: enablement policy, grace-period cooldown, dry-run mode,
and audit logging all apply. Use --dry-run to see what would happen.

Actions: disk-cleanup, emergency-process-kill, thermal-shutdown, gpu-restart`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		osExit(runFix(args[0], args[1:]))
	},
}

func runFix(action string, args []string) int {
	env, err := buildRuntime()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	defer env.Close()

	ctx := context.Background()

	var handler autofix.Handler
	switch action {
	case "disk-cleanup":
		handler = handlers.DiskCleanup
	case "emergency-process-kill":
		handler = handlers.ProcessKill
	case "thermal-shutdown":
		handler = handlers.ThermalShutdown
	case handlers.GPURestartFamily:
		configured := flagFixVariant
		if configured == "" {
			configured = env.cfg.GetString("GPU_VARIANT", "auto")
		}
		resolved, variantName, err := env.runtime.Variants.Resolve(ctx, handlers.GPURestartFamily, configured)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		handler = resolved
		action = handlers.GPURestartFamily + "-" + variantName
	default:
		fmt.Fprintf(os.Stderr, "unknown action %q\n", action)
		return 1
	}

	outcome, err := env.dispatcher.Dispatch(ctx, autofix.Request{
		Action:          action,
		RequestedBy:     flagFixRequestedBy,
		CooldownSeconds: flagFixCooldown,
		OverrideGrace:   flagFixOverride,
		Args:            args,
	}, handler)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	fmt.Println(outcome.String())
	return outcome.ExitCode()
}
