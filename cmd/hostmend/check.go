package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/hostmend/hostmend/internal/checks"
)

var checkCmd = &cobra.Command{
	Use:   "check <name>",
	Short: "Run one health check and exit",
	Long: `Runs a single detection cycle of the named check, dispatching any
remediation it calls for. This is the entry point external timers invoke.

Exit codes: 0 when the check passed or the action ran (including skipped
because autofix is disabled, and dry-run); 1 when the probe or the
remediation failed; 2 when the action was skipped due to a grace period.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		osExit(runCheck(args[0]))
	},
}

var checksCmd = &cobra.Command{
	Use:   "checks",
	Short: "List the registered checks",
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range checks.Names() {
			fmt.Println(name)
		}
	},
}

func runCheck(name string) int {
	check, ok := checks.Get(name)
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown check %q (have %v)\n", name, checks.Names())
		return 1
	}

	env, err := buildRuntime()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	defer env.Close()

	outcome, err := check.Run(context.Background(), env.runtime)
	if err != nil {
		log.Error().Str("check", name).Err(err).Msg("Check failed")
		return 1
	}
	if outcome == nil {
		return 0
	}
	return outcome.ExitCode()
}
