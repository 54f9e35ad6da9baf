package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var graceCmd = &cobra.Command{
	Use:   "grace",
	Short: "Inspect and manage grace-period records",
}

func init() {
	graceCmd.AddCommand(graceListCmd)
	graceCmd.AddCommand(graceClearCmd)
}

var graceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List current grace-period records",
	Run: func(cmd *cobra.Command, args []string) {
		env, err := buildRuntime()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			osExit(1)
		}
		defer env.Close()

		records, err := env.store.List()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			env.Close()
			osExit(1)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ACTION\tSTARTED\tREQUESTED BY\tCOOLDOWN\tREMAINING")
		now := time.Now()
		for _, rec := range records {
			expires := rec.StartedAt.Add(time.Duration(rec.CooldownSeconds) * time.Second)
			remaining := "expired"
			if left := expires.Sub(now); left > 0 {
				remaining = left.Round(time.Second).String()
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%ds\t%s\n",
				rec.Action,
				rec.StartedAt.Format(time.RFC3339),
				rec.RequestedBy,
				rec.CooldownSeconds,
				remaining)
		}
		w.Flush()
	},
}

var graceClearCmd = &cobra.Command{
	Use:   "clear [action]",
	Short: "Remove one grace record, or all expired records when no action is given",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		env, err := buildRuntime()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			osExit(1)
		}
		defer env.Close()

		if len(args) == 1 {
			if err := env.store.Remove(args[0]); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				env.Close()
				osExit(1)
			}
			fmt.Printf("cleared grace record for %s\n", args[0])
			return
		}

		if err := env.store.Cleanup(0); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			env.Close()
			osExit(1)
		}
		fmt.Println("cleaned up stale grace records")
	},
}
