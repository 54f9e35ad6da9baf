package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hostmend/hostmend/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the effective configuration",
}

func init() {
	configCmd.AddCommand(configShowCmd)
}

var configShowCmd = &cobra.Command{
	Use:   "show [component]",
	Short: "Print the merged effective configuration for a component",
	Long: `Resolves and prints the four-layer merge (defaults, component defaults,
machine overrides, environment) exactly as a check for the given component
would see it. Without a component only the first, third, and fourth layers
apply.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		component := ""
		if len(args) == 1 {
			component = args[0]
		}

		resolver := config.NewResolver(flagConfigDir)
		cfg := resolver.Resolve(component)

		for _, key := range cfg.Keys() {
			value, _ := cfg.Get(key)
			fmt.Fprintf(os.Stdout, "%s=%s\n", key, value)
		}
	},
}
