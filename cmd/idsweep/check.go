package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/idsweep-io/idsweep/internal/aggregate"
)

// checkCmd verifies one or more identifiers against every configured source
var checkCmd = &cobra.Command{
	Use:   "check <identifier> [identifier...]",
	Short: "Check whether identifiers exist in each source",
	Long: `Run a one-shot existence check for the given identifiers against every
configured identity source and print the resulting presence matrix.`,
	Args:              cobra.MinimumNArgs(1),
	PersistentPreRunE: preRunConfigE,
	RunE: func(cmd *cobra.Command, args []string) error {
		conns, err := cfg.BuildConnectors()
		if err != nil {
			return fmt.Errorf("failed to build connectors: %w", err)
		}

		engine := aggregate.New(conns, aggregate.WithTimeout(cfg.GetAggregationTimeout()))
		result, err := engine.CheckUsers(context.Background(), args)
		if err != nil {
			return fmt.Errorf("verification failed: %w", err)
		}

		if len(result.Sources) == 0 {
			fmt.Println(warningStyle.Render("No identity sources are configured"))
			return nil
		}

		fmt.Println(titleStyle.Render("Verification Results"))

		for _, user := range result.Users {
			fmt.Println(headerStyle.Render(user))
			for _, source := range result.Sources {
				fmt.Printf("  %s %s\n", renderPresence(result.Results[user][source]), source)
			}
			fmt.Println()
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
