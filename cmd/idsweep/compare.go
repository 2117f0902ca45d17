package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/idsweep-io/idsweep/internal/aggregate"
	"github.com/idsweep-io/idsweep/internal/alias"
)

// compareCmd runs the consolidation pipeline across every enumerable source
var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare users across every enumerable source",
	Long: `Enumerate every identity source that supports it, consolidate known
aliases into logical identities, and print the group by source matrix with
per-source counts.`,
	PersistentPreRunE: preRunConfigE,
	RunE: func(cmd *cobra.Command, args []string) error {
		conns, err := cfg.BuildConnectors()
		if err != nil {
			return fmt.Errorf("failed to build connectors: %w", err)
		}

		engine := aggregate.New(conns, aggregate.WithTimeout(cfg.GetAggregationTimeout()))
		resolver := alias.NewResolver(cfg.GetGroupingPath())

		result, err := engine.Compare(context.Background(), resolver)
		if err != nil {
			return fmt.Errorf("comparison failed: %w", err)
		}

		if len(result.Sources) == 0 {
			fmt.Println(warningStyle.Render("No source supports enumeration or is currently available"))
			return nil
		}

		fmt.Println(titleStyle.Render("Source Comparison"))

		for _, user := range result.AllUsers {
			label := user
			if group, ok := result.Groups[user]; ok && len(group.Members) > 1 {
				if len(group.DisplayName) > 0 {
					label = fmt.Sprintf("%s (%s)", group.DisplayName, strings.Join(group.Members, ", "))
				} else {
					label = fmt.Sprintf("%s (%s)", user, strings.Join(group.Members, ", "))
				}
			}
			fmt.Println(headerStyle.Render(label))
			for _, source := range result.Sources {
				fmt.Printf("  %s %s\n", renderPresence(result.UserSources[user][source]), source)
			}
			fmt.Println()
		}

		fmt.Println(infoStyle.Render("Users per source:"))
		for _, source := range result.Sources {
			fmt.Printf("  %s: %d\n", source, result.SourceCounts[source])
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(compareCmd)
}
