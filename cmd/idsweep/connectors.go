package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/idsweep-io/idsweep/internal/models"
)

var connectorCapabilityFilter []string

// connectorsCmd lists registered connector types and their configuration state
var connectorsCmd = &cobra.Command{
	Use:   "connectors",
	Short: "List available connectors",
	Long: `List every registered connector type, whether its configuration
validates, and the capabilities it supports.`,
	PersistentPreRunE: preRunConfigE,
	RunE: func(cmd *cobra.Command, args []string) error {
		capabilities := make([]models.ConnectorCapability, 0, len(connectorCapabilityFilter))
		for _, raw := range connectorCapabilityFilter {
			capability, err := models.GetCapabilityFromString(raw)
			if err != nil {
				return err
			}
			capabilities = append(capabilities, capability)
		}

		conns, err := cfg.BuildConnectors()
		if err != nil {
			return fmt.Errorf("failed to build connectors: %w", err)
		}

		fmt.Println(titleStyle.Render("Connectors"))

		for _, connector := range conns {
			if len(capabilities) > 0 && !connector.HasAnyCapability(capabilities...) {
				continue
			}

			state := foundStyle.Render("configured")
			if err := connector.ValidateConfig(); err != nil {
				state = missingStyle.Render("not configured")
			}

			fmt.Printf("%s (%s) %s\n",
				headerStyle.Render(connector.GetConnectorID()),
				connector.GetDisplayName(),
				state,
			)
			for _, capability := range connector.GetCapabilities() {
				fmt.Printf("  - %s\n", capability)
			}
		}

		return nil
	},
}

func init() {
	connectorsCmd.Flags().StringSliceVar(&connectorCapabilityFilter, "capability", nil,
		"only show connectors supporting any of these capabilities (existence, enumeration, details)")
	rootCmd.AddCommand(connectorsCmd)
}
