package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/idsweep-io/idsweep/internal/config"
)

// Global configuration instance
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "idsweep",
	Short: "Check user existence across identity sources",
	Long: `idsweep checks whether usernames exist across several independent
identity sources (directories, SaaS IdPs, HR feeds, chat platforms) and
presents a consolidated view, merging known aliases of one person into a
single logical identity.

If no config file is specified, idsweep looks for config files in the
following locations:
  - ./config.yaml
  - ./config/config.yaml
  - /etc/idsweep/config.yaml
  - ~/.config/idsweep/config.yaml`,
	SilenceUsage: true,
}

// preRunConfigE loads the configuration before any command runs
func preRunConfigE(cmd *cobra.Command, _ []string) error {
	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return fmt.Errorf("failed to get config flag: %w", err)
	}

	cfg, err = config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// check if verbose flag is set
	verbose, err := cmd.Flags().GetBool("verbose")
	if err == nil && verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	return nil
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to the configuration file (optional)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Fatalf("Failed to execute command: %v", err)
	}
}
