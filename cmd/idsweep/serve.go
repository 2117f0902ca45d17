package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/idsweep-io/idsweep/internal/common"
	"github.com/idsweep-io/idsweep/internal/daemon"
)

// serveCmd runs the aggregation service in the foreground
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the aggregation web service",
	Long: `Start the idsweep web service in the foreground. The service exposes
verification, comparison, group management and upload endpoints over HTTP.`,
	PersistentPreRunE: preRunConfigE,
	Run: func(cmd *cobra.Command, args []string) {
		if cfg == nil {
			fmt.Println("Configuration not loaded")
			os.Exit(1)
		}

		// Set up signal handling for graceful shutdown
		sigChan, cleanup := common.NewInterruptChannel()
		defer cleanup()

		server := daemon.NewServer(cfg)
		if err := server.Start(); err != nil {
			fmt.Printf("Server failed to start: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("API available at %s%s\n", cfg.GetLocalServerUrl(), cfg.GetApiBasePath())

		sig := <-sigChan
		fmt.Printf("\nReceived signal %v, shutting down gracefully...\n", sig)
		server.Stop()
		fmt.Println("Server stopped")
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
