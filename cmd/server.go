package cmd

import (
	"github.com/spf13/cobra"

	"github.com/taskdeck/taskdeck/internal/api"
	"github.com/taskdeck/taskdeck/internal/config"
	"github.com/taskdeck/taskdeck/internal/telemetry"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start API Server",
	Run: func(cmd *cobra.Command, args []string) {
		conf := config.ReadConfig()

		shutdownTelemetry := telemetry.NewProvider(conf.OTEL_EXPORTER_OTLP_ENDPOINT)
		defer shutdownTelemetry()

		s := api.New()
		s.Start()
	},
}

// Register the "server" command
func init() {
	rootCmd.AddCommand(serverCmd)
}
