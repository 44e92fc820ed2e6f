// Package commands implements the relay CLI commands using cobra.
package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/calder/relay/internal/config"
	"github.com/calder/relay/internal/logging"
)

var (
	// Version is set at build time
	Version = "0.2.0"

	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "relay",
	Short: "In-process task dispatcher for local agents",
	Long: `Relay routes tasks to agents through a FIFO queue: chat tasks go to
the chat agent, work tasks to the worker agent, everything else falls
back to the worker.

Submit tasks from the CLI or drop JSON files into the spool directory
and let the daemon pick them up.`,
	Version: Version,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ~/.config/relay/relay.yaml)")
}

func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

func initLogging(cfg *config.Config) error {
	return logging.Init(cfg.LoggingConfig())
}
