package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kelsos/roomfinder/internal/config"
	"github.com/kelsos/roomfinder/internal/logger"
)

func main() {
	envFiles := config.LoadEnvFiles()
	logger.Init()
	for _, file := range envFiles {
		logger.Debug("Loaded environment from %s", file)
	}

	cfg := config.NewConfig()
	cfg.LoadFromEnvironment()
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		logger.Warn("%v", err)
	}

	rootCmd := &cobra.Command{
		Use:   "roomfinder",
		Short: "Find free rooms on the SMU facility booking portal",
		Long: `roomfinder runs availability searches against the facility booking portal in the background.
Start the API with 'roomfinder serve', then submit searches and poll their results.`,
	}

	rootCmd.PersistentFlags().StringVarP(&cfg.ServerURL, "server", "s", cfg.ServerURL, "Address of the roomfinder API")
	rootCmd.PersistentFlags().DurationVar(&cfg.PollInterval, "poll-interval", cfg.PollInterval, "Delay between status polls")

	rootCmd.AddCommand(
		newServeCmd(cfg),
		newSubmitCmd(cfg),
		newStatusCmd(cfg),
		newWatchCmd(cfg),
		newCancelCmd(cfg),
		newFiltersCmd(cfg),
	)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logger.Fatal("Failed to execute command: %v", err)
	}
}
