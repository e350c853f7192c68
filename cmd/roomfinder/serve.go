package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kelsos/roomfinder/internal/api"
	"github.com/kelsos/roomfinder/internal/async"
	"github.com/kelsos/roomfinder/internal/config"
	"github.com/kelsos/roomfinder/internal/filters"
	"github.com/kelsos/roomfinder/internal/logger"
	"github.com/kelsos/roomfinder/internal/portal"
	"github.com/kelsos/roomfinder/internal/server"
	"github.com/kelsos/roomfinder/internal/store"
	"github.com/kelsos/roomfinder/internal/telemetry"
)

func newServeCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scrape API",
		Run: func(cmd *cobra.Command, args []string) {
			if err := serve(cmd.Context(), cfg); err != nil {
				logger.Fatal("Server stopped: %v", err)
			}
		},
	}

	cmd.Flags().StringVarP(&cfg.Addr, "addr", "a", cfg.Addr, "Address to listen on")
	cmd.Flags().StringVarP(&cfg.ConfigFile, "config", "c", cfg.ConfigFile, "Deployment file with the filter vocabulary")
	cmd.Flags().DurationVar(&cfg.FetchTimeout, "fetch-timeout", cfg.FetchTimeout, "Maximum time for one portal search")
	cmd.Flags().IntVar(&cfg.MaxConcurrentScrapes, "max-concurrent", cfg.MaxConcurrentScrapes, "Portal searches allowed at once")
	cmd.Flags().DurationVar(&cfg.Retention, "retention", cfg.Retention, "How long finished tasks stay pollable (0 keeps them)")

	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	deployment, err := config.LoadDeployment(cfg.ConfigFile)
	if err != nil {
		return err
	}

	tel, err := telemetry.Setup(ctx, "roomfinder", telemetry.Config{
		TracesEndpoint:  cfg.OTLPTracesEndpoint,
		MetricsEndpoint: cfg.OTLPMetricsEndpoint,
	})
	if err != nil {
		return fmt.Errorf("failed to set up telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Flushing telemetry failed: %v", err)
		}
	}()

	if !cfg.HasCredentials() {
		logger.Warn("SMU_FBS_USERNAME or SMU_FBS_PASSWORD is not set, portal searches will fail with AuthFailure")
	}

	portalClient, err := portal.NewClient(portal.Options{
		BaseURL:  cfg.PortalURL,
		Username: cfg.PortalUsername,
		Password: cfg.PortalPassword,
	})
	if err != nil {
		return err
	}

	manager, err := async.NewTaskManager(store.New(), filters.NewValidator(deployment.Vocabulary), portalClient, async.Options{
		FetchTimeout:  cfg.FetchTimeout,
		MaxConcurrent: cfg.MaxConcurrentScrapes,
		Retention:     cfg.Retention,
		SweepInterval: cfg.SweepInterval,
		StatusLabels:  deployment.StatusLabels,
	})
	if err != nil {
		return fmt.Errorf("task manager initiation failed: %w", err)
	}

	router := api.NewRouter(api.NewTaskHandler(manager, deployment.Vocabulary))
	srv := server.New(cfg.Addr, router, cfg.ShutdownTimeout)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Serving %d buildings from %s, portal %s", len(deployment.Vocabulary.Buildings), cfg.ConfigFile, cfg.PortalURL)
	serveErr := srv.Run(ctx)

	closeCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := manager.Close(closeCtx); err != nil {
		logger.Warn("Background tasks did not stop in time: %v", err)
	}

	return serveErr
}
