package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/driveflow/driveflow/internal/config"
	"github.com/driveflow/driveflow/internal/instrumentation"
	"github.com/driveflow/driveflow/internal/server"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the HTTP API server exposing the organizer, fetcher and download
endpoints, plus health probes and Prometheus metrics.

Configuration is read from the environment (and a .env file when
present); see the DRIVEFLOW_* variables in the README.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}
			logger := cfg.NewLogger()
			slog.SetDefault(logger)

			instConfig := instrumentation.DefaultConfig()
			instConfig.ServiceVersion = version
			provider, err := instrumentation.NewProvider(cmd.Context(), instConfig)
			if err != nil {
				return fmt.Errorf("initializing instrumentation: %w", err)
			}
			defer func() {
				if err := provider.Shutdown(cmd.Context()); err != nil {
					logger.Warn("instrumentation shutdown failed", slog.String("error", err.Error()))
				}
			}()

			deps, err := buildComponents(cmd.Context(), cfg, provider.Metrics(), logger)
			if err != nil {
				return err
			}

			handlers := server.NewHandlers(
				deps.agent, deps.organizer,
				cfg.UploadDir, cfg.DownloadDir,
				provider.Metrics(), logger,
			)
			return server.New(cfg, handlers, provider, logger).Run()
		},
	}
}
