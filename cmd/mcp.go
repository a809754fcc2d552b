package cmd

import (
	"fmt"
	"log/slog"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/driveflow/driveflow/internal/config"
	"github.com/driveflow/driveflow/internal/mcptools"
)

func newMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server over stdio",
		Long: `Start an MCP (Model Context Protocol) server over stdio exposing the
Drive download, Gmail send and PDF organize tools to AI assistants.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}

			// Stdout carries the MCP protocol; the logger already writes to
			// stderr.
			logger := cfg.NewLogger()
			slog.SetDefault(logger)

			deps, err := buildComponents(cmd.Context(), cfg, nil, logger)
			if err != nil {
				return err
			}

			s := mcptools.NewServer(version)
			if err := mcptools.Register(s, deps.caps, deps.organizer, logger); err != nil {
				return fmt.Errorf("registering tools: %w", err)
			}

			logger.Info("mcp server starting on stdio")
			return mcpserver.ServeStdio(s)
		},
	}
}
