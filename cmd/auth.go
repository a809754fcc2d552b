package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/driveflow/driveflow/internal/config"
	"github.com/driveflow/driveflow/internal/google"
)

func newAuthCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Run the interactive Google OAuth consent flow",
		Long: `Run the interactive Google OAuth consent flow and persist the resulting
token. A browser window opens for consent; the local callback server
catches the redirect.

The server commands run this flow on demand when no valid token exists,
but running it ahead of time keeps the first API request fast.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}
			logger := cfg.NewLogger()
			slog.SetDefault(logger)

			store := google.NewStore(cfg.CredentialsFile, cfg.TokenFile, cfg.OAuthCallbackPort, nil, logger)

			if store.HasToken() && !force {
				fmt.Fprintf(cmd.OutOrStdout(), "Token already present at %s (use --force to re-consent)\n", cfg.TokenFile)
				return nil
			}
			if force {
				if err := os.Remove(cfg.TokenFile); err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("removing old token: %w", err)
				}
			}

			tok, err := store.Credential(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Token saved to %s (expires %s)\n", cfg.TokenFile, tok.Expiry.Format("2006-01-02 15:04:05"))
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Discard any existing token and run the consent flow again")
	return cmd
}
