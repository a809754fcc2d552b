package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/driveflow/driveflow/internal/agent"
	"github.com/driveflow/driveflow/internal/classify"
	"github.com/driveflow/driveflow/internal/config"
	"github.com/driveflow/driveflow/internal/drive"
	"github.com/driveflow/driveflow/internal/gmail"
	"github.com/driveflow/driveflow/internal/google"
	"github.com/driveflow/driveflow/internal/instrumentation"
	"github.com/driveflow/driveflow/internal/organize"
)

// components bundles the wired application graph shared by the serve and
// mcp commands.
type components struct {
	store     *google.Store
	agent     *agent.Agent
	caps      *agent.Registry
	organizer *organize.Organizer
}

// buildComponents wires the credential store, the Google gateways, the
// classifier, the capability set and the orchestrators. metrics may be
// nil.
func buildComponents(ctx context.Context, cfg *config.Config, metrics *instrumentation.Metrics, logger *slog.Logger) (*components, error) {
	store := google.NewStore(cfg.CredentialsFile, cfg.TokenFile, cfg.OAuthCallbackPort, metrics, logger)

	driveClient, err := drive.NewClient(ctx, store, cfg.DownloadDir, logger)
	if err != nil {
		return nil, fmt.Errorf("creating drive client: %w", err)
	}
	gmailClient, err := gmail.NewClient(ctx, store, logger)
	if err != nil {
		return nil, fmt.Errorf("creating gmail client: %w", err)
	}

	classifier := classify.NewClassifier(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMModel, logger)
	caps := agent.NewCapabilities(driveClient, gmailClient, cfg.DownloadDir, metrics, logger)

	return &components{
		store:     store,
		agent:     agent.New(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMModel, caps, cfg.AgentTimeout, logger),
		caps:      caps,
		organizer: organize.New(driveClient, classifier, logger),
	}, nil
}
