package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/driveflow/driveflow/internal/agent"
	"github.com/driveflow/driveflow/internal/logging"
	"github.com/driveflow/driveflow/internal/organize"
)

// ServerName identifies this MCP server to clients.
const ServerName = "driveflow"

// organizeRunner files one local PDF into a Drive folder.
type organizeRunner interface {
	Organize(ctx context.Context, localPath string) (organize.Outcome, error)
}

// NewServer creates the MCP server with its standard options.
func NewServer(version string) *mcpserver.MCPServer {
	return mcpserver.NewMCPServer(
		ServerName,
		version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithRecovery(),
	)
}

// Register exposes the agent capability set and the organizer as MCP
// tools. Each capability keeps its registry name and argument schema, so
// MCP clients see exactly the surface the HTTP agent uses.
func Register(s *mcpserver.MCPServer, caps *agent.Registry, organizer organizeRunner, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	for _, capability := range caps.All() {
		schema, err := json.Marshal(capability.Parameters)
		if err != nil {
			return fmt.Errorf("marshaling schema for %s: %w", capability.Name, err)
		}
		tool := mcp.NewToolWithRawSchema(capability.Name, capability.Description, schema)
		s.AddTool(tool, capabilityHandler(capability, logger))
	}

	if organizer != nil {
		tool := mcp.NewTool("organize_pdf",
			mcp.WithDescription("Classify a local PDF against the Google Drive folder list and upload it into the best-matching folder."),
			mcp.WithString("path",
				mcp.Required(),
				mcp.Description("Local path of the PDF to file into Drive"),
			),
		)
		s.AddTool(tool, organizeHandler(organizer, logger))
	}

	return nil
}

// capabilityHandler adapts one agent capability to the MCP tool contract.
// Capability failures become tool error results, never protocol errors.
func capabilityHandler(capability agent.Capability, logger *slog.Logger) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})

		result, err := capability.Invoke(ctx, args)
		if err != nil {
			logger.Warn("mcp tool failed",
				logging.Capability(capability.Name), logging.Err(err))
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(result.Message), nil
	}
}

func organizeHandler(organizer organizeRunner, logger *slog.Logger) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, _ := request.Params.Arguments.(map[string]interface{})

		path, ok := args["path"].(string)
		if !ok || path == "" {
			return mcp.NewToolResultError("path is required"), nil
		}

		outcome, err := organizer.Organize(ctx, path)
		if err != nil {
			logger.Warn("mcp tool failed",
				logging.Operation("organize_pdf"), logging.Err(err))
			return mcp.NewToolResultError(err.Error()), nil
		}

		body, _ := json.MarshalIndent(outcome, "", "  ")
		return mcp.NewToolResultText(fmt.Sprintf("Document organized:\n%s", string(body))), nil
	}
}
