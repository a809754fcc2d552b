// Package cmd implements the command-line interface for driveflow.
//
// This package provides the following commands:
//   - serve: Start the HTTP API server (default)
//   - mcp: Start the MCP server over stdio for AI assistants
//   - auth: Run the interactive Google OAuth consent flow
//   - version: Display version information
package cmd
