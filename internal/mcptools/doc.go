// Package mcptools exposes the backend's Drive and Gmail operations as
// MCP tools over stdio, mirroring the agent's capability registry plus a
// tool for organizing local PDFs into Drive folders.
package mcptools
