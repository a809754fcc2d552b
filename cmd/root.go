package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the driveflow application
var rootCmd = &cobra.Command{
	Use:   "driveflow",
	Short: "Backend that moves files between Google Drive, Gmail and local storage",
	Long: `driveflow is a backend for natural-language file workflows on Google
Drive and Gmail: it downloads Drive files by name, emails them to
recipients, and files uploaded PDFs into the best-matching Drive folder
using a language model.

It can run as:
  - An HTTP API server for a web frontend (default)
  - An MCP (Model Context Protocol) server for AI assistants`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "driveflow version %s\n" .Version}}`)

	// If no subcommand is provided, run the HTTP server by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newMCPCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newVersionCmd())
}
