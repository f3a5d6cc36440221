// Package cli implements the extractd command line interface.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/parchment-labs/extractd/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	verbose    bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "extractd",
	Short: "Document content extraction and search service",
	Long: `extractd extracts text from documents through an external Tika-style
extraction service and serves full-text search over the results.

Run "extractd serve" to start the HTTP API, worker pool and uploads
watcher. The search and status commands operate on the local store
directly.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
