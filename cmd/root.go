// Package cmd defines the CLI commands for the feedloom executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feedloom",
		Short: "Content aggregation service for heterogeneous feeds",
		Long: `feedloom ingests content from RSS/Atom feeds, rendered web pages,
vendor APIs (YouTube, Reddit) and podcast feeds, normalizes each item into a
canonical article record, and stores the results.

Run 'feedloom ingest' for a one-shot sweep or 'feedloom serve' for the
scheduled service with the ops HTTP API.`,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default uses built-in defaults and FEEDLOOM_ env vars)")

	cmd.AddCommand(newIngestCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
