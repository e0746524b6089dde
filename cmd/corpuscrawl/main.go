package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "corpuscrawl",
		Short: "corpuscrawl - bounded site crawler and text corpus builder",
		Long: `corpuscrawl walks a bounded region of one or more sites depth-first,
extracts page text and metadata, tags domain entities and writes the
resulting corpus to a file, a SQLite database or an S3 bucket.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	root.PersistentFlags().String("config", "", "Config file path")
	root.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "", "Log format (console, json)")

	root.AddCommand(newCrawlCmd())
	root.AddCommand(newAnnotateCmd())
	root.AddCommand(newReportCmd())
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
