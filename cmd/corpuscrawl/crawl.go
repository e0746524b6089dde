package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/amosWeiskopf/corpuscrawl/internal/config"
	"github.com/amosWeiskopf/corpuscrawl/internal/logging"
	"github.com/amosWeiskopf/corpuscrawl/pkg/crawler"
	"github.com/amosWeiskopf/corpuscrawl/pkg/store"
)

// persistTimeout bounds the final write, which runs even after the crawl was
// interrupted.
const persistTimeout = 2 * time.Minute

var errNoSeeds = errors.New("no seed URLs given (pass them as arguments or set crawler.seeds)")

func newCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [URL...]",
		Short: "Crawl one or more sites and store the extracted pages",
		RunE:  runCrawl,
	}

	cmd.Flags().Int("max-depth", 2, "Deepest link level to crawl (0 crawls only the seeds)")
	cmd.Flags().Int("max-links", 10, "Eligible links kept per page")
	cmd.Flags().Int("max-children", 5, "Links expanded into child pages per page")
	cmd.Flags().Duration("delay", time.Second, "Minimum spacing between requests")
	cmd.Flags().Duration("timeout", 10*time.Second, "Per-request timeout")
	cmd.Flags().Duration("run-timeout", 10*time.Minute, "Whole-run timeout (0 disables it)")
	cmd.Flags().Int("workers", 1, "Seeds crawled concurrently")
	cmd.Flags().String("storage", "file", "Storage backend (file, sqlite, s3)")
	cmd.Flags().String("output", "crawled_data.json", "Output file or database path")
	cmd.Flags().Bool("allow-subdomains", false, "Follow links to subdomains of the seed's domain")
	cmd.Flags().Bool("main-content", false, "Keep only the main article text of each page")
	cmd.Flags().Bool("annotate", true, "Tag domain entities in page text")
	return cmd
}

var crawlFlagKeys = map[string]string{
	"crawler.max_depth":               "max-depth",
	"crawler.max_links_per_page":      "max-links",
	"crawler.max_concurrent_children": "max-children",
	"crawler.request_delay":           "delay",
	"crawler.timeout":                 "timeout",
	"crawler.run_timeout":             "run-timeout",
	"crawler.workers":                 "workers",
	"crawler.allow_subdomains":        "allow-subdomains",
	"crawler.main_content":            "main-content",
	"crawler.annotate":                "annotate",
	"storage.type":                    "storage",
	"storage.path":                    "output",
}

// loadConfig binds the command's flags over config file and environment values
func loadConfig(cmd *cobra.Command, keys map[string]string) (*config.Config, error) {
	v := viper.New()
	bindings := map[string]string{
		"logging.level":  "log-level",
		"logging.format": "log-format",
	}
	for key, name := range keys {
		bindings[key] = name
	}
	for key, name := range bindings {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
	}

	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(v, path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func runCrawl(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, crawlFlagKeys)
	if err != nil {
		return err
	}

	seeds := args
	if len(seeds) == 0 {
		seeds = cfg.Crawler.Seeds
	}
	if len(seeds) == 0 {
		return errNoSeeds
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	c, err := crawler.New(cfg.Options(), crawler.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to create crawler: %w", err)
	}

	st, err := store.New(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	result, crawlErr := c.CrawlWithContext(ctx, seeds)
	if crawlErr != nil && !crawler.IsCancellation(crawlErr) {
		return fmt.Errorf("crawl failed: %w", crawlErr)
	}

	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := st.Persist(persistCtx, result.Pages); err != nil {
		logger.Error("failed to persist results", zap.Error(err))
		return fmt.Errorf("failed to persist results: %w", err)
	}
	logger.Info("results saved",
		zap.String("storage", cfg.Storage.Type),
		zap.Int("pages", result.TotalPages),
	)

	out := cmd.OutOrStdout()
	if crawlErr != nil {
		fmt.Fprintf(out, "Crawl interrupted (%v); saved %d partial pages\n", crawlErr, result.TotalPages)
	}
	fmt.Fprintf(out, "Crawled %d pages with %d failures from %d seeds\n",
		result.TotalPages, result.ErrorCount, len(seeds))
	return nil
}
