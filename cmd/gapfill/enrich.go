package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/GapFill/internal/config"
	"github.com/IshaanNene/GapFill/internal/runner"
	"github.com/IshaanNene/GapFill/internal/storage"
	"github.com/IshaanNene/GapFill/pkg/gapfill"
)

var (
	enrichOutput      string
	enrichFormat      string
	enrichConcurrency int
	enrichTimeout     string
	enrichUserAgent   string
	enrichFetcher     string
	enrichSearch      string
	enrichNormalize   bool
)

// enrichCmd creates the "enrich" subcommand.
func enrichCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enrich [file...]",
		Short: "Fill missing product data in vendor spreadsheets",
		Long: `Read one or more CSV/XLSX vendor spreadsheets, locate every product on
its vendor website and fill in the missing title, price, description,
images and variants. Enriched rows are written to the configured storage.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runEnrich,
	}

	cmd.Flags().StringVarP(&enrichOutput, "output", "o", "", "output directory (default from config)")
	cmd.Flags().StringVarP(&enrichFormat, "format", "f", "", "output format: json, jsonl, csv, sqlite, mongodb (comma-separated for several)")
	cmd.Flags().IntVarP(&enrichConcurrency, "concurrency", "n", 0, "number of rows enriched at once")
	cmd.Flags().StringVar(&enrichTimeout, "timeout", "", "per-request timeout (e.g. 10s)")
	cmd.Flags().StringVar(&enrichUserAgent, "user-agent", "", "custom User-Agent string")
	cmd.Flags().StringVar(&enrichFetcher, "fetcher", "", "fetcher type: http or browser")
	cmd.Flags().StringVar(&enrichSearch, "search-endpoint", "", "external search engine URL used as a last resort")
	cmd.Flags().BoolVar(&enrichNormalize, "normalize", false, "normalize SKU, name and description values before enrichment")

	return cmd
}

// applyEnrichOverrides applies command-line flag values to the config.
func applyEnrichOverrides(cfg *config.Config) {
	if enrichOutput != "" {
		cfg.Storage.OutputPath = enrichOutput
	}
	if enrichFormat != "" {
		cfg.Storage.Type = strings.ToLower(enrichFormat)
	}
	if enrichConcurrency > 0 {
		cfg.Runner.Concurrency = enrichConcurrency
	}
	if enrichTimeout != "" {
		if d, err := time.ParseDuration(enrichTimeout); err == nil {
			cfg.Discovery.RequestTimeout = d
		}
	}
	if enrichUserAgent != "" {
		cfg.Discovery.UserAgents = []string{enrichUserAgent}
	}
	if enrichFetcher != "" {
		cfg.Fetcher.Type = strings.ToLower(enrichFetcher)
	}
	if enrichSearch != "" {
		cfg.Discovery.SearchEndpoint = enrichSearch
	}
	if enrichNormalize {
		cfg.Ingest.NormalizeValues = true
	}
}

// runEnrich executes the enrich command.
func runEnrich(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(applyEnrichOverrides)
	if err != nil {
		return err
	}
	logger := setupLogger(&cfg.Logging)

	for _, path := range args {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("input %q: %w", path, err)
		}
	}

	logger.Info("starting enrichment",
		"files", args,
		"concurrency", cfg.Runner.Concurrency,
		"fetcher", cfg.Fetcher.Type,
		"output", cfg.Storage.OutputPath,
		"format", cfg.Storage.Type,
	)

	client, err := gapfill.New(gapfill.WithConfig(cfg), gapfill.WithLogger(logger))
	if err != nil {
		return err
	}
	defer client.Close()

	store, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("create storage: %w", err)
	}
	store = storage.Instrument(store, client.Metrics())
	defer store.Close()

	if cfg.Metrics.Enabled {
		if err := client.Metrics().StartServer(cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
			logger.Warn("failed to start metrics server", "error", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	var total runner.Summary
	for _, path := range args {
		summary, rows, err := client.EnrichFile(ctx, path)
		if err != nil {
			logger.Error("file skipped", "file", path, "error", err)
			continue
		}
		addSummary(&total, summary)

		if len(rows) > 0 {
			if err := store.Store(rows); err != nil {
				return fmt.Errorf("store %s: %w", path, err)
			}
		}
		logger.Info("file enriched", "file", path, "rows", summary.Rows, "enriched", summary.Enriched)

		if ctx.Err() != nil {
			logger.Warn("interrupted, remaining files skipped")
			break
		}
	}
	elapsed := time.Since(start)
	stats := client.Metrics().Snapshot()

	logger.Info("enrichment complete",
		"elapsed", elapsed,
		"rows", total.Rows,
		"enriched", total.Enriched,
		"not_found", total.NotFound,
		"page_unavailable", total.PageUnavailable,
		"fetches", stats["fetches_total"],
	)

	fmt.Printf("\n✅ Enrichment complete in %s\n", elapsed.Round(time.Millisecond))
	fmt.Printf("   Rows:      %d read, %d enriched, %d not found, %d page unavailable\n",
		total.Rows, total.Enriched, total.NotFound, total.PageUnavailable)
	fmt.Printf("   Skipped:   %d without site, %d dropped, %d failed\n", total.NoSite, total.Skipped, total.Failed)
	fmt.Printf("   Located:   %v by SKU, %v by name, %v by fallback\n",
		stats["located_sku"], stats["located_name"], stats["located_fallback"])
	fmt.Printf("   Fetches:   %v total, %v unavailable, %v bytes\n",
		stats["fetches_total"], stats["fetches_unavailable"], stats["bytes_downloaded"])
	fmt.Printf("   Output:    %s (%s, %v rows)\n", cfg.Storage.OutputPath, cfg.Storage.Type, stats["rows_stored"])

	if total.Rows > 0 && total.Enriched == 0 {
		fmt.Println("\n💡 No products were located. Check that the WEBSITE column holds the vendor's")
		fmt.Println("   home page, or try the browser fetcher for script-rendered stores:")
		fmt.Println("     gapfill enrich <file> --fetcher browser")
	}

	return nil
}

func addSummary(total *runner.Summary, s runner.Summary) {
	total.Rows += s.Rows
	total.Enriched += s.Enriched
	total.NotFound += s.NotFound
	total.PageUnavailable += s.PageUnavailable
	total.NoSite += s.NoSite
	total.Skipped += s.Skipped
	total.Failed += s.Failed
	total.Duration += s.Duration
}
