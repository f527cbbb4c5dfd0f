package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/GapFill/internal/config"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gapfill",
		Short: "GapFill — vendor product data enrichment",
		Long: `GapFill fills gaps in vendor product spreadsheets by locating each
product on the vendor's own website and scraping what is missing.

Features:
  • WordPress/WooCommerce and Shopify detection with platform search URLs
  • SKU search, name search, then external search engine fallback
  • Title, price, description HTML, images and variants extraction
  • CSV and XLSX ingest with header alias normalization
  • JSON, JSONL, CSV, SQLite and MongoDB output
  • Per-host concurrency limits, proxy rotation and User-Agent randomization
  • HTTP API and Prometheus metrics endpoint`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(enrichCmd())
	rootCmd.AddCommand(locateCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("GapFill %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			fmt.Printf("Discovery:\n")
			fmt.Printf("  Request Timeout:   %s\n", cfg.Discovery.RequestTimeout)
			fmt.Printf("  Search Endpoint:   %s\n", cfg.Discovery.SearchEndpoint)
			fmt.Printf("  User Agents:       %d configured\n", len(cfg.Discovery.UserAgents))
			fmt.Printf("  Search Paths:      %d overrides\n", len(cfg.Discovery.SearchPaths))
			fmt.Printf("  Link Selectors:    %d overrides\n", len(cfg.Discovery.LinkSelectors))
			fmt.Printf("  Structured Data:   %v\n", cfg.Extract.StructuredData)
			fmt.Printf("\nFetcher:\n")
			fmt.Printf("  Type:              %s\n", cfg.Fetcher.Type)
			fmt.Printf("  Follow Redirects:  %v\n", cfg.Fetcher.FollowRedirects)
			fmt.Printf("  Max Body Size:     %d bytes\n", cfg.Fetcher.MaxBodySize)
			fmt.Printf("  Max Per Host:      %d\n", cfg.Fetcher.MaxPerHost)
			fmt.Printf("  Host Rate:         %.2f/s\n", cfg.Fetcher.HostRate)
			fmt.Printf("\nProxy:\n")
			fmt.Printf("  Enabled:           %v\n", cfg.Proxy.Enabled)
			fmt.Printf("  Rotation:          %s\n", cfg.Proxy.Rotation)
			fmt.Printf("  Count:             %d\n", len(cfg.Proxy.URLs))
			fmt.Printf("\nRunner:\n")
			fmt.Printf("  Concurrency:       %d\n", cfg.Runner.Concurrency)
			fmt.Printf("\nIngest:\n")
			fmt.Printf("  Column Aliases:    %d fields\n", len(cfg.Ingest.ColumnAliases))
			fmt.Printf("  Normalize Values:  %v\n", cfg.Ingest.NormalizeValues)
			fmt.Printf("\nStorage:\n")
			fmt.Printf("  Type:              %s\n", cfg.Storage.Type)
			fmt.Printf("  Output Path:       %s\n", cfg.Storage.OutputPath)
			fmt.Printf("\nAPI:\n")
			fmt.Printf("  Port:              %d\n", cfg.API.Port)
			fmt.Printf("\nMetrics:\n")
			fmt.Printf("  Enabled:           %v\n", cfg.Metrics.Enabled)
			fmt.Printf("  Port:              %d\n", cfg.Metrics.Port)
			return nil
		},
	}
	return cmd
}

// loadConfig loads the config file, applies flag overrides and validates.
func loadConfig(overrides func(*config.Config)) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if overrides != nil {
		overrides(cfg)
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// setupLogger creates a structured logger.
func setupLogger(cfg *config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
