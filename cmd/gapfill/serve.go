package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/GapFill/internal/api"
	"github.com/IshaanNene/GapFill/internal/config"
	"github.com/IshaanNene/GapFill/internal/storage"
	"github.com/IshaanNene/GapFill/pkg/gapfill"
)

var (
	servePort    int
	serveNoStore bool
)

// serveCmd creates the "serve" subcommand.
func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Serve the enrichment API:

  POST /api/v1/enrich   enrich one row
  POST /api/v1/locate   locate one product
  POST /api/v1/sync     upload a spreadsheet and enrich every row
  GET  /api/v1/jobs     list sync jobs`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port (default from config)")
	cmd.Flags().BoolVar(&serveNoStore, "no-store", false, "do not persist synced rows")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(func(cfg *config.Config) {
		if servePort > 0 {
			cfg.API.Port = servePort
		}
	})
	if err != nil {
		return err
	}
	logger := setupLogger(&cfg.Logging)

	client, err := gapfill.New(gapfill.WithConfig(cfg), gapfill.WithLogger(logger))
	if err != nil {
		return err
	}
	defer client.Close()

	deps := api.Deps{
		Enricher: client,
		Locator:  client,
		Reader:   client,
		Runner:   client,
	}
	if !serveNoStore {
		store, err := storage.New(&cfg.Storage, logger)
		if err != nil {
			return fmt.Errorf("create storage: %w", err)
		}
		defer store.Close()
		deps.Storage = storage.Instrument(store, client.Metrics())
	}
	if cfg.Metrics.Enabled {
		deps.Metrics = client.Metrics()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return api.NewServer(&cfg.API, deps, logger).Start(ctx)
}
