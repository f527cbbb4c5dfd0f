package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/GapFill/internal/config"
	"github.com/IshaanNene/GapFill/pkg/gapfill"
)

var (
	locateName    string
	locateSKU     string
	locateJSON    bool
	locateFetcher string
	locateTimeout string
)

// locateCmd creates the "locate" subcommand.
func locateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "locate [site]",
		Short: "Find a product page on a vendor website",
		Long: `Locate a single product on a vendor website by SKU and/or name and
print the product page URL together with every step taken to find it.`,
		Args: cobra.ExactArgs(1),
		RunE: runLocate,
	}

	cmd.Flags().StringVar(&locateName, "name", "", "product name")
	cmd.Flags().StringVar(&locateSKU, "sku", "", "product SKU")
	cmd.Flags().BoolVar(&locateJSON, "json", false, "print the resolution as JSON")
	cmd.Flags().StringVar(&locateFetcher, "fetcher", "", "fetcher type: http or browser")
	cmd.Flags().StringVar(&locateTimeout, "timeout", "", "per-request timeout (e.g. 10s)")

	return cmd
}

func runLocate(cmd *cobra.Command, args []string) error {
	if locateName == "" && locateSKU == "" {
		return fmt.Errorf("at least one of --name or --sku is required")
	}

	cfg, err := loadConfig(func(cfg *config.Config) {
		if locateFetcher != "" {
			cfg.Fetcher.Type = locateFetcher
		}
		if locateTimeout != "" {
			if d, err := time.ParseDuration(locateTimeout); err == nil {
				cfg.Discovery.RequestTimeout = d
			}
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

	res := client.Resolve(context.Background(), args[0], locateName, locateSKU)

	if locateJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	fmt.Printf("Platform: %s\n", res.Platform)
	for i, step := range res.Steps {
		status := "unavailable"
		switch {
		case step.Found:
			status = "match (" + step.Rule + ")"
		case step.OK:
			status = "no match"
		}
		fmt.Printf("  %d. %-12s %s  %s\n", i+1, step.Stage, status, step.URL)
	}
	if !res.Found {
		fmt.Println("\n❌ Product not found")
		return nil
	}
	fmt.Printf("\n✅ Found via %s: %s\n", res.By, res.URL)
	return nil
}
