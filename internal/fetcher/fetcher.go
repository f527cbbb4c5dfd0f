package fetcher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/IshaanNene/GapFill/internal/config"
	"github.com/IshaanNene/GapFill/internal/types"
)

// Fetcher is the interface for all page fetcher implementations.
//
// Fetch never returns an error: network failures, timeouts and non-2xx
// responses come back as an unavailable FetchResult. Fetch performs no
// retries.
type Fetcher interface {
	// Fetch retrieves the page at rawURL.
	Fetch(ctx context.Context, rawURL string) types.FetchResult

	// Close releases any resources held by the fetcher.
	Close() error

	// Type returns the fetcher type identifier.
	Type() string
}

// New builds the fetcher selected by cfg.Fetcher.Type.
func New(cfg *config.Config, logger *slog.Logger) (Fetcher, error) {
	switch cfg.Fetcher.Type {
	case "", "http":
		return NewHTTPFetcher(cfg, logger)
	case "browser":
		return NewBrowserFetcher(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported fetcher type: %s", cfg.Fetcher.Type)
	}
}
