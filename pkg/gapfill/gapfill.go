// Package gapfill provides a public SDK for embedding GapFill as a library.
//
// Example usage:
//
//	client, err := gapfill.New(
//	    gapfill.WithConcurrency(8),
//	    gapfill.WithTimeout(15*time.Second),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	row := gapfill.Row{"TITLE": "Red Mug", "SKU": "RM-1", "WEBSITE": "shop.example"}
//	row = client.Enrich(ctx, row)
//	fmt.Println(row["SCRAPED_PRODUCT_URL"])
package gapfill

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/IshaanNene/GapFill/internal/config"
	"github.com/IshaanNene/GapFill/internal/discovery"
	"github.com/IshaanNene/GapFill/internal/enrich"
	"github.com/IshaanNene/GapFill/internal/extract"
	"github.com/IshaanNene/GapFill/internal/fetcher"
	"github.com/IshaanNene/GapFill/internal/ingest"
	"github.com/IshaanNene/GapFill/internal/observability"
	"github.com/IshaanNene/GapFill/internal/pipeline"
	"github.com/IshaanNene/GapFill/internal/runner"
	"github.com/IshaanNene/GapFill/internal/types"
)

type (
	// Row is one spreadsheet record keyed by canonical field name.
	Row = types.Row
	// Summary counts the outcomes of a batch run.
	Summary = runner.Summary
	// Outcome describes what happened to one row.
	Outcome = enrich.Outcome
	// Resolution is the full outcome of a locate call.
	Resolution = discovery.Resolution
	// Fetcher retrieves pages; see WithFetcher.
	Fetcher = fetcher.Fetcher
	// FetchResult is the outcome of a single page fetch.
	FetchResult = types.FetchResult
	// Metrics holds the client's operational counters.
	Metrics = observability.Metrics
)

type options struct {
	cfg     *config.Config
	logger  *slog.Logger
	fetcher Fetcher
}

// Option configures a Client.
type Option func(*options)

// WithConfig replaces the whole configuration. Options applied after it
// still take effect.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithConcurrency sets how many rows are enriched at once.
func WithConcurrency(n int) Option {
	return func(o *options) { o.cfg.Runner.Concurrency = n }
}

// WithTimeout sets the per-request network timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.cfg.Discovery.RequestTimeout = d }
}

// WithUserAgents sets the User-Agent pool.
func WithUserAgents(uas ...string) Option {
	return func(o *options) { o.cfg.Discovery.UserAgents = uas }
}

// WithSearchEndpoint sets the external search engine used as a last resort.
func WithSearchEndpoint(endpoint string) Option {
	return func(o *options) { o.cfg.Discovery.SearchEndpoint = endpoint }
}

// WithProxy enables proxy rotation with the given proxy URLs.
func WithProxy(urls ...string) Option {
	return func(o *options) {
		o.cfg.Proxy.Enabled = true
		o.cfg.Proxy.URLs = urls
	}
}

// WithMaxPerHost caps concurrent requests to one vendor host.
func WithMaxPerHost(n int) Option {
	return func(o *options) { o.cfg.Fetcher.MaxPerHost = n }
}

// WithDefaults fills fields still blank after enrichment.
func WithDefaults(defaults map[string]string) Option {
	return func(o *options) { o.cfg.Ingest.Defaults = defaults }
}

// WithKeepFields limits output rows to the given fields.
func WithKeepFields(fields ...string) Option {
	return func(o *options) { o.cfg.Ingest.KeepFields = fields }
}

// WithVerbose enables debug-level logging.
func WithVerbose() Option {
	return func(o *options) { o.cfg.Logging.Level = "debug" }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithFetcher replaces the network fetcher.
func WithFetcher(f Fetcher) Option {
	return func(o *options) { o.fetcher = f }
}

// Client locates and enriches vendor products. It is safe for concurrent use.
type Client struct {
	cfg      *config.Config
	fetcher  fetcher.Fetcher
	engine   *discovery.Engine
	enricher *enrich.Enricher
	reader   *ingest.Reader
	runner   *runner.Runner
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// New creates a Client with the given options.
func New(opts ...Option) (*Client, error) {
	o := &options{cfg: config.DefaultConfig()}
	for _, opt := range opts {
		opt(o)
	}
	if err := config.Validate(o.cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := o.logger
	if logger == nil {
		level := slog.LevelInfo
		if o.cfg.Logging.Level == "debug" {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}

	f := o.fetcher
	if f == nil {
		var err error
		f, err = fetcher.New(o.cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("create fetcher: %w", err)
		}
	}

	metrics := observability.NewMetrics(logger)
	f = fetcher.Instrument(f, metrics)

	engine := discovery.NewEngine(f, &o.cfg.Discovery, logger, discovery.ConfigOptions(&o.cfg.Discovery)...)
	extractor := extract.NewProductExtractor(logger, extract.ConfigOptions(&o.cfg.Extract)...)
	enricher := enrich.NewEnricher(engine, f, logger,
		enrich.WithRecorder(metrics),
		enrich.WithExtractor(extractor),
	)
	pipe := pipeline.Standard(pipeline.New(logger), enricher, pipeline.Options{
		NormalizeValues: o.cfg.Ingest.NormalizeValues,
		Defaults:        o.cfg.Ingest.Defaults,
		KeepFields:      o.cfg.Ingest.KeepFields,
	})

	return &Client{
		cfg:      o.cfg,
		fetcher:  f,
		engine:   engine,
		enricher: enricher,
		reader:   ingest.NewReader(o.cfg.Ingest.ColumnAliases),
		runner:   runner.New(pipe, o.cfg.Runner.Concurrency, logger, runner.WithMetrics(metrics)),
		metrics:  metrics,
		logger:   logger,
	}, nil
}

// Enrich fills the row's missing product data. The row is mutated in place.
func (c *Client) Enrich(ctx context.Context, row Row) Row {
	return c.enricher.Enrich(ctx, row)
}

// EnrichWithOutcome is Enrich that also reports what happened.
func (c *Client) EnrichWithOutcome(ctx context.Context, row Row) (Row, Outcome) {
	return c.enricher.EnrichWithOutcome(ctx, row)
}

// Locate returns the product page URL for (name, sku) on site.
func (c *Client) Locate(ctx context.Context, site, name, sku string) (string, bool) {
	res := c.Resolve(ctx, site, name, sku)
	return res.URL, res.Found
}

// Resolve is Locate with the full step trace.
func (c *Client) Resolve(ctx context.Context, site, name, sku string) Resolution {
	return c.engine.Resolve(ctx, types.NormalizeSite(site), name, sku)
}

// Read parses a CSV or XLSX spreadsheet into rows.
func (c *Client) Read(name string, src io.Reader) ([]Row, error) {
	return c.reader.Read(name, src)
}

// Run enriches rows concurrently. Rows lacking TITLE or SKU after
// enrichment are dropped; the rest keep their input order.
func (c *Client) Run(ctx context.Context, rows []Row) (Summary, []Row) {
	return c.runner.Run(ctx, rows)
}

// EnrichFile reads the spreadsheet at path and enriches every row.
func (c *Client) EnrichFile(ctx context.Context, path string) (Summary, []Row, error) {
	rows, err := c.reader.ReadFile(path)
	if err != nil {
		return Summary{}, nil, err
	}
	summary, out := c.runner.Run(ctx, rows)
	return summary, out, nil
}

// Metrics returns the client's counters.
func (c *Client) Metrics() *Metrics {
	return c.metrics
}

// Config returns the resolved configuration.
func (c *Client) Config() *config.Config {
	return c.cfg
}

// Close releases the fetcher's resources.
func (c *Client) Close() error {
	return c.fetcher.Close()
}
