package enrich

import (
	"context"
	"log/slog"

	"github.com/IshaanNene/GapFill/internal/discovery"
	"github.com/IshaanNene/GapFill/internal/extract"
	"github.com/IshaanNene/GapFill/internal/fetcher"
	"github.com/IshaanNene/GapFill/internal/types"
)

// Locator resolves a vendor site and product identifiers to a product URL.
type Locator interface {
	Resolve(ctx context.Context, baseURL, name, sku string) discovery.Resolution
}

// Recorder receives enrichment outcomes.
type Recorder interface {
	RecordLocate(stage string)
	RecordExtraction()
}

// Outcome describes what happened to one row.
type Outcome struct {
	Site        string             `json:"site,omitempty"`
	Stage       string             `json:"stage"`
	Platform    types.PlatformKind `json:"platform,omitempty"`
	URL         string             `json:"url,omitempty"`
	PageFetched bool               `json:"page_fetched"`
	Written     []string           `json:"written,omitempty"`
}

// Found reports whether a product page URL was located.
func (o Outcome) Found() bool {
	return o.URL != ""
}

// Err returns why nothing was merged into the row, or nil when a product
// page was reached.
func (o Outcome) Err() error {
	switch {
	case o.Stage == StageSkipped:
		return types.ErrEmptySite
	case !o.Found():
		return types.ErrNotFound
	case !o.PageFetched:
		return types.ErrUnavailable
	default:
		return nil
	}
}

// Status maps the outcome onto the row status shared with the runner.
func (o Outcome) Status() types.RowStatus {
	switch {
	case o.Stage == StageSkipped:
		return types.StatusNoSite
	case !o.Found():
		return types.StatusNotFound
	case !o.PageFetched:
		return types.StatusPageUnavailable
	default:
		return types.StatusEnriched
	}
}

// StageSkipped marks rows without a vendor site.
const StageSkipped = "skipped"

// Enricher fills a row's missing product data from the vendor's website.
// It never fails: every problem degrades to "less data written".
type Enricher struct {
	locator   Locator
	fetcher   fetcher.Fetcher
	extractor *extract.ProductExtractor
	merger    *Merger
	recorder  Recorder
	logger    *slog.Logger
}

// Option configures the Enricher.
type Option func(*Enricher)

// WithRecorder reports outcomes to rec.
func WithRecorder(rec Recorder) Option {
	return func(e *Enricher) { e.recorder = rec }
}

// WithExtractor replaces the product page extractor.
func WithExtractor(x *extract.ProductExtractor) Option {
	return func(e *Enricher) { e.extractor = x }
}

// NewEnricher creates an Enricher that locates with loc and fetches product
// pages with f.
func NewEnricher(loc Locator, f fetcher.Fetcher, logger *slog.Logger, opts ...Option) *Enricher {
	e := &Enricher{
		locator:   loc,
		fetcher:   f,
		extractor: extract.NewProductExtractor(logger),
		merger:    NewMerger(),
		logger:    logger.With("component", "enricher"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enrich locates the row's product and merges what it finds. The row is
// mutated in place and returned.
func (e *Enricher) Enrich(ctx context.Context, row types.Row) types.Row {
	row, _ = e.EnrichWithOutcome(ctx, row)
	return row
}

// EnrichWithOutcome is Enrich that also reports what happened.
func (e *Enricher) EnrichWithOutcome(ctx context.Context, row types.Row) (types.Row, Outcome) {
	site := types.NormalizeSite(row.Site())
	if site == "" {
		out := Outcome{Stage: StageSkipped}
		e.report(ctx, out)
		return row, out
	}

	name := row.Get(types.FieldTitle)
	sku := row.Get(types.FieldSKU)
	res := e.locator.Resolve(ctx, site, name, sku)

	out := Outcome{Site: site, Stage: res.By.String(), Platform: res.Platform}
	if !res.Found {
		row.Set(types.FieldScrapedURL, "")
		out.Written = []string{types.FieldScrapedURL}
		e.report(ctx, out)
		return row, out
	}
	out.URL = res.URL

	page := e.fetcher.Fetch(ctx, res.URL)
	if !page.OK() {
		e.logger.Debug("product page unavailable", "url", res.URL, "error", page.Err)
		row.Set(types.FieldScrapedURL, res.URL)
		out.Written = []string{types.FieldScrapedURL}
		e.report(ctx, out)
		return row, out
	}

	out.PageFetched = true
	scraped := e.extractor.ExtractResult(&page)
	if e.recorder != nil {
		e.recorder.RecordExtraction()
	}
	out.Written = e.merger.apply(row, scraped, res.URL)
	e.report(ctx, out)
	return row, out
}

func (e *Enricher) report(ctx context.Context, out Outcome) {
	types.SetStatus(ctx, out.Status())
	if e.recorder != nil {
		e.recorder.RecordLocate(out.Stage)
	}
	if err := out.Err(); err != nil {
		e.logger.Debug("row not enriched", "site", out.Site, "stage", out.Stage, "reason", err)
		return
	}
	e.logger.Debug("row enriched",
		"site", out.Site,
		"stage", out.Stage,
		"url", out.URL,
		"written", out.Written,
	)
}
