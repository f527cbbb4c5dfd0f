// Package runner enriches batches of rows with bounded concurrency.
package runner

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/IshaanNene/GapFill/internal/observability"
	"github.com/IshaanNene/GapFill/internal/types"
)

// Processor transforms one row. A nil row means the row was dropped.
type Processor interface {
	Process(ctx context.Context, row types.Row) (types.Row, error)
}

// Summary counts the outcomes of a batch run.
type Summary struct {
	Rows     int `json:"rows"`
	Enriched int `json:"enriched"`
	NotFound int `json:"not_found"`

	// PageUnavailable counts rows whose product URL was found but whose
	// page could not be fetched; only SCRAPED_PRODUCT_URL was written.
	PageUnavailable int `json:"page_unavailable"`

	NoSite   int           `json:"no_site"`
	Skipped  int           `json:"skipped"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration"`
}

func (s *Summary) add(o outcome) {
	switch o {
	case outcomeEnriched:
		s.Enriched++
	case outcomeNotFound:
		s.NotFound++
	case outcomePageUnavailable:
		s.PageUnavailable++
	case outcomeNoSite:
		s.NoSite++
	case outcomeSkipped:
		s.Skipped++
	default:
		s.Failed++
	}
}

type outcome int

const (
	outcomeFailed outcome = iota
	outcomeEnriched
	outcomeNotFound
	outcomePageUnavailable
	outcomeNoSite
	outcomeSkipped
)

// classify prefers the status reported by the enricher and falls back to
// the row's SCRAPED_PRODUCT_URL for processors that report none.
func classify(row types.Row, status types.RowStatus) outcome {
	switch {
	case row == nil:
		return outcomeSkipped
	case status == types.StatusEnriched:
		return outcomeEnriched
	case status == types.StatusPageUnavailable:
		return outcomePageUnavailable
	case status == types.StatusNotFound:
		return outcomeNotFound
	case status == types.StatusNoSite:
		return outcomeNoSite
	case !row.IsBlank(types.FieldScrapedURL):
		return outcomeEnriched
	case row.Has(types.FieldScrapedURL):
		return outcomeNotFound
	default:
		return outcomeNoSite
	}
}

// Runner processes rows concurrently. Each row is handled by one worker
// at a time; rows never share state.
type Runner struct {
	proc        Processor
	concurrency int
	metrics     *observability.Metrics
	logger      *slog.Logger
}

// Option configures the Runner.
type Option func(*Runner)

// WithMetrics reports row outcomes and worker counts to m.
func WithMetrics(m *observability.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// New creates a Runner running at most concurrency rows at once.
func New(proc Processor, concurrency int, logger *slog.Logger, opts ...Option) *Runner {
	if concurrency < 1 {
		concurrency = 1
	}
	r := &Runner{
		proc:        proc,
		concurrency: concurrency,
		logger:      logger.With("component", "runner"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run processes rows and returns the surviving rows in input order.
// Rows not dispatched before ctx is cancelled count as failed.
func (r *Runner) Run(ctx context.Context, rows []types.Row) (Summary, []types.Row) {
	start := time.Now()
	results := make([]types.Row, len(rows))
	outcomes := make([]outcome, len(rows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i, row := range rows {
		i, row := i, row
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if r.metrics != nil {
				r.metrics.ActiveWorkers.Add(1)
				defer r.metrics.ActiveWorkers.Add(-1)
			}

			rowCtx, status := types.WithStatus(gctx)
			out, err := r.proc.Process(rowCtx, row)
			o := classify(out, *status)
			if err != nil {
				r.logger.Warn("row failed", "index", i, "sku", row.Get(types.FieldSKU), "error", err)
				out, o = nil, outcomeFailed
			}

			results[i], outcomes[i] = out, o
			r.record(o)
			return nil
		})
	}
	_ = g.Wait()

	summary := Summary{Rows: len(rows)}
	kept := make([]types.Row, 0, len(rows))
	for i := range rows {
		summary.add(outcomes[i])
		if results[i] != nil {
			kept = append(kept, results[i])
		}
	}
	summary.Duration = time.Since(start)

	r.logger.Info("batch complete",
		"rows", summary.Rows,
		"enriched", summary.Enriched,
		"not_found", summary.NotFound,
		"page_unavailable", summary.PageUnavailable,
		"no_site", summary.NoSite,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"duration", summary.Duration,
	)
	return summary, kept
}

func (r *Runner) record(o outcome) {
	if r.metrics == nil {
		return
	}
	switch o {
	case outcomeEnriched:
		r.metrics.RowsEnriched.Add(1)
	case outcomeSkipped:
		r.metrics.RowsSkipped.Add(1)
	case outcomeFailed:
		r.metrics.RowsFailed.Add(1)
	}
}
