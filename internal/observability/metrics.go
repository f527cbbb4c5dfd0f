package observability

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/IshaanNene/GapFill/internal/types"
)

// Metrics tracks operational metrics for enrichment runs.
type Metrics struct {
	// Fetch metrics
	FetchesTotal       atomic.Int64
	FetchesUnavailable atomic.Int64
	Responses2xx       atomic.Int64
	Responses4xx       atomic.Int64
	Responses5xx       atomic.Int64
	BytesDownloaded    atomic.Int64

	// Locate outcomes
	LocatedBySKU      atomic.Int64
	LocatedByName     atomic.Int64
	LocatedByFallback atomic.Int64
	LocateNotFound    atomic.Int64
	LocateSkipped     atomic.Int64

	// Extraction and rows
	PagesExtracted atomic.Int64
	RowsEnriched   atomic.Int64
	RowsSkipped    atomic.Int64
	RowsFailed     atomic.Int64
	RowsStored     atomic.Int64

	ActiveWorkers atomic.Int32

	logger *slog.Logger
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(logger *slog.Logger) *Metrics {
	return &Metrics{
		logger: logger.With("component", "metrics"),
	}
}

// RecordFetch counts one fetch outcome.
func (m *Metrics) RecordFetch(res *types.FetchResult) {
	m.FetchesTotal.Add(1)
	switch {
	case res.StatusCode >= 500:
		m.Responses5xx.Add(1)
	case res.StatusCode >= 400:
		m.Responses4xx.Add(1)
	case res.StatusCode >= 200 && res.StatusCode < 300:
		m.Responses2xx.Add(1)
	}
	if !res.OK() {
		m.FetchesUnavailable.Add(1)
		return
	}
	m.BytesDownloaded.Add(int64(len(res.Body)))
}

// RecordLocate counts a locate outcome by the stage that ended it.
// Recognized stages: search_sku, search_name, fallback, not_found, skipped.
func (m *Metrics) RecordLocate(stage string) {
	switch stage {
	case "search_sku":
		m.LocatedBySKU.Add(1)
	case "search_name":
		m.LocatedByName.Add(1)
	case "fallback":
		m.LocatedByFallback.Add(1)
	case "skipped":
		m.LocateSkipped.Add(1)
	default:
		m.LocateNotFound.Add(1)
	}
}

// RecordExtraction counts a product page that was parsed.
func (m *Metrics) RecordExtraction() {
	m.PagesExtracted.Add(1)
}

// RecordStored counts rows written to storage.
func (m *Metrics) RecordStored(n int) {
	m.RowsStored.Add(int64(n))
}

// ServeHTTP serves metrics in Prometheus text exposition format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	metrics := []struct {
		name  string
		help  string
		kind  string
		value int64
	}{
		{"gapfill_fetches_total", "Total page fetches", "counter", m.FetchesTotal.Load()},
		{"gapfill_fetches_unavailable_total", "Fetches that produced no usable page", "counter", m.FetchesUnavailable.Load()},
		{"gapfill_responses_2xx_total", "Total 2xx responses", "counter", m.Responses2xx.Load()},
		{"gapfill_responses_4xx_total", "Total 4xx responses", "counter", m.Responses4xx.Load()},
		{"gapfill_responses_5xx_total", "Total 5xx responses", "counter", m.Responses5xx.Load()},
		{"gapfill_bytes_downloaded_total", "Total bytes downloaded", "counter", m.BytesDownloaded.Load()},
		{"gapfill_located_sku_total", "Products located by SKU search", "counter", m.LocatedBySKU.Load()},
		{"gapfill_located_name_total", "Products located by name search", "counter", m.LocatedByName.Load()},
		{"gapfill_located_fallback_total", "Products located by external search", "counter", m.LocatedByFallback.Load()},
		{"gapfill_locate_not_found_total", "Rows whose product was not found", "counter", m.LocateNotFound.Load()},
		{"gapfill_locate_skipped_total", "Rows without a vendor site", "counter", m.LocateSkipped.Load()},
		{"gapfill_pages_extracted_total", "Product pages extracted", "counter", m.PagesExtracted.Load()},
		{"gapfill_rows_enriched_total", "Rows enriched", "counter", m.RowsEnriched.Load()},
		{"gapfill_rows_skipped_total", "Rows dropped by the pipeline", "counter", m.RowsSkipped.Load()},
		{"gapfill_rows_failed_total", "Rows that failed in the pipeline", "counter", m.RowsFailed.Load()},
		{"gapfill_rows_stored_total", "Rows written to storage", "counter", m.RowsStored.Load()},
		{"gapfill_active_workers", "Currently active workers", "gauge", int64(m.ActiveWorkers.Load())},
	}

	for _, metric := range metrics {
		fmt.Fprintf(w, "# HELP %s %s\n", metric.name, metric.help)
		fmt.Fprintf(w, "# TYPE %s %s\n", metric.name, metric.kind)
		fmt.Fprintf(w, "%s %d\n", metric.name, metric.value)
	}
}

// Handler returns a mux serving metrics at path and a plain health check.
func (m *Metrics) Handler(path string) http.Handler {
	mux := http.NewServeMux()
	mux.Handle(path, m)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})
	return mux
}

// StartServer starts the metrics HTTP server.
func (m *Metrics) StartServer(port int, path string) error {
	addr := fmt.Sprintf(":%d", port)
	m.logger.Info("metrics server starting", "addr", addr, "path", path)

	go func() {
		if err := http.ListenAndServe(addr, m.Handler(path)); err != nil {
			m.logger.Error("metrics server error", "error", err)
		}
	}()

	return nil
}

// Snapshot returns all metrics as a map.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"fetches_total":       m.FetchesTotal.Load(),
		"fetches_unavailable": m.FetchesUnavailable.Load(),
		"responses_2xx":       m.Responses2xx.Load(),
		"responses_4xx":       m.Responses4xx.Load(),
		"responses_5xx":       m.Responses5xx.Load(),
		"bytes_downloaded":    m.BytesDownloaded.Load(),
		"located_sku":         m.LocatedBySKU.Load(),
		"located_name":        m.LocatedByName.Load(),
		"located_fallback":    m.LocatedByFallback.Load(),
		"locate_not_found":    m.LocateNotFound.Load(),
		"locate_skipped":      m.LocateSkipped.Load(),
		"pages_extracted":     m.PagesExtracted.Load(),
		"rows_enriched":       m.RowsEnriched.Load(),
		"rows_skipped":        m.RowsSkipped.Load(),
		"rows_failed":         m.RowsFailed.Load(),
		"rows_stored":         m.RowsStored.Load(),
		"active_workers":      int64(m.ActiveWorkers.Load()),
	}
}
