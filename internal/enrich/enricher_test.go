package enrich

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/IshaanNene/GapFill/internal/config"
	"github.com/IshaanNene/GapFill/internal/discovery"
	"github.com/IshaanNene/GapFill/internal/extract"
	"github.com/IshaanNene/GapFill/internal/fetcher/fetchertest"
	"github.com/IshaanNene/GapFill/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

const productPage = `<html><body>
	<h1 class="product_title">Scraped Widget</h1>
	<p class="price">$19.00</p>
	<div id="description"><p>Sturdy.</p></div>
	<img src="https://shop.example/img/1.jpg">
	<img data-src="https://shop.example/img/2.jpg" src="/placeholder.gif">
	<select><option>Choose an option</option><option>Blue</option><option>Red</option></select>
</body></html>`

type fakeRecorder struct {
	mu        sync.Mutex
	stages    []string
	extracted int
}

func (r *fakeRecorder) RecordLocate(stage string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, stage)
}

func (r *fakeRecorder) RecordExtraction() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extracted++
}

func newTestEnricher(f *fetchertest.Static, opts ...Option) *Enricher {
	engine := discovery.NewEngine(f, &config.DiscoveryConfig{SearchEndpoint: "https://search.test/search"}, testLogger)
	return NewEnricher(engine, f, testLogger, opts...)
}

func wordpressSite() *fetchertest.Static {
	return fetchertest.New(map[string]string{
		"http://shop.example":                             `<link href="/wp-content/x.css">`,
		"http://shop.example/?s=ABC123&post_type=product": `<a class="woocommerce-loop-product__link" href="/products/abc123">x</a>`,
		"http://shop.example/products/abc123":             productPage,
	})
}

func TestEnrichEmptySiteIsIdentity(t *testing.T) {
	f := fetchertest.New(nil)
	rec := &fakeRecorder{}
	e := newTestEnricher(f, WithRecorder(rec))

	row := types.Row{types.FieldTitle: "Widget", types.FieldSKU: "ABC", types.FieldWebsite: "  "}
	before := row.Clone()

	got, out := e.EnrichWithOutcome(context.Background(), row)
	if !got.Equal(before) {
		t.Errorf("expected row unchanged, got %v", got)
	}
	if f.CallCount() != 0 {
		t.Errorf("expected no network activity, got %v", f.Calls())
	}
	if out.Stage != StageSkipped {
		t.Errorf("expected skipped outcome, got %q", out.Stage)
	}
	if len(rec.stages) != 1 || rec.stages[0] != StageSkipped {
		t.Errorf("expected skipped to be recorded, got %v", rec.stages)
	}
	if !errors.Is(out.Err(), types.ErrEmptySite) {
		t.Errorf("expected ErrEmptySite, got %v", out.Err())
	}
}

func TestEnrichFullMerge(t *testing.T) {
	f := wordpressSite()
	rec := &fakeRecorder{}
	e := newTestEnricher(f, WithRecorder(rec))

	row := types.Row{
		types.FieldTitle:   "Vendor Widget",
		types.FieldSKU:     "ABC123",
		types.FieldWebsite: "http://shop.example",
		types.FieldImages:  "https://old.example/x.jpg",
	}
	ctx, status := types.WithStatus(context.Background())
	got, out := e.EnrichWithOutcome(ctx, row)
	if *status != types.StatusEnriched {
		t.Errorf("expected enriched status on the context, got %v", *status)
	}

	want := map[string]string{
		types.FieldTitle:           "Vendor Widget",
		types.FieldPrice:           "$19.00",
		types.FieldDescriptionHTML: `<div id="description"><p>Sturdy.</p></div>`,
		types.FieldImages:          "https://shop.example/img/1.jpg, https://shop.example/img/2.jpg",
		types.FieldVariants:        "Blue, Red",
		types.FieldScrapedURL:      "http://shop.example/products/abc123",
	}
	for k, v := range want {
		if got.Get(k) != v {
			t.Errorf("%s = %q, want %q", k, got.Get(k), v)
		}
	}

	if out.Stage != "search_sku" || !out.PageFetched || !out.Found() {
		t.Errorf("unexpected outcome %+v", out)
	}
	if rec.extracted != 1 {
		t.Errorf("expected one extraction recorded, got %d", rec.extracted)
	}
	if out.Err() != nil {
		t.Errorf("expected no error, got %v", out.Err())
	}
}

func TestEnrichWithCustomExtractor(t *testing.T) {
	x := extract.NewProductExtractor(testLogger, extract.WithSelectors(extract.Selectors{
		Title:   []string{".product_title"},
		Variant: "select option",
	}))
	e := newTestEnricher(wordpressSite(), WithExtractor(x))

	row := types.Row{
		types.FieldSKU:     "ABC123",
		types.FieldWebsite: "http://shop.example",
		types.FieldImages:  "https://old.example/x.jpg",
	}
	got := e.Enrich(context.Background(), row)

	if got.Get(types.FieldTitle) != "Scraped Widget" {
		t.Errorf("title = %q", got.Get(types.FieldTitle))
	}
	if !got.IsBlank(types.FieldPrice) {
		t.Errorf("expected no price without a price selector, got %q", got.Get(types.FieldPrice))
	}
	if got.Get(types.FieldImages) != "" {
		t.Errorf("expected images overwritten with an empty list, got %q", got.Get(types.FieldImages))
	}
	if got.Get(types.FieldVariants) != "Blue, Red" {
		t.Errorf("variants = %q", got.Get(types.FieldVariants))
	}
}

func TestEnrichNotFoundWritesEmptyURL(t *testing.T) {
	f := fetchertest.New(map[string]string{
		"https://plain.example": `<html>nothing</html>`,
	})
	e := newTestEnricher(f)

	row := types.Row{
		types.FieldTitle:   "Widget",
		types.FieldSKU:     "W1",
		types.FieldWebsite: "plain.example",
		types.FieldImages:  "https://keep.example/a.jpg",
	}
	got, out := e.EnrichWithOutcome(context.Background(), row)

	if !got.Has(types.FieldScrapedURL) || got.Get(types.FieldScrapedURL) != "" {
		t.Errorf("expected empty SCRAPED_PRODUCT_URL, got %v", got)
	}
	if got.Get(types.FieldImages) != "https://keep.example/a.jpg" {
		t.Errorf("expected IMAGES untouched when no page was reached, got %q", got.Get(types.FieldImages))
	}
	if out.Stage != "not_found" || out.Found() {
		t.Errorf("unexpected outcome %+v", out)
	}
	if !errors.Is(out.Err(), types.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", out.Err())
	}
	if f.Calls()[0] != "https://plain.example" {
		t.Errorf("expected scheme-less site to be fetched over https, got %v", f.Calls())
	}
}

func TestEnrichProductPageUnavailable(t *testing.T) {
	f := fetchertest.New(map[string]string{
		"http://shop.example":                             `<link href="/wp-content/x.css">`,
		"http://shop.example/?s=ABC123&post_type=product": `<a href="/products/abc123">x</a>`,
	})
	e := newTestEnricher(f)

	row := types.Row{
		types.FieldSKU:     "ABC123",
		types.FieldWebsite: "http://shop.example",
		types.FieldImages:  "https://keep.example/a.jpg",
	}
	ctx, status := types.WithStatus(context.Background())
	got, out := e.EnrichWithOutcome(ctx, row)

	if got.Get(types.FieldScrapedURL) != "http://shop.example/products/abc123" {
		t.Errorf("expected located URL to be written, got %q", got.Get(types.FieldScrapedURL))
	}
	if *status != types.StatusPageUnavailable {
		t.Errorf("expected page-unavailable status on the context, got %v", *status)
	}
	if got.Get(types.FieldImages) != "https://keep.example/a.jpg" {
		t.Errorf("expected IMAGES untouched, got %q", got.Get(types.FieldImages))
	}
	if got.Has(types.FieldVariants) || got.Has(types.FieldTitle) {
		t.Errorf("expected no other fields written, got %v", got)
	}
	if out.PageFetched {
		t.Error("expected PageFetched false")
	}
	if !errors.Is(out.Err(), types.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", out.Err())
	}
}

func TestEnrichUsesURLFieldsInOrder(t *testing.T) {
	f := wordpressSite()
	e := newTestEnricher(f)

	row := types.Row{
		types.FieldSKU:     "ABC123",
		types.FieldURL:     "http://shop.example",
		types.FieldBaseURL: "http://other.example",
	}
	got := e.Enrich(context.Background(), row)
	if got.Get(types.FieldScrapedURL) != "http://shop.example/products/abc123" {
		t.Errorf("expected URL field to be used, got %q", got.Get(types.FieldScrapedURL))
	}
}
