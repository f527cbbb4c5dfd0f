package extract

import (
	"log/slog"
	"os"
	"reflect"
	"testing"

	"github.com/IshaanNene/GapFill/internal/config"
	"github.com/IshaanNene/GapFill/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

const wooPage = `<!DOCTYPE html>
<html>
<head><title>Red Mug – Shop</title></head>
<body>
    <h1 class="product_title entry-title">Red Mug</h1>
    <p class="price"><span class="woocommerce-Price-amount">$12.00</span></p>
    <div class="woocommerce-Tabs-panel woocommerce-Tabs-panel--description"><p>Great <b>mug</b></p></div>
    <img src="https://shop.example/img/a.jpg">
    <img data-src="https://shop.example/img/b.jpg" src="data:image/gif;base64,R0lGOD">
    <img src="/relative/c.jpg">
    <img src="https://shop.example/img/a.jpg">
    <select name="size">
        <option value="">Choose an option</option>
        <option>Small</option>
        <option>Large</option>
        <option>Small</option>
    </select>
</body>
</html>`

func TestExtractWooCommercePage(t *testing.T) {
	e := NewProductExtractor(testLogger)
	p := e.ExtractHTML(wooPage)

	if p.Title != "Red Mug" {
		t.Errorf("expected title 'Red Mug', got %q", p.Title)
	}
	if p.Price != "$12.00" {
		t.Errorf("expected price '$12.00', got %q", p.Price)
	}
	wantDesc := `<div class="woocommerce-Tabs-panel woocommerce-Tabs-panel--description"><p>Great <b>mug</b></p></div>`
	if p.DescriptionHTML != wantDesc {
		t.Errorf("expected description markup preserved, got %q", p.DescriptionHTML)
	}

	wantImages := []string{"https://shop.example/img/a.jpg", "https://shop.example/img/b.jpg"}
	if !reflect.DeepEqual(p.Images, wantImages) {
		t.Errorf("images = %v, want %v", p.Images, wantImages)
	}

	wantVariants := []string{"Small", "Large", "Small"}
	if !reflect.DeepEqual(p.Variants, wantVariants) {
		t.Errorf("variants = %v, want %v", p.Variants, wantVariants)
	}
}

func TestExtractFieldsIndependent(t *testing.T) {
	e := NewProductExtractor(testLogger)
	p := e.ExtractHTML(`<html><body><span class="product-price">€5</span></body></html>`)

	if p.Title != "" || p.DescriptionHTML != "" || len(p.Images) != 0 || len(p.Variants) != 0 {
		t.Errorf("expected only price, got %+v", p)
	}
	if p.Price != "€5" {
		t.Errorf("expected price '€5', got %q", p.Price)
	}
}

func TestExtractSelectorOrder(t *testing.T) {
	e := NewProductExtractor(testLogger)
	p := e.ExtractHTML(`<html><body>
		<div class="product_title">Theme Title</div>
		<h1>  </h1>
		<h1>Heading Title</h1>
		<div class="product-single__description">Shopify desc</div>
		<div id="description">Primary desc</div>
	</body></html>`)

	if p.Title != "Heading Title" {
		t.Errorf("expected first non-empty h1 to win, got %q", p.Title)
	}
	if p.DescriptionHTML != `<div id="description">Primary desc</div>` {
		t.Errorf("expected #description to win, got %q", p.DescriptionHTML)
	}
}

func TestExtractEmptyPage(t *testing.T) {
	e := NewProductExtractor(testLogger)
	p := e.ExtractHTML("")
	if !p.IsEmpty() {
		t.Errorf("expected empty product, got %+v", p)
	}
}

func TestExtractResultUnavailable(t *testing.T) {
	e := NewProductExtractor(testLogger)
	res := types.Unavailable("https://shop.example/p", types.ErrUnavailable)
	if p := e.ExtractResult(&res); !p.IsEmpty() {
		t.Errorf("expected empty product for unavailable page, got %+v", p)
	}

	ok := types.FetchResult{URL: "https://shop.example/p", StatusCode: 200, Body: []byte(wooPage)}
	if p := e.ExtractResult(&ok); p.Title != "Red Mug" {
		t.Errorf("expected title from fetched page, got %q", p.Title)
	}
}

func TestExtractCustomSelectors(t *testing.T) {
	e := NewProductExtractor(testLogger, WithSelectors(Selectors{Title: []string{".name"}}))
	p := e.ExtractHTML(`<h1>Ignored</h1><span class="name">Custom</span><img src="https://x.example/a.png">`)
	if p.Title != "Custom" {
		t.Errorf("expected custom title, got %q", p.Title)
	}
	if len(p.Images) != 0 {
		t.Errorf("expected image extraction disabled, got %v", p.Images)
	}
}

func TestConfigOptionsLayerOverDefaults(t *testing.T) {
	cfg := &config.ExtractConfig{Title: []string{".product-name"}, StructuredData: true}
	page := `<h1>Heading</h1><span class="product-name">Blue Bowl</span><p class="price">$9.00</p>
		<script type="application/ld+json">{"@type":"Product","offers":{"price":"9.50"}}</script>`

	p := NewProductExtractor(testLogger, ConfigOptions(cfg)...).ExtractHTML(page)
	if p.Title != "Blue Bowl" {
		t.Errorf("expected configured title selector, got %q", p.Title)
	}
	if p.Price != "$9.00" {
		t.Errorf("expected default price selector to remain, got %q", p.Price)
	}

	p = NewProductExtractor(testLogger, ConfigOptions(&config.ExtractConfig{})...).ExtractHTML(`<script type="application/ld+json">{"@type":"Product","name":"LD"}</script>`)
	if p.Title != "" {
		t.Errorf("expected structured data off, got title %q", p.Title)
	}

	def := DefaultSelectors()
	if len(def.Title) == 0 || def.Image == "" || def.Variant == "" {
		t.Errorf("default selectors incomplete: %+v", def)
	}
}
