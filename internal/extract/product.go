package extract

import (
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/GapFill/internal/config"
	"github.com/IshaanNene/GapFill/internal/types"
)

// Selectors holds the ordered selector list for each product field.
// For the scalar fields the first non-empty match wins.
type Selectors struct {
	Title       []string
	Price       []string
	Description []string
	Image       string
	Variant     string
}

// DefaultSelectors cover WooCommerce, Shopify and common custom themes.
func DefaultSelectors() Selectors {
	return Selectors{
		Title:       []string{"h1", ".product_title"},
		Price:       []string{".price", ".woocommerce-Price-amount", ".product-price"},
		Description: []string{"#description", ".woocommerce-Tabs-panel--description", ".product-single__description"},
		Image:       "img",
		Variant:     "select option",
	}
}

// placeholderVariant is the "no selection" label WooCommerce renders.
const placeholderVariant = "choose an option"

// ProductExtractor turns a product page into a ScrapedProduct.
// It never fails; a missing selector target leaves that field empty.
type ProductExtractor struct {
	selectors  Selectors
	structured bool
	logger     *slog.Logger
}

// Option configures a ProductExtractor.
type Option func(*ProductExtractor)

// WithSelectors replaces the selector lists.
func WithSelectors(s Selectors) Option {
	return func(e *ProductExtractor) { e.selectors = s }
}

// WithoutStructuredData disables the JSON-LD fallback for title and price.
func WithoutStructuredData() Option {
	return func(e *ProductExtractor) { e.structured = false }
}

// ConfigOptions layers the selector overrides in cfg over DefaultSelectors.
func ConfigOptions(cfg *config.ExtractConfig) []Option {
	sel := DefaultSelectors()
	if len(cfg.Title) > 0 {
		sel.Title = cfg.Title
	}
	if len(cfg.Price) > 0 {
		sel.Price = cfg.Price
	}
	if len(cfg.Description) > 0 {
		sel.Description = cfg.Description
	}
	if cfg.Image != "" {
		sel.Image = cfg.Image
	}
	if cfg.Variant != "" {
		sel.Variant = cfg.Variant
	}

	opts := []Option{WithSelectors(sel)}
	if !cfg.StructuredData {
		opts = append(opts, WithoutStructuredData())
	}
	return opts
}

// NewProductExtractor creates an extractor with the default selectors.
func NewProductExtractor(logger *slog.Logger, opts ...Option) *ProductExtractor {
	e := &ProductExtractor{
		selectors:  DefaultSelectors(),
		structured: true,
		logger:     logger.With("component", "product_extractor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractResult extracts from a fetched page. Unavailable pages yield an
// empty product.
func (e *ProductExtractor) ExtractResult(res *types.FetchResult) types.ScrapedProduct {
	if !res.OK() {
		return types.ScrapedProduct{}
	}
	doc, err := res.Document()
	if err != nil {
		e.logger.Debug("product page unparseable", "error", &types.ParseError{URL: res.URL, Err: err})
		return types.ScrapedProduct{}
	}
	return e.Extract(doc)
}

// ExtractHTML parses body and extracts the product.
func (e *ProductExtractor) ExtractHTML(body string) types.ScrapedProduct {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return types.ScrapedProduct{}
	}
	return e.Extract(doc)
}

// Extract applies every field's selector list to doc independently.
func (e *ProductExtractor) Extract(doc *goquery.Document) types.ScrapedProduct {
	var p types.ScrapedProduct

	p.Title = firstText(doc, e.selectors.Title)
	p.Price = firstText(doc, e.selectors.Price)
	p.DescriptionHTML = firstOuterHTML(doc, e.selectors.Description)

	if e.selectors.Image != "" {
		doc.Find(e.selectors.Image).Each(func(_ int, sel *goquery.Selection) {
			if src := imageSource(sel); strings.HasPrefix(src, "http") {
				p.AddImage(src)
			}
		})
	}

	if e.selectors.Variant != "" {
		doc.Find(e.selectors.Variant).Each(func(_ int, sel *goquery.Selection) {
			label := strings.TrimSpace(sel.Text())
			if strings.EqualFold(label, placeholderVariant) {
				return
			}
			p.AddVariant(label)
		})
	}

	if e.structured && (p.Title == "" || p.Price == "") {
		if sp, ok := ProductFromJSONLD(doc); ok {
			if p.Title == "" {
				p.Title = sp.Name
			}
			if p.Price == "" {
				p.Price = sp.Price
			}
		}
	}

	return p
}

// imageSource prefers the lazy-load attribute over src.
func imageSource(sel *goquery.Selection) string {
	if v, ok := sel.Attr("data-src"); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	v, _ := sel.Attr("src")
	return strings.TrimSpace(v)
}

func firstText(doc *goquery.Document, selectors []string) string {
	for _, s := range selectors {
		var found string
		doc.Find(s).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			found = strings.TrimSpace(sel.Text())
			return found == ""
		})
		if found != "" {
			return found
		}
	}
	return ""
}

func firstOuterHTML(doc *goquery.Document, selectors []string) string {
	for _, s := range selectors {
		sel := doc.Find(s).First()
		if sel.Length() == 0 {
			continue
		}
		html, err := goquery.OuterHtml(sel)
		if err != nil {
			continue
		}
		if html = strings.TrimSpace(html); html != "" {
			return html
		}
	}
	return ""
}
