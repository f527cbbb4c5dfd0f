package discovery

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// LinkRule is one entry of the search-result rule table.
type LinkRule struct {
	Name     string
	Selector string
}

// DefaultLinkRules go from platform-specific markers to generic substring
// matching; first rule with a usable match wins.
var DefaultLinkRules = []LinkRule{
	{Name: "products-path", Selector: "a[href*='/products/']"},
	{Name: "woocommerce-loop", Selector: "a.woocommerce-loop-product__link"},
	{Name: "product-substring", Selector: "a[href*='product']"},
}

// LinkExtractor picks a candidate product link out of a search-results page.
type LinkExtractor struct {
	rules []LinkRule
}

// NewLinkExtractor creates an extractor. With no rules it uses DefaultLinkRules.
func NewLinkExtractor(rules ...LinkRule) *LinkExtractor {
	if len(rules) == 0 {
		rules = DefaultLinkRules
	}
	return &LinkExtractor{rules: rules}
}

// Extract applies the rule table to doc and returns the first candidate
// resolved against baseURL, along with the name of the rule that matched.
func (e *LinkExtractor) Extract(doc *goquery.Document, baseURL string) (string, string, bool) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return "", "", false
	}

	for _, rule := range e.rules {
		var found string
		doc.Find(rule.Selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			href, ok := sel.Attr("href")
			if !ok {
				return true
			}
			if abs, ok := resolveHref(base, href); ok {
				found = abs
				return false
			}
			return true
		})
		if found != "" {
			return found, rule.Name, true
		}
	}
	return "", "", false
}

// ExtractFromHTML parses body and applies the rule table.
func (e *LinkExtractor) ExtractFromHTML(body, baseURL string) (string, string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return "", "", false
	}
	return e.Extract(doc, baseURL)
}

// resolveHref resolves href against base and keeps only http(s) results.
func resolveHref(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" ||
		strings.HasPrefix(href, "#") ||
		strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "tel:") {
		return "", false
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return "", false
	}
	if resolved.Host == "" {
		return "", false
	}
	return resolved.String(), true
}
