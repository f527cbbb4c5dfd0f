package discovery

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/IshaanNene/GapFill/internal/fetcher"
)

// fallbackXPath is the single relaxed rule applied to search-engine results.
const fallbackXPath = "//a[contains(@href,'product')]"

// redirectPrefix wraps result links on the default search engine.
const redirectPrefix = "/url?q="

// ExternalSearch queries a general web search engine for a product page
// restricted to the vendor's site.
type ExternalSearch struct {
	fetcher  fetcher.Fetcher
	endpoint string
	logger   *slog.Logger
}

// NewExternalSearch creates a fallback searcher against endpoint
// (e.g. https://www.google.com/search).
func NewExternalSearch(f fetcher.Fetcher, endpoint string, logger *slog.Logger) *ExternalSearch {
	return &ExternalSearch{
		fetcher:  f,
		endpoint: endpoint,
		logger:   logger.With("component", "external_search"),
	}
}

// Query returns the literal query sent to the search engine.
func Query(name, baseURL string) string {
	return strings.TrimSpace(name + " site:" + baseURL)
}

// SearchURL returns the search-engine URL for name on baseURL.
func (s *ExternalSearch) SearchURL(name, baseURL string) string {
	sep := "?"
	if strings.Contains(s.endpoint, "?") {
		sep = "&"
	}
	return s.endpoint + sep + "q=" + EscapeTerm(Query(name, baseURL))
}

// FallbackResult is the outcome of one external search.
type FallbackResult struct {
	SearchURL string
	Fetched   bool
	Link      string
	Found     bool
}

// Search fetches the search-engine results and returns the first product link.
func (s *ExternalSearch) Search(ctx context.Context, name, baseURL string) FallbackResult {
	out := FallbackResult{SearchURL: s.SearchURL(name, baseURL)}
	res := s.fetcher.Fetch(ctx, out.SearchURL)
	if !res.OK() {
		s.logger.Debug("fallback search unavailable", "url", out.SearchURL, "error", res.Err)
		return out
	}
	out.Fetched = true
	out.Link, out.Found = ExtractFallbackLink(res.Text(), baseURL)
	return out
}

// ExtractFallbackLink applies the relaxed rule to a search-engine page,
// unwraps redirect links and resolves relative results against baseURL.
func ExtractFallbackLink(body, baseURL string) (string, bool) {
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return "", false
	}
	node, err := htmlquery.Query(doc, fallbackXPath)
	if err != nil || node == nil {
		return "", false
	}

	href := CleanRedirect(htmlquery.SelectAttr(node, "href"))
	if href == "" {
		return "", false
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return "", false
	}
	return resolveHref(base, href)
}

// CleanRedirect strips the search-engine redirect wrapper and any
// trailing tracking parameters from href.
func CleanRedirect(href string) string {
	href = strings.TrimSpace(href)
	wrapped := strings.HasPrefix(href, redirectPrefix)
	href = strings.TrimPrefix(href, redirectPrefix)
	if i := strings.Index(href, "&"); i >= 0 {
		href = href[:i]
	}
	if wrapped {
		if decoded, err := url.QueryUnescape(href); err == nil {
			href = decoded
		}
	}
	return href
}
