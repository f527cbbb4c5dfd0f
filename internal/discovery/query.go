package discovery

import (
	"net/url"
	"strings"

	"github.com/IshaanNene/GapFill/internal/types"
)

// DefaultSearchPaths holds the on-site search path per platform.
// "%s" is replaced by the escaped search term.
var DefaultSearchPaths = map[types.PlatformKind]string{
	types.PlatformWordPress: "/?s=%s&post_type=product",
	types.PlatformShopify:   "/search?q=%s",
	types.PlatformCustom:    "/search?q=%s",
}

// QueryBuilder turns a platform and a term into an on-site search URL.
type QueryBuilder struct {
	paths map[types.PlatformKind]string
}

// NewQueryBuilder creates a builder. A nil table uses DefaultSearchPaths.
func NewQueryBuilder(paths map[types.PlatformKind]string) *QueryBuilder {
	if paths == nil {
		paths = DefaultSearchPaths
	}
	return &QueryBuilder{paths: paths}
}

// BuildSearchURL returns the search URL for term on baseURL.
// Unknown platforms fall back to the custom pattern.
func (q *QueryBuilder) BuildSearchURL(platform types.PlatformKind, baseURL, term string) string {
	pattern, ok := q.paths[platform]
	if !ok {
		pattern = q.paths[types.PlatformCustom]
	}
	if pattern == "" {
		pattern = DefaultSearchPaths[types.PlatformCustom]
	}
	base := strings.TrimRight(baseURL, "/")
	return base + strings.Replace(pattern, "%s", EscapeTerm(term), 1)
}

// EscapeTerm percent-encodes a search term, spaces as %20.
func EscapeTerm(term string) string {
	return strings.ReplaceAll(url.QueryEscape(term), "+", "%20")
}
