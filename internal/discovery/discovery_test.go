package discovery

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"

	"github.com/IshaanNene/GapFill/internal/config"
	"github.com/IshaanNene/GapFill/internal/fetcher/fetchertest"
	"github.com/IshaanNene/GapFill/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

const testSearchEndpoint = "https://search.test/search"

func newTestEngine(f *fetchertest.Static) *Engine {
	return NewEngine(f, &config.DiscoveryConfig{SearchEndpoint: testSearchEndpoint}, testLogger)
}

// --- Classifier ---

func TestClassify(t *testing.T) {
	c := NewClassifier()
	tests := []struct {
		name string
		body string
		want types.PlatformKind
	}{
		{"woocommerce", `<body class="WooCommerce-page">`, types.PlatformWordPress},
		{"wp-content", `<link href="/wp-content/themes/x.css">`, types.PlatformWordPress},
		{"shopify", `<script src="https://cdn.shopify.com/s.js"></script>`, types.PlatformShopify},
		{"both prefers wordpress", `cdn.Shopify.com ... /wp-content/`, types.PlatformWordPress},
		{"none", `<html><body>plain</body></html>`, types.PlatformCustom},
		{"empty", ``, types.PlatformCustom},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Classify(tt.body); got != tt.want {
				t.Errorf("Classify() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestClassifyCustomRules(t *testing.T) {
	c := NewClassifier(PlatformRule{Kind: types.PlatformShopify, Tokens: []string{"myshop"}})
	if got := c.Classify("wp-content MyShop"); got != types.PlatformShopify {
		t.Errorf("expected custom table to apply, got %s", got)
	}
}

// --- QueryBuilder ---

func TestBuildSearchURL(t *testing.T) {
	q := NewQueryBuilder(nil)
	tests := []struct {
		platform types.PlatformKind
		base     string
		term     string
		want     string
	}{
		{types.PlatformWordPress, "http://shop.example", "ABC123", "http://shop.example/?s=ABC123&post_type=product"},
		{types.PlatformShopify, "https://s.example/", "Red Mug", "https://s.example/search?q=Red%20Mug"},
		{types.PlatformCustom, "https://c.example", "a&b/c", "https://c.example/search?q=a%26b%2Fc"},
		{types.PlatformKind("magento"), "https://m.example", "x", "https://m.example/search?q=x"},
	}
	for _, tt := range tests {
		if got := q.BuildSearchURL(tt.platform, tt.base, tt.term); got != tt.want {
			t.Errorf("BuildSearchURL(%s, %q, %q) = %q, want %q", tt.platform, tt.base, tt.term, got, tt.want)
		}
	}
}

// --- LinkExtractor ---

func TestLinkExtractorRuleOrder(t *testing.T) {
	e := NewLinkExtractor()
	tests := []struct {
		name     string
		body     string
		wantURL  string
		wantRule string
	}{
		{
			name:     "products path beats earlier substring match",
			body:     `<a href="/product-category/mugs">Mugs</a><a href="/products/red-mug">Red</a>`,
			wantURL:  "http://shop.example/products/red-mug",
			wantRule: "products-path",
		},
		{
			name:     "woocommerce loop anchor",
			body:     `<a href="/shop/cat">Cat</a><a class="woocommerce-loop-product__link" href="/item/42">Item</a>`,
			wantURL:  "http://shop.example/item/42",
			wantRule: "woocommerce-loop",
		},
		{
			name:     "generic substring",
			body:     `<a href="/about">About</a><a href="https://shop.example/product.php?id=7">X</a>`,
			wantURL:  "https://shop.example/product.php?id=7",
			wantRule: "product-substring",
		},
		{
			name:     "skips javascript hrefs",
			body:     `<a href="javascript:product()">bad</a><a href="/productx">ok</a>`,
			wantURL:  "http://shop.example/productx",
			wantRule: "product-substring",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, rule, ok := e.ExtractFromHTML(tt.body, "http://shop.example")
			if !ok {
				t.Fatal("expected a candidate")
			}
			if got != tt.wantURL || rule != tt.wantRule {
				t.Errorf("got (%q, %q), want (%q, %q)", got, rule, tt.wantURL, tt.wantRule)
			}
		})
	}
}

func TestLinkExtractorNoMatch(t *testing.T) {
	e := NewLinkExtractor()
	if _, _, ok := e.ExtractFromHTML(`<a href="/about">About</a><a href="/cart">Cart</a>`, "http://shop.example"); ok {
		t.Error("expected no candidate")
	}
}

// --- ExternalSearch ---

func TestCleanRedirect(t *testing.T) {
	tests := []struct{ in, want string }{
		{"/url?q=https://shop.example/product/1&sa=U&ved=abc", "https://shop.example/product/1"},
		{"/url?q=https%3A%2F%2Fshop.example%2Fproduct%2F2&sa=U", "https://shop.example/product/2"},
		{"https://shop.example/product/3", "https://shop.example/product/3"},
		{"https://shop.example/product/4&utm=x", "https://shop.example/product/4"},
	}
	for _, tt := range tests {
		if got := CleanRedirect(tt.in); got != tt.want {
			t.Errorf("CleanRedirect(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExternalSearchURL(t *testing.T) {
	s := NewExternalSearch(fetchertest.New(nil), testSearchEndpoint, testLogger)
	got := s.SearchURL("Red Mug", "http://shop2.example")
	want := testSearchEndpoint + "?q=Red%20Mug%20site%3Ahttp%3A%2F%2Fshop2.example"
	if got != want {
		t.Errorf("SearchURL = %q, want %q", got, want)
	}
	if q := Query("", "http://x.example"); q != "site:http://x.example" {
		t.Errorf("unexpected query %q", q)
	}
}

func TestExtractFallbackLinkResolvesRelative(t *testing.T) {
	link, ok := ExtractFallbackLink(`<a href="/images">i</a><a href="/product/9">p</a>`, "http://shop.example")
	if !ok || link != "http://shop.example/product/9" {
		t.Errorf("got (%q, %v)", link, ok)
	}
}

// --- Engine ---

func TestLocateEmptySiteMakesNoRequests(t *testing.T) {
	f := fetchertest.New(nil)
	e := newTestEngine(f)

	for _, base := range []string{"", "   "} {
		if _, ok := e.Locate(context.Background(), base, "Red Mug", "ABC"); ok {
			t.Error("expected not found")
		}
	}
	if f.CallCount() != 0 {
		t.Errorf("expected no network activity, got %v", f.Calls())
	}
}

func TestLocateHomepageUnavailable(t *testing.T) {
	f := fetchertest.New(nil)
	e := newTestEngine(f)

	res := e.Resolve(context.Background(), "http://down.example", "Red Mug", "ABC")
	if res.Found {
		t.Fatal("expected not found")
	}
	if f.CallCount() != 1 {
		t.Errorf("expected only the homepage fetch, got %v", f.Calls())
	}
	if res.By != StageNotFound {
		t.Errorf("expected not_found, got %s", res.By)
	}
}

func TestLocateWordPressSKUShortCircuits(t *testing.T) {
	f := fetchertest.New(map[string]string{
		"http://shop.example": `<html><head><link href="/wp-content/style.css"></head></html>`,
		"http://shop.example/?s=ABC123&post_type=product": `<ul>
			<li><a class="woocommerce-loop-product__link" href="/products/abc123">ABC</a></li>
		</ul>`,
	})
	e := newTestEngine(f)

	res := e.Resolve(context.Background(), "http://shop.example", "Blue Widget", "ABC123")
	if !res.Found {
		t.Fatalf("expected found, steps=%+v", res.Steps)
	}
	if res.URL != "http://shop.example/products/abc123" {
		t.Errorf("unexpected URL %q", res.URL)
	}
	if res.Platform != types.PlatformWordPress {
		t.Errorf("expected wordpress, got %s", res.Platform)
	}
	if res.By != StageSearchSKU {
		t.Errorf("expected resolution by sku search, got %s", res.By)
	}
	calls := f.Calls()
	if len(calls) != 2 {
		t.Errorf("expected homepage + sku search only, got %v", calls)
	}
}

func TestLocateNameThenFallback(t *testing.T) {
	es := NewExternalSearch(nil, testSearchEndpoint, testLogger)
	fallbackURL := es.SearchURL("Red Mug", "http://shop2.example")

	f := fetchertest.New(map[string]string{
		"http://shop2.example":                    `<html><body>Welcome</body></html>`,
		"http://shop2.example/search?q=Red%20Mug": `<html><body><a href="/about">About</a></body></html>`,
		fallbackURL: `<html><body>
			<a href="/search?q=more">More</a>
			<a href="/url?q=http://shop2.example/product/red-mug&sa=U&ved=2ah">Red Mug</a>
		</body></html>`,
	})
	e := newTestEngine(f)

	res := e.Resolve(context.Background(), "http://shop2.example", "Red Mug", "")
	if !res.Found {
		t.Fatalf("expected found, steps=%+v", res.Steps)
	}
	if res.URL != "http://shop2.example/product/red-mug" {
		t.Errorf("unexpected URL %q", res.URL)
	}
	if res.Platform != types.PlatformCustom {
		t.Errorf("expected custom, got %s", res.Platform)
	}
	if res.By != StageFallback {
		t.Errorf("expected fallback resolution, got %s", res.By)
	}

	calls := f.Calls()
	want := []string{"http://shop2.example", "http://shop2.example/search?q=Red%20Mug", fallbackURL}
	if len(calls) != len(want) {
		t.Fatalf("expected calls %v, got %v", want, calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, calls[i], want[i])
		}
	}
}

func TestLocateFallbackInvokedExactlyOnce(t *testing.T) {
	f := fetchertest.New(map[string]string{
		"https://s.example": `<html>cdn.shopify.com</html>`,
		// both term searches return pages without candidates
		"https://s.example/search?q=SKU1":   `<a href="/cart">Cart</a>`,
		"https://s.example/search?q=Widget": `<a href="/cart">Cart</a>`,
	})
	e := newTestEngine(f)

	res := e.Resolve(context.Background(), "https://s.example", "Widget", "SKU1")
	if res.Found {
		t.Fatal("expected not found")
	}

	fallbacks := 0
	for _, step := range res.Steps {
		if step.Stage == StageFallback {
			fallbacks++
		}
	}
	if fallbacks != 1 {
		t.Errorf("expected exactly one fallback step, got %d (%+v)", fallbacks, res.Steps)
	}
	if f.CallCount() != 4 {
		t.Errorf("expected 4 fetches, got %v", f.Calls())
	}
}

func TestLocateSearchUnavailableContinues(t *testing.T) {
	f := fetchertest.New(map[string]string{
		"https://s.example": `<html>shopify</html>`,
		// SKU search page missing → unavailable
		"https://s.example/search?q=Widget": `<a href="/products/widget">W</a>`,
	})
	e := newTestEngine(f)

	res := e.Resolve(context.Background(), "https://s.example", "Widget", "SKU1")
	if !res.Found || res.URL != "https://s.example/products/widget" {
		t.Fatalf("expected name search to resolve, got %+v", res)
	}
	if res.By != StageSearchName {
		t.Errorf("expected search_name, got %s", res.By)
	}
}

func TestLocateCancelledContext(t *testing.T) {
	f := fetchertest.New(map[string]string{"https://s.example": "shopify"})
	e := newTestEngine(f)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, ok := e.Locate(ctx, "https://s.example", "Widget", "SKU1"); ok {
		t.Error("expected not found on cancelled context")
	}
	if f.CallCount() != 0 {
		t.Errorf("expected no fetches after cancellation, got %v", f.Calls())
	}
}

func TestResolutionJSONUsesStageNames(t *testing.T) {
	res := Resolution{
		URL:   "http://shop.example/products/a",
		Found: true,
		By:    StageSearchName,
		Steps: []Step{{Stage: StageClassify, URL: "http://shop.example", OK: true}},
	}
	data, err := json.Marshal(res)
	if err != nil {
		t.Fatal(err)
	}
	var out struct {
		By    string `json:"by"`
		Steps []struct {
			Stage string `json:"stage"`
		} `json:"steps"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if out.By != "search_name" || len(out.Steps) != 1 || out.Steps[0].Stage != "classify" {
		t.Errorf("unexpected encoding %s", data)
	}
}

func TestEngineConfigOverrides(t *testing.T) {
	cfg := &config.DiscoveryConfig{
		SearchEndpoint: testSearchEndpoint,
		SearchPaths:    map[string]string{"shopify": "/collections/all?q=%s"},
		LinkSelectors:  []string{"a.result"},
	}
	f := fetchertest.New(map[string]string{
		"http://c.example": `<html><body class="myshop-theme">Hi</body></html>`,
		"http://c.example/collections/all?q=SKU1": `<a href="/products/other">Other</a>
			<a class="result" href="/item/7">Hit</a>`,
	})
	opts := append(ConfigOptions(cfg),
		WithClassifier(NewClassifier(PlatformRule{Kind: types.PlatformShopify, Tokens: []string{"myshop"}})))
	e := NewEngine(f, cfg, testLogger, opts...)

	res := e.Resolve(context.Background(), "http://c.example", "Widget", "SKU1")
	if !res.Found {
		t.Fatalf("expected found, steps=%+v", res.Steps)
	}
	if res.Platform != types.PlatformShopify {
		t.Errorf("expected custom classifier to report shopify, got %s", res.Platform)
	}
	if res.URL != "http://c.example/item/7" {
		t.Errorf("expected configured link selector to win, got %q", res.URL)
	}
	if res.By != StageSearchSKU {
		t.Errorf("expected search_sku, got %s", res.By)
	}
}

func TestConfigOptionsKeepsUnlistedPaths(t *testing.T) {
	if opts := ConfigOptions(&config.DiscoveryConfig{}); len(opts) != 0 {
		t.Errorf("expected no options for an empty config, got %d", len(opts))
	}

	e := &Engine{}
	for _, opt := range ConfigOptions(&config.DiscoveryConfig{SearchPaths: map[string]string{"Custom": "/find?term=%s"}}) {
		opt(e)
	}
	if got := e.queries.BuildSearchURL(types.PlatformCustom, "http://c.example", "a b"); got != "http://c.example/find?term=a%20b" {
		t.Errorf("custom override not applied: %q", got)
	}
	if got := e.queries.BuildSearchURL(types.PlatformWordPress, "http://w.example", "x"); got != "http://w.example/?s=x&post_type=product" {
		t.Errorf("default wordpress path lost: %q", got)
	}
}
