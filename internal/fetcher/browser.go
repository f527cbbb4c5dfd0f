package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/IshaanNene/GapFill/internal/config"
	"github.com/IshaanNene/GapFill/internal/types"
)

// BrowserFetcher implements Fetcher using a headless browser via Rod.
// It is meant for storefronts that render search results with JavaScript.
type BrowserFetcher struct {
	browser  *rod.Browser
	timeout  time.Duration
	stealth  bool
	identity *Identity
	limiter  *HostLimiter
	pagePool chan *rod.Page
	logger   *slog.Logger
}

// NewBrowserFetcher launches a headless Chromium and connects to it.
// The proxy, if any, is chosen once per browser launch.
func NewBrowserFetcher(cfg *config.Config, logger *slog.Logger) (*BrowserFetcher, error) {
	bf := &BrowserFetcher{
		timeout:  cfg.Discovery.RequestTimeout,
		stealth:  cfg.Fetcher.Stealth,
		identity: NewIdentityFromConfig(&cfg.Discovery),
		limiter:  NewHostLimiter(cfg.Fetcher.MaxPerHost, cfg.Fetcher.HostRate),
		pagePool: make(chan *rod.Page, max(cfg.Runner.Concurrency, 1)),
		logger:   logger.With("component", "browser_fetcher"),
	}

	l := launcher.New().
		Headless(true).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("no-sandbox").
		Set("disable-blink-features", "AutomationControlled")

	if proxy := NewProxyManager(&cfg.Proxy, logger).Next(); proxy != nil {
		l = l.Proxy(proxy.String())
	}

	launchURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(launchURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	bf.browser = browser

	bf.logger.Info("browser fetcher ready", "stealth", bf.stealth)
	return bf, nil
}

// Fetch navigates to rawURL and returns the rendered HTML.
func (bf *BrowserFetcher) Fetch(ctx context.Context, rawURL string) types.FetchResult {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return types.Unavailable(rawURL, &types.FetchError{URL: rawURL, Err: types.ErrInvalidURL})
	}

	release, err := bf.limiter.Acquire(ctx, u.Hostname())
	if err != nil {
		return types.Unavailable(rawURL, &types.FetchError{URL: rawURL, Err: err})
	}
	defer release()

	start := time.Now()
	page, err := bf.getPage()
	if err != nil {
		return types.Unavailable(rawURL, &types.FetchError{URL: rawURL, Err: err})
	}
	defer bf.putPage(page)

	page = page.Context(ctx).Timeout(bf.timeout)

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      bf.identity.UserAgent(),
		AcceptLanguage: bf.identity.acceptLanguage,
	}); err != nil {
		bf.logger.Warn("failed to set user agent", "error", err)
	}

	if err := page.Navigate(rawURL); err != nil {
		return types.Unavailable(rawURL, &types.FetchError{URL: rawURL, Err: err})
	}
	if err := page.WaitStable(300 * time.Millisecond); err != nil {
		bf.logger.Debug("page stability timeout, continuing", "url", rawURL, "error", err)
	}

	html, err := page.HTML()
	if err != nil {
		return types.Unavailable(rawURL, &types.FetchError{URL: rawURL, Err: err})
	}

	finalURL := rawURL
	if info, err := page.Info(); err == nil && info != nil {
		finalURL = info.URL
	}

	duration := time.Since(start)
	bf.logger.Debug("browser fetch complete", "url", rawURL, "final_url", finalURL, "size", len(html), "duration", duration)

	return types.FetchResult{
		URL:         rawURL,
		FinalURL:    finalURL,
		StatusCode:  200, // rod does not expose the document status
		Body:        []byte(html),
		ContentType: "text/html",
		Duration:    duration,
	}
}

// Close shuts down the browser and releases resources.
func (bf *BrowserFetcher) Close() error {
	close(bf.pagePool)
	for page := range bf.pagePool {
		_ = page.Close()
	}
	if bf.browser != nil {
		return bf.browser.Close()
	}
	return nil
}

// Type returns the fetcher type identifier.
func (bf *BrowserFetcher) Type() string {
	return "browser"
}

// getPage retrieves a page from the pool or creates a new one.
func (bf *BrowserFetcher) getPage() (*rod.Page, error) {
	select {
	case page := <-bf.pagePool:
		return page, nil
	default:
	}
	if bf.stealth {
		return stealth.Page(bf.browser)
	}
	return bf.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
}

// putPage returns a page to the pool.
func (bf *BrowserFetcher) putPage(page *rod.Page) {
	_ = page.Navigate("about:blank")

	select {
	case bf.pagePool <- page:
	default:
		_ = page.Close()
	}
}
