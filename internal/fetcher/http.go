package fetcher

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/net/html/charset"

	"github.com/IshaanNene/GapFill/internal/config"
	"github.com/IshaanNene/GapFill/internal/types"
)

// HTTPFetcher implements Fetcher using net/http.
type HTTPFetcher struct {
	client   *http.Client
	cfg      *config.FetcherConfig
	timeout  time.Duration
	identity *Identity
	proxyMgr *ProxyManager
	limiter  *HostLimiter
	logger   *slog.Logger
}

// HTTPOption configures the HTTPFetcher.
type HTTPOption func(*HTTPFetcher)

// WithHostLimiter shares a per-host limiter between fetchers.
func WithHostLimiter(l *HostLimiter) HTTPOption {
	return func(f *HTTPFetcher) { f.limiter = l }
}

// WithIdentity overrides the client identity source.
func WithIdentity(id *Identity) HTTPOption {
	return func(f *HTTPFetcher) { f.identity = id }
}

// NewHTTPFetcher creates a new HTTP fetcher.
func NewHTTPFetcher(cfg *config.Config, logger *slog.Logger, opts ...HTTPOption) (*HTTPFetcher, error) {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   cfg.Discovery.RequestTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        cfg.Fetcher.MaxIdleConns,
		MaxIdleConnsPerHost: max(cfg.Fetcher.MaxIdleConns/2, 1),
		IdleConnTimeout:     cfg.Fetcher.IdleConnTimeout,
		TLSHandshakeTimeout: cfg.Discovery.RequestTimeout,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.Fetcher.TLSInsecure,
		},
		DisableCompression: true, // decoded below, including brotli
	}

	proxyMgr := NewProxyManager(&cfg.Proxy, logger)
	if proxyMgr.Count() > 0 {
		transport.Proxy = proxyMgr.ProxyFunc()
	}

	redirectPolicy := func(req *http.Request, via []*http.Request) error {
		if !cfg.Fetcher.FollowRedirects {
			return http.ErrUseLastResponse
		}
		if len(via) >= cfg.Fetcher.MaxRedirects {
			return fmt.Errorf("max redirects (%d) reached", cfg.Fetcher.MaxRedirects)
		}
		return nil
	}

	f := &HTTPFetcher{
		client: &http.Client{
			Transport:     transport,
			Timeout:       cfg.Discovery.RequestTimeout,
			CheckRedirect: redirectPolicy,
		},
		cfg:      &cfg.Fetcher,
		timeout:  cfg.Discovery.RequestTimeout,
		identity: NewIdentityFromConfig(&cfg.Discovery),
		proxyMgr: proxyMgr,
		limiter:  NewHostLimiter(cfg.Fetcher.MaxPerHost, cfg.Fetcher.HostRate),
		logger:   logger.With("component", "http_fetcher"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Fetch performs a single GET. It never returns an error; failures are
// reported through an unavailable FetchResult.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) types.FetchResult {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return types.Unavailable(rawURL, &types.FetchError{URL: rawURL, Err: types.ErrInvalidURL})
	}

	// Queueing for the host slot does not count against the request timeout.
	release, err := f.limiter.Acquire(ctx, u.Hostname())
	if err != nil {
		return types.Unavailable(rawURL, &types.FetchError{URL: rawURL, Err: err})
	}
	defer release()

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return types.Unavailable(rawURL, &types.FetchError{URL: rawURL, Err: err})
	}

	f.identity.Apply(httpReq.Header)
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	httpReq.Header.Set("Accept-Encoding", "gzip, deflate, br")

	start := time.Now()
	httpResp, err := f.client.Do(httpReq)
	if err != nil {
		f.logger.Debug("fetch failed", "url", rawURL, "error", err)
		return types.Unavailable(rawURL, &types.FetchError{URL: rawURL, Err: err})
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(httpResp.Body, 4096))
		f.logger.Debug("fetch non-success status", "url", rawURL, "status", httpResp.StatusCode)
		return types.FetchResult{
			URL:        rawURL,
			StatusCode: httpResp.StatusCode,
			Duration:   time.Since(start),
			Err: &types.FetchError{
				URL:        rawURL,
				StatusCode: httpResp.StatusCode,
				Err:        types.ErrNonSuccessStatus,
			},
		}
	}

	reader, err := decompressReader(httpResp)
	if err != nil {
		return types.Unavailable(rawURL, &types.FetchError{URL: rawURL, StatusCode: httpResp.StatusCode, Err: err})
	}
	if f.cfg.MaxBodySize > 0 {
		reader = io.LimitReader(reader, f.cfg.MaxBodySize)
	}
	if decoded, err := charset.NewReader(reader, httpResp.Header.Get("Content-Type")); err == nil {
		reader = decoded
	} else {
		f.logger.Debug("unknown charset, using raw body", "url", rawURL, "error", err)
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return types.Unavailable(rawURL, &types.FetchError{URL: rawURL, StatusCode: httpResp.StatusCode, Err: err})
	}
	duration := time.Since(start)

	f.logger.Debug("fetch complete",
		"url", rawURL,
		"status", httpResp.StatusCode,
		"size", len(body),
		"duration", duration,
	)

	return types.FetchResult{
		URL:         rawURL,
		FinalURL:    httpResp.Request.URL.String(),
		StatusCode:  httpResp.StatusCode,
		Body:        body,
		ContentType: httpResp.Header.Get("Content-Type"),
		Duration:    duration,
	}
}

// Close releases resources.
func (f *HTTPFetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}

// Type returns the fetcher type identifier.
func (f *HTTPFetcher) Type() string {
	return "http"
}

// decompressReader wraps the body with the decoder for its Content-Encoding.
func decompressReader(resp *http.Response) (io.Reader, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		return gzip.NewReader(resp.Body)
	case "deflate":
		return flate.NewReader(resp.Body), nil
	case "br":
		return brotli.NewReader(resp.Body), nil
	default:
		return resp.Body, nil
	}
}
