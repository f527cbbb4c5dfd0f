// Package fetchertest provides an in-memory Fetcher for tests.
package fetchertest

import (
	"context"
	"sync"

	"github.com/IshaanNene/GapFill/internal/types"
)

// Static serves canned bodies by exact URL. Unknown URLs are unavailable.
type Static struct {
	mu    sync.Mutex
	pages map[string]string
	calls []string
}

// New creates a Static fetcher from a URL → body table.
func New(pages map[string]string) *Static {
	if pages == nil {
		pages = make(map[string]string)
	}
	return &Static{pages: pages}
}

// Set registers a body for rawURL.
func (s *Static) Set(rawURL, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[rawURL] = body
}

// Fetch implements fetcher.Fetcher.
func (s *Static) Fetch(ctx context.Context, rawURL string) types.FetchResult {
	s.mu.Lock()
	s.calls = append(s.calls, rawURL)
	body, ok := s.pages[rawURL]
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return types.Unavailable(rawURL, &types.FetchError{URL: rawURL, Err: err})
	}
	if !ok {
		return types.Unavailable(rawURL, &types.FetchError{URL: rawURL, StatusCode: 404, Err: types.ErrNonSuccessStatus})
	}
	return types.FetchResult{
		URL:         rawURL,
		FinalURL:    rawURL,
		StatusCode:  200,
		Body:        []byte(body),
		ContentType: "text/html",
	}
}

// Calls returns the URLs fetched so far, in order.
func (s *Static) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// CallCount returns how many fetches were made.
func (s *Static) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// Close implements fetcher.Fetcher.
func (s *Static) Close() error { return nil }

// Type implements fetcher.Fetcher.
func (s *Static) Type() string { return "static" }
