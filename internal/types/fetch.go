package types

import (
	"bytes"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// FetchResult is the outcome of a single page fetch. It is either a
// successful response (Err == nil) or an unavailable marker carrying
// the reason in Err.
type FetchResult struct {
	// URL is the requested URL.
	URL string

	// FinalURL is the URL after any redirects.
	FinalURL string

	// StatusCode is the HTTP status code, 0 when no response was received.
	StatusCode int

	// Body is the decoded response body.
	Body []byte

	// ContentType is the MIME type of the response.
	ContentType string

	// Duration is how long the fetch took.
	Duration time.Duration

	// Err is non-nil when the page is unavailable.
	Err error

	doc *goquery.Document
}

// Unavailable builds an unavailable result for a URL.
func Unavailable(rawURL string, err error) FetchResult {
	return FetchResult{URL: rawURL, Err: err}
}

// OK returns true when the fetch produced a usable 2xx body.
func (r *FetchResult) OK() bool {
	return r.Err == nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Text returns the body as a string.
func (r *FetchResult) Text() string {
	return string(r.Body)
}

// Document returns a parsed goquery document, lazily initializing it.
func (r *FetchResult) Document() (*goquery.Document, error) {
	if r.doc != nil {
		return r.doc, nil
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(r.Body))
	if err != nil {
		return nil, err
	}
	r.doc = doc
	return doc, nil
}
