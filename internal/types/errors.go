package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrUnavailable      = errors.New("page unavailable")
	ErrNonSuccessStatus = errors.New("non-success status")
	ErrInvalidURL       = errors.New("invalid URL")
	ErrEmptySite        = errors.New("row has no website")
	ErrNotFound         = errors.New("product page not found")
	ErrUnsupportedFile  = errors.New("unsupported file type")
)

// FetchError wraps errors that occur during fetching.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch error for %s (status %d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch error for %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError wraps errors that occur while parsing a fetched page.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error for %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// StorageError wraps errors that occur during storage/export.
type StorageError struct {
	Backend string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error (%s): %v", e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// PipelineError wraps errors that occur in the row pipeline.
type PipelineError struct {
	Stage string
	Row   Row
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline error at stage %q: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// IngestError wraps errors that occur while reading a spreadsheet.
type IngestError struct {
	File string
	Err  error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("ingest error for %s: %v", e.File, e.Err)
}

func (e *IngestError) Unwrap() error { return e.Err }
