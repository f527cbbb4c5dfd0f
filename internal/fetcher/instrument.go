package fetcher

import (
	"context"

	"github.com/IshaanNene/GapFill/internal/types"
)

// Recorder receives every fetch outcome.
type Recorder interface {
	RecordFetch(res *types.FetchResult)
}

type instrumented struct {
	Fetcher
	rec Recorder
}

// Instrument wraps f so that every fetch is reported to rec.
// A nil rec returns f unchanged.
func Instrument(f Fetcher, rec Recorder) Fetcher {
	if rec == nil {
		return f
	}
	return &instrumented{Fetcher: f, rec: rec}
}

func (i *instrumented) Fetch(ctx context.Context, rawURL string) types.FetchResult {
	res := i.Fetcher.Fetch(ctx, rawURL)
	i.rec.RecordFetch(&res)
	return res
}
