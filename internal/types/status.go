package types

import "context"

// RowStatus records how far enrichment got for one row.
type RowStatus int

const (
	StatusUnknown RowStatus = iota
	StatusNoSite
	StatusNotFound
	StatusPageUnavailable
	StatusEnriched
)

type statusKey struct{}

// WithStatus returns a context carrying an empty status slot for one row,
// along with the slot itself.
func WithStatus(ctx context.Context) (context.Context, *RowStatus) {
	slot := new(RowStatus)
	return context.WithValue(ctx, statusKey{}, slot), slot
}

// SetStatus stores s in ctx's status slot. It is a no-op without one.
func SetStatus(ctx context.Context, s RowStatus) {
	if slot, ok := ctx.Value(statusKey{}).(*RowStatus); ok {
		*slot = s
	}
}
