package pipeline

import (
	"context"
	"log/slog"
	"strings"

	"github.com/IshaanNene/GapFill/internal/types"
)

// Middleware processes a row and returns the (possibly modified) row.
// Return nil to drop the row from the pipeline.
type Middleware interface {
	// Name returns the middleware's identifier.
	Name() string

	// Process transforms a row. Return nil to drop the row.
	Process(ctx context.Context, row types.Row) (types.Row, error)
}

// Pipeline chains middleware processors together.
type Pipeline struct {
	middlewares []Middleware
	logger      *slog.Logger
}

// New creates a new Pipeline.
func New(logger *slog.Logger) *Pipeline {
	return &Pipeline{
		logger: logger.With("component", "pipeline"),
	}
}

// Use adds a middleware to the pipeline chain.
func (p *Pipeline) Use(mw Middleware) {
	p.middlewares = append(p.middlewares, mw)
	p.logger.Debug("middleware added", "name", mw.Name(), "position", len(p.middlewares))
}

// Process runs the row through all middleware in order.
func (p *Pipeline) Process(ctx context.Context, row types.Row) (types.Row, error) {
	current := row

	for _, mw := range p.middlewares {
		result, err := mw.Process(ctx, current)
		if err != nil {
			return nil, &types.PipelineError{
				Stage: mw.Name(),
				Row:   current,
				Err:   err,
			}
		}
		if result == nil {
			p.logger.Debug("row dropped", "stage", mw.Name(), "sku", row.Get(types.FieldSKU))
			return nil, nil
		}
		current = result
	}

	return current, nil
}

// Len returns the number of middleware in the chain.
func (p *Pipeline) Len() int {
	return len(p.middlewares)
}

// --- Built-in Middleware ---

// RequiredFieldsMiddleware drops rows whose required fields are blank.
type RequiredFieldsMiddleware struct {
	Fields []string
}

func (m *RequiredFieldsMiddleware) Name() string { return "required_fields" }

func (m *RequiredFieldsMiddleware) Process(_ context.Context, row types.Row) (types.Row, error) {
	for _, field := range m.Fields {
		if row.IsBlank(field) {
			return nil, nil
		}
	}
	return row, nil
}

// DefaultValueMiddleware sets default values for blank fields.
type DefaultValueMiddleware struct {
	Defaults map[string]string
}

func (m *DefaultValueMiddleware) Name() string { return "default_values" }

func (m *DefaultValueMiddleware) Process(_ context.Context, row types.Row) (types.Row, error) {
	for key, defaultVal := range m.Defaults {
		if row.IsBlank(key) {
			row.Set(key, defaultVal)
		}
	}
	return row, nil
}

// FieldFilterMiddleware keeps only specified fields.
type FieldFilterMiddleware struct {
	Fields map[string]bool
}

func (m *FieldFilterMiddleware) Name() string { return "field_filter" }

func (m *FieldFilterMiddleware) Process(_ context.Context, row types.Row) (types.Row, error) {
	if len(m.Fields) == 0 {
		return row, nil
	}
	for key := range row {
		if !m.Fields[key] {
			delete(row, key)
		}
	}
	return row, nil
}

// TrimMiddleware trims whitespace from all fields.
type TrimMiddleware struct{}

func (m *TrimMiddleware) Name() string { return "trim" }

func (m *TrimMiddleware) Process(_ context.Context, row types.Row) (types.Row, error) {
	for key, v := range row {
		row[key] = strings.TrimSpace(v)
	}
	return row, nil
}
