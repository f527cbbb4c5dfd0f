package pipeline

import (
	"context"
	"strings"

	"github.com/IshaanNene/GapFill/internal/ingest"
	"github.com/IshaanNene/GapFill/internal/types"
)

// --- Enrichment Middleware ---

// RowEnricher fills missing product data into a row.
type RowEnricher interface {
	Enrich(ctx context.Context, row types.Row) types.Row
}

// EnrichMiddleware runs the enrichment core on each row.
type EnrichMiddleware struct {
	enricher RowEnricher
}

func NewEnrichMiddleware(e RowEnricher) *EnrichMiddleware {
	return &EnrichMiddleware{enricher: e}
}

func (m *EnrichMiddleware) Name() string { return "enrich" }

func (m *EnrichMiddleware) Process(ctx context.Context, row types.Row) (types.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.enricher.Enrich(ctx, row), nil
}

// NormalizeValuesMiddleware canonicalizes SKU, title and description values.
type NormalizeValuesMiddleware struct{}

func (m *NormalizeValuesMiddleware) Name() string { return "normalize_values" }

func (m *NormalizeValuesMiddleware) Process(_ context.Context, row types.Row) (types.Row, error) {
	return ingest.NormalizeRow(row), nil
}

// Options selects the optional stages of the standard chain.
type Options struct {
	NormalizeValues bool

	// Defaults fills fields still blank after enrichment.
	Defaults map[string]string

	// KeepFields limits output rows to these fields plus SCRAPED_PRODUCT_URL.
	KeepFields []string
}

// Standard builds the default chain: trim, optional value normalization,
// enrichment, defaults, the TITLE/SKU requirement, then field filtering.
func Standard(p *Pipeline, e RowEnricher, opts Options) *Pipeline {
	p.Use(&TrimMiddleware{})
	if opts.NormalizeValues {
		p.Use(&NormalizeValuesMiddleware{})
	}
	p.Use(NewEnrichMiddleware(e))
	if len(opts.Defaults) > 0 {
		defaults := make(map[string]string, len(opts.Defaults))
		for k, v := range opts.Defaults {
			defaults[strings.ToUpper(k)] = v
		}
		p.Use(&DefaultValueMiddleware{Defaults: defaults})
	}
	p.Use(&RequiredFieldsMiddleware{Fields: []string{types.FieldTitle, types.FieldSKU}})
	if len(opts.KeepFields) > 0 {
		keep := map[string]bool{types.FieldScrapedURL: true}
		for _, f := range opts.KeepFields {
			keep[strings.ToUpper(strings.TrimSpace(f))] = true
		}
		p.Use(&FieldFilterMiddleware{Fields: keep})
	}
	return p
}
