package enrich

import (
	"strings"

	"github.com/IshaanNene/GapFill/internal/types"
)

// ListSeparator joins multi-valued fields such as IMAGES and VARIANTS.
const ListSeparator = ", "

// Merger writes scraped product data into a row.
//
// Vendor-supplied text (TITLE, PRICE, DESCRIPTION_HTML) is authoritative and
// only filled when blank. IMAGES and VARIANTS are always replaced with the
// scraped lists, even when those are empty.
type Merger struct{}

// NewMerger creates a Merger.
func NewMerger() *Merger {
	return &Merger{}
}

// Apply merges scraped into row and returns the same row.
func (m *Merger) Apply(row types.Row, scraped types.ScrapedProduct, scrapedURL string) types.Row {
	m.apply(row, scraped, scrapedURL)
	return row
}

// apply returns the names of the fields it wrote.
func (m *Merger) apply(row types.Row, scraped types.ScrapedProduct, scrapedURL string) []string {
	row.Set(types.FieldScrapedURL, scrapedURL)
	written := []string{types.FieldScrapedURL}

	fill := func(field, value string) {
		if !row.IsBlank(field) {
			return
		}
		if value = strings.TrimSpace(value); value == "" {
			return
		}
		row.Set(field, value)
		written = append(written, field)
	}
	fill(types.FieldTitle, scraped.Title)
	fill(types.FieldPrice, scraped.Price)
	fill(types.FieldDescriptionHTML, scraped.DescriptionHTML)

	row.Set(types.FieldImages, strings.Join(scraped.Images, ListSeparator))
	row.Set(types.FieldVariants, strings.Join(scraped.Variants, ListSeparator))
	written = append(written, types.FieldImages, types.FieldVariants)

	return written
}
