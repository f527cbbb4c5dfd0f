package types

import (
	"encoding/json"
	"sort"
	"strings"
)

// Canonical row field names.
const (
	FieldTitle           = "TITLE"
	FieldSKU             = "SKU"
	FieldWebsite         = "WEBSITE"
	FieldURL             = "URL"
	FieldBaseURL         = "BASE_URL"
	FieldPrice           = "PRICE"
	FieldDescriptionHTML = "DESCRIPTION_HTML"
	FieldImages          = "IMAGES"
	FieldVariants        = "VARIANTS"
	FieldScrapedURL      = "SCRAPED_PRODUCT_URL"
	FieldVendor          = "VENDOR"
	FieldQuantity        = "QUANTITY"
)

// SiteFields lists the fields that may carry the vendor website, in lookup order.
var SiteFields = []string{FieldWebsite, FieldURL, FieldBaseURL}

// Row is one spreadsheet record keyed by canonical field name.
// It is owned by the calling pipeline; the enrichment core mutates it in place.
type Row map[string]string

// NewRow creates an empty Row.
func NewRow() Row {
	return make(Row)
}

// Get returns a field value, or "" when absent.
func (r Row) Get(key string) string {
	return r[key]
}

// Set sets a field value.
func (r Row) Set(key, value string) {
	r[key] = value
}

// Has returns true if the field exists, even when blank.
func (r Row) Has(key string) bool {
	_, ok := r[key]
	return ok
}

// IsBlank reports whether a field is absent or whitespace-only.
func (r Row) IsBlank(key string) bool {
	return strings.TrimSpace(r[key]) == ""
}

// Site returns the first non-blank site field, trimmed.
func (r Row) Site() string {
	for _, key := range SiteFields {
		if v := strings.TrimSpace(r[key]); v != "" {
			return v
		}
	}
	return ""
}

// NormalizeSite trims raw and adds an https scheme when it has none.
func NormalizeSite(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	return raw
}

// Keys returns all field names in sorted order.
func (r Row) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone creates a copy of the row.
func (r Row) Clone() Row {
	clone := make(Row, len(r))
	for k, v := range r {
		clone[k] = v
	}
	return clone
}

// Equal reports field-for-field equality.
func (r Row) Equal(other Row) bool {
	if len(r) != len(other) {
		return false
	}
	for k, v := range r {
		ov, ok := other[k]
		if !ok || ov != v {
			return false
		}
	}
	return true
}

// ToJSON serializes the row to JSON bytes.
func (r Row) ToJSON() ([]byte, error) {
	return json.Marshal(map[string]string(r))
}

// SplitList splits a comma-joined field value into trimmed, non-empty parts.
func SplitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
