package ingest

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/IshaanNene/GapFill/internal/types"
)

// NormalizeSKU folds compatibility characters, drops spaces and '#',
// and upper-cases a SKU.
func NormalizeSKU(v string) string {
	v = strings.TrimSpace(norm.NFKC.String(v))
	v = strings.ReplaceAll(v, " ", "")
	v = strings.ReplaceAll(v, "#", "")
	return strings.ToUpper(v)
}

// NormalizeName folds compatibility characters (full-width letters,
// ligatures) and collapses runs of whitespace to single spaces.
func NormalizeName(v string) string {
	return strings.Join(strings.Fields(norm.NFKC.String(v)), " ")
}

// NormalizeDescription trims surrounding whitespace.
func NormalizeDescription(v string) string {
	return strings.TrimSpace(v)
}

// NormalizeRow applies the value normalizers to the fields they cover.
// Absent fields stay absent.
func NormalizeRow(row types.Row) types.Row {
	if row.Has(types.FieldSKU) {
		row.Set(types.FieldSKU, NormalizeSKU(row.Get(types.FieldSKU)))
	}
	if row.Has(types.FieldTitle) {
		row.Set(types.FieldTitle, NormalizeName(row.Get(types.FieldTitle)))
	}
	if row.Has(types.FieldDescriptionHTML) {
		row.Set(types.FieldDescriptionHTML, NormalizeDescription(row.Get(types.FieldDescriptionHTML)))
	}
	return row
}
