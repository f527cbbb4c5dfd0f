package ingest

import (
	"sort"
	"strings"
)

// ColumnNormalizer maps spreadsheet headers to canonical field names.
// A header matches an alias when, with spaces removed and lower-cased,
// it equals the alias.
type ColumnNormalizer struct {
	canonical []string
	aliases   map[string][]string
}

// NewColumnNormalizer creates a normalizer from canonical → aliases.
func NewColumnNormalizer(aliases map[string][]string) *ColumnNormalizer {
	n := &ColumnNormalizer{aliases: make(map[string][]string, len(aliases))}
	for key, names := range aliases {
		key = strings.ToUpper(strings.TrimSpace(key))
		cleaned := make([]string, 0, len(names)+1)
		for _, name := range names {
			cleaned = append(cleaned, cleanHeader(name))
		}
		cleaned = append(cleaned, cleanHeader(key))
		n.aliases[key] = cleaned
		n.canonical = append(n.canonical, key)
	}
	sort.Strings(n.canonical)
	return n
}

// Map returns the canonical name for each header. Headers that match no
// alias keep their trimmed original name. Each canonical name is assigned
// to at most one column: the first unclaimed matching one.
func (n *ColumnNormalizer) Map(headers []string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		out[i] = strings.TrimSpace(h)
	}

	claimed := make([]bool, len(headers))
	for _, key := range n.canonical {
		for i, h := range headers {
			if !claimed[i] && matches(cleanHeader(h), n.aliases[key]) {
				out[i] = key
				claimed[i] = true
				break
			}
		}
	}
	return out
}

// Canonical returns the canonical name for a single header, or "" when
// nothing matches.
func (n *ColumnNormalizer) Canonical(header string) string {
	cleaned := cleanHeader(header)
	for _, key := range n.canonical {
		if matches(cleaned, n.aliases[key]) {
			return key
		}
	}
	return ""
}

func matches(cleaned string, aliases []string) bool {
	for _, a := range aliases {
		if cleaned == a {
			return true
		}
	}
	return false
}

func cleanHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(h), " ", ""))
}
