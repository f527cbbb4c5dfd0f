package extract

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// StructuredProduct is the subset of a schema.org Product used as a fallback.
type StructuredProduct struct {
	Name  string
	Price string
}

// ProductFromJSONLD returns the first schema.org Product found in the
// page's JSON-LD blocks. Malformed blocks are skipped.
func ProductFromJSONLD(doc *goquery.Document) (StructuredProduct, bool) {
	for _, node := range jsonLDNodes(doc) {
		if p, ok := productFromNode(node); ok {
			return p, true
		}
	}
	return StructuredProduct{}, false
}

// jsonLDNodes parses <script type="application/ld+json"> elements,
// flattening top-level arrays and @graph containers.
func jsonLDNodes(doc *goquery.Document) []map[string]any {
	var nodes []map[string]any

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, sel *goquery.Selection) {
		raw := strings.TrimSpace(sel.Text())
		if raw == "" {
			return
		}

		var data any
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			return
		}
		nodes = appendNodes(nodes, data)
	})

	return nodes
}

func appendNodes(nodes []map[string]any, data any) []map[string]any {
	switch v := data.(type) {
	case map[string]any:
		nodes = append(nodes, v)
		if graph, ok := v["@graph"]; ok {
			nodes = appendNodes(nodes, graph)
		}
	case []any:
		for _, item := range v {
			nodes = appendNodes(nodes, item)
		}
	}
	return nodes
}

func productFromNode(node map[string]any) (StructuredProduct, bool) {
	if !hasType(node["@type"], "Product") {
		return StructuredProduct{}, false
	}
	p := StructuredProduct{Name: strings.TrimSpace(scalar(node["name"]))}
	p.Price = offerPrice(node["offers"])
	return p, p.Name != "" || p.Price != ""
}

func hasType(v any, want string) bool {
	switch t := v.(type) {
	case string:
		return strings.EqualFold(t, want)
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && strings.EqualFold(s, want) {
				return true
			}
		}
	}
	return false
}

// offerPrice reads price (or lowPrice for aggregate offers) from an
// offers object or the first entry of an offers array.
func offerPrice(v any) string {
	switch o := v.(type) {
	case map[string]any:
		if price := strings.TrimSpace(scalar(o["price"])); price != "" {
			return price
		}
		return strings.TrimSpace(scalar(o["lowPrice"]))
	case []any:
		if len(o) > 0 {
			return offerPrice(o[0])
		}
	}
	return ""
}

func scalar(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}
