package types

import "strings"

// PlatformKind is the coarse storefront technology of a vendor site.
type PlatformKind string

const (
	PlatformWordPress PlatformKind = "wordpress"
	PlatformShopify   PlatformKind = "shopify"
	PlatformCustom    PlatformKind = "custom"
)

// String implements fmt.Stringer.
func (k PlatformKind) String() string { return string(k) }

// ScrapedProduct is the structured data extracted from a product page.
// Empty strings mean the field was not found.
type ScrapedProduct struct {
	Title           string   `json:"title,omitempty"`
	Price           string   `json:"price,omitempty"`
	DescriptionHTML string   `json:"description_html,omitempty"`
	Images          []string `json:"images,omitempty"`
	Variants        []string `json:"variants,omitempty"`
}

// AddImage appends an image URL unless it is blank or already present.
func (p *ScrapedProduct) AddImage(src string) bool {
	src = strings.TrimSpace(src)
	if src == "" {
		return false
	}
	for _, existing := range p.Images {
		if existing == src {
			return false
		}
	}
	p.Images = append(p.Images, src)
	return true
}

// AddVariant appends a variant label unless it is blank. Duplicates are kept.
func (p *ScrapedProduct) AddVariant(label string) bool {
	label = strings.TrimSpace(label)
	if label == "" {
		return false
	}
	p.Variants = append(p.Variants, label)
	return true
}

// IsEmpty returns true when nothing was extracted.
func (p *ScrapedProduct) IsEmpty() bool {
	return p.Title == "" && p.Price == "" && p.DescriptionHTML == "" &&
		len(p.Images) == 0 && len(p.Variants) == 0
}
