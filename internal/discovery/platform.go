package discovery

import (
	"strings"

	"github.com/IshaanNene/GapFill/internal/types"
)

// PlatformRule maps a set of lower-case signature tokens to a platform.
// A rule matches when the page contains any of its tokens.
type PlatformRule struct {
	Kind   types.PlatformKind
	Tokens []string
}

// DefaultPlatformRules is evaluated top to bottom; first match wins.
// Order matters: one page may carry tokens of several platforms.
var DefaultPlatformRules = []PlatformRule{
	{Kind: types.PlatformWordPress, Tokens: []string{"woocommerce", "wp-content"}},
	{Kind: types.PlatformShopify, Tokens: []string{"shopify"}},
}

// Classifier infers a site's platform from its homepage markup.
type Classifier struct {
	rules []PlatformRule
}

// NewClassifier creates a classifier. With no rules it uses DefaultPlatformRules.
func NewClassifier(rules ...PlatformRule) *Classifier {
	if len(rules) == 0 {
		rules = DefaultPlatformRules
	}
	return &Classifier{rules: rules}
}

// Classify returns the first matching platform, or PlatformCustom.
func (c *Classifier) Classify(body string) types.PlatformKind {
	lower := strings.ToLower(body)
	for _, rule := range c.rules {
		for _, token := range rule.Tokens {
			if strings.Contains(lower, token) {
				return rule.Kind
			}
		}
	}
	return types.PlatformCustom
}
