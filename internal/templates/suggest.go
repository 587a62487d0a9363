package templates

import (
	"net/url"
	"strings"
)

// suggestionRule maps domain/path substrings to a template ID.
type suggestionRule struct {
	templateID string
	substrings []string
}

// suggestionRules is evaluated in order; the first rule with a matching
// substring wins. The chain is deliberately deterministic so the same URL
// always yields the same template.
var suggestionRules = []suggestionRule{
	{
		templateID: "documentation",
		substrings: []string{"docs.", "/docs", "documentation", "readthedocs", "/manual", "/reference", "/api-docs"},
	},
	{
		templateID: "wiki",
		substrings: []string{"wiki", "confluence", "/wiki"},
	},
	{
		templateID: "ecommerce",
		substrings: []string{"shop", "store", "/product", "/products", "/catalog", "amazon.", "etsy."},
	},
	{
		templateID: "news",
		substrings: []string{"blog", "news", "/article", "/articles", "/post", "medium.", "substack."},
	},
	{
		templateID: "social",
		substrings: []string{"twitter.", "x.com", "facebook.", "linkedin.", "reddit.", "/forum", "/community"},
	},
}

// fallbackTemplateID is returned when no rule matches, keeping
// SuggestForURL total.
const fallbackTemplateID = "corporate"

// SuggestForURL picks the best-fitting template for a URL. The function is
// total: it always returns a template, falling back to the generic
// corporate profile.
func SuggestForURL(rawURL string) *WebsiteTemplate {
	haystack := strings.ToLower(rawURL)
	if parsed, err := url.Parse(rawURL); err == nil && parsed.Host != "" {
		haystack = strings.ToLower(parsed.Host + parsed.Path)
	}

	for _, rule := range suggestionRules {
		for _, sub := range rule.substrings {
			if strings.Contains(haystack, sub) {
				return catalog[rule.templateID]
			}
		}
	}

	return catalog[fallbackTemplateID]
}
