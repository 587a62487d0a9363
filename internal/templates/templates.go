// Package templates provides the static catalog of crawling profiles.
// A template bundles extraction selectors, traversal limits, and behavior
// flags tuned for a site category. Templates are pure configuration and
// are never mutated at runtime.
package templates

import (
	"errors"
	"time"
)

// ErrTemplateNotFound is returned when no template exists for an ID.
var ErrTemplateNotFound = errors.New("template not found")

// WebsiteTemplate describes how to crawl and extract one category of site.
type WebsiteTemplate struct {
	ID       string `json:"id"`
	Category string `json:"category"`

	// Traversal limits
	MaxDepth int           `json:"max_depth"`
	MaxPages int           `json:"max_pages"`
	Timeout  time.Duration `json:"timeout"`
	Delay    time.Duration `json:"delay"`

	// ContentPriority lists selectors tried in order for the primary
	// content; the first selector yielding non-trivial text wins.
	ContentPriority []string `json:"content_priority"`
	// ExcludedElements are stripped before text extraction.
	ExcludedElements []string `json:"excluded_elements"`

	// URL pattern gates, applied as substring matches against the path.
	IncludePatterns []string `json:"include_patterns,omitempty"`
	ExcludePatterns []string `json:"exclude_patterns,omitempty"`

	// Behavior flags
	RespectRobots bool `json:"respect_robots"`
	ExtractImages bool `json:"extract_images"`
}

// Common excluded elements shared by most profiles.
var commonExcluded = []string{
	"script", "style", "nav", "header", "footer", "aside",
	"form", "iframe", "noscript",
}

// catalog is the static template library, keyed by ID.
var catalog = map[string]*WebsiteTemplate{
	"documentation": {
		ID:       "documentation",
		Category: "documentation",
		MaxDepth: 4,
		MaxPages: 200,
		Timeout:  30 * time.Second,
		Delay:    500 * time.Millisecond,
		ContentPriority: []string{
			"main article", "main .content", "article", "main",
			".documentation", ".docs-content", "#content",
		},
		ExcludedElements: append([]string{".sidebar", ".toc", ".breadcrumb"}, commonExcluded...),
		ExcludePatterns:  []string{"/search", "/login", "/edit"},
		RespectRobots:    true,
		ExtractImages:    false,
	},
	"wiki": {
		ID:       "wiki",
		Category: "wiki",
		MaxDepth: 3,
		MaxPages: 150,
		Timeout:  30 * time.Second,
		Delay:    1 * time.Second,
		ContentPriority: []string{
			"#mw-content-text", ".mw-parser-output", "#content", "article", "main",
		},
		ExcludedElements: append([]string{".navbox", ".infobox", ".mw-editsection", "#toc"}, commonExcluded...),
		ExcludePatterns:  []string{"Special:", "Talk:", "User:", "/index.php?action="},
		RespectRobots:    true,
		ExtractImages:    false,
	},
	"ecommerce": {
		ID:       "ecommerce",
		Category: "ecommerce",
		MaxDepth: 3,
		MaxPages: 100,
		Timeout:  30 * time.Second,
		Delay:    2 * time.Second,
		ContentPriority: []string{
			".product-description", ".product-details", "[itemprop='description']",
			"main", "#content",
		},
		ExcludedElements: append([]string{".reviews", ".recommendations", ".cart"}, commonExcluded...),
		ExcludePatterns:  []string{"/cart", "/checkout", "/account", "/wishlist"},
		RespectRobots:    true,
		ExtractImages:    true,
	},
	"news": {
		ID:       "news",
		Category: "news",
		MaxDepth: 2,
		MaxPages: 100,
		Timeout:  30 * time.Second,
		Delay:    1 * time.Second,
		ContentPriority: []string{
			"article", ".article-body", ".post-content", ".entry-content",
			"[itemprop='articleBody']", "main",
		},
		ExcludedElements: append([]string{".comments", ".related", ".share", ".ad"}, commonExcluded...),
		ExcludePatterns:  []string{"/tag/", "/category/", "/author/", "/archive"},
		RespectRobots:    true,
		ExtractImages:    true,
	},
	"social": {
		ID:       "social",
		Category: "social",
		MaxDepth: 1,
		MaxPages: 50,
		Timeout:  45 * time.Second,
		Delay:    3 * time.Second,
		ContentPriority: []string{
			"[role='main']", ".post", ".thread", "article", "main",
		},
		ExcludedElements: commonExcluded,
		ExcludePatterns:  []string{"/login", "/signup", "/settings", "/notifications"},
		RespectRobots:    true,
		ExtractImages:    false,
	},
	"corporate": {
		ID:       "corporate",
		Category: "corporate",
		MaxDepth: 3,
		MaxPages: 100,
		Timeout:  30 * time.Second,
		Delay:    1 * time.Second,
		ContentPriority: []string{
			"main", "article", "#content", ".content", ".main-content",
		},
		ExcludedElements: commonExcluded,
		ExcludePatterns:  []string{"/privacy", "/terms", "/legal"},
		RespectRobots:    true,
		ExtractImages:    true,
	},
}

// ByID returns the template with the given ID.
func ByID(id string) (*WebsiteTemplate, error) {
	tmpl, ok := catalog[id]
	if !ok {
		return nil, ErrTemplateNotFound
	}
	return tmpl, nil
}

// IDs returns all template IDs in the catalog.
func IDs() []string {
	ids := make([]string, 0, len(catalog))
	for id := range catalog {
		ids = append(ids, id)
	}
	return ids
}
