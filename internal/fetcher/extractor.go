package fetcher

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/sitewatch/sitewatch/internal/domain"
	"github.com/sitewatch/sitewatch/internal/templates"
)

// minContentLength is the minimum text length for a content selector to be
// accepted before falling through to the next candidate.
const minContentLength = 100

// wordsPerMinute is the reading speed used for the reading-time estimate.
const wordsPerMinute = 200

// Extractor applies a template's selectors to a parsed page.
type Extractor struct{}

// NewExtractor creates a new extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract builds a ScrapedPage from a parsed document. It never fails:
// empty or near-empty pages still produce a valid result so the traversal
// can record them as low-value pages instead of errors.
func (e *Extractor) Extract(
	doc *goquery.Document,
	rawHTML, pageURL string,
	depth int,
	parentURL string,
	tmpl *templates.WebsiteTemplate,
) *domain.ScrapedPage {
	base, _ := url.Parse(pageURL)

	content := e.extractContent(doc, rawHTML, pageURL, tmpl)
	words := len(strings.Fields(content))

	page := &domain.ScrapedPage{
		URL:         pageURL,
		Title:       extractTitle(doc),
		Content:     content,
		ContentHash: HashContent(content),
		Metadata:    extractMetadata(doc),
		Headings:    extractHeadings(doc),
		Links:       extractRefs(doc, base, "a[href]", "href"),
		Depth:       depth,
		ParentURL:   parentURL,
		WordCount:   words,
		ReadingTime: (words + wordsPerMinute - 1) / wordsPerMinute,
		FetchedAt:   time.Now(),
	}

	if tmpl.ExtractImages {
		page.Images = extractRefs(doc, base, "img[src]", "src")
	}

	return page
}

// HashContent returns the hex-encoded SHA-256 digest of cleaned content.
func HashContent(content string) string {
	h := sha256.Sum256([]byte(content))
	return hex.EncodeToString(h[:])
}

// extractContent tries the template's content selectors in priority order,
// then a readability pass, then the stripped body text.
func (e *Extractor) extractContent(
	doc *goquery.Document,
	rawHTML, pageURL string,
	tmpl *templates.WebsiteTemplate,
) string {
	excluded := strings.Join(tmpl.ExcludedElements, ", ")

	for _, selector := range tmpl.ContentPriority {
		node := doc.Find(selector).First()
		if node.Length() == 0 {
			continue
		}

		cleaned := node.Clone()
		if excluded != "" {
			cleaned.Find(excluded).Remove()
		}

		text := normalizeWhitespace(cleaned.Text())
		if len(text) > minContentLength {
			return text
		}
	}

	if text := readabilityText(rawHTML, pageURL); len(text) > minContentLength {
		return text
	}

	body := doc.Find("body").First().Clone()
	if excluded != "" {
		body.Find(excluded).Remove()
	}
	return normalizeWhitespace(body.Text())
}

// readabilityText runs a readability-style extraction over the full
// document. Returns empty on any failure; this is a fallback only.
func readabilityText(rawHTML, pageURL string) string {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}

	article, err := readability.FromReader(strings.NewReader(rawHTML), parsedURL)
	if err != nil {
		return ""
	}

	return normalizeWhitespace(article.TextContent)
}

// extractTitle prefers <title>, then og:title.
func extractTitle(doc *goquery.Document) string {
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}

	if ogTitle, exists := doc.Find("meta[property='og:title']").Attr("content"); exists {
		return strings.TrimSpace(ogTitle)
	}

	return ""
}

// metaSources lists fallback selector/attribute sources per metadata field,
// first match wins.
var metaSources = map[string][]string{
	"description": {
		"meta[name='description']",
		"meta[property='og:description']",
		"meta[name='twitter:description']",
	},
	"keywords": {"meta[name='keywords']"},
	"author": {
		"meta[name='author']",
		"meta[property='article:author']",
		"[itemprop='author']",
	},
	"published": {
		"meta[property='article:published_time']",
		"meta[name='date']",
		"time[datetime]",
		"[itemprop='datePublished']",
	},
	"modified": {
		"meta[property='article:modified_time']",
		"[itemprop='dateModified']",
	},
}

// extractMetadata pulls structured metadata with first-match-wins fallback
// chains over meta tags, og:/twitter: variants, and microdata.
func extractMetadata(doc *goquery.Document) domain.PageMetadata {
	meta := domain.PageMetadata{
		Description: firstMetaValue(doc, metaSources["description"]),
		Keywords:    firstMetaValue(doc, metaSources["keywords"]),
		Author:      firstMetaValue(doc, metaSources["author"]),
		Published:   firstMetaValue(doc, metaSources["published"]),
		Modified:    firstMetaValue(doc, metaSources["modified"]),
	}

	if lang, exists := doc.Find("html").Attr("lang"); exists {
		meta.Language = strings.TrimSpace(lang)
	}

	return meta
}

// firstMetaValue returns the first non-empty value across the source
// selectors, reading content, then datetime, then element text.
func firstMetaValue(doc *goquery.Document, selectors []string) string {
	for _, selector := range selectors {
		node := doc.Find(selector).First()
		if node.Length() == 0 {
			continue
		}

		if content, exists := node.Attr("content"); exists && strings.TrimSpace(content) != "" {
			return strings.TrimSpace(content)
		}
		if datetime, exists := node.Attr("datetime"); exists && strings.TrimSpace(datetime) != "" {
			return strings.TrimSpace(datetime)
		}
		if text := strings.TrimSpace(node.Text()); text != "" {
			return text
		}
	}

	return ""
}

// extractHeadings collects h1-h6 headings in document order.
func extractHeadings(doc *goquery.Document) []domain.Heading {
	var headings []domain.Heading

	doc.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		text := normalizeWhitespace(s.Text())
		if text == "" {
			return
		}
		headings = append(headings, domain.Heading{
			Tag:  goquery.NodeName(s),
			Text: text,
		})
	})

	return headings
}

// extractRefs collects absolute http(s) URLs from the given attribute,
// deduplicated in document order. Malformed URLs are skipped, not fatal.
func extractRefs(doc *goquery.Document, base *url.URL, selector, attr string) []string {
	seen := make(map[string]struct{})
	var refs []string

	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		raw, _ := s.Attr(attr)
		raw = strings.TrimSpace(raw)
		if raw == "" || base == nil {
			return
		}

		resolved, err := base.Parse(raw)
		if err != nil {
			return
		}

		resolved.Fragment = ""
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}

		abs := resolved.String()
		if _, dup := seen[abs]; dup {
			return
		}
		seen[abs] = struct{}{}
		refs = append(refs, abs)
	})

	return refs
}

// normalizeWhitespace collapses runs of whitespace into single spaces.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
