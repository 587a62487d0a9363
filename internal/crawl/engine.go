// Package crawl drives the fetcher across a bounded graph of same-site
// URLs, producing the result set and structured error list for one run.
package crawl

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/sitewatch/sitewatch/internal/authn"
	"github.com/sitewatch/sitewatch/internal/domain"
	"github.com/sitewatch/sitewatch/internal/logger"
	"github.com/sitewatch/sitewatch/internal/templates"
)

// PageFetcher fetches and extracts one URL. Satisfied by fetcher.Fetcher;
// stubbed in tests.
type PageFetcher interface {
	Fetch(
		ctx context.Context,
		pageURL string,
		depth int,
		parentURL string,
		tmpl *templates.WebsiteTemplate,
	) (*domain.ScrapedPage, error)
}

// Options bound one crawl run. Zero values fall back to the template's
// limits.
type Options struct {
	MaxDepth int
	MaxPages int
	Delay    time.Duration
	// HasCredential reports whether the run has any credential configured.
	// Without one, known SSO-protected internal domains are short-circuited
	// instead of burning the page budget on guaranteed failures.
	HasCredential bool
}

// Summary aggregates one crawl run.
type Summary struct {
	URLsProcessed  int           `json:"urls_processed"`
	URLsSuccessful int           `json:"urls_successful"`
	URLsFailed     int           `json:"urls_failed"`
	Duration       time.Duration `json:"duration"`
}

// Result is the outcome of one traversal.
type Result struct {
	Pages   []*domain.ScrapedPage `json:"pages"`
	Errors  domain.RunLogs        `json:"errors"`
	Summary Summary               `json:"summary"`
}

// queueItem is one pending URL in the FIFO work queue.
type queueItem struct {
	url       string
	depth     int
	parentURL string
}

// Engine walks a site breadth-first within configured limits.
type Engine struct {
	fetcher PageFetcher
	log     logger.Interface
}

// NewEngine creates a traversal engine.
func NewEngine(fetcher PageFetcher, log logger.Interface) *Engine {
	return &Engine{fetcher: fetcher, log: log}
}

// Crawl walks the site starting at baseURL. Pages are processed in FIFO
// discovery order, one URL in flight at a time. Every URL ends up in at
// most one of results or errors, which guarantees termination even on
// cyclic link graphs.
func (e *Engine) Crawl(
	ctx context.Context,
	baseURL string,
	opts Options,
	tmpl *templates.WebsiteTemplate,
) (*Result, error) {
	started := time.Now()
	result := &Result{}

	base, parseErr := url.Parse(baseURL)
	if parseErr != nil || base.Host == "" {
		result.Errors = append(result.Errors, domain.RunLogEntry{
			URL:   baseURL,
			Error: "invalid base url",
		})
		result.Summary = summarize(result, started)
		return result, nil
	}

	if authn.IsInternalDomain(baseURL) && !opts.HasCredential {
		cls := authn.ClassifyError(baseURL, "unauthorized")
		result.Errors = append(result.Errors, domain.RunLogEntry{
			URL:              baseURL,
			Error:            "internal SSO-protected domain with no credential configured; " + cls.Suggestion,
			NeedsCredentials: true,
			LoginMethod:      cls.LoginMethod,
		})
		result.Summary = summarize(result, started)
		return result, nil
	}

	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = tmpl.MaxDepth
	}
	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = tmpl.MaxPages
	}
	delay := opts.Delay
	if delay <= 0 {
		delay = tmpl.Delay
	}

	visited := make(map[string]struct{})
	failed := make(map[string]struct{})
	queue := []queueItem{{url: baseURL, depth: 0}}
	seed := normalizeURL(baseURL)
	processed := 0

	for len(queue) > 0 && processed < maxPages {
		if ctx.Err() != nil {
			e.log.Warn("Crawl cancelled", "base_url", baseURL, "processed", processed)
			break
		}

		item := queue[0]
		queue = queue[1:]

		normalized := normalizeURL(item.url)
		if _, seen := visited[normalized]; seen {
			continue
		}
		if _, seen := failed[normalized]; seen {
			continue
		}
		if item.depth > maxDepth {
			continue
		}
		// The seed URL is always admissible regardless of URL patterns.
		if normalized != seed && !e.admissible(item.url, base, tmpl) {
			continue
		}

		if processed > 0 {
			if !sleepOrCancel(ctx, delay) {
				break
			}
		}
		processed++

		page, fetchErr := e.fetcher.Fetch(ctx, item.url, item.depth, item.parentURL, tmpl)
		if fetchErr != nil {
			failed[normalized] = struct{}{}
			result.Errors = append(result.Errors, classifyEntry(item.url, fetchErr))
			e.log.Warn("Page failed", "url", item.url, "error", fetchErr.Error())
			continue
		}

		visited[normalized] = struct{}{}
		result.Pages = append(result.Pages, page)
		e.log.Debug("Page crawled", "url", item.url, "depth", item.depth, "links", len(page.Links))

		if item.depth < maxDepth {
			queue = e.enqueueChildren(queue, page, item, base, visited, failed)
		}
	}

	result.Summary = summarize(result, started)
	e.log.Info("Crawl finished",
		"base_url", baseURL,
		"pages", len(result.Pages),
		"errors", len(result.Errors),
		"duration", result.Summary.Duration.String(),
	)

	return result, nil
}

// enqueueChildren appends same-origin child links at depth+1, skipping
// URLs already visited, failed, or queued.
func (e *Engine) enqueueChildren(
	queue []queueItem,
	page *domain.ScrapedPage,
	parent queueItem,
	base *url.URL,
	visited, failed map[string]struct{},
) []queueItem {
	queued := make(map[string]struct{}, len(queue))
	for _, item := range queue {
		queued[normalizeURL(item.url)] = struct{}{}
	}

	for _, link := range page.Links {
		normalized := normalizeURL(link)
		if _, seen := visited[normalized]; seen {
			continue
		}
		if _, seen := failed[normalized]; seen {
			continue
		}
		if _, seen := queued[normalized]; seen {
			continue
		}
		if !sameOrigin(link, base) {
			continue
		}

		queued[normalized] = struct{}{}
		queue = append(queue, queueItem{
			url:       link,
			depth:     parent.depth + 1,
			parentURL: parent.url,
		})
	}

	return queue
}

// admissible applies the same-origin check and the template's URL pattern
// gates.
func (e *Engine) admissible(rawURL string, base *url.URL, tmpl *templates.WebsiteTemplate) bool {
	if !sameOrigin(rawURL, base) {
		return false
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	pathAndQuery := parsed.Path
	if parsed.RawQuery != "" {
		pathAndQuery += "?" + parsed.RawQuery
	}

	for _, pattern := range tmpl.ExcludePatterns {
		if strings.Contains(pathAndQuery, pattern) {
			return false
		}
	}

	if len(tmpl.IncludePatterns) == 0 {
		return true
	}
	for _, pattern := range tmpl.IncludePatterns {
		if strings.Contains(pathAndQuery, pattern) {
			return true
		}
	}

	return false
}

// sameOrigin reports whether the URL shares the base URL's host.
func sameOrigin(rawURL string, base *url.URL) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(parsed.Host, base.Host)
}

// normalizeURL produces the dedup key for a URL: lowercased host, no
// fragment, no trailing slash (except the root path).
func normalizeURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	parsed.Fragment = ""
	parsed.Host = strings.ToLower(parsed.Host)
	if parsed.Path != "/" {
		parsed.Path = strings.TrimSuffix(parsed.Path, "/")
	}

	return parsed.String()
}

// classifyEntry converts a fetch error into a structured run log entry.
func classifyEntry(pageURL string, fetchErr error) domain.RunLogEntry {
	entry := domain.RunLogEntry{
		URL:   pageURL,
		Error: fetchErr.Error(),
	}

	cls := authn.ClassifyError(pageURL, fetchErr.Error())
	if cls.IsAuthError {
		entry.NeedsCredentials = cls.NeedsCredentials
		entry.LoginMethod = cls.LoginMethod
		if cls.Suggestion != "" {
			entry.Error += "; " + cls.Suggestion
		}
	}

	return entry
}

// sleepOrCancel waits for the inter-request delay. Returns false when the
// context is cancelled first.
func sleepOrCancel(ctx context.Context, delay time.Duration) bool {
	if delay <= 0 {
		return true
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(delay):
		return true
	}
}

// summarize fills the run summary from the accumulated result.
func summarize(result *Result, started time.Time) Summary {
	return Summary{
		URLsProcessed:  len(result.Pages) + len(result.Errors),
		URLsSuccessful: len(result.Pages),
		URLsFailed:     len(result.Errors),
		Duration:       time.Since(started),
	}
}
