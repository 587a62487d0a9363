// Package fetcher fetches single pages through a prepared browsing context
// and extracts template-driven content, with robots.txt compliance.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// defaultRobotsCacheTTL is how long a parsed robots.txt is trusted.
const defaultRobotsCacheTTL = 24 * time.Hour

// robotsTxtPath is the well-known path for robots.txt files.
const robotsTxtPath = "/robots.txt"

// maxRobotsBodyBytes limits the size of robots.txt responses we will read.
const maxRobotsBodyBytes = 512 * 1024 // 512 KB

// RobotsChecker checks and caches robots.txt rules per host. Missing or
// errored robots.txt results in allow-all, the standard crawling practice.
type RobotsChecker struct {
	httpClient *http.Client
	userAgent  string
	cacheTTL   time.Duration

	mu    sync.RWMutex
	cache map[string]*robotsEntry // keyed by lowercased host
}

// robotsEntry stores parsed robots.txt data for one host.
type robotsEntry struct {
	data      *robotstxt.RobotsData
	fetchedAt time.Time
	allowAll  bool
}

// NewRobotsChecker creates a new RobotsChecker.
func NewRobotsChecker(httpClient *http.Client, userAgent string) *RobotsChecker {
	return &RobotsChecker{
		httpClient: httpClient,
		userAgent:  userAgent,
		cacheTTL:   defaultRobotsCacheTTL,
		cache:      make(map[string]*robotsEntry),
	}
}

// IsAllowed checks whether the URL is allowed by its host's robots.txt,
// fetching and caching the file on first use.
func (r *RobotsChecker) IsAllowed(ctx context.Context, rawURL string) (bool, error) {
	parsed, parseErr := url.Parse(rawURL)
	if parseErr != nil {
		return false, fmt.Errorf("robots: failed to parse url: %w", parseErr)
	}

	host := strings.ToLower(parsed.Host)
	if host == "" {
		return false, fmt.Errorf("robots: empty host in url %q", rawURL)
	}

	entry := r.cached(host)
	if entry == nil {
		entry = r.fetchAndCache(ctx, host, parsed.Scheme)
	}

	if entry.allowAll {
		return true, nil
	}

	return entry.data.TestAgent(parsed.Path, r.userAgent), nil
}

// cached returns a fresh cache entry for the host, or nil.
func (r *RobotsChecker) cached(host string) *robotsEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.cache[host]
	if !ok || time.Since(entry.fetchedAt) > r.cacheTTL {
		return nil
	}
	return entry
}

// fetchAndCache fetches robots.txt for the host and caches the result.
// Any fetch or parse failure degrades to allow-all.
func (r *RobotsChecker) fetchAndCache(ctx context.Context, host, scheme string) *robotsEntry {
	if scheme == "" {
		scheme = "https"
	}

	entry := &robotsEntry{fetchedAt: time.Now(), allowAll: true}

	body, statusCode, fetchErr := r.fetchRobots(ctx, scheme+"://"+host+robotsTxtPath)
	if fetchErr == nil && statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		if data, parseErr := robotstxt.FromBytes(body); parseErr == nil {
			entry.data = data
			entry.allowAll = false
		}
	}

	r.mu.Lock()
	r.cache[host] = entry
	r.mu.Unlock()

	return entry
}

// fetchRobots performs the HTTP GET for a robots.txt URL.
func (r *RobotsChecker) fetchRobots(ctx context.Context, robotsURL string) ([]byte, int, error) {
	req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, http.NoBody)
	if reqErr != nil {
		return nil, 0, fmt.Errorf("robots: failed to create request: %w", reqErr)
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, doErr := r.httpClient.Do(req)
	if doErr != nil {
		return nil, 0, fmt.Errorf("robots: failed to fetch: %w", doErr)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBodyBytes))
	if readErr != nil {
		return nil, resp.StatusCode, fmt.Errorf("robots: failed to read body: %w", readErr)
	}

	return body, resp.StatusCode, nil
}
