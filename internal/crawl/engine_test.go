package crawl_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitewatch/sitewatch/internal/crawl"
	"github.com/sitewatch/sitewatch/internal/domain"
	"github.com/sitewatch/sitewatch/internal/logger"
	"github.com/sitewatch/sitewatch/internal/templates"
)

// stubFetcher serves a canned link graph and records fetch order.
type stubFetcher struct {
	site    map[string][]string // url -> links
	failing map[string]error
	fetched []string
}

func (f *stubFetcher) Fetch(
	_ context.Context,
	pageURL string,
	depth int,
	parentURL string,
	_ *templates.WebsiteTemplate,
) (*domain.ScrapedPage, error) {
	f.fetched = append(f.fetched, pageURL)

	if err, fails := f.failing[pageURL]; fails {
		return nil, err
	}

	links, known := f.site[pageURL]
	if !known {
		return nil, errors.New("http status 404 fetching " + pageURL)
	}

	return &domain.ScrapedPage{
		URL:       pageURL,
		Title:     pageURL,
		Content:   "content of " + pageURL,
		Links:     links,
		Depth:     depth,
		ParentURL: parentURL,
	}, nil
}

func testTemplate() *templates.WebsiteTemplate {
	tmpl, err := templates.ByID("corporate")
	if err != nil {
		panic(err)
	}
	copied := *tmpl
	copied.Delay = 0
	copied.ExcludePatterns = nil
	copied.IncludePatterns = nil
	return &copied
}

func newEngine(f crawl.PageFetcher) *crawl.Engine {
	return crawl.NewEngine(f, logger.NewNoop())
}

func TestEngine_CrawlsSiteBreadthFirst(t *testing.T) {
	f := &stubFetcher{site: map[string][]string{
		"https://example.com":   {"https://example.com/a", "https://example.com/b"},
		"https://example.com/a": {},
		"https://example.com/b": {},
	}}

	result, err := newEngine(f).Crawl(context.Background(), "https://example.com",
		crawl.Options{MaxDepth: 2, MaxPages: 10}, testTemplate())
	require.NoError(t, err)

	assert.Len(t, result.Pages, 3)
	assert.Empty(t, result.Errors)
	assert.Equal(t, []string{
		"https://example.com",
		"https://example.com/a",
		"https://example.com/b",
	}, f.fetched, "pages must be visited in FIFO discovery order")

	assert.Equal(t, 3, result.Summary.URLsProcessed)
	assert.Equal(t, 3, result.Summary.URLsSuccessful)
	assert.Zero(t, result.Summary.URLsFailed)
}

func TestEngine_TerminatesOnCycles(t *testing.T) {
	f := &stubFetcher{site: map[string][]string{
		"https://example.com":   {"https://example.com/a"},
		"https://example.com/a": {"https://example.com/b"},
		"https://example.com/b": {"https://example.com", "https://example.com/a"},
	}}

	result, err := newEngine(f).Crawl(context.Background(), "https://example.com",
		crawl.Options{MaxDepth: 10, MaxPages: 100}, testTemplate())
	require.NoError(t, err)

	assert.Len(t, result.Pages, 3, "each URL is fetched exactly once despite cycles")
	assert.Len(t, f.fetched, 3)
}

func TestEngine_RespectsDepthBound(t *testing.T) {
	f := &stubFetcher{site: map[string][]string{
		"https://example.com":       {"https://example.com/l1"},
		"https://example.com/l1":    {"https://example.com/l2"},
		"https://example.com/l2":    {"https://example.com/l3"},
		"https://example.com/l3":    {"https://example.com/never"},
		"https://example.com/never": {},
	}}

	result, err := newEngine(f).Crawl(context.Background(), "https://example.com",
		crawl.Options{MaxDepth: 2, MaxPages: 100}, testTemplate())
	require.NoError(t, err)

	assert.Len(t, result.Pages, 3, "depth 0, 1, 2")
	assert.NotContains(t, f.fetched, "https://example.com/l3")
}

func TestEngine_RespectsPageBudget(t *testing.T) {
	f := &stubFetcher{site: map[string][]string{
		"https://example.com": {
			"https://example.com/1", "https://example.com/2",
			"https://example.com/3", "https://example.com/4",
		},
		"https://example.com/1": {},
		"https://example.com/2": {},
		"https://example.com/3": {},
		"https://example.com/4": {},
	}}

	result, err := newEngine(f).Crawl(context.Background(), "https://example.com",
		crawl.Options{MaxDepth: 3, MaxPages: 3}, testTemplate())
	require.NoError(t, err)

	assert.Equal(t, 3, result.Summary.URLsProcessed, "failed fetches also consume the budget")
	assert.Len(t, f.fetched, 3)
}

func TestEngine_FailedPageDoesNotAbortCrawl(t *testing.T) {
	f := &stubFetcher{
		site: map[string][]string{
			"https://example.com":    {"https://example.com/bad", "https://example.com/good"},
			"https://example.com/good": {},
		},
		failing: map[string]error{
			"https://example.com/bad": errors.New("http status 500 fetching page"),
		},
	}

	result, err := newEngine(f).Crawl(context.Background(), "https://example.com",
		crawl.Options{MaxDepth: 2, MaxPages: 10}, testTemplate())
	require.NoError(t, err)

	assert.Len(t, result.Pages, 2)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "https://example.com/bad", result.Errors[0].URL)
	assert.Equal(t, 1, result.Summary.URLsFailed)
}

func TestEngine_AuthFailureIsClassified(t *testing.T) {
	f := &stubFetcher{
		site: map[string][]string{
			"https://github.com": {"https://github.com/org/private"},
		},
		failing: map[string]error{
			"https://github.com/org/private": errors.New("http status 403 fetching page"),
		},
	}

	result, err := newEngine(f).Crawl(context.Background(), "https://github.com",
		crawl.Options{MaxDepth: 2, MaxPages: 10, HasCredential: true}, testTemplate())
	require.NoError(t, err)

	require.Len(t, result.Errors, 1)
	entry := result.Errors[0]
	assert.True(t, entry.NeedsCredentials)
	assert.NotEmpty(t, entry.LoginMethod)
	assert.Contains(t, entry.Error, "403")
}

func TestEngine_SkipsOtherOrigins(t *testing.T) {
	f := &stubFetcher{site: map[string][]string{
		"https://example.com":       {"https://elsewhere.org/page", "https://example.com/here"},
		"https://example.com/here":  {},
		"https://elsewhere.org/page": {},
	}}

	result, err := newEngine(f).Crawl(context.Background(), "https://example.com",
		crawl.Options{MaxDepth: 2, MaxPages: 10}, testTemplate())
	require.NoError(t, err)

	assert.Len(t, result.Pages, 2)
	assert.NotContains(t, f.fetched, "https://elsewhere.org/page")
}

func TestEngine_InvalidBaseURL(t *testing.T) {
	f := &stubFetcher{}

	result, err := newEngine(f).Crawl(context.Background(), "not a url",
		crawl.Options{}, testTemplate())
	require.NoError(t, err)

	assert.Empty(t, result.Pages)
	require.Len(t, result.Errors, 1)
	assert.Empty(t, f.fetched)
}

func TestEngine_InternalDomainWithoutCredential(t *testing.T) {
	f := &stubFetcher{}

	result, err := newEngine(f).Crawl(context.Background(), "https://mycompany.atlassian.net/wiki",
		crawl.Options{HasCredential: false}, testTemplate())
	require.NoError(t, err)

	assert.Empty(t, result.Pages)
	assert.Empty(t, f.fetched, "no page budget is burned on guaranteed SSO failures")
	require.Len(t, result.Errors, 1)
	assert.True(t, result.Errors[0].NeedsCredentials)
	assert.Equal(t, "saml", result.Errors[0].LoginMethod)
}

func TestEngine_ExcludePatterns(t *testing.T) {
	f := &stubFetcher{site: map[string][]string{
		"https://example.com":        {"https://example.com/admin/panel", "https://example.com/page"},
		"https://example.com/page":   {},
		"https://example.com/admin/panel": {},
	}}

	tmpl := testTemplate()
	tmpl.ExcludePatterns = []string{"/admin"}

	result, err := newEngine(f).Crawl(context.Background(), "https://example.com",
		crawl.Options{MaxDepth: 2, MaxPages: 10}, tmpl)
	require.NoError(t, err)

	assert.Len(t, result.Pages, 2)
	assert.NotContains(t, f.fetched, "https://example.com/admin/panel")
}

func TestEngine_IncludePatternsExemptSeed(t *testing.T) {
	f := &stubFetcher{site: map[string][]string{
		"https://example.com/home": {
			"https://example.com/docs/guide",
			"https://example.com/pricing",
		},
		"https://example.com/docs/guide": {},
	}}

	tmpl := testTemplate()
	tmpl.IncludePatterns = []string{"/docs"}

	result, err := newEngine(f).Crawl(context.Background(), "https://example.com/home",
		crawl.Options{MaxDepth: 2, MaxPages: 10}, tmpl)
	require.NoError(t, err)

	assert.Len(t, result.Pages, 2, "the seed is crawled even when it misses the include patterns")
	assert.Contains(t, f.fetched, "https://example.com/home")
	assert.Contains(t, f.fetched, "https://example.com/docs/guide")
	assert.NotContains(t, f.fetched, "https://example.com/pricing")
}

func TestEngine_CancelledContextStops(t *testing.T) {
	f := &stubFetcher{site: map[string][]string{
		"https://example.com": {"https://example.com/a"},
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := newEngine(f).Crawl(ctx, "https://example.com",
		crawl.Options{MaxDepth: 2, MaxPages: 10}, testTemplate())
	require.NoError(t, err)

	assert.Empty(t, result.Pages)
	assert.Empty(t, f.fetched)
}
