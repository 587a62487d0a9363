package fetcher_test

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitewatch/sitewatch/internal/fetcher"
	"github.com/sitewatch/sitewatch/internal/templates"
)

const articlePageHTML = `<html lang="en">
<head>
	<title>Release notes for 2.4</title>
	<meta name="description" content="What changed in version 2.4">
	<meta name="author" content="Platform Team">
	<meta property="article:published_time" content="2026-03-01T09:00:00Z">
</head>
<body>
	<nav><a href="/">Home</a><a href="/docs">Docs</a></nav>
	<main>
		<article>
			<h1>Release notes for 2.4</h1>
			<h2>Breaking changes</h2>
			<p>The configuration file format moved from INI to YAML. Every deployment
			needs to convert its settings before upgrading, and the old format is no
			longer read at startup under any compatibility flag.</p>
			<a href="/docs/migration">Migration guide</a>
			<a href="/docs/migration">Migration guide (again)</a>
			<a href="https://other-site.example.org/external">External</a>
			<a href="mailto:team@example.com">Mail us</a>
			<a href="/docs/config#section-2">Config</a>
		</article>
	</main>
	<footer>Copyright</footer>
</body>
</html>`

func extractPage(t *testing.T, html, pageURL string) (*fetcher.Extractor, *goquery.Document) {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return fetcher.NewExtractor(), doc
}

func TestExtractor_BasicFields(t *testing.T) {
	e, doc := extractPage(t, articlePageHTML, "https://example.com/releases/2.4")
	tmpl, err := templates.ByID("documentation")
	require.NoError(t, err)

	page := e.Extract(doc, articlePageHTML, "https://example.com/releases/2.4", 1, "https://example.com", tmpl)

	assert.Equal(t, "https://example.com/releases/2.4", page.URL)
	assert.Equal(t, "Release notes for 2.4", page.Title)
	assert.Equal(t, 1, page.Depth)
	assert.Equal(t, "https://example.com", page.ParentURL)
	assert.Contains(t, page.Content, "configuration file format")
	assert.NotContains(t, page.Content, "Copyright", "footer must be stripped")
	assert.Positive(t, page.WordCount)
	assert.Positive(t, page.ReadingTime)
	assert.Equal(t, fetcher.HashContent(page.Content), page.ContentHash)
}

func TestExtractor_Metadata(t *testing.T) {
	e, doc := extractPage(t, articlePageHTML, "https://example.com/releases/2.4")
	tmpl, err := templates.ByID("documentation")
	require.NoError(t, err)

	page := e.Extract(doc, articlePageHTML, "https://example.com/releases/2.4", 0, "", tmpl)

	assert.Equal(t, "What changed in version 2.4", page.Metadata.Description)
	assert.Equal(t, "Platform Team", page.Metadata.Author)
	assert.Equal(t, "2026-03-01T09:00:00Z", page.Metadata.Published)
	assert.Equal(t, "en", page.Metadata.Language)
}

func TestExtractor_Headings(t *testing.T) {
	e, doc := extractPage(t, articlePageHTML, "https://example.com/releases/2.4")
	tmpl, err := templates.ByID("documentation")
	require.NoError(t, err)

	page := e.Extract(doc, articlePageHTML, "https://example.com/releases/2.4", 0, "", tmpl)

	require.Len(t, page.Headings, 2)
	assert.Equal(t, "h1", page.Headings[0].Tag)
	assert.Equal(t, "Release notes for 2.4", page.Headings[0].Text)
	assert.Equal(t, "h2", page.Headings[1].Tag)
}

func TestExtractor_Links(t *testing.T) {
	e, doc := extractPage(t, articlePageHTML, "https://example.com/releases/2.4")
	tmpl, err := templates.ByID("documentation")
	require.NoError(t, err)

	page := e.Extract(doc, articlePageHTML, "https://example.com/releases/2.4", 0, "", tmpl)

	assert.Contains(t, page.Links, "https://example.com/docs/migration")
	assert.Contains(t, page.Links, "https://other-site.example.org/external")
	assert.Contains(t, page.Links, "https://example.com/docs/config", "fragment must be stripped")

	for _, link := range page.Links {
		assert.NotContains(t, link, "mailto:", "non-http schemes must be dropped")
	}

	count := 0
	for _, link := range page.Links {
		if link == "https://example.com/docs/migration" {
			count++
		}
	}
	assert.Equal(t, 1, count, "duplicate links must be deduplicated")
}

func TestExtractor_EmptyPage(t *testing.T) {
	e, doc := extractPage(t, "<html><body></body></html>", "https://example.com/empty")
	tmpl, err := templates.ByID("corporate")
	require.NoError(t, err)

	page := e.Extract(doc, "<html><body></body></html>", "https://example.com/empty", 0, "", tmpl)

	require.NotNil(t, page, "extraction never fails")
	assert.Empty(t, page.Content)
	assert.Zero(t, page.WordCount)
	assert.NotEmpty(t, page.ContentHash, "even empty content hashes deterministically")
}

func TestHashContent_Deterministic(t *testing.T) {
	first := fetcher.HashContent("same content")
	second := fetcher.HashContent("same content")
	other := fetcher.HashContent("other content")

	assert.Equal(t, first, second)
	assert.NotEqual(t, first, other)
	assert.Len(t, first, 64)
}
