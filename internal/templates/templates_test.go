package templates_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitewatch/sitewatch/internal/templates"
)

func TestByID(t *testing.T) {
	tmpl, err := templates.ByID("documentation")
	require.NoError(t, err)
	assert.Equal(t, "documentation", tmpl.ID)
	assert.Positive(t, tmpl.MaxDepth)
	assert.Positive(t, tmpl.MaxPages)
	assert.Positive(t, tmpl.Timeout)
	assert.NotEmpty(t, tmpl.ContentPriority)
}

func TestByID_Unknown(t *testing.T) {
	_, err := templates.ByID("nope")
	require.ErrorIs(t, err, templates.ErrTemplateNotFound)
}

func TestByID_AllCatalogEntriesComplete(t *testing.T) {
	ids := templates.IDs()
	require.NotEmpty(t, ids)

	for _, id := range ids {
		tmpl, err := templates.ByID(id)
		require.NoError(t, err, id)
		assert.Equal(t, id, tmpl.ID)
		assert.Positive(t, tmpl.MaxDepth, id)
		assert.Positive(t, tmpl.MaxPages, id)
		assert.Positive(t, tmpl.Timeout, id)
		assert.Positive(t, tmpl.Delay, id)
		assert.NotEmpty(t, tmpl.ContentPriority, id)
		assert.NotEmpty(t, tmpl.ExcludedElements, id)
	}
}

func TestSuggestForURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://docs.example.com/getting-started", "documentation"},
		{"https://wiki.example.org/Main_Page", "wiki"},
		{"https://shop.example.com/products", "ecommerce"},
		{"https://news.example.com/latest", "news"},
		{"https://example.com", "corporate"},
		{"not a url at all", "corporate"},
		{"", "corporate"},
	}

	for _, tt := range tests {
		got := templates.SuggestForURL(tt.url)
		require.NotNil(t, got, tt.url)
		assert.Equal(t, tt.want, got.ID, "url %q", tt.url)
	}
}

func TestSuggestForURL_Deterministic(t *testing.T) {
	first := templates.SuggestForURL("https://docs.store.example.com")
	for range 10 {
		assert.Equal(t, first.ID, templates.SuggestForURL("https://docs.store.example.com").ID)
	}
}
