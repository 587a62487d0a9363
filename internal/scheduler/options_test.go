package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitewatch/sitewatch/internal/domain"
	"github.com/sitewatch/sitewatch/internal/templates"
)

func TestBuildCrawlOptions_JobOverrides(t *testing.T) {
	job := &domain.CrawlJob{
		MaxDepth: 4,
		MaxPages: 50,
		DelayMS:  750,
	}

	opts := buildCrawlOptions(job, true)

	assert.Equal(t, 4, opts.MaxDepth)
	assert.Equal(t, 50, opts.MaxPages)
	assert.Equal(t, 750*time.Millisecond, opts.Delay)
	assert.True(t, opts.HasCredential)
}

func TestBuildCrawlOptions_ZeroDelayInheritsTemplate(t *testing.T) {
	opts := buildCrawlOptions(&domain.CrawlJob{MaxDepth: 2}, false)

	// The engine falls back to the template delay when the option is zero.
	assert.Zero(t, opts.Delay)
	assert.False(t, opts.HasCredential)
}

func TestRequestTimeout(t *testing.T) {
	tmpl, err := templates.ByID("corporate")
	require.NoError(t, err)

	withOverride := &domain.CrawlJob{TimeoutSeconds: 45}
	assert.Equal(t, 45*time.Second, requestTimeout(withOverride, tmpl))

	noOverride := &domain.CrawlJob{}
	assert.Equal(t, tmpl.Timeout, requestTimeout(noOverride, tmpl))
}
