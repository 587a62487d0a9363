package scheduler

import (
	"context"
	"time"

	"github.com/sitewatch/sitewatch/internal/authn"
	"github.com/sitewatch/sitewatch/internal/crawl"
	"github.com/sitewatch/sitewatch/internal/domain"
	"github.com/sitewatch/sitewatch/internal/fetcher"
	"github.com/sitewatch/sitewatch/internal/logger"
	"github.com/sitewatch/sitewatch/internal/templates"
)

// DefaultRunner builds a fresh browsing context and fetcher for each run.
// Fetchers are never shared between runs: login state and cookies belong to
// exactly one traversal.
type DefaultRunner struct {
	log       logger.Interface
	userAgent string
}

// NewDefaultRunner creates the production crawl runner.
func NewDefaultRunner(log logger.Interface) *DefaultRunner {
	return &DefaultRunner{log: log, userAgent: fetcher.DefaultUserAgent}
}

// Run resolves the job's template, prepares an authenticated browsing
// context, and walks the site.
func (r *DefaultRunner) Run(
	ctx context.Context,
	job *domain.CrawlJob,
	auth *authn.AuthConfig,
) (*crawl.Result, error) {
	tmpl := r.resolveTemplate(job)

	bctx, prepErr := authn.Prepare(auth, requestTimeout(job, tmpl))
	if prepErr != nil {
		return nil, prepErr
	}

	var form *authn.FormAuth
	if auth != nil {
		form = auth.Form
	}

	pageFetcher := fetcher.New(fetcher.Config{
		Browsing:  bctx,
		Form:      form,
		UserAgent: r.userAgent,
	}, r.log)

	engine := crawl.NewEngine(pageFetcher, r.log)
	opts := buildCrawlOptions(job, auth != nil)

	return engine.Crawl(ctx, job.BaseURL, opts, tmpl)
}

// requestTimeout returns the job's per-request timeout override, or the
// template's timeout when the job has none.
func requestTimeout(job *domain.CrawlJob, tmpl *templates.WebsiteTemplate) time.Duration {
	if job.TimeoutSeconds > 0 {
		return time.Duration(job.TimeoutSeconds) * time.Second
	}
	return tmpl.Timeout
}

// resolveTemplate looks up the job's template, falling back to a URL-based
// suggestion when the job has no template or names an unknown one.
func (r *DefaultRunner) resolveTemplate(job *domain.CrawlJob) *templates.WebsiteTemplate {
	if job.TemplateID != "" {
		tmpl, err := templates.ByID(job.TemplateID)
		if err == nil {
			return tmpl
		}
		r.log.Warn("Unknown template, suggesting from URL",
			"job_id", job.ID, "template_id", job.TemplateID)
	}
	return templates.SuggestForURL(job.BaseURL)
}
