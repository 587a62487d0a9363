package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/sitewatch/sitewatch/internal/authn"
	"github.com/sitewatch/sitewatch/internal/domain"
	"github.com/sitewatch/sitewatch/internal/logger"
	"github.com/sitewatch/sitewatch/internal/templates"
)

// maxResponseBodyBytes limits the size of fetched page responses.
const maxResponseBodyBytes = 10 * 1024 * 1024 // 10 MB

// DefaultUserAgent identifies the crawler to target sites.
const DefaultUserAgent = "sitewatch/1.0 (+https://github.com/sitewatch/sitewatch)"

// ErrLoginRequired is returned when a page resolves to a login page and no
// matching form credential is configured.
var ErrLoginRequired = errors.New("page requires login and no matching credential is configured")

// ErrRobotsBlocked is returned when robots.txt disallows the URL.
var ErrRobotsBlocked = errors.New("blocked by robots.txt")

// Fetcher fetches one URL at a time through a prepared browsing context.
type Fetcher struct {
	bctx      *authn.BrowsingContext
	form      *authn.FormAuth // non-nil when a form credential is configured
	detector  authn.LoginDetector
	extractor *Extractor
	robots    *RobotsChecker
	log       logger.Interface
	userAgent string
	loggedIn  bool
}

// Config configures a Fetcher.
type Config struct {
	Browsing  *authn.BrowsingContext
	Form      *authn.FormAuth
	Detector  authn.LoginDetector
	UserAgent string
}

// New creates a fetcher bound to one browsing context.
func New(cfg Config, log logger.Interface) *Fetcher {
	detector := cfg.Detector
	if detector == nil {
		detector = authn.NewHeuristicDetector()
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	return &Fetcher{
		bctx:      cfg.Browsing,
		form:      cfg.Form,
		detector:  detector,
		extractor: NewExtractor(),
		robots:    NewRobotsChecker(cfg.Browsing.Client(), userAgent),
		log:       log,
		userAgent: userAgent,
	}
}

// Fetch retrieves one URL and extracts a ScrapedPage using the template's
// selectors. When the page resolves to a login page and a form credential
// is available, it performs the login once and refetches.
func (f *Fetcher) Fetch(
	ctx context.Context,
	pageURL string,
	depth int,
	parentURL string,
	tmpl *templates.WebsiteTemplate,
) (*domain.ScrapedPage, error) {
	if tmpl.RespectRobots {
		allowed, robotsErr := f.robots.IsAllowed(ctx, pageURL)
		if robotsErr != nil {
			return nil, robotsErr
		}
		if !allowed {
			return nil, fmt.Errorf("%w: %s", ErrRobotsBlocked, pageURL)
		}
	}

	fetchCtx, cancel := context.WithTimeout(ctx, tmpl.Timeout)
	defer cancel()

	doc, rawHTML, finalURL, err := f.fetchDocument(fetchCtx, pageURL)
	if err != nil {
		return nil, err
	}

	detection := f.detector.Detect(doc, finalURL)
	if detection.IsLoginPage {
		doc, rawHTML, finalURL, err = f.authenticateAndRefetch(fetchCtx, pageURL, finalURL, detection)
		if err != nil {
			return nil, err
		}
	}

	page := f.extractor.Extract(doc, rawHTML, pageURL, depth, parentURL, tmpl)
	page.AuthMethod = f.bctx.AuthMethod()

	return page, nil
}

// authenticateAndRefetch performs a form login when possible, then fetches
// the original URL again. Exactly one login attempt is made per fetcher;
// if the refetched page is still a login page, the login loop guard in
// authn.FormLogin has already failed the call.
func (f *Fetcher) authenticateAndRefetch(
	ctx context.Context,
	pageURL, loginPageURL string,
	detection authn.Detection,
) (*goquery.Document, string, string, error) {
	if f.form == nil || detection.LoginMethod != authn.LoginMethodForm {
		return nil, "", "", fmt.Errorf("%w (login method: %s)", ErrLoginRequired, detection.LoginMethod)
	}

	if !f.loggedIn {
		loginURL := f.form.LoginURL
		if loginURL == "" {
			loginURL = loginPageURL
		}

		f.log.Info("Performing form login", "login_url", loginURL)
		if loginErr := authn.FormLogin(ctx, f.bctx, loginURL, f.form); loginErr != nil {
			return nil, "", "", loginErr
		}
		f.loggedIn = true
	}

	doc, rawHTML, finalURL, err := f.fetchDocument(ctx, pageURL)
	if err != nil {
		return nil, "", "", err
	}

	if again := f.detector.Detect(doc, finalURL); again.IsLoginPage {
		return nil, "", "", authn.ErrLoginLoop
	}

	return doc, rawHTML, finalURL, nil
}

// fetchDocument GETs a URL and parses the response into a goquery document.
// The raw HTML is retained for the readability fallback.
func (f *Fetcher) fetchDocument(
	ctx context.Context,
	pageURL string,
) (*goquery.Document, string, string, error) {
	req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, http.NoBody)
	if reqErr != nil {
		return nil, "", "", fmt.Errorf("failed to create request: %w", reqErr)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, doErr := f.bctx.Client().Do(req)
	if doErr != nil {
		return nil, "", "", fmt.Errorf("failed to fetch page: %w", doErr)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	if readErr != nil {
		return nil, "", "", fmt.Errorf("failed to read response body: %w", readErr)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, "", "", fmt.Errorf("http status %d fetching %s", resp.StatusCode, pageURL)
	}

	rawHTML := string(body)
	doc, parseErr := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if parseErr != nil {
		return nil, "", "", fmt.Errorf("failed to parse html: %w", parseErr)
	}

	return doc, rawHTML, resp.Request.URL.String(), nil
}
