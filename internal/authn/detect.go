package authn

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Login flow methods a detector can report.
const (
	LoginMethodForm    = "form"
	LoginMethodSAML    = "saml"
	LoginMethodOAuth   = "oauth"
	LoginMethodUnknown = "unknown"
)

// FieldSelectors are the resolved selectors for a login form.
type FieldSelectors struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Submit   string `json:"submit"`
}

// Detection is the result of classifying a fetched page.
type Detection struct {
	IsLoginPage    bool           `json:"is_login_page"`
	LoginMethod    string         `json:"login_method"`
	FieldSelectors FieldSelectors `json:"field_selectors"`
}

// LoginDetector classifies whether a fetched page is a login page. The
// heuristic implementation can be swapped for a stub in tests.
type LoginDetector interface {
	Detect(doc *goquery.Document, pageURL string) Detection
}

// loginURLPattern matches URLs that resolve to a login or signin page.
var loginURLPattern = regexp.MustCompile(`(?i)(/login|/signin|/sign-in|/sign_in|/auth|/sso|/session/new|/account/logon)`)

// loginVocabulary are words whose presence in the title or page text
// suggests a login page.
var loginVocabulary = []string{
	"log in", "login", "sign in", "signin", "authenticate",
	"enter your password", "forgot password", "single sign-on",
}

// knownSiteSelectors overrides generic selector heuristics for sites with
// non-standard login forms.
var knownSiteSelectors = map[string]FieldSelectors{
	"atlassian.net": {Username: "#username", Password: "#password", Submit: "#login-submit"},
	"github.com":    {Username: "#login_field", Password: "#password", Submit: "input[name='commit']"},
	"gitlab.com":    {Username: "#user_login", Password: "#user_password", Submit: "button[data-testid='sign-in-button']"},
	"okta.com":      {Username: "input[name='identifier']", Password: "input[name='credentials.passcode']", Submit: "input[type='submit']"},
}

// usernameSelectors are generic candidates for the username field, in
// priority order.
var usernameSelectors = []string{
	"input[type='email']",
	"input[name='username']",
	"input[name='email']",
	"input[name='user']",
	"input[name='login']",
	"input[id*='user']",
	"input[id*='email']",
	"input[placeholder*='mail']",
	"input[aria-label*='mail']",
	"input[type='text']",
}

// submitSelectors are generic candidates for the submit control.
var submitSelectors = []string{
	"button[type='submit']",
	"input[type='submit']",
	"button[id*='login']",
	"button[id*='signin']",
	"button[name='commit']",
}

// HeuristicDetector implements LoginDetector with regex vocabulary matching
// plus DOM inspection.
type HeuristicDetector struct{}

// NewHeuristicDetector creates the default login detector.
func NewHeuristicDetector() *HeuristicDetector {
	return &HeuristicDetector{}
}

// Detect classifies the page. A page is considered a login page when the
// URL, title, or visible text matches the login vocabulary, or when the DOM
// contains a password form.
func (d *HeuristicDetector) Detect(doc *goquery.Document, pageURL string) Detection {
	detection := Detection{LoginMethod: LoginMethodUnknown}

	hasPasswordField := doc.Find("input[type='password']").Length() > 0
	vocabularyHit := matchesLoginVocabulary(doc, pageURL)

	if !hasPasswordField && !vocabularyHit {
		return detection
	}

	detection.IsLoginPage = true
	detection.LoginMethod = classifyLoginMethod(doc, hasPasswordField)

	if detection.LoginMethod == LoginMethodForm {
		detection.FieldSelectors = resolveFieldSelectors(doc, pageURL)
	}

	return detection
}

// matchesLoginVocabulary checks the URL, title, and body text against the
// login vocabulary list.
func matchesLoginVocabulary(doc *goquery.Document, pageURL string) bool {
	if loginURLPattern.MatchString(pageURL) {
		return true
	}

	title := strings.ToLower(doc.Find("title").First().Text())
	for _, word := range loginVocabulary {
		if strings.Contains(title, word) {
			return true
		}
	}

	// Only scan headings and labels, not the whole body: articles about
	// authentication would otherwise classify as login pages.
	snippet := strings.ToLower(doc.Find("h1, h2, label, button[type='submit']").Text())
	for _, word := range loginVocabulary {
		if strings.Contains(snippet, word) {
			return true
		}
	}

	return false
}

// classifyLoginMethod distinguishes form vs saml vs oauth login flows by
// DOM inspection.
func classifyLoginMethod(doc *goquery.Document, hasPasswordField bool) string {
	if doc.Find("input[name='SAMLRequest'], input[name='SAMLResponse'], form[action*='saml']").Length() > 0 {
		return LoginMethodSAML
	}

	oauthLinks := doc.Find("a[href*='oauth'], a[href*='/authorize'], form[action*='oauth']")
	if oauthLinks.Length() > 0 && !hasPasswordField {
		return LoginMethodOAuth
	}

	if hasPasswordField {
		return LoginMethodForm
	}

	return LoginMethodUnknown
}

// resolveFieldSelectors finds selectors for the username, password, and
// submit fields, preferring known-site overrides.
func resolveFieldSelectors(doc *goquery.Document, pageURL string) FieldSelectors {
	for site, selectors := range knownSiteSelectors {
		if strings.Contains(pageURL, site) && doc.Find(selectors.Username).Length() > 0 {
			return selectors
		}
	}

	resolved := FieldSelectors{Password: "input[type='password']"}

	for _, sel := range usernameSelectors {
		if doc.Find(sel).Length() > 0 {
			resolved.Username = sel
			break
		}
	}

	for _, sel := range submitSelectors {
		if doc.Find(sel).Length() > 0 {
			resolved.Submit = sel
			break
		}
	}

	return resolved
}
