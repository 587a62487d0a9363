package authn

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrLoginLoop is returned when the post-submit URL still resolves to a
// login page. Failing fast here prevents retry storms against a form that
// will never accept the configured credentials.
var ErrLoginLoop = errors.New("authentication failed: still on a login page after submitting credentials")

// ErrNoLoginForm is returned when the login page has no usable form.
var ErrNoLoginForm = errors.New("no login form found on page")

// maxLoginBodyBytes limits the size of login page responses we will read.
const maxLoginBodyBytes = 2 * 1024 * 1024 // 2 MB

// FormLogin performs an interactive form login through the browsing
// context. It fetches the login page, fills the username and password
// fields, carries over hidden inputs (CSRF tokens), submits the form, and
// verifies the resulting URL no longer matches login patterns.
func FormLogin(ctx context.Context, bctx *BrowsingContext, loginURL string, cfg *FormAuth) error {
	doc, finalURL, err := fetchLoginPage(ctx, bctx, loginURL)
	if err != nil {
		return err
	}

	form, err := resolveLoginForm(doc, finalURL, cfg)
	if err != nil {
		return err
	}

	resp, err := submitLoginForm(ctx, bctx, form)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused; the body content is not needed.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxLoginBodyBytes))

	landedURL := resp.Request.URL.String()
	if loginURLPattern.MatchString(landedURL) {
		return fmt.Errorf("%w (landed on %s)", ErrLoginLoop, landedURL)
	}

	return nil
}

// loginForm is a resolved login form ready for submission.
type loginForm struct {
	action string
	method string
	values url.Values
}

// fetchLoginPage GETs the login page and parses it.
func fetchLoginPage(ctx context.Context, bctx *BrowsingContext, loginURL string) (*goquery.Document, *url.URL, error) {
	req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, loginURL, http.NoBody)
	if reqErr != nil {
		return nil, nil, fmt.Errorf("failed to create login request: %w", reqErr)
	}

	resp, doErr := bctx.Client().Do(req)
	if doErr != nil {
		return nil, nil, fmt.Errorf("failed to fetch login page: %w", doErr)
	}
	defer resp.Body.Close()

	doc, parseErr := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxLoginBodyBytes))
	if parseErr != nil {
		return nil, nil, fmt.Errorf("failed to parse login page: %w", parseErr)
	}

	return doc, resp.Request.URL, nil
}

// resolveLoginForm locates the login form, fills credentials, and carries
// over hidden fields. Configured selector overrides win; otherwise the form
// containing the password field is used with generic heuristics.
func resolveLoginForm(doc *goquery.Document, pageURL *url.URL, cfg *FormAuth) (*loginForm, error) {
	passwordSel := cfg.PasswordSelector
	if passwordSel == "" {
		passwordSel = "input[type='password']"
	}

	passwordField := doc.Find(passwordSel).First()
	if passwordField.Length() == 0 {
		return nil, ErrNoLoginForm
	}

	formNode := passwordField.Closest("form")
	if formNode.Length() == 0 {
		return nil, ErrNoLoginForm
	}

	values := url.Values{}

	// Hidden inputs carry CSRF tokens and must round-trip unchanged.
	formNode.Find("input[type='hidden']").Each(func(_ int, s *goquery.Selection) {
		name, _ := s.Attr("name")
		value, _ := s.Attr("value")
		if name != "" {
			values.Set(name, value)
		}
	})

	passwordName := fieldName(passwordField)
	if passwordName == "" {
		passwordName = "password"
	}
	values.Set(passwordName, cfg.Password)

	usernameName := resolveUsernameField(formNode, cfg)
	if usernameName == "" {
		return nil, errors.New("could not resolve username field in login form")
	}
	values.Set(usernameName, cfg.Username)

	action, _ := formNode.Attr("action")
	method, _ := formNode.Attr("method")
	if method == "" {
		method = http.MethodPost
	}

	resolvedAction, err := pageURL.Parse(action)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve form action: %w", err)
	}

	return &loginForm{
		action: resolvedAction.String(),
		method: strings.ToUpper(method),
		values: values,
	}, nil
}

// resolveUsernameField returns the name attribute of the username input,
// trying the configured selector first, then generic heuristics.
func resolveUsernameField(formNode *goquery.Selection, cfg *FormAuth) string {
	if cfg.UsernameSelector != "" {
		if field := formNode.Find(cfg.UsernameSelector).First(); field.Length() > 0 {
			return fieldName(field)
		}
	}

	for _, sel := range usernameSelectors {
		field := formNode.Find(sel).First()
		if field.Length() > 0 {
			if name := fieldName(field); name != "" {
				return name
			}
		}
	}

	return ""
}

// fieldName returns the name attribute of an input selection.
func fieldName(field *goquery.Selection) string {
	name, _ := field.Attr("name")
	return name
}

// submitLoginForm posts the resolved form through the browsing context.
// Redirects are followed by the client, which stands in for waiting on
// network idle: the response's request URL is the final landing URL.
func submitLoginForm(ctx context.Context, bctx *BrowsingContext, form *loginForm) (*http.Response, error) {
	req, reqErr := http.NewRequestWithContext(
		ctx, form.method, form.action,
		strings.NewReader(form.values.Encode()),
	)
	if reqErr != nil {
		return nil, fmt.Errorf("failed to create login submit request: %w", reqErr)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, doErr := bctx.Client().Do(req)
	if doErr != nil {
		return nil, fmt.Errorf("failed to submit login form: %w", doErr)
	}

	return resp, nil
}
