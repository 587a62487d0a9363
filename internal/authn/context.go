package authn

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"golang.org/x/net/publicsuffix"
)

// defaultContextTimeout bounds every request made through a browsing
// context unless the caller supplies its own timeout.
const defaultContextTimeout = 30 * time.Second

// BrowsingContext is a prepared HTTP client acting as a logged-in user.
// It carries injected cookies, fixed headers, and optional basic-auth
// credentials applied to every outgoing request.
type BrowsingContext struct {
	client     *http.Client
	headers    map[string]string
	basic      *BasicAuth
	authMethod string
}

// authTransport applies the context's headers and basic auth to every
// outgoing request.
type authTransport struct {
	base    http.RoundTripper
	headers map[string]string
	basic   *BasicAuth
}

// RoundTrip implements http.RoundTripper.
func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	if t.basic != nil {
		req.SetBasicAuth(t.basic.Username, t.basic.Password)
	}
	return t.base.RoundTrip(req)
}

// Prepare builds a browsing context for the given auth config. A nil
// config yields an anonymous context with a fresh cookie jar.
func Prepare(cfg *AuthConfig, timeout time.Duration) (*BrowsingContext, error) {
	if timeout <= 0 {
		timeout = defaultContextTimeout
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	bctx := &BrowsingContext{
		headers:    map[string]string{},
		authMethod: "none",
	}

	if cfg != nil {
		if applyErr := bctx.apply(cfg, jar); applyErr != nil {
			return nil, applyErr
		}
	}

	bctx.client = &http.Client{
		Jar:     jar,
		Timeout: timeout,
		Transport: &authTransport{
			base:    http.DefaultTransport,
			headers: bctx.headers,
			basic:   bctx.basic,
		},
	}

	return bctx, nil
}

// apply configures the context for one auth variant.
func (b *BrowsingContext) apply(cfg *AuthConfig, jar http.CookieJar) error {
	switch {
	case cfg.Basic != nil:
		b.basic = cfg.Basic
		b.authMethod = "basic"
	case cfg.Header != nil:
		for k, v := range cfg.Header.Headers {
			b.headers[k] = v
		}
		b.authMethod = "header"
	case cfg.Cookie != nil:
		if err := injectCookies(jar, cfg.Cookie.Cookies); err != nil {
			return err
		}
		b.authMethod = "cookie"
	case cfg.Form != nil:
		// Form login happens lazily, on the first page that needs it.
		b.authMethod = "form"
	default:
		return fmt.Errorf("auth config has no variant for kind %q", cfg.Kind)
	}

	return nil
}

// injectCookies seeds the jar with the configured cookies, scoped to each
// cookie's domain.
func injectCookies(jar http.CookieJar, specs []CookieSpec) error {
	byDomain := make(map[string][]*http.Cookie)
	for _, spec := range specs {
		path := spec.Path
		if path == "" {
			path = "/"
		}
		byDomain[spec.Domain] = append(byDomain[spec.Domain], &http.Cookie{
			Name:   spec.Name,
			Value:  spec.Value,
			Domain: spec.Domain,
			Path:   path,
		})
	}

	for cookieDomain, cookies := range byDomain {
		if cookieDomain == "" {
			return fmt.Errorf("cookie %q missing domain", cookies[0].Name)
		}
		scope := &url.URL{Scheme: "https", Host: cookieDomain}
		jar.SetCookies(scope, cookies)
	}

	return nil
}

// Client returns the underlying HTTP client.
func (b *BrowsingContext) Client() *http.Client {
	return b.client
}

// AuthMethod reports which authentication variant prepared this context.
func (b *BrowsingContext) AuthMethod() string {
	return b.authMethod
}

// SetCookiesFor seeds cookies for a specific URL, used after a successful
// form login when the server sets its session cookie on a redirect target.
func (b *BrowsingContext) SetCookiesFor(target *url.URL, cookies []*http.Cookie) {
	if b.client.Jar != nil {
		b.client.Jar.SetCookies(target, cookies)
	}
}
