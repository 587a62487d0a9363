// Package authn translates stored credentials into prepared browsing
// contexts, drives interactive form logins, and classifies authentication
// failures encountered during a crawl.
package authn

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sitewatch/sitewatch/internal/domain"
)

// ErrSSOUnsupported is returned when a credential requires a real SSO
// session. SSO cannot be performed server-side without a session token, so
// the adapter refuses instead of emitting headers that only look like a
// credential.
var ErrSSOUnsupported = errors.New(
	"sso authentication is not supported server-side: capture a session cookie and configure cookie auth instead",
)

// BasicAuth carries HTTP basic-auth credentials.
type BasicAuth struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HeaderAuth carries a fixed header map injected into every request.
type HeaderAuth struct {
	Headers map[string]string `json:"headers"`
}

// CookieSpec is one cookie to inject into the browsing context.
type CookieSpec struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Domain string `json:"domain,omitempty"`
	Path   string `json:"path,omitempty"`
}

// CookieAuth carries cookies injected into the browsing context's jar.
type CookieAuth struct {
	Cookies []CookieSpec `json:"cookies"`
}

// FormAuth carries interactive login form credentials and optional
// selector overrides for non-standard forms.
type FormAuth struct {
	LoginURL         string `json:"login_url,omitempty"`
	Username         string `json:"username"`
	Password         string `json:"password"`
	UsernameSelector string `json:"username_selector,omitempty"`
	PasswordSelector string `json:"password_selector,omitempty"`
	SubmitSelector   string `json:"submit_selector,omitempty"`
}

// AuthConfig is a tagged union of the supported authentication kinds.
// Exactly one variant is non-nil, matching Kind.
type AuthConfig struct {
	Kind   string      `json:"kind"`
	Basic  *BasicAuth  `json:"basic,omitempty"`
	Header *HeaderAuth `json:"header,omitempty"`
	Cookie *CookieAuth `json:"cookie,omitempty"`
	Form   *FormAuth   `json:"form,omitempty"`
}

// ParseAuthConfig decodes a decrypted credential payload into a typed
// AuthConfig for the given kind.
func ParseAuthConfig(kind string, payload []byte) (*AuthConfig, error) {
	cfg := &AuthConfig{Kind: kind}

	switch kind {
	case domain.AuthKindBasic:
		cfg.Basic = &BasicAuth{}
		if err := json.Unmarshal(payload, cfg.Basic); err != nil {
			return nil, fmt.Errorf("failed to parse basic credential: %w", err)
		}
		if cfg.Basic.Username == "" {
			return nil, errors.New("basic credential missing username")
		}
	case domain.AuthKindHeader:
		cfg.Header = &HeaderAuth{}
		if err := json.Unmarshal(payload, cfg.Header); err != nil {
			return nil, fmt.Errorf("failed to parse header credential: %w", err)
		}
		if len(cfg.Header.Headers) == 0 {
			return nil, errors.New("header credential has no headers")
		}
	case domain.AuthKindCookie:
		cfg.Cookie = &CookieAuth{}
		if err := json.Unmarshal(payload, cfg.Cookie); err != nil {
			return nil, fmt.Errorf("failed to parse cookie credential: %w", err)
		}
		if len(cfg.Cookie.Cookies) == 0 {
			return nil, errors.New("cookie credential has no cookies")
		}
	case domain.AuthKindForm:
		cfg.Form = &FormAuth{}
		if err := json.Unmarshal(payload, cfg.Form); err != nil {
			return nil, fmt.Errorf("failed to parse form credential: %w", err)
		}
		if cfg.Form.Username == "" || cfg.Form.Password == "" {
			return nil, errors.New("form credential missing username or password")
		}
	case domain.AuthKindSSO:
		return nil, ErrSSOUnsupported
	default:
		return nil, fmt.Errorf("unknown auth kind: %s", kind)
	}

	return cfg, nil
}
