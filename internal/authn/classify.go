package authn

import (
	"net/url"
	"regexp"
	"strings"
)

// Classification explains a failed fetch in authentication terms and
// carries a remediation hint for the operator.
type Classification struct {
	IsAuthError      bool   `json:"is_auth_error"`
	NeedsCredentials bool   `json:"needs_credentials"`
	LoginMethod      string `json:"login_method,omitempty"`
	Suggestion       string `json:"suggestion,omitempty"`
}

// authErrorPattern matches error messages that indicate an authentication
// failure.
var authErrorPattern = regexp.MustCompile(
	`(?i)(401|403|unauthorized|forbidden|authentication|login|signin|sign.in|credential|session expired|access denied)`,
)

// internalDomainPatterns identify hosts that are almost always behind SSO
// and should not be crawled unauthenticated.
var internalDomainPatterns = []string{
	".atlassian.net", ".sharepoint.com", ".service-now.com",
	".okta.com", ".onelogin.com", ".internal", ".corp", ".intranet",
}

// credentialedDomainPatterns identify external sites known to sit behind a
// conventional login form.
var credentialedDomainPatterns = []string{
	"github.com", "gitlab.com", "bitbucket.org", "salesforce.com",
	"zendesk.com", "notion.so",
}

// IsInternalDomain reports whether the URL's host matches a known
// SSO-protected internal domain pattern.
func IsInternalDomain(rawURL string) bool {
	host := hostOf(rawURL)
	for _, pattern := range internalDomainPatterns {
		if strings.Contains(host, pattern) {
			return true
		}
	}
	return false
}

// ClassifyError classifies a fetch error message for a URL, producing a
// human-readable remediation hint. Auth failures never abort the crawl;
// they surface per-URL with this classification attached.
func ClassifyError(rawURL, message string) Classification {
	host := hostOf(rawURL)

	if IsInternalDomain(rawURL) {
		return Classification{
			IsAuthError:      true,
			NeedsCredentials: true,
			LoginMethod:      LoginMethodSAML,
			Suggestion: "this looks like an SSO-protected internal site; capture a session cookie " +
				"from a logged-in browser (F12 > Application > Cookies) and configure cookie auth for " + host,
		}
	}

	if !authErrorPattern.MatchString(message) {
		return Classification{}
	}

	cls := Classification{
		IsAuthError:      true,
		NeedsCredentials: true,
		LoginMethod:      LoginMethodForm,
	}

	if isCredentialedDomain(host) {
		cls.Suggestion = host + " requires an account; configure form auth with a service account, " +
			"or cookie auth with a session captured from a logged-in browser"
		return cls
	}

	cls.Suggestion = "the server rejected the request as unauthenticated; configure basic, form, or " +
		"cookie auth for " + host
	return cls
}

// isCredentialedDomain reports whether the host is a known
// external-credentialed site.
func isCredentialedDomain(host string) bool {
	for _, pattern := range credentialedDomainPatterns {
		if strings.Contains(host, pattern) {
			return true
		}
	}
	return false
}

// hostOf extracts the lowercased host from a raw URL, tolerating malformed
// input.
func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return strings.ToLower(rawURL)
	}
	return strings.ToLower(parsed.Host)
}
