package common

import (
	_ "embed"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

//go:embed VERSION
var version string

// Version returns the trimmed build version.
func Version() string {
	return strings.TrimSpace(version)
}

type userAgentTransport struct {
	transport http.RoundTripper
	userAgent string
}

// RoundTrip implements the http.RoundTripper interface
func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Clone the request to avoid modifying the original request's headers
	// which might be shared or reused
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)
	return t.transport.RoundTrip(req)
}

// HTTPClient returns a default http client with a default user-agent set
func HTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: &userAgentTransport{
			transport: http.DefaultTransport,
			userAgent: "LuzYGas/" + Version(),
		},
		Timeout: timeout,
	}
}

// SessionHTTPClient returns an HTTPClient that keeps cookies between requests.
// Any cookies in seed are added to the jar for seedURL before the first request.
func SessionHTTPClient(timeout time.Duration, seedURLs []string, seed []*http.Cookie) (*http.Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	if err := SeedCookies(jar, seedURLs, seed); err != nil {
		return nil, err
	}
	c := HTTPClient(timeout)
	c.Jar = jar
	return c, nil
}

// SeedCookies sets cookies on jar for every one of urls.
func SeedCookies(jar http.CookieJar, urls []string, cookies []*http.Cookie) error {
	if len(cookies) == 0 {
		return nil
	}
	for _, raw := range urls {
		u, err := parseURL(raw)
		if err != nil {
			return err
		}
		jar.SetCookies(u, cookies)
	}
	return nil
}
