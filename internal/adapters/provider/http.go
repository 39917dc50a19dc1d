// Package provider implements the GitHub and first-party registry module sources.
package provider

import (
	"context"
	"crypto/tls"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.trai.ch/modkit/internal/core/domain"
	"go.trai.ch/zerr"
	"golang.org/x/mod/semver"
)

const (
	// perPage is the number of releases fetched per API page.
	perPage = 30

	// maxPages bounds release pagination.
	maxPages = 3

	// maxJSONResponseBytes bounds a decoded API response (10 MiB).
	maxJSONResponseBytes = 10 << 20

	maxRedirects = 10

	userAgent = "modkit"
)

// Option configures a provider.
type Option func(*client)

// WithHTTPClient sets the HTTP client, for tests or proxies.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *client) {
		cl.http = c
	}
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(base string) Option {
	return func(cl *client) {
		cl.baseURL = strings.TrimRight(base, "/")
	}
}

// WithToken sets the bearer token sent to the provider host.
func WithToken(token string) Option {
	return func(cl *client) {
		cl.token = token
	}
}

// client is the HTTP plumbing shared by both providers.
type client struct {
	http    *http.Client
	baseURL string
	token   string
	// trusted reports whether a request URL may carry the token.
	trusted func(*url.URL) bool
	// headers are added to every request.
	headers map[string]string
	// hidesPrivate is set when the host answers 404 for private resources
	// requested without credentials.
	hidesPrivate bool
}

// NewHTTPClient builds the HTTP client used by providers. Insecure disables
// TLS certificate verification.
func NewHTTPClient(timeout time.Duration, insecure bool) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // explicitly requested with --insecure
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

func (c *client) get(ctx context.Context, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to create request"), "url", redactURL(reqURL))
	}

	req.Header.Set("User-Agent", userAgent)
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	if c.token != "" && c.trusted(req.URL) {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.redirectSafe().Do(req)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "request failed"), "url", redactURL(reqURL))
	}
	return resp, nil
}

// redirectSafe returns a copy of the HTTP client that drops the token when a
// redirect leaves the trusted host, such as a release tarball served from a CDN.
func (c *client) redirectSafe() *http.Client {
	hc := *c.http
	next := hc.CheckRedirect
	hc.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if !c.trusted(req.URL) {
			req.Header.Del("Authorization")
		}
		if next != nil {
			return next(req, via)
		}
		if len(via) >= maxRedirects {
			return zerr.With(zerr.New("too many redirects"), "url", redactURL(req.URL.String()))
		}
		return nil
	}
	return &hc
}

// check maps a non-2xx response to a domain error and closes its body.
func (c *client) check(resp *http.Response, reqURL string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	defer resp.Body.Close() //nolint:errcheck // error response body is discarded

	if rl := rateLimit(resp); rl != nil {
		return rl
	}

	var err error
	switch resp.StatusCode {
	case http.StatusNotFound:
		if c.hidesPrivate && c.token == "" {
			err = zerr.Wrap(domain.ErrPrivateOrMissing, "provider returned 404")
		} else {
			err = zerr.Wrap(domain.ErrNotFound, "provider returned 404")
		}
	case http.StatusUnauthorized:
		err = zerr.Wrap(domain.ErrAuthRequired, "provider rejected the request")
	case http.StatusForbidden:
		err = zerr.Wrap(domain.ErrAuthRequired, "provider denied access")
	case http.StatusTooManyRequests:
		return &domain.RateLimitError{Reset: retryAfter(resp)}
	default:
		err = zerr.Wrap(domain.ErrProviderResponse, "unexpected status")
	}
	err = zerr.With(err, "status", resp.StatusCode)
	return zerr.With(err, "url", redactURL(reqURL))
}

// rateLimit returns a RateLimitError when the X-RateLimit-Remaining header reports
// an exhausted quota on an error response.
func rateLimit(resp *http.Response) error {
	remaining := resp.Header.Get("X-RateLimit-Remaining")
	if remaining == "" {
		return nil
	}
	rem, err := strconv.Atoi(remaining)
	if err != nil || rem > 0 {
		return nil
	}

	limit, _ := strconv.Atoi(resp.Header.Get("X-RateLimit-Limit"))                 //nolint:errcheck // best-effort header parsing
	resetUnix, _ := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64) //nolint:errcheck // best-effort header parsing

	rl := &domain.RateLimitError{Limit: limit}
	if resetUnix > 0 {
		rl.Reset = time.Unix(resetUnix, 0)
	}
	return rl
}

func retryAfter(resp *http.Response) time.Time {
	secs, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	if err != nil || secs <= 0 {
		return time.Time{}
	}
	return time.Now().Add(time.Duration(secs) * time.Second)
}

// parseLinkHeader extracts the "next" page URL from a Link header.
//
// Example header: <https://api.github.com/...?page=2>; rel="next", <...>; rel="last"
func parseLinkHeader(header string) string {
	for part := range strings.SplitSeq(header, ",") {
		part = strings.TrimSpace(part)
		if !strings.Contains(part, `rel="next"`) {
			continue
		}
		start := strings.Index(part, "<")
		end := strings.Index(part, ">")
		if start >= 0 && end > start {
			return part[start+1 : end]
		}
	}
	return ""
}

// redactURL strips query parameters and fragments for safe inclusion in errors.
func redactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid-url>"
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.User = nil
	return u.String()
}

// sortReleases orders releases newest-first by publication date. Releases
// published at the same instant are ordered by descending semantic version.
func sortReleases(releases []domain.Release) {
	slices.SortStableFunc(releases, func(a, b domain.Release) int {
		if c := b.PublishedAt.Compare(a.PublishedAt); c != 0 {
			return c
		}
		return semver.Compare(canonical(b.TagName), canonical(a.TagName))
	})
}

func canonical(tag string) string {
	if strings.HasPrefix(tag, "v") {
		return tag
	}
	return "v" + tag
}
