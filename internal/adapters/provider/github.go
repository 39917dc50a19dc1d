package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.trai.ch/modkit/internal/core/domain"
	"go.trai.ch/zerr"
)

// githubRelease is the wire format of a GitHub release.
type githubRelease struct {
	TagName     string    `json:"tag_name"`
	Name        string    `json:"name"`
	Draft       bool      `json:"draft"`
	Prerelease  bool      `json:"prerelease"`
	PublishedAt time.Time `json:"published_at"`
	TarballURL  string    `json:"tarball_url"`
}

// GitHub fetches module releases and tarballs from the GitHub REST API.
type GitHub struct {
	client
}

// NewGitHub creates a GitHub provider. The default base URL is the public API.
func NewGitHub(opts ...Option) *GitHub {
	g := &GitHub{client: client{
		http:         http.DefaultClient,
		baseURL:      domain.DefaultGitHubAPI,
		hidesPrivate: true,
		headers: map[string]string{
			"Accept":               "application/vnd.github+json",
			"X-GitHub-Api-Version": "2022-11-28",
		},
	}}
	for _, opt := range opts {
		opt(&g.client)
	}
	g.trusted = g.isGitHubHost
	return g
}

// Token returns the token the provider authenticates with.
func (g *GitHub) Token() string {
	return g.token
}

// FetchReleases lists the repository releases newest-first, following
// pagination up to maxPages. Drafts are always dropped.
func (g *GitHub) FetchReleases(ctx context.Context, id domain.Identifier, includePrereleases bool) ([]domain.Release, error) {
	pageURL := fmt.Sprintf("%s/repos/%s/%s/releases?per_page=%d",
		g.baseURL, url.PathEscape(id.Owner), url.PathEscape(id.Name), perPage)

	var all []domain.Release
	for page := 0; page < maxPages && pageURL != ""; page++ {
		resp, err := g.get(ctx, pageURL)
		if err != nil {
			return nil, zerr.With(err, "identifier", id.String())
		}
		if err := g.check(resp, pageURL); err != nil {
			return nil, zerr.With(err, "identifier", id.String())
		}

		var raw []githubRelease
		err = json.NewDecoder(io.LimitReader(resp.Body, maxJSONResponseBytes)).Decode(&raw)
		_ = resp.Body.Close()
		if err != nil {
			return nil, zerr.With(zerr.Wrap(domain.ErrProviderResponse, "failed to decode releases"), "identifier", id.String())
		}

		for _, r := range raw {
			if r.Draft || (r.Prerelease && !includePrereleases) {
				continue
			}
			all = append(all, domain.Release{
				TagName:     r.TagName,
				Name:        r.Name,
				PublishedAt: r.PublishedAt,
				Prerelease:  r.Prerelease,
				ArchiveURL:  r.TarballURL,
			})
		}

		pageURL = parseLinkHeader(resp.Header.Get("Link"))
	}

	if len(all) == 0 {
		return nil, zerr.With(zerr.Wrap(domain.ErrNoReleases, "provider returned no releases"), "identifier", id.String())
	}
	sortReleases(all)
	return all, nil
}

// FetchPackage streams the tarball of the release tagged version.
func (g *GitHub) FetchPackage(ctx context.Context, id domain.Identifier, version string) (io.ReadCloser, error) {
	tarballURL := fmt.Sprintf("%s/repos/%s/%s/tarball/%s",
		g.baseURL, url.PathEscape(id.Owner), url.PathEscape(id.Name), url.PathEscape(version))

	resp, err := g.get(ctx, tarballURL)
	if err != nil {
		return nil, zerr.With(zerr.With(err, "identifier", id.String()), "version", version)
	}
	if err := g.check(resp, tarballURL); err != nil {
		return nil, zerr.With(zerr.With(err, "identifier", id.String()), "version", version)
	}
	return resp.Body, nil
}

// isGitHubHost reports whether reqURL may carry the token: the configured API
// host, and github.com when the API is the public one.
func (g *GitHub) isGitHubHost(reqURL *url.URL) bool {
	base, err := url.Parse(g.baseURL)
	if err != nil {
		return false
	}
	if strings.EqualFold(reqURL.Host, base.Host) {
		return true
	}
	return strings.EqualFold(base.Host, "api.github.com") && strings.EqualFold(reqURL.Host, "github.com")
}
