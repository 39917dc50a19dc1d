package provider

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.trai.ch/modkit/internal/core/domain"
	"go.trai.ch/zerr"
)

// registryRelease is the wire format of a first-party registry release.
type registryRelease struct {
	Version     string    `json:"version"`
	Name        string    `json:"name"`
	PublishedAt time.Time `json:"published_at"`
	Prerelease  bool      `json:"prerelease"`
	DownloadURL string    `json:"download_url"`
}

type registryReleases struct {
	Data []registryRelease `json:"data"`
}

// Registry fetches modules from the first-party module registry.
//
//	GET {base}/{vendor}/{name}/releases        -> {"data": [release...]}
//	GET {base}/{vendor}/{name}/download/{tag}  -> package archive
type Registry struct {
	client
}

// NewRegistry creates a registry provider.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{client: client{
		http:    http.DefaultClient,
		baseURL: domain.DefaultRegistryAPI,
		headers: map[string]string{"Accept": "application/json"},
	}}
	for _, opt := range opts {
		opt(&r.client)
	}
	r.trusted = r.isRegistryHost
	return r
}

// Token returns the token the provider authenticates with.
func (r *Registry) Token() string {
	return r.token
}

// FetchReleases lists the module releases newest-first.
func (r *Registry) FetchReleases(ctx context.Context, id domain.Identifier, includePrereleases bool) ([]domain.Release, error) {
	listURL := r.moduleURL(id) + "/releases"

	resp, err := r.get(ctx, listURL)
	if err != nil {
		return nil, zerr.With(err, "identifier", id.String())
	}
	if err := r.check(resp, listURL); err != nil {
		return nil, zerr.With(err, "identifier", id.String())
	}
	defer resp.Body.Close() //nolint:errcheck // read-only response body

	var payload registryReleases
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJSONResponseBytes)).Decode(&payload); err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrProviderResponse, "failed to decode releases"), "identifier", id.String())
	}

	releases := make([]domain.Release, 0, len(payload.Data))
	for _, rel := range payload.Data {
		if rel.Prerelease && !includePrereleases {
			continue
		}
		releases = append(releases, domain.Release{
			TagName:     rel.Version,
			Name:        rel.Name,
			PublishedAt: rel.PublishedAt,
			Prerelease:  rel.Prerelease,
			ArchiveURL:  rel.DownloadURL,
		})
	}

	if len(releases) == 0 {
		return nil, zerr.With(zerr.Wrap(domain.ErrNoReleases, "registry returned no releases"), "identifier", id.String())
	}
	sortReleases(releases)
	return releases, nil
}

// FetchPackage streams the package archive of version.
func (r *Registry) FetchPackage(ctx context.Context, id domain.Identifier, version string) (io.ReadCloser, error) {
	downloadURL := r.moduleURL(id) + "/download/" + url.PathEscape(version)

	resp, err := r.get(ctx, downloadURL)
	if err != nil {
		return nil, zerr.With(zerr.With(err, "identifier", id.String()), "version", version)
	}
	if err := r.check(resp, downloadURL); err != nil {
		return nil, zerr.With(zerr.With(err, "identifier", id.String()), "version", version)
	}
	return resp.Body, nil
}

func (r *Registry) moduleURL(id domain.Identifier) string {
	parts := make([]string, 0, 2)
	if id.Owner != "" {
		parts = append(parts, url.PathEscape(id.Owner))
	}
	parts = append(parts, url.PathEscape(id.Name))
	return r.baseURL + "/" + strings.Join(parts, "/")
}

func (r *Registry) isRegistryHost(reqURL *url.URL) bool {
	base, err := url.Parse(r.baseURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(reqURL.Host, base.Host)
}
