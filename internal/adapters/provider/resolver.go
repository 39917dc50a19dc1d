package provider

import (
	"os"

	"go.trai.ch/modkit/internal/core/domain"
	"go.trai.ch/modkit/internal/core/ports"
	"go.trai.ch/zerr"
)

// Resolver binds identifiers to the GitHub or registry provider and picks the
// token each one authenticates with.
type Resolver struct {
	cfg    *domain.Config
	tokens ports.TokenStore
	getenv func(string) string
}

// NewResolver creates a resolver. tokens may be nil when no token store is available.
func NewResolver(cfg *domain.Config, tokens ports.TokenStore) *Resolver {
	return &Resolver{cfg: cfg, tokens: tokens, getenv: os.Getenv}
}

// WithEnv replaces the environment lookup.
func (r *Resolver) WithEnv(getenv func(string) string) *Resolver {
	r.getenv = getenv
	return r
}

// Resolve returns the provider for id. The token is the explicit one from opts,
// else the saved token for the identifier owner, else the environment fallback.
func (r *Resolver) Resolve(id domain.Identifier, opts ports.ProviderOptions) (ports.SourceProvider, error) {
	httpClient := NewHTTPClient(r.cfg.HTTPTimeout, opts.Insecure)

	switch id.Kind {
	case domain.KindGitHub:
		token := r.token(id, opts.Token, r.cfg.GitHub.TokenEnv)
		return NewGitHub(
			WithHTTPClient(httpClient),
			WithBaseURL(r.cfg.GitHub.APIBaseURL),
			WithToken(token),
		), nil
	case domain.KindRegistry:
		token := r.token(id, opts.Token, r.cfg.Registry.TokenEnv)
		return NewRegistry(
			WithHTTPClient(httpClient),
			WithBaseURL(r.cfg.Registry.APIBaseURL),
			WithToken(token),
		), nil
	default:
		return nil, zerr.With(zerr.Wrap(domain.ErrInvalidIdentifier, "no provider for identifier"), "identifier", id.Raw)
	}
}

func (r *Resolver) token(id domain.Identifier, explicit, env string) string {
	if explicit != "" {
		return explicit
	}
	if r.tokens != nil {
		if saved, ok := r.tokens.Load(id.TokenOwner()); ok && saved != "" {
			return saved
		}
	}
	if env != "" {
		return r.getenv(env)
	}
	return ""
}
