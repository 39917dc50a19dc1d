package ports

import (
	"context"
	"io"

	"go.trai.ch/modkit/internal/core/domain"
)

// SourceProvider resolves module identifiers to releases and downloadable packages.
//
//go:generate mockgen -source=provider.go -destination=mocks/mock_provider.go -package=mocks
type SourceProvider interface {
	// FetchReleases returns the module releases newest-first.
	FetchReleases(ctx context.Context, id domain.Identifier, includePrereleases bool) ([]domain.Release, error)

	// FetchPackage streams the package archive for version. The caller closes the reader.
	FetchPackage(ctx context.Context, id domain.Identifier, version string) (io.ReadCloser, error)

	// Token returns the credential the provider authenticates with, if any.
	Token() string
}

// ProviderOptions configure a provider binding.
type ProviderOptions struct {
	// Token is an explicit credential; it takes precedence over stored and environment tokens.
	Token string
	// Insecure disables TLS certificate verification.
	Insecure bool
}

// ProviderResolver binds an identifier to exactly one provider.
type ProviderResolver interface {
	Resolve(id domain.Identifier, opts ProviderOptions) (SourceProvider, error)
}
