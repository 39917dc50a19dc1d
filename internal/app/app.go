// Package app implements the application layer for modkit.
package app

import (
	"context"
	"errors"

	"go.trai.ch/modkit/internal/core/domain"
	"go.trai.ch/modkit/internal/core/ports"
	"go.trai.ch/zerr"
)

// Shutdowner flushes buffered output when the application exits.
type Shutdowner interface {
	Shutdown(ctx context.Context) error
}

// App represents the main application logic.
type App struct {
	cfg       *domain.Config
	service   ports.ModuleService
	providers ports.ProviderResolver
	tokens    ports.TokenStore
	backups   ports.BackupManager
	prompter  ports.Prompter
	logger    ports.Logger
	tracer    Shutdowner
}

// New creates a new App instance.
func New(
	cfg *domain.Config,
	service ports.ModuleService,
	providers ports.ProviderResolver,
	tokens ports.TokenStore,
	backups ports.BackupManager,
	prompter ports.Prompter,
	log ports.Logger,
) *App {
	return &App{
		cfg:       cfg,
		service:   service,
		providers: providers,
		tokens:    tokens,
		backups:   backups,
		prompter:  prompter,
		logger:    log,
	}
}

// WithTracer registers the tracer flushed by Shutdown.
func (a *App) WithTracer(t Shutdowner) *App {
	a.tracer = t
	return a
}

// Config returns the effective configuration.
func (a *App) Config() *domain.Config {
	return a.cfg
}

// UseJSONLogs switches the logger to JSON lines when it supports it.
func (a *App) UseJSONLogs(enable bool) {
	if l, ok := a.logger.(interface{ SetJSON(bool) }); ok {
		l.SetJSON(enable)
	}
}

// Shutdown flushes the step renderer.
func (a *App) Shutdown(ctx context.Context) error {
	if a.tracer == nil {
		return nil
	}
	return a.tracer.Shutdown(ctx)
}

// SourceOptions select how a module source is reached.
type SourceOptions struct {
	Token     string
	SaveToken bool
	Insecure  bool
}

func (a *App) parse(raw string) (domain.Identifier, error) {
	id, err := domain.ParseIdentifier(raw, a.cfg.Registry)
	if err != nil {
		return domain.Identifier{}, err
	}
	return id, nil
}

// bind resolves the provider for id and persists an explicit token on request.
func (a *App) bind(id domain.Identifier, opts SourceOptions) (ports.SourceProvider, error) {
	provider, err := a.providers.Resolve(id, ports.ProviderOptions{Token: opts.Token, Insecure: opts.Insecure})
	if err != nil {
		return nil, err
	}
	if opts.SaveToken && opts.Token != "" {
		if err := a.tokens.Save(id.TokenOwner(), opts.Token); err != nil {
			return nil, err
		}
		a.logger.Info("token saved for " + ownerName(id.TokenOwner()))
	}
	return provider, nil
}

// confirmInsecure warns about disabled TLS verification and asks to continue.
func (a *App) confirmInsecure(opts SourceOptions, yes bool) error {
	if !opts.Insecure {
		return nil
	}
	a.logger.Warn("TLS certificate verification is disabled")
	a.logger.Warn("the module package and release data can be tampered with in transit")
	a.logger.Warn("only use --insecure against hosts you control")
	if yes || a.prompter.Confirm("Continue without TLS verification?", false) {
		return nil
	}
	return domain.ErrOperationCancelled
}

// fetchReleases lists releases for id. When GitHub asks for credentials and none
// were used, the user is prompted once for a token and the fetch is retried.
func (a *App) fetchReleases(
	ctx context.Context,
	id domain.Identifier,
	provider ports.SourceProvider,
	opts SourceOptions,
	includePre bool,
) ([]domain.Release, ports.SourceProvider, error) {
	var releases []domain.Release
	fetch := func(p ports.SourceProvider) error {
		return a.prompter.Spin(ctx, "Fetching releases for "+id.String(), func(ctx context.Context) error {
			var err error
			releases, err = p.FetchReleases(ctx, id, includePre)
			return err
		})
	}

	err := fetch(provider)
	if err == nil || !errors.Is(err, domain.ErrAuthRequired) || !a.canPromptToken(id, provider) {
		return releases, provider, err
	}

	token, perr := a.prompter.Secret("GitHub token for " + id.Owner + ": ")
	if perr != nil || token == "" {
		return nil, provider, err
	}
	retryOpts := opts
	retryOpts.Token = token
	retryOpts.SaveToken = false
	provider, err = a.bind(id, retryOpts)
	if err != nil {
		return nil, nil, err
	}
	if err := fetch(provider); err != nil {
		return nil, provider, err
	}
	if a.prompter.Confirm("Save this token for "+id.Owner+"?", true) {
		if err := a.tokens.Save(id.TokenOwner(), token); err != nil {
			a.logger.Warn("could not save token: " + err.Error())
		} else {
			a.logger.Info("token saved for " + id.Owner)
		}
	}
	return releases, provider, nil
}

func (a *App) canPromptToken(id domain.Identifier, provider ports.SourceProvider) bool {
	return id.Kind == domain.KindGitHub && provider.Token() == "" && a.prompter.Interactive()
}

// selectVersion applies --with-version, then --latest, then the interactive choice.
func (a *App) selectVersion(id domain.Identifier, releases []domain.Release, version string, latest bool) (string, error) {
	if len(releases) == 0 {
		return "", zerr.With(zerr.Wrap(domain.ErrNoReleases, "cannot select a version"), "identifier", id.String())
	}
	if version != "" {
		return version, nil
	}
	if latest {
		return releases[0].TagName, nil
	}

	options := make([]domain.Option, 0, len(releases))
	for _, r := range releases {
		options = append(options, domain.Option{Value: r.TagName, Label: r.Label()})
	}
	chosen, err := a.prompter.Select("Select a version of "+id.String(), options, releases[0].TagName)
	if err != nil {
		return "", err
	}
	if chosen == "" {
		return "", domain.ErrNoVersionSelected
	}
	return chosen, nil
}

func ownerName(owner string) string {
	if owner == "" {
		return "the module registry"
	}
	return owner
}
