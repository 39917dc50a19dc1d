package app

import (
	"context"
	"errors"

	"go.trai.ch/modkit/internal/core/domain"
)

// InstallOptions configure an install.
type InstallOptions struct {
	SourceOptions

	// Version wins over Latest and the interactive choice.
	Version    string
	Latest     bool
	PreRelease bool

	NoBackup   bool
	NoHooks    bool
	NoValidate bool
	DryRun     bool
	// Yes accepts every confirmation.
	Yes bool
}

// Install resolves, selects and installs a module release.
func (a *App) Install(ctx context.Context, raw string, opts InstallOptions) (*domain.Result, error) {
	id, err := a.parse(raw)
	if err != nil {
		return nil, err
	}
	if err := a.confirmInsecure(opts.SourceOptions, opts.Yes); err != nil {
		return nil, err
	}

	provider, err := a.bind(id, opts.SourceOptions)
	if err != nil {
		return nil, err
	}
	releases, provider, err := a.fetchReleases(ctx, id, provider, opts.SourceOptions, opts.PreRelease)
	if err != nil {
		return nil, err
	}
	version, err := a.selectVersion(id, releases, opts.Version, opts.Latest || opts.Yes)
	if err != nil {
		return nil, err
	}

	createBackup := false
	if !opts.NoBackup {
		createBackup = opts.Yes || a.prompter.Confirm("Create backup before installation?", true)
	}

	a.logger.Info("installing " + id.String() + " " + version)
	return a.service.Install(ctx, domain.InstallPlan{
		Identifier:   id,
		Version:      version,
		InstallPath:  a.cfg.ModuleDir(id),
		CreateBackup: createBackup,
		ExecuteHooks: !opts.NoHooks,
		Validate:     !opts.NoValidate,
		DryRun:       opts.DryRun,
	}, provider)
}

// UninstallOptions configure an uninstall.
type UninstallOptions struct {
	NoBackup bool
	NoHooks  bool
	DryRun   bool
	Yes      bool
}

// Uninstall removes an installed module.
func (a *App) Uninstall(ctx context.Context, raw string, opts UninstallOptions) (*domain.Result, error) {
	id, err := a.parse(raw)
	if err != nil {
		return nil, err
	}
	if !opts.Yes && !opts.DryRun && !a.prompter.Confirm("Uninstall "+id.String()+"?", true) {
		return nil, domain.ErrOperationCancelled
	}
	return a.service.Uninstall(ctx, domain.UninstallPlan{
		Identifier:   id,
		InstallPath:  a.cfg.ModuleDir(id),
		CreateBackup: !opts.NoBackup,
		ExecuteHooks: !opts.NoHooks,
		DryRun:       opts.DryRun,
	})
}

// Rollback restores the newest snapshot of a module, or backupPath when set.
func (a *App) Rollback(ctx context.Context, raw, backupPath string) (*domain.Result, error) {
	id, err := a.parse(raw)
	if err != nil {
		return nil, err
	}
	return a.service.Rollback(ctx, domain.RollbackPlan{
		Identifier:  id,
		InstallPath: a.cfg.ModuleDir(id),
		BackupPath:  backupPath,
	})
}

// Releases lists the releases of a module newest-first.
func (a *App) Releases(ctx context.Context, raw string, opts SourceOptions, includePre bool) ([]domain.Release, error) {
	id, err := a.parse(raw)
	if err != nil {
		return nil, err
	}
	if err := a.confirmInsecure(opts, false); err != nil {
		return nil, err
	}
	provider, err := a.bind(id, opts)
	if err != nil {
		return nil, err
	}
	releases, _, err := a.fetchReleases(ctx, id, provider, opts, includePre)
	return releases, err
}

// IsCancelled reports whether err means the user declined to continue.
func IsCancelled(err error) bool {
	return errors.Is(err, domain.ErrOperationCancelled)
}
