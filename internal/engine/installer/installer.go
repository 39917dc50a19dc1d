// Package installer implements the module install, uninstall and rollback protocol.
package installer

import (
	"context"
	"path/filepath"

	"go.trai.ch/modkit/internal/core/domain"
	"go.trai.ch/modkit/internal/core/ports"
	"go.trai.ch/zerr"
)

// Deps are the collaborators of an Installer.
type Deps struct {
	Locker    ports.Locker
	Backups   ports.BackupManager
	Extractor ports.Extractor
	Validator ports.Validator
	Merger    ports.ManifestMerger
	Hooks     ports.HookRunner
	Mover     ports.Mover
	Tracer    ports.Tracer
	Logger    ports.Logger
}

var _ ports.ModuleService = (*Installer)(nil)

// Installer drives the install state machine for one module at a time.
type Installer struct {
	cfg *domain.Config
	Deps
}

// New creates an Installer.
func New(cfg *domain.Config, deps Deps) *Installer {
	return &Installer{cfg: cfg, Deps: deps}
}

// run is the mutable state of one operation.
type run struct {
	result *domain.Result
	lock   *domain.Lock

	// stageRoot holds the downloaded archive, the extracted module and the previous install.
	stageRoot string
	staged    string
	previous  string

	backupPath string
	// touched is set once the final install path has been modified.
	touched bool
}

// Install fetches plan.Version of the module from provider and installs it at plan.InstallPath.
// The returned Result is always non-nil. On failure the install path is restored and the lock released.
func (s *Installer) Install(ctx context.Context, plan domain.InstallPlan, provider ports.SourceProvider) (*domain.Result, error) {
	id := plan.Identifier
	r := &run{result: &domain.Result{
		Identifier:  id.String(),
		Version:     plan.Version,
		ModulePath:  s.cfg.RelativeToRoot(plan.InstallPath),
		InstallPath: plan.InstallPath,
		DryRun:      plan.DryRun,
	}}
	r.result.Enter(domain.StateIdle)

	if err := s.acquire(ctx, r, id); err != nil {
		return s.fail(r, domain.ErrInstallFailed, err)
	}
	defer s.release(r)
	defer s.cleanup(r)

	exists := dirExists(plan.InstallPath)
	var previous domain.ManifestFragment
	if exists {
		previous = s.installedFragment(plan.InstallPath, r.result.ModulePath)
	}

	if plan.CreateBackup && exists {
		if plan.DryRun {
			s.Logger.Info("dry run: would back up " + r.result.ModulePath)
		} else if err := s.backup(ctx, r, plan.InstallPath, id.Label()); err != nil {
			return s.fail(r, domain.ErrInstallFailed, err)
		}
	}
	r.result.Enter(domain.StateBackedUp)

	if err := s.stage(ctx, r, plan, provider); err != nil {
		return s.abort(ctx, r, plan.InstallPath, domain.ErrInstallFailed, err)
	}
	r.result.Enter(domain.StateStaged)

	meta, err := s.validate(ctx, r.staged, plan.Validate)
	if err != nil {
		return s.abort(ctx, r, plan.InstallPath, domain.ErrInstallFailed, err)
	}
	if meta != nil {
		r.result.Namespace = meta.Namespace
	}
	r.result.Enter(domain.StateValidated)

	fragment, err := domain.ReadManifestFragment(r.staged, r.result.ModulePath, meta)
	if err != nil {
		return s.abort(ctx, r, plan.InstallPath, domain.ErrInstallFailed, err)
	}

	env := ports.HookEnv{ModuleDir: plan.InstallPath, Version: plan.Version, AppRoot: s.cfg.Root}

	if plan.DryRun {
		if err := s.checkManifest(ctx, r, fragment, previous); err != nil {
			return s.abort(ctx, r, plan.InstallPath, domain.ErrInstallFailed, err)
		}
		s.Logger.Info("dry run: would install " + plan.Version + " into " + r.result.ModulePath)
		r.result.Enter(domain.StateCommitted)
		r.result.Success = true
		return r.result, nil
	}

	if plan.ExecuteHooks {
		if err := s.hook(ctx, domain.HookPreInstall, r.staged, env); err != nil {
			return s.abort(ctx, r, plan.InstallPath, domain.ErrInstallFailed, err)
		}
	}

	if err := s.commit(ctx, r, plan.InstallPath, exists); err != nil {
		return s.abort(ctx, r, plan.InstallPath, domain.ErrInstallFailed, err)
	}
	if err := s.mergeManifest(ctx, r, fragment, previous); err != nil {
		return s.abort(ctx, r, plan.InstallPath, domain.ErrInstallFailed, err)
	}
	r.result.Enter(domain.StateMerged)

	if plan.ExecuteHooks {
		if err := s.hook(ctx, domain.HookPostInstall, plan.InstallPath, env); err != nil {
			s.warn(r, "post-install hook failed: "+err.Error())
		}
	}
	r.result.Enter(domain.StateCommitted)

	s.retention(ctx, r, id.Label())

	r.result.Success = true
	return r.result, nil
}

// Uninstall removes an installed module and the manifest entries it contributed.
func (s *Installer) Uninstall(ctx context.Context, plan domain.UninstallPlan) (*domain.Result, error) {
	id := plan.Identifier
	r := &run{result: &domain.Result{
		Identifier:  id.String(),
		ModulePath:  s.cfg.RelativeToRoot(plan.InstallPath),
		InstallPath: plan.InstallPath,
		DryRun:      plan.DryRun,
	}}
	r.result.Enter(domain.StateIdle)

	if err := s.acquire(ctx, r, id); err != nil {
		return s.fail(r, domain.ErrUninstallFailed, err)
	}
	defer s.release(r)
	defer s.cleanup(r)

	if !dirExists(plan.InstallPath) {
		err := zerr.With(zerr.Wrap(domain.ErrModuleNotInstalled, "nothing to uninstall"), "path", plan.InstallPath)
		return s.fail(r, domain.ErrUninstallFailed, err)
	}

	meta, err := domain.ReadModuleMetadata(plan.InstallPath, s.cfg.Validation.MetadataFile)
	if err != nil {
		s.Logger.Warn("module metadata unreadable, namespace mapping is kept: " + err.Error())
	} else {
		r.result.Namespace = meta.Namespace
		r.result.Version = meta.Version
	}
	fragment, err := domain.ReadManifestFragment(plan.InstallPath, r.result.ModulePath, meta)
	if err != nil {
		return s.fail(r, domain.ErrUninstallFailed, err)
	}

	if plan.CreateBackup {
		if plan.DryRun {
			s.Logger.Info("dry run: would back up " + r.result.ModulePath)
		} else if err := s.backup(ctx, r, plan.InstallPath, id.Label()); err != nil {
			return s.fail(r, domain.ErrUninstallFailed, err)
		}
	}
	r.result.Enter(domain.StateBackedUp)

	if plan.DryRun {
		s.Logger.Info("dry run: would remove " + r.result.ModulePath)
		r.result.Enter(domain.StateCommitted)
		r.result.Success = true
		return r.result, nil
	}

	env := ports.HookEnv{ModuleDir: plan.InstallPath, Version: r.result.Version, AppRoot: s.cfg.Root}
	if plan.ExecuteHooks {
		if err := s.hook(ctx, domain.HookPreUninstall, plan.InstallPath, env); err != nil {
			return s.fail(r, domain.ErrUninstallFailed, err)
		}
	}

	if r.stageRoot, err = s.newStageRoot(id.Label()); err != nil {
		return s.fail(r, domain.ErrUninstallFailed, err)
	}

	err = s.step(ctx, domain.StepRemove, func(ctx context.Context, _ ports.Span) error {
		previous := filepath.Join(r.stageRoot, previousDirName)
		if err := s.Mover.Move(ctx, plan.InstallPath, previous); err != nil {
			return err
		}
		r.previous = previous
		r.touched = true
		return s.removeManifest(ctx, r, fragment)
	})
	if err != nil {
		return s.abort(ctx, r, plan.InstallPath, domain.ErrUninstallFailed, err)
	}
	r.result.Enter(domain.StateMerged)

	if plan.ExecuteHooks {
		if err := s.hook(ctx, domain.HookPostUninstall, r.previous, env); err != nil {
			s.warn(r, "post-uninstall hook failed: "+err.Error())
		}
	}
	r.result.Enter(domain.StateCommitted)

	r.result.Success = true
	return r.result, nil
}

// Rollback restores a module from a snapshot: the named one, or the newest taken from its install path.
func (s *Installer) Rollback(ctx context.Context, plan domain.RollbackPlan) (*domain.Result, error) {
	id := plan.Identifier
	r := &run{result: &domain.Result{
		Identifier:  id.String(),
		ModulePath:  s.cfg.RelativeToRoot(plan.InstallPath),
		InstallPath: plan.InstallPath,
	}}
	r.result.Enter(domain.StateIdle)

	if err := s.acquire(ctx, r, id); err != nil {
		return s.fail(r, domain.ErrRollbackFailed, err)
	}
	defer s.release(r)

	backupPath, err := s.selectBackup(id, plan)
	if err != nil {
		return s.fail(r, domain.ErrRollbackFailed, err)
	}
	r.result.BackupPath = backupPath

	err = s.step(ctx, domain.StepRestore, func(_ context.Context, span ports.Span) error {
		span.SetAttribute("backup", backupPath)
		return s.Backups.RestoreBackup(backupPath, plan.InstallPath)
	})
	if err != nil {
		return s.fail(r, domain.ErrRollbackFailed, err)
	}
	r.result.Enter(domain.StateRolledBack)

	if meta, err := domain.ReadModuleMetadata(plan.InstallPath, s.cfg.Validation.MetadataFile); err == nil {
		r.result.Namespace = meta.Namespace
		r.result.Version = meta.Version
	}

	r.result.Success = true
	return r.result, nil
}
