package installer

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.trai.ch/modkit/internal/core/domain"
	"go.trai.ch/modkit/internal/core/ports"
	"go.trai.ch/zerr"
)

const (
	packageFileName = "package.archive"
	stagedDirName   = "module"
	previousDirName = "previous"

	manifestLockPoll = 100 * time.Millisecond
)

// step runs fn inside a span named name.
func (s *Installer) step(ctx context.Context, name string, fn func(ctx context.Context, span ports.Span) error) error {
	ctx, span := s.Tracer.Start(ctx, name)
	defer span.End()

	if err := fn(ctx, span); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

func (s *Installer) acquire(ctx context.Context, r *run, id domain.Identifier) error {
	return s.step(ctx, domain.StepLock, func(ctx context.Context, span ports.Span) error {
		span.SetAttribute("key", id.Label())
		lock, err := s.Locker.Acquire(ctx, id.Label(), id.String())
		if err != nil {
			return err
		}
		r.lock = lock
		r.result.Enter(domain.StateLocked)
		return nil
	})
}

// release runs on every exit path once the lock was taken.
func (s *Installer) release(r *run) {
	if r.lock == nil {
		return
	}
	if err := s.Locker.Release(r.lock); err != nil {
		s.warn(r, "failed to release lock: "+err.Error())
	}
	r.lock = nil
	r.result.Enter(domain.StateUnlocked)
}

func (s *Installer) cleanup(r *run) {
	if r.stageRoot != "" {
		_ = os.RemoveAll(r.stageRoot)
	}
}

func (s *Installer) warn(r *run, msg string) {
	r.result.Warnings = append(r.result.Warnings, msg)
	s.Logger.Warn(msg)
}

// fail ends an operation that has nothing to roll back.
func (s *Installer) fail(r *run, op, err error) (*domain.Result, error) {
	wrapped := zerr.With(zerr.Wrap(err, op.Error()), "identifier", r.result.Identifier)
	r.result.Enter(domain.StateFailed)
	r.result.Success = false
	r.result.Error = wrapped.Error()
	return r.result, wrapped
}

// abort rolls back after a step failure. The install path is restored only if it was modified.
// A failing restore is joined to the step error as domain.ErrRollbackFailed.
func (s *Installer) abort(ctx context.Context, r *run, installPath string, op, err error) (*domain.Result, error) {
	wrapped := zerr.With(zerr.Wrap(err, op.Error()), "identifier", r.result.Identifier)

	if r.touched {
		if restoreErr := s.restore(ctx, r, installPath); restoreErr != nil {
			rollbackErr := zerr.With(zerr.Wrap(domain.ErrRollbackFailed, restoreErr.Error()), "path", installPath)
			wrapped = errors.Join(wrapped, rollbackErr)
			r.result.Enter(domain.StateFailed)
			r.result.Error = wrapped.Error()
			return r.result, wrapped
		}
	}

	r.result.Enter(domain.StateRolledBack)
	r.result.RolledBack = r.touched
	r.result.Error = wrapped.Error()
	return r.result, wrapped
}

// restore puts back what was at installPath before the operation. The copy moved
// aside is exact, so it wins over the snapshot, which skips lock files.
func (s *Installer) restore(ctx context.Context, r *run, installPath string) error {
	return s.step(ctx, domain.StepRestore, func(ctx context.Context, span ports.Span) error {
		var moveErr error
		if r.previous != "" && dirExists(r.previous) {
			span.SetAttribute("source", r.previous)
			if moveErr = s.putBack(ctx, r.previous, installPath); moveErr == nil {
				return nil
			}
		}
		if r.backupPath != "" {
			span.SetAttribute("backup", r.backupPath)
			if err := s.Backups.RestoreBackup(r.backupPath, installPath); err != nil {
				return errors.Join(moveErr, err)
			}
			return nil
		}
		if moveErr != nil {
			return moveErr
		}
		if err := os.RemoveAll(installPath); err != nil {
			return zerr.With(zerr.Wrap(err, "failed to remove partial install"), "path", installPath)
		}
		return nil
	})
}

func (s *Installer) putBack(ctx context.Context, previous, installPath string) error {
	if err := os.RemoveAll(installPath); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to remove partial install"), "path", installPath)
	}
	return s.Mover.Move(ctx, previous, installPath)
}

func (s *Installer) backup(ctx context.Context, r *run, installPath, label string) error {
	return s.step(ctx, domain.StepBackup, func(_ context.Context, span ports.Span) error {
		path, err := s.Backups.CreateBackup(installPath, label)
		if err != nil {
			return err
		}
		span.SetAttribute("backup", path)
		r.backupPath = path
		r.result.BackupPath = path
		return nil
	})
}

func (s *Installer) newStageRoot(label string) (string, error) {
	if err := os.MkdirAll(s.cfg.StagingDir, domain.DirPerm); err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to create staging directory"), "path", s.cfg.StagingDir)
	}
	root, err := os.MkdirTemp(s.cfg.StagingDir, label+"-")
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to create staging directory"), "path", s.cfg.StagingDir)
	}
	return root, nil
}

// stage downloads the package and extracts it into the stage root.
func (s *Installer) stage(ctx context.Context, r *run, plan domain.InstallPlan, provider ports.SourceProvider) error {
	root, err := s.newStageRoot(plan.Identifier.Label())
	if err != nil {
		return err
	}
	r.stageRoot = root
	archive := filepath.Join(root, packageFileName)

	err = s.step(ctx, domain.StepFetch, func(ctx context.Context, span ports.Span) error {
		span.SetAttribute("version", plan.Version)
		body, err := provider.FetchPackage(ctx, plan.Identifier, plan.Version)
		if err != nil {
			return err
		}
		defer func() { _ = body.Close() }()

		n, err := download(body, archive, s.cfg.MaxDownloadSize)
		span.SetAttribute("bytes", n)
		return err
	})
	if err != nil {
		return err
	}

	r.staged = filepath.Join(root, stagedDirName)
	return s.step(ctx, domain.StepExtract, func(ctx context.Context, _ ports.Span) error {
		return s.Extractor.Extract(ctx, archive, r.staged)
	})
}

// download writes body to path, failing once more than limit bytes arrive. A limit <= 0 disables the cap.
func download(body io.Reader, path string, limit int64) (int64, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, domain.PrivateFilePerm) //nolint:gosec // staging path
	if err != nil {
		return 0, zerr.With(zerr.Wrap(err, "failed to create package file"), "path", path)
	}
	defer func() { _ = f.Close() }()

	src := body
	if limit > 0 {
		src = io.LimitReader(body, limit+1)
	}
	n, err := io.Copy(f, src)
	if err != nil {
		return n, zerr.Wrap(err, "failed to download package")
	}
	if limit > 0 && n > limit {
		return n, zerr.With(zerr.Wrap(domain.ErrDownloadTooLarge, "download aborted"), "limit_bytes", limit)
	}
	if err := f.Close(); err != nil {
		return n, zerr.With(zerr.Wrap(err, "failed to write package file"), "path", path)
	}
	return n, nil
}

// validate checks the staged module. With validation disabled the metadata is read on a best-effort basis.
func (s *Installer) validate(ctx context.Context, staged string, enabled bool) (*domain.ModuleMetadata, error) {
	if !enabled {
		s.Logger.Warn("validation disabled, installing an unverified module")
		meta, err := domain.ReadModuleMetadata(staged, s.cfg.Validation.MetadataFile)
		if err != nil {
			return nil, nil //nolint:nilerr // metadata is optional without validation
		}
		return meta, nil
	}

	var meta *domain.ModuleMetadata
	err := s.step(ctx, domain.StepValidate, func(_ context.Context, _ ports.Span) error {
		var err error
		meta, err = s.Validator.Validate(staged)
		return err
	})
	return meta, err
}

func (s *Installer) hook(ctx context.Context, name, dir string, env ports.HookEnv) error {
	return s.step(ctx, domain.HookStep(name), func(ctx context.Context, span ports.Span) error {
		inv, err := s.Hooks.Run(ctx, name, dir, env)
		if inv != nil {
			span.SetAttribute("skipped", inv.Skipped)
			if inv.Stdout != "" {
				_, _ = io.WriteString(span, inv.Stdout)
			}
		}
		return err
	})
}

// commit moves the current install aside and the staged module into place.
func (s *Installer) commit(ctx context.Context, r *run, installPath string, exists bool) error {
	return s.step(ctx, domain.StepCommit, func(ctx context.Context, _ ports.Span) error {
		if exists {
			previous := filepath.Join(r.stageRoot, previousDirName)
			if err := s.Mover.Move(ctx, installPath, previous); err != nil {
				return zerr.With(zerr.Wrap(err, "failed to move current install aside"), "path", installPath)
			}
			r.previous = previous
		}
		r.touched = true
		if err := s.Mover.Move(ctx, r.staged, installPath); err != nil {
			return zerr.With(zerr.Wrap(err, "failed to move module into place"), "path", installPath)
		}
		return nil
	})
}

// installedFragment reads what the copy at installPath contributed to the host manifest.
// An unreadable copy contributes nothing, so the entries it added count as foreign.
func (s *Installer) installedFragment(installPath, modulePath string) domain.ManifestFragment {
	meta, err := domain.ReadModuleMetadata(installPath, s.cfg.Validation.MetadataFile)
	if err != nil {
		meta = nil
	}
	fragment, err := domain.ReadManifestFragment(installPath, modulePath, meta)
	if err != nil {
		s.Logger.Warn("installed module manifest unreadable, its host entries are left as they are: " + err.Error())
		return domain.ManifestFragment{}
	}
	return fragment
}

// hostManifestPresent reports whether there is a host manifest to merge into, warning when there is not.
func (s *Installer) hostManifestPresent(r *run, fragments ...domain.ManifestFragment) bool {
	if !slices.ContainsFunc(fragments, func(f domain.ManifestFragment) bool { return !f.Empty() }) {
		return false
	}
	if _, err := os.Stat(s.cfg.HostManifest); err != nil {
		s.warn(r, "host manifest "+s.cfg.RelativeToRoot(s.cfg.HostManifest)+" not found, module dependencies were not merged")
		return false
	}
	return true
}

// checkManifest reports conflicts a merge would hit without writing.
func (s *Installer) checkManifest(ctx context.Context, r *run, fragment, previous domain.ManifestFragment) error {
	if !s.hostManifestPresent(r, fragment, previous) {
		return nil
	}
	return s.step(ctx, domain.StepMerge, func(_ context.Context, span ports.Span) error {
		report, err := s.Merger.Check(s.cfg.HostManifest, fragment, previous)
		if err != nil {
			return err
		}
		span.SetAttribute("added_requires", report.AddedRequires)
		span.SetAttribute("updated_requires", report.UpdatedRequires)
		manifest := s.cfg.RelativeToRoot(s.cfg.HostManifest)
		if added := append(slices.Clone(report.AddedRequires), report.AddedAutoload...); len(added) > 0 {
			s.Logger.Info("dry run: would add " + strings.Join(added, ", ") + " to " + manifest)
		}
		if updated := append(slices.Clone(report.UpdatedRequires), report.UpdatedAutoload...); len(updated) > 0 {
			s.Logger.Info("dry run: would update " + strings.Join(updated, ", ") + " in " + manifest)
		}
		return nil
	})
}

func (s *Installer) mergeManifest(ctx context.Context, r *run, fragment, previous domain.ManifestFragment) error {
	if !s.hostManifestPresent(r, fragment, previous) {
		return nil
	}
	return s.step(ctx, domain.StepMerge, func(ctx context.Context, span ports.Span) error {
		return s.withManifestLock(ctx, r, func() error {
			report, err := s.Merger.Merge(ctx, s.cfg.HostManifest, fragment, previous)
			if err != nil {
				return err
			}
			span.SetAttribute("added_requires", report.AddedRequires)
			span.SetAttribute("added_autoload", report.AddedAutoload)
			span.SetAttribute("updated_requires", report.UpdatedRequires)
			span.SetAttribute("removed_requires", report.RemovedRequires)
			span.SetAttribute("resolved", report.Resolved)
			return nil
		})
	})
}

func (s *Installer) removeManifest(ctx context.Context, r *run, fragment domain.ManifestFragment) error {
	if !s.hostManifestPresent(r, fragment) {
		return nil
	}
	return s.withManifestLock(ctx, r, func() error {
		_, err := s.Merger.Remove(ctx, s.cfg.HostManifest, fragment)
		return err
	})
}

// withManifestLock serializes host manifest writes across modules. The holder is
// another live operation, so a held lock is waited for rather than failed on.
func (s *Installer) withManifestLock(ctx context.Context, r *run, fn func() error) error {
	lock, err := s.awaitManifestLock(ctx, r.result.Identifier)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Locker.Release(lock); err != nil {
			s.warn(r, "failed to release manifest lock: "+err.Error())
		}
	}()
	return fn()
}

// awaitManifestLock polls for the manifest lock. Past the lock timeout the
// holder's lock is stale and Acquire reclaims it, so the wait is bounded.
func (s *Installer) awaitManifestLock(ctx context.Context, holder string) (*domain.Lock, error) {
	deadline := time.Now().Add(s.cfg.LockTimeout + manifestLockPoll)
	for {
		lock, err := s.Locker.Acquire(ctx, domain.ManifestLockKey, holder)
		if err == nil || !errors.Is(err, domain.ErrLockHeld) || time.Now().After(deadline) {
			return lock, err
		}

		timer := time.NewTimer(manifestLockPoll)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, zerr.Wrap(ctx.Err(), "waiting for the manifest lock")
		case <-timer.C:
		}
	}
}

// retention trims the snapshots of label and reclaims expired ones. Failures are warnings.
func (s *Installer) retention(ctx context.Context, r *run, label string) {
	_ = s.step(ctx, domain.StepRetention, func(_ context.Context, span ports.Span) error {
		var removed []string
		if s.cfg.BackupKeepCount > 0 {
			paths, err := s.Backups.CleanOldBackups(label, s.cfg.BackupKeepCount)
			if err != nil {
				s.warn(r, "backup retention failed: "+err.Error())
			}
			removed = append(removed, paths...)
		}
		if s.cfg.BackupExpiry > 0 {
			paths, err := s.Backups.CleanExpiredBackups(s.cfg.BackupExpiry)
			if err != nil {
				s.warn(r, "expired backup cleanup failed: "+err.Error())
			}
			removed = append(removed, paths...)
		}
		span.SetAttribute("removed", len(removed))
		return nil
	})
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// selectBackup picks the snapshot to restore. Labels are not unique across
// identifiers, so only snapshots taken from plan.InstallPath qualify.
// Snapshots without a recorded source are trusted.
func (s *Installer) selectBackup(id domain.Identifier, plan domain.RollbackPlan) (string, error) {
	if plan.BackupPath != "" {
		snap, err := s.Backups.Inspect(plan.BackupPath)
		if err != nil {
			return "", err
		}
		if !sameSource(snap, plan.InstallPath) {
			return "", zerr.With(zerr.With(zerr.Wrap(domain.ErrForeignBackup, "snapshot source differs"),
				"backup", plan.BackupPath), "source", snap.Source)
		}
		return plan.BackupPath, nil
	}

	paths, err := s.Backups.ListBackups(id.Label())
	if err != nil {
		return "", err
	}
	for _, path := range paths {
		snap, err := s.Backups.Inspect(path)
		if err != nil {
			s.Logger.Warn("skipping unreadable snapshot: " + err.Error())
			continue
		}
		if sameSource(snap, plan.InstallPath) {
			return path, nil
		}
	}
	return "", zerr.With(zerr.Wrap(domain.ErrNoBackups, "no snapshot to restore"), "label", id.Label())
}

func sameSource(snap *domain.Snapshot, installPath string) bool {
	return snap.Source == "" || filepath.Clean(snap.Source) == filepath.Clean(installPath)
}
