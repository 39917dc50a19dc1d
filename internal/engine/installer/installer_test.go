package installer_test

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/modkit/internal/adapters/archive"
	"go.trai.ch/modkit/internal/adapters/backup"
	"go.trai.ch/modkit/internal/adapters/composer"
	"go.trai.ch/modkit/internal/adapters/fs"
	"go.trai.ch/modkit/internal/adapters/lock"
	"go.trai.ch/modkit/internal/adapters/telemetry"
	"go.trai.ch/modkit/internal/core/domain"
	"go.trai.ch/modkit/internal/core/ports"
	"go.trai.ch/modkit/internal/core/ports/mocks"
	"go.trai.ch/modkit/internal/engine/installer"
	"go.uber.org/mock/gomock"
)

var widgetsMeta = &domain.ModuleMetadata{Name: "Widgets", Namespace: `Acme\Widgets`, Version: "v2.0.0"}

type harness struct {
	cfg       *domain.Config
	inst      *installer.Installer
	locks     *lock.Manager
	backups   ports.BackupManager
	provider  *mocks.MockSourceProvider
	validator *mocks.MockValidator
	merger    *mocks.MockManifestMerger
	hooks     *mocks.MockHookRunner
	logger    *mocks.MockLogger
}

func newHarness(t *testing.T, opts ...func(*domain.Config, *installer.Deps)) *harness {
	t.Helper()
	ctrl := gomock.NewController(t)

	cfg := domain.DefaultConfig(t.TempDir())
	walker := fs.NewWalker()
	h := &harness{
		cfg:       cfg,
		locks:     lock.NewManager(cfg.LockDir, cfg.LockTimeout),
		backups:   backup.NewManager(cfg.BackupDir, cfg.BackupExcludes, walker, fs.NewHasher(walker)),
		provider:  mocks.NewMockSourceProvider(ctrl),
		validator: mocks.NewMockValidator(ctrl),
		merger:    mocks.NewMockManifestMerger(ctrl),
		hooks:     mocks.NewMockHookRunner(ctrl),
		logger:    mocks.NewMockLogger(ctrl),
	}
	h.logger.EXPECT().Info(gomock.Any()).AnyTimes()
	h.logger.EXPECT().Warn(gomock.Any()).AnyTimes()

	require.NoError(t, os.WriteFile(cfg.HostManifest, []byte(`{"name": "acme/app"}`), domain.FilePerm))

	deps := installer.Deps{
		Locker:    h.locks,
		Backups:   h.backups,
		Extractor: archive.NewExtractor(cfg.MaxDownloadSize),
		Validator: h.validator,
		Merger:    h.merger,
		Hooks:     h.hooks,
		Mover:     walker,
		Tracer:    telemetry.NewNoOpTracer(),
		Logger:    h.logger,
	}
	for _, opt := range opts {
		opt(cfg, &deps)
	}
	h.inst = installer.New(cfg, deps)
	return h
}

func (h *harness) id(t *testing.T) domain.Identifier {
	t.Helper()
	id, err := domain.ParseIdentifier("acme/widgets", h.cfg.Registry)
	require.NoError(t, err)
	return id
}

func (h *harness) plan(t *testing.T, version string) domain.InstallPlan {
	t.Helper()
	id := h.id(t)
	return domain.InstallPlan{
		Identifier:   id,
		Version:      version,
		InstallPath:  h.cfg.ModuleDir(id),
		CreateBackup: true,
		ExecuteHooks: true,
		Validate:     true,
	}
}

// servePackage makes the provider return a GitHub-style tarball of files.
func (h *harness) servePackage(t *testing.T, files map[string]string) {
	t.Helper()
	data := tarball(t, "acme-widgets-1a2b3c", files)
	h.provider.EXPECT().FetchPackage(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, domain.Identifier, string) (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		})
}

func (h *harness) skipHooks(names ...string) {
	for _, name := range names {
		h.hooks.EXPECT().Run(gomock.Any(), name, gomock.Any(), gomock.Any()).
			Return(&domain.HookInvocation{Name: name, Skipped: true}, nil)
	}
}

func (h *harness) lockFile(t *testing.T) string {
	t.Helper()
	return h.locks.Path(h.id(t).Label())
}

func tarball(t *testing.T, top string, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	require.NoError(t, tw.WriteHeader(&tar.Header{Name: top + "/", Typeflag: tar.TypeDir, Mode: 0o755}))
	dirs := map[string]bool{}
	for name, body := range files {
		if dir := filepath.ToSlash(filepath.Dir(name)); dir != "." && !dirs[dir] {
			dirs[dir] = true
			require.NoError(t, tw.WriteHeader(&tar.Header{Name: top + "/" + dir + "/", Typeflag: tar.TypeDir, Mode: 0o755}))
		}
		require.NoError(t, tw.WriteHeader(&tar.Header{Name: top + "/" + name, Typeflag: tar.TypeReg, Mode: 0o644, Size: int64(len(body))}))
		_, err := tw.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), domain.DirPerm))
		require.NoError(t, os.WriteFile(p, []byte(content), domain.FilePerm))
	}
}

func readTree(t *testing.T, root string) map[string]string {
	t.Helper()
	out := map[string]string{}
	for e, err := range fs.NewWalker().Walk(root, nil) {
		require.NoError(t, err)
		if !e.Mode.IsRegular() {
			continue
		}
		data, err := os.ReadFile(e.Path)
		require.NoError(t, err)
		out[e.Rel] = string(data)
	}
	return out
}

var (
	v1Files = map[string]string{
		"module.json":     `{"name": "Widgets", "namespace": "Acme\\Widgets", "version": "v1.0.0"}`,
		"src/Widget.php":  "v1",
		"src/Legacy.php":  "legacy",
		"storage/app.log": "log",
	}
	v2Files = map[string]string{
		"module.json":    `{"name": "Widgets", "namespace": "Acme\\Widgets", "version": "v2.0.0"}`,
		"src/Widget.php": "v2",
	}
)

func TestInstall_ReplacesExistingInstallWithBackup(t *testing.T) {
	h := newHarness(t)
	plan := h.plan(t, "v2.0.0")
	writeTree(t, plan.InstallPath, v1Files)

	h.servePackage(t, v2Files)
	h.validator.EXPECT().Validate(gomock.Any()).Return(widgetsMeta, nil)
	h.hooks.EXPECT().Run(gomock.Any(), domain.HookPreInstall, gomock.Not(plan.InstallPath), gomock.Any()).
		DoAndReturn(func(_ context.Context, _, dir string, env ports.HookEnv) (*domain.HookInvocation, error) {
			assert.Equal(t, v2Files["src/Widget.php"], readTree(t, dir)["src/Widget.php"])
			assert.Equal(t, plan.InstallPath, env.ModuleDir)
			assert.Equal(t, "v2.0.0", env.Version)
			assert.Equal(t, h.cfg.Root, env.AppRoot)
			return &domain.HookInvocation{Name: domain.HookPreInstall}, nil
		})
	widgetsFragment := domain.ManifestFragment{
		Require:  map[string]string{},
		Autoload: map[string]string{`Acme\Widgets\`: "Modules/acme/widgets/src/"},
	}
	h.merger.EXPECT().Merge(gomock.Any(), h.cfg.HostManifest, widgetsFragment, widgetsFragment).Return(&domain.MergeReport{AddedAutoload: []string{`Acme\Widgets\`}, Resolved: true}, nil)
	h.skipHooks(domain.HookPostInstall)

	res, err := h.inst.Install(context.Background(), plan, h.provider)
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, "v2.0.0", res.Version)
	assert.Equal(t, `Acme\Widgets`, res.Namespace)
	assert.Equal(t, "Modules/acme/widgets", res.ModulePath)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, []domain.State{
		domain.StateIdle, domain.StateLocked, domain.StateBackedUp, domain.StateStaged,
		domain.StateValidated, domain.StateMerged, domain.StateCommitted, domain.StateUnlocked,
	}, res.States)

	assert.Equal(t, v2Files, readTree(t, plan.InstallPath))

	backups, err := h.backups.ListBackups("acme-widgets")
	require.NoError(t, err)
	require.Len(t, backups, 1)
	assert.Equal(t, backups[0], res.BackupPath)
	assert.True(t, strings.HasPrefix(filepath.Base(backups[0]), "acme-widgets_"))
	snapshot := readTree(t, backups[0])
	delete(snapshot, domain.BackupMetaFile)
	assert.Equal(t, v1Files, snapshot)

	assert.NoFileExists(t, h.lockFile(t))
	entries, err := os.ReadDir(h.cfg.StagingDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestInstall_UpgradeUpdatesOwnManifestEntries(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := newHarness(t, func(_ *domain.Config, deps *installer.Deps) {
		deps.Merger = composer.NewMerger(mocks.NewMockExecutor(ctrl), domain.ComposerConfig{Binary: "composer"}, time.Minute)
	})
	v1 := map[string]string{
		"module.json":    v1Files["module.json"],
		"composer.json":  `{"require": {"guzzlehttp/guzzle": "^7.0", "monolog/monolog": "^3.0"}}`,
		"src/Widget.php": "v1",
	}
	v2 := map[string]string{
		"module.json":    v2Files["module.json"],
		"composer.json":  `{"require": {"guzzlehttp/guzzle": "^7.8"}}`,
		"src/Widget.php": "v2",
	}

	for _, files := range []map[string]string{v1, v2} {
		h.servePackage(t, files)
		h.validator.EXPECT().Validate(gomock.Any()).Return(widgetsMeta, nil)
		h.skipHooks(domain.HookPreInstall, domain.HookPostInstall)

		res, err := h.inst.Install(context.Background(), h.plan(t, "v2.0.0"), h.provider)
		require.NoError(t, err)
		require.True(t, res.Success)
		assert.Equal(t, files, readTree(t, h.cfg.ModuleDir(h.id(t))))
	}

	host, err := os.ReadFile(h.cfg.HostManifest)
	require.NoError(t, err)
	assert.Contains(t, string(host), `"guzzlehttp/guzzle": "^7.8"`)
	assert.NotContains(t, string(host), "monolog")
	assert.Contains(t, string(host), `"Acme\\Widgets\\"`)
}

func TestInstall_FreshInstallSkipsBackup(t *testing.T) {
	h := newHarness(t)
	plan := h.plan(t, "v2.0.0")

	h.servePackage(t, v2Files)
	h.validator.EXPECT().Validate(gomock.Any()).Return(widgetsMeta, nil)
	h.skipHooks(domain.HookPreInstall, domain.HookPostInstall)
	h.merger.EXPECT().Merge(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(&domain.MergeReport{}, nil)

	res, err := h.inst.Install(context.Background(), plan, h.provider)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Empty(t, res.BackupPath)
	assert.Equal(t, v2Files, readTree(t, plan.InstallPath))
	assert.NoDirExists(t, h.cfg.BackupDir)
}

func TestInstall_WaitsForManifestLock(t *testing.T) {
	h := newHarness(t)
	plan := h.plan(t, "v2.0.0")

	held, err := h.locks.Acquire(context.Background(), domain.ManifestLockKey, "acme/other")
	require.NoError(t, err)

	var released atomic.Bool
	go func() {
		time.Sleep(300 * time.Millisecond)
		released.Store(true)
		assert.NoError(t, h.locks.Release(held))
	}()

	h.servePackage(t, v2Files)
	h.validator.EXPECT().Validate(gomock.Any()).Return(widgetsMeta, nil)
	h.skipHooks(domain.HookPreInstall, domain.HookPostInstall)
	h.merger.EXPECT().Merge(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, string, domain.ManifestFragment, domain.ManifestFragment) (*domain.MergeReport, error) {
			assert.True(t, released.Load(), "merged while another install held the manifest")
			return &domain.MergeReport{}, nil
		})

	res, err := h.inst.Install(context.Background(), plan, h.provider)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.NoFileExists(t, h.locks.Path(domain.ManifestLockKey))
}

func TestInstall_FailureInjection(t *testing.T) {
	errNetwork := errors.New("connection reset")

	tests := []struct {
		name     string
		existing bool
		arrange  func(t *testing.T, h *harness)
		wantErr  error
		// mutated is set when the failure happens after the install path was replaced.
		mutated bool
	}{
		{
			name:     "fetch",
			existing: true,
			arrange: func(_ *testing.T, h *harness) {
				h.provider.EXPECT().FetchPackage(gomock.Any(), gomock.Any(), "v2.0.0").Return(nil, errNetwork)
			},
			wantErr: errNetwork,
		},
		{
			name:     "validate",
			existing: true,
			arrange: func(t *testing.T, h *harness) {
				h.servePackage(t, v2Files)
				h.validator.EXPECT().Validate(gomock.Any()).
					Return(nil, &domain.ValidationError{Violations: []string{"missing metadata file module.json"}})
			},
			wantErr: domain.ErrValidationFailed,
		},
		{
			name:     "pre-install hook",
			existing: true,
			arrange: func(t *testing.T, h *harness) {
				h.servePackage(t, v2Files)
				h.validator.EXPECT().Validate(gomock.Any()).Return(widgetsMeta, nil)
				h.hooks.EXPECT().Run(gomock.Any(), domain.HookPreInstall, gomock.Any(), gomock.Any()).
					Return(&domain.HookInvocation{ExitCode: 1}, domain.ErrHookFailed)
			},
			wantErr: domain.ErrHookFailed,
		},
		{
			name:     "merge",
			existing: true,
			arrange: func(t *testing.T, h *harness) {
				h.servePackage(t, v2Files)
				h.validator.EXPECT().Validate(gomock.Any()).Return(widgetsMeta, nil)
				h.skipHooks(domain.HookPreInstall)
				h.merger.EXPECT().Merge(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, domain.ErrResolutionFailed)
			},
			wantErr: domain.ErrResolutionFailed,
			mutated: true,
		},
		{
			name: "merge on fresh install",
			arrange: func(t *testing.T, h *harness) {
				h.servePackage(t, v2Files)
				h.validator.EXPECT().Validate(gomock.Any()).Return(widgetsMeta, nil)
				h.skipHooks(domain.HookPreInstall)
				h.merger.EXPECT().Merge(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil, &domain.ConflictError{Conflicts: []domain.Conflict{{Name: "php", Existing: "^8.1", Required: "^8.3"}}})
			},
			wantErr: domain.ErrDependencyConflict,
			mutated: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			plan := h.plan(t, "v2.0.0")
			if tt.existing {
				writeTree(t, plan.InstallPath, v1Files)
			}
			tt.arrange(t, h)

			res, err := h.inst.Install(context.Background(), plan, h.provider)
			require.ErrorIs(t, err, tt.wantErr)
			assert.NotErrorIs(t, err, domain.ErrRollbackFailed)

			assert.False(t, res.Success)
			assert.Contains(t, res.Error, "Installation failed")
			assert.True(t, res.Reached(domain.StateRolledBack))
			assert.Equal(t, domain.StateUnlocked, res.State())
			assert.Equal(t, tt.mutated, res.RolledBack)

			if tt.existing {
				assert.Equal(t, v1Files, readTree(t, plan.InstallPath))
			} else {
				assert.NoDirExists(t, plan.InstallPath)
			}
			assert.NoFileExists(t, h.lockFile(t))

			relock, err := h.locks.Acquire(context.Background(), h.id(t).Label(), "next-run")
			require.NoError(t, err)
			require.NoError(t, h.locks.Release(relock))
		})
	}
}

func TestInstall_PostInstallHookFailureIsWarning(t *testing.T) {
	h := newHarness(t)
	plan := h.plan(t, "v2.0.0")

	h.servePackage(t, v2Files)
	h.validator.EXPECT().Validate(gomock.Any()).Return(widgetsMeta, nil)
	h.skipHooks(domain.HookPreInstall)
	h.merger.EXPECT().Merge(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(&domain.MergeReport{}, nil)
	h.hooks.EXPECT().Run(gomock.Any(), domain.HookPostInstall, plan.InstallPath, gomock.Any()).
		Return(&domain.HookInvocation{ExitCode: 2}, domain.ErrHookFailed)

	res, err := h.inst.Install(context.Background(), plan, h.provider)
	require.NoError(t, err)
	assert.True(t, res.Success)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "post-install hook failed")
	assert.Equal(t, v2Files, readTree(t, plan.InstallPath))
}

func TestInstall_DryRun(t *testing.T) {
	h := newHarness(t)
	plan := h.plan(t, "v2.0.0")
	plan.DryRun = true
	writeTree(t, plan.InstallPath, v1Files)
	manifest, err := os.ReadFile(h.cfg.HostManifest)
	require.NoError(t, err)

	h.servePackage(t, v2Files)
	h.validator.EXPECT().Validate(gomock.Any()).Return(widgetsMeta, nil)
	h.merger.EXPECT().Check(h.cfg.HostManifest, gomock.Any(), gomock.Any()).
		Return(&domain.MergeReport{AddedAutoload: []string{`Acme\Widgets\`}}, nil)

	res, err := h.inst.Install(context.Background(), plan, h.provider)
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.True(t, res.DryRun)
	assert.Empty(t, res.BackupPath)
	assert.Equal(t, v1Files, readTree(t, plan.InstallPath))
	assert.NoDirExists(t, h.cfg.BackupDir)

	after, err := os.ReadFile(h.cfg.HostManifest)
	require.NoError(t, err)
	assert.Equal(t, manifest, after)
}

func TestInstall_DryRunReportsConflicts(t *testing.T) {
	h := newHarness(t)
	plan := h.plan(t, "v2.0.0")
	plan.DryRun = true

	h.servePackage(t, v2Files)
	h.validator.EXPECT().Validate(gomock.Any()).Return(widgetsMeta, nil)
	h.merger.EXPECT().Check(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, &domain.ConflictError{})

	res, err := h.inst.Install(context.Background(), plan, h.provider)
	require.ErrorIs(t, err, domain.ErrDependencyConflict)
	assert.False(t, res.Success)
	assert.NoDirExists(t, plan.InstallPath)
}

func TestInstall_LockHeld(t *testing.T) {
	h := newHarness(t)
	plan := h.plan(t, "v2.0.0")

	held, err := h.locks.Acquire(context.Background(), h.id(t).Label(), "other-process")
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.locks.Release(held) })

	res, err := h.inst.Install(context.Background(), plan, h.provider)
	require.ErrorIs(t, err, domain.ErrLockHeld)
	assert.False(t, res.Success)
	assert.Equal(t, []domain.State{domain.StateIdle, domain.StateFailed}, res.States)
	assert.FileExists(t, h.lockFile(t))
	assert.NoDirExists(t, h.cfg.StagingDir)
}

func TestInstall_ConcurrentInstallsOfSameModule(t *testing.T) {
	h := newHarness(t)
	plan := h.plan(t, "v2.0.0")

	fetching := make(chan struct{})
	proceed := make(chan struct{})
	data := tarball(t, "top", v2Files)
	h.provider.EXPECT().FetchPackage(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, domain.Identifier, string) (io.ReadCloser, error) {
			close(fetching)
			<-proceed
			return io.NopCloser(bytes.NewReader(data)), nil
		})
	h.validator.EXPECT().Validate(gomock.Any()).Return(widgetsMeta, nil)
	h.skipHooks(domain.HookPreInstall, domain.HookPostInstall)
	h.merger.EXPECT().Merge(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(&domain.MergeReport{}, nil)

	done := make(chan error, 1)
	go func() {
		_, err := h.inst.Install(context.Background(), plan, h.provider)
		done <- err
	}()

	<-fetching
	_, err := h.inst.Install(context.Background(), plan, h.provider)
	require.ErrorIs(t, err, domain.ErrLockHeld)

	close(proceed)
	require.NoError(t, <-done)
}

func TestInstall_DownloadTooLarge(t *testing.T) {
	h := newHarness(t, func(cfg *domain.Config, _ *installer.Deps) {
		cfg.MaxDownloadSize = 16
	})
	plan := h.plan(t, "v2.0.0")
	h.servePackage(t, v2Files)

	_, err := h.inst.Install(context.Background(), plan, h.provider)
	require.ErrorIs(t, err, domain.ErrDownloadTooLarge)
	assert.NoDirExists(t, plan.InstallPath)
}

func TestInstall_RollbackFailureIsFatal(t *testing.T) {
	ctrl := gomock.NewController(t)
	backups := mocks.NewMockBackupManager(ctrl)
	mover := mocks.NewMockMover(ctrl)
	walker := fs.NewWalker()
	h := newHarness(t, func(_ *domain.Config, deps *installer.Deps) {
		deps.Backups = backups
		deps.Mover = mover
	})
	plan := h.plan(t, "v2.0.0")
	writeTree(t, plan.InstallPath, v1Files)

	snapshot := filepath.Join(h.cfg.BackupDir, "acme-widgets_2025-03-14_09-30-00")
	backups.EXPECT().CreateBackup(plan.InstallPath, "acme-widgets").Return(snapshot, nil)
	h.servePackage(t, v2Files)
	h.validator.EXPECT().Validate(gomock.Any()).Return(widgetsMeta, nil)
	h.skipHooks(domain.HookPreInstall)
	h.merger.EXPECT().Merge(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, domain.ErrResolutionFailed)
	gomock.InOrder(
		mover.EXPECT().Move(gomock.Any(), plan.InstallPath, gomock.Any()).DoAndReturn(walker.Move),
		mover.EXPECT().Move(gomock.Any(), gomock.Any(), plan.InstallPath).DoAndReturn(walker.Move),
		mover.EXPECT().Move(gomock.Any(), gomock.Any(), plan.InstallPath).Return(errors.New("device busy")),
		backups.EXPECT().RestoreBackup(snapshot, plan.InstallPath).Return(domain.ErrMissingBackup),
	)

	res, err := h.inst.Install(context.Background(), plan, h.provider)
	require.ErrorIs(t, err, domain.ErrResolutionFailed)
	require.ErrorIs(t, err, domain.ErrRollbackFailed)
	assert.True(t, res.Reached(domain.StateFailed))
	assert.False(t, res.Reached(domain.StateRolledBack))
	assert.NoFileExists(t, h.lockFile(t))
}

func TestInstall_RollbackRestoresExactPreviousCopy(t *testing.T) {
	h := newHarness(t)
	plan := h.plan(t, "v2.0.0")
	installed := map[string]string{
		"module.json":    v1Files["module.json"],
		"src/Widget.php": "v1",
		"composer.lock":  `{"packages": []}`,
	}
	writeTree(t, plan.InstallPath, installed)

	h.servePackage(t, v2Files)
	h.validator.EXPECT().Validate(gomock.Any()).Return(widgetsMeta, nil)
	h.skipHooks(domain.HookPreInstall)
	h.merger.EXPECT().Merge(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, domain.ErrResolutionFailed)

	res, err := h.inst.Install(context.Background(), plan, h.provider)
	require.ErrorIs(t, err, domain.ErrResolutionFailed)
	assert.True(t, res.RolledBack)
	assert.NotEmpty(t, res.BackupPath)
	assert.Equal(t, installed, readTree(t, plan.InstallPath))
}

func TestInstall_BackupFailureReleasesLock(t *testing.T) {
	ctrl := gomock.NewController(t)
	backups := mocks.NewMockBackupManager(ctrl)
	h := newHarness(t, func(_ *domain.Config, deps *installer.Deps) {
		deps.Backups = backups
	})
	plan := h.plan(t, "v2.0.0")
	writeTree(t, plan.InstallPath, v1Files)

	backups.EXPECT().CreateBackup(gomock.Any(), gomock.Any()).Return("", errors.New("disk full"))

	res, err := h.inst.Install(context.Background(), plan, h.provider)
	require.Error(t, err)
	assert.True(t, res.Reached(domain.StateFailed))
	assert.Equal(t, domain.StateUnlocked, res.State())
	assert.Equal(t, v1Files, readTree(t, plan.InstallPath))
	assert.NoFileExists(t, h.lockFile(t))
}

func TestInstall_SkipsMergeWithoutHostManifest(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, os.Remove(h.cfg.HostManifest))
	plan := h.plan(t, "v2.0.0")
	plan.ExecuteHooks = false

	h.servePackage(t, v2Files)
	h.validator.EXPECT().Validate(gomock.Any()).Return(widgetsMeta, nil)

	res, err := h.inst.Install(context.Background(), plan, h.provider)
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "composer.json not found")
}

func TestInstall_ValidationDisabled(t *testing.T) {
	h := newHarness(t)
	plan := h.plan(t, "v2.0.0")
	plan.Validate = false
	plan.ExecuteHooks = false

	h.servePackage(t, v2Files)
	h.merger.EXPECT().Merge(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(&domain.MergeReport{}, nil)

	res, err := h.inst.Install(context.Background(), plan, h.provider)
	require.NoError(t, err)
	assert.Equal(t, `Acme\Widgets`, res.Namespace)
}

func TestUninstall(t *testing.T) {
	h := newHarness(t)
	id := h.id(t)
	installPath := h.cfg.ModuleDir(id)
	writeTree(t, installPath, v1Files)

	gomock.InOrder(
		h.hooks.EXPECT().Run(gomock.Any(), domain.HookPreUninstall, installPath, gomock.Any()).
			Return(&domain.HookInvocation{Skipped: true}, nil),
		h.merger.EXPECT().Remove(gomock.Any(), h.cfg.HostManifest, domain.ManifestFragment{
			Require:  map[string]string{},
			Autoload: map[string]string{`Acme\Widgets\`: "Modules/acme/widgets/src/"},
		}).Return(&domain.MergeReport{RemovedAutoload: []string{`Acme\Widgets\`}}, nil),
		h.hooks.EXPECT().Run(gomock.Any(), domain.HookPostUninstall, gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _, dir string, _ ports.HookEnv) (*domain.HookInvocation, error) {
				assert.Equal(t, v1Files, readTree(t, dir))
				return &domain.HookInvocation{}, errors.New("cleanup script missing")
			}),
	)

	res, err := h.inst.Uninstall(context.Background(), domain.UninstallPlan{
		Identifier: id, InstallPath: installPath, CreateBackup: true, ExecuteHooks: true,
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "v1.0.0", res.Version)
	assert.NoDirExists(t, installPath)
	require.Len(t, res.Warnings, 1)

	backups, err := h.backups.ListBackups(id.Label())
	require.NoError(t, err)
	assert.Len(t, backups, 1)
	assert.NoFileExists(t, h.lockFile(t))
}

func TestUninstall_RestoresOnManifestFailure(t *testing.T) {
	h := newHarness(t)
	id := h.id(t)
	installPath := h.cfg.ModuleDir(id)
	writeTree(t, installPath, v1Files)

	h.merger.EXPECT().Remove(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, domain.ErrManifestWriteFailed)

	res, err := h.inst.Uninstall(context.Background(), domain.UninstallPlan{Identifier: id, InstallPath: installPath})
	require.ErrorIs(t, err, domain.ErrManifestWriteFailed)
	assert.True(t, res.RolledBack)
	assert.Equal(t, v1Files, readTree(t, installPath))
}

func TestUninstall_PreHookFailureAborts(t *testing.T) {
	h := newHarness(t)
	id := h.id(t)
	installPath := h.cfg.ModuleDir(id)
	writeTree(t, installPath, v1Files)

	h.hooks.EXPECT().Run(gomock.Any(), domain.HookPreUninstall, gomock.Any(), gomock.Any()).
		Return(nil, domain.ErrHookTimeout)

	_, err := h.inst.Uninstall(context.Background(), domain.UninstallPlan{Identifier: id, InstallPath: installPath, ExecuteHooks: true})
	require.ErrorIs(t, err, domain.ErrHookTimeout)
	assert.Equal(t, v1Files, readTree(t, installPath))
}

func TestUninstall_NotInstalled(t *testing.T) {
	h := newHarness(t)
	id := h.id(t)

	res, err := h.inst.Uninstall(context.Background(), domain.UninstallPlan{Identifier: id, InstallPath: h.cfg.ModuleDir(id)})
	require.ErrorIs(t, err, domain.ErrModuleNotInstalled)
	assert.Contains(t, res.Error, "Uninstall failed")
}

func TestRollback(t *testing.T) {
	h := newHarness(t)
	id := h.id(t)
	installPath := h.cfg.ModuleDir(id)

	_, err := h.inst.Rollback(context.Background(), domain.RollbackPlan{Identifier: id, InstallPath: installPath})
	require.ErrorIs(t, err, domain.ErrNoBackups)

	writeTree(t, installPath, v1Files)
	snapshot, err := h.backups.CreateBackup(installPath, id.Label())
	require.NoError(t, err)
	require.NoError(t, os.RemoveAll(installPath))
	writeTree(t, installPath, v2Files)

	res, err := h.inst.Rollback(context.Background(), domain.RollbackPlan{Identifier: id, InstallPath: installPath})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, snapshot, res.BackupPath)
	assert.Equal(t, "v1.0.0", res.Version)
	assert.True(t, res.Reached(domain.StateRolledBack))

	restored := readTree(t, installPath)
	delete(restored, domain.BackupMetaFile)
	assert.Equal(t, v1Files, restored)
	assert.NoFileExists(t, h.lockFile(t))
}

func TestRollback_IgnoresSnapshotsOfCollidingLabels(t *testing.T) {
	h := newHarness(t)
	owner, err := domain.ParseIdentifier("a-b/c", h.cfg.Registry)
	require.NoError(t, err)
	other, err := domain.ParseIdentifier("a/b-c", h.cfg.Registry)
	require.NoError(t, err)
	require.Equal(t, owner.Label(), other.Label())

	ownerPath, otherPath := h.cfg.ModuleDir(owner), h.cfg.ModuleDir(other)
	require.NotEqual(t, ownerPath, otherPath)

	writeTree(t, otherPath, map[string]string{"module.json": `{"name": "Other", "version": "v9.0.0"}`})
	foreign, err := h.backups.CreateBackup(otherPath, other.Label())
	require.NoError(t, err)

	_, err = h.inst.Rollback(context.Background(), domain.RollbackPlan{Identifier: owner, InstallPath: ownerPath})
	require.ErrorIs(t, err, domain.ErrNoBackups)

	_, err = h.inst.Rollback(context.Background(), domain.RollbackPlan{Identifier: owner, InstallPath: ownerPath, BackupPath: foreign})
	require.ErrorIs(t, err, domain.ErrForeignBackup)
	assert.NoDirExists(t, ownerPath)

	writeTree(t, ownerPath, v1Files)
	own, err := h.backups.CreateBackup(ownerPath, owner.Label())
	require.NoError(t, err)
	writeTree(t, otherPath, map[string]string{"module.json": `{"name": "Other", "version": "v9.1.0"}`})
	_, err = h.backups.CreateBackup(otherPath, other.Label())
	require.NoError(t, err)

	res, err := h.inst.Rollback(context.Background(), domain.RollbackPlan{Identifier: owner, InstallPath: ownerPath})
	require.NoError(t, err)
	assert.Equal(t, own, res.BackupPath)
	assert.Equal(t, "v1.0.0", res.Version)
}
