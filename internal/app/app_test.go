package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/modkit/internal/app"
	"go.trai.ch/modkit/internal/core/domain"
	"go.trai.ch/modkit/internal/core/ports"
	"go.trai.ch/modkit/internal/core/ports/mocks"
	"go.trai.ch/zerr"
	"go.uber.org/mock/gomock"
)

type fixture struct {
	cfg       *domain.Config
	app       *app.App
	service   *mocks.MockModuleService
	providers *mocks.MockProviderResolver
	provider  *mocks.MockSourceProvider
	tokens    *mocks.MockTokenStore
	backups   *mocks.MockBackupManager
	prompter  *mocks.MockPrompter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	f := &fixture{
		cfg:       domain.DefaultConfig(t.TempDir()),
		service:   mocks.NewMockModuleService(ctrl),
		providers: mocks.NewMockProviderResolver(ctrl),
		provider:  mocks.NewMockSourceProvider(ctrl),
		tokens:    mocks.NewMockTokenStore(ctrl),
		backups:   mocks.NewMockBackupManager(ctrl),
		prompter:  mocks.NewMockPrompter(ctrl),
	}
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Info(gomock.Any()).AnyTimes()
	log.EXPECT().Warn(gomock.Any()).AnyTimes()

	f.prompter.EXPECT().Spin(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ string, fn func(context.Context) error) error {
			return fn(ctx)
		}).AnyTimes()

	f.app = app.New(f.cfg, f.service, f.providers, f.tokens, f.backups, f.prompter, log)
	return f
}

func (f *fixture) widgets(t *testing.T) domain.Identifier {
	t.Helper()
	id, err := domain.ParseIdentifier("acme/widgets", f.cfg.Registry)
	require.NoError(t, err)
	return id
}

var releases = []domain.Release{
	{TagName: "v2.0.0", Name: "Widgets 2", PublishedAt: time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)},
	{TagName: "v1.0.0", Name: "Widgets 1", PublishedAt: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
}

func TestInstall_InteractiveSelection(t *testing.T) {
	f := newFixture(t)
	id := f.widgets(t)

	f.providers.EXPECT().Resolve(id, ports.ProviderOptions{}).Return(f.provider, nil)
	f.provider.EXPECT().FetchReleases(gomock.Any(), id, false).Return(releases, nil)
	f.prompter.EXPECT().Select(gomock.Any(), []domain.Option{
		{Value: "v2.0.0", Label: "v2.0.0 - Widgets 2 (2025-03-14)"},
		{Value: "v1.0.0", Label: "v1.0.0 - Widgets 1 (2024-01-02)"},
	}, "v2.0.0").Return("v1.0.0", nil)
	f.prompter.EXPECT().Confirm("Create backup before installation?", true).Return(true)

	want := &domain.Result{Success: true, Version: "v1.0.0"}
	f.service.EXPECT().Install(gomock.Any(), domain.InstallPlan{
		Identifier:   id,
		Version:      "v1.0.0",
		InstallPath:  f.cfg.ModuleDir(id),
		CreateBackup: true,
		ExecuteHooks: true,
		Validate:     true,
	}, f.provider).Return(want, nil)

	res, err := f.app.Install(context.Background(), "acme/widgets", app.InstallOptions{})
	require.NoError(t, err)
	assert.Same(t, want, res)
}

func TestInstall_FlagsSkipPrompts(t *testing.T) {
	f := newFixture(t)

	f.providers.EXPECT().Resolve(gomock.Any(), gomock.Any()).
		DoAndReturn(func(id domain.Identifier, _ ports.ProviderOptions) (ports.SourceProvider, error) {
			assert.Equal(t, "acme/widgets", id.String())
			return f.provider, nil
		})
	f.provider.EXPECT().FetchReleases(gomock.Any(), gomock.Any(), true).Return(releases, nil)
	f.service.EXPECT().Install(gomock.Any(), gomock.Any(), f.provider).
		DoAndReturn(func(_ context.Context, plan domain.InstallPlan, _ ports.SourceProvider) (*domain.Result, error) {
			assert.Equal(t, "v3.0.0-rc.1", plan.Version)
			assert.False(t, plan.CreateBackup)
			assert.False(t, plan.ExecuteHooks)
			assert.False(t, plan.Validate)
			assert.True(t, plan.DryRun)
			return &domain.Result{Success: true, DryRun: true}, nil
		})

	_, err := f.app.Install(context.Background(), "https://github.com/acme/widgets.git", app.InstallOptions{
		Version:    "v3.0.0-rc.1",
		PreRelease: true,
		NoBackup:   true,
		NoHooks:    true,
		NoValidate: true,
		DryRun:     true,
	})
	require.NoError(t, err)
}

func TestInstall_YesTakesNewestAndBacksUp(t *testing.T) {
	f := newFixture(t)

	f.providers.EXPECT().Resolve(gomock.Any(), gomock.Any()).Return(f.provider, nil)
	f.provider.EXPECT().FetchReleases(gomock.Any(), gomock.Any(), false).Return(releases, nil)
	f.service.EXPECT().Install(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, plan domain.InstallPlan, _ ports.SourceProvider) (*domain.Result, error) {
			assert.Equal(t, "v2.0.0", plan.Version)
			assert.True(t, plan.CreateBackup)
			return &domain.Result{Success: true}, nil
		})

	_, err := f.app.Install(context.Background(), "acme/widgets", app.InstallOptions{Yes: true})
	require.NoError(t, err)
}

func TestInstall_NoReleases(t *testing.T) {
	f := newFixture(t)

	f.providers.EXPECT().Resolve(gomock.Any(), gomock.Any()).Return(f.provider, nil)
	f.provider.EXPECT().FetchReleases(gomock.Any(), gomock.Any(), false).Return(nil, nil)

	_, err := f.app.Install(context.Background(), "acme/widgets", app.InstallOptions{Version: "v1.0.0"})
	require.ErrorIs(t, err, domain.ErrNoReleases)
	assert.Contains(t, err.Error(), "No releases found")
}

func TestInstall_NoVersionSelected(t *testing.T) {
	f := newFixture(t)

	f.providers.EXPECT().Resolve(gomock.Any(), gomock.Any()).Return(f.provider, nil)
	f.provider.EXPECT().FetchReleases(gomock.Any(), gomock.Any(), false).Return(releases, nil)
	f.prompter.EXPECT().Select(gomock.Any(), gomock.Any(), gomock.Any()).Return("", nil)

	_, err := f.app.Install(context.Background(), "acme/widgets", app.InstallOptions{})
	require.ErrorIs(t, err, domain.ErrNoVersionSelected)
}

func TestInstall_InvalidIdentifier(t *testing.T) {
	f := newFixture(t)

	_, err := f.app.Install(context.Background(), "not-an-identifier", app.InstallOptions{})
	require.ErrorIs(t, err, domain.ErrInvalidIdentifier)
}

func TestInstall_InsecureRequiresConfirmation(t *testing.T) {
	f := newFixture(t)
	f.prompter.EXPECT().Confirm(gomock.Any(), false).Return(false)

	_, err := f.app.Install(context.Background(), "acme/widgets", app.InstallOptions{
		SourceOptions: app.SourceOptions{Insecure: true},
	})
	require.ErrorIs(t, err, domain.ErrOperationCancelled)
	assert.True(t, app.IsCancelled(err))
}

func TestInstall_InsecurePassesThrough(t *testing.T) {
	f := newFixture(t)
	id := f.widgets(t)

	f.prompter.EXPECT().Confirm(gomock.Any(), false).Return(true)
	f.providers.EXPECT().Resolve(id, ports.ProviderOptions{Insecure: true}).Return(f.provider, nil)
	f.provider.EXPECT().FetchReleases(gomock.Any(), gomock.Any(), false).Return(releases, nil)
	f.service.EXPECT().Install(gomock.Any(), gomock.Any(), gomock.Any()).Return(&domain.Result{Success: true}, nil)

	_, err := f.app.Install(context.Background(), "acme/widgets", app.InstallOptions{
		SourceOptions: app.SourceOptions{Insecure: true},
		Latest:        true,
		NoBackup:      true,
	})
	require.NoError(t, err)
}

func TestInstall_SavesExplicitToken(t *testing.T) {
	f := newFixture(t)
	id := f.widgets(t)

	f.providers.EXPECT().Resolve(id, ports.ProviderOptions{Token: "ghp_explicit"}).Return(f.provider, nil)
	f.tokens.EXPECT().Save("acme", "ghp_explicit").Return(nil)
	f.provider.EXPECT().FetchReleases(gomock.Any(), gomock.Any(), false).Return(releases, nil)
	f.service.EXPECT().Install(gomock.Any(), gomock.Any(), gomock.Any()).Return(&domain.Result{Success: true}, nil)

	_, err := f.app.Install(context.Background(), "acme/widgets", app.InstallOptions{
		SourceOptions: app.SourceOptions{Token: "ghp_explicit", SaveToken: true},
		Yes:           true,
	})
	require.NoError(t, err)
}

func TestInstall_PromptsForTokenOnAuthRequired(t *testing.T) {
	f := newFixture(t)
	id := f.widgets(t)
	authed := mocks.NewMockSourceProvider(gomock.NewController(t))

	gomock.InOrder(
		f.providers.EXPECT().Resolve(id, ports.ProviderOptions{}).Return(f.provider, nil),
		f.provider.EXPECT().FetchReleases(gomock.Any(), id, false).Return(nil, domain.ErrAuthRequired),
		f.prompter.EXPECT().Secret(gomock.Any()).Return("ghp_prompted", nil),
		f.providers.EXPECT().Resolve(id, ports.ProviderOptions{Token: "ghp_prompted"}).Return(authed, nil),
		authed.EXPECT().FetchReleases(gomock.Any(), id, false).Return(releases, nil),
		f.prompter.EXPECT().Confirm("Save this token for acme?", true).Return(true),
		f.tokens.EXPECT().Save("acme", "ghp_prompted").Return(nil),
	)
	f.provider.EXPECT().Token().Return("")
	f.prompter.EXPECT().Interactive().Return(true)
	f.service.EXPECT().Install(gomock.Any(), gomock.Any(), authed).Return(&domain.Result{Success: true}, nil)

	_, err := f.app.Install(context.Background(), "acme/widgets", app.InstallOptions{Latest: true, NoBackup: true})
	require.NoError(t, err)
}

func TestInstall_PromptsForTokenOnPrivateRepository(t *testing.T) {
	f := newFixture(t)
	id := f.widgets(t)
	authed := mocks.NewMockSourceProvider(gomock.NewController(t))
	anonymous404 := zerr.With(zerr.Wrap(domain.ErrPrivateOrMissing, "provider returned 404"), "status", 404)

	gomock.InOrder(
		f.providers.EXPECT().Resolve(id, ports.ProviderOptions{}).Return(f.provider, nil),
		f.provider.EXPECT().FetchReleases(gomock.Any(), id, false).Return(nil, anonymous404),
		f.prompter.EXPECT().Secret(gomock.Any()).Return("ghp_prompted", nil),
		f.providers.EXPECT().Resolve(id, ports.ProviderOptions{Token: "ghp_prompted"}).Return(authed, nil),
		authed.EXPECT().FetchReleases(gomock.Any(), id, false).Return(releases, nil),
		f.prompter.EXPECT().Confirm("Save this token for acme?", true).Return(false),
	)
	f.provider.EXPECT().Token().Return("")
	f.prompter.EXPECT().Interactive().Return(true)
	f.service.EXPECT().Install(gomock.Any(), gomock.Any(), authed).Return(&domain.Result{Success: true}, nil)

	_, err := f.app.Install(context.Background(), "acme/widgets", app.InstallOptions{Latest: true, NoBackup: true})
	require.NoError(t, err)
}

func TestInstall_AuthRequiredWithTokenFails(t *testing.T) {
	f := newFixture(t)

	f.providers.EXPECT().Resolve(gomock.Any(), gomock.Any()).Return(f.provider, nil)
	f.provider.EXPECT().FetchReleases(gomock.Any(), gomock.Any(), false).Return(nil, domain.ErrAuthRequired)
	f.provider.EXPECT().Token().Return("ghp_stale")

	_, err := f.app.Install(context.Background(), "acme/widgets", app.InstallOptions{})
	require.ErrorIs(t, err, domain.ErrAuthRequired)
}

func TestUninstall(t *testing.T) {
	f := newFixture(t)
	id := f.widgets(t)

	f.prompter.EXPECT().Confirm("Uninstall acme/widgets?", true).Return(true)
	f.service.EXPECT().Uninstall(gomock.Any(), domain.UninstallPlan{
		Identifier:   id,
		InstallPath:  f.cfg.ModuleDir(id),
		CreateBackup: true,
		ExecuteHooks: true,
	}).Return(&domain.Result{Success: true}, nil)

	_, err := f.app.Uninstall(context.Background(), "acme/widgets", app.UninstallOptions{})
	require.NoError(t, err)
}

func TestUninstall_Declined(t *testing.T) {
	f := newFixture(t)
	f.prompter.EXPECT().Confirm(gomock.Any(), true).Return(false)

	_, err := f.app.Uninstall(context.Background(), "acme/widgets", app.UninstallOptions{})
	assert.True(t, app.IsCancelled(err))
}

func TestRollback(t *testing.T) {
	f := newFixture(t)
	id := f.widgets(t)

	f.service.EXPECT().Rollback(gomock.Any(), domain.RollbackPlan{
		Identifier:  id,
		InstallPath: f.cfg.ModuleDir(id),
		BackupPath:  "/snapshots/acme-widgets_2025-03-14_09-30-00",
	}).Return(&domain.Result{Success: true}, nil)

	_, err := f.app.Rollback(context.Background(), "acme/widgets", "/snapshots/acme-widgets_2025-03-14_09-30-00")
	require.NoError(t, err)
}

func TestReleases(t *testing.T) {
	f := newFixture(t)

	f.providers.EXPECT().Resolve(gomock.Any(), gomock.Any()).Return(f.provider, nil)
	f.provider.EXPECT().FetchReleases(gomock.Any(), gomock.Any(), true).Return(releases, nil)

	got, err := f.app.Releases(context.Background(), "acme/widgets", app.SourceOptions{}, true)
	require.NoError(t, err)
	assert.Equal(t, releases, got)
}

func TestBackups(t *testing.T) {
	f := newFixture(t)

	f.backups.EXPECT().ListBackups("acme-widgets").Return([]string{"/b/new", "/b/broken"}, nil)
	f.backups.EXPECT().Inspect("/b/new").Return(&domain.Snapshot{Path: "/b/new", Label: "acme-widgets"}, nil)
	f.backups.EXPECT().Inspect("/b/broken").Return(nil, domain.ErrMissingBackup)

	got, err := f.app.Backups("acme/widgets")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "acme-widgets", got[0].Label)
	assert.Equal(t, &domain.Snapshot{Path: "/b/broken"}, got[1])
}

func TestCleanBackups_AllLabels(t *testing.T) {
	f := newFixture(t)

	f.backups.EXPECT().ListBackups("").Return([]string{"/b/1", "/b/2", "/b/3"}, nil)
	f.backups.EXPECT().Inspect("/b/1").Return(&domain.Snapshot{Label: "acme-widgets"}, nil)
	f.backups.EXPECT().Inspect("/b/2").Return(&domain.Snapshot{Label: "wk-blog"}, nil)
	f.backups.EXPECT().Inspect("/b/3").Return(&domain.Snapshot{Label: "acme-widgets"}, nil)
	f.backups.EXPECT().CleanOldBackups("acme-widgets", 1).Return([]string{"/b/3"}, nil)
	f.backups.EXPECT().CleanOldBackups("wk-blog", 1).Return(nil, nil)
	f.backups.EXPECT().CleanExpiredBackups(24*time.Hour).Return([]string{"/b/9"}, nil)

	removed, err := f.app.CleanBackups("", app.CleanOptions{Keep: 1, OlderThan: 24 * time.Hour})
	require.NoError(t, err)
	assert.Equal(t, []string{"/b/3", "/b/9"}, removed)
}

func TestCleanBackups_JoinsErrors(t *testing.T) {
	f := newFixture(t)
	errDisk := errors.New("disk error")

	f.backups.EXPECT().CleanOldBackups("acme-widgets", 2).Return(nil, errDisk)

	_, err := f.app.CleanBackups("acme/widgets", app.CleanOptions{Keep: 2})
	require.ErrorIs(t, err, errDisk)

	_, err = f.app.CleanBackups("acme/widgets", app.CleanOptions{Keep: -1})
	require.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestTokens(t *testing.T) {
	f := newFixture(t)

	f.tokens.EXPECT().Save("acme", "ghp_1").Return(nil)
	f.tokens.EXPECT().Save("", "wk_1").Return(nil)
	f.tokens.EXPECT().Forget("acme").Return(nil)

	require.NoError(t, f.app.SaveToken("acme", "ghp_1"))
	require.NoError(t, f.app.SaveToken(f.cfg.Registry.Host, "wk_1"))
	require.NoError(t, f.app.ForgetToken("acme"))
	require.ErrorIs(t, f.app.SaveToken("acme", ""), domain.ErrTokenStoreFailed)
}

type flushRecorder struct{ calls int }

func (r *flushRecorder) Shutdown(context.Context) error {
	r.calls++
	return nil
}

func TestShutdown(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.app.Shutdown(context.Background()))

	rec := &flushRecorder{}
	require.NoError(t, f.app.WithTracer(rec).Shutdown(context.Background()))
	assert.Equal(t, 1, rec.calls)
}
