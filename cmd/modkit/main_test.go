package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/modkit/internal/app"
	"go.trai.ch/modkit/internal/core/domain"
	"go.trai.ch/modkit/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

type fixture struct {
	logger   *mocks.MockLogger
	service  *mocks.MockModuleService
	tokens   *mocks.MockTokenStore
	prompter *mocks.MockPrompter
	app      *app.App
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	f := &fixture{
		logger:   mocks.NewMockLogger(ctrl),
		service:  mocks.NewMockModuleService(ctrl),
		tokens:   mocks.NewMockTokenStore(ctrl),
		prompter: mocks.NewMockPrompter(ctrl),
	}
	f.app = app.New(
		domain.DefaultConfig(t.TempDir()),
		f.service,
		mocks.NewMockProviderResolver(ctrl),
		f.tokens,
		mocks.NewMockBackupManager(ctrl),
		f.prompter,
		f.logger,
	)
	return f
}

func (f *fixture) provider(_ context.Context) (*app.Components, func(), error) {
	return &app.Components{App: f.app, Logger: f.logger}, func() {}, nil
}

// TestRun_Success verifies that the run function returns 0 when the command succeeds.
func TestRun_Success(t *testing.T) {
	f := newFixture(t)

	exitCode := run(context.Background(), []string{"version"}, new(bytes.Buffer), f.provider)
	assert.Equal(t, 0, exitCode)
}

// TestRun_InitializationError verifies that run returns 1 when component initialization fails.
func TestRun_InitializationError(t *testing.T) {
	provider := func(_ context.Context) (*app.Components, func(), error) {
		return nil, nil, errors.New("init failed")
	}

	stderr := new(bytes.Buffer)
	exitCode := run(context.Background(), []string{"version"}, stderr, provider)

	assert.Equal(t, 1, exitCode)
	assert.Contains(t, stderr.String(), "Error: init failed")
}

// TestRun_ExecutionError verifies that a failed operation is logged and exits 1.
func TestRun_ExecutionError(t *testing.T) {
	f := newFixture(t)
	f.service.EXPECT().Rollback(gomock.Any(), gomock.Any()).Return(nil, domain.ErrNoBackups)
	f.logger.EXPECT().Error(gomock.Any()).Do(func(err error) {
		assert.ErrorIs(t, err, domain.ErrNoBackups)
	})

	exitCode := run(context.Background(), []string{"rollback", "acme/widgets"}, new(bytes.Buffer), f.provider)
	assert.Equal(t, 1, exitCode)
}

// TestRun_UsageError verifies that invalid arguments exit 1.
func TestRun_UsageError(t *testing.T) {
	f := newFixture(t)
	f.logger.EXPECT().Error(gomock.Any())

	exitCode := run(context.Background(), []string{"install"}, new(bytes.Buffer), f.provider)
	assert.Equal(t, 1, exitCode)
}

// TestRun_Cancelled verifies that declining a confirmation is not a failure.
func TestRun_Cancelled(t *testing.T) {
	f := newFixture(t)
	f.logger.EXPECT().Warn(gomock.Any()).AnyTimes()
	f.prompter.EXPECT().Confirm(gomock.Any(), false).Return(false)

	exitCode := run(context.Background(), []string{"install", "acme/widgets", "--insecure"}, new(bytes.Buffer), f.provider)
	assert.Equal(t, 0, exitCode)
}
