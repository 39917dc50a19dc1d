package ports

import (
	"context"

	"go.trai.ch/modkit/internal/core/domain"
)

// ModuleService runs the install state machine and its uninstall and rollback counterparts.
// Every call holds the module lock for its whole duration and always releases it.
//
//go:generate mockgen -source=installer.go -destination=mocks/mock_installer.go -package=mocks
type ModuleService interface {
	Install(ctx context.Context, plan domain.InstallPlan, provider SourceProvider) (*domain.Result, error)
	Uninstall(ctx context.Context, plan domain.UninstallPlan) (*domain.Result, error)
	Rollback(ctx context.Context, plan domain.RollbackPlan) (*domain.Result, error)
}
