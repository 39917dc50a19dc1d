package ports

import (
	"context"

	"go.trai.ch/modkit/internal/core/domain"
)

// HookEnv is the module context exposed to a hook process.
type HookEnv struct {
	ModuleDir string
	Version   string
	AppRoot   string
}

// HookRunner runs module-declared lifecycle hooks.
//
//go:generate mockgen -source=hooks.go -destination=mocks/mock_hooks.go -package=mocks
type HookRunner interface {
	// Run executes hookName for the module in workingDir. An undeclared hook is a skipped success.
	Run(ctx context.Context, hookName, workingDir string, env HookEnv) (*domain.HookInvocation, error)
}
