package ports

import (
	"context"
	"io"

	"go.trai.ch/modkit/internal/core/domain"
)

// Prompter is the interactive layer. On a non-interactive terminal every prompt
// returns its default.
//
//go:generate mockgen -source=prompter.go -destination=mocks/mock_prompter.go -package=mocks
type Prompter interface {
	Interactive() bool
	Confirm(label string, def bool) bool
	Select(label string, options []domain.Option, def string) (string, error)
	Secret(label string) (string, error)
	// Spin runs fn while a spinner labelled label is shown.
	Spin(ctx context.Context, label string, fn func(ctx context.Context) error) error
	// Writer is safe to write to while a spinner is active.
	Writer() io.Writer
}
