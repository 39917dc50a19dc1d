package ports

import (
	"context"
	"io"

	"go.trai.ch/modkit/internal/core/domain"
)

// Executor runs external processes.
//
//go:generate mockgen -source=executor.go -destination=mocks/mock_executor.go -package=mocks
type Executor interface {
	// Run executes cmd with captured output. A timeout kills the whole process group
	// and is reported through ProcessResult.TimedOut.
	Run(ctx context.Context, cmd domain.Command) (*domain.ProcessResult, error)

	// Stream executes cmd attached to a pseudo-terminal, copying its output to w.
	Stream(ctx context.Context, cmd domain.Command, w io.Writer) (*domain.ProcessResult, error)
}
