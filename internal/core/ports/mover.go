package ports

import "context"

// Mover relocates directory trees.
//
//go:generate mockgen -source=mover.go -destination=mocks/mock_mover.go -package=mocks
type Mover interface {
	// Move renames src to dst, creating the parent of dst. It falls back to copy-and-remove across filesystems.
	Move(ctx context.Context, src, dst string) error
}
