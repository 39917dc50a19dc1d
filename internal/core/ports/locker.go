package ports

import (
	"context"

	"go.trai.ch/modkit/internal/core/domain"
)

// Locker provides cross-process mutual exclusion keyed by a filesystem-safe label.
//
//go:generate mockgen -source=locker.go -destination=mocks/mock_locker.go -package=mocks
type Locker interface {
	// Acquire takes the lock for key or fails with domain.ErrLockHeld.
	// An expired lock is reclaimed. Acquire never retries on contention.
	Acquire(ctx context.Context, key, identifier string) (*domain.Lock, error)

	// Release drops a lock previously returned by Acquire.
	// Releasing an already released lock is a no-op.
	Release(lock *domain.Lock) error
}
