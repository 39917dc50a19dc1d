package ports

import (
	"time"

	"go.trai.ch/modkit/internal/core/domain"
)

// BackupManager snapshots and restores module directories.
//
//go:generate mockgen -source=backup.go -destination=mocks/mock_backup.go -package=mocks
type BackupManager interface {
	// CreateBackup copies targetDir into a new snapshot for label and returns its path.
	// The snapshot becomes listable only once it is complete.
	CreateBackup(targetDir, label string) (string, error)

	// ListBackups returns snapshot paths newest-first. An empty label lists every snapshot.
	ListBackups(label string) ([]string, error)

	// Inspect reads the metadata of a snapshot.
	Inspect(backupPath string) (*domain.Snapshot, error)

	// RestoreBackup replaces targetDir wholesale with the snapshot contents.
	RestoreBackup(backupPath, targetDir string) error

	// CleanOldBackups removes all but the keep most recent snapshots for label.
	CleanOldBackups(label string, keep int) ([]string, error)

	// CleanExpiredBackups removes every snapshot older than maxAge, regardless of label.
	CleanExpiredBackups(maxAge time.Duration) ([]string, error)
}
