package ports

import "context"

// Extractor unpacks a package archive into a directory.
//
//go:generate mockgen -source=archive.go -destination=mocks/mock_archive.go -package=mocks
type Extractor interface {
	// Extract unpacks archivePath into dest, stripping a single top-level directory.
	Extract(ctx context.Context, archivePath, dest string) error
}
