package ports

import (
	"context"

	"go.trai.ch/modkit/internal/core/domain"
)

// ManifestMerger merges module dependency declarations into the host manifest.
//
//go:generate mockgen -source=merger.go -destination=mocks/mock_merger.go -package=mocks
type ManifestMerger interface {
	// Check reports what Merge would change without writing, failing on conflicts.
	Check(hostManifest string, fragment, previous domain.ManifestFragment) (*domain.MergeReport, error)

	// Merge adds the fragment to the host manifest and runs dependency resolution.
	// previous is what the copy being replaced contributed: host entries still
	// holding its values belong to the module and are updated or dropped.
	// On resolution failure the manifest is restored.
	Merge(ctx context.Context, hostManifest string, fragment, previous domain.ManifestFragment) (*domain.MergeReport, error)

	// Remove drops the entries of fragment that still match the host manifest.
	Remove(ctx context.Context, hostManifest string, fragment domain.ManifestFragment) (*domain.MergeReport, error)
}
