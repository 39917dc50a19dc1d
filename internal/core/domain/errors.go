package domain

import (
	"fmt"
	"strings"
	"time"

	"go.trai.ch/zerr"
)

var (
	// ErrLockHeld is returned when another process holds an unexpired lock for the identifier.
	ErrLockHeld = zerr.New("lock is held by another process")

	// ErrLockReleaseFailed is returned when a held lock file cannot be removed.
	ErrLockReleaseFailed = zerr.New("failed to release lock")

	// ErrMissingTarget is returned when a backup is requested for a directory that does not exist.
	ErrMissingTarget = zerr.New("backup target does not exist")

	// ErrMissingBackup is returned when a restore is requested from a snapshot that does not exist.
	ErrMissingBackup = zerr.New("backup does not exist")

	// ErrForeignBackup is returned when a snapshot was taken from another install path.
	ErrForeignBackup = zerr.New("backup belongs to another module")

	// ErrNoBackups is returned when a rollback is requested for a label without snapshots.
	ErrNoBackups = zerr.New("no backups available")

	// ErrNotFound is returned when a provider cannot find the module or the requested version.
	ErrNotFound = zerr.New("not found")

	// ErrNoReleases is returned when a provider reports no releases for a module.
	// It wraps ErrNotFound so callers matching either sentinel observe it.
	ErrNoReleases = zerr.Wrap(ErrNotFound, "No releases found")

	// ErrAuthRequired is returned when a provider requires credentials that were not supplied or were rejected.
	ErrAuthRequired = zerr.New("authentication required")

	// ErrPrivateOrMissing is GitHub's answer to an anonymous request for a private
	// repository, which it reports exactly like a missing one. It matches both
	// ErrAuthRequired and ErrNotFound.
	ErrPrivateOrMissing error = privateOrMissing{}

	// ErrRateLimited is returned when the upstream provider throttles requests.
	ErrRateLimited = zerr.New("rate limited by provider")

	// ErrProviderResponse is returned when a provider answers with an unexpected status or payload.
	ErrProviderResponse = zerr.New("unexpected provider response")

	// ErrInvalidIdentifier is returned when a module identifier cannot be parsed.
	ErrInvalidIdentifier = zerr.New("invalid module identifier")

	// ErrNoVersionSelected is returned when version selection yields nothing.
	ErrNoVersionSelected = zerr.New("No version selected")

	// ErrOperationCancelled is returned when the user declines a confirmation.
	ErrOperationCancelled = zerr.New("Operation cancelled")

	// ErrDownloadTooLarge is returned when a package exceeds the configured download limit.
	ErrDownloadTooLarge = zerr.New("package exceeds maximum download size")

	// ErrUnsupportedArchive is returned when a package is neither a gzip tarball nor a zip archive.
	ErrUnsupportedArchive = zerr.New("unsupported archive format")

	// ErrUnsafeArchive is returned when an archive entry would escape the extraction root.
	ErrUnsafeArchive = zerr.New("archive entry escapes extraction root")

	// ErrValidationFailed is returned when a staged module violates the module layout contract.
	ErrValidationFailed = zerr.New("module validation failed")

	// ErrDependencyConflict is returned when a module requires a dependency with a constraint
	// different from the one already declared by the host manifest.
	ErrDependencyConflict = zerr.New("dependency conflict")

	// ErrResolutionFailed is returned when the host dependency resolution process fails.
	ErrResolutionFailed = zerr.New("dependency resolution failed")

	// ErrManifestReadFailed is returned when a manifest cannot be read or parsed.
	ErrManifestReadFailed = zerr.New("failed to read manifest")

	// ErrManifestWriteFailed is returned when a manifest cannot be written.
	ErrManifestWriteFailed = zerr.New("failed to write manifest")

	// ErrHookTimeout is returned when a lifecycle hook exceeds its timeout.
	ErrHookTimeout = zerr.New("hook timed out")

	// ErrHookFailed is returned when a lifecycle hook exits with a non-zero status.
	ErrHookFailed = zerr.New("hook failed")

	// ErrInvalidHook is returned when a declared hook command cannot be parsed.
	ErrInvalidHook = zerr.New("invalid hook command")

	// ErrInstallFailed is returned when an install is aborted and rolled back.
	ErrInstallFailed = zerr.New("Installation failed")

	// ErrUninstallFailed is returned when an uninstall is aborted.
	ErrUninstallFailed = zerr.New("Uninstall failed")

	// ErrRollbackFailed is returned when restoring the previous state after a failure itself fails.
	// The install path is left in an indeterminate state.
	ErrRollbackFailed = zerr.New("rollback failed, install path is in an indeterminate state")

	// ErrModuleNotInstalled is returned when an operation targets a module that is not installed.
	ErrModuleNotInstalled = zerr.New("module is not installed")

	// ErrConfigReadFailed is returned when the config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the config file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrInvalidConfig is returned when a config value is out of range.
	ErrInvalidConfig = zerr.New("invalid configuration")

	// ErrTokenStoreFailed is returned when the token store cannot be read or written.
	ErrTokenStoreFailed = zerr.New("token store failure")
)

// ValidationError lists every violation found in a staged module.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return ErrValidationFailed.Error() + ":\n  - " + strings.Join(e.Violations, "\n  - ")
}

// Unwrap returns ErrValidationFailed.
func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// Conflict describes one dependency whose constraint differs between host and module.
type Conflict struct {
	Name     string
	Existing string
	Required string
}

// ConflictError reports the dependency conflicts found during a manifest merge.
type ConflictError struct {
	Conflicts []Conflict
}

func (e *ConflictError) Error() string {
	parts := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		parts = append(parts, fmt.Sprintf("%s (host %q, module %q)", c.Name, c.Existing, c.Required))
	}
	return ErrDependencyConflict.Error() + ": " + strings.Join(parts, ", ")
}

// Unwrap returns ErrDependencyConflict.
func (e *ConflictError) Unwrap() error {
	return ErrDependencyConflict
}

// RateLimitError carries the rate limit state reported by the provider.
type RateLimitError struct {
	Limit     int
	Remaining int
	Reset     time.Time
}

func (e *RateLimitError) Error() string {
	if e.Reset.IsZero() {
		return ErrRateLimited.Error()
	}
	return fmt.Sprintf("%s (limit %d, resets at %s)", ErrRateLimited.Error(), e.Limit, e.Reset.Format(time.RFC3339))
}

// Unwrap returns ErrRateLimited.
func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

type privateOrMissing struct{}

func (privateOrMissing) Error() string {
	return "repository not found or private (a token is required for private repositories)"
}

func (privateOrMissing) Is(target error) bool {
	return target == ErrAuthRequired || target == ErrNotFound
}
