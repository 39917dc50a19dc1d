// Package backup snapshots module directories and restores them.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.trai.ch/modkit/internal/adapters/fs"
	"go.trai.ch/modkit/internal/core/domain"
	"go.trai.ch/zerr"
)

// snapshotName matches "{label}_{timestamp}" with an optional collision suffix.
var snapshotName = regexp.MustCompile(`^(.+)_(\d{4}-\d{2}-\d{2}_\d{2}-\d{2}-\d{2})(-\d+)?$`)

// Manager implements ports.BackupManager on a local backup root.
type Manager struct {
	root     string
	excludes *fs.Matcher
	walker   *fs.Walker
	hasher   *fs.Hasher
	now      func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source used to name and age snapshots.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a backup manager storing snapshots under root.
// Paths matching excludes are never copied into a snapshot.
func NewManager(root string, excludes []string, walker *fs.Walker, hasher *fs.Hasher, opts ...Option) *Manager {
	m := &Manager{
		root:     root,
		excludes: fs.NewMatcher(excludes),
		walker:   walker,
		hasher:   hasher,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CreateBackup copies targetDir into a new snapshot for label and returns its path.
// The copy is assembled under a hidden temporary name and renamed into place once
// the metadata sidecar is written, so listings never observe a partial snapshot.
func (m *Manager) CreateBackup(targetDir, label string) (string, error) {
	info, err := os.Stat(targetDir)
	if err != nil || !info.IsDir() {
		return "", zerr.With(zerr.Wrap(domain.ErrMissingTarget, "cannot back up"), "path", targetDir)
	}
	if err := os.MkdirAll(m.root, domain.DirPerm); err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to create backup root"), "path", m.root)
	}

	tmp, err := os.MkdirTemp(m.root, ".tmp-"+label+"-*")
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to create backup staging directory"), "path", m.root)
	}
	// MkdirTemp creates the directory; CopyTree expects to create it.
	if err := os.Remove(tmp); err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to prepare backup staging directory"), "path", tmp)
	}

	created := m.now()
	stats, err := m.walker.CopyTree(context.Background(), targetDir, tmp, m.excludes)
	if err != nil {
		_ = os.RemoveAll(tmp)
		return "", zerr.With(zerr.Wrap(err, "failed to copy backup"), "path", targetDir)
	}

	digest, err := m.hasher.TreeDigest(tmp, nil)
	if err != nil {
		_ = os.RemoveAll(tmp)
		return "", err
	}

	meta := domain.BackupMeta{
		Label:     label,
		Source:    targetDir,
		CreatedAt: created.UTC().Format(time.RFC3339),
		SizeBytes: stats.Bytes,
		Files:     stats.Files,
		Digest:    digest,
	}
	if err := writeMeta(filepath.Join(tmp, domain.BackupMetaFile), meta); err != nil {
		_ = os.RemoveAll(tmp)
		return "", err
	}
	if err := os.Chtimes(tmp, created, created); err != nil {
		_ = os.RemoveAll(tmp)
		return "", zerr.With(zerr.Wrap(err, "failed to stamp backup"), "path", tmp)
	}

	final, err := m.publish(tmp, label, created)
	if err != nil {
		_ = os.RemoveAll(tmp)
		return "", err
	}
	return final, nil
}

// publish renames the staged snapshot to its final name, adding a numeric
// suffix when a snapshot for the same label and second already exists.
func (m *Manager) publish(tmp, label string, created time.Time) (string, error) {
	base := label + "_" + created.Format(domain.BackupTimestampLayout)
	for i := 0; i < 100; i++ {
		name := base
		if i > 0 {
			name += "-" + strconv.Itoa(i)
		}
		final := filepath.Join(m.root, name)
		if _, err := os.Lstat(final); err == nil {
			continue
		}
		if err := os.Rename(tmp, final); err != nil {
			if errors.Is(err, os.ErrExist) {
				continue
			}
			return "", zerr.With(zerr.Wrap(err, "failed to publish backup"), "path", final)
		}
		return final, nil
	}
	return "", zerr.With(zerr.New("too many backups in the same second"), "label", label)
}

type entry struct {
	path    string
	label   string
	name    string
	modTime time.Time
}

// ListBackups returns snapshot paths newest-first. An empty label lists every snapshot.
func (m *Manager) ListBackups(label string) ([]string, error) {
	entries, err := m.list(label)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		paths = append(paths, e.path)
	}
	return paths, nil
}

func (m *Manager) list(label string) ([]entry, error) {
	dirents, err := os.ReadDir(m.root)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to read backup root"), "path", m.root)
	}

	var entries []entry
	for _, d := range dirents {
		if !d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			continue
		}
		match := snapshotName.FindStringSubmatch(d.Name())
		if match == nil || (label != "" && match[1] != label) {
			continue
		}
		info, err := d.Info()
		if err != nil {
			// Removed concurrently.
			continue
		}
		entries = append(entries, entry{
			path:    filepath.Join(m.root, d.Name()),
			label:   match[1],
			name:    d.Name(),
			modTime: info.ModTime(),
		})
	}

	slices.SortFunc(entries, func(a, b entry) int {
		if c := b.modTime.Compare(a.modTime); c != 0 {
			return c
		}
		return strings.Compare(b.name, a.name)
	})
	return entries, nil
}

// Inspect reads the metadata of a snapshot. A snapshot without a readable
// sidecar is described from its directory name and contents.
func (m *Manager) Inspect(backupPath string) (*domain.Snapshot, error) {
	info, err := os.Stat(backupPath)
	if err != nil || !info.IsDir() {
		return nil, zerr.With(zerr.Wrap(domain.ErrMissingBackup, "cannot read backup"), "path", backupPath)
	}

	snap := &domain.Snapshot{Path: backupPath, ModTime: info.ModTime()}
	if match := snapshotName.FindStringSubmatch(filepath.Base(backupPath)); match != nil {
		snap.Label = match[1]
	}

	meta, err := readMeta(filepath.Join(backupPath, domain.BackupMetaFile))
	if err != nil {
		files, size, sizeErr := m.walker.Size(backupPath, metaOnly())
		if sizeErr != nil {
			return nil, zerr.With(zerr.Wrap(sizeErr, "failed to measure backup"), "path", backupPath)
		}
		snap.Files = files
		snap.SizeBytes = size
		snap.CreatedAt = info.ModTime()
		return snap, nil
	}

	if meta.Label != "" {
		snap.Label = meta.Label
	}
	snap.Source = meta.Source
	snap.SizeBytes = meta.SizeBytes
	snap.Files = meta.Files
	snap.Digest = meta.Digest
	if created, err := time.Parse(time.RFC3339, meta.CreatedAt); err == nil {
		snap.CreatedAt = created
	} else {
		snap.CreatedAt = info.ModTime()
	}
	return snap, nil
}

// RestoreBackup replaces targetDir wholesale with the snapshot contents.
// The snapshot is copied next to targetDir first, so a failed copy leaves
// the current targetDir untouched.
func (m *Manager) RestoreBackup(backupPath, targetDir string) error {
	info, err := os.Stat(backupPath)
	if err != nil || !info.IsDir() {
		return zerr.With(zerr.Wrap(domain.ErrMissingBackup, "cannot read backup"), "path", backupPath)
	}

	parent := filepath.Dir(targetDir)
	if err := os.MkdirAll(parent, domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create restore parent"), "path", parent)
	}

	tmp, err := os.MkdirTemp(parent, "."+filepath.Base(targetDir)+".restore-*")
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create restore staging directory"), "path", parent)
	}
	if err := os.Remove(tmp); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to prepare restore staging directory"), "path", tmp)
	}

	if _, err := m.walker.CopyTree(context.Background(), backupPath, tmp, metaOnly()); err != nil {
		_ = os.RemoveAll(tmp)
		return zerr.With(zerr.Wrap(err, "failed to copy backup"), "path", backupPath)
	}

	if err := os.RemoveAll(targetDir); err != nil {
		_ = os.RemoveAll(tmp)
		return zerr.With(zerr.Wrap(err, "failed to remove restore target"), "path", targetDir)
	}
	if err := os.Rename(tmp, targetDir); err != nil {
		_ = os.RemoveAll(tmp)
		return zerr.With(zerr.Wrap(err, "failed to move restored backup into place"), "path", targetDir)
	}
	return nil
}

// CleanOldBackups removes all but the keep most recent snapshots for label
// and returns the removed paths.
func (m *Manager) CleanOldBackups(label string, keep int) ([]string, error) {
	if keep < 0 {
		keep = 0
	}
	entries, err := m.list(label)
	if err != nil {
		return nil, err
	}
	if len(entries) <= keep {
		return nil, nil
	}
	return m.remove(entries[keep:])
}

// CleanExpiredBackups removes every snapshot last modified more than maxAge ago
// and returns the removed paths.
func (m *Manager) CleanExpiredBackups(maxAge time.Duration) ([]string, error) {
	entries, err := m.list("")
	if err != nil {
		return nil, err
	}

	cutoff := m.now().Add(-maxAge)
	var expired []entry
	for _, e := range entries {
		if e.modTime.Before(cutoff) {
			expired = append(expired, e)
		}
	}
	return m.remove(expired)
}

func (m *Manager) remove(entries []entry) ([]string, error) {
	removed := make([]string, 0, len(entries))
	var errs []error
	for _, e := range entries {
		if err := os.RemoveAll(e.path); err != nil {
			errs = append(errs, zerr.With(zerr.Wrap(err, "failed to remove backup"), "path", e.path))
			continue
		}
		removed = append(removed, e.path)
	}
	return removed, errors.Join(errs...)
}

func metaOnly() *fs.Matcher {
	return fs.NewMatcher([]string{"/" + domain.BackupMetaFile})
}

func writeMeta(path string, meta domain.BackupMeta) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return zerr.Wrap(err, "failed to encode backup metadata")
	}
	if err := os.WriteFile(path, append(data, '\n'), domain.FilePerm); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to write backup metadata"), "path", path)
	}
	return nil
}

func readMeta(path string) (*domain.BackupMeta, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is inside the backup root
	if err != nil {
		return nil, err
	}
	var meta domain.BackupMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}
