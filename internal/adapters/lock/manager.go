// Package lock provides file-based cross-process locks keyed by a module label.
package lock

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.trai.ch/modkit/internal/core/domain"
	"go.trai.ch/zerr"
)

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// record is the JSON content of a lock file.
type record struct {
	Identifier string    `json:"identifier"`
	Token      string    `json:"token"`
	PID        int       `json:"pid"`
	Host       string    `json:"host"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// Manager implements ports.Locker with one exclusive-create file per key.
type Manager struct {
	dir     string
	timeout time.Duration
	now     func() time.Time
	host    string
	pid     int
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source used for lock ages.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a lock manager storing lock files in dir.
// Locks older than timeout are treated as abandoned.
func NewManager(dir string, timeout time.Duration, opts ...Option) *Manager {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	m := &Manager{
		dir:     dir,
		timeout: timeout,
		now:     time.Now,
		host:    host,
		pid:     os.Getpid(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Path returns the lock file used for key.
func (m *Manager) Path(key string) string {
	return filepath.Join(m.dir, unsafeKeyChars.ReplaceAllString(key, "-")+domain.LockFileExt)
}

// Acquire takes the lock for key. It fails with domain.ErrLockHeld when another
// holder owns an unexpired lock; an expired or unreadable lock is reclaimed.
func (m *Manager) Acquire(ctx context.Context, key, identifier string) (*domain.Lock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if key == "" {
		return nil, zerr.New("lock key cannot be empty")
	}
	if err := os.MkdirAll(m.dir, domain.DirPerm); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to create lock directory"), "path", m.dir)
	}

	path := m.Path(key)
	rec := record{
		Identifier: identifier,
		Token:      uuid.NewString(),
		PID:        m.pid,
		Host:       m.host,
		AcquiredAt: m.now().UTC(),
	}

	// A second attempt only follows a successful stale reclaim.
	for attempt := 0; attempt < 2; attempt++ {
		created, err := m.create(path, rec)
		if err != nil {
			return nil, err
		}
		if created {
			return &domain.Lock{
				Key:        key,
				Identifier: identifier,
				Token:      rec.Token,
				PID:        rec.PID,
				Host:       rec.Host,
				AcquiredAt: rec.AcquiredAt,
				Path:       path,
			}, nil
		}

		holder, reclaimed, err := m.reclaim(path)
		if err != nil {
			return nil, err
		}
		if !reclaimed {
			return nil, held(key, holder)
		}
	}

	return nil, held(key, nil)
}

// Release removes the lock file if it still carries the lock's token.
// Releasing a lock that is gone or was reclaimed by another holder is a no-op.
func (m *Manager) Release(l *domain.Lock) error {
	if l == nil || l.Token == "" {
		return nil
	}

	path := l.Path
	if path == "" {
		path = m.Path(l.Key)
	}

	current, err := readRecord(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil || current.Token != l.Token {
		return nil
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return zerr.With(zerr.Wrap(domain.ErrLockReleaseFailed, err.Error()), "path", path)
	}
	return nil
}

// create publishes the lock record at path. The record is written to a private
// temporary file first and hard-linked into place, so the lock file never exists
// without its full content. It reports false when the lock file already exists.
func (m *Manager) create(path string, rec record) (bool, error) {
	tmp, err := os.CreateTemp(m.dir, ".tmp-lock-*")
	if err != nil {
		return false, zerr.With(zerr.Wrap(err, "failed to create lock file"), "path", path)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // temporary file

	if err := json.NewEncoder(tmp).Encode(rec); err != nil {
		_ = tmp.Close()
		return false, zerr.With(zerr.Wrap(err, "failed to write lock file"), "path", path)
	}
	if err := tmp.Close(); err != nil {
		return false, zerr.With(zerr.Wrap(err, "failed to write lock file"), "path", path)
	}
	if err := os.Chmod(tmp.Name(), domain.FilePerm); err != nil {
		return false, zerr.With(zerr.Wrap(err, "failed to write lock file"), "path", path)
	}

	if err := os.Link(tmp.Name(), path); err != nil {
		if errors.Is(err, os.ErrExist) {
			return false, nil
		}
		return false, zerr.With(zerr.Wrap(err, "failed to create lock file"), "path", path)
	}
	return true, nil
}

// reclaim removes the lock file at path if it is expired or unreadable.
// The file is first renamed aside so that only one contender can reclaim it;
// if the aside copy turns out to be fresh it is linked back into place.
func (m *Manager) reclaim(path string) (*record, bool, error) {
	current, err := readRecord(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Released between our create and read.
		return nil, true, nil
	case err == nil && !m.expired(current):
		return current, false, nil
	}

	aside := path + ".stale-" + uuid.NewString()
	if err := os.Rename(path, aside); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// Another contender reclaimed it first.
			return nil, true, nil
		}
		return nil, false, zerr.With(zerr.Wrap(err, "failed to reclaim stale lock"), "path", path)
	}

	moved, err := readRecord(aside)
	if err == nil && !m.expired(moved) {
		// A new holder replaced the stale file before our rename. Put it back.
		if linkErr := os.Link(aside, path); linkErr != nil && !errors.Is(linkErr, os.ErrExist) {
			_ = os.Rename(aside, path)
			return moved, false, nil
		}
		_ = os.Remove(aside)
		return moved, false, nil
	}

	_ = os.Remove(aside)
	return nil, true, nil
}

func (m *Manager) expired(r *record) bool {
	if m.timeout <= 0 {
		return false
	}
	return m.now().Sub(r.AcquiredAt) > m.timeout
}

func readRecord(path string) (*record, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is built from a sanitized key
	if err != nil {
		return nil, err
	}
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "corrupt lock file"), "path", path)
	}
	if r.AcquiredAt.IsZero() {
		return nil, zerr.With(zerr.New("lock file has no acquisition time"), "path", path)
	}
	return &r, nil
}

func held(key string, holder *record) error {
	err := zerr.With(zerr.Wrap(domain.ErrLockHeld, "module is locked by another operation"), "key", key)
	if holder != nil {
		err = zerr.With(err, "holder_pid", holder.PID)
		err = zerr.With(err, "holder_host", holder.Host)
		err = zerr.With(err, "acquired_at", holder.AcquiredAt.Format(time.RFC3339))
	}
	return err
}
