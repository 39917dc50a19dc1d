// Package tokens persists provider tokens encrypted at rest.
package tokens

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.trai.ch/modkit/internal/core/domain"
	"go.trai.ch/modkit/internal/core/ports"
	"go.trai.ch/zerr"
)

// file is the on-disk layout of the token store.
type file struct {
	GitHubTokens  map[string]string `json:"github_tokens,omitempty"`
	RegistryToken string            `json:"registry_token,omitempty"`
}

// Store implements ports.TokenStore on a JSON file. GitHub tokens are keyed by
// owner; the empty owner addresses the single registry token.
type Store struct {
	mu        sync.Mutex
	path      string
	cipher    ports.Cipher
	newCipher func() (ports.Cipher, error)
}

// NewStore creates a token store at path.
func NewStore(path string, cipher ports.Cipher) *Store {
	return &Store{path: path, cipher: cipher}
}

// newLazyStore defers building the cipher, and so creating the key file, until
// a token is first read or written.
func newLazyStore(path string, newCipher func() (ports.Cipher, error)) *Store {
	return &Store{path: path, newCipher: newCipher}
}

func (s *Store) getCipher() (ports.Cipher, error) {
	if s.cipher == nil {
		c, err := s.newCipher()
		if err != nil {
			return nil, err
		}
		s.cipher = c
	}
	return s.cipher, nil
}

// Load returns the decrypted token for owner. A missing, unreadable or
// undecryptable entry is reported as absent.
func (s *Store) Load(owner string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.read()
	if err != nil {
		return "", false
	}

	enc := f.RegistryToken
	if owner != "" {
		enc = f.GitHubTokens[owner]
	}
	if enc == "" {
		return "", false
	}
	c, err := s.getCipher()
	if err != nil {
		return "", false
	}
	return c.Decrypt(enc)
}

// Save encrypts and stores token for owner.
func (s *Store) Save(owner, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.getCipher()
	if err != nil {
		return err
	}
	enc, err := c.Encrypt(token)
	if err != nil {
		return zerr.Wrap(err, domain.ErrTokenStoreFailed.Error())
	}

	f, err := s.read()
	if err != nil {
		return err
	}
	if owner == "" {
		f.RegistryToken = enc
	} else {
		if f.GitHubTokens == nil {
			f.GitHubTokens = map[string]string{}
		}
		f.GitHubTokens[owner] = enc
	}
	return s.write(f)
}

// Forget removes the token stored for owner. Forgetting an unknown owner is a no-op.
func (s *Store) Forget(owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.read()
	if err != nil {
		return err
	}
	if owner == "" {
		f.RegistryToken = ""
	} else {
		delete(f.GitHubTokens, owner)
	}
	return s.write(f)
}

func (s *Store) read() (*file, error) {
	data, err := os.ReadFile(s.path) //nolint:gosec // store path comes from configuration
	if errors.Is(err, fs.ErrNotExist) {
		return &file{}, nil
	}
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrTokenStoreFailed.Error()), "path", s.path)
	}

	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrTokenStoreFailed.Error()), "path", s.path)
	}
	return &f, nil
}

// write replaces the store file atomically with owner-only permissions.
func (s *Store) write(f *file) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return zerr.Wrap(err, domain.ErrTokenStoreFailed.Error())
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrTokenStoreFailed.Error()), "path", dir)
	}

	tmp, err := os.CreateTemp(dir, ".tokens-*")
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrTokenStoreFailed.Error()), "path", dir)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // removed after a successful rename too

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		return zerr.With(zerr.Wrap(err, domain.ErrTokenStoreFailed.Error()), "path", tmp.Name())
	}
	if err := tmp.Close(); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrTokenStoreFailed.Error()), "path", tmp.Name())
	}
	if err := os.Chmod(tmp.Name(), domain.PrivateFilePerm); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrTokenStoreFailed.Error()), "path", tmp.Name())
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrTokenStoreFailed.Error()), "path", s.path)
	}
	return nil
}
