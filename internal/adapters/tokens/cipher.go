package tokens

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/modkit/internal/core/domain"
	"go.trai.ch/zerr"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// EnvAppKey supplies the token encryption secret, overriding the key file.
const EnvAppKey = "MODKIT_APP_KEY"

const keyInfo = "modkit token store v1"

// Cipher implements ports.Cipher with XChaCha20-Poly1305. The key is derived
// from an application secret with HKDF-SHA256.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher derives the encryption key from secret.
func NewCipher(secret []byte) (*Cipher, error) {
	if len(secret) == 0 {
		return nil, zerr.Wrap(domain.ErrTokenStoreFailed, "empty application key")
	}

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(keyInfo)), key); err != nil {
		return nil, zerr.Wrap(err, "failed to derive token key")
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to initialise token cipher")
	}
	return &Cipher{aead: aead}, nil
}

// Encrypt seals plaintext under a random nonce and returns base64(nonce || ciphertext).
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plaintext)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", zerr.Wrap(err, "failed to generate nonce")
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt. Any malformed or tampered input,
// or one sealed under another key, yields ok=false.
func (c *Cipher) Decrypt(ciphertext string) (string, bool) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil || len(raw) < c.aead.NonceSize() {
		return "", false
	}
	nonce, sealed := raw[:c.aead.NonceSize()], raw[c.aead.NonceSize():]
	plain, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", false
	}
	return string(plain), true
}

// LoadAppKey returns the application secret: the environment value when set,
// otherwise the content of keyFile, which is generated on first use.
func LoadAppKey(getenv func(string) string, keyFile string) ([]byte, error) {
	if v := strings.TrimSpace(getenv(EnvAppKey)); v != "" {
		return []byte(v), nil
	}

	data, err := os.ReadFile(keyFile) //nolint:gosec // key path comes from configuration
	if err == nil && len(strings.TrimSpace(string(data))) > 0 {
		return []byte(strings.TrimSpace(string(data))), nil
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, zerr.With(zerr.Wrap(domain.ErrTokenStoreFailed, "cannot read application key"), "path", keyFile)
	}

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, zerr.Wrap(err, "failed to generate application key")
	}
	encoded := base64.StdEncoding.EncodeToString(secret)

	if err := os.MkdirAll(filepath.Dir(keyFile), 0o700); err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrTokenStoreFailed, "cannot create key directory"), "path", filepath.Dir(keyFile))
	}
	if err := os.WriteFile(keyFile, []byte(encoded+"\n"), domain.PrivateFilePerm); err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrTokenStoreFailed, "cannot write application key"), "path", keyFile)
	}
	return []byte(encoded), nil
}
