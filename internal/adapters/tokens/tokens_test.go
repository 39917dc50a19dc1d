package tokens_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/modkit/internal/adapters/tokens"
	"go.trai.ch/modkit/internal/core/domain"
)

func newCipher(t *testing.T, secret string) *tokens.Cipher {
	t.Helper()
	c, err := tokens.NewCipher([]byte(secret))
	require.NoError(t, err)
	return c
}

func TestCipher_RoundTrip(t *testing.T) {
	c := newCipher(t, "app-secret")

	enc, err := c.Encrypt("ghp_123")
	require.NoError(t, err)
	assert.NotContains(t, enc, "ghp_123")

	again, err := c.Encrypt("ghp_123")
	require.NoError(t, err)
	assert.NotEqual(t, enc, again, "nonces are random")

	plain, ok := c.Decrypt(enc)
	require.True(t, ok)
	assert.Equal(t, "ghp_123", plain)
}

func TestCipher_DecryptFailuresAreAbsent(t *testing.T) {
	c := newCipher(t, "app-secret")
	enc, err := c.Encrypt("ghp_123")
	require.NoError(t, err)

	_, ok := newCipher(t, "other-secret").Decrypt(enc)
	assert.False(t, ok, "wrong key")

	_, ok = c.Decrypt("not base64 !!")
	assert.False(t, ok, "malformed")

	_, ok = c.Decrypt("c2hvcnQ=")
	assert.False(t, ok, "too short")

	tampered := []byte(enc)
	tampered[len(tampered)-3] ^= 0x01
	_, ok = c.Decrypt(string(tampered))
	assert.False(t, ok, "tampered")
}

func TestNewCipher_EmptySecret(t *testing.T) {
	_, err := tokens.NewCipher(nil)
	require.ErrorIs(t, err, domain.ErrTokenStoreFailed)
}

func TestStore_SaveLoadForget(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "config.json")
	s := tokens.NewStore(path, newCipher(t, "app-secret"))

	_, ok := s.Load("acme")
	assert.False(t, ok)

	require.NoError(t, s.Save("acme", "ghp_acme"))
	require.NoError(t, s.Save("", "wk_registry"))

	tok, ok := s.Load("acme")
	require.True(t, ok)
	assert.Equal(t, "ghp_acme", tok)

	reg, ok := s.Load("")
	require.True(t, ok)
	assert.Equal(t, "wk_registry", reg)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(domain.PrivateFilePerm), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "ghp_acme")
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "github_tokens")
	assert.Contains(t, raw, "registry_token")

	require.NoError(t, s.Forget("acme"))
	_, ok = s.Load("acme")
	assert.False(t, ok)
	_, ok = s.Load("")
	assert.True(t, ok, "forgetting an owner keeps the registry token")

	require.NoError(t, s.Forget("unknown"))
}

func TestStore_CorruptFileIsAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), domain.PrivateFilePerm))

	s := tokens.NewStore(path, newCipher(t, "app-secret"))
	_, ok := s.Load("acme")
	assert.False(t, ok)

	err := s.Save("acme", "ghp")
	require.ErrorIs(t, err, domain.ErrTokenStoreFailed)
}

func TestLoadAppKey(t *testing.T) {
	keyFile := filepath.Join(t.TempDir(), "keys", "app.key")
	noEnv := func(string) string { return "" }

	t.Run("environment wins", func(t *testing.T) {
		key, err := tokens.LoadAppKey(func(string) string { return " from-env " }, keyFile)
		require.NoError(t, err)
		assert.Equal(t, "from-env", string(key))
		assert.NoFileExists(t, keyFile)
	})

	t.Run("generated once", func(t *testing.T) {
		first, err := tokens.LoadAppKey(noEnv, keyFile)
		require.NoError(t, err)
		assert.NotEmpty(t, first)

		info, err := os.Stat(keyFile)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(domain.PrivateFilePerm), info.Mode().Perm())

		second, err := tokens.LoadAppKey(noEnv, keyFile)
		require.NoError(t, err)
		assert.Equal(t, first, second)

		data, err := os.ReadFile(keyFile)
		require.NoError(t, err)
		assert.Equal(t, string(first), strings.TrimSpace(string(data)))
	})
}
