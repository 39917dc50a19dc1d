package ports

// TokenStore persists provider tokens keyed by source owner.
// An empty owner addresses the registry token.
//
//go:generate mockgen -source=tokens.go -destination=mocks/mock_tokens.go -package=mocks
type TokenStore interface {
	// Load returns the saved token for owner. Unreadable or undecryptable entries are reported as absent.
	Load(owner string) (string, bool)
	Save(owner, token string) error
	Forget(owner string) error
}

// Cipher encrypts tokens at rest.
type Cipher interface {
	Encrypt(plaintext string) (string, error)
	// Decrypt never fails loudly: a ciphertext that cannot be opened yields ok=false.
	Decrypt(ciphertext string) (plaintext string, ok bool)
}
