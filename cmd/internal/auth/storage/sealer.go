package storage

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// Sealer encrypts persisted values with XChaCha20-Poly1305.
//
// The AEAD key is SHA-256 of the configured secret, so any secret of at least
// 32 bytes is accepted regardless of its encoding.
type Sealer struct {
	key [chacha20poly1305.KeySize]byte
}

// NewSealer builds a Sealer from secret. An empty secret is a config error.
func NewSealer(secret []byte) (*Sealer, error) {
	if len(secret) == 0 {
		return nil, ErrConfig
	}
	return &Sealer{key: sha256.Sum256(secret)}, nil
}

// Seal returns nonce||ciphertext for plaintext bound to ad.
func (s *Sealer) Seal(plaintext, ad []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(s.key[:])
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, plaintext, ad), nil
}

// Open reverses Seal. Any authentication failure maps to ErrKeyMismatch.
func (s *Sealer) Open(sealed, ad []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(s.key[:])
	if err != nil {
		return nil, err
	}
	if len(sealed) < aead.NonceSize()+aead.Overhead() {
		return nil, ErrKeyMismatch
	}
	nonce, ct := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	pt, err := aead.Open(nil, nonce, ct, ad)
	if err != nil {
		return nil, ErrKeyMismatch
	}
	return pt, nil
}
