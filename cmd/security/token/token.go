package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"strings"
)

const (
	// HMACEnvKey is the env var name for the fingerprint HMAC secret.
	// #nosec G101 -- not a credential; it's an environment variable name.
	HMACEnvKey = "METHODIUS_TOKEN_HMAC_KEY"

	// StorageEnvKey is the env var name for the at-rest storage key.
	// #nosec G101 -- not a credential; it's an environment variable name.
	StorageEnvKey = "METHODIUS_STORAGE_KEY"

	// fingerprintLen is the number of hex chars kept from the digest.
	fingerprintLen = 12
)

// HashSHA256Hex returns a SHA-256 hex digest of s.
func HashSHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// HashHMACSHA256Hex returns an HMAC-SHA256 hex digest of s using key.
func HashHMACSHA256Hex(s string, key []byte) string {
	m := hmac.New(sha256.New, key)
	_, _ = m.Write([]byte(s))
	return hex.EncodeToString(m.Sum(nil))
}

// KeyFromEnv returns the key bytes stored in env var name (trimmed), enforcing a minimum byte length.
// If the env var is missing/blank -> ErrKeyMissing.
// If too short -> ErrKeyTooShort.
func KeyFromEnv(name string, minBytes int) ([]byte, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return nil, ErrKeyMissing
	}
	b := []byte(raw)
	if minBytes > 0 && len(b) < minBytes {
		return nil, ErrKeyTooShort
	}
	return b, nil
}

// HMACEnabled reports whether the fingerprint key is present (non-empty after trim).
func HMACEnabled() bool {
	return strings.TrimSpace(os.Getenv(HMACEnvKey)) != ""
}

// Fingerprint returns a short, non-reversible identifier for a bearer token.
// Behavior:
// - If METHODIUS_TOKEN_HMAC_KEY is set, uses HMAC-SHA256(token, key).
// - Otherwise falls back to SHA-256(token).
// An empty token has an empty fingerprint.
func Fingerprint(tok string) string {
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return ""
	}
	var sum string
	if key := strings.TrimSpace(os.Getenv(HMACEnvKey)); key != "" {
		sum = HashHMACSHA256Hex(tok, []byte(key))
	} else {
		sum = HashSHA256Hex(tok)
	}
	return sum[:fingerprintLen]
}
