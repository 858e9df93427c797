package storage

import (
	"errors"
	"io"
	"os"
	"strings"

	"methodius/cmd/security/token"
)

// Kind selects a storage backend.
type Kind string

const (
	KindMemory Kind = "memory"
	KindFile   Kind = "file"
	KindBolt   Kind = "bolt"
)

// MinKeyBytes is the minimum accepted length of the storage key.
const MinKeyBytes = 32

// Config selects and parameterises the storage backend.
type Config struct {
	Kind Kind
	Path string

	// Key seals values at rest when non-empty.
	Key []byte
}

// DefaultConfig returns a file-backed configuration under ./var.
func DefaultConfig() Config {
	return Config{
		Kind: KindFile,
		Path: "var/session.json",
	}
}

// LoadConfigFromEnv loads storage configuration from environment variables.
//
// Optional:
//   - METHODIUS_STORAGE_KIND (memory|file|bolt)
//   - METHODIUS_STORAGE_PATH
//   - METHODIUS_STORAGE_KEY (>= 32 bytes when set)
//
// Returns ErrConfig if configuration is invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := strings.TrimSpace(os.Getenv("METHODIUS_STORAGE_KIND")); v != "" {
		switch Kind(strings.ToLower(v)) {
		case KindMemory, KindFile, KindBolt:
			cfg.Kind = Kind(strings.ToLower(v))
		default:
			return Config{}, ErrConfig
		}
	}

	if v := strings.TrimSpace(os.Getenv("METHODIUS_STORAGE_PATH")); v != "" {
		cfg.Path = v
	} else if cfg.Kind == KindBolt {
		cfg.Path = "var/session.db"
	}

	key, err := token.KeyFromEnv(token.StorageEnvKey, MinKeyBytes)
	switch {
	case err == nil:
		cfg.Key = key
	case errors.Is(err, token.ErrKeyMissing):
	default:
		return Config{}, ErrConfig
	}

	return cfg, nil
}

// Backend is the full storage surface including resource cleanup.
type Backend interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
	io.Closer
}

// Open builds the backend selected by cfg.
func Open(cfg Config) (Backend, error) {
	var sealer *Sealer
	if len(cfg.Key) > 0 {
		s, err := NewSealer(cfg.Key)
		if err != nil {
			return nil, err
		}
		sealer = s
	}

	switch cfg.Kind {
	case KindMemory:
		return NewMemory(), nil
	case KindFile, "":
		return NewFile(cfg.Path, sealer)
	case KindBolt:
		return OpenBolt(cfg.Path, sealer)
	default:
		return nil, ErrConfig
	}
}
