package app

import (
	"errors"

	"methodius/cmd/internal/auth/storage"
	"methodius/cmd/security/token"
)

// ValidateSecurityConfig enforces the at-rest policy at startup.
// Under METHODIUS_REQUIRE_STORAGE_KEY the persisted credentials must be sealed,
// so a missing or short key and the memory backend are fatal.
func ValidateSecurityConfig(cfg Config, st storage.Config) error {
	if !cfg.RequireStorageKey {
		return nil
	}

	if _, err := token.KeyFromEnv(token.StorageEnvKey, storage.MinKeyBytes); err != nil {
		switch {
		case errors.Is(err, token.ErrKeyMissing):
			return errors.New("security policy: METHODIUS_REQUIRE_STORAGE_KEY=true but METHODIUS_STORAGE_KEY is missing")
		case errors.Is(err, token.ErrKeyTooShort):
			return errors.New("security policy: METHODIUS_REQUIRE_STORAGE_KEY=true but METHODIUS_STORAGE_KEY is too short (min 32 bytes)")
		default:
			return err
		}
	}

	if st.Kind == storage.KindMemory {
		return errors.New("security policy: METHODIUS_REQUIRE_STORAGE_KEY=true but storage kind is memory")
	}
	if len(st.Key) == 0 {
		return errors.New("security policy: storage key was not loaded")
	}
	return nil
}
