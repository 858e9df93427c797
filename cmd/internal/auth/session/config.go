package session

import (
	"os"
	"time"
)

// Config defines runtime configuration for the session store.
type Config struct {
	// RequestTimeout bounds the "who am I" lookup during CheckAuth.
	// A timeout is a normal failure and logs the session out.
	RequestTimeout time.Duration

	// ProfileTimeout bounds the linked-profile lookup.
	ProfileTimeout time.Duration
}

// DefaultConfig returns the backend client's fixed 10s budget for both lookups.
func DefaultConfig() Config {
	return Config{
		RequestTimeout: 10 * time.Second,
		ProfileTimeout: 10 * time.Second,
	}
}

// LoadConfigFromEnv loads session configuration from environment variables.
//
// Optional (durations must be valid Go duration strings):
//   - METHODIUS_SESSION_REQUEST_TIMEOUT
//   - METHODIUS_SESSION_PROFILE_TIMEOUT
//
// Returns ErrConfig if configuration is invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := os.Getenv("METHODIUS_SESSION_REQUEST_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.RequestTimeout = d
	}

	if v := os.Getenv("METHODIUS_SESSION_PROFILE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.ProfileTimeout = d
	}

	return cfg, nil
}
