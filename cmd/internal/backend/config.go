package backend

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config configures the backend client.
type Config struct {
	// BaseURL is the backend origin, e.g. http://localhost:1337.
	BaseURL string

	// Timeout bounds every request. A timeout is a normal failure.
	Timeout time.Duration

	// MaxResponseBytes caps decoded response bodies.
	MaxResponseBytes int64

	// PageSize is used by ListAll when walking paginated collections.
	PageSize int
}

// DefaultConfig returns the console defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:          "http://localhost:1337",
		Timeout:          10 * time.Second,
		MaxResponseBytes: 8 << 20,
		PageSize:         100,
	}
}

// LoadConfigFromEnv loads backend configuration from environment variables.
//
// Optional:
//   - METHODIUS_BACKEND_URL
//   - METHODIUS_BACKEND_TIMEOUT
//   - METHODIUS_BACKEND_MAX_RESPONSE_BYTES
//   - METHODIUS_BACKEND_PAGE_SIZE (1..100)
//
// Returns ErrConfig if configuration is invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := strings.TrimSpace(os.Getenv("METHODIUS_BACKEND_URL")); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("METHODIUS_BACKEND_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.Timeout = d
	}
	if v := os.Getenv("METHODIUS_BACKEND_MAX_RESPONSE_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return Config{}, ErrConfig
		}
		cfg.MaxResponseBytes = n
	}
	if v := os.Getenv("METHODIUS_BACKEND_PAGE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			return Config{}, ErrConfig
		}
		cfg.PageSize = n
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrConfig
	}
	return nil
}
