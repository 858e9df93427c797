package authapi

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config controls the console login surface.
type Config struct {
	// TrustProxy makes X-Forwarded-For / X-Real-IP authoritative for client IPs.
	TrustProxy   bool
	MaxBodyBytes int64

	// Failed-login throttles (sliding windows).
	LoginIPMax            int
	LoginIPWindow         time.Duration
	LoginIdentifierMax    int
	LoginIdentifierWindow time.Duration
}

// LoadConfigFromEnv loads auth config from environment variables with safe defaults.
func LoadConfigFromEnv() Config {
	cfg := Config{
		TrustProxy:            envBool("METHODIUS_AUTH_TRUST_PROXY", false),
		MaxBodyBytes:          envInt64("METHODIUS_AUTH_MAX_BODY_BYTES", 64<<10),
		LoginIPMax:            envInt("METHODIUS_AUTH_LOGIN_IP_MAX", 20),
		LoginIPWindow:         envDuration("METHODIUS_AUTH_LOGIN_IP_WINDOW", 5*time.Minute),
		LoginIdentifierMax:    envInt("METHODIUS_AUTH_LOGIN_IDENTIFIER_MAX", 5),
		LoginIdentifierWindow: envDuration("METHODIUS_AUTH_LOGIN_IDENTIFIER_WINDOW", 15*time.Minute),
	}

	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 64 << 10
	}
	return cfg
}

// DefaultConfig is LoadConfigFromEnv with an empty environment.
func DefaultConfig() Config {
	return Config{
		MaxBodyBytes:          64 << 10,
		LoginIPMax:            20,
		LoginIPWindow:         5 * time.Minute,
		LoginIdentifierMax:    5,
		LoginIdentifierWindow: 15 * time.Minute,
	}
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
