package management

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"methodius/cmd/security/password"
)

// Config tunes the management views.
type Config struct {
	// CacheSize is the number of list results kept; 0 disables caching.
	CacheSize int
	CacheTTL  time.Duration
	// Location is the zone calendar days and payroll months are computed in.
	Location *time.Location
	// Password bounds passwords set on employee login accounts.
	Password password.Policy
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		CacheSize: 64,
		CacheTTL:  30 * time.Second,
		Location:  time.Local,
		Password:  password.DefaultPolicy(),
	}
}

// LoadConfigFromEnv reads METHODIUS_MANAGEMENT_*, METHODIUS_TIMEZONE and the
// METHODIUS_PASSWORD_* policy.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := strings.TrimSpace(os.Getenv("METHODIUS_MANAGEMENT_CACHE_SIZE")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Config{}, fmt.Errorf("%w: METHODIUS_MANAGEMENT_CACHE_SIZE=%q", ErrConfig, v)
		}
		cfg.CacheSize = n
	}
	if v := strings.TrimSpace(os.Getenv("METHODIUS_MANAGEMENT_CACHE_TTL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("%w: METHODIUS_MANAGEMENT_CACHE_TTL=%q", ErrConfig, v)
		}
		cfg.CacheTTL = d
	}
	if v := strings.TrimSpace(os.Getenv("METHODIUS_TIMEZONE")); v != "" {
		loc, err := time.LoadLocation(v)
		if err != nil {
			return Config{}, fmt.Errorf("%w: METHODIUS_TIMEZONE: %v", ErrConfig, err)
		}
		cfg.Location = loc
	}
	policy, err := password.PolicyFromEnv()
	if err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	cfg.Password = policy
	return cfg, nil
}
