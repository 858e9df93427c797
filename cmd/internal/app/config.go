package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigFileEnv names the optional YAML overlay.
const ConfigFileEnv = "METHODIUS_CONFIG_FILE"

const envPrefix = "METHODIUS_"

// ErrConfigFile is returned when the YAML overlay cannot be used.
var ErrConfigFile = errors.New("app: invalid config file")

// Config contains the process-level runtime configuration.
// Subsystems (session, storage, backend, auth, management, realtime) load their own.
type Config struct {
	HTTPAddr string

	LogLevel      string
	LogFormat     string // json|pretty
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	MaxHeaderBytes    int

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// If true /readyz returns 503 unless the audit database is configured and reachable.
	ReadinessRequireDB bool

	// If true METHODIUS_STORAGE_KEY must be set (>= 32 bytes) so credentials are sealed at rest.
	RequireStorageKey bool

	// EnforceRoles switches the gate from ignoring roles to admitting role-scoped
	// subtrees only for privileged sessions.
	EnforceRoles bool

	CORSAllowedOrigins   []string
	CORSAllowCredentials bool
	CORSMaxAgeSeconds    int

	Compression bool
}

// LoadConfig applies the YAML overlay named by METHODIUS_CONFIG_FILE, then
// loads Config from environment variables with defaults.
//
// The overlay is a flat mapping whose keys are environment variable names with
// or without the METHODIUS_ prefix, in any case:
//
//	backend_url: http://localhost:1337
//	storage_kind: bolt
//
// Values already present in the environment win over the file. Because every
// subsystem reads its own variables, the overlay is applied to the process
// environment.
func LoadConfig() (Config, error) {
	if path := EnvString(ConfigFileEnv, ""); path != "" {
		if err := applyConfigFile(path); err != nil {
			return Config{}, err
		}
	}

	return Config{
		HTTPAddr: EnvString("METHODIUS_HTTP_ADDR", "127.0.0.1:8080"),

		LogLevel:      EnvString("METHODIUS_LOG_LEVEL", "info"),
		LogFormat:     strings.ToLower(EnvString("METHODIUS_LOG_FORMAT", "json")),
		LogFile:       EnvString("METHODIUS_LOG_FILE", ""),
		LogMaxSizeMB:  EnvInt("METHODIUS_LOG_MAX_SIZE_MB", 50),
		LogMaxBackups: EnvInt("METHODIUS_LOG_MAX_BACKUPS", 5),
		LogMaxAgeDays: EnvInt("METHODIUS_LOG_MAX_AGE_DAYS", 14),

		ReadHeaderTimeout: EnvDuration("METHODIUS_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("METHODIUS_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("METHODIUS_HTTP_WRITE_TIMEOUT", 30*time.Second),
		IdleTimeout:       EnvDuration("METHODIUS_HTTP_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout:   EnvDuration("METHODIUS_HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxHeaderBytes:    EnvInt("METHODIUS_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL: EnvString("METHODIUS_DATABASE_URL", ""),
		DBMaxConns:  EnvInt32("METHODIUS_DB_MAX_CONNS", 4),
		DBMinConns:  EnvInt32("METHODIUS_DB_MIN_CONNS", 0),

		ReadinessRequireDB: EnvBool("METHODIUS_READINESS_REQUIRE_DB", false),
		RequireStorageKey:  EnvBool("METHODIUS_REQUIRE_STORAGE_KEY", false),
		EnforceRoles:       EnvBool("METHODIUS_ENFORCE_ROLES", false),

		CORSAllowedOrigins:   EnvList("METHODIUS_CORS_ALLOWED_ORIGINS"),
		CORSAllowCredentials: EnvBool("METHODIUS_CORS_ALLOW_CREDENTIALS", false),
		CORSMaxAgeSeconds:    EnvInt("METHODIUS_CORS_MAX_AGE_SECONDS", 600),

		Compression: EnvBool("METHODIUS_HTTP_COMPRESSION", true),
	}, nil
}

func applyConfigFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConfigFile, err)
	}

	var values map[string]any
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrConfigFile, path, err)
	}

	for k, v := range values {
		key := overlayKey(k)
		if key == "" {
			return fmt.Errorf("%w: %s: empty key", ErrConfigFile, path)
		}

		var val string
		switch x := v.(type) {
		case nil:
			continue
		case []any:
			val = joinScalars(x)
		case map[string]any:
			return fmt.Errorf("%w: %s: %s must be a scalar", ErrConfigFile, path, k)
		default:
			val = fmt.Sprint(x)
		}

		if _, set := os.LookupEnv(key); set {
			continue
		}
		if err := os.Setenv(key, val); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrConfigFile, key, err)
		}
	}
	return nil
}

func overlayKey(k string) string {
	k = strings.ToUpper(strings.TrimSpace(k))
	k = strings.NewReplacer("-", "_", ".", "_").Replace(k)
	if k == "" {
		return ""
	}
	if !strings.HasPrefix(k, envPrefix) {
		k = envPrefix + k
	}
	return k
}

func joinScalars(list []any) string {
	parts := make([]string, 0, len(list))
	for _, item := range list {
		parts = append(parts, fmt.Sprint(item))
	}
	return strings.Join(parts, ",")
}
