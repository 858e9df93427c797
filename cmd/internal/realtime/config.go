package realtime

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultSendQueueSize = 8
	defaultWriteTimeout  = 5 * time.Second
	defaultAllowedOrigin = "http://localhost,http://127.0.0.1"
)

// Config controls the session feed socket.
type Config struct {
	// DevInsecure disables websocket.Accept's own origin verification.
	DevInsecure bool

	// OriginRequired rejects upgrades without an Origin header.
	OriginRequired bool
	AllowedOrigins []string

	WriteTimeout  time.Duration
	SendQueueSize int

	HeartbeatEvery   time.Duration
	HeartbeatTimeout time.Duration

	RateEvents int
	RateWindow time.Duration
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		OriginRequired:   true,
		AllowedOrigins:   splitCSV(defaultAllowedOrigin),
		WriteTimeout:     defaultWriteTimeout,
		SendQueueSize:    defaultSendQueueSize,
		HeartbeatEvery:   heartbeatInterval,
		HeartbeatTimeout: heartbeatTimeout,
		RateEvents:       rateLimitEvents,
		RateWindow:       rateLimitWindow,
	}
}

// LoadConfigFromEnv reads METHODIUS_WS_* with DefaultConfig fallbacks.
func LoadConfigFromEnv() Config {
	def := DefaultConfig()
	cfg := Config{
		DevInsecure:      envBool("METHODIUS_WS_DEV_INSECURE", false),
		OriginRequired:   envBool("METHODIUS_WS_ORIGIN_REQUIRED", def.OriginRequired),
		AllowedOrigins:   def.AllowedOrigins,
		WriteTimeout:     envDuration("METHODIUS_WS_WRITE_TIMEOUT", def.WriteTimeout),
		SendQueueSize:    envInt("METHODIUS_WS_SEND_QUEUE", def.SendQueueSize),
		HeartbeatEvery:   envDuration("METHODIUS_WS_HEARTBEAT_INTERVAL", def.HeartbeatEvery),
		HeartbeatTimeout: envDuration("METHODIUS_WS_HEARTBEAT_TIMEOUT", def.HeartbeatTimeout),
		RateEvents:       envInt("METHODIUS_WS_RATE_EVENTS", def.RateEvents),
		RateWindow:       envDuration("METHODIUS_WS_RATE_WINDOW", def.RateWindow),
	}
	if v := strings.TrimSpace(os.Getenv("METHODIUS_WS_ALLOWED_ORIGINS")); v != "" {
		cfg.AllowedOrigins = splitCSV(v)
	}
	return cfg
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

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
