package app

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the app-wide logger type (slog).
type Logger = *slog.Logger

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds the process logger and installs it as slog's default.
//
// Records go to stdout and, when cfg.LogFile is set, to a size-rotated file.
// The returned func closes the file; it is safe to call when there is none.
func NewLogger(cfg Config) (*slog.Logger, func() error) {
	out, closeOut := logOutput(cfg)
	log := slog.New(newLogHandler(out, cfg))
	slog.SetDefault(log)
	return log, closeOut
}

func logOutput(cfg Config) (io.Writer, func() error) {
	if cfg.LogFile == "" {
		return os.Stdout, func() error { return nil }
	}
	rot := &lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAgeDays,
		Compress:   true,
	}
	return io.MultiWriter(os.Stdout, rot), rot.Close
}

func newLogHandler(w io.Writer, cfg Config) slog.Handler {
	opts := &slog.HandlerOptions{
		Level:     parseLogLevel(cfg.LogLevel),
		AddSource: true,
	}
	if cfg.LogFormat == "pretty" {
		color := cfg.LogFile == "" && os.Getenv("NO_COLOR") == ""
		return newPrettyHandler(w, opts, color)
	}
	return slog.NewJSONHandler(w, opts)
}
