package app

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want slog.Level
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "INFO", want: slog.LevelInfo},
		{in: "warn", want: slog.LevelWarn},
		{in: "warning", want: slog.LevelWarn},
		{in: " error ", want: slog.LevelError},
		{in: "unknown", want: slog.LevelInfo},
		{in: "", want: slog.LevelInfo},
	}

	for _, tc := range cases {
		got := parseLogLevel(tc.in)
		if got != tc.want {
			t.Fatalf("parseLogLevel(%q)=%v want=%v", tc.in, got, tc.want)
		}
	}
}

func TestNewLogHandler_Format(t *testing.T) {
	t.Parallel()

	var jsonBuf bytes.Buffer
	slog.New(newLogHandler(&jsonBuf, Config{LogLevel: "info"})).Info("session.login", "state", "authenticated")

	var rec map[string]any
	if err := json.Unmarshal(jsonBuf.Bytes(), &rec); err != nil {
		t.Fatalf("json handler output not JSON: %v (%q)", err, jsonBuf.String())
	}
	if rec["msg"] != "session.login" || rec["state"] != "authenticated" {
		t.Fatalf("unexpected record: %v", rec)
	}

	var prettyBuf bytes.Buffer
	slog.New(newLogHandler(&prettyBuf, Config{LogLevel: "warn", LogFormat: "pretty", LogFile: "x.log"})).Info("dropped")
	if prettyBuf.Len() != 0 {
		t.Fatalf("info must be filtered at warn level: %q", prettyBuf.String())
	}
}

func TestLogOutput_RotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "methodius.log")
	w, closeOut := logOutput(Config{LogFile: path, LogMaxSizeMB: 1})
	if _, err := w.Write([]byte("line\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := closeOut(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if matches, _ := filepath.Glob(path); len(matches) != 1 {
		t.Fatalf("log file not created")
	}
}
