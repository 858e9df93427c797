package app

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestStripANSI(t *testing.T) {
	t.Parallel()

	in := ansiBlue + "INFO" + ansiReset + " plain " + ansiRed + "ERR" + ansiReset
	if got := stripANSI(in); got != "INFO plain ERR" {
		t.Fatalf("stripANSI()=%q", got)
	}
}

func TestPrettyHandler_Line(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(newPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}, false))
	log.With("request_id", "01J").WithGroup("gate").Info("gate.redirect", "path", "/my path", "decision", "redirect", "status", 303)

	line := strings.TrimSpace(buf.String())
	for _, want := range []string{
		"INFO ",
		"gate.redirect",
		"request_id=01J",
		`gate.path="/my path"`,
		"gate.decision=redirect",
		"gate.status=303",
	} {
		if !strings.Contains(line, want) {
			t.Fatalf("missing %q in %q", want, line)
		}
	}
	if strings.Contains(line, "\x1b[") {
		t.Fatalf("colorless handler emitted ANSI: %q", line)
	}
}

func TestPrettyHandler_ColorsKnownKeys(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(newPrettyHandler(&buf, nil, true))
	log.Error("http.request", "status", 502, "state", "unauthenticated")

	out := buf.String()
	if !strings.Contains(out, ansiRed+"502"+ansiReset) {
		t.Fatalf("5xx status not red: %q", out)
	}
	if !strings.Contains(out, ansiYellow+"unauthenticated"+ansiReset) {
		t.Fatalf("state not colored: %q", out)
	}
	if !strings.Contains(stripANSI(out), "ERROR") {
		t.Fatalf("level tag missing: %q", out)
	}
}

func TestLevelTag(t *testing.T) {
	t.Parallel()

	cases := map[slog.Level]string{
		slog.LevelDebug: "DEBUG",
		slog.LevelInfo:  "INFO ",
		slog.LevelWarn:  "WARN ",
		slog.LevelError: "ERROR",
	}
	for lvl, want := range cases {
		if got := levelTag(lvl, false); got != want {
			t.Fatalf("levelTag(%v)=%q want %q", lvl, got, want)
		}
	}
}
