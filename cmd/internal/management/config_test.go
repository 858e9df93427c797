package management

import (
	"errors"
	"testing"
	"time"
)

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("METHODIUS_MANAGEMENT_CACHE_SIZE", "0")
	t.Setenv("METHODIUS_MANAGEMENT_CACHE_TTL", "5s")
	t.Setenv("METHODIUS_TIMEZONE", "Europe/Athens")
	t.Setenv("METHODIUS_PASSWORD_MIN_LEN", "10")

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadConfigFromEnv: %v", err)
	}
	if cfg.CacheSize != 0 || cfg.CacheTTL != 5*time.Second {
		t.Fatalf("unexpected cache config: %+v", cfg)
	}
	if cfg.Location.String() != "Europe/Athens" {
		t.Fatalf("location=%s", cfg.Location)
	}
	if cfg.Password.MinLength != 10 {
		t.Fatalf("password policy not loaded: %+v", cfg.Password)
	}
}

func TestLoadConfigFromEnv_Invalid(t *testing.T) {
	cases := map[string]string{
		"METHODIUS_MANAGEMENT_CACHE_SIZE": "-1",
		"METHODIUS_MANAGEMENT_CACHE_TTL":  "soon",
		"METHODIUS_TIMEZONE":              "Mars/Olympus",
		"METHODIUS_PASSWORD_MIN_LEN":      "zero",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			if _, err := LoadConfigFromEnv(); !errors.Is(err, ErrConfig) {
				t.Fatalf("expected ErrConfig, got %v", err)
			}
		})
	}
}

func TestCalendarDay(t *testing.T) {
	athens, err := time.LoadLocation("Europe/Athens")
	if err != nil {
		t.Skipf("no tzdata: %v", err)
	}
	cases := []struct {
		in   string
		loc  *time.Location
		want string
		ok   bool
	}{
		{"2025-05-14", time.UTC, "2025-05-14", true},
		{"2025-05-14T23:30:00Z", time.UTC, "2025-05-14", true},
		{"2025-05-14T23:30:00Z", athens, "2025-05-15", true},
		{"2025-05-14T10:00:00.000Z", time.UTC, "2025-05-14", true},
		{"", time.UTC, "", false},
		{"14/05/2025", time.UTC, "", false},
	}
	for _, tc := range cases {
		got, ok := calendarDay(tc.in, tc.loc)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("calendarDay(%q) = %q, %v; want %q, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
