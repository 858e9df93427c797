package app

import (
	"strings"
	"testing"

	"methodius/cmd/internal/auth/storage"
	"methodius/cmd/security/token"
)

func TestValidateSecurityConfig(t *testing.T) {
	key := strings.Repeat("k", storage.MinKeyBytes)

	cases := []struct {
		name    string
		require bool
		env     string
		st      storage.Config
		wantErr string
	}{
		{name: "policy off", require: false, env: "", st: storage.Config{Kind: storage.KindMemory}},
		{name: "missing key", require: true, env: "", st: storage.Config{Kind: storage.KindFile}, wantErr: "missing"},
		{name: "short key", require: true, env: "short", st: storage.Config{Kind: storage.KindFile}, wantErr: "too short"},
		{name: "memory refused", require: true, env: key, st: storage.Config{Kind: storage.KindMemory, Key: []byte(key)}, wantErr: "memory"},
		{name: "sealed file", require: true, env: key, st: storage.Config{Kind: storage.KindFile, Key: []byte(key)}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(token.StorageEnvKey, tc.env)
			err := ValidateSecurityConfig(Config{RequireStorageKey: tc.require}, tc.st)
			switch {
			case tc.wantErr == "" && err != nil:
				t.Fatalf("unexpected error: %v", err)
			case tc.wantErr != "" && (err == nil || !strings.Contains(err.Error(), tc.wantErr)):
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}
