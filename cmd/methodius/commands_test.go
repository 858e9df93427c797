package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"methodius/cmd/internal/auth/session"
	"methodius/cmd/internal/auth/storage"
)

func TestVersionCmd(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.HasPrefix(out.String(), "methodius dev") {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestLogoutCmd_ClearsPersistedCredentials(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	t.Setenv("METHODIUS_CONFIG_FILE", "")
	t.Setenv("METHODIUS_STORAGE_KIND", "file")
	t.Setenv("METHODIUS_STORAGE_PATH", path)
	t.Setenv("METHODIUS_STORAGE_KEY", "")

	st, err := storage.NewFile(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := st.Set(session.KeyToken, "tok"); err != nil {
		t.Fatal(err)
	}
	if err := st.Set(session.KeyAccountID, "7"); err != nil {
		t.Fatal(err)
	}

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"logout"})
	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}

	for _, key := range []string{session.KeyToken, session.KeyAccountID} {
		if _, ok, err := st.Get(key); err != nil || ok {
			t.Fatalf("%s still present (ok=%v err=%v)", key, ok, err)
		}
	}
	if strings.TrimSpace(out.String()) != "session cleared" {
		t.Fatalf("unexpected output %q", out.String())
	}
}
