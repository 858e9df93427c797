package password

import (
	"os"
	"testing"
)

func TestPolicyFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"METHODIUS_PASSWORD_MIN_LEN", "METHODIUS_PASSWORD_MAX_LEN", "METHODIUS_PASSWORD_REJECT_VERY_WEAK"} {
		t.Setenv(k, "")
		_ = os.Unsetenv(k)
	}

	p, err := PolicyFromEnv()
	if err != nil {
		t.Fatalf("PolicyFromEnv error: %v", err)
	}
	if p != DefaultPolicy() {
		t.Fatalf("defaults mismatch: %+v", p)
	}
}

func TestPolicyFromEnv_Override(t *testing.T) {
	t.Setenv("METHODIUS_PASSWORD_MIN_LEN", "10")
	t.Setenv("METHODIUS_PASSWORD_MAX_LEN", "64")
	t.Setenv("METHODIUS_PASSWORD_REJECT_VERY_WEAK", "false")

	p, err := PolicyFromEnv()
	if err != nil {
		t.Fatalf("PolicyFromEnv error: %v", err)
	}
	if p.MinLength != 10 || p.MaxLength != 64 || p.RejectVeryWeak {
		t.Fatalf("override failed: %+v", p)
	}
}

func TestPolicyFromEnv_Invalid(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{name: "not a number", env: map[string]string{"METHODIUS_PASSWORD_MIN_LEN": "ten"}},
		{name: "zero", env: map[string]string{"METHODIUS_PASSWORD_MIN_LEN": "0"}},
		{name: "bad bool", env: map[string]string{"METHODIUS_PASSWORD_REJECT_VERY_WEAK": "sometimes"}},
		{name: "min above max", env: map[string]string{"METHODIUS_PASSWORD_MIN_LEN": "40", "METHODIUS_PASSWORD_MAX_LEN": "20"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := PolicyFromEnv(); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
