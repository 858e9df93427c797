package password

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Policy bounds the passwords the console accepts for employee accounts.
type Policy struct {
	MinLength int
	MaxLength int
	// If true, reject trivially guessable passwords as well.
	RejectVeryWeak bool
}

// DefaultPolicy mirrors the backend's own bounds and rejects the most common
// trivial passwords.
func DefaultPolicy() Policy {
	return Policy{
		MinLength:      6,
		MaxLength:      200,
		RejectVeryWeak: true,
	}
}

// PolicyFromEnv loads the policy from environment variables.
//
// Env surface:
//   - METHODIUS_PASSWORD_MIN_LEN
//   - METHODIUS_PASSWORD_MAX_LEN
//   - METHODIUS_PASSWORD_REJECT_VERY_WEAK (true/false)
func PolicyFromEnv() (Policy, error) {
	p := DefaultPolicy()

	if v, ok := os.LookupEnv("METHODIUS_PASSWORD_MIN_LEN"); ok {
		n, err := atoiInRange(v, 1, 1024)
		if err != nil {
			return Policy{}, fmt.Errorf("METHODIUS_PASSWORD_MIN_LEN: %w", err)
		}
		p.MinLength = n
	}

	if v, ok := os.LookupEnv("METHODIUS_PASSWORD_MAX_LEN"); ok {
		n, err := atoiInRange(v, 1, 4096)
		if err != nil {
			return Policy{}, fmt.Errorf("METHODIUS_PASSWORD_MAX_LEN: %w", err)
		}
		p.MaxLength = n
	}

	if v, ok := os.LookupEnv("METHODIUS_PASSWORD_REJECT_VERY_WEAK"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return Policy{}, fmt.Errorf("METHODIUS_PASSWORD_REJECT_VERY_WEAK: %w", err)
		}
		p.RejectVeryWeak = b
	}

	if p.MinLength > p.MaxLength {
		return Policy{}, fmt.Errorf("password policy: min length %d exceeds max length %d", p.MinLength, p.MaxLength)
	}
	return p, nil
}

func atoiInRange(s string, lo, hi int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if n < lo || n > hi {
		return 0, fmt.Errorf("out of range [%d..%d]", lo, hi)
	}
	return n, nil
}
