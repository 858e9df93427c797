package password

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Validate checks pw against the policy. Length counts runes.
func (p Policy) Validate(pw string) error {
	n := utf8.RuneCountInString(pw)
	if n < p.MinLength {
		return ErrPasswordTooShort
	}
	if n > p.MaxLength {
		return ErrPasswordTooLong
	}
	if p.RejectVeryWeak && looksVeryWeak(pw) {
		return ErrWeakPassword
	}
	return nil
}

// Message describes a Validate error as a field message, e.g. "must be at least 6 characters".
func (p Policy) Message(err error) string {
	switch err {
	case ErrPasswordTooShort:
		return fmt.Sprintf("must be at least %d characters", p.MinLength)
	case ErrPasswordTooLong:
		return fmt.Sprintf("must be at most %d characters", p.MaxLength)
	case ErrWeakPassword:
		return "is too easy to guess"
	default:
		return "is not acceptable"
	}
}

// looksVeryWeak only catches the obvious cases; it is not a strength estimator.
func looksVeryWeak(pw string) bool {
	s := strings.TrimSpace(pw)
	if s == "" {
		return true
	}

	allSame := true
	var first rune
	for i, r := range s {
		if i == 0 {
			first = r
			continue
		}
		if r != first {
			allSame = false
			break
		}
	}
	if allSame {
		return true
	}

	// PIN-like.
	onlyDigits := true
	for _, r := range s {
		if !unicode.IsDigit(r) {
			onlyDigits = false
			break
		}
	}
	if onlyDigits && utf8.RuneCountInString(s) < 12 {
		return true
	}

	switch strings.ToLower(s) {
	case "password", "password1", "password123", "qwerty", "qwerty123", "letmein", "welcome", "welcome1", "changeme", "admin123", "company", "company1":
		return true
	}

	return false
}
