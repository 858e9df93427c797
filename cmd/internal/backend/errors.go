package backend

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrUnavailable  = errors.New("backend unavailable")
	ErrConfig       = errors.New("invalid backend config")
)

// Error is a failed backend call.
//
// Status is 0 for transport failures (no response, timeout). Message is the
// backend's own error message when it sent one, otherwise a generic message
// for the operation ("failed to fetch employees").
type Error struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s (status %d)", e.Op, e.Message, e.Status)
}

// Unwrap maps the HTTP status to a sentinel so callers can use errors.Is.
func (e *Error) Unwrap() error {
	if e.Err != nil && e.Status == 0 {
		return errors.Join(ErrUnavailable, e.Err)
	}
	switch {
	case e.Status == http.StatusUnauthorized:
		return ErrUnauthorized
	case e.Status == http.StatusForbidden:
		return ErrForbidden
	case e.Status == http.StatusNotFound:
		return ErrNotFound
	case e.Status >= 400 && e.Status < 500:
		return ErrBadRequest
	default:
		return ErrUnavailable
	}
}

// IsAuthFailure reports a rejected bearer token (401). Call sites use it to
// trigger logout. A 403 means the token is valid but its role lacks access.
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// Message returns the user-facing message carried by err, or fallback.
func Message(err error, fallback string) string {
	var be *Error
	if errors.As(err, &be) && be.Message != "" {
		return be.Message
	}
	return fallback
}
