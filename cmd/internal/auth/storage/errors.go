package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrSealed is returned when persisted data is sealed but no key is configured.
	ErrSealed = errors.New("storage sealed")

	// ErrKeyMismatch is returned when sealed data cannot be opened with the configured key.
	ErrKeyMismatch = errors.New("storage key mismatch")

	// ErrConfig is returned for invalid storage configuration.
	ErrConfig = errors.New("invalid storage config")

	// ErrClosed is returned when a closed storage is used.
	ErrClosed = errors.New("storage closed")
)

// OpError wraps a backend failure with the operation and key involved.
type OpError struct {
	Op  string
	Key string
	Err error
}

func (e *OpError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }
