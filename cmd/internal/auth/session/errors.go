package session

import "errors"

var (
	// ErrEmptyToken is returned by Login when the bearer token is blank.
	ErrEmptyToken = errors.New("empty token")

	// ErrInvalidAccount reports an account without a document id, from Login
	// or from the "who am I" lookup.
	ErrInvalidAccount = errors.New("invalid account")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")
)
