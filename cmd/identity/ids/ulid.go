// Package ids generates sortable identifiers for request ids and feed envelopes.
package ids

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// NewULID returns a new ULID string (26 chars) stamped with now.
// A zero now means the current UTC time.
func NewULID(now time.Time) (string, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}

	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// RequestID returns a ULID for the current time, or an empty string when
// entropy is unavailable. Request ids are best effort.
func RequestID() string {
	id, err := NewULID(time.Now().UTC())
	if err != nil {
		return ""
	}
	return id
}

// Time extracts the timestamp embedded in a ULID string.
func Time(id string) (time.Time, bool) {
	u, err := ulid.ParseStrict(id)
	if err != nil {
		return time.Time{}, false
	}
	return ulid.Time(u.Time()).UTC(), true
}
