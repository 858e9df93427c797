package realtime

import (
	"time"

	"methodius/cmd/identity/ids"
)

// NewConnID returns a ULID naming one websocket connection in logs.
func NewConnID(now time.Time) (string, error) {
	return ids.NewULID(now)
}

// NewEnvelopeID returns a ULID for an outgoing envelope. ULIDs sort by time,
// so clients can drop out-of-order session frames.
func NewEnvelopeID(now time.Time) (string, error) {
	return ids.NewULID(now)
}
