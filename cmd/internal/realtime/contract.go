package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"methodius/cmd/internal/auth/session"
)

// Wire protocol of the session feed.
const (
	Version     = "v1"
	Subprotocol = "methodius.session.v1"
)

// Envelope types.
const (
	// TypeHello greets a new connection (server -> client).
	TypeHello = "hello"
	// TypeSession carries the current session view (server -> client).
	TypeSession = "session"
	// TypeSessionFetch asks for the current session view (client -> server).
	TypeSessionFetch = "session_fetch"
	// TypeError reports a rejected client frame (server -> client).
	TypeError = "error"
)

// Envelope is the wire wrapper of every frame.
type Envelope struct {
	V       string          `json:"v"`
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	TS      time.Time       `json:"ts,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`

	// last marks the frame after which the server closes the socket.
	last bool
}

// Validate checks the fields every client frame must carry.
func (e Envelope) Validate() error {
	if strings.TrimSpace(e.V) == "" {
		return errors.New("missing field: v")
	}
	if e.V != Version {
		return fmt.Errorf("unsupported protocol version: %q", e.V)
	}
	if strings.TrimSpace(e.Type) == "" {
		return errors.New("missing field: type")
	}
	return nil
}

// HelloPayload identifies the connection.
type HelloPayload struct {
	ConnID string `json:"conn_id"`
}

// SessionPayload is the session as the console shows it. The bearer token is
// never part of it.
type SessionPayload struct {
	State          session.State    `json:"state"`
	Account        *session.Account `json:"account,omitempty"`
	Profile        *session.Profile `json:"profile,omitempty"`
	DisplayName    string           `json:"display_name,omitempty"`
	Privileged     bool             `json:"privileged"`
	ProfilePending bool             `json:"profile_pending"`
}

// ErrorPayload describes a rejected frame.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func sessionPayload(snap session.Snapshot) SessionPayload {
	return SessionPayload{
		State:          snap.State,
		Account:        snap.Account,
		Profile:        snap.Profile,
		DisplayName:    snap.DisplayName(),
		Privileged:     snap.IsPrivileged(),
		ProfilePending: snap.ProfilePending,
	}
}

func newEnvelope(typ string, payload any, ts time.Time) Envelope {
	raw, _ := json.Marshal(payload)
	id, _ := NewEnvelopeID(ts)
	return Envelope{
		V:       Version,
		Type:    typ,
		ID:      id,
		TS:      ts,
		Payload: raw,
	}
}

// sessionEnvelope wraps snap. An ended session is the last frame of a feed.
func sessionEnvelope(snap session.Snapshot, ts time.Time) Envelope {
	env := newEnvelope(TypeSession, sessionPayload(snap), ts)
	env.last = snap.State == session.StateUnauthenticated
	return env
}
