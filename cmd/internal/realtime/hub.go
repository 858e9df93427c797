package realtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"methodius/cmd/internal/auth/session"
)

// Source is the session store as the feed sees it.
type Source interface {
	Snapshot() session.Snapshot
	Subscribe() (<-chan session.Snapshot, func())
}

// Hub holds one store subscription and fans every snapshot out to the
// connected clients.
//
// Join and Leave are safe under a concurrent broadcast. Broadcast never
// blocks: a client whose queue is full misses that frame, and since every
// frame carries the whole session the next one repairs it.
type Hub struct {
	log *slog.Logger
	src Source

	mu      sync.RWMutex
	members map[string]*Client

	now func() time.Time
}

// NewHub constructs a Hub over src.
func NewHub(log *slog.Logger, src Source) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		log:     log,
		src:     src,
		members: make(map[string]*Client),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Run forwards store changes until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	ch, cancel := h.src.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-ch:
			h.Broadcast(sessionEnvelope(snap, h.now()))
		}
	}
}

// Current returns the session envelope for the store's present state.
func (h *Hub) Current() Envelope {
	return sessionEnvelope(h.src.Snapshot(), h.now())
}

// Join adds a client.
func (h *Hub) Join(client *Client) {
	if h == nil || client == nil || client.ConnID == "" {
		return
	}
	h.mu.Lock()
	h.members[client.ConnID] = client
	n := len(h.members)
	h.mu.Unlock()

	h.log.Debug("feed.member.join", "conn_id", client.ConnID, "members", n)
}

// Leave removes a client and signals its shutdown.
func (h *Hub) Leave(connID string) {
	if h == nil || connID == "" {
		return
	}
	h.mu.Lock()
	cl := h.members[connID]
	delete(h.members, connID)
	h.mu.Unlock()

	// Close after removal so no broadcaster still holds the client.
	if cl != nil {
		cl.Close()
		h.log.Debug("feed.member.leave", "conn_id", connID)
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.members)
}

// Broadcast queues env on every live client without blocking.
func (h *Hub) Broadcast(env Envelope) {
	if h == nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, m := range h.members {
		select {
		case <-m.Done():
			continue
		default:
		}
		select {
		case m.Send <- env:
		default:
			h.log.Debug("feed.broadcast.drop", "conn_id", m.ConnID)
		}
	}
}
