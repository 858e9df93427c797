package realtime

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"methodius/cmd/internal/auth/session"
)

func TestHub_BroadcastNeverBlocks(t *testing.T) {
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)), newFakeSource(authenticated()))

	slow := NewClient("slow", 1)
	fast := NewClient("fast", 4)
	gone := NewClient("gone", 4)
	hub.Join(slow)
	hub.Join(fast)
	hub.Join(gone)
	gone.Close()

	now := time.Now()
	for i := 0; i < 3; i++ {
		hub.Broadcast(sessionEnvelope(authenticated(), now))
	}

	if len(slow.Send) != 1 || len(fast.Send) != 3 || len(gone.Send) != 0 {
		t.Fatalf("queues: slow=%d fast=%d gone=%d", len(slow.Send), len(fast.Send), len(gone.Send))
	}

	hub.Leave("fast")
	select {
	case <-fast.Done():
	default:
		t.Fatalf("Leave must close the client")
	}
	if hub.Count() != 2 {
		t.Fatalf("count=%d", hub.Count())
	}
}

func TestSessionEnvelope_LastOnlyWhenEnded(t *testing.T) {
	now := time.Now()
	if sessionEnvelope(authenticated(), now).last {
		t.Fatalf("authenticated frame must not end the feed")
	}
	if sessionEnvelope(session.Snapshot{State: session.StateResolving}, now).last {
		t.Fatalf("resolving frame must not end the feed")
	}
	if !sessionEnvelope(session.Snapshot{State: session.StateUnauthenticated}, now).last {
		t.Fatalf("ended session must end the feed")
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Second)
	t0 := time.Unix(1000, 0)
	if !rl.Allow(t0) || !rl.Allow(t0.Add(100*time.Millisecond)) {
		t.Fatalf("first two frames must pass")
	}
	if rl.Allow(t0.Add(200 * time.Millisecond)) {
		t.Fatalf("third frame in window must be refused")
	}
	if !rl.Allow(t0.Add(1500 * time.Millisecond)) {
		t.Fatalf("window must slide")
	}
}

func TestDeriveOriginPatterns(t *testing.T) {
	got := deriveOriginPatterns([]string{"http://localhost:3000", "https://Console.Example.com", "localhost", "*"})
	want := []string{"console.example.com", "localhost"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("got %v want %v", got, want)
	}
}
