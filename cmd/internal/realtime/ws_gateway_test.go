package realtime

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"

	"methodius/cmd/internal/auth/session"
)

// fakeSource is a session store stand-in that publishes on demand.
type fakeSource struct {
	mu         sync.Mutex
	cur        session.Snapshot
	ch         chan session.Snapshot
	subscribed chan struct{}
	once       sync.Once
}

func newFakeSource(snap session.Snapshot) *fakeSource {
	return &fakeSource{cur: snap, ch: make(chan session.Snapshot, 1), subscribed: make(chan struct{})}
}

func (f *fakeSource) Snapshot() session.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cur
}

func (f *fakeSource) Subscribe() (<-chan session.Snapshot, func()) {
	f.once.Do(func() { close(f.subscribed) })
	return f.ch, func() {}
}

func (f *fakeSource) publish(snap session.Snapshot) {
	f.mu.Lock()
	f.cur = snap
	f.mu.Unlock()
	f.ch <- snap
}

func authenticated() session.Snapshot {
	return session.Snapshot{
		State:          session.StateAuthenticated,
		Token:          "secret-token",
		Account:        &session.Account{ID: 1, DocumentID: "u1", Username: "maria"},
		ProfilePending: true,
	}
}

func startFeed(t *testing.T, src *fakeSource, mutate func(*Config)) *httptest.Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	hub := NewHub(log, src)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	select {
	case <-src.subscribed:
	case <-time.After(2 * time.Second):
		t.Fatalf("hub never subscribed")
	}

	srv := httptest.NewServer(NewWSGateway(log, hub, cfg))
	t.Cleanup(srv.Close)
	return srv
}

func dialFeed(t *testing.T, ctx context.Context, srvURL, origin string, subprotocols ...string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	h := http.Header{}
	if origin != "" {
		h.Set("Origin", origin)
	}
	return websocket.Dial(ctx, "ws"+strings.TrimPrefix(srvURL, "http"), &websocket.DialOptions{
		Subprotocols: subprotocols,
		HTTPHeader:   h,
	})
}

func readFrame(t *testing.T, ctx context.Context, c *websocket.Conn) Envelope {
	t.Helper()
	_, data, err := c.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return env
}

func readSession(t *testing.T, ctx context.Context, c *websocket.Conn) SessionPayload {
	t.Helper()
	env := readFrame(t, ctx, c)
	if env.Type != TypeSession {
		t.Fatalf("expected session frame, got %q", env.Type)
	}
	if env.ID == "" {
		t.Fatalf("session frame without id")
	}
	var p SessionPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	return p
}

func TestFeed_PushesSessionChanges(t *testing.T) {
	src := newFakeSource(authenticated())
	srv := startFeed(t, src, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, _, err := dialFeed(t, ctx, srv.URL, "http://localhost", Subprotocol)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = c.CloseNow() }()

	if env := readFrame(t, ctx, c); env.Type != TypeHello {
		t.Fatalf("expected hello, got %q", env.Type)
	}

	p := readSession(t, ctx, c)
	if p.State != session.StateAuthenticated || !p.Privileged || !p.ProfilePending {
		t.Fatalf("unexpected initial session: %+v", p)
	}

	withProfile := authenticated()
	withProfile.ProfilePending = false
	withProfile.Profile = &session.Profile{ID: 9, DocumentID: "e1", FirstName: "Maria", LastName: "P"}
	src.publish(withProfile)

	p = readSession(t, ctx, c)
	if p.Privileged || p.ProfilePending || p.DisplayName != "Maria P" {
		t.Fatalf("profile not reflected: %+v", p)
	}

	if err := c.Write(ctx, websocket.MessageText, []byte(`{"v":"v1","type":"session_fetch"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if p = readSession(t, ctx, c); p.Profile == nil {
		t.Fatalf("fetch returned stale session: %+v", p)
	}

	src.publish(session.Snapshot{State: session.StateUnauthenticated})
	if p = readSession(t, ctx, c); p.State != session.StateUnauthenticated || p.Account != nil {
		t.Fatalf("expected ended session, got %+v", p)
	}

	_, _, err = c.Read(ctx)
	if got := websocket.CloseStatus(err); got != websocket.StatusPolicyViolation {
		t.Fatalf("close status=%v err=%v", got, err)
	}
}

func TestFeed_NeverLeaksToken(t *testing.T) {
	src := newFakeSource(authenticated())
	srv := startFeed(t, src, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, _, err := dialFeed(t, ctx, srv.URL, "http://127.0.0.1", Subprotocol)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = c.CloseNow() }()

	_ = readFrame(t, ctx, c)
	_, data, err := c.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if strings.Contains(string(data), "secret-token") {
		t.Fatalf("token leaked: %s", data)
	}
}

func TestFeed_RejectsForeignOrigin(t *testing.T) {
	srv := startFeed(t, newFakeSource(authenticated()), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, resp, err := dialFeed(t, ctx, srv.URL, "https://evil.example", Subprotocol)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err == nil {
		t.Fatalf("expected handshake failure")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got resp=%v err=%v", resp, err)
	}

	_, resp, err = dialFeed(t, ctx, srv.URL, "", Subprotocol)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err == nil || resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("missing origin must be rejected, err=%v", err)
	}
}

func TestFeed_RequiresSubprotocol(t *testing.T) {
	srv := startFeed(t, newFakeSource(authenticated()), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, _, err := dialFeed(t, ctx, srv.URL, "http://localhost")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = c.CloseNow() }()

	_, _, err = c.Read(ctx)
	if got := websocket.CloseStatus(err); got != websocket.StatusProtocolError {
		t.Fatalf("close status=%v err=%v", got, err)
	}
}

func TestFeed_BadFramesAndRateLimit(t *testing.T) {
	srv := startFeed(t, newFakeSource(authenticated()), func(c *Config) {
		c.RateEvents = 3
		c.RateWindow = time.Minute
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, _, err := dialFeed(t, ctx, srv.URL, "http://localhost", Subprotocol)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = c.CloseNow() }()
	_ = readFrame(t, ctx, c)
	_ = readFrame(t, ctx, c)

	frames := []struct {
		raw  string
		code string
	}{
		{`not json`, "bad_json"},
		{`{"v":"v2","type":"session_fetch"}`, "bad_envelope"},
		{`{"v":"v1","type":"conversation_join"}`, "unsupported"},
	}
	for _, f := range frames {
		if err := c.Write(ctx, websocket.MessageText, []byte(f.raw)); err != nil {
			t.Fatalf("write: %v", err)
		}
		env := readFrame(t, ctx, c)
		var p ErrorPayload
		_ = json.Unmarshal(env.Payload, &p)
		if env.Type != TypeError || p.Code != f.code {
			t.Fatalf("frame %q: got %s %+v", f.raw, env.Type, p)
		}
	}

	// All three frames above used the budget, malformed one included.
	if err := c.Write(ctx, websocket.MessageText, []byte(`{"v":"v1","type":"session_fetch"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	for {
		_, _, err := c.Read(ctx)
		if err != nil {
			if got := websocket.CloseStatus(err); got != websocket.StatusPolicyViolation {
				t.Fatalf("close status=%v err=%v", got, err)
			}
			return
		}
	}
}

func TestFeed_MalformedFramesAreRateLimited(t *testing.T) {
	srv := startFeed(t, newFakeSource(authenticated()), func(c *Config) {
		c.RateEvents = 2
		c.RateWindow = time.Minute
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, _, err := dialFeed(t, ctx, srv.URL, "http://localhost", Subprotocol)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = c.CloseNow() }()
	_ = readFrame(t, ctx, c)
	_ = readFrame(t, ctx, c)

	for i := 0; i < 2; i++ {
		if err := c.Write(ctx, websocket.MessageText, []byte(`{{{`)); err != nil {
			t.Fatalf("write: %v", err)
		}
		env := readFrame(t, ctx, c)
		var p ErrorPayload
		_ = json.Unmarshal(env.Payload, &p)
		if env.Type != TypeError || p.Code != "bad_json" {
			t.Fatalf("frame %d: got %s %+v", i, env.Type, p)
		}
	}

	if err := c.Write(ctx, websocket.MessageText, []byte(`{{{`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	var codes []string
	for {
		_, data, err := c.Read(ctx)
		if err != nil {
			if got := websocket.CloseStatus(err); got != websocket.StatusPolicyViolation {
				t.Fatalf("close status=%v err=%v", got, err)
			}
			break
		}
		var env Envelope
		if json.Unmarshal(data, &env) == nil && env.Type == TypeError {
			var p ErrorPayload
			_ = json.Unmarshal(env.Payload, &p)
			codes = append(codes, p.Code)
		}
	}
	for _, code := range codes {
		if code == "bad_json" {
			t.Fatalf("third malformed frame was answered instead of limited: %v", codes)
		}
	}
}
