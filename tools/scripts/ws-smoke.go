// Package main is a CI-friendly smoke test for the console session feed.
//
// It validates:
//   - login through POST /auth/login
//   - handshake + subprotocol selection on /ws/session
//   - hello, then a session frame for the logged-in account
//   - session_fetch answered with the current session
//   - logout pushes an unauthenticated frame and closes with 1008
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/coder/websocket"
)

const (
	subprotocol  = "methodius.session.v1"
	maxReadBytes = 64 << 10
)

type envelope struct {
	V       string          `json:"v"`
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	TS      time.Time       `json:"ts,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type sessionView struct {
	State   string `json:"state"`
	Account *struct {
		DocumentID string `json:"documentId"`
		Email      string `json:"email"`
	} `json:"account,omitempty"`
	DisplayName    string `json:"display_name"`
	Privileged     bool   `json:"privileged"`
	ProfilePending bool   `json:"profile_pending"`
}

func main() {
	var (
		baseURL    = flag.String("url", "http://127.0.0.1:8080", "Console base URL")
		origin     = flag.String("origin", "http://localhost", "Origin header for the WS handshake")
		identifier = flag.String("identifier", os.Getenv("SMOKE_IDENTIFIER"), "Login email")
		password   = flag.String("password", os.Getenv("SMOKE_PASSWORD"), "Login password")
		keep       = flag.Bool("keep", false, "Stay logged in when done")
		timeout    = flag.Duration("timeout", 7*time.Second, "Per-step timeout")
		verbose    = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	base, err := url.Parse(*baseURL)
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		fatalf("invalid -url: %q", *baseURL)
	}
	if *identifier == "" || *password == "" {
		fatalf("-identifier and -password (or SMOKE_IDENTIFIER/SMOKE_PASSWORD) are required")
	}

	root := context.Background()
	hc := &http.Client{Timeout: *timeout}

	mustPost(root, hc, base, "/auth/login", map[string]string{"identifier": *identifier, "password": *password}, http.StatusOK)
	if *verbose {
		fmt.Println("login: ok")
	}

	conn := mustDial(root, wsURL(base), *origin, *timeout)
	defer func() { _ = conn.CloseNow() }()

	hello := mustRead(root, conn, *timeout)
	expectType(hello, "hello")

	first := decodeSession(mustRead(root, conn, *timeout))
	if first.State != "authenticated" || first.Account == nil {
		fatalf("expected authenticated session, got state=%q", first.State)
	}

	mustWrite(root, conn, envelope{V: "v1", Type: "session_fetch"}, *timeout)
	fetched := decodeSession(mustRead(root, conn, *timeout))
	if fetched.Account == nil || fetched.Account.DocumentID != first.Account.DocumentID {
		fatalf("session_fetch returned a different account")
	}
	if *verbose {
		fmt.Printf("session: account=%s privileged=%v name=%q\n", fetched.Account.DocumentID, fetched.Privileged, fetched.DisplayName)
	}

	if *keep {
		_ = conn.Close(websocket.StatusNormalClosure, "smoke done")
		fmt.Printf("OK: account=%s (kept)\n", fetched.Account.DocumentID)
		return
	}

	mustPost(root, hc, base, "/auth/logout", nil, http.StatusNoContent)

	for {
		env, err := read(root, conn, *timeout)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusPolicyViolation {
				break
			}
			fatalf("expected close 1008 after logout: %v", err)
		}
		if env.Type == "session" && decodeSession(env).State == "unauthenticated" && *verbose {
			fmt.Println("logout: unauthenticated frame received")
		}
	}

	fmt.Printf("OK: account=%s\n", fetched.Account.DocumentID)
}

func wsURL(base *url.URL) string {
	u := *base
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws/session"
	return u.String()
}

func mustPost(parent context.Context, hc *http.Client, base *url.URL, path string, body any, want int) {
	ctx, cancel := context.WithTimeout(parent, hc.Timeout)
	defer cancel()

	var rd io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			fatalf("marshal %s: %v", path, err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base.JoinPath(path).String(), rd)
	if err != nil {
		fatalf("request %s: %v", path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		fatalf("POST %s: %v", path, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != want {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		fatalf("POST %s: status %d (want %d): %s", path, resp.StatusCode, want, strings.TrimSpace(string(msg)))
	}
}

func mustDial(parent context.Context, target, origin string, timeout time.Duration) *websocket.Conn {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	h := http.Header{}
	if origin != "" {
		h.Set("Origin", origin)
	}
	h.Set("Accept", "application/json")

	conn, resp, err := websocket.Dial(ctx, target, &websocket.DialOptions{
		Subprotocols: []string{subprotocol},
		HTTPHeader:   h,
	})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		fatalf("dial %s: %v", target, err)
	}
	if conn.Subprotocol() != subprotocol {
		fatalf("server selected subprotocol %q", conn.Subprotocol())
	}
	conn.SetReadLimit(maxReadBytes)
	return conn
}

func read(parent context.Context, conn *websocket.Conn, timeout time.Duration) (envelope, error) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	typ, data, err := conn.Read(ctx)
	if err != nil {
		return envelope{}, err
	}
	if typ != websocket.MessageText {
		return envelope{}, errors.New("non-text frame")
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return envelope{}, fmt.Errorf("decode frame: %w", err)
	}
	return env, nil
}

func mustRead(parent context.Context, conn *websocket.Conn, timeout time.Duration) envelope {
	env, err := read(parent, conn, timeout)
	if err != nil {
		fatalf("read: %v", err)
	}
	if env.Type == "error" {
		fatalf("server error frame: %s", string(env.Payload))
	}
	return env
}

func mustWrite(parent context.Context, conn *websocket.Conn, env envelope, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	b, err := json.Marshal(env)
	if err != nil {
		fatalf("marshal frame: %v", err)
	}
	if err := conn.Write(ctx, websocket.MessageText, b); err != nil {
		fatalf("write: %v", err)
	}
}

func decodeSession(env envelope) sessionView {
	expectType(env, "session")
	var v sessionView
	if err := json.Unmarshal(env.Payload, &v); err != nil {
		fatalf("decode session payload: %v", err)
	}
	return v
}

func expectType(env envelope, want string) {
	if env.Type != want {
		fatalf("expected %q frame, got %q", want, env.Type)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "FAIL: "+format+"\n", args...)
	os.Exit(1)
}
