package authapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"methodius/cmd/internal/auth/gate"
	"methodius/cmd/internal/auth/session"
	"methodius/cmd/internal/auth/storage"
	"methodius/cmd/internal/backend"
	"methodius/cmd/internal/httpjson"
)

type fakeAuth struct {
	calls int
	err   error
}

func (f *fakeAuth) Authenticate(_ context.Context, identifier, password string) (backend.AuthResult, error) {
	f.calls++
	if f.err != nil {
		return backend.AuthResult{}, f.err
	}
	if password != "secret" {
		return backend.AuthResult{}, &backend.Error{Op: "authenticate", Status: http.StatusBadRequest, Message: "Invalid identifier or password"}
	}
	return backend.AuthResult{
		JWT:  "tok-" + identifier,
		User: backend.User{ID: 1, DocumentID: "u1", Username: "admin", Email: identifier},
	}, nil
}

type noProfiles struct{}

func (noProfiles) Me(context.Context, string) (session.Account, error) {
	return session.Account{}, &backend.Error{Op: "me", Status: http.StatusUnauthorized}
}

func (noProfiles) FindProfile(context.Context, string, string) (*session.Profile, error) {
	return nil, nil
}

type recordingAudit struct {
	mu     sync.Mutex
	events []AuditEvent
}

func (a *recordingAudit) Record(_ context.Context, ev AuditEvent) {
	a.mu.Lock()
	a.events = append(a.events, ev)
	a.mu.Unlock()
}

func (a *recordingAudit) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.events))
	for _, ev := range a.events {
		out = append(out, ev.Action)
	}
	return out
}

type fixture struct {
	router http.Handler
	store  *session.Store
	auth   *fakeAuth
	audit  *recordingAudit
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	store := session.New(session.DefaultConfig(), noProfiles{}, storage.NewMemory(), log)
	t.Cleanup(store.Close)
	store.CheckAuth(context.Background())

	auth := &fakeAuth{}
	audit := &recordingAudit{}
	h, err := NewHandler(log, cfg, auth, store, gate.New(store), WithAuditSink(audit))
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	r := chi.NewRouter()
	h.Register(r)
	return &fixture{router: r, store: store, auth: auth, audit: audit}
}

func (f *fixture) postJSON(t *testing.T, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "192.0.2.10:1234"
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func TestLogin_JSONSuccess(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	rr := f.postJSON(t, "/auth/login", `{"identifier":"Admin@Example.com","password":"secret","from":"/employees?page=2"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}

	var resp loginResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Redirect != "/employees?page=2" {
		t.Fatalf("redirect=%q", resp.Redirect)
	}
	if resp.Account.DocumentID != "u1" {
		t.Fatalf("account=%+v", resp.Account)
	}

	snap := f.store.Snapshot()
	if !snap.Authenticated() || snap.Token != "tok-admin@example.com" {
		t.Fatalf("session not adopted: %+v", snap)
	}
	if got := f.audit.actions(); len(got) != 1 || got[0] != "auth.login.success" {
		t.Fatalf("audit=%v", got)
	}
}

func TestLogin_InvalidCredentialsKeepsSession(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	before := f.store.Snapshot()

	rr := f.postJSON(t, "/auth/login", `{"identifier":"admin@example.com","password":"nope"}`)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d", rr.Code)
	}
	var body httpjson.ErrorResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &body)
	if body.Error.Code != "invalid_credentials" || body.Error.Message != "Invalid identifier or password" {
		t.Fatalf("unexpected error: %+v", body.Error)
	}
	if after := f.store.Snapshot(); after.State != before.State || after.Account != nil {
		t.Fatalf("failed login mutated session: %+v", after)
	}
}

func TestLogin_BackendDownIsGeneric(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.auth.err = &backend.Error{Op: "authenticate", Message: "login failed", Err: context.DeadlineExceeded}

	rr := f.postJSON(t, "/auth/login", `{"identifier":"admin@example.com","password":"secret"}`)
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status=%d", rr.Code)
	}
	var body httpjson.ErrorResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &body)
	if body.Error.Message != msgBackendFailure {
		t.Fatalf("message=%q", body.Error.Message)
	}
}

func TestLogin_Validation(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	cases := []struct {
		body string
		want int
	}{
		{`{"identifier":"","password":"secret"}`, http.StatusBadRequest},
		{`{"identifier":"not-an-email","password":"secret"}`, http.StatusBadRequest},
		{`{"identifier":"admin@example.com","password":""}`, http.StatusBadRequest},
		{`{"identifier":"admin@example.com","password":"secret","extra":1}`, http.StatusBadRequest},
		{`{"identifier":"admin@example.com"`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		if rr := f.postJSON(t, "/auth/login", tc.body); rr.Code != tc.want {
			t.Fatalf("body %s: status=%d want %d", tc.body, rr.Code, tc.want)
		}
	}
	if f.auth.calls != 0 {
		t.Fatalf("backend called for invalid input")
	}
}

func TestLogin_ThrottledByIdentifier(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LoginIdentifierMax = 2
	f := newFixture(t, cfg)

	for i := 0; i < 2; i++ {
		if rr := f.postJSON(t, "/auth/login", `{"identifier":"admin@example.com","password":"bad"}`); rr.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d status=%d", i, rr.Code)
		}
	}

	rr := f.postJSON(t, "/auth/login", `{"identifier":"admin@example.com","password":"secret"}`)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status=%d want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After")
	}
	if f.auth.calls != 2 {
		t.Fatalf("throttled attempt reached the backend")
	}
}

func TestLoginForm_RedirectsToFrom(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	form := url.Values{"identifier": {"admin@example.com"}, "password": {"secret"}, "from": {"/calendar"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/calendar" {
		t.Fatalf("status=%d location=%q", rr.Code, rr.Header().Get("Location"))
	}

	// An authenticated visit to the login page goes straight back.
	rr = httptest.NewRecorder()
	f.router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/login?from=https://evil.test/", nil))
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != gate.DefaultHomePath {
		t.Fatalf("status=%d location=%q", rr.Code, rr.Header().Get("Location"))
	}
}

func TestLoginForm_FailureRendersInlineError(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	form := url.Values{"identifier": {"admin@example.com"}, "password": {"bad"}, "from": {"/calendar"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "Invalid identifier or password") || !strings.Contains(body, `value="/calendar"`) {
		t.Fatalf("login page missing error or from: %s", body)
	}
}

func TestMe_GatedAndLogout(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Accept", "text/html")
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/login?from=%2Fme" {
		t.Fatalf("status=%d location=%q", rr.Code, rr.Header().Get("Location"))
	}

	if rr := f.postJSON(t, "/auth/login", `{"identifier":"admin@example.com","password":"secret"}`); rr.Code != http.StatusOK {
		t.Fatalf("login status=%d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Accept", "application/json")
	rr = httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("me status=%d", rr.Code)
	}
	var me meResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &me); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if me.Account == nil || me.Account.Username != "admin" || me.DisplayName != "admin" {
		t.Fatalf("unexpected me: %+v", me)
	}

	req = httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.Header.Set("Accept", "application/json")
	rr = httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("logout status=%d", rr.Code)
	}
	if snap := f.store.Snapshot(); snap.Account != nil || snap.Token != "" {
		t.Fatalf("logout left session: %+v", snap)
	}
}

func newRequest(remote, xff string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = remote
	if xff != "" {
		r.Header.Set("X-Forwarded-For", xff)
	}
	return r
}
