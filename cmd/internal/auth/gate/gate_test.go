package gate

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"methodius/cmd/internal/auth/session"
	"methodius/cmd/internal/httpjson"
)

type staticSource session.Snapshot

func (s staticSource) Snapshot() session.Snapshot { return session.Snapshot(s) }

var (
	account = &session.Account{ID: 1, DocumentID: "u1", Username: "admin"}
	profile = &session.Profile{ID: 5, DocumentID: "e5", FirstName: "Ada"}
)

func TestDecide(t *testing.T) {
	cases := []struct {
		name   string
		snap   session.Snapshot
		role   Role
		policy RolePolicy
		want   Decision
	}{
		{"unresolved", session.Snapshot{State: session.StateUnresolved}, RoleAny, IgnoreRoles, Loading},
		{"resolving with token", session.Snapshot{State: session.StateResolving, Token: "t"}, RoleAny, IgnoreRoles, Loading},
		{"resolving with account", session.Snapshot{State: session.StateResolving, Token: "t", Account: account}, RoleAdmin, IgnoreRoles, Loading},
		{"resolved empty", session.Snapshot{State: session.StateUnauthenticated}, RoleAny, IgnoreRoles, Redirect},
		{"token without account", session.Snapshot{State: session.StateAuthenticated, Token: "t"}, RoleAny, IgnoreRoles, Redirect},
		{"account without token", session.Snapshot{State: session.StateAuthenticated, Account: account}, RoleAny, IgnoreRoles, Redirect},
		{"authenticated", session.Snapshot{State: session.StateAuthenticated, Token: "t", Account: account}, RoleAny, IgnoreRoles, Render},
		{"admin role ignored for linked profile", session.Snapshot{State: session.StateAuthenticated, Token: "t", Account: account, Profile: profile}, RoleAdmin, IgnoreRoles, Render},
		{"hr role ignored for linked profile", session.Snapshot{State: session.StateAuthenticated, Token: "t", Account: account, Profile: profile}, RoleHR, IgnoreRoles, Render},
		{"enforced admin for linked profile", session.Snapshot{State: session.StateAuthenticated, Token: "t", Account: account, Profile: profile}, RoleAdmin, PrivilegedRoles, Forbidden},
		{"enforced admin for privileged", session.Snapshot{State: session.StateAuthenticated, Token: "t", Account: account}, RoleManagement, PrivilegedRoles, Render},
		{"enforced any for linked profile", session.Snapshot{State: session.StateAuthenticated, Token: "t", Account: account, Profile: profile}, RoleAny, PrivilegedRoles, Render},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Decide(tc.snap, tc.role, tc.policy); got != tc.want {
				t.Fatalf("Decide=%s want %s", got, tc.want)
			}
		})
	}
}

func protected(t *testing.T, g *Gate, role Role) (http.Handler, *bool) {
	t.Helper()
	called := false
	h := g.Require(role)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if _, ok := SnapshotFrom(r.Context()); !ok {
			t.Errorf("snapshot missing from request context")
		}
		w.WriteHeader(http.StatusOK)
	}))
	return h, &called
}

func TestRequire_LoadingDoesNotRedirect(t *testing.T) {
	g := New(staticSource{State: session.StateResolving, Token: "t"})
	h, called := protected(t, g, RoleAny)

	req := httptest.NewRequest(http.MethodGet, "/employees", nil)
	req.Header.Set("Accept", "text/html")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if *called {
		t.Fatalf("protected handler ran while resolving")
	}
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d want 503", rr.Code)
	}
	if rr.Header().Get("Location") != "" {
		t.Fatalf("loading must not redirect")
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After")
	}
}

func TestRequire_RedirectPreservesLocation(t *testing.T) {
	g := New(staticSource{State: session.StateUnauthenticated})
	h, called := protected(t, g, RoleAdmin)

	req := httptest.NewRequest(http.MethodGet, "/employees?page=2", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if *called {
		t.Fatalf("protected handler ran without session")
	}
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("status=%d want 303", rr.Code)
	}
	if got, want := rr.Header().Get("Location"), "/login?from=%2Femployees%3Fpage%3D2"; got != want {
		t.Fatalf("Location=%q want %q", got, want)
	}
}

func TestRequire_JSONCallersGet401WithRedirect(t *testing.T) {
	g := New(staticSource{State: session.StateUnauthenticated})
	h, _ := protected(t, g, RoleAny)

	req := httptest.NewRequest(http.MethodGet, "/api/employees", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d want 401", rr.Code)
	}
	var body httpjson.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != "unauthenticated" || body.Error.Redirect != "/login?from=%2Fapi%2Femployees" {
		t.Fatalf("unexpected body: %+v", body.Error)
	}
}

func TestRequire_RendersDespiteUnsatisfiedRole(t *testing.T) {
	var seen []Decision
	g := New(
		staticSource{State: session.StateAuthenticated, Token: "t", Account: account, Profile: profile},
		WithObserver(func(d Decision, _ Role) { seen = append(seen, d) }),
	)
	h, called := protected(t, g, RoleAdmin)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/management/employees", nil))

	if !*called || rr.Code != http.StatusOK {
		t.Fatalf("expected render, called=%v status=%d", *called, rr.Code)
	}
	if len(seen) != 1 || seen[0] != Render {
		t.Fatalf("observer saw %v", seen)
	}
}

func TestRequire_EnforcedPolicyRedirectsHome(t *testing.T) {
	g := New(
		staticSource{State: session.StateAuthenticated, Token: "t", Account: account, Profile: profile},
		WithRolePolicy(PrivilegedRoles),
	)
	h, called := protected(t, g, RoleAdmin)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/management/payroll", nil))

	if *called {
		t.Fatalf("enforced policy rendered a linked-profile identity")
	}
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != DefaultHomePath {
		t.Fatalf("status=%d location=%q", rr.Code, rr.Header().Get("Location"))
	}
}

func TestReturnPath(t *testing.T) {
	cases := map[string]string{
		"":                    DefaultHomePath,
		"/employees?page=2":   "/employees?page=2",
		"https://evil.test/x": DefaultHomePath,
		"//evil.test/x":       DefaultHomePath,
		"/\\evil.test":        DefaultHomePath,
		"/login":              DefaultHomePath,
		"/":                   DefaultHomePath,
		"relative":            DefaultHomePath,
	}
	for in, want := range cases {
		if got := ReturnPath(in); got != want {
			t.Fatalf("ReturnPath(%q)=%q want %q", in, got, want)
		}
	}
}

func TestLoginURL_RootHasNoFrom(t *testing.T) {
	if got := LoginURL("", httptest.NewRequest(http.MethodGet, "/", nil)); got != DefaultLoginPath {
		t.Fatalf("LoginURL=%q", got)
	}
}
