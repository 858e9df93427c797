package gate

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"methodius/cmd/internal/auth/session"
	"methodius/cmd/internal/httpjson"
)

// Source is the read side of the session store.
type Source interface {
	Snapshot() session.Snapshot
}

// Observer receives every gate decision, for metrics.
type Observer func(d Decision, role Role)

// Gate wraps protected handlers.
type Gate struct {
	src       Source
	policy    RolePolicy
	loginPath string
	homePath  string
	retry     int
	observe   Observer
	log       *slog.Logger
}

// Option configures a Gate.
type Option func(*Gate)

// WithRolePolicy swaps the role policy. Passing PrivilegedRoles enables enforcement.
func WithRolePolicy(p RolePolicy) Option {
	return func(g *Gate) {
		if p != nil {
			g.policy = p
		}
	}
}

// WithLoginPath overrides the unauthenticated entry point.
func WithLoginPath(path string) Option {
	return func(g *Gate) {
		if path != "" {
			g.loginPath = path
		}
	}
}

// WithObserver registers a decision observer.
func WithObserver(o Observer) Option {
	return func(g *Gate) { g.observe = o }
}

// WithLogger sets the logger used for redirect/forbidden debug events.
func WithLogger(log *slog.Logger) Option {
	return func(g *Gate) {
		if log != nil {
			g.log = log
		}
	}
}

// New builds a Gate over src. The default policy is IgnoreRoles.
func New(src Source, opts ...Option) *Gate {
	g := &Gate{
		src:       src,
		policy:    IgnoreRoles,
		loginPath: DefaultLoginPath,
		homePath:  DefaultHomePath,
		retry:     1,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// Decide evaluates the current session for role.
func (g *Gate) Decide(role Role) (Decision, session.Snapshot) {
	snap := g.src.Snapshot()
	return Decide(snap, role, g.policy), snap
}

// Protect is Require(RoleAny).
func (g *Gate) Protect(next http.Handler) http.Handler {
	return g.Require(RoleAny)(next)
}

// Require returns middleware that only serves next for sessions the gate renders.
// The snapshot that was evaluated is attached to the request context.
func (g *Gate) Require(role Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d, snap := g.Decide(role)
			if g.observe != nil {
				g.observe(d, role)
			}

			switch d {
			case Render:
				next.ServeHTTP(w, r.WithContext(WithSnapshot(r.Context(), snap)))
			case Loading:
				g.writeLoading(w, r)
			case Redirect:
				g.log.DebugContext(r.Context(), "gate.redirect", "path", r.URL.Path)
				g.RedirectToLogin(w, r)
			case Forbidden:
				g.log.DebugContext(r.Context(), "gate.forbidden", "path", r.URL.Path, "role", string(role))
				if WantsJSON(r) {
					httpjson.WriteError(w, http.StatusForbidden, "forbidden", "insufficient role")
					return
				}
				http.Redirect(w, r, g.homePath, http.StatusSeeOther)
			}
		})
	}
}

// RedirectToLogin sends the caller to login, preserving the requested location.
// JSON callers get 401 with the redirect target instead of a 3xx.
func (g *Gate) RedirectToLogin(w http.ResponseWriter, r *http.Request) {
	target := LoginURL(g.loginPath, r)
	if WantsJSON(r) {
		httpjson.WriteErrorBody(w, http.StatusUnauthorized, httpjson.Error{Code: "unauthenticated", Message: "login required", Redirect: target})
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

const loadingPage = `<!doctype html>
<html><head><meta charset="utf-8"><meta http-equiv="refresh" content="1"><title>Loading</title></head>
<body><p>Loading&hellip;</p></body></html>
`

func (g *Gate) writeLoading(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Retry-After", strconv.Itoa(g.retry))
	if WantsJSON(r) {
		httpjson.WriteError(w, http.StatusServiceUnavailable, "session_resolving", "session is being restored")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte(loadingPage))
}

type snapshotKey struct{}

// WithSnapshot attaches snap to ctx.
func WithSnapshot(ctx context.Context, snap session.Snapshot) context.Context {
	return context.WithValue(ctx, snapshotKey{}, snap)
}

// SnapshotFrom returns the snapshot the gate rendered the request with.
func SnapshotFrom(ctx context.Context) (session.Snapshot, bool) {
	snap, ok := ctx.Value(snapshotKey{}).(session.Snapshot)
	return snap, ok
}
