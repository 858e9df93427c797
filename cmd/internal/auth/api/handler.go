package authapi

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"methodius/cmd/internal/auth/gate"
	"methodius/cmd/internal/auth/session"
	"methodius/cmd/internal/backend"
	"methodius/cmd/internal/httpjson"
	"methodius/cmd/security/token"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

const (
	msgInvalidCredentials = "Login failed. Please check your credentials."
	msgBackendFailure     = "Login failed. Please try again."
)

// Authenticator exchanges credentials for a backend bearer token.
type Authenticator interface {
	Authenticate(ctx context.Context, identifier, password string) (backend.AuthResult, error)
}

// Sessions is the session store surface the login endpoints drive.
type Sessions interface {
	Login(ctx context.Context, token string, account session.Account) error
	Logout(ctx context.Context)
	Snapshot() session.Snapshot
}

// LoginObserver receives login outcomes, for metrics.
type LoginObserver func(outcome string)

// Handler serves the console's login, logout and identity endpoints.
type Handler struct {
	log *slog.Logger
	cfg Config

	auth     Authenticator
	sessions Sessions
	gate     *gate.Gate

	validate   *validator.Validate
	ipThrottle *Throttle
	idThrottle *Throttle
	auditSink  AuditSink
	observe    LoginObserver

	now func() time.Time
}

// HandlerOption configures optional auth handler dependencies.
type HandlerOption func(*Handler)

// WithAuditSink overrides the default log-based audit sink.
func WithAuditSink(sink AuditSink) HandlerOption {
	return func(h *Handler) {
		if h == nil || sink == nil {
			return
		}
		h.auditSink = sink
	}
}

// WithLoginObserver registers a login outcome observer.
func WithLoginObserver(o LoginObserver) HandlerOption {
	return func(h *Handler) {
		if h == nil {
			return
		}
		h.observe = o
	}
}

// NewHandler constructs an auth Handler.
func NewHandler(log *slog.Logger, cfg Config, auth Authenticator, sessions Sessions, g *gate.Gate, opts ...HandlerOption) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if auth == nil || sessions == nil || g == nil {
		return nil, errors.New("auth: missing dependency")
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultConfig().MaxBodyBytes
	}

	h := &Handler{
		log:        log,
		cfg:        cfg,
		auth:       auth,
		sessions:   sessions,
		gate:       g,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		ipThrottle: NewThrottle(cfg.LoginIPMax, cfg.LoginIPWindow),
		idThrottle: NewThrottle(cfg.LoginIdentifierMax, cfg.LoginIdentifierWindow),
		auditSink:  LogAudit{Log: log},
		now:        func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(h)
	}
	return h, nil
}

// Register wires auth routes onto r.
func (h *Handler) Register(r chi.Router) {
	if h == nil || r == nil {
		return
	}
	r.Get("/login", h.handleLoginPage)
	r.Post("/login", h.handleLoginForm)
	r.Post("/auth/login", h.handleLogin)
	r.Post("/auth/logout", h.handleLogout)
	r.With(h.gate.Protect).Get("/me", h.handleMe)
}

// ---- handlers ----

type loginPage struct {
	From       string
	Identifier string
	Error      string
}

func (h *Handler) renderLogin(w http.ResponseWriter, status int, p loginPage) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := pages.ExecuteTemplate(w, "login.html", p); err != nil {
		h.log.Error("auth.login_page.render.fail", "err", err)
	}
}

func (h *Handler) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	if snap := h.sessions.Snapshot(); snap.Authenticated() {
		http.Redirect(w, r, gate.ReturnPath(from), http.StatusSeeOther)
		return
	}
	h.renderLogin(w, http.StatusOK, loginPage{From: from})
}

func (h *Handler) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxBodyBytes)
	if err := r.ParseForm(); err != nil {
		h.renderLogin(w, http.StatusBadRequest, loginPage{Error: "invalid form"})
		return
	}
	req := loginRequest{
		Identifier: r.PostFormValue("identifier"),
		Password:   r.PostFormValue("password"),
		From:       r.PostFormValue("from"),
	}

	res, fail := h.login(r.Context(), h.meta(r), req)
	if fail != nil {
		setRetryAfter(w, fail.retryAfter)
		h.renderLogin(w, fail.status, loginPage{From: req.From, Identifier: strings.TrimSpace(req.Identifier), Error: fail.message})
		return
	}
	http.Redirect(w, r, res.Redirect, http.StatusSeeOther)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpjson.Decode(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		httpjson.WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	res, fail := h.login(r.Context(), h.meta(r), req)
	if fail != nil {
		if fail.status == http.StatusTooManyRequests {
			writeRateLimited(w, fail.retryAfter)
			return
		}
		httpjson.WriteError(w, fail.status, fail.code, fail.message)
		return
	}
	httpjson.Write(w, http.StatusOK, res)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	snap := h.sessions.Snapshot()
	h.sessions.Logout(ctx)

	if snap.Account != nil {
		id := snap.Account.ID
		h.audit(ctx, h.meta(r), "auth.logout", &id, token.Fingerprint(snap.Token), nil)
	}

	if gate.WantsJSON(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, gate.DefaultLoginPath, http.StatusSeeOther)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	snap, ok := gate.SnapshotFrom(r.Context())
	if !ok {
		snap = h.sessions.Snapshot()
	}

	resp := meResponse{
		State:          snap.State,
		Account:        snap.Account,
		Profile:        snap.Profile,
		DisplayName:    snap.DisplayName(),
		Privileged:     snap.IsPrivileged(),
		ProfilePending: snap.ProfilePending,
	}
	if exp, ok := backend.TokenExpiry(snap.Token); ok {
		resp.TokenExpiresAt = &exp
	}
	httpjson.Write(w, http.StatusOK, resp)
}

// ---- login flow ----

type loginFailure struct {
	status     int
	code       string
	message    string
	retryAfter time.Duration
}

// login authenticates against the backend and adopts the session.
// Failures never mutate the session.
func (h *Handler) login(ctx context.Context, m requestMeta, req loginRequest) (loginResponse, *loginFailure) {
	req.Identifier = strings.ToLower(strings.TrimSpace(req.Identifier))
	if err := h.validate.Struct(req); err != nil {
		h.outcome("invalid")
		return loginResponse{}, &loginFailure{status: http.StatusBadRequest, code: "invalid_request", message: validationMessage(err)}
	}

	now := h.now()
	ipKey := ""
	if m.ip != nil {
		ipKey = "ip:" + m.ip.String()
	}
	idKey := "id:" + req.Identifier

	for _, k := range []struct {
		t   *Throttle
		key string
	}{{h.ipThrottle, ipKey}, {h.idThrottle, idKey}} {
		if blocked, retry := k.t.Blocked(k.key, now); blocked {
			h.outcome("rate_limited")
			h.audit(ctx, m, "auth.login.rate_limited", nil, "", map[string]any{
				"identifier":    req.Identifier,
				"retry_after_s": int64(retry.Seconds()),
			})
			return loginResponse{}, &loginFailure{status: http.StatusTooManyRequests, code: "rate_limited", message: "Too many attempts. Please wait and try again.", retryAfter: retry}
		}
	}

	res, err := h.auth.Authenticate(ctx, req.Identifier, req.Password)
	if err != nil {
		var be *backend.Error
		if errors.As(err, &be) && be.Status >= 400 && be.Status < 500 {
			h.ipThrottle.Fail(ipKey, now)
			h.idThrottle.Fail(idKey, now)
			h.outcome("invalid_credentials")
			h.audit(ctx, m, "auth.login.failed", nil, "", map[string]any{"identifier": req.Identifier, "reason": "rejected"})
			return loginResponse{}, &loginFailure{status: http.StatusUnauthorized, code: "invalid_credentials", message: backend.Message(err, msgInvalidCredentials)}
		}
		h.log.ErrorContext(ctx, "auth.login.backend.fail", "err", err)
		h.outcome("backend_error")
		return loginResponse{}, &loginFailure{status: http.StatusBadGateway, code: "backend_unavailable", message: msgBackendFailure}
	}
	if strings.TrimSpace(res.JWT) == "" || res.User.DocumentID == "" {
		h.log.ErrorContext(ctx, "auth.login.backend.malformed")
		h.outcome("backend_error")
		return loginResponse{}, &loginFailure{status: http.StatusBadGateway, code: "backend_unavailable", message: msgBackendFailure}
	}

	account := toAccount(res.User)
	if err := h.sessions.Login(ctx, res.JWT, account); err != nil {
		h.log.ErrorContext(ctx, "auth.login.session.fail", "err", err)
		h.outcome("server_error")
		return loginResponse{}, &loginFailure{status: http.StatusInternalServerError, code: "server_error", message: msgBackendFailure}
	}

	h.ipThrottle.Reset(ipKey)
	h.idThrottle.Reset(idKey)
	h.outcome("success")
	h.audit(ctx, m, "auth.login.success", &account.ID, token.Fingerprint(res.JWT), map[string]any{"identifier": req.Identifier})

	out := loginResponse{Account: account, Redirect: gate.ReturnPath(req.From)}
	if exp, ok := backend.TokenExpiry(res.JWT); ok {
		out.TokenExpiresAt = &exp
	}
	return out, nil
}

func (h *Handler) outcome(o string) {
	if h.observe != nil {
		h.observe(o)
	}
}

func toAccount(u backend.User) session.Account {
	return session.Account{
		ID:         u.ID,
		DocumentID: u.DocumentID,
		Username:   u.Username,
		Email:      u.Email,
		Confirmed:  u.Confirmed,
		Blocked:    u.Blocked,
	}
}

func validationMessage(err error) string {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) || len(ves) == 0 {
		return "invalid request"
	}
	fe := ves[0]
	switch fe.Field() {
	case "Identifier":
		if fe.Tag() == "required" {
			return "Email is required"
		}
		return "Must be a valid email"
	case "Password":
		return "Password is required"
	default:
		return "invalid request"
	}
}

// ---- helpers ----

type requestMeta struct {
	ip        net.IP
	userAgent string
}

func (h *Handler) meta(r *http.Request) requestMeta {
	return requestMeta{
		ip:        clientIP(r, h.cfg.TrustProxy),
		userAgent: strings.TrimSpace(r.UserAgent()),
	}
}

func clientIP(r *http.Request, trustProxy bool) net.IP {
	if trustProxy {
		if ip := parseForwardedIP(r.Header.Get("X-Forwarded-For")); ip != nil {
			return ip
		}
		if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil {
		if ip := net.ParseIP(host); ip != nil {
			return ip
		}
	}
	return nil
}

func parseForwardedIP(raw string) net.IP {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	for _, p := range parts {
		if ip := net.ParseIP(strings.TrimSpace(p)); ip != nil {
			return ip
		}
	}
	return nil
}
