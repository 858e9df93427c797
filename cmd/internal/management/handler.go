package management

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"methodius/cmd/internal/auth/gate"
	"methodius/cmd/internal/auth/session"
	"methodius/cmd/internal/backend"
	"methodius/cmd/internal/httpjson"
	"methodius/cmd/security/token"
)

const maxBodyBytes = 256 << 10

// Sessions is the part of the session store the views need: a rejected or
// expired token ends the session.
type Sessions interface {
	Logout(ctx context.Context)
}

// Handler serves the management views as JSON.
type Handler struct {
	log      *slog.Logger
	svc      *Service
	sessions Sessions
	gate     *gate.Gate
	now      func() time.Time
}

// NewHandler constructs a management Handler.
func NewHandler(log *slog.Logger, svc *Service, sessions Sessions, g *gate.Gate) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if svc == nil || sessions == nil || g == nil {
		return nil, errors.New("management: missing dependency")
	}
	return &Handler{log: log, svc: svc, sessions: sessions, gate: g, now: time.Now}, nil
}

// Register wires the management routes onto r. Every route sits behind the
// gate; company-wide records declare RoleAdmin.
func (h *Handler) Register(r chi.Router) {
	if h == nil || r == nil {
		return
	}

	r.Group(func(r chi.Router) {
		r.Use(h.gate.Protect, h.freshToken)

		r.Get("/dashboard", h.handleDashboard)
		r.Get("/calendar", h.handleCalendarDay)
		r.Get("/calendar/month", h.handleCalendarMonth)

		r.Route("/leave-requests", func(r chi.Router) {
			r.Get("/", h.handleLeaveList)
			r.Post("/", saveHandler(h, h.svc.SaveLeaveRequest))
			r.Get("/{id}", getHandler(h, h.svc.LeaveRequest))
			r.Put("/{id}", saveHandler(h, h.svc.SaveLeaveRequest))
			r.Delete("/{id}", deleteHandler(h, h.svc.DeleteLeaveRequest))
		})
		r.Route("/events", func(r chi.Router) {
			r.Get("/", listHandler(h, h.svc.Events))
			r.Post("/", saveHandler(h, h.svc.SaveEvent))
			r.Get("/{id}", getHandler(h, h.svc.Event))
			r.Put("/{id}", saveHandler(h, h.svc.SaveEvent))
			r.Delete("/{id}", deleteHandler(h, h.svc.DeleteEvent))
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(h.gate.Require(gate.RoleAdmin), h.freshToken)

		r.Route("/employees", func(r chi.Router) {
			r.Get("/", listHandler(h, h.svc.Employees))
			r.Post("/", saveHandler(h, h.saveEmployee))
			r.Get("/{id}", getHandler(h, h.svc.Employee))
			r.Put("/{id}", saveHandler(h, h.saveEmployee))
			r.Delete("/{id}", deleteHandler(h, h.svc.DeleteEmployee))
		})
		r.Route("/contracts", func(r chi.Router) {
			r.Get("/", listHandler(h, h.svc.Contracts))
			r.Post("/", saveHandler(h, h.svc.SaveContract))
			r.Get("/{id}", getHandler(h, h.svc.Contract))
			r.Put("/{id}", saveHandler(h, h.svc.SaveContract))
			r.Delete("/{id}", deleteHandler(h, h.svc.DeleteContract))
		})
		r.Get("/payroll", h.handlePayroll)
		r.Get("/analytics", h.handleAnalytics)
	})
}

// freshToken ends sessions whose token has visibly expired before any
// backend call is made with it.
func (h *Handler) freshToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		snap := h.snapshot(r)
		if backend.TokenExpired(snap.Token, h.now()) {
			h.log.InfoContext(r.Context(), "management.token.expired", "token_fp", token.Fingerprint(snap.Token))
			h.endSession(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) snapshot(r *http.Request) session.Snapshot {
	snap, _ := gate.SnapshotFrom(r.Context())
	return snap
}

func (h *Handler) endSession(w http.ResponseWriter, r *http.Request) {
	h.sessions.Logout(r.Context())
	h.svc.Purge()
	h.gate.RedirectToLogin(w, r)
}

// fail maps a view error to a response. A rejected token ends the session;
// a backend 403 only means this account's role cannot reach the collection.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var ie *InputError
	switch {
	case backend.IsAuthFailure(err):
		h.log.InfoContext(r.Context(), "management.token.rejected", "path", r.URL.Path, "err", err)
		h.endSession(w, r)
	case errors.Is(err, ErrProfilePending):
		w.Header().Set("Retry-After", "1")
		httpjson.WriteError(w, http.StatusServiceUnavailable, "profile_pending", "account profile is still loading")
	case errors.Is(err, ErrRestricted):
		httpjson.WriteError(w, http.StatusForbidden, "forbidden", "not available for this account")
	case errors.Is(err, backend.ErrForbidden):
		h.log.InfoContext(r.Context(), "management.backend.forbidden", "path", r.URL.Path)
		httpjson.WriteError(w, http.StatusForbidden, "forbidden", backend.Message(err, "not available for this account"))
	case errors.Is(err, ErrDecided):
		httpjson.WriteError(w, http.StatusConflict, "already_decided", "leave request was already decided")
	case errors.As(err, &ie):
		httpjson.WriteErrorBody(w, http.StatusBadRequest, httpjson.Error{Code: "invalid_request", Message: ie.Message, Field: ie.Field})
	case errors.Is(err, backend.ErrNotFound):
		httpjson.WriteError(w, http.StatusNotFound, "not_found", backend.Message(err, "not found"))
	case errors.Is(err, backend.ErrBadRequest):
		httpjson.WriteError(w, http.StatusBadRequest, "rejected", backend.Message(err, "request rejected"))
	case errors.Is(err, context.Canceled):
		h.log.DebugContext(r.Context(), "management.request.canceled", "path", r.URL.Path)
	default:
		h.log.ErrorContext(r.Context(), "management.backend.fail", "path", r.URL.Path, "err", err)
		httpjson.WriteError(w, http.StatusBadGateway, "backend_unavailable", backend.Message(err, "backend unavailable"))
	}
}

func listHandler[T any](h *Handler, list func(context.Context, session.Snapshot) ([]T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := list(r.Context(), h.snapshot(r))
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeData(w, http.StatusOK, items)
	}
}

func getHandler[T any](h *Handler, get func(context.Context, session.Snapshot, string) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		item, err := get(r.Context(), h.snapshot(r), chi.URLParam(r, "id"))
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeData(w, http.StatusOK, item)
	}
}

// saveHandler creates on POST (no id) and updates on PUT.
func saveHandler[In any, T any](h *Handler, save func(context.Context, session.Snapshot, string, In) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in In
		if err := httpjson.Decode(w, r, maxBodyBytes, &in); err != nil {
			httpjson.WriteError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
			return
		}
		id := chi.URLParam(r, "id")
		item, err := save(r.Context(), h.snapshot(r), id, in)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		status := http.StatusOK
		if id == "" {
			status = http.StatusCreated
		}
		writeData(w, status, item)
	}
}

func deleteHandler(h *Handler, del func(context.Context, session.Snapshot, string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := del(r.Context(), h.snapshot(r), chi.URLParam(r, "id")); err != nil {
			h.fail(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handler) saveEmployee(ctx context.Context, snap session.Snapshot, id string, in EmployeeForm) (backend.Employee, error) {
	if id == "" {
		return h.svc.CreateEmployee(ctx, snap, in)
	}
	return h.svc.UpdateEmployee(ctx, snap, id, in)
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Dashboard(r.Context(), h.snapshot(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, d)
}

func (h *Handler) handleLeaveList(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.LeaveRequests(r.Context(), h.snapshot(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, items)
}

func (h *Handler) handleCalendarDay(w http.ResponseWriter, r *http.Request) {
	day := h.svc.today()
	if v := r.URL.Query().Get("date"); v != "" {
		t, err := time.ParseInLocation(dateLayout, v, h.svc.cfg.Location)
		if err != nil {
			httpjson.WriteError(w, http.StatusBadRequest, "invalid_request", "date must be YYYY-MM-DD")
			return
		}
		day = t
	}
	out, err := h.svc.Day(r.Context(), h.snapshot(r), day)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, out)
}

// monthParam reads ?month=YYYY-MM, defaulting to the current month.
func (h *Handler) monthParam(w http.ResponseWriter, r *http.Request) (int, time.Month, bool) {
	v := r.URL.Query().Get("month")
	if v == "" {
		now := h.svc.today()
		return now.Year(), now.Month(), true
	}
	year, month, ok := ParseMonth(v)
	if !ok {
		httpjson.WriteError(w, http.StatusBadRequest, "invalid_request", "month must be YYYY-MM")
	}
	return year, month, ok
}

func (h *Handler) handleCalendarMonth(w http.ResponseWriter, r *http.Request) {
	year, month, ok := h.monthParam(w, r)
	if !ok {
		return
	}
	out, err := h.svc.Month(r.Context(), h.snapshot(r), year, month)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, out)
}

func (h *Handler) handlePayroll(w http.ResponseWriter, r *http.Request) {
	year, month, ok := h.monthParam(w, r)
	if !ok {
		return
	}
	out, err := h.svc.Payroll(r.Context(), h.snapshot(r), year, month)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, out)
}

func (h *Handler) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.Analytics(r.Context(), h.snapshot(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeData(w, http.StatusOK, out)
}
