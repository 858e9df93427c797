package management

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"methodius/cmd/internal/auth/session"
	"methodius/cmd/internal/backend"
	"methodius/cmd/security/password"
)

const (
	collEmployees = "employees"
	collLeave     = "leave-requests"
	collContracts = "contracts"
	collEvents    = "events"
)

// Service runs the management views against the backend.
type Service struct {
	api      *backend.Client
	cfg      Config
	cache    *listCache
	validate *validator.Validate
	log      *slog.Logger
	now      func() time.Time
}

// NewService builds a Service over api.
func NewService(api *backend.Client, cfg Config, log *slog.Logger) (*Service, error) {
	if api == nil {
		return nil, errors.New("management: missing backend client")
	}
	if log == nil {
		log = slog.Default()
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultConfig().CacheTTL
	}
	if cfg.Password == (password.Policy{}) {
		cfg.Password = password.DefaultPolicy()
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return &Service{
		api:      api,
		cfg:      cfg,
		cache:    newListCache(cfg.CacheSize, cfg.CacheTTL),
		validate: v,
		log:      log,
		now:      time.Now,
	}, nil
}

// Purge drops every cached list. Call it when the session ends.
func (s *Service) Purge() { s.cache.purge() }

func (s *Service) today() time.Time { return s.now().In(s.cfg.Location) }

// check validates in and reports the first rejected field.
func (s *Service) check(in any) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) || len(ves) == 0 {
		return &InputError{Message: err.Error()}
	}
	fe := ves[0]
	return &InputError{Field: fe.Field(), Message: fieldMessage(fe)}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "email":
		return "must be a valid email"
	case "datetime":
		return "must be a date (YYYY-MM-DD)"
	case "oneof":
		return "must be one of " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "ltefield":
		return "must not exceed " + fe.Param()
	default:
		return "is invalid"
	}
}

func isLinked(snap session.Snapshot) bool { return snap.Profile != nil }

// identityKnown fails until the linked-profile lookup after login has settled.
func identityKnown(snap session.Snapshot) error {
	if snap.ProfilePending {
		return ErrProfilePending
	}
	return nil
}

func requirePrivileged(snap session.Snapshot) error {
	if err := identityKnown(snap); err != nil {
		return err
	}
	if isLinked(snap) {
		return ErrRestricted
	}
	return nil
}

// ---- loaders ----

func (s *Service) employees(ctx context.Context, tok string) ([]backend.Employee, error) {
	return cachedList(ctx, s.cache, collEmployees, tok, func(ctx context.Context, tok string) ([]backend.Employee, error) {
		return s.api.Employees.ListAll(ctx, tok, nil)
	})
}

func (s *Service) leaveRequests(ctx context.Context, tok string) ([]backend.LeaveRequest, error) {
	return cachedList(ctx, s.cache, collLeave, tok, func(ctx context.Context, tok string) ([]backend.LeaveRequest, error) {
		return s.api.LeaveRequests.ListAll(ctx, tok, nil)
	})
}

func (s *Service) contracts(ctx context.Context, tok string) ([]backend.Contract, error) {
	return cachedList(ctx, s.cache, collContracts, tok, func(ctx context.Context, tok string) ([]backend.Contract, error) {
		return s.api.Contracts.ListAll(ctx, tok, nil)
	})
}

func (s *Service) events(ctx context.Context, tok string) ([]backend.Event, error) {
	return cachedList(ctx, s.cache, collEvents, tok, func(ctx context.Context, tok string) ([]backend.Event, error) {
		return s.api.Events.ListAll(ctx, tok, nil)
	})
}

// ---- employees ----

// EmployeeForm is an employee payload plus the optional login account for it.
type EmployeeForm struct {
	backend.EmployeeInput
	Email    string `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Password string `json:"password,omitempty"`
}

// Employees lists every employee.
func (s *Service) Employees(ctx context.Context, snap session.Snapshot) ([]backend.Employee, error) {
	return s.employees(ctx, snap.Token)
}

// Employee returns one employee.
func (s *Service) Employee(ctx context.Context, snap session.Snapshot, id string) (backend.Employee, error) {
	return s.api.Employees.Get(ctx, snap.Token, id)
}

// CreateEmployee stores a new employee. When the form carries an email and a
// password a login account is registered and linked to the employee.
func (s *Service) CreateEmployee(ctx context.Context, snap session.Snapshot, in EmployeeForm) (backend.Employee, error) {
	if err := s.checkEmployee(in); err != nil {
		return backend.Employee{}, err
	}
	in.EmployeeInput.User = nil

	emp, err := s.api.Employees.Create(ctx, snap.Token, in.EmployeeInput)
	if err != nil {
		return backend.Employee{}, err
	}
	s.cache.invalidate(collEmployees)

	if in.Email == "" || in.Password == "" {
		return emp, nil
	}
	return s.linkAccount(ctx, snap, emp.DocumentID, in)
}

// UpdateEmployee changes an employee. A password on an employee with an
// account resets that account's password; on one without, it registers one.
func (s *Service) UpdateEmployee(ctx context.Context, snap session.Snapshot, id string, in EmployeeForm) (backend.Employee, error) {
	if err := s.checkEmployee(in); err != nil {
		return backend.Employee{}, err
	}
	cur, err := s.api.Employees.Get(ctx, snap.Token, id)
	if err != nil {
		return backend.Employee{}, err
	}
	in.EmployeeInput.User = nil

	emp, err := s.api.Employees.Update(ctx, snap.Token, id, in.EmployeeInput)
	if err != nil {
		return backend.Employee{}, err
	}
	s.cache.invalidate(collEmployees)

	switch {
	case in.Password == "":
		return emp, nil
	case cur.User != nil && cur.User.ID != 0:
		if _, err := s.api.UpdateUser(ctx, snap.Token, cur.User.ID, backend.UserUpdate{Password: in.Password}); err != nil {
			return backend.Employee{}, err
		}
		s.log.InfoContext(ctx, "management.employee.password_reset", "employee", id)
		return emp, nil
	case in.Email != "":
		return s.linkAccount(ctx, snap, id, in)
	default:
		return emp, nil
	}
}

func (s *Service) checkEmployee(in EmployeeForm) error {
	if err := s.check(in); err != nil {
		return err
	}
	if in.Password == "" {
		return nil
	}
	if err := s.cfg.Password.Validate(in.Password); err != nil {
		return &InputError{Field: "password", Message: s.cfg.Password.Message(err)}
	}
	return nil
}

func (s *Service) linkAccount(ctx context.Context, snap session.Snapshot, employeeID string, in EmployeeForm) (backend.Employee, error) {
	reg, err := s.api.Register(ctx, backend.RegisterInput{
		Username: in.Email,
		Email:    in.Email,
		Password: in.Password,
	})
	if err != nil {
		return backend.Employee{}, fmt.Errorf("register employee account: %w", err)
	}

	link := in.EmployeeInput
	link.User = &backend.Connect{Connect: []string{reg.User.DocumentID}}
	emp, err := s.api.Employees.Update(ctx, snap.Token, employeeID, link)
	if err != nil {
		return backend.Employee{}, err
	}
	s.cache.invalidate(collEmployees)
	s.log.InfoContext(ctx, "management.employee.account_linked", "employee", employeeID, "account", reg.User.DocumentID)
	return emp, nil
}

// DeleteEmployee removes an employee.
func (s *Service) DeleteEmployee(ctx context.Context, snap session.Snapshot, id string) error {
	if err := s.api.Employees.Delete(ctx, snap.Token, id); err != nil {
		return err
	}
	s.cache.invalidate(collEmployees)
	return nil
}

// ---- contracts ----

// Contracts lists every contract.
func (s *Service) Contracts(ctx context.Context, snap session.Snapshot) ([]backend.Contract, error) {
	return s.contracts(ctx, snap.Token)
}

// Contract returns one contract.
func (s *Service) Contract(ctx context.Context, snap session.Snapshot, id string) (backend.Contract, error) {
	return s.api.Contracts.Get(ctx, snap.Token, id)
}

// SaveContract creates a contract, or updates it when id is set.
func (s *Service) SaveContract(ctx context.Context, snap session.Snapshot, id string, in backend.ContractInput) (backend.Contract, error) {
	if err := s.check(in); err != nil {
		return backend.Contract{}, err
	}
	var (
		c   backend.Contract
		err error
	)
	if id == "" {
		c, err = s.api.Contracts.Create(ctx, snap.Token, in)
	} else {
		c, err = s.api.Contracts.Update(ctx, snap.Token, id, in)
	}
	if err != nil {
		return backend.Contract{}, err
	}
	s.cache.invalidate(collContracts)
	return c, nil
}

// DeleteContract removes a contract.
func (s *Service) DeleteContract(ctx context.Context, snap session.Snapshot, id string) error {
	if err := s.api.Contracts.Delete(ctx, snap.Token, id); err != nil {
		return err
	}
	s.cache.invalidate(collContracts)
	return nil
}

// ---- events ----

// Events lists every event, earliest first.
func (s *Service) Events(ctx context.Context, snap session.Snapshot) ([]backend.Event, error) {
	return s.events(ctx, snap.Token)
}

// Event returns one event.
func (s *Service) Event(ctx context.Context, snap session.Snapshot, id string) (backend.Event, error) {
	return s.api.Events.Get(ctx, snap.Token, id)
}

// SaveEvent creates an event, or updates it when id is set.
func (s *Service) SaveEvent(ctx context.Context, snap session.Snapshot, id string, in backend.EventInput) (backend.Event, error) {
	if err := s.check(in); err != nil {
		return backend.Event{}, err
	}
	if err := s.checkRange("endDate", in.StartDate, in.EndDate); err != nil {
		return backend.Event{}, err
	}
	var (
		ev  backend.Event
		err error
	)
	if id == "" {
		ev, err = s.api.Events.Create(ctx, snap.Token, in)
	} else {
		ev, err = s.api.Events.Update(ctx, snap.Token, id, in)
	}
	if err != nil {
		return backend.Event{}, err
	}
	s.cache.invalidate(collEvents)
	return ev, nil
}

// DeleteEvent removes an event.
func (s *Service) DeleteEvent(ctx context.Context, snap session.Snapshot, id string) error {
	if err := s.api.Events.Delete(ctx, snap.Token, id); err != nil {
		return err
	}
	s.cache.invalidate(collEvents)
	return nil
}

// checkRange rejects an end before its start. Both must be dates or timestamps.
func (s *Service) checkRange(field, start, end string) error {
	from, ok := calendarDay(start, s.cfg.Location)
	if !ok {
		return &InputError{Field: "startDate", Message: "must be a date or timestamp"}
	}
	to, ok := calendarDay(end, s.cfg.Location)
	if !ok {
		return &InputError{Field: field, Message: "must be a date or timestamp"}
	}
	if to < from {
		return &InputError{Field: field, Message: "must not be before the start"}
	}
	if ts, err := time.Parse(time.RFC3339Nano, start); err == nil {
		if te, err := time.Parse(time.RFC3339Nano, end); err == nil && te.Before(ts) {
			return &InputError{Field: field, Message: "must not be before the start"}
		}
	}
	return nil
}
