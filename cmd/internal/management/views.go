package management

import (
	"context"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"methodius/cmd/internal/auth/session"
	"methodius/cmd/internal/backend"
)

const recentHires = 5

// Dashboard is the landing view.
type Dashboard struct {
	Greeting        string             `json:"greeting"`
	TotalEmployees  int                `json:"totalEmployees"`
	ActiveEmployees int                `json:"activeEmployees"`
	NewThisMonth    int                `json:"newThisMonth"`
	RecentHires     []backend.Employee `json:"recentHires"`
}

// Dashboard summarises the workforce. Active means a set employment status
// other than Terminated.
func (s *Service) Dashboard(ctx context.Context, snap session.Snapshot) (Dashboard, error) {
	emps, err := s.employees(ctx, snap.Token)
	if err != nil {
		return Dashboard{}, err
	}

	thisMonth := s.today().Format("2006-01")
	d := Dashboard{
		Greeting:       snap.DisplayName(),
		TotalEmployees: len(emps),
		RecentHires:    []backend.Employee{},
	}

	type hire struct {
		day string
		emp backend.Employee
	}
	var hires []hire
	for _, e := range emps {
		if e.EmploymentStatus != "" && e.EmploymentStatus != backend.EmploymentTerminated {
			d.ActiveEmployees++
		}
		day, ok := calendarDay(e.DateOfJoining, s.cfg.Location)
		if !ok {
			continue
		}
		if strings.HasPrefix(day, thisMonth) {
			d.NewThisMonth++
		}
		hires = append(hires, hire{day: day, emp: e})
	}

	sort.SliceStable(hires, func(i, j int) bool { return hires[i].day > hires[j].day })
	for i := 0; i < len(hires) && i < recentHires; i++ {
		d.RecentHires = append(d.RecentHires, hires[i].emp)
	}
	return d, nil
}

// ---- calendar ----

// CalendarDay lists what happens on one day: events whose date range contains
// it and approved leave covering it.
type CalendarDay struct {
	Date   string                 `json:"date"`
	Events []backend.Event        `json:"events"`
	Leaves []backend.LeaveRequest `json:"leaves"`
}

// DayMark flags a day of a month view.
type DayMark struct {
	Date      string `json:"date"`
	HasEvents bool   `json:"hasEvents"`
	HasLeaves bool   `json:"hasLeaves"`
}

// CalendarMonth lists the marked days of one month.
type CalendarMonth struct {
	Month string    `json:"month"`
	Days  []DayMark `json:"days"`
}

func isApproved(lr backend.LeaveRequest) bool {
	return strings.EqualFold(strings.TrimSpace(lr.LeaveStatus), backend.LeaveApproved)
}

func (s *Service) calendarData(ctx context.Context, tok string) ([]backend.Event, []backend.LeaveRequest, error) {
	var (
		events []backend.Event
		leaves []backend.LeaveRequest
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		events, err = s.events(gctx, tok)
		return err
	})
	g.Go(func() error {
		var err error
		leaves, err = s.leaveRequests(gctx, tok)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return events, leaves, nil
}

// Day builds the calendar view of day.
func (s *Service) Day(ctx context.Context, snap session.Snapshot, day time.Time) (CalendarDay, error) {
	events, leaves, err := s.calendarData(ctx, snap.Token)
	if err != nil {
		return CalendarDay{}, err
	}

	key := day.Format(dateLayout)
	out := CalendarDay{Date: key, Events: []backend.Event{}, Leaves: []backend.LeaveRequest{}}
	for _, ev := range events {
		if spans(ev.StartDate, ev.EndDate, key, s.cfg.Location) {
			out.Events = append(out.Events, ev)
		}
	}
	for _, lr := range leaves {
		if isApproved(lr) && spans(lr.StartDate, lr.EndDate, key, s.cfg.Location) {
			out.Leaves = append(out.Leaves, lr)
		}
	}
	return out, nil
}

// Month marks the days of a month that have events or approved leave.
func (s *Service) Month(ctx context.Context, snap session.Snapshot, year int, month time.Month) (CalendarMonth, error) {
	events, leaves, err := s.calendarData(ctx, snap.Token)
	if err != nil {
		return CalendarMonth{}, err
	}

	out := CalendarMonth{
		Month: time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Format("2006-01"),
		Days:  []DayMark{},
	}
	for d := 1; d <= daysIn(year, month); d++ {
		key := time.Date(year, month, d, 0, 0, 0, 0, time.UTC).Format(dateLayout)
		mark := DayMark{Date: key}
		for _, ev := range events {
			if spans(ev.StartDate, ev.EndDate, key, s.cfg.Location) {
				mark.HasEvents = true
				break
			}
		}
		for _, lr := range leaves {
			if isApproved(lr) && spans(lr.StartDate, lr.EndDate, key, s.cfg.Location) {
				mark.HasLeaves = true
				break
			}
		}
		if mark.HasEvents || mark.HasLeaves {
			out.Days = append(out.Days, mark)
		}
	}
	return out, nil
}

// ---- payroll ----

// PayrollLine is one contract's share of a payroll run.
type PayrollLine struct {
	Contract string  `json:"contract"`
	Employee string  `json:"employee"`
	Title    string  `json:"title"`
	Gross    float64 `json:"gross"`
	Net      float64 `json:"net"`
	Taxes    float64 `json:"taxes"`
}

// PayrollTotals sums a payroll run. Taxes are gross minus net.
type PayrollTotals struct {
	Gross float64 `json:"gross"`
	Net   float64 `json:"net"`
	Taxes float64 `json:"taxes"`
}

// Payroll is the payroll summary of one month.
type Payroll struct {
	Month       string        `json:"month"`
	PaymentDate string        `json:"paymentDate"`
	Totals      PayrollTotals `json:"totals"`
	Lines       []PayrollLine `json:"lines"`
}

func payrollTotals(contracts []backend.Contract) (PayrollTotals, []PayrollLine) {
	var t PayrollTotals
	lines := make([]PayrollLine, 0, len(contracts))
	for _, c := range contracts {
		line := PayrollLine{
			Contract: c.DocumentID,
			Title:    c.Title,
			Gross:    c.GrossSalary,
			Net:      c.NetSalary,
			Taxes:    c.GrossSalary - c.NetSalary,
		}
		if c.Employee != nil {
			line.Employee = c.Employee.FullName()
		}
		t.Gross += line.Gross
		t.Net += line.Net
		lines = append(lines, line)
	}
	t.Taxes = t.Gross - t.Net
	return t, lines
}

// Payroll summarises every contract for the given month.
func (s *Service) Payroll(ctx context.Context, snap session.Snapshot, year int, month time.Month) (Payroll, error) {
	if err := requirePrivileged(snap); err != nil {
		return Payroll{}, err
	}
	contracts, err := s.contracts(ctx, snap.Token)
	if err != nil {
		return Payroll{}, err
	}
	totals, lines := payrollTotals(contracts)
	return Payroll{
		Month:       time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Format("2006-01"),
		PaymentDate: PayrollDate(year, month, s.cfg.Location).Format(dateLayout),
		Totals:      totals,
		Lines:       lines,
	}, nil
}

// ---- analytics ----

// Analytics is the company overview.
type Analytics struct {
	TotalEmployees       int            `json:"totalEmployees"`
	TotalLeaveRequests   int            `json:"totalLeaveRequests"`
	PendingRequests      int            `json:"pendingRequests"`
	TotalContracts       int            `json:"totalContracts"`
	EmployeesPerPosition map[string]int `json:"employeesPerPosition"`
	LeavePerStatus       map[string]int `json:"leaveRequestsPerStatus"`
	Payroll              PayrollTotals  `json:"payroll"`
}

// Analytics loads employees, leave requests and contracts concurrently and
// aggregates them.
func (s *Service) Analytics(ctx context.Context, snap session.Snapshot) (Analytics, error) {
	if err := requirePrivileged(snap); err != nil {
		return Analytics{}, err
	}

	var (
		emps      []backend.Employee
		leaves    []backend.LeaveRequest
		contracts []backend.Contract
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		emps, err = s.employees(gctx, snap.Token)
		return err
	})
	g.Go(func() (err error) {
		leaves, err = s.leaveRequests(gctx, snap.Token)
		return err
	})
	g.Go(func() (err error) {
		contracts, err = s.contracts(gctx, snap.Token)
		return err
	})
	if err := g.Wait(); err != nil {
		return Analytics{}, err
	}

	a := Analytics{
		TotalEmployees:       len(emps),
		TotalLeaveRequests:   len(leaves),
		TotalContracts:       len(contracts),
		EmployeesPerPosition: map[string]int{},
		LeavePerStatus:       map[string]int{},
	}
	for _, e := range emps {
		pos := e.Position
		if pos == "" {
			pos = "Unspecified"
		}
		a.EmployeesPerPosition[pos]++
	}
	for _, lr := range leaves {
		if strings.ToLower(lr.LeaveStatus) == "pending" {
			a.PendingRequests++
		}
		status := lr.LeaveStatus
		if status == "" {
			status = backend.LeavePending
		}
		a.LeavePerStatus[status]++
	}
	a.Payroll, _ = payrollTotals(contracts)
	return a, nil
}
