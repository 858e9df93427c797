package backend

// Enumerations used by the backend's content types.
const (
	EmploymentFullTime   = "Full-Time"
	EmploymentPartTime   = "Part-Time"
	EmploymentIntern     = "Intern"
	EmploymentContractor = "Contractor"
	EmploymentTerminated = "Terminated"

	LeaveSick     = "Sick Leave"
	LeaveVacation = "Vacation"
	LeavePersonal = "Personal Leave"

	LeavePending  = "Pending"
	LeaveApproved = "Approved"
	LeaveDeclined = "Declined"

	ContractActive     = "Active"
	ContractTerminated = "Terminated"
	ContractPending    = "Pending"

	EventMeeting  = "Meeting"
	EventDeadline = "Deadline"
	EventHoliday  = "Holiday"
	EventOther    = "Other"
)

// User is the backend's users-permissions account.
type User struct {
	ID         int    `json:"id"`
	DocumentID string `json:"documentId"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Provider   string `json:"provider,omitempty"`
	Confirmed  bool   `json:"confirmed"`
	Blocked    bool   `json:"blocked"`
	CreatedAt  string `json:"createdAt,omitempty"`
	UpdatedAt  string `json:"updatedAt,omitempty"`
}

// Media is an uploaded file reference.
type Media struct {
	ID   int    `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
	URL  string `json:"url"`
}

// Employee is an employees entry. Dates are YYYY-MM-DD strings.
type Employee struct {
	ID               int    `json:"id"`
	DocumentID       string `json:"documentId"`
	FirstName        string `json:"firstName"`
	LastName         string `json:"lastName"`
	PhoneNumber      string `json:"phoneNumber,omitempty"`
	Position         string `json:"position,omitempty"`
	Department       string `json:"department,omitempty"`
	DateOfJoining    string `json:"dateOfJoining,omitempty"`
	DateOfBirth      string `json:"dateOfBirth,omitempty"`
	Address          string `json:"address,omitempty"`
	EmploymentStatus string `json:"employmentStatus,omitempty"`
	Bio              string `json:"bio,omitempty"`
	Picture          *Media `json:"picture,omitempty"`
	User             *User  `json:"user,omitempty"`
}

// FullName returns "First Last".
func (e Employee) FullName() string {
	switch {
	case e.FirstName == "":
		return e.LastName
	case e.LastName == "":
		return e.FirstName
	default:
		return e.FirstName + " " + e.LastName
	}
}

// LeaveRequest is a leave-requests entry.
type LeaveRequest struct {
	ID          int       `json:"id"`
	DocumentID  string    `json:"documentId"`
	LeaveType   string    `json:"leaveType"`
	StartDate   string    `json:"startDate"`
	EndDate     string    `json:"endDate"`
	TotalHours  float64   `json:"totalHours"`
	Reason      string    `json:"reason,omitempty"`
	LeaveStatus string    `json:"leaveStatus,omitempty"`
	Employee    *Employee `json:"employee,omitempty"`
}

// Contract is a contracts entry.
type Contract struct {
	ID             int       `json:"id"`
	DocumentID     string    `json:"documentId"`
	Title          string    `json:"title"`
	GrossSalary    float64   `json:"grossSalary"`
	NetSalary      float64   `json:"netSalary"`
	ContractStatus string    `json:"contractStatus,omitempty"`
	Notes          string    `json:"notes,omitempty"`
	File           *Media    `json:"file,omitempty"`
	Employee       *Employee `json:"employee,omitempty"`
}

// Event is an events entry. Start and end are RFC 3339 timestamps or dates.
type Event struct {
	ID          int       `json:"id"`
	DocumentID  string    `json:"documentId"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	EventType   string    `json:"eventType"`
	StartDate   string    `json:"startDate"`
	EndDate     string    `json:"endDate"`
	IsAllDay    bool      `json:"isAllDay"`
	Employee    *Employee `json:"employee,omitempty"`
}

// EmployeeInput is the writable shape of an employee.
type EmployeeInput struct {
	FirstName        string   `json:"firstName" validate:"required,min=2,max=100"`
	LastName         string   `json:"lastName" validate:"required,min=2,max=100"`
	PhoneNumber      string   `json:"phoneNumber,omitempty" validate:"omitempty,max=40"`
	Position         string   `json:"position,omitempty" validate:"omitempty,max=100"`
	Department       string   `json:"department,omitempty" validate:"omitempty,max=100"`
	DateOfJoining    string   `json:"dateOfJoining" validate:"required,datetime=2006-01-02"`
	DateOfBirth      string   `json:"dateOfBirth" validate:"required,datetime=2006-01-02"`
	Address          string   `json:"address,omitempty" validate:"omitempty,max=255"`
	EmploymentStatus string   `json:"employmentStatus,omitempty" validate:"omitempty,oneof='Full-Time' 'Part-Time' 'Intern' 'Contractor'"`
	Bio              string   `json:"bio,omitempty"`
	Picture          *int     `json:"picture,omitempty"`
	User             *Connect `json:"user,omitempty"`
}

// LeaveRequestInput is the writable shape of a leave request. Employee is the
// employee's document id.
type LeaveRequestInput struct {
	Employee    string  `json:"employee" validate:"required"`
	LeaveType   string  `json:"leaveType" validate:"required,oneof='Sick Leave' 'Vacation' 'Personal Leave'"`
	StartDate   string  `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate     string  `json:"endDate" validate:"required,datetime=2006-01-02"`
	TotalHours  float64 `json:"totalHours" validate:"gt=0"`
	Reason      string  `json:"reason,omitempty" validate:"omitempty,max=1000"`
	LeaveStatus string  `json:"leaveStatus,omitempty" validate:"omitempty,oneof=Pending Approved Declined"`
}

// ContractInput is the writable shape of a contract.
type ContractInput struct {
	Employee       string  `json:"employee" validate:"required"`
	Title          string  `json:"title" validate:"required,max=200"`
	GrossSalary    float64 `json:"grossSalary" validate:"gt=0"`
	NetSalary      float64 `json:"netSalary" validate:"gt=0,ltefield=GrossSalary"`
	ContractStatus string  `json:"contractStatus,omitempty" validate:"omitempty,oneof=Active Terminated Pending"`
	Notes          string  `json:"notes,omitempty" validate:"omitempty,max=2000"`
	File           *int    `json:"file,omitempty"`
}

// Connect is a relation connect payload.
type Connect struct {
	Connect []string `json:"connect"`
}

// EventInput is the writable shape of an event.
type EventInput struct {
	Title       string   `json:"title" validate:"required,max=200"`
	Description *string  `json:"description"`
	EventType   string   `json:"eventType" validate:"required,oneof=Meeting Deadline Holiday Other"`
	StartDate   string   `json:"startDate" validate:"required"`
	EndDate     string   `json:"endDate" validate:"required"`
	IsAllDay    bool     `json:"isAllDay"`
	Employee    *Connect `json:"employee,omitempty"`
}

// RegisterInput creates a users-permissions account.
type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=100"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=200"`
}

// UserUpdate changes an account. Empty fields are left out.
type UserUpdate struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
}

// AuthResult is the backend's response to a successful authentication.
type AuthResult struct {
	JWT  string `json:"jwt"`
	User User   `json:"user"`
}

// Pagination is the meta.pagination block of list responses.
type Pagination struct {
	Page      int `json:"page"`
	PageSize  int `json:"pageSize"`
	PageCount int `json:"pageCount"`
	Total     int `json:"total"`
}

// Meta is the meta block of list responses.
type Meta struct {
	Pagination Pagination `json:"pagination"`
}

type listEnvelope[T any] struct {
	Data []T `json:"data"`
	Meta Meta `json:"meta"`
}

type itemEnvelope[T any] struct {
	Data T `json:"data"`
}

type writeEnvelope[T any] struct {
	Data T `json:"data"`
}

type errorEnvelope struct {
	Error struct {
		Status  int    `json:"status"`
		Name    string `json:"name"`
		Message string `json:"message"`
	} `json:"error"`
}
