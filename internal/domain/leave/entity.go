package leave

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/employee"
	"github.com/shopspring/decimal"
)

// LeaveType entity
type LeaveType struct {
	ID                 string
	CompanyID          string
	Code               string
	Name               string
	IsPaid             bool
	IsActive           bool
	DefaultDaysPerYear decimal.Decimal
	// GenderRestriction limits the type to one gender, e.g. maternity.
	GenderRestriction *employee.Gender

	CreatedAt time.Time
	UpdatedAt time.Time
}

// EligibleFor reports whether emp may hold a balance of this type.
func (t LeaveType) EligibleFor(emp employee.Employee) bool {
	if !t.IsActive {
		return false
	}
	if t.GenderRestriction == nil {
		return true
	}
	return *t.GenderRestriction == emp.Gender
}

// Balance is one employee's entitlement for a leave type in a year.
type Balance struct {
	ID             string
	EmployeeID     string
	LeaveTypeID    string
	Year           int
	EntitledDays   decimal.Decimal
	UsedDays       decimal.Decimal
	CarriedForward decimal.Decimal

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (b Balance) Available() decimal.Decimal {
	return b.EntitledDays.Add(b.CarriedForward).Sub(b.UsedDays)
}

type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusApproved  RequestStatus = "approved"
	RequestStatusRejected  RequestStatus = "rejected"
	RequestStatusCancelled RequestStatus = "cancelled"
)

func ParseRequestStatus(s string) (RequestStatus, error) {
	switch RequestStatus(s) {
	case RequestStatusPending, RequestStatusApproved, RequestStatusRejected, RequestStatusCancelled:
		return RequestStatus(s), nil
	}
	return "", fmt.Errorf("unknown leave request status %q", s)
}

// Request is a leave application. TotalDays counts working days only.
type Request struct {
	ID          string
	CompanyID   string
	EmployeeID  string
	LeaveTypeID string

	StartDate time.Time
	EndDate   time.Time
	TotalDays decimal.Decimal
	Reason    string

	Status          RequestStatus
	DecidedBy       *string
	DecidedAt       *time.Time
	RejectionReason *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Holiday is a public holiday; CompanyID nil means it applies to every tenant.
type Holiday struct {
	ID        string
	CompanyID *string
	Date      time.Time
	Year      int
	Name      string
}
