package leave

import (
	"time"

	"github.com/cmlabs-hris/hrms-payroll-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

type CreateLeaveRequestRequest struct {
	EmployeeID  string `json:"employee_id"`
	LeaveTypeID string `json:"leave_type_id"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Reason      string `json:"reason"`

	start time.Time
	end   time.Time
}

func (r *CreateLeaveRequestRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "employee_id is required"})
	}
	if validator.IsEmpty(r.LeaveTypeID) {
		errs = append(errs, validator.ValidationError{Field: "leave_type_id", Message: "leave_type_id is required"})
	}

	start, okStart := validator.IsValidDate(r.StartDate)
	if !okStart {
		errs = append(errs, validator.ValidationError{Field: "start_date", Message: "must be YYYY-MM-DD"})
	}
	end, okEnd := validator.IsValidDate(r.EndDate)
	if !okEnd {
		errs = append(errs, validator.ValidationError{Field: "end_date", Message: "must be YYYY-MM-DD"})
	}
	if okStart && okEnd {
		if end.Before(start) {
			errs = append(errs, validator.ValidationError{Field: "end_date", Message: "must not be before start_date"})
		} else if end.Year() != start.Year() {
			errs = append(errs, validator.ValidationError{Field: "end_date", Message: "must be in the same year as start_date"})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	r.start, r.end = start, end
	return nil
}

// Dates returns the parsed range; valid after Validate.
func (r *CreateLeaveRequestRequest) Dates() (time.Time, time.Time) {
	return r.start, r.end
}

type InitializeBalancesRequest struct {
	EmployeeID string `json:"employee_id"`
	Year       int    `json:"year"`
}

func (r InitializeBalancesRequest) Validate() error {
	var errs validator.ValidationErrors
	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "employee_id is required"})
	}
	if r.Year < 2000 || r.Year > 2100 {
		errs = append(errs, validator.ValidationError{Field: "year", Message: "year is out of range"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

type RejectLeaveRequestRequest struct {
	Reason string `json:"reason"`
}

func (r RejectLeaveRequestRequest) Validate() error {
	if validator.IsEmpty(r.Reason) {
		return validator.ValidationErrors{{Field: "reason", Message: "reason is required"}}
	}
	return nil
}

type LeaveRequestResponse struct {
	ID              string          `json:"id"`
	EmployeeID      string          `json:"employee_id"`
	LeaveTypeID     string          `json:"leave_type_id"`
	StartDate       string          `json:"start_date"`
	EndDate         string          `json:"end_date"`
	TotalDays       decimal.Decimal `json:"total_days"`
	Reason          string          `json:"reason,omitempty"`
	Status          RequestStatus   `json:"status"`
	RejectionReason *string         `json:"rejection_reason,omitempty"`
}

func NewLeaveRequestResponse(r Request) LeaveRequestResponse {
	return LeaveRequestResponse{
		ID:              r.ID,
		EmployeeID:      r.EmployeeID,
		LeaveTypeID:     r.LeaveTypeID,
		StartDate:       r.StartDate.Format("2006-01-02"),
		EndDate:         r.EndDate.Format("2006-01-02"),
		TotalDays:       r.TotalDays,
		Reason:          r.Reason,
		Status:          r.Status,
		RejectionReason: r.RejectionReason,
	}
}

type BalanceResponse struct {
	LeaveTypeID    string          `json:"leave_type_id"`
	Year           int             `json:"year"`
	EntitledDays   decimal.Decimal `json:"entitled_days"`
	UsedDays       decimal.Decimal `json:"used_days"`
	CarriedForward decimal.Decimal `json:"carried_forward"`
	Available      decimal.Decimal `json:"available"`
}

func NewBalanceResponse(b Balance) BalanceResponse {
	return BalanceResponse{
		LeaveTypeID:    b.LeaveTypeID,
		Year:           b.Year,
		EntitledDays:   b.EntitledDays,
		UsedDays:       b.UsedDays,
		CarriedForward: b.CarriedForward,
		Available:      b.Available(),
	}
}
