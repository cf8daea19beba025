package attendance

import (
	"time"

	"github.com/cmlabs-hris/hrms-payroll-go/internal/pkg/validator"
)

type ClockRequest struct {
	EmployeeID string `json:"employee_id"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	Action     string `json:"action,omitempty"`
}

func (r *ClockRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{Field: "employee_id", Message: "employee_id is required"})
	}
	if _, ok := validator.IsValidDate(r.Date); !ok {
		errs = append(errs, validator.ValidationError{Field: "date", Message: "date must be YYYY-MM-DD"})
	}
	if _, err := ParseTimeOfDay(r.Time); err != nil {
		errs = append(errs, validator.ValidationError{Field: "time", Message: "time must be HH:MM"})
	}
	if _, err := ParseClockAction(r.Action); err != nil {
		errs = append(errs, validator.ValidationError{Field: "action", Message: "action must be one of in, break_start, break_end, out"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Parsed returns the typed values; call after Validate.
func (r *ClockRequest) Parsed() (time.Time, TimeOfDay, ClockAction) {
	d, _ := time.Parse("2006-01-02", r.Date)
	t, _ := ParseTimeOfDay(r.Time)
	a, _ := ParseClockAction(r.Action)
	return d, t, a
}

type ScheduleResponse struct {
	ShiftStart   TimeOfDay `json:"shift_start"`
	ShiftEnd     TimeOfDay `json:"shift_end"`
	BreakMinutes int       `json:"break_minutes"`
}

type ClockResponse struct {
	AttendanceStatus Status            `json:"attendance_status"`
	Schedule         *ScheduleResponse `json:"schedule,omitempty"`
	RejectionReason  *string           `json:"rejection_reason,omitempty"`
	RecordID         *string           `json:"record_id,omitempty"`
	Slot             *string           `json:"slot,omitempty"`
}

type ClockRecordResponse struct {
	ID               string     `json:"id"`
	EmployeeID       string     `json:"employee_id"`
	WorkDate         string     `json:"work_date"`
	ClockIn1         *TimeOfDay `json:"clock_in_1"`
	ClockOut1        *TimeOfDay `json:"clock_out_1"`
	ClockIn2         *TimeOfDay `json:"clock_in_2"`
	ClockOut2        *TimeOfDay `json:"clock_out_2"`
	TotalWorkMinutes int        `json:"total_work_minutes"`
	TotalWorkHours   string     `json:"total_work_hours"`
	OTMinutes        int        `json:"ot_minutes"`
	OTHours          string     `json:"ot_hours"`
	OTFlagged        bool       `json:"ot_flagged"`
	OTApproved       *bool      `json:"ot_approved"`
	Status           Status     `json:"attendance_status"`
}

func NewClockRecordResponse(r ClockRecord) ClockRecordResponse {
	return ClockRecordResponse{
		ID:               r.ID,
		EmployeeID:       r.EmployeeID,
		WorkDate:         r.WorkDate.Format("2006-01-02"),
		ClockIn1:         r.ClockIn1,
		ClockOut1:        r.ClockOut1,
		ClockIn2:         r.ClockIn2,
		ClockOut2:        r.ClockOut2,
		TotalWorkMinutes: r.TotalWorkMinutes,
		TotalWorkHours:   r.TotalWorkHours.StringFixed(2),
		OTMinutes:        r.OTMinutes,
		OTHours:          r.OTHours.StringFixed(2),
		OTFlagged:        r.OTFlagged,
		OTApproved:       r.OTApproved,
		Status:           r.Status,
	}
}
