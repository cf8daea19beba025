package attendance

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Schedule is the planned shift of one employee on one date. ShiftEnd
// earlier than ShiftStart means the shift ends the next day.
type Schedule struct {
	ID           string
	CompanyID    string
	EmployeeID   string
	WorkDate     time.Time
	ShiftStart   TimeOfDay
	ShiftEnd     TimeOfDay
	BreakMinutes int
	IsRestDay    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (s Schedule) Overnight() bool {
	return s.ShiftEnd < s.ShiftStart
}

// ClockRecord holds the punches of one employee on one work date. The
// second pair is used when a break is recorded.
type ClockRecord struct {
	ID         string
	CompanyID  string
	EmployeeID string
	WorkDate   time.Time

	ClockIn1  *TimeOfDay
	ClockOut1 *TimeOfDay
	ClockIn2  *TimeOfDay
	ClockOut2 *TimeOfDay

	TotalWorkMinutes int
	TotalWorkHours   decimal.Decimal
	OTMinutes        int
	OTHours          decimal.Decimal
	OTFlagged        bool
	// OTApproved is nil while pending.
	OTApproved *bool

	LateMinutes  int
	EarlyMinutes int
	Status       Status

	CreatedAt time.Time
	UpdatedAt time.Time
}

// OTPayable reports whether the record's OT may be paid.
func (r ClockRecord) OTPayable(requiresApproval bool) bool {
	if r.OTMinutes == 0 {
		return false
	}
	if !requiresApproval {
		return r.OTApproved == nil || *r.OTApproved
	}
	return r.OTApproved != nil && *r.OTApproved
}

type Status string

const (
	StatusPresent    Status = "present"
	StatusLate       Status = "late"
	StatusLeftEarly  Status = "left_early"
	StatusWrongShift Status = "wrong_shift"
	StatusNoSchedule Status = "no_schedule"
	StatusAbsent     Status = "absent"
	StatusInProgress Status = "in_progress"
)

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPresent, StatusLate, StatusLeftEarly, StatusWrongShift,
		StatusNoSchedule, StatusAbsent, StatusInProgress:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown attendance status %q", s)
}

// Payable reports whether a record with this status can contribute to pay.
func (s Status) Payable() bool {
	switch s {
	case StatusPresent, StatusLate, StatusLeftEarly, StatusNoSchedule:
		return true
	}
	return false
}

// Policy carries the company attendance and proration settings.
type Policy struct {
	GraceMinutes               int
	WrongShiftToleranceMinutes int
	WorkDaysPerMonth           decimal.Decimal
	WorkHoursPerDay            decimal.Decimal
}

// WorkResult is the output of the time arithmetic for one record.
type WorkResult struct {
	TotalMinutes int
	TotalHours   decimal.Decimal
	OTMinutes    int
	OTHours      decimal.Decimal
	InProgress   bool
}

// Evaluation is the late/early outcome of one record against its schedule.
type Evaluation struct {
	LateMinutes     int             `json:"late_minutes"`
	EarlyMinutes    int             `json:"early_minutes"`
	DeductionAmount decimal.Decimal `json:"deduction_amount"`
	Status          Status          `json:"status"`
}

// ClockAction selects which punch slot a clock request fills.
type ClockAction string

const (
	ActionIn         ClockAction = "in"
	ActionBreakStart ClockAction = "break_start"
	ActionBreakEnd   ClockAction = "break_end"
	ActionOut        ClockAction = "out"
)

func ParseClockAction(s string) (ClockAction, error) {
	switch ClockAction(s) {
	case ActionIn, ActionBreakStart, ActionBreakEnd, ActionOut:
		return ClockAction(s), nil
	case "":
		return "", nil
	}
	return "", fmt.Errorf("unknown clock action %q", s)
}
