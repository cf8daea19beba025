package attendance

import (
	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/pkg/money"
	"github.com/shopspring/decimal"
)

const (
	// StandardWorkMinutes is the 7.5 hour working day.
	StandardWorkMinutes = 450
	minOvertimeMinutes  = 60
	overtimeIncrement   = 30
)

// WorkOptions describe the employee and shift a record belongs to.
type WorkOptions struct {
	PartTime bool
	// OvernightShift applies the next-day reading to any span whose end is
	// earlier than its start, regardless of the early morning cut-off.
	OvernightShift bool
}

// Span returns the minutes from a to b. An end before the start is read as
// the next day only when it falls before 06:00 and the start is after noon,
// otherwise the span is zero.
func Span(a, b attendance.TimeOfDay) int {
	return span(a, b, false)
}

func span(a, b attendance.TimeOfDay, overnight bool) int {
	if b >= a {
		return int(b - a)
	}
	if overnight || (b < attendance.EarlyMorning && a > attendance.Noon) {
		return int(b) + attendance.MinutesPerDay - int(a)
	}
	return 0
}

// OvertimeMinutes applies the OT rule to a day's total: nothing under an
// hour over standard, otherwise rounded down to the half hour.
func OvertimeMinutes(totalMinutes int) int {
	raw := totalMinutes - StandardWorkMinutes
	if raw < minOvertimeMinutes {
		return 0
	}
	return raw - raw%overtimeIncrement
}

// MinutesToHours rounds minutes/60 to two decimals.
func MinutesToHours(minutes int) decimal.Decimal {
	return money.Cents(decimal.NewFromInt(int64(minutes)).Div(money.Sixty))
}

// ComputeWork derives worked and OT minutes from the punches of a record.
// Records without a final clock-out are reported in progress.
func ComputeWork(rec attendance.ClockRecord, opts WorkOptions) (attendance.WorkResult, error) {
	inProgress := attendance.WorkResult{InProgress: true, TotalHours: decimal.Zero, OTHours: decimal.Zero}

	if rec.ClockIn1 == nil {
		if rec.ClockOut1 != nil || rec.ClockIn2 != nil || rec.ClockOut2 != nil {
			return attendance.WorkResult{}, &attendance.DataInconsistencyError{RecordID: rec.ID, Detail: "clock-out recorded without clock-in"}
		}
		return inProgress, nil
	}
	if rec.ClockOut2 == nil {
		if rec.ClockIn2 != nil && rec.ClockOut1 == nil {
			return attendance.WorkResult{}, &attendance.DataInconsistencyError{RecordID: rec.ID, Detail: "break end recorded without break start"}
		}
		return inProgress, nil
	}

	var total int
	switch {
	case rec.ClockOut1 != nil && rec.ClockIn2 != nil:
		in1, out1, in2, out2 := *rec.ClockIn1, *rec.ClockOut1, *rec.ClockIn2, *rec.ClockOut2
		first := span(in1, out1, opts.OvernightShift)
		gap := span(out1, in2, opts.OvernightShift)
		second := span(in2, out2, opts.OvernightShift)
		if (first == 0 && out1 != in1) || (gap == 0 && in2 != out1) || (second == 0 && out2 != in2) {
			return attendance.WorkResult{}, &attendance.DataInconsistencyError{RecordID: rec.ID, Detail: "clock sessions overlap or run backwards"}
		}
		if first+gap+second > attendance.MinutesPerDay {
			return attendance.WorkResult{}, &attendance.DataInconsistencyError{RecordID: rec.ID, Detail: "clock sessions exceed one day"}
		}
		total = first + second
	case rec.ClockOut1 == nil && rec.ClockIn2 == nil:
		total = span(*rec.ClockIn1, *rec.ClockOut2, opts.OvernightShift)
	default:
		return attendance.WorkResult{}, &attendance.DataInconsistencyError{RecordID: rec.ID, Detail: "break recorded with only one of break start and break end"}
	}

	ot := 0
	if !opts.PartTime {
		ot = OvertimeMinutes(total)
	}
	return attendance.WorkResult{
		TotalMinutes: total,
		TotalHours:   MinutesToHours(total),
		OTMinutes:    ot,
		OTHours:      MinutesToHours(ot),
	}, nil
}

// CheckConsistency verifies the stored minute and hour fields agree.
func CheckConsistency(rec attendance.ClockRecord) error {
	if rec.TotalWorkHours.Mul(money.Sixty).Sub(decimal.NewFromInt(int64(rec.TotalWorkMinutes))).Abs().GreaterThan(decimal.NewFromInt(1)) {
		return &attendance.DataInconsistencyError{RecordID: rec.ID, Detail: "total work hours disagree with minutes"}
	}
	if rec.OTHours.Mul(money.Sixty).Sub(decimal.NewFromInt(int64(rec.OTMinutes))).Abs().GreaterThan(decimal.NewFromInt(1)) {
		return &attendance.DataInconsistencyError{RecordID: rec.ID, Detail: "OT hours disagree with minutes"}
	}
	return nil
}
