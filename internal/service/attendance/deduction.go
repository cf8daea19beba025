package attendance

import (
	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/pkg/money"
	"github.com/shopspring/decimal"
)

// offset returns b-a on the 24h circle, in [-720, 720).
func offset(a, b attendance.TimeOfDay) int {
	d := (int(b) - int(a)) % attendance.MinutesPerDay
	if d < -attendance.MinutesPerDay/2 {
		d += attendance.MinutesPerDay
	}
	if d >= attendance.MinutesPerDay/2 {
		d -= attendance.MinutesPerDay
	}
	return d
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// DailyRate is basic salary over working days per month.
func DailyRate(basic decimal.Decimal, policy attendance.Policy) decimal.Decimal {
	if !policy.WorkDaysPerMonth.IsPositive() {
		return decimal.Zero
	}
	return basic.Div(policy.WorkDaysPerMonth)
}

// HourlyRate is the daily rate over working hours per day.
func HourlyRate(basic decimal.Decimal, policy attendance.Policy) decimal.Decimal {
	if !policy.WorkHoursPerDay.IsPositive() {
		return decimal.Zero
	}
	return DailyRate(basic, policy).Div(policy.WorkHoursPerDay)
}

// MinuteRate is the hourly rate over sixty.
func MinuteRate(basic decimal.Decimal, policy attendance.Policy) decimal.Decimal {
	return HourlyRate(basic, policy).Div(money.Sixty)
}

// EvaluateClockIn classifies a clock-in against the shift start. Lateness
// within the grace window is forgiven entirely; beyond it every late minute
// counts.
func EvaluateClockIn(clockIn attendance.TimeOfDay, sched *attendance.Schedule, policy attendance.Policy) (attendance.Status, int) {
	if sched == nil {
		return attendance.StatusNoSchedule, 0
	}
	diff := offset(sched.ShiftStart, clockIn)
	if abs(diff) > policy.WrongShiftToleranceMinutes {
		return attendance.StatusWrongShift, 0
	}
	if diff > policy.GraceMinutes {
		return attendance.StatusLate, diff
	}
	return attendance.StatusPresent, 0
}

// Evaluate computes late and early minutes of a record against its
// schedule and the resulting deduction.
func Evaluate(rec attendance.ClockRecord, sched *attendance.Schedule, policy attendance.Policy, basic decimal.Decimal) attendance.Evaluation {
	result := attendance.Evaluation{DeductionAmount: decimal.Zero}

	if sched == nil {
		result.Status = attendance.StatusNoSchedule
		return result
	}
	if rec.ClockIn1 == nil {
		result.Status = attendance.StatusAbsent
		return result
	}

	status, late := EvaluateClockIn(*rec.ClockIn1, sched, policy)
	if status == attendance.StatusWrongShift {
		result.Status = status
		return result
	}

	early := 0
	if rec.ClockOut2 != nil {
		if d := offset(*rec.ClockOut2, sched.ShiftEnd); d > 0 {
			early = d
		}
	}

	result.LateMinutes = late
	result.EarlyMinutes = early
	switch {
	case late > 0:
		result.Status = attendance.StatusLate
	case early > 0:
		result.Status = attendance.StatusLeftEarly
	default:
		result.Status = attendance.StatusPresent
	}

	minutes := decimal.NewFromInt(int64(late + early))
	result.DeductionAmount = money.Cents(minutes.Mul(MinuteRate(basic, policy)))
	return result
}
