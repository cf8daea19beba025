package leave

import (
	"time"

	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/leave"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/pkg/money"
	"github.com/shopspring/decimal"
)

const dateKey = "2006-01-02"

// HolidaySet is a lookup of holiday dates.
type HolidaySet map[string]struct{}

func NewHolidaySet(holidays []leave.Holiday) HolidaySet {
	set := make(HolidaySet, len(holidays))
	for _, h := range holidays {
		set[h.Date.Format(dateKey)] = struct{}{}
	}
	return set
}

func (s HolidaySet) Contains(d time.Time) bool {
	_, ok := s[d.Format(dateKey)]
	return ok
}

func isWeekend(d time.Time) bool {
	return d.Weekday() == time.Saturday || d.Weekday() == time.Sunday
}

// WorkingDays counts dates in [start, end] that are neither weekend nor holiday.
func WorkingDays(start, end time.Time, holidays HolidaySet) int {
	start = truncateDay(start)
	end = truncateDay(end)

	days := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if isWeekend(d) || holidays.Contains(d) {
			continue
		}
		days++
	}
	return days
}

// ProrateEntitlement returns the entitlement for year given a join date.
// Joining inside the year earns the remaining months including the join
// month, rounded to the nearest half day.
func ProrateEntitlement(defaultDays decimal.Decimal, joinDate time.Time, year int) decimal.Decimal {
	yearStart := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	yearEnd := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	join := truncateDay(joinDate)

	switch {
	case !join.After(yearStart):
		return defaultDays
	case join.After(yearEnd):
		return decimal.Zero
	}

	monthsRemaining := int64(12 - int(join.Month()) + 1)
	return money.RoundHalf(defaultDays.Mul(decimal.NewFromInt(monthsRemaining)).Div(decimal.NewFromInt(12)))
}

// clip intersects [start, end] with [from, to]; ok is false when disjoint.
func clip(start, end, from, to time.Time) (time.Time, time.Time, bool) {
	if start.Before(from) {
		start = from
	}
	if end.After(to) {
		end = to
	}
	return start, end, !start.After(end)
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func monthBounds(month, year int) (time.Time, time.Time) {
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, -1)
}
