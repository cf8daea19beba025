package payroll

import (
	"fmt"
	"time"

	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/claim"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/company"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/employee"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/statutory"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/pkg/money"
	attendancesvc "github.com/cmlabs-hris/hrms-payroll-go/internal/service/attendance"
	leavesvc "github.com/cmlabs-hris/hrms-payroll-go/internal/service/leave"
	"github.com/shopspring/decimal"
)

// RateTables is the statutory table set in force for the period.
type RateTables interface {
	EPF(wage decimal.Decimal, age int, ct statutory.ContributionType) (statutory.Contribution, error)
	SOCSO(wage decimal.Decimal, age int) (statutory.SOCSOContribution, error)
	EIS(wage decimal.Decimal, age int) (statutory.Contribution, error)
	PCB(in statutory.PCBInput) (statutory.PCBResult, error)
	Refs() []statutory.TableRef
}

// BuildInput is everything needed to compute one payslip. Build performs
// no I/O; the Gatherer fills this from the repositories.
type BuildInput struct {
	Run       payroll.Run
	Employee  employee.Employee
	Grouping  company.Grouping
	Settings  company.Settings
	Records   []attendance.ClockRecord
	Schedules []attendance.Schedule
	Holidays  leavesvc.HolidaySet

	UnpaidLeaveDays decimal.Decimal
	Claims          []claim.Claim
	Inputs          payroll.MonthlyInputs
	YTD             payroll.YearToDate
	Tables          RateTables

	// PriorGross is last month's gross, nil when there was no item.
	PriorGross *decimal.Decimal
}

type dayKind int

const (
	dayNormal dayKind = iota
	dayRest
	dayHoliday
)

type builder struct {
	in     BuildInput
	policy attendance.Policy
	item   payroll.Item

	basicRate  decimal.Decimal
	hourlyRate decimal.Decimal

	regularMinutes int
	phMinutes      int
	otMinutes      map[dayKind]int
	pendingOT      int
	wrongShift     int
	inProgress     int
}

// Build computes the payslip of one employee. Configuration, rate-table and
// data errors are returned as the typed errors recognized by
// payroll.IsItemFailure.
func Build(in BuildInput) (payroll.Item, error) {
	if len(in.Grouping.Structure.Enabled()) == 0 {
		return payroll.Item{}, &payroll.ConfigurationError{
			Detail: fmt.Sprintf("%s %q has no payroll structure", in.Grouping.Kind, in.Grouping.Name),
		}
	}
	if in.Tables == nil {
		return payroll.Item{}, &statutory.MissingRateTableError{Kind: statutory.KindEPF, Date: in.Run.PeriodEnd()}
	}
	age, err := in.Employee.AgeAt(in.Run.PeriodEnd())
	if err != nil {
		return payroll.Item{}, &payroll.DataInconsistencyError{
			Source: "employee " + in.Employee.ID,
			Detail: "age cannot be derived from date of birth or IC number",
		}
	}

	b := &builder{
		in:        in,
		policy:    attendancesvc.PolicyFromSettings(in.Settings),
		otMinutes: map[dayKind]int{},
		item: payroll.Item{
			RunID:           in.Run.ID,
			CompanyID:       in.Run.CompanyID,
			EmployeeID:      in.Employee.ID,
			Status:          payroll.ItemStatusComputed,
			UnpaidLeaveDays: in.UnpaidLeaveDays,
			BenefitsInKind:  in.Inputs.BenefitsInKind,
			TableRefs:       in.Tables.Refs(),
		},
	}
	b.rates()

	if err := b.collectTime(); err != nil {
		return payroll.Item{}, err
	}
	b.earnings()
	b.deductions()
	if err := b.contributions(age); err != nil {
		return payroll.Item{}, err
	}
	b.finish()
	return b.item, nil
}

func (b *builder) structure() *company.PayrollStructure {
	return b.in.Grouping.Structure
}

func (b *builder) partTime() bool {
	return b.in.Employee.IsPartTime()
}

func (b *builder) warn(format string, args ...interface{}) {
	b.item.Warnings = append(b.item.Warnings, fmt.Sprintf(format, args...))
}

// rates derives the basic salary and the hourly rate used for OT and PH
// pay. A higher-of structure with no basic uses its floor.
func (b *builder) rates() {
	b.basicRate = money.ValueOr(b.in.Employee.BasicSalary, b.in.Grouping.BasicSalaryDefault)
	if b.basicRate.IsZero() && b.structure().HigherOf() {
		if c, ok := b.structure().Component(company.ComponentCommission); ok && c.Floor != nil {
			b.basicRate = *c.Floor
		}
	}

	b.hourlyRate = attendancesvc.HourlyRate(b.basicRate, b.policy)
	if b.partTime() && b.in.Settings.PartTimeHourlyRate != nil {
		b.hourlyRate = *b.in.Settings.PartTimeHourlyRate
	}
	if b.in.Employee.Overrides.OTRate != nil {
		b.hourlyRate = *b.in.Employee.Overrides.OTRate
	}
}

func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

func (b *builder) dayKind(date time.Time, sched *attendance.Schedule) dayKind {
	if b.in.Holidays.Contains(date) {
		return dayHoliday
	}
	if sched != nil {
		if sched.IsRestDay {
			return dayRest
		}
		return dayNormal
	}
	if date.Weekday() == time.Saturday || date.Weekday() == time.Sunday {
		return dayRest
	}
	return dayNormal
}

// collectTime sums payable minutes per day kind and the attendance
// deductions. Wrong-shift and unfinished records never contribute.
func (b *builder) collectTime() error {
	schedules := make(map[string]attendance.Schedule, len(b.in.Schedules))
	for _, s := range b.in.Schedules {
		schedules[dateKey(s.WorkDate)] = s
	}

	requiresApproval := b.in.Settings.Overtime.RequiresApproval
	deduction := decimal.Zero

	for _, rec := range b.in.Records {
		switch {
		case rec.Status == attendance.StatusWrongShift:
			b.wrongShift++
			continue
		case rec.Status == attendance.StatusInProgress || rec.ClockOut2 == nil:
			b.inProgress++
			continue
		case !rec.Status.Payable():
			continue
		}

		var sched *attendance.Schedule
		if s, ok := schedules[dateKey(rec.WorkDate)]; ok {
			sched = &s
		}

		if err := attendancesvc.CheckConsistency(rec); err != nil {
			return err
		}
		opts := attendancesvc.WorkOptions{PartTime: b.partTime(), OvernightShift: sched != nil && sched.Overnight()}
		work, err := attendancesvc.ComputeWork(rec, opts)
		if err != nil {
			return err
		}
		if work.TotalMinutes != rec.TotalWorkMinutes || work.OTMinutes != rec.OTMinutes {
			return &attendance.DataInconsistencyError{
				RecordID: rec.ID,
				Detail: fmt.Sprintf("stored %d work and %d OT minutes, punches give %d and %d",
					rec.TotalWorkMinutes, rec.OTMinutes, work.TotalMinutes, work.OTMinutes),
			}
		}

		kind := b.dayKind(rec.WorkDate, sched)
		regular := rec.TotalWorkMinutes - rec.OTMinutes
		if kind == dayHoliday {
			b.phMinutes += regular
		} else {
			b.regularMinutes += regular
		}
		b.item.WorkMinutes += rec.TotalWorkMinutes

		if rec.OTMinutes > 0 {
			switch {
			case rec.OTPayable(requiresApproval):
				b.otMinutes[kind] += rec.OTMinutes
				b.item.OTMinutes += rec.OTMinutes
			case rec.OTApproved == nil:
				b.pendingOT += rec.OTMinutes
			}
		}

		if sched != nil && !b.partTime() {
			ev := attendancesvc.Evaluate(rec, sched, b.policy, b.basicRate)
			b.item.LateMinutes += ev.LateMinutes
			b.item.EarlyMinutes += ev.EarlyMinutes
			deduction = deduction.Add(ev.DeductionAmount)
		}
	}

	b.item.Deductions.Attendance = money.Cents(deduction)

	if b.wrongShift > 0 {
		b.warn("%d wrong-shift records excluded", b.wrongShift)
	}
	if b.inProgress > 0 {
		b.warn("%d records without a final clock-out excluded", b.inProgress)
	}
	if b.pendingOT > 0 {
		b.warn("%d OT minutes pending approval not paid", b.pendingOT)
	}
	return nil
}

func hours(minutes int) decimal.Decimal {
	return decimal.NewFromInt(int64(minutes)).Div(money.Sixty)
}

func rateOf(override *decimal.Decimal, c company.StructureComponent) decimal.Decimal {
	if override != nil {
		return *override
	}
	if c.Rate != nil {
		return *c.Rate
	}
	return money.ValueOr(c.Amount, decimal.Zero)
}

// earnings assembles the components in the order the structure declares.
func (b *builder) earnings() {
	e := &b.item.Earnings
	*e = payroll.Earnings{
		BasicSalary: decimal.Zero, Allowance: decimal.Zero, Commission: decimal.Zero, Bonus: decimal.Zero,
		TripCommission: decimal.Zero, Outstation: decimal.Zero, OTAmount: decimal.Zero, PHPay: decimal.Zero,
		OtherEarnings: decimal.Zero, AttendanceBonus: decimal.Zero, Claims: decimal.Zero,
	}
	in := b.in.Inputs
	ov := b.in.Employee.Overrides

	for _, c := range b.structure().Enabled() {
		switch c.Code {
		case company.ComponentBasicSalary:
			e.BasicSalary = b.basic(c)
		case company.ComponentAllowance:
			e.Allowance = b.allowance(c)
		case company.ComponentCommission:
			e.Commission = b.commission(c)
		case company.ComponentBonus:
			e.Bonus = in.Bonus
			if e.Bonus.IsZero() && c.Mode == company.ModeFixed {
				e.Bonus = money.ValueOr(c.Amount, decimal.Zero)
			}
		case company.ComponentTripCommission:
			switch {
			case in.TripCommission != nil:
				e.TripCommission = *in.TripCommission
			case c.Mode == company.ModeFixed:
				e.TripCommission = money.ValueOr(c.Amount, decimal.Zero)
			default:
				e.TripCommission = decimal.NewFromInt(int64(in.TripCount)).Mul(rateOf(ov.PerTripRate, c))
			}
		case company.ComponentOutstation:
			switch {
			case in.OutstationAmount != nil:
				e.Outstation = *in.OutstationAmount
			case c.Mode == company.ModeFixed:
				e.Outstation = money.ValueOr(c.Amount, decimal.Zero)
			default:
				e.Outstation = decimal.NewFromInt(int64(in.OutstationDays)).Mul(rateOf(ov.OutstationRate, c))
			}
		case company.ComponentOTAmount:
			e.OTAmount = b.overtime(c)
		case company.ComponentOtherEarnings:
			e.OtherEarnings = in.OtherEarnings
		}
	}

	e.PHPay = b.holidayPay()
	e.AttendanceBonus = in.AttendanceBonus

	claims := decimal.Zero
	ids := make([]string, 0, len(b.in.Claims))
	for _, c := range b.in.Claims {
		claims = claims.Add(c.Amount)
		ids = append(ids, c.ID)
	}
	e.Claims = claims
	b.item.ClaimIDs = ids

	for _, p := range []*decimal.Decimal{
		&e.BasicSalary, &e.Allowance, &e.Commission, &e.Bonus, &e.TripCommission, &e.Outstation,
		&e.OTAmount, &e.PHPay, &e.OtherEarnings, &e.AttendanceBonus, &e.Claims,
	} {
		*p = money.Cents(*p)
	}
}

// basic pays the fixed salary, or the approved minutes for part-timers.
// Higher-of structures pay their floor through commission instead.
func (b *builder) basic(c company.StructureComponent) decimal.Decimal {
	if b.structure().HigherOf() {
		return decimal.Zero
	}
	if c.Mode == company.ModeHourly && c.Amount != nil {
		return hours(b.regularMinutes).Mul(*c.Amount)
	}
	if !b.partTime() {
		return b.basicRate
	}
	if rate := b.in.Settings.PartTimeHourlyRate; rate != nil {
		return hours(b.regularMinutes).Mul(*rate)
	}
	full := b.policy.WorkDaysPerMonth.Mul(b.policy.WorkHoursPerDay).Mul(money.Sixty)
	if !full.IsPositive() {
		return decimal.Zero
	}
	return b.basicRate.Mul(decimal.NewFromInt(int64(b.regularMinutes))).Div(full)
}

func (b *builder) allowance(c company.StructureComponent) decimal.Decimal {
	if b.in.Employee.Allowance != nil {
		return *b.in.Employee.Allowance
	}
	if !b.in.Grouping.AllowanceDefault.IsZero() {
		return b.in.Grouping.AllowanceDefault
	}
	return money.ValueOr(c.Amount, decimal.Zero)
}

func (b *builder) commission(c company.StructureComponent) decimal.Decimal {
	rate := decimal.Zero
	if b.in.Employee.Overrides.CommissionRate != nil {
		rate = *b.in.Employee.Overrides.CommissionRate
	} else if c.Rate != nil {
		rate = *c.Rate
	}
	earned := b.in.Inputs.SalesAmount.Mul(rate)

	switch c.Mode {
	case company.ModeHigherOfBasicOrPct:
		floor := b.basicRate
		if c.Floor != nil {
			floor = *c.Floor
		}
		return money.Max(floor, earned)
	case company.ModeFixed:
		return money.ValueOr(c.Amount, decimal.Zero)
	default:
		return earned
	}
}

func (b *builder) multiplier(kind dayKind) decimal.Decimal {
	ot := b.in.Settings.Overtime
	switch kind {
	case dayRest:
		return ot.RestDayMultiplier
	case dayHoliday:
		return ot.PublicHolidayOT
	default:
		return ot.NormalMultiplier
	}
}

func (b *builder) overtime(c company.StructureComponent) decimal.Decimal {
	if fixed := b.in.Employee.Overrides.FixedOTAmount; fixed != nil {
		return *fixed
	}
	if c.Mode == company.ModeFixed && c.Amount != nil {
		return *c.Amount
	}
	total := decimal.Zero
	for _, kind := range []dayKind{dayNormal, dayRest, dayHoliday} {
		if m := b.otMinutes[kind]; m > 0 {
			total = total.Add(hours(m).Mul(b.hourlyRate).Mul(b.multiplier(kind)))
		}
	}
	return total
}

// holidayPay pays regular hours worked on a public holiday.
func (b *builder) holidayPay() decimal.Decimal {
	if b.phMinutes == 0 {
		return decimal.Zero
	}
	mult := b.in.Settings.Overtime.PublicHolidayRegular
	if b.partTime() {
		mult = b.in.Settings.PartTimePHMultiplier
	}
	return hours(b.phMinutes).Mul(b.hourlyRate).Mul(mult)
}

func (b *builder) deductions() {
	d := &b.item.Deductions
	d.UnpaidLeave = decimal.Zero
	if !b.partTime() && b.in.UnpaidLeaveDays.IsPositive() {
		d.UnpaidLeave = money.Cents(b.in.UnpaidLeaveDays.Mul(attendancesvc.DailyRate(b.basicRate, b.policy)))
	}
	d.Other = money.Cents(b.in.Inputs.OtherDeductions)
}

// contributions computes the statutory base and the four schedules. The
// base never includes deductions such as unpaid leave.
func (b *builder) contributions(age int) error {
	e := b.item.Earnings
	flags := b.in.Settings.Statutory

	base := e.BasicSalary
	commissions := decimal.Zero
	if flags.OnAllowance {
		base = base.Add(e.Allowance)
	}
	if flags.OnOT {
		base = base.Add(e.OTAmount)
	}
	if flags.OnPHPay {
		base = base.Add(e.PHPay)
	}
	if flags.OnIncentive {
		base = base.Add(e.AttendanceBonus)
	}
	if flags.OnCommission {
		commissions = e.Commission.Add(e.TripCommission)
		base = base.Add(commissions)
	}
	b.item.StatutoryBase = base

	epfWage := base
	if flags.EPFOnBonus {
		epfWage = epfWage.Add(e.Bonus)
	}
	b.item.EPFWage = epfWage

	ct := b.in.Employee.EPFContributionType
	if ct == "" {
		ct = statutory.ContributionStandard
	}
	tables := b.in.Tables

	epf, err := tables.EPF(epfWage, age, ct)
	if err != nil {
		return err
	}
	regular := base.Sub(commissions)
	regularEPF := decimal.Zero
	if regular.IsPositive() {
		r, err := tables.EPF(regular, age, ct)
		if err != nil {
			return err
		}
		regularEPF = money.Min(r.Employee, epf.Employee)
	}

	contribWage := b.item.Earnings.Total().Sub(e.Claims)
	socso, err := tables.SOCSO(contribWage, age)
	if err != nil {
		return err
	}
	eis := statutory.Contribution{Employee: decimal.Zero, Employer: decimal.Zero}
	if !b.in.Employee.IsForeign() {
		if eis, err = tables.EIS(contribWage, age); err != nil {
			return err
		}
	}

	tax := b.in.Employee.TaxProfile
	pcb, err := tables.PCB(statutory.PCBInput{
		Month:             b.in.Run.Month,
		MonthlyRegular:    regular,
		MonthlyAdditional: commissions.Add(e.Bonus),
		RegularEPF:        regularEPF,
		AdditionalEPF:     epf.Employee.Sub(regularEPF),
		YTDRemuneration:   b.in.YTD.Remuneration(),
		YTDEPF:            b.in.YTD.EPF,
		YTDPCB:            b.in.YTD.PCB,
		OtherReliefs:      tax.OtherRelief,
		Spouse:            tax.SpouseRelief,
		Children:          tax.Children,
	})
	if err != nil {
		return err
	}

	d := &b.item.Deductions
	d.EPFEmployee, d.EPFEmployer = epf.Employee, epf.Employer
	d.SOCSOEmployee, d.SOCSOEmployer, d.SOCSOCategory = socso.Employee, socso.Employer, socso.Category
	d.EISEmployee, d.EISEmployer = eis.Employee, eis.Employer
	d.PCB, d.PCBAdditional = pcb.Total, pcb.Additional
	return nil
}

// finish totals the item and compares it with the previous month.
func (b *builder) finish() {
	it := &b.item
	it.Gross = it.Earnings.Total()
	it.TotalDeductions = it.Deductions.EmployeeTotal()
	it.NetPay = it.Gross.Sub(it.TotalDeductions)
	if it.NetPay.IsNegative() {
		b.warn("net pay is negative")
	}

	prior := b.in.PriorGross
	if prior == nil || !prior.IsPositive() {
		return
	}
	variance := it.Gross.Sub(*prior).Div(*prior).Round(4)
	it.Variance = &variance
	if variance.Abs().GreaterThan(b.in.Settings.Automation.VarianceThreshold) {
		it.VarianceFlagged = true
		b.warn("gross changed by %s%% against last month", variance.Mul(money.Hundred).StringFixed(2))
	}
}
