package payroll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/claim"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/company"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/employee"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/leave"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/payroll"
	leavesvc "github.com/cmlabs-hris/hrms-payroll-go/internal/service/leave"
	statutorysvc "github.com/cmlabs-hris/hrms-payroll-go/internal/service/statutory"
	"github.com/shopspring/decimal"
)

// TableSource returns the rate tables in force on a date.
type TableSource func(date time.Time) (RateTables, error)

// RegistryTables adapts a loaded registry to a TableSource.
func RegistryTables(r *statutorysvc.Registry) TableSource {
	return func(date time.Time) (RateTables, error) {
		t, err := r.For(date)
		if err != nil {
			return nil, err
		}
		return t, nil
	}
}

// Gatherer reads the inputs of one payslip. It never writes.
type Gatherer struct {
	groupingRepo company.GroupingRepository
	scheduleRepo attendance.ScheduleRepository
	recordRepo   attendance.ClockRecordRepository
	holidayRepo  leave.HolidayRepository
	unpaidLeave  leave.UnpaidLeaveCounter
	claimRepo    claim.ClaimRepository
	inputRepo    payroll.InputRepository
	itemRepo     payroll.ItemRepository
	tables       TableSource
}

func NewGatherer(
	groupingRepo company.GroupingRepository,
	scheduleRepo attendance.ScheduleRepository,
	recordRepo attendance.ClockRecordRepository,
	holidayRepo leave.HolidayRepository,
	unpaidLeave leave.UnpaidLeaveCounter,
	claimRepo claim.ClaimRepository,
	inputRepo payroll.InputRepository,
	itemRepo payroll.ItemRepository,
	tables TableSource,
) *Gatherer {
	return &Gatherer{
		groupingRepo: groupingRepo,
		scheduleRepo: scheduleRepo,
		recordRepo:   recordRepo,
		holidayRepo:  holidayRepo,
		unpaidLeave:  unpaidLeave,
		claimRepo:    claimRepo,
		inputRepo:    inputRepo,
		itemRepo:     itemRepo,
		tables:       tables,
	}
}

// Gather collects the build input of emp for the run's period. Errors that
// should only fail this item are returned as item failures.
func (g *Gatherer) Gather(ctx context.Context, run payroll.Run, comp company.Company, emp employee.Employee) (BuildInput, error) {
	from, to := run.PeriodStart(), run.PeriodEnd()

	grouping, err := g.groupingRepo.GetByID(ctx, emp.GroupingID, comp.ID)
	if err != nil {
		if errors.Is(err, company.ErrGroupingNotFound) {
			return BuildInput{}, &payroll.ConfigurationError{Detail: fmt.Sprintf("employee %s has no department or outlet", emp.EmployeeCode)}
		}
		return BuildInput{}, fmt.Errorf("failed to get grouping: %w", err)
	}

	tables, err := g.tables(to)
	if err != nil {
		return BuildInput{}, err
	}

	schedules, err := g.scheduleRepo.ListByEmployeePeriod(ctx, emp.ID, from, to)
	if err != nil {
		return BuildInput{}, fmt.Errorf("failed to list schedules: %w", err)
	}
	records, err := g.recordRepo.ListByEmployeePeriod(ctx, emp.ID, from, to)
	if err != nil {
		return BuildInput{}, fmt.Errorf("failed to list clock records: %w", err)
	}
	holidays, err := g.holidayRepo.ListInRange(ctx, comp.ID, from, to)
	if err != nil {
		return BuildInput{}, fmt.Errorf("failed to list public holidays: %w", err)
	}
	unpaid, err := g.unpaidLeave.UnpaidLeaveDaysInPeriod(ctx, comp.ID, emp.ID, run.Month, run.Year)
	if err != nil {
		return BuildInput{}, err
	}
	claims, err := g.claimRepo.ListApprovedUnlinked(ctx, emp.ID, to)
	if err != nil {
		return BuildInput{}, fmt.Errorf("failed to list approved claims: %w", err)
	}

	inputs, err := g.inputRepo.Get(ctx, emp.ID, run.Month, run.Year)
	if errors.Is(err, payroll.ErrInputsNotFound) {
		inputs, err = payroll.EmptyInputs(emp.ID, run.Month, run.Year), nil
	}
	if err != nil {
		return BuildInput{}, fmt.Errorf("failed to get monthly inputs: %w", err)
	}

	ytd, err := g.itemRepo.YearToDate(ctx, emp.ID, run.Year, run.Month)
	if err != nil {
		return BuildInput{}, fmt.Errorf("failed to sum year to date: %w", err)
	}

	prevMonth, prevYear := previousPeriod(run.Month, run.Year)
	var priorGross *decimal.Decimal
	prior, err := g.itemRepo.GetForEmployeePeriod(ctx, emp.ID, prevMonth, prevYear)
	switch {
	case err == nil:
		if prior.Status != payroll.ItemStatusFailed {
			priorGross = &prior.Gross
		}
	case !errors.Is(err, payroll.ErrItemNotFound):
		return BuildInput{}, fmt.Errorf("failed to get previous payroll item: %w", err)
	}

	return BuildInput{
		Run:             run,
		Employee:        emp,
		Grouping:        grouping,
		Settings:        comp.Settings,
		Records:         records,
		Schedules:       schedules,
		Holidays:        leavesvc.NewHolidaySet(holidays),
		UnpaidLeaveDays: unpaid,
		Claims:          claims,
		Inputs:          inputs,
		YTD:             ytd,
		Tables:          tables,
		PriorGross:      priorGross,
	}, nil
}

func previousPeriod(month, year int) (int, int) {
	if month == 1 {
		return 12, year - 1
	}
	return month - 1, year
}
