package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/company"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/employee"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/pkg/database"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/pkg/jwt"
	"github.com/shopspring/decimal"
)

const (
	slotClockIn1  = "clock_in_1"
	slotClockOut1 = "clock_out_1"
	slotClockIn2  = "clock_in_2"
	slotClockOut2 = "clock_out_2"
)

type AttendanceServiceImpl struct {
	tx           database.Transactor
	recordRepo   attendance.ClockRecordRepository
	scheduleRepo attendance.ScheduleRepository
	employeeRepo employee.EmployeeRepository
	companyRepo  company.CompanyRepository
}

func NewAttendanceService(
	tx database.Transactor,
	recordRepo attendance.ClockRecordRepository,
	scheduleRepo attendance.ScheduleRepository,
	employeeRepo employee.EmployeeRepository,
	companyRepo company.CompanyRepository,
) attendance.AttendanceService {
	return &AttendanceServiceImpl{
		tx:           tx,
		recordRepo:   recordRepo,
		scheduleRepo: scheduleRepo,
		employeeRepo: employeeRepo,
		companyRepo:  companyRepo,
	}
}

// PolicyFromSettings extracts the attendance policy of a company.
func PolicyFromSettings(s company.Settings) attendance.Policy {
	return attendance.Policy{
		GraceMinutes:               s.Attendance.GraceMinutes,
		WrongShiftToleranceMinutes: s.Attendance.WrongShiftToleranceMinutes,
		WorkDaysPerMonth:           s.WorkDaysPerMonth,
		WorkHoursPerDay:            s.WorkHoursPerDay,
	}
}

// Clock implements attendance.AttendanceService. The punch fills the next
// free slot of the day's record. A clock-in far from the scheduled start
// is rejected as wrong shift and nothing is written.
func (s *AttendanceServiceImpl) Clock(ctx context.Context, req attendance.ClockRequest) (attendance.ClockResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.ClockResponse{}, err
	}
	claims, err := jwt.ClaimsFromContext(ctx)
	if err != nil {
		return attendance.ClockResponse{}, err
	}
	if !claims.CanAccessEmployee(req.EmployeeID) {
		return attendance.ClockResponse{}, jwt.ErrInsufficientRole
	}

	emp, err := s.employeeRepo.GetByID(ctx, req.EmployeeID, claims.CompanyID)
	if err != nil {
		return attendance.ClockResponse{}, err
	}
	comp, err := s.companyRepo.GetByID(ctx, claims.CompanyID)
	if err != nil {
		return attendance.ClockResponse{}, err
	}
	policy := PolicyFromSettings(comp.Settings)

	workDate, at, action := req.Parsed()

	sched, err := s.scheduleFor(ctx, emp.ID, workDate)
	if err != nil {
		return attendance.ClockResponse{}, err
	}
	// The closing punches of an overnight shift arrive dated the next day.
	var overnight *attendance.Schedule
	if action != attendance.ActionIn && at < attendance.Noon {
		prev, err := s.scheduleFor(ctx, emp.ID, workDate.AddDate(0, 0, -1))
		if err != nil {
			return attendance.ClockResponse{}, err
		}
		if prev != nil && prev.Overnight() {
			overnight = prev
		}
	}

	resp := attendance.ClockResponse{}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		rec, sched, err := s.openRecord(ctx, emp, workDate, sched, overnight)
		if err != nil {
			return err
		}
		if sched != nil {
			resp.Schedule = &attendance.ScheduleResponse{
				ShiftStart:   sched.ShiftStart,
				ShiftEnd:     sched.ShiftEnd,
				BreakMinutes: sched.BreakMinutes,
			}
		}

		slot, err := nextSlot(rec, action, sched)
		if err != nil {
			return err
		}

		t := at
		switch slot {
		case slotClockIn1:
			status, late := EvaluateClockIn(at, sched, policy)
			if status == attendance.StatusWrongShift {
				reason := fmt.Sprintf("clock-in at %s is %d minutes from the scheduled start %s (tolerance %d)",
					at, abs(offset(sched.ShiftStart, at)), sched.ShiftStart, policy.WrongShiftToleranceMinutes)
				resp.AttendanceStatus = attendance.StatusWrongShift
				resp.RejectionReason = &reason
				slog.Warn("clock-in rejected as wrong shift", "employee_id", emp.ID, "work_date", rec.WorkDate.Format("2006-01-02"), "clock_in", at.String())
				return nil
			}
			rec.ClockIn1 = &t
			rec.LateMinutes = late
			rec.Status = attendance.StatusInProgress
			resp.AttendanceStatus = status
		case slotClockOut1:
			rec.ClockOut1 = &t
			resp.AttendanceStatus = attendance.StatusInProgress
		case slotClockIn2:
			rec.ClockIn2 = &t
			resp.AttendanceStatus = attendance.StatusInProgress
		case slotClockOut2:
			rec.ClockOut2 = &t
			if err := complete(&rec, sched, policy, emp.IsPartTime()); err != nil {
				return err
			}
			resp.AttendanceStatus = rec.Status
		}

		saved, err := s.recordRepo.Upsert(ctx, rec)
		if err != nil {
			return fmt.Errorf("failed to save clock record: %w", err)
		}
		resp.RecordID = &saved.ID
		resp.Slot = &slot
		return nil
	})
	if err != nil {
		return attendance.ClockResponse{}, err
	}
	return resp, nil
}

func (s *AttendanceServiceImpl) scheduleFor(ctx context.Context, employeeID string, date time.Time) (*attendance.Schedule, error) {
	found, err := s.scheduleRepo.GetByEmployeeDate(ctx, employeeID, date)
	switch {
	case err == nil:
		return &found, nil
	case errors.Is(err, attendance.ErrScheduleNotFound):
		return nil, nil
	default:
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}
}

// openRecord locks the record a punch belongs to. An open record of the
// previous day's overnight shift takes the punch before the day's own.
func (s *AttendanceServiceImpl) openRecord(ctx context.Context, emp employee.Employee, workDate time.Time, sched, overnight *attendance.Schedule) (attendance.ClockRecord, *attendance.Schedule, error) {
	if overnight != nil {
		prev, err := s.recordRepo.GetByEmployeeDateForUpdate(ctx, emp.ID, workDate.AddDate(0, 0, -1))
		switch {
		case err == nil:
			if prev.ClockIn1 != nil && prev.ClockOut2 == nil {
				return prev, overnight, nil
			}
		case !errors.Is(err, attendance.ErrClockRecordNotFound):
			return attendance.ClockRecord{}, nil, fmt.Errorf("failed to get clock record: %w", err)
		}
	}

	rec, err := s.recordRepo.GetByEmployeeDateForUpdate(ctx, emp.ID, workDate)
	switch {
	case err == nil:
		return rec, sched, nil
	case errors.Is(err, attendance.ErrClockRecordNotFound):
		return attendance.ClockRecord{
			CompanyID:      emp.CompanyID,
			EmployeeID:     emp.ID,
			WorkDate:       workDate,
			TotalWorkHours: decimal.Zero,
			OTHours:        decimal.Zero,
			Status:         attendance.StatusInProgress,
		}, sched, nil
	default:
		return attendance.ClockRecord{}, nil, fmt.Errorf("failed to get clock record: %w", err)
	}
}

// complete derives the totals of a record once its final clock-out is in.
func complete(rec *attendance.ClockRecord, sched *attendance.Schedule, policy attendance.Policy, partTime bool) error {
	work, err := ComputeWork(*rec, WorkOptions{
		PartTime:       partTime,
		OvernightShift: sched != nil && sched.Overnight(),
	})
	if err != nil {
		return err
	}

	rec.TotalWorkMinutes = work.TotalMinutes
	rec.TotalWorkHours = work.TotalHours
	rec.OTMinutes = work.OTMinutes
	rec.OTHours = work.OTHours
	rec.OTFlagged = work.OTMinutes > 0
	rec.OTApproved = nil

	eval := Evaluate(*rec, sched, policy, decimal.Zero)
	rec.LateMinutes = eval.LateMinutes
	rec.EarlyMinutes = eval.EarlyMinutes
	rec.Status = eval.Status
	return nil
}

// nextSlot picks the punch slot for a clock action. Without an explicit
// action the slots fill in order, and a schedule without a break goes
// straight from clock-in to the final clock-out.
func nextSlot(rec attendance.ClockRecord, action attendance.ClockAction, sched *attendance.Schedule) (string, error) {
	if rec.ClockOut2 != nil {
		return "", attendance.ErrAlreadyClockedOut
	}
	onBreak := rec.ClockOut1 != nil && rec.ClockIn2 == nil

	switch action {
	case attendance.ActionIn:
		if rec.ClockIn1 != nil {
			return "", attendance.ErrInvalidClockAction
		}
		return slotClockIn1, nil
	case attendance.ActionBreakStart:
		if rec.ClockIn1 == nil || rec.ClockOut1 != nil {
			return "", attendance.ErrInvalidClockAction
		}
		return slotClockOut1, nil
	case attendance.ActionBreakEnd:
		if !onBreak {
			return "", attendance.ErrInvalidClockAction
		}
		return slotClockIn2, nil
	case attendance.ActionOut:
		if rec.ClockIn1 == nil || onBreak {
			return "", attendance.ErrInvalidClockAction
		}
		return slotClockOut2, nil
	}

	switch {
	case rec.ClockIn1 == nil:
		return slotClockIn1, nil
	case rec.ClockOut1 == nil && (sched == nil || sched.BreakMinutes == 0):
		return slotClockOut2, nil
	case rec.ClockOut1 == nil:
		return slotClockOut1, nil
	case rec.ClockIn2 == nil:
		return slotClockIn2, nil
	default:
		return slotClockOut2, nil
	}
}

// ReviewOvertime implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) ReviewOvertime(ctx context.Context, recordID string, approve bool) (attendance.ClockRecordResponse, error) {
	claims, err := jwt.ClaimsFromContext(ctx)
	if err != nil {
		return attendance.ClockRecordResponse{}, err
	}
	if err := claims.RequireManager(); err != nil {
		return attendance.ClockRecordResponse{}, err
	}

	rec, err := s.recordRepo.GetByID(ctx, recordID, claims.CompanyID)
	if err != nil {
		return attendance.ClockRecordResponse{}, err
	}
	if rec.OTMinutes == 0 {
		return attendance.ClockRecordResponse{}, attendance.ErrNoOvertime
	}

	if err := s.recordRepo.SetOTApproval(ctx, rec.ID, claims.CompanyID, approve); err != nil {
		return attendance.ClockRecordResponse{}, fmt.Errorf("failed to update overtime approval: %w", err)
	}
	rec.OTApproved = &approve

	slog.Info("overtime reviewed", "record_id", rec.ID, "employee_id", rec.EmployeeID, "approved", approve, "ot_minutes", rec.OTMinutes)
	return attendance.NewClockRecordResponse(rec), nil
}
