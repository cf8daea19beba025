package employee

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/employee"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/leave"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/pkg/database"
)

type LifecycleServiceImpl struct {
	tx           database.Transactor
	employeeRepo employee.EmployeeRepository
	scheduleRepo attendance.ScheduleRepository
	requestRepo  leave.RequestRepository
}

func NewLifecycleService(
	tx database.Transactor,
	employeeRepo employee.EmployeeRepository,
	scheduleRepo attendance.ScheduleRepository,
	requestRepo leave.RequestRepository,
) employee.LifecycleService {
	return &LifecycleServiceImpl{
		tx:           tx,
		employeeRepo: employeeRepo,
		scheduleRepo: scheduleRepo,
		requestRepo:  requestRepo,
	}
}

// DeactivateResigned implements employee.LifecycleService. Each employee is
// closed out in its own transaction so one failure does not block the rest.
func (s *LifecycleServiceImpl) DeactivateResigned(ctx context.Context, asOf time.Time) (int, error) {
	due, err := s.employeeRepo.ListDueForDeactivation(ctx, asOf)
	if err != nil {
		return 0, fmt.Errorf("failed to list resigned employees: %w", err)
	}

	processed := 0
	for _, emp := range due {
		if ctx.Err() != nil {
			return processed, ctx.Err()
		}

		var schedules int64
		var cancelled int
		err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
			if err := s.employeeRepo.Deactivate(ctx, emp.ID, emp.CompanyID); err != nil {
				return fmt.Errorf("deactivate: %w", err)
			}
			// Schedules after the last working day are forfeited.
			last := asOf
			if emp.LastWorkingDay != nil {
				last = *emp.LastWorkingDay
			}
			from := last.AddDate(0, 0, 1)
			n, err := s.scheduleRepo.DeleteFromDate(ctx, emp.ID, from)
			if err != nil {
				return fmt.Errorf("delete schedules: %w", err)
			}
			schedules = n

			cancelled, err = s.requestRepo.CancelPendingForEmployee(ctx, emp.ID)
			if err != nil {
				return fmt.Errorf("cancel pending leave: %w", err)
			}
			return nil
		})
		if err != nil {
			slog.Error("failed to deactivate employee", "employee_id", emp.ID, "company_id", emp.CompanyID, "error", err)
			continue
		}

		processed++
		slog.Info("employee deactivated",
			"employee_id", emp.ID,
			"company_id", emp.CompanyID,
			"schedules_removed", schedules,
			"leave_cancelled", cancelled,
		)
	}
	return processed, nil
}
