package leave

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/employee"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/leave"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/fixtures"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/pkg/database"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/pkg/events"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/pkg/jwt"
	"github.com/shopspring/decimal"
)

type LeaveServiceImpl struct {
	tx           database.Transactor
	typeRepo     leave.LeaveTypeRepository
	balanceRepo  leave.BalanceRepository
	requestRepo  leave.RequestRepository
	holidayRepo  leave.HolidayRepository
	employeeRepo employee.EmployeeRepository
	publisher    events.Publisher
	now          func() time.Time
}

func NewLeaveService(
	tx database.Transactor,
	typeRepo leave.LeaveTypeRepository,
	balanceRepo leave.BalanceRepository,
	requestRepo leave.RequestRepository,
	holidayRepo leave.HolidayRepository,
	employeeRepo employee.EmployeeRepository,
	publisher events.Publisher,
) *LeaveServiceImpl {
	return &LeaveServiceImpl{
		tx:           tx,
		typeRepo:     typeRepo,
		balanceRepo:  balanceRepo,
		requestRepo:  requestRepo,
		holidayRepo:  holidayRepo,
		employeeRepo: employeeRepo,
		publisher:    publisher,
		now:          time.Now,
	}
}

// Initialize implements leave.LeaveService.
func (s *LeaveServiceImpl) Initialize(ctx context.Context, req leave.InitializeBalancesRequest) ([]leave.BalanceResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	claims, err := jwt.ClaimsFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := claims.RequireManager(); err != nil {
		return nil, err
	}

	emp, err := s.employeeRepo.GetByID(ctx, req.EmployeeID, claims.CompanyID)
	if err != nil {
		return nil, err
	}

	balances, err := s.InitializeEmployee(ctx, emp, req.Year)
	if err != nil {
		return nil, err
	}

	resp := make([]leave.BalanceResponse, 0, len(balances))
	for _, b := range balances {
		resp = append(resp, leave.NewBalanceResponse(b))
	}
	return resp, nil
}

// InitializeEmployee writes pro-rated balances for every paid type emp is
// eligible for. Existing rows are left untouched.
func (s *LeaveServiceImpl) InitializeEmployee(ctx context.Context, emp employee.Employee, year int) ([]leave.Balance, error) {
	types, err := s.leaveTypes(ctx, emp.CompanyID)
	if err != nil {
		return nil, err
	}

	created := 0
	for _, lt := range types {
		if !lt.IsPaid || !lt.EligibleFor(emp) {
			continue
		}
		inserted, err := s.balanceRepo.CreateIfMissing(ctx, leave.Balance{
			EmployeeID:     emp.ID,
			LeaveTypeID:    lt.ID,
			Year:           year,
			EntitledDays:   ProrateEntitlement(lt.DefaultDaysPerYear, emp.JoinDate, year),
			UsedDays:       decimal.Zero,
			CarriedForward: decimal.Zero,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create leave balance: %w", err)
		}
		if inserted {
			created++
		}
	}

	if created > 0 {
		slog.Info("leave balances initialized", "employee_id", emp.ID, "year", year, "created", created)
	}

	balances, err := s.balanceRepo.ListByEmployeeYear(ctx, emp.ID, year)
	if err != nil {
		return nil, fmt.Errorf("failed to list leave balances: %w", err)
	}
	return balances, nil
}

// leaveTypes lists the company's leave types, seeding the statutory
// defaults the first time a company has none.
func (s *LeaveServiceImpl) leaveTypes(ctx context.Context, companyID string) ([]leave.LeaveType, error) {
	types, err := s.typeRepo.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list leave types: %w", err)
	}
	if len(types) > 0 {
		return types, nil
	}

	seeded, err := s.typeRepo.CreateMissing(ctx, fixtures.DefaultLeaveTypes(companyID))
	if err != nil {
		return nil, fmt.Errorf("failed to seed default leave types: %w", err)
	}
	slog.Info("default leave types seeded", "company_id", companyID, "count", seeded)

	types, err = s.typeRepo.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list leave types: %w", err)
	}
	return types, nil
}

// Request implements leave.LeaveService.
func (s *LeaveServiceImpl) Request(ctx context.Context, req leave.CreateLeaveRequestRequest) (leave.LeaveRequestResponse, error) {
	if err := req.Validate(); err != nil {
		return leave.LeaveRequestResponse{}, err
	}
	claims, err := jwt.ClaimsFromContext(ctx)
	if err != nil {
		return leave.LeaveRequestResponse{}, err
	}
	if !claims.CanAccessEmployee(req.EmployeeID) {
		return leave.LeaveRequestResponse{}, jwt.ErrInsufficientRole
	}

	emp, err := s.employeeRepo.GetByID(ctx, req.EmployeeID, claims.CompanyID)
	if err != nil {
		return leave.LeaveRequestResponse{}, err
	}
	lt, err := s.typeRepo.GetByID(ctx, req.LeaveTypeID, claims.CompanyID)
	if err != nil {
		return leave.LeaveRequestResponse{}, err
	}
	if !lt.EligibleFor(emp) {
		return leave.LeaveRequestResponse{}, leave.ErrNotEligible
	}

	start, end := req.Dates()
	days, err := s.workingDays(ctx, claims.CompanyID, start, end)
	if err != nil {
		return leave.LeaveRequestResponse{}, err
	}
	if days == 0 {
		return leave.LeaveRequestResponse{}, leave.ErrNoWorkingDays
	}
	totalDays := decimal.NewFromInt(int64(days))

	overlap, err := s.requestRepo.HasOverlap(ctx, emp.ID, start, end)
	if err != nil {
		return leave.LeaveRequestResponse{}, fmt.Errorf("failed to check overlapping leave requests: %w", err)
	}
	if overlap {
		return leave.LeaveRequestResponse{}, leave.ErrOverlappingLeave
	}

	if lt.IsPaid {
		balance, err := s.balanceRepo.Get(ctx, emp.ID, lt.ID, start.Year())
		if err != nil {
			return leave.LeaveRequestResponse{}, err
		}
		if totalDays.GreaterThan(balance.Available()) {
			return leave.LeaveRequestResponse{}, &leave.InsufficientBalanceError{Requested: totalDays, Available: balance.Available()}
		}
	}

	created, err := s.requestRepo.Create(ctx, leave.Request{
		CompanyID:   claims.CompanyID,
		EmployeeID:  emp.ID,
		LeaveTypeID: lt.ID,
		StartDate:   start,
		EndDate:     end,
		TotalDays:   totalDays,
		Reason:      req.Reason,
		Status:      leave.RequestStatusPending,
	})
	if err != nil {
		return leave.LeaveRequestResponse{}, fmt.Errorf("failed to create leave request: %w", err)
	}

	return leave.NewLeaveRequestResponse(created), nil
}

// Approve implements leave.LeaveService.
func (s *LeaveServiceImpl) Approve(ctx context.Context, requestID string) (leave.LeaveRequestResponse, error) {
	claims, err := jwt.ClaimsFromContext(ctx)
	if err != nil {
		return leave.LeaveRequestResponse{}, err
	}
	if err := claims.RequireManager(); err != nil {
		return leave.LeaveRequestResponse{}, err
	}

	var approved leave.Request
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		request, err := s.requestRepo.GetByIDForUpdate(ctx, requestID, claims.CompanyID)
		if err != nil {
			return err
		}
		if request.Status != leave.RequestStatusPending {
			return leave.ErrLeaveRequestAlreadyProcessed
		}

		lt, err := s.typeRepo.GetByID(ctx, request.LeaveTypeID, claims.CompanyID)
		if err != nil {
			return err
		}
		if lt.IsPaid {
			balance, err := s.balanceRepo.GetForUpdate(ctx, request.EmployeeID, request.LeaveTypeID, request.StartDate.Year())
			if err != nil {
				return err
			}
			if request.TotalDays.GreaterThan(balance.Available()) {
				return &leave.InsufficientBalanceError{Requested: request.TotalDays, Available: balance.Available()}
			}
			if err := s.balanceRepo.AdjustUsed(ctx, balance.ID, request.TotalDays); err != nil {
				return fmt.Errorf("failed to update leave balance: %w", err)
			}
		}

		now := s.now()
		request.Status = leave.RequestStatusApproved
		request.DecidedBy = &claims.UserID
		request.DecidedAt = &now
		if err := s.requestRepo.UpdateStatus(ctx, request); err != nil {
			return fmt.Errorf("failed to update leave request: %w", err)
		}
		approved = request
		return nil
	})
	if err != nil {
		return leave.LeaveRequestResponse{}, err
	}

	slog.Info("leave request approved", "request_id", approved.ID, "employee_id", approved.EmployeeID, "days", approved.TotalDays.String())
	s.publisher.Publish(ctx, events.Event{
		Type:        events.LeaveApproved,
		CompanyID:   claims.CompanyID,
		AggregateID: approved.ID,
		Payload:     leave.NewLeaveRequestResponse(approved),
	})
	return leave.NewLeaveRequestResponse(approved), nil
}

// Reject implements leave.LeaveService.
func (s *LeaveServiceImpl) Reject(ctx context.Context, requestID string, req leave.RejectLeaveRequestRequest) (leave.LeaveRequestResponse, error) {
	if err := req.Validate(); err != nil {
		return leave.LeaveRequestResponse{}, err
	}
	claims, err := jwt.ClaimsFromContext(ctx)
	if err != nil {
		return leave.LeaveRequestResponse{}, err
	}
	if err := claims.RequireManager(); err != nil {
		return leave.LeaveRequestResponse{}, err
	}

	var rejected leave.Request
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		request, err := s.requestRepo.GetByIDForUpdate(ctx, requestID, claims.CompanyID)
		if err != nil {
			return err
		}
		if request.Status != leave.RequestStatusPending {
			return leave.ErrLeaveRequestAlreadyProcessed
		}

		now := s.now()
		reason := req.Reason
		request.Status = leave.RequestStatusRejected
		request.DecidedBy = &claims.UserID
		request.DecidedAt = &now
		request.RejectionReason = &reason
		if err := s.requestRepo.UpdateStatus(ctx, request); err != nil {
			return fmt.Errorf("failed to update leave request: %w", err)
		}
		rejected = request
		return nil
	})
	if err != nil {
		return leave.LeaveRequestResponse{}, err
	}
	return leave.NewLeaveRequestResponse(rejected), nil
}

// Cancel implements leave.LeaveService. Cancelling an approved paid request
// returns its days to the balance.
func (s *LeaveServiceImpl) Cancel(ctx context.Context, requestID string) (leave.LeaveRequestResponse, error) {
	claims, err := jwt.ClaimsFromContext(ctx)
	if err != nil {
		return leave.LeaveRequestResponse{}, err
	}

	var cancelled leave.Request
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		request, err := s.requestRepo.GetByIDForUpdate(ctx, requestID, claims.CompanyID)
		if err != nil {
			return err
		}
		if !claims.CanAccessEmployee(request.EmployeeID) {
			return jwt.ErrInsufficientRole
		}

		switch request.Status {
		case leave.RequestStatusPending:
		case leave.RequestStatusApproved:
			lt, err := s.typeRepo.GetByID(ctx, request.LeaveTypeID, claims.CompanyID)
			if err != nil {
				return err
			}
			if lt.IsPaid {
				balance, err := s.balanceRepo.GetForUpdate(ctx, request.EmployeeID, request.LeaveTypeID, request.StartDate.Year())
				if err != nil {
					return err
				}
				if err := s.balanceRepo.AdjustUsed(ctx, balance.ID, request.TotalDays.Neg()); err != nil {
					return fmt.Errorf("failed to restore leave balance: %w", err)
				}
			}
		default:
			return leave.ErrLeaveRequestAlreadyProcessed
		}

		now := s.now()
		request.Status = leave.RequestStatusCancelled
		request.DecidedBy = &claims.UserID
		request.DecidedAt = &now
		if err := s.requestRepo.UpdateStatus(ctx, request); err != nil {
			return fmt.Errorf("failed to update leave request: %w", err)
		}
		cancelled = request
		return nil
	})
	if err != nil {
		return leave.LeaveRequestResponse{}, err
	}
	return leave.NewLeaveRequestResponse(cancelled), nil
}

// UnpaidLeaveDaysInPeriod implements leave.UnpaidLeaveCounter. Only the
// working days of each approved unpaid request that fall inside the month
// are counted.
func (s *LeaveServiceImpl) UnpaidLeaveDaysInPeriod(ctx context.Context, companyID, employeeID string, month, year int) (decimal.Decimal, error) {
	from, to := monthBounds(month, year)

	requests, err := s.requestRepo.ListApprovedUnpaid(ctx, employeeID, from, to)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to list unpaid leave: %w", err)
	}
	if len(requests) == 0 {
		return decimal.Zero, nil
	}

	holidays, err := s.holidays(ctx, companyID, from, to)
	if err != nil {
		return decimal.Zero, err
	}

	total := 0
	for _, r := range requests {
		start, end, ok := clip(truncateDay(r.StartDate), truncateDay(r.EndDate), from, to)
		if !ok {
			continue
		}
		total += WorkingDays(start, end, holidays)
	}
	return decimal.NewFromInt(int64(total)), nil
}

func (s *LeaveServiceImpl) workingDays(ctx context.Context, companyID string, start, end time.Time) (int, error) {
	holidays, err := s.holidays(ctx, companyID, start, end)
	if err != nil {
		return 0, err
	}
	return WorkingDays(start, end, holidays), nil
}

func (s *LeaveServiceImpl) holidays(ctx context.Context, companyID string, from, to time.Time) (HolidaySet, error) {
	list, err := s.holidayRepo.ListInRange(ctx, companyID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list public holidays: %w", err)
	}
	return NewHolidaySet(list), nil
}

var _ leave.LeaveService = (*LeaveServiceImpl)(nil)
var _ leave.UnpaidLeaveCounter = (*LeaveServiceImpl)(nil)

