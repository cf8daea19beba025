package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/employee"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/pkg/jwt"
)

type InputServiceImpl struct {
	inputRepo    payroll.InputRepository
	employeeRepo employee.EmployeeRepository
	runRepo      payroll.RunRepository
}

func NewInputService(inputRepo payroll.InputRepository, employeeRepo employee.EmployeeRepository, runRepo payroll.RunRepository) *InputServiceImpl {
	return &InputServiceImpl{
		inputRepo:    inputRepo,
		employeeRepo: employeeRepo,
		runRepo:      runRepo,
	}
}

// Get implements payroll.InputService. Missing inputs read as zeroes.
func (s *InputServiceImpl) Get(ctx context.Context, employeeID string, month, year int) (payroll.InputsResponse, error) {
	if month < 1 || month > 12 || year < 1 {
		return payroll.InputsResponse{}, payroll.ErrInvalidPeriod
	}
	caller, err := jwt.ClaimsFromContext(ctx)
	if err != nil {
		return payroll.InputsResponse{}, err
	}
	if !caller.CanAccessEmployee(employeeID) {
		return payroll.InputsResponse{}, jwt.ErrInsufficientRole
	}
	if _, err := s.employeeRepo.GetByID(ctx, employeeID, caller.CompanyID); err != nil {
		return payroll.InputsResponse{}, err
	}

	in, err := s.inputRepo.Get(ctx, employeeID, month, year)
	if errors.Is(err, payroll.ErrInputsNotFound) {
		return payroll.NewInputsResponse(payroll.EmptyInputs(employeeID, month, year)), nil
	}
	if err != nil {
		return payroll.InputsResponse{}, err
	}
	return payroll.NewInputsResponse(in), nil
}

// Upsert implements payroll.InputService. Inputs of a period whose run is
// already approved are frozen.
func (s *InputServiceImpl) Upsert(ctx context.Context, req payroll.UpsertInputsRequest) (payroll.InputsResponse, error) {
	if err := req.Validate(); err != nil {
		return payroll.InputsResponse{}, err
	}
	caller, err := jwt.ClaimsFromContext(ctx)
	if err != nil {
		return payroll.InputsResponse{}, err
	}
	if err := caller.RequireManager(); err != nil {
		return payroll.InputsResponse{}, err
	}
	if _, err := s.employeeRepo.GetByID(ctx, req.EmployeeID, caller.CompanyID); err != nil {
		return payroll.InputsResponse{}, err
	}

	run, err := s.runRepo.GetOpenByPeriod(ctx, caller.CompanyID, req.Month, req.Year)
	switch {
	case err == nil:
		if run.Status.Finalized() {
			return payroll.InputsResponse{}, payroll.ErrPayrollLockedPeriod
		}
	case !errors.Is(err, payroll.ErrRunNotFound):
		return payroll.InputsResponse{}, err
	}

	current, err := s.inputRepo.Get(ctx, req.EmployeeID, req.Month, req.Year)
	if errors.Is(err, payroll.ErrInputsNotFound) {
		current, err = payroll.EmptyInputs(req.EmployeeID, req.Month, req.Year), nil
	}
	if err != nil {
		return payroll.InputsResponse{}, err
	}

	updated := req.Apply(current)
	updated.CompanyID = caller.CompanyID
	saved, err := s.inputRepo.Upsert(ctx, updated)
	if err != nil {
		return payroll.InputsResponse{}, fmt.Errorf("failed to save monthly inputs: %w", err)
	}

	slog.Info("payroll inputs updated", "employee_id", req.EmployeeID, "month", req.Month, "year", req.Year)
	return payroll.NewInputsResponse(saved), nil
}

var _ payroll.InputService = (*InputServiceImpl)(nil)
