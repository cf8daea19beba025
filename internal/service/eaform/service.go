package eaform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/company"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/eaform"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/employee"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/pkg/database"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/pkg/events"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/pkg/jwt"
)

type EAFormServiceImpl struct {
	tx           database.Transactor
	formRepo     eaform.FormRepository
	employeeRepo employee.EmployeeRepository
	companyRepo  company.CompanyRepository
	runRepo      payroll.RunRepository
	itemRepo     payroll.ItemRepository
	publisher    events.Publisher
	now          func() time.Time
}

func NewEAFormService(
	tx database.Transactor,
	formRepo eaform.FormRepository,
	employeeRepo employee.EmployeeRepository,
	companyRepo company.CompanyRepository,
	runRepo payroll.RunRepository,
	itemRepo payroll.ItemRepository,
	publisher events.Publisher,
) eaform.EAFormService {
	return &EAFormServiceImpl{
		tx:           tx,
		formRepo:     formRepo,
		employeeRepo: employeeRepo,
		companyRepo:  companyRepo,
		runRepo:      runRepo,
		itemRepo:     itemRepo,
		publisher:    publisher,
		now:          time.Now,
	}
}

// Generate implements eaform.EAFormService. One employee's failure is
// reported in the response and does not stop the others.
func (s *EAFormServiceImpl) Generate(ctx context.Context, req eaform.GenerateRequest) (eaform.GenerateResponse, error) {
	if err := req.Validate(); err != nil {
		return eaform.GenerateResponse{}, err
	}
	caller, err := jwt.ClaimsFromContext(ctx)
	if err != nil {
		return eaform.GenerateResponse{}, err
	}
	if err := caller.RequireManager(); err != nil {
		return eaform.GenerateResponse{}, err
	}

	runs, err := s.runRepo.ListByYear(ctx, caller.CompanyID, req.Year)
	if err != nil {
		return eaform.GenerateResponse{}, fmt.Errorf("failed to list payroll runs: %w", err)
	}
	var drafts []string
	for _, r := range runs {
		if r.Status == payroll.RunStatusDraft {
			drafts = append(drafts, r.ID)
		}
	}
	if len(drafts) > 0 && !req.AllowDraft {
		return eaform.GenerateResponse{}, &eaform.YearNotFinalizedError{Year: req.Year, DraftRuns: drafts}
	}

	comp, err := s.companyRepo.GetByID(ctx, caller.CompanyID)
	if err != nil {
		return eaform.GenerateResponse{}, err
	}

	resp := eaform.GenerateResponse{Errors: []eaform.GenerateError{}}
	explicit := len(req.EmployeeIDs) > 0

	paid, err := s.employeeRepo.ListPaidInYear(ctx, caller.CompanyID, req.Year)
	if err != nil {
		return eaform.GenerateResponse{}, fmt.Errorf("failed to list paid employees: %w", err)
	}

	employees := paid
	if explicit {
		byID := make(map[string]employee.Employee, len(paid))
		for _, emp := range paid {
			byID[emp.ID] = emp
		}
		employees = nil
		for _, id := range req.EmployeeIDs {
			emp, ok := byID[id]
			if !ok {
				// Not paid this year; a live employee still gets ErrNoPaidPayroll below.
				emp, err = s.employeeRepo.GetByID(ctx, id, caller.CompanyID)
				if err != nil {
					resp.Errors = append(resp.Errors, eaform.GenerateError{EmployeeID: id, Error: err.Error()})
					continue
				}
			}
			employees = append(employees, emp)
		}
	}

	for _, emp := range employees {
		changed, err := s.generateOne(ctx, comp, emp, req.Year)
		switch {
		case errors.Is(err, eaform.ErrNoPaidPayroll):
			// Only employees asked for by id hear about an empty year.
			if explicit {
				resp.Errors = append(resp.Errors, eaform.GenerateError{EmployeeID: emp.ID, Error: err.Error()})
			}
		case err != nil:
			slog.Error("failed to generate EA form", "employee_id", emp.ID, "company_id", comp.ID, "year", req.Year, "error", err)
			resp.Errors = append(resp.Errors, eaform.GenerateError{EmployeeID: emp.ID, Error: err.Error()})
		case changed:
			resp.Generated++
		default:
			resp.Unchanged++
		}
	}

	slog.Info("EA forms generated",
		"company_id", comp.ID,
		"year", req.Year,
		"generated", resp.Generated,
		"unchanged", resp.Unchanged,
		"errors", len(resp.Errors),
	)
	if resp.Generated > 0 {
		s.publisher.Publish(ctx, events.Event{
			Type:        events.EAFormGenerated,
			CompanyID:   comp.ID,
			AggregateID: fmt.Sprintf("%s:%d", comp.ID, req.Year),
			OccurredAt:  s.now(),
			Payload:     map[string]int{"year": req.Year, "generated": resp.Generated},
		})
	}
	return resp, nil
}

// generateOne reports whether the stored form was written.
func (s *EAFormServiceImpl) generateOne(ctx context.Context, comp company.Company, emp employee.Employee, year int) (bool, error) {
	changed := false
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		items, err := s.itemRepo.ListPaidByEmployeeYear(ctx, emp.ID, year)
		if err != nil {
			return fmt.Errorf("failed to list paid payroll items: %w", err)
		}
		if len(items) == 0 {
			return eaform.ErrNoPaidPayroll
		}

		hash, err := SourceHash(items)
		if err != nil {
			return fmt.Errorf("failed to hash payroll items: %w", err)
		}
		existing, err := s.formRepo.Get(ctx, comp.ID, emp.ID, year)
		switch {
		case err == nil:
			if existing.SourceHash == hash {
				return nil
			}
		case !errors.Is(err, eaform.ErrFormNotFound):
			return err
		}

		_, err = s.formRepo.Upsert(ctx, eaform.Form{
			ID:          existing.ID,
			CompanyID:   comp.ID,
			EmployeeID:  emp.ID,
			Year:        year,
			FormData:    Aggregate(comp, emp, year, items),
			SourceHash:  hash,
			GeneratedAt: s.now(),
		})
		if err != nil {
			return fmt.Errorf("failed to save EA form: %w", err)
		}
		changed = true
		return nil
	})
	return changed, err
}

// Get implements eaform.EAFormService. Employees may read their own form.
func (s *EAFormServiceImpl) Get(ctx context.Context, year int, employeeID string) (eaform.FormResponse, error) {
	caller, err := jwt.ClaimsFromContext(ctx)
	if err != nil {
		return eaform.FormResponse{}, err
	}
	if !caller.CanAccessEmployee(employeeID) {
		return eaform.FormResponse{}, jwt.ErrInsufficientRole
	}

	form, err := s.formRepo.Get(ctx, caller.CompanyID, employeeID, year)
	if err != nil {
		return eaform.FormResponse{}, err
	}
	return eaform.NewFormResponse(form), nil
}
