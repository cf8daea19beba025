package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/company"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/pkg/jwt"
)

// Automation runs the scheduled payroll steps each company opted into.
type Automation struct {
	runs        payroll.RunService
	companyRepo company.CompanyRepository
	runRepo     payroll.RunRepository
	now         func() time.Time
}

func NewAutomation(runs payroll.RunService, companyRepo company.CompanyRepository, runRepo payroll.RunRepository) *Automation {
	return &Automation{
		runs:        runs,
		companyRepo: companyRepo,
		runRepo:     runRepo,
		now:         time.Now,
	}
}

// AutoGenerate creates and generates last month's run for every company
// whose generate day is today. A run that already exists is left to the
// people who created it.
func (a *Automation) AutoGenerate(ctx context.Context) error {
	today := a.now()
	companies, err := a.companyRepo.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list companies: %w", err)
	}

	month, year := previousPeriod(int(today.Month()), today.Year())
	var errs []error
	for _, comp := range companies {
		policy := comp.Settings.Automation
		if !policy.AutoGenerate || policy.AutoGenerateDay != today.Day() {
			continue
		}
		if err := a.generateFor(jwt.WithSystemClaims(ctx, comp.ID), comp, month, year); err != nil {
			slog.Error("payroll auto-generate failed", "company_id", comp.ID, "month", month, "year", year, "error", err)
			errs = append(errs, fmt.Errorf("company %s: %w", comp.ID, err))
		}
	}
	return errors.Join(errs...)
}

func (a *Automation) generateFor(ctx context.Context, comp company.Company, month, year int) error {
	run, err := a.runs.Create(ctx, payroll.CreateRunRequest{CompanyID: comp.ID, Month: month, Year: year})
	if err != nil {
		var exists *payroll.RunExistsError
		if errors.As(err, &exists) {
			return nil
		}
		return err
	}

	generated, err := a.runs.Generate(ctx, run.RunID, nil)
	if err != nil {
		return err
	}
	slog.Info("payroll auto-generated", "company_id", comp.ID, "run_id", run.RunID, "employees", generated.Totals.Employees)

	if !comp.Settings.Automation.AutoApprove {
		return nil
	}
	if generated.Totals.Failed > 0 || generated.Totals.Flagged > 0 {
		slog.Info("payroll auto-approve skipped", "run_id", run.RunID, "failed", generated.Totals.Failed, "flagged", generated.Totals.Flagged)
		return nil
	}
	_, err = a.runs.Approve(ctx, run.RunID)
	return err
}

// AutoLock locks approved runs once the company's lock delay has passed.
// A zero delay disables automatic locking.
func (a *Automation) AutoLock(ctx context.Context) error {
	runs, err := a.runRepo.ListByStatus(ctx, payroll.RunStatusApproved)
	if err != nil {
		return fmt.Errorf("failed to list approved runs: %w", err)
	}

	settings := map[string]company.Settings{}
	now := a.now()
	var errs []error
	for _, run := range runs {
		if run.ApprovedAt == nil {
			continue
		}
		s, ok := settings[run.CompanyID]
		if !ok {
			comp, err := a.companyRepo.GetByID(ctx, run.CompanyID)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			s = comp.Settings
			settings[run.CompanyID] = s
		}

		days := s.Automation.LockAfterDays
		if days <= 0 || run.ApprovedAt.AddDate(0, 0, days).After(now) {
			continue
		}
		if _, err := a.runs.Lock(jwt.WithSystemClaims(ctx, run.CompanyID), run.ID); err != nil {
			slog.Error("payroll auto-lock failed", "run_id", run.ID, "company_id", run.CompanyID, "error", err)
			errs = append(errs, fmt.Errorf("run %s: %w", run.ID, err))
			continue
		}
		slog.Info("payroll run auto-locked", "run_id", run.ID, "company_id", run.CompanyID)
	}
	return errors.Join(errs...)
}
