package payroll

import "context"

// RunRepository persists payroll runs. Reads are scoped by companyID.
type RunRepository interface {
	Create(ctx context.Context, run Run) (Run, error)
	GetByID(ctx context.Context, id string, companyID string) (Run, error)
	// GetByIDForUpdate takes FOR NO KEY UPDATE on the run row so items can
	// still be written by other transactions.
	GetByIDForUpdate(ctx context.Context, id string, companyID string) (Run, error)
	// LockPeriod serializes run creation for one company and month.
	LockPeriod(ctx context.Context, companyID string, month, year int) error
	GetOpenByPeriod(ctx context.Context, companyID string, month, year int) (Run, error)
	ListByYear(ctx context.Context, companyID string, year int) ([]Run, error)
	ListByStatus(ctx context.Context, status RunStatus) ([]Run, error)
	Update(ctx context.Context, run Run) error
	UpdateTotals(ctx context.Context, id string, totals Totals) error
}

type ItemRepository interface {
	// Upsert writes the item keyed by (run, employee).
	Upsert(ctx context.Context, item Item) (Item, error)
	GetByID(ctx context.Context, id string, companyID string) (Item, error)
	GetByRunEmployee(ctx context.Context, runID, employeeID string) (Item, error)
	// ListByRun returns items ordered by employee code.
	ListByRun(ctx context.Context, runID string) ([]Item, error)
	DeleteByRun(ctx context.Context, runID string) (int64, error)
	Delete(ctx context.Context, id string) error
	Lock(ctx context.Context, id string, snapshotHash string) error
	// GetForEmployeePeriod returns the employee's item of the given month
	// from any non-cancelled run.
	GetForEmployeePeriod(ctx context.Context, employeeID string, month, year int) (Item, error)
	YearToDate(ctx context.Context, employeeID string, year, beforeMonth int) (YearToDate, error)
	ListPaidByEmployeeYear(ctx context.Context, employeeID string, year int) ([]Item, error)
}

type InputRepository interface {
	Get(ctx context.Context, employeeID string, month, year int) (MonthlyInputs, error)
	Upsert(ctx context.Context, in MonthlyInputs) (MonthlyInputs, error)
}

type AuditRepository interface {
	Append(ctx context.Context, entry AuditEntry) error
	ListByRun(ctx context.Context, runID string) ([]AuditEntry, error)
	LatestItemSnapshot(ctx context.Context, itemID string) (AuditEntry, error)
}
