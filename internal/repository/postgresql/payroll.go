package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ========== RUNS ==========

type runRepositoryImpl struct {
	db *database.DB
}

func NewRunRepository(db *database.DB) payroll.RunRepository {
	return &runRepositoryImpl{db: db}
}

// Only one non-cancelled run may exist per company and month.
const openRunConstraint = "uq_payroll_runs_open_period"

const runColumns = `
	id, company_id, month, year, status, totals,
	created_by, approved_by, approved_at, locked_at, payment,
	created_at, updated_at`

func scanRun(row pgx.Row) (payroll.Run, error) {
	var run payroll.Run
	err := row.Scan(
		&run.ID, &run.CompanyID, &run.Month, &run.Year, &run.Status, &run.Totals,
		&run.CreatedBy, &run.ApprovedBy, &run.ApprovedAt, &run.LockedAt, &run.Payment,
		&run.CreatedAt, &run.UpdatedAt,
	)
	return run, err
}

func (r *runRepositoryImpl) list(ctx context.Context, query string, args ...interface{}) ([]payroll.Run, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []payroll.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Create implements payroll.RunRepository.
func (r *runRepositoryImpl) Create(ctx context.Context, run payroll.Run) (payroll.Run, error) {
	q := GetQuerier(ctx, r.db)

	if run.ID == "" {
		run.ID = uuid.New().String()
	}

	query := `
		INSERT INTO payroll_runs (id, company_id, month, year, status, totals, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	err := q.QueryRow(ctx, query,
		run.ID, run.CompanyID, run.Month, run.Year, run.Status, run.Totals, run.CreatedBy,
	).Scan(&run.CreatedAt, &run.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, openRunConstraint) {
			return payroll.Run{}, &payroll.RunExistsError{CompanyID: run.CompanyID, Month: run.Month, Year: run.Year}
		}
		return payroll.Run{}, fmt.Errorf("failed to create payroll run: %w", err)
	}
	return run, nil
}

func (r *runRepositoryImpl) getByID(ctx context.Context, suffix string, id, companyID string) (payroll.Run, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + runColumns + ` FROM payroll_runs WHERE id = $1 AND company_id = $2 ` + suffix
	run, err := scanRun(q.QueryRow(ctx, query, id, companyID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return payroll.Run{}, payroll.ErrRunNotFound
		}
		return payroll.Run{}, fmt.Errorf("failed to get payroll run: %w", err)
	}
	return run, nil
}

// GetByID implements payroll.RunRepository.
func (r *runRepositoryImpl) GetByID(ctx context.Context, id string, companyID string) (payroll.Run, error) {
	return r.getByID(ctx, "", id, companyID)
}

// GetByIDForUpdate implements payroll.RunRepository.
func (r *runRepositoryImpl) GetByIDForUpdate(ctx context.Context, id string, companyID string) (payroll.Run, error) {
	return r.getByID(ctx, "FOR NO KEY UPDATE", id, companyID)
}

// LockPeriod implements payroll.RunRepository with a transaction-scoped
// advisory lock, released on commit or rollback.
func (r *runRepositoryImpl) LockPeriod(ctx context.Context, companyID string, month, year int) error {
	q := GetQuerier(ctx, r.db)

	if _, err := q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1), $2)`, companyID, year*100+month); err != nil {
		return fmt.Errorf("failed to lock payroll period: %w", err)
	}
	return nil
}

// GetOpenByPeriod implements payroll.RunRepository.
func (r *runRepositoryImpl) GetOpenByPeriod(ctx context.Context, companyID string, month, year int) (payroll.Run, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + runColumns + `
		FROM payroll_runs
		WHERE company_id = $1 AND month = $2 AND year = $3 AND status <> 'cancelled'
	`
	run, err := scanRun(q.QueryRow(ctx, query, companyID, month, year))
	if err != nil {
		if err == pgx.ErrNoRows {
			return payroll.Run{}, payroll.ErrRunNotFound
		}
		return payroll.Run{}, fmt.Errorf("failed to get payroll run for period: %w", err)
	}
	return run, nil
}

// ListByYear implements payroll.RunRepository.
func (r *runRepositoryImpl) ListByYear(ctx context.Context, companyID string, year int) ([]payroll.Run, error) {
	query := `
		SELECT ` + runColumns + `
		FROM payroll_runs
		WHERE company_id = $1 AND year = $2 AND status <> 'cancelled'
		ORDER BY month
	`
	runs, err := r.list(ctx, query, companyID, year)
	if err != nil {
		return nil, fmt.Errorf("failed to list payroll runs: %w", err)
	}
	return runs, nil
}

// ListByStatus implements payroll.RunRepository. It spans every company
// and is meant for scheduled jobs.
func (r *runRepositoryImpl) ListByStatus(ctx context.Context, status payroll.RunStatus) ([]payroll.Run, error) {
	query := `SELECT ` + runColumns + ` FROM payroll_runs WHERE status = $1 ORDER BY company_id, year, month`
	runs, err := r.list(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list payroll runs by status: %w", err)
	}
	return runs, nil
}

// Update implements payroll.RunRepository.
func (r *runRepositoryImpl) Update(ctx context.Context, run payroll.Run) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `
		UPDATE payroll_runs
		SET status = $3, totals = $4, approved_by = $5, approved_at = $6, locked_at = $7, payment = $8,
			updated_at = NOW()
		WHERE id = $1 AND company_id = $2
	`, run.ID, run.CompanyID, run.Status, run.Totals, run.ApprovedBy, run.ApprovedAt, run.LockedAt, run.Payment)
	if err != nil {
		return fmt.Errorf("failed to update payroll run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return payroll.ErrRunNotFound
	}
	return nil
}

// UpdateTotals implements payroll.RunRepository.
func (r *runRepositoryImpl) UpdateTotals(ctx context.Context, id string, totals payroll.Totals) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `UPDATE payroll_runs SET totals = $2, updated_at = NOW() WHERE id = $1`, id, totals)
	if err != nil {
		return fmt.Errorf("failed to update payroll run totals: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return payroll.ErrRunNotFound
	}
	return nil
}

// ========== ITEMS ==========

type itemRepositoryImpl struct {
	db *database.DB
}

func NewItemRepository(db *database.DB) payroll.ItemRepository {
	return &itemRepositoryImpl{db: db}
}

const itemColumns = `
	i.id, i.run_id, i.company_id, i.employee_id, i.status,
	i.earnings, i.deductions,
	i.statutory_base, i.epf_wage, i.gross, i.total_deductions, i.net_pay, i.benefits_in_kind,
	i.work_minutes, i.ot_minutes, i.late_minutes, i.early_minutes, i.unpaid_leave_days,
	i.variance, i.variance_flagged,
	i.warnings, i.failure_reason, i.table_refs, i.claim_ids, i.snapshot_hash,
	i.created_at, i.updated_at`

func scanItem(row pgx.Row) (payroll.Item, error) {
	var it payroll.Item
	err := row.Scan(
		&it.ID, &it.RunID, &it.CompanyID, &it.EmployeeID, &it.Status,
		&it.Earnings, &it.Deductions,
		&it.StatutoryBase, &it.EPFWage, &it.Gross, &it.TotalDeductions, &it.NetPay, &it.BenefitsInKind,
		&it.WorkMinutes, &it.OTMinutes, &it.LateMinutes, &it.EarlyMinutes, &it.UnpaidLeaveDays,
		&it.Variance, &it.VarianceFlagged,
		&it.Warnings, &it.FailureReason, &it.TableRefs, &it.ClaimIDs, &it.SnapshotHash,
		&it.CreatedAt, &it.UpdatedAt,
	)
	return it, err
}

func (r *itemRepositoryImpl) list(ctx context.Context, query string, args ...interface{}) ([]payroll.Item, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []payroll.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *itemRepositoryImpl) one(ctx context.Context, query string, args ...interface{}) (payroll.Item, error) {
	q := GetQuerier(ctx, r.db)

	it, err := scanItem(q.QueryRow(ctx, query, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return payroll.Item{}, payroll.ErrItemNotFound
		}
		return payroll.Item{}, fmt.Errorf("failed to get payroll item: %w", err)
	}
	return it, nil
}

// Upsert implements payroll.ItemRepository.
func (r *itemRepositoryImpl) Upsert(ctx context.Context, item payroll.Item) (payroll.Item, error) {
	q := GetQuerier(ctx, r.db)

	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	warnings := item.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	claimIDs := item.ClaimIDs
	if claimIDs == nil {
		claimIDs = []string{}
	}

	query := `
		INSERT INTO payroll_items AS i (
			id, run_id, company_id, employee_id, status,
			earnings, deductions,
			statutory_base, epf_wage, gross, total_deductions, net_pay, benefits_in_kind,
			work_minutes, ot_minutes, late_minutes, early_minutes, unpaid_leave_days,
			variance, variance_flagged,
			warnings, failure_reason, table_refs, claim_ids, snapshot_hash
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7,
			$8, $9, $10, $11, $12, $13,
			$14, $15, $16, $17, $18,
			$19, $20,
			$21, $22, $23, $24, $25
		)
		ON CONFLICT (run_id, employee_id) DO UPDATE SET
			status = EXCLUDED.status,
			earnings = EXCLUDED.earnings,
			deductions = EXCLUDED.deductions,
			statutory_base = EXCLUDED.statutory_base,
			epf_wage = EXCLUDED.epf_wage,
			gross = EXCLUDED.gross,
			total_deductions = EXCLUDED.total_deductions,
			net_pay = EXCLUDED.net_pay,
			benefits_in_kind = EXCLUDED.benefits_in_kind,
			work_minutes = EXCLUDED.work_minutes,
			ot_minutes = EXCLUDED.ot_minutes,
			late_minutes = EXCLUDED.late_minutes,
			early_minutes = EXCLUDED.early_minutes,
			unpaid_leave_days = EXCLUDED.unpaid_leave_days,
			variance = EXCLUDED.variance,
			variance_flagged = EXCLUDED.variance_flagged,
			warnings = EXCLUDED.warnings,
			failure_reason = EXCLUDED.failure_reason,
			table_refs = EXCLUDED.table_refs,
			claim_ids = EXCLUDED.claim_ids,
			snapshot_hash = EXCLUDED.snapshot_hash,
			updated_at = NOW()
		WHERE i.status <> 'locked'
		RETURNING ` + itemColumns

	saved, err := scanItem(q.QueryRow(ctx, query,
		item.ID, item.RunID, item.CompanyID, item.EmployeeID, item.Status,
		item.Earnings, item.Deductions,
		item.StatutoryBase, item.EPFWage, item.Gross, item.TotalDeductions, item.NetPay, item.BenefitsInKind,
		item.WorkMinutes, item.OTMinutes, item.LateMinutes, item.EarlyMinutes, item.UnpaidLeaveDays,
		item.Variance, item.VarianceFlagged,
		warnings, item.FailureReason, item.TableRefs, claimIDs, item.SnapshotHash,
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			return payroll.Item{}, fmt.Errorf("payroll item of employee %s in run %s is locked", item.EmployeeID, item.RunID)
		}
		return payroll.Item{}, fmt.Errorf("failed to upsert payroll item: %w", err)
	}
	return saved, nil
}

// GetByID implements payroll.ItemRepository.
func (r *itemRepositoryImpl) GetByID(ctx context.Context, id string, companyID string) (payroll.Item, error) {
	return r.one(ctx, `SELECT `+itemColumns+` FROM payroll_items i WHERE i.id = $1 AND i.company_id = $2`, id, companyID)
}

// GetByRunEmployee implements payroll.ItemRepository.
func (r *itemRepositoryImpl) GetByRunEmployee(ctx context.Context, runID, employeeID string) (payroll.Item, error) {
	return r.one(ctx, `SELECT `+itemColumns+` FROM payroll_items i WHERE i.run_id = $1 AND i.employee_id = $2`, runID, employeeID)
}

// ListByRun implements payroll.ItemRepository.
func (r *itemRepositoryImpl) ListByRun(ctx context.Context, runID string) ([]payroll.Item, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM payroll_items i
		JOIN employees e ON e.id = i.employee_id
		WHERE i.run_id = $1
		ORDER BY e.employee_code
	`
	items, err := r.list(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payroll items: %w", err)
	}
	return items, nil
}

// DeleteByRun implements payroll.ItemRepository.
func (r *itemRepositoryImpl) DeleteByRun(ctx context.Context, runID string) (int64, error) {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `DELETE FROM payroll_items WHERE run_id = $1 AND status <> 'locked'`, runID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete payroll items: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Delete implements payroll.ItemRepository. Locked items are never removed.
func (r *itemRepositoryImpl) Delete(ctx context.Context, id string) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `DELETE FROM payroll_items WHERE id = $1 AND status <> 'locked'`, id)
	if err != nil {
		return fmt.Errorf("failed to delete payroll item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return payroll.ErrItemNotFound
	}
	return nil
}

// Lock implements payroll.ItemRepository.
func (r *itemRepositoryImpl) Lock(ctx context.Context, id string, snapshotHash string) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `
		UPDATE payroll_items SET status = 'locked', snapshot_hash = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'computed'
	`, id, snapshotHash)
	if err != nil {
		return fmt.Errorf("failed to lock payroll item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return payroll.ErrItemNotFound
	}
	return nil
}

// GetForEmployeePeriod implements payroll.ItemRepository.
func (r *itemRepositoryImpl) GetForEmployeePeriod(ctx context.Context, employeeID string, month, year int) (payroll.Item, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM payroll_items i
		JOIN payroll_runs r ON r.id = i.run_id
		WHERE i.employee_id = $1 AND r.month = $2 AND r.year = $3 AND r.status <> 'cancelled'
	`
	return r.one(ctx, query, employeeID, month, year)
}

// YearToDate implements payroll.ItemRepository. Remuneration follows the
// statutory base the builder taxes, so allowances and OT outside the base
// and claims never reach it.
func (r *itemRepositoryImpl) YearToDate(ctx context.Context, employeeID string, year, beforeMonth int) (payroll.YearToDate, error) {
	q := GetQuerier(ctx, r.db)

	var ytd payroll.YearToDate
	err := q.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(i.statutory_base), 0),
			COALESCE(SUM(COALESCE((i.earnings->>'bonus')::numeric, 0)), 0),
			COALESCE(SUM((i.deductions->>'epf_employee')::numeric), 0),
			COALESCE(SUM((i.deductions->>'pcb')::numeric), 0)
		FROM payroll_items i
		JOIN payroll_runs r ON r.id = i.run_id
		WHERE i.employee_id = $1
		  AND r.year = $2
		  AND r.month < $3
		  AND r.status <> 'cancelled'
		  AND i.status <> 'failed'
	`, employeeID, year, beforeMonth).Scan(&ytd.StatutoryBase, &ytd.Bonus, &ytd.EPF, &ytd.PCB)
	if err != nil {
		return payroll.YearToDate{}, fmt.Errorf("failed to sum year to date: %w", err)
	}
	return ytd, nil
}

// ListPaidByEmployeeYear implements payroll.ItemRepository.
func (r *itemRepositoryImpl) ListPaidByEmployeeYear(ctx context.Context, employeeID string, year int) ([]payroll.Item, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM payroll_items i
		JOIN payroll_runs r ON r.id = i.run_id
		WHERE i.employee_id = $1 AND r.year = $2 AND r.status = 'paid' AND i.status = 'locked'
		ORDER BY r.month
	`
	items, err := r.list(ctx, query, employeeID, year)
	if err != nil {
		return nil, fmt.Errorf("failed to list paid payroll items: %w", err)
	}
	return items, nil
}
