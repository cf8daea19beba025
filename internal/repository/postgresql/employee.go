package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/employee"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type employeeRepositoryImpl struct {
	db *database.DB
}

func NewEmployeeRepository(db *database.DB) employee.EmployeeRepository {
	return &employeeRepositoryImpl{db: db}
}

const employeeColumns = `
	id, company_id, grouping_id, employee_code, full_name, ic_number, gender, dob,
	employment_type, work_type, status, join_date, last_working_day,
	basic_salary, allowance, overrides,
	residency_status, epf_contribution_type, tax_profile, outstation_meal_eligible,
	created_at, updated_at`

func scanEmployee(row pgx.Row) (employee.Employee, error) {
	var e employee.Employee
	err := row.Scan(
		&e.ID, &e.CompanyID, &e.GroupingID, &e.EmployeeCode, &e.FullName, &e.ICNumber, &e.Gender, &e.DOB,
		&e.EmploymentType, &e.WorkType, &e.Status, &e.JoinDate, &e.LastWorkingDay,
		&e.BasicSalary, &e.Allowance, &e.Overrides,
		&e.ResidencyStatus, &e.EPFContributionType, &e.TaxProfile, &e.OutstationMealEligible,
		&e.CreatedAt, &e.UpdatedAt,
	)
	return e, err
}

func (r *employeeRepositoryImpl) list(ctx context.Context, query string, args ...interface{}) ([]employee.Employee, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []employee.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

// GetByID implements employee.EmployeeRepository.
func (r *employeeRepositoryImpl) GetByID(ctx context.Context, id string, companyID string) (employee.Employee, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + employeeColumns + ` FROM employees WHERE id = $1 AND company_id = $2 AND deleted_at IS NULL`
	e, err := scanEmployee(q.QueryRow(ctx, query, id, companyID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return employee.Employee{}, employee.ErrEmployeeNotFound
		}
		return employee.Employee{}, fmt.Errorf("failed to get employee: %w", err)
	}
	return e, nil
}

// ListForPeriod implements employee.EmployeeRepository. Status is not
// filtered: someone who left mid-month is still paid for that month.
func (r *employeeRepositoryImpl) ListForPeriod(ctx context.Context, companyID string, from, to time.Time) ([]employee.Employee, error) {
	query := `
		SELECT ` + employeeColumns + `
		FROM employees
		WHERE company_id = $1
		  AND deleted_at IS NULL
		  AND join_date <= $3
		  AND (last_working_day IS NULL OR last_working_day >= $2)
		ORDER BY employee_code
	`
	employees, err := r.list(ctx, query, companyID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees for period: %w", err)
	}
	return employees, nil
}

// ListPaidInYear implements employee.EmployeeRepository. deleted_at is
// ignored: a deleted employee still needs the tax form for months paid.
func (r *employeeRepositoryImpl) ListPaidInYear(ctx context.Context, companyID string, year int) ([]employee.Employee, error) {
	query := `
		SELECT ` + employeeColumns + `
		FROM employees
		WHERE company_id = $1
		  AND EXISTS (
			SELECT 1
			FROM payroll_items i
			JOIN payroll_runs r ON r.id = i.run_id
			WHERE i.employee_id = employees.id
			  AND r.company_id = $1
			  AND r.year = $2
			  AND r.status = 'paid'
			  AND i.status = 'locked'
		  )
		ORDER BY employee_code
	`
	employees, err := r.list(ctx, query, companyID, year)
	if err != nil {
		return nil, fmt.Errorf("failed to list paid employees: %w", err)
	}
	return employees, nil
}

// ListDueForDeactivation implements employee.EmployeeRepository.
func (r *employeeRepositoryImpl) ListDueForDeactivation(ctx context.Context, asOf time.Time) ([]employee.Employee, error) {
	query := `
		SELECT ` + employeeColumns + `
		FROM employees
		WHERE status = 'active'
		  AND deleted_at IS NULL
		  AND last_working_day IS NOT NULL
		  AND last_working_day < $1
		ORDER BY company_id, employee_code
	`
	employees, err := r.list(ctx, query, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees due for deactivation: %w", err)
	}
	return employees, nil
}

// Deactivate implements employee.EmployeeRepository.
func (r *employeeRepositoryImpl) Deactivate(ctx context.Context, id string, companyID string) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `
		UPDATE employees SET status = 'inactive', updated_at = NOW()
		WHERE id = $1 AND company_id = $2 AND deleted_at IS NULL
	`, id, companyID)
	if err != nil {
		return fmt.Errorf("failed to deactivate employee: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return employee.ErrEmployeeNotFound
	}
	return nil
}
