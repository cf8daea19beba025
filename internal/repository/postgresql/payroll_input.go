package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type inputRepositoryImpl struct {
	db *database.DB
}

func NewInputRepository(db *database.DB) payroll.InputRepository {
	return &inputRepositoryImpl{db: db}
}

const inputColumns = `
	id, company_id, employee_id, month, year,
	sales_amount, trip_count, trip_commission, outstation_days, outstation_amount,
	other_earnings, bonus, attendance_bonus, other_deductions, benefits_in_kind,
	updated_at`

func scanInputs(row pgx.Row) (payroll.MonthlyInputs, error) {
	var in payroll.MonthlyInputs
	err := row.Scan(
		&in.ID, &in.CompanyID, &in.EmployeeID, &in.Month, &in.Year,
		&in.SalesAmount, &in.TripCount, &in.TripCommission, &in.OutstationDays, &in.OutstationAmount,
		&in.OtherEarnings, &in.Bonus, &in.AttendanceBonus, &in.OtherDeductions, &in.BenefitsInKind,
		&in.UpdatedAt,
	)
	return in, err
}

// Get implements payroll.InputRepository.
func (r *inputRepositoryImpl) Get(ctx context.Context, employeeID string, month, year int) (payroll.MonthlyInputs, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + inputColumns + ` FROM payroll_inputs WHERE employee_id = $1 AND month = $2 AND year = $3`
	in, err := scanInputs(q.QueryRow(ctx, query, employeeID, month, year))
	if err != nil {
		if err == pgx.ErrNoRows {
			return payroll.MonthlyInputs{}, payroll.ErrInputsNotFound
		}
		return payroll.MonthlyInputs{}, fmt.Errorf("failed to get payroll inputs: %w", err)
	}
	return in, nil
}

// Upsert implements payroll.InputRepository.
func (r *inputRepositoryImpl) Upsert(ctx context.Context, in payroll.MonthlyInputs) (payroll.MonthlyInputs, error) {
	q := GetQuerier(ctx, r.db)

	if in.ID == "" {
		in.ID = uuid.New().String()
	}

	query := `
		INSERT INTO payroll_inputs (
			id, company_id, employee_id, month, year,
			sales_amount, trip_count, trip_commission, outstation_days, outstation_amount,
			other_earnings, bonus, attendance_bonus, other_deductions, benefits_in_kind
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (employee_id, month, year) DO UPDATE SET
			sales_amount = EXCLUDED.sales_amount,
			trip_count = EXCLUDED.trip_count,
			trip_commission = EXCLUDED.trip_commission,
			outstation_days = EXCLUDED.outstation_days,
			outstation_amount = EXCLUDED.outstation_amount,
			other_earnings = EXCLUDED.other_earnings,
			bonus = EXCLUDED.bonus,
			attendance_bonus = EXCLUDED.attendance_bonus,
			other_deductions = EXCLUDED.other_deductions,
			benefits_in_kind = EXCLUDED.benefits_in_kind,
			updated_at = NOW()
		RETURNING ` + inputColumns

	saved, err := scanInputs(q.QueryRow(ctx, query,
		in.ID, in.CompanyID, in.EmployeeID, in.Month, in.Year,
		in.SalesAmount, in.TripCount, in.TripCommission, in.OutstationDays, in.OutstationAmount,
		in.OtherEarnings, in.Bonus, in.AttendanceBonus, in.OtherDeductions, in.BenefitsInKind,
	))
	if err != nil {
		return payroll.MonthlyInputs{}, fmt.Errorf("failed to upsert payroll inputs: %w", err)
	}
	return saved, nil
}
