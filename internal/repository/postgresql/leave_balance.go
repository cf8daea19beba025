package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/leave"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type balanceRepositoryImpl struct {
	db *database.DB
}

func NewBalanceRepository(db *database.DB) leave.BalanceRepository {
	return &balanceRepositoryImpl{db: db}
}

const balanceColumns = `id, employee_id, leave_type_id, year, entitled_days, used_days, carried_forward, created_at, updated_at`

func scanBalance(row pgx.Row) (leave.Balance, error) {
	var b leave.Balance
	err := row.Scan(&b.ID, &b.EmployeeID, &b.LeaveTypeID, &b.Year, &b.EntitledDays, &b.UsedDays, &b.CarriedForward, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

func (r *balanceRepositoryImpl) get(ctx context.Context, suffix string, employeeID, leaveTypeID string, year int) (leave.Balance, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + balanceColumns + `
		FROM leave_balances
		WHERE employee_id = $1 AND leave_type_id = $2 AND year = $3
	` + suffix
	b, err := scanBalance(q.QueryRow(ctx, query, employeeID, leaveTypeID, year))
	if err != nil {
		if err == pgx.ErrNoRows {
			return leave.Balance{}, leave.ErrBalanceNotFound
		}
		return leave.Balance{}, fmt.Errorf("failed to get leave balance: %w", err)
	}
	return b, nil
}

// Get implements leave.BalanceRepository.
func (r *balanceRepositoryImpl) Get(ctx context.Context, employeeID, leaveTypeID string, year int) (leave.Balance, error) {
	return r.get(ctx, "", employeeID, leaveTypeID, year)
}

// GetForUpdate implements leave.BalanceRepository.
func (r *balanceRepositoryImpl) GetForUpdate(ctx context.Context, employeeID, leaveTypeID string, year int) (leave.Balance, error) {
	return r.get(ctx, "FOR UPDATE", employeeID, leaveTypeID, year)
}

// ListByEmployeeYear implements leave.BalanceRepository.
func (r *balanceRepositoryImpl) ListByEmployeeYear(ctx context.Context, employeeID string, year int) ([]leave.Balance, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + balanceColumns + `
		FROM leave_balances
		WHERE employee_id = $1 AND year = $2
		ORDER BY leave_type_id
	`
	rows, err := q.Query(ctx, query, employeeID, year)
	if err != nil {
		return nil, fmt.Errorf("failed to list leave balances: %w", err)
	}
	defer rows.Close()

	var balances []leave.Balance
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan leave balance: %w", err)
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

// CreateIfMissing implements leave.BalanceRepository.
func (r *balanceRepositoryImpl) CreateIfMissing(ctx context.Context, b leave.Balance) (bool, error) {
	q := GetQuerier(ctx, r.db)

	if b.ID == "" {
		b.ID = uuid.New().String()
	}

	tag, err := q.Exec(ctx, `
		INSERT INTO leave_balances (id, employee_id, leave_type_id, year, entitled_days, used_days, carried_forward)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (employee_id, leave_type_id, year) DO NOTHING
	`, b.ID, b.EmployeeID, b.LeaveTypeID, b.Year, b.EntitledDays, b.UsedDays, b.CarriedForward)
	if err != nil {
		return false, fmt.Errorf("failed to create leave balance: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// AdjustUsed implements leave.BalanceRepository.
func (r *balanceRepositoryImpl) AdjustUsed(ctx context.Context, id string, delta decimal.Decimal) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `
		UPDATE leave_balances SET used_days = used_days + $2, updated_at = NOW()
		WHERE id = $1
	`, id, delta)
	if err != nil {
		return fmt.Errorf("failed to adjust leave balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return leave.ErrBalanceNotFound
	}
	return nil
}
