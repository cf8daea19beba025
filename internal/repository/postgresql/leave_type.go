package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/leave"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type leaveTypeRepositoryImpl struct {
	db *database.DB
}

func NewLeaveTypeRepository(db *database.DB) leave.LeaveTypeRepository {
	return &leaveTypeRepositoryImpl{db: db}
}

const leaveTypeColumns = `id, company_id, code, name, is_paid, is_active, default_days_per_year, gender_restriction, created_at, updated_at`

func scanLeaveType(row pgx.Row) (leave.LeaveType, error) {
	var lt leave.LeaveType
	err := row.Scan(
		&lt.ID, &lt.CompanyID, &lt.Code, &lt.Name, &lt.IsPaid, &lt.IsActive,
		&lt.DefaultDaysPerYear, &lt.GenderRestriction, &lt.CreatedAt, &lt.UpdatedAt,
	)
	return lt, err
}

// GetByID implements leave.LeaveTypeRepository.
func (r *leaveTypeRepositoryImpl) GetByID(ctx context.Context, id string, companyID string) (leave.LeaveType, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + leaveTypeColumns + ` FROM leave_types WHERE id = $1 AND company_id = $2`
	lt, err := scanLeaveType(q.QueryRow(ctx, query, id, companyID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return leave.LeaveType{}, leave.ErrLeaveTypeNotFound
		}
		return leave.LeaveType{}, fmt.Errorf("failed to get leave type: %w", err)
	}
	return lt, nil
}

// ListByCompany implements leave.LeaveTypeRepository.
func (r *leaveTypeRepositoryImpl) ListByCompany(ctx context.Context, companyID string) ([]leave.LeaveType, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + leaveTypeColumns + ` FROM leave_types WHERE company_id = $1 ORDER BY name`
	rows, err := q.Query(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list leave types: %w", err)
	}
	defer rows.Close()

	var types []leave.LeaveType
	for rows.Next() {
		lt, err := scanLeaveType(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan leave type: %w", err)
		}
		types = append(types, lt)
	}
	return types, rows.Err()
}

// CreateMissing implements leave.LeaveTypeRepository.
func (r *leaveTypeRepositoryImpl) CreateMissing(ctx context.Context, types []leave.LeaveType) (int, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO leave_types (id, company_id, code, name, is_paid, is_active, default_days_per_year, gender_restriction)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (company_id, code) DO NOTHING
	`
	inserted := 0
	for _, lt := range types {
		if lt.ID == "" {
			lt.ID = uuid.New().String()
		}
		tag, err := q.Exec(ctx, query,
			lt.ID, lt.CompanyID, lt.Code, lt.Name, lt.IsPaid, lt.IsActive, lt.DefaultDaysPerYear, lt.GenderRestriction,
		)
		if err != nil {
			return inserted, fmt.Errorf("failed to create leave type %s: %w", lt.Code, err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}
