package postgresql

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/company"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type companyRepositoryImpl struct {
	db *database.DB
}

func NewCompanyRepository(db *database.DB) company.CompanyRepository {
	return &companyRepositoryImpl{db: db}
}

const companyColumns = `id, name, grouping_type, settings, created_at, updated_at`

func scanCompany(row pgx.Row) (company.Company, error) {
	var c company.Company
	var raw []byte
	if err := row.Scan(&c.ID, &c.Name, &c.GroupingType, &raw, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return company.Company{}, err
	}
	// Stored settings are layered over the defaults so keys added later
	// keep their default value for older rows.
	c.Settings = company.DefaultSettings()
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &c.Settings); err != nil {
			return company.Company{}, fmt.Errorf("failed to decode settings of company %s: %w", c.ID, err)
		}
	}
	return c, nil
}

// GetByID implements company.CompanyRepository.
func (r *companyRepositoryImpl) GetByID(ctx context.Context, id string) (company.Company, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + companyColumns + ` FROM companies WHERE id = $1 AND deleted_at IS NULL`
	c, err := scanCompany(q.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return company.Company{}, company.ErrCompanyNotFound
		}
		return company.Company{}, fmt.Errorf("failed to get company: %w", err)
	}
	return c, nil
}

// ListAll implements company.CompanyRepository.
func (r *companyRepositoryImpl) ListAll(ctx context.Context) ([]company.Company, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + companyColumns + ` FROM companies WHERE deleted_at IS NULL ORDER BY created_at`
	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	defer rows.Close()

	var companies []company.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

// UpdateSettings implements company.CompanyRepository.
func (r *companyRepositoryImpl) UpdateSettings(ctx context.Context, id string, settings company.Settings) error {
	q := GetQuerier(ctx, r.db)

	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	tag, err := q.Exec(ctx, `UPDATE companies SET settings = $2, updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id, raw)
	if err != nil {
		return fmt.Errorf("failed to update company settings: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return company.ErrCompanyNotFound
	}
	return nil
}

type groupingRepositoryImpl struct {
	db *database.DB
}

func NewGroupingRepository(db *database.DB) company.GroupingRepository {
	return &groupingRepositoryImpl{db: db}
}

// GetByID implements company.GroupingRepository.
func (r *groupingRepositoryImpl) GetByID(ctx context.Context, id string, companyID string) (company.Grouping, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, company_id, kind, name, basic_salary_default, allowance_default,
			   payroll_structure, created_at, updated_at
		FROM groupings
		WHERE id = $1 AND company_id = $2
	`

	var g company.Grouping
	err := q.QueryRow(ctx, query, id, companyID).Scan(
		&g.ID, &g.CompanyID, &g.Kind, &g.Name, &g.BasicSalaryDefault, &g.AllowanceDefault,
		&g.Structure, &g.CreatedAt, &g.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return company.Grouping{}, company.ErrGroupingNotFound
		}
		return company.Grouping{}, fmt.Errorf("failed to get grouping: %w", err)
	}
	return g, nil
}
