package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/eaform"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type formRepositoryImpl struct {
	db *database.DB
}

func NewFormRepository(db *database.DB) eaform.FormRepository {
	return &formRepositoryImpl{db: db}
}

const formColumns = `id, company_id, employee_id, year, form_data, source_hash, generated_at, created_at, updated_at`

func scanForm(row pgx.Row) (eaform.Form, error) {
	var f eaform.Form
	err := row.Scan(&f.ID, &f.CompanyID, &f.EmployeeID, &f.Year, &f.FormData, &f.SourceHash, &f.GeneratedAt, &f.CreatedAt, &f.UpdatedAt)
	return f, err
}

// Get implements eaform.FormRepository.
func (r *formRepositoryImpl) Get(ctx context.Context, companyID, employeeID string, year int) (eaform.Form, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + formColumns + ` FROM ea_forms WHERE company_id = $1 AND employee_id = $2 AND year = $3`
	f, err := scanForm(q.QueryRow(ctx, query, companyID, employeeID, year))
	if err != nil {
		if err == pgx.ErrNoRows {
			return eaform.Form{}, eaform.ErrFormNotFound
		}
		return eaform.Form{}, fmt.Errorf("failed to get EA form: %w", err)
	}
	return f, nil
}

// Upsert implements eaform.FormRepository.
func (r *formRepositoryImpl) Upsert(ctx context.Context, form eaform.Form) (eaform.Form, error) {
	q := GetQuerier(ctx, r.db)

	if form.ID == "" {
		form.ID = uuid.New().String()
	}

	query := `
		INSERT INTO ea_forms (id, company_id, employee_id, year, form_data, source_hash, generated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (employee_id, year) DO UPDATE SET
			form_data = EXCLUDED.form_data,
			source_hash = EXCLUDED.source_hash,
			generated_at = EXCLUDED.generated_at,
			updated_at = NOW()
		RETURNING ` + formColumns

	saved, err := scanForm(q.QueryRow(ctx, query,
		form.ID, form.CompanyID, form.EmployeeID, form.Year, form.FormData, form.SourceHash, form.GeneratedAt,
	))
	if err != nil {
		return eaform.Form{}, fmt.Errorf("failed to upsert EA form: %w", err)
	}
	return saved, nil
}
