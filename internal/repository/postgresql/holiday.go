package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/leave"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/pkg/database"
)

type holidayRepositoryImpl struct {
	db *database.DB
}

func NewHolidayRepository(db *database.DB) leave.HolidayRepository {
	return &holidayRepositoryImpl{db: db}
}

// ListInRange implements leave.HolidayRepository.
func (r *holidayRepositoryImpl) ListInRange(ctx context.Context, companyID string, from, to time.Time) ([]leave.Holiday, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, company_id, holiday_date, year, name
		FROM public_holidays
		WHERE (company_id IS NULL OR company_id = $1)
		  AND holiday_date BETWEEN $2 AND $3
		ORDER BY holiday_date
	`
	rows, err := q.Query(ctx, query, companyID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list public holidays: %w", err)
	}
	defer rows.Close()

	var holidays []leave.Holiday
	for rows.Next() {
		var h leave.Holiday
		if err := rows.Scan(&h.ID, &h.CompanyID, &h.Date, &h.Year, &h.Name); err != nil {
			return nil, fmt.Errorf("failed to scan public holiday: %w", err)
		}
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}
