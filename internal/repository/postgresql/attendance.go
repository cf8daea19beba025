package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// ========== SCHEDULES ==========

type scheduleRepositoryImpl struct {
	db *database.DB
}

func NewScheduleRepository(db *database.DB) attendance.ScheduleRepository {
	return &scheduleRepositoryImpl{db: db}
}

const scheduleColumns = `id, company_id, employee_id, work_date, shift_start, shift_end, break_minutes, is_rest_day, created_at, updated_at`

func scanSchedule(row pgx.Row) (attendance.Schedule, error) {
	var s attendance.Schedule
	var start, end pgtype.Time
	err := row.Scan(&s.ID, &s.CompanyID, &s.EmployeeID, &s.WorkDate, &start, &end, &s.BreakMinutes, &s.IsRestDay, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return attendance.Schedule{}, err
	}
	s.ShiftStart = timeOfDay(start)
	s.ShiftEnd = timeOfDay(end)
	return s, nil
}

// GetByEmployeeDate implements attendance.ScheduleRepository.
func (r *scheduleRepositoryImpl) GetByEmployeeDate(ctx context.Context, employeeID string, workDate time.Time) (attendance.Schedule, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE employee_id = $1 AND work_date = $2`
	s, err := scanSchedule(q.QueryRow(ctx, query, employeeID, workDate))
	if err != nil {
		if err == pgx.ErrNoRows {
			return attendance.Schedule{}, attendance.ErrScheduleNotFound
		}
		return attendance.Schedule{}, fmt.Errorf("failed to get schedule: %w", err)
	}
	return s, nil
}

// ListByEmployeePeriod implements attendance.ScheduleRepository.
func (r *scheduleRepositoryImpl) ListByEmployeePeriod(ctx context.Context, employeeID string, from, to time.Time) ([]attendance.Schedule, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + scheduleColumns + `
		FROM schedules
		WHERE employee_id = $1 AND work_date BETWEEN $2 AND $3
		ORDER BY work_date
	`
	rows, err := q.Query(ctx, query, employeeID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	defer rows.Close()

	var schedules []attendance.Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule: %w", err)
		}
		schedules = append(schedules, s)
	}
	return schedules, rows.Err()
}

// DeleteFromDate implements attendance.ScheduleRepository.
func (r *scheduleRepositoryImpl) DeleteFromDate(ctx context.Context, employeeID string, from time.Time) (int64, error) {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `DELETE FROM schedules WHERE employee_id = $1 AND work_date >= $2`, employeeID, from)
	if err != nil {
		return 0, fmt.Errorf("failed to delete schedules: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ========== CLOCK RECORDS ==========

type clockRecordRepositoryImpl struct {
	db *database.DB
}

func NewClockRecordRepository(db *database.DB) attendance.ClockRecordRepository {
	return &clockRecordRepositoryImpl{db: db}
}

const clockRecordColumns = `
	id, company_id, employee_id, work_date,
	clock_in_1, clock_out_1, clock_in_2, clock_out_2,
	total_work_minutes, total_work_hours, ot_minutes, ot_hours, ot_flagged, ot_approved,
	late_minutes, early_minutes, status, created_at, updated_at`

func scanClockRecord(row pgx.Row) (attendance.ClockRecord, error) {
	var rec attendance.ClockRecord
	var in1, out1, in2, out2 pgtype.Time
	err := row.Scan(
		&rec.ID, &rec.CompanyID, &rec.EmployeeID, &rec.WorkDate,
		&in1, &out1, &in2, &out2,
		&rec.TotalWorkMinutes, &rec.TotalWorkHours, &rec.OTMinutes, &rec.OTHours, &rec.OTFlagged, &rec.OTApproved,
		&rec.LateMinutes, &rec.EarlyMinutes, &rec.Status, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return attendance.ClockRecord{}, err
	}
	rec.ClockIn1 = timeOfDayPtr(in1)
	rec.ClockOut1 = timeOfDayPtr(out1)
	rec.ClockIn2 = timeOfDayPtr(in2)
	rec.ClockOut2 = timeOfDayPtr(out2)
	return rec, nil
}

// GetByID implements attendance.ClockRecordRepository.
func (r *clockRecordRepositoryImpl) GetByID(ctx context.Context, id string, companyID string) (attendance.ClockRecord, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + clockRecordColumns + ` FROM clock_records WHERE id = $1 AND company_id = $2`
	rec, err := scanClockRecord(q.QueryRow(ctx, query, id, companyID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return attendance.ClockRecord{}, attendance.ErrClockRecordNotFound
		}
		return attendance.ClockRecord{}, fmt.Errorf("failed to get clock record: %w", err)
	}
	return rec, nil
}

// GetByEmployeeDateForUpdate implements attendance.ClockRecordRepository.
func (r *clockRecordRepositoryImpl) GetByEmployeeDateForUpdate(ctx context.Context, employeeID string, workDate time.Time) (attendance.ClockRecord, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + clockRecordColumns + ` FROM clock_records WHERE employee_id = $1 AND work_date = $2 FOR UPDATE`
	rec, err := scanClockRecord(q.QueryRow(ctx, query, employeeID, workDate))
	if err != nil {
		if err == pgx.ErrNoRows {
			return attendance.ClockRecord{}, attendance.ErrClockRecordNotFound
		}
		return attendance.ClockRecord{}, fmt.Errorf("failed to lock clock record: %w", err)
	}
	return rec, nil
}

// Upsert implements attendance.ClockRecordRepository.
func (r *clockRecordRepositoryImpl) Upsert(ctx context.Context, record attendance.ClockRecord) (attendance.ClockRecord, error) {
	q := GetQuerier(ctx, r.db)

	if record.ID == "" {
		record.ID = uuid.New().String()
	}

	query := `
		INSERT INTO clock_records (
			id, company_id, employee_id, work_date,
			clock_in_1, clock_out_1, clock_in_2, clock_out_2,
			total_work_minutes, total_work_hours, ot_minutes, ot_hours, ot_flagged, ot_approved,
			late_minutes, early_minutes, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (employee_id, work_date) DO UPDATE SET
			clock_in_1 = EXCLUDED.clock_in_1,
			clock_out_1 = EXCLUDED.clock_out_1,
			clock_in_2 = EXCLUDED.clock_in_2,
			clock_out_2 = EXCLUDED.clock_out_2,
			total_work_minutes = EXCLUDED.total_work_minutes,
			total_work_hours = EXCLUDED.total_work_hours,
			ot_minutes = EXCLUDED.ot_minutes,
			ot_hours = EXCLUDED.ot_hours,
			ot_flagged = EXCLUDED.ot_flagged,
			ot_approved = EXCLUDED.ot_approved,
			late_minutes = EXCLUDED.late_minutes,
			early_minutes = EXCLUDED.early_minutes,
			status = EXCLUDED.status,
			updated_at = NOW()
		RETURNING ` + clockRecordColumns

	saved, err := scanClockRecord(q.QueryRow(ctx, query,
		record.ID, record.CompanyID, record.EmployeeID, record.WorkDate,
		pgTimePtr(record.ClockIn1), pgTimePtr(record.ClockOut1), pgTimePtr(record.ClockIn2), pgTimePtr(record.ClockOut2),
		record.TotalWorkMinutes, record.TotalWorkHours, record.OTMinutes, record.OTHours, record.OTFlagged, record.OTApproved,
		record.LateMinutes, record.EarlyMinutes, record.Status,
	))
	if err != nil {
		return attendance.ClockRecord{}, fmt.Errorf("failed to upsert clock record: %w", err)
	}
	return saved, nil
}

// ListByEmployeePeriod implements attendance.ClockRecordRepository.
func (r *clockRecordRepositoryImpl) ListByEmployeePeriod(ctx context.Context, employeeID string, from, to time.Time) ([]attendance.ClockRecord, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + clockRecordColumns + `
		FROM clock_records
		WHERE employee_id = $1 AND work_date BETWEEN $2 AND $3
		ORDER BY work_date
	`
	rows, err := q.Query(ctx, query, employeeID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list clock records: %w", err)
	}
	defer rows.Close()

	var records []attendance.ClockRecord
	for rows.Next() {
		rec, err := scanClockRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan clock record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// SetOTApproval implements attendance.ClockRecordRepository.
func (r *clockRecordRepositoryImpl) SetOTApproval(ctx context.Context, id string, companyID string, approved bool) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `
		UPDATE clock_records SET ot_approved = $3, updated_at = NOW()
		WHERE id = $1 AND company_id = $2
	`, id, companyID, approved)
	if err != nil {
		return fmt.Errorf("failed to set OT approval: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return attendance.ErrClockRecordNotFound
	}
	return nil
}
