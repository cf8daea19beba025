package postgresql

import (
	"errors"

	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/attendance"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

const uniqueViolation = "23505"

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == uniqueViolation && (constraint == "" || pgErr.ConstraintName == constraint)
}

// TIME columns carry microseconds since midnight.
const microsPerMinute = 60 * 1_000_000

func timeOfDay(t pgtype.Time) attendance.TimeOfDay {
	return attendance.TimeOfDay(t.Microseconds / microsPerMinute)
}

func timeOfDayPtr(t pgtype.Time) *attendance.TimeOfDay {
	if !t.Valid {
		return nil
	}
	v := timeOfDay(t)
	return &v
}

func pgTime(t attendance.TimeOfDay) pgtype.Time {
	return pgtype.Time{Microseconds: int64(t) * microsPerMinute, Valid: true}
}

func pgTimePtr(t *attendance.TimeOfDay) pgtype.Time {
	if t == nil {
		return pgtype.Time{}
	}
	return pgTime(*t)
}
