package attendance

import (
	"context"
	"time"
)

type ScheduleRepository interface {
	GetByEmployeeDate(ctx context.Context, employeeID string, workDate time.Time) (Schedule, error)
	ListByEmployeePeriod(ctx context.Context, employeeID string, from, to time.Time) ([]Schedule, error)
	DeleteFromDate(ctx context.Context, employeeID string, from time.Time) (int64, error)
}

type ClockRecordRepository interface {
	GetByID(ctx context.Context, id string, companyID string) (ClockRecord, error)
	// GetByEmployeeDateForUpdate locks the row for the remainder of the transaction.
	GetByEmployeeDateForUpdate(ctx context.Context, employeeID string, workDate time.Time) (ClockRecord, error)
	Upsert(ctx context.Context, record ClockRecord) (ClockRecord, error)
	ListByEmployeePeriod(ctx context.Context, employeeID string, from, to time.Time) ([]ClockRecord, error)
	SetOTApproval(ctx context.Context, id string, companyID string, approved bool) error
}
