package leave

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type LeaveTypeRepository interface {
	GetByID(ctx context.Context, id string, companyID string) (LeaveType, error)
	ListByCompany(ctx context.Context, companyID string) ([]LeaveType, error)
	// CreateMissing inserts the types whose code the company does not have
	// yet and returns how many were inserted.
	CreateMissing(ctx context.Context, types []LeaveType) (int, error)
}

type BalanceRepository interface {
	Get(ctx context.Context, employeeID, leaveTypeID string, year int) (Balance, error)
	// GetForUpdate locks the balance row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, employeeID, leaveTypeID string, year int) (Balance, error)
	ListByEmployeeYear(ctx context.Context, employeeID string, year int) ([]Balance, error)
	// CreateIfMissing inserts b unless a row for its key exists and reports
	// whether it inserted.
	CreateIfMissing(ctx context.Context, b Balance) (bool, error)
	AdjustUsed(ctx context.Context, id string, delta decimal.Decimal) error
}

type RequestRepository interface {
	Create(ctx context.Context, r Request) (Request, error)
	GetByID(ctx context.Context, id string, companyID string) (Request, error)
	GetByIDForUpdate(ctx context.Context, id string, companyID string) (Request, error)
	UpdateStatus(ctx context.Context, r Request) error
	// HasOverlap reports pending or approved requests touching [start, end].
	HasOverlap(ctx context.Context, employeeID string, start, end time.Time) (bool, error)
	// ListApprovedUnpaid returns approved requests of unpaid types that
	// intersect [from, to].
	ListApprovedUnpaid(ctx context.Context, employeeID string, from, to time.Time) ([]Request, error)
	CancelPendingForEmployee(ctx context.Context, employeeID string) (int, error)
}

type HolidayRepository interface {
	// ListInRange returns global holidays plus those of companyID.
	ListInRange(ctx context.Context, companyID string, from, to time.Time) ([]Holiday, error)
}
