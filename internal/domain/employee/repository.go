package employee

import (
	"context"
	"time"
)

type EmployeeRepository interface {
	GetByID(ctx context.Context, id string, companyID string) (Employee, error)
	// ListForPeriod returns employees active at any point in [from, to].
	ListForPeriod(ctx context.Context, companyID string, from, to time.Time) ([]Employee, error)
	ListDueForDeactivation(ctx context.Context, asOf time.Time) ([]Employee, error)
	// ListPaidInYear returns everyone with a locked item in a paid run of
	// the year, soft-deleted employees included.
	ListPaidInYear(ctx context.Context, companyID string, year int) ([]Employee, error)
	Deactivate(ctx context.Context, id string, companyID string) error
}
