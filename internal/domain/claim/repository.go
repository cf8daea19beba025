package claim

import (
	"context"
	"time"
)

type ClaimRepository interface {
	GetByID(ctx context.Context, id string, companyID string) (Claim, error)
	// HasApprovedWithFingerprint looks for an approved or paid claim of the
	// employee with the same receipt fingerprint since the given date.
	HasApprovedWithFingerprint(ctx context.Context, employeeID, fingerprint string, since time.Time, excludeID string) (bool, error)
	// ListApprovedUnlinked returns approved claims not yet paid by any
	// payroll item, dated on or before upTo.
	ListApprovedUnlinked(ctx context.Context, employeeID string, upTo time.Time) ([]Claim, error)
	ListByItem(ctx context.Context, itemID string) ([]Claim, error)
	LinkToItem(ctx context.Context, claimIDs []string, itemID string) error
	UnlinkItem(ctx context.Context, itemID string) error
	// MarkPaidByRun moves every claim linked to the run's items to paid.
	MarkPaidByRun(ctx context.Context, runID string) error
}
