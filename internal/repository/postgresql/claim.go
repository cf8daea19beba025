package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/claim"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type claimRepositoryImpl struct {
	db *database.DB
}

func NewClaimRepository(db *database.DB) claim.ClaimRepository {
	return &claimRepositoryImpl{db: db}
}

const claimColumns = `
	id, company_id, employee_id, category, amount, claim_date, receipt_ref, fingerprint,
	status, auto_approved, linked_payroll_item_id, created_at, updated_at`

func scanClaim(row pgx.Row) (claim.Claim, error) {
	var c claim.Claim
	err := row.Scan(
		&c.ID, &c.CompanyID, &c.EmployeeID, &c.Category, &c.Amount, &c.ClaimDate, &c.ReceiptRef, &c.Fingerprint,
		&c.Status, &c.AutoApproved, &c.LinkedPayrollItemID, &c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}

func (r *claimRepositoryImpl) list(ctx context.Context, query string, args ...interface{}) ([]claim.Claim, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var claims []claim.Claim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		claims = append(claims, c)
	}
	return claims, rows.Err()
}

// GetByID implements claim.ClaimRepository.
func (r *claimRepositoryImpl) GetByID(ctx context.Context, id string, companyID string) (claim.Claim, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + claimColumns + ` FROM claims WHERE id = $1 AND company_id = $2`
	c, err := scanClaim(q.QueryRow(ctx, query, id, companyID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return claim.Claim{}, claim.ErrClaimNotFound
		}
		return claim.Claim{}, fmt.Errorf("failed to get claim: %w", err)
	}
	return c, nil
}

// HasApprovedWithFingerprint implements claim.ClaimRepository.
func (r *claimRepositoryImpl) HasApprovedWithFingerprint(ctx context.Context, employeeID, fingerprint string, since time.Time, excludeID string) (bool, error) {
	q := GetQuerier(ctx, r.db)

	var exists bool
	err := q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM claims
			WHERE employee_id = $1
			  AND fingerprint = $2
			  AND claim_date >= $3
			  AND id <> $4
			  AND status IN ('approved', 'paid')
		)
	`, employeeID, fingerprint, since, excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to look up receipt fingerprint: %w", err)
	}
	return exists, nil
}

// ListApprovedUnlinked implements claim.ClaimRepository.
func (r *claimRepositoryImpl) ListApprovedUnlinked(ctx context.Context, employeeID string, upTo time.Time) ([]claim.Claim, error) {
	query := `
		SELECT ` + claimColumns + `
		FROM claims
		WHERE employee_id = $1
		  AND status = 'approved'
		  AND linked_payroll_item_id IS NULL
		  AND claim_date <= $2
		ORDER BY claim_date, id
	`
	claims, err := r.list(ctx, query, employeeID, upTo)
	if err != nil {
		return nil, fmt.Errorf("failed to list approved claims: %w", err)
	}
	return claims, nil
}

// ListByItem implements claim.ClaimRepository.
func (r *claimRepositoryImpl) ListByItem(ctx context.Context, itemID string) ([]claim.Claim, error) {
	query := `SELECT ` + claimColumns + ` FROM claims WHERE linked_payroll_item_id = $1 ORDER BY claim_date, id`
	claims, err := r.list(ctx, query, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to list claims of payroll item: %w", err)
	}
	return claims, nil
}

// LinkToItem implements claim.ClaimRepository. Only approved, unlinked
// claims are taken; anything else means another item got there first.
func (r *claimRepositoryImpl) LinkToItem(ctx context.Context, claimIDs []string, itemID string) error {
	if len(claimIDs) == 0 {
		return nil
	}
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `
		UPDATE claims SET linked_payroll_item_id = $2, updated_at = NOW()
		WHERE id = ANY($1)
		  AND status = 'approved'
		  AND linked_payroll_item_id IS NULL
	`, claimIDs, itemID)
	if err != nil {
		return fmt.Errorf("failed to link claims: %w", err)
	}
	if int(tag.RowsAffected()) != len(claimIDs) {
		return fmt.Errorf("linked %d of %d claims to payroll item %s: some are no longer approved or already linked",
			tag.RowsAffected(), len(claimIDs), itemID)
	}
	return nil
}

// UnlinkItem implements claim.ClaimRepository.
func (r *claimRepositoryImpl) UnlinkItem(ctx context.Context, itemID string) error {
	q := GetQuerier(ctx, r.db)

	_, err := q.Exec(ctx, `
		UPDATE claims SET linked_payroll_item_id = NULL, updated_at = NOW()
		WHERE linked_payroll_item_id = $1 AND status = 'approved'
	`, itemID)
	if err != nil {
		return fmt.Errorf("failed to unlink claims: %w", err)
	}
	return nil
}

// MarkPaidByRun implements claim.ClaimRepository.
func (r *claimRepositoryImpl) MarkPaidByRun(ctx context.Context, runID string) error {
	q := GetQuerier(ctx, r.db)

	_, err := q.Exec(ctx, `
		UPDATE claims c SET status = 'paid', updated_at = NOW()
		FROM payroll_items i
		WHERE c.linked_payroll_item_id = i.id
		  AND i.run_id = $1
		  AND c.status = 'approved'
	`, runID)
	if err != nil {
		return fmt.Errorf("failed to mark claims paid: %w", err)
	}
	return nil
}
