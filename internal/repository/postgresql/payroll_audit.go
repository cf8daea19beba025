package postgresql

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// The audit log is append-only; no update or delete is exposed.
type auditRepositoryImpl struct {
	db *database.DB
}

func NewAuditRepository(db *database.DB) payroll.AuditRepository {
	return &auditRepositoryImpl{db: db}
}

const auditColumns = `id, company_id, run_id, item_id, action, actor_id, detail, snapshot, created_at`

func scanAudit(row pgx.Row) (payroll.AuditEntry, error) {
	var e payroll.AuditEntry
	err := row.Scan(&e.ID, &e.CompanyID, &e.RunID, &e.ItemID, &e.Action, &e.ActorID, &e.Detail, &e.Snapshot, &e.CreatedAt)
	return e, err
}

// Append implements payroll.AuditRepository.
func (r *auditRepositoryImpl) Append(ctx context.Context, entry payroll.AuditEntry) error {
	q := GetQuerier(ctx, r.db)

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	_, err := q.Exec(ctx, `
		INSERT INTO payroll_audit_log (id, company_id, run_id, item_id, action, actor_id, detail, snapshot)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, entry.ID, entry.CompanyID, entry.RunID, entry.ItemID, entry.Action, entry.ActorID, []byte(entry.Detail), entry.Snapshot)
	if err != nil {
		return fmt.Errorf("failed to append payroll audit entry: %w", err)
	}
	return nil
}

// ListByRun implements payroll.AuditRepository.
func (r *auditRepositoryImpl) ListByRun(ctx context.Context, runID string) ([]payroll.AuditEntry, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `SELECT `+auditColumns+` FROM payroll_audit_log WHERE run_id = $1 ORDER BY created_at, id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payroll audit entries: %w", err)
	}
	defer rows.Close()

	var entries []payroll.AuditEntry
	for rows.Next() {
		e, err := scanAudit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payroll audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// LatestItemSnapshot implements payroll.AuditRepository.
func (r *auditRepositoryImpl) LatestItemSnapshot(ctx context.Context, itemID string) (payroll.AuditEntry, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + auditColumns + `
		FROM payroll_audit_log
		WHERE item_id = $1 AND action = $2 AND snapshot IS NOT NULL
		ORDER BY created_at DESC
		LIMIT 1
	`
	e, err := scanAudit(q.QueryRow(ctx, query, itemID, payroll.AuditItemLocked))
	if err != nil {
		if err == pgx.ErrNoRows {
			return payroll.AuditEntry{}, payroll.ErrSnapshotNotFound
		}
		return payroll.AuditEntry{}, fmt.Errorf("failed to get item snapshot: %w", err)
	}
	return e, nil
}
