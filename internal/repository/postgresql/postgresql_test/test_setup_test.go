package postgresql_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/cmlabs-hris/hrms-payroll-go/internal/pkg/database"
	"github.com/stretchr/testify/require"
)

// TestDatabaseSetup holds a connection to the integration database.
type TestDatabaseSetup struct {
	DB *database.DB
}

// NewTestDatabase connects to TEST_DATABASE_URL and applies the schema.
// Tests are skipped when the variable is unset.
func NewTestDatabase(t *testing.T) *TestDatabaseSetup {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := database.NewPostgreSQLDB(ctx, dsn, database.PoolOptions{MaxConns: 8})
	require.NoError(t, err)

	setup := &TestDatabaseSetup{DB: db}
	require.NoError(t, setup.migrate(ctx))
	require.NoError(t, setup.TruncateAllTables(ctx))
	t.Cleanup(setup.Close)
	return setup
}

func (s *TestDatabaseSetup) migrate(ctx context.Context) error {
	schema, err := os.ReadFile(filepath.Join("..", "..", "..", "..", "migrations", "000001_payroll_schema.up.sql"))
	if err != nil {
		return fmt.Errorf("failed to read schema: %w", err)
	}
	if _, err := s.DB.Exec(ctx, string(schema)); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// TruncateAllTables removes every row written by a previous test.
func (s *TestDatabaseSetup) TruncateAllTables(ctx context.Context) error {
	tx, err := s.DB.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tables := []string{
		"ea_forms",
		"claims",
		"payroll_audit_log",
		"payroll_inputs",
		"payroll_items",
		"payroll_runs",
		"public_holidays",
		"leave_requests",
		"leave_balances",
		"leave_types",
		"clock_records",
		"schedules",
		"employees",
		"groupings",
		"companies",
	}

	for _, table := range tables {
		if _, err := tx.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)); err != nil {
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	return tx.Commit(ctx)
}

// Close closes the pool.
func (s *TestDatabaseSetup) Close() {
	s.DB.Close()
}

// seedCompany inserts a company with one grouping and one employee.
func (s *TestDatabaseSetup) seedCompany(t *testing.T, companyID, employeeID string) {
	t.Helper()
	ctx := context.Background()

	_, err := s.DB.Exec(ctx, `INSERT INTO companies (id, name) VALUES ($1, $2)`, companyID, "Company "+companyID)
	require.NoError(t, err)
	_, err = s.DB.Exec(ctx, `
		INSERT INTO groupings (id, company_id, kind, name, basic_salary_default)
		VALUES ($1, $2, 'department', 'Operations', 2200)
	`, companyID+"-g", companyID)
	require.NoError(t, err)
	_, err = s.DB.Exec(ctx, `
		INSERT INTO employees (id, company_id, grouping_id, employee_code, full_name, join_date)
		VALUES ($1, $2, $3, $4, 'Test Employee', '2024-01-01')
	`, employeeID, companyID, companyID+"-g", "E-"+employeeID)
	require.NoError(t, err)
}
