package payroll

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/claim"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/company"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/employee"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/leave"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/domain/payroll"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/pkg/events"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/hrms-payroll-go/internal/pkg/sse"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type passTx struct{}

func (passTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// ========== in-memory repositories ==========

type memRuns struct {
	payroll.RunRepository
	mu   sync.Mutex
	runs map[string]payroll.Run
}

func (m *memRuns) Create(ctx context.Context, run payroll.Run) (payroll.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run.ID = uuid.New().String()
	m.runs[run.ID] = run
	return run, nil
}

func (m *memRuns) GetByID(ctx context.Context, id, companyID string) (payroll.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok || run.CompanyID != companyID {
		return payroll.Run{}, payroll.ErrRunNotFound
	}
	return run, nil
}

func (m *memRuns) GetByIDForUpdate(ctx context.Context, id, companyID string) (payroll.Run, error) {
	return m.GetByID(ctx, id, companyID)
}

func (m *memRuns) LockPeriod(ctx context.Context, companyID string, month, year int) error {
	return nil
}

func (m *memRuns) GetOpenByPeriod(ctx context.Context, companyID string, month, year int) (payroll.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, run := range m.runs {
		if run.CompanyID == companyID && run.Month == month && run.Year == year && run.Status != payroll.RunStatusCancelled {
			return run, nil
		}
	}
	return payroll.Run{}, payroll.ErrRunNotFound
}

func (m *memRuns) ListByStatus(ctx context.Context, status payroll.RunStatus) ([]payroll.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []payroll.Run
	for _, run := range m.runs {
		if run.Status == status {
			out = append(out, run)
		}
	}
	return out, nil
}

func (m *memRuns) Update(ctx context.Context, run payroll.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.ID] = run
	return nil
}

type memItems struct {
	payroll.ItemRepository
	mu    sync.Mutex
	items map[string]payroll.Item
}

func (m *memItems) Upsert(ctx context.Context, item payroll.Item) (payroll.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, existing := range m.items {
		if existing.RunID == item.RunID && existing.EmployeeID == item.EmployeeID {
			item.ID = id
		}
	}
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	m.items[item.ID] = item
	return item, nil
}

func (m *memItems) GetByID(ctx context.Context, id, companyID string) (payroll.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok || it.CompanyID != companyID {
		return payroll.Item{}, payroll.ErrItemNotFound
	}
	return it, nil
}

func (m *memItems) GetByRunEmployee(ctx context.Context, runID, employeeID string) (payroll.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range m.items {
		if it.RunID == runID && it.EmployeeID == employeeID {
			return it, nil
		}
	}
	return payroll.Item{}, payroll.ErrItemNotFound
}

func (m *memItems) ListByRun(ctx context.Context, runID string) ([]payroll.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []payroll.Item
	for _, it := range m.items {
		if it.RunID == runID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID < out[j].EmployeeID })
	return out, nil
}

func (m *memItems) DeleteByRun(ctx context.Context, runID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, it := range m.items {
		if it.RunID == runID {
			delete(m.items, id)
			n++
		}
	}
	return n, nil
}

func (m *memItems) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return payroll.ErrItemNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *memItems) Lock(ctx context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	it := m.items[id]
	it.Status = payroll.ItemStatusLocked
	it.SnapshotHash = &hash
	m.items[id] = it
	return nil
}

func (m *memItems) GetForEmployeePeriod(ctx context.Context, employeeID string, month, year int) (payroll.Item, error) {
	return payroll.Item{}, payroll.ErrItemNotFound
}

func (m *memItems) YearToDate(ctx context.Context, employeeID string, year, beforeMonth int) (payroll.YearToDate, error) {
	return payroll.YearToDate{StatutoryBase: decimal.Zero, Bonus: decimal.Zero, EPF: decimal.Zero, PCB: decimal.Zero}, nil
}

type memAudit struct {
	mu      sync.Mutex
	entries []payroll.AuditEntry
}

func (m *memAudit) Append(ctx context.Context, e payroll.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *memAudit) ListByRun(ctx context.Context, runID string) ([]payroll.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []payroll.AuditEntry
	for _, e := range m.entries {
		if e.RunID == runID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memAudit) LatestItemSnapshot(ctx context.Context, itemID string) (payroll.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.entries) - 1; i >= 0; i-- {
		e := m.entries[i]
		if e.ItemID != nil && *e.ItemID == itemID && e.Snapshot != nil {
			return e, nil
		}
	}
	return payroll.AuditEntry{}, payroll.ErrSnapshotNotFound
}

func (m *memAudit) actions() []payroll.AuditAction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]payroll.AuditAction, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.Action)
	}
	return out
}

type memClaims struct {
	claim.ClaimRepository
	mu     sync.Mutex
	claims map[string]claim.Claim
	items  *memItems
}

func (m *memClaims) ListApprovedUnlinked(ctx context.Context, employeeID string, upTo time.Time) ([]claim.Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []claim.Claim
	for _, c := range m.claims {
		if c.EmployeeID == employeeID && c.Status == claim.StatusApproved && c.LinkedPayrollItemID == nil && !c.ClaimDate.After(upTo) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memClaims) LinkToItem(ctx context.Context, ids []string, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		c := m.claims[id]
		linked := itemID
		c.LinkedPayrollItemID = &linked
		m.claims[id] = c
	}
	return nil
}

func (m *memClaims) UnlinkItem(ctx context.Context, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, c := range m.claims {
		if c.LinkedPayrollItemID != nil && *c.LinkedPayrollItemID == itemID {
			c.LinkedPayrollItemID = nil
			m.claims[id] = c
		}
	}
	return nil
}

func (m *memClaims) MarkPaidByRun(ctx context.Context, runID string) error {
	items, _ := m.items.ListByRun(ctx, runID)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range items {
		for id, c := range m.claims {
			if c.LinkedPayrollItemID != nil && *c.LinkedPayrollItemID == it.ID {
				c.Status = claim.StatusPaid
				m.claims[id] = c
			}
		}
	}
	return nil
}

type stubEmployeeRepo struct {
	employee.EmployeeRepository
	list []employee.Employee
}

func (s *stubEmployeeRepo) ListForPeriod(ctx context.Context, companyID string, from, to time.Time) ([]employee.Employee, error) {
	return s.list, nil
}

type stubCompanyRepo struct {
	companies []company.Company
}

func (s *stubCompanyRepo) GetByID(ctx context.Context, id string) (company.Company, error) {
	for _, c := range s.companies {
		if c.ID == id {
			return c, nil
		}
	}
	return company.Company{}, company.ErrCompanyNotFound
}

func (s *stubCompanyRepo) ListAll(ctx context.Context) ([]company.Company, error) {
	return s.companies, nil
}

func (s *stubCompanyRepo) UpdateSettings(ctx context.Context, id string, settings company.Settings) error {
	return nil
}

type stubGroupings struct{}

func (stubGroupings) GetByID(ctx context.Context, id, companyID string) (company.Grouping, error) {
	if id != "g1" {
		return company.Grouping{}, company.ErrGroupingNotFound
	}
	return company.Grouping{ID: "g1", CompanyID: companyID, Kind: company.GroupingOutlet, Name: "Subang", Structure: fixedStructure()}, nil
}

type emptySchedules struct{ attendance.ScheduleRepository }

func (emptySchedules) ListByEmployeePeriod(ctx context.Context, employeeID string, from, to time.Time) ([]attendance.Schedule, error) {
	return nil, nil
}

type emptyRecords struct{ attendance.ClockRecordRepository }

func (emptyRecords) ListByEmployeePeriod(ctx context.Context, employeeID string, from, to time.Time) ([]attendance.ClockRecord, error) {
	return nil, nil
}

type emptyHolidays struct{}

func (emptyHolidays) ListInRange(ctx context.Context, companyID string, from, to time.Time) ([]leave.Holiday, error) {
	return nil, nil
}

type noUnpaidLeave struct{}

func (noUnpaidLeave) UnpaidLeaveDaysInPeriod(ctx context.Context, companyID, employeeID string, month, year int) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

type noInputs struct{}

func (noInputs) Get(ctx context.Context, employeeID string, month, year int) (payroll.MonthlyInputs, error) {
	return payroll.MonthlyInputs{}, payroll.ErrInputsNotFound
}

func (noInputs) Upsert(ctx context.Context, in payroll.MonthlyInputs) (payroll.MonthlyInputs, error) {
	return in, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.EventType
}

func (p *recordingPublisher) Publish(ctx context.Context, e events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e.Type)
}

// ========== fixture ==========

type fixture struct {
	svc       *RunServiceImpl
	runs      *memRuns
	items     *memItems
	audit     *memAudit
	claims    *memClaims
	employees *stubEmployeeRepo
	publisher *recordingPublisher
	hub       *sse.Hub
	ctx       context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dob := day(1990, time.January, 1)
	f := &fixture{
		runs:  &memRuns{runs: map[string]payroll.Run{}},
		items: &memItems{items: map[string]payroll.Item{}},
		audit: &memAudit{},
		employees: &stubEmployeeRepo{list: []employee.Employee{
			{ID: "e1", CompanyID: "c1", GroupingID: "g1", EmployeeCode: "E001", DOB: &dob, WorkType: employee.WorkTypeFullTime, BasicSalary: decPtr("2200")},
			{ID: "e2", CompanyID: "c1", GroupingID: "g1", EmployeeCode: "E002", DOB: &dob, WorkType: employee.WorkTypeFullTime, BasicSalary: decPtr("3000")},
		}},
		publisher: &recordingPublisher{},
		hub:       sse.NewHub(),
		ctx:       jwt.WithSystemClaims(context.Background(), "c1"),
	}
	f.claims = &memClaims{claims: map[string]claim.Claim{}, items: f.items}

	companies := &stubCompanyRepo{companies: []company.Company{{ID: "c1", Name: "Mimix", Settings: company.DefaultSettings()}}}
	tables := func(time.Time) (RateTables, error) { return &zeroTables{}, nil }
	gatherer := NewGatherer(stubGroupings{}, emptySchedules{}, emptyRecords{}, emptyHolidays{}, noUnpaidLeave{}, f.claims, noInputs{}, f.items, tables)

	f.svc = NewRunService(passTx{}, f.runs, f.items, f.audit, f.claims, f.employees, companies, gatherer, f.publisher, f.hub, 2)
	return f
}

func (f *fixture) create(t *testing.T) string {
	t.Helper()
	resp, err := f.svc.Create(f.ctx, payroll.CreateRunRequest{CompanyID: "c1", Month: 3, Year: 2025})
	require.NoError(t, err)
	return resp.RunID
}

func (f *fixture) addClaim(id, employeeID, amount string) {
	f.claims.claims[id] = claim.Claim{
		ID:         id,
		CompanyID:  "c1",
		EmployeeID: employeeID,
		Category:   "parking",
		Amount:     dec(amount),
		ClaimDate:  day(2025, time.March, 10),
		Status:     claim.StatusApproved,
	}
}

// ========== tests ==========

func TestCreate_RejectsSecondOpenRun(t *testing.T) {
	f := newFixture(t)
	runID := f.create(t)

	_, err := f.svc.Create(f.ctx, payroll.CreateRunRequest{CompanyID: "c1", Month: 3, Year: 2025})
	var exists *payroll.RunExistsError
	require.True(t, errors.As(err, &exists))
	assert.Equal(t, runID, exists.RunID)

	_, err = f.svc.Cancel(f.ctx, runID)
	require.NoError(t, err)

	_, err = f.svc.Create(f.ctx, payroll.CreateRunRequest{CompanyID: "c1", Month: 3, Year: 2025})
	assert.NoError(t, err, "a cancelled run frees the period")
}

func TestCreate_TenantMismatch(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(f.ctx, payroll.CreateRunRequest{CompanyID: "c2", Month: 3, Year: 2025})
	assert.ErrorIs(t, err, jwt.ErrTenantMismatch)
}

func TestGet_OtherTenantIsNotFound(t *testing.T) {
	f := newFixture(t)
	runID := f.create(t)

	_, err := f.svc.Get(jwt.WithSystemClaims(context.Background(), "c2"), runID)
	assert.ErrorIs(t, err, payroll.ErrRunNotFound)
}

func TestGenerate_ComputesEveryEmployee(t *testing.T) {
	f := newFixture(t)
	runID := f.create(t)
	f.addClaim("cl1", "e1", "45.50")

	stream, unsubscribe := f.hub.Subscribe(payroll.RunTopic(runID))
	defer unsubscribe()

	var mu sync.Mutex
	var progress []payroll.Progress
	resp, err := f.svc.Generate(f.ctx, runID, func(p payroll.Progress) {
		mu.Lock()
		defer mu.Unlock()
		progress = append(progress, p)
	})
	require.NoError(t, err)

	require.Len(t, resp.Items, 2)
	assert.Equal(t, 2, resp.Totals.Employees)
	assert.Equal(t, 0, resp.Totals.Failed)
	assertDec(t, "5245.50", resp.Totals.Gross)
	assert.Len(t, progress, 2)
	assert.Equal(t, 2, progress[1].Done)

	items, err := f.items.ListByRun(f.ctx, runID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, []string{"cl1"}, items[0].ClaimIDs)
	require.NotNil(t, f.claims.claims["cl1"].LinkedPayrollItemID)
	assert.Equal(t, items[0].ID, *f.claims.claims["cl1"].LinkedPayrollItemID)

	select {
	case ev := <-stream:
		assert.Equal(t, "progress", ev.Event)
	case <-time.After(time.Second):
		t.Fatal("no progress event published")
	}
	assert.Contains(t, f.publisher.events, events.PayrollRunGenerated)
}

func TestGenerate_IsRepeatable(t *testing.T) {
	f := newFixture(t)
	runID := f.create(t)
	f.addClaim("cl1", "e1", "45.50")

	_, err := f.svc.Generate(f.ctx, runID, nil)
	require.NoError(t, err)
	first, _ := f.items.ListByRun(f.ctx, runID)

	resp, err := f.svc.Generate(f.ctx, runID, nil)
	require.NoError(t, err)
	second, _ := f.items.ListByRun(f.ctx, runID)

	require.Len(t, second, 2)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Equal(t, []string{"cl1"}, second[0].ClaimIDs, "claims are relinked, not lost")
	assertDec(t, "5245.50", resp.Totals.Gross)
}

func TestGenerate_DropsEmployeesLeavingThePeriod(t *testing.T) {
	f := newFixture(t)
	runID := f.create(t)
	f.addClaim("cl2", "e2", "80")

	_, err := f.svc.Generate(f.ctx, runID, nil)
	require.NoError(t, err)
	require.NotNil(t, f.claims.claims["cl2"].LinkedPayrollItemID)

	f.employees.list = f.employees.list[:1]
	resp, err := f.svc.Generate(f.ctx, runID, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Totals.Employees)
	assertDec(t, "2200", resp.Totals.Gross)

	items, _ := f.items.ListByRun(f.ctx, runID)
	require.Len(t, items, 1)
	assert.Equal(t, "e1", items[0].EmployeeID)
	assert.Nil(t, f.claims.claims["cl2"].LinkedPayrollItemID, "claims of a removed item are released")

	approved, err := f.svc.Approve(f.ctx, runID)
	require.NoError(t, err)
	locked, _ := f.items.ListByRun(f.ctx, runID)
	assert.True(t, payroll.Summarize(locked).Gross.Equal(approved.Totals.Gross))
	assertDec(t, "2200", approved.Totals.Gross)
}

func TestGenerate_ConfigurationErrorFailsOnlyThatItem(t *testing.T) {
	f := newFixture(t)
	f.employees.list[1].GroupingID = "missing"
	runID := f.create(t)

	resp, err := f.svc.Generate(f.ctx, runID, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Totals.Failed)
	assertDec(t, "2200", resp.Totals.Gross)

	failed, err := f.items.GetByRunEmployee(f.ctx, runID, "e2")
	require.NoError(t, err)
	assert.Equal(t, payroll.ItemStatusFailed, failed.Status)
	assert.Contains(t, failed.FailureReason, "department or outlet")

	_, err = f.svc.Approve(f.ctx, runID)
	assert.ErrorIs(t, err, payroll.ErrRunHasFailedItems)
}

func TestApprove_RequiresItems(t *testing.T) {
	f := newFixture(t)
	runID := f.create(t)

	_, err := f.svc.Approve(f.ctx, runID)
	assert.ErrorIs(t, err, payroll.ErrRunHasNoItems)
}

func TestLifecycle_ApproveLockPay(t *testing.T) {
	f := newFixture(t)
	runID := f.create(t)
	f.addClaim("cl1", "e1", "45.50")
	_, err := f.svc.Generate(f.ctx, runID, nil)
	require.NoError(t, err)

	approved, err := f.svc.Approve(f.ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, "approved", approved.Status)
	assert.NotNil(t, approved.ApprovedAt)

	items, _ := f.items.ListByRun(f.ctx, runID)
	for _, it := range items {
		assert.Equal(t, payroll.ItemStatusLocked, it.Status)
		require.NotNil(t, it.SnapshotHash)
		assert.NoError(t, f.svc.VerifyItem(f.ctx, it.ID))
	}

	_, err = f.svc.Generate(f.ctx, runID, nil)
	var te *payroll.TransitionError
	require.True(t, errors.As(err, &te), "approved runs cannot be regenerated")

	_, err = f.svc.Reopen(f.ctx, runID)
	require.True(t, errors.As(err, &te))
	assert.Equal(t, payroll.RunStatusApproved, te.From)

	_, err = f.svc.Pay(f.ctx, runID, payroll.PayRunRequest{Reference: "TRX-1", Method: "bank_transfer"})
	require.True(t, errors.As(err, &te), "pay requires a locked run")

	locked, err := f.svc.Lock(f.ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, "locked", locked.Status)

	paid, err := f.svc.Pay(f.ctx, runID, payroll.PayRunRequest{Reference: "TRX-1", Method: "bank_transfer"})
	require.NoError(t, err)
	assert.Equal(t, "paid", paid.Status)
	require.NotNil(t, paid.Payment)
	assert.Equal(t, "TRX-1", paid.Payment.Reference)
	assert.Equal(t, claim.StatusPaid, f.claims.claims["cl1"].Status)

	_, err = f.svc.Cancel(f.ctx, runID)
	assert.True(t, errors.As(err, &te))

	assert.Equal(t, []events.EventType{
		events.PayrollRunCreated,
		events.PayrollRunGenerated,
		events.PayrollRunApproved,
		events.PayrollRunLocked,
		events.PayrollRunPaid,
	}, f.publisher.events)
}

func TestVerifyItem_DetectsTampering(t *testing.T) {
	f := newFixture(t)
	runID := f.create(t)
	_, err := f.svc.Generate(f.ctx, runID, nil)
	require.NoError(t, err)
	_, err = f.svc.Approve(f.ctx, runID)
	require.NoError(t, err)

	it, err := f.items.GetByRunEmployee(f.ctx, runID, "e1")
	require.NoError(t, err)
	it.NetPay = it.NetPay.Add(dec("1"))
	f.items.items[it.ID] = it

	assert.ErrorIs(t, f.svc.VerifyItem(f.ctx, it.ID), payroll.ErrSnapshotMismatch)
}

func TestVerifyItem_UnlockedItem(t *testing.T) {
	f := newFixture(t)
	runID := f.create(t)
	_, err := f.svc.Generate(f.ctx, runID, nil)
	require.NoError(t, err)

	it, err := f.items.GetByRunEmployee(f.ctx, runID, "e1")
	require.NoError(t, err)
	assert.ErrorIs(t, f.svc.VerifyItem(f.ctx, it.ID), payroll.ErrSnapshotNotFound)
}

func TestReopen_ClearsItemsAndReleasesClaims(t *testing.T) {
	f := newFixture(t)
	runID := f.create(t)
	f.addClaim("cl1", "e1", "45.50")
	_, err := f.svc.Generate(f.ctx, runID, nil)
	require.NoError(t, err)

	resp, err := f.svc.Reopen(f.ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, "draft", resp.Status)
	assert.Equal(t, 0, resp.Totals.Employees)

	items, _ := f.items.ListByRun(f.ctx, runID)
	assert.Empty(t, items)
	assert.Nil(t, f.claims.claims["cl1"].LinkedPayrollItemID)
	assert.Contains(t, f.audit.actions(), payroll.AuditRunReopened)
}

func TestRelink_LateClaim(t *testing.T) {
	f := newFixture(t)
	runID := f.create(t)
	_, err := f.svc.Generate(f.ctx, runID, nil)
	require.NoError(t, err)
	before, err := f.items.GetByRunEmployee(f.ctx, runID, "e1")
	require.NoError(t, err)

	f.addClaim("late", "e1", "120")

	resp, err := f.svc.Relink(f.ctx, runID, payroll.RelinkRequest{EmployeeIDs: []string{"e1"}})
	require.NoError(t, err)
	require.Len(t, resp.Deltas, 1)
	assertDec(t, "120", resp.Deltas[0].ClaimsDelta)

	after, err := f.items.GetByRunEmployee(f.ctx, runID, "e1")
	require.NoError(t, err)
	assertDec(t, before.Earnings.Claims.Add(dec("120")).String(), after.Earnings.Claims, "claims")
	assertDec(t, before.Gross.Add(dec("120")).String(), after.Gross, "gross")
	assertDec(t, before.NetPay.Add(dec("120")).String(), after.NetPay, "net")
	assert.True(t, after.Balanced())

	items, _ := f.items.ListByRun(f.ctx, runID)
	assert.True(t, payroll.Summarize(items).Gross.Equal(resp.Totals.Gross))
	assert.Equal(t, after.ID, *f.claims.claims["late"].LinkedPayrollItemID)
	assert.Contains(t, f.audit.actions(), payroll.AuditRunRelinked)
}

func TestRelink_FailedItemIsRejected(t *testing.T) {
	f := newFixture(t)
	f.employees.list[1].GroupingID = "missing"
	runID := f.create(t)
	_, err := f.svc.Generate(f.ctx, runID, nil)
	require.NoError(t, err)

	_, err = f.svc.Relink(f.ctx, runID, payroll.RelinkRequest{EmployeeIDs: []string{"e2"}})
	assert.ErrorIs(t, err, payroll.ErrItemNotRelinkable)
}

func TestAutoGenerate_ApprovesCleanRuns(t *testing.T) {
	f := newFixture(t)
	settings := company.DefaultSettings()
	settings.Automation.AutoGenerate = true
	settings.Automation.AutoGenerateDay = 5
	settings.Automation.AutoApprove = true
	companies := &stubCompanyRepo{companies: []company.Company{
		{ID: "c1", Settings: settings},
		{ID: "c-off", Settings: company.DefaultSettings()},
	}}
	f.svc.companyRepo = companies

	a := NewAutomation(f.svc, companies, f.runs)
	a.now = func() time.Time { return time.Date(2025, time.April, 5, 2, 0, 0, 0, time.UTC) }

	require.NoError(t, a.AutoGenerate(context.Background()))

	run, err := f.runs.GetOpenByPeriod(context.Background(), "c1", 3, 2025)
	require.NoError(t, err)
	assert.Equal(t, payroll.RunStatusApproved, run.Status)

	_, err = f.runs.GetOpenByPeriod(context.Background(), "c-off", 3, 2025)
	assert.ErrorIs(t, err, payroll.ErrRunNotFound)

	require.NoError(t, a.AutoGenerate(context.Background()), "an existing run is left alone")
}

func TestAutoLock_AfterDelay(t *testing.T) {
	f := newFixture(t)
	settings := company.DefaultSettings()
	settings.Automation.LockAfterDays = 3
	companies := &stubCompanyRepo{companies: []company.Company{{ID: "c1", Settings: settings}}}

	runID := f.create(t)
	_, err := f.svc.Generate(f.ctx, runID, nil)
	require.NoError(t, err)
	_, err = f.svc.Approve(f.ctx, runID)
	require.NoError(t, err)
	approvedAt := *f.runs.runs[runID].ApprovedAt

	a := NewAutomation(f.svc, companies, f.runs)

	a.now = func() time.Time { return approvedAt.AddDate(0, 0, 2) }
	require.NoError(t, a.AutoLock(context.Background()))
	assert.Equal(t, payroll.RunStatusApproved, f.runs.runs[runID].Status)

	a.now = func() time.Time { return approvedAt.AddDate(0, 0, 3) }
	require.NoError(t, a.AutoLock(context.Background()))
	assert.Equal(t, payroll.RunStatusLocked, f.runs.runs[runID].Status)
}
